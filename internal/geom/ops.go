package geom

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// earthRadiusMeters is the mean Earth radius used to convert s2 angular
// distances to meters.
const earthRadiusMeters = 6371008.8

// DistanceMeters returns the geodesic distance between two points in meters.
func DistanceMeters(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Y, a.X)
	lb := s2.LatLngFromDegrees(b.Y, b.X)
	return la.Distance(lb).Radians() * earthRadiusMeters
}

// GeodesicLengthMeters returns the geodesic length of the LineString in
// meters, summed over its segments.
func GeodesicLengthMeters(l LineString) float64 {
	var total float64
	for i := 1; i < len(l); i++ {
		total += DistanceMeters(l[i-1], l[i])
	}
	return total
}

// GeodesicLengthKm returns the geodesic length in kilometers.
func GeodesicLengthKm(l LineString) float64 {
	return GeodesicLengthMeters(l) / 1000.0
}

// PlanarLength returns the length of the LineString in coordinate units.
// Used only for deterministic ranking, never for meter-valued comparisons.
func PlanarLength(l LineString) float64 {
	var total float64
	for i := 1; i < len(l); i++ {
		dx := l[i].X - l[i-1].X
		dy := l[i].Y - l[i-1].Y
		total += math.Hypot(dx, dy)
	}
	return total
}

// Reverse returns a new LineString with the vertex order reversed.
func Reverse(l LineString) LineString {
	out := make(LineString, len(l))
	for i, p := range l {
		out[len(l)-1-i] = p
	}
	return out
}

// Force2D builds a LineString from raw coordinate tuples, keeping only the
// first two ordinates of each position.
func Force2D(coords [][]float64) (LineString, error) {
	if len(coords) < 2 {
		return nil, ErrInvalidGeometry
	}
	out := make(LineString, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, ErrInvalidGeometry
		}
		p := Point{X: c[0], Y: c[1]}
		// Collapse repeated consecutive points instead of failing; 3D
		// tracks often repeat an (x, y) with differing elevations.
		if n := len(out); n > 0 && out[n-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	if !out.IsValid() {
		return nil, ErrInvalidGeometry
	}
	return out, nil
}

// Interpolate returns the point at geodesic fraction t in [0, 1] along the
// LineString.
func Interpolate(l LineString, t float64) (Point, error) {
	if !l.IsValid() {
		return Point{}, ErrInvalidGeometry
	}
	if t <= 0 {
		return l.Start(), nil
	}
	if t >= 1 {
		return l.End(), nil
	}
	total := GeodesicLengthMeters(l)
	if total == 0 {
		return l.Start(), nil
	}
	target := t * total
	var walked float64
	for i := 1; i < len(l); i++ {
		seg := DistanceMeters(l[i-1], l[i])
		if walked+seg >= target {
			f := 0.0
			if seg > 0 {
				f = (target - walked) / seg
			}
			return Point{
				X: l[i-1].X + f*(l[i].X-l[i-1].X),
				Y: l[i-1].Y + f*(l[i].Y-l[i-1].Y),
			}, nil
		}
		walked += seg
	}
	return l.End(), nil
}

// Midpoint returns the point at half the geodesic length.
func Midpoint(l LineString) (Point, error) {
	return Interpolate(l, 0.5)
}

// localFrame returns the cos(latitude) scale factor for planar work around
// the given reference point. Longitude deltas are multiplied by this factor
// so that planar candidate selection agrees with geodesic measurement.
func localFrame(ref Point) float64 {
	c := math.Cos(ref.Y * math.Pi / 180)
	if c < 1e-6 {
		c = 1e-6
	}
	return c
}

// closestPointOnSegment returns the point on segment [a, b] closest to p,
// computed in a local equirectangular frame.
func closestPointOnSegment(p, a, b Point) Point {
	scale := localFrame(a)
	ax, ay := a.X*scale, a.Y
	bx, by := b.X*scale, b.Y
	px, py := p.X*scale, p.Y
	dx, dy := bx-ax, by-ay
	den := dx*dx + dy*dy
	if den == 0 {
		return a
	}
	t := ((px-ax)*dx + (py-ay)*dy) / den
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
}

// DistancePointToLineMeters returns the geodesic distance in meters from a
// point to the nearest position on the LineString.
func DistancePointToLineMeters(p Point, l LineString) float64 {
	best := math.Inf(1)
	for i := 1; i < len(l); i++ {
		q := closestPointOnSegment(p, l[i-1], l[i])
		if d := DistanceMeters(p, q); d < best {
			best = d
		}
	}
	return best
}

// CloseRing snaps the final point of a near-closed LineString onto its
// start so the ring closes exactly. A trailing point that collapses onto
// its predecessor is dropped. Callers guard that the geometry is a genuine
// cycle; a two-point input would degenerate.
func CloseRing(l LineString) LineString {
	out := l.Clone()
	out[len(out)-1] = out[0]
	if n := len(out); n >= 2 && out[n-1].Equal(out[n-2]) {
		out = out[:n-1]
	}
	return out
}

// DistanceLinesMeters returns the minimum geodesic distance in meters
// between two LineStrings. Crossing or touching LineStrings yield 0.
func DistanceLinesMeters(a, b LineString) float64 {
	best := math.Inf(1)
	for i := 1; i < len(a); i++ {
		for j := 1; j < len(b); j++ {
			pts, overlap := segmentIntersection(a[i-1], a[i], b[j-1], b[j])
			if overlap || len(pts) > 0 {
				return 0
			}
			for _, p := range []Point{a[i-1], a[i]} {
				q := closestPointOnSegment(p, b[j-1], b[j])
				if d := DistanceMeters(p, q); d < best {
					best = d
				}
			}
			for _, p := range []Point{b[j-1], b[j]} {
				q := closestPointOnSegment(p, a[i-1], a[i])
				if d := DistanceMeters(p, q); d < best {
					best = d
				}
			}
		}
	}
	return best
}

// DWithinLines reports whether the minimum distance between two LineStrings
// is at most tolMeters.
func DWithinLines(a, b LineString, tolMeters float64) bool {
	return DistanceLinesMeters(a, b) <= tolMeters
}

// MaxVertexDistanceMeters returns the symmetric maximum over each
// LineString's vertices of the distance to the other LineString. Two
// near-identical LineStrings have a small value; a mere crossing does not.
func MaxVertexDistanceMeters(a, b LineString) float64 {
	var worst float64
	for _, p := range a {
		if d := DistancePointToLineMeters(p, b); d > worst {
			worst = d
		}
	}
	for _, p := range b {
		if d := DistancePointToLineMeters(p, a); d > worst {
			worst = d
		}
	}
	return worst
}

// MaxVertexDistanceOntoMeters returns the maximum over a's vertices of the
// distance to b. Zero (within float noise) means a lies on b's linework.
func MaxVertexDistanceOntoMeters(a, b LineString) float64 {
	var worst float64
	for _, p := range a {
		if d := DistancePointToLineMeters(p, b); d > worst {
			worst = d
		}
	}
	return worst
}

// LocateFraction returns the geodesic fraction in [0, 1] along l of the
// position nearest to p.
func LocateFraction(l LineString, p Point) (float64, error) {
	if !l.IsValid() {
		return 0, ErrInvalidGeometry
	}
	total := GeodesicLengthMeters(l)
	if total == 0 {
		return 0, nil
	}
	best := math.Inf(1)
	var bestAt float64
	var walked float64
	for i := 1; i < len(l); i++ {
		q := closestPointOnSegment(p, l[i-1], l[i])
		if d := DistanceMeters(p, q); d < best {
			best = d
			bestAt = walked + DistanceMeters(l[i-1], q)
		}
		walked += DistanceMeters(l[i-1], l[i])
	}
	f := bestAt / total
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f, nil
}

// Snap returns a copy of l with every vertex within tolMeters of a vertex
// of ref moved onto that reference vertex.
func Snap(l, ref LineString, tolMeters float64) LineString {
	out := l.Clone()
	for i, p := range out {
		best := tolMeters
		snapped := p
		for _, r := range ref {
			if d := DistanceMeters(p, r); d <= best {
				best = d
				snapped = r
			}
		}
		out[i] = snapped
	}
	// Snapping can collapse consecutive vertices onto the same point.
	return dedupeConsecutive(out)
}

func dedupeConsecutive(l LineString) LineString {
	out := l[:0:0]
	for _, p := range l {
		if n := len(out); n > 0 && out[n-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LineMerge joins LineStrings that share endpoints (within tolMeters) into
// maximal continuous LineStrings. Members are consumed greedily; each output
// component is returned in traversal order, components sorted by descending
// geodesic length.
func LineMerge(lines []LineString, tolMeters float64) ([]LineString, error) {
	parts := make([]LineString, 0, len(lines))
	for _, l := range lines {
		if l.IsValid() {
			parts = append(parts, l.Clone())
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmptyCollection
	}
	used := make([]bool, len(parts))
	var components []LineString
	for i := range parts {
		if used[i] {
			continue
		}
		used[i] = true
		chain := parts[i]
		for {
			extended := false
			for j := range parts {
				if used[j] {
					continue
				}
				next := parts[j]
				switch {
				case DistanceMeters(chain.End(), next.Start()) <= tolMeters:
					chain = appendLine(chain, next)
				case DistanceMeters(chain.End(), next.End()) <= tolMeters:
					chain = appendLine(chain, Reverse(next))
				case DistanceMeters(chain.Start(), next.End()) <= tolMeters:
					chain = appendLine(next, chain)
				case DistanceMeters(chain.Start(), next.Start()) <= tolMeters:
					chain = appendLine(Reverse(next), chain)
				default:
					continue
				}
				used[j] = true
				extended = true
			}
			if !extended {
				break
			}
		}
		components = append(components, chain)
	}
	sort.SliceStable(components, func(a, b int) bool {
		return GeodesicLengthMeters(components[a]) > GeodesicLengthMeters(components[b])
	})
	return components, nil
}

// LineMergeSingle merges the collection and requires the result to be one
// continuous LineString; otherwise ErrDiscontinuous is returned together
// with the largest component.
func LineMergeSingle(lines []LineString, tolMeters float64) (LineString, error) {
	components, err := LineMerge(lines, tolMeters)
	if err != nil {
		return nil, err
	}
	if len(components) != 1 {
		return components[0], ErrDiscontinuous
	}
	return components[0], nil
}

// appendLine concatenates b onto a, dropping b's first point when it
// coincides with a's last.
func appendLine(a, b LineString) LineString {
	out := make(LineString, 0, len(a)+len(b))
	out = append(out, a...)
	start := 0
	if a.End().Equal(b.Start()) {
		start = 1
	}
	out = append(out, b[start:]...)
	return out
}
