package geom

import (
	"math"
	"sort"
)

// epsDeg bounds coordinate comparisons during intersection tests. Trail
// coordinates carry 6-7 significant decimals; anything below this is noise.
const epsDeg = 1e-12

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(a, b, p Point) bool {
	return p.X >= math.Min(a.X, b.X)-epsDeg && p.X <= math.Max(a.X, b.X)+epsDeg &&
		p.Y >= math.Min(a.Y, b.Y)-epsDeg && p.Y <= math.Max(a.Y, b.Y)+epsDeg
}

// segParam returns the parameter t in [0, 1] of p along segment [a, b],
// measured on the dominant axis.
func segParam(a, b, p Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	var t float64
	if math.Abs(dx) >= math.Abs(dy) {
		if dx == 0 {
			return 0
		}
		t = (p.X - a.X) / dx
	} else {
		t = (p.Y - a.Y) / dy
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t
}

// segmentIntersection computes the intersection of segments [p1, p2] and
// [p3, p4]. It returns the intersection points (0, 1, or, for collinear
// overlaps, the two overlap endpoints) and whether the segments overlap
// collinearly over a positive length.
func segmentIntersection(p1, p2, p3, p4 Point) ([]Point, bool) {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > epsDeg && d2 < -epsDeg) || (d1 < -epsDeg && d2 > epsDeg)) &&
		((d3 > epsDeg && d4 < -epsDeg) || (d3 < -epsDeg && d4 > epsDeg)) {
		// Proper crossing: solve the parametric system.
		denom := (p2.X-p1.X)*(p4.Y-p3.Y) - (p2.Y-p1.Y)*(p4.X-p3.X)
		if denom == 0 {
			return nil, false
		}
		t := ((p3.X-p1.X)*(p4.Y-p3.Y) - (p3.Y-p1.Y)*(p4.X-p3.X)) / denom
		return []Point{{
			X: p1.X + t*(p2.X-p1.X),
			Y: p1.Y + t*(p2.Y-p1.Y),
		}}, false
	}

	collinear := math.Abs(d1) <= epsDeg && math.Abs(d2) <= epsDeg &&
		math.Abs(d3) <= epsDeg && math.Abs(d4) <= epsDeg
	if collinear {
		// Project all four endpoints onto [p1, p2] and look for overlap.
		type cand struct {
			t float64
			p Point
		}
		cands := []cand{
			{0, p1}, {1, p2},
			{segParam(p1, p2, p3), p3},
			{segParam(p1, p2, p4), p4},
		}
		// Only p3/p4 positions that actually lie on [p1, p2] bound the
		// overlap window.
		lo, hi := 0.0, 1.0
		t3, t4 := cands[2].t, cands[3].t
		if !onSegment(p1, p2, p3) && !onSegment(p1, p2, p4) &&
			!onSegment(p3, p4, p1) && !onSegment(p3, p4, p2) {
			return nil, false
		}
		oLo := math.Max(lo, math.Min(t3, t4))
		oHi := math.Min(hi, math.Max(t3, t4))
		if oHi-oLo <= epsDeg {
			// Touching at a single collinear point.
			for _, c := range cands[2:] {
				if onSegment(p1, p2, c.p) {
					return []Point{c.p}, false
				}
			}
			return nil, false
		}
		a := Point{X: p1.X + oLo*(p2.X-p1.X), Y: p1.Y + oLo*(p2.Y-p1.Y)}
		b := Point{X: p1.X + oHi*(p2.X-p1.X), Y: p1.Y + oHi*(p2.Y-p1.Y)}
		return []Point{a, b}, true
	}

	// Endpoint touching a segment interior or another endpoint.
	if math.Abs(d1) <= epsDeg && onSegment(p3, p4, p1) {
		return []Point{p1}, false
	}
	if math.Abs(d2) <= epsDeg && onSegment(p3, p4, p2) {
		return []Point{p2}, false
	}
	if math.Abs(d3) <= epsDeg && onSegment(p1, p2, p3) {
		return []Point{p3}, false
	}
	if math.Abs(d4) <= epsDeg && onSegment(p1, p2, p4) {
		return []Point{p4}, false
	}
	return nil, false
}

// cutSet accumulates split positions per segment of one LineString.
type cutSet struct {
	line LineString
	cuts map[int][]float64 // segment index -> params in (0, 1)
	at   map[int]bool      // vertex index -> split here
}

func newCutSet(l LineString) *cutSet {
	return &cutSet{line: l, cuts: make(map[int][]float64), at: make(map[int]bool)}
}

// snapDeg collapses computed intersection points onto existing vertices.
// 1e-9 degrees is ~0.1 mm, far below any survey precision.
const snapDeg = 1e-9

func nearPoint(p, q Point) bool {
	return math.Abs(p.X-q.X) <= snapDeg && math.Abs(p.Y-q.Y) <= snapDeg
}

// addCut records an intersection point p on segment seg of the LineString.
// Points landing on a segment endpoint mark the vertex itself.
func (c *cutSet) addCut(seg int, p Point) {
	a, b := c.line[seg], c.line[seg+1]
	if nearPoint(p, a) {
		if seg > 0 {
			c.at[seg] = true
		}
		return
	}
	if nearPoint(p, b) {
		if seg+1 < len(c.line)-1 {
			c.at[seg+1] = true
		}
		return
	}
	t := segParam(a, b, p)
	if t <= epsDeg {
		if seg > 0 {
			c.at[seg] = true
		}
		return
	}
	if t >= 1-epsDeg {
		if seg+1 < len(c.line)-1 {
			c.at[seg+1] = true
		}
		return
	}
	c.cuts[seg] = append(c.cuts[seg], t)
}

// split returns the LineString pieces between consecutive cut positions.
func (c *cutSet) split() []LineString {
	type vtx struct {
		p   Point
		cut bool
	}
	verts := make([]vtx, 0, len(c.line))
	for i, p := range c.line {
		verts = append(verts, vtx{p: p, cut: c.at[i]})
		if i == len(c.line)-1 {
			break
		}
		ts := c.cuts[i]
		sort.Float64s(ts)
		prev := math.Inf(-1)
		for _, t := range ts {
			if t-prev <= epsDeg {
				continue
			}
			prev = t
			a, b := c.line[i], c.line[i+1]
			q := Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
			if nearPoint(q, a) || nearPoint(q, b) {
				continue
			}
			verts = append(verts, vtx{p: q, cut: true})
		}
	}

	var pieces []LineString
	current := LineString{verts[0].p}
	for _, v := range verts[1:] {
		if n := len(current); n > 0 && current[n-1].Equal(v.p) {
			continue
		}
		current = append(current, v.p)
		if v.cut {
			if len(current) >= 2 {
				pieces = append(pieces, current)
			}
			current = LineString{v.p}
		}
	}
	if len(current) >= 2 {
		pieces = append(pieces, current)
	}
	return pieces
}

// Node splits every member of the collection at all pairwise and self
// intersections. The union of the output equals the union of the input and
// no two output pieces cross except at shared endpoints. Invalid members
// yield ErrInvalidGeometry.
func Node(lines []LineString) ([]LineString, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCollection
	}
	sets := make([]*cutSet, len(lines))
	envs := make([]envCache, len(lines))
	for i, l := range lines {
		if !l.IsValid() {
			return nil, ErrInvalidGeometry
		}
		sets[i] = newCutSet(l)
		envs[i] = newEnvCache(l)
	}

	for i := range lines {
		// Self-intersections within one LineString.
		li := lines[i]
		for a := 0; a < len(li)-1; a++ {
			for b := a + 1; b < len(li)-1; b++ {
				pts, overlap := segmentIntersection(li[a], li[a+1], li[b], li[b+1])
				if overlap {
					continue // collinear backtrack; leave as-is
				}
				for _, p := range pts {
					if b == a+1 && p.Equal(li[b]) {
						continue
					}
					if a == 0 && b == len(li)-2 && li.IsClosed() && p.Equal(li[0]) {
						continue
					}
					sets[i].addCut(a, p)
					sets[i].addCut(b, p)
				}
			}
		}
		// Pairwise intersections against every later LineString.
		for j := i + 1; j < len(lines); j++ {
			if !envs[i].rect.Intersects(envs[j].rect) {
				continue
			}
			lj := lines[j]
			for a := 0; a < len(li)-1; a++ {
				for b := 0; b < len(lj)-1; b++ {
					pts, _ := segmentIntersection(li[a], li[a+1], lj[b], lj[b+1])
					for _, p := range pts {
						sets[i].addCut(a, p)
						sets[j].addCut(b, p)
					}
				}
			}
		}
	}

	var out []LineString
	for _, s := range sets {
		out = append(out, s.split()...)
	}
	return out, nil
}

type envCache struct {
	rect rect2
}

// rect2 is a minimal axis-aligned box; kept separate from r2.Rect to avoid
// per-pair allocation in the hot noding loop.
type rect2 struct {
	minX, minY, maxX, maxY float64
}

func (r rect2) Intersects(o rect2) bool {
	return r.minX <= o.maxX && o.minX <= r.maxX && r.minY <= o.maxY && o.minY <= r.maxY
}

func newEnvCache(l LineString) envCache {
	r := rect2{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	for _, p := range l {
		r.minX = math.Min(r.minX, p.X)
		r.minY = math.Min(r.minY, p.Y)
		r.maxX = math.Max(r.maxX, p.X)
		r.maxY = math.Max(r.maxY, p.Y)
	}
	return envCache{rect: r}
}
