// Package geom provides the 2D geometry kernel for the trail network build.
// Coordinates are geographic (longitude/latitude, EPSG:4326); planar
// quantities are expressed in coordinate degrees while every meter-valued
// length or distance is geodesic (see ops.go).
package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a 2D position with X = longitude and Y = latitude in degrees.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Equal reports whether two points have identical coordinates.
func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// R2 converts the point to an r2.Point.
func (p Point) R2() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// LineString is an ordered sequence of at least two points.
// The zero value is an empty (invalid) LineString.
type LineString []Point

// Clone returns a deep copy of the LineString.
func (l LineString) Clone() LineString {
	out := make(LineString, len(l))
	copy(out, l)
	return out
}

// Start returns the first point. Panics on an empty LineString; callers are
// expected to validate first.
func (l LineString) Start() Point { return l[0] }

// End returns the last point.
func (l LineString) End() Point { return l[len(l)-1] }

// IsEmpty reports whether the LineString has no coordinates.
func (l LineString) IsEmpty() bool { return len(l) == 0 }

// IsValid reports whether the LineString has at least two points, no
// repeated consecutive points, and no NaN or infinite coordinates.
func (l LineString) IsValid() bool {
	if len(l) < 2 {
		return false
	}
	for i, p := range l {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
		if i > 0 && p.Equal(l[i-1]) {
			return false
		}
	}
	return true
}

// IsClosed reports whether the start and end coordinates coincide exactly.
func (l LineString) IsClosed() bool {
	return len(l) >= 2 && l.Start().Equal(l.End())
}

// IsSimple reports whether the LineString has no self-intersections other
// than a shared start/end point (a closed ring is simple).
func (l LineString) IsSimple() bool {
	if !l.IsValid() {
		return false
	}
	n := len(l) - 1 // segment count
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pts, overlap := segmentIntersection(l[i], l[i+1], l[j], l[j+1])
			if overlap {
				return false
			}
			for _, p := range pts {
				if j == i+1 && p.Equal(l[j]) {
					continue // shared interior vertex between adjacent segments
				}
				if i == 0 && j == n-1 && l.IsClosed() && p.Equal(l[0]) {
					continue // closing point of a ring
				}
				return false
			}
		}
	}
	return true
}

// Envelope returns the axis-aligned bounding rectangle of the LineString.
// An empty LineString yields r2.EmptyRect.
func (l LineString) Envelope() r2.Rect {
	if len(l) == 0 {
		return r2.EmptyRect()
	}
	rect := r2.RectFromPoints(l[0].R2())
	for _, p := range l[1:] {
		rect = rect.AddPoint(p.R2())
	}
	return rect
}

// EnvelopeOfPoint returns a degenerate rectangle covering a single point.
func EnvelopeOfPoint(p Point) r2.Rect {
	return r2.RectFromPoints(p.R2())
}

// EnvelopesIntersect reports whether two envelopes overlap or touch.
func EnvelopesIntersect(a, b r2.Rect) bool {
	return a.Intersects(b)
}

// ExpandEnvelope grows a rectangle by a margin expressed in coordinate
// degrees on every side.
func ExpandEnvelope(rect r2.Rect, marginDeg float64) r2.Rect {
	return rect.ExpandedByMargin(marginDeg)
}
