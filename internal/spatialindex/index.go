// Package spatialindex provides build-once-query-many R-tree indexes over
// trail geometries and vertex points. Indexes are rebuilt after mutating
// pipeline stages; there are no incremental updates.
package spatialindex

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/tidwall/rtree"

	"github.com/mkoster/trailnet/internal/geom"
)

// LineItem is one indexed LineString.
type LineItem struct {
	ID       int64
	Geometry geom.LineString
}

// PointItem is one indexed point.
type PointItem struct {
	ID    int64
	Point geom.Point
}

// LineIndex is an R-tree over LineString envelopes.
type LineIndex struct {
	tree  rtree.RTree
	items map[int64]geom.LineString
}

// NewLineIndex builds an index over the given items. Invalid geometries are
// skipped; the caller validates upstream.
func NewLineIndex(items []LineItem) *LineIndex {
	idx := &LineIndex{items: make(map[int64]geom.LineString, len(items))}
	for _, it := range items {
		if !it.Geometry.IsValid() {
			continue
		}
		env := it.Geometry.Envelope()
		idx.tree.Insert(
			[2]float64{env.X.Lo, env.Y.Lo},
			[2]float64{env.X.Hi, env.Y.Hi},
			it.ID,
		)
		idx.items[it.ID] = it.Geometry
	}
	return idx
}

// Len returns the number of indexed items.
func (idx *LineIndex) Len() int { return len(idx.items) }

// SearchEnvelope returns the ids of all items whose envelope intersects the
// query rectangle, in ascending id order.
func (idx *LineIndex) SearchEnvelope(env r2.Rect) []int64 {
	var ids []int64
	idx.tree.Search(
		[2]float64{env.X.Lo, env.Y.Lo},
		[2]float64{env.X.Hi, env.Y.Hi},
		func(_, _ [2]float64, value interface{}) bool {
			ids = append(ids, value.(int64))
			return true
		},
	)
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// DWithin returns the ids of items whose geometry lies within tolMeters of
// the point, ordered by ascending geodesic distance (ties by id).
func (idx *LineIndex) DWithin(p geom.Point, tolMeters float64) []int64 {
	env := searchWindow(p, tolMeters)
	type hit struct {
		id   int64
		dist float64
	}
	var hits []hit
	for _, id := range idx.SearchEnvelope(env) {
		d := geom.DistancePointToLineMeters(p, idx.items[id])
		if d <= tolMeters {
			hits = append(hits, hit{id: id, dist: d})
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].id < hits[b].id
	})
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// Nearest returns up to k item ids ordered by ascending geodesic distance
// from the point.
func (idx *LineIndex) Nearest(p geom.Point, k int) []int64 {
	return nearestByExpansion(p, k, len(idx.items), func(tol float64) []int64 {
		return idx.DWithin(p, tol)
	})
}

// PointIndex is an R-tree over point coordinates.
type PointIndex struct {
	tree  rtree.RTree
	items map[int64]geom.Point
}

// NewPointIndex builds an index over the given points.
func NewPointIndex(items []PointItem) *PointIndex {
	idx := &PointIndex{items: make(map[int64]geom.Point, len(items))}
	for _, it := range items {
		idx.tree.Insert(
			[2]float64{it.Point.X, it.Point.Y},
			[2]float64{it.Point.X, it.Point.Y},
			it.ID,
		)
		idx.items[it.ID] = it.Point
	}
	return idx
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int { return len(idx.items) }

// DWithin returns the ids of points within tolMeters of p, ordered by
// ascending geodesic distance (ties by id).
func (idx *PointIndex) DWithin(p geom.Point, tolMeters float64) []int64 {
	env := searchWindow(p, tolMeters)
	type hit struct {
		id   int64
		dist float64
	}
	var hits []hit
	idx.tree.Search(
		[2]float64{env.X.Lo, env.Y.Lo},
		[2]float64{env.X.Hi, env.Y.Hi},
		func(_, _ [2]float64, value interface{}) bool {
			id := value.(int64)
			d := geom.DistanceMeters(p, idx.items[id])
			if d <= tolMeters {
				hits = append(hits, hit{id: id, dist: d})
			}
			return true
		},
	)
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].id < hits[b].id
	})
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// Nearest returns up to k point ids ordered by ascending geodesic distance.
func (idx *PointIndex) Nearest(p geom.Point, k int) []int64 {
	return nearestByExpansion(p, k, len(idx.items), func(tol float64) []int64 {
		return idx.DWithin(p, tol)
	})
}

// nearestByExpansion finds k nearest items by doubling a DWithin radius
// until enough candidates are found or the window covers everything.
func nearestByExpansion(p geom.Point, k, total int, dwithin func(tol float64) []int64) []int64 {
	if k <= 0 || total == 0 {
		return nil
	}
	tol := 50.0 // meters
	const maxTol = 21000 * 1000 // more than half the Earth's circumference
	for {
		ids := dwithin(tol)
		if len(ids) >= k || tol >= maxTol || len(ids) == total {
			if len(ids) > k {
				ids = ids[:k]
			}
			return ids
		}
		tol *= 4
	}
}

// searchWindow returns a rectangle in degree space that conservatively
// covers everything within tolMeters of p. The window only generates
// candidates; callers filter by true geodesic distance.
func searchWindow(p geom.Point, tolMeters float64) r2.Rect {
	// One degree of latitude is at least ~110.5 km on the mean sphere; pad
	// by 25% so the candidate window is a strict superset.
	latMargin := tolMeters / 110500.0 * 1.25
	cosLat := math.Cos(p.Y * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonMargin := latMargin / cosLat
	return r2.RectFromPoints(
		r2.Point{X: p.X - lonMargin, Y: p.Y - latMargin},
		r2.Point{X: p.X + lonMargin, Y: p.Y + latMargin},
	)
}
