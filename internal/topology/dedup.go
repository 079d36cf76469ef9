package topology

import (
	"sort"

	"github.com/mkoster/trailnet/internal/geom"
)

// DedupStats summarizes one deduplication run.
type DedupStats struct {
	GroupsCollapsed int
	EdgesRemoved    int
}

// Deduplicator removes parallel edges: for each unordered (source, target)
// pair it keeps the single best geometry and deletes the rest. Self-loops
// are exempt.
type Deduplicator struct{}

// NewDeduplicator creates a deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Dedup collapses every parallel-edge group. Ranking within a group:
// descending planar length, then descending length_km, then ascending id;
// rank 1 survives. Composition entries of deleted edges are discarded.
func (d *Deduplicator) Dedup(g *Graph, composition *CompositionIndex) DedupStats {
	groups := make(map[[2]int64][]int64)
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if e.IsSelfLoop() {
			continue
		}
		key := e.PairKey()
		groups[key] = append(groups[key], id)
	}

	var stats DedupStats
	var doomed []int64
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(a, b int) bool {
			ea, eb := g.Edges[ids[a]], g.Edges[ids[b]]
			pa, pb := geom.PlanarLength(ea.Geometry), geom.PlanarLength(eb.Geometry)
			if pa != pb {
				return pa > pb
			}
			if ea.LengthKm != eb.LengthKm {
				return ea.LengthKm > eb.LengthKm
			}
			return ea.ID < eb.ID
		})
		stats.GroupsCollapsed++
		doomed = append(doomed, ids[1:]...)
	}

	sort.Slice(doomed, func(a, b int) bool { return doomed[a] < doomed[b] })
	for _, id := range doomed {
		g.RemoveEdge(id)
		composition.Remove(id)
		stats.EdgesRemoved++
	}

	g.RemoveOrphanVertices()
	g.RecomputeDegrees()
	return stats
}
