package topology

import (
	"github.com/mkoster/trailnet/internal/geom"
)

// WeldStats summarizes one welding run.
type WeldStats struct {
	VerticesMerged   int
	OrphansRemoved   int
	Passes           int
	LoopsMarked      int
	SelfLoopsDropped int
}

// Welder merges vertices that independent snapping left near-coincident.
// For every pair (u, v) with u < v within the weld tolerance, edges
// touching v are remapped onto u and v is deleted. Passes repeat until a
// pass introduces no change.
//
// Welding can turn a near-closed edge into a source = target edge, so the
// self-loop policy is re-applied afterwards: approximate cycles are marked
// true loops, anything else collapsed onto itself is dropped.
type Welder struct {
	weldTolM     float64
	trueLoopTolM float64
}

// NewWelder creates a welder with the given tolerances.
func NewWelder(weldTolM, trueLoopTolM float64) *Welder {
	return &Welder{weldTolM: weldTolM, trueLoopTolM: trueLoopTolM}
}

// Weld runs the fix-point weld over the graph.
func (w *Welder) Weld(g *Graph, composition *CompositionIndex) WeldStats {
	var stats WeldStats
	for {
		stats.Passes++
		merged := w.pass(g)
		stats.VerticesMerged += merged
		if merged == 0 {
			break
		}
	}
	w.resolveSelfLoops(g, composition, &stats)
	stats.OrphansRemoved = len(g.RemoveOrphanVertices())
	g.RecomputeDegrees()
	return stats
}

// pass performs one sweep in ascending id order and returns the number of
// vertices absorbed.
func (w *Welder) pass(g *Graph) int {
	ids := g.VertexIDs()
	gone := make(map[int64]bool)
	merged := 0

	for i, u := range ids {
		if gone[u] {
			continue
		}
		uPoint := g.Vertices[u].Point
		for _, v := range ids[i+1:] {
			if gone[v] {
				continue
			}
			if geom.DistanceMeters(uPoint, g.Vertices[v].Point) > w.weldTolM {
				continue
			}
			w.absorb(g, u, v)
			gone[v] = true
			merged++
		}
	}
	return merged
}

// absorb remaps every edge endpoint from v onto u and deletes v.
func (w *Welder) absorb(g *Graph, u, v int64) {
	for _, id := range g.IncidentEdges(v) {
		e := g.Edges[id]
		if e.Source == v {
			e.Source = u
		}
		if e.Target == v {
			e.Target = u
		}
	}
	if g.Vertices[v].IsTrueLoopAttached {
		g.Vertices[u].IsTrueLoopAttached = true
	}
	g.RemoveVertex(v)
}

// resolveSelfLoops re-applies the self-loop policy to edges welding closed:
// an approximate cycle becomes a true loop, everything else is deleted with
// its composition.
func (w *Welder) resolveSelfLoops(g *Graph, composition *CompositionIndex, stats *WeldStats) {
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if !e.IsSelfLoop() || e.IsTrueLoop {
			continue
		}
		if isApproximateCycle(e.Geometry, w.trueLoopTolM) {
			e.IsTrueLoop = true
			g.Vertices[e.Source].IsTrueLoopAttached = true
			stats.LoopsMarked++
			continue
		}
		g.RemoveEdge(id)
		composition.Remove(id)
		stats.SelfLoopsDropped++
	}
}
