package topology

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

// ChainMergeStats summarizes a chain-merge run.
type ChainMergeStats struct {
	Passes            int
	ChainsMerged      int
	EdgesMerged       int
	ConnectorsRemoved int
	Skipped           int
	BudgetExceeded    bool
	Diagnostics       []string
}

// chain is one maximal walk v0 - e1 - v1 - ... - ek - vk through internal
// degree-2 vertices.
type chain struct {
	vertices []int64 // v0..vk
	edges    []int64 // e1..ek, traversal order
	totalKm  float64
	minEdge  int64
}

// ChainMerger iteratively rewrites degree-2 chains as single edges. Each
// pass removes short dead-end connectors first, discovers the mergeable
// chains, selects a maximal non-overlapping subset by rank, and rewrites
// each selected chain atomically with its composition.
type ChainMerger struct {
	maxIterations      int
	shortConnectorMaxM float64
	edgeSnapTolM       float64
}

// NewChainMerger creates a merger with the given budget and tolerances.
func NewChainMerger(maxIterations int, shortConnectorMaxM, edgeSnapTolM float64) *ChainMerger {
	return &ChainMerger{
		maxIterations:      maxIterations,
		shortConnectorMaxM: shortConnectorMaxM,
		edgeSnapTolM:       edgeSnapTolM,
	}
}

// Merge runs the fix-point loop until no chain merges or the iteration
// budget is hit. Exceeding the budget is a warning, not a failure.
func (m *ChainMerger) Merge(g *Graph, composition *CompositionIndex) ChainMergeStats {
	var stats ChainMergeStats

	for {
		if stats.Passes >= m.maxIterations {
			g.RecomputeDegrees()
			if len(m.discoverChains(g)) > 0 {
				stats.BudgetExceeded = true
				stats.Diagnostics = append(stats.Diagnostics,
					fmt.Sprintf("chain merge stopped after %d passes with mergeable chains remaining", stats.Passes))
			}
			break
		}
		stats.Passes++

		stats.ConnectorsRemoved += m.removeShortConnectors(g, composition)
		g.RecomputeDegrees()

		chains := m.discoverChains(g)
		selected := selectNonOverlapping(chains)
		if len(selected) == 0 {
			break
		}

		for _, c := range selected {
			if err := m.mergeChain(g, composition, c); err != nil {
				stats.Skipped++
				stats.Diagnostics = append(stats.Diagnostics, err.Error())
				continue
			}
			stats.ChainsMerged++
			stats.EdgesMerged += len(c.edges)
		}

		g.RemoveOrphanVertices()
		g.RecomputeDegrees()
	}

	return stats
}

// removeShortConnectors deletes edges at or under the connector threshold
// that attach to a dead-end (degree-1) vertex. Noding slivers otherwise
// manufacture artificial degree-3 junctions.
func (m *ChainMerger) removeShortConnectors(g *Graph, composition *CompositionIndex) int {
	g.RecomputeDegrees()
	removed := 0
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if e.IsSelfLoop() || e.LengthKm*1000 > m.shortConnectorMaxM {
			continue
		}
		src, okS := g.Vertices[e.Source]
		tgt, okT := g.Vertices[e.Target]
		if !okS || !okT {
			continue
		}
		if src.Degree == 1 || tgt.Degree == 1 {
			g.RemoveEdge(id)
			composition.Remove(id)
			removed++
		}
	}
	if removed > 0 {
		g.RemoveOrphanVertices()
		g.RecomputeDegrees()
	}
	return removed
}

// discoverChains finds every mergeable chain: k >= 2 edges, internal
// vertices of degree 2, at least one endpoint of degree != 2.
func (m *ChainMerger) discoverChains(g *Graph) []chain {
	incident := make(map[int64][]int64)
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if e.IsSelfLoop() {
			continue
		}
		incident[e.Source] = append(incident[e.Source], id)
		incident[e.Target] = append(incident[e.Target], id)
	}

	seen := make(map[string]bool)
	var chains []chain

	for _, start := range g.VertexIDs() {
		if g.Vertices[start].Degree == 2 {
			continue
		}
		for _, first := range incident[start] {
			c, ok := m.walk(g, incident, start, first)
			if !ok {
				continue
			}
			key := chainKey(c.edges)
			if seen[key] {
				continue
			}
			seen[key] = true
			chains = append(chains, c)
		}
	}
	return chains
}

// walk extends a chain from a non-degree-2 start vertex through internal
// degree-2 vertices until the far side stops being degree 2.
func (m *ChainMerger) walk(g *Graph, incident map[int64][]int64, start, first int64) (chain, bool) {
	c := chain{vertices: []int64{start}, minEdge: first}
	visited := map[int64]bool{start: true}

	prev := start
	edgeID := first
	for {
		e := g.Edges[edgeID]
		next := e.Source
		if next == prev {
			next = e.Target
		}
		c.edges = append(c.edges, edgeID)
		c.vertices = append(c.vertices, next)
		c.totalKm += e.LengthKm
		if edgeID < c.minEdge {
			c.minEdge = edgeID
		}

		if g.Vertices[next].Degree != 2 || next == start || visited[next] {
			break
		}
		visited[next] = true

		// The internal vertex has exactly two incident edges; continue on
		// the other one.
		var nextEdge int64 = -1
		for _, cand := range incident[next] {
			if cand != edgeID {
				nextEdge = cand
				break
			}
		}
		if nextEdge < 0 {
			break
		}
		prev = next
		edgeID = nextEdge
	}

	if len(c.edges) < 2 {
		return chain{}, false
	}
	// Internal vertices must all be degree 2 (guaranteed by the walk);
	// reject walks that closed into an endpoint mid-way.
	for _, v := range c.vertices[1 : len(c.vertices)-1] {
		if g.Vertices[v].Degree != 2 {
			return chain{}, false
		}
	}

	// Deterministic orientation: the smaller endpoint id leads.
	if c.vertices[len(c.vertices)-1] < c.vertices[0] {
		reverseChain(&c)
	}
	return c, true
}

func reverseChain(c *chain) {
	for i, j := 0, len(c.vertices)-1; i < j; i, j = i+1, j-1 {
		c.vertices[i], c.vertices[j] = c.vertices[j], c.vertices[i]
	}
	for i, j := 0, len(c.edges)-1; i < j; i, j = i+1, j-1 {
		c.edges[i], c.edges[j] = c.edges[j], c.edges[i]
	}
}

func chainKey(edges []int64) string {
	sorted := append([]int64(nil), edges...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// selectNonOverlapping ranks chains by (descending edge count, descending
// total km, ascending minimum edge id) and greedily keeps those whose edge
// sets are disjoint from every already-selected chain.
func selectNonOverlapping(chains []chain) []chain {
	sort.SliceStable(chains, func(a, b int) bool {
		if len(chains[a].edges) != len(chains[b].edges) {
			return len(chains[a].edges) > len(chains[b].edges)
		}
		if chains[a].totalKm != chains[b].totalKm {
			return chains[a].totalKm > chains[b].totalKm
		}
		return chains[a].minEdge < chains[b].minEdge
	})

	used := make(map[int64]bool)
	var selected []chain
	for _, c := range chains {
		overlap := false
		for _, id := range c.edges {
			if used[id] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, id := range c.edges {
			used[id] = true
		}
		selected = append(selected, c)
	}
	return selected
}

// mergeChain rewrites one chain as a single edge. The new edge, its
// composition, and the constituent deletions form one atomic step: any
// failure leaves the graph untouched.
func (m *ChainMerger) mergeChain(g *Graph, composition *CompositionIndex, c chain) error {
	v0 := c.vertices[0]
	vk := c.vertices[len(c.vertices)-1]

	// Orient every constituent along the v0 -> vk traversal.
	geoms := make([]geom.LineString, len(c.edges))
	var lengthKm, gain, loss float64
	nameVotes := make(map[string]int)
	for i, id := range c.edges {
		e := g.Edges[id]
		oriented := e.Geometry
		if e.Source != c.vertices[i] {
			oriented = geom.Reverse(e.Geometry)
		}
		geoms[i] = oriented
		lengthKm += e.LengthKm
		gain += e.ElevationGain
		loss += e.ElevationLoss
		nameVotes[e.Name]++
	}

	merged, err := geom.LineMergeSingle(geoms, m.edgeSnapTolM)
	if err != nil {
		if !errors.Is(err, geom.ErrDiscontinuous) || merged == nil {
			return fmt.Errorf("%w: chain at vertex %d: %v", ErrChainMergeSkipped, v0, err)
		}
		// MultiLineString: fall back to the largest component, which must
		// still span v0 -> vk.
	}
	if !endpointsMatch(merged, g.Vertices[v0].Point, g.Vertices[vk].Point, m.edgeSnapTolM) {
		return fmt.Errorf("%w: merged geometry of chain %d-%d does not span its endpoints", ErrChainMergeSkipped, v0, vk)
	}
	// Keep the stored geometry oriented v0 -> vk.
	if geom.DistanceMeters(merged.Start(), g.Vertices[v0].Point) > geom.DistanceMeters(merged.End(), g.Vertices[v0].Point) {
		merged = geom.Reverse(merged)
	}

	newEdge := g.AddEdge(models.Edge{
		Source:        v0,
		Target:        vk,
		Geometry:      merged,
		LengthKm:      lengthKm,
		ElevationGain: gain,
		ElevationLoss: loss,
		Name:          majorityName(nameVotes),
		Kind:          models.EdgeKindMerged,
		IsTrueLoop:    v0 == vk,
	})
	if newEdge.IsTrueLoop {
		g.Vertices[v0].IsTrueLoopAttached = true
	}

	if err := composition.Merge(newEdge.ID, c.edges, models.CompositionMerged); err != nil {
		// Roll the insertion back; the constituents stay untouched.
		g.RemoveEdge(newEdge.ID)
		return fmt.Errorf("%w: %v", ErrChainMergeSkipped, err)
	}
	for _, id := range c.edges {
		g.RemoveEdge(id)
	}
	return nil
}

// endpointsMatch verifies the merged geometry spans the two vertex points
// within tolerance, in either orientation.
func endpointsMatch(l geom.LineString, a, b geom.Point, tolMeters float64) bool {
	if l == nil || !l.IsValid() {
		return false
	}
	forward := geom.DistanceMeters(l.Start(), a) <= tolMeters && geom.DistanceMeters(l.End(), b) <= tolMeters
	backward := geom.DistanceMeters(l.Start(), b) <= tolMeters && geom.DistanceMeters(l.End(), a) <= tolMeters
	return forward || backward
}

// majorityName picks the most frequent constituent name; ties take the
// lexicographically smallest.
func majorityName(votes map[string]int) string {
	best := ""
	bestCount := -1
	names := make([]string, 0, len(votes))
	for name := range votes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if votes[name] > bestCount {
			best = name
			bestCount = votes[name]
		}
	}
	return best
}
