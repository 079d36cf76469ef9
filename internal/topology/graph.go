// Package topology implements Layer 2 of the network build: edge and vertex
// construction from split trails, vertex welding, parallel-edge
// deduplication, degree-2 chain merging with composition tracking, and the
// final invariant validator.
package topology

import (
	"sort"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

// Graph is the in-memory edge/vertex state the Layer-2 stages mutate. The
// coordinator persists it through the repositories at commit time; integer
// ids keep the structure flat with no pointer cycles.
type Graph struct {
	Vertices map[int64]*models.Vertex
	Edges    map[int64]*models.Edge

	nextVertexID int64
	nextEdgeID   int64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Vertices: make(map[int64]*models.Vertex),
		Edges:    make(map[int64]*models.Edge),
	}
}

// AddVertex allocates a vertex at the given point.
func (g *Graph) AddVertex(p geom.Point) *models.Vertex {
	g.nextVertexID++
	v := &models.Vertex{ID: g.nextVertexID, Point: p}
	g.Vertices[v.ID] = v
	return v
}

// AddEdge inserts an edge and assigns its id.
func (g *Graph) AddEdge(e models.Edge) *models.Edge {
	g.nextEdgeID++
	e.ID = g.nextEdgeID
	stored := e
	g.Edges[stored.ID] = &stored
	return g.Edges[stored.ID]
}

// RemoveEdge deletes an edge by id.
func (g *Graph) RemoveEdge(id int64) {
	delete(g.Edges, id)
}

// RemoveVertex deletes a vertex by id.
func (g *Graph) RemoveVertex(id int64) {
	delete(g.Vertices, id)
}

// EdgeIDs returns all edge ids in ascending order.
func (g *Graph) EdgeIDs() []int64 {
	ids := make([]int64, 0, len(g.Edges))
	for id := range g.Edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// VertexIDs returns all vertex ids in ascending order.
func (g *Graph) VertexIDs() []int64 {
	ids := make([]int64, 0, len(g.Vertices))
	for id := range g.Vertices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// IncidentEdges returns the ids of edges touching a vertex, ascending.
func (g *Graph) IncidentEdges(vertexID int64) []int64 {
	var ids []int64
	for id, e := range g.Edges {
		if e.Source == vertexID || e.Target == vertexID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// RecomputeDegrees refreshes the cached degree of every vertex from edge
// incidence. A self-loop contributes 2.
func (g *Graph) RecomputeDegrees() {
	for _, v := range g.Vertices {
		v.Degree = 0
	}
	for _, e := range g.Edges {
		if src, ok := g.Vertices[e.Source]; ok {
			src.Degree++
		}
		if tgt, ok := g.Vertices[e.Target]; ok {
			tgt.Degree++
		}
	}
}

// RemoveOrphanVertices deletes vertices with no incident edges and returns
// their ids.
func (g *Graph) RemoveOrphanVertices() []int64 {
	g.RecomputeDegrees()
	var removed []int64
	for _, id := range g.VertexIDs() {
		if g.Vertices[id].Degree == 0 {
			g.RemoveVertex(id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Components returns the weakly connected components as sorted vertex-id
// slices, largest first (ties by smallest member id).
func (g *Graph) Components() [][]int64 {
	adjacency := make(map[int64][]int64)
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	seen := make(map[int64]bool)
	var components [][]int64
	for _, start := range g.VertexIDs() {
		if seen[start] {
			continue
		}
		var component []int64
		stack := []int64{start}
		seen[start] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, v)
			for _, next := range adjacency[v] {
				if !seen[next] {
					seen[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Slice(component, func(a, b int) bool { return component[a] < component[b] })
		components = append(components, component)
	}

	sort.SliceStable(components, func(a, b int) bool {
		if len(components[a]) != len(components[b]) {
			return len(components[a]) > len(components[b])
		}
		return components[a][0] < components[b][0]
	})
	return components
}
