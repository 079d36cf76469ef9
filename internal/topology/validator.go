package topology

import (
	"fmt"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/spatialindex"
)

// Report is the structured output of the post-build validation.
type Report struct {
	Issues         []string
	Warnings       []string
	ComponentSizes []int
}

// OK reports whether no hard issue was found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Validator enforces the post-build invariants. Any issue is a hard error
// unless the validator is configured to downgrade to warnings.
type Validator struct {
	edgeSnapTolM float64
	warningsOnly bool
}

// NewValidator creates a validator.
func NewValidator(edgeSnapTolM float64, warningsOnly bool) *Validator {
	return &Validator{edgeSnapTolM: edgeSnapTolM, warningsOnly: warningsOnly}
}

// Validate runs every invariant check and the connectivity census. The
// returned error is non-nil only for hard failures.
func (v *Validator) Validate(g *Graph, composition *CompositionIndex) (*Report, error) {
	report := &Report{}
	add := func(format string, args ...interface{}) {
		report.Issues = append(report.Issues, fmt.Sprintf(format, args...))
	}

	// 1. No dangling endpoint references.
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if _, ok := g.Vertices[e.Source]; !ok {
			add("edge %d references missing source vertex %d", id, e.Source)
		}
		if _, ok := g.Vertices[e.Target]; !ok {
			add("edge %d references missing target vertex %d", id, e.Target)
		}
	}

	// 2. Cached degree equals observed incidence.
	observed := make(map[int64]int)
	for _, e := range g.Edges {
		observed[e.Source]++
		observed[e.Target]++
	}
	for _, id := range g.VertexIDs() {
		if got, want := g.Vertices[id].Degree, observed[id]; got != want {
			add("vertex %d caches degree %d, incidence is %d", id, got, want)
		}
	}

	// 3. No zero-length or empty edges.
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if e.LengthKm <= 0 {
			add("edge %d has non-positive length", id)
		}
		if !e.Geometry.IsValid() {
			add("edge %d has empty or invalid geometry", id)
		}
	}

	// 4. No parallel duplicates; no self-loops beyond marked true loops.
	pairs := make(map[[2]int64][]int64)
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if e.IsSelfLoop() {
			if !e.IsTrueLoop {
				add("edge %d is an unmarked self-loop", id)
			}
			continue
		}
		key := e.PairKey()
		pairs[key] = append(pairs[key], id)
	}
	for key, ids := range pairs {
		if len(ids) > 1 {
			add("vertices %d-%d carry %d parallel edges %v", key[0], key[1], len(ids), ids)
		}
	}

	// 5. No interior degree-2 vertex. A vertex whose only incidence is a
	// true loop legitimately has degree 2, and a pure ring component has
	// no endpoint to merge toward; both are exempt.
	ringVertices := pureRingVertices(g)
	for _, id := range g.VertexIDs() {
		vtx := g.Vertices[id]
		if vtx.Degree != 2 || vtx.IsTrueLoopAttached || ringVertices[id] {
			continue
		}
		add("vertex %d is an interior degree-2 vertex", id)
	}

	// 6. Composition consistency.
	if err := composition.Validate(g); err != nil {
		add("%v", err)
	}

	// 7. Edge-vertex snap and connectivity census.
	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		if !e.Geometry.IsValid() {
			continue // reported above
		}
		src, okS := g.Vertices[e.Source]
		tgt, okT := g.Vertices[e.Target]
		if !okS || !okT {
			continue
		}
		if geom.DistanceMeters(e.Geometry.Start(), src.Point) > v.edgeSnapTolM {
			add("edge %d start is farther than %.1f m from its source vertex", id, v.edgeSnapTolM)
		}
		if geom.DistanceMeters(e.Geometry.End(), tgt.Point) > v.edgeSnapTolM {
			add("edge %d end is farther than %.1f m from its target vertex", id, v.edgeSnapTolM)
		}
	}

	for _, component := range g.Components() {
		report.ComponentSizes = append(report.ComponentSizes, len(component))
	}

	if len(report.Issues) > 0 {
		if v.warningsOnly {
			report.Warnings = append(report.Warnings, report.Issues...)
			report.Issues = nil
			return report, nil
		}
		return report, fmt.Errorf("%w: %d invariant violations, first: %s",
			ErrTopologyInconsistency, len(report.Issues), report.Issues[0])
	}
	return report, nil
}

// CheckCoverage reports trails whose linework is not covered by the final
// edge set within tolerance. Shortfalls are warnings with the per-trail gap
// length.
func (v *Validator) CheckCoverage(trails []models.Trail, g *Graph, tolMeters float64) []string {
	items := make([]spatialindex.LineItem, 0, len(g.Edges))
	for _, id := range g.EdgeIDs() {
		items = append(items, spatialindex.LineItem{ID: id, Geometry: g.Edges[id].Geometry})
	}
	index := spatialindex.NewLineIndex(items)

	var warnings []string
	for i := range trails {
		t := &trails[i]
		if !t.Geometry.IsValid() {
			continue
		}
		var gapKm float64
		for s := 1; s < len(t.Geometry); s++ {
			mid := geom.Point{
				X: (t.Geometry[s-1].X + t.Geometry[s].X) / 2,
				Y: (t.Geometry[s-1].Y + t.Geometry[s].Y) / 2,
			}
			if len(index.DWithin(mid, tolMeters)) == 0 {
				gapKm += geom.DistanceMeters(t.Geometry[s-1], t.Geometry[s]) / 1000
			}
		}
		if gapKm > tolMeters/1000 {
			warnings = append(warnings, fmt.Sprintf(
				"trail %s (%q) has %.3f km not covered by the edge set", t.UUID, t.Name, gapKm))
		}
	}
	return warnings
}

// pureRingVertices returns the vertices of components where every member
// has degree 2 (closed rings with no junction).
func pureRingVertices(g *Graph) map[int64]bool {
	out := make(map[int64]bool)
	for _, component := range g.Components() {
		ring := true
		for _, id := range component {
			if g.Vertices[id].Degree != 2 {
				ring = false
				break
			}
		}
		if ring {
			for _, id := range component {
				out[id] = true
			}
		}
	}
	return out
}
