package topology

import (
	"fmt"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/spatialindex"
)

// RejectedEdge records a split trail that could not become an edge.
type RejectedEdge struct {
	TrailUUID string
	Ordinal   int
	Reason    string
}

// BuildOutput is the result of the edge/vertex construction stage.
type BuildOutput struct {
	Graph       *Graph
	Composition *CompositionIndex
	Rejected    []RejectedEdge
	// SelfLoopsDropped counts source = target edges deleted by the
	// self-loop policy; TrueLoops counts the ones preserved.
	SelfLoopsDropped int
	TrueLoops        int
}

// Builder creates the edge and vertex tables from the split-trail set: one
// candidate edge per segment, one vertex per distinct endpoint, endpoints
// snapped within the configured tolerance.
type Builder struct {
	edgeSnapTolM float64
	trueLoopTolM float64
}

// NewBuilder creates a topology builder with the given tolerances.
func NewBuilder(edgeSnapTolM, trueLoopTolM float64) *Builder {
	return &Builder{edgeSnapTolM: edgeSnapTolM, trueLoopTolM: trueLoopTolM}
}

// Build constructs the initial graph. Degrees are recomputed before
// returning, so the output is ready for the welding stage.
func (b *Builder) Build(segments []models.SplitTrail) (*BuildOutput, error) {
	out := &BuildOutput{
		Graph:       NewGraph(),
		Composition: NewCompositionIndex(),
	}
	g := out.Graph

	// One vertex per distinct endpoint coordinate. Near-coincident
	// endpoints stay separate here; the welder merges them. Endpoint use
	// counts feed the true-loop policy below.
	vertexAt := make(map[geom.Point]int64)
	endpointUse := make(map[geom.Point]int)
	for _, s := range segments {
		if !s.Geometry.IsValid() {
			out.Rejected = append(out.Rejected, RejectedEdge{
				TrailUUID: s.TrailUUID, Ordinal: s.SegmentOrdinal, Reason: "invalid geometry",
			})
			continue
		}
		for _, p := range []geom.Point{s.Geometry.Start(), s.Geometry.End()} {
			endpointUse[p]++
			if _, ok := vertexAt[p]; !ok {
				vertexAt[p] = g.AddVertex(p).ID
			}
		}
	}

	points := make([]spatialindex.PointItem, 0, len(vertexAt))
	for _, id := range g.VertexIDs() {
		points = append(points, spatialindex.PointItem{ID: id, Point: g.Vertices[id].Point})
	}
	index := spatialindex.NewPointIndex(points)

	for _, s := range segments {
		if !s.Geometry.IsValid() {
			continue // already rejected above
		}
		source, ok := b.snapVertex(index, s.Geometry.Start())
		if !ok {
			out.Rejected = append(out.Rejected, RejectedEdge{
				TrailUUID: s.TrailUUID, Ordinal: s.SegmentOrdinal, Reason: "unsnapped endpoint",
			})
			continue
		}
		target, ok := b.snapVertex(index, s.Geometry.End())
		if !ok {
			out.Rejected = append(out.Rejected, RejectedEdge{
				TrailUUID: s.TrailUUID, Ordinal: s.SegmentOrdinal, Reason: "unsnapped endpoint",
			})
			continue
		}

		lengthKm := s.LengthKm
		if lengthKm <= 0 {
			lengthKm = geom.GeodesicLengthKm(s.Geometry)
		}
		if lengthKm <= 0 {
			out.Rejected = append(out.Rejected, RejectedEdge{
				TrailUUID: s.TrailUUID, Ordinal: s.SegmentOrdinal, Reason: "zero length",
			})
			continue
		}

		edge := models.Edge{
			Source:        source,
			Target:        target,
			Geometry:      s.Geometry.Clone(),
			LengthKm:      lengthKm,
			ElevationGain: s.ElevationGain,
			ElevationLoss: s.ElevationLoss,
			Name:          s.Name,
			Kind:          models.EdgeKindDirect,
		}

		// Self-loop policy. A geometry forming an approximate cycle is a
		// true loop even when its endpoints landed on distinct vertices (a
		// GPS track rarely closes exactly): anchor both ends at the start
		// vertex and close the ring. The far endpoint must be private to
		// this segment, or it is a connector between two close junctions,
		// not a loop. Any other source = target candidate is dropped.
		switch {
		case source == target:
			if isApproximateCycle(s.Geometry, b.trueLoopTolM) {
				edge.IsTrueLoop = true
			} else {
				out.SelfLoopsDropped++
				continue
			}
		case isApproximateCycle(s.Geometry, b.trueLoopTolM) && endpointUse[s.Geometry.End()] == 1:
			edge.Target = source
			edge.Geometry = geom.CloseRing(edge.Geometry)
			edge.IsTrueLoop = true
		}

		stored := g.AddEdge(edge)
		if stored.IsTrueLoop {
			out.TrueLoops++
			g.Vertices[stored.Source].IsTrueLoopAttached = true
		}
		out.Composition.InitDirect(stored.ID, s.TrailUUID, s.Name, s.StartMeasure, s.EndMeasure)
	}

	// Endpoints of rejected or dropped candidates can be left dangling.
	g.RemoveOrphanVertices()
	g.RecomputeDegrees()

	if err := out.Composition.Validate(g); err != nil {
		return nil, fmt.Errorf("topology build left inconsistent composition: %w", err)
	}
	return out, nil
}

// snapVertex finds the nearest vertex within the snap tolerance.
func (b *Builder) snapVertex(index *spatialindex.PointIndex, p geom.Point) (int64, bool) {
	ids := index.DWithin(p, b.edgeSnapTolM)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// isApproximateCycle reports whether a geometry is a near-closed ring: the
// endpoint gap is under the true-loop tolerance and the linework is long
// enough that the gap is a closure, not the whole feature. The length guard
// keeps a short straight stub from reading as a loop.
func isApproximateCycle(l geom.LineString, trueLoopTolM float64) bool {
	return geom.DistanceMeters(l.Start(), l.End()) < trueLoopTolM &&
		geom.GeodesicLengthMeters(l) > 2*trueLoopTolM
}
