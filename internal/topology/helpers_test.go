package topology

import (
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

// Deterministic trail uuids for scenario tests.
const (
	uuidA = "11111111-1111-4111-8111-111111111111"
	uuidB = "22222222-2222-4222-8222-222222222222"
	uuidC = "33333333-3333-4333-8333-333333333333"
	uuidD = "44444444-4444-4444-8444-444444444444"
	uuidE = "55555555-5555-4555-8555-555555555555"
)

// line builds a LineString from flat x, y pairs.
func line(coords ...float64) geom.LineString {
	l := make(geom.LineString, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		l = append(l, geom.Point{X: coords[i], Y: coords[i+1]})
	}
	return l
}

// seg builds a split trail with measures derived from its geometry.
func seg(trailUUID, name string, ordinal int, coords ...float64) models.SplitTrail {
	g := line(coords...)
	lengthKm := geom.GeodesicLengthKm(g)
	return models.SplitTrail{
		TrailUUID:      trailUUID,
		Name:           name,
		SegmentOrdinal: ordinal,
		Geometry:       g,
		LengthKm:       lengthKm,
		StartMeasure:   0,
		EndMeasure:     lengthKm,
	}
}

// buildGraph runs the topology builder over segments with default test
// tolerances (2 m snap, 10 m true loop).
func buildGraph(segments []models.SplitTrail) (*BuildOutput, error) {
	return NewBuilder(2.0, 10.0).Build(segments)
}

// vertexAt finds the vertex id at an exact point.
func vertexAt(g *Graph, p geom.Point) int64 {
	for _, id := range g.VertexIDs() {
		if g.Vertices[id].Point.Equal(p) {
			return id
		}
	}
	return 0
}
