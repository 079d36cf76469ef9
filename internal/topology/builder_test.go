package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

func TestBuilderBasicGraph(t *testing.T) {
	// A fork: two segments sharing one endpoint.
	segments := []models.SplitTrail{
		seg(uuidA, "West Leg", 1, -105.300, 40.000, -105.290, 40.000),
		seg(uuidB, "East Leg", 1, -105.290, 40.000, -105.280, 40.010),
	}

	out, err := buildGraph(segments)
	require.NoError(t, err)
	g := out.Graph

	assert.Len(t, g.Edges, 2)
	assert.Len(t, g.Vertices, 3, "shared endpoint allocated once")
	assert.Empty(t, out.Rejected)

	shared := vertexAt(g, geom.Point{X: -105.290, Y: 40.000})
	require.NotZero(t, shared)
	assert.Equal(t, 2, g.Vertices[shared].Degree)

	for _, id := range g.EdgeIDs() {
		e := g.Edges[id]
		assert.Equal(t, models.EdgeKindDirect, e.Kind)
		assert.Greater(t, e.LengthKm, 0.0)
		// Composition initialized per edge.
		comp := out.Composition.Lookup(id)
		require.Len(t, comp, 1)
		assert.Equal(t, models.CompositionDirect, comp[0].CompositionType)
		assert.Equal(t, 100.0, comp[0].Percentage)
	}
}

func TestBuilderDegreeAccounting(t *testing.T) {
	// X-crossing output: four segments meeting at one point.
	cross := geom.Point{X: -105.290, Y: 40.000}
	segments := []models.SplitTrail{
		seg(uuidA, "East-West", 1, -105.300, 40.000, cross.X, cross.Y),
		seg(uuidA, "East-West", 2, cross.X, cross.Y, -105.280, 40.000),
		seg(uuidB, "North-South", 1, -105.290, 39.990, cross.X, cross.Y),
		seg(uuidB, "North-South", 2, cross.X, cross.Y, -105.290, 40.010),
	}

	out, err := buildGraph(segments)
	require.NoError(t, err)
	g := out.Graph

	assert.Len(t, g.Vertices, 5)
	center := vertexAt(g, cross)
	require.NotZero(t, center)
	assert.Equal(t, 4, g.Vertices[center].Degree, "degree-4 crossing vertex")
}

func TestBuilderTrueLoopPreserved(t *testing.T) {
	// A closed ring: source = target, start within the true-loop tolerance
	// of the end (they coincide exactly here).
	ring := seg(uuidA, "Lake Loop", 1,
		-105.300, 40.000, -105.299, 40.000, -105.299, 40.001, -105.300, 40.001, -105.300, 40.000)

	out, err := buildGraph([]models.SplitTrail{ring})
	require.NoError(t, err)
	g := out.Graph

	require.Len(t, g.Edges, 1)
	edge := g.Edges[g.EdgeIDs()[0]]
	assert.True(t, edge.IsSelfLoop())
	assert.True(t, edge.IsTrueLoop)
	assert.Equal(t, 1, out.TrueLoops)
	assert.Zero(t, out.SelfLoopsDropped)

	require.Len(t, g.Vertices, 1)
	v := g.Vertices[g.VertexIDs()[0]]
	assert.Equal(t, 2, v.Degree, "self-loop contributes 2")
	assert.True(t, v.IsTrueLoopAttached)

	// The preserved loop satisfies the validator.
	report, err := NewValidator(2.0, false).Validate(g, out.Composition)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestBuilderNearClosedLoop(t *testing.T) {
	// A realistic loop track closes to ~5 m, not exactly: the endpoints
	// are distinct vertices, but the geometry is an approximate cycle and
	// must still come out as a true loop anchored at its start.
	ring := seg(uuidA, "Lake Loop", 1,
		-105.300, 40.000, -105.299, 40.000, -105.299, 40.001, -105.300, 40.001, -105.300, 40.000045)

	out, err := buildGraph([]models.SplitTrail{ring})
	require.NoError(t, err)
	g := out.Graph

	require.Len(t, g.Edges, 1)
	edge := g.Edges[g.EdgeIDs()[0]]
	assert.True(t, edge.IsSelfLoop())
	assert.True(t, edge.IsTrueLoop)
	assert.True(t, edge.Geometry.IsClosed(), "geometry closed onto the anchor vertex")
	assert.Equal(t, 1, out.TrueLoops)

	require.Len(t, g.Vertices, 1, "dangling end vertex removed")
	anchor := g.Vertices[g.VertexIDs()[0]]
	assert.True(t, anchor.IsTrueLoopAttached)
	assert.Equal(t, 2, anchor.Degree)

	report, err := NewValidator(2.0, false).Validate(g, out.Composition)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestBuilderNearClosedConnectorStaysAnEdge(t *testing.T) {
	// The same near-closed shape, but its far endpoint carries another
	// segment: it is a connector between two close junctions, not a loop.
	curl := seg(uuidA, "Switchback", 1,
		-105.300, 40.000, -105.299, 40.000, -105.299, 40.001, -105.300, 40.001, -105.300, 40.000045)
	spur := seg(uuidB, "Spur", 1, -105.300, 40.000045, -105.295, 40.002)

	out, err := buildGraph([]models.SplitTrail{curl, spur})
	require.NoError(t, err)
	g := out.Graph

	require.Len(t, g.Edges, 2)
	for _, id := range g.EdgeIDs() {
		assert.False(t, g.Edges[id].IsSelfLoop())
		assert.False(t, g.Edges[id].IsTrueLoop)
	}
	assert.Zero(t, out.TrueLoops)
}

func TestBuilderShortStubIsNotALoop(t *testing.T) {
	// A ~3.6 m out-and-back stub whose endpoints sit ~1 m apart: the gap
	// is under the true-loop tolerance but the linework is no cycle.
	stub := seg(uuidA, "Stub", 1,
		-105.300, 40.000, -105.29998, 40.000005, -105.300, 40.000009)

	out, err := buildGraph([]models.SplitTrail{stub})
	require.NoError(t, err)

	require.Len(t, out.Graph.Edges, 1)
	edge := out.Graph.Edges[out.Graph.EdgeIDs()[0]]
	assert.False(t, edge.IsSelfLoop())
	assert.False(t, edge.IsTrueLoop)
}

func TestBuilderRejectsInvalidSegments(t *testing.T) {
	segments := []models.SplitTrail{
		seg(uuidA, "Good", 1, -105.300, 40.000, -105.290, 40.000),
		{TrailUUID: uuidB, Name: "Bad", SegmentOrdinal: 1, Geometry: line(-105.3, 40.0)},
	}

	out, err := buildGraph(segments)
	require.NoError(t, err)
	assert.Len(t, out.Graph.Edges, 1)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, uuidB, out.Rejected[0].TrailUUID)
	assert.Equal(t, "invalid geometry", out.Rejected[0].Reason)
}

func TestBuilderComposesMeasures(t *testing.T) {
	s := seg(uuidA, "Mesa", 1, -105.300, 40.000, -105.290, 40.000)
	s.StartMeasure = 1.5
	s.EndMeasure = 1.5 + s.LengthKm

	out, err := buildGraph([]models.SplitTrail{s})
	require.NoError(t, err)

	comp := out.Composition.Lookup(out.Graph.EdgeIDs()[0])
	require.Len(t, comp, 1)
	assert.Equal(t, 1.5, comp[0].StartMeasure)
	assert.Equal(t, s.EndMeasure, comp[0].EndMeasure)
}
