package conditioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

func newTestNoder(strategy config.Strategy) *Noder {
	return NewNoder(strategy, 1.0, 0.1)
}

func totalSegmentKm(segments []models.SplitTrail) float64 {
	var sum float64
	for _, s := range segments {
		sum += s.LengthKm
	}
	return sum
}

func TestNoderXCrossing(t *testing.T) {
	// Two trails crossing at one interior point: four split trails, none
	// lost, total length preserved.
	a := trail(uuidA, "East-West", -105.300, 40.000, -105.280, 40.000)
	b := trail(uuidB, "North-South", -105.290, 39.990, -105.290, 40.010)
	trails := []models.Trail{a, b}

	noder := newTestNoder(config.StrategyNodeNetwork)
	result, err := noder.Split(trails)
	require.NoError(t, err)

	require.Len(t, result.Segments, 4)
	assert.Empty(t, result.Orphans)

	byParent := make(map[string][]models.SplitTrail)
	for _, s := range result.Segments {
		byParent[s.TrailUUID] = append(byParent[s.TrailUUID], s)
	}
	require.Len(t, byParent[uuidA], 2)
	require.Len(t, byParent[uuidB], 2)

	// Ordinals follow the linear reference along each parent.
	assert.Equal(t, 1, byParent[uuidA][0].SegmentOrdinal)
	assert.Equal(t, 2, byParent[uuidA][1].SegmentOrdinal)
	assert.Less(t, byParent[uuidA][0].StartMeasure, byParent[uuidA][1].StartMeasure)

	want := a.LengthKm + b.LengthKm
	assert.InDelta(t, want, totalSegmentKm(result.Segments), 0.001)
}

func TestNoderSegmentMeasures(t *testing.T) {
	a := trail(uuidA, "East-West", -105.300, 40.000, -105.280, 40.000)
	b := trail(uuidB, "North-South", -105.290, 39.990, -105.290, 40.010)

	noder := newTestNoder(config.StrategyNodeNetwork)
	result, err := noder.Split([]models.Trail{a, b})
	require.NoError(t, err)

	for _, s := range result.Segments {
		assert.GreaterOrEqual(t, s.StartMeasure, 0.0)
		assert.Greater(t, s.EndMeasure, s.StartMeasure)
		parent := a
		if s.TrailUUID == uuidB {
			parent = b
		}
		assert.LessOrEqual(t, s.EndMeasure, parent.LengthKm+0.001)
		assert.InDelta(t, s.EndMeasure-s.StartMeasure, s.LengthKm, 0.01)
	}
}

func TestNoderNoCrossing(t *testing.T) {
	// Envelope overlap without geometric intersection: nothing is split.
	a := trail(uuidA, "Ridge", -105.300, 40.000, -105.280, 40.020)
	b := trail(uuidB, "Valley", -105.300, 40.020, -105.295, 40.016)

	noder := newTestNoder(config.StrategyNodeNetwork)
	result, err := noder.Split([]models.Trail{a, b})
	require.NoError(t, err)

	assert.Len(t, result.Segments, 2)
	for _, s := range result.Segments {
		assert.Equal(t, 1, s.SegmentOrdinal)
	}
}

func TestNoderManualStrategy(t *testing.T) {
	// Manual strategy passes trails through one-to-one even if they cross.
	a := trail(uuidA, "East-West", -105.300, 40.000, -105.280, 40.000)
	b := trail(uuidB, "North-South", -105.290, 39.990, -105.290, 40.010)

	noder := newTestNoder(config.StrategyManual)
	result, err := noder.Split([]models.Trail{a, b})
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, a.Geometry, result.Segments[0].Geometry)
	assert.Equal(t, 1, result.Segments[0].SegmentOrdinal)
}

func TestNoderDropsShortSegments(t *testing.T) {
	// A crossing 5 cm from a trail end produces a sliver under the
	// minimum edge length, which is dropped.
	a := trail(uuidA, "East-West", -105.300, 40.0, -105.29, 40.0)
	b := trail(uuidB, "Clipper", -105.2900005, 39.999, -105.2900005, 40.001)

	noder := newTestNoder(config.StrategyNodeNetwork)
	result, err := noder.Split([]models.Trail{a, b})
	require.NoError(t, err)

	assert.Greater(t, result.Dropped, 0)
	for _, s := range result.Segments {
		assert.GreaterOrEqual(t, s.LengthKm*1000, 0.1)
	}
}

func TestNoderInvalidGeometrySkipped(t *testing.T) {
	good := trail(uuidA, "Good", -105.300, 40.000, -105.280, 40.000)
	bad := models.Trail{UUID: uuidB, Name: "Bad", Geometry: geom.LineString{{X: 0, Y: 0}}}

	noder := newTestNoder(config.StrategyNodeNetwork)
	result, err := noder.Split([]models.Trail{good, bad})
	require.NoError(t, err)
	assert.Len(t, result.Segments, 1)
}

func TestNoderUnknownStrategy(t *testing.T) {
	noder := NewNoder("quantum", 1, 0.1)
	_, err := noder.Split(nil)
	assert.Error(t, err)
}
