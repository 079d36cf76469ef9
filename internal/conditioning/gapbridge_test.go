package conditioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

func gapConfig() config.GapConfig {
	return config.GapConfig{MinM: 1, MaxM: 20}
}

func TestGapBridgerPlan(t *testing.T) {
	bridger := NewGapBridger(gapConfig())

	t.Run("gap inside the band is bridged", func(t *testing.T) {
		// ~12 m between end of A and start of B.
		a := trail(uuidA, "West Leg", -105.300, 40.000, -105.290, 40.000)
		b := trail(uuidB, "East Leg", -105.290, 40.000108, -105.280, 40.000108)

		bridges := bridger.Plan([]models.Trail{a, b})
		require.Len(t, bridges, 1)
		assert.Equal(t, uuidA, bridges[0].UpstreamUUID)
		assert.Equal(t, uuidB, bridges[0].DownstreamUUID)
		assert.InDelta(t, 12.0, bridges[0].GapMeters, 0.5)
		assert.Equal(t, a.Geometry.End(), bridges[0].Connector.Start())
		assert.Equal(t, b.Geometry.Start(), bridges[0].Connector.End())
	})

	t.Run("gap outside the band is ignored", func(t *testing.T) {
		a := trail(uuidA, "West Leg", -105.300, 40.000, -105.290, 40.000)
		far := trail(uuidB, "East Leg", -105.290, 40.001, -105.280, 40.001) // ~111 m
		touching := trail(uuidC, "South Leg", -105.290, 40.000, -105.285, 40.000)

		assert.Empty(t, bridger.Plan([]models.Trail{a, far}))
		// Zero gap is below min: already connected, nothing to bridge.
		assert.Empty(t, bridger.Plan([]models.Trail{a, touching}))
	})

	t.Run("each trail bridges at most once per pass", func(t *testing.T) {
		a := trail(uuidA, "Hub", -105.300, 40.000, -105.290, 40.000)
		// Both candidates start near A's end; only the closer one wins.
		near := trail(uuidB, "Near", -105.290, 40.000050, -105.280, 40.000050) // ~5.6 m
		farther := trail(uuidC, "Far", -105.290, 40.000108, -105.280, 40.000108)

		bridges := bridger.Plan([]models.Trail{a, near, farther})
		require.Len(t, bridges, 1)
		assert.Equal(t, uuidB, bridges[0].DownstreamUUID, "ascending gap order wins")
	})
}

func TestGapBridgerApply(t *testing.T) {
	bridger := NewGapBridger(gapConfig())

	a := trail(uuidA, "West Leg", -105.300, 40.000, -105.290, 40.000)
	b := trail(uuidB, "East Leg", -105.290, 40.000108, -105.280, 40.000108)
	trails := []models.Trail{a, b}

	bridges := bridger.Plan(trails)
	require.Len(t, bridges, 1)

	before := trails[1].LengthKm
	changed := bridger.Apply(trails, bridges)
	assert.Equal(t, []string{uuidB}, changed)

	// The downstream trail now starts at the upstream end point.
	assert.Equal(t, geom.Point{X: -105.290, Y: 40.000}, trails[1].Geometry.Start())
	assert.Greater(t, trails[1].LengthKm, before, "length re-derived after extension")
	assert.Equal(t, a.Geometry, trails[0].Geometry, "upstream trail untouched")
}
