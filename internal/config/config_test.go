package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StrategyNodeNetwork, cfg.Build.Strategy)
	assert.Equal(t, 8, cfg.Build.Degree2Merge.MaxIterations)
	assert.Equal(t, 200.0, cfg.Build.Dup.BBoxTolM)
	assert.Equal(t, 1.0, cfg.Build.Dup.PrecisionTolM)
	assert.True(t, cfg.Build.BBox.IsZero())
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("overlays defaults", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: ":memory:"
build:
  strategy: manual
  vertex_weld_tol_m: 5
  gap:
    min_m: 2
    max_m: 30
`)
		cfg, err := LoadFromYAML(path)
		require.NoError(t, err)

		assert.Equal(t, ":memory:", cfg.Database.Path)
		assert.Equal(t, StrategyManual, cfg.Build.Strategy)
		assert.Equal(t, 5.0, cfg.Build.VertexWeldTolM)
		assert.Equal(t, 30.0, cfg.Build.Gap.MaxM)
		// Untouched values keep their defaults.
		assert.Equal(t, 2.0, cfg.Build.EdgeSnapTolM)
		assert.Equal(t, 10.0, cfg.Build.TrueLoopTolM)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "build: [not a map")
		_, err := LoadFromYAML(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Build.Strategy = "quantum" }},
		{"zero tolerance", func(c *Config) { c.Build.EdgeSnapTolM = 0 }},
		{"negative tolerance", func(c *Config) { c.Build.VertexWeldTolM = -1 }},
		{"non-narrowing duplicate tolerances", func(c *Config) { c.Build.Dup.PrecisionTolM = 500 }},
		{"inverted gap band", func(c *Config) { c.Build.Gap.MinM = 50; c.Build.Gap.MaxM = 20 }},
		{"zero iteration budget", func(c *Config) { c.Build.Degree2Merge.MaxIterations = 0 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"inverted bbox", func(c *Config) { c.Build.BBox = BBox{MinX: 1, MinY: 1, MaxX: -1, MaxY: 2} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
