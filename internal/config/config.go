// Package config provides configuration management for the trailnet build
// pipeline.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Strategy selects the TopologyBuilder backend.
type Strategy string

// Topology strategies.
const (
	// StrategyManual trusts upstream pre-split trails and skips noding.
	StrategyManual Strategy = "manual"
	// StrategyNodeNetwork runs the kernel noder over the collected linework.
	StrategyNodeNetwork Strategy = "node_network"
	// StrategyPostgisNode maps to the native-noder path; on the embedded
	// store it runs exactly the node_network code path.
	StrategyPostgisNode Strategy = "postgis_node"
)

// Config holds all build configuration loaded from YAML.
type Config struct {
	Database DatabaseConfig `yaml:"database"` // SQLite store settings
	Build    BuildConfig    `yaml:"build"`    // pipeline tolerances and budgets
	Ingest   IngestConfig   `yaml:"ingest"`   // GeoJSON trail source
}

// DatabaseConfig holds spatial store configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file path; ":memory:" for ephemeral builds
}

// IngestConfig holds trail ingestion settings.
type IngestConfig struct {
	TrailDir string `yaml:"trail_dir"` // directory of GeoJSON FeatureCollections
	Watch    bool   `yaml:"watch"`     // rebuild when trail files change
}

// BBox is an optional geographic filter applied to input trails.
// A zero-valued BBox means no filtering.
type BBox struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// IsZero reports whether the filter is unset.
func (b BBox) IsZero() bool {
	return b.MinX == 0 && b.MinY == 0 && b.MaxX == 0 && b.MaxY == 0
}

// DuplicateConfig holds the DuplicateResolver tolerances in meters.
type DuplicateConfig struct {
	BBoxTolM      float64 `yaml:"bbox_tol_m"`      // stage 1: envelope DWithin
	ProximityTolM float64 `yaml:"proximity_tol_m"` // stage 2
	PrecisionTolM float64 `yaml:"precision_tol_m"` // stage 3
}

// GapConfig holds the TrailGapBridger band in meters.
type GapConfig struct {
	MinM float64 `yaml:"min_m"`
	MaxM float64 `yaml:"max_m"`
}

// Degree2MergeConfig holds the chain-merge fix-point budget.
type Degree2MergeConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// BuildConfig holds all pipeline tolerances. Distances are meters.
type BuildConfig struct {
	Strategy          Strategy           `yaml:"strategy"`
	IntersectionTolM  float64            `yaml:"intersection_tol_m"`
	EdgeSnapTolM      float64            `yaml:"edge_snap_tol_m"`
	VertexWeldTolM    float64            `yaml:"vertex_weld_tol_m"`
	TrueLoopTolM      float64            `yaml:"true_loop_tol_m"`
	Dup               DuplicateConfig    `yaml:"dup"`
	Gap               GapConfig          `yaml:"gap"`
	ShortConnectorMaxM float64           `yaml:"short_connector_max_m"`
	Degree2Merge      Degree2MergeConfig `yaml:"degree2_merge"`
	MinEdgeLengthM    float64            `yaml:"min_edge_length_m"`
	BBox              BBox               `yaml:"bbox"`

	// ValidatorWarningsOnly downgrades NetworkValidator failures from hard
	// errors to warnings.
	ValidatorWarningsOnly bool `yaml:"validator_warnings_only"`
}

// DefaultConfig returns configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/trailnet.db",
		},
		Ingest: IngestConfig{
			TrailDir: "data/trails",
			Watch:    false,
		},
		Build: BuildConfig{
			Strategy:         StrategyNodeNetwork,
			IntersectionTolM: 1.0,
			EdgeSnapTolM:     2.0,
			VertexWeldTolM:   2.0,
			TrueLoopTolM:     10.0,
			Dup: DuplicateConfig{
				BBoxTolM:      200.0,
				ProximityTolM: 100.0,
				PrecisionTolM: 1.0,
			},
			Gap: GapConfig{
				MinM: 1.0,
				MaxM: 20.0,
			},
			ShortConnectorMaxM: 2.0,
			Degree2Merge: Degree2MergeConfig{
				MaxIterations: 8,
			},
			MinEdgeLengthM: 0.1, // 0.0001 km
		},
	}
}

// LoadFromYAML loads configuration from a YAML file with defaults.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is controlled by application
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, overlay YAML values.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	b := &c.Build
	switch b.Strategy {
	case StrategyManual, StrategyNodeNetwork, StrategyPostgisNode:
	default:
		return fmt.Errorf("unknown topology strategy: %q", b.Strategy)
	}

	for _, tol := range []struct {
		name  string
		value float64
	}{
		{"intersection_tol_m", b.IntersectionTolM},
		{"edge_snap_tol_m", b.EdgeSnapTolM},
		{"vertex_weld_tol_m", b.VertexWeldTolM},
		{"true_loop_tol_m", b.TrueLoopTolM},
		{"dup.bbox_tol_m", b.Dup.BBoxTolM},
		{"dup.proximity_tol_m", b.Dup.ProximityTolM},
		{"dup.precision_tol_m", b.Dup.PrecisionTolM},
		{"short_connector_max_m", b.ShortConnectorMaxM},
		{"min_edge_length_m", b.MinEdgeLengthM},
	} {
		if tol.value <= 0 {
			return fmt.Errorf("%s must be positive, got %g", tol.name, tol.value)
		}
	}

	if b.Dup.PrecisionTolM > b.Dup.ProximityTolM || b.Dup.ProximityTolM > b.Dup.BBoxTolM {
		return fmt.Errorf("duplicate tolerances must narrow: bbox >= proximity >= precision")
	}

	if b.Gap.MinM < 0 || b.Gap.MaxM <= 0 || b.Gap.MinM >= b.Gap.MaxM {
		return fmt.Errorf("invalid gap band [%g, %g]", b.Gap.MinM, b.Gap.MaxM)
	}

	if b.Degree2Merge.MaxIterations <= 0 {
		return fmt.Errorf("degree2_merge.max_iterations must be positive")
	}

	if !b.BBox.IsZero() {
		if b.BBox.MinX >= b.BBox.MaxX || b.BBox.MinY >= b.BBox.MaxY {
			return fmt.Errorf("invalid bbox filter")
		}
	}

	return nil
}
