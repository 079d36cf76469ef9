// Package ingest loads source trails from GeoJSON files and watches the
// trail directory for changes that should trigger a rebuild.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
)

// LoadStats summarizes one ingest run.
type LoadStats struct {
	Files           int
	FeaturesRead    int
	FeaturesSkipped int
	SkipReasons     []string
}

// featureCollection is the subset of GeoJSON the loader consumes.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   featureGeometry `json:"geometry"`
}

type featureGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadDir reads every .geojson and .json file in the directory and returns
// the trails it could parse. Invalid features are skipped and counted, not
// fatal: one bad record must not block an ingest.
func LoadDir(dir string) ([]models.Trail, *LoadStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read trail directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".geojson" || ext == ".json" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	stats := &LoadStats{}
	var trails []models.Trail
	for _, path := range paths {
		stats.Files++
		fileTrails, err := LoadFile(path, stats)
		if err != nil {
			return nil, nil, err
		}
		trails = append(trails, fileTrails...)
	}
	return trails, stats, nil
}

// LoadFile parses one GeoJSON FeatureCollection.
func LoadFile(path string, stats *LoadStats) ([]models.Trail, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the configured trail dir
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var trails []models.Trail
	for i, f := range fc.Features {
		trail, err := trailFromFeature(f)
		if err != nil {
			stats.FeaturesSkipped++
			stats.SkipReasons = append(stats.SkipReasons,
				fmt.Sprintf("%s feature %d: %v", filepath.Base(path), i, err))
			continue
		}
		stats.FeaturesRead++
		trails = append(trails, *trail)
	}
	return trails, nil
}

// trailFromFeature converts one LineString feature into a trail.
func trailFromFeature(f feature) (*models.Trail, error) {
	if f.Geometry.Type != "LineString" {
		return nil, fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}
	var coords [][]float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("malformed coordinates: %w", err)
	}

	line, err := geom.Force2D(coords)
	if err != nil {
		return nil, fmt.Errorf("invalid linestring: %w", err)
	}

	trail := &models.Trail{
		UUID:          stringProp(f.Properties, "uuid"),
		Name:          stringProp(f.Properties, "name"),
		Geometry:      line,
		ElevationGain: floatProp(f.Properties, "elevation_gain"),
		ElevationLoss: floatProp(f.Properties, "elevation_loss"),
	}
	if trail.UUID == "" {
		trail.UUID = uuid.New().String()
	}
	if trail.Name == "" {
		return nil, fmt.Errorf("feature has no name")
	}
	if trail.ElevationGain < 0 || trail.ElevationLoss < 0 {
		return nil, fmt.Errorf("negative elevation attributes")
	}
	trail.RederiveLength()

	if has3D(coords) {
		wkt := marshalWKTZ(coords)
		trail.Geometry3D = &wkt
	}
	return trail, nil
}

func has3D(coords [][]float64) bool {
	for _, c := range coords {
		if len(c) >= 3 {
			return true
		}
	}
	return false
}

// marshalWKTZ renders the raw coordinates as a LINESTRING Z literal,
// padding missing elevations with zero.
func marshalWKTZ(coords [][]float64) string {
	var sb strings.Builder
	sb.WriteString("LINESTRING Z(")
	for i, c := range coords {
		if i > 0 {
			sb.WriteByte(',')
		}
		z := 0.0
		if len(c) >= 3 {
			z = c[2]
		}
		fmt.Fprintf(&sb, "%g %g %g", c[0], c[1], z)
	}
	sb.WriteByte(')')
	return sb.String()
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
