// Package models defines data structures for trails and the routable
// network built from them.
package models

import (
	"time"

	"github.com/mkoster/trailnet/internal/geom"
)

// Trail represents one source trail polyline with its attributes.
// The 2D geometry drives the whole build; an optional 3D WKT literal is kept
// verbatim for ingest fidelity and is never read by the topology layer.
type Trail struct {
	UUID          string          `json:"uuid" db:"uuid" validate:"required,uuid4"`
	Name          string          `json:"name" db:"name" validate:"required,min=1"`
	Geometry      geom.LineString `json:"geometry" db:"geometry" validate:"required,min=2"`
	Geometry3D    *string         `json:"geometry_3d,omitempty" db:"geometry3d"`
	LengthKm      float64         `json:"length_km" db:"length_km" validate:"min=0"`
	ElevationGain float64         `json:"elevation_gain" db:"elevation_gain" validate:"min=0"`
	ElevationLoss float64         `json:"elevation_loss" db:"elevation_loss" validate:"min=0"`
	OriginalID    *int64          `json:"original_id,omitempty" db:"original_id"` // unsplit parent handle
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// RederiveLength recomputes LengthKm from the 2D geometry. Called after any
// geometry mutation (gap extension) so the stored scalar never drifts.
func (t *Trail) RederiveLength() {
	t.LengthKm = geom.GeodesicLengthKm(t.Geometry)
}

// SplitTrail is one noded segment of a parent trail. The ordered
// concatenation of a parent's split trails reconstitutes the parent's
// geometry modulo the inserted node points.
type SplitTrail struct {
	ID             int64           `json:"id" db:"id"`
	TrailUUID      string          `json:"trail_uuid" db:"trail_uuid" validate:"required,uuid4"`
	Name           string          `json:"name" db:"name"`
	SegmentOrdinal int             `json:"segment_ordinal" db:"segment_ordinal" validate:"min=1"`
	Geometry       geom.LineString `json:"geometry" db:"geometry" validate:"required,min=2"`
	LengthKm       float64         `json:"length_km" db:"length_km" validate:"min=0"`
	ElevationGain  float64         `json:"elevation_gain" db:"elevation_gain" validate:"min=0"`
	ElevationLoss  float64         `json:"elevation_loss" db:"elevation_loss" validate:"min=0"`
	StartMeasure   float64         `json:"start_measure" db:"start_measure" validate:"min=0"`
	EndMeasure     float64         `json:"end_measure" db:"end_measure" validate:"gtefield=StartMeasure"`
}
