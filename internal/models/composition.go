package models

// CompositionType records how an original-trail segment contributes to an
// edge.
type CompositionType string

// Composition types.
const (
	CompositionDirect    CompositionType = "direct"
	CompositionMerged    CompositionType = "merged"
	CompositionConnector CompositionType = "connector"
)

// CompositionEntry maps one original-trail segment into a current edge.
// Every persistent edge owns an ordered, non-empty list of these; entries
// cascade when their edge is deleted.
type CompositionEntry struct {
	ID              int64           `json:"id" db:"id"`
	EdgeID          int64           `json:"edge_id" db:"edge_id" validate:"min=1"`
	TrailUUID       string          `json:"trail_uuid" db:"trail_uuid" validate:"required,uuid4"`
	TrailName       string          `json:"trail_name" db:"trail_name"`
	StartMeasure    float64         `json:"start_measure" db:"start_measure" validate:"min=0"`
	EndMeasure      float64         `json:"end_measure" db:"end_measure" validate:"gtefield=StartMeasure"`
	Ordinal         int             `json:"ordinal" db:"ordinal" validate:"min=1"`
	Percentage      float64         `json:"percentage" db:"percentage" validate:"gt=0,lte=100"`
	CompositionType CompositionType `json:"composition_type" db:"composition_type" validate:"required,oneof=direct merged connector"`
}

// TrailShare is an aggregated per-trail percentage over a set of edges,
// produced by CompositionIndex.Summarize.
type TrailShare struct {
	TrailUUID  string  `json:"trail_uuid"`
	TrailName  string  `json:"trail_name"`
	LengthKm   float64 `json:"length_km"`
	Percentage float64 `json:"percentage"`
}
