package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// BuildStatus tracks the lifecycle of one network build.
type BuildStatus string

// Build statuses.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
)

// StageStats summarizes one pipeline stage.
type StageStats struct {
	Stage      string        `json:"stage"`
	Inputs     int           `json:"inputs"`
	Outputs    int           `json:"outputs"`
	Removed    int           `json:"removed"`
	Warnings   []string      `json:"warnings,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Elapsed    time.Duration `json:"-"`
}

// BuildStats aggregates the whole pipeline run.
type BuildStats struct {
	Strategy           string       `json:"strategy"`
	TrailsIn           int          `json:"trails_in"`
	TrailsConditioned  int          `json:"trails_conditioned"`
	SplitTrails        int          `json:"split_trails"`
	Edges              int          `json:"edges"`
	Vertices           int          `json:"vertices"`
	CompositionEntries int          `json:"composition_entries"`
	Stages             []StageStats `json:"stages"`
	Warnings           []string     `json:"warnings,omitempty"`
	BuildDurationMS    int64        `json:"build_duration_ms"`
}

// JSONBuildStats stores BuildStats as a JSON column.
type JSONBuildStats BuildStats

// Scan implements the sql.Scanner interface for database deserialization.
func (s *JSONBuildStats) Scan(value interface{}) error {
	if value == nil {
		*s = JSONBuildStats{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("JSONBuildStats: cannot scan non-text value")
	}
	if len(bytes) == 0 {
		*s = JSONBuildStats{}
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for database serialization.
func (s JSONBuildStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// BuildRecord is one row of build history: status, stats, timing, and the
// failure cause when a build aborts.
type BuildRecord struct {
	ID                   int64          `json:"id" db:"id"`
	Status               BuildStatus    `json:"status" db:"status" validate:"required,oneof=running completed failed"`
	Strategy             string         `json:"strategy" db:"strategy"`
	Stats                JSONBuildStats `json:"stats" db:"stats"`
	Error                *string        `json:"error,omitempty" db:"error"`
	LastSuccessfulStage  string         `json:"last_successful_stage" db:"last_successful_stage"`
	StartedAt            time.Time      `json:"started_at" db:"started_at"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}
