package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// TrailRepository implements repository.TrailRepository using SQLite.
// This implementation is stateless - all database operations receive the
// executor as a parameter.
type TrailRepository struct {
	// No fields - stateless
}

// NewTrailRepository creates a new SQLite-based trail repository.
func NewTrailRepository() repository.TrailRepository {
	return &TrailRepository{}
}

// validateTrail enforces the ingest invariants: valid geometry with at
// least two points and a positive length.
func validateTrail(trail *models.Trail) error {
	if !trail.Geometry.IsValid() {
		return repository.NewValidationError("trail", "geometry", "geometry is not a valid linestring")
	}
	if geom.GeodesicLengthKm(trail.Geometry) <= 0 {
		return repository.NewValidationError("trail", "geometry", "geometry has zero length")
	}
	if trail.Name == "" {
		return repository.NewValidationError("trail", "name", "name is required")
	}
	return nil
}

// Create inserts a new trail. The uuid is assigned when absent and
// length_km is derived from the geometry.
func (r *TrailRepository) Create(exec repository.Executor, ctx context.Context, trail *models.Trail) error {
	if err := validateTrail(trail); err != nil {
		return err
	}
	if trail.UUID == "" {
		trail.UUID = uuid.New().String()
	}
	trail.RederiveLength()
	now := time.Now()
	trail.CreatedAt = now
	trail.UpdatedAt = now

	query := `
		INSERT INTO trails (uuid, name, geometry, geometry3d, length_km,
		                    elevation_gain, elevation_loss, original_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query, trail.UUID, trail.Name, trail.Geometry,
		trail.Geometry3D, trail.LengthKm, trail.ElevationGain, trail.ElevationLoss,
		trail.OriginalID, trail.CreatedAt, trail.UpdatedAt)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	return nil
}

// CreateBatch inserts multiple trails inside one prepared statement.
func (r *TrailRepository) CreateBatch(exec repository.Executor, ctx context.Context, trails []models.Trail) error {
	if len(trails) == 0 {
		return nil
	}
	stmt, err := exec.PrepareContext(ctx, `
		INSERT INTO trails (uuid, name, geometry, geometry3d, length_km,
		                    elevation_gain, elevation_loss, original_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	defer stmt.Close()

	now := time.Now()
	for i := range trails {
		t := &trails[i]
		if err := validateTrail(t); err != nil {
			return err
		}
		if t.UUID == "" {
			t.UUID = uuid.New().String()
		}
		t.RederiveLength()
		t.CreatedAt = now
		t.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, t.UUID, t.Name, t.Geometry, t.Geometry3D,
			t.LengthKm, t.ElevationGain, t.ElevationLoss, t.OriginalID, t.CreatedAt, t.UpdatedAt); err != nil {
			return handleSQLiteError(err, "trail")
		}
	}
	return nil
}

// GetByUUID retrieves a trail by its uuid.
func (r *TrailRepository) GetByUUID(exec repository.Executor, ctx context.Context, id string) (*models.Trail, error) {
	var trail models.Trail
	query := `SELECT * FROM trails WHERE uuid = ?`

	err := exec.GetContext(ctx, &trail, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewNotFoundError("trail", id)
		}
		return nil, fmt.Errorf("failed to get trail by uuid: %w", err)
	}
	return &trail, nil
}

// UpdateGeometry replaces the geometry of an existing trail and re-derives
// its stored length.
func (r *TrailRepository) UpdateGeometry(exec repository.Executor, ctx context.Context, trail *models.Trail) error {
	if err := validateTrail(trail); err != nil {
		return err
	}
	trail.RederiveLength()
	trail.UpdatedAt = time.Now()

	query := `
		UPDATE trails
		SET geometry = ?, length_km = ?, updated_at = ?
		WHERE uuid = ?
	`
	result, err := exec.ExecContext(ctx, query, trail.Geometry, trail.LengthKm, trail.UpdatedAt, trail.UUID)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.NewNotFoundError("trail", trail.UUID)
	}
	return nil
}

// Delete removes a trail by uuid.
func (r *TrailRepository) Delete(exec repository.Executor, ctx context.Context, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM trails WHERE uuid = ?`, id)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.NewNotFoundError("trail", id)
	}
	return nil
}

// DeleteBatch removes multiple trails by uuid. Unknown uuids are ignored;
// duplicate removal decisions are idempotent.
func (r *TrailRepository) DeleteBatch(exec repository.Executor, ctx context.Context, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	marks, args := stringPlaceholders(uuids)
	_, err := exec.ExecContext(ctx, `DELETE FROM trails WHERE uuid IN (`+marks+`)`, args...)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	return nil
}

// GetAll retrieves every trail ordered by uuid for deterministic iteration.
func (r *TrailRepository) GetAll(exec repository.Executor, ctx context.Context) ([]models.Trail, error) {
	var trails []models.Trail
	err := exec.SelectContext(ctx, &trails, `SELECT * FROM trails ORDER BY uuid`)
	if err != nil {
		return nil, fmt.Errorf("failed to get trails: %w", err)
	}
	return trails, nil
}

// Count returns the number of trails.
func (r *TrailRepository) Count(exec repository.Executor, ctx context.Context) (int64, error) {
	var count int64
	err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM trails`)
	if err != nil {
		return 0, fmt.Errorf("failed to count trails: %w", err)
	}
	return count, nil
}

// DeleteAll removes every trail.
func (r *TrailRepository) DeleteAll(exec repository.Executor, ctx context.Context) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM trails`)
	if err != nil {
		return handleSQLiteError(err, "trail")
	}
	return nil
}
