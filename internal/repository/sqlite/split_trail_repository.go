package sqlite

import (
	"context"
	"fmt"

	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// SplitTrailRepository implements repository.SplitTrailRepository using
// SQLite.
type SplitTrailRepository struct{}

// NewSplitTrailRepository creates a new SQLite-based split-trail repository.
func NewSplitTrailRepository() repository.SplitTrailRepository {
	return &SplitTrailRepository{}
}

// CreateBatch inserts the noded segments of one build.
func (r *SplitTrailRepository) CreateBatch(exec repository.Executor, ctx context.Context, segments []models.SplitTrail) error {
	if len(segments) == 0 {
		return nil
	}
	stmt, err := exec.PrepareContext(ctx, `
		INSERT INTO split_trails (trail_uuid, name, segment_ordinal, geometry,
		                          length_km, elevation_gain, elevation_loss,
		                          start_measure, end_measure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return handleSQLiteError(err, "split_trail")
	}
	defer stmt.Close()

	for i := range segments {
		s := &segments[i]
		res, err := stmt.ExecContext(ctx, s.TrailUUID, s.Name, s.SegmentOrdinal, s.Geometry,
			s.LengthKm, s.ElevationGain, s.ElevationLoss, s.StartMeasure, s.EndMeasure)
		if err != nil {
			return handleSQLiteError(err, "split_trail")
		}
		if id, err := res.LastInsertId(); err == nil {
			s.ID = id
		}
	}
	return nil
}

// GetAll retrieves every segment ordered by parent and ordinal.
func (r *SplitTrailRepository) GetAll(exec repository.Executor, ctx context.Context) ([]models.SplitTrail, error) {
	var segments []models.SplitTrail
	err := exec.SelectContext(ctx, &segments,
		`SELECT * FROM split_trails ORDER BY trail_uuid, segment_ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to get split trails: %w", err)
	}
	return segments, nil
}

// GetByParent retrieves the ordered segments of one parent trail.
func (r *SplitTrailRepository) GetByParent(exec repository.Executor, ctx context.Context, trailUUID string) ([]models.SplitTrail, error) {
	var segments []models.SplitTrail
	err := exec.SelectContext(ctx, &segments,
		`SELECT * FROM split_trails WHERE trail_uuid = ? ORDER BY segment_ordinal`, trailUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get split trails for %s: %w", trailUUID, err)
	}
	return segments, nil
}

// Count returns the number of segments.
func (r *SplitTrailRepository) Count(exec repository.Executor, ctx context.Context) (int64, error) {
	var count int64
	err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM split_trails`)
	if err != nil {
		return 0, fmt.Errorf("failed to count split trails: %w", err)
	}
	return count, nil
}

// DeleteAll removes every segment; each build starts from a clean table.
func (r *SplitTrailRepository) DeleteAll(exec repository.Executor, ctx context.Context) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM split_trails`)
	if err != nil {
		return handleSQLiteError(err, "split_trail")
	}
	return nil
}
