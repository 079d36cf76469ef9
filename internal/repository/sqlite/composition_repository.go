package sqlite

import (
	"context"
	"fmt"

	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// CompositionRepository implements repository.CompositionRepository using
// SQLite.
type CompositionRepository struct{}

// NewCompositionRepository creates a new SQLite-based composition
// repository.
func NewCompositionRepository() repository.CompositionRepository {
	return &CompositionRepository{}
}

// CreateBatch inserts composition entries.
func (r *CompositionRepository) CreateBatch(exec repository.Executor, ctx context.Context, entries []models.CompositionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := exec.PrepareContext(ctx, `
		INSERT INTO edge_composition (edge_id, trail_uuid, trail_name,
		                              start_measure, end_measure, ordinal,
		                              percentage, composition_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return handleSQLiteError(err, "composition")
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		res, err := stmt.ExecContext(ctx, e.EdgeID, e.TrailUUID, e.TrailName,
			e.StartMeasure, e.EndMeasure, e.Ordinal, e.Percentage, e.CompositionType)
		if err != nil {
			return handleSQLiteError(err, "composition")
		}
		if id, err := res.LastInsertId(); err == nil {
			e.ID = id
		}
	}
	return nil
}

// GetByEdge retrieves the ordered composition list of one edge.
func (r *CompositionRepository) GetByEdge(exec repository.Executor, ctx context.Context, edgeID int64) ([]models.CompositionEntry, error) {
	var entries []models.CompositionEntry
	err := exec.SelectContext(ctx, &entries,
		`SELECT * FROM edge_composition WHERE edge_id = ? ORDER BY ordinal`, edgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get composition for edge %d: %w", edgeID, err)
	}
	return entries, nil
}

// GetAll retrieves every entry ordered by edge and ordinal.
func (r *CompositionRepository) GetAll(exec repository.Executor, ctx context.Context) ([]models.CompositionEntry, error) {
	var entries []models.CompositionEntry
	err := exec.SelectContext(ctx, &entries,
		`SELECT * FROM edge_composition ORDER BY edge_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to get composition entries: %w", err)
	}
	return entries, nil
}

// DeleteByEdges removes the entries of the listed edges.
func (r *CompositionRepository) DeleteByEdges(exec repository.Executor, ctx context.Context, edgeIDs []int64) error {
	if len(edgeIDs) == 0 {
		return nil
	}
	marks, args := int64Placeholders(edgeIDs)
	_, err := exec.ExecContext(ctx, `DELETE FROM edge_composition WHERE edge_id IN (`+marks+`)`, args...)
	if err != nil {
		return handleSQLiteError(err, "composition")
	}
	return nil
}

// Count returns the number of entries.
func (r *CompositionRepository) Count(exec repository.Executor, ctx context.Context) (int64, error) {
	var count int64
	err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM edge_composition`)
	if err != nil {
		return 0, fmt.Errorf("failed to count composition entries: %w", err)
	}
	return count, nil
}

// DeleteAll removes every entry.
func (r *CompositionRepository) DeleteAll(exec repository.Executor, ctx context.Context) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM edge_composition`)
	if err != nil {
		return handleSQLiteError(err, "composition")
	}
	return nil
}
