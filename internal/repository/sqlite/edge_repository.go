package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// EdgeRepository implements repository.EdgeRepository using SQLite.
type EdgeRepository struct{}

// NewEdgeRepository creates a new SQLite-based edge repository.
func NewEdgeRepository() repository.EdgeRepository {
	return &EdgeRepository{}
}

// Create inserts an edge and writes the assigned id back onto the model.
func (r *EdgeRepository) Create(exec repository.Executor, ctx context.Context, edge *models.Edge) error {
	res, err := exec.ExecContext(ctx, `
		INSERT INTO edges (source, target, geometry, length_km,
		                   elevation_gain, elevation_loss, name, kind, is_true_loop)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, edge.Source, edge.Target, edge.Geometry, edge.LengthKm,
		edge.ElevationGain, edge.ElevationLoss, edge.Name, edge.Kind, edge.IsTrueLoop)
	if err != nil {
		return handleSQLiteError(err, "edge")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read edge id: %w", err)
	}
	edge.ID = id
	return nil
}

// GetByID retrieves an edge by id.
func (r *EdgeRepository) GetByID(exec repository.Executor, ctx context.Context, id int64) (*models.Edge, error) {
	var edge models.Edge
	err := exec.GetContext(ctx, &edge, `SELECT * FROM edges WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewNotFoundError("edge", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return &edge, nil
}

// GetAll retrieves every edge ordered by id.
func (r *EdgeRepository) GetAll(exec repository.Executor, ctx context.Context) ([]models.Edge, error) {
	var edges []models.Edge
	err := exec.SelectContext(ctx, &edges, `SELECT * FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get edges: %w", err)
	}
	return edges, nil
}

// RemapEndpoint rewrites edge endpoints referencing one vertex onto
// another. Used by vertex welding.
func (r *EdgeRepository) RemapEndpoint(exec repository.Executor, ctx context.Context, from, to int64) error {
	if _, err := exec.ExecContext(ctx, `UPDATE edges SET source = ? WHERE source = ?`, to, from); err != nil {
		return handleSQLiteError(err, "edge")
	}
	if _, err := exec.ExecContext(ctx, `UPDATE edges SET target = ? WHERE target = ?`, to, from); err != nil {
		return handleSQLiteError(err, "edge")
	}
	return nil
}

// DeleteBatch removes multiple edges by id. Composition entries cascade.
func (r *EdgeRepository) DeleteBatch(exec repository.Executor, ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	marks, args := int64Placeholders(ids)
	_, err := exec.ExecContext(ctx, `DELETE FROM edges WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return handleSQLiteError(err, "edge")
	}
	return nil
}

// Count returns the number of edges.
func (r *EdgeRepository) Count(exec repository.Executor, ctx context.Context) (int64, error) {
	var count int64
	err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM edges`)
	if err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return count, nil
}

// DeleteAll removes every edge.
func (r *EdgeRepository) DeleteAll(exec repository.Executor, ctx context.Context) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM edges`)
	if err != nil {
		return handleSQLiteError(err, "edge")
	}
	return nil
}
