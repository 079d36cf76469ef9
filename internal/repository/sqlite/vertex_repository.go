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

// VertexRepository implements repository.VertexRepository using SQLite.
type VertexRepository struct{}

// NewVertexRepository creates a new SQLite-based vertex repository.
func NewVertexRepository() repository.VertexRepository {
	return &VertexRepository{}
}

// Create inserts a vertex and writes the assigned id back onto the model.
func (r *VertexRepository) Create(exec repository.Executor, ctx context.Context, vertex *models.Vertex) error {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO vertices (point, degree, is_true_loop_attached) VALUES (?, ?, ?)`,
		vertex.Point, vertex.Degree, vertex.IsTrueLoopAttached)
	if err != nil {
		return handleSQLiteError(err, "vertex")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read vertex id: %w", err)
	}
	vertex.ID = id
	return nil
}

// GetByID retrieves a vertex by id.
func (r *VertexRepository) GetByID(exec repository.Executor, ctx context.Context, id int64) (*models.Vertex, error) {
	var vertex models.Vertex
	err := exec.GetContext(ctx, &vertex, `SELECT * FROM vertices WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewNotFoundError("vertex", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to get vertex: %w", err)
	}
	return &vertex, nil
}

// GetAll retrieves every vertex ordered by id.
func (r *VertexRepository) GetAll(exec repository.Executor, ctx context.Context) ([]models.Vertex, error) {
	var vertices []models.Vertex
	err := exec.SelectContext(ctx, &vertices, `SELECT * FROM vertices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get vertices: %w", err)
	}
	return vertices, nil
}

// UpdateDegrees rewrites the cached degree column for every listed vertex.
func (r *VertexRepository) UpdateDegrees(exec repository.Executor, ctx context.Context, degrees map[int64]int) error {
	if len(degrees) == 0 {
		return nil
	}
	stmt, err := exec.PrepareContext(ctx, `UPDATE vertices SET degree = ? WHERE id = ?`)
	if err != nil {
		return handleSQLiteError(err, "vertex")
	}
	defer stmt.Close()

	for id, degree := range degrees {
		if _, err := stmt.ExecContext(ctx, degree, id); err != nil {
			return handleSQLiteError(err, "vertex")
		}
	}
	return nil
}

// SetTrueLoopAttached marks a vertex as anchoring a true loop.
func (r *VertexRepository) SetTrueLoopAttached(exec repository.Executor, ctx context.Context, id int64, attached bool) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE vertices SET is_true_loop_attached = ? WHERE id = ?`, attached, id)
	if err != nil {
		return handleSQLiteError(err, "vertex")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.NewNotFoundError("vertex", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteBatch removes multiple vertices by id.
func (r *VertexRepository) DeleteBatch(exec repository.Executor, ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	marks, args := int64Placeholders(ids)
	_, err := exec.ExecContext(ctx, `DELETE FROM vertices WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return handleSQLiteError(err, "vertex")
	}
	return nil
}

// Count returns the number of vertices.
func (r *VertexRepository) Count(exec repository.Executor, ctx context.Context) (int64, error) {
	var count int64
	err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM vertices`)
	if err != nil {
		return 0, fmt.Errorf("failed to count vertices: %w", err)
	}
	return count, nil
}

// DeleteAll removes every vertex.
func (r *VertexRepository) DeleteAll(exec repository.Executor, ctx context.Context) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM vertices`)
	if err != nil {
		return handleSQLiteError(err, "vertex")
	}
	return nil
}
