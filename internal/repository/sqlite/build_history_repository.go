package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// BuildHistoryRepository implements repository.BuildHistoryRepository using
// SQLite.
type BuildHistoryRepository struct{}

// NewBuildHistoryRepository creates a new SQLite-based build-history
// repository.
func NewBuildHistoryRepository() repository.BuildHistoryRepository {
	return &BuildHistoryRepository{}
}

// Create inserts a build record and writes the assigned id back.
func (r *BuildHistoryRepository) Create(exec repository.Executor, ctx context.Context, record *models.BuildRecord) error {
	res, err := exec.ExecContext(ctx, `
		INSERT INTO build_history (status, strategy, stats, error,
		                           last_successful_stage, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.Status, record.Strategy, record.Stats, record.Error,
		record.LastSuccessfulStage, record.StartedAt, record.CompletedAt)
	if err != nil {
		return handleSQLiteError(err, "build_history")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read build record id: %w", err)
	}
	record.ID = id
	return nil
}

// Update rewrites an existing build record.
func (r *BuildHistoryRepository) Update(exec repository.Executor, ctx context.Context, record *models.BuildRecord) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE build_history
		SET status = ?, strategy = ?, stats = ?, error = ?,
		    last_successful_stage = ?, completed_at = ?
		WHERE id = ?
	`, record.Status, record.Strategy, record.Stats, record.Error,
		record.LastSuccessfulStage, record.CompletedAt, record.ID)
	if err != nil {
		return handleSQLiteError(err, "build_history")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.NewNotFoundError("build_history", fmt.Sprintf("%d", record.ID))
	}
	return nil
}

// GetLatest retrieves the most recent build record.
func (r *BuildHistoryRepository) GetLatest(exec repository.Executor, ctx context.Context) (*models.BuildRecord, error) {
	var record models.BuildRecord
	err := exec.GetContext(ctx, &record,
		`SELECT * FROM build_history ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewNotFoundError("build_history", "latest")
		}
		return nil, fmt.Errorf("failed to get latest build record: %w", err)
	}
	return &record, nil
}

// GetHistory retrieves recent build records, newest first.
func (r *BuildHistoryRepository) GetHistory(exec repository.Executor, ctx context.Context, limit int) ([]models.BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []models.BuildRecord
	err := exec.SelectContext(ctx, &records,
		`SELECT * FROM build_history ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get build history: %w", err)
	}
	return records, nil
}
