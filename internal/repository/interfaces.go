package repository

import (
	"context"

	"github.com/mkoster/trailnet/internal/models"
)

// TrailRepository defines operations for source-trail persistence.
// All methods accept an Executor as the first parameter, which can be
// either a database connection (*sqlx.DB) or a transaction (*sqlx.Tx).
// This allows the same repository to work in both transactional and
// non-transactional contexts.
type TrailRepository interface {
	// Basic CRUD operations
	Create(exec Executor, ctx context.Context, trail *models.Trail) error
	GetByUUID(exec Executor, ctx context.Context, uuid string) (*models.Trail, error)
	// UpdateGeometry replaces a trail's geometry and re-derived length,
	// keeping the uuid stable.
	UpdateGeometry(exec Executor, ctx context.Context, trail *models.Trail) error
	Delete(exec Executor, ctx context.Context, uuid string) error

	// Batch operations
	CreateBatch(exec Executor, ctx context.Context, trails []models.Trail) error
	DeleteBatch(exec Executor, ctx context.Context, uuids []string) error

	// Query operations
	GetAll(exec Executor, ctx context.Context) ([]models.Trail, error)
	Count(exec Executor, ctx context.Context) (int64, error)

	// Bulk operations for rebuilding
	DeleteAll(exec Executor, ctx context.Context) error
}

// SplitTrailRepository defines operations for the noded segment table.
// Rows live for the duration of one build; composition initialization reads
// them and the next build replaces them wholesale.
type SplitTrailRepository interface {
	CreateBatch(exec Executor, ctx context.Context, segments []models.SplitTrail) error
	GetAll(exec Executor, ctx context.Context) ([]models.SplitTrail, error)
	GetByParent(exec Executor, ctx context.Context, trailUUID string) ([]models.SplitTrail, error)
	Count(exec Executor, ctx context.Context) (int64, error)
	DeleteAll(exec Executor, ctx context.Context) error
}

// VertexRepository defines operations for network vertices.
type VertexRepository interface {
	// Create inserts the vertex and sets its assigned ID on the model.
	Create(exec Executor, ctx context.Context, vertex *models.Vertex) error
	GetByID(exec Executor, ctx context.Context, id int64) (*models.Vertex, error)
	GetAll(exec Executor, ctx context.Context) ([]models.Vertex, error)
	// UpdateDegrees rewrites the cached degree column for every listed vertex.
	UpdateDegrees(exec Executor, ctx context.Context, degrees map[int64]int) error
	SetTrueLoopAttached(exec Executor, ctx context.Context, id int64, attached bool) error
	DeleteBatch(exec Executor, ctx context.Context, ids []int64) error
	Count(exec Executor, ctx context.Context) (int64, error)
	DeleteAll(exec Executor, ctx context.Context) error
}

// EdgeRepository defines operations for network edges.
type EdgeRepository interface {
	// Create inserts the edge and sets its assigned ID on the model.
	Create(exec Executor, ctx context.Context, edge *models.Edge) error
	GetByID(exec Executor, ctx context.Context, id int64) (*models.Edge, error)
	GetAll(exec Executor, ctx context.Context) ([]models.Edge, error)
	// RemapEndpoint rewrites source/target references from one vertex to
	// another (vertex welding).
	RemapEndpoint(exec Executor, ctx context.Context, from, to int64) error
	DeleteBatch(exec Executor, ctx context.Context, ids []int64) error
	Count(exec Executor, ctx context.Context) (int64, error)
	DeleteAll(exec Executor, ctx context.Context) error
}

// CompositionRepository defines operations for the edge-to-trail
// composition index. Entries cascade when their edge row is deleted; the
// explicit DeleteByEdges exists for rewrites that keep the edge table rows.
type CompositionRepository interface {
	CreateBatch(exec Executor, ctx context.Context, entries []models.CompositionEntry) error
	GetByEdge(exec Executor, ctx context.Context, edgeID int64) ([]models.CompositionEntry, error)
	GetAll(exec Executor, ctx context.Context) ([]models.CompositionEntry, error)
	DeleteByEdges(exec Executor, ctx context.Context, edgeIDs []int64) error
	Count(exec Executor, ctx context.Context) (int64, error)
	DeleteAll(exec Executor, ctx context.Context) error
}

// BuildHistoryRepository records one row per network build.
type BuildHistoryRepository interface {
	Create(exec Executor, ctx context.Context, record *models.BuildRecord) error
	Update(exec Executor, ctx context.Context, record *models.BuildRecord) error
	GetLatest(exec Executor, ctx context.Context) (*models.BuildRecord, error)
	GetHistory(exec Executor, ctx context.Context, limit int) ([]models.BuildRecord, error)
}

// TransactionManager handles database transactions.
// It provides a higher-level abstraction over database transactions,
// ensuring proper cleanup on errors and panics. The callback function
// receives a Transaction object that provides access to the underlying
// database executor.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Transaction represents a database transaction with access to the
// transaction executor. Most users should rely on TransactionManager's
// automatic handling instead of calling Commit/Rollback directly.
type Transaction interface {
	// Executor returns the transaction executor to use with repositories
	Executor() Executor
	// Commit commits the transaction
	Commit(ctx context.Context) error
	// Rollback rolls back the transaction
	Rollback(ctx context.Context) error
}
