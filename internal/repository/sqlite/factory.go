package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/mkoster/trailnet/internal/repository"
)

// NewRepositories wires the full SQLite repository set over one database
// handle.
func NewRepositories(database *sqlx.DB) *repository.Repositories {
	return &repository.Repositories{
		Trails:       NewTrailRepository(),
		SplitTrails:  NewSplitTrailRepository(),
		Vertices:     NewVertexRepository(),
		Edges:        NewEdgeRepository(),
		Composition:  NewCompositionRepository(),
		BuildHistory: NewBuildHistoryRepository(),
		TxManager:    NewTransactionManager(database),
	}
}
