package sqlite

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

func TestEdgeRepositoryCreate(t *testing.T) {
	repo := NewEdgeRepository()
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO edges").
		WillReturnResult(sqlmock.NewResult(7, 1))

	edge := models.Edge{
		Source:   1,
		Target:   2,
		Geometry: geom.LineString{{X: -105.3, Y: 40.0}, {X: -105.29, Y: 40.01}},
		LengthKm: 1.4,
		Kind:     models.EdgeKindDirect,
	}
	require.NoError(t, repo.Create(db, ctx, &edge))
	assert.Equal(t, int64(7), edge.ID, "assigned id written back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEdgeRepositoryRemapEndpoint(t *testing.T) {
	repo := NewEdgeRepository()
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE edges SET source").
		WithArgs(int64(1), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE edges SET target").
		WithArgs(int64(1), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemapEndpoint(db, ctx, 9, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEdgeRepositoryGetByID(t *testing.T) {
	repo := NewEdgeRepository()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{"id", "source", "target", "geometry", "length_km", "kind"}).
			AddRow(3, 1, 2, "LINESTRING(-105.3 40, -105.29 40.01)", 1.4, "direct")
		mock.ExpectQuery("SELECT \\* FROM edges WHERE id").WillReturnRows(rows)

		edge, err := repo.GetByID(db, ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), edge.ID)
		assert.Equal(t, models.EdgeKindDirect, edge.Kind)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM edges WHERE id").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(db, ctx, 99)
		assert.True(t, repository.IsNotFound(err))
	})
}

func TestVertexRepositoryCreate(t *testing.T) {
	repo := NewVertexRepository()
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO vertices").
		WillReturnResult(sqlmock.NewResult(4, 1))

	v := models.Vertex{Point: geom.Point{X: -105.3, Y: 40.0}}
	require.NoError(t, repo.Create(db, ctx, &v))
	assert.Equal(t, int64(4), v.ID)
}

func TestVertexRepositoryDeleteBatch(t *testing.T) {
	repo := NewVertexRepository()
	ctx := context.Background()

	t.Run("empty is no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		require.NoError(t, repo.DeleteBatch(db, ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes ids", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM vertices WHERE id IN").
			WithArgs(int64(2), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		require.NoError(t, repo.DeleteBatch(db, ctx, []int64{2, 5}))
	})
}
