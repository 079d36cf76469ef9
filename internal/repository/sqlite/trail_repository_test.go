package sqlite

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/geom"
	"github.com/mkoster/trailnet/internal/models"
	"github.com/mkoster/trailnet/internal/repository"
)

// newMockDB returns an sqlx handle backed by sqlmock.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlite")
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testTrail() models.Trail {
	return models.Trail{
		UUID: uuid.New().String(),
		Name: "Marshall Valley",
		Geometry: geom.LineString{
			{X: -105.3, Y: 40.0},
			{X: -105.29, Y: 40.01},
		},
	}
}

func TestTrailRepositoryCreate(t *testing.T) {
	repo := NewTrailRepository()
	ctx := context.Background()

	t.Run("valid trail inserts and derives length", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO trails").
			WillReturnResult(sqlmock.NewResult(1, 1))

		trail := testTrail()
		require.NoError(t, repo.Create(db, ctx, &trail))
		assert.Greater(t, trail.LengthKm, 0.0, "length re-derived from geometry")
		assert.NotEmpty(t, trail.UUID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("assigns uuid when absent", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO trails").
			WillReturnResult(sqlmock.NewResult(1, 1))

		trail := testTrail()
		trail.UUID = ""
		require.NoError(t, repo.Create(db, ctx, &trail))
		assert.NotEmpty(t, trail.UUID)
	})

	t.Run("invalid geometry rejected before touching the store", func(t *testing.T) {
		db, _ := newMockDB(t)

		trail := testTrail()
		trail.Geometry = geom.LineString{{X: -105.3, Y: 40.0}}
		err := repo.Create(db, ctx, &trail)
		assert.True(t, repository.IsValidationError(err))
	})

	t.Run("empty geometry rejected", func(t *testing.T) {
		db, _ := newMockDB(t)

		trail := testTrail()
		trail.Geometry = nil
		err := repo.Create(db, ctx, &trail)
		assert.True(t, repository.IsValidationError(err))
	})
}

func TestTrailRepositoryDelete(t *testing.T) {
	repo := NewTrailRepository()
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM trails WHERE uuid").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(db, ctx, "some-uuid"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown uuid yields NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM trails WHERE uuid").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(db, ctx, "missing")
		assert.True(t, repository.IsNotFound(err))
	})
}

func TestTrailRepositoryUpdateGeometry(t *testing.T) {
	repo := NewTrailRepository()
	ctx := context.Background()

	t.Run("updates and re-derives length", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE trails").
			WillReturnResult(sqlmock.NewResult(0, 1))

		trail := testTrail()
		trail.LengthKm = 0
		require.NoError(t, repo.UpdateGeometry(db, ctx, &trail))
		assert.Greater(t, trail.LengthKm, 0.0)
	})

	t.Run("unknown trail yields NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE trails").
			WillReturnResult(sqlmock.NewResult(0, 0))

		trail := testTrail()
		err := repo.UpdateGeometry(db, ctx, &trail)
		assert.True(t, repository.IsNotFound(err))
	})
}

func TestTrailRepositoryGetAll(t *testing.T) {
	repo := NewTrailRepository()
	ctx := context.Background()
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"uuid", "name", "geometry", "length_km"}).
		AddRow("a", "Trail A", "LINESTRING(-105.3 40, -105.29 40.01)", 1.4).
		AddRow("b", "Trail B", "LINESTRING(-105.2 40, -105.19 40.01)", 2.0)
	mock.ExpectQuery("SELECT \\* FROM trails ORDER BY uuid").WillReturnRows(rows)

	trails, err := repo.GetAll(db, ctx)
	require.NoError(t, err)
	require.Len(t, trails, 2)
	assert.Equal(t, "Trail A", trails[0].Name)
	assert.Len(t, trails[0].Geometry, 2, "WKT scanned into geometry")
}

func TestTrailRepositoryDeleteBatch(t *testing.T) {
	repo := NewTrailRepository()
	ctx := context.Background()

	t.Run("empty batch is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		require.NoError(t, repo.DeleteBatch(db, ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes listed uuids", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM trails WHERE uuid IN").
			WithArgs("a", "b").
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, repo.DeleteBatch(db, ctx, []string{"a", "b"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
