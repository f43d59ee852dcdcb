package core

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adonini/LST-onsite-availability/pkg/resources"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	db, err := resources.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSQLiteSchema(ctx, db))

	return db
}

func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	testRepository(t, NewSQLiteRepository(openTestSQLite(t), time.UTC))
}

func TestSQLiteRepository_WallClock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestSQLite(t)
	canary := time.FixedZone("WEST", 3600)
	repo := NewSQLiteRepository(db, canary)

	record, err := ToStorage(EventInput{
		PersonName: "Luis", Location: "orm", StartDate: time.Date(2024, 6, 10, 0, 0, 0, 0, canary),
		StartTime: clock(22, 0), EndTime: clock(23, 30),
	})
	require.NoError(t, err)

	saved, err := repo.SaveEvent(ctx, record)
	require.NoError(t, err)

	var startAt string

	require.NoError(t, db.QueryRowContext(ctx, "SELECT start_at FROM events WHERE id = ?", saved.Id).Scan(&startAt))
	assert.Equal(t, "2024-06-10 22:00:00", startAt)

	got, err := repo.GetEventById(ctx, saved.Id)
	require.NoError(t, err)

	assert.Equal(t, LocationORM, got.Location)
	assert.Equal(t, "#840032", got.Color)
	assert.True(t, record.Start.Equal(got.Start))
	assert.Equal(t, canary, got.Start.Location())
}

func TestEnsureSQLiteSchema_Idempotent(t *testing.T) {
	t.Parallel()

	db := openTestSQLite(t)

	require.NoError(t, EnsureSQLiteSchema(context.Background(), db))
}
