package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Overlaps(t *testing.T) {
	t.Parallel()

	record := &EventRecord{Start: date(2024, 6, 10), End: date(2024, 6, 11)}

	tests := []struct {
		name   string
		window Window
		want   bool
	}{
		{name: "open", window: Window{}, want: true},
		{name: "containing", window: Window{From: date(2024, 6, 1), To: date(2024, 7, 1)}, want: true},
		{name: "ends at start", window: Window{From: date(2024, 6, 1), To: date(2024, 6, 10)}, want: false},
		{name: "starts at exclusive end", window: Window{From: date(2024, 6, 11)}, want: false},
		{name: "starts inside", window: Window{From: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}, want: true},
		{name: "open start", window: Window{To: time.Date(2024, 6, 10, 0, 1, 0, 0, time.UTC)}, want: true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.window.Overlaps(record), tt.name)
	}
}

// testRepository runs the behaviour every Repository implementation shares.
func testRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	fullDay, err := ToStorage(EventInput{
		PersonName: "Maria", Location: LocationCALP, FullDay: true,
		StartDate: date(2024, 6, 10), CreatedBy: "admin", Notes: "visit",
	})
	require.NoError(t, err)

	timed, err := ToStorage(EventInput{
		PersonName: "Luis", Location: LocationRemote, StartDate: date(2024, 6, 11),
		StartTime: clock(9, 0), EndTime: clock(10, 0),
	})
	require.NoError(t, err)

	savedTimed, err := repo.SaveEvent(ctx, timed)
	require.NoError(t, err)

	savedFullDay, err := repo.SaveEvent(ctx, fullDay)
	require.NoError(t, err)

	require.NotEmpty(t, savedFullDay.Id)
	assert.NotEqual(t, savedFullDay.Id, savedTimed.Id)
	assert.Equal(t, "#002642", savedFullDay.Color)
	assert.False(t, savedFullDay.CreatedAt.IsZero())
	assert.Empty(t, fullDay.Id)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetEventById(ctx, savedFullDay.Id)
		require.NoError(t, err)

		assert.Equal(t, "Maria", got.PersonName)
		assert.Equal(t, LocationCALP, got.Location)
		assert.True(t, got.FullDay)
		assert.True(t, date(2024, 6, 10).Equal(got.Start))
		assert.True(t, date(2024, 6, 11).Equal(got.End))
		assert.Equal(t, "visit", got.Notes)
		assert.Equal(t, "admin", got.CreatedBy)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetEventById(ctx, "not-an-id")
		require.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("list ordered by start", func(t *testing.T) {
		got, err := repo.ListEvents(ctx, Window{})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, savedFullDay.Id, got[0].Id)
		assert.Equal(t, savedTimed.Id, got[1].Id)
	})

	t.Run("list window excludes touching end", func(t *testing.T) {
		got, err := repo.ListEvents(ctx, Window{From: date(2024, 6, 11), To: date(2024, 6, 12)})
		require.NoError(t, err)
		require.Len(t, got, 1)

		assert.Equal(t, savedTimed.Id, got[0].Id)
		assert.True(t, time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC).Equal(got[0].End))
	})

	t.Run("soft delete", func(t *testing.T) {
		deleted, err := repo.DeleteEvent(ctx, savedTimed.Id, "boss")
		require.NoError(t, err)

		assert.Equal(t, "boss", deleted.DeletedBy)
		require.NotNil(t, deleted.DeletedAt)

		_, err = repo.GetEventById(ctx, savedTimed.Id)
		require.ErrorIs(t, err, ErrEventNotFound)

		_, err = repo.DeleteEvent(ctx, savedTimed.Id, "boss")
		require.ErrorIs(t, err, ErrEventNotFound)

		got, err := repo.ListEvents(ctx, Window{})
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("purge", func(t *testing.T) {
		n, err := repo.PurgeDeleted(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = repo.PurgeDeleted(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.GetEventById(ctx, savedFullDay.Id)
		require.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, repo.Ping(ctx))
	})
}
