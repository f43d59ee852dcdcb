package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventId = "6f1c1d1e-3c52-4a5e-9c57-0a0c5c6a1f01"

var eventColumnNames = []string{
	"id", "name_person", "place", "all_day", "start_at", "end_at",
	"notes", "created_by", "deleted_by", "created_at",
}

func TestRepository_SaveEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	tests := []struct {
		name       string
		event      *EventRecord
		mockSetup  func(mock pgxmock.PgxPoolIface)
		wantErr    bool
		wantResult *EventRecord
	}{
		{
			name: "success",
			event: &EventRecord{
				PersonName: "Maria",
				Location:   LocationCALP,
				FullDay:    true,
				Start:      start,
				End:        end,
				CreatedBy:  "admin",
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()

				rows := pgxmock.NewRows(eventColumnNames).
					AddRow(testEventId, "Maria", "CALP", true, start, end, "", "admin", "", now)
				mock.ExpectQuery("INSERT INTO events").
					WithArgs("Maria", "CALP", true, start, end, "", "admin").
					WillReturnRows(rows)
				mock.ExpectCommit()
			},
			wantErr: false,
			wantResult: &EventRecord{
				Id:         testEventId,
				PersonName: "Maria",
				Location:   LocationCALP,
				FullDay:    true,
				Start:      start,
				End:        end,
				Color:      "#002642",
				CreatedBy:  "admin",
				CreatedAt:  now,
			},
		},
		{
			name:  "begin failure",
			event: &EventRecord{PersonName: "Maria"},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("begin error"))
			},
			wantErr: true,
		},
		{
			name:  "insert failure",
			event: &EventRecord{PersonName: "Maria", Location: LocationORM},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery("INSERT INTO events").
					WithArgs("Maria", "ORM", false, time.Time{}, time.Time{}, "", "").
					WillReturnError(errors.New("insert error"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name:  "commit failure",
			event: &EventRecord{PersonName: "Maria", Location: LocationORM},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()

				rows := pgxmock.NewRows(eventColumnNames).
					AddRow(testEventId, "Maria", "ORM", false, time.Time{}, time.Time{}, "", "", "", now)
				mock.ExpectQuery("INSERT INTO events").
					WithArgs("Maria", "ORM", false, time.Time{}, time.Time{}, "", "").
					WillReturnRows(rows)
				mock.ExpectCommit().WillReturnError(errors.New("commit error"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			require.NoError(t, err)

			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewRepository(mock)
			got, err := repo.SaveEvent(ctx, tt.event)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, got)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_ListEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		window    Window
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
		wantLen   int
	}{
		{
			name:   "unbounded",
			window: Window{},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(eventColumnNames).
					AddRow(testEventId, "Maria", "calp", true, from, from.AddDate(0, 0, 1), "", "", "", now).
					AddRow("7a2b0000-0000-4000-8000-000000000002", "Luis", "REMOTE", false, from, from.Add(time.Hour), "", "", "", now)
				mock.ExpectQuery(`SELECT (.+) FROM events WHERE deleted_at IS NULL ORDER BY`).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name:   "window",
			window: Window{From: from, To: to},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(eventColumnNames)
				mock.ExpectQuery(`WHERE deleted_at IS NULL AND end_at > \$1 AND start_at < \$2`).
					WithArgs(from, to).
					WillReturnRows(rows)
			},
			wantLen: 0,
		},
		{
			name:   "query failure",
			window: Window{To: to},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`AND start_at < \$1`).
					WithArgs(to).
					WillReturnError(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			require.NoError(t, err)

			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewRepository(mock)
			got, err := repo.ListEvents(ctx, tt.window)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, got, tt.wantLen)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("locations are normalized", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)

		defer mock.Close()

		rows := pgxmock.NewRows(eventColumnNames).
			AddRow(testEventId, "Maria", "Calp", true, from, from.AddDate(0, 0, 1), "", "", "", now)
		mock.ExpectQuery("SELECT (.+) FROM events").WillReturnRows(rows)

		got, err := NewRepository(mock).ListEvents(ctx, Window{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, LocationCALP, got[0].Location)
		assert.Equal(t, "#002642", got[0].Color)
	})
}

func TestRepository_GetEventById(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		id         string
		mockSetup  func(mock pgxmock.PgxPoolIface)
		wantErr    error
		wantResult *EventRecord
	}{
		{
			name: "success",
			id:   testEventId,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(eventColumnNames).
					AddRow(testEventId, "Luis", "ORM", false, start, start.Add(2*time.Hour), "shift", "", "", now)
				mock.ExpectQuery("SELECT (.+) FROM events WHERE id = \\$1").
					WithArgs(testEventId).
					WillReturnRows(rows)
			},
			wantResult: &EventRecord{
				Id:         testEventId,
				PersonName: "Luis",
				Location:   LocationORM,
				Start:      start,
				End:        start.Add(2 * time.Hour),
				Color:      "#840032",
				Notes:      "shift",
				CreatedAt:  now,
			},
		},
		{
			name: "not found",
			id:   testEventId,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT (.+) FROM events WHERE id = \\$1").
					WithArgs(testEventId).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrEventNotFound,
		},
		{
			name:      "malformed id",
			id:        "42",
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			require.NoError(t, err)

			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewRepository(mock)
			got, err := repo.GetEventById(ctx, tt.id)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, got)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_DeleteEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)

		defer mock.Close()

		rows := pgxmock.NewRows(append(eventColumnNames, "deleted_at")).
			AddRow(testEventId, "Maria", "CALP", true, start, start.AddDate(0, 0, 1), "", "admin", "boss", now, now)
		mock.ExpectQuery("UPDATE events SET deleted_by").
			WithArgs(testEventId, "boss").
			WillReturnRows(rows)

		got, err := NewRepository(mock).DeleteEvent(ctx, testEventId, "boss")
		require.NoError(t, err)
		assert.Equal(t, "boss", got.DeletedBy)
		require.NotNil(t, got.DeletedAt)
		assert.Equal(t, now, *got.DeletedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)

		defer mock.Close()

		mock.ExpectQuery("UPDATE events SET deleted_by").
			WithArgs(testEventId, "boss").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewRepository(mock).DeleteEvent(ctx, testEventId, "boss")
		require.ErrorIs(t, err, ErrEventNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)

		defer mock.Close()

		mock.ExpectQuery("UPDATE events SET deleted_by").
			WithArgs(testEventId, "").
			WillReturnError(errors.New("db error"))

		_, err = NewRepository(mock).DeleteEvent(ctx, testEventId, "")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrEventNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_PurgeDeleted(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	defer mock.Close()

	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM events WHERE deleted_at IS NOT NULL").
		WithArgs(before).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewRepository(mock)

	n, err := repo.PurgeDeleted(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
