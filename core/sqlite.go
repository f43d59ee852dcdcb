package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Start and end are kept as wall-clock text so range predicates compare
// lexically; loc is reattached on read.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name_person TEXT NOT NULL,
	place       TEXT NOT NULL,
	all_day     INTEGER NOT NULL DEFAULT 0,
	start_at    TEXT NOT NULL,
	end_at      TEXT NOT NULL,
	notes       TEXT,
	created_by  TEXT,
	deleted_by  TEXT,
	created_at  TEXT NOT NULL,
	deleted_at  TEXT
);
CREATE INDEX IF NOT EXISTS events_range_idx ON events (start_at, end_at);`

const sqliteColumns = "id, name_person, place, all_day, start_at, end_at, " +
	"COALESCE(notes, ''), COALESCE(created_by, ''), COALESCE(deleted_by, ''), created_at"

const (
	sqliteWallLayout  = "2006-01-02 15:04:05"
	sqliteStampLayout = "2006-01-02T15:04:05.000000Z07:00"
)

type sqliteRepository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	db      *sql.DB
	loc     *time.Location
	now     func() time.Time
}

func NewSQLiteRepository(db *sql.DB, loc *time.Location) Repository {
	return &sqliteRepository{
		tracer:  otel.GetTracerProvider().Tracer("onsite-availability/core"),
		metrics: NewDBMetrics("sqlite"),
		db:      db,
		loc:     loc,
		now:     time.Now,
	}
}

func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, sqliteSchema)
	if err != nil {
		return fmt.Errorf("failed to create events schema: %w", err)
	}

	return nil
}

func (r *sqliteRepository) SaveEvent(ctx context.Context, event *EventRecord) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "sqliteRepository.SaveEvent")
	defer span.End()

	createdAt := r.now().UTC().Truncate(time.Microsecond)

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (name_person, place, all_day, start_at, end_at, notes, created_by, created_at) "+
			"VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)",
		event.PersonName, string(event.Location), event.FullDay,
		r.wall(event.Start), r.wall(event.End), event.Notes, event.CreatedBy,
		createdAt.Format(sqliteStampLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	saved := *event
	saved.Id = strconv.FormatInt(id, 10)
	saved.Color = ColorOf(saved.Location)
	saved.Start = r.reattach(event.Start)
	saved.End = r.reattach(event.End)
	saved.CreatedAt = createdAt

	return &saved, nil
}

func (r *sqliteRepository) ListEvents(ctx context.Context, window Window) ([]*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_events", start, err) }()

	ctx, span := r.tracer.Start(ctx, "sqliteRepository.ListEvents")
	defer span.End()

	query := "SELECT " + sqliteColumns + " FROM events WHERE deleted_at IS NULL"

	var args []any

	if !window.From.IsZero() {
		query += " AND end_at > ?"
		args = append(args, r.wall(window.From))
	}

	if !window.To.IsZero() {
		query += " AND start_at < ?"
		args = append(args, r.wall(window.To))
	}

	query += " ORDER BY start_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*EventRecord, 0)

	for rows.Next() {
		var e *EventRecord

		e, err = r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		events = append(events, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

func (r *sqliteRepository) GetEventById(ctx context.Context, id string) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_event_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "sqliteRepository.GetEventById")
	defer span.End()

	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to get event by id %q: %w", id, ErrEventNotFound)
	}

	e, err := r.scan(r.db.QueryRowContext(ctx,
		"SELECT "+sqliteColumns+" FROM events WHERE id = ? AND deleted_at IS NULL", key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get event by id %q: %w", id, ErrEventNotFound)
		}

		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return e, nil
}

func (r *sqliteRepository) DeleteEvent(ctx context.Context, id string, deletedBy string) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "sqliteRepository.DeleteEvent")
	defer span.End()

	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to delete event %q: %w", id, ErrEventNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	e, err := r.scan(tx.QueryRowContext(ctx,
		"SELECT "+sqliteColumns+" FROM events WHERE id = ? AND deleted_at IS NULL", key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to delete event %q: %w", id, ErrEventNotFound)
		}

		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	deletedAt := r.now().UTC().Truncate(time.Microsecond)

	_, err = tx.ExecContext(ctx,
		"UPDATE events SET deleted_by = NULLIF(?, ''), deleted_at = ? WHERE id = ?",
		deletedBy, deletedAt.Format(sqliteStampLayout), key)
	if err != nil {
		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	e.DeletedBy = deletedBy
	e.DeletedAt = &deletedAt

	return e, nil
}

func (r *sqliteRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "purge_deleted", start, err) }()

	ctx, span := r.tracer.Start(ctx, "sqliteRepository.PurgeDeleted")
	defer span.End()

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM events WHERE deleted_at IS NOT NULL AND deleted_at < ?",
		before.UTC().Format(sqliteStampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted events: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged events: %w", err)
	}

	return n, nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	err := r.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return nil
}

func (r *sqliteRepository) wall(t time.Time) string {
	return t.Format(sqliteWallLayout)
}

func (r *sqliteRepository) reattach(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc)
}

func (r *sqliteRepository) scan(row rowScanner) (*EventRecord, error) {
	var (
		e                   EventRecord
		id                  int64
		location            string
		startAt, endAt, cAt string
	)

	err := row.Scan(&id, &e.PersonName, &location, &e.FullDay, &startAt, &endAt,
		&e.Notes, &e.CreatedBy, &e.DeletedBy, &cAt)
	if err != nil {
		return nil, err
	}

	e.Id = strconv.FormatInt(id, 10)
	e.Location = Location(strings.ToUpper(location))
	e.Color = ColorOf(e.Location)

	e.Start, err = time.ParseInLocation(sqliteWallLayout, startAt, r.loc)
	if err != nil {
		return nil, fmt.Errorf("malformed start_at %q: %w", startAt, err)
	}

	e.End, err = time.ParseInLocation(sqliteWallLayout, endAt, r.loc)
	if err != nil {
		return nil, fmt.Errorf("malformed end_at %q: %w", endAt, err)
	}

	e.CreatedAt, err = time.Parse(sqliteStampLayout, cAt)
	if err != nil {
		return nil, fmt.Errorf("malformed created_at %q: %w", cAt, err)
	}

	return &e, nil
}
