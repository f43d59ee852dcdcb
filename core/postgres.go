package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/adonini/LST-onsite-availability/pkg/resources"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name_person VARCHAR(100) NOT NULL,
	place       VARCHAR(100) NOT NULL,
	all_day     BOOLEAN NOT NULL DEFAULT FALSE,
	start_at    TIMESTAMP NOT NULL,
	end_at      TIMESTAMP NOT NULL,
	notes       TEXT,
	created_by  TEXT,
	deleted_by  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS events_live_range_idx ON events (start_at, end_at) WHERE deleted_at IS NULL;`

const postgresColumns = "id::text, name_person, place, all_day, start_at, end_at, " +
	"COALESCE(notes, ''), COALESCE(created_by, ''), COALESCE(deleted_by, ''), created_at"

type repository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	pool    resources.DBInstance
}

func NewRepository(pool resources.DBInstance) Repository {
	return &repository{
		tracer:  otel.GetTracerProvider().Tracer("onsite-availability/core"),
		metrics: NewDBMetrics("postgres"),
		pool:    pool,
	}
}

func EnsurePostgresSchema(ctx context.Context, pool resources.DBInstance) error {
	_, err := pool.Exec(ctx, postgresSchema)
	if err != nil {
		return fmt.Errorf("failed to create events schema: %w", err)
	}

	return nil
}

func (r *repository) SaveEvent(ctx context.Context, event *EventRecord) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveEvent")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	savedEvent, err := scanEvent(tx.QueryRow(ctx,
		"INSERT INTO events (name_person, place, all_day, start_at, end_at, notes, created_by) "+
			"VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, '')) "+
			"RETURNING "+postgresColumns,
		event.PersonName, string(event.Location), event.FullDay, event.Start, event.End, event.Notes, event.CreatedBy))
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return savedEvent, nil
}

func (r *repository) ListEvents(ctx context.Context, window Window) ([]*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_events", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.ListEvents")
	defer span.End()

	query := "SELECT " + postgresColumns + " FROM events WHERE deleted_at IS NULL"

	var args []any

	if !window.From.IsZero() {
		args = append(args, window.From)
		query += " AND end_at > $" + strconv.Itoa(len(args))
	}

	if !window.To.IsZero() {
		args = append(args, window.To)
		query += " AND start_at < $" + strconv.Itoa(len(args))
	}

	query += " ORDER BY start_at, created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*EventRecord, 0)

	for rows.Next() {
		var e *EventRecord

		e, err = scanEvent(rows)
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

func (r *repository) GetEventById(ctx context.Context, id string) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_event_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetEventById")
	defer span.End()

	_, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event by id %q: %w", id, ErrEventNotFound)
	}

	e, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+`
		 FROM events
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get event by id %q: %w", id, ErrEventNotFound)
		}

		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return e, nil
}

func (r *repository) DeleteEvent(ctx context.Context, id string, deletedBy string) (*EventRecord, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.DeleteEvent")
	defer span.End()

	_, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete event %q: %w", id, ErrEventNotFound)
	}

	var deletedAt time.Time

	e, err := scanEvent(r.pool.QueryRow(ctx,
		`UPDATE events SET deleted_by = NULLIF($2, ''), deleted_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+postgresColumns+`, deleted_at`,
		id, deletedBy,
	), &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to delete event %q: %w", id, ErrEventNotFound)
		}

		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	e.DeletedAt = &deletedAt

	return e, nil
}

func (r *repository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "purge_deleted", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.PurgeDeleted")
	defer span.End()

	tag, err := r.pool.Exec(ctx, "DELETE FROM events WHERE deleted_at IS NOT NULL AND deleted_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted events: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *repository) Ping(ctx context.Context) error {
	err := r.pool.Ping(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent reads the column list shared by all queries; extra receives any
// trailing columns.
func scanEvent(row rowScanner, extra ...any) (*EventRecord, error) {
	var (
		e        EventRecord
		location string
	)

	dest := []any{&e.Id, &e.PersonName, &location, &e.FullDay, &e.Start, &e.End,
		&e.Notes, &e.CreatedBy, &e.DeletedBy, &e.CreatedAt}

	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}

	e.Location = Location(strings.ToUpper(location))
	e.Color = ColorOf(e.Location)

	return &e, nil
}
