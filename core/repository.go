package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Repository is the record store. Ids are assigned on SaveEvent and never
// reused; deleted records stay invisible to reads until purged.
type Repository interface {
	SaveEvent(ctx context.Context, event *EventRecord) (*EventRecord, error)
	ListEvents(ctx context.Context, window Window) ([]*EventRecord, error)
	GetEventById(ctx context.Context, id string) (*EventRecord, error)
	DeleteEvent(ctx context.Context, id string, deletedBy string) (*EventRecord, error)
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Window selects records overlapping [From, To). Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Overlaps(record *EventRecord) bool {
	if !w.From.IsZero() && !record.End.After(w.From) {
		return false
	}

	if !w.To.IsZero() && !record.Start.Before(w.To) {
		return false
	}

	return true
}

type DBMetrics struct {
	system   string
	qTotal   metric.Int64Counter
	qErrors  metric.Int64Counter
	qLatency metric.Float64Histogram
}

func NewDBMetrics(system string) *DBMetrics {
	meter := otel.Meter("onsite-availability/db")

	qTotal, _ := meter.Int64Counter("db.query.total")
	qErrors, _ := meter.Int64Counter("db.query.errors.total")
	qLatency, _ := meter.Float64Histogram("db.query.duration.ms")

	return &DBMetrics{system: system, qTotal: qTotal, qErrors: qErrors, qLatency: qLatency}
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", m.system),
		attribute.String("db.operation", op),
	}

	m.qTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	ms := float64(time.Since(start).Milliseconds())
	m.qLatency.Record(ctx, ms, metric.WithAttributes(attrs...))

	if err != nil {
		m.qErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
