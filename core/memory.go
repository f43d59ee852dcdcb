package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepository keeps records in process. It is meant for tests and local runs.
type memoryRepository struct {
	mu     sync.RWMutex
	events map[string]*EventRecord
	now    func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		events: make(map[string]*EventRecord),
		now:    time.Now,
	}
}

func (r *memoryRepository) SaveEvent(_ context.Context, event *EventRecord) (*EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *event
	saved.Id = uuid.NewString()
	saved.Color = ColorOf(saved.Location)
	saved.CreatedAt = r.now().UTC()
	saved.DeletedBy, saved.DeletedAt = "", nil

	r.events[saved.Id] = &saved

	out := saved

	return &out, nil
}

func (r *memoryRepository) ListEvents(_ context.Context, window Window) ([]*EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*EventRecord, 0, len(r.events))

	for _, e := range r.events {
		if e.DeletedAt != nil || !window.Overlaps(e) {
			continue
		}

		out := *e
		events = append(events, &out)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}

		return events[i].Start.Before(events[j].Start)
	})

	return events, nil
}

func (r *memoryRepository) GetEventById(_ context.Context, id string) (*EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok || e.DeletedAt != nil {
		return nil, fmt.Errorf("failed to get event by id %q: %w", id, ErrEventNotFound)
	}

	out := *e

	return &out, nil
}

func (r *memoryRepository) DeleteEvent(_ context.Context, id string, deletedBy string) (*EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok || e.DeletedAt != nil {
		return nil, fmt.Errorf("failed to delete event %q: %w", id, ErrEventNotFound)
	}

	deletedAt := r.now().UTC()
	e.DeletedBy = deletedBy
	e.DeletedAt = &deletedAt

	out := *e

	return &out, nil
}

func (r *memoryRepository) PurgeDeleted(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	for id, e := range r.events {
		if e.DeletedAt != nil && e.DeletedAt.Before(before) {
			delete(r.events, id)
			n++
		}
	}

	return n, nil
}

func (r *memoryRepository) Ping(context.Context) error {
	return nil
}
