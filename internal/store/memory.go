package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"amaze/internal/models"

	"github.com/google/uuid"
)

// Memory is an in-process EventStore used for local development and tests.
// It applies the same [from, to) listing semantics as the real adapter.
type Memory struct {
	mu     sync.RWMutex
	events map[Collection]map[string]Event
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{events: map[Collection]map[string]Event{
		Reservations: {},
		Closures:     {},
	}}
}

func (m *Memory) ListEvents(ctx context.Context, col Collection, from, to time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, ev := range m.events[col] {
		if ev.Start.Before(to) && !ev.Start.Before(from) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) CreateEvent(ctx context.Context, col Collection, ev Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = uuid.NewString()
	m.events[col][ev.ID] = ev
	return ev, nil
}

func (m *Memory) GetEvent(ctx context.Context, col Collection, id string) (Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[col][id]
	if !ok {
		return Event{}, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	return ev, nil
}

func (m *Memory) UpdateEvent(ctx context.Context, col Collection, ev Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[col][ev.ID]; !ok {
		return Event{}, fmt.Errorf("event %s: %w", ev.ID, models.ErrNotFound)
	}
	m.events[col][ev.ID] = ev
	return ev, nil
}

func (m *Memory) DeleteEvent(ctx context.Context, col Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[col][id]; !ok {
		return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	delete(m.events[col], id)
	return nil
}
