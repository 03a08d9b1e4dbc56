package replay

import (
	"context"
	"sync"
	"time"

	"objektFeed/internal/model"
)

// Memory is an in-process Buffer. It does not survive restarts.
type Memory struct {
	mu     sync.RWMutex
	max    int
	events []model.TransferEvent
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &Memory{max: max}
}

func (m *Memory) Append(_ context.Context, batch []model.TransferEvent) error {
	if len(batch) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make([]model.TransferEvent, 0, len(batch)+len(m.events))
	merged = append(merged, batch...)
	merged = append(merged, m.events...)
	if len(merged) > m.max {
		merged = merged[:m.max]
	}
	m.events = merged
	return nil
}

func (m *Memory) Snapshot(_ context.Context) ([]model.TransferEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TransferEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *Memory) SnapshotSince(ctx context.Context, cutoff time.Time) ([]model.TransferEvent, error) {
	events, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Since(events, cutoff), nil
}
