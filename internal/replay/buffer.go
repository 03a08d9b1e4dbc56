// Package replay keeps the most recent transfer events for subscribers that connect late.
//
// Buffers are newest-first. Append takes a batch that is itself newest-first and places
// it in front of the existing entries, then drops whatever exceeds the capacity from
// the old end.
package replay

import (
	"context"
	"time"

	"github.com/samber/lo"

	"objektFeed/internal/model"
)

// DefaultMaxHistory is the default buffer capacity.
const DefaultMaxHistory = 50

// Buffer is a bounded newest-first store of transfer events.
type Buffer interface {
	Append(ctx context.Context, batch []model.TransferEvent) error
	Snapshot(ctx context.Context) ([]model.TransferEvent, error)
	SnapshotSince(ctx context.Context, cutoff time.Time) ([]model.TransferEvent, error)
}

// Since keeps the events whose block timestamp is strictly after cutoff, in order.
func Since(events []model.TransferEvent, cutoff time.Time) []model.TransferEvent {
	return lo.Filter(events, func(ev model.TransferEvent, _ int) bool {
		return ev.BlockTimestamp.After(cutoff)
	})
}
