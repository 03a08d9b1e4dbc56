package poller

import (
	"context"
	"time"
)

// backoff doubles its delay on every failure, up to max, until reset.
type backoff struct {
	base     time.Duration
	max      time.Duration
	next     time.Duration
	failures int
}

func newBackoff(base, max time.Duration) *backoff {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max < base {
		max = base
	}
	return &backoff{base: base, max: max, next: base}
}

// fail records a failure and reports whether it starts a new streak.
func (b *backoff) fail() bool {
	b.failures++
	return b.failures == 1
}

func (b *backoff) wait(ctx context.Context) error {
	delay := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return sleep(ctx, delay)
}

func (b *backoff) reset() {
	b.failures = 0
	b.next = b.base
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
