package store

import (
	"context"
	"time"
)

// CounterStore is a fixed-window counter keyed by gate. Increment bumps the
// counter for the window containing now and returns the post-increment count;
// the first increment of a window starts its expiry clock.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
