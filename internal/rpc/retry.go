package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited marks a transient upstream rate-limit failure. It is the
// only error class worth retrying; everything else fails immediately.
var ErrRateLimited = errors.New("rate limited")

// ErrNoData signals that a source had nothing for the request. It is not a
// failure; callers advance to their next source.
var ErrNoData = errors.New("no data")

// Retrier retries one idempotent call on rate-limit failures with exponential
// backoff. Each call gets its own retry budget; the zero value is unusable,
// use NewRetrier.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRetrier returns the standard policy: 3 retries at 1s, 2s, 4s.
func NewRetrier() Retrier {
	return Retrier{MaxRetries: 3, BaseDelay: time.Second}
}

// Do runs fn, retrying only when the returned error is ErrRateLimited. A
// non-rate-limit error is assumed non-transient and returned as-is.
func (r Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.BaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
	}

	return fmt.Errorf("giving up after %d rate-limit retries: %w", r.MaxRetries, err)
}
