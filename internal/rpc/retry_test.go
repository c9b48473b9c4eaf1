package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrier_SucceedsAfterRateLimits(t *testing.T) {
	r := Retrier{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrRateLimited
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_GivesUpAfterBudget(t *testing.T) {
	r := Retrier{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return ErrRateLimited
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestRetrier_NonRateLimitFailsImmediately(t *testing.T) {
	r := Retrier{MaxRetries: 3, BaseDelay: time.Millisecond}
	boom := errors.New("malformed payload")

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetrier_HonorsCancellation(t *testing.T) {
	r := Retrier{MaxRetries: 3, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(context.Context) error {
		calls++
		return ErrRateLimited
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
