// Package retry runs an operation a bounded number of times with a fixed
// pause between tries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy bounds a retry loop.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	Sleep    Sleeper
}

// Do calls op until it succeeds or Attempts is reached. The pause happens
// between attempts only, never after the last one. It returns the number of
// attempts made.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return i - 1, err
		}
		lastErr = op(ctx, i)
		if lastErr == nil {
			return i, nil
		}
		if i == attempts {
			break
		}
		if err := sleep(ctx, p.Backoff); err != nil {
			return i, err
		}
	}
	return attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
