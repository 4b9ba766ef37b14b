// Package retry applies a bounded exponential-backoff policy to fallible
// network operations.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes how many times an operation is attempted and how long
// to back off between attempts. The delay doubles per attempt from Base,
// with up to one extra second of random jitter when Jitter is set.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Jitter      bool
}

// Do runs op until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error is returned when every attempt fails.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		delay := p.Base << uint(attempt)
		if p.Jitter {
			delay += time.Duration(rand.Int63n(int64(time.Second)))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
