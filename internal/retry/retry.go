// Package retry is the shared retry-with-backoff utility used by the sync
// engine and the provider adapters.
package retry

import (
	"context"
	"time"
)

// Config controls attempt count and backoff shape.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay grows. Values below 1
	// are treated as 2.
	Multiplier float64
}

// Do runs fn until it succeeds, the attempts are exhausted, the error is
// not retryable, or the context ends. retryable decides per error kind
// whether another attempt is worthwhile; nil means retry everything.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	var err error
	delay := cfg.BaseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return err
}
