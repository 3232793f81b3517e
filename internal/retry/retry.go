// Package retry runs fallible remote calls with bounded, backed-off
// re-attempts. It handles transient transport failures only; the
// user-mediated retry-or-abandon flow lives in retrygate.
package retry

import (
	"context"
	"time"

	"outpostlabs/outpost/internal/domain"
)

// Predicate determines whether an error should be retried.
type Predicate func(error) bool

// Config controls retry behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do executes fn, re-attempting while shouldRetry approves and
// attempts remain. The last error is returned when attempts run out.
func Do(ctx context.Context, config Config, shouldRetry Predicate, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if shouldRetry == nil {
		shouldRetry = domain.IsNetworkError
	}

	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}
		if attempt == config.MaxAttempts || !shouldRetry(err) {
			return err
		}

		if !sleep(ctx, delayFor(config, attempt)) {
			return ctx.Err()
		}
	}

	return err
}

// delayFor doubles the base delay per attempt, capped at MaxDelay.
func delayFor(config Config, attempt int) time.Duration {
	if config.BaseDelay <= 0 {
		return 0
	}
	delay := config.BaseDelay << (attempt - 1)
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
