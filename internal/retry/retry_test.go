package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testNetError struct{}

func (testNetError) Error() string { return "net error" }

func (testNetError) Timeout() bool { return true }

func (testNetError) Temporary() bool { return true }

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_RetriesOnTransientError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), nil, func() error {
		attempts++
		return testNetError{}
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_NoRetryOnNonTransient(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), nil, func() error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), nil, func() error {
		attempts++
		if attempts == 1 {
			return testNetError{}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, fastConfig(), nil, func() error {
		attempts++
		return testNetError{}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected 0 attempts, got %d", attempts)
	}
}

func TestDelayFor_CappedAtMax(t *testing.T) {
	config := Config{BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	if got := delayFor(config, 5); got != 2*time.Second {
		t.Fatalf("expected delay capped at max, got %v", got)
	}
}
