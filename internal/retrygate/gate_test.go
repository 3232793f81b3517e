package retrygate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"outpostlabs/outpost/internal/domain"
)

func alwaysRetry() (Prompter, *int) {
	prompts := 0
	return PrompterFunc(func(_ context.Context, _ error) (Decision, error) {
		prompts++
		return DecisionRetry, nil
	}), &prompts
}

func TestDo_Success(t *testing.T) {
	prompt, prompts := alwaysRetry()
	g := New(prompt, nil)

	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if *prompts != 0 {
		t.Errorf("expected no prompts, got %d", *prompts)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	prompt, prompts := alwaysRetry()
	g := New(prompt, nil)

	calls := 0
	result, err := DoValue(context.Background(), g, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("fetch status: %w", domain.ErrSessionInvalid)
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("DoValue failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected %q, got %q", "ok", result)
	}
	if *prompts != 2 {
		t.Errorf("expected exactly 2 prompts, got %d", *prompts)
	}
}

func TestDo_OtherErrorsPropagateWithoutPrompt(t *testing.T) {
	prompt, prompts := alwaysRetry()
	g := New(prompt, nil)

	boom := errors.New("boom")
	err := g.Do(context.Background(), func(context.Context) error {
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if *prompts != 0 {
		t.Errorf("expected no prompts for non-session error, got %d", *prompts)
	}
}

func TestDo_AbandonDisconnectsBeforeReturning(t *testing.T) {
	var order []string

	prompt := PrompterFunc(func(_ context.Context, _ error) (Decision, error) {
		return DecisionAbandon, nil
	})
	g := New(prompt, func(context.Context) error {
		order = append(order, "disconnect")
		return nil
	})

	cause := fmt.Errorf("list servers: %w", domain.ErrSessionInvalid)
	err := g.Do(context.Background(), func(context.Context) error {
		return cause
	})
	order = append(order, "returned")

	if !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected original session error, got %v", err)
	}
	if len(order) != 2 || order[0] != "disconnect" || order[1] != "returned" {
		t.Errorf("disconnect must happen before the error reaches the caller, got %v", order)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prompt, _ := alwaysRetry()
	g := New(prompt, nil)

	calls := 0
	err := g.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls after cancellation, got %d", calls)
	}
}
