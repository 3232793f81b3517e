// Package retrygate wraps fallible cloud-account operations so that
// the session-invalid-or-network signal triggers a user-mediated
// retry-or-abandon decision instead of propagating immediately.
//
// The cloud API conflates revoked/expired credentials with generic
// connectivity failures, so the gate defers the call to the human:
// retry re-runs the operation, abandon disconnects the account and
// lets the original failure through.
package retrygate

import (
	"context"

	"outpostlabs/outpost/internal/domain"
)

// Decision is the user's answer to the retry prompt.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionAbandon
)

// Prompter asks the user whether to retry a gated operation. cause is
// the failure that triggered the prompt.
type Prompter interface {
	ChooseRetry(ctx context.Context, cause error) (Decision, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, cause error) (Decision, error)

func (f PrompterFunc) ChooseRetry(ctx context.Context, cause error) (Decision, error) {
	return f(ctx, cause)
}

// Gate gates operations against a single cloud account.
type Gate struct {
	prompt Prompter

	// onAbandon disconnects the account: it must clear the stored
	// credential before returning, so a racing second gated call
	// observes "no account". Runs before the original failure is
	// returned to the caller.
	onAbandon func(ctx context.Context) error
}

// New creates a gate. onAbandon may be nil when no disconnect side
// effect is wanted (tests).
func New(prompt Prompter, onAbandon func(ctx context.Context) error) *Gate {
	return &Gate{prompt: prompt, onAbandon: onAbandon}
}

// Do runs op, prompting on every session-invalid failure. Retries are
// unbounded; each one is gated by a fresh user decision. Any failure
// that is not the session-invalid signal propagates unchanged.
//
// Written as a loop rather than recursion so stack depth stays flat
// under many consecutive retries.
func (g *Gate) Do(ctx context.Context, op func(ctx context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsSessionInvalid(err) {
			return err
		}

		decision, promptErr := g.prompt.ChooseRetry(ctx, err)
		if promptErr != nil {
			return promptErr
		}
		if decision == DecisionAbandon {
			if g.onAbandon != nil {
				_ = g.onAbandon(ctx)
			}
			return err
		}
	}
}

// DoValue runs a value-returning operation through the gate.
func DoValue[T any](ctx context.Context, g *Gate, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := g.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
