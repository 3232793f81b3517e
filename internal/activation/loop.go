// Package activation polls a cloud account's status until it becomes
// active, driving the sign-up UI state machine (billing required,
// email verification, activating, active).
package activation

import (
	"context"
	"sync/atomic"
	"time"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/retrygate"
)

// PollInterval is the delay between successive status checks.
// Exported as a variable so tests can override it for speed.
var PollInterval = time.Second

// SuccessDwell is how long the "active" visual is held before the
// loop returns, so the transition is perceivable. Applied only when a
// pending sub-state was displayed during this invocation.
var SuccessDwell = 1500 * time.Millisecond

// View receives one-way render requests from the loop.
type View interface {
	ShowBillingRequired()
	ShowEmailVerification()
	ShowActive()
}

// Loop polls account status through the retry gate until the account
// activates, the user cancels, or an error escapes the gate.
type Loop struct {
	account domain.CloudAccount
	gate    *retrygate.Gate
	view    View

	cancelled atomic.Bool

	// sleep is injectable for tests. Nil means a timer-backed sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a loop for the given account.
func New(account domain.CloudAccount, gate *retrygate.Gate, view View) *Loop {
	return &Loop{account: account, gate: gate, view: view}
}

// Cancel requests cooperative termination. Safe to call from any
// goroutine; the loop observes the flag before each status fetch and
// after each UI-facing wait.
func (l *Loop) Cancel() {
	l.cancelled.Store(true)
}

// Run polls until the account is active. Returns nil once active,
// domain.ErrCancelled when cancelled, and any other error unchanged
// for the caller to surface.
func (l *Loop) Run(ctx context.Context) error {
	wasPending := false

	for {
		if l.cancelled.Load() {
			return domain.ErrCancelled
		}

		status, err := retrygate.DoValue(ctx, l.gate, func(ctx context.Context) (domain.AccountStatus, error) {
			return l.account.GetStatus(ctx)
		})
		if err != nil {
			return err
		}

		if status == domain.AccountStatusActive {
			if !wasPending {
				// The account was already active; no transition to show.
				return nil
			}
			l.view.ShowActive()
			if err := l.wait(ctx, SuccessDwell); err != nil {
				return err
			}
			if l.cancelled.Load() {
				return domain.ErrCancelled
			}
			return nil
		}

		// Activation is genuinely pending this session; remember it so
		// the success dwell only applies when a transition happened.
		wasPending = true

		if status == domain.AccountStatusMissingBilling {
			l.view.ShowBillingRequired()
		} else {
			l.view.ShowEmailVerification()
		}

		if err := l.wait(ctx, PollInterval); err != nil {
			return err
		}
		if l.cancelled.Load() {
			return domain.ErrCancelled
		}
	}
}

func (l *Loop) wait(ctx context.Context, d time.Duration) error {
	if l.sleep != nil {
		return l.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
