package domain

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for cross-component error classification. Adapters
// wrap these so callers can handle error categories uniformly without
// importing provider-specific SDKs.
//
//	return fmt.Errorf("failed to fetch status: %w", domain.ErrSessionInvalid)
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrSessionInvalid is the session-invalid-or-network signal: the
	// cloud API rejected or never received a call and gives no
	// machine-distinguishable reason (revoked credential vs. network
	// outage). Handled exclusively by the retry gate.
	ErrSessionInvalid = errors.New("session invalid or network unreachable")

	// ErrCancelled indicates the user aborted an activation or sign-in
	// flow. It is a distinguished outcome, never an error toast.
	ErrCancelled = errors.New("cancelled by user")

	// ErrServerDeleted indicates the server was removed while an
	// operation on it was still in flight.
	ErrServerDeleted = errors.New("server deleted")
)

// IsSessionInvalid reports whether err carries the
// session-invalid-or-network signal.
func IsSessionInvalid(err error) bool {
	return errors.Is(err, ErrSessionInvalid)
}

// IsCancelled reports whether err is a user-initiated cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsNetworkError reports whether err looks like a transient
// connectivity failure rather than a remote rejection.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
