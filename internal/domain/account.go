package domain

import "context"

// AccountStatus is the activation state of a cloud account.
type AccountStatus string

const (
	// AccountStatusActive means the account can provision hosts.
	AccountStatusActive AccountStatus = "active"

	// AccountStatusMissingBilling means the provider requires billing
	// information before the account activates.
	AccountStatusMissingBilling AccountStatus = "missing_billing_information"

	// AccountStatusPendingVerification covers every other non-active
	// state (typically an unverified email address).
	AccountStatusPendingVerification AccountStatus = "pending_verification"
)

// Region describes a deployment region offered by a cloud account.
type Region struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// CloudAccount is an authenticated session with a cloud provider
// account. Implementations live in internal/providers.
type CloudAccount interface {
	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// ProviderTag returns the tag recorded on servers owned by this
	// account, used for sign-out cascades.
	ProviderTag() string

	// GetStatus fetches the current activation status.
	GetStatus(ctx context.Context) (AccountStatus, error)

	// ListServers enumerates the proxy servers provisioned through
	// this account.
	ListServers(ctx context.Context) ([]Server, error)

	// CreateServer provisions a new host in the given region and
	// returns the resulting server with install not yet completed.
	CreateServer(ctx context.Context, region, name string) (*Server, error)

	// RegionMap groups available regions by geographic area for
	// display.
	RegionMap(ctx context.Context) (map[string][]Region, error)
}
