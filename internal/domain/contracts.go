package domain

import "context"

// Host is the cloud-host payload of a managed server: capacity and
// cost figures plus the irreversible remote teardown.
type Host interface {
	// RegionID identifies the region the host runs in.
	RegionID() string

	// MonthlyCostUSD is the host's monthly price in US dollars.
	MonthlyCostUSD() float64

	// MonthlyTransferBytes is the outbound transfer included per
	// month, in bytes. Zero when the provider does not report one.
	MonthlyTransferBytes() int64

	// Delete tears down the remote host. Irreversible.
	Delete(ctx context.Context) error
}

// ServerInfo is the snapshot returned by a server's management API.
type ServerInfo struct {
	Name             string
	Hostname         string
	Version          string
	MetricsEnabled   bool
	DefaultDataLimit *DataLimit
	InstallCompleted bool
}

// Manager is the management API of a single proxy server. All calls
// go over the network; implementations must honor the context.
type Manager interface {
	// Health verifies the management API is reachable and responding.
	Health(ctx context.Context) error

	// WaitForInstall blocks until the remote proxy install completes.
	// Returns ErrServerDeleted when the server is observed to
	// disappear mid-install. Implementations that cannot observe
	// deletion directly must still bound the wait, returning the last
	// probe failure once the bound passes.
	WaitForInstall(ctx context.Context) error

	// GetInfo fetches the server's current configuration snapshot.
	GetInfo(ctx context.Context) (ServerInfo, error)

	// Rename changes the server's display name.
	Rename(ctx context.Context, name string) error

	// SetHostname changes the hostname used in access-key URLs.
	SetHostname(ctx context.Context, hostname string) error

	ListAccessKeys(ctx context.Context) ([]AccessKey, error)
	CreateAccessKey(ctx context.Context) (*AccessKey, error)
	RenameAccessKey(ctx context.Context, id, name string) error
	DeleteAccessKey(ctx context.Context, id string) error

	SetDefaultDataLimit(ctx context.Context, limit DataLimit) error
	RemoveDefaultDataLimit(ctx context.Context) error
	SetAccessKeyDataLimit(ctx context.Context, keyID string, limit DataLimit) error
	RemoveAccessKeyDataLimit(ctx context.Context, keyID string) error

	// SetMetricsEnabled toggles anonymous metrics sharing.
	SetMetricsEnabled(ctx context.Context, enabled bool) error

	// UsageByKey returns transferred bytes per access-key id over the
	// current reporting window. Keys with no recorded traffic may be
	// absent from the map.
	UsageByKey(ctx context.Context) (map[string]int64, error)
}
