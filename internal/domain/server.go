package domain

import "time"

// Kind discriminates the two server variants. A managed server was
// provisioned through a cloud account and carries a Host payload; a
// manual server was added by the user supplying its management address
// directly and has no host lifecycle control.
type Kind string

const (
	KindManaged Kind = "managed"
	KindManual  Kind = "manual"
)

// Server represents one proxy server known to the console.
//
// Exactly one capability set applies per instance: Host is non-nil if
// and only if Kind == KindManaged.
type Server struct {
	// ID is an opaque identifier, stable for the process lifetime.
	ID string `json:"id"`

	// Name is the display name. It may be empty until the first
	// successful sync with the remote management API.
	Name string `json:"name,omitempty"`

	// Hostname is the host used when building access-key URLs.
	Hostname string `json:"hostname,omitempty"`

	// Provider is the cloud provider tag (e.g. "hetzner"), or
	// "manual" for servers added by address.
	Provider string `json:"provider"`

	Kind Kind `json:"kind"`

	// InstallCompleted reports whether the remote proxy install has
	// finished. Always true for manual servers.
	InstallCompleted bool `json:"install_completed"`

	// DefaultDataLimit is the per-key quota applied to access keys
	// that have no individual quota. Nil means unlimited.
	DefaultDataLimit *DataLimit `json:"default_data_limit,omitempty"`

	// MetricsEnabled reports whether the server shares anonymous
	// usage metrics.
	MetricsEnabled bool `json:"metrics_enabled"`

	CreatedAt time.Time `json:"created_at"`

	// Version is the proxy software version as a semantic version
	// string. Empty when the server has not reported one.
	Version string `json:"version,omitempty"`

	// Host is the managed-host payload. Nil for manual servers.
	Host Host `json:"-"`
}

// IsManaged reports whether the server carries a cloud host.
func (s *Server) IsManaged() bool {
	return s.Kind == KindManaged && s.Host != nil
}

// Synced reports whether the display name has been resolved from the
// remote management API.
func (s *Server) Synced() bool {
	return s.Name != ""
}
