package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/cache"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/retry"
)

const (
	hetznerTag     = "hetzner"
	requestTimeout = 30 * time.Second

	// proxyLabel marks servers provisioned by this tool so ListServers
	// does not pick up unrelated machines in the same project.
	proxyLabel = "outpost"

	// Fixed shape for provisioned hosts. The smallest shared instance
	// is plenty for a proxy workload.
	serverType  = "cx22"
	serverImage = "ubuntu-24.04"

	regionCacheKey = "hetzner_regions"
	regionCacheTTL = 24 * time.Hour
)

// installScript is the cloud-init payload that installs the proxy and
// brings up its management API as the final step.
// The API port is pinned so the console can derive the management URL
// from the host address alone.
const installScript = `#!/bin/bash -eu
export SB_DEFAULT_SERVER_NAME="Outpost Server"
curl -sS https://raw.githubusercontent.com/Jigsaw-Code/outline-server/master/src/server_manager/install_scripts/install_server.sh | bash -s -- --api-port 8081
`

// Compile-time check that HetznerAccount satisfies domain.CloudAccount.
var _ domain.CloudAccount = (*HetznerAccount)(nil)

// HetznerAccount implements domain.CloudAccount using the Hetzner
// Cloud API.
type HetznerAccount struct {
	client *hcloud.Client
	cache  *cache.Cache
}

// NewHetznerAccount creates a HetznerAccount with the given hcloud
// client options. Default options are applied first; callers can
// override them.
func NewHetznerAccount(opts ...hcloud.ClientOption) *HetznerAccount {
	defaults := []hcloud.ClientOption{
		hcloud.WithApplication("outpost", "0.1.0"),
	}
	allOpts := append(defaults, opts...)
	return &HetznerAccount{
		client: hcloud.NewClient(allOpts...),
		cache:  cache.NewDefault(),
	}
}

// RegisterHetzner registers the Hetzner account factory with the
// global registry.
func RegisterHetzner() {
	Register(hetznerTag, func(store auth.Store) (domain.CloudAccount, error) {
		token, err := store.GetToken(hetznerTag)
		if err != nil {
			return nil, fmt.Errorf("hetzner auth: %w", err)
		}
		return NewHetznerAccount(hcloud.WithToken(token)), nil
	})
}

func (h *HetznerAccount) DisplayName() string {
	return "Hetzner Cloud"
}

func (h *HetznerAccount) ProviderTag() string {
	return hetznerTag
}

// GetStatus probes the account with a cheap authenticated call.
// Hetzner has no dedicated activation endpoint, so the status is
// inferred from the error taxonomy: forbidden means the project is
// locked pending billing details, a read-only token means the signup
// is not fully verified, and unauthorized or network failures are the
// session-invalid signal.
func (h *HetznerAccount) GetStatus(ctx context.Context) (domain.AccountStatus, error) {
	err := retry.Do(ctx, retry.DefaultConfig(), isHetznerRetryable, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		_, apiErr := h.client.Location.All(reqCtx)
		return apiErr
	})
	switch {
	case err == nil:
		return domain.AccountStatusActive, nil
	case hcloud.IsError(err, hcloud.ErrorCodeForbidden):
		return domain.AccountStatusMissingBilling, nil
	case hcloud.IsError(err, hcloud.ErrorCodeTokenReadonly):
		return domain.AccountStatusPendingVerification, nil
	default:
		return "", wrapHetznerErr("failed to fetch account status", err)
	}
}

// ListServers returns the proxy servers provisioned through this
// account, identified by the proxy label.
func (h *HetznerAccount) ListServers(ctx context.Context) ([]domain.Server, error) {
	hzServers, err := h.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: proxyLabel},
	})
	if err != nil {
		return nil, wrapHetznerErr("failed to list servers", err)
	}

	servers := make([]domain.Server, 0, len(hzServers))
	for _, s := range hzServers {
		servers = append(servers, h.toDomainServer(s))
	}
	return servers, nil
}

// CreateServer provisions a new host in the given region. The returned
// server has InstallCompleted false; the caller awaits the install
// through the server's manager.
func (h *HetznerAccount) CreateServer(ctx context.Context, region, name string) (*domain.Server, error) {
	opts := hcloud.ServerCreateOpts{
		Name:       name,
		ServerType: &hcloud.ServerType{Name: serverType},
		Image:      &hcloud.Image{Name: serverImage},
		UserData:   installScript,
		Labels:     map[string]string{proxyLabel: "proxy"},
	}
	if region != "" {
		opts.Location = &hcloud.Location{Name: region}
	}

	result, _, err := h.client.Server.Create(ctx, opts)
	if err != nil {
		return nil, wrapHetznerErr("failed to create server", err)
	}

	srv := h.toDomainServer(result.Server)
	srv.InstallCompleted = false
	return &srv, nil
}

// RegionMap groups available locations by network zone. Results are
// cached on disk; the catalog changes rarely.
func (h *HetznerAccount) RegionMap(ctx context.Context) (map[string][]domain.Region, error) {
	var cached map[string][]domain.Region
	if hit, err := h.cache.Get(regionCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	var hzLocations []*hcloud.Location
	err := retry.Do(ctx, retry.DefaultConfig(), isHetznerRetryable, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		var apiErr error
		hzLocations, apiErr = h.client.Location.All(reqCtx)
		return apiErr
	})
	if err != nil {
		return nil, wrapHetznerErr("failed to list regions", err)
	}

	regions := make(map[string][]domain.Region)
	for _, loc := range hzLocations {
		zone := string(loc.NetworkZone)
		regions[zone] = append(regions[zone], domain.Region{
			ID:      loc.Name,
			Name:    loc.Description,
			Country: loc.Country,
			City:    loc.City,
		})
	}

	_ = h.cache.Set(regionCacheKey, regions, regionCacheTTL)
	return regions, nil
}

// toDomainServer converts an hcloud.Server into a managed domain
// server carrying a hetznerHost payload.
func (h *HetznerAccount) toDomainServer(s *hcloud.Server) domain.Server {
	srv := domain.Server{
		ID:               strconv.FormatInt(s.ID, 10),
		Provider:         hetznerTag,
		Kind:             domain.KindManaged,
		CreatedAt:        s.Created,
		InstallCompleted: s.Status == hcloud.ServerStatusRunning,
	}

	if !s.PublicNet.IPv4.IsUnspecified() {
		srv.Hostname = s.PublicNet.IPv4.IP.String()
	}

	host := &hetznerHost{client: h.client, serverID: s.ID}
	if s.Datacenter != nil && s.Datacenter.Location != nil {
		host.region = s.Datacenter.Location.Name
	}
	if s.ServerType != nil {
		for _, pricing := range s.ServerType.Pricings {
			if pricing.Location == nil || pricing.Location.Name != host.region {
				continue
			}
			if gross, err := strconv.ParseFloat(pricing.Monthly.Gross, 64); err == nil {
				host.monthlyCost = gross
			}
			host.includedTraffic = int64(pricing.IncludedTraffic)
			break
		}
	}
	srv.Host = host

	return srv
}

// hetznerHost is the managed-host payload for a Hetzner server.
type hetznerHost struct {
	client          *hcloud.Client
	serverID        int64
	region          string
	monthlyCost     float64
	includedTraffic int64
}

func (hh *hetznerHost) RegionID() string {
	return hh.region
}

func (hh *hetznerHost) MonthlyCostUSD() float64 {
	return hh.monthlyCost
}

func (hh *hetznerHost) MonthlyTransferBytes() int64 {
	return hh.includedTraffic
}

// Delete tears down the remote host. An already-deleted host is not an
// error.
func (hh *hetznerHost) Delete(ctx context.Context) error {
	_, _, err := hh.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: hh.serverID})
	if err != nil {
		if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
			return nil
		}
		return wrapHetznerErr("failed to delete server", err)
	}
	return nil
}

// isHetznerRetryable approves transient failures for re-attempts.
func isHetznerRetryable(err error) bool {
	if domain.IsNetworkError(err) {
		return true
	}
	return hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded) ||
		hcloud.IsError(err, hcloud.ErrorCodeConflict)
}

// wrapHetznerErr maps hcloud error codes onto the domain taxonomy.
// Unauthorized and network failures collapse into the session-invalid
// signal: the API gives no way to tell a revoked token from an outage.
func wrapHetznerErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case hcloud.IsError(err, hcloud.ErrorCodeUnauthorized):
		return fmt.Errorf("%s: %w", op, domain.ErrSessionInvalid)
	case domain.IsNetworkError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrSessionInvalid)
	case hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded):
		return fmt.Errorf("%s: %w", op, domain.ErrRateLimited)
	case hcloud.IsError(err, hcloud.ErrorCodeNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
