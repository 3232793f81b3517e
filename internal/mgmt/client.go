// Package mgmt implements the proxy server management API client.
// It talks to the HTTPS management endpoint every server exposes and
// is the only implementation of domain.Manager that crosses the wire.
package mgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/retry"
)

const (
	requestTimeout = 30 * time.Second

	// installPollInterval paces WaitForInstall health probes.
	installPollInterval = 5 * time.Second

	// installWaitLimit bounds WaitForInstall. From this side of the
	// wire a host deleted mid-install is indistinguishable from an
	// install that never brings the API up; either way the wait must
	// end. Installs normally finish within a few minutes.
	installWaitLimit = 15 * time.Minute
)

// Compile-time check that Client satisfies domain.Manager.
var _ domain.Manager = (*Client)(nil)

// Client is an HTTP implementation of domain.Manager. The management
// API uses a capability URL: the path carries an unguessable secret,
// so no separate credential is attached to requests.
type Client struct {
	apiURL string
	client *http.Client

	// retryCfg governs re-attempts for idempotent GETs only.
	retryCfg retry.Config

	// installWait bounds WaitForInstall; a field so tests can shorten
	// it.
	installWait time.Duration
}

// New returns a client for the management API rooted at apiURL.
func New(apiURL string) *Client {
	return &Client{
		apiURL:      apiURL,
		client:      &http.Client{Timeout: requestTimeout},
		retryCfg:    retry.DefaultConfig(),
		installWait: installWaitLimit,
	}
}

// APIURL returns the management API root this client talks to.
func (c *Client) APIURL() string {
	return c.apiURL
}

// --- API request/response types ---

type serverResponse struct {
	Name               string     `json:"name"`
	ServerID           string     `json:"serverId"`
	Version            string     `json:"version"`
	MetricsEnabled     bool       `json:"metricsEnabled"`
	CreatedTimestampMs int64      `json:"createdTimestampMs"`
	HostnameForKeys    string     `json:"hostnameForAccessKeys"`
	AccessKeyDataLimit *limitBody `json:"accessKeyDataLimit,omitempty"`
}

type limitBody struct {
	Bytes int64 `json:"bytes"`
}

type accessKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AccessURL string     `json:"accessUrl"`
	DataLimit *limitBody `json:"dataLimit,omitempty"`
}

type accessKeyListResponse struct {
	AccessKeys []accessKeyResponse `json:"accessKeys"`
}

type transferResponse struct {
	BytesTransferredByUserID map[string]int64 `json:"bytesTransferredByUserId"`
}

// --- domain.Manager implementation ---

func (c *Client) Health(ctx context.Context) error {
	var out serverResponse
	if err := c.get(ctx, "/server", &out); err != nil {
		return fmt.Errorf("management api unreachable: %w", err)
	}
	return nil
}

// WaitForInstall probes the management API until it responds. The
// remote install script brings the API up as its last step, so a
// successful probe means the install finished. The wait is bounded:
// an API that never comes up within the limit is reported as a failed
// install rather than spinning for the life of the process, which
// also ends the wait for a host deleted cloud-side mid-install.
func (c *Client) WaitForInstall(ctx context.Context) error {
	deadline := time.NewTimer(c.installWait)
	defer deadline.Stop()

	for {
		lastErr := c.Health(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timer := time.NewTimer(installPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline.C:
			timer.Stop()
			return fmt.Errorf("install did not finish within %s: %w", c.installWait, lastErr)
		case <-timer.C:
		}
	}
}

func (c *Client) GetInfo(ctx context.Context) (domain.ServerInfo, error) {
	var out serverResponse
	if err := c.get(ctx, "/server", &out); err != nil {
		return domain.ServerInfo{}, fmt.Errorf("failed to fetch server info: %w", err)
	}

	info := domain.ServerInfo{
		Name:             out.Name,
		Hostname:         out.HostnameForKeys,
		Version:          out.Version,
		MetricsEnabled:   out.MetricsEnabled,
		InstallCompleted: true,
	}
	if out.AccessKeyDataLimit != nil {
		info.DefaultDataLimit = &domain.DataLimit{Bytes: out.AccessKeyDataLimit.Bytes}
	}
	return info, nil
}

func (c *Client) Rename(ctx context.Context, name string) error {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPut, "/name", body, nil); err != nil {
		return fmt.Errorf("failed to rename server: %w", err)
	}
	return nil
}

func (c *Client) SetHostname(ctx context.Context, hostname string) error {
	body := struct {
		Hostname string `json:"hostname"`
	}{Hostname: hostname}
	if err := c.do(ctx, http.MethodPut, "/server/hostname-for-access-keys", body, nil); err != nil {
		return fmt.Errorf("failed to set hostname: %w", err)
	}
	return nil
}

func (c *Client) ListAccessKeys(ctx context.Context) ([]domain.AccessKey, error) {
	var out accessKeyListResponse
	if err := c.get(ctx, "/access-keys", &out); err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}

	keys := make([]domain.AccessKey, 0, len(out.AccessKeys))
	for _, k := range out.AccessKeys {
		keys = append(keys, toDomainKey(k))
	}
	return keys, nil
}

func (c *Client) CreateAccessKey(ctx context.Context) (*domain.AccessKey, error) {
	var out accessKeyResponse
	if err := c.do(ctx, http.MethodPost, "/access-keys", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to create access key: %w", err)
	}
	key := toDomainKey(out)
	return &key, nil
}

func (c *Client) RenameAccessKey(ctx context.Context, id, name string) error {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPut, "/access-keys/"+id+"/name", body, nil); err != nil {
		return fmt.Errorf("failed to rename access key %q: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteAccessKey(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/access-keys/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete access key %q: %w", id, err)
	}
	return nil
}

func (c *Client) SetDefaultDataLimit(ctx context.Context, limit domain.DataLimit) error {
	body := struct {
		Limit limitBody `json:"limit"`
	}{Limit: limitBody{Bytes: limit.Bytes}}
	if err := c.do(ctx, http.MethodPut, "/server/access-key-data-limit", body, nil); err != nil {
		return fmt.Errorf("failed to set default data limit: %w", err)
	}
	return nil
}

func (c *Client) RemoveDefaultDataLimit(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/server/access-key-data-limit", nil, nil); err != nil {
		return fmt.Errorf("failed to remove default data limit: %w", err)
	}
	return nil
}

func (c *Client) SetAccessKeyDataLimit(ctx context.Context, keyID string, limit domain.DataLimit) error {
	body := struct {
		Limit limitBody `json:"limit"`
	}{Limit: limitBody{Bytes: limit.Bytes}}
	if err := c.do(ctx, http.MethodPut, "/access-keys/"+keyID+"/data-limit", body, nil); err != nil {
		return fmt.Errorf("failed to set data limit for key %q: %w", keyID, err)
	}
	return nil
}

func (c *Client) RemoveAccessKeyDataLimit(ctx context.Context, keyID string) error {
	if err := c.do(ctx, http.MethodDelete, "/access-keys/"+keyID+"/data-limit", nil, nil); err != nil {
		return fmt.Errorf("failed to remove data limit for key %q: %w", keyID, err)
	}
	return nil
}

func (c *Client) SetMetricsEnabled(ctx context.Context, enabled bool) error {
	body := struct {
		MetricsEnabled bool `json:"metricsEnabled"`
	}{MetricsEnabled: enabled}
	if err := c.do(ctx, http.MethodPut, "/metrics/enabled", body, nil); err != nil {
		return fmt.Errorf("failed to set metrics sharing: %w", err)
	}
	return nil
}

func (c *Client) UsageByKey(ctx context.Context) (map[string]int64, error) {
	var out transferResponse
	if err := c.get(ctx, "/metrics/transfer", &out); err != nil {
		return nil, fmt.Errorf("failed to fetch usage: %w", err)
	}
	return out.BytesTransferredByUserID, nil
}

func toDomainKey(k accessKeyResponse) domain.AccessKey {
	key := domain.AccessKey{
		ID:        k.ID,
		Name:      k.Name,
		AccessURL: k.AccessURL,
	}
	if k.DataLimit != nil {
		key.DataLimit = &domain.DataLimit{Bytes: k.DataLimit.Bytes}
	}
	return key
}

// --- HTTP helpers ---

// get issues an idempotent GET, retrying transient transport failures.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.Do(ctx, c.retryCfg, domain.IsNetworkError, func() error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Preserve the wrapped net.Error so callers can classify
		// the failure as transient.
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// statusError maps non-2xx HTTP statuses to domain sentinels.
func statusError(status int) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: http %d", domain.ErrUnauthorized, status)
	case http.StatusNotFound:
		return fmt.Errorf("%w: http %d", domain.ErrNotFound, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d", domain.ErrRateLimited, status)
	}
	return fmt.Errorf("management api returned http %d", status)
}
