// Package console ties the session together: one signed-in cloud
// account, the server registry, per-server lifecycle tasks, and usage
// polling for the displayed server. Commands talk to a Console, never
// to the pieces directly.
package console

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"outpostlabs/outpost/internal/activation"
	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/datalimit"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/eventlog"
	"outpostlabs/outpost/internal/lifecycle"
	"outpostlabs/outpost/internal/mgmt"
	"outpostlabs/outpost/internal/prefs"
	"outpostlabs/outpost/internal/providers"
	"outpostlabs/outpost/internal/registry"
	"outpostlabs/outpost/internal/retrygate"
	"outpostlabs/outpost/internal/usage"
	"outpostlabs/outpost/internal/util"
)

// managementPort is where the install script exposes the proxy's
// management API on provisioned hosts.
const managementPort = "8081"

// Options carries the console's collaborators. Store, Registry and
// Views are required; the rest may be nil.
type Options struct {
	Store          auth.Store
	Registry       *registry.Registry
	Views          lifecycle.ViewSink
	ActivationView activation.View
	UsageView      usage.View
	Reporter       eventlog.Reporter
	Prefs          prefs.Repository
	Prompt         retrygate.Prompter
}

// Console is the session orchestrator.
type Console struct {
	store     auth.Store
	reg       *registry.Registry
	ctl       *lifecycle.Controller
	reporter  eventlog.Reporter
	prefs     prefs.Repository
	usageView usage.View
	actView   activation.View
	gate      *retrygate.Gate

	// managerFor builds the management client for a server. Swappable
	// in tests.
	managerFor func(apiURL string) domain.Manager

	mu       sync.Mutex
	account  domain.CloudAccount
	actLoop  *activation.Loop
	polling  map[string]struct{}
	shutdown context.CancelFunc
	bg       context.Context
}

// New wires a console from its collaborators.
func New(opts Options) *Console {
	if opts.Reporter == nil {
		opts.Reporter = eventlog.NopReporter{}
	}

	bg, shutdown := context.WithCancel(context.Background())
	c := &Console{
		store:     opts.Store,
		reg:       opts.Registry,
		reporter:  opts.Reporter,
		prefs:     opts.Prefs,
		usageView: opts.UsageView,
		actView:   opts.ActivationView,
		polling:   make(map[string]struct{}),
		bg:        bg,
		shutdown:  shutdown,
		managerFor: func(apiURL string) domain.Manager {
			return mgmt.New(apiURL)
		},
	}
	c.gate = retrygate.New(opts.Prompt, c.disconnect)
	c.ctl = lifecycle.New(opts.Registry, opts.Views, opts.Reporter, c)
	return c
}

// Close stops background polling.
func (c *Console) Close() {
	c.shutdown()
}

// Account returns the signed-in account, or nil.
func (c *Console) Account() domain.CloudAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// Controller exposes lifecycle actions (recheck) to commands.
func (c *Console) Controller() *lifecycle.Controller {
	return c.ctl
}

// SignIn stores the token, opens the provider session, and drives the
// activation flow until the account can provision hosts. On success
// the account's existing proxy servers are loaded into the registry.
//
// A cancelled activation rolls the sign-in back: the token is removed
// again and domain.ErrCancelled is returned.
func (c *Console) SignIn(ctx context.Context, provider, token string) error {
	if err := c.store.SetToken(provider, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	account, err := providers.Get(provider, c.store)
	if err != nil {
		_ = c.store.DeleteToken(provider)
		return err
	}

	loop := activation.New(account, c.gate, c.actView)
	c.mu.Lock()
	c.account = account
	c.actLoop = loop
	c.mu.Unlock()

	if err := loop.Run(ctx); err != nil {
		if domain.IsCancelled(err) {
			_ = c.disconnect(ctx)
			return domain.ErrCancelled
		}
		return err
	}

	c.reporter.Event("console", "", "signed in: "+account.ProviderTag())
	return c.loadServers(ctx, account)
}

// Resume reopens a previous session from the stored credential,
// skipping the activation flow, and loads the account's servers. Used
// by commands that assume an earlier sign-in.
func (c *Console) Resume(ctx context.Context, provider string) error {
	account, err := providers.Get(provider, c.store)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.account = account
	c.mu.Unlock()

	return c.loadServers(ctx, account)
}

// CancelActivation cooperatively stops a running sign-in flow.
func (c *Console) CancelActivation() {
	c.mu.Lock()
	loop := c.actLoop
	c.mu.Unlock()
	if loop != nil {
		loop.Cancel()
	}
}

// SignOut disconnects the current account: the stored credential is
// deleted and every server belonging to the account is removed from
// the registry. Remote hosts are left running.
func (c *Console) SignOut(ctx context.Context) error {
	c.mu.Lock()
	signedIn := c.account != nil
	c.mu.Unlock()
	if !signedIn {
		return fmt.Errorf("not signed in")
	}
	return c.disconnect(ctx)
}

// disconnect is also the gate's abandon side effect. The credential
// must be gone before this returns, so a racing gated call observes
// "no account" rather than retrying against a dead session.
func (c *Console) disconnect(ctx context.Context) error {
	c.mu.Lock()
	account := c.account
	c.account = nil
	c.actLoop = nil
	c.mu.Unlock()

	if account == nil {
		return nil
	}

	tag := account.ProviderTag()
	_ = c.store.DeleteToken(tag)
	c.reg.DisconnectProvider(tag)
	c.reporter.Event("console", "", "account disconnected: "+tag)
	return nil
}

// loadServers brings the account's provisioned servers under
// lifecycle control.
func (c *Console) loadServers(ctx context.Context, account domain.CloudAccount) error {
	servers, err := retrygate.DoValue(ctx, c.gate, func(ctx context.Context) ([]domain.Server, error) {
		return account.ListServers(ctx)
	})
	if err != nil {
		return err
	}

	for i := range servers {
		srv := &servers[i]
		entry := &registry.Entry{
			Server:  srv,
			Manager: c.managerFor(managementURL(srv.Hostname)),
		}
		if err := c.ctl.Add(entry); err != nil {
			c.reporter.Event("console", srv.ID, fmt.Sprintf("skipped during load: %v", err))
		}
	}
	return nil
}

// AddServer provisions a new managed server in the given region and
// places it under lifecycle control. The returned server is still
// installing; progress is delivered through the view sink.
func (c *Console) AddServer(ctx context.Context, region, name string) (*domain.Server, error) {
	if err := util.ValidateServerName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	account := c.account
	c.mu.Unlock()
	if account == nil {
		return nil, fmt.Errorf("not signed in")
	}

	srv, err := retrygate.DoValue(ctx, c.gate, func(ctx context.Context) (*domain.Server, error) {
		return account.CreateServer(ctx, region, name)
	})
	if err != nil {
		return nil, err
	}

	entry := &registry.Entry{
		Server:  srv,
		Manager: c.managerFor(managementURL(srv.Hostname)),
	}
	if err := c.ctl.Add(entry); err != nil {
		return nil, err
	}
	return srv, nil
}

// AddManualServer registers an existing server by its management API
// URL. The server must be reachable at add time; its identity is the
// URL itself.
func (c *Console) AddManualServer(ctx context.Context, apiURL string) (*domain.Server, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	parsed, err := url.Parse(apiURL)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid management URL %q: must be https", apiURL)
	}

	manager := c.managerFor(apiURL)
	info, err := manager.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("server did not respond at %s: %w", parsed.Host, err)
	}

	srv := &domain.Server{
		ID:               apiURL,
		Name:             info.Name,
		Hostname:         info.Hostname,
		Provider:         "manual",
		Kind:             domain.KindManual,
		InstallCompleted: true,
		DefaultDataLimit: info.DefaultDataLimit,
		MetricsEnabled:   info.MetricsEnabled,
		CreatedAt:        time.Now(),
		Version:          info.Version,
	}

	entry := &registry.Entry{Server: srv, Manager: manager}
	if err := c.ctl.Add(entry); err != nil {
		return nil, err
	}
	return srv, nil
}

// RemoveServer forgets a server. For managed servers destroyHost also
// tears down the cloud host; manual servers are always local-only.
func (c *Console) RemoveServer(ctx context.Context, id string, destroyHost bool) error {
	entry, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("unknown server %q", id)
	}

	if destroyHost && entry.Server.IsManaged() {
		err := c.gate.Do(ctx, func(ctx context.Context) error {
			return entry.Server.Host.Delete(ctx)
		})
		if err != nil {
			return err
		}
	}

	c.ctl.Remove(id)
	c.reporter.Event("console", id, "server removed")
	return nil
}

// ShowServer selects id as the displayed server, persists the
// last-shown pointer, and refreshes its state.
func (c *Console) ShowServer(id string) (*registry.Entry, error) {
	entry, ok := c.reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown server %q", id)
	}

	c.reg.Select(id)
	c.ctl.Recheck(id)
	return entry, nil
}

// LastShownServer returns the persisted last-displayed server id when
// it still exists in the registry, else "".
func (c *Console) LastShownServer() string {
	if c.prefs == nil {
		return ""
	}
	id, err := prefs.LastShown{Repo: c.prefs}.LastShownServer()
	if err != nil || id == "" {
		return ""
	}
	if _, ok := c.reg.Get(id); !ok {
		return ""
	}
	return id
}

// SuggestDefaultLimit computes the suggested default per-key quota
// for a server.
func (c *Console) SuggestDefaultLimit(ctx context.Context, id string) (domain.DataLimit, error) {
	entry, ok := c.reg.Get(id)
	if !ok {
		return domain.DataLimit{}, fmt.Errorf("unknown server %q", id)
	}
	return datalimit.ComputeDefault(ctx, entry.Server, entry.Manager, nil), nil
}

// ShouldShowHint reports whether the one-time hint for a feature has
// not been dismissed yet.
func (c *Console) ShouldShowHint(feature string) bool {
	if c.prefs == nil {
		return false
	}
	v, err := c.prefs.Get(prefs.FeatureDismissedKey(feature))
	return err == nil && v == ""
}

// DismissHint marks a feature hint as seen.
func (c *Console) DismissHint(feature string) {
	if c.prefs == nil {
		return
	}
	_ = c.prefs.Set(prefs.FeatureDismissedKey(feature), "1")
}

// ShouldPromptMetrics reports whether the metrics opt-in nudge has not
// yet been shown for this server.
func (c *Console) ShouldPromptMetrics(serverID string) bool {
	if c.prefs == nil {
		return false
	}
	v, err := c.prefs.Get(prefs.MetricsPromptedKey(serverID))
	return err == nil && v == ""
}

// MarkMetricsPrompted records that the metrics nudge was shown.
func (c *Console) MarkMetricsPrompted(serverID string) {
	if c.prefs == nil {
		return
	}
	_ = c.prefs.Set(prefs.MetricsPromptedKey(serverID), "1")
}

// StartUsagePolling launches a usage poller for the entry unless one
// is already running. Satisfies the lifecycle controller's
// UsageStarter contract.
func (c *Console) StartUsagePolling(entry *registry.Entry) {
	if c.usageView == nil {
		return
	}

	id := entry.Server.ID
	c.mu.Lock()
	if _, running := c.polling[id]; running {
		c.mu.Unlock()
		return
	}
	c.polling[id] = struct{}{}
	c.mu.Unlock()

	poller := usage.NewPoller(entry, c.reg, c.usageView, c.reporter)
	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.polling, id)
			c.mu.Unlock()
		}()
		poller.Run(c.bg)
	}()
}

// managementURL derives the management API root for a provisioned
// host from its address.
func managementURL(hostname string) string {
	return "https://" + net.JoinHostPort(hostname, managementPort)
}
