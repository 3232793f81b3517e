// Package lifecycle moves each server through its view states:
// provisioning, unreachable, and healthy-managed. One controller
// serves the whole registry; each added server gets its own
// background task whose transitions are strictly sequential.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/eventlog"
	"outpostlabs/outpost/internal/registry"
)

// ManagementView is the plain-data payload for the healthy-managed
// view of one server.
type ManagementView struct {
	ID       string
	Name     string
	Hostname string
	Version  string
	Features FeatureSet

	DefaultDataLimit *domain.DataLimit
	MetricsEnabled   bool
	AccessKeys       []domain.AccessKey

	// Managed-host figures; zero values for manual servers.
	RegionID             string
	MonthlyCostUSD       float64
	MonthlyTransferBytes int64
}

// ViewSink receives one-way render requests, identified by server id.
type ViewSink interface {
	ShowProvisioning(serverID string)
	ShowUnreachable(serverID string)
	ShowManagement(view ManagementView)

	// ShowCreationFailure notifies the user that a provisioning wait
	// failed for a reason other than deletion.
	ShowCreationFailure(serverID string, cause error)
}

// UsageStarter is told when a server reaches the healthy state, so
// usage polling can begin.
type UsageStarter interface {
	StartUsagePolling(entry *registry.Entry)
}

// Controller drives per-server lifecycle transitions. All remote work
// happens on background tasks; registry insertion never blocks on it.
// Tasks for one server are strictly sequential: a superseding task
// cancels its predecessor and waits for it to exit before touching
// anything.
type Controller struct {
	reg      *registry.Registry
	views    ViewSink
	reporter eventlog.Reporter
	usage    UsageStarter // may be nil

	mu    sync.Mutex
	tasks map[string]*task
}

// task is one background transition run for a single server.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller. usage may be nil when no poller should be
// started (tests, list-only commands).
func New(reg *registry.Registry, views ViewSink, reporter eventlog.Reporter, usage UsageStarter) *Controller {
	if reporter == nil {
		reporter = eventlog.NopReporter{}
	}
	return &Controller{
		reg:      reg,
		views:    views,
		reporter: reporter,
		usage:    usage,
		tasks:    make(map[string]*task),
	}
}

// Add inserts the server into the registry immediately (so the UI can
// show a placeholder) and continues install-wait and health checks on
// a background task.
func (c *Controller) Add(entry *registry.Entry) error {
	if err := c.reg.Add(entry); err != nil {
		return err
	}

	srv := entry.Server
	if !srv.InstallCompleted {
		// Progress state renders synchronously; the install wait must not
		// block the caller.
		c.views.ShowProvisioning(srv.ID)
	}

	c.startTask(srv.ID, func(ctx context.Context) { c.run(ctx, entry) })
	return nil
}

// Remove cancels the server's background task and deletes it from the
// registry.
func (c *Controller) Remove(id string) {
	c.mu.Lock()
	if t, ok := c.tasks[id]; ok {
		t.cancel()
		delete(c.tasks, id)
	}
	c.mu.Unlock()

	c.reg.Remove(id)
}

// Recheck re-runs the health check for id, e.g. from the unreachable
// view's retry action. Unknown ids are ignored.
func (c *Controller) Recheck(id string) {
	entry, ok := c.reg.Get(id)
	if !ok {
		return
	}
	c.startTask(id, func(ctx context.Context) { c.check(ctx, entry) })
}

// startTask supersedes any in-flight background task for id: the
// previous task is cancelled, and fn does not start until it has
// fully exited. This keeps each server's transitions sequential even
// when rechecks arrive back to back.
func (c *Controller) startTask(id string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	prev := c.tasks[id]
	c.tasks[id] = t
	c.mu.Unlock()

	go func() {
		defer close(t.done)
		if prev != nil {
			prev.cancel()
			<-prev.done
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}

func (c *Controller) run(ctx context.Context, entry *registry.Entry) {
	srv := entry.Server

	if !srv.InstallCompleted {
		err := entry.Manager.WaitForInstall(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrServerDeleted) || ctx.Err() != nil {
				// The server was deleted mid-install. User-initiated, not an
				// error.
				c.reporter.Event("lifecycle", srv.ID, "install wait ended: server deleted")
				return
			}
			c.views.ShowCreationFailure(srv.ID, err)
			c.reporter.Event("lifecycle", srv.ID, fmt.Sprintf("install failed: %v", err))
			return
		}
		c.reg.UpdateServer(srv.ID, func(s *domain.Server) { s.InstallCompleted = true })
		c.reporter.Event("lifecycle", srv.ID, "install completed")
	}

	c.check(ctx, entry)
}

// check runs the health probe and materializes the matching view.
// The registry's derived list entry is updated only after the view is
// known, since its synced flag depends on whether the remote name has
// been resolved.
func (c *Controller) check(ctx context.Context, entry *registry.Entry) {
	srv := entry.Server

	if err := entry.Manager.Health(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.reporter.Event("lifecycle", srv.ID, fmt.Sprintf("health check failed: %v", err))
		c.views.ShowUnreachable(srv.ID)
		c.reg.UpdateEntry(srv.ID)
		return
	}

	c.materialize(ctx, entry)
}

// materialize populates the healthy-managed view from the server's
// management API.
func (c *Controller) materialize(ctx context.Context, entry *registry.Entry) {
	srv := entry.Server

	var (
		info domain.ServerInfo
		keys []domain.AccessKey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = entry.Manager.GetInfo(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		keys, err = entry.Manager.ListAccessKeys(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		// Healthy a moment ago but the snapshot fetch failed; treat it
		// the same as a failed health check.
		c.reporter.Event("lifecycle", srv.ID, fmt.Sprintf("snapshot fetch failed: %v", err))
		c.views.ShowUnreachable(srv.ID)
		c.reg.UpdateEntry(srv.ID)
		return
	}

	// The shared record is mutated under the registry lock, which also
	// refreshes the derived list entry; pollers and list readers never
	// see a torn snapshot.
	c.reg.UpdateServer(srv.ID, func(s *domain.Server) {
		s.Name = info.Name
		s.Hostname = info.Hostname
		s.Version = info.Version
		s.MetricsEnabled = info.MetricsEnabled
		s.DefaultDataLimit = info.DefaultDataLimit
	})

	view := ManagementView{
		ID:               srv.ID,
		Name:             info.Name,
		Hostname:         info.Hostname,
		Version:          info.Version,
		Features:         FeaturesForVersion(info.Version),
		DefaultDataLimit: info.DefaultDataLimit,
		MetricsEnabled:   info.MetricsEnabled,
		AccessKeys:       keys,
	}
	if srv.IsManaged() {
		view.RegionID = srv.Host.RegionID()
		view.MonthlyCostUSD = srv.Host.MonthlyCostUSD()
		view.MonthlyTransferBytes = srv.Host.MonthlyTransferBytes()
	}

	c.views.ShowManagement(view)
	c.reporter.Event("lifecycle", srv.ID, "healthy")

	if c.usage != nil {
		c.usage.StartUsagePolling(entry)
	}
}
