// Package usage periodically refreshes per-key transferred-byte
// counts for the currently displayed server.
package usage

import (
	"context"
	"fmt"
	"time"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/eventlog"
	"outpostlabs/outpost/internal/registry"
)

// PollInterval is the period between usage refreshes. Exported as a
// variable so tests can override it for speed.
var PollInterval = time.Minute

// KeyUsage is one access key's row in the usage view.
type KeyUsage struct {
	KeyID string
	Name  string

	// Bytes transferred over the current reporting window. Zero when
	// the key is absent from the server's usage map.
	Bytes int64

	// Limit is the effective quota for this key: its own limit when
	// set, otherwise the server default. Nil means unlimited.
	Limit *domain.DataLimit
}

// Report is the plain-data payload pushed to the usage view.
type Report struct {
	TotalBytes int64
	Keys       []KeyUsage

	// BaselineBytes is the single scale value for display: the
	// maximum of the largest transferred count and the largest
	// configured limit. Zero is a valid baseline.
	BaselineBytes int64
}

// View receives one-way usage render requests.
type View interface {
	ShowUsage(serverID string, report Report)
}

// Selection answers whether a server is still the currently displayed
// one, and provides lock-guarded access to its record so a report
// never reads fields mid-update. Implemented by the registry.
type Selection interface {
	IsSelected(id string) bool
	ReadServer(id string, read func(srv *domain.Server)) bool
}

// Poller refreshes usage for one server until that server is no
// longer selected. The stop condition is checked at the top of every
// tick and again after each fetch resolves, so a tick that was
// already in flight when the selection changed never updates the old
// server's view.
type Poller struct {
	entry    *registry.Entry
	sel      Selection
	view     View
	reporter eventlog.Reporter
	interval time.Duration
}

// NewPoller creates a poller for the given server.
func NewPoller(entry *registry.Entry, sel Selection, view View, reporter eventlog.Reporter) *Poller {
	if reporter == nil {
		reporter = eventlog.NopReporter{}
	}
	return &Poller{
		entry:    entry,
		sel:      sel,
		view:     view,
		reporter: reporter,
		interval: PollInterval,
	}
}

// Run polls until the server stops being selected or ctx is done. An
// immediate first tick precedes the fixed-period schedule.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if !p.sel.IsSelected(p.entry.Server.ID) {
			return
		}
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	id := p.entry.Server.ID

	transferred, err := p.entry.Manager.UsageByKey(ctx)
	if err != nil {
		p.absorb(ctx, err)
		return
	}
	keys, err := p.entry.Manager.ListAccessKeys(ctx)
	if err != nil {
		p.absorb(ctx, err)
		return
	}

	var defaultLimit *domain.DataLimit
	if !p.sel.ReadServer(id, func(srv *domain.Server) { defaultLimit = srv.DefaultDataLimit }) {
		return
	}
	report := BuildReport(defaultLimit, keys, transferred)

	// The fetch may have raced a selection change.
	if !p.sel.IsSelected(id) {
		return
	}
	p.view.ShowUsage(id, report)
}

// absorb swallows network-class failures (logged only) and escalates
// everything else to the process-wide reporter.
func (p *Poller) absorb(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if domain.IsNetworkError(err) || domain.IsSessionInvalid(err) {
		p.reporter.Event("usage", p.entry.Server.ID, fmt.Sprintf("usage tick skipped: %v", err))
		return
	}
	p.reporter.ReportUnexpected("usage", err)
}

// BuildReport sums the usage map, resolves each known key's effective
// limit against the server-wide default, and computes the display
// baseline.
func BuildReport(defaultLimit *domain.DataLimit, keys []domain.AccessKey, transferred map[string]int64) Report {
	var total, maxTransferred, maxLimit int64
	for _, bytes := range transferred {
		total += bytes
		if bytes > maxTransferred {
			maxTransferred = bytes
		}
	}

	rows := make([]KeyUsage, 0, len(keys))
	for _, key := range keys {
		limit := domain.EffectiveLimit(defaultLimit, key)
		if limit != nil && limit.Bytes > maxLimit {
			maxLimit = limit.Bytes
		}
		rows = append(rows, KeyUsage{
			KeyID: key.ID,
			Name:  key.Name,
			Bytes: transferred[key.ID],
			Limit: limit,
		})
	}
	if defaultLimit != nil && defaultLimit.Bytes > maxLimit {
		maxLimit = defaultLimit.Bytes
	}

	baseline := maxTransferred
	if maxLimit > baseline {
		baseline = maxLimit
	}

	return Report{TotalBytes: total, Keys: rows, BaselineBytes: baseline}
}
