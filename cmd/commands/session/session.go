// Package session wires a console for one CLI invocation: keyring
// credential store, sqlite prefs and event log, and the view sinks the
// invoking command supplies.
package session

import (
	"fmt"
	"io"
	"time"

	"outpostlabs/outpost/internal/activation"
	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/config"
	"outpostlabs/outpost/internal/console"
	"outpostlabs/outpost/internal/eventlog"
	"outpostlabs/outpost/internal/lifecycle"
	"outpostlabs/outpost/internal/prefs"
	"outpostlabs/outpost/internal/registry"
	"outpostlabs/outpost/internal/retrygate"
	"outpostlabs/outpost/internal/usage"

	"github.com/spf13/cobra"
)

// Options selects the view sinks for this invocation. Views is
// required; the rest may be nil.
type Options struct {
	Views          lifecycle.ViewSink
	ActivationView activation.View
	UsageView      usage.View
	Prompt         retrygate.Prompter

	// ListSink, when set, receives every derived server-list change.
	// The watch view passes its tui.Sink here so it notices removals.
	ListSink registry.ListSink

	// ErrOut receives degraded-mode warnings and unexpected errors,
	// normally the command's stderr.
	ErrOut io.Writer
}

// Session bundles a console with the persistent repositories backing
// it, so commands can close everything in one call.
type Session struct {
	Console  *console.Console
	Registry *registry.Registry

	prefsRepo  prefs.Repository
	eventsRepo eventlog.Repository
}

// Open builds a console from the process-wide collaborators. The local
// database is best-effort: when it cannot be opened the session still
// works, with prefs and the event trail disabled.
func Open(opts Options) (*Session, error) {
	var (
		prefsRepo  prefs.Repository
		eventsRepo eventlog.Repository
		lastShown  registry.LastShownStore
	)

	if repo, err := prefs.Open(); err == nil {
		prefsRepo = repo
		lastShown = prefs.LastShown{Repo: repo}
	} else if opts.ErrOut != nil {
		fmt.Fprintf(opts.ErrOut, "Warning: preferences unavailable: %v\n", err)
	}

	if repo, err := eventlog.Open(); err == nil {
		eventsRepo = repo
	} else if opts.ErrOut != nil {
		fmt.Fprintf(opts.ErrOut, "Warning: event log unavailable: %v\n", err)
	}

	if cfg, err := config.Load(); err == nil && cfg.UsagePollSeconds > 0 {
		usage.PollInterval = time.Duration(cfg.UsagePollSeconds) * time.Second
	}

	reg := registry.New(opts.ListSink, lastShown)
	c := console.New(console.Options{
		Store:          auth.DefaultStore(),
		Registry:       reg,
		Views:          opts.Views,
		ActivationView: opts.ActivationView,
		UsageView:      opts.UsageView,
		Reporter:       eventlog.NewReporter(eventsRepo, opts.ErrOut),
		Prefs:          prefsRepo,
		Prompt:         opts.Prompt,
	})

	return &Session{
		Console:    c,
		Registry:   reg,
		prefsRepo:  prefsRepo,
		eventsRepo: eventsRepo,
	}, nil
}

// Close stops background polling and releases the repositories.
func (s *Session) Close() {
	s.Console.Close()
	if s.prefsRepo != nil {
		_ = s.prefsRepo.Close()
	}
	if s.eventsRepo != nil {
		_ = s.eventsRepo.Close()
	}
}

// ResolveProvider ensures the --provider flag has a value, falling
// back to the configured default when the flag was not explicitly
// passed. Suitable as a PersistentPreRunE.
func ResolveProvider(cmd *cobra.Command, args []string) error {
	if cmd.Flag("provider").Changed {
		return nil // explicitly provided -- nothing to do
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DefaultProvider != "" {
		cmd.Flag("provider").Value.Set(cfg.DefaultProvider)
		return nil
	}

	return fmt.Errorf("no provider specified: use --provider flag or set a default with 'outpost config set default-provider <name>'")
}
