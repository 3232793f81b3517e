package server

import (
	"fmt"

	"outpostlabs/outpost/cmd/commands/session"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/registry"
	"outpostlabs/outpost/internal/tui"

	"github.com/spf13/cobra"
)

func WatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [server]",
		Short: "Watch a server's live usage",
		Long: `Open the live view for one server: health, configuration, and
per-key transfer usage refreshed while the view is open.

Without an argument the last watched server is reopened, or the only
server when there is exactly one.

Keys: r rechecks an unreachable server, q quits.`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runWatch,
		SilenceUsage: true,
	}

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	sink := &tui.Sink{}
	sess, err := session.Open(session.Options{
		Views:     sink,
		UsageView: sink,
		ListSink:  sink,
		Prompt:    session.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
		ErrOut:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	providerName := cmd.Flag("provider").Value.String()
	if err := sess.Console.Resume(cmd.Context(), providerName); err != nil {
		return err
	}

	var ref string
	if len(args) == 1 {
		ref = args[0]
	}
	entry, err := pickServer(sess, ref)
	if err != nil {
		return err
	}
	id := entry.Server.ID
	var name string
	sess.Registry.ReadServer(id, func(srv *domain.Server) { name = srv.Name })

	if sess.Console.ShouldShowHint("watch-keys") {
		fmt.Fprintln(cmd.ErrOrStderr(), "Tip: press r to recheck an unreachable server, q to quit.")
		sess.Console.DismissHint("watch-keys")
	}
	if sess.Console.ShouldPromptMetrics(id) {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"Tip: share anonymous metrics with 'outpost server metrics %s on'.\n", id)
		sess.Console.MarkMetricsPrompted(id)
	}

	return tui.RunWatch(sink, id, name, "checking",
		func() { _, _ = sess.Console.ShowServer(id) })
}

// pickServer resolves which server to watch: the explicit reference,
// the persisted last-shown pointer, or the only known server.
func pickServer(sess *session.Session, ref string) (*registry.Entry, error) {
	if ref != "" {
		return entryFor(sess, ref)
	}

	if id := sess.Console.LastShownServer(); id != "" {
		if entry, ok := sess.Registry.Get(id); ok {
			return entry, nil
		}
	}

	items := sess.Registry.List()
	if len(items) == 1 {
		entry, _ := sess.Registry.Get(items[0].ID)
		return entry, nil
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no servers found; create one with 'outpost server add'")
	}
	return nil, fmt.Errorf("multiple servers; pass an id or name (see 'outpost server list')")
}
