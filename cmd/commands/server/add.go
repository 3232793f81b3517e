package server

import (
	"fmt"

	"outpostlabs/outpost/cmd/commands/session"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/tui"

	"github.com/spf13/cobra"
)

func AddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a proxy server",
		Long: `Provision a new proxy server, or attach an existing one.

With a name and --region, a new host is created through the signed-in
account and the proxy software is installed on it; the live view stays
open while the install runs.

With --manual, an already-installed server is attached by its
management URL instead. No cloud account is needed.

Examples:
  outpost server add frankfurt-1 --region fsn1
  outpost server add --manual https://203.0.113.7:8081/SECRET`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if manual, _ := cmd.Flags().GetString("manual"); manual != "" {
				return nil // no cloud account involved
			}
			return session.ResolveProvider(cmd, args)
		},
		RunE:         runAdd,
		SilenceUsage: true,
	}

	cmd.Flags().String("region", "", "Region to create the host in (see 'outpost server regions')")
	cmd.Flags().String("manual", "", "Management URL of an existing server to attach")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	manualURL, _ := cmd.Flags().GetString("manual")

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

	if manualURL != "" {
		if len(args) != 0 {
			return fmt.Errorf("--manual takes no name argument; the server keeps its own name")
		}

		srv, err := sess.Console.AddManualServer(cmd.Context(), manualURL)
		if err != nil {
			return err
		}
		id := srv.ID
		// The name resolves asynchronously once the first health check
		// lands; read whatever is known so far under the registry lock.
		var name string
		sess.Registry.ReadServer(id, func(s *domain.Server) { name = s.Name })
		fmt.Fprintf(cmd.ErrOrStderr(), "Attached %q.\n", name)

		sess.Registry.Select(id)
		return tui.RunWatch(sink, id, name, "checking", func() { _, _ = sess.Console.ShowServer(id) })
	}

	if len(args) != 1 {
		return fmt.Errorf("a server name is required (or use --manual)")
	}
	name := args[0]

	region, _ := cmd.Flags().GetString("region")
	if region == "" {
		return fmt.Errorf("--region is required (see 'outpost server regions')")
	}

	providerName := cmd.Flag("provider").Value.String()
	if err := sess.Console.Resume(cmd.Context(), providerName); err != nil {
		return err
	}

	srv, err := sess.Console.AddServer(cmd.Context(), region, name)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	id := srv.ID
	if srv.IsManaged() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Created host %s in %s ($%.2f/month).\n",
			id, srv.Host.RegionID(), srv.Host.MonthlyCostUSD())
	}

	sess.Registry.Select(id)
	// No recheck binding: the install wait owns the server's task until
	// it completes, and a recheck would supersede it.
	return tui.RunWatch(sink, id, name, "provisioning", nil)
}
