package server

import (
	"fmt"

	"outpostlabs/outpost/internal/domain"

	"github.com/spf13/cobra"
)

func MetricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics <server> <on|off>",
		Short: "Toggle anonymous metrics sharing",
		Long: `Toggle anonymous metrics sharing for a server. When enabled, the
server reports aggregate usage figures to its software vendor; no user
identities or destinations are included.

Example:
  outpost server metrics 12345 on`,
		Args:         cobra.ExactArgs(2),
		RunE:         runMetrics,
		SilenceUsage: true,
	}

	return cmd
}

func runMetrics(cmd *cobra.Command, args []string) error {
	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return fmt.Errorf("expected 'on' or 'off', got %q", args[1])
	}

	sess, err := openResumed(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	entry, err := entryFor(sess, args[0])
	if err != nil {
		return err
	}

	if err := entry.Manager.SetMetricsEnabled(cmd.Context(), enabled); err != nil {
		return fmt.Errorf("failed to update metrics setting: %w", err)
	}
	id := entry.Server.ID
	var name string
	sess.Registry.UpdateServer(id, func(srv *domain.Server) {
		srv.MetricsEnabled = enabled
		name = srv.Name
	})
	sess.Console.MarkMetricsPrompted(id)

	if enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "Metrics sharing enabled for %q.\n", name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Metrics sharing disabled for %q.\n", name)
	}
	return nil
}
