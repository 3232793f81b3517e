package server

import (
	"outpostlabs/outpost/cmd/commands/session"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage proxy servers",
		Long: `Provision, list, watch, and remove proxy servers.

Managed servers are created through a signed-in cloud account; servers
installed by other means can be attached with their management URL.`,
		PersistentPreRunE: session.ResolveProvider,
	}

	cmd.AddCommand(AddCommand())
	cmd.AddCommand(KeyCommand())
	cmd.AddCommand(LimitCommand())
	cmd.AddCommand(ListCommand())
	cmd.AddCommand(MetricsCommand())
	cmd.AddCommand(RegionsCommand())
	cmd.AddCommand(RemoveCommand())
	cmd.AddCommand(RenameCommand())
	cmd.AddCommand(WatchCommand())

	cmd.PersistentFlags().String("provider", "", "Cloud provider to use (overrides default)")

	return cmd
}
