package cmd

import (
	"os"

	"outpostlabs/outpost/cmd/commands/account"
	cfgcmd "outpostlabs/outpost/cmd/commands/config"
	"outpostlabs/outpost/cmd/commands/server"
	"outpostlabs/outpost/internal/providers"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "outpost",
		Short: "A CLI tool for running your own fleet of proxy servers",
		Long: `outpost provisions proxy servers on cloud providers and manages them
through their management API: access keys, per-key data limits, and
live transfer usage.

Supported providers: Hetzner (more coming soon). Servers installed by
other means can be attached with their management URL.

Quick start:
  outpost account login hetzner      # Store your API token and activate
  outpost server add --region fsn1   # Provision a new proxy server
  outpost server list                # List all managed servers
  outpost server watch               # Live usage view`,
	}

	cmd.AddCommand(account.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(server.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	providers.RegisterHetzner()

	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
