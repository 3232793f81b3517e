package config

import (
	"outpostlabs/outpost/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage outpost configuration",
		Long: "View and modify persistent outpost settings.\n\n" +
			"Configuration is stored at ~/.config/outpost/config.json.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
