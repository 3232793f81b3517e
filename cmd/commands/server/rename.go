package server

import (
	"fmt"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/util"

	"github.com/spf13/cobra"
)

func RenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <server> <name>",
		Short: "Rename a proxy server",
		Long: `Rename a proxy server. The name is stored on the server itself, so
every console sees it.

Example:
  outpost server rename 12345 frankfurt-2`,
		Args:         cobra.ExactArgs(2),
		RunE:         runRename,
		SilenceUsage: true,
	}

	return cmd
}

func runRename(cmd *cobra.Command, args []string) error {
	name := args[1]
	if err := util.ValidateServerName(name); err != nil {
		return err
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

	if err := entry.Manager.Rename(cmd.Context(), name); err != nil {
		return fmt.Errorf("failed to rename server: %w", err)
	}
	sess.Registry.UpdateServer(entry.Server.ID, func(srv *domain.Server) { srv.Name = name })

	fmt.Fprintf(cmd.OutOrStdout(), "Server renamed to %q.\n", name)
	return nil
}
