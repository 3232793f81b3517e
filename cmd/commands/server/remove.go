package server

import (
	"bufio"
	"fmt"
	"strings"

	"outpostlabs/outpost/internal/domain"

	"github.com/spf13/cobra"
)

func RemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <server>",
		Short: "Remove a proxy server",
		Long: `Remove a proxy server.

For servers provisioned through a cloud account the remote host is
destroyed as well, unless --keep-host is given. Manually attached
servers are only forgotten; the host keeps running.

Examples:
  outpost server remove frankfurt-1
  outpost server remove 12345 --keep-host`,
		Args:         cobra.ExactArgs(1),
		RunE:         runRemove,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("keep-host", false, "Forget the server without destroying the cloud host")
	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt")

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	keepHost, _ := cmd.Flags().GetBool("keep-host")
	yes, _ := cmd.Flags().GetBool("yes")

	sess, err := openResumed(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	entry, err := entryFor(sess, args[0])
	if err != nil {
		return err
	}
	id := entry.Server.ID
	var name string
	managed := false
	sess.Registry.ReadServer(id, func(srv *domain.Server) {
		name = srv.Name
		managed = srv.IsManaged()
	})

	destroy := !keepHost && managed
	if destroy && !yes {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"This permanently destroys the host for %q (ID: %s). Continue? [y/N]: ", name, id)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.ErrOrStderr(), "Removal cancelled.")
			return nil
		}
	}

	if err := sess.Console.RemoveServer(cmd.Context(), id, destroy); err != nil {
		return fmt.Errorf("failed to remove server: %w", err)
	}

	if destroy {
		fmt.Fprintf(cmd.OutOrStdout(), "Server %q removed and host destroyed.\n", name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Server %q removed. The host keeps running.\n", name)
	}
	return nil
}
