package server

import (
	"fmt"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/lifecycle"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func LimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit <server>",
		Short: "Show or change the default per-key data limit",
		Long: `Show or change the server-wide default data limit. The default
applies to every access key that has no limit of its own.

Without flags the current default and a suggested value are printed.
The suggestion splits the host's monthly transfer allowance over the
current keys, capped at 50 GB per key.

Examples:
  outpost server limit 12345
  outpost server limit 12345 --set "50 GB"
  outpost server limit 12345 --clear`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLimit,
		SilenceUsage: true,
	}

	cmd.Flags().String("set", "", `New default limit, e.g. "50 GB" or "800 MB"`)
	cmd.Flags().Bool("clear", false, "Remove the default limit")

	return cmd
}

func runLimit(cmd *cobra.Command, args []string) error {
	setValue, _ := cmd.Flags().GetString("set")
	clear, _ := cmd.Flags().GetBool("clear")
	if setValue != "" && clear {
		return fmt.Errorf("--set and --clear are mutually exclusive")
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
	id := entry.Server.ID

	info, err := entry.Manager.GetInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	sess.Registry.UpdateServer(id, func(srv *domain.Server) {
		srv.Version = info.Version
		srv.DefaultDataLimit = info.DefaultDataLimit
	})

	if !lifecycle.FeaturesForVersion(info.Version).DefaultDataLimit {
		return fmt.Errorf("server version %s does not support default data limits", info.Version)
	}

	switch {
	case setValue != "":
		bytes, err := humanize.ParseBytes(setValue)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", setValue, err)
		}
		limit := domain.DataLimit{Bytes: int64(bytes)}
		if err := entry.Manager.SetDefaultDataLimit(cmd.Context(), limit); err != nil {
			return fmt.Errorf("failed to set default limit: %w", err)
		}
		sess.Registry.UpdateServer(id, func(srv *domain.Server) { srv.DefaultDataLimit = &limit })
		fmt.Fprintf(cmd.OutOrStdout(), "Default limit set to %s per key.\n", humanize.Bytes(bytes))

	case clear:
		if err := entry.Manager.RemoveDefaultDataLimit(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear default limit: %w", err)
		}
		sess.Registry.UpdateServer(id, func(srv *domain.Server) { srv.DefaultDataLimit = nil })
		fmt.Fprintln(cmd.OutOrStdout(), "Default limit removed; keys are unlimited unless individually limited.")

	default:
		current := "not set"
		if info.DefaultDataLimit != nil {
			current = humanize.Bytes(uint64(info.DefaultDataLimit.Bytes))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Current default limit: %s\n", current)

		suggested, err := sess.Console.SuggestDefaultLimit(cmd.Context(), id)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Suggested: %s per key\n", humanize.Bytes(uint64(suggested.Bytes)))
		}
	}
	return nil
}
