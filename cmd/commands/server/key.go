package server

import (
	"fmt"
	"text/tabwriter"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/lifecycle"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func KeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage a server's access keys",
		Long: `Manage the access keys a proxy server hands out. Each key carries a
connection URL and, optionally, its own data limit.`,
	}

	cmd.AddCommand(keyListCommand())
	cmd.AddCommand(keyAddCommand())
	cmd.AddCommand(keyRenameCommand())
	cmd.AddCommand(keyRemoveCommand())
	cmd.AddCommand(keyLimitCommand())

	return cmd
}

func keyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <server>",
		Short: "List access keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openResumed(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := entryFor(sess, args[0])
			if err != nil {
				return err
			}

			keys, err := entry.Manager.ListAccessKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list access keys: %w", err)
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No access keys.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLIMIT\tACCESS URL")
			fmt.Fprintln(w, "--\t----\t-----\t----------")
			for _, key := range keys {
				limit := "default"
				if key.DataLimit != nil {
					limit = humanize.Bytes(uint64(key.DataLimit.Bytes))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key.ID, key.Name, limit, key.AccessURL)
			}
			return w.Flush()
		},
		SilenceUsage: true,
	}
}

func keyAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <server>",
		Short: "Create a new access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openResumed(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := entryFor(sess, args[0])
			if err != nil {
				return err
			}

			key, err := entry.Manager.CreateAccessKey(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create access key: %w", err)
			}

			if name, _ := cmd.Flags().GetString("name"); name != "" {
				if err := entry.Manager.RenameAccessKey(cmd.Context(), key.ID, name); err != nil {
					return fmt.Errorf("key %s created but rename failed: %w", key.ID, err)
				}
				key.Name = name
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created key %s.\n", key.ID)
			fmt.Fprintln(cmd.OutOrStdout(), key.AccessURL)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("name", "", "Display name for the new key")

	return cmd
}

func keyRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <server> <key-id> <name>",
		Short: "Rename an access key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openResumed(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := entryFor(sess, args[0])
			if err != nil {
				return err
			}

			if err := entry.Manager.RenameAccessKey(cmd.Context(), args[1], args[2]); err != nil {
				return fmt.Errorf("failed to rename key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key %s renamed to %q.\n", args[1], args[2])
			return nil
		},
		SilenceUsage: true,
	}
}

func keyRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <server> <key-id>",
		Short: "Revoke an access key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openResumed(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := entryFor(sess, args[0])
			if err != nil {
				return err
			}

			if err := entry.Manager.DeleteAccessKey(cmd.Context(), args[1]); err != nil {
				return fmt.Errorf("failed to remove key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key %s revoked.\n", args[1])
			return nil
		},
		SilenceUsage: true,
	}
}

func keyLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit <server> <key-id>",
		Short: "Set or clear one key's data limit",
		Long: `Set or clear a per-key data limit. A key's own limit overrides the
server default.

Examples:
  outpost server key limit 12345 7 --set "10 GB"
  outpost server key limit 12345 7 --clear`,
		Args:         cobra.ExactArgs(2),
		RunE:         runKeyLimit,
		SilenceUsage: true,
	}

	cmd.Flags().String("set", "", `New limit for this key, e.g. "10 GB"`)
	cmd.Flags().Bool("clear", false, "Remove this key's own limit")

	return cmd
}

func runKeyLimit(cmd *cobra.Command, args []string) error {
	setValue, _ := cmd.Flags().GetString("set")
	clear, _ := cmd.Flags().GetBool("clear")
	if (setValue != "") == clear {
		return fmt.Errorf("exactly one of --set or --clear is required")
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
	keyID := args[1]

	info, err := entry.Manager.GetInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	if !lifecycle.FeaturesForVersion(info.Version).PerKeyDataLimit {
		return fmt.Errorf("server version %s does not support per-key data limits", info.Version)
	}

	if clear {
		if err := entry.Manager.RemoveAccessKeyDataLimit(cmd.Context(), keyID); err != nil {
			return fmt.Errorf("failed to clear key limit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Key %s now follows the server default.\n", keyID)
		return nil
	}

	bytes, err := humanize.ParseBytes(setValue)
	if err != nil {
		return fmt.Errorf("invalid limit %q: %w", setValue, err)
	}
	limit := domain.DataLimit{Bytes: int64(bytes)}
	if err := entry.Manager.SetAccessKeyDataLimit(cmd.Context(), keyID, limit); err != nil {
		return fmt.Errorf("failed to set key limit: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Key %s limited to %s.\n", keyID, humanize.Bytes(bytes))
	return nil
}
