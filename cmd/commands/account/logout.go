package account

import (
	"errors"
	"fmt"
	"strings"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/prefs"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout <provider>",
		Short: "Sign out of a cloud provider account",
		Long: `Sign out of a cloud provider account.

The stored token is removed from the keychain and the account's
servers are forgotten locally. Remote hosts keep running.

Example:
  outpost account logout hetzner`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLogout,
		SilenceUsage: true,
	}

	return cmd
}

func runLogout(cmd *cobra.Command, args []string) error {
	provider := auth.NormalizeProvider(strings.TrimSpace(args[0]))

	store := auth.DefaultStore()
	if _, err := store.GetToken(provider); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			return fmt.Errorf("not signed in to %s", provider)
		}
		return err
	}

	if err := store.DeleteToken(provider); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	// The last-shown pointer may reference a server of this account;
	// it is only valid within a signed-in session.
	if repo, err := prefs.Open(); err == nil {
		_ = prefs.LastShown{Repo: repo}.ClearLastShownServer()
		_ = repo.Close()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s.\n", provider)
	return nil
}
