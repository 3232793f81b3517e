package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/providers"

	"github.com/spf13/cobra"
)

const statusProbeTimeout = 10 * time.Second

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sign-in and activation status for providers",
		Long: `Show which providers have a stored token, and for each signed-in
account whether it is activated.

Example:
  outpost account status`,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	store := auth.DefaultStore()

	names := providers.List()
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No providers registered.")
		return nil
	}

	for _, name := range names {
		_, err := store.GetToken(name)
		switch {
		case errors.Is(err, auth.ErrTokenNotFound):
			fmt.Fprintf(cmd.OutOrStdout(), "%s: not signed in\n", name)
			continue
		case err != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: error (%v)\n", name, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: signed in, %s\n", name, probeStatus(cmd.Context(), name, store))
	}
	return nil
}

// probeStatus maps the account's activation state to a display string.
func probeStatus(ctx context.Context, name string, store auth.Store) string {
	account, err := providers.Get(name, store)
	if err != nil {
		return fmt.Sprintf("error (%v)", err)
	}

	ctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	status, err := account.GetStatus(ctx)
	switch {
	case domain.IsSessionInvalid(err):
		return "token rejected or account unreachable"
	case err != nil:
		return fmt.Sprintf("error (%v)", err)
	}

	switch status {
	case domain.AccountStatusActive:
		return "active"
	case domain.AccountStatusMissingBilling:
		return "billing information required"
	default:
		return "pending verification"
	}
}
