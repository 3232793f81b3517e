package account

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage cloud provider accounts",
		Long: `Manage cloud provider accounts.

Use this command group to sign in, sign out, and check the activation
status of an account. Tokens are stored in the local keychain.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(LogoutCommand())
	cmd.AddCommand(StatusCommand())

	return cmd
}
