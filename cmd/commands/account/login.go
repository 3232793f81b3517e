package account

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"outpostlabs/outpost/cmd/commands/session"
	"outpostlabs/outpost/internal/domain"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Sign in to a cloud provider account",
		Long: `Sign in to a cloud provider account.

The API token is stored in the local keychain, then the account is
polled until it is activated (billing complete, email verified). On
success your existing proxy servers are picked up automatically.

Press Ctrl-C to cancel; a cancelled sign-in removes the stored token
again.

Example:
  outpost account login hetzner`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLogin,
		SilenceUsage: true,
	}

	cmd.Flags().String("token", "", "API token (optional, overrides prompt)")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	provider := strings.TrimSpace(args[0])
	if provider == "" {
		return fmt.Errorf("provider is required")
	}

	token, _ := cmd.Flags().GetString("token")
	token = strings.TrimSpace(token)
	if token == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Enter API token: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		token = strings.TrimSpace(string(bytes))
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	sess, err := session.Open(session.Options{
		Views:          session.TextViews{Out: cmd.ErrOrStderr()},
		ActivationView: session.TextActivation{Out: cmd.ErrOrStderr()},
		Prompt:         session.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
		ErrOut:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	// Ctrl-C cancels the activation wait cooperatively instead of
	// killing the process mid-rollback.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		sess.Console.CancelActivation()
	}()

	if err := sess.Console.SignIn(ctx, provider, token); err != nil {
		if domain.IsCancelled(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Sign-in cancelled; token removed.")
			return nil
		}
		return err
	}

	servers := sess.Registry.List()
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s. %d server(s) found.\n", provider, len(servers))
	return nil
}
