package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"outpostlabs/outpost/internal/lifecycle"
	"outpostlabs/outpost/internal/retrygate"
	"outpostlabs/outpost/internal/tui/styles"
)

// TextViews renders lifecycle transitions as plain lines, for
// non-interactive commands that still put servers under lifecycle
// control.
type TextViews struct {
	Out io.Writer
}

func (v TextViews) ShowProvisioning(serverID string) {
	fmt.Fprintf(v.Out, "Server %s: installing proxy software...\n", serverID)
}

func (v TextViews) ShowUnreachable(serverID string) {
	fmt.Fprintf(v.Out, "Server %s: %s\n", serverID, styles.ErrorText.Render("unreachable"))
}

func (v TextViews) ShowManagement(view lifecycle.ManagementView) {
	fmt.Fprintf(v.Out, "Server %q: %s (%d access keys)\n",
		view.Name, styles.SuccessText.Render("healthy"), len(view.AccessKeys))
}

func (v TextViews) ShowCreationFailure(serverID string, cause error) {
	fmt.Fprintf(v.Out, "Server %s: %s\n", serverID,
		styles.ErrorText.Render(fmt.Sprintf("setup failed: %v", cause)))
}

// DiscardViews drops lifecycle transitions. Used by commands that only
// read the registry snapshot.
type DiscardViews struct{}

func (DiscardViews) ShowProvisioning(string)                 {}
func (DiscardViews) ShowUnreachable(string)                  {}
func (DiscardViews) ShowManagement(lifecycle.ManagementView) {}
func (DiscardViews) ShowCreationFailure(string, error)       {}

// TextActivation renders the sign-up activation states as plain lines.
type TextActivation struct {
	Out io.Writer
}

func (v TextActivation) ShowBillingRequired() {
	fmt.Fprintln(v.Out, "Your cloud account needs billing information before servers can be created.")
	fmt.Fprintln(v.Out, "Complete it in the provider console; waiting...")
}

func (v TextActivation) ShowEmailVerification() {
	fmt.Fprintln(v.Out, "Your cloud account is awaiting verification; waiting...")
}

func (v TextActivation) ShowActive() {
	fmt.Fprintln(v.Out, styles.SuccessText.Render("Account active."))
}

// TerminalPrompter asks the retry-or-abandon question on the terminal.
// Anything other than an explicit yes abandons the account.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p TerminalPrompter) ChooseRetry(ctx context.Context, cause error) (retrygate.Decision, error) {
	fmt.Fprintf(p.Out, "Could not reach your cloud account: %v\n", cause)
	fmt.Fprint(p.Out, "Retry? [y/N]: ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return retrygate.DecisionAbandon, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return retrygate.DecisionRetry, nil
	default:
		return retrygate.DecisionAbandon, nil
	}
}
