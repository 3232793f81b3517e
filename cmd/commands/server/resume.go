package server

import (
	"fmt"

	"outpostlabs/outpost/cmd/commands/session"
	"outpostlabs/outpost/internal/registry"

	"github.com/spf13/cobra"
)

// openResumed opens a quiet session and reattaches the provider
// account from the stored token, loading its servers.
func openResumed(cmd *cobra.Command) (*session.Session, error) {
	sess, err := session.Open(session.Options{
		Views:  session.DiscardViews{},
		Prompt: session.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
		ErrOut: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	providerName := cmd.Flag("provider").Value.String()
	if err := sess.Console.Resume(cmd.Context(), providerName); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// entryFor resolves a server reference (id or unique name) to its
// registry entry.
func entryFor(sess *session.Session, ref string) (*registry.Entry, error) {
	if entry, ok := sess.Registry.Get(ref); ok {
		return entry, nil
	}

	var match *registry.Entry
	for _, item := range sess.Registry.List() {
		if item.Name != ref {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("server name %q is ambiguous, use the id", ref)
		}
		entry, _ := sess.Registry.Get(item.ID)
		match = entry
	}
	if match == nil {
		return nil, fmt.Errorf("unknown server %q", ref)
	}
	return match, nil
}
