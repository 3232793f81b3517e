package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/config"
	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/providers"
)

// setupTestConfig points the config package at a temp file and returns cleanup.
func setupTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	config.SetPath(path)
	t.Cleanup(config.ResetPath)
	return path
}

// registerTestProvider registers a mock provider in the global registry.
func registerTestProvider(t *testing.T, name string) {
	t.Helper()
	providers.Reset()
	t.Cleanup(func() { providers.Reset() })
	providers.Register(name, func(store auth.Store) (domain.CloudAccount, error) {
		return nil, nil
	})
}

// execConfig creates the config command, wires up output buffers, runs with the
// given args, and returns what was written to stdout and stderr.
func execConfig(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	cmd.Execute()
	return outBuf.String(), errBuf.String()
}

func TestSet_DefaultProvider(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, stderr := execConfig(t, "set", "default-provider", "hetzner")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected confirmation with provider name, got: %s", stdout)
	}

	// Verify it was persisted.
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.DefaultProvider != "hetzner" {
		t.Errorf("expected DefaultProvider %q, got %q", "hetzner", cfg.DefaultProvider)
	}
}

func TestSet_DefaultProvider_UnknownProvider(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	_, stderr := execConfig(t, "set", "default-provider", "nonexistent")

	if !strings.Contains(stderr, "unknown provider") {
		t.Errorf("expected 'unknown provider' error, got: %s", stderr)
	}
}

func TestSet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "bogus-key", "value")

	if !strings.Contains(stderr, "unknown configuration key") {
		t.Errorf("expected 'unknown configuration key' error, got: %s", stderr)
	}
}

func TestSet_DefaultProvider_CaseInsensitive(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, stderr := execConfig(t, "set", "default-provider", "HETZNER")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected normalized provider name, got: %s", stdout)
	}
}

func TestSet_UsagePollSeconds(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "usage-poll-seconds", "30")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.UsagePollSeconds != 30 {
		t.Errorf("expected UsagePollSeconds 30, got %d", cfg.UsagePollSeconds)
	}
}

func TestSet_UsagePollSeconds_Invalid(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "usage-poll-seconds", "zero")

	if !strings.Contains(stderr, "positive integer") {
		t.Errorf("expected validation error, got: %s", stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.UsagePollSeconds != 0 {
		t.Errorf("invalid value must not persist, got %d", cfg.UsagePollSeconds)
	}
}
