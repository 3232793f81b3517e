package config

import (
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	if Lookup("default-provider") == nil {
		t.Error("expected to find default-provider")
	}
	if Lookup("  Default-Provider  ") == nil {
		t.Error("expected lookup to normalize case and whitespace")
	}
	if Lookup("no-such-key") != nil {
		t.Error("expected nil for unknown key")
	}
}

func TestSet_UsagePollSeconds(t *testing.T) {
	spec := Lookup("usage-poll-seconds")
	if spec == nil {
		t.Fatal("expected to find usage-poll-seconds")
	}

	cfg := &Config{}
	if err := spec.Set(cfg, "45"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.UsagePollSeconds != 45 {
		t.Errorf("expected 45, got %d", cfg.UsagePollSeconds)
	}
	if got := spec.Get(cfg); got != "45" {
		t.Errorf("expected Get to return %q, got %q", "45", got)
	}
}

func TestSet_UsagePollSecondsRejectsInvalid(t *testing.T) {
	spec := Lookup("usage-poll-seconds")
	for _, v := range []string{"abc", "0", "-5", ""} {
		if err := spec.Set(&Config{}, v); err == nil {
			t.Errorf("expected error for %q, got nil", v)
		}
	}
}

func TestKeysHelp_ListsEveryKey(t *testing.T) {
	help := KeysHelp()
	for _, name := range KeyNames() {
		if !strings.Contains(help, name) {
			t.Errorf("help text missing key %q", name)
		}
	}
}
