package providers

import (
	"strings"
	"testing"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/domain"
)

type stubAccount struct {
	domain.CloudAccount
	tag string
}

func (a *stubAccount) ProviderTag() string { return a.tag }

func TestRegisterAndGet(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("Hetzner", func(store auth.Store) (domain.CloudAccount, error) {
		return &stubAccount{tag: "hetzner"}, nil
	})

	// Lookup is normalized, so case must not matter.
	account, err := Get("HETZNER", auth.NewMockStore())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if account.ProviderTag() != "hetzner" {
		t.Errorf("unexpected account: %v", account.ProviderTag())
	}
}

func TestGet_UnknownProvider(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, err := Get("digitalocean", auth.NewMockStore())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	factory := func(store auth.Store) (domain.CloudAccount, error) {
		return &stubAccount{}, nil
	}
	Register("hetzner", factory)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("hetzner", factory)
}

func TestRegisterHetzner_MissingToken(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	RegisterHetzner()

	if _, err := Get("hetzner", auth.NewMockStore()); err == nil {
		t.Fatal("expected error when no token is stored")
	}
}

func TestList(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("hetzner", func(store auth.Store) (domain.CloudAccount, error) {
		return &stubAccount{}, nil
	})

	names := List()
	if len(names) != 1 || names[0] != "hetzner" {
		t.Errorf("unexpected names: %v", names)
	}
}
