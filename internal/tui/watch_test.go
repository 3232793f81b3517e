package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"outpostlabs/outpost/internal/domain"
	"outpostlabs/outpost/internal/lifecycle"
	"outpostlabs/outpost/internal/registry"
	"outpostlabs/outpost/internal/usage"
)

func newTestModel() watchModel {
	m := watchModel{serverID: "s1", name: "frankfurt-1", state: "checking", spinner: spinner.New()}
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return sized.(watchModel)
}

func TestWatch_IgnoresOtherServers(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(serverStateMsg{serverID: "other", state: "unreachable"})
	m = updated.(watchModel)

	if m.state != "checking" {
		t.Errorf("expected state unchanged, got %q", m.state)
	}
}

func TestWatch_ManagementViewMakesHealthy(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(managementMsg{view: lifecycle.ManagementView{
		ID:       "s1",
		Name:     "frankfurt-2",
		Hostname: "203.0.113.5",
		Version:  "1.6.0",
	}})
	m = updated.(watchModel)

	if m.state != "healthy" {
		t.Fatalf("expected healthy state, got %q", m.state)
	}
	if m.name != "frankfurt-2" {
		t.Errorf("expected name synced from view, got %q", m.name)
	}
	if view := m.View(); !strings.Contains(view, "203.0.113.5") {
		t.Error("expected hostname in rendered view")
	}
}

func TestWatch_UsageReportRenders(t *testing.T) {
	m := newTestModel()
	m.state = "healthy"

	updated, _ := m.Update(usageReportMsg{serverID: "s1", report: usage.Report{
		TotalBytes:    3_000_000_000,
		BaselineBytes: 50_000_000_000,
		Keys: []usage.KeyUsage{
			{KeyID: "7", Name: "alice", Bytes: 3_000_000_000, Limit: &domain.DataLimit{Bytes: 50_000_000_000}},
		},
	}})
	m = updated.(watchModel)

	view := m.View()
	if !strings.Contains(view, "3.0 GB") {
		t.Errorf("expected humanized total in view, got:\n%s", view)
	}
	if !strings.Contains(view, "alice") {
		t.Error("expected key row in view")
	}
}

func TestWatch_UnreachableOffersRecheck(t *testing.T) {
	rechecked := false
	m := newTestModel()
	m.onRecheck = func() { rechecked = true }

	updated, _ := m.Update(serverStateMsg{serverID: "s1", state: "unreachable"})
	m = updated.(watchModel)
	if !strings.Contains(m.View(), "Press r") {
		t.Error("expected recheck hint in unreachable view")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(watchModel)

	if !rechecked {
		t.Error("expected r to trigger the recheck callback")
	}
	if m.state != "checking" {
		t.Errorf("expected checking state after recheck, got %q", m.state)
	}
}

func TestWatch_CreationFailureShowsCause(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(creationFailedMsg{serverID: "s1", cause: errors.New("cloud-init died")})
	m = updated.(watchModel)

	if m.state != "failed" {
		t.Fatalf("expected failed state, got %q", m.state)
	}
	if !strings.Contains(m.View(), "cloud-init died") {
		t.Error("expected failure cause in view")
	}
}

func TestWatch_ClosesWhenServerLeavesList(t *testing.T) {
	m := newTestModel()

	// A list still carrying the watched server changes nothing.
	updated, cmd := m.Update(serverListMsg{items: []registry.ListItem{
		{ID: "s1", Name: "frankfurt-1"},
		{ID: "s2", Name: "other"},
	}})
	m = updated.(watchModel)
	if cmd != nil || m.state != "checking" {
		t.Fatalf("expected no reaction while the server is listed, state=%q", m.state)
	}

	// Once the server disappears from the list the view shuts down.
	updated, cmd = m.Update(serverListMsg{items: []registry.ListItem{{ID: "s2", Name: "other"}}})
	m = updated.(watchModel)
	if m.state != "removed" {
		t.Errorf("expected removed state, got %q", m.state)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("expected tea.Quit, got %#v", msg)
	}
	if !strings.Contains(m.View(), "Server removed.") {
		t.Error("expected removal notice in final view")
	}
}

func TestWatch_QuitKeys(t *testing.T) {
	m := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("expected tea.Quit, got %#v", msg)
	}
}

func TestSink_DropsBeforeAttach(t *testing.T) {
	var s Sink
	// Must not panic without an attached program.
	s.ShowProvisioning("s1")
	s.ShowUsage("s1", usage.Report{})
}
