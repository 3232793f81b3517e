// Package tui implements the interactive terminal views: the live
// usage watch for a displayed server.
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"outpostlabs/outpost/internal/lifecycle"
	"outpostlabs/outpost/internal/registry"
	"outpostlabs/outpost/internal/tui/components"
	"outpostlabs/outpost/internal/tui/styles"
	"outpostlabs/outpost/internal/usage"
)

// --- Messages ---

type usageReportMsg struct {
	serverID string
	report   usage.Report
}

type serverStateMsg struct {
	serverID string
	state    string
}

type managementMsg struct {
	view lifecycle.ManagementView
}

type creationFailedMsg struct {
	serverID string
	cause    error
}

type serverListMsg struct {
	items []registry.ListItem
}

// --- Sink ---

// Sink bridges the console's one-way view callbacks onto the running
// Bubbletea program. Callbacks arriving before Attach are dropped;
// the model pulls its initial state itself.
type Sink struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach binds the sink to a running program.
func (s *Sink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Sink) ShowUsage(serverID string, report usage.Report) {
	s.send(usageReportMsg{serverID: serverID, report: report})
}

func (s *Sink) ShowProvisioning(serverID string) {
	s.send(serverStateMsg{serverID: serverID, state: "provisioning"})
}

func (s *Sink) ShowUnreachable(serverID string) {
	s.send(serverStateMsg{serverID: serverID, state: "unreachable"})
}

func (s *Sink) ShowManagement(view lifecycle.ManagementView) {
	s.send(managementMsg{view: view})
}

func (s *Sink) ShowCreationFailure(serverID string, cause error) {
	s.send(creationFailedMsg{serverID: serverID, cause: cause})
}

// ServerListChanged implements registry.ListSink; the watch view uses
// it to notice when its server is removed behind its back.
func (s *Sink) ServerListChanged(items []registry.ListItem) {
	s.send(serverListMsg{items: append([]registry.ListItem(nil), items...)})
}

// --- Watch model ---

type watchModel struct {
	serverID string
	name     string
	state    string

	view   *lifecycle.ManagementView
	report *usage.Report
	err    error

	onRecheck func()

	width   int
	height  int
	spinner spinner.Model
}

// RunWatch opens the full-window live usage view for one server and
// blocks until the user quits. state is the initial view state
// ("checking" for existing servers, "provisioning" for a fresh
// create). onRecheck re-runs the health check for the unreachable
// state's retry binding; it may be nil.
func RunWatch(sink *Sink, serverID, name, state string, onRecheck func()) error {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Blue)

	m := watchModel{
		serverID:  serverID,
		name:      name,
		state:     state,
		onRecheck: onRecheck,
		spinner:   s,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run watch view: %w", err)
	}
	return nil
}

func (m watchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.onRecheck != nil {
		// Kick the first health check only once the program is
		// receiving messages; anything sent before Attach is dropped.
		recheck := m.onRecheck
		cmds = append(cmds, func() tea.Msg {
			recheck()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.onRecheck != nil {
				m.state = "checking"
				m.onRecheck()
			}
			return m, nil
		}
		return m, nil

	case serverStateMsg:
		if msg.serverID == m.serverID {
			m.state = msg.state
		}
		return m, nil

	case managementMsg:
		if msg.view.ID == m.serverID {
			view := msg.view
			m.view = &view
			m.state = "healthy"
			if view.Name != "" {
				m.name = view.Name
			}
		}
		return m, nil

	case usageReportMsg:
		if msg.serverID == m.serverID {
			report := msg.report
			m.report = &report
		}
		return m, nil

	case creationFailedMsg:
		if msg.serverID == m.serverID {
			m.state = "failed"
			m.err = msg.cause
		}
		return m, nil

	case serverListMsg:
		for _, item := range msg.items {
			if item.ID == m.serverID {
				return m, nil
			}
		}
		// The watched server was removed elsewhere; close the view.
		m.state = "removed"
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.width == 0 {
		return ""
	}

	header := components.Header(m.width, m.name, m.state)
	footer := components.Footer(m.width, []components.KeyBinding{
		{Key: "r", Desc: "recheck"},
		{Key: "q", Desc: "quit"},
	})

	body := m.bodyView()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	bodyBox := lipgloss.NewStyle().
		Width(m.width).
		Height(max(bodyHeight, 1)).
		Padding(1, 2).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, bodyBox, footer)
}

func (m watchModel) bodyView() string {
	switch m.state {
	case "provisioning":
		return m.spinner.View() + " Installing proxy software. This can take a few minutes."
	case "unreachable":
		return styles.ErrorText.Render("Server unreachable.") + "\n\n" +
			styles.MutedText.Render("Press r to check again.")
	case "failed":
		return styles.ErrorText.Render(fmt.Sprintf("Setup failed: %v", m.err))
	case "removed":
		return styles.MutedText.Render("Server removed.")
	case "checking":
		return m.spinner.View() + " Connecting..."
	}

	var sections []string
	if m.view != nil {
		sections = append(sections, m.detailView())
	}
	if m.report == nil {
		sections = append(sections, m.spinner.View()+" Waiting for the first usage report...")
	} else {
		sections = append(sections, m.usageView())
	}
	return strings.Join(sections, "\n\n")
}

func (m watchModel) detailView() string {
	v := m.view

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s  %s\n", styles.Label.Render(fmt.Sprintf("%-10s", label)), styles.Value.Render(value))
	}

	row("Hostname", v.Hostname)
	if v.Version != "" {
		row("Version", v.Version)
	}
	if v.RegionID != "" {
		row("Region", v.RegionID)
		row("Cost", fmt.Sprintf("$%.2f/month", v.MonthlyCostUSD))
	}
	if v.DefaultDataLimit != nil {
		row("Key limit", humanize.Bytes(uint64(v.DefaultDataLimit.Bytes)))
	}
	row("Keys", fmt.Sprintf("%d", len(v.AccessKeys)))

	return strings.TrimRight(b.String(), "\n")
}

func (m watchModel) usageView() string {
	report := *m.report

	total := styles.Subtitle.Render("Data transferred / last 30 days  ") +
		styles.Title.Render(humanize.Bytes(uint64(report.TotalBytes)))

	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chart := components.UsageChart(report, chartWidth, 8)

	var rows []string
	for _, key := range report.Keys {
		limit := "unlimited"
		if key.Limit != nil {
			limit = "of " + humanize.Bytes(uint64(key.Limit.Bytes))
		}
		name := key.Name
		if name == "" {
			name = "key " + key.KeyID
		}
		rows = append(rows, fmt.Sprintf("%s  %s %s",
			styles.Value.Render(fmt.Sprintf("%-16s", name)),
			styles.AccentText.Render(humanize.Bytes(uint64(key.Bytes))),
			styles.MutedText.Render(limit)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, total, "", chart, "", strings.Join(rows, "\n"))
}
