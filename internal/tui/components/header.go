// Package components provides reusable Bubbletea UI building blocks.
// These are render-only helpers (not tea.Model) used by the main TUI
// models to compose views.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"outpostlabs/outpost/internal/tui/styles"
)

// Header renders the application header bar.
//
//	┌──────────────────────────────────────────┐
//	│  outpost > frankfurt-1        healthy    │
//	└──────────────────────────────────────────┘
func Header(width int, breadcrumb string, status string) string {
	if width < 10 {
		return ""
	}

	left := styles.Title.Foreground(styles.Blue).Render("outpost")
	if breadcrumb != "" {
		left += styles.MutedText.Render(" > ") + styles.Title.Render(breadcrumb)
	}

	right := ""
	if status != "" {
		right = styles.StateIndicator(status)
	}

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	innerWidth := width - 4
	gap := max(innerWidth-leftLen-rightLen, 1)

	content := left + strings.Repeat(" ", gap) + right

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderBottom(true).
		BorderForeground(styles.DimGray).
		Render(content)
}
