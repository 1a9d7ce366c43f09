package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/tickwork/engine/scheduler"
)

// actionName labels an action for the status bar.
func actionName(a *scheduler.Action) string {
	if a == nil {
		return "-"
	}
	if a.Name() != "" {
		return a.Name()
	}
	return fmt.Sprintf("#%d", a.ID())
}

// renderStatusBar produces a full-width inverted status line showing the
// scheduler state, collection sizes, the serial head, and the host tick.
func (m Model) renderStatusBar() string {
	s := m.engine.State
	am := m.engine.Actions

	status := "stopped"
	if am.Running() {
		status = "running"
	}
	mode := "manual"
	if m.auto {
		mode = "auto"
	}

	left := fmt.Sprintf(" %s | S:%d P:%d C:%d",
		status, len(am.Queue()), len(am.ParallelActions()), len(am.ConditionalActions()))
	right := fmt.Sprintf("%s | T:%d ", mode, s.Tick)

	// Show the serial head if it fits.
	candidate := fmt.Sprintf("%s | head: %s", left, actionName(am.CurrentAction()))
	if lipgloss.Width(candidate)+lipgloss.Width(right)+2 < m.width {
		left = candidate
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
