package engine

import (
	"fmt"
	"strings"

	"github.com/nathoo/tickwork/engine/scheduler"
)

// Describe renders the manager's collections as human-readable lines.
func (e *Engine) Describe() []string {
	m := e.Actions
	status := "stopped"
	if m.Running() {
		status = "running"
	}
	lines := []string{fmt.Sprintf("Tick %d, scheduler %s, %d actions.", e.State.Tick, status, m.Len())}

	section := func(title string, actions []*scheduler.Action) {
		if len(actions) == 0 {
			return
		}
		lines = append(lines, title+":")
		for i, a := range actions {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, DescribeAction(a)))
		}
	}
	section("Serial", m.Queue())
	section("Parallel", m.ParallelActions())

	conds := m.ConditionalActions()
	plain := make([]*scheduler.Action, len(conds))
	for i, c := range conds {
		plain[i] = c.Action
	}
	section("Conditional", plain)
	return lines
}

// DescribeAction renders one action on a single line.
func DescribeAction(a *scheduler.Action) string {
	var b strings.Builder
	if a.Name() != "" {
		b.WriteString(a.Name())
	} else {
		fmt.Fprintf(&b, "#%d", a.ID())
	}
	fmt.Fprintf(&b, " fired=%d", a.Count())
	if a.MaxDuration() == scheduler.Unbounded {
		fmt.Fprintf(&b, " ticks=%d", a.Duration())
	} else {
		fmt.Fprintf(&b, " ticks=%d/%d", a.Duration(), a.MaxDuration())
	}
	if a.UpdateEveryXTick() > 1 {
		fmt.Fprintf(&b, " every=%d", a.UpdateEveryXTick())
	}
	if a.StartAfterTicks() > 0 {
		fmt.Fprintf(&b, " delay=%d", a.StartAfterTicks())
	}
	if a.PausedFor() > 0 {
		fmt.Fprintf(&b, " paused=%d", a.PausedFor())
	}
	if c := a.Conditional(); c != nil {
		if c.MaxChecks() == scheduler.Unbounded {
			fmt.Fprintf(&b, " checks=%d", c.CheckCount())
		} else {
			fmt.Fprintf(&b, " checks=%d/%d", c.CheckCount(), c.MaxChecks())
		}
		if c.WasTaskExecuted() {
			b.WriteString(" executed")
		}
	}
	if p := a.Previous(); p != nil {
		fmt.Fprintf(&b, " after=%s", label(p))
	}
	if a.IsDone() {
		b.WriteString(" done")
	}
	return b.String()
}

func label(a *scheduler.Action) string {
	if a.Name() != "" {
		return a.Name()
	}
	return fmt.Sprintf("#%d", a.ID())
}
