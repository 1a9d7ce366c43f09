package scheduler

// ConditionalOptions describes a conditional action. Condition is checked on
// every evaluated tick; Task fires once the first time it returns true.
type ConditionalOptions struct {
	Name          string
	Condition     Predicate
	Task          Task
	TerminateWhen Predicate
	OnTermination Task
	MaxChecks     int // <= 0 is unbounded
	Delay         int
	Every         int
	MaxDuration   int
}

// ConditionalAction is an Action gated by a per-tick predicate.
type ConditionalAction struct {
	*Action

	condition     Predicate
	terminateWhen Predicate
	onTermination Task

	checks    int
	maxChecks int
	executed  bool
}

// SetCondition replaces the gating predicate.
func (c *ConditionalAction) SetCondition(p Predicate) *ConditionalAction {
	c.condition = p
	return c
}

// TerminateWhen sets the predicate that ends c early. With a termination
// predicate set, c stays alive after its task fires until the predicate
// holds.
func (c *ConditionalAction) TerminateWhen(p Predicate) *ConditionalAction {
	c.terminateWhen = p
	return c
}

// OnTermination sets the callback run when TerminateWhen holds.
func (c *ConditionalAction) OnTermination(t Task) *ConditionalAction {
	c.onTermination = t
	return c
}

// SetMaxChecks bounds how many times the condition may be evaluated before
// c gives up. Values <= 0 mean unbounded.
func (c *ConditionalAction) SetMaxChecks(n int) *ConditionalAction {
	if n <= 0 {
		n = Unbounded
	}
	c.maxChecks = n
	return c
}

// WasTaskExecuted reports whether the condition held and the task ran.
func (c *ConditionalAction) WasTaskExecuted() bool { return c.executed }

// CheckCount returns how many times the condition has been evaluated.
func (c *ConditionalAction) CheckCount() int { return c.checks }

// MaxChecks returns the check budget, or Unbounded.
func (c *ConditionalAction) MaxChecks() int { return c.maxChecks }

// evaluateConditional runs the condition layer for one active tick.
// Termination is evaluated after the task so WasTaskExecuted is accurate
// inside OnTermination.
func (m *Manager) evaluateConditional(c *ConditionalAction) {
	a := c.Action

	if !c.executed {
		c.checks++
		passed, ok := m.test(a, PhaseCondition, c.condition)
		if !ok {
			return
		}
		if passed {
			c.executed = true
			m.fire(a)
			if a.done {
				return
			}
		}
	}

	if c.terminateWhen != nil {
		stop, ok := m.test(a, PhaseTerminateWhen, c.terminateWhen)
		if !ok {
			return
		}
		if stop {
			if !m.call(a, PhaseOnTermination, c.onTermination) {
				return
			}
			a.done = true
			m.emit("conditional.terminated", a, map[string]any{"task_executed": c.executed})
			return
		}
	} else if c.executed {
		a.done = true
		return
	}

	if !c.executed && c.maxChecks > 0 && c.checks >= c.maxChecks {
		a.done = true
		m.emit("conditional.expired", a, map[string]any{"checks": c.checks})
	}
}
