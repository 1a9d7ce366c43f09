package scheduler

// Chain declares a sequence of delayed callbacks. Each step fires once, its
// delay counted from the completion of the previous step.
type Chain struct {
	m        *Manager
	parallel bool
	actions  []*Action
	err      error
}

// After appends an unnamed step.
func (c *Chain) After(delay int, task Task) *Chain {
	return c.AfterNamed(delay, "", task)
}

// AfterNamed appends a named step. The first step is scheduled immediately;
// later steps are linked after the current tail.
func (c *Chain) AfterNamed(delay int, name string, task Task) *Chain {
	a := c.m.Create(Options{Name: name, Delay: delay, Once: true, Task: task})

	tail := c.tail()
	switch {
	case tail == nil || !tail.Scheduled():
		var err error
		if c.parallel {
			_, err = c.m.ScheduleParallelAction(a)
		} else {
			_, err = c.m.ScheduleAction(a)
		}
		c.record(err)
	default:
		tail.AfterAction(a)
		c.record(a.Err())
	}

	c.actions = append(c.actions, a)
	return c
}

// Actions returns the steps built so far.
func (c *Chain) Actions() []*Action {
	out := make([]*Action, len(c.actions))
	copy(out, c.actions)
	return out
}

// Err returns the first error hit while scheduling a step.
func (c *Chain) Err() error { return c.err }

func (c *Chain) tail() *Action {
	if len(c.actions) == 0 {
		return nil
	}
	return c.actions[len(c.actions)-1]
}

func (c *Chain) record(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}
