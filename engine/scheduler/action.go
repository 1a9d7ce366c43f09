// Package scheduler implements the tick-driven action manager: a serial
// pipeline where only the head runs, a parallel set, and a list of
// conditional actions, all advanced by one external Tick call per step.
package scheduler

import (
	"sort"
	"strconv"
)

// ID is a stable handle into a manager's action arena. Zero means no action.
type ID uint64

// Task is invoked each time an action fires.
type Task func(a *Action)

// Predicate is evaluated by conditional actions once per evaluated tick.
type Predicate func() bool

// Unbounded is the sentinel for "no limit" on durations and check budgets.
const Unbounded = -1

type location uint8

const (
	locNone location = iota
	locSerial
	locParallel
	locConditional
)

func (l location) String() string {
	switch l {
	case locSerial:
		return "serial"
	case locParallel:
		return "parallel"
	case locConditional:
		return "conditional"
	default:
		return "unscheduled"
	}
}

// Options describes a plain action. Zero values mean: unnamed, no start
// delay, unbounded duration, fire every tick, repeat until done.
type Options struct {
	Name        string
	Delay       int // ticks to wait before the first fire
	MaxDuration int // <= 0 is unbounded
	Every       int // fire interval once active; <= 0 means every tick
	Once        bool
	Task        Task
}

// Action is a schedulable unit of tick-counted work.
type Action struct {
	id   ID
	m    *Manager
	name string
	task Task

	startAfter  int
	every       int
	maxDuration int
	once        bool

	count    int
	duration int
	pause    int
	done     bool
	err      error

	data map[string]Value

	next, prev ID
	loc        location
	cond       *ConditionalAction
}

func newAction(m *Manager, id ID, o Options) *Action {
	a := &Action{
		id:   id,
		m:    m,
		name: o.Name,
		task: o.Task,
		once: o.Once,
	}
	a.setStartAfter(o.Delay)
	a.SetUpdateEveryXTick(o.Every)
	a.SetMaxDuration(o.MaxDuration)
	return a
}

func (a *Action) setStartAfter(ticks int) {
	if ticks < 0 {
		ticks = 0
	}
	a.startAfter = ticks
}

// ID returns the arena handle of a.
func (a *Action) ID() ID { return a.id }

// Manager returns the manager that created a.
func (a *Action) Manager() *Manager { return a.m }

// Name returns the name given at creation, or "".
func (a *Action) Name() string { return a.name }

// SetTask replaces the callback run on each fire.
func (a *Action) SetTask(t Task) *Action {
	a.task = t
	return a
}

// SetMaxDuration bounds how many active ticks a may run. Values <= 0 mean
// unbounded.
func (a *Action) SetMaxDuration(ticks int) *Action {
	if ticks <= 0 {
		ticks = Unbounded
	}
	a.maxDuration = ticks
	return a
}

// SetUpdateEveryXTick sets the fire interval. Values <= 0 mean every tick.
func (a *Action) SetUpdateEveryXTick(ticks int) *Action {
	if ticks <= 0 {
		ticks = 1
	}
	a.every = ticks
	return a
}

// PauseFor holds a for the given number of ticks before its next evaluation.
// Only one hold exists: a second call replaces the remaining hold.
func (a *Action) PauseFor(ticks int) *Action {
	if a.done {
		return a
	}
	if ticks < 0 {
		ticks = 0
	}
	a.pause = ticks
	return a
}

// MarkDone completes a. The manager removes it at the next tick boundary.
func (a *Action) MarkDone() { a.done = true }

// IsDone reports whether a has completed.
func (a *Action) IsDone() bool { return a.done }

// Err returns the failure that completed a, or the reason a link or
// schedule request was rejected.
func (a *Action) Err() error { return a.err }

// Count returns how many times the task has fired.
func (a *Action) Count() int { return a.count }

// Duration returns the active ticks elapsed, excluding the start delay.
func (a *Action) Duration() int { return a.duration }

// MaxDuration returns the duration bound, or Unbounded.
func (a *Action) MaxDuration() int { return a.maxDuration }

// UpdateEveryXTick returns the fire interval.
func (a *Action) UpdateEveryXTick() int { return a.every }

// StartAfterTicks returns the remaining start delay.
func (a *Action) StartAfterTicks() int { return a.startAfter }

// PausedFor returns the remaining pause hold.
func (a *Action) PausedFor() int { return a.pause }

// Scheduled reports whether a sits in one of the manager's collections.
func (a *Action) Scheduled() bool { return a.loc != locNone }

// Conditional returns the conditional view of a, or nil for plain actions.
func (a *Action) Conditional() *ConditionalAction { return a.cond }

// Next returns the action chained after a, if it is still alive.
func (a *Action) Next() *Action { return a.m.lookup(a.next) }

// Previous returns the action chained before a, if it is still alive.
func (a *Action) Previous() *Action { return a.m.lookup(a.prev) }

// GetData returns the value stored under key.
func (a *Action) GetData(key string) (Value, bool) {
	v, ok := a.data[key]
	return v, ok
}

// SetData stores v under key for the lifetime of a.
func (a *Action) SetData(key string, v Value) *Action {
	if a.data == nil {
		a.data = map[string]Value{}
	}
	a.data[key] = v
	return a
}

// RemoveData deletes key.
func (a *Action) RemoveData(key string) *Action {
	delete(a.data, key)
	return a
}

// HasData reports whether key is set.
func (a *Action) HasData(key string) bool {
	_, ok := a.data[key]
	return ok
}

// DataKeys returns the data keys in sorted order.
func (a *Action) DataKeys() []string {
	keys := make([]string, 0, len(a.data))
	for k := range a.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// After creates an action from o and chains it immediately after a.
func (a *Action) After(o Options) *Action {
	return a.AfterAction(a.m.Create(o))
}

// AfterAction chains x immediately after a: x runs once a is done. If a is
// scheduled, x joins the same collection. Returns x.
func (a *Action) AfterAction(x *Action) *Action {
	a.m.link(a, x, true)
	return x
}

// AfterConditional creates a conditional action from o and chains it after a.
func (a *Action) AfterConditional(o ConditionalOptions) *ConditionalAction {
	c := a.m.CreateConditional(o)
	a.m.link(a, c.Action, true)
	return c
}

// Before creates an action from o and chains it immediately before a.
func (a *Action) Before(o Options) *Action {
	return a.BeforeAction(a.m.Create(o))
}

// BeforeAction chains x immediately before a; a is held until x is done.
// Returns x.
func (a *Action) BeforeAction(x *Action) *Action {
	a.m.link(a, x, false)
	return x
}

// started reports whether a has begun its active phase.
func (a *Action) started() bool {
	return a.count > 0 || a.duration > 0
}

func (a *Action) label() string {
	if a.name != "" {
		return a.name
	}
	return "#" + strconv.FormatUint(uint64(a.id), 10)
}
