package scheduler

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/nathoo/tickwork/types"
)

// Manager owns one serial queue, one parallel set, and the list of
// conditional actions, and advances all of them once per Tick.
//
// A Manager is not safe for concurrent use. Tick and every script call must
// happen on the same logical thread, between or during ticks.
type Manager struct {
	arena  map[ID]*Action
	nextID ID

	serial      []*Action
	parallel    []*Action
	conditional []*Action

	running bool
	ticks   uint64

	logger   *slog.Logger
	observer func(types.Event)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for schedule operations and failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers fn to receive lifecycle events. fn must not call
// back into the manager.
func WithObserver(fn func(types.Event)) Option {
	return func(m *Manager) { m.observer = fn }
}

// New creates a stopped manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		arena:  map[ID]*Action{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create returns a new unscheduled action.
func (m *Manager) Create(o Options) *Action {
	m.nextID++
	a := newAction(m, m.nextID, o)
	m.arena[a.id] = a
	return a
}

// CreateConditional returns a new unscheduled conditional action.
func (m *Manager) CreateConditional(o ConditionalOptions) *ConditionalAction {
	a := m.Create(Options{
		Name:        o.Name,
		Delay:       o.Delay,
		Every:       o.Every,
		MaxDuration: o.MaxDuration,
		Task:        o.Task,
	})
	c := &ConditionalAction{
		Action:        a,
		condition:     o.Condition,
		terminateWhen: o.TerminateWhen,
		onTermination: o.OnTermination,
	}
	c.SetMaxChecks(o.MaxChecks)
	a.cond = c
	return c
}

// Start enables ticking.
func (m *Manager) Start() { m.running = true }

// Stop freezes ticking. Scheduled actions keep their counters.
func (m *Manager) Stop() { m.running = false }

// Running reports whether Tick advances actions.
func (m *Manager) Running() bool { return m.running }

// Ticks returns how many ticks have been processed while running.
func (m *Manager) Ticks() uint64 { return m.ticks }

// ScheduleAction appends a to the serial queue, or to the conditional list
// if a is conditional. Unscheduled chain neighbours of a are scheduled with
// it in chain order.
func (m *Manager) ScheduleAction(a *Action) (*Action, error) {
	if err := m.schedule(a, locSerial, -1); err != nil {
		return a, err
	}
	return a, nil
}

// ScheduleConditional adds c to the conditional list.
func (m *Manager) ScheduleConditional(c *ConditionalAction) (*ConditionalAction, error) {
	if c == nil {
		return nil, ErrNilAction
	}
	if err := m.schedule(c.Action, locSerial, -1); err != nil {
		return c, err
	}
	return c, nil
}

// ScheduleActionAt inserts a into the serial queue at index. The index is
// clamped to the queue bounds, and never displaces a head that has already
// started.
func (m *Manager) ScheduleActionAt(index int, a *Action) (*Action, error) {
	if index < 0 {
		index = 0
	}
	if err := m.schedule(a, locSerial, index); err != nil {
		return a, err
	}
	return a, nil
}

// ScheduleParallelAction adds a to the parallel set.
func (m *Manager) ScheduleParallelAction(a *Action) (*Action, error) {
	if err := m.schedule(a, locParallel, -1); err != nil {
		return a, err
	}
	return a, nil
}

// AddTask creates and schedules a serial action.
func (m *Manager) AddTask(o Options) (*Action, error) {
	return m.ScheduleAction(m.Create(o))
}

// AddSingleTask schedules a serial action that fires once after delay ticks
// and then completes.
func (m *Manager) AddSingleTask(name string, delay int, task Task) (*Action, error) {
	return m.ScheduleAction(m.Create(Options{Name: name, Delay: delay, Once: true, Task: task}))
}

// AddConditionalTask creates and schedules a conditional action.
func (m *Manager) AddConditionalTask(o ConditionalOptions) (*ConditionalAction, error) {
	return m.ScheduleConditional(m.CreateConditional(o))
}

// Chain returns a builder appending to the serial queue.
func (m *Manager) Chain() *Chain { return &Chain{m: m} }

// ParallelChain returns a builder whose head joins the parallel set.
func (m *Manager) ParallelChain() *Chain { return &Chain{m: m, parallel: true} }

// CancelAction removes the first live serial action named name. The parallel
// set and conditional list are not searched.
func (m *Manager) CancelAction(name string) bool {
	for _, a := range m.serial {
		if a.name != name || a.done {
			continue
		}
		a.done = true
		m.emit("action.cancelled", a, nil)
		m.retire(a)
		return true
	}
	return false
}

// Clear removes every scheduled action, running or not, and forgets every
// action the manager has created. Pending links are dropped; a cleared action
// can still be scheduled again on its own.
func (m *Manager) Clear() {
	n := m.Len()
	for _, a := range m.arena {
		a.loc = locNone
		a.prev, a.next = 0, 0
	}
	m.serial, m.parallel, m.conditional = nil, nil, nil
	m.arena = map[ID]*Action{}
	m.logger.Debug("actions cleared", "count", n)
	if m.observer != nil {
		m.observer(types.Event{Type: "manager.cleared", Data: map[string]any{"count": n}})
	}
}

// Index returns the serial position of a, or -1.
func (m *Manager) Index(a *Action) int {
	return slices.Index(m.serial, a)
}

// CurrentAction returns the serial head, or nil.
func (m *Manager) CurrentAction() *Action {
	if len(m.serial) == 0 {
		return nil
	}
	return m.serial[0]
}

// Queue returns a copy of the serial queue.
func (m *Manager) Queue() []*Action { return slices.Clone(m.serial) }

// ParallelActions returns a copy of the parallel set.
func (m *Manager) ParallelActions() []*Action { return slices.Clone(m.parallel) }

// ConditionalActions returns a copy of the conditional list.
func (m *Manager) ConditionalActions() []*ConditionalAction {
	out := make([]*ConditionalAction, 0, len(m.conditional))
	for _, a := range m.conditional {
		out = append(out, a.cond)
	}
	return out
}

// Len returns the number of scheduled actions.
func (m *Manager) Len() int {
	return len(m.serial) + len(m.parallel) + len(m.conditional)
}

// Lookup returns the first live scheduled action named name, searching the
// serial queue, then the parallel set, then the conditional list.
func (m *Manager) Lookup(name string) *Action {
	if name == "" {
		return nil
	}
	for _, list := range [][]*Action{m.serial, m.parallel, m.conditional} {
		for _, a := range list {
			if a.name == name && !a.done {
				return a
			}
		}
	}
	return nil
}

func (m *Manager) lookup(id ID) *Action {
	if id == 0 {
		return nil
	}
	return m.arena[id]
}

func (m *Manager) listFor(loc location) *[]*Action {
	switch loc {
	case locSerial:
		return &m.serial
	case locParallel:
		return &m.parallel
	case locConditional:
		return &m.conditional
	default:
		return nil
	}
}

// check validates that a may be scheduled or linked.
func (m *Manager) check(a *Action) error {
	switch {
	case a == nil:
		return ErrNilAction
	case a.m != m:
		return ErrForeignAction
	case a.loc != locNone:
		return ErrAlreadyScheduled
	case a.done:
		return ErrActionDone
	}
	return nil
}

// chainOf returns the unscheduled run of actions linked around a, in order.
func (m *Manager) chainOf(a *Action) []*Action {
	head := a
	seen := map[ID]bool{a.id: true}
	for {
		p := m.lookup(head.prev)
		if p == nil || p.loc != locNone || seen[p.id] {
			break
		}
		seen[p.id] = true
		head = p
	}
	var out []*Action
	visited := map[ID]bool{}
	for cur := head; cur != nil && cur.loc == locNone && !visited[cur.id]; cur = m.lookup(cur.next) {
		visited[cur.id] = true
		if !cur.done {
			out = append(out, cur)
		}
	}
	return out
}

func (m *Manager) nameInUse(name string, except map[*Action]bool) bool {
	if name == "" {
		return false
	}
	for _, list := range [][]*Action{m.serial, m.parallel, m.conditional} {
		for _, a := range list {
			if a.name == name && !a.done && !except[a] {
				return true
			}
		}
	}
	return false
}

func (m *Manager) checkNames(members []*Action) error {
	seen := map[string]bool{}
	for _, a := range members {
		if a.name == "" {
			continue
		}
		if seen[a.name] || m.nameInUse(a.name, nil) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, a.name)
		}
		seen[a.name] = true
	}
	return nil
}

// schedule places a and its unscheduled chain into loc. index < 0 appends.
func (m *Manager) schedule(a *Action, loc location, index int) error {
	if err := m.check(a); err != nil {
		if a != nil {
			m.logger.Warn("schedule rejected", "action", a.label(), "error", err)
		}
		return err
	}
	members := m.chainOf(a)
	if err := m.checkNames(members); err != nil {
		a.err = err
		m.logger.Warn("schedule rejected", "action", a.label(), "error", err)
		return err
	}
	if loc == locSerial && index >= 0 {
		index = m.clampSerialIndex(index)
	}
	for _, x := range members {
		dest := loc
		if x.cond != nil {
			dest = locConditional
		}
		if dest == locSerial && index >= 0 {
			m.place(x, dest, index)
			index++
			continue
		}
		m.place(x, dest, -1)
	}
	return nil
}

func (m *Manager) clampSerialIndex(index int) int {
	if index > len(m.serial) {
		index = len(m.serial)
	}
	if index == 0 && len(m.serial) > 0 && m.serial[0].started() {
		index = 1
	}
	return index
}

// place inserts a into loc at index, or appends when index < 0.
func (m *Manager) place(a *Action, loc location, index int) {
	list := m.listFor(loc)
	if index < 0 || index >= len(*list) {
		*list = append(*list, a)
	} else {
		*list = slices.Insert(*list, index, a)
	}
	a.loc = loc
	a.err = nil
	m.arena[a.id] = a
	m.logger.Debug("action scheduled", "action", a.label(), "where", loc.String())
	m.emit("action.scheduled", a, map[string]any{"where": loc.String()})
}

// link chains x after (or before) anchor and, when anchor is scheduled,
// places x next to it.
func (m *Manager) link(anchor, x *Action, after bool) {
	err := m.check(x)
	if err == nil && x == anchor {
		err = ErrAlreadyScheduled
	}
	if err == nil && (x.prev != 0 || x.next != 0) {
		err = fmt.Errorf("%w: action is already chained", ErrAlreadyScheduled)
	}
	if err == nil && anchor.loc != locNone && x.name != "" && m.nameInUse(x.name, nil) {
		err = fmt.Errorf("%w: %q", ErrDuplicateName, x.name)
	}
	if err != nil {
		if x != nil {
			x.err = err
		}
		m.logger.Warn("link rejected", "anchor", anchor.label(), "error", err)
		return
	}

	if after {
		old := anchor.next
		x.prev, x.next = anchor.id, old
		anchor.next = x.id
		if o := m.lookup(old); o != nil {
			o.prev = x.id
		}
	} else {
		old := anchor.prev
		x.next, x.prev = anchor.id, old
		anchor.prev = x.id
		if o := m.lookup(old); o != nil {
			o.next = x.id
		}
	}

	if anchor.loc == locNone {
		return
	}
	dest := anchor.loc
	switch {
	case x.cond != nil:
		dest = locConditional
	case dest == locConditional:
		dest = locParallel
	}
	if dest == locSerial && anchor.loc == locSerial {
		idx := m.Index(anchor)
		if after {
			idx++
		}
		m.place(x, dest, idx)
		return
	}
	m.place(x, dest, -1)
}

// Tick advances the manager by one step. It does nothing while stopped.
func (m *Manager) Tick() {
	if !m.running {
		return
	}
	m.ticks++
	m.tickSerial()
	m.tickSet(locParallel)
	m.tickSet(locConditional)
}

// tickSerial evaluates the serial head, popping completed heads and moving
// on to the next head within the same tick.
func (m *Manager) tickSerial() {
	for len(m.serial) > 0 {
		head := m.serial[0]
		if !head.done {
			m.evaluate(head)
			if !head.done {
				return
			}
		}
		m.retire(head)
	}
}

func (m *Manager) tickSet(loc location) {
	for _, a := range slices.Clone(*m.listFor(loc)) {
		if a.loc != loc || a.done {
			continue
		}
		m.evaluate(a)
	}
	var finished []*Action
	for _, a := range *m.listFor(loc) {
		if a.done {
			finished = append(finished, a)
		}
	}
	for _, a := range finished {
		m.retire(a)
	}
}

// blocked reports whether a waits on a live predecessor.
func (m *Manager) blocked(a *Action) bool {
	p := m.lookup(a.prev)
	return p != nil && !p.done
}

// evaluate runs one tick of a's state machine.
func (m *Manager) evaluate(a *Action) {
	if a.done || m.blocked(a) {
		return
	}
	if a.pause > 0 {
		a.pause--
		return
	}
	if a.startAfter > 0 {
		a.startAfter--
		return
	}
	if a.duration%a.every == 0 {
		if a.cond != nil {
			m.evaluateConditional(a.cond)
		} else {
			m.fire(a)
			if a.once {
				a.done = true
			}
		}
	}
	a.duration++
	if a.maxDuration > 0 && a.duration >= a.maxDuration {
		a.done = true
	}
}

func (m *Manager) fire(a *Action) {
	a.count++
	m.logger.Debug("action fired", "action", a.label(), "count", a.count)
	m.emit("action.fired", a, nil)
	m.call(a, PhaseTask, a.task)
}

// call invokes fn, converting a panic into a CallbackError that completes a.
func (m *Manager) call(a *Action, phase Phase, fn Task) (ok bool) {
	if fn == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			m.fail(a, phase, r)
			ok = false
		}
	}()
	fn(a)
	return true
}

// test evaluates p; a nil predicate never holds.
func (m *Manager) test(a *Action, phase Phase, p Predicate) (result, ok bool) {
	if p == nil {
		return false, true
	}
	defer func() {
		if r := recover(); r != nil {
			m.fail(a, phase, r)
			result, ok = false, false
		}
	}()
	return p(), true
}

func (m *Manager) fail(a *Action, phase Phase, r any) {
	err := &CallbackError{Action: a.name, ID: a.id, Phase: phase, Value: r}
	a.err = err
	a.done = true
	m.logger.Error("action callback failed", "action", a.label(), "phase", string(phase), "error", err)
	m.emit("action.failed", a, map[string]any{"phase": string(phase), "error": err.Error()})
}

// retire removes a from its collection and the arena.
func (m *Manager) retire(a *Action) {
	if a.loc == locNone {
		return
	}
	list := m.listFor(a.loc)
	if i := slices.Index(*list, a); i >= 0 {
		*list = slices.Delete(*list, i, i+1)
	}
	a.loc = locNone
	delete(m.arena, a.id)
	m.emit("action.done", a, map[string]any{"count": a.count, "duration": a.duration})
}

func (m *Manager) emit(kind string, a *Action, extra map[string]any) {
	if m.observer == nil {
		return
	}
	data := map[string]any{"id": uint64(a.id), "name": a.name}
	for k, v := range extra {
		data[k] = v
	}
	m.observer(types.Event{Type: kind, Data: data})
}
