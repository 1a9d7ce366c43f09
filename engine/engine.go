// Package engine provides the host simulation that owns the world state and
// the action manager, and advances both one step at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/tickwork/engine/effects"
	"github.com/nathoo/tickwork/engine/events"
	"github.com/nathoo/tickwork/engine/parser"
	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/engine/state"
	"github.com/nathoo/tickwork/types"
)

// Engine holds the world state and the action manager driven by it.
type Engine struct {
	State   *types.State
	Actions *scheduler.Manager
	RNG     *RNG
	Logger  *slog.Logger

	handlers []events.Handler
	output   []string
	trace    []types.Event
}

// New creates an engine with an empty world and a stopped manager.
func New(seed int64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		State:  state.New(seed),
		RNG:    NewRNG(seed),
		Logger: logger,
	}
	e.Actions = scheduler.New(
		scheduler.WithLogger(logger.With("component", "scheduler")),
		scheduler.WithObserver(e.observe),
	)
	return e
}

func (e *Engine) observe(ev types.Event) {
	e.trace = append(e.trace, ev)
}

// Say queues a line of output for the current step or command.
func (e *Engine) Say(text string) {
	e.output = append(e.output, text)
}

// On registers a handler for a delivered event. Use events.Wildcard to
// receive every event.
func (e *Engine) On(event string, fn func(event string) error) {
	e.handlers = append(e.handlers, events.Handler{Event: event, Fn: fn})
}

// Emit queues an event for delivery on the next step.
func (e *Engine) Emit(name string) {
	events.Emit(e.State, name)
}

// Apply runs declarative effects on behalf of a, which may be nil.
func (e *Engine) Apply(effs []types.Effect, a *scheduler.Action) {
	evts, out := effects.Apply(e.State, effs, effects.Context{Action: a, Manager: e.Actions})
	e.trace = append(e.trace, evts...)
	e.output = append(e.output, out...)
}

// Step advances the simulation by one tick and returns what happened.
func (e *Engine) Step() types.Result {
	// 1. Advance the host clock.
	e.State.Tick++

	// 2. Deliver events emitted during the previous step.
	delivered := events.Deliver(e.State)
	for _, name := range delivered {
		e.trace = append(e.trace, types.Event{Type: "event", Data: map[string]any{"name": name}})
	}

	// 3. Dispatch script handlers (single pass).
	if err := events.Dispatch(e.State, e.handlers); err != nil {
		e.Logger.Error("event handler failed", "tick", e.State.Tick, "error", err)
		e.trace = append(e.trace, types.Event{Type: "handler.failed", Data: map[string]any{"error": err.Error()}})
	}

	// 4. Advance the action manager.
	e.Actions.Tick()

	// 5. Track RNG position for snapshots.
	e.State.RNGPosition = e.RNG.Position()

	return e.flush()
}

// StepN runs n steps back to back and merges their results.
func (e *Engine) StepN(n int) types.Result {
	var result types.Result
	for i := 0; i < n; i++ {
		r := e.Step()
		result.Events = append(result.Events, r.Events...)
		result.Output = append(result.Output, r.Output...)
	}
	result.Tick = e.State.Tick
	return result
}

// Run steps the engine every interval until ctx ends or maxTicks steps have
// run. maxTicks <= 0 runs until ctx ends. onStep, if set, receives each
// step's result.
func (e *Engine) Run(ctx context.Context, interval time.Duration, maxTicks int, onStep func(types.Result)) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		res := e.Step()
		if onStep != nil {
			onStep(res)
		}
	}
	return nil
}

// Command parses and executes one console command.
func (e *Engine) Command(input string) types.Result {
	cmd := parser.Parse(input)
	if cmd.Verb == "" {
		return types.Result{Tick: e.State.Tick, Output: []string{"Type a command, or /help."}}
	}
	e.State.CommandLog = append(e.State.CommandLog, cmd.Raw)

	switch cmd.Verb {
	case "tick":
		n := 1
		if len(cmd.Args) > 0 {
			v, err := strconv.Atoi(cmd.Args[0])
			if err != nil || v < 1 {
				return e.reply("Tick count must be a positive number.")
			}
			n = v
		}
		res := e.StepN(n)
		if !e.Actions.Running() {
			res.Output = append(res.Output, fmt.Sprintf("Tick %d. (scheduler stopped)", e.State.Tick))
		}
		return res

	case "start":
		e.Actions.Start()
		return e.reply("Scheduler started.")

	case "stop":
		e.Actions.Stop()
		return e.reply("Scheduler stopped.")

	case "cancel":
		name := strings.Join(cmd.Args, " ")
		if name == "" {
			return e.reply("Cancel which action?")
		}
		if !e.Actions.CancelAction(name) {
			return e.reply(fmt.Sprintf("No queued action named %q.", name))
		}
		return e.reply(fmt.Sprintf("Cancelled %s.", name))

	case "clear":
		n := e.Actions.Len()
		e.Actions.Clear()
		return e.reply(fmt.Sprintf("Cleared %d actions.", n))

	case "emit":
		if len(cmd.Args) == 0 {
			return e.reply("Emit which event?")
		}
		e.Emit(cmd.Args[0])
		return e.reply(fmt.Sprintf("Queued event %s for the next tick.", cmd.Args[0]))

	case "flag":
		return e.flagCommand(cmd.Args)

	case "counter":
		return e.counterCommand(cmd.Args)

	case "queue":
		return e.reply(e.Describe()...)

	case "pause":
		if len(cmd.Args) < 2 {
			return e.reply("Usage: pause <name> <ticks>")
		}
		ticks, err := strconv.Atoi(cmd.Args[1])
		if err != nil || ticks < 0 {
			return e.reply("Pause length must be a non-negative number.")
		}
		a := e.Actions.Lookup(cmd.Args[0])
		if a == nil {
			return e.reply(fmt.Sprintf("No action named %q.", cmd.Args[0]))
		}
		a.PauseFor(ticks)
		return e.reply(fmt.Sprintf("Paused %s for %d ticks.", cmd.Args[0], ticks))

	case "done":
		if len(cmd.Args) == 0 {
			return e.reply("Complete which action?")
		}
		a := e.Actions.Lookup(cmd.Args[0])
		if a == nil {
			return e.reply(fmt.Sprintf("No action named %q.", cmd.Args[0]))
		}
		a.MarkDone()
		return e.reply(fmt.Sprintf("Marked %s done.", cmd.Args[0]))

	default:
		return e.reply(fmt.Sprintf("Unknown command %q. Type /help.", cmd.Verb))
	}
}

func (e *Engine) flagCommand(args []string) types.Result {
	switch len(args) {
	case 0:
		return e.reply("Usage: flag <name> [true|false]")
	case 1:
		return e.reply(fmt.Sprintf("%s = %t", args[0], state.GetFlag(e.State, args[0])))
	}
	v, err := strconv.ParseBool(args[1])
	if err != nil {
		return e.reply(fmt.Sprintf("Not a boolean: %q.", args[1]))
	}
	state.SetFlag(e.State, args[0], v)
	return e.reply(fmt.Sprintf("%s = %t", args[0], v))
}

func (e *Engine) counterCommand(args []string) types.Result {
	switch len(args) {
	case 0:
		return e.reply("Usage: counter <name> [value]")
	case 1:
		return e.reply(fmt.Sprintf("%s = %d", args[0], state.GetCounter(e.State, args[0])))
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return e.reply(fmt.Sprintf("Not a number: %q.", args[1]))
	}
	state.SetCounter(e.State, args[0], v)
	return e.reply(fmt.Sprintf("%s = %d", args[0], v))
}

// reply returns lines plus anything queued by the command itself.
func (e *Engine) reply(lines ...string) types.Result {
	e.output = append(e.output, lines...)
	return e.flush()
}

func (e *Engine) flush() types.Result {
	res := types.Result{Tick: e.State.Tick, Events: e.trace, Output: e.output}
	e.trace, e.output = nil, nil
	return res
}
