// Package effects applies declarative effect lists. Every effect type is one
// atomic operation against the world state or the action manager. No logic
// in effects.
package effects

import (
	"strconv"
	"strings"

	"github.com/nathoo/tickwork/engine/events"
	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/engine/state"
	"github.com/nathoo/tickwork/types"
)

// Context carries the action running the effects and its manager. Action
// may be nil for effects applied outside a task.
type Context struct {
	Action  *scheduler.Action
	Manager *scheduler.Manager
}

// Apply applies a list of effects, mutating state. Returns trace events and
// output text collected.
func Apply(s *types.State, effects []types.Effect, ctx Context) ([]types.Event, []string) {
	var evts []types.Event
	var output []string

	for _, eff := range effects {
		switch eff.Type {
		case "say":
			text, _ := eff.Params["text"].(string)
			output = append(output, interpolate(text, s, ctx))

		case "set_flag":
			flag, _ := eff.Params["flag"].(string)
			value := true
			if v, ok := eff.Params["value"].(bool); ok {
				value = v
			}
			if state.SetFlag(s, flag, value) {
				evts = append(evts, types.Event{
					Type: "flag_changed",
					Data: map[string]any{"flag": flag, "value": value},
				})
			}

		case "inc_counter":
			counter, _ := eff.Params["counter"].(string)
			amount := 1
			if v, ok := eff.Params["amount"]; ok {
				amount = toInt(v)
			}
			state.AddCounter(s, counter, amount)

		case "set_counter":
			counter, _ := eff.Params["counter"].(string)
			state.SetCounter(s, counter, toInt(eff.Params["value"]))

		case "emit_event":
			event, _ := eff.Params["event"].(string)
			events.Emit(s, event)
			evts = append(evts, types.Event{
				Type: "event_emitted",
				Data: map[string]any{"event": event},
			})

		case "mark_done":
			if a := target(eff, ctx); a != nil {
				a.MarkDone()
			}

		case "pause":
			if a := target(eff, ctx); a != nil {
				a.PauseFor(toInt(eff.Params["ticks"]))
			}

		case "cancel":
			name, _ := eff.Params["action"].(string)
			if ctx.Manager != nil && ctx.Manager.CancelAction(name) {
				evts = append(evts, types.Event{
					Type: "action_cancelled",
					Data: map[string]any{"action": name},
				})
			}

		case "stop":
			if ctx.Manager != nil {
				ctx.Manager.Stop()
			}

		case "start":
			if ctx.Manager != nil {
				ctx.Manager.Start()
			}

		case "halt":
			return evts, output

		default:
			// Unknown effect types are ignored.
		}
	}

	return evts, output
}

// target returns the action named by the "action" param, or the running
// action when the param is absent.
func target(eff types.Effect, ctx Context) *scheduler.Action {
	name, _ := eff.Params["action"].(string)
	if name == "" {
		return ctx.Action
	}
	if ctx.Manager == nil {
		return nil
	}
	return ctx.Manager.Lookup(name)
}

// interpolate replaces template variables in text.
func interpolate(text string, s *types.State, ctx Context) string {
	if !strings.Contains(text, "{") {
		return text
	}
	name, count := "", ""
	if ctx.Action != nil {
		name = ctx.Action.Name()
		count = strconv.Itoa(ctx.Action.Count())
	}
	r := strings.NewReplacer(
		"{tick}", strconv.Itoa(s.Tick),
		"{name}", name,
		"{count}", count,
	)
	text = r.Replace(text)

	// {counter.<name>} and {flag.<name>}
	for _, k := range state.CounterNames(s) {
		text = strings.ReplaceAll(text, "{counter."+k+"}", strconv.Itoa(s.Counters[k]))
	}
	for _, k := range state.FlagNames(s) {
		text = strings.ReplaceAll(text, "{flag."+k+"}", strconv.FormatBool(s.Flags[k]))
	}
	return text
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
