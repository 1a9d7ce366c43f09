package engine

import (
	"fmt"

	"github.com/nathoo/tickwork/engine/rules"
	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/types"
)

// ScheduleTask schedules a compiled declarative task. Its effects run
// through Apply each time it fires.
func (e *Engine) ScheduleTask(def types.TaskDef) (*scheduler.Action, error) {
	then := def.Then
	task := func(a *scheduler.Action) { e.Apply(then, a) }

	switch def.Mode {
	case "", "serial":
		return e.Actions.ScheduleAction(e.Actions.Create(taskOptions(def, task)))

	case "parallel":
		return e.Actions.ScheduleParallelAction(e.Actions.Create(taskOptions(def, task)))

	case "conditional":
		o := scheduler.ConditionalOptions{
			Name:        def.Name,
			Condition:   e.predicate(def.Name, "condition", def.Conditions),
			Task:        task,
			MaxChecks:   def.MaxChecks,
			Delay:       def.Delay,
			Every:       def.Every,
			MaxDuration: def.MaxDuration,
		}
		if len(def.TerminateWhen) > 0 {
			o.TerminateWhen = e.predicate(def.Name, "terminate_when", def.TerminateWhen)
		}
		if len(def.OnTermination) > 0 {
			onTerm := def.OnTermination
			o.OnTermination = func(a *scheduler.Action) { e.Apply(onTerm, a) }
		}
		c, err := e.Actions.AddConditionalTask(o)
		return c.Action, err

	default:
		return nil, fmt.Errorf("task %q: unknown mode %q", def.Name, def.Mode)
	}
}

// predicate evaluates conds against the engine state. An evaluation error
// is logged and counts as false.
func (e *Engine) predicate(task, field string, conds []types.Condition) scheduler.Predicate {
	return func() bool {
		ok, err := rules.EvalAllConditions(conds, e.State)
		if err != nil {
			e.Logger.Warn("condition failed", "task", task, "field", field, "tick", e.State.Tick, "error", err)
			return false
		}
		return ok
	}
}

func taskOptions(def types.TaskDef, task scheduler.Task) scheduler.Options {
	return scheduler.Options{
		Name:        def.Name,
		Delay:       def.Delay,
		MaxDuration: def.MaxDuration,
		Every:       def.Every,
		Once:        def.Once,
		Task:        task,
	}
}
