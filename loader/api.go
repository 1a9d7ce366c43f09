package loader

import (
	"fmt"

	"github.com/nathoo/tickwork/engine/events"
	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/engine/state"
)

// The script API is declared once over normalised arguments (see args.go)
// and bound to each VM by lua.go and js.go. Results may be nil, bool, int,
// string, []string, *scheduler.Action, []*scheduler.Action,
// *scheduler.Chain, or scheduler.Value.

type function func(r *Runtime, args []any) (any, error)

type method func(r *Runtime, a *scheduler.Action, args []any) (any, error)

type chainMethod func(r *Runtime, c *scheduler.Chain, args []any) (any, error)

// managerAPI is exposed as the global "actions".
var managerAPI = map[string]function{
	"create": func(r *Runtime, args []any) (any, error) {
		return r.create(args)
	},
	"schedule": func(r *Runtime, args []any) (any, error) {
		a, err := r.create(args)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.ScheduleAction(a)
	},
	"scheduleAt": func(r *Runtime, args []any) (any, error) {
		index, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		a, err := r.create(args[1:])
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.ScheduleActionAt(index, a)
	},
	"scheduleParallel": func(r *Runtime, args []any) (any, error) {
		a, err := r.create(args)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.ScheduleParallelAction(a)
	},
	"addTask": func(r *Runtime, args []any) (any, error) {
		o, err := actionOptions(args)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.AddTask(o)
	},
	"addSingleTask": func(r *Runtime, args []any) (any, error) {
		o, err := actionOptions(args)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.AddSingleTask(o.Name, o.Delay, o.Task)
	},
	"addConditionalTask": func(r *Runtime, args []any) (any, error) {
		o, err := conditionalOptions(args)
		if err != nil {
			return nil, err
		}
		c, err := r.eng.Actions.AddConditionalTask(o)
		return c.Action, err
	},
	"cancel": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.CancelAction(name), nil
	},
	"clear": func(r *Runtime, _ []any) (any, error) {
		r.eng.Actions.Clear()
		return nil, nil
	},
	"start": func(r *Runtime, _ []any) (any, error) {
		r.eng.Actions.Start()
		return nil, nil
	},
	"stop": func(r *Runtime, _ []any) (any, error) {
		r.eng.Actions.Stop()
		return nil, nil
	},
	"running": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.Running(), nil
	},
	"chain": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.Chain(), nil
	},
	"parallelChain": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.ParallelChain(), nil
	},
	"current": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.CurrentAction(), nil
	},
	"index": func(r *Runtime, args []any) (any, error) {
		a, err := argAction(args, 0)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.Index(a), nil
	},
	"size": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.Len(), nil
	},
	"queue": func(r *Runtime, _ []any) (any, error) {
		return r.eng.Actions.Queue(), nil
	},
	"lookup": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.Lookup(name), nil
	},
}

// worldAPI is exposed as the global "world".
var worldAPI = map[string]function{
	"tick": func(r *Runtime, _ []any) (any, error) {
		return r.eng.State.Tick, nil
	},
	"flag": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return state.GetFlag(r.eng.State, name), nil
	},
	"setFlag": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		value := true
		if len(args) > 1 {
			if b, ok := args[1].(bool); ok {
				value = b
			}
		}
		state.SetFlag(r.eng.State, name, value)
		return nil, nil
	},
	"counter": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return state.GetCounter(r.eng.State, name), nil
	},
	"incCounter": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		amount := 1
		if len(args) > 1 {
			if amount, err = argInt(args, 1); err != nil {
				return nil, err
			}
		}
		return state.AddCounter(r.eng.State, name, amount), nil
	},
	"setCounter": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		n, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		state.SetCounter(r.eng.State, name, n)
		return nil, nil
	},
	"emit": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		r.eng.Emit(name)
		return nil, nil
	},
	"hasEvent": func(r *Runtime, args []any) (any, error) {
		name, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return events.Has(r.eng.State, name), nil
	},
	"random": func(r *Runtime, args []any) (any, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return r.eng.RNG.Roll(n), nil
	},
	"chance": func(r *Runtime, args []any) (any, error) {
		p, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return r.eng.RNG.Chance(p), nil
	},
	// weighted(w1, w2, ...) or weighted({w1, w2, ...}) returns the chosen
	// zero-based index, or nil when no weight is positive.
	"weighted": func(r *Runtime, args []any) (any, error) {
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok {
				args = list
			}
		}
		weights := make([]int, len(args))
		for i, v := range args {
			w, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("weight %d is not a number", i+1)
			}
			weights[i] = w
		}
		if i := r.eng.RNG.WeightedSelect(weights); i >= 0 {
			return i, nil
		}
		return nil, nil
	},
	"say": func(r *Runtime, args []any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("say needs a message")
		}
		r.eng.Say(fmt.Sprint(args[0]))
		return nil, nil
	},
	"on": func(r *Runtime, args []any) (any, error) {
		event, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		fn, err := argCallable(args, 1)
		if err != nil {
			return nil, err
		}
		r.eng.On(event, fn.handler())
		return nil, nil
	},
}

// actionAPI holds the methods of an action object. Setters return the
// action itself so calls can be chained.
var actionAPI = map[string]method{
	"id": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return int(a.ID()), nil
	},
	"getName": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Name(), nil
	},
	"getCount": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Count(), nil
	},
	"getDuration": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Duration(), nil
	},
	"getMaxDuration": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.MaxDuration(), nil
	},
	"setMaxDuration": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return a.SetMaxDuration(n), nil
	},
	"getUpdateEveryXTick": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.UpdateEveryXTick(), nil
	},
	"setUpdateEveryXTick": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return a.SetUpdateEveryXTick(n), nil
	},
	"getStartAfterTicks": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.StartAfterTicks(), nil
	},
	"pauseFor": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return a.PauseFor(n), nil
	},
	"markDone": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		a.MarkDone()
		return nil, nil
	},
	"isDone": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.IsDone(), nil
	},
	"isScheduled": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Scheduled(), nil
	},
	"getError": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		if a.Err() == nil {
			return nil, nil
		}
		return a.Err().Error(), nil
	},
	"setTask": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		fn, err := argCallable(args, 0)
		if err != nil {
			return nil, err
		}
		return a.SetTask(fn.task()), nil
	},
	"getData": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		v, _ := a.GetData(key)
		return v, nil
	},
	"setData": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		var v any
		if len(args) > 1 {
			v = args[1]
		}
		return a.SetData(key, scheduler.ValueOf(v)), nil
	},
	"removeData": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return a.RemoveData(key), nil
	},
	"hasData": func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return a.HasData(key), nil
	},
	"getDataKeys": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.DataKeys(), nil
	},
	"getNext": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Next(), nil
	},
	"getPrevious": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Previous(), nil
	},
	"after": func(r *Runtime, a *scheduler.Action, args []any) (any, error) {
		return r.link(a, args, true)
	},
	"before": func(r *Runtime, a *scheduler.Action, args []any) (any, error) {
		return r.link(a, args, false)
	},
	"isConditional": func(_ *Runtime, a *scheduler.Action, _ []any) (any, error) {
		return a.Conditional() != nil, nil
	},
	"setCondition": conditional(func(c *scheduler.ConditionalAction, args []any) (any, error) {
		fn, err := argCallable(args, 0)
		if err != nil {
			return nil, err
		}
		return c.SetCondition(fn.predicate()).Action, nil
	}),
	"terminateWhen": conditional(func(c *scheduler.ConditionalAction, args []any) (any, error) {
		fn, err := argCallable(args, 0)
		if err != nil {
			return nil, err
		}
		return c.TerminateWhen(fn.predicate()).Action, nil
	}),
	"onTermination": conditional(func(c *scheduler.ConditionalAction, args []any) (any, error) {
		fn, err := argCallable(args, 0)
		if err != nil {
			return nil, err
		}
		return c.OnTermination(fn.task()).Action, nil
	}),
	"wasTaskExecuted": conditional(func(c *scheduler.ConditionalAction, _ []any) (any, error) {
		return c.WasTaskExecuted(), nil
	}),
	"getCheckCount": conditional(func(c *scheduler.ConditionalAction, _ []any) (any, error) {
		return c.CheckCount(), nil
	}),
	"getMaxChecks": conditional(func(c *scheduler.ConditionalAction, _ []any) (any, error) {
		return c.MaxChecks(), nil
	}),
	"setMaxChecks": conditional(func(c *scheduler.ConditionalAction, args []any) (any, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return c.SetMaxChecks(n).Action, nil
	}),
}

// chainAPI holds the methods of a chain builder.
var chainAPI = map[string]chainMethod{
	"after": func(_ *Runtime, c *scheduler.Chain, args []any) (any, error) {
		delay, name, fn, err := chainArgs(args)
		if err != nil {
			return nil, err
		}
		return c.AfterNamed(delay, name, fn.task()), nil
	},
	"actions": func(_ *Runtime, c *scheduler.Chain, _ []any) (any, error) {
		return c.Actions(), nil
	},
	"getError": func(_ *Runtime, c *scheduler.Chain, _ []any) (any, error) {
		if c.Err() == nil {
			return nil, nil
		}
		return c.Err().Error(), nil
	},
}

func conditional(fn func(c *scheduler.ConditionalAction, args []any) (any, error)) method {
	return func(_ *Runtime, a *scheduler.Action, args []any) (any, error) {
		c := a.Conditional()
		if c == nil {
			return nil, fmt.Errorf("action %s is not conditional", label(a))
		}
		return fn(c, args)
	}
}

// create returns the action passed in args, or creates one from them.
func (r *Runtime) create(args []any) (*scheduler.Action, error) {
	if len(args) == 1 {
		if a, ok := args[0].(*scheduler.Action); ok {
			return a, nil
		}
	}
	if isConditionalArgs(args) {
		o, err := conditionalOptions(args)
		if err != nil {
			return nil, err
		}
		return r.eng.Actions.CreateConditional(o).Action, nil
	}
	o, err := actionOptions(args)
	if err != nil {
		return nil, err
	}
	return r.eng.Actions.Create(o), nil
}

// link chains the action described by args after or before a. A rejected
// link is not an error here: the returned action carries it in Err.
func (r *Runtime) link(a *scheduler.Action, args []any, after bool) (*scheduler.Action, error) {
	x, err := r.create(args)
	if err != nil {
		return nil, err
	}
	if after {
		return a.AfterAction(x), nil
	}
	return a.BeforeAction(x), nil
}

func label(a *scheduler.Action) string {
	if a.Name() != "" {
		return a.Name()
	}
	return fmt.Sprintf("#%d", a.ID())
}

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string", i+1)
	}
	return s, nil
}

func argInt(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	n, ok := toInt(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be a number", i+1)
	}
	return n, nil
}

func argCallable(args []any, i int) (callable, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i+1)
	}
	fn, ok := args[i].(callable)
	if !ok {
		return nil, fmt.Errorf("argument %d must be a function", i+1)
	}
	return fn, nil
}

func argAction(args []any, i int) (*scheduler.Action, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i+1)
	}
	a, ok := args[i].(*scheduler.Action)
	if !ok {
		return nil, fmt.Errorf("argument %d must be an action", i+1)
	}
	return a, nil
}
