package loader

import (
	"fmt"

	"github.com/nathoo/tickwork/engine/scheduler"
)

// callable is a script function usable as a task, a predicate, or an
// event handler.
type callable interface {
	task() scheduler.Task
	predicate() scheduler.Predicate
	handler() func(event string) error
}

// Script arguments are normalised before parsing: strings, numbers (int or
// float64), bools, nil, callables, *scheduler.Action, and map[string]any for
// option tables.

// isConditionalArgs reports whether args describe a conditional action:
// an option table with a condition, or at least two functions.
func isConditionalArgs(args []any) bool {
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			_, ok := m["condition"]
			return ok
		}
	}
	n := 0
	for _, a := range args {
		if _, ok := a.(callable); ok {
			n++
		}
	}
	return n >= 2
}

// actionOptions parses the plain action forms:
//
//	(opts)
//	(name, delay, maxDuration, fn)
//	(name, delay, fn)
//	(delay, fn)
//	(name, fn)
//	(name)
//	(fn)
func actionOptions(args []any) (scheduler.Options, error) {
	var o scheduler.Options
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			return optionsFromMap(m)
		}
	}

	rest := args
	if len(rest) > 0 {
		if s, ok := rest[0].(string); ok {
			o.Name = s
			rest = rest[1:]
		}
	}

	var nums []int
	for len(rest) > 0 {
		n, ok := toInt(rest[0])
		if !ok {
			break
		}
		nums = append(nums, n)
		rest = rest[1:]
	}
	switch len(nums) {
	case 0:
	case 1:
		o.Delay = nums[0]
	case 2:
		o.Delay, o.MaxDuration = nums[0], nums[1]
	default:
		return o, fmt.Errorf("too many numeric arguments")
	}

	if len(rest) > 0 {
		fn, ok := rest[0].(callable)
		if !ok {
			return o, fmt.Errorf("expected a function, got %T", rest[0])
		}
		o.Task = fn.task()
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return o, fmt.Errorf("unexpected argument %v", rest[0])
	}
	return o, nil
}

// conditionalOptions parses the conditional action forms:
//
//	(opts)
//	(name?, condition, task, terminateWhen?, onTermination?)
func conditionalOptions(args []any) (scheduler.ConditionalOptions, error) {
	var o scheduler.ConditionalOptions
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			return conditionalFromMap(m)
		}
	}

	rest := args
	if len(rest) > 0 {
		if s, ok := rest[0].(string); ok {
			o.Name = s
			rest = rest[1:]
		}
	}
	var fns []callable
	for _, a := range rest {
		fn, ok := a.(callable)
		if !ok {
			return o, fmt.Errorf("expected a function, got %T", a)
		}
		fns = append(fns, fn)
	}
	if len(fns) < 2 || len(fns) > 4 {
		return o, fmt.Errorf("conditional action needs 2 to 4 functions, got %d", len(fns))
	}
	o.Condition = fns[0].predicate()
	o.Task = fns[1].task()
	if len(fns) > 2 {
		o.TerminateWhen = fns[2].predicate()
	}
	if len(fns) > 3 {
		o.OnTermination = fns[3].task()
	}
	return o, nil
}

func optionsFromMap(m map[string]any) (scheduler.Options, error) {
	o := scheduler.Options{
		Name:        str(m, "name"),
		Delay:       intOf(m, "delay", "startAfterTicks"),
		MaxDuration: intOf(m, "maxDuration"),
		Every:       intOf(m, "every", "updateEveryXTick"),
	}
	o.Once, _ = m["once"].(bool)
	if v, ok := m["task"]; ok {
		fn, ok := v.(callable)
		if !ok {
			return o, fmt.Errorf("task must be a function")
		}
		o.Task = fn.task()
	}
	return o, nil
}

func conditionalFromMap(m map[string]any) (scheduler.ConditionalOptions, error) {
	o := scheduler.ConditionalOptions{
		Name:        str(m, "name"),
		Delay:       intOf(m, "delay", "startAfterTicks"),
		MaxDuration: intOf(m, "maxDuration"),
		Every:       intOf(m, "every", "updateEveryXTick"),
		MaxChecks:   intOf(m, "maxChecks"),
	}
	fn := func(key string) (callable, error) {
		v, ok := m[key]
		if !ok || v == nil {
			return nil, nil
		}
		c, ok := v.(callable)
		if !ok {
			return nil, fmt.Errorf("%s must be a function", key)
		}
		return c, nil
	}
	for _, key := range []string{"condition", "task", "terminateWhen", "onTermination"} {
		c, err := fn(key)
		if err != nil {
			return o, err
		}
		if c == nil {
			continue
		}
		switch key {
		case "condition":
			o.Condition = c.predicate()
		case "task":
			o.Task = c.task()
		case "terminateWhen":
			o.TerminateWhen = c.predicate()
		case "onTermination":
			o.OnTermination = c.task()
		}
	}
	return o, nil
}

// chainArgs parses a chain step: (delay, fn) or (delay, name, fn).
func chainArgs(args []any) (delay int, name string, fn callable, err error) {
	if len(args) < 2 {
		return 0, "", nil, fmt.Errorf("chain step needs a delay and a function")
	}
	delay, ok := toInt(args[0])
	if !ok {
		return 0, "", nil, fmt.Errorf("chain delay must be a number")
	}
	rest := args[1:]
	if s, ok := rest[0].(string); ok {
		name = s
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return 0, "", nil, fmt.Errorf("chain step needs exactly one function")
	}
	fn, ok = rest[0].(callable)
	if !ok {
		return 0, "", nil, fmt.Errorf("expected a function, got %T", rest[0])
	}
	return delay, name, fn, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// intOf returns the first key present in m as an int.
func intOf(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if n, ok := toInt(m[k]); ok {
			return n
		}
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
