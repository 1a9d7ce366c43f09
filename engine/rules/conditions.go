// Package rules evaluates declarative conditions against the host world
// state. Conditions gate declarative conditional tasks and their
// termination.
package rules

import (
	"fmt"

	"github.com/nathoo/tickwork/engine/events"
	"github.com/nathoo/tickwork/engine/state"
	"github.com/nathoo/tickwork/types"
)

// EvalCondition evaluates a single condition against the current state.
// Unknown condition types are false. Only expr conditions return an error,
// and a failing expression evaluates to false.
func EvalCondition(c types.Condition, s *types.State) (bool, error) {
	switch c.Type {
	case "flag_set":
		flag, _ := c.Params["flag"].(string)
		return state.GetFlag(s, flag), nil

	case "flag_not":
		flag, _ := c.Params["flag"].(string)
		return !state.GetFlag(s, flag), nil

	case "flag_is":
		flag, _ := c.Params["flag"].(string)
		value, _ := c.Params["value"].(bool)
		return state.GetFlag(s, flag) == value, nil

	case "counter_gt":
		counter, _ := c.Params["counter"].(string)
		return state.GetCounter(s, counter) > toInt(c.Params["value"]), nil

	case "counter_lt":
		counter, _ := c.Params["counter"].(string)
		return state.GetCounter(s, counter) < toInt(c.Params["value"]), nil

	case "tick_gt":
		return s.Tick > toInt(c.Params["value"]), nil

	case "has_event":
		event, _ := c.Params["event"].(string)
		return events.Has(s, event), nil

	case "expr":
		src, _ := c.Params["expr"].(string)
		return EvalExpr(src, s)

	case "not":
		if c.Inner == nil {
			return true, nil
		}
		ok, err := EvalCondition(*c.Inner, s)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return false, nil
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true. Evaluation stops at the first
// failing condition or error.
func EvalAllConditions(conditions []types.Condition, s *types.State) (bool, error) {
	for _, c := range conditions {
		ok, err := EvalCondition(c, s)
		if err != nil {
			return false, fmt.Errorf("%s condition: %w", c.Type, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
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
