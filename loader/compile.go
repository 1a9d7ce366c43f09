package loader

import (
	"log/slog"
	"sort"

	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/types"
	lua "github.com/yuin/gopher-lua"
)

// CompileTasks converts raw declarative task definitions, as decoded from
// YAML or built by the Lua Task helper, into TaskDefs and validates them.
// Validation warnings go to logger, which may be nil.
func CompileTasks(raw []map[string]any, logger *slog.Logger) ([]types.TaskDef, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defs := make([]types.TaskDef, 0, len(raw))
	for _, m := range raw {
		defs = append(defs, compileTask(m))
	}
	if err := validate(defs, logger); err != nil {
		return nil, err
	}
	return defs, nil
}

func compileTask(m map[string]any) types.TaskDef {
	def := types.TaskDef{
		Name:        str(m, "name"),
		Mode:        str(m, "mode"),
		Delay:       intOf(m, "delay"),
		MaxDuration: intOf(m, "max_duration"),
		Every:       intOf(m, "every"),
		MaxChecks:   intOf(m, "max_checks"),
	}
	def.Once, _ = m["once"].(bool)
	def.Conditions = compileConditions(m["conditions"])
	def.TerminateWhen = compileConditions(m["terminate_when"])
	def.Then = compileEffects(m["then"])
	if def.Then == nil {
		// "then" is a Lua keyword; scripts write effects = { ... }.
		def.Then = compileEffects(m["effects"])
	}
	def.OnTermination = compileEffects(m["on_termination"])

	// A task with conditions and no explicit mode is conditional.
	if def.Mode == "" && len(def.Conditions) > 0 {
		def.Mode = "conditional"
	}
	return def
}

func compileConditions(v any) []types.Condition {
	var conditions []types.Condition
	for _, item := range list(v) {
		if m, ok := item.(map[string]any); ok {
			conditions = append(conditions, compileCondition(m))
		}
	}
	return conditions
}

func compileCondition(m map[string]any) types.Condition {
	condType := str(m, "type")

	if condType == "not" {
		if inner, ok := m["inner"].(map[string]any); ok {
			c := compileCondition(inner)
			return types.Condition{
				Type:   "not",
				Negate: true,
				Inner:  &c,
			}
		}
	}

	return types.Condition{
		Type:   condType,
		Params: params(m),
	}
}

func compileEffects(v any) []types.Effect {
	var effects []types.Effect
	for _, item := range list(v) {
		if m, ok := item.(map[string]any); ok {
			effects = append(effects, types.Effect{
				Type:   str(m, "type"),
				Params: params(m),
			})
		}
	}
	return effects
}

// params copies every key except "type".
func params(m map[string]any) map[string]any {
	p := map[string]any{}
	for k, v := range m {
		if k != "type" {
			p[k] = v
		}
	}
	return p
}

// list accepts a sequence, or a single table standing for a one-item
// sequence.
func list(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		return []any{x}
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	default:
		return nil
	}
}

// toGoValue converts a Lua value to a Go value recursively. Functions become
// callables and action userdata becomes *scheduler.Action.
func (r *Runtime) toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LFunction:
		return luaFunc{r: r, fn: val}
	case *lua.LUserData:
		if a, ok := val.Value.(*scheduler.Action); ok {
			return a
		}
		return nil
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, r.toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		// Otherwise treat as map.
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = r.toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// sortedScripts returns script files with main.lua and main.js first and
// the rest sorted alphabetically.
func sortedScripts(files []string) []string {
	var mains, others []string
	for _, f := range files {
		if f == "main.lua" || f == "main.js" {
			mains = append(mains, f)
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(mains)
	sort.Strings(others)
	// main.lua before main.js.
	if len(mains) == 2 {
		mains[0], mains[1] = mains[1], mains[0]
	}
	return append(mains, others...)
}
