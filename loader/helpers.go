package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// Declarative helpers build the condition and effect tables consumed by
// Task { ... }, for example:
//
//	Task {
//	  name = "door",
//	  conditions = { FlagSet("door_open") },
//	  effects = { Say("The door creaks."), IncCounter("opened") },
//	}

// entry builds a helper returning {type = typ, key1 = arg1, ...}. Keys
// marked optional may be omitted by the caller.
func entry(typ string, keys ...string) lua.LGFunction {
	return func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(typ))
		for i, key := range keys {
			optional := len(key) > 0 && key[0] == '?'
			if optional {
				key = key[1:]
			}
			v := L.Get(i + 1)
			if v == lua.LNil {
				if !optional {
					L.ArgError(i+1, key+" expected")
				}
				continue
			}
			tbl.RawSetString(key, v)
		}
		L.Push(tbl)
		return 1
	}
}

func registerConditionHelpers(L *lua.LState) {
	L.SetGlobal("FlagSet", L.NewFunction(entry("flag_set", "flag")))
	L.SetGlobal("FlagNot", L.NewFunction(entry("flag_not", "flag")))
	L.SetGlobal("FlagIs", L.NewFunction(entry("flag_is", "flag", "value")))
	L.SetGlobal("CounterGt", L.NewFunction(entry("counter_gt", "counter", "value")))
	L.SetGlobal("CounterLt", L.NewFunction(entry("counter_lt", "counter", "value")))
	L.SetGlobal("TickGt", L.NewFunction(entry("tick_gt", "value")))
	L.SetGlobal("HasEvent", L.NewFunction(entry("has_event", "event")))
	L.SetGlobal("Expr", L.NewFunction(entry("expr", "expr")))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("not"))
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	L.SetGlobal("Say", L.NewFunction(entry("say", "text")))
	L.SetGlobal("SetFlag", L.NewFunction(entry("set_flag", "flag", "?value")))
	L.SetGlobal("IncCounter", L.NewFunction(entry("inc_counter", "counter", "?amount")))
	L.SetGlobal("SetCounter", L.NewFunction(entry("set_counter", "counter", "value")))
	L.SetGlobal("EmitEvent", L.NewFunction(entry("emit_event", "event")))
	L.SetGlobal("MarkDone", L.NewFunction(entry("mark_done", "?action")))
	L.SetGlobal("Pause", L.NewFunction(entry("pause", "ticks", "?action")))
	L.SetGlobal("Cancel", L.NewFunction(entry("cancel", "action")))
	L.SetGlobal("Stop", L.NewFunction(entry("stop")))
	L.SetGlobal("Start", L.NewFunction(entry("start")))
	L.SetGlobal("Halt", L.NewFunction(entry("halt")))
}

// registerTaskConstructor installs Task { ... }, which compiles one
// declarative task, schedules it, and returns the action.
func (r *Runtime) registerTaskConstructor(L *lua.LState) {
	L.SetGlobal("Task", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		m, ok := r.toGoValue(tbl).(map[string]any)
		if !ok {
			L.ArgError(1, "task table must have named fields")
		}
		defs, err := CompileTasks([]map[string]any{m}, r.logger)
		if err != nil {
			L.RaiseError("Task: %v", err)
		}
		a, err := r.eng.ScheduleTask(defs[0])
		if err != nil {
			L.RaiseError("Task: %v", err)
		}
		L.Push(r.toLua(a))
		return 1
	}))
}
