package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/tickwork/engine/scheduler"
)

const (
	luaActionType = "tickwork.Action"
	luaChainType  = "tickwork.Chain"
)

// luaFunc adapts a Lua function to the scheduler callbacks. Lua errors are
// re-raised as Go panics so the scheduler records them on the action.
type luaFunc struct {
	r  *Runtime
	fn *lua.LFunction
}

func (f luaFunc) task() scheduler.Task {
	return func(a *scheduler.Action) {
		if err := f.r.lua.CallByParam(lua.P{Fn: f.fn, NRet: 0, Protect: true}, f.r.toLua(a)); err != nil {
			panic(err)
		}
	}
}

func (f luaFunc) predicate() scheduler.Predicate {
	return func() bool {
		L := f.r.lua
		if err := L.CallByParam(lua.P{Fn: f.fn, NRet: 1, Protect: true}); err != nil {
			panic(err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return lua.LVAsBool(ret)
	}
}

func (f luaFunc) handler() func(string) error {
	return func(event string) error {
		return f.r.lua.CallByParam(lua.P{Fn: f.fn, NRet: 0, Protect: true}, lua.LString(event))
	}
}

// registerLua installs the actions and world globals, the object
// metatables, and the declarative helpers.
func (r *Runtime) registerLua() {
	L := r.lua

	methods := map[string]lua.LGFunction{}
	for name, m := range actionAPI {
		methods[name] = func(L *lua.LState) int {
			a := r.checkLuaAction(L, 1)
			return r.luaReturn(L, name)(m(r, a, r.luaArgs(L, 2)))
		}
	}
	mt := L.NewTypeMetatable(luaActionType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("action " + label(r.checkLuaAction(L, 1))))
		return 1
	}))

	chainMethods := map[string]lua.LGFunction{}
	for name, m := range chainAPI {
		chainMethods[name] = func(L *lua.LState) int {
			ud := L.CheckUserData(1)
			c, ok := ud.Value.(*scheduler.Chain)
			if !ok {
				L.ArgError(1, "chain expected")
			}
			return r.luaReturn(L, name)(m(r, c, r.luaArgs(L, 2)))
		}
	}
	cmt := L.NewTypeMetatable(luaChainType)
	L.SetField(cmt, "__index", L.SetFuncs(L.NewTable(), chainMethods))

	L.SetGlobal("actions", L.SetFuncs(L.NewTable(), r.luaFuncs(managerAPI)))
	L.SetGlobal("world", L.SetFuncs(L.NewTable(), r.luaFuncs(worldAPI)))

	registerConditionHelpers(L)
	registerEffectHelpers(L)
	r.registerTaskConstructor(L)
}

func (r *Runtime) luaFuncs(api map[string]function) map[string]lua.LGFunction {
	out := make(map[string]lua.LGFunction, len(api))
	for name, fn := range api {
		out[name] = func(L *lua.LState) int {
			return r.luaReturn(L, name)(fn(r, r.luaArgs(L, 1)))
		}
	}
	return out
}

// luaReturn pushes an API result, or raises its error under name.
func (r *Runtime) luaReturn(L *lua.LState, name string) func(any, error) int {
	return func(v any, err error) int {
		if err != nil {
			L.RaiseError("%s: %v", name, err)
			return 0
		}
		if v == nil {
			return 0
		}
		L.Push(r.toLua(v))
		return 1
	}
}

func (r *Runtime) luaArgs(L *lua.LState, from int) []any {
	var args []any
	for i := from; i <= L.GetTop(); i++ {
		args = append(args, r.toGoValue(L.Get(i)))
	}
	return args
}

func (r *Runtime) checkLuaAction(L *lua.LState, n int) *scheduler.Action {
	ud := L.CheckUserData(n)
	a, ok := ud.Value.(*scheduler.Action)
	if !ok {
		L.ArgError(n, "action expected")
	}
	return a
}

// luaAction returns the userdata for a, creating it on first use so the
// same action is always the same Lua value.
func (r *Runtime) luaAction(a *scheduler.Action) lua.LValue {
	if ud, ok := r.luaActions[a.ID()]; ok && ud.Value == a {
		return ud
	}
	ud := r.lua.NewUserData()
	ud.Value = a
	r.lua.SetMetatable(ud, r.lua.GetTypeMetatable(luaActionType))
	r.luaActions[a.ID()] = ud
	return ud
}

// toLua converts an API result or a Go value to Lua.
func (r *Runtime) toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []string:
		tbl := r.lua.NewTable()
		for _, s := range x {
			tbl.Append(lua.LString(s))
		}
		return tbl
	case []any:
		tbl := r.lua.NewTable()
		for _, e := range x {
			tbl.Append(r.toLua(e))
		}
		return tbl
	case map[string]any:
		tbl := r.lua.NewTable()
		for k, e := range x {
			tbl.RawSetString(k, r.toLua(e))
		}
		return tbl
	case luaFunc:
		return x.fn
	case *scheduler.Action:
		if x == nil {
			return lua.LNil
		}
		return r.luaAction(x)
	case []*scheduler.Action:
		tbl := r.lua.NewTable()
		for _, a := range x {
			tbl.Append(r.luaAction(a))
		}
		return tbl
	case *scheduler.Chain:
		ud := r.lua.NewUserData()
		ud.Value = x
		r.lua.SetMetatable(ud, r.lua.GetTypeMetatable(luaChainType))
		return ud
	case scheduler.Value:
		return r.toLua(x.Any())
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
