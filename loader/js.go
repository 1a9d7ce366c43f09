package loader

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja"

	"github.com/nathoo/tickwork/engine/scheduler"
)

// jsFunc adapts a JavaScript function to the scheduler callbacks. A thrown
// exception becomes a Go panic carrying the *goja.Exception.
type jsFunc struct {
	r  *Runtime
	fn goja.Callable
	v  goja.Value
}

func (f jsFunc) task() scheduler.Task {
	return func(a *scheduler.Action) {
		if _, err := f.fn(goja.Undefined(), f.r.toJS(a)); err != nil {
			panic(err)
		}
	}
}

func (f jsFunc) predicate() scheduler.Predicate {
	return func() bool {
		v, err := f.fn(goja.Undefined())
		if err != nil {
			panic(err)
		}
		return v.ToBoolean()
	}
}

func (f jsFunc) handler() func(string) error {
	return func(event string) error {
		_, err := f.fn(goja.Undefined(), f.r.js.ToValue(event))
		return err
	}
}

func (r *Runtime) registerJS() error {
	for name, api := range map[string]map[string]function{"actions": managerAPI, "world": worldAPI} {
		obj, err := r.jsObject(api)
		if err != nil {
			return fmt.Errorf("building %s: %w", name, err)
		}
		if err := r.js.Set(name, obj); err != nil {
			return fmt.Errorf("setting global %s: %w", name, err)
		}
	}
	return nil
}

func (r *Runtime) jsObject(api map[string]function) (*goja.Object, error) {
	obj := r.js.NewObject()
	for name, fn := range api {
		err := obj.Set(name, func(call goja.FunctionCall) goja.Value {
			return r.jsReturn(name)(fn(r, r.jsArgs(call.Arguments)))
		})
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
	}
	return obj, nil
}

// jsAction returns the object for a, creating it on first use so the same
// action is always the same JavaScript value.
func (r *Runtime) jsAction(a *scheduler.Action) (*goja.Object, error) {
	if obj, ok := r.jsActions[a.ID()]; ok && r.jsByObj[obj] == a {
		return obj, nil
	}
	obj := r.js.NewObject()
	for name, m := range actionAPI {
		err := obj.Set(name, func(call goja.FunctionCall) goja.Value {
			return r.jsReturn(name)(m(r, a, r.jsArgs(call.Arguments)))
		})
		if err != nil {
			return nil, fmt.Errorf("action method %s: %w", name, err)
		}
	}
	r.jsActions[a.ID()] = obj
	r.jsByObj[obj] = a
	return obj, nil
}

func (r *Runtime) jsChain(c *scheduler.Chain) (*goja.Object, error) {
	obj := r.js.NewObject()
	for name, m := range chainAPI {
		err := obj.Set(name, func(call goja.FunctionCall) goja.Value {
			return r.jsReturn(name)(m(r, c, r.jsArgs(call.Arguments)))
		})
		if err != nil {
			return nil, fmt.Errorf("chain method %s: %w", name, err)
		}
	}
	return obj, nil
}

// mustJS returns obj, or throws err into the running script.
func (r *Runtime) mustJS(obj *goja.Object, err error) goja.Value {
	if err != nil {
		panic(r.js.NewGoError(err))
	}
	return obj
}

// jsReturn converts an API result, or throws its error under name.
func (r *Runtime) jsReturn(name string) func(any, error) goja.Value {
	return func(v any, err error) goja.Value {
		if err != nil {
			panic(r.js.NewGoError(fmt.Errorf("%s: %w", name, err)))
		}
		if v == nil {
			return goja.Undefined()
		}
		return r.toJS(v)
	}
}

func (r *Runtime) jsArgs(values []goja.Value) []any {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, r.fromJS(v))
	}
	return args
}

// fromJS normalises a JavaScript value the way toGoValue does for Lua.
func (r *Runtime) fromJS(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if fn, ok := goja.AssertFunction(v); ok {
		return jsFunc{r: r, fn: fn, v: v}
	}
	if obj, ok := v.(*goja.Object); ok {
		if a, ok := r.jsByObj[obj]; ok {
			return a
		}
		if obj.ClassName() == "Array" {
			n := int(obj.Get("length").ToInteger())
			arr := make([]any, 0, n)
			for i := 0; i < n; i++ {
				arr = append(arr, r.fromJS(obj.Get(strconv.Itoa(i))))
			}
			return arr
		}
		m := map[string]any{}
		for _, k := range obj.Keys() {
			m[k] = r.fromJS(obj.Get(k))
		}
		return m
	}
	switch x := v.Export().(type) {
	case int64:
		return int(x)
	case float64:
		if x == float64(int(x)) {
			return int(x)
		}
		return x
	default:
		return x
	}
}

// toJS converts an API result or a Go value to JavaScript.
func (r *Runtime) toJS(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return x
	case *scheduler.Action:
		if x == nil {
			return goja.Null()
		}
		return r.mustJS(r.jsAction(x))
	case []*scheduler.Action:
		items := make([]any, len(x))
		for i, a := range x {
			items[i] = r.mustJS(r.jsAction(a))
		}
		return r.js.NewArray(items...)
	case *scheduler.Chain:
		return r.mustJS(r.jsChain(x))
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return r.js.NewArray(items...)
	case jsFunc:
		return x.v
	case luaFunc:
		return goja.Null()
	case scheduler.Value:
		return r.toJS(x.Any())
	default:
		return r.js.ToValue(x)
	}
}
