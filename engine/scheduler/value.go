package scheduler

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Value is an entry in an action's data bag. The scheduler never interprets
// it; script bindings store their own host references as handles.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	h    any
}

// Nil returns the empty value.
func Nil() Value { return Value{} }

// Int wraps an integer.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Handle wraps an opaque host reference.
func Handle(h any) Value {
	if h == nil {
		return Value{}
	}
	return Value{kind: KindHandle, h: h}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v holds nothing.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsInt returns the integer held by v. Floats are truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// AsFloat returns the number held by v.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

// AsHandle returns the host reference held by v.
func (v Value) AsHandle() (any, bool) {
	if v.kind != KindHandle {
		return nil, false
	}
	return v.h, true
}

// Any returns v as a plain Go value, or nil.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.i != 0
	case KindHandle:
		return v.h
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindHandle:
		return fmt.Sprintf("handle(%T)", v.h)
	default:
		return "nil"
	}
}

// ValueOf converts a plain Go value. Anything that is not a number, string,
// or bool becomes a handle.
func ValueOf(x any) Value {
	switch n := x.(type) {
	case nil:
		return Nil()
	case Value:
		return n
	case int:
		return Int(int64(n))
	case int32:
		return Int(int64(n))
	case int64:
		return Int(n)
	case float32:
		return Float(float64(n))
	case float64:
		return Float(n)
	case string:
		return String(n)
	case bool:
		return Bool(n)
	default:
		return Handle(x)
	}
}
