// Package runtime provides the dynamic class and dispatch engine for Protean.
// Classes are registered once, by name, into an ObjectSpace; instances are
// opaque handles tagged with exactly one class name, carrying private state.
package runtime

import (
	"fmt"
	"reflect"
	"strconv"
)

// ValueType represents the type of a Protean value
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeFunc
	TypeMap
	TypeInstance
)

// Primitive kind names, as reported by TypeOf for non-instance values.
// Class names may not collide with these.
const (
	KindNil      = "nil"
	KindBool     = "boolean"
	KindNumber   = "number"
	KindString   = "string"
	KindFunc     = "function"
	KindMap      = "map"
	KindInstance = "instance"
)

// Func is the signature for member functions, constructors, clone bodies,
// operator hooks, and multimethod specializations. Calling conventions put
// the receiver (when there is one) in args[0].
type Func func(args []Value) (Value, error)

// Value is the Go representation of a Protean value
type Value struct {
	Type        ValueType
	BoolVal     bool
	NumVal      float64
	StringVal   string
	FuncVal     Func
	MapVal      map[string]Value
	InstanceVal *Instance
}

// NilValue returns a nil value
func NilValue() Value {
	return Value{Type: TypeNil}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	return Value{Type: TypeBool, BoolVal: b}
}

// NumberValue creates a number value
func NumberValue(n float64) Value {
	return Value{Type: TypeNumber, NumVal: n}
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// FuncValue creates a function value
func FuncValue(fn Func) Value {
	return Value{Type: TypeFunc, FuncVal: fn}
}

// MapValue creates a map value
func MapValue(m map[string]Value) Value {
	return Value{Type: TypeMap, MapVal: m}
}

// InstanceValue creates an instance reference value
func InstanceValue(inst *Instance) Value {
	return Value{Type: TypeInstance, InstanceVal: inst}
}

// IsNil returns true if the value is nil
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsFunc returns true if the value is callable
func (v Value) IsFunc() bool {
	return v.Type == TypeFunc && v.FuncVal != nil
}

// AsBool returns the value interpreted as a boolean.
// Nil and false are falsy; everything else is truthy.
func (v Value) AsBool() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.BoolVal
	default:
		return true
	}
}

// AsNumber returns the numeric payload, or 0 for non-numbers
func (v Value) AsNumber() float64 {
	if v.Type == TypeNumber {
		return v.NumVal
	}
	return 0
}

// AsString returns a string representation of the value
func (v Value) AsString() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.BoolVal {
			return "true"
		}
		return "false"
	case TypeNumber:
		return strconv.FormatFloat(v.NumVal, 'g', -1, 64)
	case TypeString:
		return v.StringVal
	case TypeFunc:
		return "<function>"
	case TypeMap:
		return fmt.Sprintf("<map[%d]>", len(v.MapVal))
	case TypeInstance:
		if v.InstanceVal == nil {
			return "<instance nil>"
		}
		return fmt.Sprintf("<%s %s>", v.InstanceVal.ClassName, v.InstanceVal.ID)
	default:
		return "<unknown>"
	}
}

// Kind returns the primitive kind name of a non-instance value, or the
// instance's class name.
func (v Value) Kind() string {
	switch v.Type {
	case TypeNil:
		return KindNil
	case TypeBool:
		return KindBool
	case TypeNumber:
		return KindNumber
	case TypeString:
		return KindString
	case TypeFunc:
		return KindFunc
	case TypeMap:
		return KindMap
	case TypeInstance:
		if v.InstanceVal == nil {
			return KindNil
		}
		return v.InstanceVal.ClassName
	default:
		return KindNil
	}
}

// isPrimitiveKind reports whether name is one of the reserved primitive
// kind names.
func isPrimitiveKind(name string) bool {
	switch name {
	case KindNil, KindBool, KindNumber, KindString, KindFunc, KindMap, KindInstance:
		return true
	}
	return false
}

// rawEqual compares two values without consulting operator hooks.
// Instances and functions compare by identity, maps by reference.
func rawEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNil:
		return true
	case TypeBool:
		return a.BoolVal == b.BoolVal
	case TypeNumber:
		return a.NumVal == b.NumVal
	case TypeString:
		return a.StringVal == b.StringVal
	case TypeInstance:
		return a.InstanceVal == b.InstanceVal
	case TypeMap:
		// Maps compare by storage identity, like instances.
		return a.MapVal != nil && reflect.ValueOf(a.MapVal).Pointer() == reflect.ValueOf(b.MapVal).Pointer()
	case TypeFunc:
		return false
	default:
		return false
	}
}
