package runtime

import (
	"fmt"
)

// Operator dispatch over the per-class hook set. Hooks run with the
// operands as arguments; binary hooks fire when either operand is an
// instance whose class intercepts the operation, left operand first.

// classOf returns the class intercepting hooks for v, or nil.
func (os *ObjectSpace) classOf(v Value) *Class {
	if !IsInstance(v) {
		return nil
	}
	return os.GetClass(v.InstanceVal.ClassName)
}

// binaryHook finds the named hook on either operand's class.
func (os *ObjectSpace) binaryHook(name string, a, b Value) Func {
	if c := os.classOf(a); c != nil {
		if fn := c.Hook(name); fn != nil {
			return fn
		}
	}
	if c := os.classOf(b); c != nil {
		if fn := c.Hook(name); fn != nil {
			return fn
		}
	}
	return nil
}

// Equals compares two values, honoring the equality hook when an instance
// operand intercepts it. Without a hook, instances compare by identity and
// primitives by value.
func (os *ObjectSpace) Equals(a, b Value) (bool, error) {
	if fn := os.binaryHook(HookEq, a, b); fn != nil {
		v, err := fn([]Value{a, b})
		if err != nil {
			return false, err
		}
		return v.AsBool(), nil
	}
	return rawEqual(a, b), nil
}

// Less orders two values through the ordering hook. Numbers and strings
// order natively; anything else requires a hook.
func (os *ObjectSpace) Less(a, b Value) (bool, error) {
	if fn := os.binaryHook(HookLt, a, b); fn != nil {
		v, err := fn([]Value{a, b})
		if err != nil {
			return false, err
		}
		return v.AsBool(), nil
	}
	if a.Type == TypeNumber && b.Type == TypeNumber {
		return a.NumVal < b.NumVal, nil
	}
	if a.Type == TypeString && b.Type == TypeString {
		return a.StringVal < b.StringVal, nil
	}
	return false, fmt.Errorf("%w: ordering %s and %s", ErrNoHook, a.Kind(), b.Kind())
}

// LessEq mirrors Less through the __le hook, falling back to
// !Less(b, a) when only ordering is intercepted.
func (os *ObjectSpace) LessEq(a, b Value) (bool, error) {
	if fn := os.binaryHook(HookLe, a, b); fn != nil {
		v, err := fn([]Value{a, b})
		if err != nil {
			return false, err
		}
		return v.AsBool(), nil
	}
	gt, err := os.Less(b, a)
	if err != nil {
		return false, err
	}
	return !gt, nil
}

// Arith applies a binary arithmetic hook ("__add", "__sub", "__mul",
// "__div"). Plain numbers compute natively.
func (os *ObjectSpace) Arith(hook string, a, b Value) (Value, error) {
	if fn := os.binaryHook(hook, a, b); fn != nil {
		return fn([]Value{a, b})
	}
	if a.Type == TypeNumber && b.Type == TypeNumber {
		switch hook {
		case HookAdd:
			return NumberValue(a.NumVal + b.NumVal), nil
		case HookSub:
			return NumberValue(a.NumVal - b.NumVal), nil
		case HookMul:
			return NumberValue(a.NumVal * b.NumVal), nil
		case HookDiv:
			return NumberValue(a.NumVal / b.NumVal), nil
		}
	}
	return NilValue(), fmt.Errorf("%w: %s on %s and %s", ErrNoHook, hook, a.Kind(), b.Kind())
}

// Concat joins two values through the concatenation hook, or natively for
// strings and numbers.
func (os *ObjectSpace) Concat(a, b Value) (Value, error) {
	if fn := os.binaryHook(HookConcat, a, b); fn != nil {
		return fn([]Value{a, b})
	}
	if concatable(a) && concatable(b) {
		return StringValue(a.AsString() + b.AsString()), nil
	}
	return NilValue(), fmt.Errorf("%w: concatenating %s and %s", ErrNoHook, a.Kind(), b.Kind())
}

func concatable(v Value) bool {
	return v.Type == TypeString || v.Type == TypeNumber
}

// Length measures a value through the length hook. Maps and strings
// measure natively; instances without a hook report their default storage
// size.
func (os *ObjectSpace) Length(v Value) (int, error) {
	if c := os.classOf(v); c != nil {
		if fn := c.Hook(HookLen); fn != nil {
			r, err := fn([]Value{v})
			if err != nil {
				return 0, err
			}
			return int(r.AsNumber()), nil
		}
		return len(v.InstanceVal.Vars), nil
	}
	switch v.Type {
	case TypeString:
		return len(v.StringVal), nil
	case TypeMap:
		return len(v.MapVal), nil
	}
	return 0, fmt.Errorf("%w: length of %s", ErrNoHook, v.Kind())
}

// CallValue applies a value to arguments: plain functions directly,
// instances through their call hook.
func (os *ObjectSpace) CallValue(v Value, args ...Value) (Value, error) {
	if v.IsFunc() {
		return v.FuncVal(args)
	}
	if c := os.classOf(v); c != nil {
		if fn := c.Hook(HookCall); fn != nil {
			return fn(append([]Value{v}, args...))
		}
	}
	return NilValue(), fmt.Errorf("%w: %s", ErrNotCallable, v.Kind())
}

// Finalize runs an instance's finalize hook, if any. Owners holding
// instances by ID call this before dropping them.
func (os *ObjectSpace) Finalize(inst *Instance) error {
	if inst == nil || inst.ClassName == "" {
		return ErrNotInstance
	}
	c := os.GetClass(inst.ClassName)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownClass, inst.ClassName)
	}
	fn := c.Hook(HookGC)
	if fn == nil {
		return nil
	}
	_, err := fn([]Value{InstanceValue(inst)})
	return err
}
