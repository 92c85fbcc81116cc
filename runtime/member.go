package runtime

import (
	"fmt"
)

// GetField resolves a field read on an instance.
//
// The class's read hook runs first: the default hook consults the
// instance's private storage, a function hook is called with (instance,
// key), a mapping hook is indexed directly. When the hook yields nothing,
// lookup falls back to the class's merged member set, where shared,
// type-level behavior lives. A key absent from both tiers reads as nil.
//
// An instance can shadow a type-level member by writing a same-named value
// into its private storage, and un-shadow it by writing nil.
func (os *ObjectSpace) GetField(inst *Instance, key string) (Value, error) {
	if inst == nil || inst.ClassName == "" {
		return NilValue(), ErrNotInstance
	}
	c := os.GetClass(inst.ClassName)
	if c == nil {
		return NilValue(), fmt.Errorf("%w: %s", ErrUnknownClass, inst.ClassName)
	}

	v, ok, err := c.Reader.ReadField(inst, key)
	if err != nil {
		return NilValue(), fmt.Errorf("reading %s.%s: %w", c.Name, key, err)
	}
	if ok {
		return v, nil
	}
	if mv, ok := c.Members[key]; ok {
		return mv, nil
	}
	return NilValue(), nil
}

// SetField resolves a field write on an instance. Writes go through the
// class's write hook only; the merged member set is never mutated.
func (os *ObjectSpace) SetField(inst *Instance, key string, v Value) error {
	if inst == nil || inst.ClassName == "" {
		return ErrNotInstance
	}
	c := os.GetClass(inst.ClassName)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownClass, inst.ClassName)
	}
	if err := c.Writer.WriteField(inst, key, v); err != nil {
		return fmt.Errorf("writing %s.%s: %w", c.Name, key, err)
	}
	return nil
}

// Invoke reads a member function off an instance and calls it with the
// instance as receiver: the resolved function runs with (instance, args...).
func (os *ObjectSpace) Invoke(inst *Instance, key string, args ...Value) (Value, error) {
	fn, err := os.GetField(inst, key)
	if err != nil {
		return NilValue(), err
	}
	if !fn.IsFunc() {
		return NilValue(), fmt.Errorf("%w: %s.%s", ErrNotCallable, inst.ClassName, key)
	}
	return fn.FuncVal(append([]Value{InstanceValue(inst)}, args...))
}
