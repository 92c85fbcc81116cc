package multimethod

import (
	"fmt"

	"github.com/chazu/protean/runtime"
)

// ClassName is the engine class registered by Register.
const ClassName = "Multimethod"

// Register defines a Multimethod engine class in the space, so multimethods
// can live as ordinary instances: construction takes the parameter count,
// the call hook dispatches, and the member functions mirror the Go API.
//
// Construction: Instantiate("Multimethod", NumberValue(paramCount)).
// The backing *Multimethod rides in the instance payload via a custom
// allocator; no default storage is attached.
func Register(space *runtime.ObjectSpace) error {
	members := map[string]runtime.Value{
		runtime.ConsKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			n := 0
			if len(args) > 1 {
				n = int(args[1].AsNumber())
			}
			self.Payload = New(space, n)
			return runtime.NilValue(), nil
		}),

		runtime.HookCall: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			m, err := unwrap(args[0])
			if err != nil {
				return runtime.NilValue(), err
			}
			return m.Call(args[1:]...)
		}),

		runtime.HookLen: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			m, err := unwrap(args[0])
			if err != nil {
				return runtime.NilValue(), err
			}
			return runtime.NumberValue(float64(m.Len())), nil
		}),

		// Define(self, fn, paramTypes...)
		"Define": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			m, err := unwrap(args[0])
			if err != nil {
				return runtime.NilValue(), err
			}
			if len(args) < 2 || !args[1].IsFunc() {
				return runtime.NilValue(), ErrNotCallable
			}
			types := make([]string, 0, len(args)-2)
			for _, tv := range args[2:] {
				if tv.IsNil() {
					types = append(types, Any)
					continue
				}
				types = append(types, tv.AsString())
			}
			return runtime.NilValue(), m.Define(args[1].FuncVal, types...)
		}),

		"GetParamCount": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			m, err := unwrap(args[0])
			if err != nil {
				return runtime.NilValue(), err
			}
			return runtime.NumberValue(float64(m.ParamCount())), nil
		}),

		"GetLastCalledFunc": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			m, err := unwrap(args[0])
			if err != nil {
				return runtime.NilValue(), err
			}
			if m.LastCalled() == nil {
				return runtime.NilValue(), nil
			}
			return runtime.FuncValue(m.LastCalled()), nil
		}),
	}

	return space.Define(ClassName, members, &runtime.Params{Alloc: alloc})
}

// alloc mints a bare handle: all state lives in the payload, so no default
// storage is attached.
func alloc(_ *runtime.Class) (*runtime.Instance, error) {
	return runtime.NewHandle(), nil
}

func unwrap(v runtime.Value) (*Multimethod, error) {
	if !runtime.IsInstance(v) {
		return nil, fmt.Errorf("%w: receiver is not an instance", ErrNotCallable)
	}
	m, ok := v.InstanceVal.Payload.(*Multimethod)
	if !ok {
		return nil, fmt.Errorf("receiver %s carries no multimethod payload", v.InstanceVal.ClassName)
	}
	return m, nil
}
