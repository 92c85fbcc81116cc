// Package widget builds a small user-interface hierarchy on top of the
// engine's public surface: delegating constructors, per-instance member
// shadowing, clone bodies, a signal protocol, and multimethod dispatch
// over the class tree. It carries no dispatch machinery of its own.
package widget

import (
	"fmt"

	"github.com/chazu/protean/multimethod"
	"github.com/chazu/protean/runtime"
)

// Class names registered by this package.
const (
	ClassWidget = "Widget"
	ClassButton = "Button"
	ClassLabel  = "Label"
)

const signalsKey = "signals"

// Register defines the Widget, Button, and Label classes in space.
func Register(space *runtime.ObjectSpace) error {
	if err := defineWidget(space); err != nil {
		return err
	}
	if err := defineButton(space); err != nil {
		return err
	}
	return defineLabel(space)
}

func defineWidget(space *runtime.ObjectSpace) error {
	members := map[string]runtime.Value{
		"x":       runtime.NumberValue(0),
		"y":       runtime.NumberValue(0),
		"width":   runtime.NumberValue(0),
		"height":  runtime.NumberValue(0),
		"visible": runtime.BoolValue(true),

		// cons(self, x, y, width, height)
		runtime.ConsKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			keys := []string{"x", "y", "width", "height"}
			for i, key := range keys {
				if v := argAt(args, i+1); !v.IsNil() {
					if err := space.SetField(self, key, v); err != nil {
						return runtime.NilValue(), err
					}
				}
			}
			return runtime.NilValue(), nil
		}),

		// clone(dst, src): geometry carries over, signal connections don't.
		runtime.CloneKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			dst, src := args[0].InstanceVal, args[1].InstanceVal
			for _, key := range []string{"x", "y", "width", "height", "visible"} {
				v, err := space.GetField(src, key)
				if err != nil {
					return runtime.NilValue(), err
				}
				if err := space.SetField(dst, key, v); err != nil {
					return runtime.NilValue(), err
				}
			}
			return runtime.NilValue(), nil
		}),

		"moveTo": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			if err := space.SetField(self, "x", argAt(args, 1)); err != nil {
				return runtime.NilValue(), err
			}
			return runtime.NilValue(), space.SetField(self, "y", argAt(args, 2))
		}),

		"contains": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			px, py := argAt(args, 1).AsNumber(), argAt(args, 2).AsNumber()
			x, y, w, h, err := bounds(space, self)
			if err != nil {
				return runtime.NilValue(), err
			}
			in := px >= x && px < x+w && py >= y && py < y+h
			return runtime.BoolValue(in), nil
		}),

		// connect(self, name, handler) keeps one handler per signal name.
		"connect": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			name := argAt(args, 1).AsString()
			handler := argAt(args, 2)
			if !handler.IsFunc() {
				return runtime.NilValue(), runtime.ErrNotCallable
			}
			sigs, err := space.GetField(self, signalsKey)
			if err != nil {
				return runtime.NilValue(), err
			}
			table := sigs.MapVal
			if table == nil {
				table = make(map[string]runtime.Value)
			}
			table[name] = handler
			return runtime.NilValue(), space.SetField(self, signalsKey, runtime.MapValue(table))
		}),

		// emit(self, name, args...) is a no-op without a connected handler.
		"emit": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			name := argAt(args, 1).AsString()
			sigs, err := space.GetField(self, signalsKey)
			if err != nil {
				return runtime.NilValue(), err
			}
			handler, ok := sigs.MapVal[name]
			if !ok || !handler.IsFunc() {
				return runtime.NilValue(), nil
			}
			rest := args[2:]
			return handler.FuncVal(append([]runtime.Value{args[0]}, rest...))
		}),
	}
	return space.Define(ClassWidget, members, nil)
}

func defineButton(space *runtime.ObjectSpace) error {
	members := map[string]runtime.Value{
		"label": runtime.StringValue(""),

		// cons(self, label, x, y, width, height)
		runtime.ConsKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			err := space.SuperCons(self, ClassWidget,
				argAt(args, 2), argAt(args, 3), argAt(args, 4), argAt(args, 5))
			if err != nil {
				return runtime.NilValue(), err
			}
			if label := argAt(args, 1); !label.IsNil() {
				return runtime.NilValue(), space.SetField(self, "label", label)
			}
			return runtime.NilValue(), nil
		}),

		runtime.CloneKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			dst, src := args[0].InstanceVal, args[1].InstanceVal
			for _, key := range []string{"x", "y", "width", "height", "visible", "label"} {
				v, err := space.GetField(src, key)
				if err != nil {
					return runtime.NilValue(), err
				}
				if err := space.SetField(dst, key, v); err != nil {
					return runtime.NilValue(), err
				}
			}
			return runtime.NilValue(), nil
		}),

		// press(self) routes through the inherited signal protocol.
		"press": runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			return space.Invoke(self, "emit", runtime.StringValue("pressed"))
		}),
	}
	return space.Define(ClassButton, members, &runtime.Params{Base: ClassWidget})
}

func defineLabel(space *runtime.ObjectSpace) error {
	members := map[string]runtime.Value{
		"text": runtime.StringValue(""),

		// cons(self, text, x, y); width tracks the text.
		runtime.ConsKey: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].InstanceVal
			text := argAt(args, 1).AsString()
			width := runtime.NumberValue(float64(8 * len(text)))
			err := space.SuperCons(self, ClassWidget,
				argAt(args, 2), argAt(args, 3), width, runtime.NumberValue(16))
			if err != nil {
				return runtime.NilValue(), err
			}
			return runtime.NilValue(), space.SetField(self, "text", runtime.StringValue(text))
		}),
	}
	return space.Define(ClassLabel, members, &runtime.Params{Base: ClassWidget})
}

// NewDescribe builds a multimethod over (widget, detail) pairs. Buttons and
// labels have specialized renderings when detail is a string; any widget
// falls back to its geometry.
func NewDescribe(space *runtime.ObjectSpace) (*multimethod.Multimethod, error) {
	m := multimethod.New(space, 2)

	err := m.Define(func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		label, err := space.GetField(self, "label")
		if err != nil {
			return runtime.NilValue(), err
		}
		s := fmt.Sprintf("Button(%s, %s)", label.AsString(), args[1].AsString())
		return runtime.StringValue(s), nil
	}, ClassButton, runtime.KindString)
	if err != nil {
		return nil, err
	}

	err = m.Define(func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		text, err := space.GetField(self, "text")
		if err != nil {
			return runtime.NilValue(), err
		}
		s := fmt.Sprintf("Label(%q, %s)", text.AsString(), args[1].AsString())
		return runtime.StringValue(s), nil
	}, ClassLabel, runtime.KindString)
	if err != nil {
		return nil, err
	}

	err = m.Define(func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		x, y, w, h, err := bounds(space, self)
		if err != nil {
			return runtime.NilValue(), err
		}
		s := fmt.Sprintf("Widget(%g,%g %gx%g)", x, y, w, h)
		return runtime.StringValue(s), nil
	}, ClassWidget, multimethod.Any)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NewHitTest builds a multimethod over (widget, point) pairs, where point
// is a map with "x" and "y" entries. Buttons only hit while visible.
func NewHitTest(space *runtime.ObjectSpace) (*multimethod.Multimethod, error) {
	m := multimethod.New(space, 2)

	hit := func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		pt := args[1].MapVal
		return space.Invoke(self, "contains", pt["x"], pt["y"])
	}

	if err := m.Define(hit, ClassWidget, runtime.KindMap); err != nil {
		return nil, err
	}

	err := m.Define(func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		visible, err := space.GetField(self, "visible")
		if err != nil {
			return runtime.NilValue(), err
		}
		if !visible.AsBool() {
			return runtime.BoolValue(false), nil
		}
		return hit(args)
	}, ClassButton, runtime.KindMap)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func bounds(space *runtime.ObjectSpace, inst *runtime.Instance) (x, y, w, h float64, err error) {
	read := func(key string) float64 {
		if err != nil {
			return 0
		}
		var v runtime.Value
		v, err = space.GetField(inst, key)
		return v.AsNumber()
	}
	x, y = read("x"), read("y")
	w, h = read("width"), read("height")
	return x, y, w, h, err
}

func argAt(args []runtime.Value, i int) runtime.Value {
	if i >= len(args) {
		return runtime.NilValue()
	}
	return args[i]
}
