package manifest

import (
	"fmt"

	"github.com/chazu/protean/runtime"
)

// Apply registers every declared class into the space, bases before
// derivations regardless of declaration order. Duplicate names, unknown
// bases, and base cycles fail fast before any definition lands.
func (m *Manifest) Apply(space *runtime.ObjectSpace) error {
	decls := make(map[string]*ClassDecl, len(m.Classes))
	for i := range m.Classes {
		d := &m.Classes[i]
		if d.Name == "" {
			return fmt.Errorf("class declaration %d has no name", i)
		}
		if _, ok := decls[d.Name]; ok {
			return fmt.Errorf("duplicate class declaration: %s", d.Name)
		}
		decls[d.Name] = d
	}

	order, err := loadOrder(m.Classes, decls, space)
	if err != nil {
		return err
	}

	for _, d := range order {
		if err := define(space, d); err != nil {
			return fmt.Errorf("defining %s: %w", d.Name, err)
		}
	}
	return nil
}

// loadOrder topologically sorts declarations: bases first. A base may also
// be a class already present in the space.
func loadOrder(classes []ClassDecl, decls map[string]*ClassDecl, space *runtime.ObjectSpace) ([]*ClassDecl, error) {
	var order []*ClassDecl
	state := make(map[string]int, len(decls)) // 0 unseen, 1 visiting, 2 done

	var visit func(d *ClassDecl) error
	visit = func(d *ClassDecl) error {
		switch state[d.Name] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("base cycle through %s", d.Name)
		}
		state[d.Name] = 1

		if d.Base != "" {
			if base, ok := decls[d.Base]; ok {
				if err := visit(base); err != nil {
					return err
				}
			} else if !space.Exists(d.Base) {
				return fmt.Errorf("class %s: unknown base %s", d.Name, d.Base)
			}
		}

		state[d.Name] = 2
		order = append(order, d)
		return nil
	}

	for i := range classes {
		if err := visit(decls[classes[i].Name]); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// define translates one declaration into an engine definition. Declared
// fields become a generated constructor assigning arguments positionally.
func define(space *runtime.ObjectSpace, d *ClassDecl) error {
	members := make(map[string]runtime.Value, len(d.Members)+2)
	for key, raw := range d.Members {
		v, err := toValue(raw)
		if err != nil {
			return fmt.Errorf("member %s: %w", key, err)
		}
		members[key] = v
	}
	if d.Doc != "" {
		members["doc"] = runtime.StringValue(d.Doc)
	}
	if len(d.Fields) > 0 {
		members[runtime.ConsKey] = fieldCons(space, d.Fields)
	}

	var params *runtime.Params
	if d.Base != "" {
		params = &runtime.Params{Base: d.Base}
	}
	return space.Define(d.Name, members, params)
}

// fieldCons builds a constructor assigning each declared field from the
// matching positional argument; missing arguments leave the field unset.
func fieldCons(space *runtime.ObjectSpace, fields []string) runtime.Value {
	return runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
		self := args[0].InstanceVal
		for i, field := range fields {
			if i+1 >= len(args) {
				break
			}
			if err := space.SetField(self, field, args[i+1]); err != nil {
				return runtime.NilValue(), err
			}
		}
		return runtime.NilValue(), nil
	})
}

// toValue converts a decoded TOML constant into an engine value.
func toValue(raw any) (runtime.Value, error) {
	switch v := raw.(type) {
	case bool:
		return runtime.BoolValue(v), nil
	case int64:
		return runtime.NumberValue(float64(v)), nil
	case float64:
		return runtime.NumberValue(v), nil
	case string:
		return runtime.StringValue(v), nil
	case map[string]any:
		m := make(map[string]runtime.Value, len(v))
		for key, elem := range v {
			ev, err := toValue(elem)
			if err != nil {
				return runtime.NilValue(), err
			}
			m[key] = ev
		}
		return runtime.MapValue(m), nil
	default:
		return runtime.NilValue(), fmt.Errorf("unsupported member constant %T", raw)
	}
}
