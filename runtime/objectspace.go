package runtime

import (
	"fmt"
	"sync"
)

// MemberGen lazily produces a member map. Define accepts one in place of a
// literal map so definitions can be assembled at registration time.
type MemberGen func() map[string]Value

// Params carries the optional Define parameters.
type Params struct {
	// Base names the ancestor class; empty for a root class.
	Base string
	// Alloc overrides the inherited (or default) allocator.
	Alloc AllocFunc
}

// ObjectSpace holds the class registry and the construction stack.
//
// The registry is read-mostly, shared state: populated at definition time,
// never invalidated. The construction stack is strictly LIFO and is only
// meaningful to the single goroutine driving construction.
type ObjectSpace struct {
	mu      sync.RWMutex
	classes map[string]*Class
	frames  []*consFrame
}

// NewObjectSpace creates a new empty object space
func NewObjectSpace() *ObjectSpace {
	return &ObjectSpace{
		classes: make(map[string]*Class),
	}
}

// Define registers a class. The definition is permanent: base, allocator,
// and merged members never change afterwards.
//
// members must be a map[string]Value or a MemberGen. The reserved keys
// "cons" and "clone" supply the constructor and clone body; keys beginning
// "__" supply operator and field-access hooks. Everything else lands in
// the merged member set, layered over the base's set with own entries
// winning on collision.
func (os *ObjectSpace) Define(name string, members any, params *Params) error {
	if name == "" {
		return ErrEmptyClassName
	}
	if isPrimitiveKind(name) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}

	memberMap, err := resolveMembers(members)
	if err != nil {
		return err
	}

	os.mu.Lock()
	defer os.mu.Unlock()

	if _, ok := os.classes[name]; ok {
		return fmt.Errorf("%w: %s", ErrClassExists, name)
	}

	var base *Class
	if params != nil && params.Base != "" {
		base = os.classes[params.Base]
		if base == nil {
			return fmt.Errorf("%w: base %s of %s", ErrUnknownClass, params.Base, name)
		}
	}

	c := &Class{
		Name:    name,
		Members: make(map[string]Value),
		Hooks:   make(map[string]Func),
		Alloc:   defaultAlloc,
		Reader:  storageAccess{},
		Writer:  storageAccess{},
	}

	if base != nil {
		c.Base = base.Name
		c.BaseP = base
		for k, v := range base.Members {
			c.Members[k] = v
		}
		for k, fn := range base.Hooks {
			c.Hooks[k] = fn
		}
		c.Alloc = base.Alloc
		c.Reader = base.Reader
		c.Writer = base.Writer
	}
	if params != nil && params.Alloc != nil {
		c.Alloc = params.Alloc
	}

	for k, v := range memberMap {
		switch {
		case k == ConsKey:
			if !v.IsFunc() {
				return fmt.Errorf("%w: %s.%s is not callable", ErrBadMember, name, k)
			}
			c.Cons = v.FuncVal
		case k == CloneKey:
			if !v.IsFunc() {
				return fmt.Errorf("%w: %s.%s is not callable", ErrBadMember, name, k)
			}
			c.CloneBody = v.FuncVal
		case k == HookIndex:
			reader, err := readerFor(v)
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrBadMember, name, k, err)
			}
			c.Reader = reader
		case k == HookNewIndex:
			writer, err := writerFor(v)
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrBadMember, name, k, err)
			}
			c.Writer = writer
		case hookKeys[k]:
			if !v.IsFunc() {
				return fmt.Errorf("%w: %s.%s is not callable", ErrBadMember, name, k)
			}
			c.Hooks[k] = v.FuncVal
		default:
			c.Members[k] = v
		}
	}

	c.linear = append([]string{name}, baseLinear(base)...)

	os.classes[name] = c
	return nil
}

// resolveMembers normalizes the members argument to a plain map.
func resolveMembers(members any) (map[string]Value, error) {
	switch m := members.(type) {
	case map[string]Value:
		return m, nil
	case MemberGen:
		return runGen(m)
	case func() map[string]Value:
		return runGen(m)
	default:
		return nil, ErrBadMembers
	}
}

func runGen(gen func() map[string]Value) (map[string]Value, error) {
	m := gen()
	if m == nil {
		return nil, ErrBadMembers
	}
	return m, nil
}

func readerFor(v Value) (FieldReader, error) {
	switch v.Type {
	case TypeFunc:
		return funcReader{fn: v.FuncVal}, nil
	case TypeMap:
		return tableReader{table: v.MapVal}, nil
	default:
		return nil, fmt.Errorf("read hook must be a function or a map")
	}
}

func writerFor(v Value) (FieldWriter, error) {
	switch v.Type {
	case TypeFunc:
		return funcWriter{fn: v.FuncVal}, nil
	case TypeMap:
		return tableWriter{table: v.MapVal}, nil
	default:
		return nil, fmt.Errorf("write hook must be a function or a map")
	}
}

func baseLinear(base *Class) []string {
	if base == nil {
		return nil
	}
	return base.linear
}

// GetClass retrieves a registered class, or nil.
func (os *ObjectSpace) GetClass(name string) *Class {
	os.mu.RLock()
	defer os.mu.RUnlock()
	return os.classes[name]
}

// Exists reports whether a class with this name is registered.
func (os *ObjectSpace) Exists(name string) bool {
	return os.GetClass(name) != nil
}

// GetMember looks up a key in a class's merged member set. Reserved members
// (constructor, clone body) and hooks are not visible here. An absent key
// is not an error: ok is false.
func (os *ObjectSpace) GetMember(name, key string) (v Value, ok bool, err error) {
	c := os.GetClass(name)
	if c == nil {
		return NilValue(), false, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	v, ok = c.Members[key]
	if !ok {
		return NilValue(), false, nil
	}
	return v, true, nil
}

// Supers returns the direct base name of a class, or "" for a root class.
func (os *ObjectSpace) Supers(name string) (string, error) {
	c := os.GetClass(name)
	if c == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return c.Base, nil
}

// Linearization returns the ancestor chain of a class: the class itself
// first, the root ancestor last. The result is a copy and safe to keep.
func (os *ObjectSpace) Linearization(name string) ([]string, error) {
	c := os.GetClass(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	lin := make([]string, len(c.linear))
	copy(lin, c.linear)
	return lin, nil
}

// ClassNames returns the names of all registered classes.
func (os *ObjectSpace) ClassNames() []string {
	os.mu.RLock()
	defer os.mu.RUnlock()
	names := make([]string, 0, len(os.classes))
	for name := range os.classes {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered classes.
func (os *ObjectSpace) Len() int {
	os.mu.RLock()
	defer os.mu.RUnlock()
	return len(os.classes)
}
