package runtime

// AllocFunc produces a fresh, untagged instance handle for a class.
// Custom allocators receive the class being instantiated and own whatever
// storage they attach; they must return a handle compatible with the
// class's field-access hooks.
type AllocFunc func(c *Class) (*Instance, error)

// Reserved member keys. Both are validated as callable at Define time and
// are stored outside the merged member set, invisible to field lookup.
const (
	ConsKey  = "cons"
	CloneKey = "clone"
)

// Operator hook keys. Members with these names are routed into the class's
// hook set rather than the merged member set. A derived class inherits its
// base's hooks unless it supplies its own.
const (
	HookIndex    = "__index"
	HookNewIndex = "__newindex"
	HookEq       = "__eq"
	HookLt       = "__lt"
	HookLe       = "__le"
	HookAdd      = "__add"
	HookSub      = "__sub"
	HookMul      = "__mul"
	HookDiv      = "__div"
	HookCall     = "__call"
	HookConcat   = "__concat"
	HookGC       = "__gc"
	HookLen      = "__len"
)

var hookKeys = map[string]bool{
	HookIndex:    true,
	HookNewIndex: true,
	HookEq:       true,
	HookLt:       true,
	HookLe:       true,
	HookAdd:      true,
	HookSub:      true,
	HookMul:      true,
	HookDiv:      true,
	HookCall:     true,
	HookConcat:   true,
	HookGC:       true,
	HookLen:      true,
}

// Class represents a registered Protean class. Once registered, the base,
// allocator, and merged member set never change.
type Class struct {
	Name string
	Base string
	// BaseP is the resolved base class pointer, nil for root classes.
	BaseP *Class

	// Members is the merged member set: own entries layered over the
	// base's merged set, own entries winning on name collision.
	Members map[string]Value

	// Cons is the constructor body, nil for the default no-op.
	Cons Func
	// CloneBody is the clone body; nil means cloning is unsupported.
	CloneBody Func

	Alloc AllocFunc

	// Reader and Writer are the field-access hook pair, defaulting to the
	// generic storage-backed implementation.
	Reader FieldReader
	Writer FieldWriter

	// Hooks holds the intercepted operator set, merged from the base.
	Hooks map[string]Func

	// linear is the flattened ancestor chain, self first, root last.
	// Built at Define time; classes are immutable afterwards, so it is
	// never invalidated.
	linear []string
}

// FieldReader resolves per-instance field reads. ok=false means the hook
// yielded no value and lookup falls back to the merged member set.
type FieldReader interface {
	ReadField(self *Instance, key string) (v Value, ok bool, err error)
}

// FieldWriter applies per-instance field writes. There is no member-set
// fallback for writes.
type FieldWriter interface {
	WriteField(self *Instance, key string, v Value) error
}

// storageAccess is the default field-access implementation, backed by the
// instance's private Vars map.
type storageAccess struct{}

func (storageAccess) ReadField(self *Instance, key string) (Value, bool, error) {
	v, ok := self.GetVar(key)
	return v, ok, nil
}

func (storageAccess) WriteField(self *Instance, key string, v Value) error {
	self.SetVar(key, v)
	return nil
}

// funcReader adapts a user hook function: called with (instance, key), a
// nil result means "no value here".
type funcReader struct {
	fn Func
}

func (r funcReader) ReadField(self *Instance, key string) (Value, bool, error) {
	v, err := r.fn([]Value{InstanceValue(self), StringValue(key)})
	if err != nil {
		return NilValue(), false, err
	}
	if v.IsNil() {
		return NilValue(), false, nil
	}
	return v, true, nil
}

// tableReader adapts a plain mapping hook: reads index the mapping itself.
type tableReader struct {
	table map[string]Value
}

func (r tableReader) ReadField(_ *Instance, key string) (Value, bool, error) {
	v, ok := r.table[key]
	return v, ok, nil
}

// funcWriter adapts a user hook function, called with (instance, key, value).
type funcWriter struct {
	fn Func
}

func (w funcWriter) WriteField(self *Instance, key string, v Value) error {
	_, err := w.fn([]Value{InstanceValue(self), StringValue(key), v})
	return err
}

// tableWriter adapts a plain mapping hook: writes mutate the mapping.
type tableWriter struct {
	table map[string]Value
}

func (w tableWriter) WriteField(_ *Instance, key string, v Value) error {
	if v.IsNil() {
		delete(w.table, key)
		return nil
	}
	w.table[key] = v
	return nil
}

// defaultAlloc mints a handle with freshly allocated private storage.
func defaultAlloc(_ *Class) (*Instance, error) {
	return newDefaultInstance(), nil
}

// Linearization returns the class's ancestor chain, self first.
// The returned slice is shared and must not be mutated.
func (c *Class) Linearization() []string {
	return c.linear
}

// IsAncestor reports whether name appears in the class's ancestor chain,
// excluding the class itself.
func (c *Class) IsAncestor(name string) bool {
	for _, a := range c.linear[1:] {
		if a == name {
			return true
		}
	}
	return false
}

// Hook returns the named operator hook, or nil if neither this class nor
// an ancestor supplied one.
func (c *Class) Hook(name string) Func {
	return c.Hooks[name]
}
