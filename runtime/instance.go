package runtime

import (
	"github.com/google/uuid"
)

// Instance represents a Protean object instance.
//
// The class association lives on the instance itself (ClassName), so the
// engine never has to keep a handle table of its own; when the last
// reference to an instance goes away, the association goes with it.
// External owners (persistence layers, schedulers) that do hold instances
// by ID are responsible for releasing them explicitly.
type Instance struct {
	ID        string
	ClassName string

	// Vars is the private storage wired up by the default allocator.
	// Custom allocators may leave it nil and keep state in Payload instead.
	Vars map[string]Value

	// Payload carries allocator-specific state for custom allocators.
	Payload any
}

// newDefaultInstance mints a fresh handle with empty private storage.
// The class tag is applied by the construction engine, not here.
func newDefaultInstance() *Instance {
	return &Instance{
		ID:   uuid.NewString(),
		Vars: make(map[string]Value),
	}
}

// NewHandle mints an untagged handle without default storage, for custom
// allocators that keep state in the payload instead.
func NewHandle() *Instance {
	return &Instance{ID: uuid.NewString()}
}

// GetVar reads a key from the instance's default storage.
func (inst *Instance) GetVar(name string) (Value, bool) {
	if inst.Vars == nil {
		return NilValue(), false
	}
	v, ok := inst.Vars[name]
	return v, ok
}

// SetVar writes a key into the instance's default storage. Writing nil
// deletes the key, which un-shadows any same-named class member.
func (inst *Instance) SetVar(name string, v Value) {
	if inst.Vars == nil {
		inst.Vars = make(map[string]Value)
	}
	if v.IsNil() {
		delete(inst.Vars, name)
		return
	}
	inst.Vars[name] = v
}

// VarNames returns the keys currently present in default storage.
func (inst *Instance) VarNames() []string {
	names := make([]string, 0, len(inst.Vars))
	for name := range inst.Vars {
		names = append(names, name)
	}
	return names
}
