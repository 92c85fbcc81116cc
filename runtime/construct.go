package runtime

import (
	"fmt"
)

// consFrame marks an instance as currently under construction. tagged
// records every class whose constructor has run for the instance, keyed by
// name, so ancestor delegation happens at most once per ancestor.
type consFrame struct {
	inst   *Instance
	tagged map[string]bool
}

// Instantiate creates a new instance of the named class.
//
// The class's allocator produces the handle, a construction frame tags it
// with the class name, and the constructor runs with (instance, args...).
// The frame is popped whether or not the constructor succeeds; a failed
// constructor is not rolled back, the partially built instance simply
// propagates as an error to the caller and should be discarded.
func (os *ObjectSpace) Instantiate(name string, args ...Value) (*Instance, error) {
	c := os.GetClass(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}

	inst, err := c.Alloc(c)
	if err != nil {
		return nil, fmt.Errorf("allocating %s: %w", name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s allocator returned nil", ErrBadAllocator, name)
	}
	if inst.ClassName != "" {
		return nil, fmt.Errorf("%w: %s (already %s)", ErrInstanceRegistered, inst.ID, inst.ClassName)
	}
	inst.ClassName = name

	if err := os.runConstructor(c, inst, args); err != nil {
		return inst, err
	}
	return inst, nil
}

// Clone creates a copy of an instance via its class's clone body.
//
// The source's current class is the target: allocation, tagging, and frame
// discipline all mirror Instantiate, but the clone body runs with
// (new instance, source instance, args...). A class without a clone body
// does not support cloning.
func (os *ObjectSpace) Clone(src *Instance, args ...Value) (*Instance, error) {
	if src == nil || src.ClassName == "" {
		return nil, ErrNotInstance
	}
	c := os.GetClass(src.ClassName)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, src.ClassName)
	}
	if c.CloneBody == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCloneBody, c.Name)
	}

	inst, err := c.Alloc(c)
	if err != nil {
		return nil, fmt.Errorf("allocating %s clone: %w", c.Name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s allocator returned nil", ErrBadAllocator, c.Name)
	}
	if inst.ClassName != "" {
		return nil, fmt.Errorf("%w: %s (already %s)", ErrInstanceRegistered, inst.ID, inst.ClassName)
	}
	inst.ClassName = c.Name

	if err := os.runClone(c, inst, src, args); err != nil {
		return inst, err
	}
	return inst, nil
}

// SuperCons delegates to a named ancestor's constructor from within a
// constructor body.
//
// It is legal only while inst's frame is the top of the construction
// stack, only for actual ancestors of inst's declared class, and only once
// per ancestor per construction. The ancestor's body runs directly: no new
// frame, no allocation.
func (os *ObjectSpace) SuperCons(inst *Instance, ancestor string, args ...Value) error {
	if inst == nil {
		return ErrNotInstance
	}

	frame := os.topFrame()
	if frame == nil || frame.inst != inst {
		return fmt.Errorf("%w: %s", ErrNoFrame, ancestor)
	}
	if frame.tagged[ancestor] {
		return fmt.Errorf("%w: %s", ErrAlreadyConstructed, ancestor)
	}

	c := os.GetClass(inst.ClassName)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownClass, inst.ClassName)
	}
	if !c.IsAncestor(ancestor) {
		return fmt.Errorf("%w: %s is not an ancestor of %s", ErrNotAncestor, ancestor, c.Name)
	}

	frame.tagged[ancestor] = true

	anc := os.GetClass(ancestor)
	if anc.Cons == nil {
		return nil
	}
	_, err := anc.Cons(append([]Value{InstanceValue(inst)}, args...))
	if err != nil {
		return fmt.Errorf("constructing %s as %s: %w", c.Name, ancestor, err)
	}
	return nil
}

// InConstruction reports whether inst currently owns the top construction
// frame.
func (os *ObjectSpace) InConstruction(inst *Instance) bool {
	frame := os.topFrame()
	return frame != nil && frame.inst == inst
}

func (os *ObjectSpace) runConstructor(c *Class, inst *Instance, args []Value) error {
	os.pushFrame(inst)
	defer os.popFrame()

	if c.Cons == nil {
		return nil
	}
	_, err := c.Cons(append([]Value{InstanceValue(inst)}, args...))
	if err != nil {
		return fmt.Errorf("constructing %s: %w", c.Name, err)
	}
	return nil
}

func (os *ObjectSpace) runClone(c *Class, dst, src *Instance, args []Value) error {
	os.pushFrame(dst)
	defer os.popFrame()

	_, err := c.CloneBody(append([]Value{InstanceValue(dst), InstanceValue(src)}, args...))
	if err != nil {
		return fmt.Errorf("cloning %s: %w", c.Name, err)
	}
	return nil
}

func (os *ObjectSpace) pushFrame(inst *Instance) {
	os.frames = append(os.frames, &consFrame{
		inst:   inst,
		tagged: map[string]bool{inst.ClassName: true},
	})
}

func (os *ObjectSpace) popFrame() {
	os.frames = os.frames[:len(os.frames)-1]
}

func (os *ObjectSpace) topFrame() *consFrame {
	if len(os.frames) == 0 {
		return nil
	}
	return os.frames[len(os.frames)-1]
}
