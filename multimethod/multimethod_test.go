package multimethod

import (
	"errors"
	"testing"

	"github.com/chazu/protean/runtime"
)

func constant(s string) runtime.Func {
	return func(args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue(s), nil
	}
}

func call(t *testing.T, m *Multimethod, args ...runtime.Value) string {
	t.Helper()
	v, err := m.Call(args...)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	return v.AsString()
}

// ---------------------------------------------------------------------------
// Primitive constraint dispatch
// ---------------------------------------------------------------------------

func TestDispatchOnPrimitiveKinds(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 2)

	if err := m.Define(constant("nn"), runtime.KindNumber, runtime.KindNumber); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("n_"), runtime.KindNumber); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("__")); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	if got := call(t, m, runtime.NumberValue(5), runtime.NumberValue(3)); got != "nn" {
		t.Errorf("(5, 3) -> %q, want nn", got)
	}
	if got := call(t, m, runtime.NumberValue(5), runtime.StringValue("x")); got != "n_" {
		t.Errorf("(5, \"x\") -> %q, want n_", got)
	}
	if got := call(t, m, runtime.StringValue("x"), runtime.StringValue("x")); got != "__" {
		t.Errorf("(\"x\", \"x\") -> %q, want __", got)
	}
}

func TestMissingTrailingArgumentsDispatchAsNil(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 2)
	if err := m.Define(constant("num,nil"), runtime.KindNumber, runtime.KindNil); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("num,num"), runtime.KindNumber, runtime.KindNumber); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	if got := call(t, m, runtime.NumberValue(1)); got != "num,nil" {
		t.Errorf("one-arg call -> %q, want num,nil", got)
	}
}

// ---------------------------------------------------------------------------
// Instance constraint dispatch
// ---------------------------------------------------------------------------

func animalSpace(t *testing.T) *runtime.ObjectSpace {
	t.Helper()
	space := runtime.NewObjectSpace()
	for _, def := range []struct{ name, base string }{
		{"Animal", ""},
		{"Dog", "Animal"},
		{"Puppy", "Dog"},
	} {
		var params *runtime.Params
		if def.base != "" {
			params = &runtime.Params{Base: def.base}
		}
		if err := space.Define(def.name, map[string]runtime.Value{}, params); err != nil {
			t.Fatalf("Define(%s) failed: %v", def.name, err)
		}
	}
	return space
}

func TestNearestAncestorWins(t *testing.T) {
	space := animalSpace(t)
	m := New(space, 1)
	if err := m.Define(constant("bark"), "Dog"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("generic"), "Animal"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	dog, _ := space.Instantiate("Dog")
	if got := call(t, m, runtime.InstanceValue(dog)); got != "bark" {
		t.Errorf("dog -> %q, want bark", got)
	}

	animal, _ := space.Instantiate("Animal")
	if got := call(t, m, runtime.InstanceValue(animal)); got != "generic" {
		t.Errorf("animal -> %q, want generic", got)
	}

	// No exact match: the smallest linearization index decides.
	puppy, _ := space.Instantiate("Puppy")
	if got := call(t, m, runtime.InstanceValue(puppy)); got != "bark" {
		t.Errorf("puppy -> %q, want bark (nearest ancestor)", got)
	}
}

func TestTypedConstraintBeatsUnconstrained(t *testing.T) {
	space := animalSpace(t)
	m := New(space, 2)
	if err := m.Define(constant("typed"), "Animal"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("open")); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	dog, _ := space.Instantiate("Dog")
	if got := call(t, m, runtime.InstanceValue(dog), runtime.NilValue()); got != "typed" {
		t.Errorf("dispatch -> %q, want the typed specialization", got)
	}
}

func TestLaterPositionBreaksTie(t *testing.T) {
	space := animalSpace(t)
	m := New(space, 2)
	if err := m.Define(constant("dog,dog"), "Dog", "Dog"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("dog,animal"), "Dog", "Animal"); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	dog, _ := space.Instantiate("Dog")
	animal, _ := space.Instantiate("Animal")

	if got := call(t, m, runtime.InstanceValue(dog), runtime.InstanceValue(dog)); got != "dog,dog" {
		t.Errorf("(dog, dog) -> %q", got)
	}
	if got := call(t, m, runtime.InstanceValue(dog), runtime.InstanceValue(animal)); got != "dog,animal" {
		t.Errorf("(dog, animal) -> %q", got)
	}
}

// ---------------------------------------------------------------------------
// Specialization list maintenance
// ---------------------------------------------------------------------------

func TestRedefineReplacesInPlace(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 2)
	if err := m.Define(constant("first"), runtime.KindNumber); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if err := m.Define(constant("other")); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	// Identical tuple (explicit trailing Any) replaces the body.
	if err := m.Define(constant("second"), runtime.KindNumber, Any); err != nil {
		t.Fatalf("redefine failed: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len after redefine = %d, want 2", m.Len())
	}
	if got := call(t, m, runtime.NumberValue(1), runtime.NumberValue(2)); got != "second" {
		t.Errorf("dispatch -> %q, want the replacement body", got)
	}
}

func TestDefineValidation(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 1)
	if err := m.Define(nil); !errors.Is(err, ErrNotCallable) {
		t.Errorf("nil body error = %v, want ErrNotCallable", err)
	}
	if err := m.Define(constant("x"), "a", "b"); !errors.Is(err, ErrTooManyParams) {
		t.Errorf("overlong tuple error = %v, want ErrTooManyParams", err)
	}
}

func TestEmptyMultimethodAlwaysFails(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 2)
	if _, err := m.Call(runtime.NumberValue(1), runtime.NumberValue(2)); !errors.Is(err, ErrNoSpecialization) {
		t.Errorf("error = %v, want ErrNoSpecialization", err)
	}
}

func TestNoApplicableSpecialization(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 1)
	if err := m.Define(constant("n"), runtime.KindNumber); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if _, err := m.Call(runtime.StringValue("x")); !errors.Is(err, ErrNoSpecialization) {
		t.Errorf("error = %v, want ErrNoSpecialization", err)
	}
}

func TestAccessors(t *testing.T) {
	space := runtime.NewObjectSpace()
	m := New(space, 3)
	if m.ParamCount() != 3 {
		t.Errorf("ParamCount = %d, want 3", m.ParamCount())
	}
	if m.LastCalled() != nil {
		t.Error("LastCalled before any dispatch should be nil")
	}

	if err := m.Define(constant("x")); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if _, err := m.Call(); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if m.LastCalled() == nil {
		t.Error("LastCalled after dispatch should be set")
	}
}
