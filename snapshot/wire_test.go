package snapshot

import (
	"errors"
	"testing"

	"github.com/chazu/protean/runtime"
)

func defineCreature(t *testing.T) *runtime.ObjectSpace {
	t.Helper()
	space := runtime.NewObjectSpace()
	err := space.Define("Creature", map[string]runtime.Value{
		"kind": runtime.StringValue("unknown"),
	}, nil)
	if err != nil {
		t.Fatalf("Define(Creature) = %v", err)
	}
	return space
}

// ----------------------------------------------------------------------
// Capture
// ----------------------------------------------------------------------

func TestCaptureRoundTrip(t *testing.T) {
	space := defineCreature(t)
	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	fields := map[string]runtime.Value{
		"name":  runtime.StringValue("moss"),
		"age":   runtime.NumberValue(7),
		"tame":  runtime.BoolValue(true),
		"stats": runtime.MapValue(map[string]runtime.Value{"hp": runtime.NumberValue(12)}),
	}
	for key, v := range fields {
		if err := space.SetField(inst, key, v); err != nil {
			t.Fatalf("SetField(%s) = %v", key, err)
		}
	}

	s, err := Capture(inst)
	if err != nil {
		t.Fatalf("Capture = %v", err)
	}
	if s.ID != inst.ID {
		t.Errorf("snapshot ID = %q, want %q", s.ID, inst.ID)
	}
	if s.Class != "Creature" {
		t.Errorf("snapshot class = %q, want Creature", s.Class)
	}

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal = %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal = %v", err)
	}
	if back.ID != s.ID || back.Class != s.Class {
		t.Errorf("round trip header = (%q, %q), want (%q, %q)", back.ID, back.Class, s.ID, s.Class)
	}

	if got := fromWire(back.Vars["name"]); got.AsString() != "moss" {
		t.Errorf("name = %v, want moss", got)
	}
	if got := fromWire(back.Vars["age"]); got.AsNumber() != 7 {
		t.Errorf("age = %v, want 7", got)
	}
	if got := fromWire(back.Vars["tame"]); !got.AsBool() {
		t.Errorf("tame = %v, want true", got)
	}
	stats := fromWire(back.Vars["stats"])
	if stats.Type != runtime.TypeMap || stats.MapVal["hp"].AsNumber() != 12 {
		t.Errorf("stats = %v, want map with hp 12", stats)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	s := &Snapshot{
		ID:    "fixed",
		Class: "Creature",
		Vars: map[string]WireValue{
			"b": {Kind: runtime.KindNumber, Num: 2},
			"a": {Kind: runtime.KindNumber, Num: 1},
			"c": {Kind: runtime.KindString, Str: "x"},
		},
	}
	first, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(s)
		if err != nil {
			t.Fatalf("Marshal = %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("encoding differs between runs")
		}
	}
}

func TestCaptureRejectsUnportableFields(t *testing.T) {
	space := defineCreature(t)
	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	fn := runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
		return runtime.NilValue(), nil
	})
	if err := space.SetField(inst, "thunk", fn); err != nil {
		t.Fatalf("SetField = %v", err)
	}

	if _, err := Capture(inst); !errors.Is(err, ErrUnportableValue) {
		t.Errorf("Capture with function field = %v, want ErrUnportableValue", err)
	}
}

func TestCaptureRejectsInstanceReferences(t *testing.T) {
	space := defineCreature(t)
	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	other, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	if err := space.SetField(inst, "friend", runtime.InstanceValue(other)); err != nil {
		t.Fatalf("SetField = %v", err)
	}

	if _, err := Capture(inst); !errors.Is(err, ErrUnportableValue) {
		t.Errorf("Capture with instance field = %v, want ErrUnportableValue", err)
	}
}

func TestCaptureRejectsNonInstances(t *testing.T) {
	if _, err := Capture(nil); !errors.Is(err, runtime.ErrNotInstance) {
		t.Errorf("Capture(nil) = %v, want ErrNotInstance", err)
	}
	if _, err := Capture(runtime.NewHandle()); !errors.Is(err, runtime.ErrNotInstance) {
		t.Errorf("Capture(untagged) = %v, want ErrNotInstance", err)
	}
}
