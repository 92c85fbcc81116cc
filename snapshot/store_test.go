package snapshot

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/protean/runtime"
)

func openStore(t *testing.T, space *runtime.ObjectSpace) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "snapshots.db"), space)
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// ----------------------------------------------------------------------
// Save / Load
// ----------------------------------------------------------------------

func TestSaveAndLoad(t *testing.T) {
	space := defineCreature(t)
	st := openStore(t, space)

	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	if err := space.SetField(inst, "name", runtime.StringValue("moss")); err != nil {
		t.Fatalf("SetField = %v", err)
	}
	if err := space.SetField(inst, "age", runtime.NumberValue(7)); err != nil {
		t.Fatalf("SetField = %v", err)
	}
	if err := st.Save(inst); err != nil {
		t.Fatalf("Save = %v", err)
	}

	// The saving store holds the original handle.
	got, err := st.Load(inst.ID)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if got != inst {
		t.Errorf("Load after Save returned a different handle")
	}

	// A fresh store restores from the database through the engine.
	fresh, err := Open(st.Path(), space)
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	defer fresh.Close()

	restored, err := fresh.Load(inst.ID)
	if err != nil {
		t.Fatalf("Load (fresh store) = %v", err)
	}
	if restored == inst {
		t.Fatalf("fresh store returned the original handle")
	}
	if restored.ID != inst.ID {
		t.Errorf("restored ID = %q, want %q", restored.ID, inst.ID)
	}
	if restored.ClassName != "Creature" {
		t.Errorf("restored class = %q, want Creature", restored.ClassName)
	}
	name, err := space.GetField(restored, "name")
	if err != nil {
		t.Fatalf("GetField(name) = %v", err)
	}
	if name.AsString() != "moss" {
		t.Errorf("restored name = %v, want moss", name)
	}
	age, err := space.GetField(restored, "age")
	if err != nil {
		t.Fatalf("GetField(age) = %v", err)
	}
	if age.AsNumber() != 7 {
		t.Errorf("restored age = %v, want 7", age)
	}

	// Repeated loads hand back the held instance.
	again, err := fresh.Load(inst.ID)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if again != restored {
		t.Errorf("second Load returned a different handle")
	}
}

func TestSaveReplacesExistingRow(t *testing.T) {
	space := defineCreature(t)
	st := openStore(t, space)

	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	if err := space.SetField(inst, "age", runtime.NumberValue(1)); err != nil {
		t.Fatalf("SetField = %v", err)
	}
	if err := st.Save(inst); err != nil {
		t.Fatalf("Save = %v", err)
	}
	if err := space.SetField(inst, "age", runtime.NumberValue(2)); err != nil {
		t.Fatalf("SetField = %v", err)
	}
	if err := st.Save(inst); err != nil {
		t.Fatalf("second Save = %v", err)
	}

	fresh, err := Open(st.Path(), space)
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	defer fresh.Close()

	restored, err := fresh.Load(inst.ID)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	age, err := space.GetField(restored, "age")
	if err != nil {
		t.Fatalf("GetField = %v", err)
	}
	if age.AsNumber() != 2 {
		t.Errorf("restored age = %v, want 2", age)
	}
	ids, err := fresh.List()
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("List after re-save has %d rows, want 1", len(ids))
	}
}

func TestLoadUnknownID(t *testing.T) {
	space := defineCreature(t)
	st := openStore(t, space)

	if _, err := st.Load("no-such-id"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load(unknown) = %v, want ErrSnapshotNotFound", err)
	}
}

func TestLoadUnregisteredClassFails(t *testing.T) {
	space := defineCreature(t)
	st := openStore(t, space)

	inst, err := space.Instantiate("Creature")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	if err := st.Save(inst); err != nil {
		t.Fatalf("Save = %v", err)
	}

	// A space where the class was never defined can't restore the row.
	bare := runtime.NewObjectSpace()
	fresh, err := Open(st.Path(), bare)
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	defer fresh.Close()

	if _, err := fresh.Load(inst.ID); !errors.Is(err, runtime.ErrUnknownClass) {
		t.Errorf("Load into bare space = %v, want ErrUnknownClass", err)
	}
}

// ----------------------------------------------------------------------
// Delete / List
// ----------------------------------------------------------------------

func TestDeleteRunsFinalizer(t *testing.T) {
	space := runtime.NewObjectSpace()
	finalized := 0
	err := space.Define("Tracked", map[string]runtime.Value{
		runtime.HookGC: runtime.FuncValue(func(args []runtime.Value) (runtime.Value, error) {
			finalized++
			return runtime.NilValue(), nil
		}),
	}, nil)
	if err != nil {
		t.Fatalf("Define = %v", err)
	}
	st := openStore(t, space)

	inst, err := space.Instantiate("Tracked")
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}
	if err := st.Save(inst); err != nil {
		t.Fatalf("Save = %v", err)
	}

	if err := st.Delete(inst.ID); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	if finalized != 1 {
		t.Errorf("finalizer ran %d times, want 1", finalized)
	}
	if _, err := st.Load(inst.ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load after Delete = %v, want ErrSnapshotNotFound", err)
	}

	// Deleting an unheld, absent ID is a no-op.
	if err := st.Delete("no-such-id"); err != nil {
		t.Errorf("Delete(unknown) = %v", err)
	}
}

func TestList(t *testing.T) {
	space := defineCreature(t)
	st := openStore(t, space)

	ids, err := st.List()
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("List on empty store has %d rows", len(ids))
	}

	var saved []*runtime.Instance
	for i := 0; i < 3; i++ {
		inst, err := space.Instantiate("Creature")
		if err != nil {
			t.Fatalf("Instantiate = %v", err)
		}
		if err := st.Save(inst); err != nil {
			t.Fatalf("Save = %v", err)
		}
		saved = append(saved, inst)
	}

	ids, err = st.List()
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("List has %d rows, want 3", len(ids))
	}
	for _, inst := range saved {
		if ids[inst.ID] != "Creature" {
			t.Errorf("List[%s] = %q, want Creature", inst.ID, ids[inst.ID])
		}
	}
}
