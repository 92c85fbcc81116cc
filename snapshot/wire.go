// Package snapshot persists instance state outside the engine. Snapshots
// capture an instance's class tag and default storage; restoring goes back
// through the engine's public construction and field operations.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/protean/runtime"
)

// ErrUnportableValue means a field held a value that cannot round-trip
// (functions, instance references, allocator payloads).
var ErrUnportableValue = errors.New("value cannot be snapshotted")

// cborEncMode uses canonical options for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the portable representation of one instance.
type Snapshot struct {
	ID    string               `cbor:"id"`
	Class string               `cbor:"class"`
	Vars  map[string]WireValue `cbor:"vars"`
}

// WireValue is the portable representation of one field value.
type WireValue struct {
	Kind string               `cbor:"kind"`
	Bool bool                 `cbor:"bool,omitempty"`
	Num  float64              `cbor:"num,omitempty"`
	Str  string               `cbor:"str,omitempty"`
	Map  map[string]WireValue `cbor:"map,omitempty"`
}

// Capture builds a snapshot from an instance's default storage. Fields
// holding functions, instance references, or foreign payload state fail:
// only plain data is portable.
func Capture(inst *runtime.Instance) (*Snapshot, error) {
	if inst == nil || inst.ClassName == "" {
		return nil, runtime.ErrNotInstance
	}
	s := &Snapshot{
		ID:    inst.ID,
		Class: inst.ClassName,
		Vars:  make(map[string]WireValue, len(inst.Vars)),
	}
	for key, v := range inst.Vars {
		wv, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		s.Vars[key] = wv
	}
	return s, nil
}

// Marshal serializes a Snapshot to CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}

func toWire(v runtime.Value) (WireValue, error) {
	switch v.Type {
	case runtime.TypeNil:
		return WireValue{Kind: runtime.KindNil}, nil
	case runtime.TypeBool:
		return WireValue{Kind: runtime.KindBool, Bool: v.BoolVal}, nil
	case runtime.TypeNumber:
		return WireValue{Kind: runtime.KindNumber, Num: v.NumVal}, nil
	case runtime.TypeString:
		return WireValue{Kind: runtime.KindString, Str: v.StringVal}, nil
	case runtime.TypeMap:
		m := make(map[string]WireValue, len(v.MapVal))
		for key, elem := range v.MapVal {
			wv, err := toWire(elem)
			if err != nil {
				return WireValue{}, err
			}
			m[key] = wv
		}
		return WireValue{Kind: runtime.KindMap, Map: m}, nil
	default:
		return WireValue{}, fmt.Errorf("%w: %s", ErrUnportableValue, v.Kind())
	}
}

func fromWire(wv WireValue) runtime.Value {
	switch wv.Kind {
	case runtime.KindBool:
		return runtime.BoolValue(wv.Bool)
	case runtime.KindNumber:
		return runtime.NumberValue(wv.Num)
	case runtime.KindString:
		return runtime.StringValue(wv.Str)
	case runtime.KindMap:
		m := make(map[string]runtime.Value, len(wv.Map))
		for key, elem := range wv.Map {
			m[key] = fromWire(elem)
		}
		return runtime.MapValue(m)
	default:
		return runtime.NilValue()
	}
}
