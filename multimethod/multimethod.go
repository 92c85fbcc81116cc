// Package multimethod adds N-argument runtime-type overload resolution on
// top of ordinary calls. It consumes the class engine's type queries only;
// the engine knows nothing about it.
package multimethod

import (
	"errors"
	"fmt"

	"github.com/chazu/protean/runtime"
)

var (
	// ErrNoSpecialization means dispatch winnowed the candidate set to
	// nothing: no registered specialization accepts the arguments.
	ErrNoSpecialization = errors.New("no applicable specialization")

	// ErrTooManyParams means Define received more constraints than the
	// multimethod has dispatch-relevant parameters.
	ErrTooManyParams = errors.New("too many parameter constraints")

	// ErrNotCallable means Define received a nil function body.
	ErrNotCallable = errors.New("specialization body is not callable")

	// errUnresolved is an internal consistency failure: the tie-break pass
	// ran out of positions with more than one survivor. With all-distinct
	// constraint tuples this cannot happen.
	errUnresolved = errors.New("dispatch did not converge to a single specialization")
)

// Any is the unconstrained parameter marker.
const Any = ""

// specialization pairs a constraint tuple with a function body. Constraints
// are class names or primitive kind names; Any matches everything.
type specialization struct {
	constraints []string
	fn          runtime.Func
}

// Multimethod is an ordered, mutable list of specializations dispatched on
// the runtime types of the first paramCount call arguments.
type Multimethod struct {
	space      *runtime.ObjectSpace
	paramCount int
	specs      []specialization
	last       runtime.Func
}

// New creates a multimethod dispatching on the first paramCount arguments.
// paramCount is fixed for the life of the multimethod.
func New(space *runtime.ObjectSpace, paramCount int) *Multimethod {
	if paramCount < 0 {
		paramCount = 0
	}
	return &Multimethod{
		space:      space,
		paramCount: paramCount,
	}
}

// Define registers a specialization. Unspecified trailing parameters are
// unconstrained. A later Define with an identical constraint tuple replaces
// the earlier body in place, preserving its position.
func (m *Multimethod) Define(fn runtime.Func, paramTypes ...string) error {
	if fn == nil {
		return ErrNotCallable
	}
	if len(paramTypes) > m.paramCount {
		return fmt.Errorf("%w: %d > %d", ErrTooManyParams, len(paramTypes), m.paramCount)
	}

	constraints := make([]string, m.paramCount)
	copy(constraints, paramTypes)

	for i := range m.specs {
		if sameTuple(m.specs[i].constraints, constraints) {
			m.specs[i].fn = fn
			return nil
		}
	}
	m.specs = append(m.specs, specialization{constraints: constraints, fn: fn})
	return nil
}

// ParamCount returns the number of dispatch-relevant parameters.
func (m *Multimethod) ParamCount() int {
	return m.paramCount
}

// Len returns the number of registered specializations.
func (m *Multimethod) Len() int {
	return len(m.specs)
}

// LastCalled returns the most recently dispatched function body, or nil if
// the multimethod has never dispatched successfully.
func (m *Multimethod) LastCalled() runtime.Func {
	return m.last
}

// Call selects the best-matching specialization for the arguments' runtime
// types and invokes it with the original arguments. Missing trailing
// arguments dispatch as nil.
func (m *Multimethod) Call(args ...runtime.Value) (runtime.Value, error) {
	fn, err := m.resolve(args)
	if err != nil {
		return runtime.NilValue(), err
	}
	m.last = fn
	return fn(args)
}

// resolve runs the two dispatch passes: winnow, then positional tie-break.
func (m *Multimethod) resolve(args []runtime.Value) (runtime.Func, error) {
	cands := make([]*specialization, 0, len(m.specs))
	for i := range m.specs {
		cands = append(cands, &m.specs[i])
	}

	// Winnow: a specialization survives a position when it is
	// unconstrained there, names the argument's exact type, or names any
	// ancestor of an instance argument.
	for pos := 0; pos < m.paramCount && len(cands) > 0; pos++ {
		arg := argAt(args, pos)
		exact, lin := m.describe(arg)

		kept := cands[:0]
		for _, s := range cands {
			if constraintMatches(s.constraints[pos], exact, lin) {
				kept = append(kept, s)
			}
		}
		cands = kept
	}
	if len(cands) == 0 {
		return nil, ErrNoSpecialization
	}

	// Tie-break, position by position. An exact-type constraint beats
	// everything at its position; failing that, the nearest ancestor of an
	// instance argument wins, and unconstrained candidates drop out as
	// soon as a typed constraint has matched.
	for pos := 0; len(cands) > 1; pos++ {
		if pos >= m.paramCount {
			return nil, errUnresolved
		}
		arg := argAt(args, pos)
		exact, lin := m.describe(arg)

		if hasConstraint(cands, pos, exact) {
			kept := cands[:0]
			for _, s := range cands {
				if s.constraints[pos] == exact {
					kept = append(kept, s)
				}
			}
			cands = kept
			continue
		}

		if lin == nil {
			continue
		}
		nearest := -1
		for _, s := range cands {
			if s.constraints[pos] == Any {
				continue
			}
			if idx := linIndex(lin, s.constraints[pos]); idx >= 0 && (nearest < 0 || idx < nearest) {
				nearest = idx
			}
		}
		if nearest < 0 {
			continue
		}
		kept := cands[:0]
		for _, s := range cands {
			if s.constraints[pos] != Any && linIndex(lin, s.constraints[pos]) == nearest {
				kept = append(kept, s)
			}
		}
		cands = kept
	}

	return cands[0].fn, nil
}

// describe returns the argument's exact type name and, for instances, its
// linearization. Foreign instances fall back to a single-entry chain.
func (m *Multimethod) describe(v runtime.Value) (string, []string) {
	exact, isInst := runtime.TypeOf(v)
	if !isInst {
		return exact, nil
	}
	lin, err := m.space.Linearization(exact)
	if err != nil {
		return exact, []string{exact}
	}
	return exact, lin
}

func argAt(args []runtime.Value, pos int) runtime.Value {
	if pos < len(args) {
		return args[pos]
	}
	return runtime.NilValue()
}

func constraintMatches(constraint, exact string, lin []string) bool {
	if constraint == Any || constraint == exact {
		return true
	}
	return linIndex(lin, constraint) >= 0
}

func hasConstraint(cands []*specialization, pos int, name string) bool {
	for _, s := range cands {
		if s.constraints[pos] == name {
			return true
		}
	}
	return false
}

func linIndex(lin []string, name string) int {
	for i, n := range lin {
		if n == name {
			return i
		}
	}
	return -1
}

func sameTuple(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
