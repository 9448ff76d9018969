package lens

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/on-the-ground/saga_ive_go/shared/helper"
)

// Key is one path segment: a string addresses a map field, an int addresses
// a sequence index.
type Key = any

var ErrInvalidKey = errors.New("invalid lens key")

// Lens is a compiled getter/setter pair over a nested state value.
// The zero Lens addresses the whole state.
type Lens struct {
	path  []Key
	steps []step
}

type step struct {
	view func(container any) (any, bool)
	set  func(container any, v any) any
}

// Make compiles path into a Lens. It panics if a key is neither a string
// nor a non-negative int.
func Make(path ...Key) Lens {
	steps := make([]step, len(path))
	for i, k := range path {
		steps[i] = compile(k)
	}
	return Lens{path: slices.Clone(path), steps: steps}
}

func compile(k Key) step {
	switch k := k.(type) {
	case string:
		return step{view: viewField(k), set: setField(k)}
	case int:
		if k < 0 {
			panic(fmt.Errorf("%w: negative index %d", ErrInvalidKey, k))
		}
		return step{view: viewIndex(k), set: setIndex(k)}
	default:
		panic(fmt.Errorf("%w: %T(%v)", ErrInvalidKey, k, k))
	}
}

// Path returns a copy of the lens path.
func (l Lens) Path() []Key {
	return slices.Clone(l.path)
}

// Then returns a lens addressing sub relative to l.
func (l Lens) Then(sub Lens) Lens {
	return Lens{
		path:  slices.Concat(l.path, sub.path),
		steps: slices.Concat(l.steps, sub.steps),
	}
}

// At is shorthand for l.Then(Make(path...)).
func (l Lens) At(path ...Key) Lens {
	return l.Then(Make(path...))
}

// Equal reports whether both lenses address the same path.
func (l Lens) Equal(other Lens) bool {
	return slices.Equal(l.path, other.path)
}

func (l Lens) String() string {
	return fmt.Sprintf("%v", l.path)
}

// View returns the value addressed by l in s. ok is false when the value is
// undefined, including when an intermediate node is missing or has the wrong
// shape.
func View(l Lens, s any) (v any, ok bool) {
	if len(l.steps) == 0 {
		return s, s != nil
	}
	v = s
	for _, st := range l.steps {
		if v, ok = st.view(v); !ok {
			return nil, false
		}
	}
	return v, true
}

// ViewAs is View with a type assertion; ok is false on a type mismatch.
func ViewAs[T any](l Lens, s any) (T, bool) {
	return helper.GetTypedValueOf2[T](func() (any, bool) {
		return View(l, s)
	})
}

// Set returns a new state where the value addressed by l is v.
// Missing intermediate containers are created. Setting nil where nothing is
// defined returns s, so writing back an undefined view changes nothing.
func Set(l Lens, v any, s any) any {
	if v == nil {
		if _, ok := View(l, s); !ok {
			return s
		}
	}
	return setSteps(l.steps, v, s)
}

func setSteps(steps []step, v any, s any) any {
	if len(steps) == 0 {
		return v
	}
	child, _ := steps[0].view(s)
	return steps[0].set(s, setSteps(steps[1:], v, child))
}

// Over applies fn to the value addressed by l and sets the result.
// fn receives nil when the value is undefined; a nil result then leaves s
// unchanged.
func Over(l Lens, fn func(any) any, s any) any {
	v, _ := View(l, s)
	return Set(l, fn(v), s)
}

func viewField(k string) func(any) (any, bool) {
	return func(c any) (any, bool) {
		m, ok := c.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[k]
		return v, ok
	}
}

func setField(k string) func(any, any) any {
	return func(c any, v any) any {
		m, _ := c.(map[string]any)
		next := make(map[string]any, len(m)+1)
		maps.Copy(next, m)
		next[k] = v
		return next
	}
}

func viewIndex(i int) func(any) (any, bool) {
	return func(c any) (any, bool) {
		s, ok := c.([]any)
		if !ok || i >= len(s) {
			return nil, false
		}
		return s[i], true
	}
}

func setIndex(i int) func(any, any) any {
	return func(c any, v any) any {
		old, _ := c.([]any)
		next := make([]any, max(len(old), i+1))
		copy(next, old)
		next[i] = v
		return next
	}
}
