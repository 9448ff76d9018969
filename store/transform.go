package store

import (
	"errors"
	"fmt"

	"github.com/on-the-ground/saga_ive_go/lens"
)

// State is the committed state tree.
type State = any

// Update maps a value to its successor. It must not mutate its input.
type Update func(any) any

// Transform is a pure State -> State function.
// Only the kinds declared in this package implement it.
type Transform interface {
	Apply(State) State
	sealedTransform()
}

var _ Transform = Replace{}

// Replace updates the whole state.
type Replace struct {
	Fn Update
}

func (t Replace) Apply(s State) State { return t.Fn(s) }
func (Replace) sealedTransform()      {}

var _ Transform = SetAt{}

// SetAt stores Value at the path addressed by Lens.
type SetAt struct {
	Lens  lens.Lens
	Value any
}

func (t SetAt) Apply(s State) State { return lens.Set(t.Lens, t.Value, s) }
func (SetAt) sealedTransform()      {}

var _ Transform = OverAt{}

// OverAt applies Fn to the sub-state addressed by Lens.
type OverAt struct {
	Lens lens.Lens
	Fn   Update
}

func (t OverAt) Apply(s State) State { return lens.Over(t.Lens, t.Fn, s) }
func (OverAt) sealedTransform()      {}

var ErrTransformFailed = errors.New("transform failed")

// applyBatch composes the batch left to right over s. On failure it returns
// s untouched together with the error of the first failing transform.
func applyBatch(s State, batch []Action) (State, error) {
	next := s
	for _, a := range batch {
		var err error
		if next, err = apply(a, next); err != nil {
			return s, err
		}
	}
	return next, nil
}

func apply(a Action, s State) (next State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("%w: ref %s, action %s: %v", ErrTransformFailed, RefName(a.Ref), a.ID, r)
		}
	}()

	if a.Transform == nil {
		return nil, fmt.Errorf("%w: ref %s, action %s: nil transform", ErrTransformFailed, RefName(a.Ref), a.ID)
	}
	return a.Transform.Apply(s), nil
}
