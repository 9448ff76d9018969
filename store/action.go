package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/shared/helper"
	"github.com/rickb777/date/v2/timespan"
)

// Ref identifies where an action came from. It is only ever compared, never
// executed. Refs must be comparable to match anything; *ActionCreator is the
// usual choice.
type Ref = any

// Action is a dispatched transform together with its identity.
type Action struct {
	ID        string
	Ref       Ref
	Args      []any
	Transform Transform
	// Origin names the dispatcher that owns the action, such as a binding.
	// Empty for actions dispatched on the store directly.
	Origin string
	// At is set when the action is committed.
	At TimeSpan
}

// NewAction builds an action record with a fresh ID.
func NewAction(t Transform, ref Ref, args ...any) Action {
	return Action{
		ID:        uuid.New().String(),
		Ref:       ref,
		Args:      args,
		Transform: t,
	}
}

// Matches reports whether a was dispatched with ref. A nil ref matches any
// action.
func (a Action) Matches(ref Ref) bool {
	return ref == nil || SameRef(a.Ref, ref)
}

// SameRef compares two refs without panicking on incomparable values.
func SameRef(a, b Ref) bool {
	if !helper.IsComparable(a) || !helper.IsComparable(b) {
		return false
	}
	return helper.SameReference(a, b)
}

// RefName renders a ref for logs.
func RefName(ref Ref) string {
	switch r := ref.(type) {
	case nil:
		return "<nil>"
	case fmt.Stringer:
		return r.String()
	case string:
		return r
	default:
		return fmt.Sprintf("%T(%v)", ref, ref)
	}
}

// ActionCreator builds the update for an action from its arguments.
// A creator's pointer is the ref of every action it produces.
type ActionCreator struct {
	Name string
	Make func(args ...any) Update
}

func NewActionCreator(name string, make func(args ...any) Update) *ActionCreator {
	return &ActionCreator{Name: name, Make: make}
}

func (c *ActionCreator) String() string {
	return c.Name
}

// Initialization is the ref of the action a consumer dispatches to install
// its default sub-state.
var Initialization = &ActionCreator{Name: "initialization"}

type TimeSpan = timespan.TimeSpan

const epsilon = time.Millisecond

// Now returns a short span around the current instant.
func Now() TimeSpan {
	now := time.Now()
	return timespan.BetweenTimes(now.Add(-1*epsilon), now.Add(epsilon))
}
