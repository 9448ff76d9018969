package saga

import (
	"context"

	"github.com/on-the-ground/saga_ive_go/store"
)

// Saga is the body of a task.
type Saga func(fx *Effects) error

// Future is an asynchronous computation. It runs off the loop and must
// return promptly once ctx is done.
type Future func(ctx context.Context) (any, error)

// Effect describes one thing a body wants the runtime to do.
// Only the kinds declared in this package implement it.
type Effect interface {
	sealedEffect()
}

var (
	_ Effect = Take{}
	_ Effect = TakeEvery{}
	_ Effect = CallAsync{}
	_ Effect = CallAction{}
	_ Effect = RunChild{}
)

// Take waits for the next committed action dispatched with Ref.
// A nil Ref matches any action.
type Take struct {
	Ref store.Ref
}

// TakeEvery spawns Saga for every committed action dispatched with Ref,
// seeding each child with that action. It does not suspend.
type TakeEvery struct {
	Ref  store.Ref
	Saga Saga
}

// CallAsync waits for Future to settle.
type CallAsync struct {
	Future Future
}

// CallAction dispatches Creator's update and waits for the resulting action
// to be committed.
type CallAction struct {
	Creator *store.ActionCreator
	Args    []any
}

// RunChild spawns Saga as a child task. It does not suspend.
type RunChild struct {
	Saga Saga
}

func (Take) sealedEffect()       {}
func (TakeEvery) sealedEffect()  {}
func (CallAsync) sealedEffect()  {}
func (CallAction) sealedEffect() {}
func (RunChild) sealedEffect()   {}
