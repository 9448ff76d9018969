package saga

import (
	"context"

	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/shared/helper"
	"github.com/on-the-ground/saga_ive_go/store"
)

// Effects is a body's only handle on the runtime. Its methods must be called
// from the body's own goroutine.
type Effects struct {
	task  *Task
	rt    *Runtime
	yield func(Effect) (any, error)
}

// Yield hands e to the runtime and blocks until it is answered.
func (fx *Effects) Yield(e Effect) (any, error) {
	return fx.yield(e)
}

// Take waits for the next committed action dispatched with ref, or for any
// action when ref is nil.
func (fx *Effects) Take(ref store.Ref) (store.Action, error) {
	return yieldAs[store.Action](fx, Take{Ref: ref})
}

// TakeEvery runs s for every committed action dispatched with ref.
// Stopping the returned handle ends the watch and every saga it spawned.
func (fx *Effects) TakeEvery(ref store.Ref, s Saga) (*Handle, error) {
	return yieldAs[*Handle](fx, TakeEvery{Ref: ref, Saga: s})
}

// Call waits for f and returns its result.
func (fx *Effects) Call(f Future) (any, error) {
	return fx.yield(CallAsync{Future: f})
}

// CallAction dispatches c's update with args and waits for the committed
// action.
func (fx *Effects) CallAction(c *store.ActionCreator, args ...any) (store.Action, error) {
	return yieldAs[store.Action](fx, CallAction{Creator: c, Args: args})
}

// Run starts s as a child task.
func (fx *Effects) Run(s Saga) (*Handle, error) {
	return yieldAs[*Handle](fx, RunChild{Saga: s})
}

// Initial returns the action a TakeEvery child was spawned for. Children
// started with Run inherit their parent's.
func (fx *Effects) Initial() (store.Action, bool) {
	if fx.task.initial == nil {
		return store.Action{}, false
	}
	return *fx.task.initial, true
}

// State views the committed state through the runtime's lens.
func (fx *Effects) State() (any, bool) {
	return lens.View(fx.rt.lens, fx.rt.st.CurrentState())
}

// Context is cancelled when the task stops or finishes.
func (fx *Effects) Context() context.Context {
	return fx.task.ctx
}

func (fx *Effects) ID() string {
	return fx.task.ID
}

// CallAs is Call with the result asserted to T.
func CallAs[T any](fx *Effects, f Future) (T, error) {
	return yieldAs[T](fx, CallAsync{Future: f})
}

func yieldAs[T any](fx *Effects, e Effect) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return fx.yield(e)
	})
}
