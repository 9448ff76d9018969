package saga

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/on-the-ground/saga_ive_go/store"
	"go.uber.org/zap"
)

// spawn creates a task for s under parent and runs it up to its first
// suspension.
func (rt *Runtime) spawn(parent *Task, s Saga, initial *store.Action) *Task {
	t := rt.newSagaTask(parent, s, initial)
	rt.start(t)
	return t
}

func (rt *Runtime) newSagaTask(parent *Task, s Saga, initial *store.Action) *Task {
	t := newTask(parent, rt.ctx, sagaName(s), initial)
	fx := &Effects{task: t, rt: rt}
	t.co = newCoroutine(func(yield func(Effect) (any, error)) error {
		fx.yield = yield
		return s(fx)
	})
	return t
}

func (rt *Runtime) start(t *Task) {
	rt.logger.Debug("task spawned",
		zap.String("runtimeId", rt.RuntimeId),
		zap.String("taskId", t.ID),
		zap.String("saga", t.name),
		zap.Bool("root", t.parent == nil),
	)
	rt.drive(t, t.co.start())
}

// drive feeds answers to t until its body suspends or returns.
func (rt *Runtime) drive(t *Task, s step) {
	for {
		if s.done {
			rt.finish(t, s.err)
			return
		}
		if t.stopped {
			s = t.co.resume(nil, t.stopErr)
			continue
		}

		value, suspended, err := rt.interpret(t, s.effect)
		if suspended {
			return
		}
		if t.stopped {
			value, err = nil, t.stopErr
		}
		s = t.co.resume(value, err)
	}
}

// settle answers the wait identified by seq and drives t onwards.
func (rt *Runtime) settle(t *Task, seq uint64, value any, err error) {
	if !t.wake(seq) {
		return
	}
	rt.drive(t, t.co.resume(value, err))
}

// interpret performs e for t. Immediate effects return their answer; the
// others arrange for settle to be called later and report suspended.
func (rt *Runtime) interpret(t *Task, e Effect) (value any, suspended bool, err error) {
	switch e := e.(type) {
	case nil:
		return nil, false, fmt.Errorf("%w: nil effect", ErrBadEffect)

	case Take:
		seq := t.await()
		t.cancelWait = rt.st.SubscribeActions(store.ActionObserver{
			Value: func(a store.Action) {
				if rt.sees(a) && a.Matches(e.Ref) {
					rt.settle(t, seq, a, nil)
				}
			},
			Error: func(err error) {
				rt.settle(t, seq, nil, fmt.Errorf("%w: %w", ErrTakeFailed, err))
			},
		})
		return nil, true, nil

	case TakeEvery:
		if e.Saga == nil {
			return nil, false, fmt.Errorf("%w: take every %s", ErrNilSaga, store.RefName(e.Ref))
		}
		return &Handle{rt: rt, task: rt.watch(t, e)}, false, nil

	case CallAsync:
		if e.Future == nil {
			return nil, false, fmt.Errorf("%w: nil future", ErrBadEffect)
		}
		return rt.call(t, e.Future)

	case CallAction:
		if e.Creator == nil || e.Creator.Make == nil {
			return nil, false, fmt.Errorf("%w: call action without creator", ErrBadEffect)
		}
		return rt.callAction(t, e)

	case RunChild:
		if e.Saga == nil {
			return nil, false, ErrNilSaga
		}
		return &Handle{rt: rt, task: rt.spawn(t, e.Saga, t.initial)}, false, nil

	default:
		panic(fmt.Sprintf("exhaustive match: unknown effect %T", e))
	}
}

func (rt *Runtime) watch(parent *Task, e TakeEvery) *Task {
	w := newTask(parent, rt.ctx, "takeEvery("+store.RefName(e.Ref)+")", nil)
	w.status = statusAwaiting
	w.cancelWait = rt.st.SubscribeActions(store.ActionObserver{
		Value: func(a store.Action) {
			if w.stopped || !rt.sees(a) || !a.Matches(e.Ref) {
				return
			}
			rt.spawn(w, e.Saga, &a)
		},
		Error: func(err error) {
			rt.logger.Debug("watch skipped aborted batch",
				zap.String("runtimeId", rt.RuntimeId),
				zap.String("taskId", w.ID),
				zap.Error(err),
			)
		},
	})
	return w
}

func (rt *Runtime) call(t *Task, f Future) (any, bool, error) {
	seq := t.await()
	ctx, cancel := context.WithCancel(t.ctx)
	t.cancelWait = cancel

	started := rt.sv.Go(ctx, func(ctx context.Context) {
		value, err := runFuture(ctx, f)
		if !rt.st.Post(func() { rt.settle(t, seq, value, err) }) {
			rt.logger.Warn("future settled after store closed",
				zap.String("runtimeId", rt.RuntimeId),
				zap.String("taskId", t.ID),
			)
		}
	})
	if !started {
		t.endWait()
		t.status = statusRunning
		return nil, false, ErrClosed
	}
	return nil, true, nil
}

func runFuture(ctx context.Context, f Future) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("%w: future: %v", ErrPanicked, r)
		}
	}()
	return f(ctx)
}

func (rt *Runtime) callAction(t *Task, e CallAction) (any, bool, error) {
	var tr store.Transform
	if len(rt.lens.Path()) == 0 {
		tr = store.Replace{Fn: e.Creator.Make(e.Args...)}
	} else {
		tr = store.OverAt{Lens: rt.lens, Fn: e.Creator.Make(e.Args...)}
	}
	a := store.NewAction(tr, e.Creator, e.Args...)
	a.Origin = rt.origin

	seq := t.await()
	t.cancelWait = rt.st.SubscribeActions(store.ActionObserver{
		Value: func(committed store.Action) {
			if committed.ID == a.ID {
				rt.settle(t, seq, committed, nil)
			}
		},
		Error: func(err error) {
			rt.settle(t, seq, nil, fmt.Errorf("%w: %w", ErrTakeFailed, err))
		},
	})

	if err := rt.st.DispatchAction(a); err != nil {
		t.endWait()
		t.status = statusRunning
		return nil, false, err
	}
	return nil, true, nil
}

// stop stops t's subtree, children first, and then raises the stop error
// into t's body.
func (rt *Runtime) stop(t *Task, cause error) {
	if t.stopped {
		return
	}
	t.stopped = true
	t.stopErr = &StopError{Cause: cause}

	for _, c := range slices.Clone(t.children) {
		rt.stop(c, cause)
	}

	t.endWait()
	t.cancel()

	rt.logger.Debug("task stopped",
		zap.String("runtimeId", rt.RuntimeId),
		zap.String("taskId", t.ID),
		zap.String("saga", t.name),
		zap.Stringer("status", t.status),
	)

	switch {
	case t.isWatch():
		rt.finish(t, nil)
	case t.status == statusAwaiting:
		t.status = statusRunning
		rt.drive(t, t.co.resume(nil, t.stopErr))
	case t.status == statusDone:
		rt.release(t)
	}
	// a running task gets the stop error from its next effect
}

func (rt *Runtime) finish(t *Task, err error) {
	t.status = statusDone
	t.err = err
	t.endWait()
	t.cancel()

	if err != nil && !errors.Is(err, ErrStopped) {
		rt.logger.Error("saga did not handle error",
			zap.String("runtimeId", rt.RuntimeId),
			zap.String("saga", t.name),
			zap.String("taskId", t.ID),
			zap.Error(err),
		)
	}
	rt.release(t)
}

// release detaches t from the tree once it and all of its children are
// finished, and then tries the same for its parent.
func (rt *Runtime) release(t *Task) {
	if t.complete || t.status != statusDone || len(t.children) > 0 {
		return
	}
	t.complete = true
	close(t.done)

	parent := t.parent
	if parent == nil {
		delete(rt.roots, t)
		return
	}
	parent.removeChild(t)
	rt.release(parent)
}
