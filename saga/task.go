package saga

import (
	"context"
	"reflect"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/store"
)

type status int

const (
	statusRunning status = iota
	statusAwaiting
	statusDone
)

func (s status) String() string {
	switch s {
	case statusRunning:
		return "running"
	case statusAwaiting:
		return "awaiting"
	case statusDone:
		return "done"
	default:
		panic("exhaustive match: unknown task status")
	}
}

// Task is one node of the task tree. A task either wraps a saga body or,
// for TakeEvery, a standing watch whose children are the spawned sagas.
// Tasks are only touched by whoever currently drives the runtime.
type Task struct {
	ID   string
	name string

	parent   *Task
	children []*Task

	co      *coroutine // nil for watches
	initial *store.Action

	status  status
	stopped bool
	stopErr *StopError
	err     error

	// seq identifies the current wait; answers carrying an older seq are stale.
	seq        uint64
	cancelWait func()

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	complete bool
}

func newTask(parent *Task, ctx context.Context, name string, initial *store.Action) *Task {
	if parent != nil {
		ctx = parent.ctx
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:         uuid.New().String(),
		name:       name,
		parent:     parent,
		initial:    initial,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cancelWait: func() {},
	}
	if parent != nil {
		parent.children = append(parent.children, t)
	}
	return t
}

func (t *Task) isWatch() bool {
	return t.co == nil
}

// await moves t into the awaiting state and returns the id of the new wait.
func (t *Task) await() uint64 {
	t.seq++
	t.status = statusAwaiting
	return t.seq
}

// wake leaves the current wait. It reports false for stale answers.
func (t *Task) wake(seq uint64) bool {
	if t.stopped || t.status != statusAwaiting || t.seq != seq {
		return false
	}
	t.endWait()
	t.status = statusRunning
	return true
}

func (t *Task) endWait() {
	cancel := t.cancelWait
	t.cancelWait = func() {}
	cancel()
}

func (t *Task) removeChild(c *Task) {
	t.children = slices.DeleteFunc(t.children, func(x *Task) bool { return x == c })
}

func sagaName(s Saga) string {
	if s == nil {
		return "<nil>"
	}
	if fn := runtime.FuncForPC(reflect.ValueOf(s).Pointer()); fn != nil {
		return fn.Name()
	}
	return "<unknown>"
}
