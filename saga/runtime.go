package saga

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/internal/supervisor"
	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/log"
	"github.com/on-the-ground/saga_ive_go/store"
	"go.uber.org/zap"
)

// Runtime interprets the effects of a tree of sagas against one store.
type Runtime struct {
	RuntimeId string

	st     *store.Store
	lens   lens.Lens
	origin string
	logger *zap.Logger
	sv     *supervisor.Supervisor
	ctx    context.Context

	// only touched on the store's loop
	roots map[*Task]struct{}
}

// NewRuntime creates a runtime bound to st. The returned function stops
// every running saga and waits for in-flight futures; call it before the
// store is torn down.
func NewRuntime(ctx context.Context, st *store.Store, opts ...Option) (*Runtime, func()) {
	o := options{lens: lens.Make()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNop(o.logger)

	sv, endSupervisor := supervisor.New(ctx, logger)
	rt := &Runtime{
		RuntimeId: uuid.New().String(),
		st:        st,
		lens:      o.lens,
		origin:    o.origin,
		logger:    logger,
		sv:        sv,
		ctx:       ctx,
		roots:     make(map[*Task]struct{}),
	}
	logger.Debug("saga runtime created",
		zap.String("runtimeId", rt.RuntimeId),
		zap.Stringer("lens", rt.lens),
		zap.String("origin", rt.origin),
	)

	return rt, func() {
		err := st.Await(context.Background(), func() {
			for t := range rt.roots {
				rt.stop(t, nil)
			}
		})
		if err != nil {
			logger.Warn("saga runtime closed without stopping its sagas",
				zap.String("runtimeId", rt.RuntimeId),
				zap.Error(err),
			)
		}
		endSupervisor()
		logger.Debug("saga runtime closed", zap.String("runtimeId", rt.RuntimeId))
	}
}

// sees reports whether a is on the runtime's action source.
func (rt *Runtime) sees(a store.Action) bool {
	return rt.origin == "" || a.Origin == rt.origin
}

// Run starts s as a root task and returns once it has reached its first
// suspension. initial, if given, is what the body's Effects.Initial reports.
func (rt *Runtime) Run(ctx context.Context, s Saga, initial ...store.Action) (*Root, error) {
	if s == nil {
		return nil, ErrNilSaga
	}
	var seed *store.Action
	if len(initial) > 0 {
		seed = &initial[0]
	}

	var t *Task
	err := rt.st.Await(ctx, func() {
		t = rt.newSagaTask(nil, s, seed)
		rt.roots[t] = struct{}{}
		rt.start(t)
	})
	if err != nil {
		if errors.Is(err, store.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return &Root{rt: rt, task: t}, nil
}

// Root is a saga started by Runtime.Run.
type Root struct {
	rt   *Runtime
	task *Task
}

func (r *Root) ID() string {
	return r.task.ID
}

// Done is closed once the saga and every task below it have finished.
func (r *Root) Done() <-chan struct{} {
	return r.task.done
}

// Stop stops the saga's whole tree and waits until the stop has been
// delivered. It must not be called from a saga body or a loop callback.
func (r *Root) Stop(ctx context.Context) error {
	return r.StopWith(ctx, nil)
}

// StopWith is Stop with a cause attached to the raised *StopError.
func (r *Root) StopWith(ctx context.Context, cause error) error {
	err := r.rt.st.Await(ctx, func() { r.rt.stop(r.task, cause) })
	if errors.Is(err, store.ErrClosed) {
		return ErrClosed
	}
	return err
}

// Err returns what the saga's body returned. It is only meaningful once
// Done is closed.
func (r *Root) Err() error {
	select {
	case <-r.task.done:
		return r.task.err
	default:
		return nil
	}
}
