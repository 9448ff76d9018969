// Package binding connects a consumer to one sub-tree of a store.
//
// A Binding addresses its sub-state through a lens, installs a declared
// default there the first time it finds nothing, exposes bound action
// callers that update only that sub-state, and reports changes by
// reference. It can also run a saga scoped to the same sub-state.
package binding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/log"
	"github.com/on-the-ground/saga_ive_go/saga"
	"github.com/on-the-ground/saga_ive_go/shared/helper"
	"github.com/on-the-ground/saga_ive_go/store"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("unknown action")

// Counter counts change notifications. *atomic.Int64 satisfies it.
type Counter interface {
	Add(delta int64) int64
}

type Options struct {
	// Path addresses the sub-state. An empty path binds the whole state.
	Path []lens.Key
	// Initial is installed at Path when nothing is there yet.
	Initial any
	// Actions are exposed as bound callers under their map keys.
	Actions map[string]*store.ActionCreator
	// Saga, if set, runs for the lifetime of the binding, scoped to Path and
	// to the actions dispatched through the binding.
	Saga saga.Saga
	// OnChange is called on the store's loop whenever the sub-state is
	// replaced by a different value.
	OnChange func(any)
	// Renders, if set, is incremented once per OnChange.
	Renders Counter
	Logger  *zap.Logger
}

const subLensCacheSize = 32

type Binding struct {
	BindingId string

	st       *store.Store
	lens     lens.Lens
	subLens  *lens.Cache
	actions  map[string]*store.ActionCreator
	onChange func(any)
	renders  Counter
	logger   *zap.Logger

	mu      sync.RWMutex
	current any

	unsubscribe func()
	root        *saga.Root
	endRuntime  func()
	closeOnce   sync.Once
}

// New binds to st at opts.Path. It waits on the store's loop, so it must not
// be called from a loop callback or a saga body.
func New(ctx context.Context, st *store.Store, opts Options) (*Binding, error) {
	b := &Binding{
		BindingId: uuid.New().String(),
		st:        st,
		lens:      lens.Make(opts.Path...),
		subLens:   lens.NewCache(subLensCacheSize),
		actions:   opts.Actions,
		onChange:  opts.OnChange,
		renders:   opts.Renders,
		logger:    log.OrNop(opts.Logger),
	}

	err := st.Await(ctx, func() {
		v, ok := store.View(st, b.lens)
		if !ok {
			b.dispatch(store.SetAt{Lens: b.lens, Value: opts.Initial}, store.Initialization, opts.Initial, b.lens.Path())
			v = opts.Initial
			b.logger.Debug("binding initialized",
				zap.String("bindingId", b.BindingId),
				zap.Stringer("lens", b.lens),
			)
		}
		b.current = v
		b.unsubscribe = st.Subscribe(b.observe)
	})
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", b.lens, err)
	}

	if opts.Saga != nil {
		rt, endRuntime := saga.NewRuntime(context.Background(), st,
			saga.WithLens(b.lens),
			saga.WithOrigin(b.BindingId),
			saga.WithLogger(b.logger),
		)
		root, err := rt.Run(ctx, opts.Saga)
		if err != nil {
			endRuntime()
			b.unsubscribe()
			return nil, fmt.Errorf("bind %s: run saga: %w", b.lens, err)
		}
		b.root, b.endRuntime = root, endRuntime
	}
	return b, nil
}

func (b *Binding) observe(s store.State) {
	next, _ := lens.View(b.lens, s)

	b.mu.Lock()
	changed := !helper.SameReference(b.current, next)
	if changed {
		b.current = next
	}
	b.mu.Unlock()

	if !changed {
		return
	}
	if b.renders != nil {
		b.renders.Add(1)
	}
	if b.onChange != nil {
		b.onChange(next)
	}
}

// State returns the sub-state as of the last commit.
func (b *Binding) State() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// View reads below the bound sub-state.
func (b *Binding) View(path ...lens.Key) (any, bool) {
	return lens.View(b.subLens.Get(path...), b.State())
}

func (b *Binding) Lens() lens.Lens {
	return b.lens
}

// Dispatch queues the named action's update at the bound path.
func (b *Binding) Dispatch(name string, args ...any) (store.Action, error) {
	c, ok := b.actions[name]
	if !ok {
		return store.Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return b.dispatch(store.OverAt{Lens: b.lens, Fn: c.Make(args...)}, c, args...), nil
}

// Actions returns a bound caller per declared action.
func (b *Binding) Actions() map[string]func(args ...any) store.Action {
	bound := make(map[string]func(args ...any) store.Action, len(b.actions))
	for name, c := range b.actions {
		bound[name] = func(args ...any) store.Action {
			return b.dispatch(store.OverAt{Lens: b.lens, Fn: c.Make(args...)}, c, args...)
		}
	}
	return bound
}

// dispatch queues an action owned by this binding; only the binding's own
// saga takes it.
func (b *Binding) dispatch(t store.Transform, ref store.Ref, args ...any) store.Action {
	a := store.NewAction(t, ref, args...)
	a.Origin = b.BindingId
	if err := b.st.DispatchAction(a); err != nil {
		b.logger.Warn("action dropped",
			zap.String("bindingId", b.BindingId),
			zap.String("ref", store.RefName(ref)),
			zap.Error(err),
		)
	}
	return a
}

// Saga returns the binding's root saga, or nil.
func (b *Binding) Saga() *saga.Root {
	return b.root
}

// Close stops the saga and the change notifications. It must not be called
// from a loop callback or a saga body.
func (b *Binding) Close() {
	b.closeOnce.Do(func() {
		if b.endRuntime != nil {
			b.endRuntime()
		}
		b.unsubscribe()
		b.logger.Debug("binding closed", zap.String("bindingId", b.BindingId))
	})
}
