package binding_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/saga_ive_go/binding"
	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/log"
	"github.com/on-the-ground/saga_ive_go/saga"
	"github.com/on-the-ground/saga_ive_go/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	increment = store.NewActionCreator("increment", func(args ...any) store.Update {
		return func(v any) any {
			m := v.(map[string]any)
			return map[string]any{"count": m["count"].(int) + 1}
		}
	})
	decrement = store.NewActionCreator("decrement", func(args ...any) store.Update {
		return func(v any) any {
			m := v.(map[string]any)
			return map[string]any{"count": m["count"].(int) - 1}
		}
	})
	counterActions = map[string]*store.ActionCreator{
		"increment": increment,
		"decrement": decrement,
	}
)

func newStore(t *testing.T, initial store.State) *store.Store {
	t.Helper()
	st, end := store.New(context.Background(), initial, store.WithLogger(log.NewTest()))
	t.Cleanup(end)
	return st
}

func bind(t *testing.T, st *store.Store, opts binding.Options) *binding.Binding {
	t.Helper()
	opts.Logger = log.NewTest()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := binding.New(ctx, st, opts)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func drain(t *testing.T, st *store.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, st.Drain(ctx))
}

func tick(t *testing.T, st *store.Store, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, st.Await(ctx, fn))
	require.NoError(t, st.Drain(ctx))
}

func TestBinding_SelfInitializes(t *testing.T) {
	st := newStore(t, map[string]any{})

	var inits []store.Action
	st.SubscribeActions(store.ActionObserver{Value: func(a store.Action) {
		if a.Matches(store.Initialization) {
			inits = append(inits, a)
		}
	}})

	def := map[string]any{"count": 0}
	b := bind(t, st, binding.Options{Path: []lens.Key{"defaultCounter"}, Initial: def})
	assert.Equal(t, def, b.State())
	drain(t, st)

	v, ok := store.View(st, lens.Make("defaultCounter"))
	require.True(t, ok)
	assert.Equal(t, def, v)

	tick(t, st, func() {
		require.Len(t, inits, 1)
		assert.Equal(t, []any{def, []lens.Key{"defaultCounter"}}, inits[0].Args)
	})
}

func TestBinding_DisjointConsumersInitializeInAnyOrder(t *testing.T) {
	st := newStore(t, map[string]any{"existing": "kept"})

	bind(t, st, binding.Options{Path: []lens.Key{"b", "deep"}, Initial: 2})
	bind(t, st, binding.Options{Path: []lens.Key{"a"}, Initial: 1})
	bind(t, st, binding.Options{Path: []lens.Key{"c"}, Initial: []any{"x"}})
	drain(t, st)

	assert.Equal(t, map[string]any{
		"existing": "kept",
		"a":        1,
		"b":        map[string]any{"deep": 2},
		"c":        []any{"x"},
	}, st.CurrentState())
}

func TestBinding_KeepsExistingValue(t *testing.T) {
	st := newStore(t, map[string]any{"counter": map[string]any{"count": 7}})

	b := bind(t, st, binding.Options{Path: []lens.Key{"counter"}, Initial: map[string]any{"count": 0}})
	drain(t, st)

	assert.Equal(t, map[string]any{"count": 7}, b.State())
	assert.Zero(t, st.Commits())
}

func TestBinding_IncrementDecrementNotifiesOnce(t *testing.T) {
	st := newStore(t, map[string]any{})

	var renders atomic.Int64
	var changes []any
	b := bind(t, st, binding.Options{
		Path:     []lens.Key{"defaultCounter"},
		Initial:  map[string]any{"count": 0},
		Actions:  counterActions,
		OnChange: func(v any) { changes = append(changes, v) },
		Renders:  &renders,
	})
	drain(t, st)
	assert.Zero(t, renders.Load())

	notified := 0
	st.Subscribe(func(store.State) { notified++ })

	actions := b.Actions()
	tick(t, st, func() {
		actions["increment"]()
		actions["decrement"]()
	})

	assert.Equal(t, 1, notified)
	assert.Equal(t, int64(1), renders.Load())
	tick(t, st, func() {
		require.Len(t, changes, 1)
		assert.Equal(t, map[string]any{"count": 0}, changes[0])
	})
	assert.Equal(t, map[string]any{"count": 0}, b.State())
}

func TestBinding_IgnoresUnrelatedCommits(t *testing.T) {
	st := newStore(t, map[string]any{})

	var mine, other atomic.Int64
	a := bind(t, st, binding.Options{
		Path:    []lens.Key{"a"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
		Renders: &mine,
	})
	b := bind(t, st, binding.Options{
		Path:    []lens.Key{"b"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
		Renders: &other,
	})
	drain(t, st)

	tick(t, st, func() {
		_, err := b.Dispatch("increment")
		require.NoError(t, err)
	})

	assert.Zero(t, mine.Load())
	assert.Equal(t, int64(1), other.Load())
	v, ok := a.View("count")
	require.True(t, ok)
	assert.Equal(t, 0, v)
	v, _ = b.View("count")
	assert.Equal(t, 1, v)
}

func TestBinding_UnknownAction(t *testing.T) {
	st := newStore(t, map[string]any{})
	b := bind(t, st, binding.Options{Path: []lens.Key{"a"}, Initial: 0})

	_, err := b.Dispatch("missing")
	assert.ErrorIs(t, err, binding.ErrUnknownAction)
}

func TestBinding_SagaIsScopedToPath(t *testing.T) {
	st := newStore(t, map[string]any{})

	seen := make(chan int, 4)
	b := bind(t, st, binding.Options{
		Path:    []lens.Key{"defaultCounter"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
		Saga: func(fx *saga.Effects) error {
			for {
				if _, err := fx.Take(increment); err != nil {
					return err
				}
				v, _ := fx.State()
				seen <- v.(map[string]any)["count"].(int)
				if _, err := fx.CallAction(decrement); err != nil {
					return err
				}
			}
		},
	})
	drain(t, st)

	tick(t, st, func() {
		_, err := b.Dispatch("increment")
		require.NoError(t, err)
	})
	drain(t, st)

	select {
	case v := <-seen:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for saga")
	}
	assert.Equal(t, map[string]any{"count": 0}, b.State())
}

func TestBinding_CloseStopsNotificationsAndSaga(t *testing.T) {
	st := newStore(t, map[string]any{})

	var renders atomic.Int64
	b, err := binding.New(context.Background(), st, binding.Options{
		Path:    []lens.Key{"a"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
		Renders: &renders,
		Saga: func(fx *saga.Effects) error {
			_, err := fx.Take(store.Initialization)
			return err
		},
		Logger: log.NewTest(),
	})
	require.NoError(t, err)
	drain(t, st)

	b.Close()
	b.Close()

	select {
	case <-b.Saga().Done():
	case <-time.After(time.Second):
		t.Fatal("saga still running after close")
	}
	assert.ErrorIs(t, b.Saga().Err(), saga.ErrStopped)

	tick(t, st, func() {
		_, err := b.Dispatch("increment")
		require.NoError(t, err)
	})
	assert.Zero(t, renders.Load())
}

func TestBinding_SagaOnlyTakesOwnActions(t *testing.T) {
	st := newStore(t, map[string]any{})

	taken := make(chan store.Action, 2)
	a := bind(t, st, binding.Options{
		Path:    []lens.Key{"a"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
		Saga: func(fx *saga.Effects) error {
			for {
				act, err := fx.Take(increment)
				if err != nil {
					return err
				}
				taken <- act
			}
		},
	})
	b := bind(t, st, binding.Options{
		Path:    []lens.Key{"b"},
		Initial: map[string]any{"count": 0},
		Actions: counterActions,
	})
	drain(t, st)

	tick(t, st, func() {
		_, err := b.Dispatch("increment")
		require.NoError(t, err)
	})
	assert.Empty(t, taken)

	var own store.Action
	tick(t, st, func() {
		var err error
		own, err = a.Dispatch("increment")
		require.NoError(t, err)
	})

	select {
	case act := <-taken:
		assert.Equal(t, own.ID, act.ID)
		assert.Equal(t, a.BindingId, act.Origin)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for saga")
	}
	assert.Empty(t, taken)
}
