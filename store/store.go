package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/internal/loop"
	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/log"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("store closed")

// Listener receives the committed state once per batch.
type Listener func(State)

// ActionObserver receives committed action records in dispatch order.
// Error is called instead when a batch is aborted.
type ActionObserver struct {
	Value func(Action)
	Error func(error)
}

// Store holds the single committed state.
type Store struct {
	StoreId string

	loop          *loop.Loop
	logger        *zap.Logger
	debug         bool
	onCommitError func(error)

	mu        sync.Mutex
	pending   []Action
	scheduled bool

	stateMu sync.RWMutex
	state   State
	commits uint64

	listeners registry[Listener]
	observers registry[ActionObserver]
}

// New creates a store holding initial. The returned function stops the
// store's loop; pending actions that were never committed are dropped.
func New(ctx context.Context, initial State, opts ...Option) (*Store, func()) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNop(o.logger)

	l, endLoop := loop.Start(ctx, logger)
	s := &Store{
		StoreId:       uuid.New().String(),
		loop:          l,
		logger:        logger,
		debug:         o.cfg.Debug,
		onCommitError: o.onCommitError,
		state:         initial,
	}
	logger.Debug("store created", zap.String("storeId", s.StoreId), zap.Bool("debug", s.debug))

	return s, func() {
		endLoop()
		logger.Debug("store closed", zap.String("storeId", s.StoreId))
	}
}

// Dispatch queues t under ref and returns the queued record.
// It never blocks and is safe for concurrent use.
func (s *Store) Dispatch(t Transform, ref Ref, args ...any) Action {
	a := NewAction(t, ref, args...)
	if err := s.DispatchAction(a); err != nil {
		s.logger.Warn("action dropped",
			zap.String("storeId", s.StoreId),
			zap.String("ref", RefName(ref)),
			zap.Error(err),
		)
	}
	return a
}

// DispatchAction queues a pre-built record.
func (s *Store) DispatchAction(a Action) error {
	if s.debug {
		s.logger.Info("action dispatched",
			zap.String("storeId", s.StoreId),
			zap.String("ref", RefName(a.Ref)),
			zap.String("actionId", a.ID),
			zap.String("origin", a.Origin),
			zap.Any("args", a.Args),
		)
	}

	s.mu.Lock()
	s.pending = append(s.pending, a)
	schedule := !s.scheduled
	s.scheduled = true
	s.mu.Unlock()

	if schedule && !s.loop.Post(s.commit) {
		s.mu.Lock()
		s.pending = nil
		s.scheduled = false
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (s *Store) commit() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.scheduled = false
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	next, err := applyBatch(s.CurrentState(), batch)
	if err != nil {
		s.abort(err, len(batch))
		return
	}

	s.stateMu.Lock()
	s.state = next
	s.commits++
	s.stateMu.Unlock()

	at := Now()
	for i := range batch {
		batch[i].At = at
	}

	if s.debug {
		s.logger.Info("next state",
			zap.String("storeId", s.StoreId),
			zap.Int("actions", len(batch)),
			zap.Time("committedAt", at.Start()),
			zap.Duration("window", at.Duration()),
			zap.Any("state", next),
		)
	}

	for _, e := range s.listeners.snapshot() {
		if e.active.Load() {
			s.safely("state listener", func() { e.fn(next) })
		}
	}
	for _, a := range batch {
		for _, e := range s.observers.snapshot() {
			if e.active.Load() && e.fn.Value != nil {
				s.safely("action observer", func() { e.fn.Value(a) })
			}
		}
	}
}

func (s *Store) abort(err error, dropped int) {
	s.logger.Error("batch aborted",
		zap.String("storeId", s.StoreId),
		zap.Int("dropped", dropped),
		zap.Error(err),
	)
	if s.onCommitError != nil {
		s.safely("commit error hook", func() { s.onCommitError(err) })
	}
	for _, e := range s.observers.snapshot() {
		if e.active.Load() && e.fn.Error != nil {
			s.safely("action observer", func() { e.fn.Error(err) })
		}
	}
}

func (s *Store) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in "+what,
				zap.String("storeId", s.StoreId),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	fn()
}

// Subscribe registers l for every future commit. The returned function
// unsubscribes and may be called any number of times.
func (s *Store) Subscribe(l Listener) func() {
	return s.listeners.add(l)
}

// SubscribeActions registers o on the action stream.
func (s *Store) SubscribeActions(o ActionObserver) func() {
	return s.observers.add(o)
}

// CurrentState returns the last committed state.
func (s *Store) CurrentState() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Commits returns the number of batches committed so far.
func (s *Store) Commits() uint64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.commits
}

// Listeners returns the number of state listeners and action observers.
func (s *Store) Listeners() (state, actions int) {
	return s.listeners.len(), s.observers.len()
}

// Post runs fn on the store's loop. Dispatches made by fn form one batch.
func (s *Store) Post(fn func()) bool {
	return s.loop.Post(fn)
}

// Await runs fn on the store's loop and waits for it. It must not be called
// from the loop.
func (s *Store) Await(ctx context.Context, fn func()) error {
	if err := s.loop.Await(ctx, fn); err != nil {
		if errors.Is(err, loop.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Drain waits until every commit and callback queued so far, and every one
// they queued in turn, has run.
func (s *Store) Drain(ctx context.Context) error {
	if err := s.loop.Drain(ctx); err != nil {
		if errors.Is(err, loop.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// View reads the sub-state of st's current state addressed by l.
func View(st *Store, l lens.Lens) (any, bool) {
	return lens.View(l, st.CurrentState())
}
