// Package supervisor runs goroutines under a managed scope.
//
// Every goroutine gets its own cancellable context derived from the one it
// was started with; tearing the supervisor down cancels all of them and waits
// for them to return. Panics are recovered and logged per goroutine.
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/log"
	"go.uber.org/zap"
)

// Supervisor tracks the goroutines it spawned.
type Supervisor struct {
	SupervisorId string

	ctx    context.Context
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
}

// New returns a supervisor bound to ctx and its teardown function.
// Teardown cancels every child and blocks until all of them returned.
func New(ctx context.Context, logger *zap.Logger) (*Supervisor, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Supervisor{
		SupervisorId: uuid.New().String(),
		ctx:          ctx,
		logger:       log.OrNop(logger),
	}
	return s, func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		cancel()
		s.logger.Debug("waiting for all routines to finish", zap.String("supervisorId", s.SupervisorId))
		s.wg.Wait()
		s.logger.Debug("all routines finished", zap.String("supervisorId", s.SupervisorId))
	}
}

// Go runs fn on a new goroutine. The context handed to fn is cancelled when
// either parent or the supervisor is done. It reports false, without running
// fn, once the supervisor has been torn down.
func (s *Supervisor) Go(parent context.Context, fn func(context.Context)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	childCtx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.ctx, cancel)

	ready := make(chan struct{})
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in child routine",
					zap.String("supervisorId", s.SupervisorId),
					zap.Error(fmt.Errorf("%v", r)),
				)
			}
		}()
		close(ready)
		fn(childCtx)
	}()
	<-ready
	return true
}
