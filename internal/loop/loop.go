// Package loop provides the single-threaded cooperative host loop.
//
// Callbacks posted to a Loop run one at a time, in posting order, on the
// loop's own goroutine. A callback that posts more work never blocks: the
// queue is unbounded, so "run this after the current callback finishes" is
// always just a Post.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/saga_ive_go/log"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("loop closed")

// Loop is a FIFO executor backed by one goroutine.
type Loop struct {
	LoopId string

	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{} // buffered, size 1: coalesces wake-ups
	done   chan struct{}
	logger *zap.Logger
}

// Start launches a loop. The loop stops when ctx is cancelled or when the
// returned function is called; the function waits for the goroutine to exit
// and must not be called from a loop callback.
func Start(ctx context.Context, logger *zap.Logger) (*Loop, func()) {
	l := &Loop{
		LoopId: uuid.New().String(),
		queue:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: log.OrNop(logger),
	}

	ctx, cancel := context.WithCancel(ctx)
	ready := make(chan struct{})
	go func() {
		defer close(l.done)
		close(ready)
		for {
			if ctx.Err() != nil {
				l.close()
				return
			}
			fn, ok := l.next()
			if !ok {
				select {
				case <-l.signal:
					continue
				case <-ctx.Done():
					l.close()
					return
				}
			}
			l.run(fn)
		}
	}()
	<-ready

	l.logger.Debug("loop started", zap.String("loopId", l.LoopId))

	return l, func() {
		cancel()
		<-l.done
		l.logger.Debug("loop stopped", zap.String("loopId", l.LoopId))
	}
}

// Post appends fn to the queue. It reports false if the loop is closed.
// Safe for concurrent use.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Await posts fn and blocks until it has run or ctx is done.
// It must not be called from a loop callback.
func (l *Loop) Await(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain blocks until the queue is empty, including work posted by the
// callbacks it waited for.
func (l *Loop) Drain(ctx context.Context) error {
	for {
		var idle bool
		if err := l.Await(ctx, func() { idle = l.Len() == 0 }); err != nil {
			return err
		}
		if idle {
			return nil
		}
	}
}

// Len returns the number of callbacks waiting to run.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if n := len(l.queue); n > 0 {
		l.logger.Warn("loop closed with pending callbacks", zap.String("loopId", l.LoopId), zap.Int("dropped", n))
	}
	l.queue = nil
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in loop callback",
				zap.String("loopId", l.LoopId),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	fn()
}
