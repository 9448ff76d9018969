package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// registry is a subscriber list that can be modified while it is being
// notified. Notification works on a snapshot; an entry removed after the
// snapshot was taken is skipped.
type registry[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
}

type entry[T any] struct {
	fn     T
	active atomic.Bool
}

func (r *registry[T]) add(fn T) func() {
	e := &entry[T]{fn: fn}
	e.active.Store(true)

	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	return func() {
		if !e.active.CompareAndSwap(true, false) {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = slices.DeleteFunc(r.entries, func(x *entry[T]) bool { return x == e })
	}
}

func (r *registry[T]) snapshot() []*entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
