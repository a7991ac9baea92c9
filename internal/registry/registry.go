// Package registry interns one [rwlock.Lock] per URI so that concurrent
// requests targeting the same path serialize through that lock while
// requests on distinct paths proceed independently.
package registry

import (
	"fmt"
	"sync"

	"github.com/foxhollow/httpserver/internal/rwlock"
)

// ErrInvalidSize is returned by [New] when size is not positive.
var ErrInvalidSize = fmt.Errorf("registry: size must be > 0")

type slot struct {
	path     string
	refcount uint
	lock     *rwlock.Lock
}

// Registry is a fixed-size table of (path, lock, refcount) slots. Lookup is
// a linear scan under a single mutex. Capacity equals the worker-pool size:
// at most one slot is in use per in-flight request, so a full table with no
// matching slot cannot happen as long as callers hold at most one [Entry]
// per in-flight request.
type Registry struct {
	mu    sync.Mutex
	slots []slot
}

// Entry is a handle returned by [Registry.Acquire]. Callers pass it to
// [Registry.Release] when done; it must not be retained past that call.
type Entry struct {
	index int
	lock  *rwlock.Lock
}

// Lock returns the entry's underlying lock.
func (e *Entry) Lock() *rwlock.Lock {
	return e.lock
}

// New builds a registry of the given size with each slot's lock constructed
// via newLock. Every slot's lock exists for the registry's whole lifetime;
// only the (path, refcount) pairing comes and goes.
func New(size int, newLock func() (*rwlock.Lock, error)) (*Registry, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	slots := make([]slot, size)

	for i := range slots {
		l, err := newLock()
		if err != nil {
			return nil, fmt.Errorf("registry: constructing lock for slot %d: %w", i, err)
		}

		slots[i].lock = l
	}

	return &Registry{slots: slots}, nil
}

// Acquire returns the entry for path, creating one if no slot currently
// holds it. Concurrent Acquire calls for the same byte-exact path string
// return the entry for the same slot and each bump its refcount; the
// caller must pair every Acquire with exactly one Release.
func (r *Registry) Acquire(path string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	free := -1

	for i := range r.slots {
		s := &r.slots[i]

		if s.refcount > 0 && s.path == path {
			s.refcount++
			return &Entry{index: i, lock: s.lock}
		}

		if s.refcount == 0 && free == -1 {
			free = i
		}
	}

	if free == -1 {
		panic("registry: no free slot for new path; registry size must equal the worker pool size")
	}

	s := &r.slots[free]
	s.path = path
	s.refcount = 1

	return &Entry{index: free, lock: s.lock}
}

// Release decrements the refcount on e's slot. When it reaches zero the
// path is forgotten and the slot becomes available for a different URI;
// the slot's lock is retained and must already be idle.
func (r *Registry) Release(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.slots[e.index]
	s.refcount--

	if s.refcount == 0 {
		s.path = ""
	}
}

// Size returns the number of slots the registry was constructed with.
func (r *Registry) Size() int {
	return len(r.slots)
}
