// Package rwlock implements a reader/writer lock whose fairness behaviour is
// selected at construction time by a [Policy], rather than by a runtime mode
// switch or by wrapping distinct lock types behind an interface.
//
// The handle is a single struct carrying a policy discriminant plus a union
// of policy-specific coordination state; [Lock.RLock], [Lock.RUnlock],
// [Lock.Lock] and [Lock.Unlock] dispatch on that discriminant. This mirrors
// a tagged union plus a switch over a priority enum rather than three
// separate types satisfying a common interface.
package rwlock

import (
	"fmt"
	"sync"
)

// Policy selects the fairness behaviour of a [Lock].
type Policy int

const (
	// ReaderPriority admits any reader immediately unless a writer already
	// holds the lock; a continuous stream of readers can starve waiting
	// writers.
	ReaderPriority Policy = iota

	// WriterPriority blocks new readers whenever any writer is waiting,
	// giving writers strict priority over readers.
	WriterPriority

	// NWay admits at most N readers (the construction parameter) per
	// "window" - the stretch since the lock was last released by a writer -
	// while any writer is waiting.
	NWay
)

// ErrUnknownPolicy is returned by [New] for a Policy value other than
// [ReaderPriority], [WriterPriority], or [NWay].
var ErrUnknownPolicy = fmt.Errorf("rwlock: unknown policy")

// ErrInvalidN is returned by [New] when policy is [NWay] and n == 0.
var ErrInvalidN = fmt.Errorf("rwlock: n-way policy requires n > 0")

// Lock is a reader/writer lock. At most one writer holds it at any time;
// while any reader holds it, no writer may hold it. A Lock is created idle
// and must be idle (no holders) when it is discarded - there is no Close,
// so this is the caller's responsibility; destroying a non-idle lock is
// undefined behaviour.
//
// A nil *Lock is a valid no-op handle: all four methods return immediately
// on a nil receiver.
type Lock struct {
	policy Policy
	n      uint // only meaningful for NWay

	mu sync.Mutex

	// writeGate is the binary semaphore representing exclusive ownership of
	// the critical region - held by the current writer, or by the reader
	// cohort as a whole (taken by the first reader in, released by the last
	// reader out). Implemented as a buffered channel of capacity 1: holding
	// the one token means holding the gate.
	writeGate chan struct{}

	readersHolding uint

	// reader-priority state
	rp readerPriorityState

	// writer-priority state
	wp writerPriorityState

	// n-way fair state
	nw nWayState
}

type readerPriorityState struct {
	writerHolding  bool
	writersWaiting uint
	writerCond     *sync.Cond
}

type writerPriorityState struct {
	writersWaiting uint
	readersWaiting uint
	readerCond     *sync.Cond
}

type nWayState struct {
	readersWaiting uint
	readersPassed  uint
	writersWaiting uint
	readerCond     *sync.Cond
	writerCond     *sync.Cond
}

// New constructs a [Lock] idle and ready to use. n is only meaningful for
// [NWay] and must be > 0 in that case; it is ignored for the other
// policies.
func New(policy Policy, n uint) (*Lock, error) {
	if policy == NWay && n == 0 {
		return nil, ErrInvalidN
	}

	switch policy {
	case ReaderPriority, WriterPriority, NWay:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, policy)
	}

	l := &Lock{
		policy:    policy,
		n:         n,
		writeGate: make(chan struct{}, 1),
	}
	l.writeGate <- struct{}{} // write gate starts available

	l.rp.writerCond = sync.NewCond(&l.mu)
	l.wp.readerCond = sync.NewCond(&l.mu)
	l.nw.readerCond = sync.NewCond(&l.mu)
	l.nw.writerCond = sync.NewCond(&l.mu)

	return l, nil
}

// Policy reports the fairness policy the lock was constructed with.
func (l *Lock) Policy() Policy {
	if l == nil {
		return ReaderPriority
	}

	return l.policy
}

// takeGate blocks until the write gate is available. Writers call it after
// releasing mu; a first-in reader calls it while still holding mu.
func (l *Lock) takeGate() {
	<-l.writeGate
}

// releaseGate makes the write gate available again.
func (l *Lock) releaseGate() {
	l.writeGate <- struct{}{}
}

// RLock acquires the lock for reading, blocking per the lock's policy.
func (l *Lock) RLock() {
	if l == nil {
		return
	}

	switch l.policy {
	case ReaderPriority:
		l.rpRLock()
	case WriterPriority:
		l.wpRLock()
	case NWay:
		l.nwRLock()
	}
}

// RUnlock releases a reader's hold on the lock.
func (l *Lock) RUnlock() {
	if l == nil {
		return
	}

	switch l.policy {
	case ReaderPriority:
		l.rpRUnlock()
	case WriterPriority:
		l.wpRUnlock()
	case NWay:
		l.nwRUnlock()
	}
}

// Lock acquires the lock for writing, blocking per the lock's policy.
func (l *Lock) Lock() {
	if l == nil {
		return
	}

	switch l.policy {
	case ReaderPriority:
		l.rpLock()
	case WriterPriority:
		l.wpLock()
	case NWay:
		l.nwLock()
	}
}

// Unlock releases a writer's hold on the lock.
func (l *Lock) Unlock() {
	if l == nil {
		return
	}

	switch l.policy {
	case ReaderPriority:
		l.rpUnlock()
	case WriterPriority:
		l.wpUnlock()
	case NWay:
		l.nwUnlock()
	}
}
