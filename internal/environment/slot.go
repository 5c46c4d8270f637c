package environment

import "sync"

// slot stores one type-erased service instance behind a non-blocking
// single-writer/multi-reader gate. An acquisition either succeeds
// immediately or panics; the gate has no wait queue and no notion of caller
// identity, so re-entrant acquisition conflicts exactly like acquisition
// from another goroutine.
type slot struct {
	identity string
	instance any
	gate     sync.RWMutex
}

func newSlot(identity string, instance any) *slot {
	return &slot{identity: identity, instance: instance}
}

func (s *slot) acquireShared() {
	if !s.gate.TryRLock() {
		fatalf("service %s is exclusively held, conflicting shared acquisition", s.identity)
	}
}

func (s *slot) acquireExclusive() {
	if !s.gate.TryLock() {
		fatalf("service %s is already held, conflicting exclusive acquisition", s.identity)
	}
}

// SharedHandle is a scoped shared borrow of one service instance. Callers
// defer Release immediately after acquisition so the gate is restored on
// every exit path, including panics. Release is idempotent; the handle must
// stay on the goroutine that acquired it.
type SharedHandle[T any] struct {
	slot     *slot
	value    T
	released bool
}

// Value returns the borrowed instance. Treat it as read-oriented; mutation
// belongs behind an ExclusiveHandle.
func (h *SharedHandle[T]) Value() T { return h.value }

func (h *SharedHandle[T]) Release() {
	if h.released {
		return
	}
	h.released = true
	h.slot.gate.RUnlock()
}

// ExclusiveHandle is a scoped exclusive borrow of one service instance.
// Same release contract as SharedHandle.
type ExclusiveHandle[T any] struct {
	slot     *slot
	value    T
	released bool
}

// Value returns the borrowed instance with mutation rights.
func (h *ExclusiveHandle[T]) Value() T { return h.value }

func (h *ExclusiveHandle[T]) Release() {
	if h.released {
		return
	}
	h.released = true
	h.slot.gate.Unlock()
}
