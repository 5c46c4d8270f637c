package environment

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Environment is the process-wide registry of long-lived services, keyed by
// the identity of their concrete type. It is populated during a single
// bootstrap window, sealed exactly once, and then serves shared/exclusive
// access for the rest of the process lifetime. Entries are never removed.
type Environment struct {
	mu       sync.Mutex // guards services during the bootstrap window
	services map[string]*slot
	sealed   atomic.Bool
}

// StartFunc constructs a service of type T during bootstrap. It receives
// the shared environment handle and the editor so the service can assemble
// a Kit for its own dependencies before returning. Dependencies registered
// through the Kit finish constructing before the dependent's StartFunc
// returns; that is the only ordering guarantee the environment provides.
type StartFunc[T any] func(env *Environment, ed *Editor) T

// FinishBootstrap seals the environment: registration becomes forbidden and
// access becomes permitted. Sealing twice is a wiring bug and panics.
func (e *Environment) FinishBootstrap() {
	if e.sealed.Swap(true) {
		fatalf("tried to finish bootstrap multiple times")
	}
}

// Sealed reports whether bootstrap has finished.
func (e *Environment) Sealed() bool { return e.sealed.Load() }

// Services returns the registered identities in sorted order, for
// introspection and debugging.
func (e *Environment) Services() []string {
	e.mu.Lock()
	ids := make([]string, 0, len(e.services))
	for id := range e.services {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (e *Environment) registered(identity string) bool {
	e.mu.Lock()
	_, ok := e.services[identity]
	e.mu.Unlock()
	return ok
}

// lookup is only reachable after seal, when the key set is immutable; the
// sealed.Load in the accessors orders these reads after every registration.
func (e *Environment) lookup(identity string) *slot {
	s, ok := e.services[identity]
	if !ok {
		fatalf("service %s was never registered", identity)
	}
	return s
}

// Register constructs and stores a service of type T. During bootstrap a
// repeat registration under the same identity replaces the earlier
// instance; last registration wins. After FinishBootstrap any registration
// panics.
func Register[T any](ed *Editor, start StartFunc[T]) {
	env := ed.env
	id := identityOf[T]()
	if env.sealed.Load() {
		fatalf("tried to register %s after bootstrap completed", id)
	}

	instance := start(env, ed)

	env.mu.Lock()
	env.services[id] = newSlot(id, instance)
	env.mu.Unlock()
}

// Shared acquires a shared handle on T's slot. It panics before seal (the
// dependency graph is not stable yet), for an unregistered T, or while an
// exclusive handle on T is outstanding.
func Shared[T any](env *Environment) *SharedHandle[T] {
	id := identityOf[T]()
	if !env.sealed.Load() {
		fatalf("tried to get %s during bootstrap", id)
	}
	s := env.lookup(id)
	s.acquireShared()
	return &SharedHandle[T]{slot: s, value: recoverAs[T](id, s.instance)}
}

// Exclusive acquires an exclusive handle on T's slot. Same preconditions as
// Shared; it additionally panics while any handle on T is outstanding.
func Exclusive[T any](env *Environment) *ExclusiveHandle[T] {
	id := identityOf[T]()
	if !env.sealed.Load() {
		fatalf("tried to get %s during bootstrap", id)
	}
	s := env.lookup(id)
	s.acquireExclusive()
	return &ExclusiveHandle[T]{slot: s, value: recoverAs[T](id, s.instance)}
}
