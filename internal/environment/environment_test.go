package environment

import (
	"testing"
)

// store is a leaf service with no dependencies.
type store struct {
	entries int
}

func startStore(env *Environment, ed *Editor) *store {
	return &store{}
}

// poller depends on store and keeps a kit for later sibling access.
type poller struct {
	kit   *Kit
	polls int
}

func startPoller(env *Environment, ed *Editor) *poller {
	kit := NewKit(env, ed)
	WithDependency(kit, startStore)
	return &poller{kit: kit.Build()}
}

// expectFatal runs fn and asserts it panics with a *FatalError.
func expectFatal(t *testing.T, fn func()) (ferr *FatalError) {
	t.Helper()
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("expected a fatal panic, got none")
		}
		fe, ok := rec.(*FatalError)
		if !ok {
			t.Fatalf("expected *FatalError, got %T: %v", rec, rec)
		}
		ferr = fe
	}()
	fn()
	return nil
}

func TestGetBeforeSealFails(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startStore)

	expectFatal(t, func() { Shared[*store](env) })
	expectFatal(t, func() { Exclusive[*store](env) })

	// An unregistered type fails the same way: the seal check comes first.
	expectFatal(t, func() { Shared[*poller](env) })
}

func TestGetUnregisteredFailsAfterSeal(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startStore)
	env.FinishBootstrap()

	expectFatal(t, func() { Shared[*poller](env) })
	expectFatal(t, func() { Exclusive[*poller](env) })
}

func TestRegisterReplacesBeforeSeal(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startStore)
	Register(ed, func(env *Environment, ed *Editor) *store {
		return &store{entries: 7}
	})
	env.FinishBootstrap()

	h := Shared[*store](env)
	defer h.Release()
	if h.Value().entries != 7 {
		t.Fatalf("expected last registration to win, got entries=%d", h.Value().entries)
	}
	if got := len(env.Services()); got != 1 {
		t.Fatalf("expected a single identity after re-registration, got %d", got)
	}
}

func TestRegisterAfterSealFails(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startStore)
	env.FinishBootstrap()

	expectFatal(t, func() { Register(ed, startPoller) })

	// The failed registration must not corrupt prior entries.
	h := Shared[*store](env)
	defer h.Release()
	if h.Value() == nil {
		t.Fatalf("store should still be retrievable after a rejected registration")
	}
}

func TestDoubleSealFails(t *testing.T) {
	env, _ := Bootstrap()
	env.FinishBootstrap()
	expectFatal(t, func() { env.FinishBootstrap() })
}

func TestKitConstructsDependencyFirst(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startPoller)
	env.FinishBootstrap()

	ph := Shared[*poller](env)
	defer ph.Release()

	deps := ph.Value().kit.Dependencies()
	if len(deps) != 1 || deps[0] != identityOf[*store]() {
		t.Fatalf("expected dependency list [%s], got %v", identityOf[*store](), deps)
	}

	// The dependency was constructed and registered as a side effect.
	sh := Shared[*store](env)
	defer sh.Release()
	if sh.Value() == nil {
		t.Fatalf("store should have been registered through the kit")
	}
}

func TestIdentityDerivesFromTypeOnly(t *testing.T) {
	a := identityOf[*store]()
	b := identityOf[*store]()
	if a != b {
		t.Fatalf("identity not stable: %q vs %q", a, b)
	}
	if a == identityOf[*poller]() {
		t.Fatalf("distinct types must have distinct identities")
	}
}

func TestServicesListsSortedIdentities(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startPoller) // pulls in store
	env.FinishBootstrap()

	ids := env.Services()
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %v", ids)
	}
	if ids[0] > ids[1] {
		t.Fatalf("identities not sorted: %v", ids)
	}
}

func TestRecoveryMismatchFails(t *testing.T) {
	env, ed := Bootstrap()
	Register(ed, startStore)
	env.FinishBootstrap()

	// Corrupt the identity-to-instance mapping the way only a bug could.
	env.services[identityOf[*store]()].instance = 42

	expectFatal(t, func() { Shared[*store](env) })
}
