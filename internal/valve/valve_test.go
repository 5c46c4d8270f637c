package valve

import (
	"errors"
	"testing"
)

type fakeLine struct {
	value  int
	closed bool
	fail   error
}

func (f *fakeLine) SetValue(v int) error {
	if f.fail != nil {
		return f.fail
	}
	f.value = v
	return nil
}

func (f *fakeLine) Value() (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	return f.value, nil
}

func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

// fakeOpener records lines by pin so tests can inspect them.
func fakeOpener(lines map[uint64]*fakeLine) OpenFunc {
	return func(pin uint64) (Line, error) {
		l := &fakeLine{}
		lines[pin] = l
		return l, nil
	}
}

func TestRegisterAndGet(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))

	if err := vs.RegisterValve("front-lawn", 17); err != nil {
		t.Fatalf("register: %v", err)
	}
	v, ok := vs.Get("front-lawn")
	if !ok {
		t.Fatalf("expected registered valve to be retrievable")
	}
	if v.Pin() != 17 {
		t.Fatalf("expected pin 17, got %d", v.Pin())
	}
	if _, ok := vs.Get("back-lawn"); ok {
		t.Fatalf("unregistered valve must not resolve")
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))

	if err := vs.RegisterValve("front-lawn", 17); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := vs.RegisterValve("front-lawn", 18); err == nil {
		t.Fatalf("expected duplicate name to fail")
	}
}

func TestOpenShutAndState(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))
	if err := vs.RegisterValve("front-lawn", 17); err != nil {
		t.Fatalf("register: %v", err)
	}
	v, _ := vs.Get("front-lawn")

	if err := v.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if lines[17].value != 1 {
		t.Fatalf("open did not drive the line high")
	}
	if state, err := v.State(); err != nil || state != StateOpen {
		t.Fatalf("expected open state, got %v err=%v", state, err)
	}

	if err := v.Shut(); err != nil {
		t.Fatalf("shut: %v", err)
	}
	if lines[17].value != 0 {
		t.Fatalf("shut did not drive the line low")
	}
	if state, err := v.State(); err != nil || state != StateClosed {
		t.Fatalf("expected closed state, got %v err=%v", state, err)
	}
}

func TestLineFailureSurfaces(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))
	if err := vs.RegisterValve("front-lawn", 17); err != nil {
		t.Fatalf("register: %v", err)
	}
	lines[17].fail = errors.New("line dead")

	v, _ := vs.Get("front-lawn")
	if err := v.Open(); err == nil {
		t.Fatalf("expected open to surface the line failure")
	}
	if _, err := v.State(); err == nil {
		t.Fatalf("expected state read to surface the line failure")
	}
}

func TestReleaseLinesClosesEveryLine(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))
	if err := vs.RegisterValve("front-lawn", 17); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := vs.RegisterValve("back-lawn", 27); err != nil {
		t.Fatalf("register: %v", err)
	}

	vs.ReleaseLines()
	for pin, l := range lines {
		if !l.closed {
			t.Fatalf("line on pin %d not released", pin)
		}
	}
}

func TestNamesAreSorted(t *testing.T) {
	lines := make(map[uint64]*fakeLine)
	vs := New(fakeOpener(lines))
	for i, name := range []string{"zeta", "alpha"} {
		if err := vs.RegisterValve(name, uint64(i)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names := vs.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
