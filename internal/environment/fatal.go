package environment

import "fmt"

// FatalError marks misuse of the environment lifecycle: double-seal,
// register-after-seal, access-before-seal, an unregistered identity, a
// conflicting slot acquisition, or an identity resolving to the wrong
// concrete type. These indicate bugs in the program assembling the
// environment, so they are raised as panics rather than returned; nothing
// should recover from one outside of tests.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

func fatalf(format string, args ...any) {
	panic(&FatalError{msg: fmt.Sprintf(format, args...)})
}
