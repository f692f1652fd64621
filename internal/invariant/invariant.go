// Package invariant provides fatal-abort contract assertions for zkFuzz's
// core. Every function panics on violation: these are internal programming
// errors in the implementation, not errors in the circuit under test.
package invariant

import (
	"fmt"
	"runtime"
)

// Check panics with an INVARIANT VIOLATION if condition is false. Use this
// for internal consistency checks the executor relies on: an unregistered
// template or component, a non-constant array dimension, a function call
// producing no final state.
func Check(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// Precondition panics with a PRECONDITION VIOLATION if condition is false.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// NotNil panics if value is nil.
func NotNil(value interface{}, name string) {
	if value == nil {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 8)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}
	panic(msg)
}
