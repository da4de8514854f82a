package eval

import (
	"fmt"

	"pepl/internal/stdlib"
)

// Trap kinds not already covered by a pure stdlib.Impl: those
// come back as *stdlib.TrapError from math.sqrt etc. and are re-panicked
// unchanged. The evaluator raises these itself.
const (
	trapNilAccess       = "nil_access"
	trapAssertionFailed = "assertion_failed"
	trapInvariant       = "invariant_violated"
	trapResultUnwrap    = "result_unwrap_on_err"
	trapGasExhausted    = "gas_exhausted"
	trapUnmockedCall    = "unmocked_capability_call"
)

// raise panics with a trap, unwound by the nearest transaction/test/view
// boundary. Traps are control flow, not Go errors: they cross many stack
// frames (expression evaluation nested inside statements nested inside
// blocks) with no useful intermediate error to return.
func raise(kind, format string, args ...interface{}) {
	panic(stdlib.Trap(kind, fmt.Sprintf(format, args...)))
}

// recoverTrap turns a panicking *stdlib.TrapError into a returned value;
// any other panic (a real bug) propagates.
func recoverTrap(out **stdlib.TrapError) {
	if r := recover(); r != nil {
		te, ok := r.(*stdlib.TrapError)
		if !ok {
			panic(r)
		}
		*out = te
	}
}
