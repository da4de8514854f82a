package eval

import (
	"pepl/internal/ast"
	"pepl/internal/value"
)

// mockContext is installed for the duration of one test body and tracks,
// per module.function key, how many times that capability has been
// called so far.
type mockContext struct {
	responses []*ast.MockedResponse
	counts    map[string]int
}

func newMockContext(responses []*ast.MockedResponse) *mockContext {
	return &mockContext{responses: responses, counts: map[string]int{}}
}

// next returns the mocked response for the next occurrence of module.fn,
// advancing the running count regardless of whether a match is found (a
// call with no matching entry still consumes an occurrence, so a later
// with_responses entry for the same key does not shift to fill the gap).
func (m *mockContext) next(module, fn string) (*ast.MockedResponse, bool) {
	key := module + "." + fn
	ordinal := m.counts[key]
	m.counts[key] = ordinal + 1
	for _, r := range m.responses {
		if r.Module == module && r.Function == fn && r.Ordinal == ordinal {
			return r, true
		}
	}
	return nil, false
}

// evalCapabilityCall implements capability-call mocking: inside a
// with_responses context an unmatched occurrence is a hard trap rather
// than a soft Err, since the test author explicitly opted into
// exhaustive mocking. Outside one, a wired CapabilityHost answers the
// call; with neither, every call returns Err("unmocked_call").
func (e *Evaluator) evalCapabilityCall(module, fn string, args []value.Value) value.Value {
	if e.mocks == nil {
		if e.host != nil {
			return e.host.Call(module, fn, args)
		}
		return value.ErrResult(value.Str("unmocked_call"))
	}
	resp, ok := e.mocks.next(module, fn)
	if !ok {
		raise(trapUnmockedCall, "no with_responses entry for %s.%s call #%d", module, fn, e.mocks.counts[module+"."+fn]-1)
	}
	v := e.evalExpr(resp.Value, nil)
	if resp.IsErr {
		return value.ErrResult(v)
	}
	return value.OkResult(v)
}
