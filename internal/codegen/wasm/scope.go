package wasm

import "sort"

// binding is one name's storage: either a real WASM local (params, let,
// loop variables of the function currently being compiled) or a captured
// value read out of the current function's closure-environment record
// (params/lets from an enclosing lambda, reached through nested lambda
// bodies). This mirrors eval.Env's parent-chain lookup (internal/eval/env.go)
// but resolves at compile time into one of two addressing modes instead of
// walking a chain at run time.
type binding struct {
	local     uint32
	captured  bool
	envParam  uint32 // wasm local holding the envPtr, valid when captured
}

// genScope is a linked lexical scope used while compiling one function
// body. Every name visible when a lambda literal is compiled becomes a
// candidate to capture into that lambda's environment record (see
// compileLambdaLiteral in callgen.go), a "capture everything visible" policy chosen
// over precise free-variable analysis for simplicity.
type genScope struct {
	parent *genScope
	names  map[string]binding
}

func newGenScope(parent *genScope) *genScope {
	return &genScope{parent: parent, names: map[string]binding{}}
}

func (s *genScope) define(name string, local uint32) {
	s.names[name] = binding{local: local}
}

func (s *genScope) defineCaptured(name string, envParam uint32) {
	s.names[name] = binding{captured: true, envParam: envParam}
}

func (s *genScope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// visible collects every name reachable from s, innermost definition
// winning on a name collision, for building a lambda's capture record.
func (s *genScope) visible() map[string]binding {
	out := map[string]binding{}
	chain := []*genScope{}
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].names {
			out[k] = v
		}
	}
	return out
}

// visibleSorted is visible() with its names in a fixed, name-sorted
// order, so codegen that walks captured bindings (building a closure's
// environment record) never depends on Go's randomized map iteration
// order.
func (s *genScope) visibleSorted() []string {
	v := s.visible()
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
