// Package stdlib is the standard-library function and signature registry
// consumed by the checker (signatures), the evaluator (pure
// implementations), and the code generator (signatures only). The
// registry is data, not code: adding a function requires one edit,
// here.
//
// Open question: the source material disagreed on the exact
// function count and on `list.any` vs `list.some` / `storage.remove` vs
// `storage.delete`. This registry is the single source of truth; nobody
// hard-codes a count. It settles the naming disagreements as `list.some`
// and `storage.remove`. Module-level constants (`math.pi`, `math.e`) are
// modeled as arity-0 pure functions rather than a second bare-reference
// grammar form, since PEPL's grammar only ever calls out
// `module.function(args...)` for qualified access.
package stdlib

import (
	"encoding/json"

	"pepl/internal/types"
	"pepl/internal/value"
)

// Impl is the reference evaluator's implementation of a pure stdlib
// function. Capability-module entries (http, storage, location,
// notifications) have a nil Impl: those calls are host-mediated
// capability calls and never run through this table directly.
type Impl func(args []value.Value) (value.Value, error)

// Entry is one row of the registry: `{ module, name, param_types,
// return_type, purity, evaluator_impl }`.
type Entry struct {
	Module     string
	Name       string
	Params     []*types.Type
	Result     *types.Type
	Pure       bool
	Capability string // "" for pure stdlib, else the capability name required to call it
	Impl       Impl
}

// Key is the qualified "module.function" key form used for lookups and for
// with_responses call-site matching.
func (e Entry) Key() string { return e.Module + "." + e.Name }

// Registry is an insertion-ordered table of stdlib entries. Iteration
// order is always declaration order, never map order,
// determinism notes.
type Registry struct {
	order   []string
	entries map[string]Entry
}

// New builds the registry with the built-in table (functions.go).
func New() *Registry {
	r := &Registry{entries: map[string]Entry{}}
	for _, e := range builtins() {
		r.add(e)
	}
	return r
}

func (r *Registry) add(e Entry) {
	k := e.Key()
	if _, exists := r.entries[k]; exists {
		panic("stdlib: duplicate entry " + k)
	}
	r.entries[k] = e
	r.order = append(r.order, k)
}

// Lookup finds an entry by module and function name.
func (r *Registry) Lookup(module, name string) (Entry, bool) {
	e, ok := r.entries[module+"."+name]
	return e, ok
}

// All returns every entry in declaration order.
func (r *Registry) All() []Entry {
	out := make([]Entry, len(r.order))
	for i, k := range r.order {
		out[i] = r.entries[k]
	}
	return out
}

// Modules returns the distinct module names that have at least one entry,
// in first-seen order.
func (r *Registry) Modules() []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range r.order {
		m := r.entries[k].Module
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// CapabilityFor returns the capability name a module.function call needs,
// or "" if the call is pure and requires no capability.
func (r *Registry) CapabilityFor(module, name string) string {
	e, ok := r.Lookup(module, name)
	if !ok {
		return ""
	}
	return e.Capability
}

// jsonEntry is the wire shape of one Entry: Impl has no JSON
// representation, and Params/Result are rendered through
// types.Type.String() rather than marshaling the *Type tree itself.
type jsonEntry struct {
	Module     string   `json:"module"`
	Name       string   `json:"name"`
	Params     []string `json:"params"`
	Result     string   `json:"result"`
	Pure       bool     `json:"pure"`
	Capability string   `json:"capability,omitempty"`
}

// MarshalJSON renders the registry as the stdlib table a host embeds
// alongside a compiled module: every module.function, its signature, and
// whether it needs a capability, in declaration order.
func (r *Registry) MarshalJSON() ([]byte, error) {
	out := make([]jsonEntry, 0, len(r.order))
	for _, k := range r.order {
		e := r.entries[k]
		params := make([]string, len(e.Params))
		for i, p := range e.Params {
			params[i] = p.String()
		}
		out = append(out, jsonEntry{
			Module:     e.Module,
			Name:       e.Name,
			Params:     params,
			Result:     e.Result.String(),
			Pure:       e.Pure,
			Capability: e.Capability,
		})
	}
	return json.Marshal(out)
}
