// Package reference renders a deterministic, compressed description of
// the PEPL language for consumers that cannot link the compiler itself —
// an LLM prompt, a doc generator, an external editor plugin. It only
// reads from internal/token and internal/stdlib, the two packages that
// already carry the closed vocabularies (keywords, stdlib signatures) as
// data rather than scattering them across the lexer and checker.
package reference

import (
	"fmt"
	"sort"
	"strings"

	"pepl/internal/stdlib"
	"pepl/internal/token"
)

// Get renders the compressed language reference string named by the
// library surface's get_reference(): one line of keywords, then one
// line per stdlib module listing its functions' signatures, in the
// registry's declaration order. The result is whitespace-dense on purpose, a
// prompt fragment rather than formatted documentation.
func Get(reg *stdlib.Registry) string {
	var b strings.Builder
	b.WriteString("keywords: ")
	b.WriteString(strings.Join(token.Keywords(), " "))
	b.WriteString("\n")

	for _, mod := range reg.Modules() {
		b.WriteString(mod)
		b.WriteString(":")
		for _, e := range reg.All() {
			if e.Module != mod {
				continue
			}
			b.WriteString(" ")
			b.WriteString(signature(e))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func signature(e stdlib.Entry) string {
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		params[i] = p.String()
	}
	sig := fmt.Sprintf("%s(%s)->%s", e.Name, strings.Join(params, ","), e.Result.String())
	if e.Capability != "" {
		sig += "[" + e.Capability + "]"
	}
	return sig
}

// Modules returns the registry's module names sorted, for callers that
// want a deterministic index separate from the prose Get produces.
func Modules(reg *stdlib.Registry) []string {
	out := append([]string{}, reg.Modules()...)
	sort.Strings(out)
	return out
}
