package ast

import "pepl/internal/diag"

// Pattern is implemented by every match-arm pattern.
type Pattern interface {
	Node
	patternNode()
}

type patternBase struct{ Sp diag.Span }

func (p patternBase) Span() diag.Span       { return p.Sp }
func (p *patternBase) SetSpan(sp diag.Span) { p.Sp = sp }
func (patternBase) patternNode()            {}

// WildcardPattern is `_`, the exhaustiveness fallback.
type WildcardPattern struct{ patternBase }

// BindPattern binds the whole scrutinee to a name, e.g. `x -> ...` when
// used against a non-sum type, or as the default arm binding.
type BindPattern struct {
	patternBase
	Name string
}

// VariantPattern matches a sum-type tag, optionally binding payload names:
// `Red`, `Ok(value)`, `Err(message)`, or a user-defined `Circle(radius)`.
type VariantPattern struct {
	patternBase
	Variant string
	Binds   []string
}

// LiteralPattern matches an exact literal value (number, string, bool).
type LiteralPattern struct {
	patternBase
	Value Expr // *NumberLit, *StringLit, or *BoolLit
}
