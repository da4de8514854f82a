package ast

import "pepl/internal/diag"

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ Sp diag.Span }

func (e exprBase) Span() diag.Span       { return e.Sp }
func (e *exprBase) SetSpan(sp diag.Span) { e.Sp = sp }
func (exprBase) exprNode()               {}

// NumberLit is a numeric literal (integer or decimal).
type NumberLit struct {
	exprBase
	Value float64
	Text  string
}

// StringLit is a plain string literal with no interpolation segments.
type StringLit struct {
	exprBase
	Value string
}

// InterpolatedString is `"...${expr}...${expr}..."`, desugared at eval/
// codegen time to concatenation of coerced fragments.
type InterpolatedString struct {
	exprBase
	Parts []Expr // alternating *StringLit and expression parts, in order
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	exprBase
	Value bool
}

// NilLit is the literal `nil`.
type NilLit struct{ exprBase }

// Ident references a binding: a local, a parameter, a state field, or a
// previously-declared derived field. Resolution happens in the checker.
type Ident struct {
	exprBase
	Name string
}

// FieldPath is a dotted chain rooted at an identifier, e.g. `a.b.c`. Used
// both as a general property-access expression and, restricted to a state
// field root, as the target of `set`.
type FieldPath struct {
	exprBase
	Root   *Ident
	Fields []string
}

// IndexExpr is `list[i]` (only lists are indexable; there is no map type).
type IndexExpr struct {
	exprBase
	Object Expr
	Index  Expr
}

// UnaryExpr is `-x` or `not x`.
type UnaryExpr struct {
	exprBase
	Op      string // "-" or "not"
	Operand Expr
}

// BinaryExpr covers the arithmetic and comparison operators. `and`/`or`
// are modeled separately as LogicalExpr because they short-circuit.
type BinaryExpr struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

// LogicalExpr is `and`/`or`, which short-circuit.
type LogicalExpr struct {
	exprBase
	Op    string // "and" or "or"
	Left  Expr
	Right Expr
}

// NilCoalesceExpr is `left ?? right`; left must type as `T | nil`.
type NilCoalesceExpr struct {
	exprBase
	Left  Expr
	Right Expr
}

// TryExpr is `expr?`, valid only on a Result<T,E>; yields T, traps on Err.
type TryExpr struct {
	exprBase
	Operand Expr
}

// CallExpr is a bare or property-rooted call: `f(args)`, `obj.method(args)`,
// or an action reference invoked from a view/UI context is represented
// separately as ActionRef. A qualified stdlib call `module.function(args)`
// is represented here with Callee a *FieldPath of depth 1.
type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

// LambdaExpr is `fn(params) { body }` (block body only; lambda
// bodies that are expressions ... are E602").
type LambdaExpr struct {
	exprBase
	Params []*Param
	Body   []Stmt
}

// ListLit is `[e1, e2, ...]`.
type ListLit struct {
	exprBase
	Elements []Expr
}

// RecordField is one `name: value` pair of a record literal.
type RecordField struct {
	Name  string
	Value Expr
	Sp    diag.Span
}

// RecordLit is `{ name: value, ... }`.
type RecordLit struct {
	exprBase
	Fields []*RecordField
}

// SumConstructExpr builds a sum-type value: a bare tag (`Red`) or a payload
// constructor (`Ok(value)`, `Err(msg)`, or a user-defined variant call).
type SumConstructExpr struct {
	exprBase
	Variant string
	Args    []Expr
}

// MatchExpr is `match scrutinee { arm, ... }`; checked for exhaustiveness
// in the checker.
type MatchExpr struct {
	exprBase
	Scrutinee Expr
	Arms      []*MatchArm
}

// MatchArm is one `Pattern (if guard)? -> expr|block` case.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if no guard
	Body    []Stmt
	Sp      diag.Span
}

func (a *MatchArm) Span() diag.Span { return a.Sp }

// IfExpr models `if cond { ... } else { ... }` used in expression position
// (as a statement wrapper, see IfStmt in stmt.go, is the primary surface;
// IfExpr exists for UI conditional children, see ui.go UIIf).
type IfExpr struct {
	exprBase
	Cond Expr
	Then []Stmt
	Else []Stmt // may itself be a single-element []Stmt{*ExprStmt{IfExpr}} for else-if
}

// ComponentExpr constructs a Surface node: `Name { prop: value, ... } { children }`.
type ComponentExpr struct {
	exprBase
	Name     string
	Props    []*ComponentProp
	Children []UINode
}

// ComponentProp is one `name: value` prop of a component. If Value is a
// bare Ident naming a declared action, the checker resolves it to an
// ActionRef instead of evaluating it as a value expression.
type ComponentProp struct {
	Name  string
	Value Expr
	Sp    diag.Span
}

// ActionRef is a resolved reference to a declared action, produced by the
// checker when a UI prop value is a bare identifier naming an action.
type ActionRef struct {
	exprBase
	Name string
}
