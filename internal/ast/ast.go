// Package ast defines the spanned syntax tree produced by the PEPL parser
// Every node carries a Span for diagnostics and
// for the WASM source map; declarations are stored in ordered slices (never
// maps) so codegen and diagnostics stay deterministic.
package ast

import "pepl/internal/diag"

// Node is implemented by every AST node.
type Node interface {
	Span() diag.Span
}

// Program is the root of a compiled unit: exactly one Space plus zero or
// more top-level test blocks.
type Program struct {
	Space *SpaceDecl
	Tests []*TestsBlock
	Sp    diag.Span
}

func (p *Program) Span() diag.Span { return p.Sp }

// SpaceDecl is the single top-level application unit. Body order is fixed
// in order: Types*, State, Capabilities?, Credentials?, Derived?,
// Invariants*, Actions*, Views*, Update?, HandleEvent?.
type SpaceDecl struct {
	Name         string
	Types        []*TypeDecl
	State        *StateDecl
	Capabilities *CapabilitiesDecl
	Credentials  *CredentialsDecl
	Derived      *DerivedDecl
	Invariants   []*InvariantDecl
	Actions      []*ActionDecl
	Views        []*ViewDecl
	Update       *UpdateHook
	HandleEvent  *HandleEventHook
	Sp           diag.Span
}

func (s *SpaceDecl) Span() diag.Span { return s.Sp }

// TypeDecl declares a user-defined sum type or alias: `type Name { ... }`
// or `type Name = OtherType`.
type TypeDecl struct {
	Name     string
	Variants []*SumVariantDecl // non-nil for a sum type
	Alias    TypeExpr          // non-nil for an alias
	Sp       diag.Span
}

func (t *TypeDecl) Span() diag.Span { return t.Sp }

// SumVariantDecl is one case of a sum type, e.g. `Red` or `Ok(value: T)`.
type SumVariantDecl struct {
	Name   string
	Fields []*RecordFieldType // payload fields, empty for a bare tag
	Sp     diag.Span
}

func (v *SumVariantDecl) Span() diag.Span { return v.Sp }

// StateDecl is the required `state { ... }` block, at least one field.
type StateDecl struct {
	Fields []*StateField
	Sp     diag.Span
}

func (s *StateDecl) Span() diag.Span { return s.Sp }

// StateField is one `name: Type = initExpr` entry. The initializer must be
// pure: only stdlib calls, no capability calls, no sibling-field refs.
type StateField struct {
	Name string
	Type TypeExpr
	Init Expr
	Sp   diag.Span
}

func (f *StateField) Span() diag.Span { return f.Sp }

// CapabilitiesDecl lists the symbolic host permissions a space needs.
type CapabilitiesDecl struct {
	Required []string
	Optional []string
	Sp       diag.Span
}

func (c *CapabilitiesDecl) Span() diag.Span { return c.Sp }

// CredentialsDecl lists read-only host-provided secret names.
type CredentialsDecl struct {
	Names []string
	Sp    diag.Span
}

func (c *CredentialsDecl) Span() diag.Span { return c.Sp }

// DerivedDecl holds the space's derived fields, recomputed in declaration
// order after every committed action.
type DerivedDecl struct {
	Fields []*DerivedField
	Sp     diag.Span
}

func (d *DerivedDecl) Span() diag.Span { return d.Sp }

// DerivedField is one computed attribute; its expression may reference
// state and any *previously declared* derived field.
type DerivedField struct {
	Name string
	Type TypeExpr
	Expr Expr
	Sp   diag.Span
}

func (f *DerivedField) Span() diag.Span { return f.Sp }

// InvariantDecl is a named boolean condition over state alone, checked
// after every action commit.
type InvariantDecl struct {
	Name string
	Expr Expr
	Sp   diag.Span
}

func (i *InvariantDecl) Span() diag.Span { return i.Sp }

// Param is one formal parameter of an action, view, or lambda.
type Param struct {
	Name string
	Type TypeExpr // nil where inference applies (lambda params)
	Sp   diag.Span
}

func (p *Param) Span() diag.Span { return p.Sp }

// ActionDecl is a named mutation procedure over state.
// Parameters are capped at 8.
type ActionDecl struct {
	Name   string
	Params []*Param
	Body   []Stmt
	Sp     diag.Span
}

func (a *ActionDecl) Span() diag.Span { return a.Sp }

// ViewDecl is a pure function returning a Surface tree.
type ViewDecl struct {
	Name   string
	Params []*Param
	Body   []Stmt // last statement must be an expression statement building a Surface
	Sp     diag.Span
}

func (v *ViewDecl) Span() diag.Span { return v.Sp }

// UpdateHook is the optional `update(dt) { ... }` game-loop hook.
type UpdateHook struct {
	Param string // dt
	Body  []Stmt
	Sp    diag.Span
}

func (u *UpdateHook) Span() diag.Span { return u.Sp }

// HandleEventHook is the optional `handleEvent(event) { ... }` hook.
type HandleEventHook struct {
	Param string // event
	Body  []Stmt
	Sp    diag.Span
}

func (h *HandleEventHook) Span() diag.Span { return h.Sp }

// TestsBlock groups zero or more Test cases, parsed at top level alongside
// (after) the SpaceDecl.
type TestsBlock struct {
	Name  string
	Tests []*Test
	Sp    diag.Span
}

func (t *TestsBlock) Span() diag.Span { return t.Sp }

// Test is one `test "desc" [with_responses {...}] { body }` case.
type Test struct {
	Description string
	Responses   []*MockedResponse // nil if no with_responses clause
	Body        []Stmt
	Sp          diag.Span
}

func (t *Test) Span() diag.Span { return t.Sp }

// MockedResponse binds one capability call site (by module.function and
// ordinal occurrence within the test) to a canned Ok/Err result.
type MockedResponse struct {
	Module   string
	Function string
	Ordinal  int // 0-based occurrence of this module.function within the test body
	IsErr    bool
	Value    Expr
	Sp       diag.Span
}

func (m *MockedResponse) Span() diag.Span { return m.Sp }
