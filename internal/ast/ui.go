package ast

import "pepl/internal/diag"

// UINode is a child of a component body: a plain component, or a
// UI-level `if`/`for` control node that expands to zero or more
// components. Inside a UI block, if and for are themselves UI elements.
type UINode interface {
	Node
	uiNode()
}

type uiBase struct{ Sp diag.Span }

func (u uiBase) Span() diag.Span       { return u.Sp }
func (u *uiBase) SetSpan(sp diag.Span) { u.Sp = sp }
func (uiBase) uiNode()                 {}

// UIComponent wraps a ComponentExpr appearing as a UI child.
type UIComponent struct {
	uiBase
	Component *ComponentExpr
}

// UIIf contributes Then's children when Cond is true, else Else's.
type UIIf struct {
	uiBase
	Cond Expr
	Then []UINode
	Else []UINode
}

// UIFor contributes the concatenation of one expansion of Body per
// iteration element.
type UIFor struct {
	uiBase
	Item  string
	Index string
	Iter  Expr
	Body  []UINode
}
