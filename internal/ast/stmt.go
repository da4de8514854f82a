package ast

import "pepl/internal/diag"

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ Sp diag.Span }

func (s stmtBase) Span() diag.Span    { return s.Sp }
func (s *stmtBase) SetSpan(sp diag.Span) { s.Sp = sp }
func (stmtBase) stmtNode()            {}

// LetStmt is `let name(: Type)? = expr`, or `let _ = expr` to discard.
type LetStmt struct {
	stmtBase
	Name    string // "_" to discard
	Type    TypeExpr
	Value   Expr
	Discard bool
}

// SetStmt is `set path = expr`, where path is a dotted chain rooted at a
// declared state field. Only legal inside an action.
type SetStmt struct {
	stmtBase
	Target *FieldPath
	Value  Expr
}

// ExprStmt wraps a bare expression used for its side effect (a call) or as
// the trailing value of an action/view body.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

// ReturnStmt is `return` or `return expr`, valid only inside an action.
type ReturnStmt struct {
	stmtBase
	Value Expr // nil for a bare `return`
}

// AssertStmt is `assert expr` or `assert expr, "message"`.
type AssertStmt struct {
	stmtBase
	Cond    Expr
	Message Expr // nil if no message given
}

// IfStmt is `if cond { ... } else if cond { ... } else { ... }`. An
// `else if` chain is represented by Else containing a single ExprStmt-less
// []Stmt{ *IfStmt }.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// ForStmt is `for item(, index)? in expr { ... }`; iterates only over a
// list<T>.
type ForStmt struct {
	stmtBase
	Item  string
	Index string // "" if no index binding
	Iter  Expr
	Body  []Stmt
}

// MatchStmt wraps a MatchExpr used at statement position (a match whose
// arms are executed for effect rather than yielding a value that is used).
type MatchStmt struct {
	stmtBase
	Match *MatchExpr
}
