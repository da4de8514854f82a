package ast

import "pepl/internal/diag"

// TypeExpr is the AST form of a type annotation. It is
// resolved to an internal/types.Type by the checker; the AST form exists
// so annotations carry spans for diagnostics.
type TypeExpr interface {
	Node
	typeExprNode()
}

type typeExprBase struct{ Sp diag.Span }

func (t typeExprBase) Span() diag.Span       { return t.Sp }
func (t *typeExprBase) SetSpan(sp diag.Span) { t.Sp = sp }
func (typeExprBase) typeExprNode()           {}

// NamedTypeExpr is a primitive or user-defined type referenced by name:
// number, string, bool, color, Surface, InputEvent, or a user sum/alias.
// `any` parses to a NamedTypeExpr{Name:"any"} and is rejected by the
// checker wherever it appears in user source.
type NamedTypeExpr struct {
	typeExprBase
	Name string
}

// ListTypeExpr is `list<T>`.
type ListTypeExpr struct {
	typeExprBase
	Elem TypeExpr
}

// ResultTypeExpr is `Result<T,E>`.
type ResultTypeExpr struct {
	typeExprBase
	Ok  TypeExpr
	Err TypeExpr
}

// RecordFieldType is one field of a record type: `name(?): Type`.
type RecordFieldType struct {
	Name     string
	Type     TypeExpr
	Optional bool
	Sp       diag.Span
}

// RecordTypeExpr is `record { name: Type, name?: Type, ... }`, nested at
// most 4 deep.
type RecordTypeExpr struct {
	typeExprBase
	Fields []*RecordFieldType
}

// FuncTypeExpr is `(params: [Type]) -> Type`.
type FuncTypeExpr struct {
	typeExprBase
	Params []TypeExpr
	Result TypeExpr
}

// NullableTypeExpr is `T | nil`.
type NullableTypeExpr struct {
	typeExprBase
	Inner TypeExpr
}
