package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/types"
)

// resolveTypeExpr converts a parsed annotation into a types.Type,
// resolving named references against primitives, then the user registry.
// Unknown names produce E204 and resolve to types.TAny so checking can
// continue without cascading errors.
func (c *Checker) resolveTypeExpr(te ast.TypeExpr) *types.Type {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		switch t.Name {
		case "number":
			return types.TNumber
		case "string":
			return types.TString
		case "bool":
			return types.TBool
		case "color":
			return types.TColor
		case "Surface":
			return types.TSurface
		case "InputEvent":
			return types.TInputEvent
		case "any":
			return types.TAny
		}
		if resolved, ok := c.types.Resolve(t.Name); ok {
			return resolved
		}
		c.errorf(t.Span(), diag.ErrUnknownType, "unknown type %q", t.Name)
		return types.TAny
	case *ast.ListTypeExpr:
		return types.TList(c.resolveTypeExpr(t.Elem))
	case *ast.ResultTypeExpr:
		return types.TResult(c.resolveTypeExpr(t.Ok), c.resolveTypeExpr(t.Err))
	case *ast.RecordTypeExpr:
		fields := make([]types.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = types.Field{Name: f.Name, Type: c.resolveTypeExpr(f.Type), Optional: f.Optional}
		}
		return types.TRecord(fields)
	case *ast.FuncTypeExpr:
		params := make([]*types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.resolveTypeExpr(p)
		}
		return types.TFunc(params, c.resolveTypeExpr(t.Result))
	case *ast.NullableTypeExpr:
		return types.TNullable(c.resolveTypeExpr(t.Inner))
	}
	return types.TAny
}
