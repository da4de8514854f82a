package eval

import (
	"pepl/internal/ast"
	"pepl/internal/value"
)

// matchPattern reports whether v matches p and, if so, the names it binds.
// The checker has already proven arms are exhaustive
// and well-typed, so this never needs to guess at a type it hasn't seen.
func (e *Evaluator) matchPattern(p ast.Pattern, v value.Value) (map[string]value.Value, bool) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return nil, true
	case *ast.BindPattern:
		return map[string]value.Value{pat.Name: v}, true
	case *ast.LiteralPattern:
		lit := e.evalExpr(pat.Value, nil)
		if value.Equal(lit, v) {
			return nil, true
		}
		return nil, false
	case *ast.VariantPattern:
		return e.matchVariantPattern(pat, v)
	}
	return nil, false
}

func (e *Evaluator) matchVariantPattern(pat *ast.VariantPattern, v value.Value) (map[string]value.Value, bool) {
	switch pat.Variant {
	case "Ok", "Err":
		res, ok := v.(*value.Result)
		if !ok {
			return nil, false
		}
		if pat.Variant == "Ok" && res.IsErr {
			return nil, false
		}
		if pat.Variant == "Err" && !res.IsErr {
			return nil, false
		}
		if len(pat.Binds) == 0 {
			return nil, true
		}
		payload := res.Ok
		if pat.Variant == "Err" {
			payload = res.Err
		}
		return map[string]value.Value{pat.Binds[0]: payload}, true
	}
	sv, ok := v.(*value.SumVariant)
	if !ok || sv.Name != pat.Variant {
		return nil, false
	}
	if len(pat.Binds) == 0 {
		return nil, true
	}
	binds := map[string]value.Value{}
	for i, name := range pat.Binds {
		if sv.Payload != nil && i < len(sv.Payload.Names) {
			binds[name] = sv.Payload.Get(sv.Payload.Names[i])
		} else {
			binds[name] = value.Nil{}
		}
	}
	return binds, true
}
