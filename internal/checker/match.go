package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/types"
)

// checkMatch type-checks every arm and enforces exhaustiveness over the
// scrutinee's type: a sum type must cover every variant
// (or fall back to `_`/a bind pattern); Result<T,E> must cover both `Ok`
// and `Err` (or fall back); any other scrutinee type requires a catch-all
// arm since PEPL has no way to enumerate, say, every possible number.
func (c *Checker) checkMatch(m *ast.MatchExpr) *types.Type {
	st := c.checkExpr(m.Scrutinee)

	var resultTy *types.Type
	catchAll := false
	coveredVariants := map[string]bool{}

	for _, arm := range m.Arms {
		c.scopes.push(scopeBlock)
		switch p := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			catchAll = true
		case *ast.BindPattern:
			catchAll = true
			c.scopes.Declare(p.Name, st)
		case *ast.VariantPattern:
			c.checkVariantPattern(p, st)
			coveredVariants[p.Variant] = true
		case *ast.LiteralPattern:
			lt := c.checkExpr(p.Value)
			if typeMismatch(st, lt) {
				c.errorf(p.Span(), diag.ErrTypeMismatch, "match pattern is %s but scrutinee is %s", lt, st)
			}
		}
		if arm.Guard != nil {
			gt := c.checkExpr(arm.Guard)
			if typeMismatch(types.TBool, gt) {
				c.errorf(arm.Guard.Span(), diag.ErrBadOperandType, "match guard must be bool, got %s", gt)
			}
		}
		bt := c.checkStmts(arm.Body)
		if resultTy == nil {
			resultTy = bt
		} else if typeMismatch(resultTy, bt) {
			c.errorf(arm.Sp, diag.ErrTypeMismatch, "match arms disagree: %s vs %s", resultTy, bt)
		}
		c.scopes.pop()
	}

	c.checkExhaustive(m, st, catchAll, coveredVariants)

	if resultTy == nil {
		return types.TNil
	}
	return resultTy
}

func (c *Checker) checkVariantPattern(p *ast.VariantPattern, scrutinee *types.Type) {
	switch p.Variant {
	case "Ok", "Err":
		if scrutinee.Tag != types.ResultT {
			if scrutinee.Tag != types.Any {
				c.errorf(p.Span(), diag.ErrTypeMismatch, "%s(...) pattern requires a Result<T,E> scrutinee, got %s", p.Variant, scrutinee)
			}
			return
		}
		if len(p.Binds) == 0 {
			return
		}
		payload := scrutinee.Ok
		if p.Variant == "Err" {
			payload = scrutinee.Err
		}
		c.scopes.Declare(p.Binds[0], payload)
		return
	}
	owner, variant, ok := c.types.VariantOwner(p.Variant)
	if !ok {
		c.errorf(p.Span(), diag.ErrUnknownType, "unknown sum variant %q", p.Variant)
		return
	}
	if scrutinee.Tag == types.Named && scrutinee.Name != owner.Name {
		c.errorf(p.Span(), diag.ErrTypeMismatch, "pattern %s belongs to type %s, not %s", p.Variant, owner.Name, scrutinee.Name)
	}
	if len(p.Binds) > 0 && len(p.Binds) != len(variant.Fields) {
		c.errorf(p.Span(), diag.ErrBadArity, "pattern %s binds %d name(s) but variant has %d field(s)", p.Variant, len(p.Binds), len(variant.Fields))
	}
	for i, name := range p.Binds {
		if i < len(variant.Fields) {
			c.scopes.Declare(name, variant.Fields[i].Type)
		}
	}
}

func (c *Checker) checkExhaustive(m *ast.MatchExpr, st *types.Type, catchAll bool, covered map[string]bool) {
	if catchAll || st.Tag == types.Any {
		return
	}
	switch st.Tag {
	case types.Named:
		sum, ok := c.types.Sum(st.Name)
		if !ok {
			return
		}
		for _, v := range sum.Variants {
			if !covered[v.Name] {
				c.errorf(m.Span(), diag.ErrNonExhaustive, "match over %s is not exhaustive: missing variant %q", st.Name, v.Name)
			}
		}
	case types.ResultT:
		if !covered["Ok"] {
			c.errorf(m.Span(), diag.ErrNonExhaustive, "match over Result is not exhaustive: missing Ok(...)")
		}
		if !covered["Err"] {
			c.errorf(m.Span(), diag.ErrNonExhaustive, "match over Result is not exhaustive: missing Err(...)")
		}
	default:
		c.errorf(m.Span(), diag.ErrNonExhaustive, "match over %s is not exhaustive: add a wildcard '_' arm", st)
	}
}
