package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/types"
)

func (c *Checker) checkStateDecl(sd *ast.StateDecl) {
	seen := map[string]bool{}
	for _, f := range sd.Fields {
		if seen[f.Name] {
			c.errorf(f.Sp, diag.ErrShadowedBinding, "duplicate state field %q", f.Name)
			continue
		}
		seen[f.Name] = true
		declared := c.resolveTypeExpr(f.Type)
		// State initializers must be pure: an earlier sibling field is
		// already declared in scope, so a reference to it is flagged E302
		// under pureOnly; a later sibling is not declared yet and is an
		// ordinary undefined name.
		got := c.checkExprPure(f.Init, "state initializer")
		if typeMismatch(declared, got) {
			c.errorf(f.Init.Span(), diag.ErrTypeMismatch, "state field %q declared %s but initializer is %s", f.Name, declared, got)
		}
		c.state[f.Name] = declared
		c.scopes.Declare(f.Name, declared)
	}
}

// checkExprPure type-checks a state initializer with pureOnly set, so any
// reference to a state field is reported as E302. It adds no check of its
// own for capability calls. label is used only for diagnostics.
func (c *Checker) checkExprPure(e ast.Expr, label string) *types.Type {
	prevPure := c.pureOnly
	c.pureOnly = true
	c.pureLabel = label
	t := c.checkExpr(e)
	c.pureOnly = prevPure
	return t
}

func (c *Checker) checkCapabilities(cd *ast.CapabilitiesDecl) {
	for _, n := range cd.Required {
		c.capsRequired[n] = true
	}
	for _, n := range cd.Optional {
		c.capsOptional[n] = true
	}
}

func (c *Checker) checkCredentials(cd *ast.CredentialsDecl) {
	for _, n := range cd.Names {
		c.credentials[n] = true
	}
}

func (c *Checker) checkDerived(dd *ast.DerivedDecl) {
	// Collect every derived name up front so a reference to a not-yet-
	// declared sibling (out of order, or a direct/indirect cycle) resolves
	// to a specific E301 instead of a generic undefined-name error. Derived
	// fields form a DAG with a strict topological order equal to
	// declaration order.
	for _, f := range dd.Fields {
		c.allDerivedNames[f.Name] = true
	}
	seen := map[string]bool{}
	for _, f := range dd.Fields {
		if seen[f.Name] {
			c.errorf(f.Sp, diag.ErrDerivedCycle, "duplicate derived field %q", f.Name)
			continue
		}
		seen[f.Name] = true
		declared := c.resolveTypeExpr(f.Type)
		got := c.checkExpr(f.Expr)
		if typeMismatch(declared, got) {
			c.errorf(f.Expr.Span(), diag.ErrTypeMismatch, "derived field %q declared %s but expression is %s", f.Name, declared, got)
		}
		c.derived[f.Name] = declared
		c.scopes.Declare(f.Name, declared)
	}
}

func (c *Checker) checkInvariant(inv *ast.InvariantDecl) {
	// Invariants are boolean over state alone; a reference to a derived
	// field is E300. Since derived names are declared into the same
	// space-level scope as state, resolveInvariantRef flags derived hits
	// specifically rather than relying on plain undefined-name errors.
	c.invariantOnly = true
	t := c.checkExpr(inv.Expr)
	c.invariantOnly = false
	if typeMismatch(types.TBool, t) {
		c.errorf(inv.Expr.Span(), diag.ErrTypeMismatch, "invariant %q must be a bool expression, got %s", inv.Name, t)
	}
}

func (c *Checker) checkAction(a *ast.ActionDecl) {
	c.scopes.push(scopeFunc)
	defer c.scopes.pop()
	prevIn, prevView := c.inAction, c.inView
	c.inAction, c.inView = true, false
	prevFn := c.curFn
	c.curFn = "action:" + a.Name
	if _, exists := c.callGraph[c.curFn]; !exists {
		c.callGraph[c.curFn] = nil
	}
	for _, p := range a.Params {
		c.declareParam(p)
	}
	c.checkStmts(a.Body)
	c.inAction, c.inView = prevIn, prevView
	c.curFn = prevFn
}

func (c *Checker) checkView(v *ast.ViewDecl) {
	c.scopes.push(scopeFunc)
	defer c.scopes.pop()
	prevIn, prevView := c.inAction, c.inView
	c.inAction, c.inView = false, true
	prevFn := c.curFn
	c.curFn = "view:" + v.Name
	if _, exists := c.callGraph[c.curFn]; !exists {
		c.callGraph[c.curFn] = nil
	}
	for _, p := range v.Params {
		c.declareParam(p)
	}
	c.checkStmts(v.Body)
	c.inAction, c.inView = prevIn, prevView
	c.curFn = prevFn
}

func (c *Checker) checkUpdateHook(u *ast.UpdateHook) {
	c.scopes.push(scopeFunc)
	defer c.scopes.pop()
	prevIn := c.inAction
	c.inAction = true
	prevFn := c.curFn
	c.curFn = "update"
	if _, exists := c.callGraph[c.curFn]; !exists {
		c.callGraph[c.curFn] = nil
	}
	c.scopes.Declare(u.Param, types.TNumber)
	c.checkStmts(u.Body)
	c.inAction = prevIn
	c.curFn = prevFn
}

func (c *Checker) checkHandleEventHook(h *ast.HandleEventHook) {
	c.scopes.push(scopeFunc)
	defer c.scopes.pop()
	prevIn := c.inAction
	c.inAction = true
	prevFn := c.curFn
	c.curFn = "handleEvent"
	if _, exists := c.callGraph[c.curFn]; !exists {
		c.callGraph[c.curFn] = nil
	}
	c.scopes.Declare(h.Param, types.TInputEvent)
	c.checkStmts(h.Body)
	c.inAction = prevIn
	c.curFn = prevFn
}

func (c *Checker) declareParam(p *ast.Param) {
	if c.scopes.Visible(p.Name) {
		c.errorf(p.Sp, diag.ErrShadowedBinding, "parameter %q shadows an outer binding", p.Name)
	}
	var t *types.Type
	if p.Type != nil {
		t = c.resolveTypeExpr(p.Type)
	} else {
		t = types.TAny
	}
	c.scopes.Declare(p.Name, t)
}

func (c *Checker) checkTestsBlock(tb *ast.TestsBlock) {
	for _, t := range tb.Tests {
		c.checkTest(t)
	}
}

func (c *Checker) checkTest(t *ast.Test) {
	c.scopes.push(scopeFunc)
	defer c.scopes.pop()
	prevIn := c.inAction
	c.inAction = true
	for _, r := range t.Responses {
		if _, ok := c.std.Lookup(r.Module, r.Function); !ok {
			c.errorf(r.Sp, diag.ErrUnknownCapabilityCall, "with_responses references unknown stdlib call %s.%s", r.Module, r.Function)
		}
		c.checkExpr(r.Value)
	}
	c.checkStmts(t.Body)
	c.inAction = prevIn
}
