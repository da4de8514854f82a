package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/types"
)

// checkStmts checks a statement list in its own block scope and returns the
// type of its trailing expression statement, used to infer a lambda's
// result type.
func (c *Checker) checkStmts(stmts []ast.Stmt) *types.Type {
	c.scopes.push(scopeBlock)
	defer c.scopes.pop()
	var last *types.Type = types.TNil
	for _, s := range stmts {
		last = c.checkStmt(s)
	}
	return last
}

func (c *Checker) checkStmt(s ast.Stmt) *types.Type {
	switch t := s.(type) {
	case *ast.LetStmt:
		c.checkLetStmt(t)
	case *ast.SetStmt:
		c.checkSetStmt(t)
	case *ast.ExprStmt:
		return c.checkExpr(t.Expr)
	case *ast.ReturnStmt:
		if t.Value != nil {
			return c.checkExpr(t.Value)
		}
	case *ast.AssertStmt:
		ct := c.checkExpr(t.Cond)
		if typeMismatch(types.TBool, ct) {
			c.errorf(t.Cond.Span(), diag.ErrBadOperandType, "assert condition must be bool, got %s", ct)
		}
		if t.Message != nil {
			mt := c.checkExpr(t.Message)
			if typeMismatch(types.TString, mt) {
				c.errorf(t.Message.Span(), diag.ErrBadOperandType, "assert message must be a string, got %s", mt)
			}
		}
	case *ast.IfStmt:
		c.checkIfStmt(t)
	case *ast.ForStmt:
		c.checkForStmt(t)
	case *ast.MatchStmt:
		c.checkMatch(t.Match)
	}
	return types.TNil
}

func (c *Checker) checkLetStmt(l *ast.LetStmt) {
	if !l.Discard && c.scopes.Visible(l.Name) {
		c.errorf(l.Span(), diag.ErrShadowedBinding, "%q shadows an outer binding", l.Name)
	}
	vt := c.checkExpr(l.Value)
	if l.Type != nil {
		declared := c.resolveTypeExpr(l.Type)
		if typeMismatch(declared, vt) {
			c.errorf(l.Span(), diag.ErrTypeMismatch, "let %s declared %s but value is %s", l.Name, declared, vt)
		}
		vt = declared
	}
	if !l.Discard {
		c.scopes.Declare(l.Name, vt)
	}
}

func (c *Checker) checkSetStmt(s *ast.SetStmt) {
	if !c.inAction {
		c.errorf(s.Span(), diag.ErrSetOutsideAction, "'set' is only valid inside an action")
	}
	root := s.Target.Root.Name
	declaredTy, isState := c.state[root]
	if !isState {
		if _, isDerived := c.derived[root]; isDerived {
			c.errorf(s.Span(), diag.ErrSetTargetsDerived, "'set' cannot target derived field %q", root)
		} else {
			c.errorf(s.Span(), diag.ErrSetNotStateField, "'set' target %q is not a declared state field", root)
		}
		c.checkExpr(s.Value)
		return
	}
	cur := declaredTy
	for _, name := range s.Target.Fields {
		if cur.Tag != types.Record {
			c.errorf(s.Span(), diag.ErrUnknownField, "cannot resolve field %q, %s is not a record", name, cur)
			c.checkExpr(s.Value)
			return
		}
		f, ok := cur.Field(name)
		if !ok {
			c.errorf(s.Span(), diag.ErrUnknownField, "record has no field %q", name)
			c.checkExpr(s.Value)
			return
		}
		cur = f.Type
	}
	vt := c.checkExpr(s.Value)
	if typeMismatch(cur, vt) {
		c.errorf(s.Value.Span(), diag.ErrTypeMismatch, "'set' target is %s but value is %s", cur, vt)
	}
}

// checkIfStmt applies nil narrowing: `if x != nil { ... }`
// narrows x to its non-nil payload type inside Then, and symmetrically for
// `if x == nil { ... } else { ... }` inside Else.
func (c *Checker) checkIfStmt(i *ast.IfStmt) {
	ct := c.checkExpr(i.Cond)
	if typeMismatch(types.TBool, ct) {
		c.errorf(i.Cond.Span(), diag.ErrBadOperandType, "'if' condition must be bool, got %s", ct)
	}
	name, narrowedTy, notNilInThen := c.narrowTarget(i.Cond)

	c.scopes.push(scopeBlock)
	if name != "" && notNilInThen {
		c.scopes.Declare(name, narrowedTy)
	}
	for _, s := range i.Then {
		c.checkStmt(s)
	}
	c.scopes.pop()

	c.scopes.push(scopeBlock)
	if name != "" && !notNilInThen {
		c.scopes.Declare(name, narrowedTy)
	}
	for _, s := range i.Else {
		c.checkStmt(s)
	}
	c.scopes.pop()
}

// narrowTarget inspects a condition of the shape `ident != nil` or
// `ident == nil` and returns the narrowed name, its non-nil payload type,
// and whether the narrowing applies in the then-branch (!=) or the
// else-branch (==).
func (c *Checker) narrowTarget(cond ast.Expr) (name string, narrowed *types.Type, inThen bool) {
	b, ok := cond.(*ast.BinaryExpr)
	if !ok || (b.Op != "!=" && b.Op != "==") {
		return "", nil, false
	}
	id, isIdent := b.Left.(*ast.Ident)
	if !isIdent {
		return "", nil, false
	}
	if _, isNil := b.Right.(*ast.NilLit); !isNil {
		return "", nil, false
	}
	t, ok := c.scopes.Lookup(id.Name)
	if !ok {
		return "", nil, false
	}
	inner, nullable := t.IsNullable()
	if !nullable {
		return "", nil, false
	}
	return id.Name, inner, b.Op == "!="
}

func (c *Checker) checkForStmt(f *ast.ForStmt) {
	it := c.checkExpr(f.Iter)
	c.scopes.push(scopeBlock)
	if it.Tag == types.List {
		if c.scopes.Visible(f.Item) {
			c.errorf(f.Span(), diag.ErrShadowedBinding, "%q shadows an outer binding", f.Item)
		}
		c.scopes.Declare(f.Item, it.Elem)
	} else {
		if it.Tag != types.Any {
			c.errorf(f.Iter.Span(), diag.ErrTypeMismatch, "'for' iterates only over a list, got %s", it)
		}
		c.scopes.Declare(f.Item, types.TAny)
	}
	if f.Index != "" {
		c.scopes.Declare(f.Index, types.TNumber)
	}
	for _, s := range f.Body {
		c.checkStmt(s)
	}
	c.scopes.pop()
}
