package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/token"
	"pepl/internal/types"
)

// typeMismatch reports want/got as incompatible.
func typeMismatch(want, got *types.Type) bool {
	return !typesCompatible(want, got)
}

// typesCompatible is a structural compatibility check, not raw equality:
// types.TAny is a wildcard at any depth (an empty list literal types as
// list<any> and must still satisfy a list<number> annotation) so a single
// unresolved reference upstream does not cascade into an unbroken chain of
// follow-on diagnostics; a nullable want accepts either `nil` or a bare
// value of its payload type, matching `T | nil`'s two inhabitant shapes
// (`T | nil`).
func typesCompatible(want, got *types.Type) bool {
	if want == nil || got == nil || want.Tag == types.Any || got.Tag == types.Any {
		return true
	}
	if inner, ok := want.IsNullable(); ok {
		if got.Tag == types.Nil {
			return true
		}
		return typesCompatible(inner, got)
	}
	if want.Tag != got.Tag {
		return false
	}
	switch want.Tag {
	case types.List:
		return typesCompatible(want.Elem, got.Elem)
	case types.ResultT:
		return typesCompatible(want.Ok, got.Ok) && typesCompatible(want.Err, got.Err)
	case types.Named:
		return want.Name == got.Name
	case types.Record:
		if len(want.Fields) != len(got.Fields) {
			return false
		}
		for i := range want.Fields {
			if want.Fields[i].Name != got.Fields[i].Name || want.Fields[i].Optional != got.Fields[i].Optional {
				return false
			}
			if !typesCompatible(want.Fields[i].Type, got.Fields[i].Type) {
				return false
			}
		}
		return true
	case types.Func:
		if len(want.Params) != len(got.Params) {
			return false
		}
		for i := range want.Params {
			if !typesCompatible(want.Params[i], got.Params[i]) {
				return false
			}
		}
		return typesCompatible(want.Result, got.Result)
	default:
		return true
	}
}

func (c *Checker) checkExpr(e ast.Expr) *types.Type {
	switch t := e.(type) {
	case *ast.NumberLit:
		return types.TNumber
	case *ast.StringLit:
		return types.TString
	case *ast.InterpolatedString:
		for _, part := range t.Parts {
			c.checkExpr(part)
		}
		return types.TString
	case *ast.BoolLit:
		return types.TBool
	case *ast.NilLit:
		return types.TNil
	case *ast.Ident:
		return c.checkIdentRef(t)
	case *ast.FieldPath:
		return c.checkFieldPath(t, false)
	case *ast.IndexExpr:
		return c.checkIndexExpr(t)
	case *ast.UnaryExpr:
		return c.checkUnary(t)
	case *ast.BinaryExpr:
		return c.checkBinary(t)
	case *ast.LogicalExpr:
		return c.checkLogical(t)
	case *ast.NilCoalesceExpr:
		return c.checkNilCoalesce(t)
	case *ast.TryExpr:
		return c.checkTry(t)
	case *ast.CallExpr:
		return c.checkCall(t)
	case *ast.LambdaExpr:
		return c.checkLambda(t)
	case *ast.ListLit:
		return c.checkListLit(t)
	case *ast.RecordLit:
		return c.checkRecordLit(t)
	case *ast.SumConstructExpr:
		return c.checkSumConstruct(t)
	case *ast.MatchExpr:
		return c.checkMatch(t)
	case *ast.ComponentExpr:
		return c.checkComponent(t)
	case *ast.ActionRef:
		return types.TAny
	}
	return types.TAny
}

func (c *Checker) checkIdentRef(id *ast.Ident) *types.Type {
	if t, ok := c.scopes.Lookup(id.Name); ok {
		if c.pureOnly {
			if _, isState := c.state[id.Name]; isState {
				c.errorf(id.Span(), diag.ErrImpureStateInit, "%s cannot reference state field %q", c.pureLabel, id.Name)
			}
		}
		if c.invariantOnly {
			if _, isDerived := c.derived[id.Name]; isDerived {
				c.errorf(id.Span(), diag.ErrDerivedRefInInvariant, "invariant cannot reference derived field %q", id.Name)
			}
		}
		return t
	}
	if c.credentials[id.Name] {
		return types.TString
	}
	if c.allDerivedNames[id.Name] {
		c.errorf(id.Span(), diag.ErrDerivedCycle, "derived field %q referenced out of declaration order (or in a cycle)", id.Name)
		return types.TAny
	}
	c.errorf(id.Span(), diag.ErrUnknownField, "undefined name %q", id.Name)
	return types.TAny
}

// checkFieldPath resolves a dotted chain. asCallee is true when the path is
// the callee of a CallExpr, in which case a reserved-module-name root is a
// stdlib qualifier rather than a value reference and is left to checkCall.
func (c *Checker) checkFieldPath(fp *ast.FieldPath, asCallee bool) *types.Type {
	if token.IsReservedModuleName(fp.Root.Name) {
		if asCallee {
			return types.TAny // resolved by checkCall against the registry
		}
		c.errorf(fp.Span(), diag.ErrNotCallable, "stdlib module %q must be called as %s.function(args)", fp.Root.Name, fp.Root.Name)
		return types.TAny
	}
	cur := c.checkIdentRef(fp.Root)
	for _, name := range fp.Fields {
		inner, nullable := cur.IsNullable()
		if nullable {
			c.errorf(fp.Span(), diag.ErrTypeMismatch, "field access on possibly-nil value; narrow with != nil first")
			cur = inner
		}
		if cur.Tag != types.Record {
			if cur.Tag != types.Any {
				c.errorf(fp.Span(), diag.ErrUnknownField, "cannot access field %q on non-record type %s", name, cur)
			}
			return types.TAny
		}
		f, ok := cur.Field(name)
		if !ok {
			c.errorf(fp.Span(), diag.ErrUnknownField, "record has no field %q", name)
			return types.TAny
		}
		cur = f.Type
		if f.Optional {
			cur = types.TNullable(cur)
		}
	}
	return cur
}

func (c *Checker) checkIndexExpr(ix *ast.IndexExpr) *types.Type {
	ot := c.checkExpr(ix.Object)
	it := c.checkExpr(ix.Index)
	if typeMismatch(types.TNumber, it) {
		c.errorf(ix.Index.Span(), diag.ErrTypeMismatch, "list index must be a number, got %s", it)
	}
	if ot.Tag != types.List {
		if ot.Tag != types.Any {
			c.errorf(ix.Object.Span(), diag.ErrNotIndexable, "cannot index into non-list type %s", ot)
		}
		return types.TAny
	}
	return ot.Elem
}

func (c *Checker) checkUnary(u *ast.UnaryExpr) *types.Type {
	t := c.checkExpr(u.Operand)
	if u.Op == "not" {
		if typeMismatch(types.TBool, t) {
			c.errorf(u.Span(), diag.ErrBadOperandType, "'not' requires bool, got %s", t)
		}
		return types.TBool
	}
	if typeMismatch(types.TNumber, t) {
		c.errorf(u.Span(), diag.ErrBadOperandType, "unary '-' requires number, got %s", t)
	}
	return types.TNumber
}

func (c *Checker) checkBinary(b *ast.BinaryExpr) *types.Type {
	lt := c.checkExpr(b.Left)
	rt := c.checkExpr(b.Right)
	switch b.Op {
	case "==", "!=":
		if typeMismatch(lt, rt) {
			c.errorf(b.Span(), diag.ErrTypeMismatch, "cannot compare %s with %s", lt, rt)
		}
		return types.TBool
	case "<", ">", "<=", ">=":
		if typeMismatch(types.TNumber, lt) || typeMismatch(types.TNumber, rt) {
			c.errorf(b.Span(), diag.ErrBadOperandType, "comparison requires numbers, got %s and %s", lt, rt)
		}
		return types.TBool
	default: // + - * / %
		if typeMismatch(types.TNumber, lt) || typeMismatch(types.TNumber, rt) {
			c.errorf(b.Span(), diag.ErrBadOperandType, "'%s' is numbers-only, got %s and %s (use interpolation for strings)", b.Op, lt, rt)
		}
		return types.TNumber
	}
}

func (c *Checker) checkLogical(l *ast.LogicalExpr) *types.Type {
	lt := c.checkExpr(l.Left)
	rt := c.checkExpr(l.Right)
	if typeMismatch(types.TBool, lt) || typeMismatch(types.TBool, rt) {
		c.errorf(l.Span(), diag.ErrBadOperandType, "'%s' requires bool operands", l.Op)
	}
	return types.TBool
}

func (c *Checker) checkNilCoalesce(n *ast.NilCoalesceExpr) *types.Type {
	lt := c.checkExpr(n.Left)
	rt := c.checkExpr(n.Right)
	inner, ok := lt.IsNullable()
	if !ok {
		if lt.Tag != types.Any {
			c.errorf(n.Left.Span(), diag.ErrBadNilCoalesce, "'??' left side must be T | nil, got %s", lt)
		}
		return rt
	}
	if typeMismatch(inner, rt) {
		c.errorf(n.Span(), diag.ErrTypeMismatch, "'??' branches disagree: %s vs %s", inner, rt)
	}
	return inner
}

func (c *Checker) checkTry(t *ast.TryExpr) *types.Type {
	ot := c.checkExpr(t.Operand)
	if ot.Tag != types.ResultT {
		if ot.Tag != types.Any {
			c.errorf(t.Span(), diag.ErrBadResultUnwrap, "'?' requires a Result<T,E>, got %s", ot)
		}
		return types.TAny
	}
	return ot.Ok
}

func (c *Checker) checkCall(call *ast.CallExpr) *types.Type {
	if fp, ok := call.Callee.(*ast.FieldPath); ok && token.IsReservedModuleName(fp.Root.Name) && len(fp.Fields) == 1 {
		return c.checkStdlibCall(fp.Root.Name, fp.Fields[0], call)
	}
	if id, ok := call.Callee.(*ast.Ident); ok && c.curFn != "" {
		if calleeKey, known := c.callables[id.Name]; known {
			c.callGraph[c.curFn] = append(c.callGraph[c.curFn], calleeKey)
		}
	}
	ct := c.checkExpr(call.Callee)
	if ct.Tag != types.Func {
		if ct.Tag != types.Any {
			c.errorf(call.Span(), diag.ErrNotCallable, "cannot call non-function type %s", ct)
		}
		for _, a := range call.Args {
			c.checkExpr(a)
		}
		return types.TAny
	}
	if len(call.Args) != len(ct.Params) {
		c.errorf(call.Span(), diag.ErrBadArity, "expected %d argument(s), got %d", len(ct.Params), len(call.Args))
	}
	for i, a := range call.Args {
		at := c.checkExpr(a)
		if i < len(ct.Params) && typeMismatch(ct.Params[i], at) {
			c.errorf(a.Span(), diag.ErrTypeMismatch, "argument %d: expected %s, got %s", i+1, ct.Params[i], at)
		}
	}
	return ct.Result
}

func (c *Checker) checkStdlibCall(module, fn string, call *ast.CallExpr) *types.Type {
	entry, ok := c.std.Lookup(module, fn)
	if !ok {
		c.errorf(call.Span(), diag.ErrUnknownCapabilityCall, "unknown stdlib function %s.%s", module, fn)
		for _, a := range call.Args {
			c.checkExpr(a)
		}
		return types.TAny
	}
	if entry.Capability != "" {
		c.checkCapabilityPermission(entry.Capability, call.Span())
	}
	if len(call.Args) != len(entry.Params) {
		c.errorf(call.Span(), diag.ErrBadArity, "%s.%s expects %d argument(s), got %d", module, fn, len(entry.Params), len(call.Args))
	}
	for i, a := range call.Args {
		at := c.checkExpr(a)
		if i < len(entry.Params) && typeMismatch(entry.Params[i], at) {
			c.errorf(a.Span(), diag.ErrTypeMismatch, "%s.%s argument %d: expected %s, got %s", module, fn, i+1, entry.Params[i], at)
		}
	}
	if module == "time" && fn == "now" {
		// impure but uncapability-gated host import; nothing
		// further to validate beyond arity/types already checked above.
		_ = entry
	}
	return entry.Result
}

// checkCapabilityPermission enforces the rule that capability calls must be
// permitted by a declared capability": undeclared capabilities are E400.
func (c *Checker) checkCapabilityPermission(capability string, span diag.Span) {
	if c.capsRequired[capability] || c.capsOptional[capability] {
		return
	}
	c.errorf(span, diag.ErrUnknownCapabilityCall, "capability %q is not declared as required or optional", capability)
}

func (c *Checker) checkLambda(l *ast.LambdaExpr) *types.Type {
	if len(l.Params) > 8 {
		c.errorf(l.Span(), diag.ErrStructuralLimit, "lambda has too many parameters (max 8)")
	}
	c.scopes.push(scopeLambda)
	defer c.scopes.pop()
	paramTypes := make([]*types.Type, len(l.Params))
	for i, p := range l.Params {
		c.declareParam(p)
		if p.Type != nil {
			paramTypes[i] = c.resolveTypeExpr(p.Type)
		} else {
			paramTypes[i] = types.TAny
		}
	}
	result := c.checkStmts(l.Body)
	return types.TFunc(paramTypes, result)
}

func (c *Checker) checkListLit(ll *ast.ListLit) *types.Type {
	if len(ll.Elements) == 0 {
		return types.TList(types.TAny)
	}
	elem := c.checkExpr(ll.Elements[0])
	for _, e := range ll.Elements[1:] {
		t := c.checkExpr(e)
		if typeMismatch(elem, t) {
			c.errorf(e.Span(), diag.ErrTypeMismatch, "list elements must share one type: %s vs %s", elem, t)
		}
	}
	return types.TList(elem)
}

func (c *Checker) checkRecordLit(rl *ast.RecordLit) *types.Type {
	fields := make([]types.Field, len(rl.Fields))
	for i, f := range rl.Fields {
		fields[i] = types.Field{Name: f.Name, Type: c.checkExpr(f.Value)}
	}
	return types.TRecord(fields)
}

func (c *Checker) checkSumConstruct(s *ast.SumConstructExpr) *types.Type {
	for _, a := range s.Args {
		c.checkExpr(a)
	}
	switch s.Variant {
	case "Ok":
		var ok *types.Type = types.TAny
		if len(s.Args) == 1 {
			ok = c.checkExpr(s.Args[0])
		}
		return types.TResult(ok, types.TAny)
	case "Err":
		var errT *types.Type = types.TAny
		if len(s.Args) == 1 {
			errT = c.checkExpr(s.Args[0])
		}
		return types.TResult(types.TAny, errT)
	}
	owner, variant, ok := c.types.VariantOwner(s.Variant)
	if !ok {
		c.errorf(s.Span(), diag.ErrUnknownType, "unknown sum variant %q", s.Variant)
		return types.TAny
	}
	if len(s.Args) != len(variant.Fields) {
		c.errorf(s.Span(), diag.ErrBadArity, "variant %s.%s expects %d field(s), got %d", owner.Name, s.Variant, len(variant.Fields), len(s.Args))
	}
	for i, a := range s.Args {
		at := c.checkExpr(a)
		if i < len(variant.Fields) && typeMismatch(variant.Fields[i].Type, at) {
			c.errorf(a.Span(), diag.ErrTypeMismatch, "variant %s field %d: expected %s, got %s", s.Variant, i+1, variant.Fields[i].Type, at)
		}
	}
	return types.TNamed(owner.Name)
}

func (c *Checker) checkComponent(ce *ast.ComponentExpr) *types.Type {
	if !knownComponents[ce.Name] {
		c.errorf(ce.Span(), diag.ErrUnknownComponent, "unknown UI component %q", ce.Name)
	}
	for _, p := range ce.Props {
		c.checkProp(p)
	}
	for _, ch := range ce.Children {
		c.checkUINode(ch)
	}
	return types.TSurface
}

// checkProp resolves a prop whose value is a bare identifier naming a
// declared action to an action reference rather than evaluating it as a
// plain value expression.
func (c *Checker) checkProp(p *ast.ComponentProp) {
	if id, ok := p.Value.(*ast.Ident); ok {
		if c.actions[id.Name] {
			return
		}
	}
	c.checkExpr(p.Value)
}

func (c *Checker) checkUINode(n ast.UINode) {
	switch t := n.(type) {
	case *ast.UIComponent:
		c.checkExpr(t.Component)
	case *ast.UIIf:
		ct := c.checkExpr(t.Cond)
		if typeMismatch(types.TBool, ct) {
			c.errorf(t.Cond.Span(), diag.ErrBadOperandType, "UI 'if' condition must be bool, got %s", ct)
		}
		for _, n := range t.Then {
			c.checkUINode(n)
		}
		for _, n := range t.Else {
			c.checkUINode(n)
		}
	case *ast.UIFor:
		it := c.checkExpr(t.Iter)
		c.scopes.push(scopeBlock)
		if it.Tag == types.List {
			c.scopes.Declare(t.Item, it.Elem)
		} else {
			c.scopes.Declare(t.Item, types.TAny)
		}
		if t.Index != "" {
			c.scopes.Declare(t.Index, types.TNumber)
		}
		for _, n := range t.Body {
			c.checkUINode(n)
		}
		c.scopes.pop()
	}
}

// knownComponents is the closed built-in UI component vocabulary;
// anything else is E402.
var knownComponents = map[string]bool{
	"Text": true, "Button": true, "Column": true, "Row": true, "Image": true,
	"Input": true, "Spacer": true, "Container": true, "Stack": true,
	"Checkbox": true, "Slider": true, "List": true, "Scroll": true,
}
