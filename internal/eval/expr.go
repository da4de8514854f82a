package eval

import (
	"math"

	"pepl/internal/ast"
	"pepl/internal/stdlib"
	"pepl/internal/token"
	"pepl/internal/value"
)

// evalExpr evaluates e in env (env may be nil for state-initializer and
// derived-field expressions, which never reference locals). Traps unwind
// via panic(*stdlib.TrapError), caught at the nearest transaction, view,
// or test boundary.
func (e *Evaluator) evalExpr(expr ast.Expr, env *Env) value.Value {
	switch t := expr.(type) {
	case *ast.NumberLit:
		return value.Number(t.Value)
	case *ast.StringLit:
		return value.Str(t.Value)
	case *ast.InterpolatedString:
		return e.evalInterpolatedString(t, env)
	case *ast.BoolLit:
		return value.Bool(t.Value)
	case *ast.NilLit:
		return value.Nil{}
	case *ast.Ident:
		return e.evalIdentWithEnv(t.Name, env)
	case *ast.FieldPath:
		return e.evalFieldPath(t, env)
	case *ast.IndexExpr:
		return e.evalIndex(t, env)
	case *ast.UnaryExpr:
		return e.evalUnary(t, env)
	case *ast.BinaryExpr:
		return e.evalBinary(t, env)
	case *ast.LogicalExpr:
		return e.evalLogical(t, env)
	case *ast.NilCoalesceExpr:
		return e.evalNilCoalesce(t, env)
	case *ast.TryExpr:
		return e.evalTry(t, env)
	case *ast.CallExpr:
		return e.evalCall(t, env)
	case *ast.LambdaExpr:
		return &value.Function{Name: "<lambda>", Params: paramNames(t.Params), Body: t, Env: env}
	case *ast.ListLit:
		elems := make([]value.Value, len(t.Elements))
		for i, el := range t.Elements {
			elems[i] = e.evalExpr(el, env)
		}
		return value.NewList(elems)
	case *ast.RecordLit:
		names := make([]string, len(t.Fields))
		vals := make([]value.Value, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name
			vals[i] = e.evalExpr(f.Value, env)
		}
		return value.NewRecord(names, vals)
	case *ast.SumConstructExpr:
		return e.evalSumConstruct(t, env)
	case *ast.MatchExpr:
		return e.evalMatch(t, env)
	case *ast.ComponentExpr:
		return e.evalComponent(t, env)
	case *ast.ActionRef:
		return value.ActionSentinel{Name: t.Name}
	}
	return value.Nil{}
}

func paramNames(params []*ast.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}

func (e *Evaluator) evalInterpolatedString(s *ast.InterpolatedString, env *Env) value.Value {
	out := ""
	for _, part := range s.Parts {
		if lit, ok := part.(*ast.StringLit); ok {
			out += lit.Value
			continue
		}
		out += value.ToDisplayString(e.evalExpr(part, env))
	}
	return value.Str(out)
}

// lookupIdent resolves a bare name against state, derived, then declared
// credentials: PEPL has no lexical env entry for these, they
// live directly on the Evaluator so a `set` inside an action is visible
// to the very next read without re-threading an environment snapshot.
func (e *Evaluator) lookupIdent(name string) value.Value {
	if e.state != nil {
		if _, ok := e.state.Values[name]; ok {
			return e.state.Get(name)
		}
	}
	if e.derived != nil {
		if _, ok := e.derived.Values[name]; ok {
			return e.derived.Get(name)
		}
	}
	if e.credentialNames[name] {
		return value.Str(e.credentials[name])
	}
	return value.Nil{}
}

// evalIdentWithEnv resolves a name that may be a local (param, let, lambda
// capture, loop variable) before falling back to state/derived/credential.
func (e *Evaluator) evalIdentWithEnv(name string, env *Env) value.Value {
	if env != nil {
		if v, ok := env.Get(name); ok {
			return v
		}
	}
	return e.lookupIdent(name)
}

func (e *Evaluator) evalFieldPath(fp *ast.FieldPath, env *Env) value.Value {
	cur := e.evalIdentWithEnv(fp.Root.Name, env)
	for _, name := range fp.Fields {
		if _, ok := cur.(value.Nil); ok {
			raise(trapNilAccess, "field access %q on nil", name)
		}
		rec, ok := cur.(*value.Record)
		if !ok {
			raise(trapNilAccess, "field access %q on non-record value", name)
		}
		cur = rec.Get(name)
	}
	return cur
}

func (e *Evaluator) evalIndex(ix *ast.IndexExpr, env *Env) value.Value {
	obj := e.evalExpr(ix.Object, env)
	idx := e.evalExpr(ix.Index, env)
	list, ok := obj.(*value.List)
	if !ok {
		raise(trapNilAccess, "index into non-list value")
	}
	n, _ := idx.(value.Number)
	i := int(n)
	if i < 0 || i >= len(list.Elems) {
		raise(trapNilAccess, "list index %d out of range (len %d)", i, len(list.Elems))
	}
	return list.Elems[i]
}

func (e *Evaluator) evalUnary(u *ast.UnaryExpr, env *Env) value.Value {
	v := e.evalExpr(u.Operand, env)
	if u.Op == "not" {
		b, _ := v.(value.Bool)
		return value.Bool(!bool(b))
	}
	n, _ := v.(value.Number)
	return value.Number(-float64(n))
}

func (e *Evaluator) evalBinary(b *ast.BinaryExpr, env *Env) value.Value {
	lv := e.evalExpr(b.Left, env)
	rv := e.evalExpr(b.Right, env)
	if b.Op == "==" {
		return value.Bool(value.Equal(lv, rv))
	}
	if b.Op == "!=" {
		return value.Bool(!value.Equal(lv, rv))
	}
	ln, _ := lv.(value.Number)
	rn, _ := rv.(value.Number)
	l, r := float64(ln), float64(rn)
	switch b.Op {
	case "<":
		return value.Bool(l < r)
	case ">":
		return value.Bool(l > r)
	case "<=":
		return value.Bool(l <= r)
	case ">=":
		return value.Bool(l >= r)
	case "+":
		return checkedNumber(l + r)
	case "-":
		return checkedNumber(l - r)
	case "*":
		return checkedNumber(l * r)
	case "/":
		if r == 0 {
			raise(trapDivByZero, "division by zero")
		}
		return checkedNumber(l / r)
	case "%":
		if r == 0 {
			raise(trapDivByZero, "modulo by zero")
		}
		return checkedNumber(math.Mod(l, r))
	}
	return value.Nil{}
}

const trapDivByZero = "division_by_zero"
const trapNaN = "nan_result"

// checkedNumber traps any arithmetic result that lands on NaN; +/-Inf is not itself trapped, only NaN.
func checkedNumber(f float64) value.Value {
	if math.IsNaN(f) {
		raise(trapNaN, "arithmetic produced NaN")
	}
	return value.Number(f)
}

func (e *Evaluator) evalLogical(l *ast.LogicalExpr, env *Env) value.Value {
	lv, _ := e.evalExpr(l.Left, env).(value.Bool)
	if l.Op == "and" {
		if !bool(lv) {
			return value.Bool(false)
		}
		rv, _ := e.evalExpr(l.Right, env).(value.Bool)
		return value.Bool(bool(rv))
	}
	if bool(lv) {
		return value.Bool(true)
	}
	rv, _ := e.evalExpr(l.Right, env).(value.Bool)
	return value.Bool(bool(rv))
}

func (e *Evaluator) evalNilCoalesce(n *ast.NilCoalesceExpr, env *Env) value.Value {
	lv := e.evalExpr(n.Left, env)
	if _, isNil := lv.(value.Nil); isNil {
		return e.evalExpr(n.Right, env)
	}
	return lv
}

func (e *Evaluator) evalTry(t *ast.TryExpr, env *Env) value.Value {
	v := e.evalExpr(t.Operand, env)
	res, ok := v.(*value.Result)
	if !ok {
		raise(trapResultUnwrap, "'?' applied to a non-Result value")
	}
	if res.IsErr {
		raise(trapResultUnwrap, "%s", value.ToDisplayString(res.Err))
	}
	return res.Ok
}

func (e *Evaluator) evalSumConstruct(s *ast.SumConstructExpr, env *Env) value.Value {
	switch s.Variant {
	case "Ok":
		var v value.Value = value.Nil{}
		if len(s.Args) == 1 {
			v = e.evalExpr(s.Args[0], env)
		}
		return value.OkResult(v)
	case "Err":
		var v value.Value = value.Nil{}
		if len(s.Args) == 1 {
			v = e.evalExpr(s.Args[0], env)
		}
		return value.ErrResult(v)
	}
	_, variant, ok := e.types.VariantOwner(s.Variant)
	if !ok || len(variant.Fields) == 0 {
		return &value.SumVariant{Name: s.Variant}
	}
	names := make([]string, len(variant.Fields))
	vals := make([]value.Value, len(variant.Fields))
	for i, f := range variant.Fields {
		names[i] = f.Name
		if i < len(s.Args) {
			vals[i] = e.evalExpr(s.Args[i], env)
		} else {
			vals[i] = value.Nil{}
		}
	}
	return &value.SumVariant{Name: s.Variant, Payload: value.NewRecord(names, vals)}
}

func (e *Evaluator) evalMatch(m *ast.MatchExpr, env *Env) value.Value {
	scrutinee := e.evalExpr(m.Scrutinee, env)
	for _, arm := range m.Arms {
		binds, ok := e.matchPattern(arm.Pattern, scrutinee)
		if !ok {
			continue
		}
		armEnv := NewEnv(env)
		for name, v := range binds {
			armEnv.Define(name, v)
		}
		if arm.Guard != nil {
			g, _ := e.evalExpr(arm.Guard, armEnv).(value.Bool)
			if !bool(g) {
				continue
			}
		}
		v, _ := e.execBlock(arm.Body, armEnv)
		return v
	}
	// Unreachable if the checker's exhaustiveness pass (E210) accepted the
	// program; kept as a defined trap rather than a Go panic so a bug in
	// the checker fails loudly instead of crashing the host process.
	raise(trapAssertionFailed, "match not exhaustive at runtime")
	return value.Nil{}
}

func (e *Evaluator) evalCall(call *ast.CallExpr, env *Env) value.Value {
	if fp, ok := call.Callee.(*ast.FieldPath); ok && token.IsReservedModuleName(fp.Root.Name) && len(fp.Fields) == 1 {
		args := make([]value.Value, len(call.Args))
		for i, a := range call.Args {
			args[i] = e.evalExpr(a, env)
		}
		return e.evalStdlibCall(fp.Root.Name, fp.Fields[0], args)
	}
	if id, ok := call.Callee.(*ast.Ident); ok {
		if a, ok := e.actionByName[id.Name]; ok {
			return e.invokeInline(a.Params, a.Body, e.evalArgs(call.Args, env))
		}
		if v, ok := e.viewByName[id.Name]; ok {
			return e.invokeInline(v.Params, v.Body, e.evalArgs(call.Args, env))
		}
	}
	fnVal := e.evalExpr(call.Callee, env)
	fn, ok := fnVal.(*value.Function)
	if !ok {
		raise(trapNilAccess, "call target is not a function")
	}
	return e.applyFunction(fn, e.evalArgs(call.Args, env))
}

func (e *Evaluator) evalArgs(args []ast.Expr, env *Env) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = e.evalExpr(a, env)
	}
	return out
}

// invokeInline runs a named action/view body as an ordinary call. The
// call graph allows non-recursive action/view composition: it shares
// the caller's in-flight state and gas budget rather than opening its
// own commit/rollback transaction, so the *outermost* DispatchAction
// remains the sole unit of atomicity.
func (e *Evaluator) invokeInline(params []*ast.Param, body []ast.Stmt, args []value.Value) value.Value {
	e.chargeGas(1)
	env := NewEnv(nil)
	for i, p := range params {
		if i < len(args) {
			env.Define(p.Name, args[i])
		}
	}
	v, _ := e.execBlock(body, env)
	return v
}

// applyFunction calls a lambda closure.
func (e *Evaluator) applyFunction(fn *value.Function, args []value.Value) value.Value {
	lam, ok := fn.Body.(*ast.LambdaExpr)
	if !ok {
		raise(trapNilAccess, "malformed function value")
	}
	captured, _ := fn.Env.(*Env)
	e.chargeGas(1)
	env := NewEnv(captured)
	for i, p := range lam.Params {
		if i < len(args) {
			env.Define(p.Name, args[i])
		}
	}
	v, _ := e.execBlock(lam.Body, env)
	return v
}

// evalStdlibCall dispatches a module.function(...) call.
func (e *Evaluator) evalStdlibCall(module, fn string, args []value.Value) value.Value {
	entry, ok := e.std.Lookup(module, fn)
	if !ok {
		raise(trapNilAccess, "unknown stdlib function %s.%s", module, fn)
	}
	if module == "list" {
		switch fn {
		case "map", "filter", "reduce", "some", "all":
			return e.evalListHOF(fn, args)
		}
	}
	if module == "time" && fn == "now" {
		return value.Number(e.clock())
	}
	if entry.Capability != "" {
		return e.evalCapabilityCall(module, fn, args)
	}
	if entry.Impl == nil {
		raise(trapNilAccess, "%s.%s has no reference implementation", module, fn)
	}
	v, err := entry.Impl(args)
	if err != nil {
		if te, ok := err.(*stdlib.TrapError); ok {
			panic(te)
		}
		raise(trapNilAccess, "%s", err.Error())
	}
	return v
}

// evalListHOF implements the five stdlib list functions that take a
// function argument by calling back into applyFunction.
func (e *Evaluator) evalListHOF(fn string, args []value.Value) value.Value {
	list, _ := args[0].(*value.List)
	if list == nil {
		list = &value.List{}
	}
	switch fn {
	case "map":
		f, _ := args[1].(*value.Function)
		out := make([]value.Value, len(list.Elems))
		for i, el := range list.Elems {
			out[i] = e.applyFunction(f, []value.Value{el})
		}
		return value.NewList(out)
	case "filter":
		f, _ := args[1].(*value.Function)
		var out []value.Value
		for _, el := range list.Elems {
			keep, _ := e.applyFunction(f, []value.Value{el}).(value.Bool)
			if bool(keep) {
				out = append(out, el)
			}
		}
		return value.NewList(out)
	case "reduce":
		f, _ := args[1].(*value.Function)
		acc := args[2]
		for _, el := range list.Elems {
			acc = e.applyFunction(f, []value.Value{acc, el})
		}
		return acc
	case "some":
		f, _ := args[1].(*value.Function)
		for _, el := range list.Elems {
			ok, _ := e.applyFunction(f, []value.Value{el}).(value.Bool)
			if bool(ok) {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	case "all":
		f, _ := args[1].(*value.Function)
		for _, el := range list.Elems {
			ok, _ := e.applyFunction(f, []value.Value{el}).(value.Bool)
			if !bool(ok) {
				return value.Bool(false)
			}
		}
		return value.Bool(true)
	}
	return value.Nil{}
}
