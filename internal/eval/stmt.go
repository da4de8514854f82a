package eval

import (
	"pepl/internal/ast"
	"pepl/internal/value"
)

// Flow signals how a statement finished.
type Flow int

const (
	FlowNormal Flow = iota
	FlowReturn
)

// execBlock runs stmts in order and returns the trailing value: either the
// value of the last statement (used by lambdas, views, and match arms as
// an implicit result) or the argument to an explicit `return`.
func (e *Evaluator) execBlock(stmts []ast.Stmt, env *Env) (value.Value, Flow) {
	var last value.Value = value.Nil{}
	for _, s := range stmts {
		v, fl := e.execStmt(s, env)
		if fl == FlowReturn {
			return v, FlowReturn
		}
		last = v
	}
	return last, FlowNormal
}

func (e *Evaluator) execStmt(s ast.Stmt, env *Env) (value.Value, Flow) {
	switch t := s.(type) {
	case *ast.LetStmt:
		v := e.evalExpr(t.Value, env)
		if !t.Discard {
			env.Define(t.Name, v)
		}
		return value.Nil{}, FlowNormal
	case *ast.SetStmt:
		e.execSet(t, env)
		return value.Nil{}, FlowNormal
	case *ast.ExprStmt:
		return e.evalExpr(t.Expr, env), FlowNormal
	case *ast.ReturnStmt:
		if t.Value == nil {
			return value.Nil{}, FlowReturn
		}
		return e.evalExpr(t.Value, env), FlowReturn
	case *ast.AssertStmt:
		e.execAssert(t, env)
		return value.Nil{}, FlowNormal
	case *ast.IfStmt:
		return e.execIf(t, env)
	case *ast.ForStmt:
		return e.execFor(t, env)
	case *ast.MatchStmt:
		e.evalMatch(t.Match, env)
		return value.Nil{}, FlowNormal
	}
	return value.Nil{}, FlowNormal
}

// execSet applies `set a.b.c = value` as an immutable record-clone chain
// rooted at a state field, or replaces the
// whole field when Target has no nested Fields.
func (e *Evaluator) execSet(s *ast.SetStmt, env *Env) {
	v := e.evalExpr(s.Value, env)
	root := s.Target.Root.Name
	if len(s.Target.Fields) == 0 {
		e.state = e.state.With(root, v)
		return
	}
	newRoot := withPath(e.state.Get(root), s.Target.Fields, v)
	e.state = e.state.With(root, newRoot)
}

// withPath rebuilds a record chain so that fields[len(fields)-1] within
// cur (following fields[:len(fields)-1]) becomes v, cloning every record
// along the path.
func withPath(cur value.Value, fields []string, v value.Value) value.Value {
	if len(fields) == 0 {
		return v
	}
	rec, ok := cur.(*value.Record)
	if !ok {
		raise(trapNilAccess, "set target %q is not a record", fields[0])
	}
	child := withPath(rec.Get(fields[0]), fields[1:], v)
	return rec.With(fields[0], child)
}

func (e *Evaluator) execAssert(a *ast.AssertStmt, env *Env) {
	cond, _ := e.evalExpr(a.Cond, env).(value.Bool)
	if bool(cond) {
		return
	}
	msg := "assertion failed"
	if a.Message != nil {
		msg = value.ToDisplayString(e.evalExpr(a.Message, env))
	}
	raise(trapAssertionFailed, "%s", msg)
}

func (e *Evaluator) execIf(s *ast.IfStmt, env *Env) (value.Value, Flow) {
	cond, _ := e.evalExpr(s.Cond, env).(value.Bool)
	branch := s.Then
	if !bool(cond) {
		branch = s.Else
	}
	return e.execBlock(branch, NewEnv(env))
}

func (e *Evaluator) execFor(s *ast.ForStmt, env *Env) (value.Value, Flow) {
	iterVal := e.evalExpr(s.Iter, env)
	list, ok := iterVal.(*value.List)
	if !ok {
		raise(trapNilAccess, "for-loop iterates over a non-list value")
	}
	var last value.Value = value.Nil{}
	for i, item := range list.Elems {
		e.chargeGas(1)
		iterEnv := NewEnv(env)
		iterEnv.Define(s.Item, item)
		if s.Index != "" {
			iterEnv.Define(s.Index, value.Number(i))
		}
		v, fl := e.execBlock(s.Body, iterEnv)
		if fl == FlowReturn {
			return v, FlowReturn
		}
		last = v
	}
	return last, FlowNormal
}
