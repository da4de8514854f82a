package eval

import (
	"fmt"

	"pepl/internal/ast"
	"pepl/internal/stdlib"
	"pepl/internal/value"
)

// evalComponent builds a *value.Surface for one `Name { props } { children }`
// node. A bare-identifier
// prop naming a declared action becomes a value.ActionSentinel instead of
// an ordinary value lookup, mirroring the checker's checkProp (which the
// checker never rewrites into an *ast.ActionRef node, so this package
// re-derives action-ness itself from the space's declared actions).
func (e *Evaluator) evalComponent(ce *ast.ComponentExpr, env *Env) value.Value {
	props := map[string]value.Value{}
	order := make([]string, len(ce.Props))
	for i, p := range ce.Props {
		order[i] = p.Name
		if id, ok := p.Value.(*ast.Ident); ok {
			if _, isAction := e.actionByName[id.Name]; isAction {
				props[p.Name] = value.ActionSentinel{Name: id.Name}
				continue
			}
		}
		props[p.Name] = e.evalExpr(p.Value, env)
	}
	var children []*value.SurfaceNode
	for _, ch := range ce.Children {
		children = append(children, e.evalUINode(ch, env)...)
	}
	return &value.Surface{Root: &value.SurfaceNode{
		Component: ce.Name,
		Props:     props,
		PropOrder: order,
		Children:  children,
	}}
}

// evalUINode expands one UI child into zero or more surface nodes: a plain
// component contributes exactly one, `if`/`for` contribute the flattened
// result of their live branch/iterations.
func (e *Evaluator) evalUINode(n ast.UINode, env *Env) []*value.SurfaceNode {
	switch t := n.(type) {
	case *ast.UIComponent:
		surf := e.evalComponent(t.Component, env).(*value.Surface)
		return []*value.SurfaceNode{surf.Root}
	case *ast.UIIf:
		cond, _ := e.evalExpr(t.Cond, env).(value.Bool)
		branch := t.Then
		if !bool(cond) {
			branch = t.Else
		}
		var out []*value.SurfaceNode
		for _, c := range branch {
			out = append(out, e.evalUINode(c, env)...)
		}
		return out
	case *ast.UIFor:
		iterVal := e.evalExpr(t.Iter, env)
		list, ok := iterVal.(*value.List)
		if !ok {
			raise(trapNilAccess, "UI for-loop iterates over a non-list value")
		}
		var out []*value.SurfaceNode
		for i, item := range list.Elems {
			e.chargeGas(1)
			iterEnv := NewEnv(env)
			iterEnv.Define(t.Item, item)
			if t.Index != "" {
				iterEnv.Define(t.Index, value.Number(i))
			}
			for _, c := range t.Body {
				out = append(out, e.evalUINode(c, iterEnv)...)
			}
		}
		return out
	}
	return nil
}

// RenderView invokes a declared view by name and returns the resulting
// Surface tree. Views never mutate state, so no
// snapshot/commit is needed here, only gas metering and trap recovery.
func (e *Evaluator) RenderView(name string, args []value.Value) (surf *value.Surface, trap *stdlib.TrapError, err error) {
	v, ok := e.viewByName[name]
	if !ok {
		return nil, nil, fmt.Errorf("pepl/eval: no such view %q", name)
	}
	defer recoverTrap(&trap)
	env := NewEnv(nil)
	for i, p := range v.Params {
		if i < len(args) {
			env.Define(p.Name, args[i])
		}
	}
	e.chargeGas(1)
	result, _ := e.execBlock(v.Body, env)
	s, ok := result.(*value.Surface)
	if !ok {
		return nil, nil, fmt.Errorf("pepl/eval: view %q did not yield a Surface", name)
	}
	return s, nil, nil
}
