package wasm

import "pepl/internal/ast"

// Field names used to encode a rendered Surface tree. layout.go's tag byte space has no slot reserved
// for a dedicated Surface/SurfaceNode/ActionSentinel runtime value, so a
// UI tree is built out of the same Record/List primitives an ordinary
// PEPL value uses — exactly the shape value.Surface/value.SurfaceNode
// give it in the reference evaluator: an action serializes as a plain
// record, {"__action": name}.
const (
	surfaceComponentField = "component"
	surfacePropsField     = "props"
	surfaceChildrenField  = "children"
	actionSentinelField   = "__action"
)

// compileComponent lowers a `Name { props } { children }` UI literal to
// a Surface-tree record. The checker's
// checkProp only skips type-checking a prop whose value is a bare
// identifier naming a declared action — it does not rewrite the AST
// node — so codegen has to re-derive action-ness itself the same way
// eval.evalComponent's own doc comment describes, rather than expecting
// an *ast.ActionRef here.
func compileComponent(fc *fnCtx, ce *ast.ComponentExpr) {
	g, f := fc.g, fc.f
	props := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(props)
	for _, p := range ce.Props {
		f.localGet(props)
		f.i32Const(g.names.intern(p.Name))
		if id, ok := p.Value.(*ast.Ident); ok {
			if _, isAction := g.actionFuncIdx[id.Name]; isAction {
				compileActionSentinelValue(fc, id.Name)
			} else {
				compileExpr(fc, p.Value)
			}
		} else {
			compileExpr(fc, p.Value)
		}
		f.call(g.rt.recordWith)
		f.localSet(props)
	}

	children := f.newLocal(valI32)
	f.i32Const(g.consts.emptyList())
	f.localSet(children)
	for _, ch := range ce.Children {
		compileUINode(fc, ch, children)
	}

	node := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(node)
	f.localGet(node)
	f.i32Const(g.names.intern(surfaceComponentField))
	f.i32Const(g.consts.str(ce.Name))
	f.call(g.rt.recordWith)
	f.localSet(node)
	f.localGet(node)
	f.i32Const(g.names.intern(surfacePropsField))
	f.localGet(props)
	f.call(g.rt.recordWith)
	f.localSet(node)
	f.localGet(node)
	f.i32Const(g.names.intern(surfaceChildrenField))
	f.localGet(children)
	f.call(g.rt.recordWith)
	f.localSet(node)
	f.localGet(node)
}

// compileActionSentinelValue builds the one-field {__action: name} record
// a UI prop resolving to a declared action serializes to. Shared by
// compileComponent's prop loop and expr.go's compileActionRef, which
// covers the same case for the (never actually produced, see
// ast.ActionRef's doc comment) pre-resolved AST node.
func compileActionSentinelValue(fc *fnCtx, name string) {
	g, f := fc.g, fc.f
	rec := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(rec)
	f.localGet(rec)
	f.i32Const(g.names.intern(actionSentinelField))
	f.i32Const(g.consts.str(name))
	f.call(g.rt.recordWith)
	f.localSet(rec)
	f.localGet(rec)
}

// compileUINode expands one UI child into zero or more surface nodes
// appended onto childrenLocal: a plain component
// contributes exactly one; `if`/`for` contribute the flattened result of
// their live branch/iterations. childrenLocal is a WASM local slot, not
// a Go value — writes made to it inside a nested if/loop are visible to
// the caller once control returns, the same accumulator pattern used for
// list literals and argument lists elsewhere in this package.
func compileUINode(fc *fnCtx, n ast.UINode, childrenLocal uint32) {
	g, f := fc.g, fc.f
	switch t := n.(type) {
	case *ast.UIComponent:
		compileComponent(fc, t.Component)
		child := f.newLocal(valI32)
		f.localSet(child)
		f.localGet(childrenLocal)
		f.localGet(child)
		f.call(g.rt.listAppend)
		f.localSet(childrenLocal)

	case *ast.UIIf:
		compileExpr(fc, t.Cond)
		f.call(g.rt.unboxBool)
		f.beginIf()
		for _, c := range t.Then {
			compileUINode(fc, c, childrenLocal)
		}
		f.beginElse()
		for _, c := range t.Else {
			compileUINode(fc, c, childrenLocal)
		}
		f.end()

	case *ast.UIFor:
		compileExpr(fc, t.Iter)
		list := f.newLocal(valI32)
		f.localSet(list)
		f.localGet(list)
		f.i32Load(0)
		f.i32Const(0xFF)
		f.emit(opI32And)
		f.i32Const(int32(tagList))
		f.emit(opI32Ne)
		f.beginIf()
		f.trapCall(g.abi, trapNilAccess)
		f.end()

		i := f.newLocal(valI32)
		f.i32Const(0)
		f.localSet(i)
		f.beginBlock()
		f.beginLoop()
		f.localGet(i)
		f.localGet(list)
		f.call(g.rt.listLen)
		f.emit(opI32GeS)
		f.brIf(1)

		g.chargeGas(f, 1)
		item := f.newLocal(valI32)
		f.localGet(list)
		f.localGet(i)
		f.call(g.rt.listGet)
		f.localSet(item)

		iterScope := newGenScope(fc.scope)
		iterScope.define(t.Item, item)
		if t.Index != "" {
			idxF64 := f.newLocal(valF64)
			f.localGet(i)
			f.emit(opF64ConvertI32S)
			f.localSet(idxF64)
			idxBoxed := f.newLocal(valI32)
			f.localGet(idxF64)
			f.call(g.rt.boxNumber)
			f.localSet(idxBoxed)
			iterScope.define(t.Index, idxBoxed)
		}
		iterFc := withScope(fc, iterScope)
		for _, c := range t.Body {
			compileUINode(iterFc, c, childrenLocal)
		}

		incrementLocal(f, i)
		f.br(0)
		f.end() // loop
		f.end() // block
	}
}
