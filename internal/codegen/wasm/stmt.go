package wasm

import "pepl/internal/ast"

// newFnCtx opens the wrapper block every compiled function body runs
// inside, so a `return` statement anywhere in the body (however deeply
// nested inside if/for/match) can jump straight to the function's
// trailing-value computation with one `br`, instead of threading a Go
// "did we return" flag through every nested compiler call the way
// eval.Flow does for the tree-walker.
func newFnCtx(g *Generator, f *funcBuilder, scope *genScope) *fnCtx {
	f.beginBlock()
	return &fnCtx{
		g:              g,
		f:              f,
		scope:          scope,
		retBlockDepth:  f.labelDepth,
		retLocal:       f.newLocal(valI32),
	}
}

// finishFnBody stores result (the body's natural trailing value) into
// the return-value local, closes the wrapper block newFnCtx opened —
// which is also exactly where every `return` statement's `br` lands —
// and returns that local, now holding whichever of the two produced the
// function's result.
func finishFnBody(fc *fnCtx, result uint32) uint32 {
	f := fc.f
	f.localGet(result)
	f.localSet(fc.retLocal)
	f.end()
	return fc.retLocal
}

// compileBlockTrailing lowers a statement list, leaving a local holding
// the value of the last statement — mirroring eval.execBlock, which
// callers use as a lambda/view/if/for/match-arm's implicit result.
func compileBlockTrailing(fc *fnCtx, stmts []ast.Stmt) uint32 {
	g, f := fc.g, fc.f
	result := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(result)
	for _, s := range stmts {
		g.sources.mark(s.Span())
		v := compileStmt(fc, s)
		f.localGet(v)
		f.localSet(result)
	}
	return result
}

func nilLocal(fc *fnCtx) uint32 {
	f := fc.f
	v := f.newLocal(valI32)
	f.i32Const(fc.g.consts.nilValue())
	f.localSet(v)
	return v
}

func compileStmt(fc *fnCtx, s ast.Stmt) uint32 {
	g, f := fc.g, fc.f
	switch t := s.(type) {
	case *ast.LetStmt:
		compileExpr(fc, t.Value)
		v := f.newLocal(valI32)
		f.localSet(v)
		if !t.Discard {
			fc.scope.define(t.Name, v)
		}
		return nilLocal(fc)
	case *ast.SetStmt:
		compileSet(fc, t)
		return nilLocal(fc)
	case *ast.ExprStmt:
		compileExpr(fc, t.Expr)
		v := f.newLocal(valI32)
		f.localSet(v)
		return v
	case *ast.ReturnStmt:
		if t.Value != nil {
			compileExpr(fc, t.Value)
		} else {
			f.i32Const(g.consts.nilValue())
		}
		f.localSet(fc.retLocal)
		f.br(uint32(f.labelDepth - fc.retBlockDepth))
		return fc.retLocal
	case *ast.AssertStmt:
		compileAssert(fc, t)
		return nilLocal(fc)
	case *ast.IfStmt:
		return compileIfStmt(fc, t)
	case *ast.ForStmt:
		return compileForStmt(fc, t)
	case *ast.MatchStmt:
		compileMatch(fc, t.Match)
		f.emit(opDrop)
		return nilLocal(fc)
	}
	return nilLocal(fc)
}

// compileSet mirrors eval.execSet/withPath: `set a = v` replaces the
// whole state field; `set a.b.c = v` clones a chain of records so that
// only the path from the state field root down to c is reallocated.
func compileSet(fc *fnCtx, s *ast.SetStmt) {
	g, f := fc.g, fc.f
	compileExpr(fc, s.Value)
	val := f.newLocal(valI32)
	f.localSet(val)
	root := s.Target.Root.Name
	rootNameID := g.names.intern(root)

	if len(s.Target.Fields) == 0 {
		f.globalGet(g.rt.globalRoot)
		f.i32Const(rootNameID)
		f.localGet(val)
		f.call(g.rt.recordWith)
		f.globalSet(g.rt.globalRoot)
		return
	}

	rootVal := f.newLocal(valI32)
	f.globalGet(g.rt.globalRoot)
	f.i32Const(rootNameID)
	f.call(g.rt.recordGet)
	f.localSet(rootVal)
	newRootVal := compileWithPath(fc, rootVal, s.Target.Fields, val)

	f.globalGet(g.rt.globalRoot)
	f.i32Const(rootNameID)
	f.localGet(newRootVal)
	f.call(g.rt.recordWith)
	f.globalSet(g.rt.globalRoot)
}

func compileWithPath(fc *fnCtx, cur uint32, fields []string, val uint32) uint32 {
	g, f := fc.g, fc.f
	if len(fields) == 0 {
		return val
	}
	f.localGet(cur)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagRecord))
	f.emit(opI32Ne)
	f.beginIf()
	f.trapCall(g.abi, trapNilAccess)
	f.end()

	fieldID := g.names.intern(fields[0])
	child := f.newLocal(valI32)
	f.localGet(cur)
	f.i32Const(fieldID)
	f.call(g.rt.recordGet)
	f.localSet(child)
	newChild := compileWithPath(fc, child, fields[1:], val)

	result := f.newLocal(valI32)
	f.localGet(cur)
	f.i32Const(fieldID)
	f.localGet(newChild)
	f.call(g.rt.recordWith)
	f.localSet(result)
	return result
}

// compileAssert traps assertion_failed on a false condition. The trap
// ABI carries only a numeric code (abi.go's env.trap takes one i32), so
// unlike the reference evaluator an assert message never reaches the
// host beyond that fixed code — an accepted limit of the WASM trap
// channel, not something codegen can work around.
func compileAssert(fc *fnCtx, a *ast.AssertStmt) {
	g, f := fc.g, fc.f
	compileExpr(fc, a.Cond)
	f.call(g.rt.unboxBool)
	f.emit(opI32Eqz)
	f.beginIf()
	f.trapCall(g.abi, trapAssertionFailed)
	f.end()
}

func compileIfStmt(fc *fnCtx, s *ast.IfStmt) uint32 {
	g, f := fc.g, fc.f
	compileExpr(fc, s.Cond)
	f.call(g.rt.unboxBool)
	result := f.newLocal(valI32)
	f.beginIf()
	thenFc := withScope(fc, newGenScope(fc.scope))
	v := compileBlockTrailing(thenFc, s.Then)
	f.localGet(v)
	f.localSet(result)
	f.beginElse()
	elseFc := withScope(fc, newGenScope(fc.scope))
	v2 := compileBlockTrailing(elseFc, s.Else)
	f.localGet(v2)
	f.localSet(result)
	f.end()
	return result
}

// compileForStmt iterates a compiled List, charging one unit of gas per
// element the way eval.execFor does, and yields the last iteration's
// trailing value (or nil for an empty list) as the loop's own value.
func compileForStmt(fc *fnCtx, s *ast.ForStmt) uint32 {
	g, f := fc.g, fc.f
	compileExpr(fc, s.Iter)
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

	result := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(result)
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
	iterScope.define(s.Item, item)
	if s.Index != "" {
		idxF64 := f.newLocal(valF64)
		f.localGet(i)
		f.emit(opF64ConvertI32S)
		f.localSet(idxF64)
		idxBoxed := f.newLocal(valI32)
		f.localGet(idxF64)
		f.call(g.rt.boxNumber)
		f.localSet(idxBoxed)
		iterScope.define(s.Index, idxBoxed)
	}
	iterFc := withScope(fc, iterScope)
	v := compileBlockTrailing(iterFc, s.Body)
	f.localGet(v)
	f.localSet(result)

	incrementLocal(f, i)
	f.br(0)
	f.end() // loop
	f.end() // block
	return result
}
