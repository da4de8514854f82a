package wasm

import (
	"pepl/internal/ast"
	"pepl/internal/token"
)

var capabilityIDs = map[string]int32{
	"http":          capHTTP,
	"storage":       capStorage,
	"location":      capLocation,
	"notifications": capNotifications,
	"credentials":   capCredentials,
}

// compileCall mirrors eval.evalCall's three-way dispatch: a qualified
// stdlib/capability call, an inline action/view reference (shares the
// caller's gas and, for actions, its in-flight transaction rather than
// opening a nested one), or a general function value applied through
// call_indirect.
func compileCall(fc *fnCtx, call *ast.CallExpr) {
	g, f := fc.g, fc.f
	if fp, ok := call.Callee.(*ast.FieldPath); ok && token.IsReservedModuleName(fp.Root.Name) && len(fp.Fields) == 1 {
		compileStdlibCallSite(fc, fp.Root.Name, fp.Fields[0], call.Args)
		return
	}
	if id, ok := call.Callee.(*ast.Ident); ok {
		if idx, ok := g.actionFuncIdx[id.Name]; ok {
			for _, a := range call.Args {
				compileExpr(fc, a)
			}
			f.call(idx)
			return
		}
		if idx, ok := g.viewFuncIdx[id.Name]; ok {
			for _, a := range call.Args {
				compileExpr(fc, a)
			}
			f.call(idx)
			return
		}
	}
	compileExpr(fc, call.Callee)
	fnVal := f.newLocal(valI32)
	f.localSet(fnVal)
	argsPtr := compileArgsList(fc, call.Args)
	result := applyFunctionValue(fc, fnVal, argsPtr)
	f.localGet(result)
}

// compileArgsList folds call.Args into a boxed List via listAppend,
// leaving the built list in a local (the uniform call convention's
// second parameter).
func compileArgsList(fc *fnCtx, args []ast.Expr) uint32 {
	g, f := fc.g, fc.f
	acc := f.newLocal(valI32)
	f.i32Const(g.consts.emptyList())
	f.localSet(acc)
	for _, a := range args {
		f.localGet(acc)
		compileExpr(fc, a)
		f.call(g.rt.listAppend)
		f.localSet(acc)
	}
	return acc
}

// applyFunctionValue calls a compiled function value (a lambda, or an
// action/view passed as a callback) via call_indirect against the
// uniform `(envPtr, argsPtr) -> i32` signature every function value
// shares, so one type index serves every arity. Traps nil_access if fnValLocal is not tagFunction, mirroring
// eval.evalCall's "call target is not a function".
func applyFunctionValue(fc *fnCtx, fnValLocal, argsPtrLocal uint32) uint32 {
	g, f := fc.g, fc.f
	f.localGet(fnValLocal)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagFunction))
	f.emit(opI32Ne)
	f.beginIf()
	f.trapCall(g.abi, trapNilAccess)
	f.end()
	g.chargeGas(f, 1)

	tableSlot := f.newLocal(valI32)
	f.loadI32At(fnValLocal, 0)
	f.i32Const(16)
	f.emit(opI32ShrU)
	f.localSet(tableSlot)
	envPtr := f.newLocal(valI32)
	f.loadI32At(fnValLocal, 4)
	f.localSet(envPtr)

	result := f.newLocal(valI32)
	f.localGet(envPtr)
	f.localGet(argsPtrLocal)
	f.localGet(tableSlot)
	f.callIndirect(g.uniformTypeIdx)
	f.localSet(result)
	return result
}

// compileLambdaLiteral builds a closure value: a captured-environment
// record (every name visible at the lambda's definition site, folded
// through recordWith — the "capture everything" simplification recorded
// as an open-question resolution) plus a tagFunction header pointing at
// it and at the lambda body's function-table slot. The body itself is
// compiled once per distinct *ast.LambdaExpr node, cached in
// g.lambdaTableIdx.
func compileLambdaLiteral(fc *fnCtx, lam *ast.LambdaExpr) {
	g, f := fc.g, fc.f
	capturedNames := fc.scope.visibleSorted()
	tableSlot, ok := g.lambdaTableIdx[lam]
	if !ok {
		tableSlot = g.compileLambdaBody(lam, capturedNames)
		g.lambdaTableIdx[lam] = tableSlot
	}

	envRec := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(envRec)
	for _, name := range capturedNames {
		b, _ := fc.scope.lookup(name)
		f.localGet(envRec)
		f.i32Const(g.names.intern(name))
		if b.captured {
			f.localGet(b.envParam)
			f.i32Const(g.names.intern(name))
			f.call(g.rt.recordGet)
		} else {
			f.localGet(b.local)
		}
		f.call(g.rt.recordWith)
		f.localSet(envRec)
	}
	ptr := allocHeader(fc, tagFunction, int32(tableSlot), func() { f.localGet(envRec) })
	f.localGet(ptr)
}

// compileLambdaBody compiles the lambda into a standalone WASM function
// of the uniform (envPtr, argsPtr) -> i32 shape and places it in the
// function table, returning its table slot (not its raw function
// index; call_indirect addresses the table, not the function index
// space). Positional params are destructured out of argsPtr at entry;
// every other name resolves through the captured-environment record via
// recordGet.
func (g *Generator) compileLambdaBody(lam *ast.LambdaExpr, capturedNames []string) uint32 {
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	const envParam, argsParam = uint32(0), uint32(1)

	scope := newGenScope(nil)
	for _, name := range capturedNames {
		scope.defineCaptured(name, envParam)
	}
	for i, p := range lam.Params {
		local := f.newLocal(valI32)
		f.localGet(argsParam)
		f.i32Const(int32(i))
		f.call(g.rt.listGet)
		f.localSet(local)
		scope.define(p.Name, local)
	}

	fc := newFnCtx(g, f, scope)
	fc.envLocal = envParam
	fc.inLambda = true
	bodyResult := compileBlockTrailing(fc, lam.Body)
	result := finishFnBody(fc, bodyResult)
	f.localGet(result)

	idx := g.m.addFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}}, f.encode())
	return g.m.addTableEntry(idx)
}

// compileStdlibCallSite lowers a `module.function(args)` call. list's
// five higher-order functions are compiled as real loops with
// call_indirect callbacks (mirroring eval.evalListHOF); time.now reads
// the host's injected timestamp import directly; everything else,
// pure or capability-gated, bridges through env.host_call so the wasm
// and reference paths run the identical stdlib Impl closures.
func compileStdlibCallSite(fc *fnCtx, module, fn string, argExprs []ast.Expr) {
	g, f := fc.g, fc.f
	if module == "list" {
		switch fn {
		case "map", "filter", "reduce", "some", "all":
			compileListHOF(fc, fn, argExprs)
			return
		}
	}
	if module == "time" && fn == "now" {
		f.call(g.abi.getTimestamp)
		f.emit(opI32WrapI64)
		tsLocal := f.newLocal(valI32)
		f.localSet(tsLocal)
		f.localGet(tsLocal)
		f.emit(opF64ConvertI32S)
		f.call(g.rt.boxNumber)
		return
	}

	argLocals := make([]uint32, len(argExprs))
	for i, a := range argExprs {
		compileExpr(fc, a)
		argLocals[i] = f.newLocal(valI32)
		f.localSet(argLocals[i])
	}
	entry, ok := g.std.Lookup(module, fn)
	if ok && entry.Capability != "" {
		compileCapabilityBridge(fc, capabilityIDs[entry.Capability], module, fn, argLocals)
		return
	}
	compileStdlibBridge(fc, capStdlib, module, fn, argLocals)
}

// compileListHOF compiles list.map/filter/reduce/some/all as loops
// driving a compiled function value via call_indirect for every
// element.
func compileListHOF(fc *fnCtx, fn string, argExprs []ast.Expr) {
	g, f := fc.g, fc.f
	compileExpr(fc, argExprs[0])
	list := f.newLocal(valI32)
	f.localSet(list)
	compileExpr(fc, argExprs[1])
	callback := f.newLocal(valI32)
	f.localSet(callback)

	i := f.newLocal(valI32)
	f.i32Const(0)
	f.localSet(i)

	switch fn {
	case "map":
		out := f.newLocal(valI32)
		f.i32Const(g.consts.emptyList())
		f.localSet(out)
		f.beginBlock()
		f.beginLoop()
		f.localGet(i)
		f.localGet(list)
		f.call(g.rt.listLen)
		f.emit(opI32GeS)
		f.brIf(1)
		elemArgs := singletonArgs(fc, list, i)
		mapped := applyFunctionValue(fc, callback, elemArgs)
		f.localGet(out)
		f.localGet(mapped)
		f.call(g.rt.listAppend)
		f.localSet(out)
		incrementLocal(f, i)
		f.br(0)
		f.end()
		f.end()
		f.localGet(out)
	case "filter":
		out := f.newLocal(valI32)
		f.i32Const(g.consts.emptyList())
		f.localSet(out)
		f.beginBlock()
		f.beginLoop()
		f.localGet(i)
		f.localGet(list)
		f.call(g.rt.listLen)
		f.emit(opI32GeS)
		f.brIf(1)
		elemArgs := singletonArgs(fc, list, i)
		keep := applyFunctionValue(fc, callback, elemArgs)
		f.localGet(keep)
		f.call(g.rt.unboxBool)
		f.beginIf()
		f.localGet(out)
		f.localGet(list)
		f.localGet(i)
		f.call(g.rt.listGet)
		f.call(g.rt.listAppend)
		f.localSet(out)
		f.end()
		incrementLocal(f, i)
		f.br(0)
		f.end()
		f.end()
		f.localGet(out)
	case "reduce":
		compileExpr(fc, argExprs[2])
		acc := f.newLocal(valI32)
		f.localSet(acc)
		f.beginBlock()
		f.beginLoop()
		f.localGet(i)
		f.localGet(list)
		f.call(g.rt.listLen)
		f.emit(opI32GeS)
		f.brIf(1)
		pairArgs := f.newLocal(valI32)
		f.i32Const(g.consts.emptyList())
		f.localSet(pairArgs)
		f.localGet(pairArgs)
		f.localGet(acc)
		f.call(g.rt.listAppend)
		f.localSet(pairArgs)
		f.localGet(pairArgs)
		f.localGet(list)
		f.localGet(i)
		f.call(g.rt.listGet)
		f.call(g.rt.listAppend)
		f.localSet(pairArgs)
		next := applyFunctionValue(fc, callback, pairArgs)
		f.localGet(next)
		f.localSet(acc)
		incrementLocal(f, i)
		f.br(0)
		f.end()
		f.end()
		f.localGet(acc)
	case "some", "all":
		result := f.newLocal(valI32)
		wantEarly := int32(1)
		if fn == "all" {
			wantEarly = 0
		}
		f.i32Const(g.consts.boolean(fn == "all"))
		f.localSet(result)
		f.beginBlock()
		f.beginLoop()
		f.localGet(i)
		f.localGet(list)
		f.call(g.rt.listLen)
		f.emit(opI32GeS)
		f.brIf(1)
		elemArgs := singletonArgs(fc, list, i)
		test := applyFunctionValue(fc, callback, elemArgs)
		f.localGet(test)
		f.call(g.rt.unboxBool)
		f.i32Const(wantEarly)
		f.emit(opI32Eq)
		f.beginIf()
		f.i32Const(g.consts.boolean(fn == "some"))
		f.localSet(result)
		f.br(2)
		f.end()
		incrementLocal(f, i)
		f.br(0)
		f.end()
		f.end()
		f.localGet(result)
	}
}

func singletonArgs(fc *fnCtx, list, index uint32) uint32 {
	g, f := fc.g, fc.f
	args := f.newLocal(valI32)
	f.i32Const(g.consts.emptyList())
	f.localSet(args)
	f.localGet(args)
	f.localGet(list)
	f.localGet(index)
	f.call(g.rt.listGet)
	f.call(g.rt.listAppend)
	f.localSet(args)
	return args
}

func incrementLocal(f *funcBuilder, local uint32) {
	f.localGet(local)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(local)
}

// compileStdlibBridge and compileCapabilityBridge both address the same
// env.host_call import: a 12-byte scratch record
// {moduleNameId, fnNameId, argsListPtr} is placed in linear memory and
// host_call(cap_id, ptr, 12) returns an i64 whose low 32 bits
// (i32.wrap_i64) are the result pointer. Real capabilities additionally
// trap unmocked_capability_call when the host returns 0, since for
// those modules a null result specifically means "no mock registered"
//; pure stdlib bridging leaves 0 as a
// legitimate nil result (e.g. core.default).
func compileStdlibBridge(fc *fnCtx, capID int32, module, fn string, argLocals []uint32) {
	compileHostCall(fc, capID, module, fn, argLocals, false)
}

func compileCapabilityBridge(fc *fnCtx, capID int32, module, fn string, argLocals []uint32) {
	compileHostCall(fc, capID, module, fn, argLocals, true)
}

func compileHostCall(fc *fnCtx, capID int32, module, fn string, argLocals []uint32, trapOnNil bool) {
	g, f := fc.g, fc.f
	argsList := f.newLocal(valI32)
	f.i32Const(g.consts.emptyList())
	f.localSet(argsList)
	for _, a := range argLocals {
		f.localGet(argsList)
		f.localGet(a)
		f.call(g.rt.listAppend)
		f.localSet(argsList)
	}

	scratch := f.newLocal(valI32)
	f.i32Const(12)
	f.call(g.rt.bumpAlloc)
	f.localSet(scratch)
	f.localGet(scratch)
	f.i32Const(g.names.intern(module))
	f.i32Store(0)
	f.localGet(scratch)
	f.addOffset(4)
	f.i32Const(g.names.intern(fn))
	f.i32Store(0)
	f.localGet(scratch)
	f.addOffset(8)
	f.localGet(argsList)
	f.i32Store(0)

	f.i32Const(capID)
	f.localGet(scratch)
	f.i32Const(12)
	f.call(g.abi.hostCall)
	f.emit(opI32WrapI64)
	result := f.newLocal(valI32)
	f.localSet(result)

	if trapOnNil {
		f.localGet(result)
		f.i32Const(0)
		f.emit(opI32Eq)
		f.beginIf()
		f.trapCall(g.abi, trapUnmockedCapCall)
		f.end()
	}
	f.localGet(result)
}
