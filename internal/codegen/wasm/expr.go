package wasm

import (
	"pepl/internal/ast"
)

// fnCtx is the compile-time context threaded through one function body:
// the generator (shared tables), the funcBuilder accumulating its
// instructions, and the lexical scope mapping names to either a real
// WASM local or a captured slot in a closure environment record.
type fnCtx struct {
	g        *Generator
	f        *funcBuilder
	scope    *genScope
	envLocal uint32 // valid only when inLambda
	inLambda bool

	// retBlockDepth/retLocal implement `return`: every function body is
	// wrapped in one block (see newFnCtx in stmt.go) and a return
	// statement, however deeply nested, stores its value in retLocal and
	// branches out to that block's end in one `br`.
	retBlockDepth int
	retLocal      uint32
}

func withScope(fc *fnCtx, s *genScope) *fnCtx {
	return &fnCtx{
		g: fc.g, f: fc.f, scope: s, envLocal: fc.envLocal, inLambda: fc.inLambda,
		retBlockDepth: fc.retBlockDepth, retLocal: fc.retLocal,
	}
}

// allocHeader emits `bumpAlloc(headerSize); store tag|(variant16<<16) at
// +0; store payload at +4` and leaves the new pointer in a local, per the
// generic {tag, variant16, payload, aux} header shape (layout.go).
func allocHeader(fc *fnCtx, tag byte, variant16 int32, payload func()) uint32 {
	f := fc.f
	ptr := f.newLocal(valI32)
	f.i32Const(headerSize)
	f.call(fc.g.rt.bumpAlloc)
	f.localTee(ptr)
	f.i32Const(int32(tag) | (variant16 << 16))
	f.i32Store(0)
	f.localGet(ptr)
	f.addOffset(4)
	payload()
	f.i32Store(0)
	return ptr
}

// compileExpr lowers e, leaving exactly one i32 value pointer on the
// stack.
func compileExpr(fc *fnCtx, e ast.Expr) {
	g := fc.g
	f := fc.f
	switch t := e.(type) {
	case *ast.NumberLit:
		f.i32Const(g.consts.number(t.Value))
	case *ast.StringLit:
		f.i32Const(g.consts.str(t.Value))
	case *ast.BoolLit:
		f.i32Const(g.consts.boolean(t.Value))
	case *ast.NilLit:
		f.i32Const(g.consts.nilValue())
	case *ast.InterpolatedString:
		compileInterpolatedString(fc, t)
	case *ast.Ident:
		compileIdentValue(fc, t.Name)
	case *ast.FieldPath:
		compileFieldPath(fc, t)
	case *ast.IndexExpr:
		compileIndex(fc, t)
	case *ast.UnaryExpr:
		compileUnary(fc, t)
	case *ast.BinaryExpr:
		compileBinary(fc, t)
	case *ast.LogicalExpr:
		compileLogical(fc, t)
	case *ast.NilCoalesceExpr:
		compileNilCoalesce(fc, t)
	case *ast.TryExpr:
		compileTry(fc, t)
	case *ast.CallExpr:
		compileCall(fc, t)
	case *ast.LambdaExpr:
		compileLambdaLiteral(fc, t)
	case *ast.ListLit:
		compileListLit(fc, t)
	case *ast.RecordLit:
		names := make([]string, len(t.Fields))
		exprs := make([]ast.Expr, len(t.Fields))
		for i, rf := range t.Fields {
			names[i] = rf.Name
			exprs[i] = rf.Value
		}
		f.localGet(g.buildRecordFromFields(fc, names, exprs))
	case *ast.SumConstructExpr:
		compileSumConstruct(fc, t)
	case *ast.MatchExpr:
		compileMatch(fc, t)
	case *ast.ComponentExpr:
		compileComponent(fc, t)
	case *ast.ActionRef:
		compileActionRef(fc, t)
	default:
		f.i32Const(g.consts.nilValue())
	}
}

// compileIdentValue resolves a bare name the way eval.evalIdentWithEnv
// does: local scope (params/lets/loop vars/captures) first, then state,
// then derived, then a declared credential.
func compileIdentValue(fc *fnCtx, name string) {
	g, f := fc.g, fc.f
	if b, ok := fc.scope.lookup(name); ok {
		if b.captured {
			f.localGet(b.envParam)
			f.i32Const(g.names.intern(name))
			f.call(g.rt.recordGet)
		} else {
			f.localGet(b.local)
		}
		return
	}
	if g.fieldIsState(name) {
		f.globalGet(g.rt.globalRoot)
		f.i32Const(g.names.intern(name))
		f.call(g.rt.recordGet)
		return
	}
	if g.fieldIsDerived(name) {
		f.globalGet(g.rt.globalDerived)
		f.i32Const(g.names.intern(name))
		f.call(g.rt.recordGet)
		return
	}
	if g.credentialNames[name] {
		compileCapabilityBridge(fc, capCredentials, "credentials", name, nil)
		return
	}
	f.i32Const(g.consts.nilValue())
}

func (g *Generator) fieldIsState(name string) bool {
	for _, n := range g.stateFieldOrder {
		if n == name {
			return true
		}
	}
	return false
}

func (g *Generator) fieldIsDerived(name string) bool {
	for _, f := range g.derivedFields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// compileFieldPath chains recordGet calls, trapping nil_access when an
// intermediate value is nil or not a record.
func compileFieldPath(fc *fnCtx, fp *ast.FieldPath) {
	g, f := fc.g, fc.f
	compileIdentValue(fc, fp.Root.Name)
	cur := f.newLocal(valI32)
	f.localSet(cur)
	for _, name := range fp.Fields {
		f.localGet(cur)
		f.i32Load(0)
		f.i32Const(0xFF)
		f.emit(opI32And)
		f.i32Const(int32(tagRecord))
		f.emit(opI32Ne)
		f.beginIf()
		f.trapCall(g.abi, trapNilAccess)
		f.end()
		f.localGet(cur)
		f.i32Const(g.names.intern(name))
		f.call(g.rt.recordGet)
		f.localSet(cur)
	}
	f.localGet(cur)
}

// compileIndex emits `list[i]` with a bounds trap.
func compileIndex(fc *fnCtx, ix *ast.IndexExpr) {
	g, f := fc.g, fc.f
	compileExpr(fc, ix.Object)
	list := f.newLocal(valI32)
	f.localSet(list)
	compileExpr(fc, ix.Index)
	f.call(g.rt.unboxNumber)
	f.emit(opI32TruncF64S)
	idx := f.newLocal(valI32)
	f.localSet(idx)

	f.localGet(list)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagList))
	f.emit(opI32Ne)
	f.beginIf()
	f.trapCall(g.abi, trapNilAccess)
	f.end()

	f.localGet(idx)
	f.i32Const(0)
	f.emit(opI32LtS)
	f.beginIf()
	f.trapCall(g.abi, trapNilAccess)
	f.end()
	f.localGet(idx)
	f.localGet(list)
	f.call(g.rt.listLen)
	f.emit(opI32GeS)
	f.beginIf()
	f.trapCall(g.abi, trapNilAccess)
	f.end()

	f.localGet(list)
	f.localGet(idx)
	f.call(g.rt.listGet)
}

func compileUnary(fc *fnCtx, u *ast.UnaryExpr) {
	g, f := fc.g, fc.f
	compileExpr(fc, u.Operand)
	if u.Op == "not" {
		f.call(g.rt.unboxBool)
		f.emit(opI32Eqz)
		f.call(g.rt.boxBool)
		return
	}
	f.call(g.rt.unboxNumber)
	f.emit(opF64Neg)
	f.call(g.rt.boxNumber)
}

// compileBinary mirrors eval.evalBinary: `==`/`!=` use structural
// equality over the boxed operands; every other operator unboxes both
// sides as numbers first. Arithmetic results that land on NaN trap
//; division/modulo by zero trap
// before that check is even reached.
func compileBinary(fc *fnCtx, b *ast.BinaryExpr) {
	g, f := fc.g, fc.f
	if b.Op == "==" || b.Op == "!=" {
		compileExpr(fc, b.Left)
		compileExpr(fc, b.Right)
		f.call(g.rt.valuesEqual)
		if b.Op == "!=" {
			f.emit(opI32Eqz)
		}
		f.call(g.rt.boxBool)
		return
	}

	compileExpr(fc, b.Left)
	f.call(g.rt.unboxNumber)
	l := f.newLocal(valF64)
	f.localSet(l)
	compileExpr(fc, b.Right)
	f.call(g.rt.unboxNumber)
	r := f.newLocal(valF64)
	f.localSet(r)

	switch b.Op {
	case "<", ">", "<=", ">=":
		f.localGet(l)
		f.localGet(r)
		switch b.Op {
		case "<":
			f.emit(opF64Lt)
		case ">":
			f.emit(opF64Gt)
		case "<=":
			f.emit(opF64Le)
		case ">=":
			f.emit(opF64Ge)
		}
		f.call(g.rt.boxBool)
		return
	case "/", "%":
		f.localGet(r)
		f.f64Const(0)
		f.emit(opF64Eq)
		f.beginIf()
		f.trapCall(g.abi, trapDivisionByZero)
		f.end()
	}

	res := f.newLocal(valF64)
	f.localGet(l)
	f.localGet(r)
	switch b.Op {
	case "+":
		f.emit(opF64Add)
	case "-":
		f.emit(opF64Sub)
	case "*":
		f.emit(opF64Mul)
	case "/":
		f.emit(opF64Div)
	case "%":
		// f64 has no native rem; emulate `l - trunc(l/r) * r`, matching
		// math.Mod's truncated-division semantics used by eval.
		f.emit(opDrop) // keep only l from the pair pushed above
		f.localGet(l)
		f.localGet(r)
		f.emit(opF64Div)
		f.emit(opF64Trunc)
		f.localGet(r)
		f.emit(opF64Mul)
		f.emit(opF64Sub)
	}
	f.localSet(res)

	f.localGet(res)
	f.localGet(res)
	f.emit(opF64Ne)
	f.beginIf()
	f.trapCall(g.abi, trapNaNResult)
	f.end()
	f.localGet(res)
	f.call(g.rt.boxNumber)
}

// compileLogical short-circuits `and`/`or` using a result local rather
// than a typed if/else block, since funcBuilder's blocks are always void
// (see func.go beginIf).
func compileLogical(fc *fnCtx, l *ast.LogicalExpr) {
	g, f := fc.g, fc.f
	compileExpr(fc, l.Left)
	f.call(g.rt.unboxBool)
	lv := f.newLocal(valI32)
	f.localSet(lv)
	result := f.newLocal(valI32)

	if l.Op == "and" {
		f.localGet(lv)
		f.emit(opI32Eqz)
		f.beginIf()
		f.i32Const(0)
		f.call(g.rt.boxBool)
		f.localSet(result)
		f.beginElse()
		compileExpr(fc, l.Right)
		f.call(g.rt.unboxBool)
		f.call(g.rt.boxBool)
		f.localSet(result)
		f.end()
	} else {
		f.localGet(lv)
		f.beginIf()
		f.i32Const(1)
		f.call(g.rt.boxBool)
		f.localSet(result)
		f.beginElse()
		compileExpr(fc, l.Right)
		f.call(g.rt.unboxBool)
		f.call(g.rt.boxBool)
		f.localSet(result)
		f.end()
	}
	f.localGet(result)
}

func compileNilCoalesce(fc *fnCtx, n *ast.NilCoalesceExpr) {
	f := fc.f
	compileExpr(fc, n.Left)
	left := f.newLocal(valI32)
	f.localSet(left)
	result := f.newLocal(valI32)

	f.localGet(left)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagNil))
	f.emit(opI32Eq)
	f.beginIf()
	compileExpr(fc, n.Right)
	f.localSet(result)
	f.beginElse()
	f.localGet(left)
	f.localSet(result)
	f.end()
	f.localGet(result)
}

// compileTry unwraps a Result, trapping result_unwrap_on_err on Err or on
// a non-Result operand.
func compileTry(fc *fnCtx, t *ast.TryExpr) {
	g, f := fc.g, fc.f
	compileExpr(fc, t.Operand)
	res := f.newLocal(valI32)
	f.localSet(res)

	f.localGet(res)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagResult))
	f.emit(opI32Ne)
	f.beginIf()
	f.trapCall(g.abi, trapResultUnwrapOnErr)
	f.end()

	f.loadI32At(res, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And) // isErr packed into the header word's upper 16 bits
	f.beginIf()
	f.trapCall(g.abi, trapResultUnwrapOnErr)
	f.end()

	f.localGet(res)
	f.addOffset(4)
	f.i32Load(0)
}

// compileInterpolatedString desugars to a left fold of stringConcat over
// each part, converting non-literal parts via the core.to_string bridge.
func compileInterpolatedString(fc *fnCtx, s *ast.InterpolatedString) {
	g, f := fc.g, fc.f
	acc := f.newLocal(valI32)
	f.i32Const(g.consts.str(""))
	f.localSet(acc)
	for _, part := range s.Parts {
		if lit, ok := part.(*ast.StringLit); ok {
			f.localGet(acc)
			f.i32Const(g.consts.str(lit.Value))
			f.call(g.rt.stringConcat)
			f.localSet(acc)
			continue
		}
		compileExpr(fc, part)
		asStr := f.newLocal(valI32)
		f.localSet(asStr)
		compileStdlibBridge(fc, capStdlib, "core", "to_string", []uint32{asStr})
		converted := f.newLocal(valI32)
		f.localSet(converted)
		f.localGet(acc)
		f.localGet(converted)
		f.call(g.rt.stringConcat)
		f.localSet(acc)
	}
	f.localGet(acc)
}

func compileListLit(fc *fnCtx, l *ast.ListLit) {
	g, f := fc.g, fc.f
	acc := f.newLocal(valI32)
	f.i32Const(g.consts.emptyList())
	f.localSet(acc)
	for _, el := range l.Elements {
		f.localGet(acc)
		compileExpr(fc, el)
		f.call(g.rt.listAppend)
		f.localSet(acc)
	}
	f.localGet(acc)
}

// compileSumConstruct builds Ok/Err results and user sum-type variants.
// Ok/Err pack the tag into the header's
// high 16 bits as an isErr flag (0/1); a user variant packs the
// interned tag name so valuesEqual and match can compare it cheaply.
func compileSumConstruct(fc *fnCtx, s *ast.SumConstructExpr) {
	g, f := fc.g, fc.f
	switch s.Variant {
	case "Ok", "Err":
		isErr := int32(0)
		if s.Variant == "Err" {
			isErr = 1
		}
		var inner uint32
		if len(s.Args) == 1 {
			compileExpr(fc, s.Args[0])
		} else {
			f.i32Const(g.consts.nilValue())
		}
		inner = f.newLocal(valI32)
		f.localSet(inner)
		ptr := allocHeader(fc, tagResult, isErr, func() { f.localGet(inner) })
		f.localGet(ptr)
		return
	}
	_, variant, ok := g.treg.VariantOwner(s.Variant)
	if !ok || len(variant.Fields) == 0 {
		ptr := allocHeader(fc, tagVariant, g.names.intern(s.Variant), func() { f.i32Const(0) })
		f.localGet(ptr)
		return
	}
	names := make([]string, len(variant.Fields))
	exprs := make([]ast.Expr, len(variant.Fields))
	for i, vf := range variant.Fields {
		names[i] = vf.Name
		if i < len(s.Args) {
			exprs[i] = s.Args[i]
		} else {
			exprs[i] = &ast.NilLit{}
		}
	}
	payload := g.buildRecordFromFields(fc, names, exprs)
	ptr := allocHeader(fc, tagVariant, g.names.intern(s.Variant), func() { f.localGet(payload) })
	f.localGet(ptr)
}

// compileActionRef builds the serializable placeholder for a UI prop
// resolved to a declared action. The checker never actually produces this node (ast.ActionRef's
// doc comment; see view.go's compileComponent for the real path, which
// re-derives action-ness from a bare Ident instead), so this exists only
// as the same dead case the reference evaluator carries.
func compileActionRef(fc *fnCtx, a *ast.ActionRef) {
	compileActionSentinelValue(fc, a.Name)
}

// compileMatch lowers a match expression to a chain of pattern tests,
// each writing the winning arm's value into a shared result local. The
// checker has already proven exhaustiveness, so a fall-through past
// every arm is unreachable and traps loudly rather than silently
// returning nil (mirrors eval.evalMatch's own comment).
func compileMatch(fc *fnCtx, m *ast.MatchExpr) {
	g, f := fc.g, fc.f
	compileExpr(fc, m.Scrutinee)
	scrutinee := f.newLocal(valI32)
	f.localSet(scrutinee)
	result := f.newLocal(valI32)
	matched := f.newLocal(valI32)
	f.i32Const(0)
	f.localSet(matched)

	for _, arm := range m.Arms {
		f.localGet(matched)
		f.emit(opI32Eqz)
		f.beginIf()
		armScope := newGenScope(fc.scope)
		armFc := withScope(fc, armScope)
		testMatched := compilePatternTest(armFc, arm.Pattern, scrutinee)
		f.localGet(testMatched)
		if arm.Guard != nil {
			f.beginIf()
			compileExpr(armFc, arm.Guard)
			f.call(g.rt.unboxBool)
			guardLocal := f.newLocal(valI32)
			f.localSet(guardLocal)
			f.localGet(guardLocal)
			f.beginElse()
			f.i32Const(0)
			f.end()
			guardOk := f.newLocal(valI32)
			f.localSet(guardOk)
			f.localGet(guardOk)
		}
		f.beginIf()
		val := compileBlockTrailing(armFc, arm.Body)
		f.localGet(val)
		f.localSet(result)
		f.i32Const(1)
		f.localSet(matched)
		f.end() // guard-passed if
		f.end() // not-yet-matched if
	}
	f.localGet(matched)
	f.emit(opI32Eqz)
	f.beginIf()
	f.trapCall(g.abi, trapAssertionFailed)
	f.end()
	f.localGet(result)
}

// compilePatternTest mirrors eval.matchPattern: it returns a local
// holding 1/0 for whether the pattern matched, and, on success, binds
// pattern names into fc.scope as real locals holding the destructured
// values.
func compilePatternTest(fc *fnCtx, p ast.Pattern, scrutinee uint32) uint32 {
	g, f := fc.g, fc.f
	ok := f.newLocal(valI32)
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		f.i32Const(1)
		f.localSet(ok)
	case *ast.BindPattern:
		local := f.newLocal(valI32)
		f.localGet(scrutinee)
		f.localSet(local)
		fc.scope.define(pat.Name, local)
		f.i32Const(1)
		f.localSet(ok)
	case *ast.LiteralPattern:
		compileExpr(fc, pat.Value)
		f.localGet(scrutinee)
		f.call(g.rt.valuesEqual)
		f.localSet(ok)
	case *ast.VariantPattern:
		compileVariantPatternTest(fc, pat, scrutinee, ok)
	default:
		f.i32Const(0)
		f.localSet(ok)
	}
	return ok
}

func compileVariantPatternTest(fc *fnCtx, pat *ast.VariantPattern, scrutinee, ok uint32) {
	g, f := fc.g, fc.f
	if pat.Variant == "Ok" || pat.Variant == "Err" {
		wantErr := int32(0)
		if pat.Variant == "Err" {
			wantErr = 1
		}
		f.localGet(scrutinee)
		f.i32Load(0)
		f.i32Const(0xFF)
		f.emit(opI32And)
		f.i32Const(int32(tagResult))
		f.emit(opI32Ne)
		f.beginIf()
		f.i32Const(0)
		f.localSet(ok)
		f.beginElse()
		f.loadI32At(scrutinee, 2)
		f.i32Const(0xFFFF)
		f.emit(opI32And)
		isErrFlag := f.newLocal(valI32)
		f.localSet(isErrFlag)
		f.localGet(isErrFlag)
		f.i32Const(0)
		if wantErr == 0 {
			f.emit(opI32Eq)
		} else {
			f.emit(opI32Ne)
		}
		f.localSet(ok)
		f.end()
		f.localGet(ok)
		f.beginIf()
		if len(pat.Binds) > 0 {
			payload := f.newLocal(valI32)
			f.localGet(scrutinee)
			f.addOffset(4)
			f.i32Load(0)
			f.localSet(payload)
			fc.scope.define(pat.Binds[0], payload)
		}
		f.end()
		return
	}
	wantId := g.names.intern(pat.Variant)
	f.localGet(scrutinee)
	f.i32Load(0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.i32Const(int32(tagVariant))
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.localSet(ok)
	f.beginElse()
	f.localGet(scrutinee)
	f.i32Load(0)
	f.i32Const(16)
	f.emit(opI32ShrU)
	f.i32Const(wantId)
	f.emit(opI32Eq)
	f.localSet(ok)
	f.end()
	f.localGet(ok)
	f.beginIf()
	if len(pat.Binds) > 0 {
		payload := f.newLocal(valI32)
		f.localGet(scrutinee)
		f.addOffset(4)
		f.i32Load(0)
		f.localSet(payload)
		for _, name := range pat.Binds {
			bound := f.newLocal(valI32)
			f.localGet(payload)
			f.i32Const(g.names.intern(name))
			f.call(g.rt.recordGet)
			f.localSet(bound)
			fc.scope.define(name, bound)
		}
	}
	f.end()
}
