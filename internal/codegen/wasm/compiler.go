// Package wasm compiles a checked PEPL space into a standalone WASM
// module implementing the same commit/rollback, gas, and trap semantics
// as internal/eval. It never re-derives types: like the
// evaluator, it runs only on ASTs that have already passed the checker.
package wasm

import (
	"pepl/internal/ast"
	"pepl/internal/gas"
	"pepl/internal/stdlib"
	"pepl/internal/types"
)

// DefaultGasBudget aliases gas.Default, the same starting fuel
// internal/eval.DefaultGasBudget uses, so a WASM run and a reference run
// of the same program exhaust gas on the same statement unless a caller
// passes a different WithGasBudget/eval.WithGasBudget to each.
const DefaultGasBudget = gas.Default

// Option configures a Generator at construction time.
type Option func(*genOptions)

type genOptions struct {
	gasBudget int64
}

// WithGasBudget overrides DefaultGasBudget.
func WithGasBudget(n int64) Option {
	return func(o *genOptions) { o.gasBudget = n }
}

// Result is the code generator's output.
type Result struct {
	Wasm       []byte
	SourceMap  []byte
	NameTable  []string
	ActionsIdx map[string]int32 // action name -> dispatch_action id
}

// Generator lowers one *ast.SpaceDecl to a WASM module. Built fresh per
// compilation; nothing on it survives across Generate calls.
type Generator struct {
	sp   *ast.SpaceDecl
	treg *types.Registry
	std  *stdlib.Registry
	opts genOptions

	m       *module
	abi     abi
	rt      runtime
	consts  *constPool
	names   *nameTable
	sources *sourceMap

	stateFieldOrder []string
	credentialNames map[string]bool

	actionFuncIdx map[string]uint32
	actionOrder   []string
	viewFuncIdx   map[string]uint32

	lambdaTableIdx map[*ast.LambdaExpr]uint32
	uniformTypeIdx uint32
}

func (g *Generator) derivedFields() []*ast.DerivedField {
	if g.sp.Derived == nil {
		return nil
	}
	return g.sp.Derived.Fields
}

// Generate compiles sp into a WASM module. treg and std must
// be the same registries the checker validated sp against.
func Generate(sp *ast.SpaceDecl, treg *types.Registry, std *stdlib.Registry, opts ...Option) (*Result, error) {
	o := genOptions{gasBudget: DefaultGasBudget}
	for _, opt := range opts {
		opt(&o)
	}
	g := &Generator{
		sp:              sp,
		treg:            treg,
		std:             std,
		opts:            o,
		m:               &module{memPages: 1, table: true},
		names:           newNameTable(),
		sources:         newSourceMap(),
		credentialNames: map[string]bool{},
		actionFuncIdx:   map[string]uint32{},
		viewFuncIdx:     map[string]uint32{},
		lambdaTableIdx:  map[*ast.LambdaExpr]uint32{},
	}
	g.abi = wireImports(g.m)
	g.rt = wireRuntime(g.m, g.opts.gasBudget)
	g.consts = newConstPool(g.m)
	g.uniformTypeIdx = g.m.addType(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})

	for _, f := range sp.State.Fields {
		g.stateFieldOrder = append(g.stateFieldOrder, f.Name)
		g.names.intern(f.Name)
	}
	for _, f := range g.derivedFields() {
		g.names.intern(f.Name)
	}
	if sp.Credentials != nil {
		for _, n := range sp.Credentials.Names {
			g.credentialNames[n] = true
		}
	}
	for _, t := range sp.Types {
		for _, v := range t.Variants {
			g.names.intern(v.Name)
			for _, fld := range v.Fields {
				g.names.intern(fld.Name)
			}
		}
	}

	// Reserve every action's and view's function index before compiling
	// any body, so a call from one action/view to another compiled later
	// in declaration order (an inline forward reference) still resolves
	// through actionFuncIdx/viewFuncIdx instead of falling through to the
	// general call_indirect path.
	for _, a := range sp.Actions {
		g.actionOrder = append(g.actionOrder, a.Name)
		params := make([]byte, len(a.Params))
		for i := range params {
			params[i] = valI32
		}
		g.actionFuncIdx[a.Name] = g.m.reserveFunc(funcType{params: params, results: []byte{valI32}})
	}
	for _, v := range sp.Views {
		params := make([]byte, len(v.Params))
		for i := range params {
			params[i] = valI32
		}
		g.viewFuncIdx[v.Name] = g.m.reserveFunc(funcType{params: params, results: []byte{valI32}})
	}

	for _, a := range sp.Actions {
		g.compileAction(a)
	}
	for _, v := range sp.Views {
		g.compileView(v)
	}
	if sp.Update != nil {
		g.compileUpdateHook(sp.Update.Param, sp.Update.Body)
	}
	if sp.HandleEvent != nil {
		g.compileHandleEventHook(sp.HandleEvent.Param, sp.HandleEvent.Body)
	}

	g.compileInit()
	g.compileGetState()
	g.compileDispatchAction()
	g.compileRender()
	g.m.addExport("alloc", 0, g.rt.bumpAlloc)
	g.m.addExport("dealloc", 0, g.compileDealloc())

	g.m.addCustom("pepl-names", g.names.encode())
	g.m.addCustom("pepl-source-map", g.sources.encode())
	g.m.addCustom("pepl-compiler-version", []byte("pepl-wasm-0.1"))
	g.m.addCustom("pepl-language-version", []byte("1"))

	if err := g.validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Wasm:       g.m.assemble(),
		SourceMap:  g.sources.encode(),
		NameTable:  append([]string{}, g.names.order...),
		ActionsIdx: map[string]int32{},
	}
	for i, name := range g.actionOrder {
		res.ActionsIdx[name] = int32(i)
	}
	return res, nil
}

// buildRecordFromFields evaluates each field's expression in declaration
// order and folds it into a record via recordWith, mirroring
// Evaluator.Init/recomputeDerived building a *value.Record one field at a
// time. Used for state init, derived recompute, and RecordLit.
func (g *Generator) buildRecordFromFields(fc *fnCtx, names []string, exprs []ast.Expr) uint32 {
	f := fc.f
	rec := f.newLocal(valI32)
	f.i32Const(g.consts.nilValue())
	f.localSet(rec)
	for i, name := range names {
		compileExpr(fc, exprs[i])
		v := f.newLocal(valI32)
		f.localSet(v)
		f.localGet(rec)
		f.i32Const(g.names.intern(name))
		f.localGet(v)
		f.call(g.rt.recordWith)
		f.localSet(rec)
	}
	return rec
}

// compileInit builds the initial state record from the state field
// initializers, then the derived record, and stores both into the
// runtime globals. Exported as `init`.
func (g *Generator) compileInit() {
	f := newFuncBuilder(nil, nil)
	fc := &fnCtx{g: g, f: f, scope: newGenScope(nil)}

	names := make([]string, len(g.sp.State.Fields))
	exprs := make([]ast.Expr, len(g.sp.State.Fields))
	for i, sf := range g.sp.State.Fields {
		names[i] = sf.Name
		exprs[i] = sf.Init
	}
	root := g.buildRecordFromFields(fc, names, exprs)
	f.localGet(root)
	f.globalSet(g.rt.globalRoot)

	g.recomputeDerivedInline(fc)

	idx := g.m.addFunc(funcType{}, f.encode())
	g.m.addExport("init", 0, idx)
}

func (g *Generator) compileGetState() {
	f := newFuncBuilder(nil, []byte{valI32})
	f.globalGet(g.rt.globalRoot)
	idx := g.m.addFunc(funcType{results: []byte{valI32}}, f.encode())
	g.m.addExport("get_state", 0, idx)

	f2 := newFuncBuilder(nil, []byte{valI32})
	f2.globalGet(g.rt.globalDerived)
	idx2 := g.m.addFunc(funcType{results: []byte{valI32}}, f2.encode())
	g.m.addExport("get_derived", 0, idx2)

	// restore_state lets a host complete the rollback half of a
	// transaction that trapped: WASM's MVP instruction set has no
	// catch, so a trap unwinds the whole call with no chance for this
	// module to reset its own globals first. Every compiled record
	// update is a fresh allocation (recordWith never mutates in
	// place), so the pre-call state and derived pointers a host cached
	// from get_state/get_derived before the call stay valid data even
	// after a trap discards the in-flight mutation; the host just
	// writes them back.
	f3 := newFuncBuilder([]byte{valI32, valI32}, nil)
	f3.localGet(0)
	f3.globalSet(g.rt.globalRoot)
	f3.localGet(1)
	f3.globalSet(g.rt.globalDerived)
	idx3 := g.m.addFunc(funcType{params: []byte{valI32, valI32}}, f3.encode())
	g.m.addExport("restore_state", 0, idx3)
}

// recomputeDerivedInline rebuilds the derived record from current state,
// matching Evaluator.recomputeDerived; called after init and after every
// action/hook body that does not roll back.
func (g *Generator) recomputeDerivedInline(fc *fnCtx) {
	fields := g.derivedFields()
	names := make([]string, len(fields))
	exprs := make([]ast.Expr, len(fields))
	for i, df := range fields {
		names[i] = df.Name
		exprs[i] = df.Expr
	}
	derived := g.buildRecordFromFields(fc, names, exprs)
	fc.f.localGet(derived)
	fc.f.globalSet(g.rt.globalDerived)
}

// compileTransactionBody shares the snapshot/commit/rollback shape behind
// an action, update(dt), and handleEvent(event). A failing invariant traps invariant_violated rather
// than branching to a hand-rolled rollback: WASM's only unwind mechanism
// is a trap anyway (compileAction's doc comment), so raising one here
// funnels invariant failures through the exact same host-side
// restore_state protocol a runtime trap already uses instead of needing
// a second, bespoke rollback path. The body's `return` statements are
// resolved by finishFnBody before invariants are even checked, so a
// return never skips them (see newFnCtx in stmt.go).
func (g *Generator) compileTransactionBody(fc *fnCtx, body []ast.Stmt) {
	f := fc.f
	g.chargeGas(f, 1)
	bodyResult := compileBlockTrailing(fc, body)
	result := finishFnBody(fc, bodyResult)

	for _, inv := range g.sp.Invariants {
		compileExpr(fc, inv.Expr)
		f.call(g.rt.unboxBool)
		f.emit(opI32Eqz)
		f.beginIf()
		f.trapCall(g.abi, trapInvariantViolated)
		f.end()
	}

	g.recomputeDerivedInline(fc)
	f.localGet(result)
}

// compileAction compiles one action into a WASM function taking one i32
// param per declared parameter (capped at 8) and returning the
// body's trailing value. A trap raised mid-body unwinds via the WASM
// `unreachable` instruction all the way out to the host (env.trap is
// called first so the host learns which trap fired); the host is
// responsible for treating a trapped call as a rollback by re-running
// from its last-known-good snapshot, since WASM itself has no catch.
func (g *Generator) compileAction(a *ast.ActionDecl) {
	params := make([]byte, len(a.Params))
	for i := range params {
		params[i] = valI32
	}
	f := newFuncBuilder(params, []byte{valI32})
	scope := newGenScope(nil)
	for i, p := range a.Params {
		scope.define(p.Name, uint32(i))
	}
	fc := newFnCtx(g, f, scope)
	g.compileTransactionBody(fc, a.Body)
	g.m.setBody(g.actionFuncIdx[a.Name], f.encode())
}

// compileUpdateHook exports `update(dt: f64)`, boxing the raw f64 tick
// delta into a Number the same way genBoxNumber boxes any other
// runtime-computed number, so the body sees dt as an ordinary bound
// name like any action parameter.
func (g *Generator) compileUpdateHook(paramName string, body []ast.Stmt) {
	f := newFuncBuilder([]byte{valF64}, []byte{valI32})
	boxed := f.newLocal(valI32)
	f.localGet(0)
	f.call(g.rt.boxNumber)
	f.localSet(boxed)
	scope := newGenScope(nil)
	scope.define(paramName, boxed)
	fc := newFnCtx(g, f, scope)
	g.compileTransactionBody(fc, body)
	idx := g.m.addFunc(funcType{params: []byte{valF64}, results: []byte{valI32}}, f.encode())
	g.m.addExport("update", 0, idx)
}

// compileHandleEventHook exports `handle_event(event_ptr: i32, event_len:
// i32)`. event_ptr is already a boxed value header built the same way
// dispatch_action's payload entries are (see compileDispatchAction);
// event_len is carried only to satisfy the fixed signature — a boxed
// value's own header already carries its length where one applies (a
// String's len_or_variant field), so the body never reads it.
func (g *Generator) compileHandleEventHook(paramName string, body []ast.Stmt) {
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	scope := newGenScope(nil)
	scope.define(paramName, 0)
	fc := newFnCtx(g, f, scope)
	g.compileTransactionBody(fc, body)
	idx := g.m.addFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}}, f.encode())
	g.m.addExport("handle_event", 0, idx)
}

// compileView compiles a view to a function returning a Surface record
// pointer; views never write the state/derived globals, only read them,
// so no snapshot is needed. Every zero-parameter view additionally gets
// its own render_<name> export, a convenience for a host that knows it
// wants a specific view rather than the canonical one compileRender
// wires up.
func (g *Generator) compileView(v *ast.ViewDecl) {
	params := make([]byte, len(v.Params))
	for i := range params {
		params[i] = valI32
	}
	f := newFuncBuilder(params, []byte{valI32})
	scope := newGenScope(nil)
	for i, p := range v.Params {
		scope.define(p.Name, uint32(i))
	}
	fc := newFnCtx(g, f, scope)
	g.chargeGas(f, 1)
	bodyResult := compileBlockTrailing(fc, v.Body)
	result := finishFnBody(fc, bodyResult)
	f.localGet(result)
	g.m.setBody(g.viewFuncIdx[v.Name], f.encode())
	if len(v.Params) == 0 {
		g.m.addExport("render_"+v.Name, 0, g.viewFuncIdx[v.Name])
	}
}

// compileRender exports the ABI's canonical `render() -> i32`: the first
// declared view, called with every parameter nil-filled the same way a
// host with no argument-passing channel into render would have to call
// it. A space with no views at all exports no render entry; every other
// shape gets one regardless of whether that first view takes parameters,
// unlike the per-view render_<name> exports above which only cover the
// zero-parameter case.
func (g *Generator) compileRender() {
	if len(g.sp.Views) == 0 {
		return
	}
	v := g.sp.Views[0]
	f := newFuncBuilder(nil, []byte{valI32})
	for range v.Params {
		f.i32Const(g.consts.nilValue())
	}
	f.call(g.viewFuncIdx[v.Name])
	idx := g.m.addFunc(funcType{results: []byte{valI32}}, f.encode())
	g.m.addExport("render", 0, idx)
}

// compileDealloc exports a no-op `dealloc(ptr: i32, n: i32)`: the bump
// allocator (runtime.go's genBumpAlloc) never frees within a module
// instance, and rollback (restore_state) only writes back the state and
// derived root pointers; it neither rewinds the tip nor frees anything. dealloc
// exists only so a host written against an allocator that does free can
// call it unconditionally.
func (g *Generator) compileDealloc() uint32 {
	f := newFuncBuilder([]byte{valI32, valI32}, nil)
	return g.m.addFunc(funcType{params: []byte{valI32, valI32}}, f.encode())
}

// compileDispatchAction emits one exported entry point taking an action
// id (its position in declaration order, for deterministic output) and a
// length-prefixed payload buffer: payload_ptr points to payload_len/4
// back-to-back i32 pointers, one per positional argument, each already a
// boxed value header in the layout layout.go describes (the same header
// format render()'s and get_state()'s return pointers use),
// not raw bytes the module itself would need to decode. Dispatching is
// an if/else-if chain on the id (kept simple and unambiguous rather than
// a WASM br_table, whose relative-depth block nesting is easy to get
// subtly wrong by hand — see runtime.go's comments on preferring direct
// control flow).
func (g *Generator) compileDispatchAction() {
	f := newFuncBuilder([]byte{valI32, valI32, valI32}, []byte{valI32})
	for i, name := range g.actionOrder {
		actionIdx := g.actionFuncIdx[name]
		a := g.sp.Actions[i]
		f.localGet(0)
		f.i32Const(int32(i))
		f.emit(opI32Eq)
		f.beginIf()
		for j := range a.Params {
			f.loadI32At(1, int32(j*4))
		}
		f.call(actionIdx)
		f.emit(opReturn)
		f.end()
	}
	f.i32Const(g.consts.nilValue())
	idx := g.m.addFunc(funcType{params: []byte{valI32, valI32, valI32}, results: []byte{valI32}}, f.encode())
	g.m.addExport("dispatch_action", 0, idx)
}

func (g *Generator) chargeGas(f *funcBuilder, n int64) {
	newGas := f.newLocal(valI64)
	f.globalGet(g.rt.globalGas)
	f.i64Const(n)
	f.emit(opI64Sub)
	f.localTee(newGas)
	f.globalSet(g.rt.globalGas)
	f.localGet(newGas)
	f.i64Const(0)
	f.emit(opI64LtS)
	f.beginIf()
	f.trapCall(g.abi, trapGasExhausted)
	f.end()
}
