package wasm

// funcBuilder accumulates one function body: locals declared beyond the
// parameters, and the instruction stream. locals are grouped by type in
// the encoded output, but funcBuilder just tracks each local's WASM
// type in declaration order and lets the caller address it by index.
type funcBuilder struct {
	paramTypes []byte
	resultType []byte
	localTypes []byte // one entry per extra local, appended after params
	code       []byte
	labelDepth int
}

func newFuncBuilder(params []byte, result []byte) *funcBuilder {
	return &funcBuilder{paramTypes: params, resultType: result}
}

// newLocal declares a fresh local of type t and returns its index in
// the function's combined param+local index space.
func (f *funcBuilder) newLocal(t byte) uint32 {
	f.localTypes = append(f.localTypes, t)
	return uint32(len(f.paramTypes) + len(f.localTypes) - 1)
}

func (f *funcBuilder) emit(b ...byte) { f.code = append(f.code, b...) }

func (f *funcBuilder) emitULEB(n uint64) { f.code = appendULEB(f.code, n) }
func (f *funcBuilder) emitSLEB(n int64)  { f.code = appendSLEB(f.code, n) }
func (f *funcBuilder) emitF64(v float64) { f.code = appendF64(f.code, v) }

func (f *funcBuilder) i32Const(v int32) { f.emit(opI32Const); f.emitSLEB(int64(v)) }
func (f *funcBuilder) i64Const(v int64) { f.emit(opI64Const); f.emitSLEB(v) }
func (f *funcBuilder) f64Const(v float64) {
	f.emit(opF64Const)
	f.emitF64(v)
}

func (f *funcBuilder) localGet(idx uint32) { f.emit(opLocalGet); f.emitULEB(uint64(idx)) }
func (f *funcBuilder) localSet(idx uint32) { f.emit(opLocalSet); f.emitULEB(uint64(idx)) }
func (f *funcBuilder) localTee(idx uint32) { f.emit(opLocalTee); f.emitULEB(uint64(idx)) }

func (f *funcBuilder) globalGet(idx uint32) { f.emit(opGlobalGet); f.emitULEB(uint64(idx)) }
func (f *funcBuilder) globalSet(idx uint32) { f.emit(opGlobalSet); f.emitULEB(uint64(idx)) }

func (f *funcBuilder) call(idx uint32) { f.emit(opCall); f.emitULEB(uint64(idx)) }

func (f *funcBuilder) callIndirect(typeIdx uint32) {
	f.emit(opCallIndir)
	f.emitULEB(uint64(typeIdx))
	f.emitULEB(0) // table index 0
}

// load/store with a fixed 4-byte alignment hint and zero offset; every
// memory access in the generated code addresses an already-computed
// absolute pointer local, so a static offset is never useful here.
func (f *funcBuilder) i32Load(align uint32)  { f.emit(opI32Load); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) i32Store(align uint32) { f.emit(opI32Store); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) i64Load(align uint32)  { f.emit(opI64Load); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) i64Store(align uint32) { f.emit(opI64Store); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) f64Load(align uint32)  { f.emit(opF64Load); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) f64Store(align uint32) { f.emit(opF64Store); f.emitULEB(uint64(align)); f.emitULEB(0) }
func (f *funcBuilder) i32Load8U()            { f.emit(opI32Load8U); f.emitULEB(0); f.emitULEB(0) }
func (f *funcBuilder) i32Store8()            { f.emit(opI32Store8); f.emitULEB(0); f.emitULEB(0) }

func (f *funcBuilder) beginBlock() { f.emit(opBlock, blockVoid); f.labelDepth++ }
func (f *funcBuilder) beginLoop()  { f.emit(opLoop, blockVoid); f.labelDepth++ }
func (f *funcBuilder) beginIf()    { f.emit(opIf, blockVoid); f.labelDepth++ }
func (f *funcBuilder) beginElse()  { f.emit(opElse) }
func (f *funcBuilder) end()        { f.emit(opEnd); f.labelDepth-- }

func (f *funcBuilder) br(relDepth uint32)   { f.emit(opBr); f.emitULEB(uint64(relDepth)) }
func (f *funcBuilder) brIf(relDepth uint32) { f.emit(opBrIf); f.emitULEB(uint64(relDepth)) }

// addOffset adds a constant byte offset to whatever address is already
// on top of the stack.
func (f *funcBuilder) addOffset(n int32) {
	if n != 0 {
		f.i32Const(n)
		f.emit(opI32Add)
	}
}

// loadI32At emits `local.get base; <+offset>; i32.load`.
func (f *funcBuilder) loadI32At(base uint32, offset int32) {
	f.localGet(base)
	f.addOffset(offset)
	f.i32Load(0)
}

// loadI64At emits `local.get base; <+offset>; i64.load`.
func (f *funcBuilder) loadI64At(base uint32, offset int32) {
	f.localGet(base)
	f.addOffset(offset)
	f.i64Load(0)
}

// encode produces the WASM function-body byte sequence: locals vector
// (grouped runs of same type) followed by the instruction stream and
// a trailing `end`.
func (f *funcBuilder) encode() []byte {
	var runs [][2]interface{}
	for _, t := range f.localTypes {
		if len(runs) > 0 && runs[len(runs)-1][1].(byte) == t {
			runs[len(runs)-1][0] = runs[len(runs)-1][0].(int) + 1
			continue
		}
		runs = append(runs, [2]interface{}{1, t})
	}
	var out []byte
	out = appendULEB(out, uint64(len(runs)))
	for _, r := range runs {
		out = appendULEB(out, uint64(r[0].(int)))
		out = append(out, r[1].(byte))
	}
	out = append(out, f.code...)
	out = append(out, opEnd)
	return out
}
