package wasm

// runtime holds the function indices of the shared helpers every
// compiled function may call: the bump allocator, structural equality,
// and immutable nested-record update. They are emitted
// once per module and never inlined, the way a native compiler shares
// one memcpy rather than duplicating it at every call site.
type runtime struct {
	globalGas     uint32
	globalTip     uint32
	globalRoot    uint32
	globalDerived uint32
	bumpAlloc    uint32 // (size: i32) -> i32
	valuesEqual  uint32 // (a: i32, b: i32) -> i32
	recordGet    uint32 // (rec: i32, nameId: i32) -> i32
	recordWith   uint32 // (rec: i32, nameId: i32, newVal: i32) -> i32
	listAppend   uint32 // (list: i32, val: i32) -> i32
	listGet      uint32 // (list: i32, idx: i32) -> i32, no bounds check
	listLen      uint32 // (list: i32) -> i32
	boxNumber    uint32 // (v: f64) -> i32
	unboxNumber  uint32 // (ptr: i32) -> f64
	boxBool      uint32 // (v: i32) -> i32
	unboxBool    uint32 // (ptr: i32) -> i32
	stringConcat uint32 // (a: i32, b: i32) -> i32
}

func wireRuntime(m *module, gasBudget int64) runtime {
	var rt runtime
	rt.globalGas = uint32(len(m.globals))
	m.globals = append(m.globals, global{valType: valI64, mutable: true, initI64: gasBudget})
	rt.globalTip = uint32(len(m.globals))
	m.globals = append(m.globals, global{valType: valI32, mutable: true, initI32: reservedZeroPage})
	rt.globalRoot = uint32(len(m.globals))
	m.globals = append(m.globals, global{valType: valI32, mutable: true, initI32: 0})
	rt.globalDerived = uint32(len(m.globals))
	m.globals = append(m.globals, global{valType: valI32, mutable: true, initI32: 0})

	rt.bumpAlloc = genBumpAlloc(m, rt)
	rt.valuesEqual = genValuesEqual(m, rt)
	rt.recordGet = genRecordGet(m, rt)
	rt.recordWith = genRecordWith(m, rt)
	rt.listAppend = genListAppend(m, rt)
	rt.listGet = genListGet(m, rt)
	rt.listLen = genListLen(m, rt)
	rt.boxNumber = genBoxNumber(m, rt)
	rt.unboxNumber = genUnboxNumber(m, rt)
	rt.boxBool = genBoxBool(m, rt)
	rt.unboxBool = genUnboxBool(m, rt)
	rt.stringConcat = genStringConcat(m, rt)
	return rt
}

// genListLen emits `(list: i32) -> i32`: the element count packed into
// the header's len_or_variant field.
func genListLen(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32}, []byte{valI32})
	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	m.setBody(idx, f.encode())
	return idx
}

// genListGet emits `(list: i32, idx: i32) -> i32`: the element pointer at
// idx with no bounds check, used internally to destructure argument lists
// for lambda/HOF calls (see compiler.go's uniform calling convention).
// Bounds-checked, trapping indexing for a source-level `x[i]` expression
// is emitted directly at the call site instead (see expr.go), since only
// there is a trap the correct response to an out-of-range index.
func genListGet(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(1)
	f.i32Const(4)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.i32Load(0)
	m.setBody(idx, f.encode())
	return idx
}

// genBoxNumber emits `(v: f64) -> i32`: allocates a Number header and
// stores v in the trailing 8 bytes, for arithmetic results that are not
// known at compile time (see constPool.number for the compile-time-known
// literal case).
func genBoxNumber(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valF64}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valF64}, []byte{valI32})
	ptr := f.newLocal(valI32)
	f.i32Const(headerSize)
	f.call(rt.bumpAlloc)
	f.localTee(ptr)
	f.i32Const(int32(tagNumber))
	f.i32Store(0)
	f.localGet(ptr)
	f.addOffset(8)
	f.localGet(0)
	f.f64Store(0)
	f.localGet(ptr)
	m.setBody(idx, f.encode())
	return idx
}

func genUnboxNumber(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32}, results: []byte{valF64}})
	f := newFuncBuilder([]byte{valI32}, []byte{valF64})
	f.localGet(0)
	f.addOffset(8)
	f.f64Load(0)
	m.setBody(idx, f.encode())
	return idx
}

func genBoxBool(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32}, []byte{valI32})
	ptr := f.newLocal(valI32)
	f.i32Const(headerSize)
	f.call(rt.bumpAlloc)
	f.localTee(ptr)
	f.i32Const(int32(tagBool))
	f.i32Store(0)
	f.localGet(ptr)
	f.addOffset(8)
	f.localGet(0)
	f.emit(opI64ExtendI32S)
	f.i64Store(0)
	f.localGet(ptr)
	m.setBody(idx, f.encode())
	return idx
}

func genUnboxBool(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32}, []byte{valI32})
	f.localGet(0)
	f.addOffset(8)
	f.i64Load(0)
	f.emit(opI32WrapI64)
	m.setBody(idx, f.encode())
	return idx
}

// genStringConcat emits `(a: i32, b: i32) -> i32`: allocates a String
// header sized for both operands' bytes and copies each run, used to
// desugar interpolated-string literals.
func genStringConcat(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	lenA := f.newLocal(valI32)
	lenB := f.newLocal(valI32)
	out := f.newLocal(valI32)
	i := f.newLocal(valI32)

	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(lenA)
	f.loadI32At(1, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(lenB)

	f.localGet(lenA)
	f.localGet(lenB)
	f.emit(opI32Add)
	f.i32Const(headerSize)
	f.emit(opI32Add)
	f.call(rt.bumpAlloc)
	f.localSet(out)

	f.localGet(out)
	f.i32Const(int32(tagString))
	f.localGet(lenA)
	f.localGet(lenB)
	f.emit(opI32Add)
	f.i32Const(16)
	f.emit(opI32Shl)
	f.emit(opI32Or)
	f.i32Store(0)

	// copy a's bytes then b's bytes, one byte at a time; string payloads
	// are short UI/log text in practice so a byte loop is adequate.
	f.i32Const(0)
	f.localSet(i)
	f.beginBlock()
	f.beginLoop()
	f.localGet(i)
	f.localGet(lenA)
	f.emit(opI32GeS)
	f.brIf(1)
	f.localGet(out)
	f.addOffset(headerSize)
	f.localGet(i)
	f.emit(opI32Add)
	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(i)
	f.emit(opI32Add)
	f.i32Load8U()
	f.i32Store8()
	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end()
	f.end()

	f.i32Const(0)
	f.localSet(i)
	f.beginBlock()
	f.beginLoop()
	f.localGet(i)
	f.localGet(lenB)
	f.emit(opI32GeS)
	f.brIf(1)
	f.localGet(out)
	f.addOffset(headerSize)
	f.localGet(lenA)
	f.emit(opI32Add)
	f.localGet(i)
	f.emit(opI32Add)
	f.localGet(1)
	f.addOffset(headerSize)
	f.localGet(i)
	f.emit(opI32Add)
	f.i32Load8U()
	f.i32Store8()
	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end()
	f.end()

	f.localGet(out)
	m.setBody(idx, f.encode())
	return idx
}

// genListAppend emits `(list: i32, val: i32) -> i32`: allocates a new
// list one slot larger, copies every element pointer, and writes val
// at the end. Used for list literals, `list.push`, and expanding a
// UIFor's children.
func genListAppend(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	count := f.newLocal(valI32)
	newList := f.newLocal(valI32)
	i := f.newLocal(valI32)

	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(count)

	f.localGet(count)
	f.i32Const(1)
	f.emit(opI32Add)
	f.i32Const(4)
	f.emit(opI32Mul)
	f.i32Const(headerSize)
	f.emit(opI32Add)
	f.call(rt.bumpAlloc)
	f.localSet(newList)

	f.i32Const(0)
	f.localSet(i)
	f.beginBlock()
	f.beginLoop()
	f.localGet(i)
	f.localGet(count)
	f.emit(opI32GeS)
	f.brIf(1)

	f.localGet(newList)
	f.addOffset(headerSize)
	f.localGet(i)
	f.i32Const(4)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(i)
	f.i32Const(4)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.i32Load(0)
	f.i32Store(0)

	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end() // loop
	f.end() // block

	f.localGet(newList)
	f.addOffset(headerSize)
	f.localGet(count)
	f.i32Const(4)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.localGet(1)
	f.i32Store(0)

	f.localGet(newList)
	f.i32Const(int32(tagList))
	f.localGet(count)
	f.i32Const(1)
	f.emit(opI32Add)
	f.i32Const(16)
	f.emit(opI32Shl)
	f.emit(opI32Or)
	f.i32Store(0)

	f.localGet(newList)
	m.setBody(idx, f.encode())
	return idx
}

// genBumpAlloc emits `(size: i32) -> i32`: returns the current tip,
// advances it by size, and grows memory by one page whenever the new
// tip crosses a page boundary. Over-growing by a page on the crossing
// allocation is harmless; it only affects page count, never content,
// so it does not threaten the determinism contract.
func genBumpAlloc(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32}, []byte{valI32})
	ptr := f.newLocal(valI32)
	newTip := f.newLocal(valI32)

	f.globalGet(rt.globalTip)
	f.localSet(ptr)

	f.globalGet(rt.globalTip)
	f.localGet(0)
	f.emit(opI32Add)
	f.localTee(newTip)
	f.globalSet(rt.globalTip)

	// if (newTip >> 16) >= memory.size(): memory.grow(1)
	f.localGet(newTip)
	f.i32Const(16)
	f.emit(opI32ShrU)
	f.emit(opMemorySize)
	f.emit(opI32GeS)
	f.beginIf()
	f.i32Const(1)
	f.emit(opMemoryGrow)
	f.emit(opDrop)
	f.end()

	f.localGet(ptr)
	m.setBody(idx, f.encode())
	return idx
}

// genValuesEqual emits `(a: i32, b: i32) -> i32`: deep structural
// compare, walking List/Record element-by-element via
// self-recursion and treating Function values as always unequal. Every
// exit path is a direct `return`, so no branch ever needs to reason
// about loop-vs-block target semantics.
func genValuesEqual(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	tagA := f.newLocal(valI32)
	tagB := f.newLocal(valI32)
	i := f.newLocal(valI32)
	count := f.newLocal(valI32)

	f.loadI32At(0, 0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.localSet(tagA)
	f.loadI32At(1, 0)
	f.i32Const(0xFF)
	f.emit(opI32And)
	f.localSet(tagB)

	f.localGet(tagA)
	f.localGet(tagB)
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()

	f.localGet(tagA)
	f.i32Const(int32(tagFunction))
	f.emit(opI32Eq)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()

	// Lists store one 4-byte value pointer per slot; Records store
	// 8-byte (nameId, valuePtr) pairs (see genRecordGet/genRecordWith).
	// Both share the same "compare stride-N elements, recurse on the
	// value pointer" shape, parameterized by the element stride and
	// the byte offset of the value pointer within one element.
	compareElements := func(elemTag byte, stride, valueOff int32) {
		f.localGet(tagA)
		f.i32Const(int32(elemTag))
		f.emit(opI32Eq)
		f.beginIf()
		f.loadI32At(0, 2)
		f.i32Const(0xFFFF)
		f.emit(opI32And)
		f.localSet(count)
		f.i32Const(0)
		f.localSet(i)
		f.beginLoop()

		f.localGet(i)
		f.localGet(count)
		f.emit(opI32GeS)
		f.beginIf()
		f.i32Const(1)
		f.emit(opReturn)
		f.end()

		f.localGet(0)
		f.addOffset(headerSize + valueOff)
		f.localGet(i)
		f.i32Const(stride)
		f.emit(opI32Mul)
		f.emit(opI32Add)
		f.i32Load(0)
		f.localGet(1)
		f.addOffset(headerSize + valueOff)
		f.localGet(i)
		f.i32Const(stride)
		f.emit(opI32Mul)
		f.emit(opI32Add)
		f.i32Load(0)
		f.call(rt.valuesEqual)
		f.emit(opI32Eqz)
		f.beginIf()
		f.i32Const(0)
		f.emit(opReturn)
		f.end()

		f.localGet(i)
		f.i32Const(1)
		f.emit(opI32Add)
		f.localSet(i)
		f.br(0)
		f.end() // loop
		f.end() // if elemTag
	}
	compareElements(tagList, 4, 0)
	compareElements(tagRecord, 8, 4)

	// String: byte length must match, then every byte, since the raw
	// content lives at ptr+headerSize, not in the inline aux word.
	f.localGet(tagA)
	f.i32Const(int32(tagString))
	f.emit(opI32Eq)
	f.beginIf()
	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(count)
	f.loadI32At(1, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localGet(count)
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()
	f.i32Const(0)
	f.localSet(i)
	f.beginBlock()
	f.beginLoop()
	f.localGet(i)
	f.localGet(count)
	f.emit(opI32GeS)
	f.brIf(1)
	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(i)
	f.emit(opI32Add)
	f.i32Load8U()
	f.localGet(1)
	f.addOffset(headerSize)
	f.localGet(i)
	f.emit(opI32Add)
	f.i32Load8U()
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()
	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end() // loop
	f.end() // block
	f.i32Const(1)
	f.emit(opReturn)
	f.end() // if tagString

	// Result: isErr flag (len_or_variant) must match and the payload
	// pointers must compare equal (recursively, so a Result carrying a
	// record still deep-compares).
	f.localGet(tagA)
	f.i32Const(int32(tagResult))
	f.emit(opI32Eq)
	f.beginIf()
	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.loadI32At(1, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()
	f.loadI32At(0, 4)
	f.loadI32At(1, 4)
	f.call(rt.valuesEqual)
	f.emit(opReturn)
	f.end() // if tagResult

	// Variant: interned tag id (len_or_variant) must match and any
	// payload record pointers must compare equal; a bare tag stores 0
	// in payload, which compares equal to itself trivially.
	f.localGet(tagA)
	f.i32Const(int32(tagVariant))
	f.emit(opI32Eq)
	f.beginIf()
	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.loadI32At(1, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.emit(opI32Ne)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()
	f.loadI32At(0, 4)
	f.loadI32At(1, 4)
	f.call(rt.valuesEqual)
	f.emit(opReturn)
	f.end() // if tagVariant

	// Number/Bool/Color: the inline scalar lives in the trailing 8
	// bytes (aux), written directly by boxNumber/boxBool and by
	// constPool.number/constPool.boolean.
	f.loadI64At(0, 8)
	f.loadI64At(1, 8)
	f.emit(opI64Eq)
	m.setBody(idx, f.encode())
	return idx
}

// genRecordGet emits `(rec: i32, nameId: i32) -> i32`: linear-scans the
// record's (nameId, valuePtr) pairs and returns the matching valuePtr,
// or 0 (the reserved null pointer, see layout.go) if nameId is absent
// — used for optional-field reads, which the checker types as `T |
// nil` precisely so a missing field reads as PEPL's `nil`.
func genRecordGet(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32}, []byte{valI32})
	count := f.newLocal(valI32)
	i := f.newLocal(valI32)

	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(count)
	f.i32Const(0)
	f.localSet(i)
	f.beginLoop()

	f.localGet(i)
	f.localGet(count)
	f.emit(opI32GeS)
	f.beginIf()
	f.i32Const(0)
	f.emit(opReturn)
	f.end()

	// pairAddr = rec + headerSize + i*8
	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(i)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.i32Load(0) // nameId at pair+0

	f.localGet(1)
	f.emit(opI32Eq)
	f.beginIf()
	f.localGet(0)
	f.addOffset(headerSize + 4)
	f.localGet(i)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.i32Load(0) // valuePtr at pair+4
	f.emit(opReturn)
	f.end()

	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end()

	f.i32Const(0)
	m.setBody(idx, f.encode())
	return idx
}

// genRecordWith emits `(rec: i32, nameId: i32, newVal: i32) -> i32`:
// allocates a fresh record with every (nameId, valuePtr) pair copied
// from rec except nameId's, whose valuePtr becomes newVal. If nameId
// is not already present the pair is appended, so this also serves
// record construction one field at a time.
func genRecordWith(m *module, rt runtime) uint32 {
	idx := m.reserveFunc(funcType{params: []byte{valI32, valI32, valI32}, results: []byte{valI32}})
	f := newFuncBuilder([]byte{valI32, valI32, valI32}, []byte{valI32})
	count := f.newLocal(valI32)
	newRec := f.newLocal(valI32)
	i := f.newLocal(valI32)
	found := f.newLocal(valI32)
	srcPair := f.newLocal(valI32)
	dstPair := f.newLocal(valI32)

	f.loadI32At(0, 2)
	f.i32Const(0xFFFF)
	f.emit(opI32And)
	f.localSet(count)

	// Allocate room for count+1 pairs; the +1 slot is wasted when
	// nameId already exists, which the allocator's append-only nature
	// makes cheap to accept in exchange for one shared code path
	// handling both "replace" and "append a new field".
	f.localGet(count)
	f.i32Const(1)
	f.emit(opI32Add)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.i32Const(headerSize)
	f.emit(opI32Add)
	f.call(rt.bumpAlloc)
	f.localSet(newRec)

	f.i32Const(0)
	f.localSet(found)
	f.i32Const(0)
	f.localSet(i)

	f.beginBlock()
	f.beginLoop()
	f.localGet(i)
	f.localGet(count)
	f.emit(opI32GeS)
	f.brIf(1)

	f.localGet(0)
	f.addOffset(headerSize)
	f.localGet(i)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.localSet(srcPair)
	f.localGet(newRec)
	f.addOffset(headerSize)
	f.localGet(i)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.localSet(dstPair)

	f.localGet(srcPair)
	f.i32Load(0)
	f.localGet(1)
	f.emit(opI32Eq)
	f.beginIf()
	f.localGet(dstPair)
	f.localGet(1)
	f.i32Store(0)
	f.localGet(dstPair)
	f.addOffset(4)
	f.localGet(2)
	f.i32Store(0)
	f.i32Const(1)
	f.localSet(found)
	f.beginElse()
	f.localGet(dstPair)
	f.localGet(srcPair)
	f.i32Load(0)
	f.i32Store(0)
	f.localGet(dstPair)
	f.addOffset(4)
	f.localGet(srcPair)
	f.addOffset(4)
	f.i32Load(0)
	f.i32Store(0)
	f.end()

	f.localGet(i)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(i)
	f.br(0)
	f.end() // loop
	f.end() // block

	// found == 0: append (nameId, newVal) as the count'th pair and
	// grow the header count by one.
	f.localGet(found)
	f.emit(opI32Eqz)
	f.beginIf()
	f.localGet(newRec)
	f.addOffset(headerSize)
	f.localGet(count)
	f.i32Const(8)
	f.emit(opI32Mul)
	f.emit(opI32Add)
	f.localSet(dstPair)
	f.localGet(dstPair)
	f.localGet(1)
	f.i32Store(0)
	f.localGet(dstPair)
	f.addOffset(4)
	f.localGet(2)
	f.i32Store(0)
	f.localGet(count)
	f.i32Const(1)
	f.emit(opI32Add)
	f.localSet(count)
	f.end()

	// header word0 = tag(Record) | (count << 16)
	f.localGet(newRec)
	f.i32Const(int32(tagRecord))
	f.localGet(count)
	f.i32Const(16)
	f.emit(opI32Shl)
	f.emit(opI32Or)
	f.i32Store(0)

	f.localGet(newRec)
	m.setBody(idx, f.encode())
	return idx
}
