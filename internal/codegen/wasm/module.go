package wasm

// funcType is one entry of the type section: a function signature.
type funcType struct {
	params  []byte
	results []byte
}

func (t funcType) encode() []byte {
	buf := []byte{0x60} // func type tag
	buf = appendULEB(buf, uint64(len(t.params)))
	buf = append(buf, t.params...)
	buf = appendULEB(buf, uint64(len(t.results)))
	buf = append(buf, t.results...)
	return buf
}

// importDesc is one entry of the import section.
type importDesc struct {
	module, name string
	typeIdx      uint32
}

// exportDesc is one entry of the export section. kind: 0=func, 1=table,
// 2=mem, 3=global.
type exportDesc struct {
	name string
	kind byte
	idx  uint32
}

// global is one entry of the global section.
type global struct {
	valType byte
	mutable bool
	initI32 int32
	initI64 int64
}

func (g global) encode() []byte {
	buf := []byte{g.valType}
	if g.mutable {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	switch g.valType {
	case valI64:
		buf = append(buf, opI64Const)
		buf = appendSLEB(buf, g.initI64)
	default:
		buf = append(buf, opI32Const)
		buf = appendSLEB(buf, int64(g.initI32))
	}
	buf = append(buf, opEnd)
	return buf
}

// dataSeg is one entry of the data section: bytes placed at a fixed
// offset in linear memory at instantiation, used for string/constant
// pools built at compile time.
type dataSeg struct {
	offset uint32
	bytes  []byte
}

// module accumulates every section of one compiled unit and assembles
// the final binary. Sections are emitted in the fixed order the format
// requires regardless of the order fields are populated here.
type module struct {
	types   []funcType
	imports []importDesc
	// funcs holds, for each locally-defined function (import functions
	// are not included here), the index into types.
	funcs    []uint32
	table    bool // one funcref table for indirect calls (lambdas, HOFs)
	tableMin uint32
	memPages uint32
	globals  []global
	exports  []exportDesc
	elems    []uint32 // function indices placed into the table, in order
	code     [][]byte // one encoded function body per entry in funcs
	data     []dataSeg
	custom   []struct {
		name  string
		bytes []byte
	}
}

func (m *module) addType(t funcType) uint32 {
	for i, existing := range m.types {
		if sameSig(existing, t) {
			return uint32(i)
		}
	}
	m.types = append(m.types, t)
	return uint32(len(m.types) - 1)
}

func sameSig(a, b funcType) bool {
	if len(a.params) != len(b.params) || len(a.results) != len(b.results) {
		return false
	}
	for i := range a.params {
		if a.params[i] != b.params[i] {
			return false
		}
	}
	for i := range a.results {
		if a.results[i] != b.results[i] {
			return false
		}
	}
	return true
}

func (m *module) addImport(mod, name string, t funcType) uint32 {
	idx := m.addType(t)
	m.imports = append(m.imports, importDesc{module: mod, name: name, typeIdx: idx})
	return uint32(len(m.imports) - 1)
}

// addFunc registers a locally-defined function body and returns its
// global function index (imports occupy the low indices first, per the
// WASM index space rules).
func (m *module) addFunc(t funcType, body []byte) uint32 {
	idx := m.addType(t)
	m.funcs = append(m.funcs, idx)
	m.code = append(m.code, body)
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// reserveFunc allocates a function index before its body is known, so
// mutually- or self-recursive helpers (structural equality, nested
// update) can call themselves or each other by a fixed index. setBody
// fills in the placeholder once the body has been generated.
func (m *module) reserveFunc(t funcType) uint32 {
	idx := m.addType(t)
	m.funcs = append(m.funcs, idx)
	m.code = append(m.code, nil)
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

func (m *module) setBody(funcIdx uint32, body []byte) {
	m.code[int(funcIdx)-len(m.imports)] = body
}

// addTableEntry places funcIdx in the next free table slot (used for
// lambda/HOF-callback call_indirect targets) and returns that slot.
func (m *module) addTableEntry(funcIdx uint32) uint32 {
	slot := m.tableMin
	m.elems = append(m.elems, funcIdx)
	m.tableMin++
	return slot
}

func (m *module) addExport(name string, kind byte, idx uint32) {
	m.exports = append(m.exports, exportDesc{name: name, kind: kind, idx: idx})
}

func (m *module) addCustom(name string, bytes []byte) {
	m.custom = append(m.custom, struct {
		name  string
		bytes []byte
	}{name, bytes})
}

func encodeSection(id byte, payload []byte) []byte {
	out := []byte{id}
	out = appendULEB(out, uint64(len(payload)))
	return append(out, payload...)
}

// assemble serializes the module to a WASM binary: magic, version, then
// every section in the fixed order, skipping any that would be empty.
func (m *module) assemble() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		var entries [][]byte
		for _, t := range m.types {
			entries = append(entries, t.encode())
		}
		out = append(out, encodeSection(secType, vec(entries))...)
	}

	if len(m.imports) > 0 {
		var entries [][]byte
		for _, im := range m.imports {
			var b []byte
			b = appendName(b, im.module)
			b = appendName(b, im.name)
			b = append(b, 0x00) // func import kind
			b = appendULEB(b, uint64(im.typeIdx))
			entries = append(entries, b)
		}
		out = append(out, encodeSection(secImport, vec(entries))...)
	}

	if len(m.funcs) > 0 {
		var entries [][]byte
		for _, idx := range m.funcs {
			entries = append(entries, appendULEB(nil, uint64(idx)))
		}
		out = append(out, encodeSection(secFunction, vec(entries))...)
	}

	if m.table {
		var b []byte
		b = append(b, 0x70) // funcref
		b = append(b, 0x00) // flags: min only
		b = appendULEB(b, uint64(m.tableMin))
		out = append(out, encodeSection(secTable, vec([][]byte{b}))...)
	}

	if m.memPages > 0 {
		var b []byte
		b = append(b, 0x00)
		b = appendULEB(b, uint64(m.memPages))
		out = append(out, encodeSection(secMemory, vec([][]byte{b}))...)
	}

	if len(m.globals) > 0 {
		var entries [][]byte
		for _, g := range m.globals {
			entries = append(entries, g.encode())
		}
		out = append(out, encodeSection(secGlobal, vec(entries))...)
	}

	if len(m.exports) > 0 {
		var entries [][]byte
		for _, ex := range m.exports {
			var b []byte
			b = appendName(b, ex.name)
			b = append(b, ex.kind)
			b = appendULEB(b, uint64(ex.idx))
			entries = append(entries, b)
		}
		out = append(out, encodeSection(secExport, vec(entries))...)
	}

	if len(m.elems) > 0 {
		var b []byte
		b = appendULEB(b, 0) // table index 0, active segment
		b = append(b, opI32Const)
		b = appendSLEB(b, 0)
		b = append(b, opEnd)
		var idxs []byte
		idxs = appendULEB(idxs, uint64(len(m.elems)))
		for _, fi := range m.elems {
			idxs = appendULEB(idxs, uint64(fi))
		}
		b = append(b, idxs...)
		out = append(out, encodeSection(secElement, vec([][]byte{b}))...)
	}

	if len(m.code) > 0 {
		var entries [][]byte
		for _, body := range m.code {
			sized := appendULEB(nil, uint64(len(body)))
			sized = append(sized, body...)
			entries = append(entries, sized)
		}
		out = append(out, encodeSection(secCode, vec(entries))...)
	}

	if len(m.data) > 0 {
		var entries [][]byte
		for _, d := range m.data {
			var b []byte
			b = appendULEB(b, 0) // memory index 0
			b = append(b, opI32Const)
			b = appendSLEB(b, int64(d.offset))
			b = append(b, opEnd)
			b = appendULEB(b, uint64(len(d.bytes)))
			b = append(b, d.bytes...)
			entries = append(entries, b)
		}
		out = append(out, encodeSection(secData, vec(entries))...)
	}

	for _, c := range m.custom {
		var b []byte
		b = appendName(b, c.name)
		b = append(b, c.bytes...)
		out = append(out, encodeSection(secCustom, b)...)
	}

	return out
}
