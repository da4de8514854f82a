package wasm

// nameTable interns field, variant, module, and function names into
// small integers so records can be compared and looked up by a single
// i32 nameId at runtime instead of a string (see runtime.go). IDs are
// assigned in first-seen order, which is deterministic for a fixed
// AST traversal order.
type nameTable struct {
	ids   map[string]int32
	order []string
}

func newNameTable() *nameTable {
	return &nameTable{ids: map[string]int32{}}
}

func (nt *nameTable) intern(name string) int32 {
	if id, ok := nt.ids[name]; ok {
		return id
	}
	id := int32(len(nt.order))
	nt.ids[name] = id
	nt.order = append(nt.order, name)
	return id
}

// encode emits the name table as a custom section: a count followed by
// length-prefixed UTF-8 strings in ID order, so a host (or the CLI's
// disassembler) can resolve a nameId back to source text without
// re-running the compiler.
func (nt *nameTable) encode() []byte {
	var buf []byte
	buf = appendULEB(buf, uint64(len(nt.order)))
	for _, s := range nt.order {
		buf = appendName(buf, s)
	}
	return buf
}
