package wasm

import "fmt"

// validate performs structural sanity checks over the accumulated module
// before assembly. None of the example repos in this codebase's corpus
// pull in a WASM parsing/validation library (there is no wasmtime/wazero/
// wasmparser dependency anywhere in the pack to ground one on), so this
// stays a small internal checker over Generator's own bookkeeping rather
// than a real bytecode validator — it catches the mistakes this
// package's own code generation could make (a reserved function index
// never given a body, a table/element/export index out of range), not
// arbitrary malformed WASM.
func (g *Generator) validate() error {
	m := g.m
	for i, body := range m.code {
		if body == nil {
			return fmt.Errorf("pepl/codegen/wasm: function index %d reserved but never given a body", uint32(len(m.imports))+uint32(i))
		}
	}
	totalFuncs := uint32(len(m.imports) + len(m.funcs))
	for _, fi := range m.elems {
		if fi >= totalFuncs {
			return fmt.Errorf("pepl/codegen/wasm: table element references out-of-range function index %d", fi)
		}
	}
	for _, ex := range m.exports {
		switch ex.kind {
		case 0: // func
			if ex.idx >= totalFuncs {
				return fmt.Errorf("pepl/codegen/wasm: export %q references out-of-range function index %d", ex.name, ex.idx)
			}
		case 3: // global
			if int(ex.idx) >= len(m.globals) {
				return fmt.Errorf("pepl/codegen/wasm: export %q references out-of-range global index %d", ex.name, ex.idx)
			}
		}
	}
	memLimit := m.memPages * 65536
	for _, d := range m.data {
		if uint64(d.offset)+uint64(len(d.bytes)) > uint64(memLimit) {
			return fmt.Errorf("pepl/codegen/wasm: data segment at offset %d (len %d) overruns %d-page memory", d.offset, len(d.bytes), m.memPages)
		}
	}
	seen := map[string]bool{}
	for _, ex := range m.exports {
		if seen[ex.name] {
			return fmt.Errorf("pepl/codegen/wasm: duplicate export name %q", ex.name)
		}
		seen[ex.name] = true
	}
	for _, req := range []string{"init", "get_state", "get_derived", "restore_state", "dispatch_action", "alloc", "dealloc"} {
		if !seen[req] {
			return fmt.Errorf("pepl/codegen/wasm: missing required export %q", req)
		}
	}
	return nil
}
