package wasm

import (
	"fmt"

	"pepl/internal/diag"
)

// sourceMap records one (line, column) pair per compiled statement, in
// the order the statements are lowered. It stores no code-section byte
// offset and no function index, only the statement positions themselves.
type sourceMap struct {
	entries []sourceMapEntry
}

type sourceMapEntry struct {
	line, col int
}

func newSourceMap() *sourceMap { return &sourceMap{} }

// mark records sp against the next entry; codegen calls this once per
// statement (see stmt.go), not per expression, matching the granularity
// a trap message needs.
func (s *sourceMap) mark(sp diag.Span) {
	s.entries = append(s.entries, sourceMapEntry{line: sp.Start.Line, col: sp.Start.Column})
}

// encode emits a custom-section-ready byte sequence: a count followed by
// (line, col) varint pairs in mark() call order, which is also
// instruction-stream order since every statement marks itself before its
// own code is emitted.
func (s *sourceMap) encode() []byte {
	var buf []byte
	buf = appendULEB(buf, uint64(len(s.entries)))
	for _, e := range s.entries {
		buf = appendULEB(buf, uint64(e.line))
		buf = appendULEB(buf, uint64(e.col))
	}
	return buf
}

// SourceMapEntry is one decoded (line, column) pair from a module's
// source map custom section, in emission order (see mark).
type SourceMapEntry struct {
	Line, Col int
}

// DecodeSourceMap parses the byte sequence encode produces, for external
// tooling (a disassembler, a trap-to-source-line mapper) that has a
// CompileResult.SourceMap but not the compiler that produced it.
func DecodeSourceMap(b []byte) ([]SourceMapEntry, error) {
	count, n, err := readULEB(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]
	out := make([]SourceMapEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		line, n, err := readULEB(b)
		if err != nil {
			return nil, fmt.Errorf("source map entry %d: %w", i, err)
		}
		b = b[n:]
		col, n, err := readULEB(b)
		if err != nil {
			return nil, fmt.Errorf("source map entry %d: %w", i, err)
		}
		b = b[n:]
		out = append(out, SourceMapEntry{Line: int(line), Col: int(col)})
	}
	return out, nil
}

// readULEB decodes one LEB128-unsigned varint from the front of b,
// returning its value and the number of bytes consumed.
func readULEB(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, by := range b {
		result |= uint64(by&0x7f) << shift
		if by&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("source map: varint too long")
		}
	}
	return 0, 0, fmt.Errorf("source map: truncated varint")
}
