// Package diag provides source-attributed diagnostics for the PEPL compiler.
package diag

import "strings"

// Position is a single point in a source file, both as a byte offset and
// as a human-facing line/column pair. Lines and columns are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Span is a half-open byte range within a single SourceFile, carried by
// every AST node and token for diagnostics and the WASM source map.
type Span struct {
	File  string
	Start Position
	End   Position
}

// Join returns the smallest span covering both a and b. Either side may be
// the zero Span, in which case the other is returned unchanged.
func Join(a, b Span) Span {
	if a.File == "" {
		return b
	}
	if b.File == "" {
		return a
	}
	s := a
	if b.Start.Offset < s.Start.Offset {
		s.Start = b.Start
	}
	if b.End.Offset > s.End.Offset {
		s.End = b.End
	}
	return s
}

// SourceFile holds the full text of one PEPL source unit and a precomputed
// line-start index used to resolve byte offsets to line/column pairs. PEPL
// compiles exactly one file per run (§1 non-goals: no separate compilation
// units), so this is the only source-location authority in the pipeline.
type SourceFile struct {
	Name       string
	Text       string
	lineStarts []int
}

// NewSourceFile indexes the line starts of text once, up front, so span
// resolution during lexing/parsing/checking is O(log n) per lookup.
func NewSourceFile(name, text string) *SourceFile {
	sf := &SourceFile{Name: name, Text: text}
	sf.lineStarts = []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			sf.lineStarts = append(sf.lineStarts, i+1)
		}
	}
	return sf
}

// PositionAt resolves a byte offset into a Position via binary search over
// the line-start index.
func (sf *SourceFile) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(sf.Text) {
		offset = len(sf.Text)
	}
	lo, hi := 0, len(sf.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if sf.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line := lo
	col := offset - sf.lineStarts[line]
	return Position{Offset: offset, Line: line + 1, Column: col + 1}
}

// Span builds a Span for [start,end) in this file.
func (sf *SourceFile) Span(start, end int) Span {
	return Span{File: sf.Name, Start: sf.PositionAt(start), End: sf.PositionAt(end)}
}

// Line returns the verbatim text of a 1-based line number, stripped of its
// trailing newline, or "" if out of range.
func (sf *SourceFile) Line(n int) string {
	if n < 1 || n > len(sf.lineStarts) {
		return ""
	}
	start := sf.lineStarts[n-1]
	end := len(sf.Text)
	if n < len(sf.lineStarts) {
		end = sf.lineStarts[n]
	}
	return strings.TrimRight(sf.Text[start:end], "\r\n")
}
