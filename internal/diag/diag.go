package diag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Severity distinguishes hard failures from advisory diagnostics.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category groups a diagnostic code by the compiler stage that raised it,
// matching the compiler's documented error-code ranges.
type Category string

const (
	CategorySyntax     Category = "syntax"
	CategoryType       Category = "type"
	CategoryInvariant  Category = "invariant"
	CategoryCapability Category = "capability"
	CategoryScope      Category = "scope"
	CategoryStructural Category = "structural"
	CategoryInternal   Category = "internal"
)

// Code ranges, per §4.1: E100-E199 syntax, E200-E299 type, E300-E399
// invariant, E400-E499 capability/UI, E500-E599 scope, E600-E699 structural.
// Codes an implementer must emit keep their documented number; extra codes this
// implementation needs (unterminated strings, bad escapes, ...) take unused
// numbers in the same range.
const (
	ErrUnknownCharacter   = "E100"
	ErrSetNotStateField   = "E101" // set targets a name that is not a declared state field
	ErrUnterminatedString = "E110"
	ErrBadEscape          = "E111"
	ErrNestedInterp       = "E112"
	ErrChainedCompare     = "E113"
	ErrUnexpectedToken    = "E114"

	ErrAnyNotAllowed = "E200" // `any` rejected in a user type annotation
	ErrTypeMismatch  = "E201"
	ErrBadArity              = "E202"
	ErrUnknownType           = "E204"
	ErrUnknownField          = "E205"
	ErrNotCallable           = "E206"
	ErrNotIndexable          = "E207"
	ErrBadOperandType        = "E208"
	ErrBadNilCoalesce        = "E209"
	ErrNonExhaustive         = "E210"
	ErrBadResultUnwrap       = "E211"

	ErrDerivedRefInInvariant = "E300" // invariant expression references a derived field
	ErrDerivedCycle          = "E301" // derived fields reference each other out of order / cyclically
	ErrImpureStateInit       = "E302"

	ErrUnknownCapabilityCall  = "E400" // capability call not permitted by declared capabilities
	ErrCapabilityUnavailable  = "E401"
	ErrUnknownComponent       = "E402"
	ErrUnknownActionRef       = "E403"

	ErrShadowedBinding   = "E500"
	ErrSetOutsideAction  = "E501"
	ErrRecursionDetected = "E502"

	ErrBlockOrder            = "E600"
	ErrSetTargetsDerived     = "E601"
	ErrLambdaBodyMustBeBlock = "E602"
	ErrBlockComment          = "E603"
	ErrCredentialNotDeclared = "E604"
	ErrCredentialAssigned    = "E605"
	ErrEmptyState            = "E606"
	ErrStructuralLimit       = "E607"

	ErrInternal = "E999"
)

// Diagnostic is the stable, serializable unit of compiler feedback
// described in §4.1/§6. SourceLine is captured verbatim at construction so
// renderers never need the SourceFile alive afterwards.
type Diagnostic struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	EndLine    int      `json:"end_line"`
	EndColumn  int      `json:"end_column"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Suggestion string   `json:"suggestion,omitempty"`
	SourceLine string   `json:"source_line"`
}

func categoryForCode(code string) Category {
	switch {
	case code >= "E100" && code < "E200":
		return CategorySyntax
	case code >= "E200" && code < "E300":
		return CategoryType
	case code >= "E300" && code < "E400":
		return CategoryInvariant
	case code >= "E400" && code < "E500":
		return CategoryCapability
	case code >= "E500" && code < "E600":
		return CategoryScope
	case code >= "E600" && code < "E700":
		return CategoryStructural
	default:
		return CategoryInternal
	}
}

// New builds an error-severity Diagnostic anchored at span, resolving the
// offending source line from sf.
func New(sf *SourceFile, code string, span Span, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Line:      span.Start.Line,
		Column:    span.Start.Column,
		EndLine:   span.End.Line,
		EndColumn: span.End.Column,
		Severity:  SeverityError,
		Category:  categoryForCode(code),
	}
	if sf != nil {
		d.SourceLine = sf.Line(span.Start.Line)
	}
	return d
}

// Warning builds a warning-severity Diagnostic.
func Warning(sf *SourceFile, code string, span Span, format string, args ...interface{}) *Diagnostic {
	d := New(sf, code, span, format, args...)
	d.Severity = SeverityWarning
	return d
}

// WithSuggestion attaches a fix-it suggestion and returns the receiver for
// chaining at the call site.
func (d *Diagnostic) WithSuggestion(s string) *Diagnostic {
	d.Suggestion = s
	return d
}

// Error implements the error interface with a caret-under-column
// rendering, the terminal shape every diagnostic falls back to without a
// --json flag.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Code, d.Message)
	if d.Line > 0 {
		fmt.Fprintf(&sb, "  at line %d, column %d\n", d.Line, d.Column)
		if d.SourceLine != "" {
			fmt.Fprintf(&sb, "\n  %d | %s\n", d.Line, d.SourceLine)
			gutter := len(fmt.Sprintf("%d | ", d.Line))
			sb.WriteString(strings.Repeat(" ", gutter))
			if d.Column > 0 {
				sb.WriteString(strings.Repeat(" ", d.Column-1))
			}
			sb.WriteString("^\n")
		}
	}
	if d.Suggestion != "" {
		fmt.Fprintf(&sb, "  suggestion: %s\n", d.Suggestion)
	}
	return sb.String()
}

// Bag collects diagnostics across a compilation stage, fail-fast bounded at
// 20 errors per §4.1. Warnings never count against the bound.
type Bag struct {
	items []*Diagnostic
	sf    *SourceFile
}

// NewBag creates an empty diagnostic bag attributed to sf (used to resolve
// source lines for diagnostics constructed via bag helper methods).
func NewBag(sf *SourceFile) *Bag {
	return &Bag{sf: sf}
}

const maxErrors = 20

// Add appends a diagnostic, ignoring warnings for the purpose of the
// fail-fast bound.
func (b *Bag) Add(d *Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf constructs and adds an error-severity diagnostic.
func (b *Bag) Errorf(code string, span Span, format string, args ...interface{}) *Diagnostic {
	d := New(b.sf, code, span, format, args...)
	b.Add(d)
	return d
}

// Warnf constructs and adds a warning-severity diagnostic.
func (b *Bag) Warnf(code string, span Span, format string, args ...interface{}) *Diagnostic {
	d := Warning(b.sf, code, span, format, args...)
	b.Add(d)
	return d
}

// Full reports whether the bag has reached the 20-error fail-fast bound
// (§4.1); callers should stop collecting once true.
func (b *Bag) Full() bool {
	return b.ErrorCount() >= maxErrors
}

// ErrorCount returns the number of error-severity (non-warning) diagnostics.
func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.items {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (b *Bag) HasErrors() bool {
	return b.ErrorCount() > 0
}

// All returns every diagnostic recorded, errors and warnings together, in
// the order they were added.
func (b *Bag) All() []*Diagnostic {
	return b.items
}

// Errors returns only error-severity diagnostics, in insertion order.
func (b *Bag) Errors() []*Diagnostic {
	out := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only warning-severity diagnostics, in insertion order.
func (b *Bag) Warnings() []*Diagnostic {
	out := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Internal wraps an unexpected toolchain failure (a WASM module that fails
// re-validation, an unreadable source file) as the single internal-error
// diagnostic surfaced per §7, preserving a stack trace via pkg/errors for
// anyone logging the underlying cause.
func Internal(cause error, format string, args ...interface{}) *Diagnostic {
	wrapped := errors.Wrapf(cause, format, args...)
	return &Diagnostic{
		Code:     ErrInternal,
		Message:  wrapped.Error(),
		Severity: SeverityError,
		Category: CategoryInternal,
	}
}
