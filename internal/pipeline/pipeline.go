// Package pipeline is PEPL's library surface: the same
// lex -> parse -> check -> evaluate/generate sequence internal/eval's and
// internal/codegen/wasm's own tests drive by hand, wired up once here.
// cmd/pepl's build, check, reference and stdlib commands call it;
// internal/repl and cmd/pepl/commands/frontend.go run their own copy of
// the lex-parse-check front end instead.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"pepl/internal/ast"
	"pepl/internal/checker"
	"pepl/internal/codegen/wasm"
	"pepl/internal/diag"
	"pepl/internal/lexer"
	"pepl/internal/parser"
	"pepl/internal/reference"
	"pepl/internal/stdlib"
)

// LanguageVersion and CompilerVersion are surfaced verbatim in every
// CompileResult. CompilerVersion is an ldflags-overridable var rather
// than a const, so a release build can stamp a real build id in without
// a source edit.
const LanguageVersion = "0.1"

var CompilerVersion = "0.1.0-dev"

// Diagnostics wraps a diagnostic list in the `{errors: [...]}` envelope
// the errors field requires.
type Diagnostics struct {
	Errors []*diag.Diagnostic `json:"errors"`
}

// StateFieldInfo, ParamInfo, ActionInfo, ViewInfo, and CapabilitiesInfo
// are the summary shapes CompileResult exposes so a host can build a UI
// or dispatch table without re-parsing the source.
type StateFieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ParamInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ActionInfo struct {
	Name   string      `json:"name"`
	Params []ParamInfo `json:"params"`
}

type ViewInfo struct {
	Name string `json:"name"`
}

type CapabilitiesInfo struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

// AstSummary is CompileResult.ast: a JSON-serializable digest of the
// checked AST, not a full node-for-node dump. ast.Stmt/ast.Expr are
// interfaces with no json tags and no stable discriminator field, so a
// literal json.Marshal of the tree would lose every dynamic type; hosts
// that need the full tree already get it structurally via state_fields,
// actions, views, capabilities, and credentials, so this summary carries
// just the names.
type AstSummary struct {
	SpaceName    string             `json:"space_name"`
	StateFields  []StateFieldInfo   `json:"state_fields"`
	DerivedNames []string           `json:"derived_fields"`
	Invariants   int                `json:"invariant_count"`
	Actions      []ActionInfo       `json:"actions"`
	Views        []ViewInfo         `json:"views"`
	HasUpdate    bool               `json:"has_update"`
	HasHandle    bool               `json:"has_handle_event"`
}

// CompileOption configures a Compile call.
type CompileOption func(*compileOptions)

type compileOptions struct {
	gasBudget int64
}

// WithGasBudget overrides wasm.DefaultGasBudget for the generated
// module, the same way eval.WithGasBudget overrides a reference run's
// budget. Passing the same value to both is what keeps `pepl build
// --gas n` and `pepl run --gas n` exhausting gas on the same statement.
func WithGasBudget(n int64) CompileOption {
	return func(o *compileOptions) { o.gasBudget = n }
}

// CompileResult is the library surface's compile result.
type CompileResult struct {
	Success         bool               `json:"success"`
	Wasm            []byte             `json:"wasm,omitempty"`
	Errors          Diagnostics        `json:"errors"`
	AST             *AstSummary        `json:"ast,omitempty"`
	ASTHash         string             `json:"ast_hash,omitempty"`
	WasmHash        string             `json:"wasm_hash,omitempty"`
	StateFields     []StateFieldInfo   `json:"state_fields,omitempty"`
	Actions         []ActionInfo       `json:"actions,omitempty"`
	Views           []ViewInfo         `json:"views,omitempty"`
	Capabilities    *CapabilitiesInfo  `json:"capabilities,omitempty"`
	Credentials     []string           `json:"credentials,omitempty"`
	SourceMap       []byte             `json:"source_map,omitempty"`
	Warnings        []*diag.Diagnostic `json:"warnings"`
	LanguageVersion string             `json:"language_version"`
	CompilerVersion string             `json:"compiler_version"`
}

// frontEnd runs the lexer, parser, and checker, the part of the pipeline
// shared by Compile and TypeCheck. It returns as much as it can even on
// failure, since Compile still wants ast/errors for a failed CompileResult.
func frontEnd(source, filename string) (*ast.Program, checker.Result, *diag.SourceFile) {
	sf := diag.NewSourceFile(filename, source)
	lr := lexer.New(sf).Scan()
	pr := parser.New(sf, lr.Tokens).Parse()
	var cr checker.Result
	if pr.Program != nil {
		cr = checker.New(sf).Check(pr.Program)
	}
	allDiags := append(append([]*diag.Diagnostic{}, lr.Errors...), pr.Errors...)
	allDiags = append(allDiags, cr.Errors...)
	cr.Errors = allDiags
	return pr.Program, cr, sf
}

// splitDiags separates a mixed error/warning diagnostic list the way
// CompileResult needs it: errors block the compile, warnings never do.
func splitDiags(all []*diag.Diagnostic) (errs, warnings []*diag.Diagnostic) {
	for _, d := range all {
		if d.Severity == diag.SeverityWarning {
			warnings = append(warnings, d)
		} else {
			errs = append(errs, d)
		}
	}
	return errs, warnings
}

// TypeCheck runs the front end only and returns its diagnostics
// (`type_check(source, filename)` -> diagnostics). It never invokes the
// evaluator or the code generator.
func TypeCheck(source, filename string) []*diag.Diagnostic {
	_, cr, _ := frontEnd(source, filename)
	return cr.Errors
}

// Compile runs the full pipeline (`compile(source, filename)` ->
// CompileResult): front end, then WASM code generation if and only if
// the front end produced zero errors. A front-end failure still returns
// a populated CompileResult with Success=false and Errors filled in,
// never a Go error. A code generation failure after a clean check is
// reported the same way, as an internal-error diagnostic; the only Go
// error returned is a failure to marshal the AST summary.
func Compile(source, filename string, opts ...CompileOption) (*CompileResult, error) {
	o := compileOptions{gasBudget: wasm.DefaultGasBudget}
	for _, opt := range opts {
		opt(&o)
	}
	prog, cr, _ := frontEnd(source, filename)
	errs, warnings := splitDiags(cr.Errors)

	res := &CompileResult{
		Success:         len(errs) == 0,
		Errors:          Diagnostics{Errors: errs},
		Warnings:        warnings,
		LanguageVersion: LanguageVersion,
		CompilerVersion: CompilerVersion,
	}

	if !res.Success || prog == nil || prog.Space == nil {
		return res, nil
	}
	sp := prog.Space

	res.AST = buildAstSummary(sp)
	astBytes, err := json.Marshal(res.AST)
	if err != nil {
		return nil, errors.Wrap(err, "pepl/pipeline: marshaling ast summary")
	}
	res.ASTHash = hashHex(astBytes)

	res.StateFields = stateFieldInfos(sp, cr)
	res.Actions = actionInfos(sp)
	res.Views = viewInfos(sp)
	if sp.Capabilities != nil {
		res.Capabilities = &CapabilitiesInfo{
			Required: append([]string{}, sp.Capabilities.Required...),
			Optional: append([]string{}, sp.Capabilities.Optional...),
		}
	}
	if sp.Credentials != nil {
		res.Credentials = append([]string{}, sp.Credentials.Names...)
	}

	gen, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg, wasm.WithGasBudget(o.gasBudget))
	if err != nil {
		// The checker already accepted this program; a code generator
		// failure here means codegen and the checker disagree about what
		// counts as valid, an internal-error diagnostic.
		internalDiag := diag.Internal(err, "wasm code generation")
		res.Success = false
		res.Errors.Errors = append(res.Errors.Errors, internalDiag)
		return res, nil
	}

	res.Wasm = gen.Wasm
	res.SourceMap = gen.SourceMap
	res.WasmHash = hashHex(gen.Wasm)
	res.Actions = actionInfosFromIdx(sp, gen.ActionsIdx)
	return res, nil
}

// stdRegistry is the one stdlib registry shared by GetReference and
// GetStdlibTable: it carries no per-compile state (signatures and
// purity are fixed at registration, see internal/stdlib/functions.go),
// so a single instance built at package init is enough.
var stdRegistry = stdlib.New()

// GetReference returns the compressed language reference string
// (`get_reference()`): keywords plus every stdlib signature, intended
// for a host that cannot link the compiler itself.
func GetReference() string {
	return reference.Get(stdRegistry)
}

// GetStdlibTable returns a JSON array of every stdlib function's
// module, name, parameter types, return type, purity, and capability
// requirement (`get_stdlib_table()`).
func GetStdlibTable() ([]byte, error) {
	return stdRegistry.MarshalJSON()
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func buildAstSummary(sp *ast.SpaceDecl) *AstSummary {
	s := &AstSummary{
		SpaceName:  sp.Name,
		Invariants: len(sp.Invariants),
		Actions:    actionInfos(sp),
		Views:      viewInfos(sp),
		HasUpdate:  sp.Update != nil,
		HasHandle:  sp.HandleEvent != nil,
	}
	if sp.State != nil {
		for _, f := range sp.State.Fields {
			s.StateFields = append(s.StateFields, StateFieldInfo{Name: f.Name, Type: typeExprString(f.Type)})
		}
	}
	if sp.Derived != nil {
		for _, f := range sp.Derived.Fields {
			s.DerivedNames = append(s.DerivedNames, f.Name)
		}
	}
	return s
}

func stateFieldInfos(sp *ast.SpaceDecl, cr checker.Result) []StateFieldInfo {
	if sp.State == nil {
		return nil
	}
	out := make([]StateFieldInfo, 0, len(sp.State.Fields))
	for _, f := range sp.State.Fields {
		typ := typeExprString(f.Type)
		if t, ok := cr.StateTy[f.Name]; ok && t != nil {
			typ = t.String()
		}
		out = append(out, StateFieldInfo{Name: f.Name, Type: typ})
	}
	return out
}

func actionInfos(sp *ast.SpaceDecl) []ActionInfo {
	out := make([]ActionInfo, 0, len(sp.Actions))
	for _, a := range sp.Actions {
		out = append(out, ActionInfo{Name: a.Name, Params: paramInfos(a.Params)})
	}
	return out
}

// actionInfosFromIdx re-emits actionInfos in dispatch_action id order, so
// CompileResult.actions lines up positionally with the id the WASM ABI
// assigns each action.
func actionInfosFromIdx(sp *ast.SpaceDecl, idx map[string]int32) []ActionInfo {
	byName := map[string]*ast.ActionDecl{}
	for _, a := range sp.Actions {
		byName[a.Name] = a
	}
	out := make([]ActionInfo, len(idx))
	for name, id := range idx {
		a := byName[name]
		if a == nil {
			continue
		}
		out[id] = ActionInfo{Name: a.Name, Params: paramInfos(a.Params)}
	}
	return out
}

func viewInfos(sp *ast.SpaceDecl) []ViewInfo {
	out := make([]ViewInfo, 0, len(sp.Views))
	for _, v := range sp.Views {
		out = append(out, ViewInfo{Name: v.Name})
	}
	return out
}

func paramInfos(params []*ast.Param) []ParamInfo {
	out := make([]ParamInfo, 0, len(params))
	for _, p := range params {
		out = append(out, ParamInfo{Name: p.Name, Type: typeExprString(p.Type)})
	}
	return out
}

// typeExprString renders a type annotation the way it appeared in
// source, for hosts that want a display string without pulling in the
// checker's resolved internal/types.Type.
func typeExprString(t ast.TypeExpr) string {
	switch t := t.(type) {
	case nil:
		return "any"
	case *ast.NamedTypeExpr:
		return t.Name
	case *ast.ListTypeExpr:
		return "list<" + typeExprString(t.Elem) + ">"
	case *ast.ResultTypeExpr:
		return "Result<" + typeExprString(t.Ok) + "," + typeExprString(t.Err) + ">"
	case *ast.RecordTypeExpr:
		s := "record {"
		for i, f := range t.Fields {
			if i > 0 {
				s += ", "
			}
			s += f.Name
			if f.Optional {
				s += "?"
			}
			s += ": " + typeExprString(f.Type)
		}
		return s + "}"
	case *ast.FuncTypeExpr:
		s := "("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += typeExprString(p)
		}
		return s + ") -> " + typeExprString(t.Result)
	case *ast.NullableTypeExpr:
		return typeExprString(t.Inner) + " | nil"
	default:
		return "?"
	}
}
