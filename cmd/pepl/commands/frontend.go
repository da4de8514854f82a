// cmd/pepl/commands/frontend.go
package commands

import (
	"fmt"
	"os"

	"pepl/internal/ast"
	"pepl/internal/checker"
	"pepl/internal/diag"
	"pepl/internal/lexer"
	"pepl/internal/parser"
)

// loadSpace runs the front end (lex, parse, check) the way
// internal/pipeline's own frontEnd does, returning the checked space so
// run/view/test can hand it straight to the reference evaluator without
// going through a wasm-producing Compile call they don't need.
func loadSpace(filename string) (*ast.SpaceDecl, checker.Result, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, checker.Result{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	sf := diag.NewSourceFile(filename, string(source))
	lr := lexer.New(sf).Scan()
	pr := parser.New(sf, lr.Tokens).Parse()
	var cr checker.Result
	if pr.Program != nil {
		cr = checker.New(sf).Check(pr.Program)
	}
	allDiags := append(append([]*diag.Diagnostic{}, lr.Errors...), pr.Errors...)
	allDiags = append(allDiags, cr.Errors...)
	cr.Errors = allDiags

	errCount := 0
	for _, d := range allDiags {
		if d.Severity != diag.SeverityWarning {
			errCount++
		}
	}
	if errCount > 0 || pr.Program == nil || pr.Program.Space == nil {
		return nil, cr, fmt.Errorf("%d error(s)", errCount)
	}
	return pr.Program.Space, cr, nil
}

// loadProgram is loadSpace plus the program's top-level test blocks,
// needed by TestCommand only.
func loadProgram(filename string) (*ast.Program, checker.Result, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, checker.Result{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	sf := diag.NewSourceFile(filename, string(source))
	lr := lexer.New(sf).Scan()
	pr := parser.New(sf, lr.Tokens).Parse()
	var cr checker.Result
	if pr.Program != nil {
		cr = checker.New(sf).Check(pr.Program)
	}
	allDiags := append(append([]*diag.Diagnostic{}, lr.Errors...), pr.Errors...)
	allDiags = append(allDiags, cr.Errors...)
	cr.Errors = allDiags

	errCount := 0
	for _, d := range allDiags {
		if d.Severity != diag.SeverityWarning {
			errCount++
		}
	}
	if errCount > 0 || pr.Program == nil || pr.Program.Space == nil {
		return pr.Program, cr, fmt.Errorf("%d error(s)", errCount)
	}
	return pr.Program, cr, nil
}
