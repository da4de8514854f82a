// cmd/pepl/commands/build.go
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"pepl/internal/codegen/wasm"
	"pepl/internal/diag"
	"pepl/internal/pipeline"
)

// BuildCommand compiles a space to a validated WebAssembly module via
// `compile(source, filename)`, writing the bytes to --out (default
// <file without .pepl>.wasm) and printing the CompileResult summary.
// --map additionally decodes the source map custom section to a
// companion <out>.map.json for external tooling.
func BuildCommand(args []string) error {
	pos, flags, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: pepl build <file.pepl> [--out path] [--gas n] [--json] [--map]")
	}
	filename := pos[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	var compileOpts []pipeline.CompileOption
	if flags.hasGas {
		compileOpts = append(compileOpts, pipeline.WithGasBudget(flags.gas))
	}
	res, err := pipeline.Compile(string(source), filename, compileOpts...)
	if err != nil {
		return err
	}

	if flags.json {
		return printJSON(res)
	}

	if !res.Success {
		printDiagnostics(res.Errors.Errors, !flags.noColor)
		return fmt.Errorf("compilation failed with %d error(s)", len(res.Errors.Errors))
	}
	printDiagnostics(res.Warnings, !flags.noColor)

	outPath := flags.out
	if outPath == "" {
		outPath = strings.TrimSuffix(filename, ".pepl") + ".wasm"
	}
	if err := os.WriteFile(outPath, res.Wasm, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if flags.mapOut {
		entries, err := wasm.DecodeSourceMap(res.SourceMap)
		if err != nil {
			return fmt.Errorf("decoding source map: %w", err)
		}
		mapPath := outPath + ".map.json"
		mapBytes, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(mapPath, mapBytes, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", mapPath, err)
		}
		fmt.Printf("  source map: %s\n", mapPath)
	}

	fmt.Printf("compiled %s -> %s (%s)\n", filename, outPath, humanize.Bytes(uint64(len(res.Wasm))))
	fmt.Printf("  ast hash:  %s\n", res.ASTHash)
	fmt.Printf("  wasm hash: %s\n", res.WasmHash)
	fmt.Printf("  actions: %d, views: %d, state fields: %d\n",
		len(res.Actions), len(res.Views), len(res.StateFields))
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printDiagnostics(ds []*diag.Diagnostic, color bool) {
	for _, d := range ds {
		fmt.Fprint(os.Stderr, renderDiagnostic(d, color))
	}
}

// renderDiagnostic matches diag.Diagnostic.Error's caret-under-column
// style, adding red/yellow severity coloring that --no-color turns off.
func renderDiagnostic(d *diag.Diagnostic, color bool) string {
	if !color {
		return d.Error()
	}
	code := "\033[31m"
	if d.Severity == diag.SeverityWarning {
		code = "\033[33m"
	}
	reset := "\033[0m"
	return code + d.Error() + reset
}
