// cmd/pepl/commands/check.go
package commands

import (
	"fmt"
	"os"

	"pepl/internal/pipeline"
)

// CheckCommand runs the front end only (`type_check(source, filename)` ->
// diagnostics), never invoking the evaluator or the code generator.
func CheckCommand(args []string) error {
	pos, flags, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: pepl check <file.pepl> [--json]")
	}
	filename := pos[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	diags := pipeline.TypeCheck(string(source), filename)

	if flags.json {
		return printJSON(struct {
			Errors []interface{} `json:"errors"`
		}{toInterfaceSlice(diags)})
	}

	printDiagnostics(diags, !flags.noColor)
	errCount := 0
	for _, d := range diags {
		if d.Severity != "warning" {
			errCount++
		}
	}
	if errCount > 0 {
		return fmt.Errorf("%d error(s)", errCount)
	}
	fmt.Printf("%s: no errors\n", filename)
	return nil
}

func toInterfaceSlice[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
