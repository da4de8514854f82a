// cmd/pepl/commands/test.go
package commands

import (
	"fmt"
	"time"

	"pepl/internal/eval"
	"pepl/internal/testrun"
)

// TestCommand runs every `test "..."` block in each given file through
// the reference evaluator and reports pass/
// fail via internal/testrun's TextReporter or JSONReporter.
func TestCommand(args []string) error {
	pos, flags, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("usage: pepl test <file.pepl> [<file.pepl> ...] [--gas n] [--json]")
	}

	var summaries []testrun.FileSummary
	for _, filename := range pos {
		prog, cr, err := loadProgram(filename)
		if err != nil {
			printDiagnostics(cr.Errors, !flags.noColor)
			return err
		}

		opts := []eval.Option{}
		if flags.hasGas {
			opts = append(opts, eval.WithGasBudget(flags.gas))
		}
		ev := eval.New(prog.Space, cr.TypeReg, cr.StdReg, opts...)

		start := time.Now()
		summary, err := ev.RunTests(prog.Tests)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		summaries = append(summaries, testrun.FileSummary{
			File:     filename,
			Summary:  summary,
			Duration: time.Since(start),
		})
	}

	var reporter testrun.Reporter
	if flags.json {
		reporter = testrun.NewJSONReporter()
	} else {
		reporter = testrun.NewTextReporter(!flags.noColor)
	}
	if !reporter.Report(summaries) {
		return fmt.Errorf("test failures")
	}
	return nil
}
