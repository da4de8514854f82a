// Package testrun is the ambient test-reporting layer around
// internal/eval's test runner:
// it turns an eval.TestRunSummary for one compiled file into the text or
// JSON report a human or a CI pipeline reads, split from the thing that
// actually runs the tests the way a TextReporter/JSONReporter pair
// usually is.
// The PEPL-specific run semantics (reset state, install with_responses
// mocks, evaluate the body, collect pass/fail) live in internal/eval
// itself; this package never re-derives them.
package testrun

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pepl/internal/eval"
)

// FileSummary pairs one source file's eval.TestRunSummary with the time
// it took to run, the unit a Reporter renders.
type FileSummary struct {
	File     string
	Summary  *eval.TestRunSummary
	Duration time.Duration
}

// Reporter renders a sequence of FileSummary values, mirroring the
// the usual TestReporter split between human and machine output.
type Reporter interface {
	Report(files []FileSummary) bool // returns true iff every test passed
}

// TextReporter is the default terminal renderer: a per-test PASS/FAIL line and
// a summary footer, colored when the terminal supports it.
type TextReporter struct {
	Color bool
}

func NewTextReporter(color bool) *TextReporter { return &TextReporter{Color: color} }

func (r *TextReporter) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return code + s + "\033[0m"
}

func (r *TextReporter) Report(files []FileSummary) bool {
	total, passed, failed := 0, 0, 0
	for _, fs := range files {
		fmt.Printf("\n%s (%v)\n", fs.File, fs.Duration)
		for _, res := range fs.Summary.Results {
			total++
			if res.Passed {
				passed++
				fmt.Printf("  %s %s\n", r.paint("\033[32m", "PASS"), res.Name)
				continue
			}
			failed++
			fmt.Printf("  %s %s\n", r.paint("\033[31m", "FAIL"), res.Name)
			for _, line := range strings.Split(res.Failure, "\n") {
				fmt.Printf("       %s\n", line)
			}
		}
	}
	fmt.Printf("\n%s\n", strings.Repeat("-", 40))
	fmt.Printf("%d total, %s, %s\n", total,
		r.paint("\033[32m", fmt.Sprintf("%d passed", passed)),
		r.paint("\033[31m", fmt.Sprintf("%d failed", failed)))
	return failed == 0
}

// JSONReporter emits the same data as a single machine-readable document,
// matching the same stable-shape rule diagnostics follow.
type JSONReporter struct{}

func NewJSONReporter() *JSONReporter { return &JSONReporter{} }

type jsonTestResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Failure string `json:"failure,omitempty"`
}

type jsonFileSummary struct {
	File       string           `json:"file"`
	DurationMs int64            `json:"duration_ms"`
	Results    []jsonTestResult `json:"results"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
}

type jsonReport struct {
	Files  []jsonFileSummary `json:"files"`
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
}

func (r *JSONReporter) Report(files []FileSummary) bool {
	rep := jsonReport{}
	for _, fs := range files {
		jfs := jsonFileSummary{
			File:       fs.File,
			DurationMs: fs.Duration.Milliseconds(),
			Passed:     fs.Summary.Passed,
			Failed:     fs.Summary.Failed,
		}
		for _, res := range fs.Summary.Results {
			jfs.Results = append(jfs.Results, jsonTestResult{
				Name:    res.Name,
				Passed:  res.Passed,
				Failure: res.Failure,
			})
		}
		rep.Files = append(rep.Files, jfs)
		rep.Passed += fs.Summary.Passed
		rep.Failed += fs.Summary.Failed
	}
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Printf(`{"error":%q}`+"\n", err.Error())
		return false
	}
	fmt.Println(string(out))
	return rep.Failed == 0
}
