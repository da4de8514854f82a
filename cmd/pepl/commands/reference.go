// cmd/pepl/commands/reference.go
package commands

import (
	"fmt"
	"os"

	"pepl/internal/pipeline"
)

// ReferenceCommand prints get_reference()'s compressed language
// reference string, the form an LLM-facing collaborator consumes.
func ReferenceCommand(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: pepl reference")
	}
	fmt.Print(pipeline.GetReference())
	return nil
}

// StdlibCommand prints get_stdlib_table()'s JSON array of every stdlib
// function's module, name, signature, purity, and capability.
func StdlibCommand(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: pepl stdlib")
	}
	table, err := pipeline.GetStdlibTable()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(table, '\n'))
	return err
}
