// cmd/pepl/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"pepl/cmd/pepl/commands"
	"pepl/internal/pipeline"
	"pepl/internal/repl"
)

// Build variables, overridable at build time with -ldflags, matching the
// compiler's own BuildDate/GitCommit pair. GitCommit
// also feeds pipeline.CompilerVersion so CompileResult.compiler_version
// reflects the actual build, not a hardcoded literal.
var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

func main() {
	if GitCommit != "unknown" {
		pipeline.CompilerVersion = pipeline.CompilerVersion + "+" + GitCommit
	}
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	switch args[0] {
	case "--help", "-h", "help", "--h", "-help":
		showUsage()
		return
	case "--version", "-v", "version", "--v", "-version":
		showVersion()
		return
	case "build":
		if err := commands.BuildCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "check":
		if err := commands.CheckCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "run":
		if err := commands.RunCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "view":
		if err := commands.ViewCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "test":
		if err := commands.TestCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "repl":
		repl.Start()
		return
	case "dev":
		if err := commands.DevCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "reference":
		if err := commands.ReferenceCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "stdlib":
		if err := commands.StdlibCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "pepl: unknown command %q\n\n", args[0])
	showUsage()
	os.Exit(1)
}

func showUsage() {
	fmt.Print(`pepl - the PEPL compiler

Usage:
  pepl build <file.pepl> [--out path] [--gas n] [--json] [--no-color]
      Compile a space to a validated WebAssembly module.

  pepl check <file.pepl> [--json]
      Run the front end (lex, parse, type/invariant check) and report
      diagnostics without generating code.

  pepl run <file.pepl> <action> [args as JSON...] [--gas n] [--json]
      Initialize the reference evaluator, dispatch one action, and print
      the resulting state (or the trap/invariant failure that rolled it
      back).

  pepl view <file.pepl> <view> [args as JSON...] [--json]
      Initialize the reference evaluator and render one view's Surface
      tree.

  pepl test <file.pepl> [<file.pepl> ...] [--json] [--gas n]
      Run every test block in each file through the reference evaluator
      and report pass/fail.

  pepl repl
      Start an interactive session: load a space, dispatch actions,
      render views, inspect state.

  pepl dev <file.pepl> [--addr host:port] [--view name] [--storage dsn]
      Serve a space over HTTP+WebSocket: render() as JSON, action
      dispatch pushing a fresh Surface tree to connected clients.

  pepl reference
      Print the compressed language reference string (get_reference()).

  pepl stdlib
      Print the stdlib function table as JSON (get_stdlib_table()).

  pepl version | pepl help
`)
}

func showVersion() {
	fmt.Printf("pepl %s (language %s)\n", pipeline.CompilerVersion, pipeline.LanguageVersion)
	fmt.Printf("  build date: %s\n", BuildDate)
	fmt.Printf("  git commit: %s\n", GitCommit)
}
