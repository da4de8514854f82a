// internal/repl/repl.go
package repl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"pepl/internal/checker"
	"pepl/internal/diag"
	"pepl/internal/eval"
	"pepl/internal/lexer"
	"pepl/internal/parser"
	"pepl/internal/value"
)

// session holds the one space an interactive REPL is currently bound to.
// PEPL has no top-level executable statements (a program is one source
// file), so unlike a line-at-a-time statement REPL, pepl's REPL loads one
// whole space with `:load` and then issues commands against its running
// evaluator: dispatch an action, render a view, inspect state.
type session struct {
	file string
	ev   *eval.Evaluator
}

// Start runs the interactive REPL loop: a bufio.Scanner prompt loop
// dispatching on a `:command` prefix instead of re-parsing every line as
// a fresh program.
func Start() {
	fmt.Println("pepl REPL | :help for commands, :quit to exit")
	scanner := bufio.NewScanner(os.Stdin)
	var s session

	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == ":quit" || line == ":q" {
			break
		}
		if err := s.dispatch(line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func (s *session) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case ":help":
		printHelp()
	case ":load":
		if len(rest) != 1 {
			return fmt.Errorf("usage: :load <file.pepl>")
		}
		return s.load(rest[0])
	case ":reset":
		if s.ev == nil {
			return fmt.Errorf("no space loaded, use :load first")
		}
		return s.ev.Init()
	case ":state":
		if err := s.requireLoaded(); err != nil {
			return err
		}
		fmt.Println(value.ToDisplayString(s.ev.State()))
	case ":derived":
		if err := s.requireLoaded(); err != nil {
			return err
		}
		fmt.Println(value.ToDisplayString(s.ev.Derived()))
	case ":dispatch":
		if err := s.requireLoaded(); err != nil {
			return err
		}
		if len(rest) < 1 {
			return fmt.Errorf("usage: :dispatch <action> [args as JSON...]")
		}
		return s.dispatchAction(rest[0], rest[1:])
	case ":view":
		if err := s.requireLoaded(); err != nil {
			return err
		}
		if len(rest) < 1 {
			return fmt.Errorf("usage: :view <name> [args as JSON...]")
		}
		return s.renderView(rest[0], rest[1:])
	default:
		return fmt.Errorf("unknown command %q, try :help", cmd)
	}
	return nil
}

func (s *session) requireLoaded() error {
	if s.ev == nil {
		return fmt.Errorf("no space loaded, use :load <file.pepl> first")
	}
	return nil
}

func (s *session) load(filename string) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return err
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
	errCount := 0
	for _, d := range allDiags {
		if d.Severity != diag.SeverityWarning {
			errCount++
		}
	}
	if errCount > 0 {
		for _, d := range allDiags {
			fmt.Print(d.Error())
		}
		return fmt.Errorf("%d error(s), space not loaded", errCount)
	}
	if pr.Program == nil || pr.Program.Space == nil {
		return fmt.Errorf("no space declaration found")
	}

	ev := eval.New(pr.Program.Space, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		return err
	}
	s.file = filename
	s.ev = ev
	fmt.Printf("loaded %s\n", filename)
	return nil
}

func (s *session) dispatchAction(name string, rawArgs []string) error {
	args, err := parseJSONArgs(rawArgs)
	if err != nil {
		return err
	}
	outcome, err := s.ev.DispatchAction(name, args)
	if err != nil {
		return err
	}
	switch {
	case outcome.Trap != nil:
		fmt.Printf("trap: %s: %s\n", outcome.Trap.Kind, outcome.Trap.Message)
	case outcome.InvariantFailed != "":
		fmt.Printf("invariant violated: %s (state unchanged)\n", outcome.InvariantFailed)
	default:
		fmt.Println("committed")
		fmt.Println(value.ToDisplayString(s.ev.State()))
	}
	return nil
}

func (s *session) renderView(name string, rawArgs []string) error {
	args, err := parseJSONArgs(rawArgs)
	if err != nil {
		return err
	}
	surf, trap, err := s.ev.RenderView(name, args)
	if err != nil {
		return err
	}
	if trap != nil {
		fmt.Printf("trap: %s: %s\n", trap.Kind, trap.Message)
		return nil
	}
	fmt.Println(renderSurfaceTree(surf.Root, 0))
	return nil
}

// renderSurfaceTree is an indented text dump of a rendered Surface tree;
// value.ToDisplayString collapses a *Surface to a placeholder since it is
// meant for interpolation debug output, not tree inspection.
func renderSurfaceTree(n *value.SurfaceNode, depth int) string {
	if n == nil {
		return ""
	}
	indent := strings.Repeat("  ", depth)
	s := indent + n.Component
	if len(n.PropOrder) > 0 {
		s += " {"
		for i, name := range n.PropOrder {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprintf(" %s: %s", name, value.ToDisplayString(n.Props[name]))
		}
		s += " }"
	}
	for _, c := range n.Children {
		s += "\n" + renderSurfaceTree(c, depth+1)
	}
	return s
}

func parseJSONArgs(raw []string) ([]value.Value, error) {
	out := make([]value.Value, len(raw))
	for i, r := range raw {
		var decoded interface{}
		if err := json.Unmarshal([]byte(r), &decoded); err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i+1, r, err)
		}
		out[i] = fromJSON(decoded)
	}
	return out, nil
}

func fromJSON(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil{}
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.Str(t)
	case []interface{}:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromJSON(e)
		}
		return value.NewList(elems)
	case map[string]interface{}:
		names := make([]string, 0, len(t))
		for k := range t {
			names = append(names, k)
		}
		vals := make([]value.Value, len(names))
		for i, n := range names {
			vals[i] = fromJSON(t[n])
		}
		return value.NewRecord(names, vals)
	default:
		return value.Nil{}
	}
}

func printHelp() {
	fmt.Print(`commands:
  :load <file.pepl>             load and initialize a space
  :reset                        re-run state initializers
  :state                        print current state
  :derived                      print current derived fields
  :dispatch <action> [args...]  dispatch an action (args as JSON literals)
  :view <name> [args...]        render a view
  :quit                         exit
`)
}
