// cmd/pepl/commands/view.go
package commands

import (
	"fmt"

	"pepl/internal/eval"
	"pepl/internal/value"
)

// ViewCommand initializes the reference evaluator and renders one
// declared view, printing the resulting Surface tree.
func ViewCommand(args []string) error {
	pos, flags, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return fmt.Errorf("usage: pepl view <file.pepl> <view> [args as JSON...] [--gas n] [--json]")
	}
	filename, viewName, rawArgs := pos[0], pos[1], pos[2:]

	sp, cr, err := loadSpace(filename)
	if err != nil {
		printDiagnostics(cr.Errors, !flags.noColor)
		return err
	}

	viewArgs, err := parseValueArgs(rawArgs)
	if err != nil {
		return err
	}

	opts := []eval.Option{}
	if flags.hasGas {
		opts = append(opts, eval.WithGasBudget(flags.gas))
	}
	ev := eval.New(sp, cr.TypeReg, cr.StdReg, opts...)
	if err := ev.Init(); err != nil {
		return err
	}

	surf, trap, err := ev.RenderView(viewName, viewArgs)
	if err != nil {
		return err
	}
	if trap != nil {
		if flags.json {
			return printJSON(map[string]string{"trap": trap.Kind, "message": trap.Message})
		}
		fmt.Printf("trap: %s: %s\n", trap.Kind, trap.Message)
		return nil
	}

	if flags.json {
		return printJSON(value.SurfaceNodeToJSON(surf.Root))
	}
	fmt.Println(renderSurfaceTree(surf.Root, 0))
	return nil
}

// renderSurfaceTree is an indented text dump of a Surface tree for
// terminal use; --json uses value.SurfaceNodeToJSON instead.
func renderSurfaceTree(n *value.SurfaceNode, depth int) string {
	if n == nil {
		return ""
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	s := fmt.Sprintf("%s%s", indent, n.Component)
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
