// cmd/pepl/commands/run.go
package commands

import (
	"fmt"

	"pepl/internal/eval"
	"pepl/internal/value"
)

// RunCommand initializes the reference evaluator for a checked space and
// dispatches one action, printing the
// resulting state or the trap/invariant failure that rolled it back.
func RunCommand(args []string) error {
	pos, flags, err := parseArgs(args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return fmt.Errorf("usage: pepl run <file.pepl> <action> [args as JSON...] [--gas n] [--json]")
	}
	filename, action, rawArgs := pos[0], pos[1], pos[2:]

	sp, cr, err := loadSpace(filename)
	if err != nil {
		printDiagnostics(cr.Errors, !flags.noColor)
		return err
	}

	actionArgs, err := parseValueArgs(rawArgs)
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

	outcome, err := ev.DispatchAction(action, actionArgs)
	if err != nil {
		return err
	}

	if flags.json {
		return printJSON(runResultJSON(ev, outcome))
	}
	printRunOutcome(ev, outcome)
	return nil
}

type runResult struct {
	Committed       bool        `json:"committed"`
	InvariantFailed string      `json:"invariant_failed,omitempty"`
	Trap            string      `json:"trap,omitempty"`
	TrapMessage     string      `json:"trap_message,omitempty"`
	State           interface{} `json:"state,omitempty"`
}

func runResultJSON(ev *eval.Evaluator, outcome *eval.CommitOutcome) runResult {
	r := runResult{Committed: outcome.Committed, InvariantFailed: outcome.InvariantFailed}
	if outcome.Trap != nil {
		r.Trap = outcome.Trap.Kind
		r.TrapMessage = outcome.Trap.Message
	}
	if ev.State() != nil {
		r.State = value.ToJSON(ev.State())
	}
	return r
}

func printRunOutcome(ev *eval.Evaluator, outcome *eval.CommitOutcome) {
	switch {
	case outcome.Trap != nil:
		fmt.Printf("trap: %s: %s\n", outcome.Trap.Kind, outcome.Trap.Message)
	case outcome.InvariantFailed != "":
		fmt.Printf("invariant violated: %s (state unchanged)\n", outcome.InvariantFailed)
	default:
		fmt.Println("committed")
	}
	if ev.State() != nil {
		fmt.Printf("state: %s\n", value.ToDisplayString(ev.State()))
	}
	if ev.Derived() != nil {
		fmt.Printf("derived: %s\n", value.ToDisplayString(ev.Derived()))
	}
}
