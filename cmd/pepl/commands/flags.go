// cmd/pepl/commands/flags.go
package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
)

// commonFlags holds the flags shared by every subcommand's
// configuration: --gas, --json, --out, --no-color, --map. Parsed by
// hand in a flat os.Args style rather than with
// the "flag" package, since every pepl subcommand takes one positional
// source file plus these switches, never a larger flag surface.
type commonFlags struct {
	gas     int64
	hasGas  bool
	json    bool
	out     string
	noColor bool
	mapOut  bool
}

// parseArgs splits args into positional arguments and commonFlags,
// stopping flag recognition at the first unrecognized `--xxx` token only
// in the sense that it is left as a positional error for the caller.
func parseArgs(args []string) ([]string, commonFlags, error) {
	var pos []string
	f := commonFlags{noColor: !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--gas":
			if i+1 >= len(args) {
				return nil, f, fmt.Errorf("--gas requires a value")
			}
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, f, fmt.Errorf("--gas: %w", err)
			}
			f.gas = n
			f.hasGas = true
		case "--json":
			f.json = true
		case "--out":
			if i+1 >= len(args) {
				return nil, f, fmt.Errorf("--out requires a value")
			}
			i++
			f.out = args[i]
		case "--no-color":
			f.noColor = true
		case "--map":
			f.mapOut = true
		default:
			pos = append(pos, args[i])
		}
	}
	return pos, f, nil
}
