// cmd/pepl/commands/dev.go
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pepl/internal/capstore"
	"pepl/internal/devserver"
	"pepl/internal/eval"
)

// DevCommand loads a space and serves it over HTTP+WebSocket
// (internal/devserver) until interrupted. --storage wires a real
// capstore.Store in for the `storage` capability instead of leaving it
// unmocked; --view names the view pushed to WebSocket clients after
// each dispatch.
func DevCommand(args []string) error {
	pos, flags, view, storageDSN, addr, err := parseDevArgs(args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: pepl dev <file.pepl> [--addr host:port] [--view name] [--storage dsn] [--gas n]")
	}

	sp, cr, err := loadSpace(pos[0])
	if err != nil {
		return err
	}

	var opts []eval.Option
	if flags.hasGas {
		opts = append(opts, eval.WithGasBudget(flags.gas))
	}
	var store *capstore.Store
	if storageDSN != "" {
		store, err = capstore.Open(storageDSN, "")
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, eval.WithCapabilityHost(store))
	}

	ev := eval.New(sp, cr.TypeReg, cr.StdReg, opts...)
	if err := ev.Init(); err != nil {
		return err
	}

	srv := devserver.New(ev, view)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, addr)
}

func parseDevArgs(args []string) (pos []string, flags commonFlags, view, storageDSN, addr string, err error) {
	addr = "localhost:8787"
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			if i+1 >= len(args) {
				return nil, flags, "", "", "", fmt.Errorf("--addr requires a value")
			}
			i++
			addr = args[i]
		case "--view":
			if i+1 >= len(args) {
				return nil, flags, "", "", "", fmt.Errorf("--view requires a value")
			}
			i++
			view = args[i]
		case "--storage":
			if i+1 >= len(args) {
				return nil, flags, "", "", "", fmt.Errorf("--storage requires a value")
			}
			i++
			storageDSN = args[i]
		default:
			rest = append(rest, args[i])
		}
	}
	pos, flags, err = parseArgs(rest)
	return pos, flags, view, storageDSN, addr, err
}
