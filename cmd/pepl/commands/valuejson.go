// cmd/pepl/commands/valuejson.go
package commands

import (
	"encoding/json"
	"fmt"

	"pepl/internal/value"
)

// parseValueArgs decodes each raw CLI argument as a JSON literal and
// converts it to a value.Value, the bridge between shell-friendly action
// arguments ("3", "\"hi\"", "[1,2]") and the reference evaluator's
// tagged runtime values. There is no PEPL source-level
// literal parser exposed for reuse here; JSON's grammar is a superset of
// PEPL's own literal syntax for numbers, strings, booleans, and lists, so
// decoding through encoding/json needs no bespoke parser.
func parseValueArgs(raw []string) ([]value.Value, error) {
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
