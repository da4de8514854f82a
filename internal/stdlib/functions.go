package stdlib

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"pepl/internal/types"
	"pepl/internal/value"
)

// builtins is the full stdlib table. Pure
// modules (math, core, list, record, string, color, time's arithmetic
// helpers) carry a real Impl. Capability modules (http, storage, location,
// notifications) and time.now leave Impl nil: those calls are host-mediated.
func builtins() []Entry {
	var e []Entry
	e = append(e, mathFns()...)
	e = append(e, coreFns()...)
	e = append(e, listFns()...)
	e = append(e, recordFns()...)
	e = append(e, stringFns()...)
	e = append(e, colorFns()...)
	e = append(e, timeFns()...)
	e = append(e, httpFns()...)
	e = append(e, storageFns()...)
	e = append(e, locationFns()...)
	e = append(e, notificationFns()...)
	return e
}

func num(v value.Value) (float64, bool) {
	n, ok := v.(value.Number)
	return float64(n), ok
}

func str(v value.Value) (string, bool) {
	s, ok := v.(value.Str)
	return string(s), ok
}

// ---------------------------------------------------------------- math ---

func mathFns() []Entry {
	unary := func(name string, fn func(float64) float64) Entry {
		return Entry{Module: "math", Name: name, Pure: true,
			Params: []*types.Type{types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				x, _ := num(args[0])
				return value.Number(fn(x)), nil
			}}
	}
	binary := func(name string, fn func(a, b float64) float64) Entry {
		return Entry{Module: "math", Name: name, Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				a, _ := num(args[0])
				b, _ := num(args[1])
				return value.Number(fn(a, b)), nil
			}}
	}
	return []Entry{
		{Module: "math", Name: "sqrt", Pure: true,
			Params: []*types.Type{types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				x, _ := num(args[0])
				if x < 0 {
					return nil, Trap("nan_result", "math.sqrt of a negative number")
				}
				return value.Number(math.Sqrt(x)), nil
			}},
		unary("abs", math.Abs),
		unary("floor", math.Floor),
		unary("ceil", math.Ceil),
		unary("round", math.Round),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("exp", math.Exp),
		{Module: "math", Name: "log", Pure: true,
			Params: []*types.Type{types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				x, _ := num(args[0])
				if x <= 0 {
					return nil, Trap("nan_result", "math.log of a non-positive number")
				}
				return value.Number(math.Log(x)), nil
			}},
		unary("sign", func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		}),
		binary("pow", math.Pow),
		binary("min", math.Min),
		binary("max", math.Max),
		{Module: "math", Name: "clamp", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber, types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				x, _ := num(args[0])
				lo, _ := num(args[1])
				hi, _ := num(args[2])
				return value.Number(math.Min(math.Max(x, lo), hi)), nil
			}},
		{Module: "math", Name: "pi", Pure: true, Params: nil, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) { return value.Number(math.Pi), nil }},
		{Module: "math", Name: "e", Pure: true, Params: nil, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) { return value.Number(math.E), nil }},
	}
}

// ---------------------------------------------------------------- core ---

func coreFns() []Entry {
	return []Entry{
		{Module: "core", Name: "to_string", Pure: true,
			Params: []*types.Type{types.TAny}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				return value.Str(value.ToDisplayString(args[0])), nil
			}},
		{Module: "core", Name: "to_number", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TNumber, types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return value.ErrResult(value.Str("not a number: " + s)), nil
				}
				return value.OkResult(value.Number(f)), nil
			}},
		{Module: "core", Name: "to_bool", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TBool, types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				switch strings.ToLower(strings.TrimSpace(s)) {
				case "true":
					return value.OkResult(value.Bool(true)), nil
				case "false":
					return value.OkResult(value.Bool(false)), nil
				default:
					return value.ErrResult(value.Str("not a bool: " + s)), nil
				}
			}},
		{Module: "core", Name: "type_of", Pure: true,
			Params: []*types.Type{types.TAny}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				return value.Str(value.TypeName(args[0])), nil
			}},
		{Module: "core", Name: "is_nil", Pure: true,
			Params: []*types.Type{types.TAny}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				_, ok := args[0].(value.Nil)
				return value.Bool(ok), nil
			}},
		{Module: "core", Name: "default", Pure: true,
			Params: []*types.Type{types.TAny, types.TAny}, Result: types.TAny,
			Impl: func(args []value.Value) (value.Value, error) {
				if _, ok := args[0].(value.Nil); ok {
					return args[1], nil
				}
				return args[0], nil
			}},
		{Module: "core", Name: "identity", Pure: true,
			Params: []*types.Type{types.TAny}, Result: types.TAny,
			Impl: func(args []value.Value) (value.Value, error) { return args[0], nil }},
		{Module: "core", Name: "compare", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				a, _ := num(args[0])
				b, _ := num(args[1])
				switch {
				case a < b:
					return value.Number(-1), nil
				case a > b:
					return value.Number(1), nil
				default:
					return value.Number(0), nil
				}
			}},
	}
}

// ---------------------------------------------------------------- list ---

// asList reads a *value.List argument. The checker guarantees the runtime
// shape, so a failed assertion here would be an internal compiler bug, not
// a user-facing trap.
func asList(v value.Value) *value.List { return v.(*value.List) }

func listFns() []Entry {
	anyList := types.TList(types.TAny)
	return []Entry{
		{Module: "list", Name: "len", Pure: true,
			Params: []*types.Type{anyList}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				return value.Number(len(asList(args[0]).Elems)), nil
			}},
		{Module: "list", Name: "push", Pure: true,
			Params: []*types.Type{anyList, types.TAny}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0])
				out := append(append([]value.Value(nil), l.Elems...), args[1])
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "pop", Pure: true,
			Params: []*types.Type{anyList}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				if len(l) == 0 {
					return value.NewList(nil), nil
				}
				return value.NewList(l[:len(l)-1]), nil
			}},
		{Module: "list", Name: "unshift", Pure: true,
			Params: []*types.Type{anyList, types.TAny}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				out := append([]value.Value{args[1]}, l...)
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "shift", Pure: true,
			Params: []*types.Type{anyList}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				if len(l) == 0 {
					return value.NewList(nil), nil
				}
				return value.NewList(l[1:]), nil
			}},
		{Module: "list", Name: "get", Pure: true,
			Params: []*types.Type{anyList, types.TNumber}, Result: types.TResult(types.TAny, types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				i, _ := num(args[1])
				idx := int(i)
				if idx < 0 || idx >= len(l) {
					return value.ErrResult(value.Str("index out of range")), nil
				}
				return value.OkResult(l[idx]), nil
			}},
		{Module: "list", Name: "slice", Pure: true,
			Params: []*types.Type{anyList, types.TNumber, types.TNumber}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				start, _ := num(args[1])
				end, _ := num(args[2])
				s, en := clampRange(int(start), int(end), len(l))
				return value.NewList(l[s:en]), nil
			}},
		{Module: "list", Name: "concat", Pure: true,
			Params: []*types.Type{anyList, anyList}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				a := asList(args[0]).Elems
				b := asList(args[1]).Elems
				out := append(append([]value.Value(nil), a...), b...)
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "reverse", Pure: true,
			Params: []*types.Type{anyList}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				out := make([]value.Value, len(l))
				for i, v := range l {
					out[len(l)-1-i] = v
				}
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "contains", Pure: true,
			Params: []*types.Type{anyList, types.TAny}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				for _, v := range asList(args[0]).Elems {
					if value.Equal(v, args[1]) {
						return value.Bool(true), nil
					}
				}
				return value.Bool(false), nil
			}},
		{Module: "list", Name: "index_of", Pure: true,
			Params: []*types.Type{anyList, types.TAny}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				for i, v := range asList(args[0]).Elems {
					if value.Equal(v, args[1]) {
						return value.Number(i), nil
					}
				}
				return value.Number(-1), nil
			}},
		{Module: "list", Name: "sum", Pure: true,
			Params: []*types.Type{types.TList(types.TNumber)}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				var total float64
				for _, v := range asList(args[0]).Elems {
					n, _ := num(v)
					total += n
				}
				return value.Number(total), nil
			}},
		{Module: "list", Name: "avg", Pure: true,
			Params: []*types.Type{types.TList(types.TNumber)}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				if len(l) == 0 {
					return nil, Trap("nan_result", "list.avg of an empty list")
				}
				var total float64
				for _, v := range l {
					n, _ := num(v)
					total += n
				}
				return value.Number(total / float64(len(l))), nil
			}},
		{Module: "list", Name: "min", Pure: true,
			Params: []*types.Type{types.TList(types.TNumber)}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				if len(l) == 0 {
					return nil, Trap("nan_result", "list.min of an empty list")
				}
				best, _ := num(l[0])
				for _, v := range l[1:] {
					n, _ := num(v)
					if n < best {
						best = n
					}
				}
				return value.Number(best), nil
			}},
		{Module: "list", Name: "max", Pure: true,
			Params: []*types.Type{types.TList(types.TNumber)}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				l := asList(args[0]).Elems
				if len(l) == 0 {
					return nil, Trap("nan_result", "list.max of an empty list")
				}
				best, _ := num(l[0])
				for _, v := range l[1:] {
					n, _ := num(v)
					if n > best {
						best = n
					}
				}
				return value.Number(best), nil
			}},
		{Module: "list", Name: "sort", Pure: true,
			Params: []*types.Type{types.TList(types.TNumber)}, Result: types.TList(types.TNumber),
			Impl: func(args []value.Value) (value.Value, error) {
				l := append([]value.Value(nil), asList(args[0]).Elems...)
				sort.SliceStable(l, func(i, j int) bool {
					a, _ := num(l[i])
					b, _ := num(l[j])
					return a < b
				})
				return value.NewList(l), nil
			}},
		{Module: "list", Name: "unique", Pure: true,
			Params: []*types.Type{anyList}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				var out []value.Value
				for _, v := range asList(args[0]).Elems {
					dup := false
					for _, o := range out {
						if value.Equal(v, o) {
							dup = true
							break
						}
					}
					if !dup {
						out = append(out, v)
					}
				}
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "flatten", Pure: true,
			Params: []*types.Type{types.TList(anyList)}, Result: anyList,
			Impl: func(args []value.Value) (value.Value, error) {
				var out []value.Value
				for _, v := range asList(args[0]).Elems {
					out = append(out, asList(v).Elems...)
				}
				return value.NewList(out), nil
			}},
		{Module: "list", Name: "join", Pure: true,
			Params: []*types.Type{types.TList(types.TString), types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				sep, _ := str(args[1])
				parts := make([]string, 0, len(asList(args[0]).Elems))
				for _, v := range asList(args[0]).Elems {
					s, _ := str(v)
					parts = append(parts, s)
				}
				return value.Str(strings.Join(parts, sep)), nil
			}},
		{Module: "list", Name: "range", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber}, Result: types.TList(types.TNumber),
			Impl: func(args []value.Value) (value.Value, error) {
				start, _ := num(args[0])
				end, _ := num(args[1])
				var out []value.Value
				for i := int(start); i < int(end); i++ {
					out = append(out, value.Number(i))
				}
				return value.NewList(out), nil
			}},
		// map, filter, reduce, some, all take a function argument and are
		// implemented by the evaluator directly (it must call back into its
		// own apply-function machinery, which this package cannot import
		// without an import cycle). The registry still carries their
		// signatures so the checker and codegen see them; Impl is nil and
		// the evaluator special-cases these five keys by name.
		{Module: "list", Name: "map", Pure: true,
			Params: []*types.Type{anyList, types.TFunc([]*types.Type{types.TAny}, types.TAny)}, Result: anyList},
		{Module: "list", Name: "filter", Pure: true,
			Params: []*types.Type{anyList, types.TFunc([]*types.Type{types.TAny}, types.TBool)}, Result: anyList},
		{Module: "list", Name: "reduce", Pure: true,
			Params: []*types.Type{anyList, types.TFunc([]*types.Type{types.TAny, types.TAny}, types.TAny), types.TAny}, Result: types.TAny},
		{Module: "list", Name: "some", Pure: true,
			Params: []*types.Type{anyList, types.TFunc([]*types.Type{types.TAny}, types.TBool)}, Result: types.TBool},
		{Module: "list", Name: "all", Pure: true,
			Params: []*types.Type{anyList, types.TFunc([]*types.Type{types.TAny}, types.TBool)}, Result: types.TBool},
	}
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// -------------------------------------------------------------- record ---

func recordFns() []Entry {
	anyRecord := types.TRecord(nil)
	return []Entry{
		{Module: "record", Name: "keys", Pure: true,
			Params: []*types.Type{anyRecord}, Result: types.TList(types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				r := args[0].(*value.Record)
				out := make([]value.Value, len(r.Names))
				for i, n := range r.Names {
					out[i] = value.Str(n)
				}
				return value.NewList(out), nil
			}},
		{Module: "record", Name: "values", Pure: true,
			Params: []*types.Type{anyRecord}, Result: types.TList(types.TAny),
			Impl: func(args []value.Value) (value.Value, error) {
				r := args[0].(*value.Record)
				out := make([]value.Value, len(r.Names))
				for i, n := range r.Names {
					out[i] = r.Values[n]
				}
				return value.NewList(out), nil
			}},
		{Module: "record", Name: "has", Pure: true,
			Params: []*types.Type{anyRecord, types.TString}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				r := args[0].(*value.Record)
				name, _ := str(args[1])
				_, ok := r.Values[name]
				return value.Bool(ok), nil
			}},
		{Module: "record", Name: "merge", Pure: true,
			Params: []*types.Type{anyRecord, anyRecord}, Result: anyRecord,
			Impl: func(args []value.Value) (value.Value, error) {
				a := args[0].(*value.Record)
				b := args[1].(*value.Record)
				out := a
				for _, n := range b.Names {
					out = out.With(n, b.Values[n])
				}
				return out, nil
			}},
		{Module: "record", Name: "without", Pure: true,
			Params: []*types.Type{anyRecord, types.TString}, Result: anyRecord,
			Impl: func(args []value.Value) (value.Value, error) {
				r := args[0].(*value.Record)
				drop, _ := str(args[1])
				var names []string
				for _, n := range r.Names {
					if n != drop {
						names = append(names, n)
					}
				}
				vals := make([]value.Value, len(names))
				for i, n := range names {
					vals[i] = r.Values[n]
				}
				return value.NewRecord(names, vals), nil
			}},
	}
}

// -------------------------------------------------------------- string ---

func stringFns() []Entry {
	return []Entry{
		{Module: "string", Name: "length", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				return value.Number(len([]rune(s))), nil
			}},
		{Module: "string", Name: "upper", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				return value.Str(strings.ToUpper(s)), nil
			}},
		{Module: "string", Name: "lower", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				return value.Str(strings.ToLower(s)), nil
			}},
		{Module: "string", Name: "trim", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				return value.Str(strings.TrimSpace(s)), nil
			}},
		{Module: "string", Name: "split", Pure: true,
			Params: []*types.Type{types.TString, types.TString}, Result: types.TList(types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				sep, _ := str(args[1])
				parts := strings.Split(s, sep)
				out := make([]value.Value, len(parts))
				for i, p := range parts {
					out[i] = value.Str(p)
				}
				return value.NewList(out), nil
			}},
		{Module: "string", Name: "contains", Pure: true,
			Params: []*types.Type{types.TString, types.TString}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				sub, _ := str(args[1])
				return value.Bool(strings.Contains(s, sub)), nil
			}},
		{Module: "string", Name: "starts_with", Pure: true,
			Params: []*types.Type{types.TString, types.TString}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				p, _ := str(args[1])
				return value.Bool(strings.HasPrefix(s, p)), nil
			}},
		{Module: "string", Name: "ends_with", Pure: true,
			Params: []*types.Type{types.TString, types.TString}, Result: types.TBool,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				p, _ := str(args[1])
				return value.Bool(strings.HasSuffix(s, p)), nil
			}},
		{Module: "string", Name: "replace", Pure: true,
			Params: []*types.Type{types.TString, types.TString, types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				old, _ := str(args[1])
				nw, _ := str(args[2])
				return value.Str(strings.ReplaceAll(s, old, nw)), nil
			}},
		{Module: "string", Name: "slice", Pure: true,
			Params: []*types.Type{types.TString, types.TNumber, types.TNumber}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				r := []rune(s)
				start, _ := num(args[1])
				end, _ := num(args[2])
				st, en := clampRange(int(start), int(end), len(r))
				return value.Str(string(r[st:en])), nil
			}},
		{Module: "string", Name: "index_of", Pure: true,
			Params: []*types.Type{types.TString, types.TString}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				sub, _ := str(args[1])
				return value.Number(strings.Index(s, sub)), nil
			}},
		{Module: "string", Name: "repeat", Pure: true,
			Params: []*types.Type{types.TString, types.TNumber}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				n, _ := num(args[1])
				if n < 0 {
					n = 0
				}
				return value.Str(strings.Repeat(s, int(n))), nil
			}},
		{Module: "string", Name: "pad_start", Pure: true,
			Params: []*types.Type{types.TString, types.TNumber, types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				n, _ := num(args[1])
				pad, _ := str(args[2])
				return value.Str(padTo(s, int(n), pad, true)), nil
			}},
		{Module: "string", Name: "pad_end", Pure: true,
			Params: []*types.Type{types.TString, types.TNumber, types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				n, _ := num(args[1])
				pad, _ := str(args[2])
				return value.Str(padTo(s, int(n), pad, false)), nil
			}},
		{Module: "string", Name: "char_at", Pure: true,
			Params: []*types.Type{types.TString, types.TNumber}, Result: types.TResult(types.TString, types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				r := []rune(s)
				i, _ := num(args[1])
				idx := int(i)
				if idx < 0 || idx >= len(r) {
					return value.ErrResult(value.Str("index out of range")), nil
				}
				return value.OkResult(value.Str(string(r[idx]))), nil
			}},
	}
}

func padTo(s string, n int, pad string, start bool) string {
	if pad == "" || len([]rune(s)) >= n {
		return s
	}
	need := n - len([]rune(s))
	var b strings.Builder
	for b.Len() < need {
		b.WriteString(pad)
	}
	filler := string([]rune(b.String())[:need])
	if start {
		return filler + s
	}
	return s + filler
}

// --------------------------------------------------------------- color ---

func colorFns() []Entry {
	asColor := func(v value.Value) value.Color { return v.(value.Color) }
	clamp01 := func(f float64) float64 { return math.Min(1, math.Max(0, f)) }
	return []Entry{
		{Module: "color", Name: "rgb", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				r, _ := num(args[0])
				g, _ := num(args[1])
				b, _ := num(args[2])
				return value.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: 1}, nil
			}},
		{Module: "color", Name: "rgba", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber, types.TNumber, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				r, _ := num(args[0])
				g, _ := num(args[1])
				b, _ := num(args[2])
				a, _ := num(args[3])
				return value.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: clamp01(a)}, nil
			}},
		{Module: "color", Name: "hex", Pure: true,
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TColor, types.TString),
			Impl: func(args []value.Value) (value.Value, error) {
				s, _ := str(args[0])
				c, err := parseHexColor(s)
				if err != nil {
					return value.ErrResult(value.Str(err.Error())), nil
				}
				return value.OkResult(c), nil
			}},
		{Module: "color", Name: "to_hex", Pure: true,
			Params: []*types.Type{types.TColor}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				c := asColor(args[0])
				return value.Str(colorToHex(c)), nil
			}},
		{Module: "color", Name: "with_alpha", Pure: true,
			Params: []*types.Type{types.TColor, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				c := asColor(args[0])
				a, _ := num(args[1])
				c.A = clamp01(a)
				return c, nil
			}},
		{Module: "color", Name: "lighten", Pure: true,
			Params: []*types.Type{types.TColor, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				c := asColor(args[0])
				amt, _ := num(args[1])
				return value.Color{
					R: clamp01(c.R + amt), G: clamp01(c.G + amt), B: clamp01(c.B + amt), A: c.A,
				}, nil
			}},
		{Module: "color", Name: "darken", Pure: true,
			Params: []*types.Type{types.TColor, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				c := asColor(args[0])
				amt, _ := num(args[1])
				return value.Color{
					R: clamp01(c.R - amt), G: clamp01(c.G - amt), B: clamp01(c.B - amt), A: c.A,
				}, nil
			}},
		{Module: "color", Name: "mix", Pure: true,
			Params: []*types.Type{types.TColor, types.TColor, types.TNumber}, Result: types.TColor,
			Impl: func(args []value.Value) (value.Value, error) {
				a := asColor(args[0])
				b := asColor(args[1])
				t, _ := num(args[2])
				t = clamp01(t)
				lerp := func(x, y float64) float64 { return x + (y-x)*t }
				return value.Color{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}, nil
			}},
	}
}

// ---------------------------------------------------------------- time ---

func timeFns() []Entry {
	return []Entry{
		// now() reads the host clock; it is not gated by a capability
		//, but
		// it has no Impl here since its return value is not a pure
		// function of its arguments. The evaluator special-cases
		// "time.now" by calling its injected clock.
		{Module: "time", Name: "now", Pure: false, Params: nil, Result: types.TNumber},
		{Module: "time", Name: "add", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				a, _ := num(args[0])
				b, _ := num(args[1])
				return value.Number(a + b), nil
			}},
		{Module: "time", Name: "diff", Pure: true,
			Params: []*types.Type{types.TNumber, types.TNumber}, Result: types.TNumber,
			Impl: func(args []value.Value) (value.Value, error) {
				a, _ := num(args[0])
				b, _ := num(args[1])
				return value.Number(a - b), nil
			}},
		{Module: "time", Name: "format", Pure: true,
			Params: []*types.Type{types.TNumber, types.TString}, Result: types.TString,
			Impl: func(args []value.Value) (value.Value, error) {
				ms, _ := num(args[0])
				layout, _ := str(args[1])
				return value.Str(formatEpochMillis(ms, layout)), nil
			}},
	}
}

// ---------------------------------------------------- capability modules ---

func httpFns() []Entry {
	resultRecord := types.TResult(types.TRecord(nil), types.TString)
	return []Entry{
		{Module: "http", Name: "get", Capability: "http",
			Params: []*types.Type{types.TString}, Result: resultRecord},
		{Module: "http", Name: "post", Capability: "http",
			Params: []*types.Type{types.TString, types.TRecord(nil)}, Result: resultRecord},
		{Module: "http", Name: "put", Capability: "http",
			Params: []*types.Type{types.TString, types.TRecord(nil)}, Result: resultRecord},
		{Module: "http", Name: "delete", Capability: "http",
			Params: []*types.Type{types.TString}, Result: resultRecord},
	}
}

func storageFns() []Entry {
	return []Entry{
		{Module: "storage", Name: "get", Capability: "storage",
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TString, types.TString)},
		{Module: "storage", Name: "set", Capability: "storage",
			Params: []*types.Type{types.TString, types.TString}, Result: types.TResult(types.TBool, types.TString)},
		{Module: "storage", Name: "remove", Capability: "storage",
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TBool, types.TString)},
		{Module: "storage", Name: "list_keys", Capability: "storage",
			Params: nil, Result: types.TResult(types.TList(types.TString), types.TString)},
	}
}

func locationFns() []Entry {
	return []Entry{
		{Module: "location", Name: "current", Capability: "location",
			Params: nil, Result: types.TResult(types.TRecord(nil), types.TString)},
		{Module: "location", Name: "watch", Capability: "location",
			Params: nil, Result: types.TResult(types.TRecord(nil), types.TString)},
	}
}

func notificationFns() []Entry {
	return []Entry{
		{Module: "notifications", Name: "schedule", Capability: "notifications",
			Params: []*types.Type{types.TString, types.TString}, Result: types.TResult(types.TBool, types.TString)},
		{Module: "notifications", Name: "cancel", Capability: "notifications",
			Params: []*types.Type{types.TString}, Result: types.TResult(types.TBool, types.TString)},
	}
}
