// Package value implements PEPL's tagged runtime value union,
// shared by the reference evaluator and the stdlib registry. Modeled as a
// tagged variant rather than a class hierarchy "Polymorphic
// runtime values, as a handful of concrete kinds plus free functions for
// equality, display, and coercion rather than a class hierarchy.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is any PEPL runtime value.
type Value interface {
	valueNode()
}

// Number is a double-precision PEPL number.
type Number float64

func (Number) valueNode() {}

// Str is an immutable PEPL string.
type Str string

func (Str) valueNode() {}

// Bool is a PEPL boolean.
type Bool bool

func (Bool) valueNode() {}

// Nil is PEPL's absent value.
type Nil struct{}

func (Nil) valueNode() {}

// List is an ordered, immutable-from-the-language's-perspective sequence.
// Mutating operations (list.push, ...) always return a new List.
type List struct {
	Elems []Value
}

func (*List) valueNode() {}

// NewList builds a List, copying elems so callers may reuse their slice.
func NewList(elems []Value) *List {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return &List{Elems: cp}
}

// Record is an insertion-ordered field map. Field order is kept for
// record.keys/record.values, but matters neither for structural equality
// nor for ToDisplayString, which sorts field names.
type Record struct {
	Names  []string
	Values map[string]Value
}

func (*Record) valueNode() {}

// NewRecord builds a Record from parallel name/value slices, preserving
// the given order.
func NewRecord(names []string, vals []Value) *Record {
	m := make(map[string]Value, len(names))
	for i, n := range names {
		m[n] = vals[i]
	}
	return &Record{Names: append([]string(nil), names...), Values: m}
}

// With returns a copy of r with field name replaced by v (immutable
// nested-record update). Adds the field if absent, but
// PEPL's checker never permits that for a `set`.
func (r *Record) With(name string, v Value) *Record {
	names := r.Names
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	vals := make(map[string]Value, len(r.Values)+1)
	for k, val := range r.Values {
		vals[k] = val
	}
	vals[name] = v
	if !found {
		names = append(append([]string(nil), names...), name)
	}
	return &Record{Names: names, Values: vals}
}

// Get reads a field, returning Nil if absent: an absent optional field
// defaults to nil.
func (r *Record) Get(name string) Value {
	if v, ok := r.Values[name]; ok {
		return v
	}
	return Nil{}
}

// SumVariant is a tagged sum-type value with optional payload fields.
type SumVariant struct {
	Name    string
	Payload *Record // nil for a bare tag
}

func (*SumVariant) valueNode() {}

// Result is PEPL's Result<T,E>: exactly one of Ok or Err is meaningful,
// discriminated by IsErr.
type Result struct {
	IsErr bool
	Ok    Value
	Err   Value
}

func (*Result) valueNode() {}

// OkResult builds a successful Result.
func OkResult(v Value) *Result { return &Result{Ok: v} }

// ErrResult builds a failed Result.
func ErrResult(v Value) *Result { return &Result{IsErr: true, Err: v} }

// Color is an RGBA color value.
type Color struct{ R, G, B, A float64 }

func (Color) valueNode() {}

// Function is a closure: params, a body the evaluator knows how to run,
// and its captured environment. Body is `interface{}` here to avoid an
// import cycle with internal/ast and internal/eval's Env type; the
// evaluator type-asserts it back to *ast.LambdaExpr/env pair it stored.
// Functions are never equal to anything, including themselves.
type Function struct {
	Name   string
	Params []string
	Body   interface{}
	Env    interface{}
}

func (*Function) valueNode() {}

// Surface is the root of a rendered UI tree. Node.Props values are
// already-evaluated Values or ActionSentinel.
type Surface struct {
	Root *SurfaceNode
}

func (*Surface) valueNode() {}

// SurfaceNode is one component instance in a rendered Surface tree.
type SurfaceNode struct {
	Component string
	Props     map[string]Value
	PropOrder []string
	Children  []*SurfaceNode
}

// ActionSentinel is the serializable placeholder for a UI prop that
// resolved to an action reference rather than a value,
// "serialized as { "__action": name }".
type ActionSentinel struct {
	Name string
}

func (ActionSentinel) valueNode() {}

// IsTruthy reports whether v is the Bool true. PEPL itself has no
// implicit truthiness (`if` requires a bool), so the evaluator's control
// flow does not use it.
func IsTruthy(v Value) bool {
	b, ok := v.(Bool)
	return ok && bool(b)
}

// TypeName returns the PEPL runtime type name of v, used in trap messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Str:
		return "string"
	case Bool:
		return "bool"
	case Nil:
		return "nil"
	case *List:
		return "list"
	case *Record:
		return "record"
	case *SumVariant:
		return "sum"
	case *Result:
		return "Result"
	case Color:
		return "color"
	case *Function:
		return "function"
	case *Surface:
		return "Surface"
	default:
		return "unknown"
	}
}

// Equal implements PEPL structural equality: numbers by value,
// strings by bytes, lists element-wise, records field-wise (name-sensitive,
// insertion order irrelevant), sum variants by name then payload. Functions
// are never equal to anything, including themselves.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && float64(av) == float64(bv)
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Nil:
		_, ok := b.(Nil)
		return ok
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		if !ok || len(av.Values) != len(bv.Values) {
			return false
		}
		for k, v := range av.Values {
			ov, ok := bv.Values[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	case *SumVariant:
		bv, ok := b.(*SumVariant)
		if !ok || av.Name != bv.Name {
			return false
		}
		if av.Payload == nil || bv.Payload == nil {
			return av.Payload == bv.Payload
		}
		return Equal(av.Payload, bv.Payload)
	case *Result:
		bv, ok := b.(*Result)
		if !ok || av.IsErr != bv.IsErr {
			return false
		}
		if av.IsErr {
			return Equal(av.Err, bv.Err)
		}
		return Equal(av.Ok, bv.Ok)
	case Color:
		bv, ok := b.(Color)
		return ok && av == bv
	case *Function:
		return false
	default:
		return false
	}
}

// ToDisplayString renders v the way string interpolation coerces
// non-string fragments: `to_string` with a canonical debug form for
// records and lists.
func ToDisplayString(v Value) string {
	switch t := v.(type) {
	case Number:
		return formatNumber(float64(t))
	case Str:
		return string(t)
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Nil:
		return "nil"
	case *List:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = ToDisplayString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Record:
		names := append([]string(nil), t.Names...)
		sort.Strings(names) // canonical debug form is deterministic regardless of insertion order
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s: %s", n, ToDisplayString(t.Values[n]))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *SumVariant:
		if t.Payload == nil {
			return t.Name
		}
		return t.Name + ToDisplayString(t.Payload)
	case *Result:
		if t.IsErr {
			return "Err(" + ToDisplayString(t.Err) + ")"
		}
		return "Ok(" + ToDisplayString(t.Ok) + ")"
	case Color:
		return fmt.Sprintf("rgba(%v, %v, %v, %v)", t.R, t.G, t.B, t.A)
	case *Function:
		return "<function>"
	case *Surface:
		return "<Surface>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToJSON converts v into plain Go data (map[string]interface{},
// []interface{}, float64, string, bool, nil) suitable for
// encoding/json.Marshal, the shape the thin browser binding and this repo's own --json CLI output both need.
// SurfaceNode props that resolved to an action reference serialize as the
// `{"__action": name}` sentinel.
func ToJSON(v Value) interface{} {
	switch t := v.(type) {
	case Number:
		return float64(t)
	case Str:
		return string(t)
	case Bool:
		return bool(t)
	case Nil:
		return nil
	case *List:
		out := make([]interface{}, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = ToJSON(e)
		}
		return out
	case *Record:
		out := make(map[string]interface{}, len(t.Names))
		for _, n := range t.Names {
			out[n] = ToJSON(t.Values[n])
		}
		return out
	case *SumVariant:
		out := map[string]interface{}{"tag": t.Name}
		if t.Payload != nil {
			out["payload"] = ToJSON(t.Payload)
		}
		return out
	case *Result:
		if t.IsErr {
			return map[string]interface{}{"err": ToJSON(t.Err)}
		}
		return map[string]interface{}{"ok": ToJSON(t.Ok)}
	case Color:
		return map[string]interface{}{"r": t.R, "g": t.G, "b": t.B, "a": t.A}
	case *Function:
		return nil
	case ActionSentinel:
		return map[string]interface{}{"__action": t.Name}
	case *Surface:
		return SurfaceNodeToJSON(t.Root)
	default:
		return nil
	}
}

// SurfaceNodeToJSON renders one rendered Surface tree node as plain Go
// data, keeping prop insertion order out of the map (JSON objects are
// unordered) but children order preserved.
func SurfaceNodeToJSON(n *SurfaceNode) map[string]interface{} {
	if n == nil {
		return nil
	}
	props := make(map[string]interface{}, len(n.PropOrder))
	for _, name := range n.PropOrder {
		props[name] = ToJSON(n.Props[name])
	}
	children := make([]interface{}, len(n.Children))
	for i, c := range n.Children {
		children[i] = SurfaceNodeToJSON(c)
	}
	return map[string]interface{}{
		"component": n.Component,
		"props":     props,
		"children":  children,
	}
}

func formatNumber(f float64) string {
	if math.Trunc(f) == f && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
