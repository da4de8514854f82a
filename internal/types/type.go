// Package types implements the PEPL type system: the Type tagged union
// and a registry of user-declared sum/alias types.
package types

import (
	"fmt"
	"strings"
)

// Tag discriminates the Type union.
type Tag int

const (
	Number Tag = iota
	String
	Bool
	Nil
	Any // compiler-internal only; rejected in user annotations
	Color
	Surface
	InputEvent
	List
	Record
	ResultT
	Func
	Named    // resolved user-defined sum or alias, by name
	Nullable // T | nil
)

// Type is PEPL's type value, an immutable tagged union.
type Type struct {
	Tag    Tag
	Elem   *Type        // List, Nullable
	Ok     *Type        // ResultT
	Err    *Type        // ResultT
	Fields []Field      // Record
	Params []*Type      // Func
	Result *Type        // Func
	Name   string       // Named
}

// Field is one record field: name, type, and whether it may be absent
// (absent optional fields default to nil at evaluation).
type Field struct {
	Name     string
	Type     *Type
	Optional bool
}

var (
	TNumber     = &Type{Tag: Number}
	TString     = &Type{Tag: String}
	TBool       = &Type{Tag: Bool}
	TNil        = &Type{Tag: Nil}
	TAny        = &Type{Tag: Any}
	TColor      = &Type{Tag: Color}
	TSurface    = &Type{Tag: Surface}
	TInputEvent = &Type{Tag: InputEvent}
)

// TList builds `list<elem>`.
func TList(elem *Type) *Type { return &Type{Tag: List, Elem: elem} }

// TResult builds `Result<ok,err>`.
func TResult(ok, err *Type) *Type { return &Type{Tag: ResultT, Ok: ok, Err: err} }

// TRecord builds `record { fields }`, preserving declaration order.
func TRecord(fields []Field) *Type { return &Type{Tag: Record, Fields: fields} }

// TFunc builds `(params) -> result`.
func TFunc(params []*Type, result *Type) *Type { return &Type{Tag: Func, Params: params, Result: result} }

// TNamed references a user-declared sum type or alias by name.
func TNamed(name string) *Type { return &Type{Tag: Named, Name: name} }

// TNullable builds `inner | nil`. Nullable(Nullable(T)) is flattened to
// Nullable(T): PEPL has no nested-optional syntax.
func TNullable(inner *Type) *Type {
	if inner.Tag == Nullable {
		return inner
	}
	return &Type{Tag: Nullable, Elem: inner}
}

// IsNullable reports whether t is `T | nil` and returns the payload type.
func (t *Type) IsNullable() (*Type, bool) {
	if t.Tag == Nullable {
		return t.Elem, true
	}
	return nil, false
}

// Field looks up a record field by name.
func (t *Type) Field(name string) (Field, bool) {
	if t.Tag != Record {
		return Field{}, false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// String renders a Type the way PEPL source would spell it, used in
// diagnostics and the get_reference() output.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Tag {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Nil:
		return "nil"
	case Any:
		return "any"
	case Color:
		return "color"
	case Surface:
		return "Surface"
	case InputEvent:
		return "InputEvent"
	case List:
		return fmt.Sprintf("list<%s>", t.Elem.String())
	case ResultT:
		return fmt.Sprintf("Result<%s,%s>", t.Ok.String(), t.Err.String())
	case Record:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			opt := ""
			if f.Optional {
				opt = "?"
			}
			parts[i] = fmt.Sprintf("%s%s: %s", f.Name, opt, f.Type.String())
		}
		return "record { " + strings.Join(parts, ", ") + " }"
	case Func:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Result.String())
	case Named:
		return t.Name
	case Nullable:
		return fmt.Sprintf("%s | nil", t.Elem.String())
	default:
		return "<invalid>"
	}
}

// Equal reports structural type equality (not identity).
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case List, Nullable:
		return Equal(a.Elem, b.Elem)
	case ResultT:
		return Equal(a.Ok, b.Ok) && Equal(a.Err, b.Err)
	case Named:
		return a.Name == b.Name
	case Record:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name ||
				a.Fields[i].Optional != b.Fields[i].Optional ||
				!Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case Func:
		if len(a.Params) != len(b.Params) || !Equal(a.Result, b.Result) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// SumVariant is one case of a user-declared sum type.
type SumVariant struct {
	Name   string
	Fields []Field // payload, empty for a bare tag
}

// SumType is a user-declared closed sum type, e.g. `type Traffic { Red,
// Yellow, Green }` or `type Shape { Circle(radius: number), Square(side: number) }`.
type SumType struct {
	Name     string
	Variants []SumVariant
}

// Registry holds user-declared types, collected in a pre-pass before
// checking so forward references resolve. Declaration order is preserved for deterministic iteration.
type Registry struct {
	order   []string
	sums    map[string]*SumType
	aliases map[string]*Type
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sums: map[string]*SumType{}, aliases: map[string]*Type{}}
}

// DeclareSum registers a sum type. Returns false if the name is already
// declared.
func (r *Registry) DeclareSum(st *SumType) bool {
	if r.declared(st.Name) {
		return false
	}
	r.sums[st.Name] = st
	r.order = append(r.order, st.Name)
	return true
}

// DeclareAlias registers a type alias. Returns false if the name is
// already declared.
func (r *Registry) DeclareAlias(name string, target *Type) bool {
	if r.declared(name) {
		return false
	}
	r.aliases[name] = target
	r.order = append(r.order, name)
	return true
}

func (r *Registry) declared(name string) bool {
	_, s := r.sums[name]
	_, a := r.aliases[name]
	return s || a
}

// Resolve looks up a user-declared name, following alias chains, and
// reports whether it exists.
func (r *Registry) Resolve(name string) (*Type, bool) {
	if _, ok := r.sums[name]; ok {
		return TNamed(name), true
	}
	if t, ok := r.aliases[name]; ok {
		return t, true
	}
	return nil, false
}

// Sum returns the SumType declaration for name, if it is a sum type.
func (r *Registry) Sum(name string) (*SumType, bool) {
	st, ok := r.sums[name]
	return st, ok
}

// VariantOwner returns the sum type that declares a variant tag, scanning
// in declaration order for determinism; PEPL does not allow the
// same tag name in two sum types within one program.
func (r *Registry) VariantOwner(variant string) (*SumType, *SumVariant, bool) {
	for _, n := range r.order {
		st, ok := r.sums[n]
		if !ok {
			continue
		}
		for i := range st.Variants {
			if st.Variants[i].Name == variant {
				return st, &st.Variants[i], true
			}
		}
	}
	return nil, nil, false
}

// Names returns declared type names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
