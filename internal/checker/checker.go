// Package checker implements PEPL's type and invariant checker:
// scope-stacked name resolution, type inference/checking over the AST,
// capability/credential permission checks, and structural rules
// (recursion, derived-field ordering, purity) that cannot be enforced by
// the parser alone.
package checker

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/stdlib"
	"pepl/internal/types"
)

// Result is the checker's output.
type Result struct {
	Errors   []*diag.Diagnostic
	TypeReg  *types.Registry
	StateTy  map[string]*types.Type // state field name -> type
	Derived  map[string]*types.Type // derived field name -> type
	StdReg   *stdlib.Registry
}

// Checker walks a Program once, in declaration order, seeding the type
// registry before checking bodies so forward references between user
// types resolve.
type Checker struct {
	sf      *diag.SourceFile
	bag     *diag.Bag
	types   *types.Registry
	std     *stdlib.Registry
	scopes  *scopeStack
	state   map[string]*types.Type
	derived map[string]*types.Type
	credentials map[string]bool
	capsRequired map[string]bool
	capsOptional map[string]bool
	actions      map[string]bool
	callables    map[string]string // plain name -> call-graph node key, for actions/views/update/handleEvent
	inAction    bool
	inView      bool
	callGraph   map[string][]string
	curFn       string

	pureOnly         bool
	pureLabel        string
	allDerivedNames  map[string]bool
	invariantOnly    bool
}

// New builds a Checker over sf, ready to Check one Program.
func New(sf *diag.SourceFile) *Checker {
	return &Checker{
		sf:           sf,
		bag:          diag.NewBag(sf),
		types:        types.NewRegistry(),
		std:          stdlib.New(),
		scopes:       newScopeStack(),
		state:        map[string]*types.Type{},
		derived:      map[string]*types.Type{},
		credentials:  map[string]bool{},
		capsRequired: map[string]bool{},
		capsOptional: map[string]bool{},
		actions:      map[string]bool{},
		callables:    map[string]string{},
		allDerivedNames: map[string]bool{},
		callGraph:    map[string][]string{},
	}
}

// Check runs the full checker pipeline over prog.
func (c *Checker) Check(prog *ast.Program) Result {
	if prog.Space != nil {
		c.checkSpace(prog.Space)
	}
	for _, tb := range prog.Tests {
		c.checkTestsBlock(tb)
	}
	c.checkRecursion()
	return Result{
		Errors:  c.bag.All(),
		TypeReg: c.types,
		StateTy: c.state,
		Derived: c.derived,
		StdReg:  c.std,
	}
}

func (c *Checker) errorf(span diag.Span, code, format string, args ...interface{}) {
	if c.bag.Full() {
		return
	}
	c.bag.Errorf(code, span, format, args...)
}

func (c *Checker) checkSpace(sp *ast.SpaceDecl) {
	c.seedTypes(sp.Types)
	for _, td := range sp.Types {
		c.checkTypeDecl(td)
	}

	c.scopes.push(scopeSpace)
	defer c.scopes.pop()

	if sp.State != nil {
		c.checkStateDecl(sp.State)
	}
	if sp.Capabilities != nil {
		c.checkCapabilities(sp.Capabilities)
	}
	if sp.Credentials != nil {
		c.checkCredentials(sp.Credentials)
	}
	if sp.Derived != nil {
		c.checkDerived(sp.Derived)
	}
	// Register actions/views as callable names before checking any body, so
	// action-from-view and action-from-action calls resolve regardless of
	// declaration order, and so the call graph built while checking bodies
	// can be cycle-detected afterward.
	for _, a := range sp.Actions {
		c.actions[a.Name] = true
		c.callables[a.Name] = "action:" + a.Name
		c.scopes.Declare(a.Name, types.TFunc(c.paramTypes(a.Params), types.TNil))
	}
	for _, v := range sp.Views {
		c.callables[v.Name] = "view:" + v.Name
		c.scopes.Declare(v.Name, types.TFunc(c.paramTypes(v.Params), types.TSurface))
	}
	for _, inv := range sp.Invariants {
		c.checkInvariant(inv)
	}
	for _, a := range sp.Actions {
		c.checkAction(a)
	}
	for _, v := range sp.Views {
		c.checkView(v)
	}
	if sp.Update != nil {
		c.checkUpdateHook(sp.Update)
	}
	if sp.HandleEvent != nil {
		c.checkHandleEventHook(sp.HandleEvent)
	}
}

// seedTypes registers every declared type name before resolving any field
// or alias target, so mutually- and self-referential types (a sum type
// whose own variant holds itself, two sum types that reference each
// other) resolve regardless of declaration order. Pass one declares bare names; pass two fills in variant
// fields and alias targets now that every name a resolveTypeExpr call
// might hit already exists in the registry.
func (c *Checker) seedTypes(decls []*ast.TypeDecl) {
	sumPtrs := map[string]*types.SumType{}
	aliasPtrs := map[string]*types.Type{}
	for _, td := range decls {
		if td.Alias != nil {
			ph := &types.Type{}
			if !c.types.DeclareAlias(td.Name, ph) {
				c.errorf(td.Sp, diag.ErrUnknownType, "type %q already declared", td.Name)
				continue
			}
			aliasPtrs[td.Name] = ph
			continue
		}
		st := &types.SumType{Name: td.Name}
		if !c.types.DeclareSum(st) {
			c.errorf(td.Sp, diag.ErrUnknownType, "type %q already declared", td.Name)
			continue
		}
		sumPtrs[td.Name] = st
	}
	for _, td := range decls {
		if td.Alias != nil {
			ph, ok := aliasPtrs[td.Name]
			if !ok {
				continue
			}
			resolved := c.resolveTypeExpr(td.Alias)
			*ph = *resolved
			continue
		}
		st, ok := sumPtrs[td.Name]
		if !ok {
			continue
		}
		for _, v := range td.Variants {
			var fields []types.Field
			for _, f := range v.Fields {
				fields = append(fields, types.Field{Name: f.Name, Type: c.resolveTypeExpr(f.Type), Optional: f.Optional})
			}
			st.Variants = append(st.Variants, types.SumVariant{Name: v.Name, Fields: fields})
		}
	}
}

func (c *Checker) paramTypes(params []*ast.Param) []*types.Type {
	out := make([]*types.Type, len(params))
	for i, p := range params {
		if p.Type != nil {
			out[i] = c.resolveTypeExpr(p.Type)
		} else {
			out[i] = types.TAny
		}
	}
	return out
}

func (c *Checker) checkTypeDecl(td *ast.TypeDecl) {
	seen := map[string]bool{}
	for _, v := range td.Variants {
		if seen[v.Name] {
			c.errorf(v.Sp, diag.ErrUnknownType, "duplicate variant %q in type %q", v.Name, td.Name)
		}
		seen[v.Name] = true
	}
}
