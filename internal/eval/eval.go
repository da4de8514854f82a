// Package eval is PEPL's reference evaluator: a tree-walking
// interpreter over the checked AST that is the ground truth for runtime
// semantics the WASM code generator (internal/codegen/wasm) must match
// byte-for-byte on every observable outcome. Unlike the
// a bytecode VM, PEPL has no separate compile-to-bytecode step here: the
// tree is walked directly, since this is the reference implementation the
// compiled WASM output is checked against, not a fast path of its own.
package eval

import (
	"fmt"
	stdtime "time"

	"pepl/internal/ast"
	"pepl/internal/stdlib"
	"pepl/internal/types"
	"pepl/internal/value"
)

// Evaluator holds one space's declarations plus the mutable runtime state
// of a single running instance. State and derived live directly on the
// Evaluator rather than in an Env, since every read of a state field from
// anywhere in an action body must see the latest `set`, not a value
// captured when the body started.
type Evaluator struct {
	space *ast.SpaceDecl
	types *types.Registry
	std   *stdlib.Registry

	state   *value.Record
	derived *value.Record

	gas       int64
	gasBudget int64

	actionByName map[string]*ast.ActionDecl
	viewByName   map[string]*ast.ViewDecl

	credentialNames map[string]bool
	credentials     map[string]string

	clock func() float64

	mocks *mockContext
	host  CapabilityHost
}

// CapabilityHost mediates a capability-module call (storage, http,
// location, notifications) outside of a test's with_responses block. A
// host returns the *Result value the capability function's signature
// promises directly, already wrapped Ok/Err; it is never consulted while
// a mockContext is active, since a test that opts into with_responses
// wants fully deterministic replay regardless of what host is wired in.
type CapabilityHost interface {
	Call(module, fn string, args []value.Value) value.Value
}

// Option configures an Evaluator at construction time.
type Option func(*Evaluator)

// WithGasBudget overrides DefaultGasBudget.
func WithGasBudget(n int64) Option {
	return func(e *Evaluator) { e.gasBudget = n }
}

// WithCredentials supplies host-provided credential values by name. Any
// declared credential with no supplied value reads as the empty string;
// credential values are never part of a CompileResult or a source-mapped
// trace, only ever injected at run time.
func WithCredentials(creds map[string]string) Option {
	return func(e *Evaluator) {
		for k, v := range creds {
			e.credentials[k] = v
		}
	}
}

// WithCapabilityHost wires a live backend (internal/capstore, a
// dev-server's own http/location/notifications stubs) in for capability
// calls made outside a test's with_responses block. Without one, such
// calls always return Err("unmocked_call"), the evaluator's prior
// behavior.
func WithCapabilityHost(host CapabilityHost) Option {
	return func(e *Evaluator) { e.host = host }
}

// WithClock overrides time.now()'s source, defaulting to the wall clock.
// Tests that need deterministic replay should supply a fixed or stepped clock instead of relying
// on the default.
func WithClock(fn func() float64) Option {
	return func(e *Evaluator) { e.clock = fn }
}

// New builds an Evaluator for sp. treg and std come from the checker's
// Result: a *ast.SpaceDecl already passed static
// analysis, so this constructor never re-validates arity, types, or
// capability declarations.
func New(sp *ast.SpaceDecl, treg *types.Registry, std *stdlib.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		space:           sp,
		types:           treg,
		std:             std,
		gasBudget:       DefaultGasBudget,
		actionByName:    map[string]*ast.ActionDecl{},
		viewByName:      map[string]*ast.ViewDecl{},
		credentialNames: map[string]bool{},
		credentials:     map[string]string{},
		clock:           func() float64 { return float64(stdtime.Now().UnixMilli()) },
	}
	for _, a := range sp.Actions {
		e.actionByName[a.Name] = a
	}
	for _, v := range sp.Views {
		e.viewByName[v.Name] = v
	}
	if sp.Credentials != nil {
		for _, n := range sp.Credentials.Names {
			e.credentialNames[n] = true
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init evaluates state field initializers in declaration order, then every
// derived field in declaration order.
// It resets the gas budget, so it also doubles as the per-test reset used
// by RunTests.
func (e *Evaluator) Init() error {
	e.gas = e.gasBudget
	e.state = value.NewRecord(nil, nil)
	for _, f := range e.space.State.Fields {
		v := e.evalExpr(f.Init, nil)
		e.state = e.state.With(f.Name, v)
	}
	e.recomputeDerived()
	return nil
}

func (e *Evaluator) recomputeDerived() {
	e.derived = value.NewRecord(nil, nil)
	if e.space.Derived == nil {
		return
	}
	for _, f := range e.space.Derived.Fields {
		v := e.evalExpr(f.Expr, nil)
		e.derived = e.derived.With(f.Name, v)
	}
}

func (e *Evaluator) firstFailingInvariant() (string, bool) {
	for _, inv := range e.space.Invariants {
		v, _ := e.evalExpr(inv.Expr, nil).(value.Bool)
		if !bool(v) {
			return inv.Name, true
		}
	}
	return "", false
}

// State returns the current committed state record.
func (e *Evaluator) State() *value.Record { return e.state }

// Derived returns the current derived-field record.
func (e *Evaluator) Derived() *value.Record { return e.derived }

// CommitOutcome is the result of one action/update/handleEvent dispatch.
// Exactly one of Committed, Trap, or
// InvariantFailed describes what happened.
type CommitOutcome struct {
	Committed       bool
	Trap            *stdlib.TrapError
	InvariantFailed string // invariant name, non-empty only on rollback-by-invariant
	Return          value.Value
}

// runTransaction is the single atomicity boundary used by DispatchAction,
// Update, and HandleEvent: snapshot state, bind params, run
// the body, then either roll back (on trap or failing invariant) or
// commit and recompute derived fields. A trap mid-body rolls back the
// same as an invariant failure: PEPL gives no way for a partially-applied
// action to be observed from outside.
func (e *Evaluator) runTransaction(params []*ast.Param, body []ast.Stmt, args []value.Value) *CommitOutcome {
	snapState, snapDerived := e.state, e.derived
	outcome := &CommitOutcome{}
	var trap *stdlib.TrapError
	func() {
		defer recoverTrap(&trap)
		e.chargeGas(1)
		env := NewEnv(nil)
		for i, p := range params {
			if i < len(args) {
				env.Define(p.Name, args[i])
			}
		}
		v, _ := e.execBlock(body, env)
		outcome.Return = v
	}()
	if trap != nil {
		e.state, e.derived = snapState, snapDerived
		outcome.Trap = trap
		return outcome
	}
	if name, failed := e.firstFailingInvariant(); failed {
		e.state, e.derived = snapState, snapDerived
		outcome.InvariantFailed = name
		return outcome
	}
	e.recomputeDerived()
	outcome.Committed = true
	return outcome
}

// DispatchAction runs the named action to completion.
func (e *Evaluator) DispatchAction(name string, args []value.Value) (*CommitOutcome, error) {
	a, ok := e.actionByName[name]
	if !ok {
		return nil, fmt.Errorf("pepl/eval: no such action %q", name)
	}
	return e.runTransaction(a.Params, a.Body, args), nil
}

// Update runs the space's update(dt) hook, if declared. update(dt) and
// handleEvent are actions with fixed signatures and the same commit
// semantics as any other action.
func (e *Evaluator) Update(dt float64) (*CommitOutcome, error) {
	if e.space.Update == nil {
		return nil, fmt.Errorf("pepl/eval: space has no update hook")
	}
	params := []*ast.Param{{Name: e.space.Update.Param}}
	return e.runTransaction(params, e.space.Update.Body, []value.Value{value.Number(dt)}), nil
}

// HandleEvent runs the space's handleEvent(event) hook, if declared.
func (e *Evaluator) HandleEvent(event value.Value) (*CommitOutcome, error) {
	if e.space.HandleEvent == nil {
		return nil, fmt.Errorf("pepl/eval: space has no handleEvent hook")
	}
	params := []*ast.Param{{Name: e.space.HandleEvent.Param}}
	return e.runTransaction(params, e.space.HandleEvent.Body, []value.Value{event}), nil
}

// TestResult is one `test "..."` outcome.
type TestResult struct {
	Name    string
	Passed  bool
	Failure string
}

// TestRunSummary aggregates every test across every tests block in a
// program.
type TestRunSummary struct {
	Results []TestResult
	Passed  int
	Failed  int
}

// RunTests re-initializes state before every test (so tests never see
// leftover state from a previous one), installs that test's with_responses
// mocks for the duration of its body, and records a pass/fail per test.
func (e *Evaluator) RunTests(tests []*ast.TestsBlock) (*TestRunSummary, error) {
	summary := &TestRunSummary{}
	for _, tb := range tests {
		for _, t := range tb.Tests {
			if err := e.Init(); err != nil {
				return nil, err
			}
			e.mocks = newMockContext(t.Responses)
			res := e.runTest(t)
			e.mocks = nil
			summary.Results = append(summary.Results, res)
			if res.Passed {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}
	return summary, nil
}

func (e *Evaluator) runTest(t *ast.Test) TestResult {
	result := TestResult{Name: t.Description}
	var trap *stdlib.TrapError
	func() {
		defer recoverTrap(&trap)
		e.chargeGas(1)
		env := NewEnv(nil)
		e.execBlock(t.Body, env)
	}()
	if trap != nil {
		result.Failure = trap.Message
		return result
	}
	result.Passed = true
	return result
}
