package checker

import (
	"testing"

	"pepl/internal/diag"
	"pepl/internal/lexer"
	"pepl/internal/parser"
)

// checkSource lexes, parses, and checks src, returning every diagnostic
// collected across all three stages.
func checkSource(t *testing.T, src string) []*diag.Diagnostic {
	t.Helper()
	sf := diag.NewSourceFile("test.pepl", src)
	lr := lexer.New(sf).Scan()
	pr := parser.New(sf, lr.Tokens).Parse()
	var all []*diag.Diagnostic
	all = append(all, lr.Errors...)
	all = append(all, pr.Errors...)
	res := New(sf).Check(pr.Program)
	all = append(all, res.Errors...)
	return all
}

func hasCode(diags []*diag.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func countCode(diags []*diag.Diagnostic, code string) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestCounterIncrementCompiles(t *testing.T) {
	src := `
state {
	count: number = 0
}
action increment() {
	set count = count + 1
}
`
	diags := checkSource(t, src)
	if len(diags) != 0 {
		t.Fatalf("expected a clean compile, got %v", diags)
	}
}

func TestInvariantRollbackScenario(t *testing.T) {
	src := `
state {
	balance: number = 100
}
invariant nonneg {
	balance >= 0
}
action withdraw(n: number) {
	set balance = balance - n
}
`
	diags := checkSource(t, src)
	if len(diags) != 0 {
		t.Fatalf("expected a clean compile, got %v", diags)
	}
}

func TestDerivedRecomputeScenario(t *testing.T) {
	src := `
state {
	items: list<number> = []
}
derived {
	total: number = list.sum(items)
}
action add(n: number) {
	set items = list.push(items, n)
}
`
	diags := checkSource(t, src)
	if len(diags) != 0 {
		t.Fatalf("expected a clean compile, got %v", diags)
	}
}

func TestMatchExhaustivenessScenarioD(t *testing.T) {
	src := `
type Traffic { Red, Yellow, Green }
state {
	x: number = 0
}
view label(t: Traffic) {
	match t {
		Red -> Text { text: "stop" }
	}
}
`
	diags := checkSource(t, src)
	if countCode(diags, diag.ErrNonExhaustive) != 1 {
		t.Fatalf("expected exactly one E210, got %v", diags)
	}
}

func TestBlockOrderingViolationScenarioE(t *testing.T) {
	src := `
action foo() {}
state {
	x: number = 0
}
`
	diags := checkSource(t, src)
	if countCode(diags, diag.ErrBlockOrder) != 1 {
		t.Fatalf("expected exactly one E600, got %v", diags)
	}
}

func TestShadowingIsRejected(t *testing.T) {
	src := `
state {
	count: number = 0
}
action bump() {
	let count = 1
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrShadowedBinding) {
		t.Fatalf("expected E500 for shadowing state field, got %v", diags)
	}
}

func TestStateInitializerMustBePure(t *testing.T) {
	src := `
state {
	a: number = 1
	b: number = a + 1
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrImpureStateInit) {
		t.Fatalf("expected E302 for sibling-state reference in initializer, got %v", diags)
	}
}

func TestInvariantCannotReferenceDerived(t *testing.T) {
	src := `
state {
	items: list<number> = []
}
derived {
	total: number = list.sum(items)
}
invariant bounded {
	total < 100
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrDerivedRefInInvariant) {
		t.Fatalf("expected E300 for invariant referencing a derived field, got %v", diags)
	}
}

func TestDerivedOutOfOrderIsCycle(t *testing.T) {
	src := `
state {
	items: list<number> = []
}
derived {
	doubled: number = total * 2
	total: number = list.sum(items)
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrDerivedCycle) {
		t.Fatalf("expected E301 for out-of-order derived reference, got %v", diags)
	}
}

func TestSetOutsideActionIsRejected(t *testing.T) {
	src := `
state {
	count: number = 0
}
view show() {
	set count = 1
	Text { text: "x" }
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrSetOutsideAction) {
		t.Fatalf("expected E501 for 'set' outside an action, got %v", diags)
	}
}

func TestSetCannotTargetDerived(t *testing.T) {
	src := `
state {
	items: list<number> = []
}
derived {
	total: number = list.sum(items)
}
action reset() {
	set total = 0
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrSetTargetsDerived) {
		t.Fatalf("expected E601 for 'set' targeting a derived field, got %v", diags)
	}
}

func TestSetTargetMustBeStateField(t *testing.T) {
	src := `
state {
	count: number = 0
}
action bump() {
	set nope = 1
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrSetNotStateField) {
		t.Fatalf("expected E101 for 'set' on an undeclared field, got %v", diags)
	}
}

func TestDirectRecursionIsDetected(t *testing.T) {
	src := `
state {
	count: number = 0
}
action loop() {
	loop()
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrRecursionDetected) {
		t.Fatalf("expected E502 for direct action recursion, got %v", diags)
	}
}

func TestIndirectRecursionIsDetected(t *testing.T) {
	src := `
state {
	count: number = 0
}
action a() {
	b()
}
action b() {
	a()
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrRecursionDetected) {
		t.Fatalf("expected E502 for indirect action recursion, got %v", diags)
	}
}

func TestLambdaSelfRecursionIsUndefinedName(t *testing.T) {
	src := `
state {
	count: number = 0
}
action run() {
	let f = fn() { f() }
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrUnknownField) {
		t.Fatalf("expected the lambda's self-reference to be an ordinary undefined name, got %v", diags)
	}
	if hasCode(diags, diag.ErrRecursionDetected) {
		t.Fatalf("lambda self-recursion should not reach the call-graph pass, got %v", diags)
	}
}

func TestNilNarrowingProperty11(t *testing.T) {
	narrowed := `
type Box { Some(value: number) }
state {
	x: number | nil = nil
}
action touch() {
	if x != nil {
		set x = x + 1
	}
}
`
	diags := checkSource(t, narrowed)
	if len(diags) != 0 {
		t.Fatalf("expected 'if x != nil' to narrow x for the guarded branch, got %v", diags)
	}

	unguarded := `
state {
	x: number | nil = nil
}
action touch() {
	set x = x + 1
}
`
	diags = checkSource(t, unguarded)
	if len(diags) == 0 {
		t.Fatalf("expected a type error using a nullable value without a nil guard")
	}
}

func TestCapabilityPermissionDenied(t *testing.T) {
	src := `
state {
	x: number = 0
}
action fetch() {
	http.get("https://example.com")
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrUnknownCapabilityCall) {
		t.Fatalf("expected E400 for a capability call with no declared capability, got %v", diags)
	}
}

func TestCapabilityPermissionGranted(t *testing.T) {
	src := `
state {
	x: number = 0
}
capabilities {
	required: ["http"]
}
action fetch() {
	let r = http.get("https://example.com")
}
`
	diags := checkSource(t, src)
	if hasCode(diags, diag.ErrUnknownCapabilityCall) {
		t.Fatalf("declared http capability should permit http.get, got %v", diags)
	}
}

func TestStdlibCallWrongArity(t *testing.T) {
	src := `
state {
	items: list<number> = []
}
action grow() {
	set items = list.push(items)
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrBadArity) {
		t.Fatalf("expected E202 for wrong stdlib call arity, got %v", diags)
	}
}

func TestUnknownComponentIsRejected(t *testing.T) {
	src := `
state {
	x: number = 0
}
view show() {
	Frobnicator { text: "x" }
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrUnknownComponent) {
		t.Fatalf("expected E402 for an unknown UI component, got %v", diags)
	}
}

func TestSumMatchWithWildcardIsExhaustive(t *testing.T) {
	src := `
type Traffic { Red, Yellow, Green }
state {
	x: number = 0
}
view label(t: Traffic) {
	match t {
		Red -> Text { text: "stop" }
		_ -> Text { text: "go" }
	}
}
`
	diags := checkSource(t, src)
	if hasCode(diags, diag.ErrNonExhaustive) {
		t.Fatalf("wildcard arm should satisfy exhaustiveness, got %v", diags)
	}
}

func TestResultMatchRequiresBothArms(t *testing.T) {
	src := `
state {
	x: number = 0
}
capabilities {
	required: ["http"]
}
action fetch() {
	let r = http.get("https://example.com")
	match r {
		Ok(v) -> assert true
	}
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrNonExhaustive) {
		t.Fatalf("expected E210 for a Result match missing Err(...), got %v", diags)
	}
}

func TestSelfReferentialSumTypeResolves(t *testing.T) {
	src := `
type Tree {
	Leaf,
	Node(left: Tree, right: Tree)
}
state {
	x: number = 0
}
`
	diags := checkSource(t, src)
	if len(diags) != 0 {
		t.Fatalf("expected a self-referential sum type to resolve regardless of order, got %v", diags)
	}
}

func TestStructuralLimitTooManyParams(t *testing.T) {
	src := `
state {
	x: number = 0
}
action many(a: number, b: number, c: number, d: number, e: number, f: number, g: number, h: number, i: number) {
}
`
	diags := checkSource(t, src)
	if !hasCode(diags, diag.ErrStructuralLimit) {
		t.Fatalf("expected E607 for exceeding the 8-parameter limit, got %v", diags)
	}
}

func TestErrorRecoveryCollectsMultipleDiagnostics(t *testing.T) {
	src := `
state {
	x: number = 0
}
action a() {
	set nope1 = 1
}
action b() {
	set nope2 = 1
}
action c() {
	set nope3 = 1
}
`
	diags := checkSource(t, src)
	if countCode(diags, diag.ErrSetNotStateField) != 3 {
		t.Fatalf("expected three independent E101 diagnostics, got %v", diags)
	}
}
