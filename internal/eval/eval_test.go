package eval_test

import (
	"testing"

	"pepl/internal/ast"
	"pepl/internal/checker"
	"pepl/internal/diag"
	"pepl/internal/eval"
	"pepl/internal/lexer"
	"pepl/internal/parser"
	"pepl/internal/value"
)

// compile lexes, parses, and checks src, failing the test on any
// diagnostic; it hands back the checked space plus the registries the
// evaluator needs, the same sequence internal/pipeline's frontEnd runs.
func compile(t *testing.T, src string) (*ast.SpaceDecl, checker.Result) {
	t.Helper()
	sf := diag.NewSourceFile("test.pepl", src)
	lr := lexer.New(sf).Scan()
	if len(lr.Errors) > 0 {
		t.Fatalf("lex errors: %v", lr.Errors)
	}
	pr := parser.New(sf, lr.Tokens).Parse()
	if len(pr.Errors) > 0 {
		t.Fatalf("parse errors: %v", pr.Errors)
	}
	cr := checker.New(sf).Check(pr.Program)
	if len(cr.Errors) > 0 {
		t.Fatalf("check errors: %v", cr.Errors)
	}
	return pr.Program.Space, cr
}

func TestActionCommitsAndDerivedRecomputes(t *testing.T) {
	src := `state {
  count: number = 0
}
derived {
  doubled: number = count * 2
}
action increment(by: number) {
  set count = count + by
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	out, err := ev.DispatchAction("increment", []value.Value{value.Number(5)})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Committed {
		t.Fatalf("expected commit, got %+v", out)
	}
	if got := ev.State().Get("count"); !value.Equal(got, value.Number(5)) {
		t.Fatalf("count = %v, want 5", got)
	}
	if got := ev.Derived().Get("doubled"); !value.Equal(got, value.Number(10)) {
		t.Fatalf("doubled = %v, want 10", got)
	}
}

func TestInvariantFailureRollsBackState(t *testing.T) {
	src := `state {
  balance: number = 10
}
invariant non_negative {
  balance >= 0
}
action withdraw(amount: number) {
  set balance = balance - amount
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	out, err := ev.DispatchAction("withdraw", []value.Value{value.Number(100)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Committed {
		t.Fatalf("expected rollback, got commit")
	}
	if out.InvariantFailed != "non_negative" {
		t.Fatalf("InvariantFailed = %q, want non_negative", out.InvariantFailed)
	}
	if got := ev.State().Get("balance"); !value.Equal(got, value.Number(10)) {
		t.Fatalf("balance = %v, want unchanged 10", got)
	}
}

func TestDivisionByZeroTrapsAndRollsBack(t *testing.T) {
	src := `state {
  result: number = 0
}
action divide(a: number, b: number) {
  set result = a / b
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	out, err := ev.DispatchAction("divide", []value.Value{value.Number(1), value.Number(0)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Trap == nil {
		t.Fatalf("expected a trap, got %+v", out)
	}
	if out.Trap.Kind != "division_by_zero" {
		t.Fatalf("trap kind = %q, want division_by_zero", out.Trap.Kind)
	}
}

func TestGasExhaustionTraps(t *testing.T) {
	src := `state {
  total: number = 0
}
action sumUp(items: list<number>) {
  for item in items {
    set total = total + item
  }
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg, eval.WithGasBudget(2))
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	items := value.NewList([]value.Value{value.Number(1), value.Number(2), value.Number(3), value.Number(4)})
	out, err := ev.DispatchAction("sumUp", []value.Value{items})
	if err != nil {
		t.Fatal(err)
	}
	if out.Trap == nil || out.Trap.Kind != "gas_exhausted" {
		t.Fatalf("expected gas_exhausted trap, got %+v", out)
	}
}

func TestCapabilityCallUnmockedReturnsErr(t *testing.T) {
	src := `state {
  body: string = ""
}
capabilities {
  required: ["http"]
}
action load(url: string) {
  let res = http.get(url)
  match res {
    Ok(value) -> { set body = value }
    Err(message) -> { set body = message }
  }
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	out, err := ev.DispatchAction("load", []value.Value{value.Str("https://example.com")})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Committed {
		t.Fatalf("expected commit (unmocked call resolves to Err, not a trap), got %+v", out)
	}
	if got := ev.State().Get("body"); !value.Equal(got, value.Str("unmocked_call")) {
		t.Fatalf("body = %v, want unmocked_call", got)
	}
}

func TestRunTestsWithMockedResponse(t *testing.T) {
	src := `state {
  body: string = ""
}
capabilities {
  required: ["http"]
}
action load(url: string) {
  let res = http.get(url)
  match res {
    Ok(value) -> { set body = value }
    Err(message) -> { set body = message }
  }
}

tests {
  test "loads body from mocked response" with_responses {
    http.get -> Ok("hello")
  } {
    load("https://example.com")
    assert body == "hello"
  }

  test "second mocked call fails the assertion on purpose" with_responses {
    http.get -> Err("boom")
  } {
    load("https://example.com")
    assert body == "hello", "expected mocked body"
  }
}`
	sf := diag.NewSourceFile("test.pepl", src)
	lr := lexer.New(sf).Scan()
	if len(lr.Errors) > 0 {
		t.Fatalf("lex errors: %v", lr.Errors)
	}
	pr := parser.New(sf, lr.Tokens).Parse()
	if len(pr.Errors) > 0 {
		t.Fatalf("parse errors: %v", pr.Errors)
	}
	cr := checker.New(sf).Check(pr.Program)
	if len(cr.Errors) > 0 {
		t.Fatalf("check errors: %v", cr.Errors)
	}
	ev := eval.New(pr.Program.Space, cr.TypeReg, cr.StdReg)
	summary, err := ev.RunTests(pr.Program.Tests)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Passed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 passed / 1 failed", summary)
	}
}

func TestRenderViewResolvesActionProps(t *testing.T) {
	src := `state {
  on: bool = false
}
action flip() {
  set on = not on
}
view root() {
  Button { label: "flip", onPress: flip } {}
}`
	sp, cr := compile(t, src)
	ev := eval.New(sp, cr.TypeReg, cr.StdReg)
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}
	surf, trap, err := ev.RenderView("root", nil)
	if err != nil {
		t.Fatal(err)
	}
	if trap != nil {
		t.Fatalf("unexpected trap: %+v", trap)
	}
	sentinel, ok := surf.Root.Props["onPress"].(value.ActionSentinel)
	if !ok {
		t.Fatalf("onPress prop = %#v, want an ActionSentinel", surf.Root.Props["onPress"])
	}
	if sentinel.Name != "flip" {
		t.Fatalf("sentinel.Name = %q, want flip", sentinel.Name)
	}
}
