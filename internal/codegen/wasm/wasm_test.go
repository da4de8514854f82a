package wasm_test

import (
	"encoding/binary"
	"testing"

	"pepl/internal/ast"
	"pepl/internal/checker"
	"pepl/internal/codegen/wasm"
	"pepl/internal/diag"
	"pepl/internal/lexer"
	"pepl/internal/parser"
)

// compile lexes, parses, and checks src, failing the test on any
// diagnostic; mirrors internal/eval's own test helper of the same shape
// since both packages consume the identical checker output.
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

const counterSrc = `state {
  count: number = 0
}
derived {
  doubled: number = count * 2
}
invariant nonneg {
  count >= 0
}
action increment(by: number) {
  assert by >= 0
  set count = count + by
}
action reset() {
  set count = 0
}
view label() {
  return Text { value: doubled }
}`

func TestGenerateProducesValidModuleHeader(t *testing.T) {
	sp, cr := compile(t, counterSrc)
	res, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Wasm) < 8 {
		t.Fatalf("wasm output too short: %d bytes", len(res.Wasm))
	}
	if got := binary.LittleEndian.Uint32(res.Wasm[0:4]); got != 0x6D736100 {
		t.Fatalf("bad magic: %x", got)
	}
	if got := binary.LittleEndian.Uint32(res.Wasm[4:8]); got != 1 {
		t.Fatalf("bad version: %d", got)
	}
}

func TestGenerateAssignsActionIndicesInDeclarationOrder(t *testing.T) {
	sp, cr := compile(t, counterSrc)
	res, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionsIdx["increment"] != 0 {
		t.Fatalf("increment id = %d, want 0", res.ActionsIdx["increment"])
	}
	if res.ActionsIdx["reset"] != 1 {
		t.Fatalf("reset id = %d, want 1", res.ActionsIdx["reset"])
	}
}

func TestGenerateInternsStateAndDerivedFieldNames(t *testing.T) {
	sp, cr := compile(t, counterSrc)
	res, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"count": false, "doubled": false}
	for _, n := range res.NameTable {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Fatalf("name table missing %q: %v", n, res.NameTable)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	sp1, cr1 := compile(t, counterSrc)
	res1, err := wasm.Generate(sp1, cr1.TypeReg, cr1.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	sp2, cr2 := compile(t, counterSrc)
	res2, err := wasm.Generate(sp2, cr2.TypeReg, cr2.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res1.Wasm) != len(res2.Wasm) {
		t.Fatalf("byte length differs across runs: %d vs %d", len(res1.Wasm), len(res2.Wasm))
	}
	for i := range res1.Wasm {
		if res1.Wasm[i] != res2.Wasm[i] {
			t.Fatalf("byte %d differs across identical-source runs: %x vs %x", i, res1.Wasm[i], res2.Wasm[i])
		}
	}
}

func TestGenerateHandlesLambdaCapturesAndListHOFs(t *testing.T) {
	src := `state {
  items: list<number> = []
  threshold: number = 0
}
action addAboveThreshold(candidates: list<number>) {
  let kept = list.filter(candidates, fn(n: number) { n > threshold })
  set items = kept
}`
	sp, cr := compile(t, src)
	res, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Wasm) == 0 {
		t.Fatal("expected non-empty module")
	}
}

func TestGenerateHandlesReturnInsideNestedControlFlow(t *testing.T) {
	src := `state {
  count: number = 0
}
invariant nonneg {
  count >= 0
}
action bump(by: number) {
  if by < 0 {
    return
  }
  for i in [1, 2, 3] {
    if i == by {
      set count = count + i
      return
    }
  }
  set count = count + 1
}`
	sp, cr := compile(t, src)
	res, err := wasm.Generate(sp, cr.TypeReg, cr.StdReg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.ActionsIdx["bump"]; !ok {
		t.Fatal("expected bump action to be compiled")
	}
}
