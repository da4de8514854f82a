package checker

import "pepl/internal/diag"

// cycleSpan is used for the E502 diagnostic: a cycle spans multiple
// declarations, so it is reported at the start of the file rather than
// picking one arbitrary call site among several equally-responsible ones.
func (c *Checker) cycleSpan() diag.Span { return c.sf.Span(0, 0) }

// checkRecursion runs a DFS cycle detection over the call graph built while
// checking action/view/update/handleEvent bodies. Self-recursive lambdas never reach this graph at all: a
// lambda's own let-binding is declared only after its body is checked, so
// `let f = fn() { f() }` is already an ordinary undefined-name error by
// construction, not something this pass needs to special-case.
func (c *Checker) checkRecursion() {
	color := map[string]int{} // 0 unvisited, 1 in-stack, 2 done
	var stack []string
	var visit func(node string) bool
	visit = func(node string) bool {
		switch color[node] {
		case 1:
			return true
		case 2:
			return false
		}
		color[node] = 1
		stack = append(stack, node)
		for _, next := range c.callGraph[node] {
			if visit(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = 2
		return false
	}
	seen := map[string]bool{}
	for node := range c.callGraph {
		if seen[node] {
			continue
		}
		if visit(node) {
			c.errorf(c.cycleSpan(), diag.ErrRecursionDetected, "recursion detected: %s", cycleTrail(stack))
		}
		for _, n := range stack {
			seen[n] = true
			color[n] = 2
		}
		stack = nil
	}
}

func cycleTrail(stack []string) string {
	out := ""
	for i, s := range stack {
		if i > 0 {
			out += " -> "
		}
		out += s
	}
	return out
}
