package parser

import (
	"strconv"
	"unicode"

	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/token"
)

// parseExpr is the entry point for precedence climbing:
// or, and, ??, comparison (non-chaining), additive, multiplicative, unary,
// postfix, primary, lowest to highest.
func (p *Parser) parseExpr() ast.Expr {
	p.exprD++
	if p.exprD > maxExprDepth {
		p.errorf(p.here(), diag.ErrStructuralLimit, "expression nested too deeply (max %d)", maxExprDepth)
	}
	e := p.parseOr()
	p.exprD--
	return e
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.check(token.KwOr) {
		start := left.Span()
		p.advance()
		right := p.parseAnd()
		n := &ast.LogicalExpr{Op: "or", Left: left, Right: right}
		n.SetSpan(diag.Join(start, right.Span()))
		left = n
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNilCoalesce()
	for p.check(token.KwAnd) {
		start := left.Span()
		p.advance()
		right := p.parseNilCoalesce()
		n := &ast.LogicalExpr{Op: "and", Left: left, Right: right}
		n.SetSpan(diag.Join(start, right.Span()))
		left = n
	}
	return left
}

func (p *Parser) parseNilCoalesce() ast.Expr {
	left := p.parseComparison()
	for p.check(token.QuestionQuestion) {
		start := left.Span()
		p.advance()
		right := p.parseComparison()
		n := &ast.NilCoalesceExpr{Left: left, Right: right}
		n.SetSpan(diag.Join(start, right.Span()))
		left = n
	}
	return left
}

var comparisonOps = map[token.Kind]string{
	token.EqEq: "==", token.NotEq: "!=", token.Lt: "<", token.Gt: ">",
	token.Le: "<=", token.Ge: ">=",
}

// parseComparison forbids chaining (`a == b == c` is E113): at
// most one comparison operator per expression at this precedence level.
func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	op, ok := comparisonOps[p.peek().Kind]
	if !ok {
		return left
	}
	start := left.Span()
	p.advance()
	right := p.parseAdditive()
	n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
	n.SetSpan(diag.Join(start, right.Span()))
	if _, chained := comparisonOps[p.peek().Kind]; chained {
		p.errorf(p.here(), diag.ErrChainedCompare, "comparison operators do not chain, wrap in parentheses")
		p.advance()
		p.parseAdditive()
	}
	return n
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		start := left.Span()
		op := "+"
		if p.peek().Kind == token.Minus {
			op = "-"
		}
		p.advance()
		right := p.parseMultiplicative()
		n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		n.SetSpan(diag.Join(start, right.Span()))
		left = n
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		start := left.Span()
		var op string
		switch p.peek().Kind {
		case token.Star:
			op = "*"
		case token.Slash:
			op = "/"
		default:
			op = "%"
		}
		p.advance()
		right := p.parseUnary()
		n := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		n.SetSpan(diag.Join(start, right.Span()))
		left = n
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.Minus) || p.check(token.KwNot) {
		start := p.here()
		op := "-"
		if p.peek().Kind == token.KwNot {
			op = "not"
		}
		p.advance()
		operand := p.parseUnary()
		n := &ast.UnaryExpr{Op: op, Operand: operand}
		n.SetSpan(diag.Join(start, operand.Span()))
		return n
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch {
		case p.check(token.Dot):
			p.advance()
			name := p.expectFieldNameText()
			n := &ast.FieldPath{Root: identRootOf(e), Fields: appendField(e, name)}
			n.SetSpan(diag.Join(e.Span(), p.prevSpan()))
			e = n
		case p.check(token.LParen):
			args := p.parseArgs()
			n := &ast.CallExpr{Callee: e, Args: args}
			n.SetSpan(diag.Join(e.Span(), p.prevSpan()))
			e = n
		case p.check(token.LBracket):
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			n := &ast.IndexExpr{Object: e, Index: idx}
			n.SetSpan(diag.Join(e.Span(), p.prevSpan()))
			e = n
		case p.check(token.Question):
			p.advance()
			n := &ast.TryExpr{Operand: e}
			n.SetSpan(diag.Join(e.Span(), p.prevSpan()))
			e = n
		default:
			return e
		}
	}
}

// identRootOf and appendField let `.` chaining build a single FieldPath
// whether the receiver is a bare Ident or an existing FieldPath, since both
// forms need to collapse into one flat dotted chain.
func identRootOf(e ast.Expr) *ast.Ident {
	switch t := e.(type) {
	case *ast.Ident:
		return t
	case *ast.FieldPath:
		return t.Root
	default:
		// Not a plain path root (e.g. a call result); represent it as a
		// synthetic root so the checker sees a normal FieldPath shape and
		// reports a precise type error instead of a parser crash.
		id := &ast.Ident{Name: ""}
		id.SetSpan(e.Span())
		return id
	}
}

func appendField(e ast.Expr, name string) []string {
	switch t := e.(type) {
	case *ast.Ident:
		return []string{name}
	case *ast.FieldPath:
		return append(append([]string(nil), t.Fields...), name)
	default:
		return []string{name}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen)
	p.skipNewlines()
	var args []ast.Expr
	for !p.check(token.RParen) && !p.atEnd() {
		args = append(args, p.parseExpr())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RParen)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.here()
	switch {
	case p.check(token.Number):
		tok := p.advance()
		v, _ := strconv.ParseFloat(tok.Text, 64)
		n := &ast.NumberLit{Value: v, Text: tok.Text}
		n.SetSpan(tok.Span)
		return n
	case p.check(token.String):
		return p.parseStringLiteral()
	case p.check(token.True), p.check(token.False):
		tok := p.advance()
		n := &ast.BoolLit{Value: tok.Kind == token.True}
		n.SetSpan(tok.Span)
		return n
	case p.check(token.Nil):
		tok := p.advance()
		n := &ast.NilLit{}
		n.SetSpan(tok.Span)
		return n
	case p.check(token.KwOk):
		return p.parseSumConstruct("Ok")
	case p.check(token.KwErr):
		return p.parseSumConstruct("Err")
	case p.check(token.KwFn):
		return p.parseLambda()
	case p.check(token.KwMatch):
		return p.parseMatchExpr()
	case p.check(token.LParen):
		p.advance()
		p.skipNewlines()
		e := p.parseExpr()
		p.skipNewlines()
		p.expect(token.RParen)
		return e
	case p.check(token.LBracket):
		return p.parseListLit()
	case p.check(token.LBrace):
		return p.parseRecordLit()
	case p.check(token.Ident):
		return p.parseIdentOrComponent()
	case p.checkAny(token.ModMath, token.ModCore, token.ModHTTP, token.ModStorage,
		token.ModLocation, token.ModNotifications, token.ModTime,
		token.KwList, token.KwRecord, token.KwStringT, token.KwColor):
		// Stdlib module names lex to their own reserved Kind rather than
		// Ident, but stand as an ordinary reference at the root
		// of a qualified call: `math.sqrt(x)`, `list.push(xs, v)`.
		tok := p.advance()
		n := &ast.Ident{Name: tok.Text}
		n.SetSpan(tok.Span)
		return n
	default:
		p.errorf(start, diag.ErrUnexpectedToken, "unexpected token %s in expression", p.peek().Kind)
		p.advance()
		n := &ast.NilLit{}
		n.SetSpan(start)
		return n
	}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	tok := p.advance()
	start := tok.Span
	if !p.check(token.InterpolationStart) {
		n := &ast.StringLit{Value: tok.Text}
		n.SetSpan(tok.Span)
		return n
	}
	seg := &ast.StringLit{Value: tok.Text}
	seg.SetSpan(tok.Span)
	parts := []ast.Expr{seg}
	for p.check(token.InterpolationStart) {
		p.advance()
		inner := p.parseExpr()
		p.expect(token.InterpolationEnd)
		parts = append(parts, inner)
		if p.check(token.String) {
			t := p.advance()
			s := &ast.StringLit{Value: t.Text}
			s.SetSpan(t.Span)
			parts = append(parts, s)
		} else {
			p.errorf(p.here(), diag.ErrUnexpectedToken, "expected string continuation after interpolation")
		}
	}
	n := &ast.InterpolatedString{Parts: parts}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

func (p *Parser) parseSumConstruct(name string) ast.Expr {
	start := p.here()
	p.advance() // 'Ok' or 'Err'
	var args []ast.Expr
	if p.check(token.LParen) {
		args = p.parseArgs()
	}
	n := &ast.SumConstructExpr{Variant: name, Args: args}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

func isUpperFirst(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

// parseIdentOrComponent disambiguates a leading capitalized identifier
// (sum-type variant constructor or UI component) from a lowercase one
// (binding reference, stdlib module qualifier, or action reference), per
// PascalCase names are types/variants/components.
func (p *Parser) parseIdentOrComponent() ast.Expr {
	tok := p.peek()
	if isUpperFirst(tok.Text) {
		// A capitalized name followed directly by `{` is a UI component
		// expression; followed by `(` or standing alone, it is a sum
		// variant construction.
		if p.peekAt(1).Kind == token.LBrace {
			return p.parseComponentExpr()
		}
		p.advance()
		var args []ast.Expr
		if p.check(token.LParen) {
			args = p.parseArgs()
		}
		n := &ast.SumConstructExpr{Variant: tok.Text, Args: args}
		n.SetSpan(diag.Join(tok.Span, p.prevSpan()))
		return n
	}
	p.advance()
	n := &ast.Ident{Name: tok.Text}
	n.SetSpan(tok.Span)
	return n
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.here()
	p.advance() // 'fn'
	p.lambda++
	if p.lambda > maxLambdaDepth {
		p.errorf(start, diag.ErrStructuralLimit, "lambdas nested too deeply (max %d)", maxLambdaDepth)
	}
	params := p.parseParamList()
	var body []ast.Stmt
	if p.check(token.LBrace) {
		body = p.parseStmtList()
	} else {
		p.errorf(p.here(), diag.ErrLambdaBodyMustBeBlock, "lambda body must be a block, not a bare expression")
		p.parseExpr()
	}
	p.lambda--
	n := &ast.LambdaExpr{Params: params, Body: body}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

func (p *Parser) parseListLit() ast.Expr {
	start := p.here()
	p.advance() // '['
	p.skipNewlines()
	var elems []ast.Expr
	for !p.check(token.RBracket) && !p.atEnd() {
		elems = append(elems, p.parseExpr())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBracket)
	n := &ast.ListLit{Elements: elems}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

func (p *Parser) parseRecordLit() ast.Expr {
	start := p.here()
	p.advance() // '{'
	p.record++
	if p.record > maxRecordDepth {
		p.errorf(start, diag.ErrStructuralLimit, "records nested too deeply (max %d)", maxRecordDepth)
	}
	p.skipNewlines()
	var fields []*ast.RecordField
	for !p.check(token.RBrace) && !p.atEnd() {
		fs := p.here()
		name := p.expectFieldNameText()
		p.expect(token.Colon)
		v := p.parseExpr()
		fields = append(fields, &ast.RecordField{Name: name, Value: v, Sp: diag.Join(fs, p.prevSpan())})
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBrace)
	p.record--
	n := &ast.RecordLit{Fields: fields}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

// ---------------------------------------------------------------- match ---

func (p *Parser) parseMatchExpr() *ast.MatchExpr {
	start := p.here()
	p.advance() // 'match'
	scrutinee := p.parseExpr()
	p.expect(token.LBrace)
	p.skipNewlines()
	var arms []*ast.MatchArm
	for !p.check(token.RBrace) && !p.atEnd() {
		arms = append(arms, p.parseMatchArm())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBrace)
	n := &ast.MatchExpr{Scrutinee: scrutinee, Arms: arms}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.here()
	pat := p.parsePattern()
	var guard ast.Expr
	if p.check(token.KwIf) {
		p.advance()
		guard = p.parseExpr()
	}
	p.expect(token.Arrow)
	var body []ast.Stmt
	if p.check(token.LBrace) {
		body = p.parseStmtList()
	} else {
		e := p.parseExpr()
		stmt := &ast.ExprStmt{Expr: e}
		stmt.SetSpan(e.Span())
		body = []ast.Stmt{stmt}
	}
	return &ast.MatchArm{Pattern: pat, Guard: guard, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.here()
	switch {
	case p.check(token.Ident) && p.peek().Text == "_":
		p.advance()
		n := &ast.WildcardPattern{}
		n.SetSpan(start)
		return n
	case p.check(token.KwOk):
		p.advance()
		return p.parseVariantPatternTail("Ok", start)
	case p.check(token.KwErr):
		p.advance()
		return p.parseVariantPatternTail("Err", start)
	case p.check(token.Number), p.check(token.String), p.check(token.True), p.check(token.False):
		lit := p.parsePrimary()
		n := &ast.LiteralPattern{Value: lit}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.Ident):
		text := p.peek().Text
		if isUpperFirst(text) {
			p.advance()
			return p.parseVariantPatternTail(text, start)
		}
		p.advance()
		n := &ast.BindPattern{Name: text}
		n.SetSpan(start)
		return n
	default:
		p.errorf(start, diag.ErrUnexpectedToken, "unexpected token %s in match pattern", p.peek().Kind)
		p.advance()
		n := &ast.WildcardPattern{}
		n.SetSpan(start)
		return n
	}
}

func (p *Parser) parseVariantPatternTail(variant string, start diag.Span) ast.Pattern {
	var binds []string
	if p.check(token.LParen) {
		p.advance()
		p.skipNewlines()
		for !p.check(token.RParen) && !p.atEnd() {
			binds = append(binds, p.expectIdentText())
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		p.expect(token.RParen)
	}
	n := &ast.VariantPattern{Variant: variant, Binds: binds}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

// ------------------------------------------------------------------ UI ---

func (p *Parser) parseComponentExpr() ast.Expr {
	start := p.here()
	name := p.advance().Text // capitalized component name
	p.expect(token.LBrace)
	p.skipNewlines()
	var props []*ast.ComponentProp
	for !p.check(token.RBrace) && !p.atEnd() && !isChildBlockStart(p) {
		fs := p.here()
		pname := p.expectFieldNameText()
		p.expect(token.Colon)
		v := p.parseExpr()
		props = append(props, &ast.ComponentProp{Name: pname, Value: v, Sp: diag.Join(fs, p.prevSpan())})
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	var children []ast.UINode
	if isChildBlockStart(p) {
		children = p.parseUIChildren()
	} else {
		p.expect(token.RBrace)
	}
	n := &ast.ComponentExpr{Name: name, Props: props, Children: children}
	n.SetSpan(diag.Join(start, p.prevSpan()))
	return n
}

// isChildBlockStart reports whether the parser has reached the point where
// a component's prop list ends and a nested `{ children }` block begins:
// `}` closing the prop list immediately followed by `{`.
func isChildBlockStart(p *Parser) bool {
	return p.check(token.RBrace) && p.peekAt(1).Kind == token.LBrace
}

func (p *Parser) parseUIChildren() []ast.UINode {
	p.expect(token.RBrace) // close prop list
	p.expect(token.LBrace) // open children list
	p.skipNewlines()
	var nodes []ast.UINode
	for !p.check(token.RBrace) && !p.atEnd() {
		nodes = append(nodes, p.parseUINode())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return nodes
}

func (p *Parser) parseUINode() ast.UINode {
	start := p.here()
	switch {
	case p.check(token.KwIf):
		p.advance()
		cond := p.parseExpr()
		p.expect(token.LBrace)
		p.skipNewlines()
		var then []ast.UINode
		for !p.check(token.RBrace) && !p.atEnd() {
			then = append(then, p.parseUINode())
			p.skipNewlines()
		}
		p.expect(token.RBrace)
		var elseNodes []ast.UINode
		if p.check(token.KwElse) {
			p.advance()
			if p.check(token.KwIf) {
				elseNodes = []ast.UINode{p.parseUINode()}
			} else {
				p.expect(token.LBrace)
				p.skipNewlines()
				for !p.check(token.RBrace) && !p.atEnd() {
					elseNodes = append(elseNodes, p.parseUINode())
					p.skipNewlines()
				}
				p.expect(token.RBrace)
			}
		}
		n := &ast.UIIf{Cond: cond, Then: then, Else: elseNodes}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.KwFor):
		p.advance()
		p.forN++
		if p.forN > maxForDepth {
			p.errorf(start, diag.ErrStructuralLimit, "for loops nested too deeply (max %d)", maxForDepth)
		}
		item := p.expectIdentText()
		index := ""
		if p.check(token.Comma) {
			p.advance()
			index = p.expectIdentText()
		}
		p.expect(token.KwIn)
		iter := p.parseExpr()
		p.expect(token.LBrace)
		p.skipNewlines()
		var body []ast.UINode
		for !p.check(token.RBrace) && !p.atEnd() {
			body = append(body, p.parseUINode())
			p.skipNewlines()
		}
		p.expect(token.RBrace)
		p.forN--
		n := &ast.UIFor{Item: item, Index: index, Iter: iter, Body: body}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.Ident) && isUpperFirst(p.peek().Text):
		comp := p.parseComponentExpr().(*ast.ComponentExpr)
		n := &ast.UIComponent{Component: comp}
		n.SetSpan(comp.Span())
		return n
	default:
		p.errorf(start, diag.ErrUnknownComponent, "expected a component name, if, or for in UI body")
		p.recover()
		n := &ast.UIComponent{Component: &ast.ComponentExpr{Name: ""}}
		n.SetSpan(start)
		return n
	}
}
