// Package parser implements PEPL's recursive-descent, precedence-climbing
// parser: tokens to a fully spanned AST, with block-ordering and
// structural-depth limits enforced as it goes.
package parser

import (
	"strconv"

	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/token"
)

const (
	maxLambdaDepth = 3
	maxRecordDepth = 4
	maxExprDepth   = 16
	maxForDepth    = 3
	maxParams      = 8
)

// blockRank ranks the space body's fixed section order: a
// section whose rank is lower than the highest rank already seen is E600.
type blockRank int

const (
	rankType blockRank = iota
	rankState
	rankCapabilities
	rankCredentials
	rankDerived
	rankInvariant
	rankAction
	rankView
	rankUpdate
	rankHandleEvent
)

// Parser turns a token stream into a Program, collecting up to 20
// diagnostics before aborting.
type Parser struct {
	sf     *diag.SourceFile
	toks   []token.Token
	pos    int
	bag    *diag.Bag
	lambda int
	record int
	forN   int
	exprD  int
	lastRank blockRank
	sawRank  bool
}

// New builds a Parser over a lexed token stream. Newline tokens are kept in
// the stream; the parser consumes them explicitly as statement separators.
func New(sf *diag.SourceFile, toks []token.Token) *Parser {
	return &Parser{sf: sf, toks: toks, bag: diag.NewBag(sf)}
}

// Result is the parser's output: the Program (nil if space parsing never
// got underway) and diagnostics collected along the way.
type Result struct {
	Program *ast.Program
	Errors  []*diag.Diagnostic
}

// Parse consumes the whole token stream and returns a Program.
func (p *Parser) Parse() Result {
	prog := &ast.Program{}
	start := p.here()
	p.skipNewlines()
	if p.check(token.KwState) || p.checkAny(sectionStarters()...) {
		// A space with no explicit `space Name { ... }` wrapper is not part
		// of the grammar: PEPL programs open directly with their ordered
		// section list at top level, so the entire file *is* the space body.
	}
	space := p.parseSpaceBody(start)
	prog.Space = space
	p.skipNewlines()
	for !p.atEnd() && !p.bag.Full() {
		if p.check(token.KwTests) {
			prog.Tests = append(prog.Tests, p.parseTestsBlock())
		} else {
			p.errorf(p.here(), diag.ErrUnexpectedToken, "unexpected token %s at top level", p.peek().Kind)
			p.recover()
		}
		p.skipNewlines()
	}
	prog.Sp = diag.Join(start, p.prevSpan())
	return Result{Program: prog, Errors: p.bag.All()}
}

func sectionStarters() []token.Kind {
	return []token.Kind{
		token.KwType, token.KwState, token.KwCapabilities, token.KwCredentials,
		token.KwDerived, token.KwInvariant, token.KwAction, token.KwView,
		token.KwUpdate, token.KwHandleEvent,
	}
}

// ---------------------------------------------------------------- space ---

func (p *Parser) parseSpaceBody(start diag.Span) *ast.SpaceDecl {
	sp := &ast.SpaceDecl{}
	p.skipNewlines()
	for !p.atEnd() && !p.bag.Full() {
		switch {
		case p.check(token.KwType):
			p.requireRank(rankType)
			sp.Types = append(sp.Types, p.parseTypeDecl())
		case p.check(token.KwState):
			p.requireRank(rankState)
			if sp.State != nil {
				p.errorf(p.here(), diag.ErrBlockOrder, "duplicate state block")
			}
			sp.State = p.parseStateDecl()
		case p.check(token.KwCapabilities):
			p.requireRank(rankCapabilities)
			sp.Capabilities = p.parseCapabilitiesDecl()
		case p.check(token.KwCredentials):
			p.requireRank(rankCredentials)
			sp.Credentials = p.parseCredentialsDecl()
		case p.check(token.KwDerived):
			p.requireRank(rankDerived)
			sp.Derived = p.parseDerivedDecl()
		case p.check(token.KwInvariant):
			p.requireRank(rankInvariant)
			sp.Invariants = append(sp.Invariants, p.parseInvariantDecl())
		case p.check(token.KwAction):
			p.requireRank(rankAction)
			sp.Actions = append(sp.Actions, p.parseActionDecl())
		case p.check(token.KwView):
			p.requireRank(rankView)
			sp.Views = append(sp.Views, p.parseViewDecl())
		case p.check(token.KwUpdate):
			p.requireRank(rankUpdate)
			sp.Update = p.parseUpdateHook()
		case p.check(token.KwHandleEvent):
			p.requireRank(rankHandleEvent)
			sp.HandleEvent = p.parseHandleEventHook()
		default:
			p.skipNewlines()
			return finishSpace(sp, start, p)
		}
		p.skipNewlines()
	}
	return finishSpace(sp, start, p)
}

func finishSpace(sp *ast.SpaceDecl, start diag.Span, p *Parser) *ast.SpaceDecl {
	if sp.State == nil {
		p.errorf(start, diag.ErrEmptyState, "space is missing a required state block")
	} else if len(sp.State.Fields) == 0 {
		p.errorf(sp.State.Sp, diag.ErrEmptyState, "state block must declare at least one field")
	}
	sp.Sp = diag.Join(start, p.prevSpan())
	return sp
}

// requireRank enforces block ordering: a section may not
// appear before the rank of a section already seen. type, invariant, action
// and view are grammar-repeatable (type*, invariant*, action*, view*), so a
// section reappearing at the SAME rank as the one just seen is only an
// error for the singular sections (state, capabilities, credentials,
// derived, update, handleEvent) -- for those, same-rank is how a duplicate
// block is caught.
func (p *Parser) requireRank(r blockRank) {
	if p.sawRank {
		if r < p.lastRank || (r == p.lastRank && !repeatableRank(r)) {
			p.errorf(p.here(), diag.ErrBlockOrder, "block out of order: %s must not follow a later section", rankName(r))
		}
	}
	if r > p.lastRank || !p.sawRank {
		p.lastRank = r
	}
	p.sawRank = true
}

func repeatableRank(r blockRank) bool {
	return r == rankType || r == rankInvariant || r == rankAction || r == rankView
}

func rankName(r blockRank) string {
	names := map[blockRank]string{
		rankType: "type", rankState: "state", rankCapabilities: "capabilities",
		rankCredentials: "credentials", rankDerived: "derived", rankInvariant: "invariant",
		rankAction: "action", rankView: "view", rankUpdate: "update", rankHandleEvent: "handleEvent",
	}
	return names[r]
}

// ------------------------------------------------------------ type decl ---

func (p *Parser) parseTypeDecl() *ast.TypeDecl {
	start := p.here()
	p.advance() // 'type'
	name := p.expectIdentText()
	if p.check(token.Assign) {
		p.advance()
		alias := p.parseTypeExpr(0)
		return &ast.TypeDecl{Name: name, Alias: alias, Sp: diag.Join(start, p.prevSpan())}
	}
	p.expect(token.LBrace)
	p.skipNewlines()
	var variants []*ast.SumVariantDecl
	for !p.check(token.RBrace) && !p.atEnd() {
		variants = append(variants, p.parseSumVariant())
		if p.check(token.Comma) {
			p.advance()
		}
		p.consumeSeparator()
	}
	p.expect(token.RBrace)
	return &ast.TypeDecl{Name: name, Variants: variants, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseSumVariant() *ast.SumVariantDecl {
	start := p.here()
	name := p.expectIdentText()
	var fields []*ast.RecordFieldType
	if p.check(token.LParen) {
		p.advance()
		p.skipNewlines()
		for !p.check(token.RParen) && !p.atEnd() {
			fields = append(fields, p.parseRecordFieldType())
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		p.expect(token.RParen)
	}
	return &ast.SumVariantDecl{Name: name, Fields: fields, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseRecordFieldType() *ast.RecordFieldType {
	start := p.here()
	name := p.expectFieldNameText()
	optional := false
	if p.check(token.Question) {
		p.advance()
		optional = true
	}
	p.expect(token.Colon)
	t := p.parseTypeExpr(0)
	return &ast.RecordFieldType{Name: name, Type: t, Optional: optional, Sp: diag.Join(start, p.prevSpan())}
}

// ----------------------------------------------------------- state decl ---

func (p *Parser) parseStateDecl() *ast.StateDecl {
	start := p.here()
	p.advance() // 'state'
	p.expect(token.LBrace)
	p.skipNewlines()
	var fields []*ast.StateField
	for !p.check(token.RBrace) && !p.atEnd() {
		fields = append(fields, p.parseStateField())
		p.consumeSeparator()
	}
	p.expect(token.RBrace)
	return &ast.StateDecl{Fields: fields, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseStateField() *ast.StateField {
	start := p.here()
	name := p.expectFieldNameText()
	p.expect(token.Colon)
	t := p.parseTypeExpr(0)
	p.expect(token.Assign)
	init := p.parseExpr()
	return &ast.StateField{Name: name, Type: t, Init: init, Sp: diag.Join(start, p.prevSpan())}
}

// ------------------------------------------------------- capabilities ---

func (p *Parser) parseCapabilitiesDecl() *ast.CapabilitiesDecl {
	start := p.here()
	p.advance() // 'capabilities'
	p.expect(token.LBrace)
	p.skipNewlines()
	c := &ast.CapabilitiesDecl{}
	for !p.check(token.RBrace) && !p.atEnd() {
		switch {
		case p.check(token.KwRequired):
			p.advance()
			p.expect(token.Colon)
			c.Required = p.parseStringListLit()
		case p.check(token.KwOptional):
			p.advance()
			p.expect(token.Colon)
			c.Optional = p.parseStringListLit()
		default:
			p.errorf(p.here(), diag.ErrUnexpectedToken, "expected 'required' or 'optional' in capabilities block")
			p.recover()
		}
		p.consumeSeparator()
	}
	p.expect(token.RBrace)
	c.Sp = diag.Join(start, p.prevSpan())
	return c
}

func (p *Parser) parseStringListLit() []string {
	p.expect(token.LBracket)
	p.skipNewlines()
	var out []string
	for !p.check(token.RBracket) && !p.atEnd() {
		tok := p.expect(token.String)
		out = append(out, tok.Text)
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBracket)
	return out
}

func (p *Parser) parseCredentialsDecl() *ast.CredentialsDecl {
	start := p.here()
	p.advance() // 'credentials'
	names := p.parseStringListLit()
	return &ast.CredentialsDecl{Names: names, Sp: diag.Join(start, p.prevSpan())}
}

// ---------------------------------------------------------------- derived ---

func (p *Parser) parseDerivedDecl() *ast.DerivedDecl {
	start := p.here()
	p.advance() // 'derived'
	p.expect(token.LBrace)
	p.skipNewlines()
	var fields []*ast.DerivedField
	for !p.check(token.RBrace) && !p.atEnd() {
		fs := p.here()
		name := p.expectFieldNameText()
		p.expect(token.Colon)
		t := p.parseTypeExpr(0)
		p.expect(token.Assign)
		e := p.parseExpr()
		fields = append(fields, &ast.DerivedField{Name: name, Type: t, Expr: e, Sp: diag.Join(fs, p.prevSpan())})
		p.consumeSeparator()
	}
	p.expect(token.RBrace)
	return &ast.DerivedDecl{Fields: fields, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseInvariantDecl() *ast.InvariantDecl {
	start := p.here()
	p.advance() // 'invariant'
	name := p.expectIdentText()
	p.expect(token.LBrace)
	p.skipNewlines()
	e := p.parseExpr()
	p.skipNewlines()
	p.expect(token.RBrace)
	return &ast.InvariantDecl{Name: name, Expr: e, Sp: diag.Join(start, p.prevSpan())}
}

// ---------------------------------------------------------------- action ---

func (p *Parser) parseActionDecl() *ast.ActionDecl {
	start := p.here()
	p.advance() // 'action'
	name := p.expectIdentText()
	params := p.parseParamList()
	body := p.parseBlock()
	return &ast.ActionDecl{Name: name, Params: params, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseViewDecl() *ast.ViewDecl {
	start := p.here()
	p.advance() // 'view'
	name := p.expectIdentText()
	params := p.parseParamList()
	if p.check(token.Arrow) {
		p.advance()
		p.parseTypeExpr(0) // return type, informative only; checker re-derives it
	}
	body := p.parseBlock()
	return &ast.ViewDecl{Name: name, Params: params, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseUpdateHook() *ast.UpdateHook {
	start := p.here()
	p.advance() // 'update'
	p.expect(token.LParen)
	param := p.expectIdentText()
	p.expect(token.RParen)
	body := p.parseBlock()
	return &ast.UpdateHook{Param: param, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseHandleEventHook() *ast.HandleEventHook {
	start := p.here()
	p.advance() // 'handleEvent'
	p.expect(token.LParen)
	param := p.expectIdentText()
	p.expect(token.RParen)
	body := p.parseBlock()
	return &ast.HandleEventHook{Param: param, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseParamList() []*ast.Param {
	p.expect(token.LParen)
	p.skipNewlines()
	var params []*ast.Param
	for !p.check(token.RParen) && !p.atEnd() {
		start := p.here()
		name := p.expectIdentText()
		var t ast.TypeExpr
		if p.check(token.Colon) {
			p.advance()
			t = p.parseTypeExpr(0)
		}
		params = append(params, &ast.Param{Name: name, Type: t, Sp: diag.Join(start, p.prevSpan())})
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RParen)
	if len(params) > maxParams {
		p.errorf(p.prevSpan(), diag.ErrStructuralLimit, "too many parameters (max %d)", maxParams)
	}
	return params
}

// ---------------------------------------------------------------- tests ---

func (p *Parser) parseTestsBlock() *ast.TestsBlock {
	start := p.here()
	p.advance() // 'tests'
	name := ""
	if p.check(token.String) {
		name = p.advance().Text
	}
	p.expect(token.LBrace)
	p.skipNewlines()
	var tests []*ast.Test
	for p.check(token.KwTest) && !p.atEnd() {
		tests = append(tests, p.parseTest())
		p.skipNewlines()
	}
	p.expect(token.RBrace)
	return &ast.TestsBlock{Name: name, Tests: tests, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseTest() *ast.Test {
	start := p.here()
	p.advance() // 'test'
	desc := ""
	if p.check(token.String) {
		desc = p.advance().Text
	}
	var responses []*ast.MockedResponse
	if p.check(token.KwWithResponses) {
		p.advance()
		p.expect(token.LBrace)
		p.skipNewlines()
		for !p.check(token.RBrace) && !p.atEnd() {
			responses = append(responses, p.parseMockedResponse())
			p.consumeSeparator()
		}
		p.expect(token.RBrace)
		p.skipNewlines()
	}
	body := p.parseBlock()
	return &ast.Test{Description: desc, Responses: responses, Body: body, Sp: diag.Join(start, p.prevSpan())}
}

func (p *Parser) parseMockedResponse() *ast.MockedResponse {
	start := p.here()
	module := p.expectFieldNameText()
	p.expect(token.Dot)
	fn := p.expectFieldNameText()
	ordinal := 0
	if p.check(token.LBracket) {
		p.advance()
		n := p.expect(token.Number)
		v, _ := strconv.Atoi(n.Text)
		ordinal = v
		p.expect(token.RBracket)
	}
	p.expect(token.Arrow)
	isErr := false
	if p.check(token.KwOk) {
		p.advance()
		p.expect(token.LParen)
	} else if p.check(token.KwErr) {
		p.advance()
		p.expect(token.LParen)
		isErr = true
	} else {
		p.errorf(p.here(), diag.ErrUnexpectedToken, "expected Ok(...) or Err(...) in with_responses")
	}
	val := p.parseExpr()
	p.expect(token.RParen)
	return &ast.MockedResponse{Module: module, Function: fn, Ordinal: ordinal, IsErr: isErr, Value: val, Sp: diag.Join(start, p.prevSpan())}
}

// -------------------------------------------------------------- blocks ---

func (p *Parser) parseBlock() []Stmt {
	return p.parseStmtList()
}

// Stmt is an alias so this file reads naturally; the real type lives in ast.
type Stmt = ast.Stmt

func (p *Parser) parseStmtList() []Stmt {
	p.expect(token.LBrace)
	p.skipNewlines()
	var stmts []Stmt
	for !p.check(token.RBrace) && !p.atEnd() && !p.bag.Full() {
		s := p.parseStmt()
		if s != nil {
			stmts = append(stmts, s)
		}
		p.consumeSeparator()
	}
	p.expect(token.RBrace)
	return stmts
}

func (p *Parser) parseStmt() Stmt {
	start := p.here()
	switch {
	case p.check(token.KwLet):
		return p.parseLetStmt()
	case p.check(token.KwSet):
		return p.parseSetStmt()
	case p.check(token.KwIf):
		return p.parseIfStmt()
	case p.check(token.KwFor):
		return p.parseForStmt()
	case p.check(token.KwAssert):
		return p.parseAssertStmt()
	case p.check(token.KwReturn):
		return p.parseReturnStmt()
	case p.check(token.KwMatch):
		m := p.parseMatchExpr()
		s := &ast.MatchStmt{Match: m}
		s.SetSpan(diag.Join(start, p.prevSpan()))
		return s
	default:
		e := p.parseExpr()
		s := &ast.ExprStmt{Expr: e}
		s.SetSpan(diag.Join(start, p.prevSpan()))
		return s
	}
}

func (p *Parser) parseLetStmt() Stmt {
	start := p.here()
	p.advance() // 'let'
	discard := false
	name := p.expectIdentText()
	if name == "_" {
		discard = true
	}
	var t ast.TypeExpr
	if p.check(token.Colon) {
		p.advance()
		t = p.parseTypeExpr(0)
	}
	p.expect(token.Assign)
	v := p.parseExpr()
	s := &ast.LetStmt{Name: name, Type: t, Value: v, Discard: discard}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

func (p *Parser) parseSetStmt() Stmt {
	start := p.here()
	p.advance() // 'set'
	path := p.parseFieldPath()
	p.expect(token.Assign)
	v := p.parseExpr()
	s := &ast.SetStmt{Target: path, Value: v}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

func (p *Parser) parseFieldPath() *ast.FieldPath {
	start := p.here()
	rootTok := p.expect(token.Ident)
	root := &ast.Ident{Name: rootTok.Text}
	root.SetSpan(rootTok.Span)
	var fields []string
	for p.check(token.Dot) {
		p.advance()
		fields = append(fields, p.expectFieldNameText())
	}
	fp := &ast.FieldPath{Root: root, Fields: fields}
	fp.SetSpan(diag.Join(start, p.prevSpan()))
	return fp
}

func (p *Parser) parseIfStmt() Stmt {
	start := p.here()
	p.advance() // 'if'
	cond := p.parseExpr()
	then := p.parseStmtList()
	var elseBody []Stmt
	if p.check(token.KwElse) {
		p.advance()
		if p.check(token.KwIf) {
			elseBody = []Stmt{p.parseIfStmt()}
		} else {
			elseBody = p.parseStmtList()
		}
	}
	s := &ast.IfStmt{Cond: cond, Then: then, Else: elseBody}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

func (p *Parser) parseForStmt() Stmt {
	start := p.here()
	p.advance() // 'for'
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
	body := p.parseStmtList()
	p.forN--
	s := &ast.ForStmt{Item: item, Index: index, Iter: iter, Body: body}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

func (p *Parser) parseAssertStmt() Stmt {
	start := p.here()
	p.advance() // 'assert'
	cond := p.parseExpr()
	var msg ast.Expr
	if p.check(token.Comma) {
		p.advance()
		msg = p.parseExpr()
	}
	s := &ast.AssertStmt{Cond: cond, Message: msg}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

func (p *Parser) parseReturnStmt() Stmt {
	start := p.here()
	p.advance() // 'return'
	var v ast.Expr
	if !p.check(token.Newline) && !p.check(token.RBrace) && !p.atEnd() {
		v = p.parseExpr()
	}
	s := &ast.ReturnStmt{Value: v}
	s.SetSpan(diag.Join(start, p.prevSpan()))
	return s
}

// consumeSeparator eats the newline(s) that terminate a statement or
// declaration entry; PEPL has no semicolons.
func (p *Parser) consumeSeparator() {
	if p.check(token.Newline) {
		p.skipNewlines()
	}
}
