package parser

import (
	"pepl/internal/diag"
	"pepl/internal/token"
)

func (p *Parser) atEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.toks) || idx < 0 {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) here() diag.Span {
	return p.peek().Span
}

func (p *Parser) prevSpan() diag.Span {
	if p.pos == 0 {
		return p.here()
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) checkAny(ks ...token.Kind) bool {
	cur := p.peek().Kind
	for _, k := range ks {
		if cur == k {
			return true
		}
	}
	return false
}

// expect consumes the next token if it has kind k, else records a syntax
// error and, without advancing, returns a placeholder token of kind k
// (empty text, current span) so callers can carry on with error recovery.
func (p *Parser) expect(k token.Kind) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorf(p.here(), diag.ErrUnexpectedToken, "expected %s, found %s", k, p.peek().Kind)
	return token.Token{Kind: k, Span: p.here()}
}

// expectIdentText consumes an Ident token and returns its text, or records
// an error and returns an empty placeholder name.
func (p *Parser) expectIdentText() string {
	if p.check(token.Ident) {
		return p.advance().Text
	}
	p.errorf(p.here(), diag.ErrUnexpectedToken, "expected identifier, found %s", p.peek().Kind)
	return ""
}

// keywordFieldNames lists the reserved-word tokens that may still be used
// as a field name after `.` or inside a record literal/type.
var keywordFieldNames = map[token.Kind]bool{
	token.KwType: true, token.KwState: true, token.KwCapabilities: true,
	token.KwRequired: true, token.KwOptional: true, token.KwCredentials: true,
	token.KwDerived: true, token.KwInvariant: true, token.KwAction: true,
	token.KwView: true, token.KwUpdate: true, token.KwHandleEvent: true,
	token.KwLet: true, token.KwSet: true, token.KwIf: true, token.KwElse: true,
	token.KwFor: true, token.KwIn: true, token.KwMatch: true, token.KwAssert: true,
	token.KwReturn: true, token.KwTest: true, token.KwTests: true,
	token.KwWithResponses: true, token.KwOk: true, token.KwErr: true,
	token.KwAnd: true, token.KwOr: true, token.KwNot: true, token.KwList: true,
	token.KwRecord: true, token.KwResult: true, token.KwNumber: true,
	token.KwStringT: true, token.KwBool: true, token.KwColor: true,
	token.KwSurface: true, token.KwInputEvent: true, token.KwFn: true,
	token.True: true, token.False: true, token.Nil: true,
	token.ModMath: true, token.ModCore: true, token.ModHTTP: true,
	token.ModStorage: true, token.ModLocation: true, token.ModNotifications: true,
	token.ModTime: true,
}

// expectFieldNameText accepts an Ident or any reserved keyword as a field
// name, returning its verbatim text.
func (p *Parser) expectFieldNameText() string {
	t := p.peek()
	if t.Kind == token.Ident || keywordFieldNames[t.Kind] {
		return p.advance().Text
	}
	p.errorf(p.here(), diag.ErrUnexpectedToken, "expected field name, found %s", t.Kind)
	return ""
}

func (p *Parser) skipNewlines() {
	for p.check(token.Newline) {
		p.advance()
	}
}

func (p *Parser) errorf(span diag.Span, code, format string, args ...interface{}) {
	if p.bag.Full() {
		return
	}
	p.bag.Errorf(code, span, format, args...)
}

// recover discards tokens until a statement boundary (newline) or a closing
// delimiter, "Error recovery".
func (p *Parser) recover() {
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.Newline, token.RBrace, token.RParen, token.RBracket:
			p.advance()
			return
		}
		p.advance()
	}
}
