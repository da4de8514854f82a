package parser

import (
	"pepl/internal/ast"
	"pepl/internal/diag"
	"pepl/internal/token"
)

// parseTypeExpr parses a type annotation, then folds a trailing `| nil`
// into a NullableTypeExpr (`nullable(T)` written `T | nil`). depth
// tracks record nesting only; it is threaded through so `record { record {
// ... } }` bodies are counted, matching the structural limit in §3.
func (p *Parser) parseTypeExpr(depth int) ast.TypeExpr {
	base := p.parseTypeExprPrimary(depth)
	if p.check(token.Pipe) {
		start := base.Span()
		p.advance()
		nilTok := p.expect(token.Nil)
		n := &ast.NullableTypeExpr{Inner: base}
		n.SetSpan(diag.Join(start, nilTok.Span))
		return n
	}
	return base
}

func (p *Parser) parseTypeExprPrimary(depth int) ast.TypeExpr {
	start := p.here()
	switch {
	case p.check(token.KwList):
		p.advance()
		p.expect(token.Lt)
		elem := p.parseTypeExpr(depth)
		p.expect(token.Gt)
		n := &ast.ListTypeExpr{Elem: elem}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.KwResult):
		p.advance()
		p.expect(token.Lt)
		ok := p.parseTypeExpr(depth)
		p.expect(token.Comma)
		errT := p.parseTypeExpr(depth)
		p.expect(token.Gt)
		n := &ast.ResultTypeExpr{Ok: ok, Err: errT}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.KwRecord):
		p.advance()
		if depth+1 > maxRecordDepth {
			p.errorf(start, diag.ErrStructuralLimit, "records nested too deeply (max %d)", maxRecordDepth)
		}
		p.expect(token.LBrace)
		p.skipNewlines()
		var fields []*ast.RecordFieldType
		for !p.check(token.RBrace) && !p.atEnd() {
			fields = append(fields, p.parseRecordFieldTypeAt(depth+1))
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		p.expect(token.RBrace)
		n := &ast.RecordTypeExpr{Fields: fields}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	case p.check(token.LParen):
		p.advance()
		p.skipNewlines()
		var params []ast.TypeExpr
		for !p.check(token.RParen) && !p.atEnd() {
			params = append(params, p.parseTypeExpr(depth))
			p.skipNewlines()
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		p.expect(token.RParen)
		p.expect(token.Arrow)
		result := p.parseTypeExpr(depth)
		n := &ast.FuncTypeExpr{Params: params, Result: result}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	default:
		name := p.expectTypeNameText()
		n := &ast.NamedTypeExpr{Name: name}
		n.SetSpan(diag.Join(start, p.prevSpan()))
		return n
	}
}

func (p *Parser) parseRecordFieldTypeAt(depth int) *ast.RecordFieldType {
	start := p.here()
	name := p.expectFieldNameText()
	optional := false
	if p.check(token.Question) {
		p.advance()
		optional = true
	}
	p.expect(token.Colon)
	t := p.parseTypeExpr(depth)
	return &ast.RecordFieldType{Name: name, Type: t, Optional: optional, Sp: diag.Join(start, p.prevSpan())}
}

// typeNameKinds maps the primitive type keywords to their spelling.
// Identifiers (user sum/alias types, and "any", which is rejected) are
// handled separately in expectTypeNameText.
var typeNameKinds = map[token.Kind]string{
	token.KwNumber: "number", token.KwStringT: "string", token.KwBool: "bool",
	token.KwColor: "color", token.KwSurface: "Surface", token.KwInputEvent: "InputEvent",
}

func (p *Parser) expectTypeNameText() string {
	if name, ok := typeNameKinds[p.peek().Kind]; ok {
		p.advance()
		return name
	}
	if p.check(token.Ident) {
		tok := p.advance()
		if tok.Text == "any" {
			p.errorf(tok.Span, diag.ErrAnyNotAllowed, "'any' is not allowed in a user type annotation")
		}
		return tok.Text
	}
	p.errorf(p.here(), diag.ErrUnexpectedToken, "expected a type name, found %s", p.peek().Kind)
	return ""
}
