package parser

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/token"
)

// parseMatchExpression parses
//
//	match subject { case PATTERN [if GUARD]: RESULT ... }
//
// Arms may be separated by optional semicolons.
func (p *Parser) parseMatchExpression() ast.Expression {
	exp := &ast.MatchExpression{Token: p.curToken}

	p.nextToken()
	exp.Subject = p.parseExpression(LOWEST)
	if exp.Subject == nil {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	for p.peekTokenIs(token.CASE) {
		p.nextToken()
		arm := &ast.MatchArm{Token: p.curToken}

		p.nextToken()
		arm.Pattern = p.parsePattern()
		if arm.Pattern == nil {
			return nil
		}

		if p.peekTokenIs(token.IF) {
			p.nextToken()
			p.nextToken()
			arm.Guard = p.parseExpression(LOWEST)
			if arm.Guard == nil {
				return nil
			}
		}

		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		arm.Result = p.parseExpression(LOWEST)
		if arm.Result == nil {
			return nil
		}

		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		exp.Arms = append(exp.Arms, arm)
	}

	if len(exp.Arms) == 0 {
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP005,
			diagnostics.KindParse,
			p.curToken,
			"match requires at least one case arm",
		))
		return nil
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return exp
}

// parsePattern parses one arm pattern with curToken at its first token.
func (p *Parser) parsePattern() ast.Pattern {
	switch p.curToken.Type {
	case token.NUMBER:
		lit := p.parseNumberLiteral()
		if lit == nil {
			return nil
		}
		return &ast.LiteralPattern{Token: p.curToken, Value: lit}
	case token.MINUS:
		tok := p.curToken
		if !p.expectPeek(token.NUMBER) {
			return nil
		}
		lit := p.parseNumberLiteral()
		switch l := lit.(type) {
		case *ast.IntegerLiteral:
			l.Value = -l.Value
		case *ast.FloatLiteral:
			l.Value = -l.Value
		default:
			return nil
		}
		return &ast.LiteralPattern{Token: tok, Value: lit}
	case token.STRING:
		return &ast.LiteralPattern{
			Token: p.curToken,
			Value: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Lexeme},
		}
	case token.TRUE, token.FALSE:
		return &ast.LiteralPattern{
			Token: p.curToken,
			Value: &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)},
		}
	case token.NULL:
		return &ast.LiteralPattern{
			Token: p.curToken,
			Value: &ast.NullLiteral{Token: p.curToken},
		}
	case token.UNDERSCORE:
		return &ast.WildcardPattern{Token: p.curToken}
	case token.IDENT:
		return &ast.IdentifierPattern{Token: p.curToken, Name: p.curToken.Lexeme}
	case token.LBRACE:
		return p.parseDictPattern()
	case token.LBRACKET:
		return p.parseListPattern()
	default:
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP005,
			diagnostics.KindParse,
			p.curToken,
			"malformed pattern: unexpected %q", p.curToken.Lexeme,
		))
		return nil
	}
}

// parseDictPattern parses {key: subpattern, ...}. The shorthand {key} binds
// the field value to a name equal to the key.
func (p *Parser) parseDictPattern() ast.Pattern {
	pat := &ast.DictPattern{Token: p.curToken}

	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return pat
	}

	for {
		if !p.peekTokenIs(token.IDENT) && !p.peekTokenIs(token.STRING) {
			p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
				diagnostics.ErrP005,
				diagnostics.KindParse,
				p.peekToken,
				"malformed pattern: expected field name, got %q", p.peekToken.Lexeme,
			))
			return nil
		}
		p.nextToken()
		field := &ast.DictFieldPattern{Token: p.curToken, Key: p.curToken.Lexeme}

		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			field.Pattern = p.parsePattern()
			if field.Pattern == nil {
				return nil
			}
		} else {
			field.Pattern = &ast.IdentifierPattern{Token: field.Token, Name: field.Key}
		}
		pat.Fields = append(pat.Fields, field)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return pat
}

func (p *Parser) parseListPattern() ast.Pattern {
	pat := &ast.ListPattern{Token: p.curToken}

	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return pat
	}

	for {
		p.nextToken()
		elem := p.parsePattern()
		if elem == nil {
			return nil
		}
		pat.Elements = append(pat.Elements, elem)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return pat
}
