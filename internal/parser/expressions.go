package parser

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP001,
			diagnostics.KindParse,
			p.curToken,
			"expression too deeply nested",
		))
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	switch v := p.curToken.Literal.(type) {
	case int64:
		return &ast.IntegerLiteral{Token: p.curToken, Value: v}
	case float64:
		return &ast.FloatLiteral{Token: p.curToken, Value: v}
	default:
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP001,
			diagnostics.KindParse,
			p.curToken,
			"malformed number literal %q", p.curToken.Lexeme,
		))
		return nil
	}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignExpression is right associative: a = b = 1 assigns b first.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression, *ast.MemberExpression:
	default:
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP003,
			diagnostics.KindParse,
			p.curToken,
			"invalid assignment target",
		))
		return nil
	}

	expression := &ast.AssignExpression{Token: p.curToken, Target: left}
	p.nextToken()
	expression.Value = p.parseExpression(ASSIGNMENT - 1)
	if expression.Value == nil {
		return nil
	}
	return expression
}

// parseGroupedExpression handles (expr) and tuple literals (a, b).
func (p *Parser) parseGroupedExpression() ast.Expression {
	startToken := p.curToken

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: startToken, Elements: []ast.Expression{}}
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if p.peekTokenIs(token.COMMA) {
		elements := []ast.Expression{exp}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break
			}
			p.nextToken()
			elem := p.parseExpression(LOWEST)
			if elem == nil {
				return nil
			}
			elements = append(elements, elem)
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return &ast.TupleLiteral{Token: startToken, Elements: elements}
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.curToken}
	lit.Elements = p.parseExpressionList(token.RBRACKET)
	if lit.Elements == nil && p.ctx.HasErrors() {
		return nil
	}
	return lit
}

func (p *Parser) parseSetLiteral() ast.Expression {
	lit := &ast.SetLiteral{Token: p.curToken}
	lit.Elements = p.parseExpressionList(token.RBRACE)
	if lit.Elements == nil && p.ctx.HasErrors() {
		return nil
	}
	return lit
}

// parseDictLiteral parses {k: v, ...}. A bare identifier key is stored as a
// string; string and number keys are kept as written.
func (p *Parser) parseDictLiteral() ast.Expression {
	lit := &ast.DictLiteral{Token: p.curToken}

	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return lit
	}

	for {
		p.nextToken()
		var key ast.Expression
		switch p.curToken.Type {
		case token.IDENT:
			key = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Lexeme}
		case token.STRING:
			key = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Lexeme}
		case token.NUMBER:
			key = p.parseNumberLiteral()
			if key == nil {
				return nil
			}
		default:
			p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
				diagnostics.ErrP002,
				diagnostics.KindParse,
				p.curToken,
				"expected dict key, got %q", p.curToken.Lexeme,
			))
			return nil
		}

		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		lit.Pairs = append(lit.Pairs, ast.DictPair{Key: key, Value: value})

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RBRACE) {
				break
			}
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return lit
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	lit.Parameters = p.parseFunctionParameters()
	if lit.Parameters == nil && p.ctx.HasErrors() {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	lit.Body = p.parseBlockStatement()
	return lit
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	if exp.Arguments == nil && p.ctx.HasErrors() {
		return nil
	}
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Left: left}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Member = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	return exp
}

// parseMethodCallExpression parses obj::method(args).
func (p *Parser) parseMethodCallExpression(left ast.Expression) ast.Expression {
	exp := &ast.MethodCallExpression{Token: p.curToken, Receiver: left}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Method = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	if exp.Arguments == nil && p.ctx.HasErrors() {
		return nil
	}
	return exp
}

// parseExpressionList parses a comma separated list up to end; curToken must
// be the opening delimiter on entry and is end on exit.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list = append(list, elem)
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}
