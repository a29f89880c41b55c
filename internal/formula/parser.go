package formula

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
)

// parser is a precedence-climbing recursive descent parser over the token
// slice produced by tokenize. One parser instance per formula string.
type parser struct {
	tokens  []lexer.Token
	pos     int
	symbols *SymbolTable
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() lexer.Token {
	if p.atEnd() {
		return lexer.EOFToken(lexer.Position{})
	}
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return lexer.EOFToken(lexer.Position{})
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	p.pos++
	return tok
}

// matchOp consumes the next token if it is an operator or keyword with one of
// the given spellings, returning the spelling.
func (p *parser) matchOp(ops ...string) (string, bool) {
	tok := p.peek()
	kind := kindOf(tok)
	if kind != tokOperator && kind != tokKeyword {
		return "", false
	}
	for _, op := range ops {
		if tok.Value == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expect(kind string) (lexer.Token, error) {
	tok := p.peek()
	if kindOf(tok) != kind {
		return tok, fmt.Errorf("expected %s, found %q", kind, tok.Value)
	}
	p.pos++
	return tok, nil
}

// fold collapses an expression whose operands are all constant, unless it is
// on the no-fold list (handled upstream in createFunction).
func fold(e Expr) Expr {
	if v, ok := reduceExpr(e); ok {
		return &literalExpr{val: v}
	}
	return e
}

// Precedence ladder, loosest first: where, or, and, comparisons, additive,
// multiplicative, power, unary, postfix member/index, primary.

func (p *parser) parseExpression() (Expr, error) {
	return p.parseWhere()
}

func (p *parser) parseWhere() (Expr, error) {
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("where"); !ok {
			return body, nil
		}
		var names []string
		var bindings []Expr
		for {
			nameTok, err := p.expect(tokIdent)
			if err != nil {
				return nil, fmt.Errorf("in where clause: %w", err)
			}
			if _, ok := p.matchOp("="); !ok {
				return nil, fmt.Errorf("in where clause: expected = after %q", nameTok.Value)
			}
			binding, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			names = append(names, nameTok.Value)
			bindings = append(bindings, binding)

			// A comma continues the bindings only when followed by
			// another `name =` pair; otherwise it belongs to an
			// enclosing argument list.
			if kindOf(p.peek()) == tokComma &&
				kindOf(p.peekAt(1)) == tokIdent &&
				p.peekAt(2).Value == "=" {
				p.pos++
				continue
			}
			break
		}
		body = &whereExpr{body: body, names: names, bindings: bindings}
	}
}

func (p *parser) parseOr() (Expr, error) {
	return p.parseBinary(p.parseAnd, "or")
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseBinary(p.parseComparison, "and")
}

func (p *parser) parseComparison() (Expr, error) {
	return p.parseBinary(p.parseAdditive, "=", "!=", "<", ">", "<=", ">=")
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parsePower, "*", "/", "%")
}

func (p *parser) parseBinary(operand func() (Expr, error), ops ...string) (Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = fold(&binaryExpr{op: op, left: left, right: right})
	}
}

// parsePower is right-associative.
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp("^"); !ok {
		return base, nil
	}
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return fold(&binaryExpr{op: "^", left: base, right: exp}), nil
}

func (p *parser) parseUnary() (Expr, error) {
	if op, ok := p.matchOp("-", "not"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return fold(&unaryExpr{op: op, operand: operand}), nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peek().Value == "." && kindOf(p.peek()) == tokOperator:
			p.pos++
			field, err := p.expect(tokIdent)
			if err != nil {
				return nil, fmt.Errorf("after .: %w", err)
			}
			e = &memberExpr{object: e, field: field.Value}
		case kindOf(p.peek()) == tokLSquare:
			p.pos++
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRSquare); err != nil {
				return nil, err
			}
			e = &indexExpr{object: e, index: index}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch kindOf(tok) {
	case tokInt:
		p.pos++
		n, err := strconv.Atoi(tok.Value)
		if err != nil {
			return nil, fmt.Errorf("bad integer literal %q", tok.Value)
		}
		return &literalExpr{val: Int(n)}, nil

	case tokString:
		p.pos++
		return &literalExpr{val: String(tok.Value[1 : len(tok.Value)-1])}, nil

	case tokConst:
		p.pos++
		v, ok := p.symbols.Constant(tok.Value)
		if !ok {
			return nil, fmt.Errorf("unknown constant %q", tok.Value)
		}
		return &literalExpr{val: v}, nil

	case tokIdent:
		p.pos++
		if kindOf(p.peek()) == tokLParen {
			args, err := p.parseArgList()
			if err != nil {
				return nil, fmt.Errorf("in call to %s(): %w", tok.Value, err)
			}
			return p.symbols.createFunction(tok.Value, args)
		}
		return &identExpr{name: tok.Value}, nil

	case tokLParen:
		p.pos++
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil

	case tokLSquare:
		p.pos++
		var items []Expr
		if kindOf(p.peek()) != tokRSquare {
			for {
				item, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if kindOf(p.peek()) != tokComma {
					break
				}
				p.pos++
			}
		}
		if _, err := p.expect(tokRSquare); err != nil {
			return nil, err
		}
		return fold(&listExpr{items: items}), nil
	}

	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	return nil, fmt.Errorf("unexpected token %q", tok.Value)
}

// parseArgList consumes `( expr, expr, ... )`.
func (p *parser) parseArgList() ([]Expr, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var args []Expr
	if kindOf(p.peek()) != tokRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if kindOf(p.peek()) != tokComma {
				break
			}
			p.pos++
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return args, nil
}

// parseDef consumes one `def name(arg, ...) body` definition and registers it
// with p.symbols. The function is visible by name inside its own body; the
// stub is back-patched once the body finishes parsing.
func (p *parser) parseDef() error {
	nameTok, err := p.expect(tokIdent)
	if err != nil {
		return fmt.Errorf("after def: %w", err)
	}
	if _, err := p.expect(tokLParen); err != nil {
		return fmt.Errorf("in def %s: %w", nameTok.Value, err)
	}
	var argNames []string
	if kindOf(p.peek()) != tokRParen {
		for {
			arg, err := p.expect(tokIdent)
			if err != nil {
				return fmt.Errorf("in def %s argument list: %w", nameTok.Value, err)
			}
			argNames = append(argNames, arg.Value)
			if kindOf(p.peek()) != tokComma {
				break
			}
			p.pos++
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return fmt.Errorf("in def %s: %w", nameTok.Value, err)
	}

	recursive := newRecursiveTable(nameTok.Value, argNames, p.symbols)
	body := &parser{tokens: p.tokens, pos: p.pos, symbols: recursive.SymbolTable}
	bodyExpr, err := body.parseExpression()
	if err != nil {
		return fmt.Errorf("in def %s body: %w", nameTok.Value, err)
	}
	p.pos = body.pos

	fn := recursive.resolve(&Formula{expr: bodyExpr, src: fmt.Sprintf("def %s", nameTok.Value)})
	p.symbols.AddFormulaFunction(fn)
	return nil
}
