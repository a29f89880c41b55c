package formula

import (
	"fmt"
	"strings"
)

// Formula is a compiled expression plus the source it was compiled from.
// Formulas are immutable and safe to share across evaluations and sessions.
type Formula struct {
	expr Expr
	src  string
	file string
	line int
}

// Parse compiles src against symbols. A nil symbols table resolves builtins
// only.
func Parse(src string, symbols *SymbolTable) (*Formula, error) {
	return ParseAt(src, symbols, "", 0)
}

// ParseAt is Parse with a content location attached to any failure.
func ParseAt(src string, symbols *SymbolTable, file string, line int) (*Formula, error) {
	if symbols == nil {
		symbols = NewSymbolTable(nil)
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, &ParseError{File: file, Line: line, Src: src, Err: err}
	}
	p := &parser{tokens: tokens, symbols: symbols}

	// Leading `def` statements extend the symbol table; the trailing
	// expression, if any, is the formula proper.
	for kindOf(p.peek()) == tokKeyword && p.peek().Value == "def" {
		p.pos++
		if err := p.parseDef(); err != nil {
			return nil, &ParseError{File: file, Line: line, Src: src, Err: err}
		}
		if kindOf(p.peek()) == tokSemicolon {
			p.pos++
		}
	}
	if p.atEnd() {
		return &Formula{expr: &literalExpr{val: Null}, src: src, file: file, line: line}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, &ParseError{File: file, Line: line, Src: src, Err: err}
	}
	if !p.atEnd() {
		err := fmt.Errorf("unexpected token %q after expression", p.peek().Value)
		return nil, &ParseError{File: file, Line: line, Src: src, Err: err}
	}
	return &Formula{expr: expr, src: src, file: file, line: line}, nil
}

// MustParse is Parse for programmatically known-good formulas.
func MustParse(src string, symbols *SymbolTable) *Formula {
	f, err := Parse(src, symbols)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseOptional compiles src, mapping an empty or all-whitespace string to a
// nil formula. Content schemas treat absent handlers this way throughout.
func ParseOptional(src string, symbols *SymbolTable) (*Formula, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	return Parse(src, symbols)
}

// StringFormula builds a formula that evaluates to the literal string s,
// used where a content field accepts either a formula or plain text.
func StringFormula(s string) *Formula {
	return &Formula{expr: &literalExpr{val: String(s)}, src: "'" + s + "'"}
}

// Execute evaluates the formula against ctx.
func (f *Formula) Execute(ctx Callable) Value {
	if ctx == nil {
		ctx = nullCallable{}
	}
	return f.expr.Evaluate(ctx)
}

// Str returns the source text the formula was compiled from.
func (f *Formula) Str() string { return f.src }

// Evaluate runs f against ctx, or returns def when f is nil. Content handlers
// are optional nearly everywhere, so this nil-tolerant form is the common
// entry point.
func Evaluate(f *Formula, ctx Callable, def Value) Value {
	if f == nil {
		return def
	}
	return f.Execute(ctx)
}
