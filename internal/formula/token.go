package formula

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token kinds. The names mirror what content authors see in error messages.
const (
	tokOperator  = "Operator"
	tokKeyword   = "Keyword"
	tokIdent     = "Ident"
	tokConst     = "ConstIdent"
	tokInt       = "Int"
	tokString    = "String"
	tokLParen    = "LParen"
	tokRParen    = "RParen"
	tokLSquare   = "LSquare"
	tokRSquare   = "RSquare"
	tokComma     = "Comma"
	tokSemicolon = "Semicolon"
	tokComment   = "Comment"
	tokSpace     = "Whitespace"
)

// Lexer tokenizes formula source. Keyword-operators must be matched ahead of
// Ident, the same trick the command grammar's lexer uses for its verb words.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: tokComment, Pattern: `#[^#\n]*#?`},
	{Name: tokKeyword, Pattern: `\b(?:def|where|and|or|not)\b`},
	{Name: tokConst, Pattern: `[A-Z][A-Z0-9_]*\b`},
	{Name: tokIdent, Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: tokInt, Pattern: `[0-9]+`},
	{Name: tokString, Pattern: `'[^']*'`},
	{Name: tokOperator, Pattern: `->|>=|<=|!=|=|<|>|\+|-|\*|/|%|\^|\.`},
	{Name: tokLParen, Pattern: `\(`},
	{Name: tokRParen, Pattern: `\)`},
	{Name: tokLSquare, Pattern: `\[`},
	{Name: tokRSquare, Pattern: `\]`},
	{Name: tokComma, Pattern: `,`},
	{Name: tokSemicolon, Pattern: `;`},
	{Name: tokSpace, Pattern: `[ \t\r\n]+`},
})

var symbolNames = lexer.SymbolsByRune(Lexer)

// TokenError reports a lexing failure: an unterminated string or an
// unrecognized character. The parser re-raises it as a ParseError carrying
// file/line context.
type TokenError struct {
	Pos lexer.Position
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("tokenize error at %s: %v", e.Pos, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// tokenize lexes src into a token slice with comments and whitespace elided.
// An unterminated string is detected before handing the text to the lexer so
// the error points at the opening quote rather than at end of input.
func tokenize(src string) ([]lexer.Token, error) {
	if i := unterminatedString(src); i >= 0 {
		return nil, &TokenError{
			Pos: lexer.Position{Line: 1 + strings.Count(src[:i], "\n"), Column: i + 1},
			Err: fmt.Errorf("unterminated string literal"),
		}
	}

	lx, err := Lexer.LexString("", src)
	if err != nil {
		return nil, &TokenError{Err: err}
	}

	var tokens []lexer.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, &TokenError{Pos: tok.Pos, Err: err}
		}
		if tok.EOF() {
			return tokens, nil
		}
		switch symbolNames[tok.Type] {
		case tokSpace, tokComment:
			continue
		}
		tokens = append(tokens, tok)
	}
}

func unterminatedString(src string) int {
	open := -1
	for i, r := range src {
		if r == '\'' {
			if open == -1 {
				open = i
			} else {
				open = -1
			}
		}
	}
	return open
}

func kindOf(tok lexer.Token) string {
	return symbolNames[tok.Type]
}
