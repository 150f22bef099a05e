package token

import "fmt"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	literal_beg
	// Identifiers + literals
	IDENT // mu, tau, x, y, ...
	INT   // 42
	FLOAT // 1.5
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	TILDE  // ~

	ADD // +
	SUB // -
	MUL // *
	QUO // /

	NOT // !

	LPAREN // (
	LBRACK // [
	LBRACE // {
	COMMA  // ,
	COLON  // :

	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	LSS // <
	GTR // >

	NEQ // !=
	LEQ // <=
	GEQ // >=
	comparison_end

	keyword_beg
	FOR // for
	IF  // if
	IN  // in
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT: "IDENT",
	INT:   "INT",
	FLOAT: "FLOAT",

	ASSIGN: "=",
	TILDE:  "~",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	QUO: "/",

	NOT: "!",

	LPAREN: "(",
	LBRACK: "[",
	LBRACE: "{",
	COMMA:  ",",
	COLON:  ":",

	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	LSS: "<",
	GTR: ">",

	NEQ: "!=",
	LEQ: "<=",
	GEQ: ">=",

	FOR: "for",
	IF:  "if",
	IN:  "in",
}

// Token carries the literal and source position of a syntax-tree node. The
// external parser fills Line/Column; trees built programmatically may leave
// them zero.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && t.Type < comparison_end
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = fmt.Sprintf("token(%d)", int(tokenType))
	}

	return s
}

// CompileError is a fatal compilation failure tied to a source position.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	if ce.Token.Line == 0 {
		return ce.Msg
	}
	return fmt.Sprintf("%d:%d: %s", ce.Token.Line, ce.Token.Column, ce.Msg)
}
