package compiler

import (
	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// Builders for syntax trees assembled directly in tests. Positions stay
// zero; the decoder fills them in for real inputs.

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Token: token.Token{Type: token.IDENT, Literal: name}, Value: name}
}

func num(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Token: token.Token{Type: token.INT}, Value: v}
}

func flt(v float64) *ast.FloatLiteral {
	return &ast.FloatLiteral{Token: token.Token{Type: token.FLOAT}, Value: v}
}

func infix(left ast.Expression, op string, right ast.Expression) *ast.InfixExpression {
	return &ast.InfixExpression{Token: token.Token{Literal: op}, Left: left, Operator: op, Right: right}
}

func call(fn string, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{
		Token:     token.Token{Type: token.LPAREN},
		Function:  ident(fn),
		Arguments: args,
	}
}

func idx(array string, indices ...ast.Expression) *ast.IndexExpression {
	return &ast.IndexExpression{
		Token:   token.Token{Type: token.LBRACK},
		Array:   ident(array),
		Indices: indices,
	}
}

func rng(start, stop ast.Expression) *ast.RangeLiteral {
	return &ast.RangeLiteral{Token: token.Token{Type: token.COLON}, Start: start, Stop: stop}
}

func full() *ast.FullRange {
	return &ast.FullRange{Token: token.Token{Type: token.COLON}}
}

func assign(lhs, rhs ast.Expression) *ast.AssignStatement {
	return &ast.AssignStatement{Token: token.Token{Type: token.ASSIGN}, Name: lhs, Value: rhs}
}

func draw(lhs ast.Expression, dist *ast.CallExpression) *ast.StochasticStatement {
	return &ast.StochasticStatement{Token: token.Token{Type: token.TILDE}, Name: lhs, Dist: dist}
}

func block(stmts ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{Token: token.Token{Type: token.LBRACE}, Statements: stmts}
}

func forStmt(v string, lo, hi ast.Expression, body ...ast.Statement) *ast.ForStatement {
	return &ast.ForStatement{
		Token: token.Token{Type: token.FOR},
		Var:   ident(v),
		Range: rng(lo, hi),
		Body:  block(body...),
	}
}

func ifStmt(cond ast.Expression, body ...ast.Statement) *ast.IfStatement {
	return &ast.IfStatement{Token: token.Token{Type: token.IF}, Cond: cond, Body: block(body...)}
}

func program(stmts ...ast.Statement) *ast.Program {
	return &ast.Program{Statements: stmts}
}

func fptr(v float64) *float64 {
	return &v
}
