package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/ast"
)

// substExpr replaces every occurrence of the named identifier with val,
// returning a fresh tree. Leaves are shared; they are immutable.
func substExpr(e ast.Expression, name string, val ast.Expression) ast.Expression {
	switch t := e.(type) {
	case *ast.Identifier:
		if t.Value == name {
			return val
		}
		return t
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.FullRange:
		return e
	case *ast.PrefixExpression:
		cp := *t
		cp.Right = substExpr(t.Right, name, val)
		return &cp
	case *ast.InfixExpression:
		cp := *t
		cp.Left = substExpr(t.Left, name, val)
		cp.Right = substExpr(t.Right, name, val)
		return &cp
	case *ast.CallExpression:
		cp := *t
		cp.Arguments = substExprs(t.Arguments, name, val)
		return &cp
	case *ast.IndexExpression:
		cp := *t
		cp.Indices = substExprs(t.Indices, name, val)
		return &cp
	case *ast.RangeLiteral:
		cp := *t
		cp.Start = substExpr(t.Start, name, val)
		cp.Stop = substExpr(t.Stop, name, val)
		if t.Step != nil {
			cp.Step = substExpr(t.Step, name, val)
		}
		return &cp
	default:
		panic(fmt.Sprintf("unhandled expression type %T in substitution", e))
	}
}

func substExprs(es []ast.Expression, name string, val ast.Expression) []ast.Expression {
	out := make([]ast.Expression, len(es))
	for i, e := range es {
		out[i] = substExpr(e, name, val)
	}
	return out
}

// substStmt replaces the named identifier throughout one statement, copying
// every container node so that spliced loop iterations stay independent.
func substStmt(s ast.Statement, name string, val ast.Expression) ast.Statement {
	switch t := s.(type) {
	case *ast.AssignStatement:
		cp := *t
		cp.Name = substExpr(t.Name, name, val)
		cp.Value = substExpr(t.Value, name, val)
		return &cp
	case *ast.StochasticStatement:
		cp := *t
		cp.Name = substExpr(t.Name, name, val)
		cp.Dist = substExpr(t.Dist, name, val).(*ast.CallExpression)
		return &cp
	case *ast.ForStatement:
		cp := *t
		cp.Range = substExpr(t.Range, name, val).(*ast.RangeLiteral)
		if t.Var.Value == name {
			// The inner loop variable shadows; only the range is rewritten.
			return &cp
		}
		cp.Body = substBlock(t.Body, name, val)
		return &cp
	case *ast.IfStatement:
		cp := *t
		cp.Cond = substExpr(t.Cond, name, val)
		cp.Body = substBlock(t.Body, name, val)
		return &cp
	case *ast.BlockStatement:
		return substBlock(t, name, val)
	default:
		panic(fmt.Sprintf("unhandled statement type %T in substitution", s))
	}
}

func substBlock(b *ast.BlockStatement, name string, val ast.Expression) *ast.BlockStatement {
	cp := *b
	cp.Statements = make([]ast.Statement, len(b.Statements))
	for i, s := range b.Statements {
		cp.Statements[i] = substStmt(s, name, val)
	}
	return &cp
}
