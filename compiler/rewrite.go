package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// linkInverses is the closed table of supported link functions on a
// left-hand side and their inverses.
var linkInverses = map[string]string{
	"log":     "exp",
	"logit":   "ilogit",
	"probit":  "iprobit",
	"cloglog": "icloglog",
}

// RewriteLinks rewrites every link-function assignment f(lhs) = rhs into
// lhs = inverse_f(rhs), recursing into loop and conditional bodies. A call
// on the left-hand side outside the link table is fatal.
func RewriteLinks(program *ast.Program) []*token.CompileError {
	errs := []*token.CompileError{}
	rewriteLinksIn(program.Statements, &errs)
	return errs
}

func rewriteLinksIn(stmts []ast.Statement, errs *[]*token.CompileError) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStatement:
			call, ok := s.Name.(*ast.CallExpression)
			if !ok {
				continue
			}
			inverse, ok := linkInverses[call.Function.Value]
			if !ok {
				*errs = append(*errs, &token.CompileError{
					Token: call.Tok(),
					Msg:   fmt.Sprintf("link function %s is not supported", call.Function.Value),
				})
				continue
			}
			if len(call.Arguments) != 1 {
				*errs = append(*errs, &token.CompileError{
					Token: call.Tok(),
					Msg:   fmt.Sprintf("link function %s takes exactly one argument", call.Function.Value),
				})
				continue
			}
			s.Name = call.Arguments[0]
			s.Value = &ast.CallExpression{
				Token:     call.Token,
				Function:  &ast.Identifier{Token: call.Function.Token, Value: inverse},
				Arguments: []ast.Expression{s.Value},
			}
		case *ast.ForStatement:
			rewriteLinksIn(s.Body.Statements, errs)
		case *ast.IfStatement:
			rewriteLinksIn(s.Body.Statements, errs)
		}
	}
}

// statTagNames are the convenience calls resolved against a stochastic
// statement elsewhere in the program.
var statTagNames = map[string]struct{}{
	"cumulative": {},
	"density":    {},
	"deviance":   {},
}

// RewriteStatTags rewrites cumulative(v, x), density(v, x) and
// deviance(v, x) calls by locating the unique stochastic statement whose
// left-hand side prints identically to v and splicing its distribution into
// the call. The lookup is purely syntactic: it does not follow loop
// unrolling, so a draw defined under a different index spelling is not
// found. Exactly one textual match must exist.
func RewriteStatTags(program *ast.Program) []*token.CompileError {
	draws := map[string][]*ast.StochasticStatement{}
	collectDraws(program.Statements, draws)

	errs := []*token.CompileError{}
	rw := func(e ast.Expression) ast.Expression {
		call, ok := e.(*ast.CallExpression)
		if !ok {
			return e
		}
		if _, ok := statTagNames[call.Function.Value]; !ok {
			return e
		}
		if len(call.Arguments) != 2 {
			errs = append(errs, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("%s takes exactly two arguments", call.Function.Value),
			})
			return e
		}
		target := call.Arguments[0].String()
		matches := draws[target]
		if len(matches) == 0 {
			errs = append(errs, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("no stochastic statement found for %s", target),
			})
			return e
		}
		if len(matches) > 1 {
			errs = append(errs, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("multiple stochastic statements match %s", target),
			})
			return e
		}
		dist := matches[0].Dist
		args := append([]ast.Expression{}, dist.Arguments...)
		args = append(args, call.Arguments[1])
		return &ast.CallExpression{
			Token:     call.Token,
			Function:  &ast.Identifier{Token: call.Function.Token, Value: call.Function.Value + "$" + dist.Function.Value},
			Arguments: args,
		}
	}
	rewriteExprsIn(program.Statements, rw)
	return errs
}

func collectDraws(stmts []ast.Statement, draws map[string][]*ast.StochasticStatement) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.StochasticStatement:
			key := s.Name.String()
			draws[key] = append(draws[key], s)
		case *ast.ForStatement:
			collectDraws(s.Body.Statements, draws)
		case *ast.IfStatement:
			collectDraws(s.Body.Statements, draws)
		}
	}
}

// rewriteExprsIn applies a bottom-up expression rewrite to every expression
// position of every statement, in place at the statement level.
func rewriteExprsIn(stmts []ast.Statement, rw func(ast.Expression) ast.Expression) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStatement:
			s.Value = rewriteExpr(s.Value, rw)
		case *ast.StochasticStatement:
			s.Dist = rewriteExpr(s.Dist, rw).(*ast.CallExpression)
		case *ast.ForStatement:
			s.Range = rewriteExpr(s.Range, rw).(*ast.RangeLiteral)
			rewriteExprsIn(s.Body.Statements, rw)
		case *ast.IfStatement:
			s.Cond = rewriteExpr(s.Cond, rw)
			rewriteExprsIn(s.Body.Statements, rw)
		}
	}
}

func rewriteExpr(e ast.Expression, rw func(ast.Expression) ast.Expression) ast.Expression {
	switch t := e.(type) {
	case *ast.PrefixExpression:
		cp := *t
		cp.Right = rewriteExpr(t.Right, rw)
		e = &cp
	case *ast.InfixExpression:
		cp := *t
		cp.Left = rewriteExpr(t.Left, rw)
		cp.Right = rewriteExpr(t.Right, rw)
		e = &cp
	case *ast.CallExpression:
		cp := *t
		cp.Arguments = make([]ast.Expression, len(t.Arguments))
		for i, a := range t.Arguments {
			cp.Arguments[i] = rewriteExpr(a, rw)
		}
		e = &cp
	case *ast.IndexExpression:
		cp := *t
		cp.Indices = make([]ast.Expression, len(t.Indices))
		for i, ix := range t.Indices {
			cp.Indices[i] = rewriteExpr(ix, rw)
		}
		e = &cp
	case *ast.RangeLiteral:
		cp := *t
		cp.Start = rewriteExpr(t.Start, rw)
		cp.Stop = rewriteExpr(t.Stop, rw)
		if t.Step != nil {
			cp.Step = rewriteExpr(t.Step, rw)
		}
		e = &cp
	}
	return rw(e)
}
