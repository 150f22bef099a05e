package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// Resolver runs structural resolution over a program: it unrolls loops whose
// bounds are known, collapses conditionals whose guards are known, and
// absorbs the remaining flat statements into the compiler state, repeating
// until no step makes progress.
type Resolver struct {
	State   *State
	Program *ast.Program
	Errors  []*token.CompileError
}

func NewResolver(program *ast.Program) *Resolver {
	return &Resolver{
		State:   NewState(),
		Program: program,
		Errors:  []*token.CompileError{},
	}
}

func (r *Resolver) errorf(tok token.Token, format string, args ...any) {
	r.Errors = append(r.Errors, &token.CompileError{
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	})
}

// Resolve runs the special-form rewrites and then the structural fixpoint.
// Residual loops or conditionals after the fixpoint are reported once, at
// the end, as the single unresolvable error.
func (r *Resolver) Resolve() {
	r.Errors = append(r.Errors, RewriteLinks(r.Program)...)
	if len(r.Errors) > 0 {
		return
	}
	r.Errors = append(r.Errors, RewriteStatTags(r.Program)...)
	if len(r.Errors) > 0 {
		return
	}

	for {
		progress := r.unrollLoop()
		if len(r.Errors) > 0 {
			return
		}
		progress = r.resolveConditionals() || progress
		if len(r.Errors) > 0 {
			return
		}
		progress = r.absorbFlat() || progress
		if len(r.Errors) > 0 {
			return
		}
		if !progress {
			break
		}
	}

	for _, stmt := range r.Program.Statements {
		switch stmt.(type) {
		case *ast.ForStatement, *ast.IfStatement:
			r.errorf(stmt.Tok(), "unresolvable loop bounds or conditions: %s", stmt)
			return
		default:
			r.errorf(stmt.Tok(), "statement could not be resolved: %s", stmt)
			return
		}
	}
}

// unrollLoop unrolls the first loop whose bounds resolve, substituting the
// loop variable with each integer in the inclusive range in ascending order
// and splicing the copies in place of the loop. Only one loop is unrolled
// per call to keep the mutation simple.
func (r *Resolver) unrollLoop() bool {
	for i, stmt := range r.Program.Statements {
		fs, ok := stmt.(*ast.ForStatement)
		if !ok {
			continue
		}
		if fs.Range.Step != nil {
			r.errorf(fs.Range.Tok(), "range with step is not supported in a loop")
			return false
		}
		lo, okLo := r.loopBound(fs, fs.Range.Start)
		hi, okHi := r.loopBound(fs, fs.Range.Stop)
		if len(r.Errors) > 0 {
			return false
		}
		if !okLo || !okHi {
			// Bounds not known yet; a later pass may supply them.
			continue
		}

		spliced := []ast.Statement{}
		for v := lo; v <= hi; v++ {
			lit := &ast.IntegerLiteral{Token: fs.Var.Token, Value: v}
			for _, body := range fs.Body.Statements {
				spliced = append(spliced, substStmt(body, fs.Var.Value, lit))
			}
		}
		out := append([]ast.Statement{}, r.Program.Statements[:i]...)
		out = append(out, spliced...)
		out = append(out, r.Program.Statements[i+1:]...)
		r.Program.Statements = out
		return true
	}
	return false
}

func (r *Resolver) loopBound(fs *ast.ForStatement, bound ast.Expression) (int64, bool) {
	n, ok, exact, err := r.State.ResolveInt(bound)
	if err != nil {
		r.Errors = append(r.Errors, err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	if !exact {
		r.errorf(bound.Tok(), "loop %s bound must be an integer: %s", fs.Var.Value, bound)
		return 0, false
	}
	return n, true
}

// resolveConditionals splices the body of every conditional whose guard
// resolves to true and removes every conditional whose guard resolves to
// false. Unresolvable guards stay for a later pass.
func (r *Resolver) resolveConditionals() bool {
	progress := false
	out := []ast.Statement{}
	for _, stmt := range r.Program.Statements {
		is, ok := stmt.(*ast.IfStatement)
		if !ok {
			out = append(out, stmt)
			continue
		}
		val, resolved, err := r.State.ResolveBool(is.Cond)
		if err != nil {
			r.Errors = append(r.Errors, err)
			return false
		}
		if !resolved {
			out = append(out, stmt)
			continue
		}
		progress = true
		if val {
			out = append(out, is.Body.Statements...)
		}
	}
	r.Program.Statements = out
	return progress
}

// absorbFlat moves every flat assignment into the logical rules and every
// flat draw into the stochastic rules. Statements whose left-hand side or
// argument indices do not resolve yet are kept for a later pass.
func (r *Resolver) absorbFlat() bool {
	progress := false
	out := []ast.Statement{}
	for _, stmt := range r.Program.Statements {
		switch s := stmt.(type) {
		case *ast.AssignStatement:
			lhs, resolved, err := r.State.LHSSymbolic(s.Name)
			if err != nil {
				r.Errors = append(r.Errors, err)
				return false
			}
			if !resolved {
				out = append(out, stmt)
				continue
			}
			if ce := r.State.DefineLogical(lhs, s.Tok(), s.Value); ce != nil {
				r.Errors = append(r.Errors, ce)
				return false
			}
			progress = true

		case *ast.StochasticStatement:
			lhs, resolved, err := r.State.LHSSymbolic(s.Name)
			if err != nil {
				r.Errors = append(r.Errors, err)
				return false
			}
			argsOK, err := r.argsResolve(s.Dist.Arguments)
			if err != nil {
				r.Errors = append(r.Errors, err)
				return false
			}
			if !resolved || !argsOK {
				out = append(out, stmt)
				continue
			}
			if ce := r.State.DefineStochastic(lhs, s.Tok(), s.Dist); ce != nil {
				r.Errors = append(r.Errors, ce)
				return false
			}
			progress = true

		case *ast.ForStatement, *ast.IfStatement:
			out = append(out, stmt)

		default:
			r.errorf(stmt.Tok(), "unsupported statement: %s", stmt)
			return false
		}
	}
	r.Program.Statements = out
	return progress
}

// argsResolve checks that every indexed reference inside the argument
// expressions resolves cleanly, registering the referenced arrays as a side
// effect.
func (r *Resolver) argsResolve(args []ast.Expression) (bool, *token.CompileError) {
	ok := true
	var fatal *token.CompileError
	var walk func(e ast.Expression)
	walk = func(e ast.Expression) {
		if fatal != nil || !ok {
			return
		}
		switch t := e.(type) {
		case *ast.IndexExpression:
			axes, resolved, err := r.State.resolveAxes(t)
			if err != nil {
				fatal = err
				return
			}
			if !resolved {
				ok = false
				return
			}
			if _, err := r.State.ReferenceArray(t.Tok(), t.Array.Value, axes); err != nil {
				fatal = err
			}
		case *ast.PrefixExpression:
			walk(t.Right)
		case *ast.InfixExpression:
			walk(t.Left)
			walk(t.Right)
		case *ast.CallExpression:
			for _, a := range t.Arguments {
				walk(a)
			}
		}
	}
	for _, a := range args {
		walk(a)
	}
	return ok, fatal
}
