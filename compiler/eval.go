package compiler

import (
	"fmt"
	"math"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// PartialEval substitutes every bound variable in expr with its defining
// expression and folds constants, repeating until the expression stops
// changing. A previously seen intermediate form stops the loop (cycle guard
// for self-referential rule sets; this is not a full cycle detector over the
// whole rule graph). Literals resolve to themselves unconditionally.
func (st *State) PartialEval(expr ast.Expression) (ast.Expression, *token.CompileError) {
	seen := map[string]struct{}{expr.String(): {}}
	cur := expr
	// The pass cap bounds rule sets that keep growing without ever
	// repeating a form, e.g. x defined in terms of x+1.
	for i := 0; i < 100; i++ {
		next, err := st.evalPass(cur)
		if err != nil {
			return cur, err
		}
		s := next.String()
		if s == cur.String() {
			return next, nil
		}
		if _, ok := seen[s]; ok {
			return next, nil
		}
		seen[s] = struct{}{}
		cur = next
	}
	return cur, nil
}

// ResolveNum fully resolves expr to a number if substitution collapses it to
// a literal.
func (st *State) ResolveNum(expr ast.Expression) (float64, bool, *token.CompileError) {
	e, err := st.PartialEval(expr)
	if err != nil {
		return 0, false, err
	}
	v, ok := litValue(e)
	return v, ok, nil
}

// ResolveInt resolves expr to an integer. A resolution to a non-integral
// number reports exact = false alongside ok = true.
func (st *State) ResolveInt(expr ast.Expression) (n int64, ok bool, exact bool, err *token.CompileError) {
	v, ok, err := st.ResolveNum(expr)
	if err != nil || !ok {
		return 0, ok, false, err
	}
	if v != math.Trunc(v) {
		return 0, true, false, nil
	}
	return int64(v), true, true, nil
}

// ResolveBool resolves expr to a truth value; comparisons fold to 1 or 0.
func (st *State) ResolveBool(expr ast.Expression) (val bool, ok bool, err *token.CompileError) {
	v, ok, err := st.ResolveNum(expr)
	if err != nil || !ok {
		return false, ok, err
	}
	return v != 0, true, nil
}

// evalPass performs one bottom-up substitution-and-fold pass.
func (st *State) evalPass(expr ast.Expression) (ast.Expression, *token.CompileError) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.FullRange:
		return e, nil

	case *ast.Identifier:
		if v, ok := st.Consts[e.Value]; ok {
			return numLit(v, e.Token), nil
		}
		if rule, ok := st.Logical[e.Value]; ok {
			return rule.Expr, nil
		}
		return e, nil

	case *ast.IndexExpression:
		axes, resolved, err := st.resolveAxes(e)
		if err != nil {
			return nil, err
		}
		if !resolved {
			return st.evalIndices(e)
		}
		single := true
		for _, ax := range axes {
			if ax.Full || ax.Lo != ax.Hi {
				single = false
				break
			}
		}
		if !single {
			// A slice cannot fold to a scalar; keep the reference but still
			// register it so the array exists at its implied extents.
			if _, err := st.ReferenceArray(e.Tok(), e.Array.Value, axes); err != nil {
				return nil, err
			}
			return st.evalIndices(e)
		}
		cells, err := st.ReferenceArray(e.Tok(), e.Array.Value, axes)
		if err != nil {
			return nil, err
		}
		// The cell name prints identically to the index expression, so the
		// binding has to be substituted in this same pass.
		name := cells[0].Name
		if v, ok := st.Consts[name]; ok {
			return numLit(v, e.Tok()), nil
		}
		if rule, ok := st.Logical[name]; ok {
			return rule.Expr, nil
		}
		return &ast.Identifier{Token: e.Array.Token, Value: name}, nil

	case *ast.PrefixExpression:
		right, err := st.evalPass(e.Right)
		if err != nil {
			return nil, err
		}
		if v, ok := litValue(right); ok {
			switch e.Operator {
			case "-":
				return numLit(-v, e.Token), nil
			case "!":
				return boolLit(v == 0, e.Token), nil
			}
		}
		if right == e.Right {
			return e, nil
		}
		cp := *e
		cp.Right = right
		return &cp, nil

	case *ast.InfixExpression:
		left, err := st.evalPass(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := st.evalPass(e.Right)
		if err != nil {
			return nil, err
		}
		lv, lok := litValue(left)
		rv, rok := litValue(right)
		if lok && rok {
			if folded, ok := foldInfix(e.Operator, lv, rv, e.Token); ok {
				return folded, nil
			}
		}
		if left == e.Left && right == e.Right {
			return e, nil
		}
		cp := *e
		cp.Left, cp.Right = left, right
		return &cp, nil

	case *ast.CallExpression:
		args := make([]ast.Expression, len(e.Arguments))
		vals := make([]float64, len(e.Arguments))
		changed, allLit := false, true
		for i, a := range e.Arguments {
			a2, err := st.evalPass(a)
			if err != nil {
				return nil, err
			}
			args[i] = a2
			changed = changed || (a2 != a)
			v, ok := litValue(a2)
			if !ok {
				allLit = false
			}
			vals[i] = v
		}
		if allLit {
			if v, ok, err := applyBuiltin(e, vals); err != nil {
				return nil, err
			} else if ok {
				return numLit(v, e.Token), nil
			}
		}
		if !changed {
			return e, nil
		}
		cp := *e
		cp.Arguments = args
		return &cp, nil

	case *ast.RangeLiteral:
		start, err := st.evalPass(e.Start)
		if err != nil {
			return nil, err
		}
		stop, err := st.evalPass(e.Stop)
		if err != nil {
			return nil, err
		}
		if start == e.Start && stop == e.Stop {
			return e, nil
		}
		cp := *e
		cp.Start, cp.Stop = start, stop
		return &cp, nil

	default:
		return nil, &token.CompileError{
			Token: expr.Tok(),
			Msg:   fmt.Sprintf("cannot evaluate expression %q", expr),
		}
	}
}

// evalIndices rebuilds an index expression with partially evaluated indices.
func (st *State) evalIndices(e *ast.IndexExpression) (ast.Expression, *token.CompileError) {
	indices := make([]ast.Expression, len(e.Indices))
	changed := false
	for i, idx := range e.Indices {
		idx2, err := st.evalPass(idx)
		if err != nil {
			return nil, err
		}
		indices[i] = idx2
		changed = changed || (idx2 != idx)
	}
	if !changed {
		return e, nil
	}
	cp := *e
	cp.Indices = indices
	return &cp, nil
}

// resolveAxes partially evaluates each index of an array reference. A range
// with a step, or an index resolving to a non-integer, is fatal; an index
// that simply does not resolve yet reports resolved = false so the caller
// can retry on a later pass.
func (st *State) resolveAxes(e *ast.IndexExpression) ([]AxisRef, bool, *token.CompileError) {
	axes := make([]AxisRef, len(e.Indices))
	for i, idx := range e.Indices {
		switch ix := idx.(type) {
		case *ast.FullRange:
			axes[i] = AxisRef{Full: true}
		case *ast.RangeLiteral:
			if ix.Step != nil {
				return nil, false, &token.CompileError{
					Token: ix.Tok(),
					Msg:   "range with step is not supported in an index",
				}
			}
			lo, ok, err := st.axisInt(e, ix.Start)
			if err != nil {
				return nil, false, err
			}
			hi, ok2, err := st.axisInt(e, ix.Stop)
			if err != nil {
				return nil, false, err
			}
			if !ok || !ok2 {
				return nil, false, nil
			}
			axes[i] = AxisRef{Lo: lo, Hi: hi}
		case *ast.IndexExpression:
			return nil, false, &token.CompileError{
				Token: ix.Tok(),
				Msg:   fmt.Sprintf("nested indexing is not supported: %s", e),
			}
		default:
			n, ok, err := st.axisInt(e, idx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			axes[i] = AxisRef{Lo: n, Hi: n}
		}
	}
	return axes, true, nil
}

// axisInt resolves one index expression to a positive int. ok is false when
// the index does not resolve yet.
func (st *State) axisInt(ref *ast.IndexExpression, idx ast.Expression) (int, bool, *token.CompileError) {
	n, ok, exact, err := st.ResolveInt(idx)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	if !exact {
		return 0, false, &token.CompileError{
			Token: idx.Tok(),
			Msg:   fmt.Sprintf("array %s index must be an integer: %s", ref.Array.Value, idx),
		}
	}
	if n < 1 {
		return 0, false, &token.CompileError{
			Token: idx.Tok(),
			Msg:   fmt.Sprintf("array %s index must be positive, got %d", ref.Array.Value, n),
		}
	}
	return int(n), true, nil
}

// LHSSymbolic reduces a left-hand side to a single scalar or fully-indexed
// array cell. A compound expression or an unindexed slice is fatal; an index
// that does not resolve yet reports resolved = false.
func (st *State) LHSSymbolic(lhs ast.Expression) (sym *Symbolic, resolved bool, err *token.CompileError) {
	switch e := lhs.(type) {
	case *ast.Identifier:
		if _, ok := st.Arrays[e.Value]; ok {
			return nil, false, &token.CompileError{
				Token: e.Tok(),
				Msg:   fmt.Sprintf("%s is an array and must be indexed on the left-hand side", e.Value),
			}
		}
		return Scalar(e.Value), true, nil
	case *ast.IndexExpression:
		axes, ok, err := st.resolveAxes(e)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		for _, ax := range axes {
			if ax.Full || ax.Lo != ax.Hi {
				return nil, false, &token.CompileError{
					Token: e.Tok(),
					Msg:   fmt.Sprintf("left-hand side must be a fully-indexed array cell: %s", e),
				}
			}
		}
		cells, err := st.ReferenceArray(e.Tok(), e.Array.Value, axes)
		if err != nil {
			return nil, false, err
		}
		return cells[0], true, nil
	default:
		return nil, false, &token.CompileError{
			Token: lhs.Tok(),
			Msg:   fmt.Sprintf("left-hand side must be a scalar or array cell, got %s", lhs),
		}
	}
}

func litValue(e ast.Expression) (float64, bool) {
	switch l := e.(type) {
	case *ast.IntegerLiteral:
		return float64(l.Value), true
	case *ast.FloatLiteral:
		return l.Value, true
	}
	return 0, false
}

func numLit(v float64, tok token.Token) ast.Expression {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return &ast.IntegerLiteral{Token: tok, Value: int64(v)}
	}
	return &ast.FloatLiteral{Token: tok, Value: v}
}

func boolLit(b bool, tok token.Token) ast.Expression {
	if b {
		return &ast.IntegerLiteral{Token: tok, Value: 1}
	}
	return &ast.IntegerLiteral{Token: tok, Value: 0}
}

func foldInfix(op string, l, r float64, tok token.Token) (ast.Expression, bool) {
	switch op {
	case "+":
		return numLit(l+r, tok), true
	case "-":
		return numLit(l-r, tok), true
	case "*":
		return numLit(l*r, tok), true
	case "/":
		if r == 0 {
			// Leave division by zero unfolded; it surfaces as an
			// evaluation error if the node is ever generated.
			return nil, false
		}
		return numLit(l/r, tok), true
	case "==":
		return boolLit(l == r, tok), true
	case "!=":
		return boolLit(l != r, tok), true
	case "<":
		return boolLit(l < r, tok), true
	case "<=":
		return boolLit(l <= r, tok), true
	case ">":
		return boolLit(l > r, tok), true
	case ">=":
		return boolLit(l >= r, tok), true
	}
	return nil, false
}
