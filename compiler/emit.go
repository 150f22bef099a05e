package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

type NodeKind int

const (
	// Logical nodes are pure functions of their parents.
	Logical NodeKind = iota
	// Stochastic nodes are draws from a distribution.
	Stochastic
	// Observation nodes are stochastic nodes whose value is already fixed
	// by the input data.
	Observation
)

func (k NodeKind) String() string {
	switch k {
	case Logical:
		return "Logical"
	case Stochastic:
		return "Stochastic"
	case Observation:
		return "Observation"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Env carries resolved parent values into a generator.
type Env map[string]float64

// Node is one compiled unit of the model graph, handed to the downstream
// runtime. Exactly one of Gen and DistGen is set, by Kind.
type Node struct {
	Name    string
	Default float64
	Kind    NodeKind
	Parents []string
	Gen     func(env Env) (float64, error)
	DistGen func(env Env) (Dist, error)
}

// Emit converts the finished state into the flat node list. Emission order
// is not defined; callers sort by name when they need determinism.
func (st *State) Emit() (map[string]*Node, *token.CompileError) {
	nodes := make(map[string]*Node, len(st.Logical)+len(st.Stochastic))

	for name, rule := range st.Logical {
		def := 0.0
		v, ok, err := st.ResolveNum(&ast.Identifier{Token: rule.Tok, Value: name})
		if err != nil {
			return nil, err
		}
		if ok {
			def = v
		}
		gen, cerr := st.compileExpr(rule.Expr)
		if cerr != nil {
			return nil, cerr
		}
		parents, cerr := st.collectParents(rule.Expr)
		if cerr != nil {
			return nil, cerr
		}
		nodes[name] = &Node{
			Name:    name,
			Default: def,
			Kind:    Logical,
			Parents: parents,
			Gen:     gen,
		}
	}

	for name, rule := range st.Stochastic {
		kind := Stochastic
		def := 0.0
		v, ok, err := st.ResolveNum(&ast.Identifier{Token: rule.Tok, Value: name})
		if err != nil {
			return nil, err
		}
		if ok {
			kind = Observation
			def = v
		}
		distGen, parents, cerr := st.compileDist(rule)
		if cerr != nil {
			return nil, cerr
		}
		nodes[name] = &Node{
			Name:    name,
			Default: def,
			Kind:    kind,
			Parents: parents,
			DistGen: distGen,
		}
	}

	return nodes, nil
}

// compileExpr compiles an expression tree ahead of time into a closure over
// parent values. Data constants are looked up as a fallback so generators
// stay pure functions of their non-data parents.
func (st *State) compileExpr(expr ast.Expression) (func(Env) (float64, error), *token.CompileError) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		v := float64(e.Value)
		return func(Env) (float64, error) { return v, nil }, nil

	case *ast.FloatLiteral:
		v := e.Value
		return func(Env) (float64, error) { return v, nil }, nil

	case *ast.Identifier:
		name := e.Value
		if _, ok := st.Arrays[name]; ok {
			return nil, &token.CompileError{
				Token: e.Tok(),
				Msg:   fmt.Sprintf("array %s must be indexed", name),
			}
		}
		consts := st.Consts
		return func(env Env) (float64, error) {
			if v, ok := env[name]; ok {
				return v, nil
			}
			if v, ok := consts[name]; ok {
				return v, nil
			}
			return 0, fmt.Errorf("no value for %s", name)
		}, nil

	case *ast.IndexExpression:
		cell, cerr := st.scalarCell(e)
		if cerr != nil {
			return nil, cerr
		}
		return st.compileExpr(&ast.Identifier{Token: e.Tok(), Value: cell.Name})

	case *ast.PrefixExpression:
		right, cerr := st.compileExpr(e.Right)
		if cerr != nil {
			return nil, cerr
		}
		switch e.Operator {
		case "-":
			return func(env Env) (float64, error) {
				v, err := right(env)
				return -v, err
			}, nil
		case "!":
			return func(env Env) (float64, error) {
				v, err := right(env)
				if err != nil {
					return 0, err
				}
				if v == 0 {
					return 1, nil
				}
				return 0, nil
			}, nil
		}
		return nil, &token.CompileError{
			Token: e.Tok(),
			Msg:   fmt.Sprintf("unsupported prefix operator: %s", e.Operator),
		}

	case *ast.InfixExpression:
		left, cerr := st.compileExpr(e.Left)
		if cerr != nil {
			return nil, cerr
		}
		right, cerr := st.compileExpr(e.Right)
		if cerr != nil {
			return nil, cerr
		}
		op, ok := infixOps[e.Operator]
		if !ok {
			return nil, &token.CompileError{
				Token: e.Tok(),
				Msg:   fmt.Sprintf("unsupported operator: %s", e.Operator),
			}
		}
		return func(env Env) (float64, error) {
			lv, err := left(env)
			if err != nil {
				return 0, err
			}
			rv, err := right(env)
			if err != nil {
				return 0, err
			}
			return op(lv, rv)
		}, nil

	case *ast.CallExpression:
		return st.compileCall(e)
	}

	return nil, &token.CompileError{
		Token: expr.Tok(),
		Msg:   fmt.Sprintf("cannot compile expression %q into a generator", expr),
	}
}

var infixOps = map[string]func(l, r float64) (float64, error){
	"+": func(l, r float64) (float64, error) { return l + r, nil },
	"-": func(l, r float64) (float64, error) { return l - r, nil },
	"*": func(l, r float64) (float64, error) { return l * r, nil },
	"/": func(l, r float64) (float64, error) {
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	},
	"==": cmpOp(func(l, r float64) bool { return l == r }),
	"!=": cmpOp(func(l, r float64) bool { return l != r }),
	"<":  cmpOp(func(l, r float64) bool { return l < r }),
	"<=": cmpOp(func(l, r float64) bool { return l <= r }),
	">":  cmpOp(func(l, r float64) bool { return l > r }),
	">=": cmpOp(func(l, r float64) bool { return l >= r }),
}

func cmpOp(cmp func(l, r float64) bool) func(l, r float64) (float64, error) {
	return func(l, r float64) (float64, error) {
		if cmp(l, r) {
			return 1, nil
		}
		return 0, nil
	}
}

func (st *State) compileCall(call *ast.CallExpression) (func(Env) (float64, error), *token.CompileError) {
	name := call.Function.Value

	if op, distName, ok := statTag(name); ok {
		spec, found := LookupDist(distName)
		if !found {
			return nil, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("unknown distribution: %s", distName),
			}
		}
		args, cerr := st.compileArgs(call)
		if cerr != nil {
			return nil, cerr
		}
		if len(args) == 0 || (!spec.Variadic && len(args)-1 != spec.Arity) {
			return nil, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("%s expects %d arguments, got %d", name, spec.Arity+1, len(args)),
			}
		}
		return func(env Env) (float64, error) {
			vals, err := evalArgs(args, env)
			if err != nil {
				return 0, err
			}
			d, err := spec.Make(vals[:len(vals)-1])
			if err != nil {
				return 0, err
			}
			return applyStatTag(op, d, vals[len(vals)-1]), nil
		}, nil
	}

	fn, ok := defaultFuncs[name]
	if !ok {
		return nil, &token.CompileError{
			Token: call.Tok(),
			Msg:   fmt.Sprintf("unknown function: %s", name),
		}
	}
	args, cerr := st.compileArgs(call)
	if cerr != nil {
		return nil, cerr
	}
	if len(args) != fn.Arity {
		return nil, &token.CompileError{
			Token: call.Tok(),
			Msg:   fmt.Sprintf("%s expects %d arguments, got %d", name, fn.Arity, len(args)),
		}
	}
	apply := fn.Fn
	return func(env Env) (float64, error) {
		vals, err := evalArgs(args, env)
		if err != nil {
			return 0, err
		}
		return apply(vals), nil
	}, nil
}

// compileArgs compiles a call's arguments. A sliced array reference used
// directly as an argument expands to one closure per cell, in row-major
// order; anywhere else a slice is an error.
func (st *State) compileArgs(call *ast.CallExpression) ([]func(Env) (float64, error), *token.CompileError) {
	args := []func(Env) (float64, error){}
	for _, a := range call.Arguments {
		if ie, ok := a.(*ast.IndexExpression); ok {
			cells, cerr := st.refCells(ie)
			if cerr != nil {
				return nil, cerr
			}
			for _, cell := range cells {
				fn, cerr := st.compileExpr(&ast.Identifier{Token: ie.Tok(), Value: cell.Name})
				if cerr != nil {
					return nil, cerr
				}
				args = append(args, fn)
			}
			continue
		}
		fn, cerr := st.compileExpr(a)
		if cerr != nil {
			return nil, cerr
		}
		args = append(args, fn)
	}
	return args, nil
}

func evalArgs(args []func(Env) (float64, error), env Env) ([]float64, error) {
	vals := make([]float64, len(args))
	for i, fn := range args {
		v, err := fn(env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// compileDist builds the distribution factory for a stochastic rule.
func (st *State) compileDist(rule *StochasticRule) (func(Env) (Dist, error), []string, *token.CompileError) {
	args, cerr := st.compileArgs(rule.Call)
	if cerr != nil {
		return nil, nil, cerr
	}
	spec := rule.Spec
	if !spec.Variadic && len(args) != spec.Arity {
		return nil, nil, &token.CompileError{
			Token: rule.Call.Tok(),
			Msg:   fmt.Sprintf("%s expects %d arguments, got %d", spec.Name, spec.Arity, len(args)),
		}
	}

	parents := []string{}
	seen := map[string]struct{}{}
	for _, a := range rule.Call.Arguments {
		ps, cerr := st.collectParents(a)
		if cerr != nil {
			return nil, nil, cerr
		}
		for _, p := range ps {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			parents = append(parents, p)
		}
	}

	gen := func(env Env) (Dist, error) {
		vals, err := evalArgs(args, env)
		if err != nil {
			return nil, err
		}
		return spec.Make(vals)
	}
	return gen, parents, nil
}

// scalarCell resolves an index expression that must denote exactly one cell.
func (st *State) scalarCell(e *ast.IndexExpression) (*Symbolic, *token.CompileError) {
	cells, cerr := st.refCells(e)
	if cerr != nil {
		return nil, cerr
	}
	if len(cells) != 1 {
		return nil, &token.CompileError{
			Token: e.Tok(),
			Msg:   fmt.Sprintf("sliced reference %s is not allowed here", e),
		}
	}
	return cells[0], nil
}

func (st *State) refCells(e *ast.IndexExpression) ([]*Symbolic, *token.CompileError) {
	axes, resolved, err := st.resolveAxes(e)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, &token.CompileError{
			Token: e.Tok(),
			Msg:   fmt.Sprintf("indices of %s do not resolve", e),
		}
	}
	return st.ReferenceArray(e.Tok(), e.Array.Value, axes)
}

// collectParents lists the free variables of an expression in order of first
// appearance: every scalar or cell reference that is not fixed by data.
func (st *State) collectParents(expr ast.Expression) ([]string, *token.CompileError) {
	parents := []string{}
	seen := map[string]struct{}{}
	add := func(name string) {
		if _, ok := st.Consts[name]; ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		parents = append(parents, name)
	}

	var walk func(e ast.Expression) *token.CompileError
	walk = func(e ast.Expression) *token.CompileError {
		switch t := e.(type) {
		case *ast.Identifier:
			add(t.Value)
		case *ast.IndexExpression:
			cells, cerr := st.refCells(t)
			if cerr != nil {
				return cerr
			}
			for _, cell := range cells {
				add(cell.Name)
			}
		case *ast.PrefixExpression:
			return walk(t.Right)
		case *ast.InfixExpression:
			if err := walk(t.Left); err != nil {
				return err
			}
			return walk(t.Right)
		case *ast.CallExpression:
			for _, a := range t.Arguments {
				if err := walk(a); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(expr); err != nil {
		return nil, err
	}
	return parents, nil
}
