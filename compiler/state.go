package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// LogicalRule is a deterministic equation: LHS equals Expr, an expression
// over other symbolic variables and literals.
type LogicalRule struct {
	LHS  *Symbolic
	Tok  token.Token
	Expr ast.Expression
}

// StochasticRule declares LHS as a draw from a named distribution.
type StochasticRule struct {
	LHS  *Symbolic
	Tok  token.Token
	Call *ast.CallExpression
	Spec DistSpec
}

// DataValue is one entry of the input data binding: either a scalar or a
// possibly-partial multidimensional array whose missing cells are nil.
type DataValue struct {
	Scalar *float64
	Dims   []int
	Cells  []*float64 // row-major; nil means missing
}

// State is the mutable store accumulated during one compilation: the array
// registry, the data-implied constants, and the logical and stochastic rule
// maps keyed by the left-hand symbolic's name. It is exclusively owned by the
// compilation that created it.
type State struct {
	Arrays     map[string]*SymArray
	Consts     map[string]float64
	Logical    map[string]*LogicalRule
	Stochastic map[string]*StochasticRule
}

func NewState() *State {
	return &State{
		Arrays:     make(map[string]*SymArray),
		Consts:     make(map[string]float64),
		Logical:    make(map[string]*LogicalRule),
		Stochastic: make(map[string]*StochasticRule),
	}
}

// SeedData loads the data binding: scalars become constants, arrays are
// allocated at their data-implied extents with each present cell bound as a
// constant. Missing cells stay unbound.
func (st *State) SeedData(data map[string]DataValue) *token.CompileError {
	for name, dv := range data {
		if dv.Scalar != nil {
			st.Consts[name] = *dv.Scalar
			continue
		}
		if _, ok := st.Arrays[name]; ok {
			return &token.CompileError{
				Msg: fmt.Sprintf("data value %s seeded twice", name),
			}
		}
		arr := newSymArray(name, dv.Dims)
		if len(dv.Cells) != arr.size() {
			return &token.CompileError{
				Msg: fmt.Sprintf("data array %s has %d cells, dims imply %d", name, len(dv.Cells), arr.size()),
			}
		}
		st.Arrays[name] = arr
		for off, cell := range dv.Cells {
			if cell == nil {
				continue
			}
			st.Consts[arr.Cells[off].Name] = *cell
		}
	}
	return nil
}

// DefineLogical records lhs = expr. Redefining with an identical expression
// is a silent no-op; any other redefinition, or a clash with a stochastic
// rule or a data constant, is fatal.
func (st *State) DefineLogical(lhs *Symbolic, tok token.Token, expr ast.Expression) *token.CompileError {
	if _, ok := st.Consts[lhs.Name]; ok {
		return &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("%s is fixed by data and cannot be assigned", lhs.Name),
		}
	}
	if _, ok := st.Stochastic[lhs.Name]; ok {
		return &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("%s already has a stochastic definition", lhs.Name),
		}
	}
	if prev, ok := st.Logical[lhs.Name]; ok {
		if prev.Expr.String() == expr.String() {
			return nil
		}
		return &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("%s redefined: was %s, now %s", lhs.Name, prev.Expr, expr),
		}
	}
	st.Logical[lhs.Name] = &LogicalRule{LHS: lhs, Tok: tok, Expr: expr}
	return nil
}

// DefineStochastic records lhs ~ call. The distribution name must be in the
// closed table. Redefinition follows the same rules as DefineLogical, except
// that a data constant for lhs is allowed: it makes the node an observation.
func (st *State) DefineStochastic(lhs *Symbolic, tok token.Token, call *ast.CallExpression) *token.CompileError {
	spec, ok := LookupDist(call.Function.Value)
	if !ok {
		return &token.CompileError{
			Token: call.Tok(),
			Msg:   fmt.Sprintf("unknown distribution: %s", call.Function.Value),
		}
	}
	if !spec.Variadic && len(call.Arguments) != spec.Arity {
		return &token.CompileError{
			Token: call.Tok(),
			Msg:   fmt.Sprintf("%s expects %d arguments, got %d", spec.Name, spec.Arity, len(call.Arguments)),
		}
	}
	if _, ok := st.Logical[lhs.Name]; ok {
		return &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("%s already has a logical definition", lhs.Name),
		}
	}
	if prev, ok := st.Stochastic[lhs.Name]; ok {
		if prev.Call.String() == call.String() {
			return nil
		}
		return &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("%s redefined: was %s, now %s", lhs.Name, prev.Call, call),
		}
	}
	st.Stochastic[lhs.Name] = &StochasticRule{LHS: lhs, Tok: tok, Call: call, Spec: spec}
	return nil
}
