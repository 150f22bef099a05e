package compiler

import (
	"testing"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
	"github.com/stretchr/testify/require"
)

func TestPartialEvalFoldsConstants(t *testing.T) {
	st := NewState()
	st.Consts["a"] = 2

	// (a + 3) * 2
	v, ok, err := st.ResolveNum(infix(infix(ident("a"), "+", num(3)), "*", num(2)))
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 10.0, v)
}

func TestPartialEvalSubstitutesLogicalRules(t *testing.T) {
	st := NewState()
	st.Consts["x"] = 4
	require.Nil(t, st.DefineLogical(Scalar("y"), token.Token{}, infix(num(2), "*", ident("x"))))

	v, ok, err := st.ResolveNum(ident("y"))
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 8.0, v)
}

func TestPartialEvalResolvesDataCells(t *testing.T) {
	st := NewState()
	require.Nil(t, st.SeedData(map[string]DataValue{
		"x": {Dims: []int{2}, Cells: []*float64{fptr(5), nil}},
	}))

	v, ok, err := st.ResolveNum(idx("x", num(1)))
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 5.0, v)

	// The missing cell stays symbolic.
	_, ok, err = st.ResolveNum(idx("x", num(2)))
	require.Nil(t, err)
	require.False(t, ok)
}

func TestPartialEvalIndexThroughLoopConstant(t *testing.T) {
	st := NewState()
	st.Consts["k"] = 2
	e, err := st.PartialEval(idx("mu", ident("k")))
	require.Nil(t, err)
	id, ok := e.(*ast.Identifier)
	require.True(t, ok, "expected a cell identifier, got %T", e)
	require.Equal(t, "mu[2]", id.Value)
}

func TestPartialEvalSelfReferenceTerminates(t *testing.T) {
	st := NewState()
	require.Nil(t, st.DefineLogical(Scalar("x"), token.Token{}, infix(ident("x"), "+", num(1))))

	_, ok, err := st.ResolveNum(ident("x"))
	require.Nil(t, err)
	if ok {
		t.Error("self-referential rule must not resolve to a number")
	}
}

func TestResolveInt(t *testing.T) {
	st := NewState()

	n, ok, exact, err := st.ResolveInt(num(3))
	require.Nil(t, err)
	require.True(t, ok)
	require.True(t, exact)
	require.Equal(t, int64(3), n)

	_, ok, exact, err = st.ResolveInt(flt(2.5))
	require.Nil(t, err)
	require.True(t, ok)
	require.False(t, exact)

	_, ok, _, err = st.ResolveInt(ident("unbound"))
	require.Nil(t, err)
	require.False(t, ok)
}

func TestFoldComparisons(t *testing.T) {
	st := NewState()

	v, ok, err := st.ResolveBool(infix(num(2), "<", num(3)))
	require.Nil(t, err)
	require.True(t, ok)
	require.True(t, v)

	v, ok, err = st.ResolveBool(infix(num(2), "==", num(3)))
	require.Nil(t, err)
	require.True(t, ok)
	require.False(t, v)
}

func TestDivisionByZeroStaysUnfolded(t *testing.T) {
	st := NewState()
	_, ok, err := st.ResolveNum(infix(num(1), "/", num(0)))
	require.Nil(t, err)
	require.False(t, ok)
}

func TestPartialEvalFoldsBuiltins(t *testing.T) {
	st := NewState()
	v, ok, err := st.ResolveNum(call("max", num(3), num(7)))
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 7.0, v)
}

func TestLHSSymbolicScalar(t *testing.T) {
	st := NewState()
	sym, resolved, err := st.LHSSymbolic(ident("alpha"))
	require.Nil(t, err)
	require.True(t, resolved)
	require.Equal(t, ScalarSym, sym.Kind)
	require.Equal(t, "alpha", sym.Name)
}

func TestLHSSymbolicCell(t *testing.T) {
	st := NewState()
	sym, resolved, err := st.LHSSymbolic(idx("mu", num(2)))
	require.Nil(t, err)
	require.True(t, resolved)
	require.Equal(t, CellSym, sym.Kind)
	require.Equal(t, "mu[2]", sym.Name)
}

func TestLHSSymbolicArrayNameRejected(t *testing.T) {
	st := NewState()
	_, err := st.ReferenceArray(token.Token{}, "y", []AxisRef{{Lo: 3, Hi: 3}})
	require.Nil(t, err)

	_, _, cerr := st.LHSSymbolic(ident("y"))
	require.NotNil(t, cerr)
	require.Contains(t, cerr.Msg, "must be indexed")
}

func TestLHSSymbolicSliceRejected(t *testing.T) {
	st := NewState()
	_, _, err := st.LHSSymbolic(idx("y", rng(num(1), num(3))))
	require.NotNil(t, err)
	require.Contains(t, err.Msg, "fully-indexed")
}

func TestLHSSymbolicUnresolvedIndexDefers(t *testing.T) {
	st := NewState()
	_, resolved, err := st.LHSSymbolic(idx("mu", ident("i")))
	require.Nil(t, err)
	require.False(t, resolved)
}

func TestNonPositiveIndexIsFatal(t *testing.T) {
	st := NewState()
	_, err := st.PartialEval(idx("x", num(0)))
	require.NotNil(t, err)
	require.Contains(t, err.Msg, "index must be positive")
}

func TestNonIntegerIndexIsFatal(t *testing.T) {
	st := NewState()
	_, err := st.PartialEval(idx("x", flt(1.5)))
	require.NotNil(t, err)
	require.Contains(t, err.Msg, "index must be an integer")
}

func TestNestedIndexingIsFatal(t *testing.T) {
	st := NewState()
	_, err := st.PartialEval(idx("x", idx("k", num(1))))
	require.NotNil(t, err)
	require.Contains(t, err.Msg, "nested indexing")
}
