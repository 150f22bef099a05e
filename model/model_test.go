package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func normalFactory(mu, sigma float64) DistFactory {
	return func(map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: mu, Sigma: sigma}, nil
	}
}

func TestAddVertexAndLookup(t *testing.T) {
	m := New()
	a, err := m.AddStochasticVertex("a", normalFactory(0, 1))
	require.NoError(t, err)
	b, err := m.AddDeterministicVertex("b", func(env map[string]float64) (float64, error) {
		return env["a"] * 2, nil
	})
	require.NoError(t, err)

	require.Equal(t, 2, m.Len())
	require.Equal(t, "a", m.Name(a))
	require.True(t, m.IsStochastic(a))
	require.False(t, m.IsStochastic(b))

	id, ok := m.Lookup("b")
	require.True(t, ok)
	require.Equal(t, b, id)
	_, ok = m.Lookup("missing")
	require.False(t, ok)
}

func TestAddVertexDuplicate(t *testing.T) {
	m := New()
	_, err := m.AddStochasticVertex("a", normalFactory(0, 1))
	require.NoError(t, err)
	_, err = m.AddStochasticVertex("a", normalFactory(0, 1))
	require.True(t, errors.Is(err, ErrDuplicateVertex))
}

func TestAddEdgeValidation(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))
	b, _ := m.AddStochasticVertex("b", normalFactory(0, 1))

	require.NoError(t, m.AddEdge(a, b))
	require.Equal(t, 1, m.NumEdges())

	err := m.AddEdge(a, 99)
	require.True(t, errors.Is(err, ErrUnknownVertex))
	err = m.AddEdge(a, a)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot depend on itself")
}

func TestParentsChildren(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))
	b, _ := m.AddStochasticVertex("b", normalFactory(0, 1))
	c, _ := m.AddStochasticVertex("c", normalFactory(0, 1))
	require.NoError(t, m.AddEdge(a, c))
	require.NoError(t, m.AddEdge(b, c))

	require.Equal(t, []int{a, b}, m.Parents(c))
	require.Equal(t, []int{c}, m.Children(a))
	require.Empty(t, m.Parents(a))
}

func TestConditionReturnsCopy(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))
	b, _ := m.AddStochasticVertex("b", normalFactory(0, 1))
	require.NoError(t, m.AddEdge(a, b))

	m2, err := m.Condition(map[string]float64{"a": 1.5})
	require.NoError(t, err)

	require.True(t, m2.IsObserved(a))
	require.Equal(t, 1.5, m2.Value(a))
	require.False(t, m.IsObserved(a), "receiver must be untouched")
	require.Equal(t, m.NumEdges(), m2.NumEdges())
}

func TestConditionNotStochastic(t *testing.T) {
	m := New()
	_, _ = m.AddDeterministicVertex("d", func(map[string]float64) (float64, error) { return 1, nil })
	_, err := m.Condition(map[string]float64{"d": 2})
	require.True(t, errors.Is(err, ErrNotStochastic))
}

func TestConditionUnknown(t *testing.T) {
	m := New()
	_, err := m.Condition(map[string]float64{"nope": 2})
	require.True(t, errors.Is(err, ErrUnknownVertex))
}

func TestConditionOverwriteNotice(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))

	require.NoError(t, m.ConditionInPlace(map[string]float64{"a": 1}))
	require.Empty(t, m.Notices)

	require.NoError(t, m.ConditionInPlace(map[string]float64{"a": 2}))
	require.Equal(t, 2.0, m.Value(a))
	require.Len(t, m.Notices, 1)
	require.Contains(t, m.Notices[0], "already observed")
}

func TestDeconditionRoundtrip(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))

	m2, err := m.Condition(map[string]float64{"a": 3})
	require.NoError(t, err)
	m3, err := m2.Decondition([]string{"a"})
	require.NoError(t, err)

	require.False(t, m3.IsObserved(a))
	require.Equal(t, 0.0, m3.Value(a))
	require.True(t, m2.IsObserved(a), "receiver must be untouched")
	require.Equal(t, m.NumEdges(), m3.NumEdges())
}

func TestDeconditionNotObserved(t *testing.T) {
	m := New()
	_, _ = m.AddStochasticVertex("a", normalFactory(0, 1))
	_, err := m.Decondition([]string{"a"})
	require.True(t, errors.Is(err, ErrNotObserved))

	_, err = m.Decondition([]string{"nope"})
	require.True(t, errors.Is(err, ErrUnknownVertex))
}
