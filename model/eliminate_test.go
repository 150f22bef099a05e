package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestEliminateLatentNormal(t *testing.T) {
	m := New()
	_, err := m.AddStochasticVertex("x", normalFactory(2, 1))
	require.NoError(t, err)

	marg, err := m.Eliminate("x")
	require.NoError(t, err)
	require.Equal(t, "x", marg.Var)
	require.Equal(t, 2.0, marg.Dist.Mean())
	require.InDelta(t, 1/math.Sqrt(2*math.Pi), marg.Density, 1e-12)
}

func TestEliminateObserved(t *testing.T) {
	m := New()
	_, err := m.AddStochasticVertex("x", normalFactory(2, 1))
	require.NoError(t, err)
	require.NoError(t, m.ConditionInPlace(map[string]float64{"x": 1.5}))

	marg, err := m.Eliminate("x")
	require.NoError(t, err)
	require.Equal(t, 1.5, marg.Dist.Mean())
	require.Equal(t, 1.0, marg.Density)
}

func TestEliminateDeterministic(t *testing.T) {
	m := New()
	x, err := m.AddStochasticVertex("x", normalFactory(2, 1))
	require.NoError(t, err)
	y, err := m.AddDeterministicVertex("y", func(env map[string]float64) (float64, error) {
		return env["x"] * 2, nil
	})
	require.NoError(t, err)
	require.NoError(t, m.AddEdge(x, y))

	marg, err := m.Eliminate("y")
	require.NoError(t, err)
	require.Equal(t, 4.0, marg.Dist.Mean())
	require.Equal(t, 1.0, marg.Density)
}

func TestEliminateChainUsesParentValues(t *testing.T) {
	m := New()
	x, err := m.AddStochasticVertex("x", normalFactory(2, 1))
	require.NoError(t, err)
	y, err := m.AddStochasticVertex("y", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["x"], Sigma: 0.5}, nil
	})
	require.NoError(t, err)
	require.NoError(t, m.AddEdge(x, y))

	marg, err := m.Eliminate("y")
	require.NoError(t, err)
	require.Equal(t, 2.0, marg.Dist.Mean())
	// Marginalizing the latent parent widens the child.
	n, ok := marg.Dist.(distuv.Normal)
	require.True(t, ok)
	require.InDelta(t, math.Sqrt(1.25), n.Sigma, 1e-9)

	// Conditioning the parent changes the instantiated distribution.
	m2, err := m.Condition(map[string]float64{"x": -1})
	require.NoError(t, err)
	marg, err = m2.Eliminate("y")
	require.NoError(t, err)
	require.Equal(t, -1.0, marg.Dist.Mean())
}

func TestEliminateEvidenceUpdatesParent(t *testing.T) {
	m := New()
	x, err := m.AddStochasticVertex("x", normalFactory(0, 1))
	require.NoError(t, err)
	y, err := m.AddStochasticVertex("y", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["x"], Sigma: 1}, nil
	})
	require.NoError(t, err)
	require.NoError(t, m.AddEdge(x, y))

	m2, err := m.Condition(map[string]float64{"y": 10})
	require.NoError(t, err)
	marg, err := m2.Eliminate("x")
	require.NoError(t, err)
	n, ok := marg.Dist.(distuv.Normal)
	require.True(t, ok)
	require.InDelta(t, 5.0, n.Mu, 1e-9)
	require.InDelta(t, 1/math.Sqrt(2), n.Sigma, 1e-9)

	// The unconditioned model keeps the prior marginal.
	marg, err = m.Eliminate("x")
	require.NoError(t, err)
	require.Equal(t, 0.0, marg.Dist.Mean())
}

func TestEliminateEvidenceThroughChain(t *testing.T) {
	// z observed two hops below x; the likelihood reaches x through y.
	m := New()
	x, _ := m.AddStochasticVertex("x", normalFactory(0, 1))
	y, _ := m.AddStochasticVertex("y", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["x"], Sigma: 1}, nil
	})
	z, _ := m.AddStochasticVertex("z", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["y"], Sigma: 1}, nil
	})
	require.NoError(t, m.AddEdge(x, y))
	require.NoError(t, m.AddEdge(y, z))
	require.NoError(t, m.ConditionInPlace(map[string]float64{"z": 10}))

	marg, err := m.Eliminate("x")
	require.NoError(t, err)
	n, ok := marg.Dist.(distuv.Normal)
	require.True(t, ok)
	require.InDelta(t, 10.0/3, n.Mu, 1e-9)
	require.InDelta(t, math.Sqrt(2.0/3), n.Sigma, 1e-9)
}

func TestEliminateEvidenceThroughDeterministic(t *testing.T) {
	// y depends on x through a deterministic doubling.
	m := New()
	x, _ := m.AddStochasticVertex("x", normalFactory(0, 1))
	d, _ := m.AddDeterministicVertex("d", func(env map[string]float64) (float64, error) {
		return 2 * env["x"], nil
	})
	y, _ := m.AddStochasticVertex("y", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["d"], Sigma: 1}, nil
	})
	require.NoError(t, m.AddEdge(x, d))
	require.NoError(t, m.AddEdge(d, y))
	require.NoError(t, m.ConditionInPlace(map[string]float64{"y": 10}))

	marg, err := m.Eliminate("x")
	require.NoError(t, err)
	n, ok := marg.Dist.(distuv.Normal)
	require.True(t, ok)
	require.InDelta(t, 4.0, n.Mu, 1e-9)
	require.InDelta(t, 1/math.Sqrt(5), n.Sigma, 1e-9)
}

func TestEliminateCategoricalEvidence(t *testing.T) {
	m := New()
	k, _ := m.AddStochasticVertex("k", func(map[string]float64) (Dist, error) {
		return newCategorical([]float64{0.5, 0.5}), nil
	})
	c, _ := m.AddStochasticVertex("c", func(env map[string]float64) (Dist, error) {
		if env["k"] == 1 {
			return newCategorical([]float64{0.9, 0.1}), nil
		}
		return newCategorical([]float64{0.1, 0.9}), nil
	})
	require.NoError(t, m.AddEdge(k, c))
	require.NoError(t, m.ConditionInPlace(map[string]float64{"c": 1}))

	marg, err := m.Eliminate("k")
	require.NoError(t, err)
	cd, ok := marg.Dist.(categoricalDist)
	require.True(t, ok)
	require.InDelta(t, 0.9, cd.Prob(1), 1e-9)
	require.InDelta(t, 0.1, cd.Prob(2), 1e-9)
}

func TestEliminateTwoLatentParents(t *testing.T) {
	m := New()
	a, _ := m.AddStochasticVertex("a", normalFactory(0, 1))
	b, _ := m.AddStochasticVertex("b", normalFactory(0, 1))
	z, _ := m.AddStochasticVertex("z", func(env map[string]float64) (Dist, error) {
		return distuv.Normal{Mu: env["a"] + env["b"], Sigma: 1}, nil
	})
	require.NoError(t, m.AddEdge(a, z))
	require.NoError(t, m.AddEdge(b, z))

	_, err := m.Eliminate("a")
	require.True(t, errors.Is(err, ErrUnsupportedFamilies))
}

func TestEliminateCategorical(t *testing.T) {
	m := New()
	_, err := m.AddStochasticVertex("k", func(map[string]float64) (Dist, error) {
		return newCategorical([]float64{0.2, 0.3, 0.5}), nil
	})
	require.NoError(t, err)

	marg, err := m.Eliminate("k")
	require.NoError(t, err)
	// The density is reported at the modal category.
	require.InDelta(t, 0.5, marg.Density, 1e-12)
}

func TestEliminateUnknownVertex(t *testing.T) {
	m := New()
	_, err := m.Eliminate("nope")
	require.True(t, errors.Is(err, ErrUnknownVertex))
}

func TestEliminateCycle(t *testing.T) {
	m := New()
	x, _ := m.AddStochasticVertex("x", normalFactory(0, 1))
	y, _ := m.AddStochasticVertex("y", normalFactory(0, 1))
	require.NoError(t, m.AddEdge(x, y))
	require.NoError(t, m.AddEdge(y, x))

	_, err := m.Eliminate("x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestProductNormalNormal(t *testing.T) {
	a := newFactor("v", distuv.Normal{Mu: 0, Sigma: 1})
	b := newFactor("v", distuv.Normal{Mu: 2, Sigma: 1})

	f, err := product(a, b)
	require.NoError(t, err)
	n, ok := f.dist.(distuv.Normal)
	require.True(t, ok)
	require.InDelta(t, 1.0, n.Mu, 1e-12)
	require.InDelta(t, 1/math.Sqrt(2), n.Sigma, 1e-12)
}

func TestProductPointMassAbsorbs(t *testing.T) {
	a := newFactor("v", distuv.Normal{Mu: 0, Sigma: 1})
	b := newFactor("v", pointMass{v: 3})

	f, err := product(a, b)
	require.NoError(t, err)
	require.Equal(t, 3.0, f.dist.Mean())

	f, err = product(b, a)
	require.NoError(t, err)
	require.Equal(t, 3.0, f.dist.Mean())
}

func TestProductCategorical(t *testing.T) {
	a := newFactor("v", newCategorical([]float64{0.5, 0.5}))
	b := newFactor("v", newCategorical([]float64{0.2, 0.8}))

	f, err := product(a, b)
	require.NoError(t, err)
	c, ok := f.dist.(categoricalDist)
	require.True(t, ok)
	require.InDelta(t, 0.2, c.Prob(1), 1e-12)
	require.InDelta(t, 0.8, c.Prob(2), 1e-12)
}

func TestProductCategoricalSupportMismatch(t *testing.T) {
	a := newFactor("v", newCategorical([]float64{0.5, 0.5}))
	b := newFactor("v", newCategorical([]float64{0.2, 0.3, 0.5}))

	_, err := product(a, b)
	require.True(t, errors.Is(err, ErrUnsupportedFamilies))
}

func TestProductUnsupportedFamilies(t *testing.T) {
	a := newFactor("v", distuv.Normal{Mu: 0, Sigma: 1})
	b := newFactor("v", newCategorical([]float64{0.5, 0.5}))

	_, err := product(a, b)
	require.True(t, errors.Is(err, ErrUnsupportedFamilies))
	require.Contains(t, err.Error(), "gaussian")
	require.Contains(t, err.Error(), "categorical")
}

func TestPointMass(t *testing.T) {
	p := pointMass{v: 2}
	require.Equal(t, 2.0, p.Mean())
	require.Equal(t, 2.0, p.Rand())
	require.Equal(t, 1.0, p.CDF(2))
	require.Equal(t, 0.0, p.CDF(1.9))
	require.Equal(t, 0.0, p.LogProb(2))
	require.True(t, math.IsInf(p.LogProb(1), -1))
}
