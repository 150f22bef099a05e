package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func mustMake(t *testing.T, name string, args ...float64) Dist {
	t.Helper()
	spec, ok := LookupDist(name)
	require.True(t, ok, "distribution %s not registered", name)
	d, err := spec.Make(args)
	require.NoError(t, err)
	return d
}

func TestDnormPrecision(t *testing.T) {
	d := mustMake(t, "dnorm", 1, 4)
	n, ok := d.(distuv.Normal)
	require.True(t, ok)
	require.Equal(t, 1.0, n.Mu)
	require.InDelta(t, 0.5, n.Sigma, 1e-12)
	require.Equal(t, 1.0, d.Mean())

	spec, _ := LookupDist("dnorm")
	_, err := spec.Make([]float64{0, 0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "precision must be positive")
}

func TestDcat(t *testing.T) {
	d := mustMake(t, "dcat", 0.2, 0.3, 0.5)
	c, ok := d.(Categorical)
	require.True(t, ok)
	require.Equal(t, 3, c.NumCat())
	require.InDelta(t, 2.3, c.Mean(), 1e-12)
	require.InDelta(t, 0.5, c.CDF(2), 1e-12)
	require.InDelta(t, 1.0, c.CDF(3), 1e-12)
	require.InDelta(t, 0.3, c.Prob(2), 1e-12)

	spec, _ := LookupDist("dcat")
	_, err := spec.Make(nil)
	require.Error(t, err)
	_, err = spec.Make([]float64{0.5, -0.1})
	require.Error(t, err)
}

func TestDweibParameterization(t *testing.T) {
	d := mustMake(t, "dweib", 2, 4)
	w, ok := d.(distuv.Weibull)
	require.True(t, ok)
	require.Equal(t, 2.0, w.K)
	require.InDelta(t, 0.5, w.Lambda, 1e-12)
}

func TestDistValidation(t *testing.T) {
	cases := []struct {
		name string
		args []float64
		msg  string
	}{
		{"dbern", []float64{1.5}, "probability out of range"},
		{"dbin", []float64{0.5, 2.5}, "trial count"},
		{"dunif", []float64{3, 1}, "not below upper bound"},
		{"dbeta", []float64{0, 1}, "alpha must be positive"},
		{"dgamma", []float64{1, -2}, "rate must be positive"},
		{"dexp", []float64{0}, "rate must be positive"},
		{"dpois", []float64{-1}, "rate must be positive"},
		{"dchisqr", []float64{0}, "degrees of freedom must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, ok := LookupDist(tc.name)
			require.True(t, ok)
			_, err := spec.Make(tc.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestStatTag(t *testing.T) {
	op, dist, ok := statTag("cumulative$dnorm")
	require.True(t, ok)
	require.Equal(t, "cumulative", op)
	require.Equal(t, "dnorm", dist)

	_, _, ok = statTag("cumulative")
	require.False(t, ok)
	_, _, ok = statTag("foo$dnorm")
	require.False(t, ok)
}

func TestApplyStatTag(t *testing.T) {
	n := distuv.Normal{Mu: 0, Sigma: 1}
	require.InDelta(t, n.CDF(1), applyStatTag("cumulative", n, 1), 1e-12)
	require.InDelta(t, n.Prob(1), applyStatTag("density", n, 1), 1e-12)
	require.InDelta(t, -2*n.LogProb(1), applyStatTag("deviance", n, 1), 1e-12)
}
