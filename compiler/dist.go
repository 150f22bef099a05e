package compiler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Dist is the behavior the compiler needs from the distribution library:
// sampling, the cumulative distribution and the log density/mass.
type Dist interface {
	Mean() float64
	Rand() float64
	CDF(x float64) float64
	LogProb(x float64) float64
}

// DistSpec is one entry of the closed distribution table: the recognized
// name, its arity, and the factory from resolved argument values to a
// concrete distribution object. Variadic families (dcat) take their whole
// argument list as the parameter vector.
type DistSpec struct {
	Name     string
	Arity    int
	Variadic bool
	Make     func(args []float64) (Dist, error)
}

// Categorical is distuv's categorical shifted to the 1..K support used by
// dcat, with a CDF added.
type Categorical struct {
	c distuv.Categorical
	k int
}

func NewCategorical(weights []float64) Categorical {
	return Categorical{c: distuv.NewCategorical(weights, nil), k: len(weights)}
}

func (c Categorical) NumCat() int               { return c.k }
func (c Categorical) Mean() float64             { return c.c.Mean() + 1 }
func (c Categorical) Rand() float64             { return c.c.Rand() + 1 }
func (c Categorical) LogProb(x float64) float64 { return c.c.LogProb(x - 1) }
func (c Categorical) Prob(x float64) float64    { return math.Exp(c.LogProb(x)) }

func (c Categorical) CDF(x float64) float64 {
	sum := 0.0
	for i := 0; i < c.k; i++ {
		if float64(i+1) > x {
			break
		}
		sum += c.c.Prob(float64(i))
	}
	return sum
}

var defaultDists = map[string]DistSpec{}

func registerDist(spec DistSpec) {
	defaultDists[spec.Name] = spec
}

// LookupDist finds a distribution family in the closed table.
func LookupDist(name string) (DistSpec, bool) {
	spec, ok := defaultDists[name]
	return spec, ok
}

func precisionSigma(name string, tau float64) (float64, error) {
	if tau <= 0 {
		return 0, fmt.Errorf("%s: precision must be positive, got %g", name, tau)
	}
	return 1 / math.Sqrt(tau), nil
}

func positive(name, param string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%s: %s must be positive, got %g", name, param, v)
	}
	return nil
}

func init() {
	registerDist(DistSpec{Name: "dnorm", Arity: 2, Make: func(a []float64) (Dist, error) {
		sigma, err := precisionSigma("dnorm", a[1])
		if err != nil {
			return nil, err
		}
		return distuv.Normal{Mu: a[0], Sigma: sigma}, nil
	}})
	registerDist(DistSpec{Name: "dlnorm", Arity: 2, Make: func(a []float64) (Dist, error) {
		sigma, err := precisionSigma("dlnorm", a[1])
		if err != nil {
			return nil, err
		}
		return distuv.LogNormal{Mu: a[0], Sigma: sigma}, nil
	}})
	registerDist(DistSpec{Name: "dbern", Arity: 1, Make: func(a []float64) (Dist, error) {
		if a[0] < 0 || a[0] > 1 {
			return nil, fmt.Errorf("dbern: probability out of range: %g", a[0])
		}
		return distuv.Bernoulli{P: a[0]}, nil
	}})
	registerDist(DistSpec{Name: "dbin", Arity: 2, Make: func(a []float64) (Dist, error) {
		if a[0] < 0 || a[0] > 1 {
			return nil, fmt.Errorf("dbin: probability out of range: %g", a[0])
		}
		if a[1] < 0 || a[1] != math.Trunc(a[1]) {
			return nil, fmt.Errorf("dbin: trial count must be a non-negative integer, got %g", a[1])
		}
		return distuv.Binomial{N: a[1], P: a[0]}, nil
	}})
	registerDist(DistSpec{Name: "dpois", Arity: 1, Make: func(a []float64) (Dist, error) {
		if err := positive("dpois", "rate", a[0]); err != nil {
			return nil, err
		}
		return distuv.Poisson{Lambda: a[0]}, nil
	}})
	registerDist(DistSpec{Name: "dunif", Arity: 2, Make: func(a []float64) (Dist, error) {
		if a[0] >= a[1] {
			return nil, fmt.Errorf("dunif: lower bound %g is not below upper bound %g", a[0], a[1])
		}
		return distuv.Uniform{Min: a[0], Max: a[1]}, nil
	}})
	registerDist(DistSpec{Name: "dbeta", Arity: 2, Make: func(a []float64) (Dist, error) {
		if err := positive("dbeta", "alpha", a[0]); err != nil {
			return nil, err
		}
		if err := positive("dbeta", "beta", a[1]); err != nil {
			return nil, err
		}
		return distuv.Beta{Alpha: a[0], Beta: a[1]}, nil
	}})
	registerDist(DistSpec{Name: "dgamma", Arity: 2, Make: func(a []float64) (Dist, error) {
		if err := positive("dgamma", "shape", a[0]); err != nil {
			return nil, err
		}
		if err := positive("dgamma", "rate", a[1]); err != nil {
			return nil, err
		}
		return distuv.Gamma{Alpha: a[0], Beta: a[1]}, nil
	}})
	registerDist(DistSpec{Name: "dexp", Arity: 1, Make: func(a []float64) (Dist, error) {
		if err := positive("dexp", "rate", a[0]); err != nil {
			return nil, err
		}
		return distuv.Exponential{Rate: a[0]}, nil
	}})
	registerDist(DistSpec{Name: "dchisqr", Arity: 1, Make: func(a []float64) (Dist, error) {
		if err := positive("dchisqr", "degrees of freedom", a[0]); err != nil {
			return nil, err
		}
		return distuv.ChiSquared{K: a[0]}, nil
	}})
	registerDist(DistSpec{Name: "dt", Arity: 3, Make: func(a []float64) (Dist, error) {
		sigma, err := precisionSigma("dt", a[1])
		if err != nil {
			return nil, err
		}
		if err := positive("dt", "degrees of freedom", a[2]); err != nil {
			return nil, err
		}
		return distuv.StudentsT{Mu: a[0], Sigma: sigma, Nu: a[2]}, nil
	}})
	registerDist(DistSpec{Name: "dweib", Arity: 2, Make: func(a []float64) (Dist, error) {
		if err := positive("dweib", "shape", a[0]); err != nil {
			return nil, err
		}
		if err := positive("dweib", "rate", a[1]); err != nil {
			return nil, err
		}
		// BUGS parameterizes by v, lambda; distuv by shape and scale.
		return distuv.Weibull{K: a[0], Lambda: math.Pow(a[1], -1/a[0])}, nil
	}})
	registerDist(DistSpec{Name: "dcat", Arity: 1, Variadic: true, Make: func(a []float64) (Dist, error) {
		if len(a) == 0 {
			return nil, fmt.Errorf("dcat: empty weight vector")
		}
		for _, w := range a {
			if w < 0 {
				return nil, fmt.Errorf("dcat: negative weight %g", w)
			}
		}
		return NewCategorical(append([]float64{}, a...)), nil
	}})
}
