package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

type family int

const (
	gaussianFam family = iota
	categoricalFam
	pointFam
	condFam
	otherFam
)

func (f family) String() string {
	switch f {
	case gaussianFam:
		return "gaussian"
	case categoricalFam:
		return "categorical"
	case pointFam:
		return "point-mass"
	case condFam:
		return "conditional"
	}
	return "unsupported"
}

// factor is one unit of the variable-elimination computation. A concrete
// factor is a distribution over a single variable. A conditional factor
// ranges over a child and one latent parent; at instantiates the child's
// distribution for a given parent value. The closed forms are exact only
// for the gaussian and categorical families (and the degenerate point mass
// used for evidence).
type factor struct {
	about  string
	fam    family
	dist   Dist
	parent string
	at     func(parent float64) (Dist, error)
}

func newFactor(about string, d Dist) *factor {
	return &factor{about: about, fam: classify(d), dist: d}
}

func newCondFactor(about, parent string, at func(float64) (Dist, error)) *factor {
	return &factor{about: about, fam: condFam, parent: parent, at: at}
}

// parentShape is what the conditional-factor operations need to know about
// the parent variable: its family, and its support size when categorical.
type parentShape struct {
	fam  family
	cats int
}

func classify(d Dist) family {
	switch d.(type) {
	case distuv.Normal:
		return gaussianFam
	case pointMass:
		return pointFam
	}
	if _, ok := d.(categoricalDist); ok {
		return categoricalFam
	}
	return otherFam
}

// categoricalDist is the shape shared by every 1-based categorical
// distribution the model can meet, regardless of which package built it.
type categoricalDist interface {
	NumCat() int
	Prob(x float64) float64
}

// pointMass is the degenerate factor standing in for observed evidence.
type pointMass struct {
	v float64
}

func (p pointMass) Mean() float64 { return p.v }
func (p pointMass) Rand() float64 { return p.v }

func (p pointMass) CDF(x float64) float64 {
	if x >= p.v {
		return 1
	}
	return 0
}

func (p pointMass) LogProb(x float64) float64 {
	if x == p.v {
		return 0
	}
	return math.Inf(-1)
}

// categorical is the model's own 1..K categorical, produced by factor
// products.
type categorical struct {
	c distuv.Categorical
	w []float64
}

func newCategorical(weights []float64) categorical {
	return categorical{
		c: distuv.NewCategorical(weights, nil),
		w: append([]float64{}, weights...),
	}
}

func (c categorical) NumCat() int               { return len(c.w) }
func (c categorical) Mean() float64             { return c.c.Mean() + 1 }
func (c categorical) Rand() float64             { return c.c.Rand() + 1 }
func (c categorical) LogProb(x float64) float64 { return c.c.LogProb(x - 1) }
func (c categorical) Prob(x float64) float64    { return math.Exp(c.LogProb(x)) }

func (c categorical) CDF(x float64) float64 {
	sum := 0.0
	for i := range c.w {
		if float64(i+1) > x {
			break
		}
		sum += c.c.Prob(float64(i))
	}
	return sum
}

// product multiplies two concrete factors over the same variable. Only
// gaussian-gaussian and categorical-categorical products have closed forms;
// a point mass absorbs anything.
func product(a, b *factor) (*factor, error) {
	if a.fam == pointFam && b.fam == pointFam {
		if a.dist.(pointMass).v != b.dist.(pointMass).v {
			return nil, fmt.Errorf("contradictory evidence over %s", a.about)
		}
		return a, nil
	}
	if a.fam == pointFam {
		return a, nil
	}
	if b.fam == pointFam {
		return b, nil
	}
	if a.fam == gaussianFam && b.fam == gaussianFam {
		na := a.dist.(distuv.Normal)
		nb := b.dist.(distuv.Normal)
		tauA := 1 / (na.Sigma * na.Sigma)
		tauB := 1 / (nb.Sigma * nb.Sigma)
		tau := tauA + tauB
		mu := (tauA*na.Mu + tauB*nb.Mu) / tau
		return newFactor(a.about, distuv.Normal{Mu: mu, Sigma: 1 / math.Sqrt(tau)}), nil
	}
	if a.fam == categoricalFam && b.fam == categoricalFam {
		ca := a.dist.(categoricalDist)
		cb := b.dist.(categoricalDist)
		if ca.NumCat() != cb.NumCat() {
			return nil, fmt.Errorf("%w: categorical supports differ (%d vs %d)", ErrUnsupportedFamilies, ca.NumCat(), cb.NumCat())
		}
		w := make([]float64, ca.NumCat())
		total := 0.0
		for i := range w {
			x := float64(i + 1)
			w[i] = ca.Prob(x) * cb.Prob(x)
			total += w[i]
		}
		if total == 0 {
			return nil, fmt.Errorf("contradictory categorical factors over %s", a.about)
		}
		return newFactor(a.about, newCategorical(w)), nil
	}
	return nil, fmt.Errorf("%w: %s and %s over %s", ErrUnsupportedFamilies, a.fam, b.fam, a.about)
}

func approxEqual(x, y float64) bool {
	return math.Abs(x-y) <= 1e-9*math.Max(1, math.Max(math.Abs(x), math.Abs(y)))
}

// linearGaussian probes a conditional factor at three parent values and
// checks the child is gaussian with a mean linear in the parent and a
// constant scale, returning the intercept, slope and scale.
func (f *factor) linearGaussian() (a, b, sigma float64, err error) {
	var mu [3]float64
	for i := 0; i < 3; i++ {
		d, derr := f.at(float64(i))
		if derr != nil {
			return 0, 0, 0, derr
		}
		n, ok := d.(distuv.Normal)
		if !ok {
			return 0, 0, 0, fmt.Errorf("%w: %s is not gaussian given %s", ErrUnsupportedFamilies, f.about, f.parent)
		}
		mu[i] = n.Mu
		if i == 0 {
			sigma = n.Sigma
			continue
		}
		if !approxEqual(sigma, d.(distuv.Normal).Sigma) {
			return 0, 0, 0, fmt.Errorf("%w: scale of %s varies with %s", ErrUnsupportedFamilies, f.about, f.parent)
		}
	}
	if !approxEqual(mu[2]-mu[1], mu[1]-mu[0]) {
		return 0, 0, 0, fmt.Errorf("%w: mean of %s is not linear in %s", ErrUnsupportedFamilies, f.about, f.parent)
	}
	return mu[0], mu[1] - mu[0], sigma, nil
}

// restrictParent pins the conditional factor's parent to a known value,
// yielding a concrete factor over the child.
func (f *factor) restrictParent(v float64) (*factor, error) {
	d, err := f.at(v)
	if err != nil {
		return nil, err
	}
	return newFactor(f.about, d), nil
}

// collapseChild integrates the conditional factor's child against a concrete
// factor over it, yielding the message the child sends to the parent. A
// gaussian child whose mean does not depend on the parent carries no
// information about it; that case returns nil.
func (f *factor) collapseChild(u *factor, ps parentShape) (*factor, error) {
	switch ps.fam {
	case gaussianFam:
		a, b, sigma, err := f.linearGaussian()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, nil
		}
		switch u.fam {
		case pointFam:
			v := u.dist.(pointMass).v
			return newFactor(f.parent, distuv.Normal{Mu: (v - a) / b, Sigma: sigma / math.Abs(b)}), nil
		case gaussianFam:
			n := u.dist.(distuv.Normal)
			s := math.Sqrt(sigma*sigma + n.Sigma*n.Sigma)
			return newFactor(f.parent, distuv.Normal{Mu: (n.Mu - a) / b, Sigma: s / math.Abs(b)}), nil
		}
	case categoricalFam:
		w := make([]float64, ps.cats)
		total := 0.0
		for k := range w {
			d, err := f.at(float64(k + 1))
			if err != nil {
				return nil, err
			}
			switch u.fam {
			case pointFam:
				w[k] = math.Exp(d.LogProb(u.dist.(pointMass).v))
			case categoricalFam:
				c, ok := d.(categoricalDist)
				if !ok {
					return nil, fmt.Errorf("%w: %s is not categorical given %s", ErrUnsupportedFamilies, f.about, f.parent)
				}
				uc := u.dist.(categoricalDist)
				if c.NumCat() != uc.NumCat() {
					return nil, fmt.Errorf("%w: categorical supports differ (%d vs %d)", ErrUnsupportedFamilies, c.NumCat(), uc.NumCat())
				}
				for j := 1; j <= c.NumCat(); j++ {
					w[k] += c.Prob(float64(j)) * uc.Prob(float64(j))
				}
			default:
				return nil, fmt.Errorf("%w: %s evidence on %s", ErrUnsupportedFamilies, u.fam, f.about)
			}
			total += w[k]
		}
		if total == 0 {
			return nil, fmt.Errorf("contradictory evidence on %s", f.about)
		}
		return newFactor(f.parent, newCategorical(w)), nil
	}
	return nil, fmt.Errorf("%w: %s and %s over %s", ErrUnsupportedFamilies, ps.fam, u.fam, f.about)
}

// marginalizeParent integrates the conditional factor's parent against a
// concrete factor over it, yielding the child's marginal factor.
func (f *factor) marginalizeParent(u *factor) (*factor, error) {
	switch u.fam {
	case pointFam:
		return f.restrictParent(u.dist.(pointMass).v)
	case gaussianFam:
		a, b, sigma, err := f.linearGaussian()
		if err != nil {
			return nil, err
		}
		n := u.dist.(distuv.Normal)
		s := math.Sqrt(sigma*sigma + b*b*n.Sigma*n.Sigma)
		return newFactor(f.about, distuv.Normal{Mu: a + b*n.Mu, Sigma: s}), nil
	case categoricalFam:
		uc := u.dist.(categoricalDist)
		var w []float64
		for k := 1; k <= uc.NumCat(); k++ {
			d, err := f.at(float64(k))
			if err != nil {
				return nil, err
			}
			c, ok := d.(categoricalDist)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not categorical given %s", ErrUnsupportedFamilies, f.about, f.parent)
			}
			if w == nil {
				w = make([]float64, c.NumCat())
			}
			if c.NumCat() != len(w) {
				return nil, fmt.Errorf("%w: categorical supports differ (%d vs %d)", ErrUnsupportedFamilies, c.NumCat(), len(w))
			}
			for j := range w {
				w[j] += uc.Prob(float64(k)) * c.Prob(float64(j+1))
			}
		}
		return newFactor(f.about, newCategorical(w)), nil
	}
	return nil, fmt.Errorf("%w: cannot marginalize %s out of %s", ErrUnsupportedFamilies, f.parent, f.about)
}

// representative is the point at which a marginal's density is reported:
// the mean for a gaussian, the modal category for a categorical, the point
// itself for evidence.
func (f *factor) representative() float64 {
	switch f.fam {
	case categoricalFam:
		c := f.dist.(categoricalDist)
		best, bestP := 1.0, math.Inf(-1)
		for i := 0; i < c.NumCat(); i++ {
			x := float64(i + 1)
			if p := c.Prob(x); p > bestP {
				best, bestP = x, p
			}
		}
		return best
	default:
		return f.dist.Mean()
	}
}
