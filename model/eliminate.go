package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/topo"
)

// ErrUnsupportedFamilies reports a factor operation outside the closed
// gaussian-gaussian / categorical-categorical set.
var ErrUnsupportedFamilies = errors.New("unsupported distribution family combination")

// Marginal is the result of variable elimination: the query's marginal
// distribution and its density evaluated at a representative point.
type Marginal struct {
	Var     string
	Dist    Dist
	Density float64
}

// envWith walks the graph in generative order computing one value per vertex:
// an override if given, the observed value, the deterministic function
// result, or the mean of the instantiated distribution for a latent vertex.
func (m *Model) envWith(overrides map[string]float64) (map[string]float64, error) {
	order, err := topo.Sort(m.g)
	if err != nil {
		return nil, fmt.Errorf("model graph has a cycle: %w", err)
	}

	env := make(map[string]float64, len(m.names))
	for _, n := range order {
		id := int(n.ID())
		name := m.names[id]
		if v, ok := overrides[name]; ok {
			env[name] = v
			continue
		}
		if m.stochastic[id] {
			d, err := m.dists[id](env)
			if err != nil {
				return nil, fmt.Errorf("instantiate %s: %w", name, err)
			}
			if m.observed[id] {
				env[name] = m.values[id]
				continue
			}
			env[name] = d.Mean()
			continue
		}
		v, err := m.fns[id](env)
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}

// instantiate computes the generative environment plus the instantiated
// distribution of every stochastic vertex.
func (m *Model) instantiate() (map[string]float64, []Dist, error) {
	env, err := m.envWith(nil)
	if err != nil {
		return nil, nil, err
	}
	dists := make([]Dist, len(m.names))
	for i, name := range m.names {
		if !m.stochastic[i] {
			continue
		}
		d, err := m.dists[i](env)
		if err != nil {
			return nil, nil, fmt.Errorf("instantiate %s: %w", name, err)
		}
		dists[i] = d
	}
	return env, dists, nil
}

// distAt instantiates one vertex's distribution with some ancestors pinned
// to given values, recomputing every vertex downstream of the overrides.
func (m *Model) distAt(id int, overrides map[string]float64) (Dist, error) {
	env, err := m.envWith(overrides)
	if err != nil {
		return nil, err
	}
	return m.dists[id](env)
}

// latentAncestors finds the latent stochastic vertices a vertex's
// distribution depends on, looking through deterministic intermediates.
func (m *Model) latentAncestors(id int) []string {
	seen := make(map[int]bool)
	var out []string
	var walk func(v int)
	walk = func(v int) {
		for _, p := range m.Parents(v) {
			if seen[p] {
				continue
			}
			seen[p] = true
			if m.stochastic[p] {
				if !m.observed[p] {
					out = append(out, m.names[p])
				}
				continue
			}
			walk(p)
		}
	}
	walk(id)
	sort.Strings(out)
	return out
}

// Eliminate computes the query variable's marginal by variable elimination:
// one factor per stochastic vertex built from its distribution and latent
// parent, point-mass factors for evidence, then repeated closed-form
// multiply-and-marginalize of every other variable. Evidence propagates
// against the edges: restricting a conditional factor at an observed child
// yields the likelihood message over its parent. The closed forms are exact
// only within the gaussian and categorical families; any other combination
// fails with ErrUnsupportedFamilies.
func (m *Model) Eliminate(query string) (*Marginal, error) {
	id, ok := m.index[query]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVertex, query)
	}

	env, dists, err := m.instantiate()
	if err != nil {
		return nil, err
	}

	if !m.stochastic[id] {
		// A deterministic query is fully determined by the instantiation.
		f := newFactor(query, pointMass{v: env[query]})
		return &Marginal{Var: query, Dist: f.dist, Density: 1}, nil
	}

	shapes := make(map[string]parentShape)
	var factors []*factor
	for i, name := range m.names {
		if !m.stochastic[i] {
			continue
		}
		if !m.observed[i] {
			s := parentShape{fam: classify(dists[i])}
			if c, ok := dists[i].(categoricalDist); ok {
				s.cats = c.NumCat()
			}
			shapes[name] = s
		}
		anc := m.latentAncestors(i)
		switch len(anc) {
		case 0:
			factors = append(factors, newFactor(name, dists[i]))
		case 1:
			vid, par := i, anc[0]
			factors = append(factors, newCondFactor(name, par, func(pv float64) (Dist, error) {
				return m.distAt(vid, map[string]float64{par: pv})
			}))
		default:
			return nil, fmt.Errorf("%w: %s depends on more than one latent variable", ErrUnsupportedFamilies, name)
		}
		if m.observed[i] {
			factors = append(factors, newFactor(name, pointMass{v: m.values[i]}))
		}
	}

	pending := []string{}
	for i, name := range m.names {
		if m.stochastic[i] && name != query {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)

	for len(pending) > 0 {
		progress := false
		rest := pending[:0]
		for _, w := range pending {
			out, ok, err := eliminateVar(w, factors, shapes)
			if err != nil {
				return nil, err
			}
			if !ok {
				rest = append(rest, w)
				continue
			}
			factors = out
			progress = true
		}
		pending = rest
		if len(pending) > 0 && !progress {
			return nil, fmt.Errorf("%w: no elimination order for %v", ErrUnsupportedFamilies, pending)
		}
	}

	var result *factor
	for _, f := range factors {
		if f.fam == condFam || f.about != query {
			return nil, fmt.Errorf("%w: leftover factor over %s", ErrUnsupportedFamilies, f.about)
		}
		if result == nil {
			result = f
			continue
		}
		result, err = product(result, f)
		if err != nil {
			return nil, err
		}
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no factor mentions %s", ErrNotStochastic, query)
	}

	rep := result.representative()
	return &Marginal{Var: query, Dist: result.dist, Density: math.Exp(result.dist.LogProb(rep))}, nil
}

// eliminateVar removes one variable from the factor list, multiplying the
// factors that mention it and marginalizing it out. ok is false when the
// variable cannot be removed yet with the closed forms at hand; it may
// become removable once a neighbor is eliminated first.
func eliminateVar(w string, factors []*factor, shapes map[string]parentShape) ([]*factor, bool, error) {
	var rest, conds []*factor
	var own, u *factor
	var err error
	for _, f := range factors {
		switch {
		case f.about == w && f.fam == condFam:
			own = f
		case f.about == w:
			if u == nil {
				u = f
				continue
			}
			u, err = product(u, f)
			if err != nil {
				return nil, false, err
			}
		case f.fam == condFam && f.parent == w:
			conds = append(conds, f)
		default:
			rest = append(rest, f)
		}
	}

	// Evidence on w restricts every factor touching it.
	if u != nil && u.fam == pointFam {
		v := u.dist.(pointMass).v
		if own != nil {
			msg, err := own.collapseChild(u, shapes[own.parent])
			if err != nil {
				return nil, false, err
			}
			if msg != nil {
				rest = append(rest, msg)
			}
		}
		for _, cf := range conds {
			g, err := cf.restrictParent(v)
			if err != nil {
				return nil, false, err
			}
			rest = append(rest, g)
		}
		return rest, true, nil
	}

	if own != nil {
		// w's own factor still conditions on an uneliminated variable.
		if len(conds) > 0 {
			return nil, false, nil
		}
		if u == nil {
			// Integrates to one on its own.
			return rest, true, nil
		}
		msg, err := own.collapseChild(u, shapes[own.parent])
		if err != nil {
			return nil, false, err
		}
		if msg != nil {
			rest = append(rest, msg)
		}
		return rest, true, nil
	}

	switch {
	case len(conds) == 0:
		return rest, true, nil
	case u != nil && len(conds) == 1:
		g, err := conds[0].marginalizeParent(u)
		if err != nil {
			return nil, false, err
		}
		rest = append(rest, g)
		return rest, true, nil
	}
	return nil, false, nil
}
