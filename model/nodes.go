package model

import (
	"fmt"
	"sort"

	"github.com/probgraph/bugc/compiler"
)

// FromNodes materializes a graphical model from a compiled node list. Parent
// edges are added for every parent that is itself a node; free inputs with
// no definition of their own carry no vertex. Observation nodes come out
// conditioned at their default value.
func FromNodes(nodes map[string]*compiler.Node) (*Model, error) {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	m := New()
	for _, name := range names {
		n := nodes[name]
		var err error
		if n.Kind == compiler.Logical {
			gen := n.Gen
			_, err = m.AddDeterministicVertex(name, func(env map[string]float64) (float64, error) {
				return gen(compiler.Env(env))
			})
		} else {
			distGen := n.DistGen
			_, err = m.AddStochasticVertex(name, func(env map[string]float64) (Dist, error) {
				return distGen(compiler.Env(env))
			})
		}
		if err != nil {
			return nil, err
		}
	}

	obs := map[string]float64{}
	for _, name := range names {
		n := nodes[name]
		child := m.index[name]
		for _, p := range n.Parents {
			parent, ok := m.index[p]
			if !ok {
				continue
			}
			if err := m.AddEdge(parent, child); err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", p, name, err)
			}
		}
		if n.Kind == compiler.Observation {
			obs[name] = n.Default
		}
	}

	if len(obs) > 0 {
		if err := m.ConditionInPlace(obs); err != nil {
			return nil, err
		}
	}
	return m, nil
}
