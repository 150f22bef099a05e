// Package model holds a directed graphical model over named stochastic and
// deterministic vertices, with conditioning and exact variable elimination
// over a closed set of distribution families. It operates on an
// already-materialized graph; it does not depend on how the graph was built.
package model

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Dist is the behavior the model needs from a distribution object.
type Dist interface {
	Mean() float64
	Rand() float64
	CDF(x float64) float64
	LogProb(x float64) float64
}

// Func computes a deterministic vertex from its parents' values.
type Func func(env map[string]float64) (float64, error)

// DistFactory instantiates a stochastic vertex's distribution from its
// parents' values.
type DistFactory func(env map[string]float64) (Dist, error)

var (
	ErrDuplicateVertex = errors.New("vertex already exists")
	ErrUnknownVertex   = errors.New("unknown vertex")
	ErrNotStochastic   = errors.New("vertex is not stochastic")
	ErrNotObserved     = errors.New("vertex is not observed")
)

// Model is a directed graph over a fixed vertex set plus parallel attribute
// vectors. Vertex identities are stable for the model's lifetime; edges
// point from a variable to those that depend on it. The topology and the
// generator vectors are shared immutable substrate after construction; only
// the observed flags, values and notices are mutated, and the non-mutating
// conditioning operations copy exactly those.
type Model struct {
	g          *simple.DirectedGraph
	names      []string
	index      map[string]int
	stochastic []bool
	dists      []DistFactory
	fns        []Func
	observed   []bool
	values     []float64

	// Notices collects warning-level messages from tolerated misuse, such
	// as overwriting an already-observed value.
	Notices []string
}

func New() *Model {
	return &Model{
		g:     simple.NewDirectedGraph(),
		index: make(map[string]int),
	}
}

func (m *Model) addVertex(name string, stochastic bool, d DistFactory, fn Func) (int, error) {
	if _, ok := m.index[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateVertex, name)
	}
	id := len(m.names)
	m.names = append(m.names, name)
	m.index[name] = id
	m.stochastic = append(m.stochastic, stochastic)
	m.dists = append(m.dists, d)
	m.fns = append(m.fns, fn)
	m.observed = append(m.observed, false)
	m.values = append(m.values, 0)
	m.g.AddNode(simple.Node(id))
	return id, nil
}

// AddStochasticVertex appends a stochastic vertex and returns its identity.
func (m *Model) AddStochasticVertex(name string, d DistFactory) (int, error) {
	return m.addVertex(name, true, d, nil)
}

// AddDeterministicVertex appends a deterministic vertex computed by fn.
func (m *Model) AddDeterministicVertex(name string, fn Func) (int, error) {
	return m.addVertex(name, false, nil, fn)
}

// AddEdge connects an existing parent vertex to a child vertex.
func (m *Model) AddEdge(parent, child int) error {
	if parent < 0 || parent >= len(m.names) {
		return fmt.Errorf("%w: id %d", ErrUnknownVertex, parent)
	}
	if child < 0 || child >= len(m.names) {
		return fmt.Errorf("%w: id %d", ErrUnknownVertex, child)
	}
	if parent == child {
		return fmt.Errorf("vertex %s cannot depend on itself", m.names[parent])
	}
	m.g.SetEdge(m.g.NewEdge(simple.Node(parent), simple.Node(child)))
	return nil
}

// Lookup finds a vertex id by name.
func (m *Model) Lookup(name string) (int, bool) {
	id, ok := m.index[name]
	return id, ok
}

func (m *Model) Len() int              { return len(m.names) }
func (m *Model) Name(id int) string    { return m.names[id] }
func (m *Model) IsStochastic(id int) bool { return m.stochastic[id] }
func (m *Model) IsObserved(id int) bool   { return m.observed[id] }
func (m *Model) Value(id int) float64     { return m.values[id] }
func (m *Model) NumEdges() int            { return m.g.Edges().Len() }

// Parents returns the ids of the vertices a vertex depends on, ascending.
func (m *Model) Parents(id int) []int {
	nodes := graph.NodesOf(m.g.To(int64(id)))
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

// Children returns the ids of the vertices depending on a vertex, ascending.
func (m *Model) Children(id int) []int {
	nodes := graph.NodesOf(m.g.From(int64(id)))
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

// shallowCopy copies the mutable collections and shares the rest.
func (m *Model) shallowCopy() *Model {
	cp := *m
	cp.observed = append([]bool{}, m.observed...)
	cp.values = append([]float64{}, m.values...)
	cp.Notices = append([]string{}, m.Notices...)
	return &cp
}

// Condition returns a copy of the model with the named stochastic vertices
// marked observed at the given values. The receiver is untouched.
func (m *Model) Condition(obs map[string]float64) (*Model, error) {
	cp := m.shallowCopy()
	if err := cp.ConditionInPlace(obs); err != nil {
		return nil, err
	}
	return cp, nil
}

// ConditionInPlace marks the named stochastic vertices observed. Only
// stochastic vertices can be conditioned. Conditioning an already-observed
// vertex overwrites its value and records a notice instead of failing.
func (m *Model) ConditionInPlace(obs map[string]float64) error {
	names := make([]string, 0, len(obs))
	for name := range obs {
		id, ok := m.index[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVertex, name)
		}
		if !m.stochastic[id] {
			return fmt.Errorf("%w: cannot condition %s", ErrNotStochastic, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id := m.index[name]
		if m.observed[id] {
			m.Notices = append(m.Notices, fmt.Sprintf("%s is already observed; overwriting value %g with %g", name, m.values[id], obs[name]))
		}
		m.observed[id] = true
		m.values[id] = obs[name]
	}
	return nil
}

// Decondition returns a copy of the model with the named vertices no longer
// observed. The receiver is untouched.
func (m *Model) Decondition(names []string) (*Model, error) {
	cp := m.shallowCopy()
	if err := cp.DeconditionInPlace(names); err != nil {
		return nil, err
	}
	return cp, nil
}

// DeconditionInPlace clears the observed flag and attached value of the
// named vertices. Only currently-observed vertices can be deconditioned.
func (m *Model) DeconditionInPlace(names []string) error {
	for _, name := range names {
		id, ok := m.index[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVertex, name)
		}
		if !m.observed[id] {
			return fmt.Errorf("%w: cannot decondition %s", ErrNotObserved, name)
		}
	}
	for _, name := range names {
		id := m.index[name]
		m.observed[id] = false
		m.values[id] = 0
	}
	return nil
}
