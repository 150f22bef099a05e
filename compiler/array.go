package compiler

import (
	"fmt"

	"github.com/probgraph/bugc/token"
)

// SymArray is a dense rectangular container of Symbolics for one array base
// name. Cells are stored row-major and addressed with 1-based indices. The
// rank is fixed by the first reference; the extents only ever grow.
type SymArray struct {
	Base  string
	Dims  []int
	Cells []*Symbolic
}

func newSymArray(base string, dims []int) *SymArray {
	a := &SymArray{
		Base: base,
		Dims: append([]int{}, dims...),
	}
	a.Cells = make([]*Symbolic, a.size())
	a.eachIndex(func(idx []int, off int) {
		a.Cells[off] = Cell(base, append([]int{}, idx...))
	})
	return a
}

func (a *SymArray) size() int {
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// offset maps a 1-based index tuple to the row-major cell offset.
func (a *SymArray) offset(idx []int) int {
	off := 0
	for i, d := range a.Dims {
		off = off*d + (idx[i] - 1)
	}
	return off
}

// At returns the cell at a 1-based index tuple. The tuple must be in bounds.
func (a *SymArray) At(idx []int) *Symbolic {
	return a.Cells[a.offset(idx)]
}

// eachIndex visits every index tuple in row-major order.
func (a *SymArray) eachIndex(visit func(idx []int, off int)) {
	idx := make([]int, len(a.Dims))
	for i := range idx {
		idx[i] = 1
	}
	for off := 0; off < a.size(); off++ {
		visit(idx, off)
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] <= a.Dims[i] {
				break
			}
			idx[i] = 1
		}
	}
}

// grow reallocates the array to the given extents, copying every existing
// cell over by identical index and synthesizing fresh placeholders for the
// new positions. The receiver is left untouched; callers must re-resolve
// through the registry and never read a stale handle after a grow.
func (a *SymArray) grow(dims []int) *SymArray {
	next := newSymArray(a.Base, dims)
	a.eachIndex(func(idx []int, off int) {
		next.Cells[next.offset(idx)] = a.Cells[off]
	})
	return next
}

// AxisRef is one resolved index along one array axis: either a concrete
// 1-based inclusive range (a single index has Lo == Hi) or the full range of
// the axis.
type AxisRef struct {
	Lo   int
	Hi   int
	Full bool
}

// ReferenceArray resolves an indexed reference against the registry,
// allocating the array on first use and growing it when the reference
// implies a larger extent. It returns the referenced cells in row-major
// order. A full-range axis sizes to extent 1 on first reference and to the
// current extent afterwards.
func (st *State) ReferenceArray(tok token.Token, base string, axes []AxisRef) ([]*Symbolic, *token.CompileError) {
	arr, ok := st.Arrays[base]
	if !ok {
		dims := make([]int, len(axes))
		for i, ax := range axes {
			dims[i] = 1
			if !ax.Full && ax.Hi > 1 {
				dims[i] = ax.Hi
			}
		}
		arr = newSymArray(base, dims)
		st.Arrays[base] = arr
	}

	if len(axes) != len(arr.Dims) {
		return nil, &token.CompileError{
			Token: tok,
			Msg:   fmt.Sprintf("array %s dimension doesn't match: got %d indices, array has rank %d", base, len(axes), len(arr.Dims)),
		}
	}

	grown := false
	dims := append([]int{}, arr.Dims...)
	for i, ax := range axes {
		if ax.Full {
			continue
		}
		if ax.Lo < 1 {
			return nil, &token.CompileError{
				Token: tok,
				Msg:   fmt.Sprintf("array %s index must be positive, got %d", base, ax.Lo),
			}
		}
		if ax.Hi > dims[i] {
			dims[i] = ax.Hi
			grown = true
		}
	}
	if grown {
		arr = arr.grow(dims)
		st.Arrays[base] = arr
	}

	// Materialize the selection in row-major order.
	lows := make([]int, len(axes))
	highs := make([]int, len(axes))
	for i, ax := range axes {
		if ax.Full {
			lows[i], highs[i] = 1, arr.Dims[i]
			continue
		}
		lows[i], highs[i] = ax.Lo, ax.Hi
	}

	cells := []*Symbolic{}
	idx := append([]int{}, lows...)
	for {
		cells = append(cells, arr.At(idx))
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] <= highs[i] {
				break
			}
			idx[i] = lows[i]
		}
		if i < 0 {
			break
		}
	}
	return cells, nil
}
