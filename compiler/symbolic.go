package compiler

import (
	"strconv"
	"strings"
)

type SymKind int

const (
	// ConstSym is a known numeric constant.
	ConstSym SymKind = iota
	// ScalarSym is a named scalar variable.
	ScalarSym
	// CellSym is one concrete cell of a named array.
	CellSym
)

// Symbolic is a placeholder for a value in the model: a number, a scalar
// variable, or a single array cell materialized into a unique name such as
// mu[1,2]. Symbolics are immutable once created and freely shared; two
// symbolics with the same Name denote the same value.
type Symbolic struct {
	Kind  SymKind
	Num   float64 // ConstSym only
	Name  string  // ScalarSym and CellSym
	Base  string  // CellSym only: array base name
	Index []int   // CellSym only: 1-based indices
}

func Const(v float64) *Symbolic {
	return &Symbolic{Kind: ConstSym, Num: v}
}

func Scalar(name string) *Symbolic {
	return &Symbolic{Kind: ScalarSym, Name: name}
}

func Cell(base string, index []int) *Symbolic {
	return &Symbolic{
		Kind:  CellSym,
		Name:  CellName(base, index),
		Base:  base,
		Index: index,
	}
}

// CellName materializes the unique name of an array cell, e.g. mu[1,2].
func CellName(base string, index []int) string {
	parts := make([]string, len(index))
	for i, idx := range index {
		parts[i] = strconv.Itoa(idx)
	}
	return base + "[" + strings.Join(parts, ",") + "]"
}

func (s *Symbolic) String() string {
	if s.Kind == ConstSym {
		return strconv.FormatFloat(s.Num, 'g', -1, 64)
	}
	return s.Name
}
