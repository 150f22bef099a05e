package compiler

import (
	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
)

// Compile runs the whole pipeline: seed the state from data, structurally
// resolve the program, and emit the node list. The program is rewritten in
// place; pass a fresh tree per compilation.
func Compile(program *ast.Program, data map[string]DataValue) (map[string]*Node, []*token.CompileError) {
	r := NewResolver(program)
	if ce := r.State.SeedData(data); ce != nil {
		return nil, []*token.CompileError{ce}
	}
	r.Resolve()
	if len(r.Errors) > 0 {
		return nil, r.Errors
	}
	nodes, ce := r.State.Emit()
	if ce != nil {
		return nil, []*token.CompileError{ce}
	}
	return nodes, nil
}
