package main

import (
	"encoding/json"
	"fmt"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/compiler"
	"github.com/probgraph/bugc/token"
)

// Document is the on-disk form of a compilation input: the structured syntax
// tree of the model plus the data binding. The model has already been parsed
// elsewhere; this file only deserializes the tree.
type Document struct {
	Model []json.RawMessage          `json:"model"`
	Data  map[string]json.RawMessage `json:"data"`
}

type jsonNode struct {
	Node string `json:"node"`

	Value   *json.Number      `json:"value,omitempty"`
	Name    string            `json:"name,omitempty"`
	Op      string            `json:"op,omitempty"`
	Array   string            `json:"array,omitempty"`
	Func    string            `json:"func,omitempty"`
	Var     string            `json:"var,omitempty"`
	Left    json.RawMessage   `json:"left,omitempty"`
	Right   json.RawMessage   `json:"right,omitempty"`
	Start   json.RawMessage   `json:"start,omitempty"`
	Stop    json.RawMessage   `json:"stop,omitempty"`
	Step    json.RawMessage   `json:"step,omitempty"`
	Lhs     json.RawMessage   `json:"lhs,omitempty"`
	Rhs     json.RawMessage   `json:"rhs,omitempty"`
	Cond    json.RawMessage   `json:"cond,omitempty"`
	Dist    json.RawMessage   `json:"dist,omitempty"`
	Indices []json.RawMessage `json:"indices,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
	Body    []json.RawMessage `json:"body,omitempty"`

	Line int `json:"line,omitempty"`
	Col  int `json:"col,omitempty"`
}

func (n *jsonNode) tok(t token.TokenType) token.Token {
	return token.Token{Type: t, Literal: n.Node, Line: n.Line, Column: n.Col}
}

// DecodeDocument turns a serialized document into a program and data
// binding ready for compilation.
func DecodeDocument(src []byte) (*ast.Program, map[string]compiler.DataValue, error) {
	var doc Document
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode document: %w", err)
	}

	program := &ast.Program{}
	for _, raw := range doc.Model {
		stmt, err := decodeStmt(raw)
		if err != nil {
			return nil, nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}

	data := map[string]compiler.DataValue{}
	for name, raw := range doc.Data {
		dv, err := decodeData(name, raw)
		if err != nil {
			return nil, nil, err
		}
		data[name] = dv
	}
	return program, data, nil
}

func decodeStmt(raw json.RawMessage) (ast.Statement, error) {
	var n jsonNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}

	switch n.Node {
	case "assign":
		lhs, err := decodeExpr(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(n.Rhs)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStatement{Token: n.tok(token.ASSIGN), Name: lhs, Value: rhs}, nil

	case "draw":
		lhs, err := decodeExpr(n.Lhs)
		if err != nil {
			return nil, err
		}
		dist, err := decodeExpr(n.Dist)
		if err != nil {
			return nil, err
		}
		call, ok := dist.(*ast.CallExpression)
		if !ok {
			return nil, fmt.Errorf("draw for %s: right-hand side must be a distribution call", lhs)
		}
		return &ast.StochasticStatement{Token: n.tok(token.TILDE), Name: lhs, Dist: call}, nil

	case "for":
		if n.Var == "" {
			return nil, fmt.Errorf("for statement without a loop variable")
		}
		start, err := decodeExpr(n.Start)
		if err != nil {
			return nil, err
		}
		stop, err := decodeExpr(n.Stop)
		if err != nil {
			return nil, err
		}
		rl := &ast.RangeLiteral{Token: n.tok(token.COLON), Start: start, Stop: stop}
		if len(n.Step) > 0 {
			if rl.Step, err = decodeExpr(n.Step); err != nil {
				return nil, err
			}
		}
		body, err := decodeBlock(n.Body, n.tok(token.LBRACE))
		if err != nil {
			return nil, err
		}
		return &ast.ForStatement{
			Token: n.tok(token.FOR),
			Var:   &ast.Identifier{Token: n.tok(token.IDENT), Value: n.Var},
			Range: rl,
			Body:  body,
		}, nil

	case "if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(n.Body, n.tok(token.LBRACE))
		if err != nil {
			return nil, err
		}
		return &ast.IfStatement{Token: n.tok(token.IF), Cond: cond, Body: body}, nil
	}
	return nil, fmt.Errorf("unknown statement node %q", n.Node)
}

func decodeBlock(raws []json.RawMessage, tok token.Token) (*ast.BlockStatement, error) {
	block := &ast.BlockStatement{Token: tok}
	for _, raw := range raws {
		stmt, err := decodeStmt(raw)
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func decodeExpr(raw json.RawMessage) (ast.Expression, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing expression")
	}
	var n jsonNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}

	switch n.Node {
	case "int":
		if n.Value == nil {
			return nil, fmt.Errorf("int node without value")
		}
		// Not via float64; values past 2^53 must decode exactly.
		v, err := n.Value.Int64()
		if err != nil {
			return nil, fmt.Errorf("int node value %s: %w", n.Value.String(), err)
		}
		return &ast.IntegerLiteral{Token: n.tok(token.INT), Value: v}, nil

	case "float":
		if n.Value == nil {
			return nil, fmt.Errorf("float node without value")
		}
		v, err := n.Value.Float64()
		if err != nil {
			return nil, fmt.Errorf("float node value %s: %w", n.Value.String(), err)
		}
		return &ast.FloatLiteral{Token: n.tok(token.FLOAT), Value: v}, nil

	case "name":
		if n.Name == "" {
			return nil, fmt.Errorf("name node without name")
		}
		return &ast.Identifier{Token: n.tok(token.IDENT), Value: n.Name}, nil

	case "full":
		return &ast.FullRange{Token: n.tok(token.COLON)}, nil

	case "range":
		start, err := decodeExpr(n.Start)
		if err != nil {
			return nil, err
		}
		stop, err := decodeExpr(n.Stop)
		if err != nil {
			return nil, err
		}
		rl := &ast.RangeLiteral{Token: n.tok(token.COLON), Start: start, Stop: stop}
		if len(n.Step) > 0 {
			if rl.Step, err = decodeExpr(n.Step); err != nil {
				return nil, err
			}
		}
		return rl, nil

	case "index":
		if n.Array == "" {
			return nil, fmt.Errorf("index node without array name")
		}
		ie := &ast.IndexExpression{
			Token: n.tok(token.LBRACK),
			Array: &ast.Identifier{Token: n.tok(token.IDENT), Value: n.Array},
		}
		for _, raw := range n.Indices {
			idx, err := decodeExpr(raw)
			if err != nil {
				return nil, err
			}
			ie.Indices = append(ie.Indices, idx)
		}
		if len(ie.Indices) == 0 {
			ie.Indices = []ast.Expression{&ast.FullRange{Token: ie.Token}}
		}
		return ie, nil

	case "call":
		if n.Func == "" {
			return nil, fmt.Errorf("call node without function name")
		}
		ce := &ast.CallExpression{
			Token:    n.tok(token.LPAREN),
			Function: &ast.Identifier{Token: n.tok(token.IDENT), Value: n.Func},
		}
		for _, raw := range n.Args {
			arg, err := decodeExpr(raw)
			if err != nil {
				return nil, err
			}
			ce.Arguments = append(ce.Arguments, arg)
		}
		return ce, nil

	case "infix":
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.InfixExpression{Token: n.tok(token.ILLEGAL), Left: left, Operator: n.Op, Right: right}, nil

	case "prefix":
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.PrefixExpression{Token: n.tok(token.ILLEGAL), Operator: n.Op, Right: right}, nil
	}
	return nil, fmt.Errorf("unknown expression node %q", n.Node)
}

type jsonArray struct {
	Dims   []int      `json:"dims"`
	Values []*float64 `json:"values"`
}

func decodeData(name string, raw json.RawMessage) (compiler.DataValue, error) {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return compiler.DataValue{Scalar: &scalar}, nil
	}
	var arr jsonArray
	if err := json.Unmarshal(raw, &arr); err != nil {
		return compiler.DataValue{}, fmt.Errorf("data value %s: %w", name, err)
	}
	if len(arr.Dims) == 0 {
		return compiler.DataValue{}, fmt.Errorf("data array %s has no dims", name)
	}
	return compiler.DataValue{Dims: arr.Dims, Cells: arr.Values}, nil
}
