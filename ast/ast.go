package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/probgraph/bugc/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

// Program is the whole model: a flat sequence of declarative statements.
// Statement order carries no meaning; it is kept only for error reporting
// and deterministic resolution.
type Program struct {
	Statements []Statement
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{
		Type:    token.EOF,
		Literal: "",
	}
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}

	return out.String()
}

func printVec(a []Expression) string {
	if len(a) == 0 {
		return ""
	}

	ret := a[0].String()
	for _, val := range a[1:] {
		ret += ", "
		ret += val.String()
	}

	return ret
}

// Statements

// AssignStatement is a deterministic relation, lhs = rhs. Name is an
// Identifier, an IndexExpression, or (before link rewriting) a single-argument
// CallExpression such as log(sigma2).
type AssignStatement struct {
	Token token.Token // the token.ASSIGN token
	Name  Expression
	Value Expression
}

func (as *AssignStatement) statementNode()   {}
func (as *AssignStatement) Tok() token.Token { return as.Token }
func (as *AssignStatement) String() string {
	var out bytes.Buffer

	out.WriteString(as.Name.String())
	out.WriteString(" = ")
	out.WriteString(as.Value.String())

	return out.String()
}

// StochasticStatement declares lhs ~ dist(args...).
type StochasticStatement struct {
	Token token.Token // the token.TILDE token
	Name  Expression
	Dist  *CallExpression
}

func (ss *StochasticStatement) statementNode()   {}
func (ss *StochasticStatement) Tok() token.Token { return ss.Token }
func (ss *StochasticStatement) String() string {
	var out bytes.Buffer

	out.WriteString(ss.Name.String())
	out.WriteString(" ~ ")
	out.WriteString(ss.Dist.String())

	return out.String()
}

// ForStatement repeats Body for Var over the inclusive Range.
type ForStatement struct {
	Token token.Token // the token.FOR token
	Var   *Identifier
	Range *RangeLiteral
	Body  *BlockStatement
}

func (fs *ForStatement) statementNode()   {}
func (fs *ForStatement) Tok() token.Token { return fs.Token }
func (fs *ForStatement) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	out.WriteString(fs.Var.String())
	out.WriteString(" in ")
	out.WriteString(fs.Range.String())
	out.WriteString(" { ")
	out.WriteString(fs.Body.String())
	out.WriteString(" }")

	return out.String()
}

// IfStatement guards Body with Cond.
type IfStatement struct {
	Token token.Token // the token.IF token
	Cond  Expression
	Body  *BlockStatement
}

func (is *IfStatement) statementNode()   {}
func (is *IfStatement) Tok() token.Token { return is.Token }
func (is *IfStatement) String() string {
	var out bytes.Buffer

	out.WriteString("if ")
	out.WriteString(is.Cond.String())
	out.WriteString(" { ")
	out.WriteString(is.Body.String())
	out.WriteString(" }")

	return out.String()
}

type BlockStatement struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()   {}
func (bs *BlockStatement) Tok() token.Token { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	for i, s := range bs.Statements {
		if i > 0 {
			out.WriteString(" ; ")
		}
		out.WriteString(s.String())
	}

	return out.String()
}

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return strconv.FormatInt(il.Value, 10) }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()  {}
func (fl *FloatLiteral) Tok() token.Token { return fl.Token }
func (fl *FloatLiteral) String() string   { return strconv.FormatFloat(fl.Value, 'g', -1, 64) }

// RangeLiteral is the inclusive integer range Start:Stop. Step is carried for
// error reporting only; ranges with a step are rejected by the compiler.
type RangeLiteral struct {
	Token token.Token // the : token
	Start Expression
	Stop  Expression
	Step  Expression
}

func (rl *RangeLiteral) expressionNode()  {}
func (rl *RangeLiteral) Tok() token.Token { return rl.Token }
func (rl *RangeLiteral) String() string {
	var out bytes.Buffer

	out.WriteString(rl.Start.String())
	out.WriteString(":")
	out.WriteString(rl.Stop.String())
	if rl.Step != nil {
		out.WriteString(":")
		out.WriteString(rl.Step.String())
	}

	return out.String()
}

// FullRange is an omitted index, x[], meaning every valid index on that axis.
type FullRange struct {
	Token token.Token
}

func (fr *FullRange) expressionNode()  {}
func (fr *FullRange) Tok() token.Token { return fr.Token }
func (fr *FullRange) String() string   { return "" }

// IndexExpression addresses cells of a named array, e.g. mu[i, 2] or y[1:3].
type IndexExpression struct {
	Token   token.Token // the [ token
	Array   *Identifier
	Indices []Expression // Identifier, literal, RangeLiteral or FullRange per axis
}

func (ie *IndexExpression) expressionNode()  {}
func (ie *IndexExpression) Tok() token.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	var out bytes.Buffer

	out.WriteString(ie.Array.String())
	out.WriteString("[")
	out.WriteString(printVec(ie.Indices))
	out.WriteString("]")

	return out.String()
}

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. -
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()  {}
func (pe *PrefixExpression) Tok() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(pe.Operator)
	out.WriteString(pe.Right.String())
	out.WriteString(")")

	return out.String()
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")

	return out.String()
}

type CallExpression struct {
	Token     token.Token // The '(' token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(ce.Function.String())
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}
