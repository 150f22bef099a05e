package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/probgraph/bugc/ast"
	"github.com/probgraph/bugc/token"
	"gonum.org/v1/gonum/stat/distuv"
)

type builtinFunc struct {
	Arity int
	Fn    func(args []float64) float64
}

// defaultFuncs is the closed set of scalar functions usable in deterministic
// expressions. It includes every link inverse from the link table.
var defaultFuncs = map[string]builtinFunc{
	"exp":   {1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"log":   {1, func(a []float64) float64 { return math.Log(a[0]) }},
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"abs":   {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"pow":   {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min":   {2, func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"max":   {2, func(a []float64) float64 { return math.Max(a[0], a[1]) }},
	"logit": {1, func(a []float64) float64 { return math.Log(a[0] / (1 - a[0])) }},
	"ilogit": {1, func(a []float64) float64 {
		return 1 / (1 + math.Exp(-a[0]))
	}},
	"probit":  {1, func(a []float64) float64 { return distuv.UnitNormal.Quantile(a[0]) }},
	"iprobit": {1, func(a []float64) float64 { return distuv.UnitNormal.CDF(a[0]) }},
	"cloglog": {1, func(a []float64) float64 { return math.Log(-math.Log(1 - a[0])) }},
	"icloglog": {1, func(a []float64) float64 {
		return 1 - math.Exp(-math.Exp(a[0]))
	}},
	"step": {1, func(a []float64) float64 {
		if a[0] >= 0 {
			return 1
		}
		return 0
	}},
}

// statTag identifies a rewritten cumulative/density/deviance call such as
// cumulative$dnorm, produced by RewriteStatTags. The last argument is the
// evaluation point; the preceding ones parameterize the distribution.
func statTag(name string) (op, dist string, ok bool) {
	op, dist, ok = strings.Cut(name, "$")
	if !ok {
		return "", "", false
	}
	switch op {
	case "cumulative", "density", "deviance":
		return op, dist, true
	}
	return "", "", false
}

func applyStatTag(op string, d Dist, x float64) float64 {
	switch op {
	case "cumulative":
		return d.CDF(x)
	case "density":
		return math.Exp(d.LogProb(x))
	default: // deviance
		return -2 * d.LogProb(x)
	}
}

// applyBuiltin folds a call over fully-known argument values. Unknown call
// names do not fold; they are reported when a generator is compiled.
func applyBuiltin(call *ast.CallExpression, vals []float64) (float64, bool, *token.CompileError) {
	name := call.Function.Value
	if fn, ok := defaultFuncs[name]; ok {
		if len(vals) != fn.Arity {
			return 0, false, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("%s expects %d arguments, got %d", name, fn.Arity, len(vals)),
			}
		}
		return fn.Fn(vals), true, nil
	}
	if op, distName, ok := statTag(name); ok {
		spec, found := LookupDist(distName)
		if !found {
			return 0, false, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("unknown distribution: %s", distName),
			}
		}
		if len(vals) == 0 || (!spec.Variadic && len(vals)-1 != spec.Arity) {
			return 0, false, &token.CompileError{
				Token: call.Tok(),
				Msg:   fmt.Sprintf("%s expects %d arguments, got %d", name, spec.Arity+1, len(vals)),
			}
		}
		d, err := spec.Make(vals[:len(vals)-1])
		if err != nil {
			return 0, false, &token.CompileError{
				Token: call.Tok(),
				Msg:   err.Error(),
			}
		}
		return applyStatTag(op, d, vals[len(vals)-1]), true, nil
	}
	return 0, false, nil
}
