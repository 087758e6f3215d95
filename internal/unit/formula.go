package unit

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Identifiers a formula may reference, bound to the unit's own attributes.
const (
	VarMassFlowrate = "mass_flowrate"
	VarCapacity     = "capacity"
	VarVolume       = "volume"
)

const formulaFuncName = "formula.Eval"

const formulaTemplate = `package formula

import "math"

var _ = math.Pi

func Eval(mass_flowrate, capacity, volume float64) float64 {
	return float64(%s)
}
`

// CompileFormula turns a Go float expression over mass_flowrate, capacity
// and volume (and package math) into a function of unit attributes. The
// expression is checked and interpreted once; the returned function only
// evaluates it.
func CompileFormula(expr string) (func(Attributes) (float64, error), error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("formula: expression is empty")
	}
	if err := checkFormula(trimmed); err != nil {
		return nil, err
	}
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	if _, err := i.Eval(fmt.Sprintf(formulaTemplate, trimmed)); err != nil {
		return nil, fmt.Errorf("formula: interpret %q: %w", trimmed, err)
	}
	fnValue, err := i.Eval(formulaFuncName)
	if err != nil {
		return nil, fmt.Errorf("formula: lookup %s: %w", formulaFuncName, err)
	}
	fn, ok := fnValue.Interface().(func(float64, float64, float64) float64)
	if !ok {
		return nil, fmt.Errorf("formula: %q did not compile to a float function", trimmed)
	}
	return func(a Attributes) (v float64, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("formula: evaluate %q: %v", trimmed, r)
			}
		}()
		v = fn(a.MassFlowrate, a.Capacity, a.Volume)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v, fmt.Errorf("formula: %q evaluated to %v", trimmed, v)
		}
		return v, nil
	}, nil
}

// checkFormula accepts a single expression that only references the unit
// attributes, numeric literals and math package members.
func checkFormula(expr string) error {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return fmt.Errorf("formula: parse %q: %w", expr, err)
	}
	var bad error
	ast.Inspect(node, func(n ast.Node) bool {
		if bad != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.SelectorExpr:
			pkg, ok := x.X.(*ast.Ident)
			if !ok || pkg.Name != "math" {
				bad = fmt.Errorf("formula: %q may only select from package math", expr)
			}
			return false
		case *ast.Ident:
			switch x.Name {
			case VarMassFlowrate, VarCapacity, VarVolume, "float64":
			default:
				bad = fmt.Errorf("formula: %q references unknown identifier %s", expr, x.Name)
			}
		case *ast.BasicLit:
			if x.Kind != token.INT && x.Kind != token.FLOAT {
				bad = fmt.Errorf("formula: %q contains a non-numeric literal %s", expr, x.Value)
			}
		case *ast.FuncLit, *ast.CompositeLit, *ast.IndexExpr, *ast.SliceExpr, *ast.TypeAssertExpr, *ast.StarExpr:
			bad = fmt.Errorf("formula: %q is not an arithmetic expression", expr)
		}
		return true
	})
	return bad
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
