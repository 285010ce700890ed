package tools

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
)

// Arithmetic evaluator for the calculator and data transformer tools.
// Builtins are disabled; only numbers, operators, parentheses, the
// functions below, pi, e and caller-supplied variables resolve.

var calcFuncs = map[string]func(args []float64) (float64, error){
	"sqrt":  unary(math.Sqrt),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(math.Round),
	"min": func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("min needs at least one argument")
		}
		m := args[0]
		for _, a := range args[1:] {
			m = math.Min(m, a)
		}
		return m, nil
	},
	"max": func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("max needs at least one argument")
		}
		m := args[0]
		for _, a := range args[1:] {
			m = math.Max(m, a)
		}
		return m, nil
	},
}

var calcConsts = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var calcOptions = buildCalcOptions()

func unary(fn func(float64) float64) func(args []float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func buildCalcOptions() []expr.Option {
	opts := []expr.Option{expr.AsFloat64(), expr.DisableAllBuiltins()}
	for name, fn := range calcFuncs {
		opts = append(opts, expr.Function(name, wrapCalcFunc(name, fn)))
	}
	return opts
}

func wrapCalcFunc(name string, fn func(args []float64) (float64, error)) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		args := make([]float64, len(params))
		for i, p := range params {
			n, ok := toFloat(p)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d is not a number", name, i+1)
			}
			args[i] = n
		}
		v, err := fn(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
}

// Evaluate evaluates an arithmetic expression with optional variables.
// Variables shadow the pi and e constants. Whole-number variables are bound
// as ints so that % works on them.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, fmt.Errorf("empty expression")
	}

	env := make(map[string]any, len(calcConsts)+len(vars))
	for name, v := range calcConsts {
		env[name] = v
	}
	for name, v := range vars {
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			env[name] = int(v)
		} else {
			env[name] = v
		}
	}

	opts := append([]expr.Option{expr.Env(env)}, calcOptions...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return 0, err
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return 0, err
	}

	v, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("result is not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}
