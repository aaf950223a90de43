// Package refcalc independently recomputes operations in plain float64
// host math. It shares no code with the device backend so the cross-check
// is meaningful. A refcalc failure never fails the overall request; the
// engine degrades the reference fields to null.
package refcalc

import (
	"fmt"
	"math"
)

// Value is one operand rebuilt from the request inputs: either a scalar
// or a uniformly-filled tensor represented by its fill value and shape.
type Value struct {
	IsTensor bool
	Fill     float64
	Shape    []int
}

// Result carries the reference value and metadata of the recomputation.
// All elements of the result are equal because the inputs are uniform, so
// a single representative value suffices.
type Result struct {
	Value float64
	Shape []int
	DType string
}

type opFunc func(args []float64, p map[string]float64) (float64, error)

func pget(p map[string]float64, name string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func unary(f func(a float64) float64) opFunc {
	return func(args []float64, _ map[string]float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 operand, got %d", len(args))
		}
		return f(args[0]), nil
	}
}

func binary(f func(a, b float64) float64) opFunc {
	return func(args []float64, _ map[string]float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("want 2 operands, got %d", len(args))
		}
		return f(args[0], args[1]), nil
	}
}

func ternary(f func(a, b, c float64) float64) opFunc {
	return func(args []float64, _ map[string]float64) (float64, error) {
		if len(args) != 3 {
			return 0, fmt.Errorf("want 3 operands, got %d", len(args))
		}
		return f(args[0], args[1], args[2]), nil
	}
}

// ops covers the subset of the catalog the reference backend knows how to
// recompute; anything else degrades to a null reference upstream.
var ops = map[string]opFunc{
	"add":        binary(func(a, b float64) float64 { return a + b }),
	"subtract":   binary(func(a, b float64) float64 { return a - b }),
	"mul":        binary(func(a, b float64) float64 { return a * b }),
	"multiply":   binary(func(a, b float64) float64 { return a * b }),
	"div":        binary(func(a, b float64) float64 { return a / b }),
	"divide":     binary(func(a, b float64) float64 { return a / b }),
	"pow":        binary(math.Pow),
	"maximum":    binary(math.Max),
	"minimum":    binary(math.Min),
	"hypot":      binary(math.Hypot),
	"atan2":      binary(math.Atan2),
	"gt":         binary(func(a, b float64) float64 { return b2f(a > b) }),
	"lt":         binary(func(a, b float64) float64 { return b2f(a < b) }),
	"ge":         binary(func(a, b float64) float64 { return b2f(a >= b) }),
	"le":         binary(func(a, b float64) float64 { return b2f(a <= b) }),
	"eq":         binary(func(a, b float64) float64 { return b2f(a == b) }),
	"ne":         binary(func(a, b float64) float64 { return b2f(a != b) }),
	"sqrt":       unary(math.Sqrt),
	"rsqrt":      unary(func(a float64) float64 { return 1 / math.Sqrt(a) }),
	"exp":        unary(math.Exp),
	"log":        unary(math.Log),
	"sin":        unary(math.Sin),
	"cos":        unary(math.Cos),
	"tan":        unary(math.Tan),
	"abs":        unary(math.Abs),
	"neg":        unary(func(a float64) float64 { return -a }),
	"floor":      unary(math.Floor),
	"ceil":       unary(math.Ceil),
	"round":      unary(math.Round),
	"square":     unary(func(a float64) float64 { return a * a }),
	"reciprocal": unary(func(a float64) float64 { return 1 / a }),
	"relu":       unary(func(a float64) float64 { return math.Max(a, 0) }),
	"sigmoid":    unary(func(a float64) float64 { return 1 / (1 + math.Exp(-a)) }),
	"tanh":       unary(math.Tanh),
	"elu": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 operand, got %d", len(args))
		}
		alpha := pget(p, "alpha", 1)
		if args[0] > 0 {
			return args[0], nil
		}
		return alpha * math.Expm1(args[0]), nil
	},
	"prelu": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 operand, got %d", len(args))
		}
		weight := pget(p, "weight", 0.25)
		if args[0] >= 0 {
			return args[0], nil
		}
		return weight * args[0], nil
	},
	"threshold": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 operand, got %d", len(args))
		}
		threshold := pget(p, "threshold", 0)
		value := pget(p, "value", 0)
		if args[0] > threshold {
			return args[0], nil
		}
		return value, nil
	},
	"heaviside": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("want 1 operand, got %d", len(args))
		}
		value := pget(p, "value", 0)
		switch {
		case args[0] > 0:
			return 1, nil
		case args[0] < 0:
			return 0, nil
		}
		return value, nil
	},
	"addalpha": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("want 2 operands, got %d", len(args))
		}
		return args[0] + pget(p, "alpha", 1)*args[1], nil
	},
	"subalpha": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("want 2 operands, got %d", len(args))
		}
		return args[0] - pget(p, "alpha", 1)*args[1], nil
	},
	"where": ternary(func(a, b, c float64) float64 {
		if a != 0 {
			return b
		}
		return c
	}),
	"mac":  ternary(func(a, b, c float64) float64 { return a + b*c }),
	"lerp": ternary(func(a, b, c float64) float64 { return a + c*(b-a) }),
	"addcmul": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 3 {
			return 0, fmt.Errorf("want 3 operands, got %d", len(args))
		}
		return args[0] + pget(p, "value", 1)*args[1]*args[2], nil
	},
	"addcdiv": func(args []float64, p map[string]float64) (float64, error) {
		if len(args) != 3 {
			return 0, fmt.Errorf("want 3 operands, got %d", len(args))
		}
		return args[0] + pget(p, "value", 1)*args[1]/args[2], nil
	},
}

// Covers reports whether the reference backend implements name.
func Covers(name string) bool {
	_, ok := ops[name]
	return ok
}

// Compute recomputes operation name over freshly materialized operands.
// params carries optional scalar parameters by their declared names.
// Because every tensor operand is uniformly filled, the elementwise result
// is uniform too; the returned Result holds the representative element and
// the shape of the first tensor operand.
func Compute(name string, args []Value, params map[string]float64) (*Result, error) {
	f, ok := ops[name]
	if !ok {
		return nil, fmt.Errorf("reference backend does not cover %q", name)
	}
	vals := make([]float64, len(args))
	var shape []int
	for i, a := range args {
		vals[i] = a.Fill
		if a.IsTensor && shape == nil {
			shape = append([]int(nil), a.Shape...)
		}
	}
	if shape == nil {
		return nil, fmt.Errorf("reference computation requires a tensor operand")
	}
	v, err := f(vals, params)
	if err != nil {
		return nil, err
	}
	return &Result{Value: v, Shape: shape, DType: "float64"}, nil
}
