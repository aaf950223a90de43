package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/chewxy/math32"
)

// Sim is the in-process accelerator backend: float32 elementwise math
// standing in for the hardware tile engine. It honors the same Driver
// contract a real SDK binding would, including refusing work on a closed
// handle.
type Sim struct{}

// NewSim returns a simulated driver.
func NewSim() *Sim { return &Sim{} }

// Open creates a handle bound to the given device id.
func (*Sim) Open(ctx context.Context, id int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id < 0 {
		return nil, ErrUnavailable(fmt.Sprintf("no device with id %d", id))
	}
	return &simHandle{id: id}, nil
}

type simTensor struct {
	shape []int
	dtype DType
	data  []float32
}

func (t *simTensor) Shape() []int { return t.shape }
func (t *simTensor) DType() DType { return t.dtype }

type simHandle struct {
	id     int
	mu     sync.Mutex
	closed bool
}

func (h *simHandle) ID() int { return h.id }

func (h *simHandle) live() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrUnavailable(fmt.Sprintf("device %d handle is closed", h.id))
	}
	return nil
}

func (h *simHandle) FromHost(t HostTensor) (Tensor, error) {
	if err := h.live(); err != nil {
		return nil, err
	}
	if len(t.Data) != NumElements(t.Shape) {
		return nil, fmt.Errorf("tensor data has %d elements, shape %v wants %d", len(t.Data), t.Shape, NumElements(t.Shape))
	}
	return &simTensor{
		shape: append([]int(nil), t.Shape...),
		dtype: t.DType,
		data:  append([]float32(nil), t.Data...),
	}, nil
}

func (h *simHandle) ToHost(t Tensor) (HostTensor, error) {
	if err := h.live(); err != nil {
		return HostTensor{}, err
	}
	st, ok := t.(*simTensor)
	if !ok {
		return HostTensor{}, fmt.Errorf("tensor was not produced by this driver")
	}
	return HostTensor{
		Shape: append([]int(nil), st.shape...),
		DType: st.dtype,
		Data:  append([]float32(nil), st.data...),
	}, nil
}

func (h *simHandle) Op(name string) (OpFunc, bool) {
	f, ok := simOps[name]
	if !ok {
		return nil, false
	}
	// Bind the handle so ops fail once it is closed (mirrors the SDK
	// erroring after close/reset).
	return func(args []Operand, params map[string]float64) (Tensor, error) {
		if err := h.live(); err != nil {
			return nil, err
		}
		return f(args, params)
	}, true
}

// Close is idempotent; a second close of the sim handle is a no-op.
func (h *simHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// eval runs f elementwise across the operands. Tensor operands contribute
// their elements, scalars are broadcast. Result takes the first tensor
// operand's shape/dtype.
func eval(args []Operand, arity int, f func(v []float32) float32) (Tensor, error) {
	if len(args) != arity {
		return nil, fmt.Errorf("operation expects %d operands, got %d", arity, len(args))
	}
	var ref *simTensor
	for _, a := range args {
		if a.Tensor == nil {
			continue
		}
		st, ok := a.Tensor.(*simTensor)
		if !ok {
			return nil, fmt.Errorf("tensor operand was not produced by this driver")
		}
		if ref == nil {
			ref = st
		} else if len(st.data) != len(ref.data) {
			return nil, fmt.Errorf("operand element counts differ: %d vs %d", len(st.data), len(ref.data))
		}
	}
	if ref == nil {
		return nil, fmt.Errorf("operation requires at least one tensor operand")
	}
	out := &simTensor{
		shape: append([]int(nil), ref.shape...),
		dtype: ref.dtype,
		data:  make([]float32, len(ref.data)),
	}
	vals := make([]float32, len(args))
	for i := range out.data {
		for j, a := range args {
			if a.Tensor != nil {
				vals[j] = a.Tensor.(*simTensor).data[i]
			} else {
				vals[j] = float32(a.Scalar)
			}
		}
		out.data[i] = f(vals)
	}
	return out, nil
}

func unary(f func(a float32) float32) OpFunc {
	return func(args []Operand, _ map[string]float64) (Tensor, error) {
		return eval(args, 1, func(v []float32) float32 { return f(v[0]) })
	}
}

func binary(f func(a, b float32) float32) OpFunc {
	return func(args []Operand, _ map[string]float64) (Tensor, error) {
		return eval(args, 2, func(v []float32) float32 { return f(v[0], v[1]) })
	}
}

func ternary(f func(a, b, c float32) float32) OpFunc {
	return func(args []Operand, _ map[string]float64) (Tensor, error) {
		return eval(args, 3, func(v []float32) float32 { return f(v[0], v[1], v[2]) })
	}
}

func param(p map[string]float64, name string, def float32) float32 {
	if p == nil {
		return def
	}
	if v, ok := p[name]; ok {
		return float32(v)
	}
	return def
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func sigmoid(a float32) float32 { return 1 / (1 + math32.Exp(-a)) }

// simOps is the device operation namespace. Built once; read-only.
var simOps = map[string]OpFunc{
	// unary
	"abs":        unary(math32.Abs),
	"acos":       unary(math32.Acos),
	"acosh":      unary(math32.Acosh),
	"asin":       unary(math32.Asin),
	"asinh":      unary(math32.Asinh),
	"atan":       unary(math32.Atan),
	"atanh":      unary(math32.Atanh),
	"cbrt":       unary(math32.Cbrt),
	"ceil":       unary(math32.Ceil),
	"clone":      unary(func(a float32) float32 { return a }),
	"cos":        unary(math32.Cos),
	"cosh":       unary(math32.Cosh),
	"deg2rad":    unary(func(a float32) float32 { return a * math32.Pi / 180 }),
	"eqz":        unary(func(a float32) float32 { return b2f(a == 0) }),
	"erf":        unary(math32.Erf),
	"erfc":       unary(math32.Erfc),
	"exp":        unary(math32.Exp),
	"exp2":       unary(math32.Exp2),
	"expm1":      unary(math32.Expm1),
	"floor":      unary(math32.Floor),
	"frac":       unary(func(a float32) float32 { return a - math32.Trunc(a) }),
	"gelu":       unary(func(a float32) float32 { return 0.5 * a * (1 + math32.Erf(a/math32.Sqrt2)) }),
	"gez":        unary(func(a float32) float32 { return b2f(a >= 0) }),
	"gtz":        unary(func(a float32) float32 { return b2f(a > 0) }),
	"identity":   unary(func(a float32) float32 { return a }),
	"isfinite":   unary(func(a float32) float32 { return b2f(!math32.IsInf(a, 0) && !math32.IsNaN(a)) }),
	"isinf":      unary(func(a float32) float32 { return b2f(math32.IsInf(a, 0)) }),
	"isnan":      unary(func(a float32) float32 { return b2f(math32.IsNaN(a)) }),
	"isneginf":   unary(func(a float32) float32 { return b2f(math32.IsInf(a, -1)) }),
	"isposinf":   unary(func(a float32) float32 { return b2f(math32.IsInf(a, 1)) }),
	"lez":        unary(func(a float32) float32 { return b2f(a <= 0) }),
	"log":        unary(math32.Log),
	"log10":      unary(math32.Log10),
	"log1p":      unary(math32.Log1p),
	"log2":       unary(math32.Log2),
	"log_sigmoid": unary(func(a float32) float32 { return math32.Log(sigmoid(a)) }),
	"logical_not": unary(func(a float32) float32 { return b2f(a == 0) }),
	"ltz":        unary(func(a float32) float32 { return b2f(a < 0) }),
	"neg":        unary(func(a float32) float32 { return -a }),
	"nez":        unary(func(a float32) float32 { return b2f(a != 0) }),
	"rad2deg":    unary(func(a float32) float32 { return a * 180 / math32.Pi }),
	"reciprocal": unary(func(a float32) float32 { return 1 / a }),
	"relu":       unary(func(a float32) float32 { return math32.Max(a, 0) }),
	"relu6":      unary(func(a float32) float32 { return math32.Min(math32.Max(a, 0), 6) }),
	"round":      unary(math32.Round),
	"rsqrt":      unary(func(a float32) float32 { return 1 / math32.Sqrt(a) }),
	"sigmoid":    unary(sigmoid),
	"sigmoid_accurate": unary(sigmoid),
	"sign": unary(func(a float32) float32 {
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		}
		return 0
	}),
	"signbit":  unary(func(a float32) float32 { return b2f(math32.Signbit(a)) }),
	"silu":     unary(func(a float32) float32 { return a * sigmoid(a) }),
	"sin":      unary(math32.Sin),
	"sinh":     unary(math32.Sinh),
	"softplus": unary(func(a float32) float32 { return math32.Log1p(math32.Exp(a)) }),
	"softsign": unary(func(a float32) float32 { return a / (1 + math32.Abs(a)) }),
	"sqrt":     unary(math32.Sqrt),
	"square":   unary(func(a float32) float32 { return a * a }),
	"swish":    unary(func(a float32) float32 { return a * sigmoid(a) }),
	"tan":      unary(math32.Tan),
	"tanh":     unary(math32.Tanh),
	"trunc":    unary(math32.Trunc),

	// unary with optional scalar parameters
	"elu": func(args []Operand, p map[string]float64) (Tensor, error) {
		alpha := param(p, "alpha", 1)
		return eval(args, 1, func(v []float32) float32 {
			if v[0] > 0 {
				return v[0]
			}
			return alpha * math32.Expm1(v[0])
		})
	},
	"prelu": func(args []Operand, p map[string]float64) (Tensor, error) {
		weight := param(p, "weight", 0.25)
		return eval(args, 1, func(v []float32) float32 {
			if v[0] >= 0 {
				return v[0]
			}
			return weight * v[0]
		})
	},
	"threshold": func(args []Operand, p map[string]float64) (Tensor, error) {
		threshold := param(p, "threshold", 0)
		value := param(p, "value", 0)
		return eval(args, 1, func(v []float32) float32 {
			if v[0] > threshold {
				return v[0]
			}
			return value
		})
	},
	"heaviside": func(args []Operand, p map[string]float64) (Tensor, error) {
		value := param(p, "value", 0)
		return eval(args, 1, func(v []float32) float32 {
			switch {
			case v[0] > 0:
				return 1
			case v[0] < 0:
				return 0
			}
			return value
		})
	},
	"leaky_relu": func(args []Operand, p map[string]float64) (Tensor, error) {
		slope := param(p, "negative_slope", 0.01)
		return eval(args, 1, func(v []float32) float32 {
			if v[0] >= 0 {
				return v[0]
			}
			return slope * v[0]
		})
	},

	// binary
	"add":      binary(func(a, b float32) float32 { return a + b }),
	"subtract": binary(func(a, b float32) float32 { return a - b }),
	"mul":      binary(func(a, b float32) float32 { return a * b }),
	"multiply": binary(func(a, b float32) float32 { return a * b }),
	"div":      binary(func(a, b float32) float32 { return a / b }),
	"divide":   binary(func(a, b float32) float32 { return a / b }),
	"div_no_nan": binary(func(a, b float32) float32 {
		if b == 0 {
			return 0
		}
		return a / b
	}),
	"floor_div": binary(func(a, b float32) float32 { return math32.Floor(a / b) }),
	"fmod":      binary(math32.Mod),
	"remainder": binary(func(a, b float32) float32 { return a - b*math32.Floor(a/b) }),
	"pow":       binary(math32.Pow),
	"maximum":   binary(math32.Max),
	"minimum":   binary(math32.Min),
	"hypot":     binary(math32.Hypot),
	"atan2":     binary(math32.Atan2),
	"logaddexp": binary(func(a, b float32) float32 {
		m := math32.Max(a, b)
		return m + math32.Log(math32.Exp(a-m)+math32.Exp(b-m))
	}),
	"logaddexp2": binary(func(a, b float32) float32 {
		m := math32.Max(a, b)
		return m + math32.Log2(math32.Exp2(a-m)+math32.Exp2(b-m))
	}),
	"squared_difference": binary(func(a, b float32) float32 { return (a - b) * (a - b) }),
	"xlogy": binary(func(a, b float32) float32 {
		if a == 0 {
			return 0
		}
		return a * math32.Log(b)
	}),
	"gt":          binary(func(a, b float32) float32 { return b2f(a > b) }),
	"lt":          binary(func(a, b float32) float32 { return b2f(a < b) }),
	"ge":          binary(func(a, b float32) float32 { return b2f(a >= b) }),
	"le":          binary(func(a, b float32) float32 { return b2f(a <= b) }),
	"eq":          binary(func(a, b float32) float32 { return b2f(a == b) }),
	"ne":          binary(func(a, b float32) float32 { return b2f(a != b) }),
	"logical_and": binary(func(a, b float32) float32 { return b2f(a != 0 && b != 0) }),
	"logical_or":  binary(func(a, b float32) float32 { return b2f(a != 0 || b != 0) }),
	"logical_xor": binary(func(a, b float32) float32 { return b2f((a != 0) != (b != 0)) }),

	// binary with optional scalar parameters
	"addalpha": func(args []Operand, p map[string]float64) (Tensor, error) {
		alpha := param(p, "alpha", 1)
		return eval(args, 2, func(v []float32) float32 { return v[0] + alpha*v[1] })
	},
	"subalpha": func(args []Operand, p map[string]float64) (Tensor, error) {
		alpha := param(p, "alpha", 1)
		return eval(args, 2, func(v []float32) float32 { return v[0] - alpha*v[1] })
	},

	// ternary
	"mac": ternary(func(a, b, c float32) float32 { return a + b*c }),
	"where": ternary(func(a, b, c float32) float32 {
		if a != 0 {
			return b
		}
		return c
	}),
	"lerp": ternary(func(a, b, c float32) float32 { return a + c*(b-a) }),
	"addcmul": func(args []Operand, p map[string]float64) (Tensor, error) {
		value := param(p, "value", 1)
		return eval(args, 3, func(v []float32) float32 { return v[0] + value*v[1]*v[2] })
	},
	"addcdiv": func(args []Operand, p map[string]float64) (Tensor, error) {
		value := param(p, "value", 1)
		return eval(args, 3, func(v []float32) float32 { return v[0] + value*v[1]/v[2] })
	},
}
