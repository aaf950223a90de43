// Package device defines the accelerator driver contract and the scoped
// open/close lifecycle. A Handle is owned by exactly one request at a
// time and is never cached across requests: one open/close pair per
// computation.
package device

import "context"

// DType names the element types supported on the accelerator.
type DType string

const (
	UInt8    DType = "uint8"
	UInt16   DType = "uint16"
	Int32    DType = "int32"
	UInt32   DType = "uint32"
	Float32  DType = "float32"
	BFloat16 DType = "bfloat16"
	BFloat8B DType = "bfloat8_b"
	BFloat4B DType = "bfloat4_b"
)

// ParseDType maps a wire dtype string to a DType, defaulting to bfloat16
// like the accelerator SDK does.
func ParseDType(s string) DType {
	switch DType(s) {
	case UInt8, UInt16, Int32, UInt32, Float32, BFloat16, BFloat8B, BFloat4B:
		return DType(s)
	default:
		return BFloat16
	}
}

// HostTensor is a host-resident tensor in row-major layout.
type HostTensor struct {
	Shape []int
	DType DType
	Data  []float32
}

// NumElements returns the flattened element count of shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Uniform builds a host tensor of the given shape filled with value.
func Uniform(shape []int, dt DType, value float32) HostTensor {
	data := make([]float32, NumElements(shape))
	for i := range data {
		data[i] = value
	}
	return HostTensor{Shape: append([]int(nil), shape...), DType: dt, Data: data}
}

// Tensor is a device-resident tensor. Opaque outside the driver.
type Tensor interface {
	Shape() []int
	DType() DType
}

// Operand is one argument to a device operation: a device tensor or a
// plain scalar.
type Operand struct {
	Tensor Tensor
	Scalar float64
}

// IsScalar reports whether the operand carries no tensor.
func (o Operand) IsScalar() bool { return o.Tensor == nil }

// OpFunc executes one named operation on the device. params carries the
// operation's optional scalar parameters by their declared keyword names;
// missing keys fall back to the operation's own defaults.
type OpFunc func(args []Operand, params map[string]float64) (Tensor, error)

// Handle is an open connection to the accelerator. Exactly one Close per
// Open; Close after a lost device must not panic.
type Handle interface {
	// ID returns the hardware device id this handle is bound to.
	ID() int
	// FromHost transfers a host tensor onto the device in tile layout.
	FromHost(t HostTensor) (Tensor, error)
	// ToHost reads a device tensor back into host memory.
	ToHost(t Tensor) (HostTensor, error)
	// Op resolves an operation by name in the device namespace.
	Op(name string) (OpFunc, bool)
	// Close releases the device connection. Idempotent-safe.
	Close() error
}

// Driver opens device handles. Implementations: the simulated in-process
// backend (Sim), or a binding to the real accelerator SDK.
type Driver interface {
	Open(ctx context.Context, id int) (Handle, error)
}
