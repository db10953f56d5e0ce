package cpu

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value.
// The scalar is converted to x's dtype before the loop runs.

// AddScalar adds a scalar value to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.withScalar("addScalar", x, scalar, addKernel)
}

// SubScalar subtracts a scalar value from each element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.withScalar("subScalar", x, scalar, subKernel)
}

// MulScalar multiplies each element by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.withScalar("mulScalar", x, scalar, mulKernel)
}

// DivScalar divides each element by a scalar value.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.withScalar("divScalar", x, scalar, divKernel)
}

// withScalar broadcasts the scalar into a buffer of x's length and reuses
// the binary kernels, so scalar and array paths round identically.
func (cpu *CPUBackend) withScalar(op string, x *tensor.RawTensor, scalar any, k binaryKernels) *tensor.RawTensor {
	fill, err := cpu.Fill(x.NumElements(), x.DType(), scalar)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return cpu.binary(op, x, fill, k)
}

// Fill creates a buffer of n copies of value converted to dtype.
func (cpu *CPUBackend) Fill(n int, dtype tensor.DataType, value any) (*tensor.RawTensor, error) {
	result := cpu.newResult("fill", n, dtype)
	if n == 0 {
		return result, nil
	}
	if err := tensor.SetAt(result, 0, value); err != nil {
		return nil, err
	}
	switch dtype {
	case tensor.Float32:
		fillLoop(result.AsFloat32())
	case tensor.Float64:
		fillLoop(result.AsFloat64())
	case tensor.Int32:
		fillLoop(result.AsInt32())
	case tensor.Int64:
		fillLoop(result.AsInt64())
	default:
		return nil, fmt.Errorf("fill: unsupported dtype %s", dtype)
	}
	return result, nil
}

// fillLoop copies element 0 into every other element.
func fillLoop[T number](dst []T) {
	for i := 1; i < len(dst); i++ {
		dst[i] = dst[0]
	}
}
