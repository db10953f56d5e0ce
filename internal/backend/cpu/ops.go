package cpu

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/tensor"
)

type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Add performs element-wise addition.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, addKernel)
}

// Sub performs element-wise subtraction.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, subKernel)
}

// Mul performs element-wise multiplication.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, mulKernel)
}

// Div performs element-wise division. Integer division truncates toward
// zero and panics on a zero divisor.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, divKernel)
}

// binaryKernels groups the per-dtype loops of one binary operation.
type binaryKernels struct {
	f32 func(dst, a, b []float32)
	f64 func(dst, a, b []float64)
	i32 func(dst, a, b []int32)
	i64 func(dst, a, b []int64)
}

var (
	addKernel = binaryKernels{addLoop[float32], addLoop[float64], addLoop[int32], addLoop[int64]}
	subKernel = binaryKernels{subLoop[float32], subLoop[float64], subLoop[int32], subLoop[int64]}
	mulKernel = binaryKernels{mulLoop[float32], mulLoop[float64], mulLoop[int32], mulLoop[int64]}
	divKernel = binaryKernels{divLoop[float32], divLoop[float64], intDivLoop[int32], intDivLoop[int64]}
)

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, k binaryKernels) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	if a.NumElements() != b.NumElements() {
		panic(fmt.Sprintf("%s: length mismatch %d vs %d", op, a.NumElements(), b.NumElements()))
	}

	result := cpu.newResult(op, a.NumElements(), a.DType())

	switch a.DType() {
	case tensor.Float32:
		chunked(cpu.par, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), k.f32)
	case tensor.Float64:
		chunked(cpu.par, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), k.f64)
	case tensor.Int32:
		chunked(cpu.par, result.AsInt32(), a.AsInt32(), b.AsInt32(), k.i32)
	case tensor.Int64:
		chunked(cpu.par, result.AsInt64(), a.AsInt64(), b.AsInt64(), k.i64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}

	return result
}

// chunked runs a binary loop over parallel chunks of the inputs.
func chunked[T number](cfg parallel.Config, dst, a, b []T, loop func(dst, a, b []T)) {
	parallel.Chunks(len(dst), cfg, func(lo, hi int) {
		loop(dst[lo:hi], a[lo:hi], b[lo:hi])
	})
}

func addLoop[T number](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func subLoop[T number](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

func mulLoop[T number](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func divLoop[T float32 | float64](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] / b[i]
	}
}

func intDivLoop[T int32 | int64](dst, a, b []T) {
	for i := range dst {
		if b[i] == 0 {
			panic(fmt.Sprintf("div: integer division by zero at index %d", i))
		}
		dst[i] = a[i] / b[i]
	}
}
