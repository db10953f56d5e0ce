package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Transcendental functions follow NumPy: integer inputs are computed in
// float64 and produce a float64 result, float32 inputs stay float32.
// Out-of-domain inputs produce NaN or ±Inf rather than a panic.

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("exp", x, math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("log", x, math.Log)
}

// Sqrt computes element-wise square root: sqrt(x).
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("sqrt", x, math.Sqrt)
}

// Sin computes element-wise sine.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("sin", x, math.Sin)
}

// Cos computes element-wise cosine.
func (cpu *CPUBackend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("cos", x, math.Cos)
}

// Tanh computes element-wise hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.transcendental("tanh", x, math.Tanh)
}

func (cpu *CPUBackend) transcendental(op string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		result := cpu.newResult(op, x.NumElements(), tensor.Float32)
		mapLoop(cpu.par, result.AsFloat32(), x.AsFloat32(), func(v float32) float32 {
			return float32(f(float64(v)))
		})
		return result
	case tensor.Float64:
		result := cpu.newResult(op, x.NumElements(), tensor.Float64)
		mapLoop(cpu.par, result.AsFloat64(), x.AsFloat64(), f)
		return result
	case tensor.Int32, tensor.Int64:
		return cpu.transcendental(op, cpu.Cast(x, tensor.Float64), f)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
	}
}

// Abs computes element-wise absolute value, preserving dtype.
func (cpu *CPUBackend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newResult("abs", x.NumElements(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		mapLoop(cpu.par, result.AsFloat32(), x.AsFloat32(), absOf[float32])
	case tensor.Float64:
		mapLoop(cpu.par, result.AsFloat64(), x.AsFloat64(), absOf[float64])
	case tensor.Int32:
		mapLoop(cpu.par, result.AsInt32(), x.AsInt32(), absOf[int32])
	case tensor.Int64:
		mapLoop(cpu.par, result.AsInt64(), x.AsInt64(), absOf[int64])
	default:
		panic(fmt.Sprintf("abs: unsupported dtype %s", x.DType()))
	}
	return result
}

// Neg computes element-wise negation, preserving dtype.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.MulScalar(x, -1)
}

// Square computes element-wise x*x, preserving dtype.
func (cpu *CPUBackend) Square(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.Mul(x, x)
}

func absOf[T number](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// mapLoop applies f to every element of src, writing dst in parallel chunks.
func mapLoop[S, D number](cfg parallel.Config, dst []D, src []S, f func(S) D) {
	parallel.Chunks(len(dst), cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = f(src[i])
		}
	})
}
