package cpu

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/tensor"
)

// Cast converts the tensor to a different data type.
// Float to integer conversion truncates toward zero.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	// No-op if same dtype
	if x.DType() == dtype {
		return x
	}

	result := cpu.newResult("cast", x.NumElements(), dtype)

	switch x.DType() {
	case tensor.Float32:
		castFrom(cpu, result, x.AsFloat32())
	case tensor.Float64:
		castFrom(cpu, result, x.AsFloat64())
	case tensor.Int32:
		castFrom(cpu, result, x.AsInt32())
	case tensor.Int64:
		castFrom(cpu, result, x.AsInt64())
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %v", x.DType()))
	}

	return result
}

func castFrom[S number](cpu *CPUBackend, result *tensor.RawTensor, src []S) {
	switch result.DType() {
	case tensor.Float32:
		mapLoop(cpu.par, result.AsFloat32(), src, func(v S) float32 { return float32(v) })
	case tensor.Float64:
		mapLoop(cpu.par, result.AsFloat64(), src, func(v S) float64 { return float64(v) })
	case tensor.Int32:
		mapLoop(cpu.par, result.AsInt32(), src, func(v S) int32 { return int32(v) })
	case tensor.Int64:
		mapLoop(cpu.par, result.AsInt64(), src, func(v S) int64 { return int64(v) })
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %v", result.DType()))
	}
}

// Promote casts a and b to their common result type (see tensor.Promote).
func (cpu *CPUBackend) Promote(a, b *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor) {
	dt := tensor.Promote(a.DType(), b.DType())
	return cpu.Cast(a, dt), cpu.Cast(b, dt)
}
