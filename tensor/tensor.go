// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for element types.
// Supported types: float32, float64, int32, int64.
type DType = tensor.DType

// DataType represents the runtime element type of a buffer.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device represents the device where buffer data resides.
type Device = tensor.Device

// CPU is the only device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a buffer.
type Shape = tensor.Shape

// RawTensor is a typed window over shared storage.
//
// RawTensor provides:
//   - Type information via DType(), NumElements(), Offset()
//   - Zero-copy typed access via AsFloat32(), AsInt64(), etc.
//   - Views sharing storage via View(lo, hi)
//   - Copies via Copy() and CopyFrom()
type RawTensor = tensor.RawTensor

// Errors returned by buffer operations.
var (
	ErrOutOfRange       = tensor.ErrOutOfRange
	ErrLengthMismatch   = tensor.ErrLengthMismatch
	ErrDTypeMismatch    = tensor.ErrDTypeMismatch
	ErrUnsupportedValue = tensor.ErrUnsupportedValue
)

// Creation functions

// NewRaw creates a zeroed buffer.
// This is a low-level function. Most users should use Zeros or FromSlice.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a buffer of n zero elements.
//
// Example:
//
//	raw := tensor.Zeros(8, tensor.Float32)
func Zeros(n int, dtype DataType) *RawTensor {
	return tensor.Zeros(n, dtype)
}

// FromSlice creates a buffer holding a copy of data.
//
// Example:
//
//	raw := tensor.FromSlice([]int64{1, 2, 3})
func FromSlice[T DType](data []T) *RawTensor {
	return tensor.FromSlice(data)
}

// FromFloat64 creates a buffer of dtype from float64 values.
func FromFloat64(values []float64, dtype DataType) *RawTensor {
	return tensor.FromFloat64(values, dtype)
}

// Arange creates a buffer holding start, start+1, ..., end-1.
//
// Example:
//
//	raw := tensor.Arange(0, 10, tensor.Float64) // [0, 1, ..., 9]
func Arange(start, end int, dtype DataType) *RawTensor {
	return tensor.Arange(start, end, dtype)
}

// ToFloat64 copies the elements of r out as float64 values.
func ToFloat64(r *RawTensor) []float64 {
	return tensor.ToFloat64(r)
}

// Elements returns a zero-copy typed slice of r.
// Panics if T does not match r's dtype.
func Elements[T DType](r *RawTensor) []T {
	return tensor.Elements[T](r)
}

// Promote returns the result type of a binary operation on a and b.
func Promote(a, b DataType) DataType {
	return tensor.Promote(a, b)
}

// ParseDataType maps a data type name such as "float32" to its DataType.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}
