package tensor

import (
	"fmt"
	"math"
)

// Zeros creates a 1-D buffer of n zero elements.
//
// Example:
//
//	raw := tensor.Zeros(8, tensor.Float32)
func Zeros(n int, dtype DataType) *RawTensor {
	raw, err := NewRaw(Shape{n}, dtype, CPU)
	if err != nil {
		panic(err) // Shape validation should prevent this for n >= 0
	}
	return raw
}

// FromSlice creates a buffer from a Go slice.
// The slice is copied into the buffer's memory.
//
// Example:
//
//	raw := tensor.FromSlice([]float32{1, 2, 3})
func FromSlice[T DType](data []T) *RawTensor {
	raw := Zeros(len(data), TypeOf[T]())
	copy(elems[T](raw), data)
	return raw
}

// FromFloat64 creates a buffer of the given dtype from float64 values,
// converting each element.
func FromFloat64(values []float64, dtype DataType) *RawTensor {
	raw := Zeros(len(values), dtype)
	for i, v := range values {
		writeFloat64(raw, i, v)
	}
	return raw
}

// Arange creates a buffer holding start, start+1, ..., end-1.
func Arange(start, end int, dtype DataType) *RawTensor {
	if end < start {
		panic("end must be greater than or equal to start")
	}
	raw := Zeros(end-start, dtype)
	for i := range end - start {
		writeFloat64(raw, i, float64(start+i))
	}
	return raw
}

// ToFloat64 copies the elements of r out as float64 values.
func ToFloat64(r *RawTensor) []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, r.AsFloat64())
	case Int32:
		for i, v := range r.AsInt32() {
			out[i] = float64(v)
		}
	case Int64:
		for i, v := range r.AsInt64() {
			out[i] = float64(v)
		}
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
	return out
}

// At returns element i of r as its native Go type.
func At(r *RawTensor, i int) (any, error) {
	if i < 0 || i >= r.NumElements() {
		return nil, fmt.Errorf("index %d of length %d: %w", i, r.NumElements(), ErrOutOfRange)
	}
	switch r.dtype {
	case Float32:
		return r.AsFloat32()[i], nil
	case Float64:
		return r.AsFloat64()[i], nil
	case Int32:
		return r.AsInt32()[i], nil
	case Int64:
		return r.AsInt64()[i], nil
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

// SetAt stores v at element i of r, converting it to r's dtype.
func SetAt(r *RawTensor, i int, v any) error {
	if i < 0 || i >= r.NumElements() {
		return fmt.Errorf("index %d of length %d: %w", i, r.NumElements(), ErrOutOfRange)
	}
	f, err := ScalarFloat64(v)
	if err != nil {
		return err
	}
	if !r.dtype.IsFloat() {
		// Integers go through int64 so large values are not rounded.
		n, err := ScalarInt64(v)
		if err != nil {
			return err
		}
		if r.dtype == Int32 {
			r.AsInt32()[i] = int32(n) //nolint:gosec // G115: truncation matches C-style assignment
		} else {
			r.AsInt64()[i] = n
		}
		return nil
	}
	writeFloat64(r, i, f)
	return nil
}

// ScalarFloat64 converts a Go numeric value to float64.
func ScalarFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
	}
}

// ScalarInt64 converts a Go numeric value to int64, truncating floats
// toward zero.
func ScalarInt64(v any) (int64, error) {
	switch x := v.(type) {
	case float32:
		return int64(math.Trunc(float64(x))), nil
	case float64:
		return int64(math.Trunc(x)), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
	}
}

func writeFloat64(r *RawTensor, i int, v float64) {
	switch r.dtype {
	case Float32:
		r.AsFloat32()[i] = float32(v)
	case Float64:
		r.AsFloat64()[i] = v
	case Int32:
		r.AsInt32()[i] = int32(v)
	case Int64:
		r.AsInt64()[i] = int64(v)
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}
