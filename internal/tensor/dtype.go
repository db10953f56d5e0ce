// Package tensor provides the host storage primitives for lazyarray:
// typed 1-D buffers, views that share storage with their base, and the
// runtime data type model.
package tensor

import "fmt"

// DType is a constraint for supported element types.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// DataType represents runtime type information for buffers.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// Suffix returns the literal suffix used when rendering constants of this
// type in program text (f for float32, L for int64).
func (dt DataType) Suffix() string {
	switch dt {
	case Float32:
		return "f"
	case Int64:
		return "L"
	default:
		return ""
	}
}

// ParseDataType maps a data type name back to its DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", name)
	}
}

// rank orders data types for promotion: float64 > float32 > int64 > int32.
func (dt DataType) rank() int {
	switch dt {
	case Int32:
		return 0
	case Int64:
		return 1
	case Float32:
		return 2
	case Float64:
		return 3
	default:
		panic("unknown data type")
	}
}

// Promote returns the result type of a binary operation on a and b.
//
// Rules:
//   - identical types are preserved
//   - float64 dominates float32 dominates int64 dominates int32
//   - any float/int mix promotes to float64, since neither float32 nor the
//     integer type can hold every value of the other
func Promote(a, b DataType) DataType {
	if a == b {
		return a
	}
	if a.IsFloat() != b.IsFloat() {
		return Float64
	}
	if a.rank() > b.rank() {
		return a
	}
	return b
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		panic("unsupported type")
	}
}

// TypeOf returns the DataType corresponding to T.
func TypeOf[T DType]() DataType {
	var dummy T
	return inferDataType(dummy)
}
