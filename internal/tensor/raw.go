package tensor

import (
	"errors"
	"fmt"
	"unsafe"
)

// Device represents the compute device for buffer operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// Errors returned by view and copy operations.
var (
	ErrOutOfRange       = errors.New("range out of bounds")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrDTypeMismatch    = errors.New("dtype mismatch")
	ErrUnsupportedValue = errors.New("unsupported value type")
)

// tensorBuffer is the shared backing storage of a base buffer and every view
// taken from it. Its lifetime is that of the longest holder.
type tensorBuffer struct {
	data []byte
	size int // element count of the base allocation
}

// RawTensor is the low-level buffer representation: a typed window
// [offset, offset+NumElements()) over shared storage.
type RawTensor struct {
	buffer *tensorBuffer // Shared buffer
	shape  Shape         // Dimensions of this view
	stride []int         // Memory strides (row-major)
	dtype  DataType      // Runtime type information
	device Device        // Compute device
	offset int           // Element offset into buffer
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	numElements := shape.NumElements()

	return &RawTensor{
		buffer: &tensorBuffer{
			data: make([]byte, numElements*dtype.Size()),
			size: numElements,
		},
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
		offset: 0,
	}, nil
}

// Shape returns the view's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the view's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the number of elements visible through this view.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Offset returns the absolute element offset of this view in its buffer.
func (r *RawTensor) Offset() int {
	return r.offset
}

// BufferLen returns the element count of the underlying base allocation.
func (r *RawTensor) BufferLen() int {
	return r.buffer.size
}

// ByteSize returns the memory size of this view in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw bytes of this view.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	start := r.offset * r.dtype.Size()
	return r.buffer.data[start : start+r.ByteSize()]
}

// SharesBuffer reports whether r and other are views of the same storage.
func (r *RawTensor) SharesBuffer(other *RawTensor) bool {
	return other != nil && r.buffer == other.buffer
}

// Base returns a view covering the whole underlying buffer.
func (r *RawTensor) Base() *RawTensor {
	if r.offset == 0 && r.NumElements() == r.buffer.size {
		return r
	}
	return r.window(0, r.buffer.size)
}

// View returns a 1-D view of elements [lo, hi) of r. The view shares storage
// with r, and its offset is absolute: a view of a view never stores an
// indirect offset.
func (r *RawTensor) View(lo, hi int) (*RawTensor, error) {
	if lo < 0 || hi < lo || hi > r.NumElements() {
		return nil, fmt.Errorf("view [%d:%d) of length %d: %w", lo, hi, r.NumElements(), ErrOutOfRange)
	}
	return r.window(r.offset+lo, hi-lo), nil
}

// window builds a view at an absolute offset.
func (r *RawTensor) window(offset, n int) *RawTensor {
	shape := Shape{n}
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape,
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		device: r.device,
		offset: offset,
	}
}

// Copy returns a deep copy of the visible elements in fresh storage.
func (r *RawTensor) Copy() *RawTensor {
	out, _ := NewRaw(Shape{r.NumElements()}, r.dtype, r.device)
	copy(out.buffer.data, r.Data())
	return out
}

// CopyFrom overwrites the visible elements of r with the elements of src.
// Overlapping source and destination are handled by copy semantics.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if src.dtype != r.dtype {
		return fmt.Errorf("copy %s into %s: %w", src.dtype, r.dtype, ErrDTypeMismatch)
	}
	if src.NumElements() != r.NumElements() {
		return fmt.Errorf("copy %d elements into %d: %w", src.NumElements(), r.NumElements(), ErrLengthMismatch)
	}
	copy(r.Data(), src.Data())
	return nil
}

// AsFloat32 interprets the data as []float32.
// Panics if the dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return elems[float32](r)
}

// AsFloat64 interprets the data as []float64.
// Panics if the dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	return elems[float64](r)
}

// AsInt32 interprets the data as []int32.
// Panics if the dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	return elems[int32](r)
}

// AsInt64 interprets the data as []int64.
// Panics if the dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	return elems[int64](r)
}

// Elements returns a zero-copy typed slice of r.
// Panics if T does not match the dtype.
func Elements[T DType](r *RawTensor) []T {
	if dt := TypeOf[T](); dt != r.dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
	return elems[T](r)
}

func elems[T DType](r *RawTensor) []T {
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}
