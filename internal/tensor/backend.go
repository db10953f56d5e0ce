package tensor

// Backend defines the host array runtime: allocation plus eager
// elementwise execution. The deferred engine uses it as its fallback path
// and the kernel executor uses it to run compiled programs.
//
// Binary operations require operands of identical dtype and length;
// callers cast first (see Promote). Scalar operations take a Go numeric
// value that is converted to the operand's dtype.
type Backend interface {
	// Storage
	Allocate(n int, dtype DataType) *RawTensor
	Read(x *RawTensor, i int) (any, error)
	Write(x *RawTensor, i int, v any) error
	Fill(n int, dtype DataType, value any) (*RawTensor, error)

	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	MulScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor  // exponential
	Log(x *RawTensor) *RawTensor  // natural logarithm
	Sqrt(x *RawTensor) *RawTensor // square root
	Sin(x *RawTensor) *RawTensor  // sine
	Cos(x *RawTensor) *RawTensor  // cosine
	Tanh(x *RawTensor) *RawTensor // hyperbolic tangent
	Abs(x *RawTensor) *RawTensor  // absolute value
	Neg(x *RawTensor) *RawTensor  // negation
	Square(x *RawTensor) *RawTensor

	// Type conversion
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
