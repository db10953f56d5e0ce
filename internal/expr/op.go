package expr

import (
	"errors"
	"fmt"
)

// ErrUnknownOp is returned when an operation name does not name any
// supported variant.
var ErrUnknownOp = errors.New("unknown operation")

// Op is the closed set of elementwise operations. It is a tagged variant
// with exactly three cases: Unary and Binary can be deferred, HostFallback
// always runs eagerly on the host runtime. Code that dispatches on an Op
// must switch over all three and panic on anything else.
type Op interface {
	// Name returns the operation's canonical name (NumPy ufunc name).
	Name() string
	// Arity returns the number of array operands.
	Arity() int

	isOp()
}

// UnaryFn enumerates the deferrable unary operations.
type UnaryFn uint8

// Deferrable unary operations.
const (
	Exp UnaryFn = iota
	Log
	Sqrt
)

// BinaryFn enumerates the deferrable binary operations.
type BinaryFn uint8

// Deferrable binary operations.
const (
	Add BinaryFn = iota
	Subtract
	Multiply
	Divide
)

// HostFn enumerates operations that are only ever executed eagerly.
type HostFn uint8

// Host-only unary operations.
const (
	Sin HostFn = iota
	Cos
	Tanh
	Abs
	Negative
	Square
)

// Unary is a deferrable unary operation.
type Unary struct{ Fn UnaryFn }

// Binary is a deferrable binary operation.
type Binary struct{ Fn BinaryFn }

// HostFallback is an operation outside the deferrable set.
type HostFallback struct{ Fn HostFn }

func (Unary) isOp()        {}
func (Binary) isOp()       {}
func (HostFallback) isOp() {}

// Name implements Op.
func (u Unary) Name() string { return u.Fn.String() }

// Name implements Op.
func (b Binary) Name() string { return b.Fn.String() }

// Name implements Op.
func (h HostFallback) Name() string { return h.Fn.String() }

// Arity implements Op.
func (Unary) Arity() int { return 1 }

// Arity implements Op.
func (Binary) Arity() int { return 2 }

// Arity implements Op.
func (HostFallback) Arity() int { return 1 }

func (f UnaryFn) String() string {
	switch f {
	case Exp:
		return "exp"
	case Log:
		return "log"
	case Sqrt:
		return "sqrt"
	default:
		return fmt.Sprintf("UnaryFn(%d)", uint8(f))
	}
}

func (f BinaryFn) String() string {
	switch f {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	default:
		return fmt.Sprintf("BinaryFn(%d)", uint8(f))
	}
}

// Symbol returns the infix operator used in program text.
func (f BinaryFn) Symbol() string {
	switch f {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	default:
		panic(fmt.Sprintf("expr: unknown binary fn %d", uint8(f)))
	}
}

func (f HostFn) String() string {
	switch f {
	case Sin:
		return "sin"
	case Cos:
		return "cos"
	case Tanh:
		return "tanh"
	case Abs:
		return "abs"
	case Negative:
		return "negative"
	case Square:
		return "square"
	default:
		return fmt.Sprintf("HostFn(%d)", uint8(f))
	}
}

// ParseOp returns the operation with the given canonical name.
func ParseOp(name string) (Op, error) {
	for f := Exp; f <= Sqrt; f++ {
		if f.String() == name {
			return Unary{f}, nil
		}
	}
	for f := Add; f <= Divide; f++ {
		if f.String() == name {
			return Binary{f}, nil
		}
	}
	for f := Sin; f <= Square; f++ {
		if f.String() == name {
			return HostFallback{f}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, name)
}
