// Package promote decides result types and which operations may be
// deferred.
//
// A Table is built once, usually from configuration, and is immutable
// afterwards. The engine consults it on every operation: when a check fails
// the operation is not an error, it is executed eagerly on the host runtime
// instead.
package promote

import (
	"errors"
	"fmt"
	"slices"

	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Reasons for not deferring an operation. Neither is fatal.
var (
	ErrUnsupportedOperation = errors.New("operation is not deferrable")
	ErrTypeMismatch         = errors.New("operand types are not deferrable")
)

// Table holds the deferrable operation and dtype sets.
type Table struct {
	unary       []expr.UnaryFn
	binary      []expr.BinaryFn
	dtypes      []tensor.DataType
	unaryDTypes []tensor.DataType
}

// NewTable creates a table. The slices are copied.
func NewTable(unary []expr.UnaryFn, binary []expr.BinaryFn, dtypes, unaryDTypes []tensor.DataType) *Table {
	return &Table{
		unary:       slices.Clone(unary),
		binary:      slices.Clone(binary),
		dtypes:      slices.Clone(dtypes),
		unaryDTypes: slices.Clone(unaryDTypes),
	}
}

// Default returns the table with every deferrable operation enabled, all
// four dtypes for binary operations and float dtypes for unary ones.
func Default() *Table {
	return NewTable(
		[]expr.UnaryFn{expr.Exp, expr.Log, expr.Sqrt},
		[]expr.BinaryFn{expr.Add, expr.Subtract, expr.Multiply, expr.Divide},
		[]tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64},
		[]tensor.DataType{tensor.Float32, tensor.Float64},
	)
}

// Resolve returns the result dtype of a binary operation on a and b:
// float64 dominates float32 dominates int64 dominates int32, and any
// float/int mix promotes to float64.
func (t *Table) Resolve(a, b tensor.DataType) tensor.DataType {
	return tensor.Promote(a, b)
}

// Deferrable reports whether a binary operation on a and b may be deferred.
// Only identical dtypes are deferred, and only when the expression type
// system represents them.
func (t *Table) Deferrable(a, b tensor.DataType) bool {
	return a == b && slices.Contains(t.dtypes, a)
}

// DeferrableUnary reports whether fn may be deferred on dt.
func (t *Table) DeferrableUnary(fn expr.UnaryFn, dt tensor.DataType) bool {
	return slices.Contains(t.unary, fn) && slices.Contains(t.unaryDTypes, dt)
}

// CheckUnary returns nil if op on dt can be deferred, and otherwise the
// reason it has to run on the host.
func (t *Table) CheckUnary(op expr.Op, dt tensor.DataType) error {
	switch o := op.(type) {
	case expr.Unary:
		if t.DeferrableUnary(o.Fn, dt) {
			return nil
		}
		if !slices.Contains(t.unary, o.Fn) {
			return fmt.Errorf("%s: %w", o.Fn, ErrUnsupportedOperation)
		}
		return fmt.Errorf("%s on %s: %w", o.Fn, dt, ErrTypeMismatch)
	case expr.HostFallback:
		return fmt.Errorf("%s: %w", o.Fn, ErrUnsupportedOperation)
	case expr.Binary:
		return fmt.Errorf("%s takes two operands: %w", o.Fn, ErrUnsupportedOperation)
	default:
		panic(fmt.Sprintf("promote: unknown op %T", op))
	}
}

// CheckBinary returns nil if op on a and b can be deferred, and otherwise
// the reason it has to run on the host.
func (t *Table) CheckBinary(op expr.Op, a, b tensor.DataType) error {
	switch o := op.(type) {
	case expr.Binary:
		if !slices.Contains(t.binary, o.Fn) {
			return fmt.Errorf("%s: %w", o.Fn, ErrUnsupportedOperation)
		}
		if !t.Deferrable(a, b) {
			return fmt.Errorf("%s on %s and %s: %w", o.Fn, a, b, ErrTypeMismatch)
		}
		return nil
	case expr.Unary, expr.HostFallback:
		return fmt.Errorf("%s takes one operand: %w", op.Name(), ErrUnsupportedOperation)
	default:
		panic(fmt.Sprintf("promote: unknown op %T", op))
	}
}

// ScalarType returns the dtype a scalar operand takes when combined with an
// array of dtype dt. Integer scalars adopt any array dtype; float scalars
// only adopt float dtypes. ok is false when the combination would need
// promotion.
func (t *Table) ScalarType(dt tensor.DataType, value any) (tensor.DataType, bool) {
	switch value.(type) {
	case int, int32, int64:
		return dt, true
	case float32, float64:
		return dt, dt.IsFloat()
	default:
		return dt, false
	}
}
