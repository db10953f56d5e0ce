package lazy

import (
	"errors"
	"fmt"
)

// Errors returned by array operations.
var (
	// ErrEvaluation is matched by every EvaluationError.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrFallback reports a failure of eager host execution.
	ErrFallback = errors.New("host execution failed")
	// ErrUnsafeCast reports an in-place result that cannot be stored in the
	// target's dtype without losing its kind (float into integer).
	ErrUnsafeCast = errors.New("unsafe cast")
	// ErrArity reports an operation applied to the wrong number of operands.
	ErrArity = errors.New("wrong number of operands")
	// ErrNoArray reports an operation whose operands are all scalars.
	ErrNoArray = errors.New("operation needs at least one array operand")
	// ErrForeignArray reports an array created by a different context.
	ErrForeignArray = errors.New("array belongs to another context")
)

// EvaluationError is returned when compiling or running a pending
// expression fails. No buffer is modified when it is returned.
type EvaluationError struct {
	Array string // the array being evaluated
	Err   error  // the compiler or executor failure
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Array, e.Err)
}

// Unwrap returns the underlying failure.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEvaluation.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}
