package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by CompileError and ExecutionError.
var (
	ErrCompile   = errors.New("kernel compile failed")
	ErrExecution = errors.New("kernel execution failed")
)

// CompileError is returned when an expression cannot be turned into a
// program.
type CompileError struct {
	Node   string // s-expression of the offending node
	Reason string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %s", e.Node, e.Reason)
}

// Is reports whether target is ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// ExecutionError is returned when running a program fails. Err holds the
// underlying cause, which for a failing host kernel is the recovered panic.
type ExecutionError struct {
	Step int // index of the failing instruction, -1 for input validation
	Err  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("run: %v", e.Err)
	}
	return fmt.Sprintf("run step %d: %v", e.Step, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
