// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import (
	"log/slog"

	"github.com/born-ml/lazyarray/internal/alias"
	"github.com/born-ml/lazyarray/internal/config"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/kernel"
	"github.com/born-ml/lazyarray/internal/lazy"
	"github.com/born-ml/lazyarray/internal/promote"
	"github.com/born-ml/lazyarray/tensor"
)

// Type aliases for public API

// Context creates arrays and runs every operation on them.
type Context = lazy.Context

// Array is a handle on a range of a shared buffer, with an optional
// pending expression.
type Array = lazy.Array

// Operand is an operation input: an *Array or a Scalar.
type Operand = lazy.Operand

// Scalar is a numeric operand broadcast to the length of the arrays it is
// combined with.
type Scalar = lazy.Scalar

// Option configures a Context.
type Option = lazy.Option

// Compiler turns a pending expression into an Executable.
type Compiler = lazy.Compiler

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc = lazy.CompilerFunc

// Executable is a compiled expression.
type Executable = lazy.Executable

// EvaluationError is returned when compiling or running a pending
// expression fails. No buffer is modified when it is returned.
type EvaluationError = lazy.EvaluationError

// Op is an elementwise operation.
type Op = expr.Op

// Config is the engine configuration.
type Config = config.Config

// Operations. Exp, Log, Sqrt and the four arithmetic operations can be
// deferred; the rest always run on the host.
var (
	Exp      Op = expr.Unary{Fn: expr.Exp}
	Log      Op = expr.Unary{Fn: expr.Log}
	Sqrt     Op = expr.Unary{Fn: expr.Sqrt}
	Add      Op = expr.Binary{Fn: expr.Add}
	Subtract Op = expr.Binary{Fn: expr.Subtract}
	Multiply Op = expr.Binary{Fn: expr.Multiply}
	Divide   Op = expr.Binary{Fn: expr.Divide}
	Sin      Op = expr.HostFallback{Fn: expr.Sin}
	Cos      Op = expr.HostFallback{Fn: expr.Cos}
	Tanh     Op = expr.HostFallback{Fn: expr.Tanh}
	Abs      Op = expr.HostFallback{Fn: expr.Abs}
	Negative Op = expr.HostFallback{Fn: expr.Negative}
	Square   Op = expr.HostFallback{Fn: expr.Square}
)

// Errors.
var (
	ErrEvaluation           = lazy.ErrEvaluation
	ErrFallback             = lazy.ErrFallback
	ErrUnsafeCast           = lazy.ErrUnsafeCast
	ErrArity                = lazy.ErrArity
	ErrNoArray              = lazy.ErrNoArray
	ErrForeignArray         = lazy.ErrForeignArray
	ErrAliasInconsistency   = alias.ErrAliasInconsistency
	ErrUnsupportedOperation = promote.ErrUnsupportedOperation
	ErrTypeMismatch         = promote.ErrTypeMismatch
	ErrCompile              = kernel.ErrCompile
	ErrExecution            = kernel.ErrExecution
	ErrUnknownOp            = expr.ErrUnknownOp
)

// New creates a context. Without options it defers every supported
// operation, runs on the CPU backend and logs to slog.Default().
func New(opts ...Option) *Context {
	return lazy.New(opts...)
}

// FromConfig creates a context from a configuration. Options override it.
func FromConfig(cfg *Config, opts ...Option) (*Context, error) {
	return lazy.FromConfig(cfg, opts...)
}

// WithLogger sets the logger. Engine events are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return lazy.WithLogger(l)
}

// WithBackend sets the host runtime.
func WithBackend(b tensor.Backend) Option {
	return lazy.WithBackend(b)
}

// WithCompiler sets the expression compiler.
func WithCompiler(c Compiler) Option {
	return lazy.WithCompiler(c)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return lazy.DiscardLogger()
}

// ParseOp returns the operation named name, e.g. "exp" or "multiply".
func ParseOp(name string) (Op, error) {
	return expr.ParseOp(name)
}

// IsFallback reports whether err is a reason an operation ran eagerly.
func IsFallback(err error) bool {
	return lazy.IsFallback(err)
}

// ValuesOf forces h and returns a typed copy of its elements.
func ValuesOf[T tensor.DType](c *Context, h *Array) ([]T, error) {
	return lazy.ValuesOf[T](c, h)
}

// Item returns element i of h as T.
func Item[T tensor.DType](c *Context, h *Array, i int) (T, error) {
	return lazy.Item[T](c, h, i)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// ParseConfig decodes YAML on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
