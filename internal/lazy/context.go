// Package lazy implements deferred 1-D arrays whose views stay consistent
// with each other across unevaluated computation.
//
// Every Array belongs to a buffer group: the buffer it was wrapped from plus
// every view ever sliced from it. Supported elementwise operations are not
// executed. Instead they extend the array's pending expression. Evaluation
// compiles and runs that expression, writes the result into the array's
// range of the shared buffer and rebases every overlapping alias whose
// pending expression referred to the evaluated value.
//
// A Context is single threaded. All of its methods return synchronously and
// must not be called concurrently.
package lazy

import (
	"io"
	"log/slog"

	"github.com/born-ml/lazyarray/internal/backend/cpu"
	"github.com/born-ml/lazyarray/internal/config"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/kernel"
	"github.com/born-ml/lazyarray/internal/promote"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Executable is a compiled expression.
type Executable interface {
	// Inputs returns the leaves the executable reads, in Run order.
	Inputs() []*expr.Source
	// Run computes the expression into a freshly allocated buffer.
	Run(inputs []*tensor.RawTensor) (*tensor.RawTensor, error)
	// String renders the executable for diagnostics.
	String() string
}

// Compiler turns an expression DAG into an Executable.
type Compiler interface {
	Compile(root *expr.Node) (Executable, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(root *expr.Node) (Executable, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(root *expr.Node) (Executable, error) {
	return f(root)
}

// KernelCompiler returns a Compiler backed by the kernel package.
func KernelCompiler(k *kernel.Compiler) Compiler {
	return CompilerFunc(func(root *expr.Node) (Executable, error) {
		p, err := k.Compile(root)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// Context owns the expression builder, the deferral table and the
// collaborators every array created through it uses.
type Context struct {
	log      *slog.Logger
	table    *promote.Table
	backend  tensor.Backend
	compiler Compiler

	ids   *expr.IDGen
	build *expr.Builder
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. Engine events are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// WithTable sets the deferral table.
func WithTable(t *promote.Table) Option {
	return func(c *Context) {
		c.table = t
	}
}

// WithBackend sets the host runtime used for fallback execution and, unless
// WithCompiler is given, for running compiled programs.
func WithBackend(b tensor.Backend) Option {
	return func(c *Context) {
		c.backend = b
	}
}

// WithCompiler sets the expression compiler.
func WithCompiler(comp Compiler) Option {
	return func(c *Context) {
		c.compiler = comp
	}
}

// New creates a context. Without options it defers every supported
// operation, runs on the CPU backend and logs to slog.Default().
func New(opts ...Option) *Context {
	ids := &expr.IDGen{}
	c := &Context{
		log:   slog.Default(),
		table: promote.Default(),
		ids:   ids,
		build: expr.NewBuilder(ids),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = cpu.New()
	}
	if c.compiler == nil {
		c.compiler = KernelCompiler(kernel.New(c.backend))
	}
	return c
}

// FromConfig creates a context from a validated configuration. Options are
// applied after the configuration and override it.
func FromConfig(cfg *config.Config, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithTable(table),
		WithBackend(cpu.New(cpu.WithParallel(cfg.ParallelConfig()))),
	}
	return New(append(base, opts...)...), nil
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Table returns the deferral table in use.
func (c *Context) Table() *promote.Table {
	return c.table
}

// Backend returns the host runtime in use.
func (c *Context) Backend() tensor.Backend {
	return c.backend
}
