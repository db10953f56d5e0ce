// Package cpu implements the host array runtime on the CPU: allocation,
// element access and eager elementwise kernels.
package cpu

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements the host runtime in pure Go. Large kernels are
// split across goroutines according to its parallel configuration.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel sets the parallel execution configuration of the kernels.
func WithParallel(cfg parallel.Config) Option {
	return func(cpu *CPUBackend) {
		cpu.par = cfg
	}
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Allocate creates a zeroed buffer of n elements.
func (cpu *CPUBackend) Allocate(n int, dtype tensor.DataType) *tensor.RawTensor {
	raw, err := tensor.NewRaw(tensor.Shape{n}, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("allocate: %v", err))
	}
	return raw
}

// Read returns element i of x as its native Go type.
func (cpu *CPUBackend) Read(x *tensor.RawTensor, i int) (any, error) {
	return tensor.At(x, i)
}

// Write stores v at element i of x, converting it to x's dtype.
func (cpu *CPUBackend) Write(x *tensor.RawTensor, i int, v any) error {
	return tensor.SetAt(x, i, v)
}

// newResult allocates an output buffer shaped like x.
func (cpu *CPUBackend) newResult(op string, n int, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{n}, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
