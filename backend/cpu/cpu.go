// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/lazyarray/internal/backend/cpu"
	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of every elementwise
// operation, split into chunks across goroutines for large buffers.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/lazyarray/backend/cpu"
//	    "github.com/born-ml/lazyarray/lazy"
//	)
//
//	func main() {
//	    ctx := lazy.New(lazy.WithBackend(cpu.New(cpu.Sequential())))
//	}
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// Sequential disables chunked parallel execution.
func Sequential() Option {
	return internalcpu.WithParallel(parallel.Sequential())
}

// Workers runs kernels on up to n goroutines, each handling at least
// minChunk elements. n = 0 means one per CPU.
func Workers(n, minChunk int) Option {
	return internalcpu.WithParallel(parallel.Config{
		Enabled:      true,
		NumWorkers:   n,
		MinChunkSize: minChunk,
	})
}
