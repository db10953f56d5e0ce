// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for elementwise operations.
//
// # Overview
//
// This package implements the host runtime with:
//   - Pure Go implementation (no CGO)
//   - float32, float64, int32 and int64 kernels
//   - NumPy-style transcendental promotion (integers compute in float64)
//   - Chunked parallel loops for large buffers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/lazyarray/backend/cpu"
//	    "github.com/born-ml/lazyarray/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.FromSlice([]float32{1, 4, 9})
//	    y := backend.Sqrt(x) // [1 2 3]
//	}
//
// Integer division truncates toward zero; division by zero panics, and the
// lazy engine reports it as an execution error.
package cpu
