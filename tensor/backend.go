// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/lazyarray/internal/tensor"

// Backend defines the host array runtime: allocation, element access and
// eager elementwise execution. The deferred engine runs operations it
// cannot defer on it, and compiled programs run their steps on it.
//
// Implementations:
//   - backend/cpu: Pure Go, optionally parallel over chunks
//
// Example:
//
//	import (
//	    "github.com/born-ml/lazyarray/backend/cpu"
//	    "github.com/born-ml/lazyarray/tensor"
//	)
//
//	backend := cpu.New()
//	a := tensor.FromSlice([]float64{1, 2})
//	b := tensor.FromSlice([]float64{3, 4})
//	c := backend.Add(a, b) // [4 6]
type Backend = tensor.Backend
