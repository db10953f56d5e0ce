// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the host storage types used by lazyarray.
//
// # Overview
//
// A RawTensor is a typed 1-D window over shared storage. Views created with
// View share the storage of their base and store absolute offsets, so a
// view of a view points straight into the base allocation.
//
// # Basic Usage
//
//	import "github.com/born-ml/lazyarray/tensor"
//
//	func main() {
//	    raw := tensor.FromSlice([]float32{1, 2, 3, 4})
//	    v, _ := raw.View(1, 3) // elements 1 and 2, sharing raw's storage
//	    v.AsFloat32()[0] = 10  // raw is now [1 10 3 4]
//	}
//
// # Supported Data Types
//
// Four element types are supported: float32, float64, int32 and int64.
// Binary operations on mixed types promote following Promote:
//   - float64 dominates float32 dominates int64 dominates int32
//   - any float/int mix promotes to float64
package tensor
