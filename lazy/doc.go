// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lazy provides deferred 1-D arrays whose views stay consistent
// across unevaluated computation.
//
// # Overview
//
// Elementwise operations on an Array are recorded, not executed. The
// recorded expression is compiled and run when a value is needed: on
// Evaluate, Get, Set or Raw. Slices share their parent's buffer and stay
// consistent with it in both directions:
//   - an in-place operation on a slice is visible through the parent
//   - an in-place operation on the parent is visible through every slice
//   - arrays over disjoint ranges never observe each other
//
// Operations that cannot be deferred (host-only operations like Sin, mixed
// dtypes) run eagerly and return materialized arrays.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/lazyarray/lazy"
//	    "github.com/born-ml/lazyarray/tensor"
//	)
//
//	func main() {
//	    ctx := lazy.New()
//	    b := ctx.Wrap(tensor.FromSlice([]float64{1, 2, 3, 4, 5}))
//	    c, _ := ctx.Slice(b, 1, 4)
//	    _ = ctx.Inplace(lazy.Multiply, c, lazy.Scalar{Value: 10.0})
//	    v, _ := ctx.Values(b) // [1 20 30 40 5]
//	}
//
// A Context is single threaded: its methods must not be called
// concurrently.
package lazy
