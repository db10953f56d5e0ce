package lazy

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyarray/internal/backend/cpu"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/promote"
	"github.com/born-ml/lazyarray/internal/tensor"
)

var (
	opExp  = expr.Unary{Fn: expr.Exp}
	opLog  = expr.Unary{Fn: expr.Log}
	opSqrt = expr.Unary{Fn: expr.Sqrt}
	opAdd  = expr.Binary{Fn: expr.Add}
	opSub  = expr.Binary{Fn: expr.Subtract}
	opMul  = expr.Binary{Fn: expr.Multiply}
	opDiv  = expr.Binary{Fn: expr.Divide}
	opSin  = expr.HostFallback{Fn: expr.Sin}
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	base := []Option{
		WithLogger(DiscardLogger()),
		WithBackend(cpu.New(cpu.WithParallel(parallel.Sequential()))),
	}
	return New(append(base, opts...)...)
}

// eagerContext defers nothing, so every operation runs on the host
// runtime. It is the reference the deferred engine is checked against.
func eagerContext(t *testing.T) *Context {
	t.Helper()
	return newTestContext(t, WithTable(promote.NewTable(nil, nil, nil, nil)))
}

func evaluate(t *testing.T, c *Context, a *Array) *tensor.RawTensor {
	t.Helper()
	raw, err := c.Evaluate(a)
	require.NoError(t, err)
	return raw
}

func valuesOf[T tensor.DType](t *testing.T, c *Context, a *Array) []T {
	t.Helper()
	v, err := ValuesOf[T](c, a)
	require.NoError(t, err)
	return v
}

// seq returns n deterministic values in [1, 11), distinct per seed and
// never zero.
func seq(n, seed int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 + float64((i*5+seed*3)%9) + 0.25*float64(seed%4)
	}
	return out
}

func wrapAs(c *Context, dt tensor.DataType, vals []float64) *Array {
	return c.Wrap(tensor.FromFloat64(vals, dt))
}

func values(t *testing.T, c *Context, a *Array) []float64 {
	t.Helper()
	v, err := c.Values(a)
	require.NoError(t, err)
	return v
}

func slice(t *testing.T, c *Context, a *Array, lo, hi int) *Array {
	t.Helper()
	v, err := c.Slice(a, lo, hi)
	require.NoError(t, err)
	return v
}

func inplace(t *testing.T, c *Context, op expr.Op, target *Array, others ...Operand) {
	t.Helper()
	require.NoError(t, c.Inplace(op, target, others...))
}

func binary(t *testing.T, c *Context, op expr.Op, a, b Operand) *Array {
	t.Helper()
	out, err := c.Binary(op, a, b)
	require.NoError(t, err)
	return out
}

func unary(t *testing.T, c *Context, op expr.Op, a *Array) *Array {
	t.Helper()
	out, err := c.Unary(op, a)
	require.NoError(t, err)
	return out
}

// scenario builds arrays in c. snap records the current values of arrays
// at points where the scenario wants them compared; the returned arrays
// are compared at the end.
type scenario func(t *testing.T, c *Context, snap func(...*Array)) []*Array

// checkAgainstEager runs s on the deferred engine and on the eager
// reference and requires identical observations. The deferred engine runs
// twice: once observing every snapshot, once observing only the final
// arrays in reverse order, so evaluation order cannot matter.
func checkAgainstEager(t *testing.T, s scenario) {
	t.Helper()

	record := func(c *Context, out *[][]float64) func(...*Array) {
		return func(arrs ...*Array) {
			for _, a := range arrs {
				*out = append(*out, values(t, c, a))
			}
		}
	}

	eager := eagerContext(t)
	var want [][]float64
	wantFinal := s(t, eager, record(eager, &want))
	for _, a := range wantFinal {
		assert.True(t, a.Materialized(), "the reference never defers")
		want = append(want, values(t, eager, a))
	}

	lazy := newTestContext(t)
	var got [][]float64
	gotFinal := s(t, lazy, record(lazy, &got))
	for _, a := range gotFinal {
		got = append(got, values(t, lazy, a))
	}
	require.Len(t, got, len(want))
	for i := range want {
		assertSameValues(t, want[i], got[i], "observation %d", i)
	}

	quiet := newTestContext(t)
	final := s(t, quiet, func(...*Array) {})
	require.Len(t, final, len(wantFinal))
	for i := len(final) - 1; i >= 0; i-- {
		expected := want[len(want)-len(final)+i]
		assertSameValues(t, expected, values(t, quiet, final[i]), "final array %d", i)
	}
}

// assertSameValues requires got to match want element by element. Both
// engines run the same kernels, so results agree exactly, NaN included.
func assertSameValues(t *testing.T, want, got []float64, msgAndArgs ...any) {
	t.Helper()
	if !assert.Len(t, got, len(want), msgAndArgs...) {
		return
	}
	for i := range want {
		if want[i] == got[i] || math.IsNaN(want[i]) && math.IsNaN(got[i]) {
			continue
		}
		assert.Fail(t, fmt.Sprintf("element %d: want %v, got %v", i, want[i], got[i]), msgAndArgs...)
		return
	}
}
