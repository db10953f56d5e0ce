package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyarray/internal/alias"
	"github.com/born-ml/lazyarray/internal/tensor"
)

func TestSliceRanges(t *testing.T) {
	c := newTestContext(t)
	b := c.Wrap(tensor.Arange(0, 10, tensor.Int64))

	v := slice(t, c, b, 2, 8)
	g := slice(t, c, v, 1, 4)
	assert.Equal(t, alias.Range{Start: 2, End: 8}, v.Range())
	assert.Equal(t, alias.Range{Start: 3, End: 6}, g.Range())
	assert.True(t, g.Aliases(b))
	assert.True(t, g.Overlaps(v))
	assert.Equal(t, []int64{3, 4, 5}, valuesOf[int64](t, c, g))

	_, err := c.Slice(v, 4, 7)
	require.ErrorIs(t, err, tensor.ErrOutOfRange)
	_, err = c.Slice(v, 3, 2)
	require.ErrorIs(t, err, tensor.ErrOutOfRange)

	empty := slice(t, c, b, 5, 5)
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Overlaps(b))
}

func TestSliceOfPendingArrayIsPending(t *testing.T) {
	c := newTestContext(t)
	b := wrapAs(c, tensor.Float64, []float64{1, 2, 3, 4})
	inplace(t, c, opExp, b)

	v := slice(t, c, b, 1, 3)
	assert.False(t, v.Materialized())
	assert.Equal(t, "(view#0 1:3 (exp src1))", v.Pending().String())

	empty := slice(t, c, b, 2, 2)
	assert.True(t, empty.Materialized())
}

func TestChildInplaceUpdatesParent(t *testing.T) {
	c := newTestContext(t)
	b := wrapAs(c, tensor.Float64, []float64{1, 2, 3, 4, 5})
	child := slice(t, c, b, 1, 4)
	inplace(t, c, opMul, child, Scalar{Value: 10.0})

	assert.True(t, b.Materialized())
	assert.False(t, child.Materialized())
	assert.Equal(t, []float64{1, 20, 30, 40, 5}, values(t, c, b))
	assert.True(t, child.Materialized())
	assert.Equal(t, []float64{20, 30, 40}, values(t, c, child))
}

func TestParentInplaceUpdatesChild(t *testing.T) {
	c := newTestContext(t)
	b := wrapAs(c, tensor.Float64, []float64{1, 2, 3, 4, 5})
	child := slice(t, c, b, 3, 5)
	inplace(t, c, opAdd, b, Scalar{Value: 1.0})

	assert.Equal(t, []float64{5, 6}, values(t, c, child))
	assert.True(t, b.Materialized(), "evaluating the child settles the parent")
}

func TestGrandchildOfPendingParent(t *testing.T) {
	c := newTestContext(t)
	b := c.Wrap(tensor.Arange(0, 10, tensor.Float64))
	inplace(t, c, opAdd, b, Scalar{Value: 1.0})

	mid := slice(t, c, b, 2, 8)
	g := slice(t, c, mid, 1, 4)
	require.False(t, g.Materialized())
	inplace(t, c, opMul, g, Scalar{Value: 2.0})

	assert.Equal(t, []float64{1, 2, 3, 8, 10, 12, 7, 8, 9, 10}, values(t, c, b))
	assert.True(t, mid.Materialized())
	assert.True(t, g.Materialized())
	assert.Equal(t, []float64{3, 8, 10, 12, 7, 8}, values(t, c, mid))
	assert.Equal(t, []float64{8, 10, 12}, values(t, c, g))
}

func TestGrandchildEvaluatedFirst(t *testing.T) {
	c := newTestContext(t)
	b := c.Wrap(tensor.Arange(0, 10, tensor.Float64))
	inplace(t, c, opAdd, b, Scalar{Value: 1.0})
	mid := slice(t, c, b, 2, 8)
	g := slice(t, c, mid, 1, 4)
	inplace(t, c, opMul, g, Scalar{Value: 2.0})

	assert.Equal(t, []float64{8, 10, 12}, values(t, c, g))
	assert.True(t, b.Materialized())
	assert.True(t, mid.Materialized())
	assert.Equal(t, []float64{1, 2, 3, 8, 10, 12, 7, 8, 9, 10}, values(t, c, b))
}

func TestNonOverlappingAliasesAreUntouched(t *testing.T) {
	c := newTestContext(t)
	b := c.Wrap(tensor.Arange(0, 10, tensor.Float64))
	c1 := slice(t, c, b, 0, 4)
	c2 := slice(t, c, b, 2, 6)
	c3 := slice(t, c, b, 6, 10)

	inplace(t, c, opMul, c2, Scalar{Value: 2.0})
	inplace(t, c, opAdd, c1, Scalar{Value: 1.0})
	assert.True(t, c2.Materialized(), "c1 captured its value after c2 was settled")
	require.False(t, c1.Materialized())

	assert.Equal(t, []float64{6, 7, 8, 9}, values(t, c, c3))
	assert.False(t, c1.Materialized(), "reading c3 never forces c1")

	assert.Equal(t, []float64{1, 2, 5, 7, 8, 10, 6, 7, 8, 9}, values(t, c, b))
	assert.Equal(t, []float64{5, 7, 8, 10}, values(t, c, c2))
}

func TestViewsUpdateChild(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, snap func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float32, seq(5, 1))
		w2 := slice(t, c, w, 2, 5)
		inplace(t, c, opExp, w2)
		snap(w2)
		inplace(t, c, opAdd, w2, wrapAs(c, tensor.Float32, seq(3, 2)))
		snap(w, w2)
		inplace(t, c, opAdd, w2, Scalar{Value: 5.0})
		return []*Array{w, w2}
	})
}

func TestViewsUpdateParent(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, _ func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float32, seq(numEls, 1))
		w2 := slice(t, c, w, 2, 5)
		inplace(t, c, opExp, w)
		return []*Array{w2, w}
	})
}

func TestViewsUpdateMix(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, snap func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float32, seq(numEls, 1))
		inplace(t, c, opSqrt, w)
		w2 := slice(t, c, w, 2, 5)
		inplace(t, c, opLog, w)
		snap(w)
		inplace(t, c, opExp, w2)
		return []*Array{w, w2}
	})
}

func TestViewsMixedWithNewArrays(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, _ func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float64, seq(numEls, 2))
		w2 := slice(t, c, w, 1, 7)
		sum := binary(t, c, opAdd, w2, Scalar{Value: 1.0})
		inplace(t, c, opExp, w)
		inplace(t, c, opMul, w2, sum)
		out := unary(t, c, opSqrt, w2)
		return []*Array{sum, w, w2, out}
	})
}

func TestViewsGrandparents(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, _ func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float64, seq(numEls, 1))
		w2 := slice(t, c, w, 2, 9)
		w3 := slice(t, c, w2, 2, 4)
		inplace(t, c, opLog, w)
		inplace(t, c, opExp, w2)
		inplace(t, c, opSqrt, w3)
		return []*Array{w, w2, w3}
	})
}

func TestViewsPendingGrandparents(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, _ func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float64, seq(numEls, 1))
		inplace(t, c, opLog, w)
		w2 := slice(t, c, w, 2, 9)
		inplace(t, c, opExp, w2)
		w3 := slice(t, c, w2, 2, 4)
		inplace(t, c, opSqrt, w3)
		return []*Array{w, w2, w3}
	})
}

func TestViewsOverlap(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, snap func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float32, seq(numEls, 1))
		w2 := slice(t, c, w, 2, 5)
		w3 := slice(t, c, w, 4, 7)
		w4 := slice(t, c, w, 7, 9)
		w5 := slice(t, c, w, 3, 4)

		inplace(t, c, opExp, w2)
		inplace(t, c, opAdd, w3, wrapAs(c, tensor.Float32, seq(3, 2)))
		inplace(t, c, opAdd, w4, Scalar{Value: 5.0})
		snap(w5)
		inplace(t, c, opMul, w3, w2)
		inplace(t, c, opSub, w5, Scalar{Value: 1.0})
		return []*Array{w, w2, w3, w4, w5}
	})
}

func TestOverlapLeavesDisjointPending(t *testing.T) {
	c := newTestContext(t)
	w := wrapAs(c, tensor.Float32, seq(numEls, 1))
	w2 := slice(t, c, w, 2, 5)
	w3 := slice(t, c, w, 4, 7)
	w4 := slice(t, c, w, 7, 9)

	inplace(t, c, opExp, w2)
	inplace(t, c, opAdd, w3, Scalar{Value: 1.0})
	assert.True(t, w2.Materialized(), "writing w3 settles the overlapping w2")
	inplace(t, c, opAdd, w4, Scalar{Value: 5.0})
	assert.False(t, w3.Materialized(), "w4 does not overlap w3")

	values(t, c, w4)
	assert.False(t, w3.Materialized())
}

func TestTwoViewsOfPendingParent(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, snap func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Float64, seq(8, 3))
		inplace(t, c, opMul, w, Scalar{Value: 3.0})
		left := slice(t, c, w, 0, 4)
		right := slice(t, c, w, 4, 8)
		inplace(t, c, opAdd, left, Scalar{Value: 1.0})
		inplace(t, c, opSub, right, Scalar{Value: 1.0})
		snap(right)
		inplace(t, c, opDiv, left, right)
		return []*Array{left, w, right}
	})
}

func TestRebindingViewOperands(t *testing.T) {
	checkAgainstEager(t, func(t *testing.T, c *Context, _ func(...*Array)) []*Array {
		w := wrapAs(c, tensor.Int64, seq(6, 1))
		inplace(t, c, opAdd, w, Scalar{Value: 1})
		head := slice(t, c, w, 0, 3)
		tail := slice(t, c, w, 3, 6)
		prod := binary(t, c, opMul, head, tail)
		inplace(t, c, opMul, w, Scalar{Value: 2})
		return []*Array{prod, head, tail, w}
	})
}

func TestCompressSelectsMaskedElements(t *testing.T) {
	c := newTestContext(t)
	b := c.Wrap(tensor.Arange(0, 8, tensor.Int64))
	mask := binary(t, c, opSub, b, Scalar{Value: 3})
	tail := slice(t, c, b, 4, 8)
	inplace(t, c, opMul, tail, Scalar{Value: 2})

	kept, err := c.Compress(b, mask)
	require.NoError(t, err)
	assert.True(t, kept.Materialized())
	assert.False(t, kept.Aliases(b))
	assert.Equal(t, tensor.Int64, kept.DType())
	assert.Equal(t, []int64{0, 1, 2, 8, 10, 12, 14}, valuesOf[int64](t, c, kept))
	assert.True(t, tail.Materialized())

	require.NoError(t, c.Set(kept, 0, int64(-1)))
	assert.Equal(t, []int64{0, 1, 2, 3, 8, 10, 12, 14}, valuesOf[int64](t, c, b))

	none, err := c.Compress(b, c.Wrap(tensor.FromSlice(make([]float32, 8))))
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	_, err = c.Compress(b, slice(t, c, mask, 0, 4))
	require.ErrorIs(t, err, tensor.ErrLengthMismatch)

	other := newTestContext(t)
	_, err = c.Compress(b, other.Wrap(tensor.Arange(0, 8, tensor.Int64)))
	require.ErrorIs(t, err, ErrForeignArray)
}
