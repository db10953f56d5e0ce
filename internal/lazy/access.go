package lazy

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/alias"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Get returns element i of h as its native Go type. It forces h and every
// overlapping pending alias first.
func (c *Context) Get(h *Array, i int) (any, error) {
	raw, err := c.Evaluate(h)
	if err != nil {
		return nil, err
	}
	return c.backend.Read(raw, i)
}

// Set stores v at element i of h. h is forced first, so no stale pending
// computation is applied over the written element afterwards.
func (c *Context) Set(h *Array, i int, v any) error {
	raw, err := c.Evaluate(h)
	if err != nil {
		return err
	}
	if i < 0 || i >= raw.NumElements() {
		return fmt.Errorf("index %d of %d elements: %w", i, raw.NumElements(), tensor.ErrOutOfRange)
	}
	if _, err := tensor.ScalarFloat64(v); err != nil {
		return err
	}

	pos := h.rng.Start + i
	h.st.detach(alias.Range{Start: pos, End: pos + 1})
	if err := c.backend.Write(raw, i, v); err != nil {
		return err
	}
	h.st.version++
	c.log.Debug("set", "array", h.String(), "index", i)
	return nil
}

// Raw forces h and returns its region of the shared buffer for external
// use. Snapshots of the region taken before the call are detached, since
// the caller may write through the returned view.
func (c *Context) Raw(h *Array) (*tensor.RawTensor, error) {
	raw, err := c.Evaluate(h)
	if err != nil {
		return nil, err
	}
	h.st.detach(h.rng)
	return raw, nil
}

// Values forces h and copies its elements out as float64.
func (c *Context) Values(h *Array) ([]float64, error) {
	raw, err := c.Evaluate(h)
	if err != nil {
		return nil, err
	}
	return tensor.ToFloat64(raw), nil
}

// ValuesOf forces h and copies its elements out as T, which must match h's
// dtype.
func ValuesOf[T tensor.DType](c *Context, h *Array) ([]T, error) {
	if dt := tensor.TypeOf[T](); dt != h.DType() {
		return nil, fmt.Errorf("read %s array as %s: %w", h.DType(), dt, tensor.ErrDTypeMismatch)
	}
	raw, err := c.Evaluate(h)
	if err != nil {
		return nil, err
	}
	return append([]T(nil), tensor.Elements[T](raw)...), nil
}

// Item returns element i of h as T, which must match h's dtype.
func Item[T tensor.DType](c *Context, h *Array, i int) (T, error) {
	var zero T
	v, err := c.Get(h, i)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("read %s element as %T: %w", h.DType(), zero, tensor.ErrDTypeMismatch)
	}
	return t, nil
}

// Compress returns a fresh materialized array holding the elements of h
// whose mask element is nonzero, in order. Both arrays are forced first.
func (c *Context) Compress(h, mask *Array) (*Array, error) {
	for _, a := range []*Array{h, mask} {
		if err := c.own(a); err != nil {
			return nil, err
		}
	}
	if h.Len() != mask.Len() {
		return nil, fmt.Errorf("mask of %d elements over %d: %w", mask.Len(), h.Len(), tensor.ErrLengthMismatch)
	}
	if _, err := c.Evaluate(mask); err != nil {
		return nil, err
	}
	raw, err := c.Evaluate(h)
	if err != nil {
		return nil, err
	}

	var keep []int
	for i, m := range tensor.ToFloat64(mask.st.window(mask.rng)) {
		if m != 0 {
			keep = append(keep, i)
		}
	}
	out := c.backend.Allocate(len(keep), h.DType())
	for j, i := range keep {
		v, err := c.backend.Read(raw, i)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Write(out, j, v); err != nil {
			return nil, err
		}
	}
	c.log.Debug("compress", "array", h.String(), "kept", len(keep))
	return c.Wrap(out), nil
}
