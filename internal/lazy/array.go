package lazy

import (
	"fmt"
	"weak"

	"github.com/born-ml/lazyarray/internal/alias"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// store is the state shared by every alias of one buffer.
type store struct {
	group *alias.Group[Array]
	base  *tensor.RawTensor

	// sources caches the leaf source of each range at the buffer's current
	// contents. Entries are weak: a source no expression reads is dropped
	// instead of being copied on the next overwrite.
	sources map[alias.Range]weak.Pointer[expr.Source]
	version uint64
}

func newStore(base *tensor.RawTensor) *store {
	return &store{
		group:   alias.NewGroup[Array](base.NumElements()),
		base:    base,
		sources: make(map[alias.Range]weak.Pointer[expr.Source]),
	}
}

// window returns the buffer region r.
func (st *store) window(r alias.Range) *tensor.RawTensor {
	v, err := st.base.View(r.Start, r.End)
	if err != nil {
		panic(fmt.Sprintf("lazy: range %s outside buffer of %d: %v", r, st.base.NumElements(), err))
	}
	return v
}

// source returns the leaf reading region r at its current contents.
func (st *store) source(b *expr.Builder, r alias.Range) *expr.Source {
	if wp, ok := st.sources[r]; ok {
		if src := wp.Value(); src != nil {
			return src
		}
	}
	src := b.NewSource(st.window(r))
	st.sources[r] = weak.Make(src)
	return src
}

// current reports whether src reads exactly region r of the live buffer.
func (st *store) current(src *expr.Source, r alias.Range) bool {
	wp, ok := st.sources[r]
	return ok && wp.Value() == src
}

// detach moves every live source overlapping w onto a private copy, so
// expressions captured before an overwrite of w keep reading the old
// contents. It returns the number of sources copied.
func (st *store) detach(w alias.Range) int {
	n := 0
	for r, wp := range st.sources {
		src := wp.Value()
		switch {
		case src == nil:
			delete(st.sources, r)
		case r.Overlaps(w):
			src.Detach()
			delete(st.sources, r)
			n++
		}
	}
	return n
}

// write overwrites region r with data.
func (st *store) write(r alias.Range, data *tensor.RawTensor) error {
	st.detach(r)
	if err := st.window(r).CopyFrom(data); err != nil {
		return err
	}
	st.version++
	return nil
}

// owner returns the live handle named by o, or nil if it was collected.
func (st *store) owner(o expr.Owner) (*Array, error) {
	if o.Group != st.group.ID() || o.Index < 0 || o.Index >= st.group.Len() {
		return nil, fmt.Errorf("%w: view of %s outside group %s", alias.ErrAliasInconsistency, o, st.group.ID())
	}
	return st.group.Handle(o.Index), nil
}

// Array is a handle on a range of a shared buffer, with an optional pending
// expression. It is MATERIALIZED when the buffer region holds its value and
// PENDING when the value is described by an unevaluated expression.
type Array struct {
	ctx     *Context
	st      *store
	idx     int
	rng     alias.Range
	pending *expr.Node
}

// Wrap creates a materialized array over raw. The array takes ownership of
// raw's storage: writes through raw that bypass the array are not tracked.
func (c *Context) Wrap(raw *tensor.RawTensor) *Array {
	st := newStore(raw)
	a := &Array{ctx: c, st: st}
	a.idx = st.group.Root(a)
	a.rng = st.group.Range(a.idx)
	c.log.Debug("wrap", "array", a.String(), "dtype", raw.DType())
	return a
}

// WrapArray creates a new root array holding a copy of a's current values.
func (c *Context) WrapArray(a *Array) (*Array, error) {
	raw, err := c.Evaluate(a)
	if err != nil {
		return nil, err
	}
	return c.Wrap(raw.Copy()), nil
}

// Slice returns the view of elements [lo, hi) of h. The view shares h's
// buffer and its range is stored as absolute offsets. Slicing a pending
// array yields a pending view that refers to h's expression, so it is
// rebased as soon as h is evaluated.
func (c *Context) Slice(h *Array, lo, hi int) (*Array, error) {
	if err := c.own(h); err != nil {
		return nil, err
	}
	if lo < 0 || hi < lo || hi > h.Len() {
		return nil, fmt.Errorf("slice [%d:%d) of %d elements: %w", lo, hi, h.Len(), tensor.ErrOutOfRange)
	}

	v := &Array{ctx: c, st: h.st}
	r := alias.Range{Start: h.rng.Start + lo, End: h.rng.Start + hi}
	idx, err := h.st.group.Register(h.idx, r, v)
	if err != nil {
		return nil, err
	}
	v.idx, v.rng = idx, r

	// An empty view has no elements to compute and overlaps nothing, so it
	// is materialized from the start.
	if h.pending != nil && hi > lo {
		node, err := c.build.View(h.owner(), lo, hi-lo, h.pending)
		if err != nil {
			return nil, err
		}
		v.pending = node
	}
	c.log.Debug("slice", "array", v.String(), "parent", h.String(), "pending", v.pending != nil)
	return v, nil
}

// own checks that h was created by c.
func (c *Context) own(h *Array) error {
	if h == nil || h.ctx != c {
		return ErrForeignArray
	}
	return nil
}

func (a *Array) owner() expr.Owner {
	return expr.Owner{Group: a.st.group.ID(), Index: a.idx}
}

// Len returns the number of elements.
func (a *Array) Len() int { return a.rng.Len() }

// DType returns the element type.
func (a *Array) DType() tensor.DataType { return a.st.base.DType() }

// Range returns the absolute range of the array in its buffer.
func (a *Array) Range() alias.Range { return a.rng }

// Group returns the alias group of the array's buffer.
func (a *Array) Group() *alias.Group[Array] { return a.st.group }

// Pending returns the pending expression, or nil when materialized.
func (a *Array) Pending() *expr.Node { return a.pending }

// Materialized reports whether the buffer region holds the array's value.
func (a *Array) Materialized() bool { return a.pending == nil }

// Aliases reports whether a and b share a buffer.
func (a *Array) Aliases(b *Array) bool { return a.st == b.st }

// Overlaps reports whether a and b share at least one buffer element.
func (a *Array) Overlaps(b *Array) bool { return a.Aliases(b) && a.rng.Overlaps(b.rng) }

// String identifies the array in logs: arena index, range and state.
func (a *Array) String() string {
	state := "materialized"
	if a.pending != nil {
		state = "pending"
	}
	return fmt.Sprintf("#%d%s %s %s", a.idx, a.rng, a.DType(), state)
}

// Program renders the compiled form of the pending expression, or returns
// the empty string when the array is materialized.
func (c *Context) Program(h *Array) (string, error) {
	if err := c.own(h); err != nil {
		return "", err
	}
	if h.pending == nil {
		return "", nil
	}
	exe, err := c.compiler.Compile(h.pending)
	if err != nil {
		return "", err
	}
	return exe.String(), nil
}
