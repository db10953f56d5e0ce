package expr

import (
	"errors"
	"fmt"
	"weak"

	"github.com/born-ml/lazyarray/internal/tensor"
)

// Errors returned when a node cannot be built.
var (
	ErrShapeMismatch = errors.New("operand length mismatch")
	ErrTypeMismatch  = errors.New("operand dtype mismatch")
	ErrBadWindow     = errors.New("view window out of range")
)

// sweepEvery is the number of interned nodes after which dead entries are
// dropped from the intern table.
const sweepEvery = 256

// Builder creates interned expression nodes. Structurally identical nodes
// built through the same builder are the same *Node. The intern table only
// holds weak references, so nodes no handle refers to are collected.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	ids      *IDGen
	interned map[string]weak.Pointer[Node]
	inserts  int
}

// NewBuilder creates a builder drawing source identifiers from ids.
func NewBuilder(ids *IDGen) *Builder {
	return &Builder{
		ids:      ids,
		interned: make(map[string]weak.Pointer[Node]),
	}
}

// Interned returns the number of live interned nodes.
func (b *Builder) Interned() int {
	n := 0
	for _, wp := range b.interned {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// NewSource creates a fresh leaf input over raw.
func (b *Builder) NewSource(raw *tensor.RawTensor) *Source {
	return &Source{id: b.ids.Next(), raw: raw}
}

// Leaf returns the node reading src.
func (b *Builder) Leaf(src *Source) *Node {
	return b.intern(&Node{
		kind:   KindSource,
		dtype:  src.DType(),
		length: src.Len(),
		source: src,
	})
}

// Const returns a node holding value broadcast to n elements of dtype.
func (b *Builder) Const(dtype tensor.DataType, value any, n int) (*Node, error) {
	node := &Node{kind: KindConst, dtype: dtype, length: n}
	if dtype.IsFloat() {
		f, err := tensor.ScalarFloat64(value)
		if err != nil {
			return nil, err
		}
		if dtype == tensor.Float32 {
			f = float64(float32(f))
		}
		node.fval = f
	} else {
		i, err := tensor.ScalarInt64(value)
		if err != nil {
			return nil, err
		}
		if dtype == tensor.Int32 {
			i = int64(int32(i)) //nolint:gosec // G115: wraps like an int32 store
		}
		node.ival = i
	}
	return b.intern(node), nil
}

// Unary returns fn applied to x. The result keeps x's dtype.
func (b *Builder) Unary(fn UnaryFn, x *Node) *Node {
	return b.intern(&Node{
		kind:   KindUnary,
		dtype:  x.dtype,
		length: x.length,
		unary:  fn,
		inputs: []*Node{x},
	})
}

// Binary returns fn applied elementwise to x and y, which must agree in
// dtype and length.
func (b *Builder) Binary(fn BinaryFn, x, y *Node) (*Node, error) {
	if x.dtype != y.dtype {
		return nil, fmt.Errorf("%s %s with %s: %w", fn, x.dtype, y.dtype, ErrTypeMismatch)
	}
	if x.length != y.length {
		return nil, fmt.Errorf("%s of %d and %d elements: %w", fn, x.length, y.length, ErrShapeMismatch)
	}
	return b.intern(&Node{
		kind:   KindBinary,
		dtype:  x.dtype,
		length: x.length,
		binary: fn,
		inputs: []*Node{x, y},
	}), nil
}

// View returns elements [offset, offset+n) of x, recorded as a reference to
// the pending value of owner.
func (b *Builder) View(owner Owner, offset, n int, x *Node) (*Node, error) {
	if offset < 0 || n < 0 || offset+n > x.length {
		return nil, fmt.Errorf("window [%d:%d) of %d elements: %w", offset, offset+n, x.length, ErrBadWindow)
	}
	return b.intern(&Node{
		kind:   KindView,
		dtype:  x.dtype,
		length: n,
		owner:  owner,
		offset: offset,
		inputs: []*Node{x},
	}), nil
}

// Slice returns elements [offset, offset+n) of x as a plain window that
// refers to no alias.
func (b *Builder) Slice(offset, n int, x *Node) (*Node, error) {
	return b.View(Owner{}, offset, n, x)
}

// intern returns the canonical node structurally equal to n.
func (b *Builder) intern(n *Node) *Node {
	n.id = n.hash()
	if wp, ok := b.interned[n.id]; ok {
		if existing := wp.Value(); existing != nil {
			return existing
		}
	}
	b.interned[n.id] = weak.Make(n)
	b.inserts++
	if b.inserts%sweepEvery == 0 {
		b.sweep()
	}
	return n
}

func (b *Builder) sweep() {
	for id, wp := range b.interned {
		if wp.Value() == nil {
			delete(b.interned, id)
		}
	}
}
