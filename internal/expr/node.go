// Package expr builds deferred elementwise expressions.
//
// An expression is a DAG of immutable nodes. Leaves are materialized buffer
// regions (Source) or constants; inner nodes apply a deferrable operation or
// take a window of another alias's pending value (KindView). Every node is
// content addressed: its ID is a hash of its structure, so two handles that
// build the same sub-expression share a single node.
package expr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/lazyarray/internal/tensor"
	"github.com/google/uuid"
)

// Kind tags the variant of a node.
type Kind uint8

// Node kinds.
const (
	KindSource Kind = iota // materialized buffer region
	KindConst              // scalar broadcast to the node's length
	KindUnary              // deferrable unary operation
	KindBinary             // deferrable binary operation
	KindView               // window of an alias's pending value
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindConst:
		return "const"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindView:
		return "view"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Owner identifies the alias whose pending value a view node refers to:
// the buffer group and the arena index of the handle within it.
type Owner struct {
	Group uuid.UUID
	Index int
}

// IsZero reports whether o names no alias. View nodes with a zero owner
// are plain windows that are never rebased.
func (o Owner) IsZero() bool {
	return o.Group == uuid.Nil
}

func (o Owner) String() string {
	return fmt.Sprintf("%s#%d", o.Group, o.Index)
}

// Node is an immutable expression node. Nodes are only created through a
// Builder, which interns them by ID.
type Node struct {
	id     string
	kind   Kind
	dtype  tensor.DataType
	length int

	unary  UnaryFn
	binary BinaryFn
	inputs []*Node

	source *Source

	fval float64 // const value for float dtypes
	ival int64   // const value for integer dtypes

	owner  Owner
	offset int
}

// ID returns the node's content hash.
func (n *Node) ID() string { return n.id }

// Kind returns the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// DType returns the element type the node evaluates to.
func (n *Node) DType() tensor.DataType { return n.dtype }

// Len returns the number of elements the node evaluates to.
func (n *Node) Len() int { return n.length }

// Inputs returns the node's operands.
func (n *Node) Inputs() []*Node { return n.inputs }

// UnaryFn returns the operation of a KindUnary node.
func (n *Node) UnaryFn() UnaryFn { return n.unary }

// BinaryFn returns the operation of a KindBinary node.
func (n *Node) BinaryFn() BinaryFn { return n.binary }

// Source returns the leaf of a KindSource node.
func (n *Node) Source() *Source { return n.source }

// Owner returns the alias referenced by a KindView node.
func (n *Node) Owner() Owner { return n.owner }

// Offset returns the window start of a KindView node.
func (n *Node) Offset() int { return n.offset }

// Value returns the constant of a KindConst node as its native Go type.
func (n *Node) Value() any {
	switch n.dtype {
	case tensor.Float32:
		return float32(n.fval)
	case tensor.Float64:
		return n.fval
	case tensor.Int32:
		return int32(n.ival) //nolint:gosec // G115: stored from an int32 value
	default:
		return n.ival
	}
}

// String renders the node as an s-expression, mainly for logs and test
// failure messages.
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	switch n.kind {
	case KindSource:
		fmt.Fprintf(sb, "src%d", n.source.ID())
	case KindConst:
		sb.WriteString(n.literal())
	case KindUnary:
		fmt.Fprintf(sb, "(%s ", n.unary)
		n.inputs[0].format(sb)
		sb.WriteByte(')')
	case KindBinary:
		fmt.Fprintf(sb, "(%s ", n.binary.Symbol())
		n.inputs[0].format(sb)
		sb.WriteByte(' ')
		n.inputs[1].format(sb)
		sb.WriteByte(')')
	case KindView:
		if n.owner.IsZero() {
			fmt.Fprintf(sb, "(slice %d:%d ", n.offset, n.offset+n.length)
		} else {
			fmt.Fprintf(sb, "(view#%d %d:%d ", n.owner.Index, n.offset, n.offset+n.length)
		}
		n.inputs[0].format(sb)
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("expr: unknown node kind %d", n.kind))
	}
}

// literal renders a constant with its dtype suffix.
func (n *Node) literal() string {
	if n.dtype.IsFloat() {
		s := strconv.FormatFloat(n.fval, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s + n.dtype.Suffix()
	}
	return strconv.FormatInt(n.ival, 10) + n.dtype.Suffix()
}

// Domain prefix for content-addressed node identity.
const nodeDomain = "lazyarray/node/v1"

// hash computes the node's ID from its structure. Sources contribute their
// identity, not their contents, so the ID of a leaf stays stable when the
// leaf is detached onto a private copy.
func (n *Node) hash() string {
	h := sha256.New()
	h.Write([]byte(nodeDomain))
	h.Write([]byte{0x00})
	fmt.Fprintf(h, "%d|%d|%d|", n.kind, n.dtype, n.length)
	switch n.kind {
	case KindSource:
		fmt.Fprintf(h, "%d", n.source.ID())
	case KindConst:
		fmt.Fprintf(h, "%x|%d", n.fval, n.ival)
	case KindUnary:
		fmt.Fprintf(h, "%d", n.unary)
	case KindBinary:
		fmt.Fprintf(h, "%d", n.binary)
	case KindView:
		fmt.Fprintf(h, "%s|%d", n.owner, n.offset)
	}
	for _, in := range n.inputs {
		h.Write([]byte{'|'})
		h.Write([]byte(in.id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
