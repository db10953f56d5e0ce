// Package alias tracks which array handles share a base buffer and how their
// ranges relate.
//
// A Group is an arena holding one record per handle ever created over a
// buffer. Parent/child relations are stored as integer indices into the
// arena and handles are referenced weakly, so the graph never keeps a
// handle alive and never forms a reference cycle. The graph stores identity
// and range metadata only; it never sees element values.
package alias

import (
	"errors"
	"fmt"
	"weak"

	"github.com/google/uuid"
)

// ErrAliasInconsistency reports a broken alias invariant: a relation that
// would form a cycle, a range outside its parent's domain, or a handle
// visited twice in one propagation pass. It is never recoverable.
var ErrAliasInconsistency = errors.New("alias inconsistency")

// Range is a half-open interval [Start, End) of absolute element offsets
// into a buffer.
type Range struct {
	Start int
	End   int
}

// Len returns the number of elements in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether r and o share at least one element:
// max(r.Start, o.Start) < min(r.End, o.End).
func (r Range) Overlaps(o Range) bool {
	return max(r.Start, o.Start) < min(r.End, o.End)
}

// Contains reports whether o lies within r.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// Intersect returns the overlap of r and o, or an empty range at r.Start.
func (r Range) Intersect(o Range) Range {
	s, e := max(r.Start, o.Start), min(r.End, o.End)
	if s >= e {
		return Range{Start: r.Start, End: r.Start}
	}
	return Range{Start: s, End: e}
}

// Shift returns r translated by d elements.
func (r Range) Shift(d int) Range {
	return Range{Start: r.Start + d, End: r.End + d}
}

// String formats r as [start:end).
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Entry is a live handle of a group together with its arena index and range.
type Entry[T any] struct {
	Index  int
	Range  Range
	Handle *T
}

type record[T any] struct {
	rng      Range
	parent   int // -1 for roots
	children []int
	ref      weak.Pointer[T]
}

// Group is the alias arena of one buffer. Every handle registered in the
// same group is an alias of every other.
type Group[T any] struct {
	id      uuid.UUID
	size    int
	records []record[T]
}

// NewGroup creates an empty group for a buffer of size elements.
func NewGroup[T any](size int) *Group[T] {
	return &Group[T]{
		id:   uuid.Must(uuid.NewV7()),
		size: size,
	}
}

// ID returns the group's identity. It is stable for the buffer's lifetime.
func (g *Group[T]) ID() uuid.UUID {
	return g.id
}

// Size returns the element count of the underlying buffer.
func (g *Group[T]) Size() int {
	return g.size
}

// Len returns the number of records ever registered, live or not.
func (g *Group[T]) Len() int {
	return len(g.records)
}

// Root registers h as a handle covering the whole buffer with no parent.
func (g *Group[T]) Root(h *T) int {
	g.records = append(g.records, record[T]{
		rng:    Range{Start: 0, End: g.size},
		parent: -1,
		ref:    weak.Make(h),
	})
	return len(g.records) - 1
}

// Register creates a record for h as a child of parent with absolute range
// r. r must lie within the parent's range and the parent must still be
// live.
func (g *Group[T]) Register(parent int, r Range, h *T) (int, error) {
	if err := g.check(parent); err != nil {
		return -1, err
	}
	p := g.records[parent]
	if p.ref.Value() == nil {
		return -1, fmt.Errorf("%w: parent %d is no longer live", ErrAliasInconsistency, parent)
	}
	if r.Start > r.End || !p.rng.Contains(r) {
		return -1, fmt.Errorf("%w: range %s outside parent domain %s", ErrAliasInconsistency, r, p.rng)
	}

	g.records = append(g.records, record[T]{
		rng:    r,
		parent: -1,
		ref:    weak.Make(h),
	})
	child := len(g.records) - 1
	if err := g.Link(child, parent); err != nil {
		g.records = g.records[:child]
		return -1, err
	}
	return child, nil
}

// Link makes parent the parent of child. It refuses any relation that
// would give child a second parent or make the graph cyclic. Register uses
// it for every new view; correct usage never trips these checks.
func (g *Group[T]) Link(child, parent int) error {
	if err := g.check(child); err != nil {
		return err
	}
	if err := g.check(parent); err != nil {
		return err
	}
	if g.records[child].parent >= 0 {
		return fmt.Errorf("%w: record %d already has parent %d", ErrAliasInconsistency, child, g.records[child].parent)
	}
	for at := parent; at >= 0; at = g.records[at].parent {
		if at == child {
			return fmt.Errorf("%w: linking %d under %d forms a cycle", ErrAliasInconsistency, child, parent)
		}
	}

	g.records[child].parent = parent
	g.records[parent].children = append(g.records[parent].children, child)
	return nil
}

func (g *Group[T]) check(idx int) error {
	if idx < 0 || idx >= len(g.records) {
		return fmt.Errorf("%w: unknown record %d", ErrAliasInconsistency, idx)
	}
	return nil
}

// Range returns the absolute range of record idx.
func (g *Group[T]) Range(idx int) Range {
	return g.records[idx].rng
}

// Handle returns the handle of record idx, or nil once it has been
// collected.
func (g *Group[T]) Handle(idx int) *T {
	return g.records[idx].ref.Value()
}

// Parent returns the parent index of idx and whether it has one.
func (g *Group[T]) Parent(idx int) (int, bool) {
	p := g.records[idx].parent
	return p, p >= 0
}

// Children returns the live direct children of idx.
func (g *Group[T]) Children(idx int) []Entry[T] {
	var out []Entry[T]
	for _, c := range g.records[idx].children {
		if e, ok := g.entry(c); ok {
			out = append(out, e)
		}
	}
	return out
}

// Siblings returns the live handles sharing the buffer with idx that are
// neither idx itself nor its direct parent or children.
func (g *Group[T]) Siblings(idx int) []Entry[T] {
	related := map[int]bool{idx: true}
	if p, ok := g.Parent(idx); ok {
		related[p] = true
	}
	for _, c := range g.records[idx].children {
		related[c] = true
	}

	var out []Entry[T]
	for i := range g.records {
		if related[i] {
			continue
		}
		if e, ok := g.entry(i); ok {
			out = append(out, e)
		}
	}
	return out
}

// Overlapping returns every live handle of the group whose range
// intersects r, in registration order. The cost is linear in the number of
// records, which stays small since alias fan-out is expected to be small.
func (g *Group[T]) Overlapping(r Range) []Entry[T] {
	var out []Entry[T]
	for i := range g.records {
		if !g.records[i].rng.Overlaps(r) {
			continue
		}
		if e, ok := g.entry(i); ok {
			out = append(out, e)
		}
	}
	return out
}

// Live returns every live handle of the group in registration order.
func (g *Group[T]) Live() []Entry[T] {
	var out []Entry[T]
	for i := range g.records {
		if e, ok := g.entry(i); ok {
			out = append(out, e)
		}
	}
	return out
}

func (g *Group[T]) entry(idx int) (Entry[T], bool) {
	h := g.records[idx].ref.Value()
	if h == nil {
		return Entry[T]{}, false
	}
	return Entry[T]{Index: idx, Range: g.records[idx].rng, Handle: h}, true
}
