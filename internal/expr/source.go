package expr

import "github.com/born-ml/lazyarray/internal/tensor"

// IDGen hands out monotonic identifiers. Each engine context owns one and
// threads it through its builder, so naming never depends on shared global
// counters. It is not safe for concurrent use.
type IDGen struct {
	next uint64
}

// Next returns the next identifier, starting at 1.
func (g *IDGen) Next() uint64 {
	g.next++
	return g.next
}

// Source is a leaf input: a snapshot of a buffer region as it was when the
// leaf was captured. While the region is untouched the source reads the
// live buffer; before anything overwrites the region the owner of the
// buffer calls Detach, which moves the source onto a private copy of the old
// contents.
type Source struct {
	id       uint64
	raw      *tensor.RawTensor
	detached bool
}

// ID returns the source's identity.
func (s *Source) ID() uint64 { return s.id }

// Raw returns the region the source currently reads from.
func (s *Source) Raw() *tensor.RawTensor { return s.raw }

// Len returns the number of elements of the source.
func (s *Source) Len() int { return s.raw.NumElements() }

// DType returns the element type of the source.
func (s *Source) DType() tensor.DataType { return s.raw.DType() }

// Detached reports whether the source has been moved onto a private copy.
func (s *Source) Detached() bool { return s.detached }

// Detach moves the source onto a private copy of its current contents.
// Detaching twice is a no-op.
func (s *Source) Detach() {
	if s.detached {
		return
	}
	s.raw = s.raw.Copy()
	s.detached = true
}
