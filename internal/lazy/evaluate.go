package lazy

import (
	"fmt"

	"github.com/born-ml/lazyarray/internal/alias"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Evaluate forces h and returns its materialized region of the shared
// buffer. Pending aliases overlapping h whose writes h's value depends on
// are forced as well. Evaluating a materialized array with no such alias
// is a no-op.
//
// Evaluation is all-or-nothing: when compiling or running any expression
// fails, no buffer is modified and the error is an *EvaluationError.
func (c *Context) Evaluate(h *Array) (*tensor.RawTensor, error) {
	if err := c.own(h); err != nil {
		return nil, err
	}
	roots := c.preceding(h)
	if h.pending != nil {
		roots = append(roots, h)
	}
	if err := c.force(h, roots); err != nil {
		return nil, err
	}
	return h.st.window(h.rng), nil
}

// value returns the expression of h's current value. Before capturing it,
// every overlapping pending alias outside h's own expression is forced, so
// the buffer under h reflects every write that logically precedes it.
func (c *Context) value(h *Array) (*expr.Node, error) {
	if err := c.sync(h); err != nil {
		return nil, err
	}
	if h.pending != nil {
		return h.pending, nil
	}
	return c.build.Leaf(h.st.source(c.build, h.rng)), nil
}

// operand returns a snapshot of h's current value for use in another
// array's expression. Alias views are turned into plain windows: the
// snapshot must not be rebased when the aliases change later.
func (c *Context) operand(h *Array) (*expr.Node, error) {
	v, err := c.value(h)
	if err != nil {
		return nil, err
	}
	return c.build.Snapshot(v)
}

// sync forces every pending alias overlapping h that is not already part
// of h's pending expression.
func (c *Context) sync(h *Array) error {
	return c.force(h, c.preceding(h))
}

// preceding returns the pending aliases overlapping h that are not already
// part of h's pending expression.
func (c *Context) preceding(h *Array) []*Array {
	closure := make(map[int]bool)
	if h.pending != nil {
		for _, o := range expr.Owners(h.pending) {
			closure[o.Index] = true
		}
	}
	var out []*Array
	for _, e := range h.st.group.Overlapping(h.rng) {
		a := e.Handle
		if a == h || closure[e.Index] || a.pending == nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// force evaluates roots together with every pending alias they refer to,
// dependencies first. All programs run before the first write, so a
// failure anywhere leaves every buffer untouched. Failures are reported
// against h.
func (c *Context) force(h *Array, roots []*Array) error {
	if len(roots) == 0 {
		return nil
	}
	order, err := c.chain(roots)
	if err != nil {
		return err
	}

	results := make([]*tensor.RawTensor, len(order))
	for i, a := range order {
		out, err := c.execute(a)
		if err != nil {
			return &EvaluationError{Array: h.String(), Err: err}
		}
		results[i] = out
	}

	for i, a := range order {
		if err := c.commit(a, results[i]); err != nil {
			return err
		}
	}
	return nil
}

// chain orders every root after each live alias whose pending value the
// root's expression refers to. Shared dependencies appear once.
func (c *Context) chain(roots []*Array) ([]*Array, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Array]int)
	var order []*Array

	var visit func(a *Array) error
	visit = func(a *Array) error {
		switch state[a] {
		case visiting:
			return fmt.Errorf("%w: %s depends on itself", alias.ErrAliasInconsistency, a)
		case done:
			return nil
		}
		state[a] = visiting
		for _, v := range expr.Views(a.pending) {
			o, err := a.st.owner(v.Owner())
			if err != nil {
				return err
			}
			if o == nil {
				// Collected; the view still holds the value it referred to.
				continue
			}
			if o.pending != v.Inputs()[0] {
				return fmt.Errorf("%w: %s refers to a stale value of %s", alias.ErrAliasInconsistency, a, o)
			}
			if err := visit(o); err != nil {
				return err
			}
		}
		state[a] = done
		order = append(order, a)
		return nil
	}

	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// execute compiles and runs a's pending expression.
func (c *Context) execute(a *Array) (*tensor.RawTensor, error) {
	exe, err := c.compiler.Compile(a.pending)
	if err != nil {
		return nil, err
	}
	srcs := exe.Inputs()
	inputs := make([]*tensor.RawTensor, len(srcs))
	for i, src := range srcs {
		inputs[i] = src.Raw()
	}
	out, err := exe.Run(inputs)
	if err != nil {
		return nil, err
	}
	if out.DType() != a.DType() || out.NumElements() != a.Len() {
		return nil, fmt.Errorf("result of %d x %s for %s: %w", out.NumElements(), out.DType(), a, tensor.ErrLengthMismatch)
	}
	c.log.Debug("evaluate", "array", a.String(), "nodes", len(expr.Topo(a.pending)), "inputs", len(srcs), "interned", c.build.Interned())
	return out, nil
}

// commit writes a's result into its range and rebases the aliases that
// referred to a's pending value. An alias already collapsed onto its own
// region by an earlier rebase of the same chain is not written again.
func (c *Context) commit(a *Array, out *tensor.RawTensor) error {
	if a.pending == nil {
		return nil
	}
	if err := a.st.write(a.rng, out); err != nil {
		return err
	}
	a.pending = nil
	return c.rebase(a)
}

// rebase replaces, in every alias overlapping the settled array a, the view
// nodes that refer to a's former pending value with leaves over the freshly
// written region. An alias whose expression collapses onto its own region
// becomes materialized and is settled in turn.
func (c *Context) rebase(a *Array) error {
	st := a.st
	queue := []*Array{a}
	for len(queue) > 0 {
		settled := queue[0]
		queue = queue[1:]
		owner := settled.owner()

		visited := make(map[int]bool)
		for _, e := range st.group.Overlapping(settled.rng) {
			if e.Index == settled.idx {
				continue
			}
			if visited[e.Index] {
				return fmt.Errorf("%w: %s visited twice rebasing %s", alias.ErrAliasInconsistency, e.Handle, settled)
			}
			visited[e.Index] = true

			b := e.Handle
			if b.pending == nil || len(expr.ViewsOf(b.pending, owner)) == 0 {
				continue
			}
			node, err := c.build.Rewrite(b.pending, func(n *expr.Node) (*expr.Node, error) {
				if n.Kind() != expr.KindView || n.Owner() != owner {
					return nil, nil
				}
				r := alias.Range{Start: settled.rng.Start + n.Offset(), End: settled.rng.Start + n.Offset() + n.Len()}
				return c.build.Leaf(st.source(c.build, r)), nil
			})
			if err != nil {
				return err
			}
			b.pending = node
			if node.Kind() == expr.KindSource && st.current(node.Source(), b.rng) {
				b.pending = nil
				queue = append(queue, b)
			}
			c.log.Debug("rebase", "array", b.String(), "settled", settled.String())
		}
	}
	return nil
}
