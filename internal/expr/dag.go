package expr

import "fmt"

// Walk visits every node reachable from root exactly once, operands before
// the nodes that use them.
func Walk(root *Node, visit func(*Node)) {
	seen := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, in := range n.inputs {
			walk(in)
		}
		visit(n)
	}
	walk(root)
}

// Topo returns the nodes reachable from root in dependency order, root
// last.
func Topo(root *Node) []*Node {
	var out []*Node
	Walk(root, func(n *Node) { out = append(out, n) })
	return out
}

// Sources returns the distinct leaf sources read by root, in first-use
// order.
func Sources(root *Node) []*Source {
	var out []*Source
	Walk(root, func(n *Node) {
		if n.kind == KindSource {
			out = append(out, n.source)
		}
	})
	return out
}

// Owners returns the distinct aliases whose pending values root refers to
// through view nodes, in first-use order. Plain windows are skipped.
func Owners(root *Node) []Owner {
	seen := make(map[Owner]bool)
	var out []Owner
	Walk(root, func(n *Node) {
		if n.kind == KindView && !n.owner.IsZero() && !seen[n.owner] {
			seen[n.owner] = true
			out = append(out, n.owner)
		}
	})
	return out
}

// Views returns the view nodes under root that refer to an alias.
func Views(root *Node) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if n.kind == KindView && !n.owner.IsZero() {
			out = append(out, n)
		}
	})
	return out
}

// ViewsOf returns the view nodes under root that refer to owner.
func ViewsOf(root *Node, owner Owner) []*Node {
	var out []*Node
	for _, n := range Views(root) {
		if n.owner == owner {
			out = append(out, n)
		}
	}
	return out
}

// Rewrite rebuilds root bottom-up. For every node, replace is offered the
// node with its operands already rewritten; returning a non-nil node
// substitutes it. Unchanged sub-expressions are returned as is, so the
// result shares every untouched node with root.
func (b *Builder) Rewrite(root *Node, replace func(*Node) (*Node, error)) (*Node, error) {
	memo := make(map[*Node]*Node)
	var rewrite func(*Node) (*Node, error)
	rewrite = func(n *Node) (*Node, error) {
		if out, ok := memo[n]; ok {
			return out, nil
		}

		inputs := make([]*Node, len(n.inputs))
		changed := false
		for i, in := range n.inputs {
			out, err := rewrite(in)
			if err != nil {
				return nil, err
			}
			inputs[i] = out
			changed = changed || out != in
		}

		cur := n
		if changed {
			var err error
			if cur, err = b.rebuild(n, inputs); err != nil {
				return nil, err
			}
		}
		sub, err := replace(cur)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			if sub.dtype != cur.dtype || sub.length != cur.length {
				return nil, fmt.Errorf("substitute %s for %s: %w", sub, cur, ErrShapeMismatch)
			}
			cur = sub
		}
		memo[n] = cur
		return cur, nil
	}
	return rewrite(root)
}

// Snapshot replaces every view node under root by a plain window over the
// same value. The result computes the same elements but no longer refers
// to any alias, so it is never rebased.
func (b *Builder) Snapshot(root *Node) (*Node, error) {
	return b.Rewrite(root, func(n *Node) (*Node, error) {
		if n.kind != KindView || n.owner.IsZero() {
			return nil, nil
		}
		return b.Slice(n.offset, n.length, n.inputs[0])
	})
}

// rebuild creates a copy of n over new operands.
func (b *Builder) rebuild(n *Node, inputs []*Node) (*Node, error) {
	switch n.kind {
	case KindUnary:
		return b.Unary(n.unary, inputs[0]), nil
	case KindBinary:
		return b.Binary(n.binary, inputs[0], inputs[1])
	case KindView:
		return b.View(n.owner, n.offset, n.length, inputs[0])
	case KindSource, KindConst:
		return n, nil
	default:
		panic(fmt.Sprintf("expr: unknown node kind %d", n.kind))
	}
}
