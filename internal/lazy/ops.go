package lazy

import (
	"errors"
	"fmt"

	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/promote"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Operand is an operation input: an *Array or a Scalar.
type Operand interface {
	isOperand()
}

// Scalar is a numeric operand broadcast to the length of the arrays it is
// combined with. Integer scalars take the array's dtype; float scalars take
// float dtypes and promote integer arrays to float64.
type Scalar struct {
	Value any
}

func (*Array) isOperand() {}
func (Scalar) isOperand() {}

// Unary applies op to h and returns a new array. Deferrable operations
// produce a pending array; everything else is computed eagerly on the
// host runtime and returns a materialized array.
func (c *Context) Unary(op expr.Op, h *Array) (*Array, error) {
	if op.Arity() != 1 {
		return nil, fmt.Errorf("%s on one operand: %w", op.Name(), ErrArity)
	}
	if err := c.own(h); err != nil {
		return nil, err
	}

	if err := c.table.CheckUnary(op, h.DType()); err != nil {
		return c.eager(op, []Operand{h}, err)
	}

	x, err := c.operand(h)
	if err != nil {
		return nil, err
	}
	node, err := c.apply(op, x)
	if err != nil {
		return nil, err
	}
	return c.deferred(op, node), nil
}

// Binary applies op to a and b and returns a new array. At least one
// operand must be an array; arrays must have equal lengths.
func (c *Context) Binary(op expr.Op, a, b Operand) (*Array, error) {
	if op.Arity() != 2 {
		return nil, fmt.Errorf("%s on two operands: %w", op.Name(), ErrArity)
	}
	operands := []Operand{a, b}
	n, dt, err := c.inspect(operands)
	if err != nil {
		return nil, err
	}

	if err := c.checkBinary(op, a, b); err != nil {
		return c.eager(op, operands, err)
	}

	args := make([]*expr.Node, 0, 2)
	for _, o := range operands {
		x, err := c.node(o, dt, n)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	node, err := c.apply(op, args...)
	if err != nil {
		return nil, err
	}
	return c.deferred(op, node), nil
}

// Inplace rewrites target to op applied to target's current value and
// others. No new array is created. The current value is captured as a
// snapshot: expressions that read target before the call keep computing
// the old value.
func (c *Context) Inplace(op expr.Op, target *Array, others ...Operand) error {
	if op.Arity() != len(others)+1 {
		return fmt.Errorf("%s on %d operands: %w", op.Name(), len(others)+1, ErrArity)
	}
	operands := append([]Operand{target}, others...)
	if _, _, err := c.inspect(operands); err != nil {
		return err
	}

	var check error
	if len(others) == 0 {
		check = c.table.CheckUnary(op, target.DType())
	} else {
		check = c.checkBinary(op, target, others[0])
	}
	if check != nil {
		return c.eagerInplace(op, target, operands, check)
	}

	// Other operands first: capturing target last means no later force can
	// rebase target's pending expression underneath the captured value.
	args := make([]*expr.Node, len(operands))
	for i := len(operands) - 1; i >= 1; i-- {
		x, err := c.node(operands[i], target.DType(), target.Len())
		if err != nil {
			return err
		}
		args[i] = x
	}
	cur, err := c.value(target)
	if err != nil {
		return err
	}
	args[0] = cur

	node, err := c.apply(op, args...)
	if err != nil {
		return err
	}
	target.pending = node
	c.log.Debug("defer in place", "op", op.Name(), "array", target.String())
	return nil
}

// deferred wraps a pending expression in a fresh buffer of its own.
func (c *Context) deferred(op expr.Op, node *expr.Node) *Array {
	st := newStore(tensor.Zeros(node.Len(), node.DType()))
	a := &Array{ctx: c, st: st, pending: node}
	a.idx = st.group.Root(a)
	a.rng = st.group.Range(a.idx)
	c.log.Debug("defer", "op", op.Name(), "array", a.String(), "group", st.group.ID())
	return a
}

// inspect validates operands and returns their common length and the dtype
// of the first array.
func (c *Context) inspect(operands []Operand) (int, tensor.DataType, error) {
	n, dt, found := 0, tensor.Float64, false
	for _, o := range operands {
		switch v := o.(type) {
		case *Array:
			if err := c.own(v); err != nil {
				return 0, 0, err
			}
			if !found {
				n, dt, found = v.Len(), v.DType(), true
			} else if v.Len() != n {
				return 0, 0, fmt.Errorf("operands of %d and %d elements: %w", n, v.Len(), tensor.ErrLengthMismatch)
			}
		case Scalar:
			if _, err := tensor.ScalarFloat64(v.Value); err != nil {
				return 0, 0, err
			}
		case nil:
			return 0, 0, fmt.Errorf("nil operand: %w", ErrNoArray)
		default:
			panic(fmt.Sprintf("lazy: unknown operand %T", o))
		}
	}
	if !found {
		return 0, 0, ErrNoArray
	}
	return n, dt, nil
}

// checkBinary decides whether op on a and b can be deferred.
func (c *Context) checkBinary(op expr.Op, a, b Operand) error {
	dta, oka := c.operandType(a, b)
	dtb, okb := c.operandType(b, a)
	if !oka || !okb {
		return fmt.Errorf("%s with a float scalar on an integer array: %w", op.Name(), promote.ErrTypeMismatch)
	}
	return c.table.CheckBinary(op, dta, dtb)
}

// operandType returns the dtype o takes when combined with other.
func (c *Context) operandType(o, other Operand) (tensor.DataType, bool) {
	switch v := o.(type) {
	case *Array:
		return v.DType(), true
	case Scalar:
		arr, ok := other.(*Array)
		if !ok {
			return 0, false
		}
		return c.table.ScalarType(arr.DType(), v.Value)
	default:
		panic(fmt.Sprintf("lazy: unknown operand %T", o))
	}
}

// node returns the expression of an operand for a deferred operation of
// dtype dt over n elements.
func (c *Context) node(o Operand, dt tensor.DataType, n int) (*expr.Node, error) {
	switch v := o.(type) {
	case *Array:
		return c.operand(v)
	case Scalar:
		return c.build.Const(dt, v.Value, n)
	default:
		panic(fmt.Sprintf("lazy: unknown operand %T", o))
	}
}

// apply builds the node for op.
func (c *Context) apply(op expr.Op, args ...*expr.Node) (*expr.Node, error) {
	switch o := op.(type) {
	case expr.Unary:
		return c.build.Unary(o.Fn, args[0]), nil
	case expr.Binary:
		return c.build.Binary(o.Fn, args[0], args[1])
	case expr.HostFallback:
		return nil, fmt.Errorf("%s: %w", o.Fn, promote.ErrUnsupportedOperation)
	default:
		panic(fmt.Sprintf("lazy: unknown op %T", op))
	}
}

// eager computes op on the host runtime and wraps the result.
func (c *Context) eager(op expr.Op, operands []Operand, reason error) (*Array, error) {
	c.log.Debug("fallback", "op", op.Name(), "reason", reason.Error())
	out, err := c.native(op, operands)
	if err != nil {
		return nil, err
	}
	return c.Wrap(out), nil
}

// eagerInplace computes op on the host runtime and stores the result in
// target's range.
func (c *Context) eagerInplace(op expr.Op, target *Array, operands []Operand, reason error) error {
	c.log.Debug("fallback in place", "op", op.Name(), "array", target.String(), "reason", reason.Error())
	out, err := c.native(op, operands)
	if err != nil {
		return err
	}
	if out.DType().IsFloat() && !target.DType().IsFloat() {
		return fmt.Errorf("%s result %s into %s array: %w", op.Name(), out.DType(), target.DType(), ErrUnsafeCast)
	}
	out = c.backend.Cast(out, target.DType())

	// native evaluated target, so no alias overlapping it is pending.
	if err := c.sync(target); err != nil {
		return err
	}
	return target.st.write(target.rng, out)
}

// native evaluates every operand and runs op eagerly. Operands are cast to
// the dtype the promotion table resolves for them first; the host kernels decide the result dtype of
// unary operations.
func (c *Context) native(op expr.Op, operands []Operand) (out *tensor.RawTensor, err error) {
	n, dt, err := c.inspect(operands)
	if err != nil {
		return nil, err
	}
	for _, o := range operands {
		if v, ok := o.(*Array); ok {
			dt = c.table.Resolve(dt, v.DType())
		}
	}
	for _, o := range operands {
		if v, ok := o.(Scalar); ok {
			if _, fits := c.table.ScalarType(dt, v.Value); !fits {
				dt = c.table.Resolve(dt, tensor.Float64)
			}
		}
	}

	args := make([]*tensor.RawTensor, 0, len(operands))
	for _, o := range operands {
		var raw *tensor.RawTensor
		switch v := o.(type) {
		case *Array:
			if raw, err = c.Evaluate(v); err != nil {
				return nil, err
			}
			raw = c.backend.Cast(raw, dt)
		case Scalar:
			if raw, err = c.backend.Fill(n, dt, v.Value); err != nil {
				return nil, err
			}
		}
		args = append(args, raw)
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%s: %v: %w", op.Name(), r, ErrFallback)
		}
	}()
	return c.run(op, args), nil
}

// run dispatches op to the host backend.
func (c *Context) run(op expr.Op, args []*tensor.RawTensor) *tensor.RawTensor {
	be := c.backend
	switch o := op.(type) {
	case expr.Unary:
		switch o.Fn {
		case expr.Exp:
			return be.Exp(args[0])
		case expr.Log:
			return be.Log(args[0])
		case expr.Sqrt:
			return be.Sqrt(args[0])
		}
	case expr.Binary:
		switch o.Fn {
		case expr.Add:
			return be.Add(args[0], args[1])
		case expr.Subtract:
			return be.Sub(args[0], args[1])
		case expr.Multiply:
			return be.Mul(args[0], args[1])
		case expr.Divide:
			return be.Div(args[0], args[1])
		}
	case expr.HostFallback:
		switch o.Fn {
		case expr.Sin:
			return be.Sin(args[0])
		case expr.Cos:
			return be.Cos(args[0])
		case expr.Tanh:
			return be.Tanh(args[0])
		case expr.Abs:
			return be.Abs(args[0])
		case expr.Negative:
			return be.Neg(args[0])
		case expr.Square:
			return be.Square(args[0])
		}
	}
	panic(fmt.Sprintf("lazy: unknown op %#v", op))
}

// IsFallback reports whether err is one of the non-fatal reasons an
// operation was executed eagerly.
func IsFallback(err error) bool {
	return errors.Is(err, promote.ErrUnsupportedOperation) || errors.Is(err, promote.ErrTypeMismatch)
}
