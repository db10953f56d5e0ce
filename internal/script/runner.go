package script

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/lazy"
	"github.com/born-ml/lazyarray/internal/tensor"
)

var (
	// ErrCheckFailed is returned when a check step sees other values.
	ErrCheckFailed = errors.New("check failed")

	// ErrUnknownArray is returned when a step names an undeclared array.
	ErrUnknownArray = errors.New("unknown array")
)

// Runner executes scenarios against a context and writes a transcript.
type Runner struct {
	ctx    *lazy.Context
	out    io.Writer
	arrays map[string]*lazy.Array
}

// NewRunner creates a runner. Arrays declared by earlier runs are
// forgotten at the start of each Run.
func NewRunner(ctx *lazy.Context, out io.Writer) *Runner {
	return &Runner{ctx: ctx, out: out}
}

// Run executes every step of s. It stops at the first failing step.
func (r *Runner) Run(s *Scenario) error {
	r.arrays = make(map[string]*lazy.Array)
	r.printf("scenario %s\n", s.Name)

	for _, d := range s.Arrays {
		if err := r.declare(d); err != nil {
			return fmt.Errorf("array %s: %w", d.Name, err)
		}
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if err := r.step(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}
	return nil
}

// Array returns the array bound to name by the last Run.
func (r *Runner) Array(name string) (*lazy.Array, bool) {
	a, ok := r.arrays[name]
	return a, ok
}

func (r *Runner) declare(d ArrayDecl) error {
	dt, err := tensor.ParseDataType(d.DType)
	if err != nil {
		return err
	}
	var raw *tensor.RawTensor
	if d.Arange != nil {
		raw = tensor.Arange(d.Arange[0], d.Arange[1], dt)
	} else {
		raw = tensor.FromFloat64(d.Values, dt)
	}
	a := r.ctx.Wrap(raw)
	r.arrays[d.Name] = a
	r.printf("%s := %s[%d] %s\n", d.Name, dt, a.Len(), formatValues(tensor.ToFloat64(raw)))
	return nil
}

func (r *Runner) step(s *Step) error {
	switch s.Kind() {
	case "let":
		return r.let(s.Let)
	case "slice":
		return r.slice(s.Slice)
	case "inplace":
		return r.inplace(s.Inplace)
	case "eval":
		return r.eval(s.Eval)
	case "print":
		return r.print(s.Print)
	case "explain":
		return r.explain(s.Explain)
	case "set":
		return r.set(s.Set)
	case "get":
		return r.get(s.Get)
	case "check":
		return r.check(s.Check)
	default:
		return fmt.Errorf("%w: step must hold exactly one action", ErrInvalidScenario)
	}
}

func (r *Runner) let(s *LetStep) error {
	op, err := expr.ParseOp(s.Op)
	if err != nil {
		return err
	}
	args, err := r.operands(s.Args)
	if err != nil {
		return err
	}

	var out *lazy.Array
	switch len(args) {
	case 1:
		a, ok := args[0].(*lazy.Array)
		if !ok {
			return fmt.Errorf("%s of a scalar: %w", s.Op, lazy.ErrNoArray)
		}
		out, err = r.ctx.Unary(op, a)
	case 2:
		out, err = r.ctx.Binary(op, args[0], args[1])
	default:
		err = fmt.Errorf("%s on %d operands: %w", s.Op, len(args), lazy.ErrArity)
	}
	if err != nil {
		return err
	}
	r.arrays[s.Name] = out
	r.printf("%s := %s(%s) %s\n", s.Name, s.Op, formatArgs(s.Args), state(out))
	return nil
}

func (r *Runner) slice(s *SliceStep) error {
	parent, err := r.lookup(s.Of)
	if err != nil {
		return err
	}
	v, err := r.ctx.Slice(parent, s.Lo, s.Hi)
	if err != nil {
		return err
	}
	r.arrays[s.Name] = v
	r.printf("%s := %s[%d:%d] %s\n", s.Name, s.Of, s.Lo, s.Hi, state(v))
	return nil
}

func (r *Runner) inplace(s *InplaceStep) error {
	op, err := expr.ParseOp(s.Op)
	if err != nil {
		return err
	}
	target, err := r.lookup(s.Target)
	if err != nil {
		return err
	}
	others, err := r.operands(s.Args)
	if err != nil {
		return err
	}
	if err := r.ctx.Inplace(op, target, others...); err != nil {
		return err
	}
	args := append([]any{s.Target}, s.Args...)
	r.printf("%s = %s(%s) %s\n", s.Target, s.Op, formatArgs(args), state(target))
	return nil
}

func (r *Runner) eval(name string) error {
	a, err := r.lookup(name)
	if err != nil {
		return err
	}
	if _, err := r.ctx.Evaluate(a); err != nil {
		return err
	}
	r.printf("eval %s\n", name)
	return nil
}

func (r *Runner) print(name string) error {
	a, err := r.lookup(name)
	if err != nil {
		return err
	}
	vals, err := r.ctx.Values(a)
	if err != nil {
		return err
	}
	r.printf("%s: %s\n", name, formatValues(vals))
	return nil
}

func (r *Runner) explain(name string) error {
	a, err := r.lookup(name)
	if err != nil {
		return err
	}
	text, err := r.ctx.Program(a)
	if err != nil {
		return err
	}
	if text == "" {
		r.printf("explain %s: materialized\n", name)
		return nil
	}
	r.printf("explain %s\n", name)
	for _, line := range strings.Split(text, "\n") {
		r.printf("  %s\n", line)
	}
	return nil
}

func (r *Runner) set(s *SetStep) error {
	a, err := r.lookup(s.Array)
	if err != nil {
		return err
	}
	v, err := tensor.ScalarFloat64(s.Value)
	if err != nil {
		return err
	}
	if err := r.ctx.Set(a, s.Index, s.Value); err != nil {
		return err
	}
	r.printf("%s[%d] = %s\n", s.Array, s.Index, formatValue(v))
	return nil
}

func (r *Runner) get(s *GetStep) error {
	a, err := r.lookup(s.Array)
	if err != nil {
		return err
	}
	v, err := r.ctx.Get(a, s.Index)
	if err != nil {
		return err
	}
	f, err := tensor.ScalarFloat64(v)
	if err != nil {
		return err
	}
	r.printf("%s[%d] -> %s\n", s.Array, s.Index, formatValue(f))
	return nil
}

func (r *Runner) check(s *CheckStep) error {
	a, err := r.lookup(s.Array)
	if err != nil {
		return err
	}
	got, err := r.ctx.Values(a)
	if err != nil {
		return err
	}
	if len(got) != len(s.Values) {
		return fmt.Errorf("%w: %s has %d elements, want %d", ErrCheckFailed, s.Array, len(got), len(s.Values))
	}
	for i, want := range s.Values {
		if !within(got[i], want, s.Tolerance) {
			return fmt.Errorf("%w: %s[%d] = %s, want %s", ErrCheckFailed, s.Array, i, formatValue(got[i]), formatValue(want))
		}
	}
	r.printf("check %s ok\n", s.Array)
	return nil
}

// within reports whether got matches want within tol. NaN matches NaN.
func within(got, want, tol float64) bool {
	if got == want || math.IsNaN(got) && math.IsNaN(want) {
		return true
	}
	return math.Abs(got-want) <= tol
}

func (r *Runner) lookup(name string) (*lazy.Array, error) {
	a, ok := r.arrays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArray, name)
	}
	return a, nil
}

// operands resolves step arguments: strings name arrays, numbers become
// scalars.
func (r *Runner) operands(args []any) ([]lazy.Operand, error) {
	out := make([]lazy.Operand, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			a, err := r.lookup(v)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		case int:
			out = append(out, lazy.Scalar{Value: v})
		case float64:
			out = append(out, lazy.Scalar{Value: v})
		default:
			return nil, fmt.Errorf("%w: argument %v of type %T", ErrInvalidScenario, arg, arg)
		}
	}
	return out, nil
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func state(a *lazy.Array) string {
	if a.Materialized() {
		return "materialized"
	}
	return "pending"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatValues(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case float64:
			parts[i] = formatValue(v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ", ")
}
