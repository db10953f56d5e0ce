// Package kernel compiles expression DAGs into straight-line programs and
// runs them on a host backend.
//
// A Program is a topologically ordered list of vectorized instructions, one
// per distinct node, so a sub-expression shared by several consumers is
// computed once. Programs read their leaves from input buffers passed to
// Run and always return a freshly allocated result.
package kernel

import (
	"fmt"
	"strings"

	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/tensor"
)

type opcode uint8

const (
	opInput opcode = iota
	opConst
	opUnary
	opBinary
	opSlice
)

// instr is one program step. Its result occupies the slot with the same
// index as the instruction.
type instr struct {
	code  opcode
	node  *expr.Node
	args  []int // operand slots
	input int   // input index for opInput
}

// Program is a compiled expression.
type Program struct {
	backend tensor.Backend
	root    *expr.Node
	inputs  []*expr.Source
	code    []instr
}

// Compiler turns expressions into programs bound to a backend.
type Compiler struct {
	backend tensor.Backend
}

// New creates a compiler whose programs run on backend.
func New(backend tensor.Backend) *Compiler {
	return &Compiler{backend: backend}
}

// Compile translates the DAG rooted at root into a program.
func (c *Compiler) Compile(root *expr.Node) (*Program, error) {
	if root == nil {
		return nil, &CompileError{Node: "<nil>", Reason: "empty expression"}
	}

	p := &Program{backend: c.backend, root: root}
	slots := make(map[*expr.Node]int)
	inputs := make(map[*expr.Source]int)

	for _, n := range expr.Topo(root) {
		in := instr{node: n}
		switch n.Kind() {
		case expr.KindSource:
			idx, ok := inputs[n.Source()]
			if !ok {
				idx = len(p.inputs)
				inputs[n.Source()] = idx
				p.inputs = append(p.inputs, n.Source())
			}
			in.code = opInput
			in.input = idx
		case expr.KindConst:
			in.code = opConst
		case expr.KindUnary:
			if !n.DType().IsFloat() {
				return nil, &CompileError{Node: n.String(), Reason: fmt.Sprintf("%s is not defined on %s vectors", n.UnaryFn(), n.DType())}
			}
			in.code = opUnary
		case expr.KindBinary:
			in.code = opBinary
		case expr.KindView:
			in.code = opSlice
		default:
			return nil, &CompileError{Node: n.String(), Reason: fmt.Sprintf("unsupported node kind %s", n.Kind())}
		}
		for _, operand := range n.Inputs() {
			in.args = append(in.args, slots[operand])
		}
		slots[n] = len(p.code)
		p.code = append(p.code, in)
	}
	return p, nil
}

// Root returns the expression the program was compiled from.
func (p *Program) Root() *expr.Node { return p.root }

// Inputs returns the leaf sources the program reads, in the order Run
// expects their buffers.
func (p *Program) Inputs() []*expr.Source { return p.inputs }

// Steps returns the number of instructions.
func (p *Program) Steps() int { return len(p.code) }

// Run executes the program. inputs[i] must match Inputs()[i] in dtype and
// length. A failing kernel never leaves partial state behind: the result is
// only returned when every step succeeded.
func (p *Program) Run(inputs []*tensor.RawTensor) (result *tensor.RawTensor, err error) {
	if len(inputs) != len(p.inputs) {
		return nil, &ExecutionError{Step: -1, Err: fmt.Errorf("got %d inputs, want %d", len(inputs), len(p.inputs))}
	}
	for i, in := range inputs {
		want := p.inputs[i]
		if in.DType() != want.DType() || in.NumElements() != want.Len() {
			return nil, &ExecutionError{Step: -1, Err: fmt.Errorf("input %d is %d x %s, want %d x %s",
				i, in.NumElements(), in.DType(), want.Len(), want.DType())}
		}
	}

	step := -1
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExecutionError{Step: step, Err: fmt.Errorf("%v", r)}
		}
	}()

	vals := make([]*tensor.RawTensor, len(p.code))
	owned := make([]bool, len(p.code))
	for i, in := range p.code {
		step = i
		out, own, err := p.exec(in, vals, owned, inputs)
		if err != nil {
			return nil, &ExecutionError{Step: i, Err: err}
		}
		vals[i], owned[i] = out, own
	}

	last := len(p.code) - 1
	result = vals[last]
	if result.DType() != p.root.DType() || result.NumElements() != p.root.Len() {
		return nil, &ExecutionError{Step: last, Err: fmt.Errorf("result is %d x %s, want %d x %s",
			result.NumElements(), result.DType(), p.root.Len(), p.root.DType())}
	}
	if !owned[last] {
		result = result.Copy()
	}
	return result, nil
}

// exec runs one instruction. own reports whether the result is a fresh
// buffer rather than a view of an input.
func (p *Program) exec(in instr, vals []*tensor.RawTensor, owned []bool, inputs []*tensor.RawTensor) (*tensor.RawTensor, bool, error) {
	be := p.backend
	n := in.node
	switch in.code {
	case opInput:
		return inputs[in.input], false, nil
	case opConst:
		out, err := be.Fill(n.Len(), n.DType(), n.Value())
		return out, true, err
	case opUnary:
		x := vals[in.args[0]]
		switch n.UnaryFn() {
		case expr.Exp:
			return be.Exp(x), true, nil
		case expr.Log:
			return be.Log(x), true, nil
		case expr.Sqrt:
			return be.Sqrt(x), true, nil
		default:
			panic(fmt.Sprintf("kernel: unknown unary fn %d", n.UnaryFn()))
		}
	case opBinary:
		a, b := vals[in.args[0]], vals[in.args[1]]
		switch n.BinaryFn() {
		case expr.Add:
			return be.Add(a, b), true, nil
		case expr.Subtract:
			return be.Sub(a, b), true, nil
		case expr.Multiply:
			return be.Mul(a, b), true, nil
		case expr.Divide:
			return be.Div(a, b), true, nil
		default:
			panic(fmt.Sprintf("kernel: unknown binary fn %d", n.BinaryFn()))
		}
	case opSlice:
		x := vals[in.args[0]]
		out, err := x.View(n.Offset(), n.Offset()+n.Len())
		return out, owned[in.args[0]], err
	default:
		panic(fmt.Sprintf("kernel: unknown opcode %d", in.code))
	}
}

// String renders the program in a let-binding text form:
//
//	|in0: vec[f64], in1: vec[f64]|
//	let v0 = in0 + in1;
//	let v1 = exp(v0);
//	v1
func (p *Program) String() string {
	names := make([]string, len(p.code))
	var sb strings.Builder

	sb.WriteByte('|')
	for i, src := range p.inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "in%d: vec[%s]", i, typeName(src.DType()))
	}
	sb.WriteString("|\n")

	next := 0
	for i, in := range p.code {
		n := in.node
		arg := func(k int) string { return names[in.args[k]] }
		var rhs string
		switch in.code {
		case opInput:
			names[i] = fmt.Sprintf("in%d", in.input)
			continue
		case opConst:
			names[i] = n.String()
			continue
		case opUnary:
			rhs = fmt.Sprintf("%s(%s)", n.UnaryFn(), arg(0))
		case opBinary:
			rhs = fmt.Sprintf("%s %s %s", arg(0), n.BinaryFn().Symbol(), arg(1))
		case opSlice:
			rhs = fmt.Sprintf("slice(%s, %dL, %dL)", arg(0), n.Offset(), n.Len())
		}
		names[i] = fmt.Sprintf("v%d", next)
		next++
		fmt.Fprintf(&sb, "let %s = %s;\n", names[i], rhs)
	}

	last := names[len(names)-1]
	if p.code[len(p.code)-1].code == opConst {
		// A bare constant has no vector shape of its own.
		last = fmt.Sprintf("result(%s, %dL)", last, p.root.Len())
	}
	sb.WriteString(last)
	return sb.String()
}

func typeName(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "f32"
	case tensor.Float64:
		return "f64"
	case tensor.Int32:
		return "i32"
	case tensor.Int64:
		return "i64"
	default:
		return dt.String()
	}
}
