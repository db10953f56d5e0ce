package cpu

import (
	"testing"

	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/tensor"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New(WithParallel(parallel.Sequential()))
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-6
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

// TestCPUBackend_Add tests element-wise addition.
func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	a := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6})
	b := tensor.FromSlice([]float32{10, 11, 12, 13, 14, 15})

	result := backend.Add(a, b)

	expected := []float32{11, 13, 15, 17, 19, 21}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Add failed: got %v, expected %v", result.AsFloat32(), expected)
	}

	// Inputs are never modified.
	if a.AsFloat32()[0] != 1 {
		t.Errorf("Add modified its input: %v", a.AsFloat32())
	}
}

func TestCPUBackend_BinaryAllTypes(t *testing.T) {
	backend := newTestBackend()

	tests := []struct {
		name string
		op   func(a, b *tensor.RawTensor) *tensor.RawTensor
		want []float64
	}{
		{"add", backend.Add, []float64{9, 12, 15}},
		{"sub", backend.Sub, []float64{-5, -4, -3}},
		{"mul", backend.Mul, []float64{14, 32, 54}},
		{"div", backend.Div, []float64{2.0 / 7, 4.0 / 8, 6.0 / 9}},
	}

	for _, dtype := range []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64} {
		for _, tt := range tests {
			t.Run(dtype.String()+"/"+tt.name, func(t *testing.T) {
				a := tensor.FromFloat64([]float64{2, 4, 6}, dtype)
				b := tensor.FromFloat64([]float64{7, 8, 9}, dtype)

				result := tt.op(a, b)
				if result.DType() != dtype {
					t.Fatalf("dtype = %s, want %s", result.DType(), dtype)
				}

				got := tensor.ToFloat64(result)
				for i, want := range tt.want {
					if !dtype.IsFloat() {
						want = float64(int64(want))
					}
					if diff := got[i] - want; diff > 1e-6 || diff < -1e-6 {
						t.Errorf("[%d] = %v, want %v", i, got[i], want)
					}
				}
			})
		}
	}
}

func TestCPUBackend_IntDivByZeroPanics(t *testing.T) {
	backend := newTestBackend()
	a := tensor.FromSlice([]int32{1, 2})
	b := tensor.FromSlice([]int32{1, 0})

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on integer division by zero")
		}
	}()
	backend.Div(a, b)
}

func TestCPUBackend_MismatchedOperandsPanic(t *testing.T) {
	backend := newTestBackend()

	t.Run("dtype", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic on dtype mismatch")
			}
		}()
		backend.Add(tensor.FromSlice([]float32{1}), tensor.FromSlice([]float64{1}))
	})

	t.Run("length", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic on length mismatch")
			}
		}()
		backend.Add(tensor.FromSlice([]float32{1}), tensor.FromSlice([]float32{1, 2}))
	})
}

func TestCPUBackend_ReadWrite(t *testing.T) {
	backend := newTestBackend()
	x := backend.Allocate(3, tensor.Int64)

	if err := backend.Write(x, 1, 42); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	v, err := backend.Read(x, 1)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if v != int64(42) {
		t.Errorf("Read = %v (%T), want int64(42)", v, v)
	}

	if _, err := backend.Read(x, 3); err == nil {
		t.Error("Expected out of range error")
	}
}

func TestCPUBackend_Scalar(t *testing.T) {
	backend := newTestBackend()
	x := tensor.FromSlice([]float32{1, 2, 3})

	got := backend.AddScalar(x, 5.0).AsFloat32()
	if !float32SliceEqual(got, []float32{6, 7, 8}) {
		t.Errorf("AddScalar = %v", got)
	}

	got = backend.DivScalar(x, 2).AsFloat32()
	if !float32SliceEqual(got, []float32{0.5, 1, 1.5}) {
		t.Errorf("DivScalar = %v", got)
	}

	ints := backend.MulScalar(tensor.FromSlice([]int32{1, -2}), int32(3)).AsInt32()
	if ints[0] != 3 || ints[1] != -6 {
		t.Errorf("MulScalar = %v", ints)
	}
}

func TestCPUBackend_Fill(t *testing.T) {
	backend := newTestBackend()

	f, err := backend.Fill(3, tensor.Int64, 7)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if got := f.AsInt64(); got[0] != 7 || got[1] != 7 || got[2] != 7 {
		t.Errorf("Fill int64 = %v, want [7 7 7]", got)
	}

	empty, err := backend.Fill(0, tensor.Float32, 1.5)
	if err != nil || empty.NumElements() != 0 {
		t.Errorf("Fill of zero elements = %v, %v", empty, err)
	}

	if _, err := backend.Fill(2, tensor.Float64, "x"); err == nil {
		t.Error("Expected error for a non-numeric fill value")
	}
}

func TestCPUBackend_CastAndPromote(t *testing.T) {
	backend := newTestBackend()

	f := backend.Cast(tensor.FromSlice([]float64{1.7, -1.7}), tensor.Int32)
	if got := f.AsInt32(); got[0] != 1 || got[1] != -1 {
		t.Errorf("Cast to int32 = %v, want [1 -1]", got)
	}

	a, b := backend.Promote(tensor.FromSlice([]float32{1}), tensor.FromSlice([]int32{2}))
	if a.DType() != tensor.Float64 || b.DType() != tensor.Float64 {
		t.Errorf("Promote float32+int32 = %s,%s, want float64", a.DType(), b.DType())
	}

	same := tensor.FromSlice([]float32{1})
	if backend.Cast(same, tensor.Float32) != same {
		t.Error("Cast to the same dtype should be a no-op")
	}
}

func TestCPUBackend_ParallelMatchesSequential(t *testing.T) {
	par := New(WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}))
	seq := newTestBackend()

	a := tensor.Arange(0, 1000, tensor.Float64)
	b := tensor.Arange(1, 1001, tensor.Float64)

	want := seq.Div(seq.Exp(seq.Cast(a, tensor.Float32)), seq.Cast(b, tensor.Float32)).AsFloat32()
	got := par.Div(par.Exp(par.Cast(a, tensor.Float32)), par.Cast(b, tensor.Float32)).AsFloat32()

	if !float32SliceEqual(got, want) {
		t.Error("parallel and sequential kernels disagree")
	}
}
