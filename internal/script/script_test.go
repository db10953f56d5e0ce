package script

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazyarray/internal/backend/cpu"
	"github.com/born-ml/lazyarray/internal/expr"
	"github.com/born-ml/lazyarray/internal/lazy"
	"github.com/born-ml/lazyarray/internal/parallel"
	"github.com/born-ml/lazyarray/internal/promote"
)

func newContext(opts ...lazy.Option) *lazy.Context {
	base := []lazy.Option{
		lazy.WithLogger(lazy.DiscardLogger()),
		lazy.WithBackend(cpu.New(cpu.WithParallel(parallel.Sequential()))),
	}
	return lazy.New(append(base, opts...)...)
}

func scenarioFiles(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func TestGoldenTranscripts(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, path := range scenarioFiles(t) {
		s, err := Load(path)
		require.NoError(t, err, path)

		t.Run(s.Name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, NewRunner(newContext(), &out).Run(s))
			g.Assert(t, s.Name, out.Bytes())
		})
	}
}

// Every check step also holds when nothing is deferred.
func TestScenariosPassEagerly(t *testing.T) {
	for _, path := range scenarioFiles(t) {
		s, err := Load(path)
		require.NoError(t, err, path)

		t.Run(s.Name, func(t *testing.T) {
			eager := newContext(lazy.WithTable(promote.NewTable(nil, nil, nil, nil)))
			var out bytes.Buffer
			require.NoError(t, NewRunner(eager, &out).Run(s))
			for _, line := range strings.Split(out.String(), "\n") {
				assert.False(t, strings.HasSuffix(line, " pending"), "deferred array in %q", line)
			}
		})
	}
}

func TestRunnerBindsArrays(t *testing.T) {
	s, err := Parse([]byte(`
name: bind
arrays:
  - {name: a, dtype: float32, values: [1, 2, 3]}
steps:
  - let: {name: b, op: exp, args: [a]}
  - slice: {name: v, of: b, lo: 1, hi: 3}
`))
	require.NoError(t, err)

	c := newContext()
	r := NewRunner(c, &bytes.Buffer{})
	require.NoError(t, r.Run(s))

	v, ok := r.Array("v")
	require.True(t, ok)
	assert.False(t, v.Materialized())
	assert.Equal(t, 2, v.Len())

	_, ok = r.Array("missing")
	assert.False(t, ok)
}

func TestRunnerErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps string
		err   error
		msg   string
	}{
		{
			name:  "failed check",
			steps: "  - check: {array: a, values: [1, 2, 4]}",
			err:   ErrCheckFailed,
			msg:   "step 1 (check)",
		},
		{
			name:  "check length",
			steps: "  - check: {array: a, values: [1]}",
			err:   ErrCheckFailed,
		},
		{
			name:  "unknown array",
			steps: "  - print: nope",
			err:   ErrUnknownArray,
		},
		{
			name:  "unknown op operand",
			steps: "  - let: {name: b, op: add, args: [a, nope]}",
			err:   ErrUnknownArray,
		},
		{
			name:  "unary of scalar",
			steps: "  - let: {name: b, op: exp, args: [2.0]}",
			err:   lazy.ErrNoArray,
		},
		{
			name:  "too many operands",
			steps: "  - let: {name: b, op: add, args: [a, a, a]}",
			err:   lazy.ErrArity,
		},
		{
			name:  "bad argument",
			steps: "  - inplace: {op: add, target: a, args: [[1]]}",
			err:   ErrInvalidScenario,
		},
		{
			name:  "second step fails",
			steps: "  - print: a\n  - eval: nope",
			err:   ErrUnknownArray,
			msg:   "step 2 (eval)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte("name: errors\narrays:\n  - {name: a, dtype: float64, values: [1, 2, 3]}\nsteps:\n" + tt.steps + "\n"))
			require.NoError(t, err)

			err = NewRunner(newContext(), &bytes.Buffer{}).Run(s)
			require.ErrorIs(t, err, tt.err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestRunnerUnknownOp(t *testing.T) {
	s, err := Parse([]byte(`
name: unknown_op
arrays:
  - {name: a, dtype: int32, values: [1]}
steps:
  - let: {name: b, op: power, args: [a, 2]}
`))
	require.NoError(t, err)

	err = NewRunner(newContext(), &bytes.Buffer{}).Run(s)
	require.ErrorIs(t, err, expr.ErrUnknownOp)
}

func TestRunnerBadDType(t *testing.T) {
	s, err := Parse([]byte(`
name: bad_dtype
arrays:
  - {name: a, dtype: float16, values: [1]}
steps:
  - print: a
`))
	require.NoError(t, err)

	err = NewRunner(newContext(), &bytes.Buffer{}).Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array a")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no name", "steps:\n  - print: a\n", "name is required"},
		{"no steps", "name: x\n", "steps list is required"},
		{"unknown field", "name: x\nstep:\n  - print: a\n", "failed to parse YAML"},
		{"unknown action", "name: x\nsteps:\n  - show: a\n", "failed to parse YAML"},
		{"two actions", "name: x\nsteps:\n  - {print: a, eval: a}\n", "exactly one action"},
		{"empty step", "name: x\nsteps:\n  - {}\n", "exactly one action"},
		{"unnamed array", "name: x\narrays:\n  - {dtype: int32, values: [1]}\nsteps:\n  - print: a\n", "has no name"},
		{"duplicate array", "name: x\narrays:\n  - {name: a, dtype: int32, values: [1]}\n  - {name: a, dtype: int32, values: [2]}\nsteps:\n  - print: a\n", "declared twice"},
		{"values and arange", "name: x\narrays:\n  - {name: a, dtype: int32, values: [1], arange: [0, 2]}\nsteps:\n  - print: a\n", "exactly one of values and arange"},
		{"short arange", "name: x\narrays:\n  - {name: a, dtype: int32, arange: [3]}\nsteps:\n  - print: a\n", "arange takes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			if !strings.HasPrefix(tt.msg, "failed") {
				require.ErrorIs(t, err, ErrInvalidScenario)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestCheckTolerance(t *testing.T) {
	s, err := Parse([]byte(`
name: tolerance
arrays:
  - {name: a, dtype: float32, values: [1, 4]}
steps:
  - let: {name: r, op: sqrt, args: [a]}
  - check: {array: r, values: [1.0001, 2], tolerance: 0.001}
`))
	require.NoError(t, err)
	require.NoError(t, NewRunner(newContext(), &bytes.Buffer{}).Run(s))

	s.Steps[1].Check.Tolerance = 0
	err = NewRunner(newContext(), &bytes.Buffer{}).Run(s)
	require.ErrorIs(t, err, ErrCheckFailed)
}
