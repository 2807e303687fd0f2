package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNew(t *testing.T) {
	_, err := New([]int{2, 2}, []any{1, 2, 3})
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New([]int{-1}, []any{})
	require.ErrorIs(t, err, ErrShapeMismatch)

	x, err := New([]int{2, 2}, []any{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, x.Shape())
	require.Equal(t, 2, x.NDim())
	require.Equal(t, 4, x.Size())
}

func TestEnsureMin2D(t *testing.T) {
	x2d, err := FromRows([][]any{{1, 2}, {3, 4}})
	require.NoError(t, err)

	for _, tc := range []struct {
		name          string
		input         *Tensor
		expectedShape []int
	}{
		{
			name:          "scalar",
			input:         Scalar(1),
			expectedShape: []int{1, 1},
		},
		{
			name:          "flat",
			input:         Vector(1, 2, 3),
			expectedShape: []int{1, 3},
		},
		{
			name:          "matrix",
			input:         x2d,
			expectedShape: []int{2, 2},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.input.EnsureMin2D()
			require.Equal(t, tc.expectedShape, out.Shape())
			require.Equal(t, tc.input.Values(), out.Values())
		})
	}
}

func TestReshape(t *testing.T) {
	x := Vector(1, 2, 3, 4, 5, 6)

	y, err := x.Reshape(2, -1)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, y.Shape())

	_, err = x.Reshape(-1, -1)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = x.Reshape(4, -1)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = x.Reshape(5)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSplitLastAxis(t *testing.T) {
	x, err := FromRows([][]any{{1, "a"}, {2, "b"}, {3, "c"}})
	require.NoError(t, err)

	parts, err := x.SplitLastAxis()
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, []int{3, 1}, parts[0].Shape())
	require.Equal(t, []any{1, 2, 3}, parts[0].Values())
	require.Equal(t, []any{"a", "b", "c"}, parts[1].Values())

	flat, err := Vector(7, 8).SplitLastAxis()
	require.NoError(t, err)
	require.Len(t, flat, 2)
	require.Equal(t, []int{1}, flat[1].Shape())
	require.Equal(t, []any{8}, flat[1].Values())

	_, err = Scalar(1).SplitLastAxis()
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRows(t *testing.T) {
	_, err := Vector(1).Rows()
	require.ErrorIs(t, err, ErrNotMatrix)

	rows, err := Column("a", "b").Rows()
	require.NoError(t, err)
	require.Equal(t, [][]any{{"a"}, {"b"}}, rows)

	_, err = FromRows([][]any{{1}, {1, 2}})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScalarString(t *testing.T) {
	s, err := Column("https://example.com").ScalarString()
	require.NoError(t, err)
	require.Equal(t, "https://example.com", s)

	s, err = Scalar(float32(1.5)).ScalarString()
	require.NoError(t, err)
	require.Equal(t, "1.5", s)

	_, err = Strings("a", "b").ScalarString()
	require.ErrorIs(t, err, ErrNotScalar)
}

func TestAs(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    *Tensor
		target   ElementType
		expected []any
		wantErr  bool
	}{
		{
			name:     "int_to_float",
			input:    Vector(1, 2),
			target:   Float,
			expected: []any{float32(1), float32(2)},
		},
		{
			name:     "string_to_double",
			input:    Strings("1.5", "-2"),
			target:   Double,
			expected: []any{1.5, -2.0},
		},
		{
			name:     "float_to_string",
			input:    Vector(float32(0.25), 3.0),
			target:   String,
			expected: []any{"0.25", "3"},
		},
		{
			name:     "uint64_to_string",
			input:    Vector(uint64(math.MaxUint64), uint(7)),
			target:   String,
			expected: []any{"18446744073709551615", "7"},
		},
		{
			name:     "float_truncates_to_int",
			input:    Vector(1.9, -1.9),
			target:   Int64,
			expected: []any{int64(1), int64(-1)},
		},
		{
			name:     "narrow_int",
			input:    Vector(int64(7)),
			target:   Uint8,
			expected: []any{uint8(7)},
		},
		{
			name:     "string_to_bool",
			input:    Strings("", "x"),
			target:   Bool,
			expected: []any{false, true},
		},
		{
			name:     "real_to_complex",
			input:    Vector(2),
			target:   Complex64,
			expected: []any{complex64(complex(2, 0))},
		},
		{
			name:    "bad_numeric_string",
			input:   Strings("abc"),
			target:  Float,
			wantErr: true,
		},
		{
			name:    "unsupported_value",
			input:   Vector(struct{}{}),
			target:  Int32,
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.input.As(tc.target)
			if tc.wantErr {
				var convErr *ConversionError
				require.ErrorAs(t, err, &convErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, out.Values())
			require.Equal(t, tc.input.Shape(), out.Shape())
		})
	}
}

func TestParseElementType(t *testing.T) {
	et, err := ParseElementType("tensor(float)")
	require.NoError(t, err)
	require.Equal(t, Float, et)
	require.Equal(t, "tensor(float)", et.String())

	_, err = ParseElementType("tensor(bfloat16)")
	require.ErrorIs(t, err, &UnsupportedTypeError{})
	require.EqualError(t, err, "unsupported element type 'tensor(bfloat16)'")
}

func TestDense(t *testing.T) {
	x, err := FromRows([][]any{{float32(1), 2}, {3, "4"}})
	require.NoError(t, err)

	m, err := x.Dense()
	require.NoError(t, err)
	require.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), m))

	back := FromDense(m)
	require.Equal(t, []int{2, 2}, back.Shape())
	require.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, back.Values())

	_, err = Vector(1).Dense()
	require.ErrorIs(t, err, ErrNotMatrix)
}

func TestImmutability(t *testing.T) {
	values := []any{1, 2}
	x := Vector(values...)
	values[0] = 99
	require.Equal(t, []any{1, 2}, x.Values())

	got := x.Values()
	got[1] = 42
	require.Equal(t, []any{1, 2}, x.Values())
}
