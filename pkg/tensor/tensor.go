// Package tensor contains the n-dimensional values exchanged with an inference engine.
//
// A Tensor stores its elements row-major as Go values (float32, int64, string, ...). It is
// immutable: every operation returns a new Tensor and never aliases the receiver's storage.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch = errors.New("shape does not match the number of elements")
	ErrNotMatrix     = errors.New("tensor is not two-dimensional")
	ErrNotScalar     = errors.New("tensor does not hold a single element")
)

type Tensor struct {
	shape  []int
	values []any
}

// New returns a tensor with the given shape. The number of values must equal the product
// of the dimensions.
func New(shape []int, values []any) (*Tensor, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrShapeMismatch, d)
		}
		size *= d
	}
	if size != len(values) {
		return nil, fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrShapeMismatch, shape, size, len(values))
	}
	return &Tensor{shape: cloneInts(shape), values: cloneValues(values)}, nil
}

// Scalar returns a zero-dimensional tensor.
func Scalar(v any) *Tensor {
	return &Tensor{shape: []int{}, values: []any{v}}
}

// Vector returns a one-dimensional tensor.
func Vector(values ...any) *Tensor {
	return &Tensor{shape: []int{len(values)}, values: cloneValues(values)}
}

// Strings returns a one-dimensional string tensor.
func Strings(ss ...string) *Tensor {
	values := make([]any, len(ss))
	for i, s := range ss {
		values[i] = s
	}
	return &Tensor{shape: []int{len(ss)}, values: values}
}

// Column returns a (len(values), 1) tensor.
func Column(values ...any) *Tensor {
	return &Tensor{shape: []int{len(values), 1}, values: cloneValues(values)}
}

// FromRows returns a two-dimensional tensor. All rows must have the same length.
func FromRows(rows [][]any) (*Tensor, error) {
	if len(rows) == 0 {
		return &Tensor{shape: []int{0, 0}, values: []any{}}, nil
	}
	width := len(rows[0])
	values := make([]any, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d elements, expected %d", ErrShapeMismatch, i, len(row), width)
		}
		values = append(values, row...)
	}
	return &Tensor{shape: []int{len(rows), width}, values: values}, nil
}

// FromDense returns a float64 tensor with the dimensions of m.
func FromDense(m *mat.Dense) *Tensor {
	r, c := m.Dims()
	values := make([]any, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, m.At(i, j))
		}
	}
	return &Tensor{shape: []int{r, c}, values: values}
}

func (t *Tensor) Shape() []int {
	return cloneInts(t.shape)
}

func (t *Tensor) NDim() int {
	return len(t.shape)
}

func (t *Tensor) Size() int {
	return len(t.values)
}

// Values returns a copy of the elements in row-major order.
func (t *Tensor) Values() []any {
	return cloneValues(t.values)
}

// At returns the element at flat (row-major) index i.
func (t *Tensor) At(i int) any {
	return t.values[i]
}

// Reshape returns a tensor with the same elements and a new shape. At most one dimension
// may be -1, in which case it is inferred.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	inferred := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if inferred >= 0 {
				return nil, fmt.Errorf("%w: more than one inferred dimension in %v", ErrShapeMismatch, shape)
			}
			inferred = i
			continue
		}
		known *= d
	}
	resolved := cloneInts(shape)
	if inferred >= 0 {
		if known == 0 || len(t.values)%known != 0 {
			return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShapeMismatch, t.shape, shape)
		}
		resolved[inferred] = len(t.values) / known
	}
	return New(resolved, t.values)
}

// EnsureMin2D reshapes a scalar to (1, 1) and a flat tensor to (1, N). Tensors with two or
// more dimensions are returned unchanged.
func (t *Tensor) EnsureMin2D() *Tensor {
	if len(t.shape) >= 2 {
		return t
	}
	return &Tensor{shape: []int{1, len(t.values)}, values: cloneValues(t.values)}
}

// SplitLastAxis returns one tensor per position of the last axis, each keeping that axis
// with length 1.
func (t *Tensor) SplitLastAxis() ([]*Tensor, error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("%w: cannot split a scalar", ErrShapeMismatch)
	}
	last := t.shape[len(t.shape)-1]
	shape := cloneInts(t.shape)
	shape[len(shape)-1] = 1

	parts := make([]*Tensor, last)
	for j := 0; j < last; j++ {
		values := make([]any, 0, len(t.values)/last)
		for i := j; i < len(t.values); i += last {
			values = append(values, t.values[i])
		}
		parts[j] = &Tensor{shape: cloneInts(shape), values: values}
	}
	return parts, nil
}

// Rows returns the rows of a two-dimensional tensor.
func (t *Tensor) Rows() ([][]any, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("%w: shape %v", ErrNotMatrix, t.shape)
	}
	rows := make([][]any, t.shape[0])
	width := t.shape[1]
	for i := range rows {
		rows[i] = cloneValues(t.values[i*width : (i+1)*width])
	}
	return rows, nil
}

// ScalarString returns the string form of the only element of t, whatever its shape.
func (t *Tensor) ScalarString() (string, error) {
	if len(t.values) != 1 {
		return "", fmt.Errorf("%w: shape %v", ErrNotScalar, t.shape)
	}
	s, err := convert(t.values[0], String)
	if err != nil {
		return "", err
	}
	return s.(string), nil
}

// Dense returns a numeric two-dimensional tensor as a gonum matrix.
func (t *Tensor) Dense() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("%w: shape %v", ErrNotMatrix, t.shape)
	}
	if t.shape[0] == 0 || t.shape[1] == 0 {
		return nil, fmt.Errorf("%w: empty shape %v", ErrNotMatrix, t.shape)
	}
	data := make([]float64, len(t.values))
	for i, v := range t.values {
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		data[i] = f
	}
	return mat.NewDense(t.shape[0], t.shape[1], data), nil
}

// As converts every element to the Go representation of et.
func (t *Tensor) As(et ElementType) (*Tensor, error) {
	values := make([]any, len(t.values))
	for i, v := range t.values {
		c, err := convert(v, et)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = c
	}
	return &Tensor{shape: cloneInts(t.shape), values: values}, nil
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor%v%v", t.shape, t.values)
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func cloneValues(s []any) []any {
	out := make([]any, len(s))
	copy(out, s)
	return out
}
