package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64.
// Its shape is fixed at construction.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a zeroed Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// FromMatrix copies a gonum matrix into a 2-D tensor.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	t := New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.Data[i*c+j] = m.At(i, j)
		}
	}
	return t
}

// FromVector copies a gonum vector into a 1-D tensor.
func FromVector(v mat.Vector) *Tensor {
	t := New(v.Len())
	for i := range t.Data {
		t.Data[i] = v.AtVec(i)
	}
	return t
}

// FromRows builds a 2-D tensor from equally sized rows.
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	c := len(rows[0])
	t := New(len(rows), c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), c)
		}
		copy(t.Data[i*c:(i+1)*c], row)
	}
	return t, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Lookup returns the element at the given indices and false when the indices
// do not address an element of t. It never panics, so callers reading a
// snapshot of unknown completeness can fall back to a default.
func (t *Tensor) Lookup(indices ...int) (float64, bool) {
	if t == nil || len(indices) != len(t.Shape) {
		return 0, false
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			return 0, false
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return t.Data[idx], true
}

// At returns the element at the given indices.
// For a 2D tensor [a, b], At(i, j) returns the element at position [i][j].
func (t *Tensor) At(indices ...int) float64 {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("At: expected %d indices, got %d", len(t.Shape), len(indices)))
	}
	v, ok := t.Lookup(indices...)
	if !ok {
		panic(fmt.Sprintf("At: indices %v out of bounds (shape: %v)", indices, t.Shape))
	}
	return v
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("Set: expected %d indices, got %d", len(t.Shape), len(indices)))
	}

	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("Set: index %d out of bounds for dimension %d (shape: %v)", indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}

	t.Data[idx] = value
}
