// Package num implements the n dimensional float32 arrays and compute kernels
// used by the network layers. All data is resident in main memory and stored
// in row major order with the batch as the leading dimension.
package num

import (
	"fmt"
	"strings"
)

// Parameters for array printing
var (
	PrintThreshold = 12
	PrintEdgeitems = 4
)

// Array is an n dimensional tensor of float32 values similar to a numpy ndarray.
type Array struct {
	Dims []int
	Data []float32
}

// NewArray creates a new zeroed array with the given shape.
func NewArray(dims ...int) *Array {
	return &Array{Dims: dims, Data: make([]float32, Prod(dims))}
}

// NewArrayLike creates a new zeroed array with the same shape as a.
func NewArrayLike(a *Array) *Array {
	return NewArray(a.Dims...)
}

// NewArrayFrom creates an array wrapping the given data slice.
func NewArrayFrom(data []float32, dims ...int) *Array {
	if len(data) != Prod(dims) {
		panic(fmt.Sprintf("num: data length %d does not match shape %v", len(data), dims))
	}
	return &Array{Dims: dims, Data: data}
}

// Size is the total number of elements.
func (a *Array) Size() int { return len(a.Data) }

// Reshape returns a view on the same data with a different shape.
// One dimension may be set to -1 in which case it is inferred.
func (a *Array) Reshape(dims ...int) *Array {
	size := 1
	infer := -1
	for i, d := range dims {
		if d == -1 {
			if infer >= 0 {
				panic("num: only one dimension can be inferred")
			}
			infer = i
		} else {
			size *= d
		}
	}
	shape := append([]int{}, dims...)
	if infer >= 0 {
		shape[infer] = len(a.Data) / size
		size *= shape[infer]
	}
	if size != len(a.Data) {
		panic(fmt.Sprintf("num: cannot reshape %v to %v", a.Dims, dims))
	}
	return &Array{Dims: shape, Data: a.Data}
}

// Copy returns a deep copy of the array.
func (a *Array) Copy() *Array {
	b := NewArray(a.Dims...)
	copy(b.Data, a.Data)
	return b
}

// Prod returns the product of the given dimensions.
func Prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// SameShape checks if the two arrays have identical dimensions.
func SameShape(a, b *Array) bool {
	if len(a.Dims) != len(b.Dims) {
		return false
	}
	for i := range a.Dims {
		if a.Dims[i] != b.Dims[i] {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	if len(a.Dims) <= 1 {
		return formatVec(a.Data)
	}
	rows := a.Dims[0]
	cols := len(a.Data) / rows
	s := make([]string, 0, rows+2)
	for r := 0; r < rows; r++ {
		if rows > PrintThreshold && r == PrintEdgeitems {
			s = append(s, " ...")
			r = rows - PrintEdgeitems - 1
			continue
		}
		s = append(s, formatVec(a.Data[r*cols:(r+1)*cols]))
	}
	return strings.Join(s, "\n")
}

func formatVec(v []float32) string {
	if len(v) > PrintThreshold {
		head := make([]string, PrintEdgeitems)
		tail := make([]string, PrintEdgeitems)
		for i := 0; i < PrintEdgeitems; i++ {
			head[i] = fmt.Sprintf("%7.4f", v[i])
			tail[i] = fmt.Sprintf("%7.4f", v[len(v)-PrintEdgeitems+i])
		}
		return "[" + strings.Join(head, " ") + " ... " + strings.Join(tail, " ") + "]"
	}
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = fmt.Sprintf("%7.4f", x)
	}
	return "[" + strings.Join(s, " ") + "]"
}
