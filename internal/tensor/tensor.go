// Package tensor holds the float32 arrays handed to the host image pipeline.
package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor with the given shape.
func New(shape ...int) (Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Tensor{}, fmt.Errorf("tensor: negative dimension in shape %v", shape)
		}
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return Tensor{Shape: s, Data: make([]float32, n)}, nil
}

// Zeros is New for shapes known to be valid. It panics on a negative dimension.
func Zeros(shape ...int) Tensor {
	t, err := New(shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of elements.
func (t Tensor) Len() int { return len(t.Data) }

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// ShapeEqual reports whether the tensor has exactly the given shape.
func (t Tensor) ShapeEqual(shape ...int) bool {
	if len(t.Shape) != len(shape) {
		return false
	}
	for i := range shape {
		if t.Shape[i] != shape[i] {
			return false
		}
	}
	return true
}

// Unsqueeze returns a view with a new leading dimension of size 1.
func (t Tensor) Unsqueeze() Tensor {
	shape := make([]int, 0, len(t.Shape)+1)
	shape = append(shape, 1)
	shape = append(shape, t.Shape...)
	return Tensor{Shape: shape, Data: t.Data}
}

// MinMax returns the smallest and largest element. Both are zero for an empty tensor.
func (t Tensor) MinMax() (float32, float32) {
	if len(t.Data) == 0 {
		return 0, 0
	}
	lo, hi := t.Data[0], t.Data[0]
	for _, v := range t.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Bytes encodes the data as little-endian float32 values.
func (t Tensor) Bytes() []byte {
	out := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// String prints the shape only; the data is usually too large to be useful.
func (t Tensor) String() string {
	return fmt.Sprintf("tensor%v", t.Shape)
}
