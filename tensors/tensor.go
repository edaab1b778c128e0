// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements the dense in-memory Tensor value and the
// generalized tensor linear-algebra operations of the engine: the axis
// remapper (Vectorize / Tensorize), Permute, Transpose, the labeled
// contraction Multiply, and the batched Inverse and Solve.
//
// A Tensor groups its axes only at operation time: the same value can act as
// a plain array, as a (block) matrix or as a stack of vectors, depending on
// the axis lists passed to each operation. See the linsys package for the
// linear-system layer built on top.
//
// Storage is a flat row-major []complex128 slice for both supported dtypes;
// a Float64 tensor is one whose elements carry no imaginary part, and every
// operation preserves that invariant (results are Float64 whenever all
// operands are).
package tensors

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gotensor/tensalg/types/shapes"
	"github.com/gotensor/tensalg/types/xslices"
)

// Tensor is a dense multi-dimensional array of Float64 or Complex128
// elements. The shape is immutable after construction; the contents are
// mutable in place.
//
// A Tensor is not safe for concurrent mutation; callers serialize access.
type Tensor struct {
	shape shapes.Shape
	flat  []complex128
}

// FromShape returns a zero-initialized Tensor with the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	return &Tensor{shape: shape, flat: make([]complex128, shape.Size())}
}

// FromFlatDataAndDimensions returns a Complex128 Tensor with the given
// dimensions, backed by a copy of the row-major data.
func FromFlatDataAndDimensions(data []complex128, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.Complex128, dimensions...)
	if shape.Size() != len(data) {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: got %d values for shape %s (size %d)",
			len(data), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: xslices.Copy(data)}
}

// FromFloat64AndDimensions returns a Float64 Tensor with the given
// dimensions, backed by a copy of the row-major data.
func FromFloat64AndDimensions(data []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.Float64, dimensions...)
	if shape.Size() != len(data) {
		exceptions.Panicf("tensors.FromFloat64AndDimensions: got %d values for shape %s (size %d)",
			len(data), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: xslices.Map(data, func(v float64) complex128 { return complex(v, 0) })}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor: dtypes.Float64 or dtypes.Complex128.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor has rank 0.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Flat returns the underlying row-major data, owned by the tensor.
// Mutating it mutates the tensor.
func (t *Tensor) Flat() []complex128 { return t.flat }

// LayoutStrides returns the row-major strides of the tensor layout: the
// flat-index offset of element (i0, i1, …) is the sum of iₖ·strides[k].
func (t *Tensor) LayoutStrides() []int { return t.shape.Strides() }

// flatIndex converts per-axis indices to a flat offset. It panics on a
// wrong number of indices or out-of-range values: indexing mistakes are
// programming errors, like slice indexing.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.Rank() {
		exceptions.Panicf("Tensor.flatIndex: got %d indices for shape %s", len(indices), t.shape)
	}
	flatIdx := 0
	for axis, idx := range indices {
		if idx < 0 || idx >= t.shape.Dimensions[axis] {
			exceptions.Panicf("Tensor.flatIndex: index %d out-of-bounds for axis %d of shape %s", idx, axis, t.shape)
		}
		flatIdx = flatIdx*t.shape.Dimensions[axis] + idx
	}
	return flatIdx
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) complex128 {
	return t.flat[t.flatIndex(indices)]
}

// Real returns the real part of the element at the given indices,
// convenient for Float64 tensors.
func (t *Tensor) Real(indices ...int) float64 {
	return real(t.flat[t.flatIndex(indices)])
}

// Set assigns the element at the given indices.
func (t *Tensor) Set(value complex128, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.shape.Clone(), flat: xslices.Copy(t.flat)}
}

// Conj returns a new tensor with every element conjugated.
func (t *Tensor) Conj() *Tensor {
	return &Tensor{
		shape: t.shape.Clone(),
		flat:  xslices.Map(t.flat, cmplx.Conj),
	}
}

// Equal reports whether both tensors have the same shape (dtype included)
// and exactly the same elements.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.flat {
		if v != other.flat[i] {
			return false
		}
	}
	return true
}

// InDelta reports whether both tensors have the same dimensions and every
// element differs by at most delta in absolute value. DTypes may differ.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if !t.shape.EqualDimensions(other.shape) {
		return false
	}
	for i, v := range t.flat {
		if cmplx.Abs(v-other.flat[i]) > delta {
			return false
		}
	}
	return true
}

// MaxAbs returns the largest absolute value among the elements.
func (t *Tensor) MaxAbs() (maxAbs float64) {
	for _, v := range t.flat {
		maxAbs = math.Max(maxAbs, cmplx.Abs(v))
	}
	return
}

// maxStringElements caps how many elements String prints before clipping.
const maxStringElements = 64

// String pretty-prints the shape and (possibly clipped) contents.
func (t *Tensor) String() string {
	var sb strings.Builder
	sb.WriteString(t.shape.String())
	sb.WriteString(": ")
	clipped := t.Size() > maxStringElements
	var write func(axis, flatIdx int)
	write = func(axis, flatIdx int) {
		if axis == t.Rank() {
			v := t.flat[flatIdx]
			if t.DType() == dtypes.Float64 {
				_, _ = fmt.Fprintf(&sb, "%g", real(v))
			} else {
				_, _ = fmt.Fprintf(&sb, "%g", v)
			}
			return
		}
		stride := t.LayoutStrides()[axis]
		sb.WriteString("[")
		for i := 0; i < t.shape.Dimensions[axis]; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			if clipped && flatIdx+i*stride >= maxStringElements {
				sb.WriteString("...")
				break
			}
			write(axis+1, flatIdx+i*stride)
		}
		sb.WriteString("]")
	}
	write(0, 0)
	return sb.String()
}

// promoteDType returns the dtype of an operation combining the two dtypes:
// Float64 only when both sides are Float64.
func promoteDType(a, b dtypes.DType) dtypes.DType {
	if a == dtypes.Float64 && b == dtypes.Float64 {
		return dtypes.Float64
	}
	return dtypes.Complex128
}
