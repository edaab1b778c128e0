// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

// Package cmat implements the dense complex128 matrix kernels backing the
// tensor algebra engine: LU-based solve and inverse, and the three
// eigendecomposition strategies (general, Hermitian, complex-symmetric
// support helpers).
//
// gonum's mat package supplies the real eigensolvers; complex matrices are
// handled through their 2n×2n real embedding, since gonum has no complex
// eigendecomposition.
package cmat

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

var (
	// ErrSingular is returned when a matrix is singular to working precision.
	ErrSingular = errors.New("cmat: matrix is singular")

	// ErrEigenFailed is returned when an eigendecomposition does not yield a
	// complete set of eigenpairs.
	ErrEigenFailed = errors.New("cmat: eigendecomposition failed")

	// ErrNotHermitian is returned when a Hermitian decomposition is requested
	// for a matrix that is not Hermitian.
	ErrNotHermitian = errors.New("cmat: matrix is not Hermitian")

	// ErrNotSymmetric is returned when a symmetric decomposition is requested
	// for a matrix that is not symmetric.
	ErrNotSymmetric = errors.New("cmat: matrix is not symmetric")
)

// Dense is a row-major dense matrix of complex128 values.
type Dense struct {
	rows, cols int
	data       []complex128
}

// NewDense returns a zero-initialized rows×cols matrix.
func NewDense(rows, cols int) *Dense {
	if rows <= 0 || cols <= 0 {
		panic(errors.Errorf("cmat.NewDense(%d, %d): dimensions must be positive", rows, cols))
	}
	return &Dense{rows: rows, cols: cols, data: make([]complex128, rows*cols)}
}

// FromFlat returns a rows×cols matrix backed by the given row-major data.
// The matrix takes ownership of the slice.
func FromFlat(rows, cols int, data []complex128) *Dense {
	if rows*cols != len(data) {
		panic(errors.Errorf("cmat.FromFlat(%d, %d): got %d elements, want %d", rows, cols, len(data), rows*cols))
	}
	return &Dense{rows: rows, cols: cols, data: data}
}

// Dims returns the number of rows and columns.
func (m *Dense) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns the element at row i, column j.
func (m *Dense) At(i, j int) complex128 { return m.data[i*m.cols+j] }

// Set assigns the element at row i, column j.
func (m *Dense) Set(i, j int, v complex128) { m.data[i*m.cols+j] = v }

// Row returns a view of row i: mutating it mutates the matrix.
func (m *Dense) Row(i int) []complex128 { return m.data[i*m.cols : (i+1)*m.cols] }

// Col returns a copy of column j.
func (m *Dense) Col(j int) []complex128 {
	col := make([]complex128, m.rows)
	for i := range col {
		col[i] = m.data[i*m.cols+j]
	}
	return col
}

// SetCol assigns column j from the given values.
func (m *Dense) SetCol(j int, values []complex128) {
	for i, v := range values {
		m.data[i*m.cols+j] = v
	}
}

// Flat returns the underlying row-major data, owned by the matrix.
func (m *Dense) Flat() []complex128 { return m.data }

// Clone returns a deep copy of the matrix.
func (m *Dense) Clone() *Dense {
	data := make([]complex128, len(m.data))
	copy(data, m.data)
	return &Dense{rows: m.rows, cols: m.cols, data: data}
}

// MaxAbs returns the largest absolute value among the elements.
func (m *Dense) MaxAbs() (maxAbs float64) {
	for _, v := range m.data {
		maxAbs = math.Max(maxAbs, cmplx.Abs(v))
	}
	return
}

// maxImagAbs returns the largest absolute imaginary part among the elements.
func (m *Dense) maxImagAbs() (maxAbs float64) {
	for _, v := range m.data {
		maxAbs = math.Max(maxAbs, math.Abs(imag(v)))
	}
	return
}

// IsHermitian reports whether m equals its conjugate transpose, within tol
// relative to the largest element magnitude.
func (m *Dense) IsHermitian(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	scale := math.Max(m.MaxAbs(), 1)
	for i := 0; i < m.rows; i++ {
		for j := i; j < m.cols; j++ {
			if cmplx.Abs(m.At(i, j)-cmplx.Conj(m.At(j, i))) > tol*scale {
				return false
			}
		}
	}
	return true
}

// IsSymmetric reports whether m equals its plain transpose, within tol
// relative to the largest element magnitude.
func (m *Dense) IsSymmetric(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	scale := math.Max(m.MaxAbs(), 1)
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.cols; j++ {
			if cmplx.Abs(m.At(i, j)-m.At(j, i)) > tol*scale {
				return false
			}
		}
	}
	return true
}

// Norm2 returns the Euclidean norm of the vector.
func Norm2(v []complex128) float64 {
	var sum float64
	for _, x := range v {
		sum += real(x)*real(x) + imag(x)*imag(x)
	}
	return math.Sqrt(sum)
}

// Dotc returns the Hermitian inner product conj(a)·b.
func Dotc(a, b []complex128) (sum complex128) {
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return
}

// Dotu returns the bilinear (unconjugated) product a·b.
func Dotu(a, b []complex128) (sum complex128) {
	for i := range a {
		sum += a[i] * b[i]
	}
	return
}
