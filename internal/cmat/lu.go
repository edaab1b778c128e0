// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package cmat

import (
	"math/cmplx"

	"github.com/pkg/errors"
)

// pivotTolerance scales the singularity threshold of the LU factorization:
// a pivot column whose largest entry is below pivotTolerance * n * maxAbs(A)
// flags the matrix as singular to working precision.
const pivotTolerance = 1e-15

// LU holds the LU factorization with partial pivoting of a square matrix:
// P·A = L·U with unit-diagonal L stored below the diagonal of lu and U on
// and above it.
type LU struct {
	n      int
	lu     []complex128
	pivots []int
}

// FactorizeLU computes the LU factorization with partial pivoting of the
// square matrix a. It returns ErrSingular (wrapped with the offending
// column) if a pivot vanishes to working precision.
func FactorizeLU(a *Dense) (*LU, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, errors.Errorf("cmat.FactorizeLU: matrix must be square, got %d×%d", rows, cols)
	}
	n := rows
	scale := a.MaxAbs()
	if scale == 0 {
		return nil, errors.Wrap(ErrSingular, "cmat.FactorizeLU: zero matrix")
	}
	tol := pivotTolerance * float64(n) * scale

	f := &LU{n: n, lu: make([]complex128, n*n), pivots: make([]int, n)}
	copy(f.lu, a.data)
	lu := f.lu
	for i := range f.pivots {
		f.pivots[i] = i
	}

	for k := 0; k < n; k++ {
		// Partial pivoting: bring the largest remaining entry of column k
		// to the diagonal.
		p := k
		pAbs := cmplx.Abs(lu[k*n+k])
		for i := k + 1; i < n; i++ {
			if a := cmplx.Abs(lu[i*n+k]); a > pAbs {
				p, pAbs = i, a
			}
		}
		if pAbs <= tol {
			return nil, errors.Wrapf(ErrSingular, "cmat.FactorizeLU: zero pivot at column %d", k)
		}
		if p != k {
			for j := 0; j < n; j++ {
				lu[k*n+j], lu[p*n+j] = lu[p*n+j], lu[k*n+j]
			}
			f.pivots[k], f.pivots[p] = f.pivots[p], f.pivots[k]
		}
		pivot := lu[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := lu[i*n+k] / pivot
			lu[i*n+k] = factor
			for j := k + 1; j < n; j++ {
				lu[i*n+j] -= factor * lu[k*n+j]
			}
		}
	}
	return f, nil
}

// SolveVec solves A·x = b for a single right-hand side.
func (f *LU) SolveVec(b []complex128) []complex128 {
	n := f.n
	x := make([]complex128, n)
	// Apply the row permutation, then forward-substitute through L
	// (unit diagonal) and back-substitute through U.
	for i := 0; i < n; i++ {
		x[i] = b[f.pivots[i]]
	}
	for i := 1; i < n; i++ {
		var sum complex128
		for j := 0; j < i; j++ {
			sum += f.lu[i*n+j] * x[j]
		}
		x[i] -= sum
	}
	for i := n - 1; i >= 0; i-- {
		var sum complex128
		for j := i + 1; j < n; j++ {
			sum += f.lu[i*n+j] * x[j]
		}
		x[i] = (x[i] - sum) / f.lu[i*n+i]
	}
	return x
}

// Solve solves A·X = B column by column.
func (f *LU) Solve(b *Dense) *Dense {
	rows, cols := b.Dims()
	if rows != f.n {
		panic(errors.Errorf("cmat.LU.Solve: right-hand side has %d rows, want %d", rows, f.n))
	}
	x := NewDense(rows, cols)
	for j := 0; j < cols; j++ {
		x.SetCol(j, f.SolveVec(b.Col(j)))
	}
	return x
}

// Inverse returns A⁻¹, or ErrSingular if A is singular to working precision.
func Inverse(a *Dense) (*Dense, error) {
	f, err := FactorizeLU(a)
	if err != nil {
		return nil, err
	}
	n := f.n
	inv := NewDense(n, n)
	e := make([]complex128, n)
	for j := 0; j < n; j++ {
		e[j] = 1
		inv.SetCol(j, f.SolveVec(e))
		e[j] = 0
	}
	return inv, nil
}

// Solve solves A·X = B without forming A⁻¹.
func Solve(a, b *Dense) (*Dense, error) {
	f, err := FactorizeLU(a)
	if err != nil {
		return nil, err
	}
	return f.Solve(b), nil
}

// SolveVec solves A·x = b for a single right-hand side without forming A⁻¹.
func SolveVec(a *Dense, b []complex128) ([]complex128, error) {
	f, err := FactorizeLU(a)
	if err != nil {
		return nil, err
	}
	return f.SolveVec(b), nil
}
