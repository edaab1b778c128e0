// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package cmat

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// hermitianTolerance is the relative tolerance used to accept a matrix
	// as Hermitian (or real symmetric).
	hermitianTolerance = 1e-10

	// embeddedDropThreshold discards, in the 2n×2n real embedding of a
	// complex matrix, the eigenvectors whose recombination p + i·q vanishes:
	// those belong to the conjugate copy of the spectrum.
	embeddedDropThreshold = 1e-6

	// clusterTolerance is the relative gap below which two eigenvalues of
	// the embedded Hermitian problem are treated as the same (doubled)
	// eigenvalue.
	clusterTolerance = 1e-7
)

// Eigen computes the full eigendecomposition of the square matrix a. It
// returns the eigenvalues and the matrix whose columns are the matching
// right eigenvectors.
//
// Eigenpairs are sorted by (real, imaginary) part of the eigenvalue, and
// each eigenvector is normalized to unit Euclidean norm with its
// largest-magnitude component made real and positive, so that decompositions
// obtained through different strategies are comparable element-for-element.
//
// Matrices with zero imaginary part are decomposed directly; genuinely
// complex matrices go through their 2n×2n real embedding
// [[Re, -Im], [Im, Re]], whose spectrum is the union of the spectra of a and
// of its conjugate. Eigen returns ErrEigenFailed if the two halves cannot be
// separated (which requires the spectra of a and conj(a) to overlap, e.g.
// for degenerate complex matrices).
func Eigen(a *Dense) (values []complex128, vectors *Dense, err error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, nil, errors.Errorf("cmat.Eigen: matrix must be square, got %d×%d", rows, cols)
	}
	n := rows
	if a.maxImagAbs() == 0 {
		values, vectors, err = eigenReal(a)
	} else {
		values, vectors, err = eigenEmbedded(a)
	}
	if err != nil {
		return nil, nil, err
	}
	for j := 0; j < n; j++ {
		col := vectors.Col(j)
		canonicalizeVec(col)
		vectors.SetCol(j, col)
	}
	sortEigenPairs(values, vectors)
	return values, vectors, nil
}

// eigenReal decomposes a matrix whose entries have no imaginary part.
func eigenReal(a *Dense) ([]complex128, *Dense, error) {
	n, _ := a.Dims()
	rd := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rd.Set(i, j, real(a.At(i, j)))
		}
	}
	var eig mat.Eigen
	if ok := eig.Factorize(rd, mat.EigenRight); !ok {
		return nil, nil, errors.Wrap(ErrEigenFailed, "cmat.Eigen: factorization of real matrix failed")
	}
	values := eig.Values(nil)
	var cvec mat.CDense
	eig.VectorsTo(&cvec)
	vectors := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			vectors.Set(i, j, cvec.At(i, j))
		}
	}
	return values, vectors, nil
}

// eigenEmbedded decomposes a genuinely complex matrix through its real
// embedding. For every eigenpair (λ, z) of a, the embedding has the
// eigenpair (λ, [z; -i·z]); the remaining eigenpairs come from conj(a), and
// the recombination p + i·q of an embedded eigenvector [p; q] projects out
// that conjugate half. When an eigenvalue is shared by a and conj(a) (e.g.
// real eigenvalues of a Hermitian matrix), the eigensolver may return mixed
// basis vectors of the joint eigenspace, so recombined vectors are selected
// per eigenvalue cluster with a complex Gram-Schmidt pass.
func eigenEmbedded(a *Dense) ([]complex128, *Dense, error) {
	n, _ := a.Dims()
	rd := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := real(a.At(i, j)), imag(a.At(i, j))
			rd.Set(i, j, re)
			rd.Set(i, j+n, -im)
			rd.Set(i+n, j, im)
			rd.Set(i+n, j+n, re)
		}
	}
	var eig mat.Eigen
	if ok := eig.Factorize(rd, mat.EigenRight); !ok {
		return nil, nil, errors.Wrap(ErrEigenFailed, "cmat.Eigen: factorization of embedded matrix failed")
	}
	embeddedValues := eig.Values(nil)
	var cvec mat.CDense
	eig.VectorsTo(&cvec)

	// Recombine every embedded eigenvector and sort the pairs so that equal
	// eigenvalues become adjacent.
	type pair struct {
		value complex128
		z     []complex128
	}
	pairs := make([]pair, 2*n)
	for k := 0; k < 2*n; k++ {
		z := make([]complex128, n)
		for i := 0; i < n; i++ {
			z[i] = cvec.At(i, k) + 1i*cvec.At(i+n, k)
		}
		pairs[k] = pair{value: embeddedValues[k], z: z}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		va, vb := pairs[a].value, pairs[b].value
		if real(va) != real(vb) {
			return real(va) < real(vb)
		}
		return imag(va) < imag(vb)
	})

	spread := 1.0
	for _, p := range pairs {
		spread = math.Max(spread, cmplx.Abs(p.value))
	}
	gapTol := clusterTolerance * spread

	values := make([]complex128, 0, n)
	vectors := NewDense(n, n)
	kept := 0
	for start := 0; start < 2*n; {
		end := start + 1
		for end < 2*n && cmplx.Abs(pairs[end].value-pairs[end-1].value) <= gapTol {
			end++
		}
		var clusterValue complex128
		for k := start; k < end; k++ {
			clusterValue += pairs[k].value
		}
		clusterValue /= complex(float64(end-start), 0)

		// The recombined vectors of the cluster span a's eigenspace at this
		// eigenvalue; keep an orthonormal basis of it.
		var accepted [][]complex128
		for k := start; k < end; k++ {
			z := pairs[k].z
			norm := Norm2(z)
			if norm <= embeddedDropThreshold {
				continue // Recombined to (numerically) zero: conjugate half.
			}
			for i := range z {
				z[i] /= complex(norm, 0)
			}
			for _, prev := range accepted {
				proj := Dotc(prev, z)
				for i := range z {
					z[i] -= proj * prev[i]
				}
			}
			norm = Norm2(z)
			if norm <= 1e-4 {
				continue // Linearly dependent on the already accepted ones.
			}
			for i := range z {
				z[i] /= complex(norm, 0)
			}
			accepted = append(accepted, z)
		}
		for _, z := range accepted {
			if kept == n {
				return nil, nil, errors.Wrapf(ErrEigenFailed,
					"cmat.Eigen: more than %d eigenpairs recombined from the embedding (degenerate spectrum)", n)
			}
			vectors.SetCol(kept, z)
			values = append(values, clusterValue)
			kept++
		}
		start = end
	}
	if kept != n {
		return nil, nil, errors.Wrapf(ErrEigenFailed,
			"cmat.Eigen: only %d of %d eigenpairs recombined from the embedding (defective or too degenerate)", kept, n)
	}
	return values, vectors, nil
}

// EigenHermitian computes the eigendecomposition of a Hermitian matrix. The
// eigenvalues are real and returned in ascending order; the eigenvectors are
// orthonormal, with the same normalization convention as Eigen.
//
// The decomposition runs on a symmetric real eigensolver: a complex
// Hermitian matrix H = A + i·B embeds into the real symmetric
// [[A, -B], [B, A]], whose spectrum is that of H with every eigenvalue
// doubled. A complex Gram-Schmidt pass per eigenvalue cluster selects one
// eigenvector out of each doubled pair.
func EigenHermitian(a *Dense) (values []float64, vectors *Dense, err error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, nil, errors.Errorf("cmat.EigenHermitian: matrix must be square, got %d×%d", rows, cols)
	}
	if !a.IsHermitian(hermitianTolerance) {
		return nil, nil, errors.Wrapf(ErrNotHermitian, "cmat.EigenHermitian: %d×%d matrix", rows, cols)
	}
	n := rows
	if a.maxImagAbs() == 0 {
		values, vectors, err = eigenSymmetricReal(a)
	} else {
		values, vectors, err = eigenHermitianEmbedded(a)
	}
	if err != nil {
		return nil, nil, err
	}
	for j := 0; j < n; j++ {
		col := vectors.Col(j)
		canonicalizeVec(col)
		vectors.SetCol(j, col)
	}
	return values, vectors, nil
}

// eigenSymmetricReal handles the Hermitian case with no imaginary part,
// which is a plain real symmetric eigenproblem.
func eigenSymmetricReal(a *Dense) ([]float64, *Dense, error) {
	n, _ := a.Dims()
	sd := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sd.SetSym(i, j, real(a.At(i, j)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sd, true); !ok {
		return nil, nil, errors.Wrap(ErrEigenFailed, "cmat.EigenHermitian: symmetric factorization failed")
	}
	values := eig.Values(nil)
	var rvec mat.Dense
	eig.VectorsTo(&rvec)
	vectors := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			vectors.Set(i, j, complex(rvec.At(i, j), 0))
		}
	}
	return values, vectors, nil
}

// eigenHermitianEmbedded handles the genuinely complex Hermitian case.
func eigenHermitianEmbedded(a *Dense) ([]float64, *Dense, error) {
	n, _ := a.Dims()
	sd := mat.NewSymDense(2*n, nil)
	embedded := func(i, j int) float64 {
		// [[A, -B], [B, A]] with A = Re(a) symmetric and B = Im(a)
		// antisymmetric, so the embedding is symmetric.
		switch {
		case i < n && j < n:
			return real(a.At(i, j))
		case i < n:
			return -imag(a.At(i, j-n))
		case j < n:
			return imag(a.At(i-n, j))
		default:
			return real(a.At(i-n, j-n))
		}
	}
	for i := 0; i < 2*n; i++ {
		for j := i; j < 2*n; j++ {
			sd.SetSym(i, j, embedded(i, j))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sd, true); !ok {
		return nil, nil, errors.Wrap(ErrEigenFailed, "cmat.EigenHermitian: symmetric factorization of embedded matrix failed")
	}
	embeddedValues := eig.Values(nil) // Ascending, each eigenvalue of a doubled.
	var rvec mat.Dense
	eig.VectorsTo(&rvec)

	spread := math.Max(1, math.Max(math.Abs(embeddedValues[0]), math.Abs(embeddedValues[2*n-1])))
	gapTol := clusterTolerance * spread

	values := make([]float64, 0, n)
	vectors := NewDense(n, n)
	kept := 0
	for start := 0; start < 2*n; {
		end := start + 1
		for end < 2*n && embeddedValues[end]-embeddedValues[end-1] <= gapTol {
			end++
		}
		clusterSize := end - start
		if clusterSize%2 != 0 {
			return nil, nil, errors.Wrapf(ErrEigenFailed,
				"cmat.EigenHermitian: eigenvalue cluster at %g has odd multiplicity %d in the embedding",
				embeddedValues[start], clusterSize)
		}
		var clusterValue float64
		for k := start; k < end; k++ {
			clusterValue += embeddedValues[k]
		}
		clusterValue /= float64(clusterSize)

		// The 2m real eigenvectors of the cluster recombine to candidates
		// spanning an m-dimensional complex eigenspace; modified
		// Gram-Schmidt keeps an orthonormal basis of it.
		accepted := make([][]complex128, 0, clusterSize/2)
		for k := start; k < end; k++ {
			z := make([]complex128, n)
			for i := 0; i < n; i++ {
				z[i] = complex(rvec.At(i, k), rvec.At(i+n, k))
			}
			for _, prev := range accepted {
				proj := Dotc(prev, z)
				for i := range z {
					z[i] -= proj * prev[i]
				}
			}
			norm := Norm2(z)
			if norm <= 1e-3 {
				continue // Linearly dependent on the already accepted ones.
			}
			for i := range z {
				z[i] /= complex(norm, 0)
			}
			accepted = append(accepted, z)
		}
		if len(accepted) != clusterSize/2 {
			return nil, nil, errors.Wrapf(ErrEigenFailed,
				"cmat.EigenHermitian: recombined %d eigenvectors from a cluster of %d at %g",
				len(accepted), clusterSize, clusterValue)
		}
		for _, z := range accepted {
			vectors.SetCol(kept, z)
			values = append(values, clusterValue)
			kept++
		}
		start = end
	}
	if kept != n {
		return nil, nil, errors.Wrapf(ErrEigenFailed,
			"cmat.EigenHermitian: recombined %d of %d eigenvectors from the embedding", kept, n)
	}
	return values, vectors, nil
}

// canonicalizeVec scales z in place to unit Euclidean norm with its
// largest-magnitude component real and positive.
func canonicalizeVec(z []complex128) {
	norm := Norm2(z)
	if norm == 0 {
		return
	}
	k := 0
	kAbs := 0.0
	for i, v := range z {
		if a := cmplx.Abs(v); a > kAbs {
			k, kAbs = i, a
		}
	}
	phase := z[k] / complex(kAbs, 0)
	scale := cmplx.Conj(phase) / complex(norm, 0)
	for i := range z {
		z[i] *= scale
	}
}

// sortEigenPairs reorders eigenpairs in place by (real, imaginary) part of
// the eigenvalue.
func sortEigenPairs(values []complex128, vectors *Dense) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if real(va) != real(vb) {
			return real(va) < real(vb)
		}
		return imag(va) < imag(vb)
	})
	sortedValues := make([]complex128, n)
	sortedCols := make([][]complex128, n)
	for i, from := range order {
		sortedValues[i] = values[from]
		sortedCols[i] = vectors.Col(from)
	}
	copy(values, sortedValues)
	for i, col := range sortedCols {
		vectors.SetCol(i, col)
	}
}
