// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package linsys

import (
	"math"
	"math/cmplx"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gotensor/tensalg/internal/cmat"
	"github.com/gotensor/tensalg/tensors"
)

// singularEigenvalueTolerance: an eigenvalue whose magnitude is below this
// fraction of the largest eigenvalue magnitude is treated as zero when
// dividing in DecompResult.
const singularEigenvalueTolerance = 1e-12

// eigenSolver computes the eigensystem of the flattened operator matrix.
// Row k of right and left holds the k-th right and left eigenvector; pairs
// are biorthogonal (left_k ·ᵀ right_j = δ_kj, plain bilinear product) and
// follow the cmat normalization convention, so different solvers on the
// same operator agree element for element.
type eigenSolver func(m *cmat.Dense) (values []complex128, right, left *cmat.Dense, err error)

// eigensystem is the cached spectral decomposition of the operator.
type eigensystem struct {
	values []complex128
	right  *cmat.Dense // row k = right eigenvector k over the domain flat index
	left   *cmat.Dense // row k = left eigenvector k over the codomain flat index
}

// DiagonalizableLS extends LinearSystem with eigendecomposition-based
// solving: Result can be projected onto the operator's eigenbasis, scaled
// by eigenvalues, and reconstructed into Solution without ever forming the
// operator inverse. The eigensystem is computed lazily on first use and
// cached until SetOperator replaces the operator.
//
// The zero value is not usable; construct with NewDiagonalizable,
// NewHermitian or NewSymmetric.
type DiagonalizableLS struct {
	*LinearSystem
	solver eigenSolver

	eig           *eigensystem
	eigGeneration int
	decomp        []complex128
}

// HermitianLS is a DiagonalizableLS for Hermitian operators: eigenvalues
// are real and left eigenvectors are the conjugates of the right ones,
// which is faster and more stable than the general path.
type HermitianLS struct {
	*DiagonalizableLS
}

// SymmetricLS is a DiagonalizableLS for complex-symmetric (non-Hermitian)
// operators: left and right eigenvectors relate by plain transpose, so no
// separate left-eigenvector solve is needed.
type SymmetricLS struct {
	*DiagonalizableLS
}

// NewDiagonalizable returns a DiagonalizableLS using the general
// eigensolver, valid for any diagonalizable operator.
func NewDiagonalizable(operator *tensors.Tensor, mataAxes, matbAxes, vecAxes []int) (*DiagonalizableLS, error) {
	ls, err := New(operator, mataAxes, matbAxes, vecAxes)
	if err != nil {
		return nil, err
	}
	return &DiagonalizableLS{LinearSystem: ls, solver: generalEigen}, nil
}

// NewHermitian returns a HermitianLS. The Hermitian structure of the
// operator is verified when the eigensystem is computed, not here.
func NewHermitian(operator *tensors.Tensor, mataAxes, matbAxes, vecAxes []int) (*HermitianLS, error) {
	ls, err := New(operator, mataAxes, matbAxes, vecAxes)
	if err != nil {
		return nil, err
	}
	return &HermitianLS{&DiagonalizableLS{LinearSystem: ls, solver: hermitianEigen}}, nil
}

// NewSymmetric returns a SymmetricLS. The symmetric structure of the
// operator is verified when the eigensystem is computed, not here.
func NewSymmetric(operator *tensors.Tensor, mataAxes, matbAxes, vecAxes []int) (*SymmetricLS, error) {
	ls, err := New(operator, mataAxes, matbAxes, vecAxes)
	if err != nil {
		return nil, err
	}
	return &SymmetricLS{&DiagonalizableLS{LinearSystem: ls, solver: symmetricEigen}}, nil
}

// flattenOperatorMatrix reorders the operator to [a-group, b-group] and
// returns it as a square matrix over the flattened group indices.
func (d *DiagonalizableLS) flattenOperatorMatrix() (*cmat.Dense, error) {
	if len(d.batchAxes()) > 0 {
		return nil, errors.Wrapf(tensors.ErrShapeMismatch,
			"eigensystem requires an operator without batch axes, %s has batch axes %v",
			d.operator.Shape(), d.batchAxes())
	}
	ordered, err := tensors.Permute(d.operator, slices.Concat(d.mataAxes, d.matbAxes))
	if err != nil {
		return nil, err
	}
	n := 1
	for _, axis := range d.mataAxes {
		n *= d.operator.Shape().Dim(axis)
	}
	return cmat.FromFlat(n, n, ordered.Flat()), nil
}

// CalcEigensystem computes (or recomputes) the operator's eigendecomposition
// with the solver chosen at construction. It is called implicitly by the
// decomposition methods; calling it directly only forces the timing.
func (d *DiagonalizableLS) CalcEigensystem() error {
	m, err := d.flattenOperatorMatrix()
	if err != nil {
		return err
	}
	n, _ := m.Dims()
	start := time.Now()
	values, right, left, err := d.solver(m)
	if err != nil {
		return err
	}
	if klog.V(1).Enabled() {
		klog.Infof("linsys: eigensystem of %d×%d operator (%s) computed in %s",
			n, n, humanize.Bytes(uint64(d.operator.Shape().Memory())), time.Since(start))
	}
	d.eig = &eigensystem{values: values, right: right, left: left}
	d.eigGeneration = d.generation
	return nil
}

// ensureEigensystem computes the eigensystem if absent or stale.
func (d *DiagonalizableLS) ensureEigensystem() error {
	if d.eig != nil && d.eigGeneration == d.generation {
		return nil
	}
	return d.CalcEigensystem()
}

// Eigenvalues returns the operator eigenvalues, sorted by (real, imaginary)
// part. The slice is owned by the system.
func (d *DiagonalizableLS) Eigenvalues() ([]complex128, error) {
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	return d.eig.values, nil
}

// Decomp returns the coefficients of the last decomposition, ordered like
// Eigenvalues, or ErrMissingState before any DecompSolution/DecompResult.
func (d *DiagonalizableLS) Decomp() ([]complex128, error) {
	if d.decomp == nil {
		return nil, errors.Wrapf(ErrMissingState, "Decomp: no decomposition computed yet")
	}
	return d.decomp, nil
}

// SetDecomp replaces the decomposition coefficients, for reconstructing
// from externally chosen spectral coefficients.
func (d *DiagonalizableLS) SetDecomp(decomp []complex128) { d.decomp = decomp }

// eigvecTensor converts eigenvector rows to a rank-(1+k) tensor: axis 0 is
// the eigenvector index and the remaining axes follow the Solution layout.
func (d *DiagonalizableLS) eigvecTensor(rows *cmat.Dense) (*tensors.Tensor, error) {
	n, _ := rows.Dims()
	dims := make([]int, 0, 1+len(d.matbAxes))
	dims = append(dims, n)
	for _, axis := range d.matbAxes {
		dims = append(dims, d.operator.Shape().Dim(axis))
	}
	stacked := tensors.FromFlatDataAndDimensions(rows.Flat(), dims...)
	dest := make([]int, 1+len(d.vecAxes))
	for i, pos := range d.vecAxes {
		dest[1+i] = 1 + pos
	}
	perm := make([]int, len(dest))
	for from, to := range dest {
		perm[to] = from
	}
	return tensors.Permute(stacked, perm)
}

// RightEigenvectors returns the right eigenvectors stacked along axis 0,
// each shaped like a Solution tensor.
func (d *DiagonalizableLS) RightEigenvectors() (*tensors.Tensor, error) {
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	return d.eigvecTensor(d.eig.right)
}

// LeftEigenvectors returns the left eigenvectors stacked along axis 0,
// biorthogonal to the right ones under the plain bilinear product.
func (d *DiagonalizableLS) LeftEigenvectors() (*tensors.Tensor, error) {
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	return d.eigvecTensor(d.eig.left)
}

// vectorFlat checks that t is Solution-shaped and returns its elements
// reordered to the operator's flattened domain index.
func (d *DiagonalizableLS) vectorFlat(t *tensors.Tensor, what string) ([]complex128, error) {
	if t.Rank() != len(d.vecAxes) {
		return nil, errors.Wrapf(tensors.ErrShapeMismatch,
			"%s has rank %d, want %d (one axis per operator domain axis)", what, t.Rank(), len(d.vecAxes))
	}
	for i, pos := range d.vecAxes {
		if t.Shape().Dim(pos) != d.operator.Shape().Dim(d.matbAxes[i]) {
			return nil, errors.Wrapf(tensors.ErrShapeMismatch,
				"%s has shape %s, axis %d should have dimension %d to match operator %s",
				what, t.Shape(), pos, d.operator.Shape().Dim(d.matbAxes[i]), d.operator.Shape())
		}
	}
	ordered, err := tensors.Permute(t, d.vecAxes)
	if err != nil {
		return nil, err
	}
	return ordered.Flat(), nil
}

// DecompSolution projects Solution onto the left eigenvectors, storing one
// coefficient per eigenpair: decomp[k] = left_k ·ᵀ solution.
func (d *DiagonalizableLS) DecompSolution() ([]complex128, error) {
	if d.Solution == nil {
		return nil, errors.Wrapf(ErrMissingState, "DecompSolution: Solution is not set")
	}
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	flat, err := d.vectorFlat(d.Solution, "Solution")
	if err != nil {
		return nil, err
	}
	n := len(d.eig.values)
	d.decomp = make([]complex128, n)
	for k := 0; k < n; k++ {
		d.decomp[k] = cmat.Dotu(d.eig.left.Row(k), flat)
	}
	return d.decomp, nil
}

// DecompResult projects Result onto the left eigenvectors and divides each
// coefficient by its eigenvalue: decomp[k] = (left_k ·ᵀ result) / λ_k. An
// eigenvalue that is zero to working precision fails with
// ErrSingularEigenvalue.
func (d *DiagonalizableLS) DecompResult() ([]complex128, error) {
	if d.Result == nil {
		return nil, errors.Wrapf(ErrMissingState, "DecompResult: Result is not set")
	}
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	flat, err := d.vectorFlat(d.Result, "Result")
	if err != nil {
		return nil, err
	}
	var maxAbsValue float64
	for _, v := range d.eig.values {
		maxAbsValue = math.Max(maxAbsValue, cmplx.Abs(v))
	}
	n := len(d.eig.values)
	decomp := make([]complex128, n)
	for k := 0; k < n; k++ {
		if cmplx.Abs(d.eig.values[k]) <= singularEigenvalueTolerance*maxAbsValue {
			return nil, errors.Wrapf(ErrSingularEigenvalue,
				"DecompResult: eigenvalue %d is %v, cannot divide", k, d.eig.values[k])
		}
		decomp[k] = cmat.Dotu(d.eig.left.Row(k), flat) / d.eig.values[k]
	}
	d.decomp = decomp
	return d.decomp, nil
}

// reconstruct builds a Solution-shaped tensor Σ_k weight(k)·right_k.
func (d *DiagonalizableLS) reconstruct(weight func(k int) complex128) (*tensors.Tensor, error) {
	n := len(d.eig.values)
	flat := make([]complex128, n)
	for k := 0; k < n; k++ {
		w := weight(k)
		for i, v := range d.eig.right.Row(k) {
			flat[i] += w * v
		}
	}
	dims := make([]int, len(d.matbAxes))
	for i, axis := range d.matbAxes {
		dims[i] = d.operator.Shape().Dim(axis)
	}
	stacked := tensors.FromFlatDataAndDimensions(flat, dims...)

	// stacked axis i belongs at position vecAxes[i].
	perm := make([]int, len(d.vecAxes))
	for i, pos := range d.vecAxes {
		perm[pos] = i
	}
	return tensors.Permute(stacked, perm)
}

// CalcResult reconstructs Result from the decomposition as the
// eigenvalue-weighted sum Σ_k decomp[k]·λ_k·right_k.
func (d *DiagonalizableLS) CalcResult() (*tensors.Tensor, error) {
	if d.decomp == nil {
		return nil, errors.Wrapf(ErrMissingState, "CalcResult: no decomposition computed yet")
	}
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	result, err := d.reconstruct(func(k int) complex128 { return d.decomp[k] * d.eig.values[k] })
	if err != nil {
		return nil, err
	}
	d.Result = result
	return result, nil
}

// CalcSolution reconstructs Solution from the decomposition as the
// unweighted sum Σ_k decomp[k]·right_k.
func (d *DiagonalizableLS) CalcSolution() (*tensors.Tensor, error) {
	if d.decomp == nil {
		return nil, errors.Wrapf(ErrMissingState, "CalcSolution: no decomposition computed yet")
	}
	if err := d.ensureEigensystem(); err != nil {
		return nil, err
	}
	solution, err := d.reconstruct(func(k int) complex128 { return d.decomp[k] })
	if err != nil {
		return nil, err
	}
	d.Solution = solution
	return solution, nil
}

// Solve recovers Solution from Result through the eigenbasis: DecompResult
// followed by CalcSolution. Once the eigensystem is cached, successive
// solves against new Result tensors cost only two passes over the
// eigenvectors.
func (d *DiagonalizableLS) Solve() (*tensors.Tensor, error) {
	if _, err := d.DecompResult(); err != nil {
		return nil, err
	}
	return d.CalcSolution()
}

// rowsFromColumns transposes the column-convention eigenvector matrix
// returned by cmat into per-row eigenvectors.
func rowsFromColumns(vectors *cmat.Dense) *cmat.Dense {
	n, _ := vectors.Dims()
	rows := cmat.NewDense(n, n)
	for k := 0; k < n; k++ {
		copy(rows.Row(k), vectors.Col(k))
	}
	return rows
}

// generalEigen handles any diagonalizable operator: right eigenvectors from
// the general eigensolver, left eigenvectors as the rows of the inverse of
// the right-eigenvector matrix, which makes the pairs exactly biorthogonal.
func generalEigen(m *cmat.Dense) ([]complex128, *cmat.Dense, *cmat.Dense, error) {
	values, vectors, err := cmat.Eigen(m)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(ErrEigenFailed, "%v", err)
	}
	inv, err := cmat.Inverse(vectors)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(ErrEigenFailed,
			"eigenvector matrix is singular, the operator is defective: %v", err)
	}
	return values, rowsFromColumns(vectors), inv, nil
}

// hermitianEigen exploits Hermitian structure: real eigenvalues and left
// eigenvectors that are the conjugates of the right ones.
func hermitianEigen(m *cmat.Dense) ([]complex128, *cmat.Dense, *cmat.Dense, error) {
	realValues, vectors, err := cmat.EigenHermitian(m)
	if err != nil {
		if errors.Is(err, cmat.ErrNotHermitian) {
			return nil, nil, nil, errors.Wrapf(ErrNotHermitian, "%v", err)
		}
		return nil, nil, nil, errors.Wrapf(ErrEigenFailed, "%v", err)
	}
	n := len(realValues)
	values := make([]complex128, n)
	for k, v := range realValues {
		values[k] = complex(v, 0)
	}
	right := rowsFromColumns(vectors)
	left := cmat.NewDense(n, n)
	for k := 0; k < n; k++ {
		for i, v := range right.Row(k) {
			left.Row(k)[i] = cmplx.Conj(v)
		}
	}
	return values, right, left, nil
}

// symmetricEigenTolerance bounds the asymmetry accepted by symmetricEigen,
// relative to the largest element magnitude.
const symmetricEigenTolerance = 1e-10

// symmetricEigen exploits complex-symmetric structure: left eigenvectors
// are the right ones rescaled by the inverse of their bilinear self-product
// z ·ᵀ z. A quasi-null right eigenvector (z ·ᵀ z ≈ 0) means the transpose
// relation breaks down and the general path is required.
func symmetricEigen(m *cmat.Dense) ([]complex128, *cmat.Dense, *cmat.Dense, error) {
	if !m.IsSymmetric(symmetricEigenTolerance) {
		return nil, nil, nil, errors.Wrapf(ErrNotSymmetric, "operator matrix is not complex-symmetric")
	}
	values, vectors, err := cmat.Eigen(m)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(ErrEigenFailed, "%v", err)
	}
	n := len(values)
	right := rowsFromColumns(vectors)
	left := cmat.NewDense(n, n)
	for k := 0; k < n; k++ {
		z := right.Row(k)
		selfProduct := cmat.Dotu(z, z)
		if cmplx.Abs(selfProduct) < 1e-8 {
			return nil, nil, nil, errors.Wrapf(ErrEigenFailed,
				"right eigenvector %d is quasi-null under the bilinear product (z·ᵀz=%v)", k, selfProduct)
		}
		for i, v := range z {
			left.Row(k)[i] = v / selfProduct
		}
	}
	return values, right, left, nil
}
