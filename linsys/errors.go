// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package linsys

import "github.com/pkg/errors"

var (
	// ErrMissingState is returned by operations that need Solution, Result or
	// a previously computed decomposition that the caller hasn't provided yet.
	ErrMissingState = errors.New("linsys: missing state")

	// ErrSingularEigenvalue is returned by DecompResult when a projection
	// would divide by an eigenvalue that is zero to working precision.
	ErrSingularEigenvalue = errors.New("linsys: singular eigenvalue")

	// ErrEigenFailed is returned when the eigendecomposition of the operator
	// does not converge or does not yield a full eigenbasis (the operator is
	// defective or numerically indistinguishable from defective).
	ErrEigenFailed = errors.New("linsys: eigendecomposition failed")

	// ErrNotHermitian is returned by the Hermitian solver when the operator
	// matrix is not Hermitian within tolerance.
	ErrNotHermitian = errors.New("linsys: operator is not Hermitian")

	// ErrNotSymmetric is returned by the symmetric solver when the operator
	// matrix is not complex-symmetric within tolerance.
	ErrNotSymmetric = errors.New("linsys: operator is not symmetric")
)
