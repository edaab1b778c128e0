// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import "github.com/pkg/errors"

var (
	// ErrInvalidAxes is returned when an axis list is inconsistent: axes out
	// of range, repeated axes, or axis lists whose lengths don't match the
	// operand ranks.
	ErrInvalidAxes = errors.New("tensors: invalid axes")

	// ErrShapeMismatch is returned when operand shapes are incompatible with
	// the requested operation: disagreeing dimensions for a shared axis
	// label, a vector shape whose product doesn't match the merged axis, or
	// a non-square operator where a square one is required.
	ErrShapeMismatch = errors.New("tensors: shape mismatch")

	// ErrSingular is returned by Inverse and Solve when the flattened
	// operator matrix is singular to working precision. It is deliberately
	// distinct from ErrShapeMismatch so callers can tell "bad input shape"
	// from "ill-conditioned operator".
	ErrSingular = errors.New("tensors: singular operator")
)
