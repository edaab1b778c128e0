// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

// Package linsys layers linear-system semantics on top of the tensors
// package: a LinearSystem wraps an operator tensor together with the axis
// groups that make it act as a linear map, and the diagonalizable variants
// add spectral (eigenbasis) solving on top.
//
// The operator's a-group axes (mataAxes) are its codomain and the b-group
// axes (matbAxes) its domain; vecAxes says where the domain dimensions sit
// in the solution and result tensors. The variants differ only in the
// eigensolver injected at construction: NewDiagonalizable uses the general
// solver, NewHermitian and NewSymmetric substitute structure-aware ones.
package linsys

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/gotensor/tensalg/tensors"
	"github.com/gotensor/tensalg/types"
	"github.com/gotensor/tensalg/types/shapes"
	"github.com/gotensor/tensalg/types/xslices"
)

// LinearSystem binds an operator tensor to its axis-group partition and
// supports forward evaluation only: Result = Operator · Solution. See
// DiagonalizableLS for the inverse direction.
//
// Solution and Result are owned by the caller and may be reassigned freely
// between calls. A LinearSystem is not safe for concurrent use.
type LinearSystem struct {
	operator *tensors.Tensor
	mataAxes []int
	matbAxes []int
	vecAxes  []int

	// Solution and Result are the two sides of Operator · Solution = Result.
	Solution *tensors.Tensor
	Result   *tensors.Tensor

	// generation counts operator replacements, so cached state derived from
	// the operator can detect staleness.
	generation int
}

// New returns a LinearSystem for the given operator and axis groups.
//
// mataAxes and matbAxes partition (part of) the operator's axes into the
// codomain and domain groups; they must have the same length, be disjoint,
// and be pairwise equal in dimension. Operator axes in neither group are
// batch dimensions. vecAxes gives, for each domain axis, its position in
// the Solution/Result tensors, whose rank is len(vecAxes) plus the number
// of operator batch axes.
func New(operator *tensors.Tensor, mataAxes, matbAxes, vecAxes []int) (*LinearSystem, error) {
	ls := &LinearSystem{operator: operator}
	var err error
	if ls.mataAxes, ls.matbAxes, err = checkOperatorAxes(operator, mataAxes, matbAxes); err != nil {
		return nil, err
	}
	if len(vecAxes) != len(matbAxes) {
		return nil, errors.Wrapf(tensors.ErrInvalidAxes,
			"linsys.New: got %d vector axes for %d domain axes", len(vecAxes), len(matbAxes))
	}
	vecRank := operator.Rank() - len(mataAxes) - len(matbAxes) + len(vecAxes)
	ls.vecAxes = make([]int, len(vecAxes))
	for i, axis := range vecAxes {
		if ls.vecAxes[i], err = shapes.AdjustAxisToRank(vecRank, axis); err != nil {
			return nil, errors.Wrapf(tensors.ErrInvalidAxes, "linsys.New: %v", err)
		}
	}
	if len(types.SetWith(ls.vecAxes...)) != len(ls.vecAxes) {
		return nil, errors.Wrapf(tensors.ErrInvalidAxes, "linsys.New: repeated vector axis in %v", vecAxes)
	}
	return ls, nil
}

// checkOperatorAxes resolves and validates the operator axis groups,
// returning them with negative axes adjusted.
func checkOperatorAxes(operator *tensors.Tensor, mataAxes, matbAxes []int) (a, b []int, err error) {
	if len(mataAxes) != len(matbAxes) {
		return nil, nil, errors.Wrapf(tensors.ErrInvalidAxes,
			"operator axis groups differ in length: %d vs %d", len(mataAxes), len(matbAxes))
	}
	rank := operator.Rank()
	adjust := func(axes []int) ([]int, error) {
		adjusted := make([]int, len(axes))
		for i, axis := range axes {
			var err error
			if adjusted[i], err = shapes.AdjustAxisToRank(rank, axis); err != nil {
				return nil, errors.Wrapf(tensors.ErrInvalidAxes, "%v", err)
			}
		}
		return adjusted, nil
	}
	if a, err = adjust(mataAxes); err != nil {
		return nil, nil, err
	}
	if b, err = adjust(matbAxes); err != nil {
		return nil, nil, err
	}
	if len(types.SetWith(slices.Concat(a, b)...)) != len(a)+len(b) {
		return nil, nil, errors.Wrapf(tensors.ErrInvalidAxes,
			"operator axis groups %v and %v overlap or repeat axes", mataAxes, matbAxes)
	}
	for i := range a {
		if operator.Shape().Dim(a[i]) != operator.Shape().Dim(b[i]) {
			return nil, nil, errors.Wrapf(tensors.ErrShapeMismatch,
				"operator %s: axis pair (%d, %d) has dimensions %d and %d, the operator must be square",
				operator.Shape(), a[i], b[i], operator.Shape().Dim(a[i]), operator.Shape().Dim(b[i]))
		}
	}
	return a, b, nil
}

// Operator returns the current operator tensor.
func (ls *LinearSystem) Operator() *tensors.Tensor { return ls.operator }

// SetOperator replaces the operator. The new operator must be compatible
// with the axis groups fixed at construction. Cached eigensystem state in
// the diagonalizable variants is invalidated and recomputed on next use.
func (ls *LinearSystem) SetOperator(operator *tensors.Tensor) error {
	if operator.Rank() != ls.operator.Rank() {
		return errors.Wrapf(tensors.ErrShapeMismatch,
			"SetOperator: new operator has rank %d, system was built for rank %d", operator.Rank(), ls.operator.Rank())
	}
	if _, _, err := checkOperatorAxes(operator, ls.mataAxes, ls.matbAxes); err != nil {
		return errors.WithMessagef(err, "SetOperator")
	}
	ls.operator = operator
	ls.generation++
	return nil
}

// batchAxes returns the operator axes in neither group, ascending.
func (ls *LinearSystem) batchAxes() []int {
	var batch []int
	for axis := 0; axis < ls.operator.Rank(); axis++ {
		if !slices.Contains(ls.mataAxes, axis) && !slices.Contains(ls.matbAxes, axis) {
			batch = append(batch, axis)
		}
	}
	return batch
}

// vecBatchPositions returns the Solution/Result axis positions not claimed
// by vecAxes, ascending. They align with the operator batch axes in order.
func (ls *LinearSystem) vecBatchPositions() []int {
	rank := len(ls.vecAxes) + ls.operator.Rank() - len(ls.mataAxes) - len(ls.matbAxes)
	var positions []int
	for axis := 0; axis < rank; axis++ {
		if !slices.Contains(ls.vecAxes, axis) {
			positions = append(positions, axis)
		}
	}
	return positions
}

// vectorLabels returns the contraction labels of a Solution/Result-shaped
// tensor: position vecAxes[i] carries the label of operator axis
// groupAxes[i], batch positions carry the operator batch-axis labels in
// ascending order. Operator axes are labeled by their own index.
func (ls *LinearSystem) vectorLabels(groupAxes []int) []int {
	labels := make([]int, len(ls.vecAxes)+ls.operator.Rank()-len(ls.mataAxes)-len(ls.matbAxes))
	for i, pos := range ls.vecAxes {
		labels[pos] = groupAxes[i]
	}
	batch := ls.batchAxes()
	for i, pos := range ls.vecBatchPositions() {
		labels[pos] = batch[i]
	}
	return labels
}

// Eval applies the forward linear map, setting and returning
// Result = Operator · Solution (contraction over the domain axes, batch
// axes carried through). It fails with ErrMissingState when Solution is
// unset.
func (ls *LinearSystem) Eval() (*tensors.Tensor, error) {
	if ls.Solution == nil {
		return nil, errors.Wrapf(ErrMissingState, "Eval: Solution is not set")
	}
	operatorLabels := xslices.Iota(0, ls.operator.Rank())
	result, err := tensors.Multiply(ls.operator, ls.Solution,
		operatorLabels, ls.vectorLabels(ls.matbAxes), ls.vectorLabels(ls.mataAxes))
	if err != nil {
		return nil, errors.WithMessagef(err, "Eval")
	}
	ls.Result = result
	return result, nil
}
