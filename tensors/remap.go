// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/gotensor/tensalg/types"
	"github.com/gotensor/tensalg/types/shapes"
)

// adjustAxes returns a copy of the axis list with negative axes resolved,
// wrapping out-of-range values in ErrInvalidAxes.
func adjustAxes(rank int, axes []int, opName string) ([]int, error) {
	adjusted := make([]int, len(axes))
	for ii, axis := range axes {
		var err error
		adjusted[ii], err = shapes.AdjustAxisToRank(rank, axis)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidAxes, "%s: %v", opName, err)
		}
	}
	return adjusted, nil
}

// checkUniqueAxes errors with ErrInvalidAxes if the concatenation of the
// given axis lists repeats an axis.
func checkUniqueAxes(opName string, axisLists ...[]int) error {
	seen := types.MakeSet[int]()
	for _, axes := range axisLists {
		for _, axis := range axes {
			if seen.Has(axis) {
				return errors.Wrapf(ErrInvalidAxes, "%s: axis %d appears more than once", opName, axis)
			}
			seen.Insert(axis)
		}
	}
	return nil
}

// complementAxes returns the axes of [0, rank) not listed in axes, in
// ascending order.
func complementAxes(rank int, axes []int) []int {
	complement := make([]int, 0, rank-len(axes))
	for axis := 0; axis < rank; axis++ {
		if !slices.Contains(axes, axis) {
			complement = append(complement, axis)
		}
	}
	return complement
}

// Permute returns a new tensor whose axis i is the input's axis
// permutation[i] (the generalization of a matrix transpose to any axis
// reordering).
func Permute(t *Tensor, permutation []int) (*Tensor, error) {
	rank := t.Rank()
	if len(permutation) != rank {
		return nil, errors.Wrapf(ErrInvalidAxes, "Permute: got %d axes for shape %s", len(permutation), t.shape)
	}
	permutation, err := adjustAxes(rank, permutation, "Permute")
	if err != nil {
		return nil, err
	}
	if err := checkUniqueAxes("Permute", permutation); err != nil {
		return nil, err
	}
	outDims := make([]int, rank)
	for outAxis, inAxis := range permutation {
		outDims[outAxis] = t.shape.Dimensions[inAxis]
	}
	out := FromShape(shapes.Make(t.DType(), outDims...))
	inStrides := t.LayoutStrides()
	flatIdx := 0
	for indices := range out.shape.Iter() {
		inIdx := 0
		for outAxis, idx := range indices {
			inIdx += idx * inStrides[permutation[outAxis]]
		}
		out.flat[flatIdx] = t.flat[inIdx]
		flatIdx++
	}
	return out, nil
}

// inversePermutation returns the permutation q with q[p[i]] = i.
func inversePermutation(p []int) []int {
	q := make([]int, len(p))
	for i, v := range p {
		q[v] = i
	}
	return q
}

// Reshape returns a tensor with the same elements (in row-major order) and
// the given dimensions. The total size must not change.
func Reshape(t *Tensor, dimensions ...int) (*Tensor, error) {
	shape := shapes.Make(t.DType(), dimensions...)
	if shape.Size() != t.Size() {
		return nil, errors.Wrapf(ErrShapeMismatch, "Reshape: cannot reshape %s to %s", t.shape, shape)
	}
	clone := t.Clone()
	clone.shape = shape
	return clone, nil
}

// mergePermutation returns the axis order that brings the tensor to
// [tensorAxes[:vecAxis], vecAxes, tensorAxes[vecAxis:]], the layout in which
// the vector axes are contiguous at insertion position vecAxis.
func mergePermutation(tensorAxes, vecAxes []int, vecAxis int) []int {
	perm := make([]int, 0, len(tensorAxes)+len(vecAxes))
	perm = append(perm, tensorAxes[:vecAxis]...)
	perm = append(perm, vecAxes...)
	perm = append(perm, tensorAxes[vecAxis:]...)
	return perm
}

// Vectorize merges all axes of t not listed in tensorAxes ("vector axes")
// into a single axis inserted at position vecAxis of the result, preserving
// the relative order of the tensor axes. It returns the merged tensor and
// vecShape, the original dimensions of the merged axes (in ascending axis
// order), which makes the operation invertible: see Tensorize.
//
// If tensorAxes covers all axes, no merged axis is inserted and the result
// is just the reordering of t by tensorAxes; if tensorAxes is empty, the
// whole tensor is flattened to a single vector.
func Vectorize(t *Tensor, tensorAxes []int, vecAxis int) (*Tensor, []int, error) {
	rank := t.Rank()
	tensorAxes, err := adjustAxes(rank, tensorAxes, "Vectorize")
	if err != nil {
		return nil, nil, err
	}
	if err := checkUniqueAxes("Vectorize", tensorAxes); err != nil {
		return nil, nil, err
	}
	if vecAxis < 0 || vecAxis > len(tensorAxes) {
		return nil, nil, errors.Wrapf(ErrInvalidAxes,
			"Vectorize: vecAxis %d out of range [0, %d] for %d tensor axes", vecAxis, len(tensorAxes), len(tensorAxes))
	}
	vecAxes := complementAxes(rank, tensorAxes)
	permuted, err := Permute(t, mergePermutation(tensorAxes, vecAxes, vecAxis))
	if err != nil {
		return nil, nil, err
	}
	vecShape := make([]int, len(vecAxes))
	for ii, axis := range vecAxes {
		vecShape[ii] = t.shape.Dimensions[axis]
	}
	if len(vecAxes) == 0 {
		// All axes are tensor axes: nothing to merge.
		return permuted, vecShape, nil
	}
	mergedSize := 1
	for _, dim := range vecShape {
		mergedSize *= dim
	}
	mergedDims := make([]int, 0, len(tensorAxes)+1)
	for _, axis := range tensorAxes[:vecAxis] {
		mergedDims = append(mergedDims, t.shape.Dimensions[axis])
	}
	mergedDims = append(mergedDims, mergedSize)
	for _, axis := range tensorAxes[vecAxis:] {
		mergedDims = append(mergedDims, t.shape.Dimensions[axis])
	}
	matrix, err := Reshape(permuted, mergedDims...)
	if err != nil {
		return nil, nil, err
	}
	return matrix, vecShape, nil
}

// Tensorize is the exact inverse of Vectorize: it splits the merged axis at
// position vecAxis back into the axes recorded in vecShape and restores the
// original axis order. For any valid arguments,
// Tensorize(Vectorize(t, tensorAxes, vecAxis)..., tensorAxes, vecAxis)
// reproduces t element-for-element.
//
// It returns ErrShapeMismatch if the product of vecShape doesn't equal the
// merged-axis dimension.
func Tensorize(m *Tensor, vecShape []int, tensorAxes []int, vecAxis int) (*Tensor, error) {
	rank := len(tensorAxes) + len(vecShape)
	tensorAxes, err := adjustAxes(rank, tensorAxes, "Tensorize")
	if err != nil {
		return nil, err
	}
	if err := checkUniqueAxes("Tensorize", tensorAxes); err != nil {
		return nil, err
	}
	if vecAxis < 0 || vecAxis > len(tensorAxes) {
		return nil, errors.Wrapf(ErrInvalidAxes,
			"Tensorize: vecAxis %d out of range [0, %d] for %d tensor axes", vecAxis, len(tensorAxes), len(tensorAxes))
	}
	vecAxes := complementAxes(rank, tensorAxes)
	perm := mergePermutation(tensorAxes, vecAxes, vecAxis)
	if len(vecShape) == 0 {
		// Vectorize didn't merge anything: just undo the reordering.
		if err := m.shape.CheckRank(len(tensorAxes)); err != nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "Tensorize: %v", err)
		}
		return Permute(m, inversePermutation(perm))
	}
	if err := m.shape.CheckRank(len(tensorAxes) + 1); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "Tensorize: %v", err)
	}
	mergedSize := 1
	for _, dim := range vecShape {
		mergedSize *= dim
	}
	if m.shape.Dimensions[vecAxis] != mergedSize {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"Tensorize: vecShape %s has size %d, but merged axis %d of %s has dimension %d",
			shapes.DimsString(vecShape), mergedSize, vecAxis, m.shape, m.shape.Dimensions[vecAxis])
	}
	expandedDims := make([]int, 0, rank)
	expandedDims = append(expandedDims, m.shape.Dimensions[:vecAxis]...)
	expandedDims = append(expandedDims, vecShape...)
	expandedDims = append(expandedDims, m.shape.Dimensions[vecAxis+1:]...)
	expanded, err := Reshape(m, expandedDims...)
	if err != nil {
		return nil, err
	}
	return Permute(expanded, inversePermutation(perm))
}
