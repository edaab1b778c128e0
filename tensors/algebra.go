// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/gotensor/tensalg/internal/cmat"
	"github.com/gotensor/tensalg/internal/workerspool"
	"github.com/gotensor/tensalg/types/shapes"
)

// batchPool bounds the parallelism of the per-batch matrix kernels in
// Inverse and Solve. Batch elements are independent of each other.
var batchPool = workerspool.New()

// Transpose swaps the two axis groups positionally: axis aAxes[i] trades
// place with axis bAxes[i], every other axis stays put. It generalizes the
// matrix transpose to operators whose domain and codomain span several axes.
func Transpose(t *Tensor, aAxes, bAxes []int) (*Tensor, error) {
	if len(aAxes) != len(bAxes) {
		return nil, errors.Wrapf(ErrInvalidAxes, "Transpose: got %d a-axes and %d b-axes", len(aAxes), len(bAxes))
	}
	rank := t.Rank()
	aAxes, err := adjustAxes(rank, aAxes, "Transpose")
	if err != nil {
		return nil, err
	}
	bAxes, err = adjustAxes(rank, bAxes, "Transpose")
	if err != nil {
		return nil, err
	}
	if err := checkUniqueAxes("Transpose", aAxes, bAxes); err != nil {
		return nil, err
	}
	perm := make([]int, rank)
	for axis := range perm {
		perm[axis] = axis
	}
	for i := range aAxes {
		perm[aAxes[i]], perm[bAxes[i]] = bAxes[i], aAxes[i]
	}
	return Permute(t, perm)
}

// Multiply is the generalized two-operand contraction, in Einstein notation
// with integer axis labels: aLabels and bLabels give one label per axis of
// the respective operand, and resLabels lists the labels surviving to the
// output, in output-axis order. A label shared by both operands must have
// equal dimension on both sides; labels absent from resLabels are summed
// over; a label present in a single operand and in resLabels is carried
// through as a batch dimension. A label repeated within one operand selects
// that operand's diagonal.
//
// The result dtype is Float64 only when both operands are Float64.
func Multiply(a, b *Tensor, aLabels, bLabels, resLabels []int) (*Tensor, error) {
	if len(aLabels) != a.Rank() {
		return nil, errors.Wrapf(ErrInvalidAxes, "Multiply: got %d labels for left operand %s", len(aLabels), a.shape)
	}
	if len(bLabels) != b.Rank() {
		return nil, errors.Wrapf(ErrInvalidAxes, "Multiply: got %d labels for right operand %s", len(bLabels), b.shape)
	}

	// Resolve each label's dimension, checking the operands agree.
	labelDims := make(map[int]int)
	for _, operand := range []struct {
		t      *Tensor
		labels []int
	}{{a, aLabels}, {b, bLabels}} {
		for axis, label := range operand.labels {
			dim := operand.t.shape.Dimensions[axis]
			if prev, found := labelDims[label]; found && prev != dim {
				return nil, errors.Wrapf(ErrShapeMismatch,
					"Multiply: label %d has dimension %d and %d in the operands (%s vs %s)",
					label, prev, dim, a.shape, b.shape)
			}
			labelDims[label] = dim
		}
	}
	for i, label := range resLabels {
		if slices.Index(resLabels[:i], label) >= 0 {
			return nil, errors.Wrapf(ErrInvalidAxes, "Multiply: result label %d repeated", label)
		}
		if _, found := labelDims[label]; !found {
			return nil, errors.Wrapf(ErrInvalidAxes, "Multiply: result label %d not present in either operand", label)
		}
	}

	// Labels not surviving to the result are contracted, in ascending order
	// so the output is deterministic.
	var sumLabels []int
	for label := range labelDims {
		if !slices.Contains(resLabels, label) {
			sumLabels = append(sumLabels, label)
		}
	}
	slices.Sort(sumLabels)

	// Per-label flat strides of each operand; a label repeated within an
	// operand accumulates its axis strides, which walks the diagonal.
	labelStrides := func(t *Tensor, labels []int) map[int]int {
		strides := t.LayoutStrides()
		perLabel := make(map[int]int, len(labels))
		for axis, label := range labels {
			perLabel[label] += strides[axis]
		}
		return perLabel
	}
	aStrides := labelStrides(a, aLabels)
	bStrides := labelStrides(b, bLabels)

	outDims := make([]int, len(resLabels))
	for i, label := range resLabels {
		outDims[i] = labelDims[label]
	}
	out := FromShape(shapes.Make(promoteDType(a.DType(), b.DType()), outDims...))

	sumDims := make([]int, len(sumLabels))
	for i, label := range sumLabels {
		sumDims[i] = labelDims[label]
	}
	sumShape := shapes.Make(out.DType(), sumDims...)

	flatIdx := 0
	for outIndices := range out.shape.Iter() {
		aBase, bBase := 0, 0
		for i, label := range resLabels {
			aBase += outIndices[i] * aStrides[label]
			bBase += outIndices[i] * bStrides[label]
		}
		var sum complex128
		for sumIndices := range sumShape.Iter() {
			aOff, bOff := aBase, bBase
			for i, label := range sumLabels {
				aOff += sumIndices[i] * aStrides[label]
				bOff += sumIndices[i] * bStrides[label]
			}
			sum += a.flat[aOff] * b.flat[bOff]
		}
		out.flat[flatIdx] = sum
		flatIdx++
	}
	return out, nil
}

// operatorLayout carries a tensor permuted to [batch..., a-group, b-group]
// and flattened to a stack of batchSize square matrices of order n.
type operatorLayout struct {
	batchAxes []int
	aAxes     []int
	bAxes     []int
	batchDims []int
	aDims     []int
	bDims     []int
	batchSize int
	n         int
	flat      []complex128
}

// flattenOperator validates the axis groups of t and reorders it to
// batch-major stacked square matrices, with the a-group flattened as rows
// and the b-group as columns.
func flattenOperator(t *Tensor, aAxes, bAxes []int, opName string) (*operatorLayout, error) {
	rank := t.Rank()
	aAxes, err := adjustAxes(rank, aAxes, opName)
	if err != nil {
		return nil, err
	}
	bAxes, err = adjustAxes(rank, bAxes, opName)
	if err != nil {
		return nil, err
	}
	if err := checkUniqueAxes(opName, aAxes, bAxes); err != nil {
		return nil, err
	}
	batchAxes := complementAxes(rank, slices.Concat(aAxes, bAxes))

	dimsOf := func(axes []int) []int {
		dims := make([]int, len(axes))
		for i, axis := range axes {
			dims[i] = t.shape.Dimensions[axis]
		}
		return dims
	}
	layout := &operatorLayout{
		batchAxes: batchAxes,
		aAxes:     aAxes,
		bAxes:     bAxes,
		batchDims: dimsOf(batchAxes),
		aDims:     dimsOf(aAxes),
		bDims:     dimsOf(bAxes),
		batchSize: 1,
		n:         1,
	}
	for _, dim := range layout.batchDims {
		layout.batchSize *= dim
	}
	bSize := 1
	for _, dim := range layout.bDims {
		bSize *= dim
	}
	for _, dim := range layout.aDims {
		layout.n *= dim
	}
	if layout.n != bSize {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"%s: a-group flattens to %d but b-group to %d, the operator matrix must be square (shape %s)",
			opName, layout.n, bSize, t.shape)
	}
	permuted, err := Permute(t, slices.Concat(batchAxes, aAxes, bAxes))
	if err != nil {
		return nil, err
	}
	layout.flat = permuted.flat
	return layout, nil
}

// Inverse inverts the operator t over the axis groups (aAxes, bAxes),
// batching over the remaining axes. The a- and b-groups must flatten to the
// same size. The result carries the b-group dimensions at the a-group
// positions and vice versa, so contracting t with its inverse over the
// b-group yields the identity operator on every batch element.
//
// A batch element that is singular to working precision fails with
// ErrSingular.
func Inverse(t *Tensor, aAxes, bAxes []int) (*Tensor, error) {
	layout, err := flattenOperator(t, aAxes, bAxes, "Inverse")
	if err != nil {
		return nil, err
	}
	n := layout.n
	invFlat := make([]complex128, len(layout.flat))
	err = batchPool.ForEach(layout.batchSize, func(batch int) error {
		m := cmat.FromFlat(n, n, layout.flat[batch*n*n:(batch+1)*n*n])
		inv, err := cmat.Inverse(m)
		if err != nil {
			if errors.Is(err, cmat.ErrSingular) {
				return errors.Wrapf(ErrSingular, "Inverse: batch element %d: %v", batch, err)
			}
			return errors.WithMessagef(err, "Inverse: batch element %d", batch)
		}
		copy(invFlat[batch*n*n:], inv.Flat())
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Each inverted matrix has b-flattened rows and a-flattened columns, so
	// the stacked result is [batch..., b-group, a-group]; route the b-group
	// dimensions back to the a-group positions and vice versa.
	inv := &Tensor{
		shape: shapes.Make(t.DType(), slices.Concat(layout.batchDims, layout.bDims, layout.aDims)...),
		flat:  invFlat,
	}
	dest := slices.Concat(layout.batchAxes, layout.aAxes, layout.bAxes)
	return Permute(inv, inversePermutation(dest))
}

// Solve solves t ×(aAxes,bAxes) x = y for x by a direct LU solve per batch
// element, never forming the explicit inverse. y must be shaped as t with
// the b-group axes removed; resAxes places the b-group dimensions in the
// result, and the batch dimensions fill the remaining positions in ascending
// axis order, so that the result of Solve feeds straight back into a
// matching Multiply.
func Solve(t, y *Tensor, aAxes, bAxes, resAxes []int) (*Tensor, error) {
	layout, err := flattenOperator(t, aAxes, bAxes, "Solve")
	if err != nil {
		return nil, err
	}
	aAxes, bAxes = layout.aAxes, layout.bAxes

	// y keeps t's batch and a-group axes in their original ascending order.
	yAxes := complementAxes(t.Rank(), bAxes)
	wantDims := make([]int, len(yAxes))
	for i, axis := range yAxes {
		wantDims[i] = t.shape.Dimensions[axis]
	}
	if y.Rank() != len(yAxes) || !slices.Equal(y.shape.Dimensions, wantDims) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"Solve: y has shape %s, want dimensions %s (operator %s without its b-group axes)",
			y.shape, shapes.DimsString(wantDims), t.shape)
	}

	// Reorder y to [batch..., a-group] matching the operator layout.
	yPerm := make([]int, 0, len(yAxes))
	for _, axis := range layout.batchAxes {
		yPerm = append(yPerm, slices.Index(yAxes, axis))
	}
	for _, axis := range aAxes {
		yPerm = append(yPerm, slices.Index(yAxes, axis))
	}
	yOrdered, err := Permute(y, yPerm)
	if err != nil {
		return nil, err
	}

	n := layout.n
	xFlat := make([]complex128, layout.batchSize*n)
	err = batchPool.ForEach(layout.batchSize, func(batch int) error {
		m := cmat.FromFlat(n, n, layout.flat[batch*n*n:(batch+1)*n*n])
		f, err := cmat.FactorizeLU(m)
		if err != nil {
			if errors.Is(err, cmat.ErrSingular) {
				return errors.Wrapf(ErrSingular, "Solve: batch element %d: %v", batch, err)
			}
			return errors.WithMessagef(err, "Solve: batch element %d", batch)
		}
		copy(xFlat[batch*n:], f.SolveVec(yOrdered.flat[batch*n:(batch+1)*n]))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The stacked solutions are [batch..., b-group]; resAxes says where each
	// b-group dimension lands, batch dimensions fill the rest ascending.
	outRank := len(layout.batchAxes) + len(bAxes)
	resAxes, err = adjustAxes(outRank, resAxes, "Solve")
	if err != nil {
		return nil, err
	}
	if len(resAxes) != len(bAxes) {
		return nil, errors.Wrapf(ErrInvalidAxes,
			"Solve: got %d result axes for %d b-group axes", len(resAxes), len(bAxes))
	}
	if err := checkUniqueAxes("Solve", resAxes); err != nil {
		return nil, err
	}
	dest := slices.Concat(complementAxes(outRank, resAxes), resAxes)
	x := &Tensor{
		shape: shapes.Make(promoteDType(t.DType(), y.DType()), slices.Concat(layout.batchDims, layout.bDims)...),
		flat:  xFlat,
	}
	return Permute(x, inversePermutation(dest))
}
