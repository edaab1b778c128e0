package tensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotensor/tensalg/types/xslices"
)

// iotaTensor returns a Float64 tensor with elements 0, 1, 2, … in row-major
// order, convenient because every element value identifies its position.
func iotaTensor(dimensions ...int) *Tensor {
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	return FromFloat64AndDimensions(xslices.Iota(0.0, size), dimensions...)
}

func TestPermute(t *testing.T) {
	x := iotaTensor(2, 3)
	y, err := Permute(x, []int{1, 0})
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, y.Shape().Dimensions)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, x.At(i, j), y.At(j, i))
		}
	}

	// Negative axes count from the end.
	y2, err := Permute(x, []int{-1, -2})
	require.NoError(t, err)
	require.True(t, y.Equal(y2))

	_, err = Permute(x, []int{0, 2})
	require.ErrorIs(t, err, ErrInvalidAxes)
	_, err = Permute(x, []int{0, 0})
	require.ErrorIs(t, err, ErrInvalidAxes)
	_, err = Permute(x, []int{0})
	require.ErrorIs(t, err, ErrInvalidAxes)
}

func TestReshape(t *testing.T) {
	x := iotaTensor(2, 6)
	y, err := Reshape(x, 3, 4)
	require.NoError(t, err)
	require.Equal(t, []int{3, 4}, y.Shape().Dimensions)
	require.Equal(t, x.Flat(), y.Flat())

	_, err = Reshape(x, 5, 2)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVectorizeTensorizeRoundTrip(t *testing.T) {
	x := iotaTensor(2, 3, 4, 5)
	tensorAxes := []int{0, 2}
	vecAxis := 2

	m, vecShape, err := Vectorize(x, tensorAxes, vecAxis)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 15}, m.Shape().Dimensions)
	require.Equal(t, []int{3, 5}, vecShape)

	// The merged axis walks the original axes 1 and 3 in row-major order.
	for i0 := 0; i0 < 2; i0++ {
		for i1 := 0; i1 < 3; i1++ {
			for i2 := 0; i2 < 4; i2++ {
				for i3 := 0; i3 < 5; i3++ {
					require.Equal(t, x.At(i0, i1, i2, i3), m.At(i0, i2, i1*5+i3))
				}
			}
		}
	}

	back, err := Tensorize(m, vecShape, tensorAxes, vecAxis)
	require.NoError(t, err)
	require.True(t, x.Equal(back), "round trip must reproduce the tensor exactly")
}

func TestVectorizeInsertionPositions(t *testing.T) {
	x := iotaTensor(2, 3, 4, 5)
	for vecAxis := 0; vecAxis <= 2; vecAxis++ {
		m, vecShape, err := Vectorize(x, []int{0, 2}, vecAxis)
		require.NoError(t, err)
		back, err := Tensorize(m, vecShape, []int{0, 2}, vecAxis)
		require.NoError(t, err)
		require.Truef(t, x.Equal(back), "round trip failed for insertion position %d", vecAxis)
	}
}

func TestVectorizeAllAxes(t *testing.T) {
	x := iotaTensor(3, 4)

	// Every axis is a tensor axis: no merged axis is inserted.
	m, vecShape, err := Vectorize(x, []int{1, 0}, 1)
	require.NoError(t, err)
	require.Empty(t, vecShape)
	require.Equal(t, []int{4, 3}, m.Shape().Dimensions)
	back, err := Tensorize(m, vecShape, []int{1, 0}, 1)
	require.NoError(t, err)
	require.True(t, x.Equal(back))

	// No tensor axes: the whole tensor flattens to a vector.
	v, vecShape, err := Vectorize(x, nil, 0)
	require.NoError(t, err)
	require.Equal(t, []int{3, 4}, vecShape)
	require.Equal(t, []int{12}, v.Shape().Dimensions)
	back, err = Tensorize(v, vecShape, nil, 0)
	require.NoError(t, err)
	require.True(t, x.Equal(back))
}

func TestVectorizeErrors(t *testing.T) {
	x := iotaTensor(2, 3, 4)
	_, _, err := Vectorize(x, []int{0, 3}, 0)
	require.ErrorIs(t, err, ErrInvalidAxes)
	_, _, err = Vectorize(x, []int{0, 0}, 0)
	require.ErrorIs(t, err, ErrInvalidAxes)
	_, _, err = Vectorize(x, []int{0, 2}, 3)
	require.ErrorIs(t, err, ErrInvalidAxes)
}

func TestTensorizeErrors(t *testing.T) {
	x := iotaTensor(2, 3, 4, 5)
	m, vecShape, err := Vectorize(x, []int{0, 2}, 2)
	require.NoError(t, err)
	require.Equal(t, []int{3, 5}, vecShape)

	_, err = Tensorize(m, []int{5, 5}, []int{0, 2}, 2)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Tensorize(m, vecShape, []int{0, 4}, 2)
	require.ErrorIs(t, err, ErrInvalidAxes)
}
