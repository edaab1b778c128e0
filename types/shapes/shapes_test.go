package shapes

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Float64, 2, 3)
	require.True(t, s.Ok())
	require.Equal(t, 2, s.Rank())
	require.Equal(t, 6, s.Size())
	require.Equal(t, "(Float64)[2 3]", s.String())

	s = Make(dtypes.Complex128)
	require.True(t, s.IsScalar())
	require.Equal(t, 1, s.Size())

	// Non-positive dimensions and unsupported dtypes must panic.
	require.NotNil(t, exceptions.Try(func() { Make(dtypes.Float64, 2, 0) }))
	require.NotNil(t, exceptions.Try(func() { Make(dtypes.Float32, 2, 2) }))

	require.False(t, Invalid().Ok())
	require.False(t, Shape{}.Ok())
}

func TestDim(t *testing.T) {
	s := Make(dtypes.Float64, 2, 3, 5)
	require.Equal(t, 5, s.Dim(2))
	require.Equal(t, 5, s.Dim(-1))
	require.Equal(t, 2, s.Dim(-3))
	require.NotNil(t, exceptions.Try(func() { s.Dim(3) }))
	require.NotNil(t, exceptions.Try(func() { s.Dim(-4) }))
}

func TestEqual(t *testing.T) {
	s := Make(dtypes.Float64, 2, 3)
	assert.True(t, s.Equal(s.Clone()))
	assert.False(t, s.Equal(Make(dtypes.Complex128, 2, 3)))
	assert.True(t, s.EqualDimensions(Make(dtypes.Complex128, 2, 3)))
	assert.False(t, s.Equal(Make(dtypes.Float64, 3, 2)))
}

func TestStrides(t *testing.T) {
	s := Make(dtypes.Float64, 2, 3, 4)
	require.Equal(t, []int{12, 4, 1}, s.Strides())
	require.Empty(t, Make(dtypes.Float64).Strides())
}

func TestCheckDims(t *testing.T) {
	s := Make(dtypes.Float64, 2, 3)
	require.NoError(t, s.CheckDims(2, 3))
	require.NoError(t, s.CheckDims(2, UncheckedAxis))
	require.Error(t, s.CheckDims(2))
	require.Error(t, s.CheckDims(3, 2))
	require.NoError(t, s.CheckRank(2))
	require.Error(t, s.CheckRank(3))
}

func TestAdjustAxisToRank(t *testing.T) {
	axis, err := AdjustAxisToRank(4, -1)
	require.NoError(t, err)
	require.Equal(t, 3, axis)
	axis, err = AdjustAxisToRank(4, 2)
	require.NoError(t, err)
	require.Equal(t, 2, axis)
	_, err = AdjustAxisToRank(4, 4)
	require.Error(t, err)
	_, err = AdjustAxisToRank(4, -5)
	require.Error(t, err)
}

func TestGobSerialization(t *testing.T) {
	s := Make(dtypes.Complex128, 3, 1, 2)
	var buf bytes.Buffer
	require.NoError(t, s.GobSerialize(gob.NewEncoder(&buf)))
	s2, err := GobDeserialize(gob.NewDecoder(&buf))
	require.NoError(t, err)
	require.True(t, s.Equal(s2))
}

func TestConcatenateDimensions(t *testing.T) {
	s1 := Make(dtypes.Float64, 2, 3)
	s2 := Make(dtypes.Float64, 4)
	require.Equal(t, []int{2, 3, 4}, ConcatenateDimensions(s1, s2).Dimensions)
	scalar := Make(dtypes.Float64)
	require.Equal(t, []int{2, 3}, ConcatenateDimensions(scalar, s1).Dimensions)
}
