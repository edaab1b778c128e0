package linsys

import (
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/gotensor/tensalg/tensors"
	"github.com/gotensor/tensalg/types/shapes"
)

func randomTensor(rng *rand.Rand, dimensions ...int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.Complex128, dimensions...))
	flat := t.Flat()
	for i := range flat {
		flat[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
	}
	return t
}

// hermitianTensor returns (c + c^H)/2 for a random square c.
func hermitianTensor(rng *rand.Rand, n int) *tensors.Tensor {
	c := randomTensor(rng, n, n)
	h := tensors.FromShape(shapes.Make(dtypes.Complex128, n, n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set((c.At(i, j)+cmplx.Conj(c.At(j, i)))/2, i, j)
		}
	}
	return h
}

// symmetricTensor returns (c + c^T)/2 for a random square c.
func symmetricTensor(rng *rand.Rand, n int) *tensors.Tensor {
	c := randomTensor(rng, n, n)
	s := tensors.FromShape(shapes.Make(dtypes.Complex128, n, n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s.Set((c.At(i, j)+c.At(j, i))/2, i, j)
		}
	}
	return s
}

func TestNewValidation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	m := randomTensor(rng, 3, 3)
	_, err := New(m, []int{0}, []int{1, 2}, []int{0})
	require.ErrorIs(t, err, tensors.ErrInvalidAxes)
	_, err = New(m, []int{0}, []int{0}, []int{0})
	require.ErrorIs(t, err, tensors.ErrInvalidAxes)
	_, err = New(randomTensor(rng, 2, 3), []int{0}, []int{1}, []int{0})
	require.ErrorIs(t, err, tensors.ErrShapeMismatch)
	_, err = New(m, []int{0}, []int{1}, []int{0, 1})
	require.ErrorIs(t, err, tensors.ErrInvalidAxes)
}

func TestEval(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	m := randomTensor(rng, 3, 3)
	x := randomTensor(rng, 3)
	ls, err := New(m, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)

	_, err = ls.Eval()
	require.ErrorIs(t, err, ErrMissingState)

	ls.Solution = x
	result, err := ls.Eval()
	require.NoError(t, err)
	require.Same(t, result, ls.Result)
	for i := 0; i < 3; i++ {
		var want complex128
		for j := 0; j < 3; j++ {
			want += m.At(i, j) * x.At(j)
		}
		require.InDelta(t, 0, cmplx.Abs(result.At(i)-want), 1e-12)
	}
}

func TestEvalBatched(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 7))
	m := randomTensor(rng, 2, 3, 3) // axis 0 is a batch axis
	x := randomTensor(rng, 2, 3)
	ls, err := New(m, []int{1}, []int{2}, []int{1})
	require.NoError(t, err)
	ls.Solution = x
	result, err := ls.Eval()
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, result.Shape().Dimensions)
	for batch := 0; batch < 2; batch++ {
		for i := 0; i < 3; i++ {
			var want complex128
			for j := 0; j < 3; j++ {
				want += m.At(batch, i, j) * x.At(batch, j)
			}
			require.InDelta(t, 0, cmplx.Abs(result.At(batch, i)-want), 1e-12)
		}
	}
}

func TestDiagonalizableRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))
	m := randomTensor(rng, 3, 3)
	x := randomTensor(rng, 3)
	d, err := NewDiagonalizable(m, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	d.Solution = x
	direct, err := d.Eval()
	require.NoError(t, err)

	// decomp_solution → calc_result must agree with direct evaluation.
	_, err = d.DecompSolution()
	require.NoError(t, err)
	result, err := d.CalcResult()
	require.NoError(t, err)
	require.True(t, direct.InDelta(result, 1e-9))

	// … and decomp_result → calc_solution must round-trip back to x.
	_, err = d.DecompResult()
	require.NoError(t, err)
	solution, err := d.CalcSolution()
	require.NoError(t, err)
	require.True(t, x.InDelta(solution, 1e-9))
}

func TestSolveIsLazy(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 23))
	m := randomTensor(rng, 4, 4)
	x := randomTensor(rng, 4)
	d, err := NewDiagonalizable(m, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	d.Solution = x
	y, err := d.Eval()
	require.NoError(t, err)

	// Solve without an explicit CalcEigensystem call: the eigensystem is
	// computed on demand.
	d.Result = y
	solution, err := d.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(solution, 1e-9))
}

func TestSetOperatorInvalidatesEigensystem(t *testing.T) {
	rng := rand.New(rand.NewPCG(29, 31))
	m1 := randomTensor(rng, 3, 3)
	m2 := randomTensor(rng, 3, 3)
	x := randomTensor(rng, 3)

	d, err := NewDiagonalizable(m1, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	d.Solution = x
	_, err = d.Eval()
	require.NoError(t, err)
	got, err := d.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(got, 1e-9))

	// After swapping the operator the cached eigensystem must not be reused.
	require.NoError(t, d.SetOperator(m2))
	d.Solution = x
	_, err = d.Eval()
	require.NoError(t, err)
	got, err = d.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(got, 1e-9))

	require.ErrorIs(t, d.SetOperator(randomTensor(rng, 2, 3)), tensors.ErrShapeMismatch)
}

func TestGroupedOperatorRoundTrip(t *testing.T) {
	// Rank-4 operator acting on rank-2 solutions, with the solution layout
	// permuted relative to the operator's domain group.
	rng := rand.New(rand.NewPCG(37, 41))
	m := randomTensor(rng, 2, 3, 2, 3)
	x := randomTensor(rng, 3, 2)
	d, err := NewDiagonalizable(m, []int{0, 1}, []int{2, 3}, []int{1, 0})
	require.NoError(t, err)
	d.Solution = x
	y, err := d.Eval()
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, y.Shape().Dimensions)

	d.Result = y
	got, err := d.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(got, 1e-8))

	reig, err := d.RightEigenvectors()
	require.NoError(t, err)
	require.Equal(t, []int{6, 3, 2}, reig.Shape().Dimensions)
}

func TestEigensystemRejectsBatchAxes(t *testing.T) {
	rng := rand.New(rand.NewPCG(43, 47))
	d, err := NewDiagonalizable(randomTensor(rng, 2, 3, 3), []int{1}, []int{2}, []int{1})
	require.NoError(t, err)
	require.ErrorIs(t, d.CalcEigensystem(), tensors.ErrShapeMismatch)
}

func TestDecompMissingState(t *testing.T) {
	rng := rand.New(rand.NewPCG(53, 59))
	d, err := NewDiagonalizable(randomTensor(rng, 3, 3), []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	_, err = d.DecompSolution()
	require.ErrorIs(t, err, ErrMissingState)
	_, err = d.DecompResult()
	require.ErrorIs(t, err, ErrMissingState)
	_, err = d.CalcSolution()
	require.ErrorIs(t, err, ErrMissingState)
	_, err = d.CalcResult()
	require.ErrorIs(t, err, ErrMissingState)
	_, err = d.Decomp()
	require.ErrorIs(t, err, ErrMissingState)
}

func TestSingularEigenvalue(t *testing.T) {
	// diag(1, 2, 0) has a zero eigenvalue: projecting a result onto the
	// eigenbasis cannot divide by it.
	m := tensors.FromFloat64AndDimensions([]float64{1, 0, 0, 0, 2, 0, 0, 0, 0}, 3, 3)
	d, err := NewDiagonalizable(m, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	d.Result = tensors.FromFloat64AndDimensions([]float64{1, 1, 1}, 3)
	_, err = d.DecompResult()
	require.ErrorIs(t, err, ErrSingularEigenvalue)
}

func TestHermitianMatchesGeneral(t *testing.T) {
	rng := rand.New(rand.NewPCG(61, 67))
	h := hermitianTensor(rng, 4)
	x := randomTensor(rng, 4)

	general, err := NewDiagonalizable(h, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	hermitian, err := NewHermitian(h, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)

	gValues, err := general.Eigenvalues()
	require.NoError(t, err)
	hValues, err := hermitian.Eigenvalues()
	require.NoError(t, err)
	for k := range gValues {
		require.InDelta(t, 0, cmplx.Abs(gValues[k]-hValues[k]), 1e-8)
		require.InDelta(t, 0, imag(hValues[k]), 1e-12, "Hermitian eigenvalues must be real")
	}

	gLeft, err := general.LeftEigenvectors()
	require.NoError(t, err)
	hLeft, err := hermitian.LeftEigenvectors()
	require.NoError(t, err)
	require.True(t, gLeft.InDelta(hLeft, 1e-7),
		"left eigenvectors must agree between the general and Hermitian paths")

	general.Solution = x
	hermitian.Solution = x
	gDecomp, err := general.DecompSolution()
	require.NoError(t, err)
	hDecomp, err := hermitian.DecompSolution()
	require.NoError(t, err)
	for k := range gDecomp {
		require.InDelta(t, 0, cmplx.Abs(gDecomp[k]-hDecomp[k]), 1e-7)
	}
}

func TestHermitianSolve(t *testing.T) {
	rng := rand.New(rand.NewPCG(71, 73))
	h := hermitianTensor(rng, 5)
	x := randomTensor(rng, 5)
	ls, err := NewHermitian(h, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	ls.Solution = x
	y, err := ls.Eval()
	require.NoError(t, err)
	ls.Result = y
	got, err := ls.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(got, 1e-8))
}

func TestHermitianRejectsNonHermitian(t *testing.T) {
	rng := rand.New(rand.NewPCG(79, 83))
	ls, err := NewHermitian(randomTensor(rng, 3, 3), []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	require.ErrorIs(t, ls.CalcEigensystem(), ErrNotHermitian)
}

func TestSymmetricMatchesGeneral(t *testing.T) {
	rng := rand.New(rand.NewPCG(89, 97))
	s := symmetricTensor(rng, 4)
	x := randomTensor(rng, 4)

	general, err := NewDiagonalizable(s, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	symmetric, err := NewSymmetric(s, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)

	gLeft, err := general.LeftEigenvectors()
	require.NoError(t, err)
	sLeft, err := symmetric.LeftEigenvectors()
	require.NoError(t, err)
	require.True(t, gLeft.InDelta(sLeft, 1e-7),
		"left eigenvectors must agree between the general and symmetric paths")

	general.Solution = x
	symmetric.Solution = x
	gDecomp, err := general.DecompSolution()
	require.NoError(t, err)
	sDecomp, err := symmetric.DecompSolution()
	require.NoError(t, err)
	for k := range gDecomp {
		require.InDelta(t, 0, cmplx.Abs(gDecomp[k]-sDecomp[k]), 1e-7)
	}
}

func TestSymmetricSolve(t *testing.T) {
	rng := rand.New(rand.NewPCG(101, 103))
	s := symmetricTensor(rng, 4)
	x := randomTensor(rng, 4)
	ls, err := NewSymmetric(s, []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	ls.Solution = x
	y, err := ls.Eval()
	require.NoError(t, err)
	ls.Result = y
	got, err := ls.Solve()
	require.NoError(t, err)
	require.True(t, x.InDelta(got, 1e-8))
}

func TestSymmetricRejectsNonSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(107, 109))
	ls, err := NewSymmetric(randomTensor(rng, 3, 3), []int{0}, []int{1}, []int{0})
	require.NoError(t, err)
	require.ErrorIs(t, ls.CalcEigensystem(), ErrNotSymmetric)
}
