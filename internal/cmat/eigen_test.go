package cmat

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomComplex(rng *rand.Rand, n int) *Dense {
	m := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, complex(rng.Float64()-0.5, rng.Float64()-0.5))
		}
	}
	return m
}

// requireEigenPairs checks a·v_k = λ_k·v_k for every returned pair, and that
// the eigenvectors follow the normalization convention.
func requireEigenPairs(t *testing.T, a *Dense, values []complex128, vectors *Dense, tol float64) {
	t.Helper()
	n, _ := a.Dims()
	require.Len(t, values, n)
	for k := 0; k < n; k++ {
		v := vectors.Col(k)
		require.InDelta(t, 1, Norm2(v), 1e-10, "eigenvector %d should have unit norm", k)
		var residual float64
		for i := 0; i < n; i++ {
			var av complex128
			for j := 0; j < n; j++ {
				av += a.At(i, j) * v[j]
			}
			residual = math.Max(residual, cmplx.Abs(av-values[k]*v[i]))
		}
		require.Lessf(t, residual, tol, "residual of eigenpair %d (λ=%v)", k, values[k])
	}
}

func TestEigenRealMatrix(t *testing.T) {
	// A real matrix stored with zero imaginary parts takes the direct path.
	a := NewDense(2, 2)
	a.SetCol(0, []complex128{0, -2})
	a.SetCol(1, []complex128{1, -3})
	values, vectors, err := Eigen(a)
	require.NoError(t, err)
	requireEigenPairs(t, a, values, vectors, 1e-12)
	// Eigenvalues -2 and -1, sorted ascending by real part.
	require.InDelta(t, 0, cmplx.Abs(values[0]-(-2)), 1e-12)
	require.InDelta(t, 0, cmplx.Abs(values[1]-(-1)), 1e-12)
}

func TestEigenComplexMatrix(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 13))
	for _, n := range []int{2, 3, 6} {
		a := randomComplex(rng, n)
		values, vectors, err := Eigen(a)
		require.NoError(t, err)
		requireEigenPairs(t, a, values, vectors, 1e-9)
	}
}

func TestEigenSorted(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	a := randomComplex(rng, 5)
	values, _, err := Eigen(a)
	require.NoError(t, err)
	for k := 1; k < len(values); k++ {
		require.LessOrEqual(t, real(values[k-1]), real(values[k]))
	}
}

func TestEigenHermitian(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 17))
	for _, n := range []int{2, 3, 5} {
		c := randomComplex(rng, n)
		// h = (c + c^H) / 2 is Hermitian.
		h := NewDense(n, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				h.Set(i, j, (c.At(i, j)+cmplx.Conj(c.At(j, i)))/2)
			}
		}
		values, vectors, err := EigenHermitian(h)
		require.NoError(t, err)
		require.Len(t, values, n)
		// Real ascending eigenvalues.
		for k := 1; k < n; k++ {
			require.LessOrEqual(t, values[k-1], values[k])
		}
		cvalues := make([]complex128, n)
		for k, v := range values {
			cvalues[k] = complex(v, 0)
		}
		requireEigenPairs(t, h, cvalues, vectors, 1e-9)
		// Orthonormal eigenvectors.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				want := complex128(0)
				if i == j {
					want = 1
				}
				require.InDeltaf(t, 0, cmplx.Abs(Dotc(vectors.Col(i), vectors.Col(j))-want), 1e-9,
					"eigenvectors %d and %d not orthonormal", i, j)
			}
		}
	}
}

func TestEigenHermitianMatchesGeneral(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 29))
	n := 4
	c := randomComplex(rng, n)
	h := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, (c.At(i, j)+cmplx.Conj(c.At(j, i)))/2)
		}
	}
	hValues, hVectors, err := EigenHermitian(h)
	require.NoError(t, err)
	gValues, gVectors, err := Eigen(h)
	require.NoError(t, err)
	for k := 0; k < n; k++ {
		require.InDelta(t, 0, cmplx.Abs(gValues[k]-complex(hValues[k], 0)), 1e-8)
		for i := 0; i < n; i++ {
			require.InDeltaf(t, 0, cmplx.Abs(gVectors.At(i, k)-hVectors.At(i, k)), 1e-7,
				"eigenvector %d component %d differs between strategies", k, i)
		}
	}
}

func TestEigenHermitianRejectsNonHermitian(t *testing.T) {
	rng := rand.New(rand.NewPCG(41, 43))
	a := randomComplex(rng, 3)
	_, _, err := EigenHermitian(a)
	require.ErrorIs(t, err, ErrNotHermitian)
}
