package workerspool

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(3)

	const n = 100
	var count atomic.Int32
	hit := make([]atomic.Bool, n)
	require.NoError(t, pool.ForEach(n, func(i int) error {
		count.Add(1)
		hit[i].Store(true)
		return nil
	}))
	assert.Equal(t, int32(n), count.Load())
	for i := range hit {
		assert.Truef(t, hit[i].Load(), "task %d never ran", i)
	}
}

func TestForEachError(t *testing.T) {
	pool := New()
	errBoom := errors.New("boom")
	err := pool.ForEach(10, func(i int) error {
		if i == 3 || i == 7 {
			return errors.WithMessagef(errBoom, "task %d", i)
		}
		return nil
	})
	require.ErrorIs(t, err, errBoom)
	// The lowest failing index wins.
	assert.Contains(t, err.Error(), "task 3")
}

func TestForEachInline(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(0) // Disabled: everything runs inline, in order.
	var order []int
	require.NoError(t, pool.ForEach(5, func(i int) error {
		order = append(order, i)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
