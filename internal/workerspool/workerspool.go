// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool bounds the parallelism of batched dense-matrix
// kernels: the batch elements of an Inverse or Solve are independent, so
// they fan out over a shared pool of workers.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool limits how many batch kernels run concurrently.
type Pool struct {
	// maxParallelism is a soft target on the number of concurrently running
	// tasks. 0 disables parallelism (tasks run inline), -1 removes the limit.
	maxParallelism int

	mu         sync.Mutex
	cond       sync.Cond // Signaled whenever numRunning decreases.
	numRunning int
}

// New returns a Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	p := &Pool{maxParallelism: runtime.NumCPU()}
	p.cond.L = &p.mu
	return p
}

// MaxParallelism returns the current soft limit on concurrent tasks.
func (p *Pool) MaxParallelism() int { return p.maxParallelism }

// SetMaxParallelism changes the limit: 0 disables parallelism, -1 makes it
// unlimited. Only change it while no tasks are running.
func (p *Pool) SetMaxParallelism(maxParallelism int) {
	p.maxParallelism = maxParallelism
}

// lockedIsFull returns whether all workers are in use.
// Must be called with p.mu held.
func (p *Pool) lockedIsFull() bool {
	if p.maxParallelism < 0 {
		return false
	}
	return p.numRunning >= p.maxParallelism
}

// waitToStart blocks until a worker is available, then runs the task on it.
// With parallelism disabled the task runs inline.
func (p *Pool) waitToStart(task func()) {
	if p.maxParallelism == 0 {
		task()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.lockedIsFull() {
		p.cond.Wait()
	}
	p.numRunning++
	go func() {
		task()
		p.mu.Lock()
		p.numRunning--
		p.cond.Signal()
		p.mu.Unlock()
	}()
}

// ForEach runs task(i) for every i in [0, n), fanning the calls out over
// the pool, and waits for all of them. It returns the error of the lowest
// i that failed, or nil. Remaining tasks still run to completion after a
// failure; tasks must therefore tolerate being called after another task
// errored.
func (p *Pool) ForEach(n int, task func(i int) error) error {
	if n == 1 || p.maxParallelism == 0 {
		for i := 0; i < n; i++ {
			if err := task(i); err != nil {
				return err
			}
		}
		return nil
	}
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.waitToStart(func() {
			defer wg.Done()
			errs[i] = task(i)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
