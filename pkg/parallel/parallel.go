// Package parallel provides a bounded fan-out helper for embarrassingly
// parallel per-column work. Callers pass fn a slot index and write the
// result into caller-owned storage, so output stays deterministic no
// matter how the scheduler interleaves workers.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ForEach runs fn for every index in [0, n) on at most workers
// goroutines. workers <= 0 means GOMAXPROCS. The first error stops new
// work from being picked up and is returned after all in-flight calls
// finish.
func ForEach(n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		failed   atomic.Bool
	)
	indexes := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if failed.Load() {
					continue
				}
				if err := fn(i); err != nil {
					once.Do(func() {
						firstErr = err
						failed.Store(true)
					})
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return firstErr
}
