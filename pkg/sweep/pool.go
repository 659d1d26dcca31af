package sweep

import (
	"context"
	"sync"
)

// forEach runs fn(i) for every index over a bounded worker pool. Each task
// writes only to its own index in whatever result slices the caller set up,
// so no locking is needed. The pool size is fixed regardless of n; a sweep
// over a hundred-thousand-file folder holds the same number of file handles
// as one over ten.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
}
