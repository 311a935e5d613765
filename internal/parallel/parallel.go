// Package parallel fans out batch-inversion- and MSM-shaped work across CPU
// cores, the same task-count heuristic backend/fflonk/bn254/prove.go uses
// (calculateNbTasks) wired to an errgroup instead of a bespoke worker pool.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// reservedCPUs leaves this many cores free for the caller's own goroutines,
// mirroring calculateNbTasks(n int) in backend/fflonk/bn254/prove.go.
const reservedCPUs = 1

func taskCount(n int) int {
	avail := runtime.NumCPU() - reservedCPUs
	if avail < 1 {
		avail = 1
	}
	tasks := 1 + avail/n
	if tasks < 1 {
		tasks = 1
	}
	return tasks
}

// Split partitions [0, total) into contiguous chunks and runs fn over each
// chunk concurrently, propagating the first error encountered.
func Split(total int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	n := taskCount(total)
	if n > total {
		n = total
	}
	chunk := (total + n - 1) / n

	g, _ := errgroup.WithContext(context.Background())
	for start := 0; start < total; start += chunk {
		start := start
		end := start + chunk
		if end > total {
			end = total
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
