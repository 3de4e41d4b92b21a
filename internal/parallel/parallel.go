// Package parallel provides a small bounded worker-pool helper for
// setup-time fan-out work, such as allocating many independent pool
// buffers. It has no bearing on run()'s single-threaded scheduling model —
// every use site here is setup, never execution.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls For's parallelism.
type Config struct {
	Enabled      bool
	NumWorkers   int
	MinChunkSize int
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For calls f(i) for i in [0, n). Runs sequentially if parallelism is
// disabled or n falls below cfg.MinChunkSize — spawning goroutines for a
// handful of pool buffers would cost more than it saves.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
