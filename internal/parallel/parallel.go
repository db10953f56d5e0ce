// Package parallel provides chunked parallel loops for the host CPU kernels.
//
// Parallelism never escapes a call: Chunks returns only after every chunk has
// run, so callers stay synchronous.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines; 0 means runtime.NumCPU().
	MinChunkSize int  // Minimum elements per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096, // Elementwise kernels are cheap per element.
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

func (c Config) workers() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	return runtime.NumCPU()
}

// Chunks splits [0, n) into contiguous chunks and calls f(lo, hi) for each.
// Falls back to a single sequential call when parallelism is disabled or n
// is below two chunks' worth of work. A panic in any chunk is re-raised in
// the calling goroutine once every chunk has finished.
func Chunks(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	minChunk := max(cfg.MinChunkSize, 1)
	if !cfg.Enabled || cfg.workers() < 2 || n < 2*minChunk {
		f(0, n)
		return
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		panicked any
	)
	chunkSize := max((n+cfg.workers()-1)/cfg.workers(), minChunk)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicked = r })
				}
			}()
			f(s, e)
		}(start, end)
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
}

// For executes f(i) for i in [0, n) using Chunks.
func For(n int, cfg Config, f func(i int)) {
	Chunks(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}
