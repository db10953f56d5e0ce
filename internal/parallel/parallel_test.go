package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	var counter int64
	n := 1000

	For(n, cfg, func(_ int) {
		atomic.AddInt64(&counter, 1)
	})

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestChunksCoverRangeExactlyOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}
	n := 257
	hits := make([]int32, n)

	Chunks(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		if h != 1 {
			t.Errorf("index %d visited %d times", i, h)
		}
	}
}

func TestChunks_Sequential(t *testing.T) {
	calls := 0
	Chunks(100, Sequential(), func(lo, hi int) {
		calls++
		if lo != 0 || hi != 100 {
			t.Errorf("Expected single chunk [0,100), got [%d,%d)", lo, hi)
		}
	})
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestChunks_SmallInputStaysSequential(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}
	calls := 0
	Chunks(100, cfg, func(_, _ int) {
		calls++
	})
	if calls != 1 {
		t.Errorf("Expected 1 call for n below two chunks, got %d", calls)
	}
}

func TestChunks_Empty(t *testing.T) {
	Chunks(0, DefaultConfig(), func(_, _ int) {
		t.Error("f must not be called for n == 0")
	})
}

func TestChunksRepanicsInCaller(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected the worker panic to reach the caller")
		}
		if r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()

	Chunks(100, cfg, func(lo, hi int) {
		if lo == 0 {
			panic("boom")
		}
	})
}
