// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package parallel provides a deterministic chunked parallel-for.
//
// The frame graph compiler scans hazard pairs across many resources;
// the scan itself is parallel but results are merged in index order so
// compilation output never depends on goroutine interleaving.
package parallel

import (
	"runtime"
	"sync"
)

// minChunk is the smallest slice of work handed to one goroutine.
// Below this, goroutine overhead outweighs the scan cost.
const minChunk = 64

// For runs fn(i) for every i in [0, n). When n is large enough it
// splits the range into contiguous chunks across GOMAXPROCS workers;
// fn must not depend on any particular execution order and must write
// only to its own index's result slot.
func For(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if n < minChunk*2 || workers < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
