package framegraph

import (
	"sync"
	"sync/atomic"
)

// Epoch numbers GPU submissions. Epoch N is complete once the fence
// signaled by submission N has been observed on the CPU. Resources
// used by a submission may only be destroyed or reused after its epoch
// completes.
type Epoch uint64

// epochs tracks the current and completed epochs and a queue of
// deferred destructions gated on completion.
type epochs struct {
	current   atomic.Uint64
	completed atomic.Uint64

	mu      sync.Mutex
	pending []retireEntry
}

type retireEntry struct {
	epoch Epoch
	fn    func()
}

// next advances and returns the epoch for a new submission.
func (e *epochs) next() Epoch {
	return Epoch(e.current.Add(1))
}

// completedEpoch returns the highest epoch whose fence was observed.
func (e *epochs) completedEpoch() Epoch {
	return Epoch(e.completed.Load())
}

// retire queues fn to run once epoch completes. If the epoch has
// already completed, fn runs immediately.
func (e *epochs) retire(epoch Epoch, fn func()) {
	if epoch <= e.completedEpoch() {
		fn()
		return
	}
	e.mu.Lock()
	e.pending = append(e.pending, retireEntry{epoch: epoch, fn: fn})
	e.mu.Unlock()
}

// complete marks epoch (and everything before it) finished and runs
// the destructions it unblocks. Completion never moves backwards.
func (e *epochs) complete(epoch Epoch) {
	for {
		old := e.completed.Load()
		if uint64(epoch) <= old {
			return
		}
		if e.completed.CompareAndSwap(old, uint64(epoch)) {
			break
		}
	}

	e.mu.Lock()
	var ready []func()
	kept := e.pending[:0]
	for _, entry := range e.pending {
		if entry.epoch <= epoch {
			ready = append(ready, entry.fn)
		} else {
			kept = append(kept, entry)
		}
	}
	e.pending = kept
	e.mu.Unlock()

	// Run outside the lock; destructors may retire more work.
	for _, fn := range ready {
		fn()
	}
}

// drain runs every pending destruction regardless of epoch. Only valid
// after the device is idle.
func (e *epochs) drain() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, entry := range pending {
		entry.fn()
	}
	e.complete(Epoch(e.current.Load()))
}
