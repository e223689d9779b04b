package frames

import "sync"

type pendingRelease struct {
	fence   uint64
	release func()
}

// ReleaseQueue holds GPU resources until the fence value of the last work
// reading them has completed.
type ReleaseQueue struct {
	mu      sync.Mutex
	pending []pendingRelease
}

func NewReleaseQueue() *ReleaseQueue {
	return &ReleaseQueue{}
}

// Defer schedules release to run once the timeline reaches fence.
func (q *ReleaseQueue) Defer(fence uint64, release func()) {
	q.mu.Lock()
	q.pending = append(q.pending, pendingRelease{fence: fence, release: release})
	q.mu.Unlock()
}

// Collect runs every release whose fence is at or below completed and
// returns how many ran.
func (q *ReleaseQueue) Collect(completed uint64) int {
	q.mu.Lock()
	var ready []pendingRelease
	kept := q.pending[:0]
	for _, p := range q.pending {
		if p.fence <= completed {
			ready = append(ready, p)
		} else {
			kept = append(kept, p)
		}
	}
	q.pending = kept
	q.mu.Unlock()

	for _, p := range ready {
		p.release()
	}
	return len(ready)
}

// Drain runs every pending release. The caller must have flushed the GPU.
func (q *ReleaseQueue) Drain() int {
	q.mu.Lock()
	ready := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range ready {
		p.release()
	}
	return len(ready)
}

func (q *ReleaseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
