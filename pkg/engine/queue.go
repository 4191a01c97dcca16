package engine

import (
	"errors"
	"sync"
)

// ErrQueueFull indicates the dispatch queue is at capacity; the caller of
// Start or Resume sees it directly and nothing is mutated.
var ErrQueueFull = errors.New("dispatch queue full")

// dispatchQueue is the bounded hand-off between the public operations and the
// worker pool. Capacity is reserved up front so a full queue rejects before
// any state is written, and a reservation guarantees the later send cannot
// block.
type dispatchQueue struct {
	mu       sync.Mutex
	reserved int
	capacity int
	jobs     chan string
}

func newDispatchQueue(capacity int) *dispatchQueue {
	return &dispatchQueue{
		capacity: capacity,
		jobs:     make(chan string, capacity),
	}
}

// reserve claims one slot. Returns false when the queue is full.
func (q *dispatchQueue) reserve() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.reserved >= q.capacity {
		return false
	}

	q.reserved++

	return true
}

// unreserve returns an unused slot claimed by reserve.
func (q *dispatchQueue) unreserve() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reserved--
}

// send dispatches an execution id into a previously reserved slot.
func (q *dispatchQueue) send(executionID string) {
	q.jobs <- executionID
}

// release frees the slot after a worker pulled the job.
func (q *dispatchQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reserved--
}
