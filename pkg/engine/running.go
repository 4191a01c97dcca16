package engine

import (
	"sync"
	"time"
)

// runningSet tracks non-terminal executions owned by this process together
// with their deadlines. It is an optimization for the maintenance sweep;
// Resume and Cancel always fall back to the store when an entry is absent.
type runningSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func newRunningSet() *runningSet {
	return &runningSet{entries: make(map[string]time.Time)}
}

func (r *runningSet) Add(executionID string, timeoutAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[executionID] = timeoutAt
}

func (r *runningSet) Remove(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, executionID)
}

func (r *runningSet) Contains(executionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[executionID]

	return ok
}

func (r *runningSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Snapshot copies the current entries so the sweep can iterate without
// holding the lock.
func (r *runningSet) Snapshot() map[string]time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]time.Time, len(r.entries))
	for id, timeoutAt := range r.entries {
		snapshot[id] = timeoutAt
	}

	return snapshot
}
