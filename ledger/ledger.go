// File: ledger/ledger.go
// Package ledger provides the lock-protected allocation hand-off queue.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-thread producer/consumer use of the allocator is a first-class
// scenario: one goroutine allocates while another deallocates the same
// handles, synchronized only through this structure. The ledger is a
// mutex-guarded FIFO of allocation records; the allocator itself never
// assumes thread affinity for any allocation.

package ledger

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-devmem/api"
)

// Ledger is a concurrent FIFO of outstanding allocations.
type Ledger struct {
	mu     sync.Mutex
	cond   *sync.Cond
	q      *queue.Queue
	closed bool
}

// New creates an empty ledger.
func New() *Ledger {
	l := &Ledger{q: queue.New()}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Put appends an allocation record.
func (l *Ledger) Put(a api.Allocation) {
	l.mu.Lock()
	l.q.Add(a)
	l.mu.Unlock()
	l.cond.Signal()
}

// Take removes and returns the oldest record without blocking.
func (l *Ledger) Take() (api.Allocation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.q.Length() == 0 {
		return api.Allocation{}, false
	}
	return l.q.Remove().(api.Allocation), true
}

// TakeWait blocks until a record is available or the ledger is closed.
// The second return is false only after Close with an empty queue.
func (l *Ledger) TakeWait() (api.Allocation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.q.Length() == 0 && !l.closed {
		l.cond.Wait()
	}
	if l.q.Length() == 0 {
		return api.Allocation{}, false
	}
	return l.q.Remove().(api.Allocation), true
}

// Len reports the number of queued records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Length()
}

// Close wakes all blocked consumers. Records still queued remain
// takeable; subsequent TakeWait calls drain them and then report false.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Drain removes and returns every queued record.
func (l *Ledger) Drain() []api.Allocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.Allocation, 0, l.q.Length())
	for l.q.Length() > 0 {
		out = append(out, l.q.Remove().(api.Allocation))
	}
	return out
}
