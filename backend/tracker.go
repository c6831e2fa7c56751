// File: backend/tracker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outstanding-allocation table shared by the backends. Deallocate must
// match a live pointer/size pair on the same resource; anything else is
// rejected loudly since silent acceptance masks memory corruption.

package backend

import (
	"sync"

	"github.com/momentics/hioload-devmem/api"
)

type tracker struct {
	mu    sync.Mutex
	live  map[api.DevicePtr]int
}

func newTracker() *tracker {
	return &tracker{live: make(map[api.DevicePtr]int)}
}

func (t *tracker) add(ptr api.DevicePtr, size int) {
	t.mu.Lock()
	t.live[ptr] = size
	t.mu.Unlock()
}

// remove validates and drops a live pair. The returned error is the
// api-level rejection for non-outstanding pointers or size mismatches.
func (t *tracker) remove(ptr api.DevicePtr, size int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	got, ok := t.live[ptr]
	if !ok {
		return api.NewError(api.ErrCodeInvalidArgument, "deallocate of pointer not outstanding on this resource").
			WithContext("ptr", ptr)
	}
	if got != size {
		return api.NewError(api.ErrCodeInvalidArgument, "deallocate size does not match allocation").
			WithContext("ptr", ptr).
			WithContext("allocated", got).
			WithContext("requested", size)
	}
	delete(t.live, ptr)
	return nil
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}
