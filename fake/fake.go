// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-devmem/api"
)

// Resource is a trivial in-memory api.MemoryResource for tests. It
// hands out sequential fake addresses and records every call.
type Resource struct {
	mu        sync.Mutex
	next      uintptr
	live      map[api.DevicePtr]int
	Allocs    int
	Frees     int
	FailAlloc error // when set, Allocate returns this error
}

// NewResource creates an empty fake resource.
func NewResource() *Resource {
	return &Resource{next: 0x1000, live: make(map[api.DevicePtr]int)}
}

func (f *Resource) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAlloc != nil {
		return 0, f.FailAlloc
	}
	if size == 0 {
		return api.ZeroSizePtr, nil
	}
	ptr := api.DevicePtr(f.next)
	f.next += uintptr(size)
	f.live[ptr] = size
	f.Allocs++
	return ptr, nil
}

func (f *Resource) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		if ptr != api.ZeroSizePtr {
			return api.NewError(api.ErrCodeInvalidArgument, "fake: zero-size deallocate with non-sentinel pointer")
		}
		return nil
	}
	if got, ok := f.live[ptr]; !ok || got != size {
		return api.NewError(api.ErrCodeInvalidArgument, "fake: pair not outstanding")
	}
	delete(f.live, ptr)
	f.Frees++
	return nil
}

func (f *Resource) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Resource)
	return ok && o == f
}

// Outstanding reports the number of live fake allocations.
func (f *Resource) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

var _ api.MemoryResource = (*Resource)(nil)
