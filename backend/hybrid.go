// File: backend/hybrid.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SyncHybrid adapts a resource that is not stream-aware to the
// stream-ordered contract by synchronizing the stream around every
// operation. Correctness over throughput: after synchronization the
// upstream may treat every request as default-stream work.

package backend

import (
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
)

// SyncHybrid wraps upstream with stream synchronization.
type SyncHybrid struct {
	drv      driver.Driver
	upstream api.MemoryResource
}

// NewSyncHybrid creates a synchronized hybrid over upstream. drv
// provides the stream-synchronization primitive.
func NewSyncHybrid(drv driver.Driver, upstream api.MemoryResource) *SyncHybrid {
	return &SyncHybrid{drv: drv, upstream: upstream}
}

func (h *SyncHybrid) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	if !stream.IsDefault() {
		if err := h.drv.StreamSynchronize(stream); err != nil {
			return 0, translate(err)
		}
	}
	return h.upstream.Allocate(size, api.DefaultStream)
}

func (h *SyncHybrid) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if !stream.IsDefault() {
		if err := h.drv.StreamSynchronize(stream); err != nil {
			return translate(err)
		}
	}
	return h.upstream.Deallocate(ptr, size, api.DefaultStream)
}

// IsEqual: two hybrids are interchangeable when their upstreams are.
func (h *SyncHybrid) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*SyncHybrid)
	return ok && h.upstream.IsEqual(o.upstream)
}

// Upstream exposes the wrapped resource.
func (h *SyncHybrid) Upstream() api.MemoryResource { return h.upstream }

var _ api.MemoryResource = (*SyncHybrid)(nil)
