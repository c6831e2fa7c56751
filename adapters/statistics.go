// File: adapters/statistics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Running-counter adaptor: allocation counts and outstanding/peak byte
// accounting over any resource, exportable into a metrics registry.

package adapters

import (
	"sync/atomic"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/control"
)

// Statistics wraps a resource with allocation accounting.
type Statistics struct {
	upstream api.MemoryResource

	allocs      atomic.Int64
	frees       atomic.Int64
	outstanding atomic.Int64
	peak        atomic.Int64
}

// NewStatistics creates a statistics adaptor over upstream.
func NewStatistics(upstream api.MemoryResource) *Statistics {
	return &Statistics{upstream: upstream}
}

func (s *Statistics) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	ptr, err := s.upstream.Allocate(size, stream)
	if err != nil {
		return 0, err
	}
	s.allocs.Add(1)
	out := s.outstanding.Add(int64(size))
	for {
		peak := s.peak.Load()
		if out <= peak || s.peak.CompareAndSwap(peak, out) {
			break
		}
	}
	return ptr, nil
}

func (s *Statistics) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if err := s.upstream.Deallocate(ptr, size, stream); err != nil {
		return err
	}
	s.frees.Add(1)
	s.outstanding.Add(int64(-size))
	return nil
}

// IsEqual: statistics adaptors are interchangeable when their upstreams
// are.
func (s *Statistics) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Statistics)
	return ok && s.upstream.IsEqual(o.upstream)
}

// Upstream exposes the wrapped resource.
func (s *Statistics) Upstream() api.MemoryResource { return s.upstream }

// Stats returns the current counters.
func (s *Statistics) Stats() api.ResourceStats {
	return api.ResourceStats{
		AllocationCount:   s.allocs.Load(),
		DeallocationCount: s.frees.Load(),
		BytesOutstanding:  s.outstanding.Load(),
		BytesPeak:         s.peak.Load(),
	}
}

// Export publishes the counters into a metrics registry under the
// given prefix.
func (s *Statistics) Export(mr *control.MetricsRegistry, prefix string) {
	st := s.Stats()
	mr.Set(prefix+".allocations", st.AllocationCount)
	mr.Set(prefix+".deallocations", st.DeallocationCount)
	mr.Set(prefix+".bytes_outstanding", st.BytesOutstanding)
	mr.Set(prefix+".bytes_peak", st.BytesPeak)
}

var _ api.MemoryResource = (*Statistics)(nil)
