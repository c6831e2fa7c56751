// File: backend/managed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unified/managed placement: identical contract to Device with
// different physical placement. Managed addresses are host-visible.

package backend

import (
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
)

// Managed allocates unified memory from the driver.
type Managed struct {
	drv driver.Driver
	trk *tracker
}

// NewManaged creates a managed-memory resource over drv.
func NewManaged(drv driver.Driver) *Managed {
	return &Managed{drv: drv, trk: newTracker()}
}

func (m *Managed) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	if size < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "negative allocation size").
			WithContext("size", size)
	}
	if size == 0 {
		return api.ZeroSizePtr, nil
	}
	ptr, err := m.drv.MemAllocManaged(size)
	if err != nil {
		return 0, translate(err)
	}
	m.trk.add(ptr, size)
	return ptr, nil
}

func (m *Managed) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if size == 0 {
		if ptr != api.ZeroSizePtr {
			return api.NewError(api.ErrCodeInvalidArgument, "zero-size deallocate with non-sentinel pointer")
		}
		return nil
	}
	if err := m.trk.remove(ptr, size); err != nil {
		return err
	}
	if err := m.drv.MemFree(ptr); err != nil {
		return translate(err)
	}
	return nil
}

// IsEqual: two managed resources over the same driver are
// interchangeable.
func (m *Managed) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Managed)
	return ok && o.drv == m.drv
}

// Outstanding reports the number of live allocations.
func (m *Managed) Outstanding() int { return m.trk.count() }

var _ api.MemoryResource = (*Managed)(nil)
