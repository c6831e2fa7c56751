// File: backend/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Direct pass-through resource over the driver's device allocator.
// Device allocations are synchronous with respect to the allocating
// stream, so the stream argument is an ordering hint only.

package backend

import (
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
)

// Device allocates directly from the driver's device placement.
type Device struct {
	drv driver.Driver
	trk *tracker
}

// NewDevice creates a direct device resource over drv.
func NewDevice(drv driver.Driver) *Device {
	return &Device{drv: drv, trk: newTracker()}
}

func (d *Device) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	if size < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "negative allocation size").
			WithContext("size", size)
	}
	if size == 0 {
		return api.ZeroSizePtr, nil
	}
	ptr, err := d.drv.MemAlloc(size)
	if err != nil {
		return 0, translate(err)
	}
	d.trk.add(ptr, size)
	return ptr, nil
}

func (d *Device) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if size == 0 {
		if ptr != api.ZeroSizePtr {
			return api.NewError(api.ErrCodeInvalidArgument, "zero-size deallocate with non-sentinel pointer")
		}
		return nil
	}
	if err := d.trk.remove(ptr, size); err != nil {
		return err
	}
	if err := d.drv.MemFree(ptr); err != nil {
		return translate(err)
	}
	return nil
}

// IsEqual reports structural equality: two direct device resources over
// the same driver are interchangeable.
func (d *Device) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Device)
	return ok && o.drv == d.drv
}

// Outstanding reports the number of live allocations. Accounting hook
// for adapters and tests.
func (d *Device) Outstanding() int { return d.trk.count() }

var _ api.MemoryResource = (*Device)(nil)
