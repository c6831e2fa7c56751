// File: driver/sim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SimDevice is the in-process simulated device. Device placement is
// pure bookkeeping over a reserved fake address range; managed
// placement maps real host memory so returned addresses are genuinely
// dereferenceable on the host side. Capacity accounting makes
// out-of-memory behavior reproducible in tests.

package driver

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/internal/log"
)

// simBase is the start of the fake device address range. It is far away
// from any host mapping and from api.ZeroSizePtr.
const simBase uintptr = 0x4000_0000_0000

// allocAlign is the alignment the simulated device hands out, matching
// common device allocator behavior.
const allocAlign = 256

// DefaultCapacity is used when a SimDevice is created with a
// non-positive capacity.
const DefaultCapacity = 1 << 30 // 1 GiB

type simAllocation struct {
	size    int
	managed bool
	arena   *arena // nil for device placement
}

// SimDevice implements Driver over in-process state.
type SimDevice struct {
	mu       sync.Mutex
	closed   bool
	capacity int64
	used     int64
	nextAddr uintptr
	allocs   map[api.DevicePtr]simAllocation

	streamSeq atomic.Uint64
	streams   map[api.Stream]struct{}

	// faultNext, when set, makes the next MemAlloc/MemAllocManaged fail
	// with ErrDeviceFault instead of allocating. Test hook.
	faultNext atomic.Bool

	logger interface {
		Debugf(format string, args ...any)
		Warnf(format string, args ...any)
	}
}

// NewSimDevice creates a simulated device with the given capacity in
// bytes. Non-positive capacity selects DefaultCapacity.
func NewSimDevice(capacity int64) *SimDevice {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SimDevice{
		capacity: capacity,
		nextAddr: simBase,
		allocs:   make(map[api.DevicePtr]simAllocation),
		streams:  make(map[api.Stream]struct{}),
		logger:   log.WithComponent("driver.sim"),
	}
}

// InjectFault makes the next allocation fail with ErrDeviceFault.
func (d *SimDevice) InjectFault() { d.faultNext.Store(true) }

func (d *SimDevice) MemAlloc(size int) (api.DevicePtr, error) {
	return d.alloc(size, false)
}

func (d *SimDevice) MemAllocManaged(size int) (api.DevicePtr, error) {
	return d.alloc(size, true)
}

func (d *SimDevice) alloc(size int, managed bool) (api.DevicePtr, error) {
	if size <= 0 {
		return 0, ErrInvalidValue
	}
	if d.faultNext.CompareAndSwap(true, false) {
		return 0, ErrDeviceFault
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrShutdown
	}
	rounded := int64(alignUp(size, allocAlign))
	if d.used+rounded > d.capacity {
		d.logger.Debugf("alloc %d bytes refused: %d of %d in use", size, d.used, d.capacity)
		return 0, ErrNoMemory
	}

	var ptr api.DevicePtr
	var ar *arena
	if managed {
		var err error
		ar, err = mapArena(int(rounded))
		if err != nil {
			return 0, ErrDeviceFault
		}
		ptr = ar.base()
	} else {
		ptr = api.DevicePtr(d.nextAddr)
		d.nextAddr += alignUp(size, allocAlign)
	}

	d.used += rounded
	d.allocs[ptr] = simAllocation{size: size, managed: managed, arena: ar}
	return ptr, nil
}

func (d *SimDevice) MemFree(ptr api.DevicePtr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrShutdown
	}
	a, ok := d.allocs[ptr]
	if !ok {
		return ErrInvalidValue
	}
	delete(d.allocs, ptr)
	d.used -= int64(alignUp(a.size, allocAlign))
	if a.arena != nil {
		if err := a.arena.release(); err != nil {
			return ErrDeviceFault
		}
	}
	return nil
}

func (d *SimDevice) MemGetInfo() (int64, int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, 0, ErrShutdown
	}
	return d.capacity - d.used, d.capacity, nil
}

func (d *SimDevice) StreamCreate() (api.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrShutdown
	}
	s := api.Stream(d.streamSeq.Add(1))
	d.streams[s] = struct{}{}
	return s, nil
}

func (d *SimDevice) StreamDestroy(s api.Stream) error {
	if s.IsDefault() {
		return ErrInvalidValue
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrShutdown
	}
	if _, ok := d.streams[s]; !ok {
		return ErrInvalidValue
	}
	delete(d.streams, s)
	return nil
}

// StreamSynchronize validates the handle. The simulated device executes
// work eagerly, so a valid stream is always complete.
func (d *SimDevice) StreamSynchronize(s api.Stream) error {
	if s.IsDefault() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrShutdown
	}
	if _, ok := d.streams[s]; !ok {
		return ErrInvalidValue
	}
	return nil
}

func (d *SimDevice) StreamQuery(s api.Stream) (bool, error) {
	if s.IsDefault() {
		return true, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrShutdown
	}
	if _, ok := d.streams[s]; !ok {
		return false, ErrInvalidValue
	}
	return true, nil
}

// Close releases every outstanding allocation and rejects further use.
func (d *SimDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if n := len(d.allocs); n > 0 {
		d.logger.Warnf("closing with %d outstanding allocations", n)
	}
	for ptr, a := range d.allocs {
		if a.arena != nil {
			_ = a.arena.release()
		}
		delete(d.allocs, ptr)
	}
	d.used = 0
	d.closed = true
	return nil
}

func alignUp(n, align int) uintptr {
	return uintptr((n + align - 1) &^ (align - 1))
}

var _ Driver = (*SimDevice)(nil)
