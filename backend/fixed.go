// File: backend/fixed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-block-size resource: every allocation is served from blocks of
// one size, recycled through a lock-free MPMC freelist so allocate and
// deallocate from different goroutines never contend on a lock in the
// reuse path.

package backend

import (
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
	"github.com/momentics/hioload-devmem/internal/concurrency"
)

// DefaultFixedBlockSize is used when no block size is configured.
const DefaultFixedBlockSize = 1 << 20 // 1 MiB

const defaultFreelistCapacity = 4096

// Fixed serves requests up to BlockSize bytes from recycled
// fixed-size blocks.
type Fixed struct {
	drv       driver.Driver
	blockSize int
	freelist  *concurrency.LockFreeQueue[api.DevicePtr]
	trk       *tracker
}

// NewFixed creates a fixed-size resource. blockSize <= 0 selects
// DefaultFixedBlockSize.
func NewFixed(drv driver.Driver, blockSize int) *Fixed {
	if blockSize <= 0 {
		blockSize = DefaultFixedBlockSize
	}
	return &Fixed{
		drv:       drv,
		blockSize: blockSize,
		freelist:  concurrency.NewLockFreeQueue[api.DevicePtr](defaultFreelistCapacity),
		trk:       newTracker(),
	}
}

// BlockSize reports the fixed block size.
func (f *Fixed) BlockSize() int { return f.blockSize }

func (f *Fixed) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	if size < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "negative allocation size").
			WithContext("size", size)
	}
	if size == 0 {
		return api.ZeroSizePtr, nil
	}
	if size > f.blockSize {
		return 0, api.NewError(api.ErrCodeOutOfMemory, "request exceeds fixed block size").
			WithContext("size", size).
			WithContext("block_size", f.blockSize)
	}

	if ptr, ok := f.freelist.Dequeue(); ok {
		f.trk.add(ptr, size)
		return ptr, nil
	}

	ptr, err := f.drv.MemAlloc(f.blockSize)
	if err != nil {
		return 0, translate(err)
	}
	f.trk.add(ptr, size)
	return ptr, nil
}

func (f *Fixed) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if size == 0 {
		if ptr != api.ZeroSizePtr {
			return api.NewError(api.ErrCodeInvalidArgument, "zero-size deallocate with non-sentinel pointer")
		}
		return nil
	}
	if err := f.trk.remove(ptr, size); err != nil {
		return err
	}
	if f.freelist.Enqueue(ptr) {
		return nil
	}
	// freelist full, return the block upstream
	if err := f.drv.MemFree(ptr); err != nil {
		return translate(err)
	}
	return nil
}

// IsEqual: fixed resources over the same driver with the same block
// size are interchangeable.
func (f *Fixed) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Fixed)
	return ok && o.drv == f.drv && o.blockSize == f.blockSize
}

// Close drains the freelist back to the driver. Outstanding allocations
// at close are a programmer error; their blocks are leaked rather than
// reclaimed out from under live pointers.
func (f *Fixed) Close() error {
	var firstErr error
	for {
		ptr, ok := f.freelist.Dequeue()
		if !ok {
			break
		}
		if err := f.drv.MemFree(ptr); err != nil && firstErr == nil {
			firstErr = translate(err)
		}
	}
	return firstErr
}

var _ api.MemoryResource = (*Fixed)(nil)
