// File: driver/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw device allocation and stream primitives. Everything here is
// fallible; the allocator core treats every call as one that may fail
// and maps failures onto its own error taxonomy.

package driver

import (
	"errors"

	"github.com/momentics/hioload-devmem/api"
)

// Driver-level error codes. These are deliberately distinct from the
// api sentinels: backends own the translation.
var (
	ErrNoMemory     = errors.New("driver: allocation failed, no memory")
	ErrInvalidValue = errors.New("driver: invalid value")
	ErrDeviceFault  = errors.New("driver: device fault")
	ErrShutdown     = errors.New("driver: driver is shut down")
)

// Driver is the vendor allocation/synchronization primitive set the
// allocator core is built over. Implementations must be safe for
// concurrent use.
type Driver interface {
	// MemAlloc reserves size bytes of device memory.
	MemAlloc(size int) (api.DevicePtr, error)

	// MemAllocManaged reserves size bytes of unified memory visible to
	// both host and device.
	MemAllocManaged(size int) (api.DevicePtr, error)

	// MemFree releases memory obtained from MemAlloc or MemAllocManaged.
	MemFree(ptr api.DevicePtr) error

	// MemGetInfo reports free and total device memory in bytes.
	MemGetInfo() (free, total int64, err error)

	// StreamCreate returns a new execution stream handle.
	StreamCreate() (api.Stream, error)

	// StreamDestroy releases a stream handle. Destroying the default
	// stream is an error.
	StreamDestroy(s api.Stream) error

	// StreamSynchronize blocks until all work submitted to s has
	// completed. The default stream is always synchronized.
	StreamSynchronize(s api.Stream) error

	// StreamQuery reports whether s exists and has completed all
	// submitted work.
	StreamQuery(s api.Stream) (bool, error)

	// Close shuts the driver down. Outstanding allocations are released.
	Close() error
}
