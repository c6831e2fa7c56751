// File: api/resource.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stream-ordered device memory resource contract.
//
// A MemoryResource hands out device memory scoped to an execution stream.
// Resources are long-lived objects, never value types; two resources are
// interchangeable only when IsEqual reports so.

package api

// DevicePtr is an opaque device address returned by a MemoryResource.
// The zero value is the null pointer and is never a valid live allocation.
type DevicePtr uintptr

// ZeroSizePtr is the sentinel returned for zero-byte allocations.
// It is distinguishable from the null pointer, carries no usable memory,
// and must be released with a matching zero-size Deallocate.
const ZeroSizePtr DevicePtr = ^DevicePtr(0)

// MemoryResource is the polymorphic allocation capability every backend
// implements. All methods must be safe under arbitrary concurrent
// invocation from multiple goroutines, each potentially using a
// different stream.
type MemoryResource interface {
	// Allocate returns at least size bytes of device memory usable once
	// stream reaches the allocation point in its submission order.
	// Fails with ErrOutOfMemory when the request cannot be satisfied;
	// a failed Allocate leaves the resource state and all previously
	// issued allocations intact.
	Allocate(size int, stream Stream) (DevicePtr, error)

	// Deallocate releases memory previously returned by Allocate on this
	// same resource with this same size. stream marks the point after
	// which the memory may be reused; reuse on a different stream
	// requires synchronization against the freeing stream first.
	// A pointer/size pair that is not outstanding on this resource is
	// rejected with ErrInvalidArgument.
	Deallocate(ptr DevicePtr, size int, stream Stream) error

	// IsEqual reports whether other is interchangeable with this
	// resource. It is reflexive. The default notion is identity;
	// wrappers may define structural equality.
	IsEqual(other MemoryResource) bool
}
