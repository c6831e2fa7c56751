// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and DTOs.

package api

import "time"

// Allocation records one live allocation: the triple handed between
// producer and consumer goroutines. Every live Allocation is produced by
// exactly one Allocate and released by exactly one Deallocate on the
// same resource with the same size.
type Allocation struct {
	Ptr    DevicePtr
	Size   int
	Stream Stream
}

// ResourceStats aggregates allocation accounting for a resource.
type ResourceStats struct {
	AllocationCount   int64
	DeallocationCount int64
	BytesOutstanding  int64
	BytesPeak         int64
}

// EventKind enumerates allocation-log event types.
type EventKind int

const (
	EventAllocate EventKind = iota
	EventFree
)

func (k EventKind) String() string {
	switch k {
	case EventAllocate:
		return "allocate"
	case EventFree:
		return "free"
	default:
		return "unknown"
	}
}

// Event is one entry of the allocation event log.
type Event struct {
	Kind          EventKind
	Resource      string // resource id assigned by the logging adaptor
	Ptr           DevicePtr
	Stream        Stream
	Size          int
	FreeMemory    int64
	TotalMemory   int64
	CurrentAllocs int // live allocations after this event
	Start         time.Time
	End           time.Time
}
