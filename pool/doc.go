// Package pool
// Author: momentics <momentics@gmail.com>
//
// Caching/coalescing allocator layered over an upstream memory
// resource. Freed sub-allocations land in per-size-class freelists and
// are recycled without touching the upstream; adjacent free slices are
// merged to fight fragmentation, and upstream out-of-memory is answered
// with a coalesce-and-retry pass before the failure is surfaced.
// See resource.go for the allocation paths, block.go for span
// bookkeeping, sizeclass.go for class rounding.
package pool
