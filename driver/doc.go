// Package driver
// Author: momentics <momentics@gmail.com>
//
// Device driver boundary of hioload-devmem.
// Declares the raw allocation and stream-synchronization primitives the
// allocator core consumes, together with an in-process simulated device
// used when no vendor driver binding is present. The driver reports its
// own error codes; backends translate them into the api taxonomy and
// never leak them to callers.
package driver
