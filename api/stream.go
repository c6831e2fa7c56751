// File: api/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Stream is an opaque ordering token. Operations submitted on the same
// stream are ordered by submission; ordering across streams requires
// explicit synchronization through the driver.
//
// A Stream is an ordering hint, never a thread identifier: two
// goroutines may legitimately pass the same stream value, and an
// allocation made on one goroutine may be released on another.
type Stream uint64

// DefaultStream is the implicit stream. Allocations on it are usable
// immediately.
const DefaultStream Stream = 0

// IsDefault reports whether s is the implicit stream.
func (s Stream) IsDefault() bool { return s == DefaultStream }
