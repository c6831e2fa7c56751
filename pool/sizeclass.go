// File: pool/sizeclass.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "math/bits"

// minClassBits puts the smallest size class at 256 bytes, matching the
// device allocation alignment.
const minClassBits = 8

// roundToClass rounds size up to its class size (next power of two, at
// least 1<<minClassBits).
func roundToClass(size int) int {
	if size <= 1<<minClassBits {
		return 1 << minClassBits
	}
	if size&(size-1) == 0 {
		return size
	}
	return 1 << bits.Len(uint(size))
}
