// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Resource adaptors: wrappers layering accounting or event logging over
// any api.MemoryResource without changing its allocation semantics.
package adapters
