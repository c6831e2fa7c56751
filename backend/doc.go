// Package backend
// Author: momentics <momentics@gmail.com>
//
// Concrete memory resources over the driver boundary: direct device
// placement, managed/unified placement, a fixed-block-size resource
// with a lock-free freelist, and a synchronized hybrid that adapts a
// non-stream-aware resource to stream-ordered use. Any backend can be
// substituted for another with no caller-visible difference beyond
// placement and performance.
package backend
