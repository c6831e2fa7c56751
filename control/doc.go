// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime observability and configuration for the allocator: a
// thread-safe metrics registry fed by the statistics adaptor and pool
// counters, and a dynamic config store with reload listeners used to
// propagate policy changes (growth factors, caps) at runtime.
package control
