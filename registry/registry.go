// File: registry/registry.go
// Package registry holds the process-wide default memory resource.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The default resource is the resource used by code paths that do not
// carry an explicit reference. It is initialized lazily to a built-in
// resource on first use, swapped atomically any number of times, and
// never observed nil or torn by concurrent readers. Setting nil
// restores the built-in default rather than unsetting the registry.
// The registry does not own allocations made through resources it has
// held: a resource's memory outlives its tenure as default.

package registry

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-devmem/api"
)

// holder wraps the interface value so the atomic pointer always swaps
// a whole, never-torn cell.
type holder struct {
	mr api.MemoryResource
}

// Registry mediates the process-wide default resource. The zero value
// is not usable; construct with New.
type Registry struct {
	builtinFn   func() api.MemoryResource
	builtinOnce sync.Once
	builtinMR   api.MemoryResource
	current     atomic.Pointer[holder]
}

// New creates a registry whose built-in default is produced by
// builtinFn. builtinFn is invoked at most once, on first use.
func New(builtinFn func() api.MemoryResource) *Registry {
	return &Registry{builtinFn: builtinFn}
}

func (r *Registry) builtin() api.MemoryResource {
	r.builtinOnce.Do(func() { r.builtinMR = r.builtinFn() })
	return r.builtinMR
}

// Get returns the current default resource. Never nil.
func (r *Registry) Get() api.MemoryResource {
	if h := r.current.Load(); h != nil {
		return h.mr
	}
	r.current.CompareAndSwap(nil, &holder{mr: r.builtin()})
	return r.current.Load().mr
}

// Set installs mr as the default and returns the previous default.
// Setting nil restores the built-in default.
func (r *Registry) Set(mr api.MemoryResource) api.MemoryResource {
	if mr == nil {
		mr = r.builtin()
	}
	prev := r.current.Swap(&holder{mr: mr})
	if prev == nil {
		// first use raced with the swap; the previous default was the
		// built-in
		return r.builtin()
	}
	return prev.mr
}
