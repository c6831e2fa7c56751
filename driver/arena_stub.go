// File: driver/arena_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Managed placement fallback for non-Linux hosts: plain heap slices.
// The arena keeps the slice referenced so the address stays valid until
// release.

//go:build !linux

package driver

import (
	"unsafe"

	"github.com/momentics/hioload-devmem/api"
)

type arena struct {
	mem []byte
}

func mapArena(size int) (*arena, error) {
	return &arena{mem: make([]byte, size)}, nil
}

func (a *arena) base() api.DevicePtr {
	return api.DevicePtr(uintptr(unsafe.Pointer(&a.mem[0])))
}

func (a *arena) release() error {
	a.mem = nil
	return nil
}
