// File: driver/arena_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Managed placement on Linux: anonymous private mappings, so returned
// addresses point at real host-visible pages.

//go:build linux

package driver

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-devmem/api"
)

type arena struct {
	mem []byte
}

func mapArena(size int) (*arena, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	return &arena{mem: mem}, nil
}

func (a *arena) base() api.DevicePtr {
	return api.DevicePtr(uintptr(unsafe.Pointer(&a.mem[0])))
}

func (a *arena) release() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
