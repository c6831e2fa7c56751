// File: facade/factory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// String-keyed backend factory: external harnesses instantiate a named
// backend and exercise the resource contract through it.

package facade

import (
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/backend"
	"github.com/momentics/hioload-devmem/driver"
	"github.com/momentics/hioload-devmem/pool"
)

// Backend names accepted by New.
const (
	BackendCUDA       = "CUDA"
	BackendManaged    = "Managed"
	BackendPool       = "Pool"
	BackendSyncHybrid = "SyncHybrid"
	BackendFixed      = "Fixed"
)

// BackendNames lists every name New accepts.
func BackendNames() []string {
	return []string{BackendCUDA, BackendManaged, BackendPool, BackendSyncHybrid, BackendFixed}
}

// New builds the named backend over drv. Pool-backed variants use the
// built-in growth policy.
func New(name string, drv driver.Driver) (api.MemoryResource, error) {
	switch name {
	case BackendCUDA:
		return backend.NewDevice(drv), nil
	case BackendManaged:
		return backend.NewManaged(drv), nil
	case BackendPool:
		return pool.New(backend.NewDevice(drv), drv, pool.DefaultConfig()), nil
	case BackendSyncHybrid:
		return backend.NewSyncHybrid(drv, backend.NewDevice(drv)), nil
	case BackendFixed:
		return backend.NewFixed(drv, 0), nil
	default:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown backend").
			WithContext("name", name)
	}
}
