// File: facade/devmem.go
// Unified facade layer for hioload-devmem.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Aggregates the allocator stack behind a single entry point:
// Initialize builds the driver, the base resource, the optional pool
// and logging layers, and installs the result as the process-wide
// default; Finalize tears the stack down. The mode flags mirror the
// managed/pool matrix callers select between.

package facade

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-devmem/adapters"
	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/backend"
	"github.com/momentics/hioload-devmem/control"
	"github.com/momentics/hioload-devmem/driver"
	"github.com/momentics/hioload-devmem/internal/log"
	"github.com/momentics/hioload-devmem/pool"
	"github.com/momentics/hioload-devmem/registry"
)

// Options selects the allocator stack built by Initialize.
type Options struct {
	// Driver supplies the device primitives. Nil builds a simulated
	// device with DeviceCapacity bytes.
	Driver driver.Driver

	// DeviceCapacity sizes the simulated device when Driver is nil.
	// Non-positive selects the driver default.
	DeviceCapacity int64

	// ManagedMemory places allocations in unified memory.
	ManagedMemory bool

	// PoolAllocator layers the caching pool over the base resource.
	PoolAllocator bool

	// Pool overrides the pool growth policy; zero value means the
	// policy from DEVMEM_POOL_* environment, then built-in defaults.
	Pool pool.Config

	// EnableLogging layers the CSV allocation event log on top.
	EnableLogging bool
}

type state struct {
	opts      Options
	drv       driver.Driver
	ownedDrv  bool
	pool      *pool.Resource
	logging   *adapters.Logging
	resource  api.MemoryResource
	registry  *registry.Registry
	conf      *control.ConfigStore
}

var (
	mu  sync.Mutex
	cur *state
)

// Initialize builds the allocator stack. Calling it while initialized
// finalizes the previous stack first, matching re-initialization with
// new mode flags.
func Initialize(opts Options) error {
	mu.Lock()
	defer mu.Unlock()
	if cur != nil {
		if err := finalizeLocked(); err != nil {
			return err
		}
	}

	s := &state{opts: opts}
	s.drv = opts.Driver
	if s.drv == nil {
		s.drv = driver.NewSimDevice(opts.DeviceCapacity)
		s.ownedDrv = true
	}

	var base api.MemoryResource
	if opts.ManagedMemory {
		base = backend.NewManaged(s.drv)
	} else {
		base = backend.NewDevice(s.drv)
	}

	settings := map[string]any{
		"log_level": log.Get().GetLevel().String(),
	}

	s.resource = base
	if opts.PoolAllocator {
		cfg := opts.Pool
		if cfg == (pool.Config{}) {
			var err error
			cfg, err = pool.ConfigFromEnv()
			if err != nil {
				log.WithComponent("facade").Warnf("pool config from env: %v; using defaults", err)
			}
		}
		s.pool = pool.New(base, s.drv, cfg)
		s.resource = s.pool
		settings["pool.initial_size"] = cfg.InitialSize
		settings["pool.growth_factor"] = cfg.GrowthFactor
		settings["pool.max_size"] = cfg.MaxSize
	}
	if opts.EnableLogging {
		s.logging = adapters.NewLogging(s.resource, s.drv)
		s.resource = s.logging
	}

	s.conf = control.NewConfigStore()
	s.conf.SetConfig(settings)
	s.conf.OnReload(applyRuntimeConfig)

	res := s.resource
	s.registry = registry.New(func() api.MemoryResource { return res })
	cur = s
	return nil
}

// applyRuntimeConfig applies the settings a store update supports
// changing live. Currently that is the log level; pool policy keys are
// published for inspection and bind at Initialize.
func applyRuntimeConfig(snap map[string]any) {
	lvl, ok := snap["log_level"].(string)
	if !ok {
		return
	}
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		log.WithComponent("facade").Warnf("config reload: bad log_level %q: %v", lvl, err)
		return
	}
	log.Get().SetLevel(parsed)
}

// IsInitialized reports whether a stack is live.
func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return cur != nil
}

// Finalize tears the stack down. Safe to call when not initialized.
func Finalize() error {
	mu.Lock()
	defer mu.Unlock()
	return finalizeLocked()
}

func finalizeLocked() error {
	if cur == nil {
		return nil
	}
	var err error
	if cur.pool != nil {
		err = cur.pool.Close()
	}
	if cur.ownedDrv {
		if cerr := cur.drv.Close(); err == nil {
			err = cerr
		}
	}
	cur = nil
	return err
}

// Default returns the process-wide default resource. It requires an
// initialized stack.
func Default() (api.MemoryResource, error) {
	mu.Lock()
	defer mu.Unlock()
	if cur == nil {
		return nil, api.NewError(api.ErrCodeInternal, "devmem is not initialized")
	}
	return cur.registry.Get(), nil
}

// SetDefault swaps the process-wide default resource, returning the
// previous one. Nil restores the resource built by Initialize.
func SetDefault(mr api.MemoryResource) (api.MemoryResource, error) {
	mu.Lock()
	defer mu.Unlock()
	if cur == nil {
		return nil, api.NewError(api.ErrCodeInternal, "devmem is not initialized")
	}
	return cur.registry.Set(mr), nil
}

// Registry exposes the live default-resource registry for callers that
// thread it explicitly.
func Registry() (*registry.Registry, error) {
	mu.Lock()
	defer mu.Unlock()
	if cur == nil {
		return nil, api.NewError(api.ErrCodeInternal, "devmem is not initialized")
	}
	return cur.registry, nil
}

// Config exposes the live settings store. Initialize seeds it with the
// stack's effective pool policy and log level; updating "log_level"
// through SetConfig adjusts logger verbosity at runtime.
func Config() (*control.ConfigStore, error) {
	mu.Lock()
	defer mu.Unlock()
	if cur == nil {
		return nil, api.NewError(api.ErrCodeInternal, "devmem is not initialized")
	}
	return cur.conf, nil
}

// CSVLog renders the allocation event log. Requires EnableLogging.
func CSVLog() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if cur == nil || cur.logging == nil {
		return "", api.NewError(api.ErrCodeInternal, "allocation logging is not enabled")
	}
	return cur.logging.CSV(), nil
}
