// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime settings store. The facade publishes the stack's effective
// policy here (log level, pool growth parameters) and applies supported
// keys live when callers update them.

package control

import (
	"sync"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and
// reload listeners. Listeners receive the snapshot the update produced.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// Get returns a single setting.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetSnapshot returns a copy of all settings.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshotLocked()
}

// SetConfig merges new values and dispatches the resulting snapshot to
// every reload listener.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	snap := cs.snapshotLocked()
	for _, fn := range cs.listeners {
		go fn(snap)
	}
}

// OnReload registers a listener invoked after every SetConfig.
func (cs *ConfigStore) OnReload(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func (cs *ConfigStore) snapshotLocked() map[string]any {
	snap := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		snap[k] = v
	}
	return snap
}
