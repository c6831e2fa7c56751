// File: adapters/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocation event log adaptor. Every allocate/free on the wrapped
// resource is recorded with address, stream, size, device occupancy and
// timing, and the whole log renders as CSV for offline analysis.

package adapters

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
)

// csvHeader is the fixed column layout of the rendered log.
const csvHeader = "Event Type,Device ID,Address,Stream,Size (bytes),Free Memory,Total Memory,Current Allocs,Start,End,Elapsed"

// Logging wraps a resource and records allocation events.
type Logging struct {
	upstream api.MemoryResource
	drv      driver.Driver // occupancy probe; optional
	id       string

	mu      sync.Mutex
	events  []api.Event
	current int // live allocation count
}

// NewLogging creates a logging adaptor over upstream. drv, when
// non-nil, is probed for free/total device memory on every event.
func NewLogging(upstream api.MemoryResource, drv driver.Driver) *Logging {
	return &Logging{
		upstream: upstream,
		drv:      drv,
		id:       uuid.NewString(),
	}
}

// ID returns the adaptor's resource identity used in the event log.
func (l *Logging) ID() string { return l.id }

func (l *Logging) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	start := time.Now()
	ptr, err := l.upstream.Allocate(size, stream)
	if err != nil {
		return 0, err
	}
	l.record(api.EventAllocate, ptr, size, stream, start, +1)
	return ptr, nil
}

func (l *Logging) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	start := time.Now()
	if err := l.upstream.Deallocate(ptr, size, stream); err != nil {
		return err
	}
	l.record(api.EventFree, ptr, size, stream, start, -1)
	return nil
}

// IsEqual: logging adaptors are interchangeable when their upstreams
// are.
func (l *Logging) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Logging)
	return ok && l.upstream.IsEqual(o.upstream)
}

// Upstream exposes the wrapped resource.
func (l *Logging) Upstream() api.MemoryResource { return l.upstream }

func (l *Logging) record(kind api.EventKind, ptr api.DevicePtr, size int, stream api.Stream, start time.Time, delta int) {
	var free, total int64
	if l.drv != nil {
		free, total, _ = l.drv.MemGetInfo()
	}
	l.mu.Lock()
	l.current += delta
	l.events = append(l.events, api.Event{
		Kind:          kind,
		Resource:      l.id,
		Ptr:           ptr,
		Stream:        stream,
		Size:          size,
		FreeMemory:    free,
		TotalMemory:   total,
		CurrentAllocs: l.current,
		Start:         start,
		End:           time.Now(),
	})
	l.mu.Unlock()
}

// Events returns a snapshot of the recorded events.
func (l *Logging) Events() []api.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.Event, len(l.events))
	copy(out, l.events)
	return out
}

// CSV renders the event log, one line per event under csvHeader.
func (l *Logging) CSV() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(csvHeader)
	sb.WriteByte('\n')
	for _, e := range l.events {
		fmt.Fprintf(&sb, "%s,0,0x%x,%d,%d,%d,%d,%d,%s,%s,%s\n",
			e.Kind, uintptr(e.Ptr), e.Stream, e.Size,
			e.FreeMemory, e.TotalMemory, e.CurrentAllocs,
			e.Start.Format(time.RFC3339Nano),
			e.End.Format(time.RFC3339Nano),
			e.End.Sub(e.Start))
	}
	return sb.String()
}

var _ api.MemoryResource = (*Logging)(nil)
