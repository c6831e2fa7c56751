// File: pool/resource.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The pool resource. Sits between callers and an upstream resource,
// amortizing upstream allocation cost by recycling freed memory.
//
// Locking discipline: the pool-level RWMutex guards only the block
// table and growth state; every block carries its own lock for its
// free-fragment list, and the outstanding-allocation table has a
// separate lock. There is no single allocator lock on the reuse path.
// Lock order is always pool mutex before block mutex, never nested the
// other way.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
	"github.com/momentics/hioload-devmem/internal/log"
)

// growAttempts bounds the allocate retry ladder so a request can never
// spin indefinitely against concurrent takers.
const growAttempts = 8

type allocEntry struct {
	req     int
	rounded int
	blk     *block
}

// Stats aggregates pool accounting counters.
type Stats struct {
	Hits       int64 // requests served from recycled fragments
	Misses     int64 // requests that forced upstream growth
	Growths    int64 // upstream blocks requested
	Reclaims   int64 // fully-free blocks returned upstream
	BlocksHeld int64
	BytesHeld  int64
}

// Resource is a caching/coalescing allocator over an upstream resource.
type Resource struct {
	upstream api.MemoryResource
	drv      driver.Driver // stream-synchronization primitive; nil disables cross-stream sync
	cfg      Config

	mu        sync.RWMutex
	blocks    []*block
	heldBytes int
	nextGrow  int
	closed    bool

	trkMu       sync.Mutex
	outstanding map[api.DevicePtr]allocEntry

	hits     atomic.Int64
	misses   atomic.Int64
	growths  atomic.Int64
	reclaims atomic.Int64
}

// New creates a pool over upstream with the given growth policy. drv
// supplies stream synchronization for cross-stream fragment reuse; a
// nil drv means callers synchronize streams externally.
func New(upstream api.MemoryResource, drv driver.Driver, cfg Config) *Resource {
	cfg = cfg.sanitized()
	return &Resource{
		upstream:    upstream,
		drv:         drv,
		cfg:         cfg,
		nextGrow:    cfg.InitialSize,
		outstanding: make(map[api.DevicePtr]allocEntry),
	}
}

func (p *Resource) Allocate(size int, stream api.Stream) (api.DevicePtr, error) {
	if size < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "negative allocation size").
			WithContext("size", size)
	}
	if size == 0 {
		return api.ZeroSizePtr, nil
	}
	rounded := roundToClass(size)

	var growErr error
	for attempt := 0; attempt < growAttempts; attempt++ {
		ptr, blk, err := p.fromBlocks(rounded, stream)
		if err != nil {
			return 0, err
		}
		if blk != nil {
			if attempt == 0 {
				p.hits.Add(1)
			}
			p.record(ptr, size, rounded, blk)
			return ptr, nil
		}
		if attempt == 0 {
			p.misses.Add(1)
		}

		growErr = p.grow(rounded, stream)
		if growErr == nil {
			continue
		}

		// Upstream growth failed. Resolve the merges insertFree had to
		// defer across streams and retry reuse, then hand fully-free
		// spans back upstream to make room for one more growth attempt.
		p.coalesceDeferred()
		ptr, blk, err = p.fromBlocks(rounded, stream)
		if err != nil {
			return 0, err
		}
		if blk != nil {
			p.record(ptr, size, rounded, blk)
			return ptr, nil
		}
		p.reclaim(false)
		if growErr2 := p.grow(rounded, stream); growErr2 == nil {
			continue
		}
		return 0, growErr
	}
	return 0, api.NewError(api.ErrCodeOutOfMemory, "pool could not satisfy request").
		WithContext("size", size)
}

func (p *Resource) Deallocate(ptr api.DevicePtr, size int, stream api.Stream) error {
	if size == 0 {
		if ptr != api.ZeroSizePtr {
			return api.NewError(api.ErrCodeInvalidArgument, "zero-size deallocate with non-sentinel pointer")
		}
		return nil
	}

	p.trkMu.Lock()
	e, ok := p.outstanding[ptr]
	if !ok {
		p.trkMu.Unlock()
		return api.NewError(api.ErrCodeInvalidArgument, "deallocate of pointer not outstanding on this pool").
			WithContext("ptr", ptr)
	}
	if e.req != size {
		p.trkMu.Unlock()
		return api.NewError(api.ErrCodeInvalidArgument, "deallocate size does not match allocation").
			WithContext("allocated", e.req).
			WithContext("requested", size)
	}
	delete(p.outstanding, ptr)
	p.trkMu.Unlock()

	e.blk.insertFree(int(ptr-e.blk.base), e.rounded, stream)
	return nil
}

// IsEqual is identity for pools: every pool owns its blocks
// exclusively, so no two pool instances are interchangeable.
func (p *Resource) IsEqual(other api.MemoryResource) bool {
	o, ok := other.(*Resource)
	return ok && o == p
}

// fromBlocks tries to serve rounded bytes from the existing blocks.
// A nil block return means no fragment fits.
func (p *Resource) fromBlocks(rounded int, stream api.Stream) (api.DevicePtr, *block, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return 0, nil, api.NewError(api.ErrCodeClosed, "pool is closed")
	}
	blocks := p.blocks
	p.mu.RUnlock()

	for _, blk := range blocks {
		offset, freedOn, ok := blk.take(rounded)
		if !ok {
			continue
		}
		// A fragment freed on another stream may still have pending
		// work; synchronize before reusing it there.
		if freedOn != stream && !freedOn.IsDefault() {
			if err := p.syncStream(freedOn); err != nil {
				blk.insertFree(offset, rounded, freedOn)
				return 0, nil, err
			}
		}
		return blk.base + api.DevicePtr(offset), blk, nil
	}
	return 0, nil, nil
}

// coalesceDeferred synchronizes every stream the blocks' fragments were
// freed on so that adjacent fragments split across streams can merge.
// Best effort: a block whose streams fail to synchronize keeps its
// fragments split and is retried on the next pressure cycle.
func (p *Resource) coalesceDeferred() {
	p.mu.RLock()
	blocks := p.blocks
	p.mu.RUnlock()

	for _, blk := range blocks {
		if err := blk.coalesceStreams(p.syncStream); err != nil {
			log.WithComponent("pool").Warnf("stream synchronize while coalescing: %v", err)
		}
	}
}

// grow requests a new span from upstream, geometric policy capped by
// MaxSize. Growth is serialized under the pool mutex.
func (p *Resource) grow(rounded int, stream api.Stream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.NewError(api.ErrCodeClosed, "pool is closed")
	}

	blockSize := p.nextGrow
	if blockSize < rounded {
		blockSize = rounded
	}
	if p.cfg.MaxSize > 0 {
		room := p.cfg.MaxSize - p.heldBytes
		if room < rounded {
			return api.NewError(api.ErrCodeOutOfMemory, "pool reached configured maximum size").
				WithContext("max_size", p.cfg.MaxSize).
				WithContext("held", p.heldBytes)
		}
		if blockSize > room {
			blockSize = room
		}
	}

	base, err := p.upstream.Allocate(blockSize, stream)
	if err != nil {
		return err
	}
	p.blocks = append(p.blocks, newBlock(base, blockSize, stream))
	p.heldBytes += blockSize
	p.nextGrow = int(float64(blockSize) * p.cfg.GrowthFactor)
	p.growths.Add(1)
	return nil
}

// reclaim returns fully-free blocks to the upstream resource. With
// force set, blocks that still contain live allocations are released
// too (only valid during Close after the programmer-error check).
func (p *Resource) reclaim(force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	kept := p.blocks[:0]
	for _, blk := range p.blocks {
		if force {
			blk.siphon()
		} else if !blk.siphonIfFree() {
			kept = append(kept, blk)
			continue
		}
		if err := p.upstream.Deallocate(blk.base, blk.size, blk.stream); err != nil {
			result = multierror.Append(result, err)
			kept = append(kept, blk)
			continue
		}
		p.heldBytes -= blk.size
		p.reclaims.Add(1)
	}
	p.blocks = kept
	return result
}

// Close releases all retained upstream blocks. Closing with live
// allocations outstanding is a programmer error: the pool logs loudly
// and leaks the affected blocks rather than reclaiming memory out from
// under live pointers.
func (p *Resource) Close() error {
	p.trkMu.Lock()
	live := len(p.outstanding)
	p.trkMu.Unlock()

	if live > 0 {
		log.WithComponent("pool").Errorf("closing pool with %d outstanding allocations; leaking their blocks", live)
	}

	err := p.reclaim(live == 0)

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return err
}

// Stats reports the pool's accounting counters.
func (p *Resource) Stats() Stats {
	p.mu.RLock()
	blocks := int64(len(p.blocks))
	held := int64(p.heldBytes)
	p.mu.RUnlock()
	return Stats{
		Hits:       p.hits.Load(),
		Misses:     p.misses.Load(),
		Growths:    p.growths.Load(),
		Reclaims:   p.reclaims.Load(),
		BlocksHeld: blocks,
		BytesHeld:  held,
	}
}

func (p *Resource) record(ptr api.DevicePtr, req, rounded int, blk *block) {
	p.trkMu.Lock()
	p.outstanding[ptr] = allocEntry{req: req, rounded: rounded, blk: blk}
	p.trkMu.Unlock()
}

func (p *Resource) syncStream(s api.Stream) error {
	if p.drv == nil {
		return nil
	}
	if err := p.drv.StreamSynchronize(s); err != nil {
		return driver.ToAPIError(err)
	}
	return nil
}

var _ api.MemoryResource = (*Resource)(nil)
