// File: pool/block.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Upstream span bookkeeping. A block is a coalesced span obtained from
// the upstream resource and subdivided into sub-allocations. Each block
// carries its own lock and its own sorted free-fragment list, so
// concurrent allocate/deallocate traffic on different blocks never
// contends. Fragments are merged with their neighbors the moment they
// are inserted, except when the neighbors were freed on different
// streams: a merged span carries a single stream label, so such merges
// wait until coalesceStreams has synchronized the streams involved.

package pool

import (
	"sort"
	"sync"

	"github.com/momentics/hioload-devmem/api"
)

// frag is one free fragment inside a block.
type frag struct {
	offset int
	size   int
	stream api.Stream // stream the fragment was last freed on
}

// block is one span held from the upstream resource.
type block struct {
	base   api.DevicePtr
	size   int
	stream api.Stream // stream the span was requested on

	mu    sync.Mutex
	frags []frag // sorted by offset, adjacency-merged
	free  int    // total free bytes in the block
}

func newBlock(base api.DevicePtr, size int, stream api.Stream) *block {
	b := &block{base: base, size: size, stream: stream}
	b.frags = []frag{{offset: 0, size: size, stream: stream}}
	b.free = size
	return b
}

// insertFree returns [offset, offset+size) to the block's free list,
// merging with adjacent free fragments.
func (b *block) insertFree(offset, size int, stream api.Stream) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := sort.Search(len(b.frags), func(j int) bool { return b.frags[j].offset > offset })
	f := frag{offset: offset, size: size, stream: stream}

	// merge with predecessor
	if i > 0 && b.frags[i-1].offset+b.frags[i-1].size == offset {
		if s, ok := mergedStream(b.frags[i-1].stream, f.stream); ok {
			f.offset = b.frags[i-1].offset
			f.size += b.frags[i-1].size
			f.stream = s
			i--
			b.frags = append(b.frags[:i], b.frags[i+1:]...)
		}
	}
	// merge with successor
	if i < len(b.frags) && f.offset+f.size == b.frags[i].offset {
		if s, ok := mergedStream(f.stream, b.frags[i].stream); ok {
			f.size += b.frags[i].size
			f.stream = s
			b.frags = append(b.frags[:i], b.frags[i+1:]...)
		}
	}

	b.frags = append(b.frags, frag{})
	copy(b.frags[i+1:], b.frags[i:])
	b.frags[i] = f
	b.free += size
}

// mergedStream resolves the stream label of two adjacent fragments
// about to merge. Fragments freed on different non-default streams may
// each still have work pending, and one label cannot stand for both, so
// the merge is refused until coalesceStreams has synchronized them.
func mergedStream(a, b api.Stream) (api.Stream, bool) {
	switch {
	case a == b:
		return a, true
	case a.IsDefault():
		return b, true
	case b.IsDefault():
		return a, true
	default:
		return 0, false
	}
}

// coalesceStreams synchronizes every stream the block's fragments were
// freed on, relabels the fragments as stream-neutral, and collapses the
// contiguous runs that insertFree had to leave split. The block lock is
// held across the synchronize so no new free lands in a
// half-relabeled list.
func (b *block) coalesceStreams(syncFn func(api.Stream) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	synced := make(map[api.Stream]struct{})
	for _, f := range b.frags {
		if f.stream.IsDefault() {
			continue
		}
		if _, ok := synced[f.stream]; ok {
			continue
		}
		if err := syncFn(f.stream); err != nil {
			return err
		}
		synced[f.stream] = struct{}{}
	}
	if len(synced) == 0 {
		return nil
	}

	merged := b.frags[:0]
	for i := range b.frags {
		f := b.frags[i]
		f.stream = api.DefaultStream
		if n := len(merged); n > 0 && merged[n-1].offset+merged[n-1].size == f.offset {
			merged[n-1].size += f.size
			continue
		}
		merged = append(merged, f)
	}
	b.frags = merged
	return nil
}

// take carves size bytes out of the first fragment that fits.
// The second return is the stream the memory was last freed on; callers
// must synchronize against it before handing the memory to a different
// stream.
func (b *block) take(size int) (int, api.Stream, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.frags {
		f := &b.frags[i]
		if f.size < size {
			continue
		}
		offset := f.offset
		stream := f.stream
		if f.size == size {
			b.frags = append(b.frags[:i], b.frags[i+1:]...)
		} else {
			f.offset += size
			f.size -= size
		}
		b.free -= size
		return offset, stream, true
	}
	return 0, api.DefaultStream, false
}

// siphonIfFree empties the free list if no sub-allocation of the block
// is live, making the block unusable for further takes before its span
// is handed back upstream. Returns false when live allocations remain.
func (b *block) siphonIfFree() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.free != b.size {
		return false
	}
	b.frags = nil
	b.free = 0
	return true
}

// siphon unconditionally empties the free list. Only valid during pool
// close, after the outstanding-allocation check.
func (b *block) siphon() {
	b.mu.Lock()
	b.frags = nil
	b.free = 0
	b.mu.Unlock()
}
