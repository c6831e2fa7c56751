package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/backend"
	"github.com/momentics/hioload-devmem/driver"
)

const (
	kib = 1 << 10
	mib = 1 << 20
)

func newTestPool(t *testing.T, capacity int64, cfg Config) (*Resource, *driver.SimDevice) {
	t.Helper()
	dev := driver.NewSimDevice(capacity)
	t.Cleanup(func() { dev.Close() })
	return New(backend.NewDevice(dev), dev, cfg), dev
}

func TestPoolRoundTrip(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p.Close()

	for _, size := range []int{1, 7, 256, 4096, 64 * kib, mib, 5 * mib} {
		ptr, err := p.Allocate(size, api.DefaultStream)
		require.NoError(t, err, "size %d", size)
		require.NotZero(t, ptr)
		require.NoError(t, p.Deallocate(ptr, size, api.DefaultStream))
	}
}

func TestPoolRecyclesWithoutUpstream(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p.Close()

	ptr1, err := p.Allocate(4096, api.DefaultStream)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr1, 4096, api.DefaultStream))

	growthsBefore := p.Stats().Growths
	ptr2, err := p.Allocate(4096, api.DefaultStream)
	require.NoError(t, err)
	assert.Equal(t, ptr1, ptr2, "freed fragment should be recycled")
	assert.Equal(t, growthsBefore, p.Stats().Growths, "no upstream growth on recycle")
	require.NoError(t, p.Deallocate(ptr2, 4096, api.DefaultStream))
}

func TestPoolCoalescesAdjacentFragments(t *testing.T) {
	cfg := Config{InitialSize: mib, GrowthFactor: 2.0}
	p, _ := newTestPool(t, mib, cfg)

	// carve the single 1 MiB block into four quarters
	var ptrs []api.DevicePtr
	for i := 0; i < 4; i++ {
		ptr, err := p.Allocate(256*kib, api.DefaultStream)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}

	// free the first and third quarters: two non-adjacent fragments
	require.NoError(t, p.Deallocate(ptrs[0], 256*kib, api.DefaultStream))
	require.NoError(t, p.Deallocate(ptrs[2], 256*kib, api.DefaultStream))

	// 512 KiB exist but not contiguously, and the device is exhausted
	_, err := p.Allocate(512*kib, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)

	// freeing the second quarter bridges the gap: [0, 768 KiB) is free
	require.NoError(t, p.Deallocate(ptrs[1], 256*kib, api.DefaultStream))

	ptr, err := p.Allocate(512*kib, api.DefaultStream)
	require.NoError(t, err, "coalesced fragments must satisfy the request")
	assert.Equal(t, ptrs[0], ptr, "merged fragment starts at the block base")

	require.NoError(t, p.Deallocate(ptr, 512*kib, api.DefaultStream))
	require.NoError(t, p.Deallocate(ptrs[3], 256*kib, api.DefaultStream))
	require.NoError(t, p.Close())
}

func TestPoolReclaimsFreeBlocksUnderPressure(t *testing.T) {
	cfg := Config{InitialSize: 512 * kib, GrowthFactor: 1.0}
	p, _ := newTestPool(t, mib+512*kib, cfg)
	defer p.Close()

	// two 512 KiB blocks fill the device
	a, err := p.Allocate(512*kib, api.DefaultStream)
	require.NoError(t, err)
	b, err := p.Allocate(512*kib, api.DefaultStream)
	require.NoError(t, err)

	// one block becomes fully free; the pool still holds its span
	require.NoError(t, p.Deallocate(a, 512*kib, api.DefaultStream))

	// a request too large for any fragment forces the pool to hand the
	// free span back upstream and regrow
	ptr, err := p.Allocate(600*kib, api.DefaultStream)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr, 600*kib, api.DefaultStream))
	require.NoError(t, p.Deallocate(b, 512*kib, api.DefaultStream))
	assert.GreaterOrEqual(t, p.Stats().Reclaims, int64(1))
}

func TestPoolMaxSizeCap(t *testing.T) {
	cfg := Config{InitialSize: mib, GrowthFactor: 2.0, MaxSize: mib}
	p, _ := newTestPool(t, 256*mib, cfg)
	defer p.Close()

	ptr, err := p.Allocate(mib, api.DefaultStream)
	require.NoError(t, err)

	_, err = p.Allocate(256*kib, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)

	require.NoError(t, p.Deallocate(ptr, mib, api.DefaultStream))
}

func TestPoolInvalidDeallocate(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p.Close()

	assert.ErrorIs(t, p.Deallocate(api.DevicePtr(0xabc), 64, api.DefaultStream), api.ErrInvalidArgument)

	ptr, err := p.Allocate(128, api.DefaultStream)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Deallocate(ptr, 127, api.DefaultStream), api.ErrInvalidArgument)
	require.NoError(t, p.Deallocate(ptr, 128, api.DefaultStream))
}

func TestPoolZeroSizePolicy(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p.Close()

	ptr, err := p.Allocate(0, api.DefaultStream)
	require.NoError(t, err)
	assert.Equal(t, api.ZeroSizePtr, ptr)
	assert.NoError(t, p.Deallocate(ptr, 0, api.DefaultStream))
}

func TestPoolIsEqualIdentity(t *testing.T) {
	p1, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p1.Close()
	p2, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p2.Close()

	assert.True(t, p1.IsEqual(p1))
	assert.False(t, p1.IsEqual(p2))
}

func TestPoolClosedRejectsAllocate(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	require.NoError(t, p.Close())

	_, err := p.Allocate(64, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrClosed)
}

func TestPoolCrossStreamReuse(t *testing.T) {
	dev := driver.NewSimDevice(256 * mib)
	defer dev.Close()
	p := New(backend.NewDevice(dev), dev, DefaultConfig())
	defer p.Close()

	streamA, err := dev.StreamCreate()
	require.NoError(t, err)
	streamB, err := dev.StreamCreate()
	require.NoError(t, err)

	ptr, err := p.Allocate(4096, streamA)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr, 4096, streamA))

	// reuse on a different stream synchronizes against the freeing one
	ptr2, err := p.Allocate(4096, streamB)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr2, 4096, streamB))
}

// streamSyncRecorder wraps a driver and records every stream it is
// asked to synchronize.
type streamSyncRecorder struct {
	driver.Driver
	mu     sync.Mutex
	synced []api.Stream
}

func (r *streamSyncRecorder) StreamSynchronize(s api.Stream) error {
	r.mu.Lock()
	r.synced = append(r.synced, s)
	r.mu.Unlock()
	return r.Driver.StreamSynchronize(s)
}

func (r *streamSyncRecorder) syncedStreams() []api.Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Stream(nil), r.synced...)
}

func TestPoolMergeAcrossStreamsSyncsEveryFreeingStream(t *testing.T) {
	dev := driver.NewSimDevice(mib)
	defer dev.Close()
	rec := &streamSyncRecorder{Driver: dev}
	p := New(backend.NewDevice(rec), rec, Config{InitialSize: mib, GrowthFactor: 1.0})
	defer p.Close()

	streamX, err := dev.StreamCreate()
	require.NoError(t, err)
	streamY, err := dev.StreamCreate()
	require.NoError(t, err)
	streamZ, err := dev.StreamCreate()
	require.NoError(t, err)

	a, err := p.Allocate(512*kib, streamX)
	require.NoError(t, err)
	b, err := p.Allocate(512*kib, streamX)
	require.NoError(t, err)

	// adjacent halves of the block return on two different streams
	require.NoError(t, p.Deallocate(a, 512*kib, streamX))
	require.NoError(t, p.Deallocate(b, 512*kib, streamY))

	// serving the combined span to a third stream must wait on both
	// freeing streams, not just one of them
	ptr, err := p.Allocate(mib, streamZ)
	require.NoError(t, err)

	synced := rec.syncedStreams()
	assert.Contains(t, synced, streamX, "first freeing stream synchronized before reuse")
	assert.Contains(t, synced, streamY, "second freeing stream synchronized before reuse")

	require.NoError(t, p.Deallocate(ptr, mib, streamZ))
}

func TestPoolConcurrentAllocFree(t *testing.T) {
	p, _ := newTestPool(t, 256*mib, DefaultConfig())
	defer p.Close()

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			sizes := []int{64, 300, 4096, 70_000, 256 * kib}
			for i := 0; i < perGoroutine; i++ {
				size := sizes[(seed+i)%len(sizes)]
				ptr, err := p.Allocate(size, api.DefaultStream)
				if err != nil {
					t.Errorf("allocate %d: %v", size, err)
					return
				}
				if err := p.Deallocate(ptr, size, api.DefaultStream); err != nil {
					t.Errorf("deallocate %d: %v", size, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
