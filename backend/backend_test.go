package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
)

// allSizes spans the representative range of the round-trip property:
// single bytes up to multi-megabyte requests.
var allSizes = []int{1, 2, 7, 8, 9, 32, 128, 4096, 1 << 16, 1 << 20, 5 << 20}

func eachBackend(t *testing.T, fn func(t *testing.T, mr api.MemoryResource)) {
	t.Helper()
	cases := map[string]func(drv driver.Driver) api.MemoryResource{
		"Device":     func(drv driver.Driver) api.MemoryResource { return NewDevice(drv) },
		"Managed":    func(drv driver.Driver) api.MemoryResource { return NewManaged(drv) },
		"SyncHybrid": func(drv driver.Driver) api.MemoryResource { return NewSyncHybrid(drv, NewDevice(drv)) },
		"Fixed":      func(drv driver.Driver) api.MemoryResource { return NewFixed(drv, 8<<20) },
	}
	for name, make := range cases {
		t.Run(name, func(t *testing.T) {
			dev := driver.NewSimDevice(256 << 20)
			defer dev.Close()
			fn(t, make(dev))
		})
	}
}

func TestRoundTripAllSizes(t *testing.T) {
	eachBackend(t, func(t *testing.T, mr api.MemoryResource) {
		for _, size := range allSizes {
			ptr, err := mr.Allocate(size, api.DefaultStream)
			require.NoError(t, err, "size %d", size)
			require.NotZero(t, ptr)
			require.NoError(t, mr.Deallocate(ptr, size, api.DefaultStream))
		}
	})
}

func TestZeroSizePolicy(t *testing.T) {
	eachBackend(t, func(t *testing.T, mr api.MemoryResource) {
		ptr, err := mr.Allocate(0, api.DefaultStream)
		require.NoError(t, err)
		assert.Equal(t, api.ZeroSizePtr, ptr)
		assert.NoError(t, mr.Deallocate(ptr, 0, api.DefaultStream))

		err = mr.Deallocate(api.DevicePtr(0xdead), 0, api.DefaultStream)
		assert.ErrorIs(t, err, api.ErrInvalidArgument)
	})
}

func TestDeallocateNotOutstanding(t *testing.T) {
	eachBackend(t, func(t *testing.T, mr api.MemoryResource) {
		err := mr.Deallocate(api.DevicePtr(0xbeef), 128, api.DefaultStream)
		assert.ErrorIs(t, err, api.ErrInvalidArgument)
	})
}

func TestDeallocateSizeMismatch(t *testing.T) {
	eachBackend(t, func(t *testing.T, mr api.MemoryResource) {
		ptr, err := mr.Allocate(256, api.DefaultStream)
		require.NoError(t, err)

		assert.ErrorIs(t, mr.Deallocate(ptr, 257, api.DefaultStream), api.ErrInvalidArgument)
		// the allocation is still live after the rejected call
		require.NoError(t, mr.Deallocate(ptr, 256, api.DefaultStream))
	})
}

func TestSameResourceInvariant(t *testing.T) {
	dev := driver.NewSimDevice(0)
	defer dev.Close()

	a := NewDevice(dev)
	b := NewManaged(dev)
	require.False(t, a.IsEqual(b))

	ptr, err := a.Allocate(512, api.DefaultStream)
	require.NoError(t, err)

	assert.ErrorIs(t, b.Deallocate(ptr, 512, api.DefaultStream), api.ErrInvalidArgument)
	require.NoError(t, a.Deallocate(ptr, 512, api.DefaultStream))
}

func TestOutOfMemorySurfaced(t *testing.T) {
	dev := driver.NewSimDevice(4096)
	defer dev.Close()
	mr := NewDevice(dev)

	ptr, err := mr.Allocate(4096, api.DefaultStream)
	require.NoError(t, err)

	_, err = mr.Allocate(1, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)

	// failed allocate leaves earlier allocations valid
	require.NoError(t, mr.Deallocate(ptr, 4096, api.DefaultStream))
}

func TestBackendFailureDistinctFromOOM(t *testing.T) {
	dev := driver.NewSimDevice(0)
	defer dev.Close()
	mr := NewDevice(dev)

	dev.InjectFault()
	_, err := mr.Allocate(64, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrBackendFailure)
	assert.NotErrorIs(t, err, api.ErrOutOfMemory)
}

func TestIsEqualStructural(t *testing.T) {
	dev := driver.NewSimDevice(0)
	defer dev.Close()
	other := driver.NewSimDevice(0)
	defer other.Close()

	assert.True(t, NewDevice(dev).IsEqual(NewDevice(dev)))
	assert.False(t, NewDevice(dev).IsEqual(NewDevice(other)))
	assert.True(t, NewManaged(dev).IsEqual(NewManaged(dev)))
	assert.False(t, NewDevice(dev).IsEqual(NewManaged(dev)))

	h1 := NewSyncHybrid(dev, NewDevice(dev))
	h2 := NewSyncHybrid(dev, NewDevice(dev))
	assert.True(t, h1.IsEqual(h2))
}

func TestSyncHybridInvalidStream(t *testing.T) {
	dev := driver.NewSimDevice(0)
	defer dev.Close()
	mr := NewSyncHybrid(dev, NewDevice(dev))

	// a stream handle the driver never issued
	_, err := mr.Allocate(64, api.Stream(999))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestFixedReusesBlocks(t *testing.T) {
	dev := driver.NewSimDevice(0)
	defer dev.Close()
	mr := NewFixed(dev, 4096)

	ptr1, err := mr.Allocate(100, api.DefaultStream)
	require.NoError(t, err)
	require.NoError(t, mr.Deallocate(ptr1, 100, api.DefaultStream))

	ptr2, err := mr.Allocate(4096, api.DefaultStream)
	require.NoError(t, err)
	assert.Equal(t, ptr1, ptr2, "freed block should be recycled")
	require.NoError(t, mr.Deallocate(ptr2, 4096, api.DefaultStream))

	_, err = mr.Allocate(4097, api.DefaultStream)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)

	require.NoError(t, mr.Close())
}
