package facade

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-devmem/api"
	"github.com/momentics/hioload-devmem/driver"
	"github.com/momentics/hioload-devmem/fake"
	"github.com/momentics/hioload-devmem/internal/log"
)

func TestInitializeFinalizeModes(t *testing.T) {
	for _, managed := range []bool{false, true} {
		for _, pooled := range []bool{false, true} {
			require.NoError(t, Initialize(Options{
				ManagedMemory: managed,
				PoolAllocator: pooled,
			}))
			require.True(t, IsInitialized())

			mr, err := Default()
			require.NoError(t, err)

			ptr, err := mr.Allocate(128, api.DefaultStream)
			require.NoError(t, err)
			require.NoError(t, mr.Deallocate(ptr, 128, api.DefaultStream))

			require.NoError(t, Finalize())
			require.False(t, IsInitialized())
		}
	}
}

func TestFinalizeWithoutInitialize(t *testing.T) {
	require.NoError(t, Finalize())
	assert.False(t, IsInitialized())

	_, err := Default()
	assert.Error(t, err)
}

func TestSetDefaultSwapAndRestore(t *testing.T) {
	require.NoError(t, Initialize(Options{}))
	defer Finalize()

	custom := fake.NewResource()
	old, err := SetDefault(custom)
	require.NoError(t, err)
	require.NotNil(t, old)

	mr, err := Default()
	require.NoError(t, err)
	assert.True(t, mr.IsEqual(custom))

	// restoring the returned previous value round-trips
	_, err = SetDefault(old)
	require.NoError(t, err)
	mr, err = Default()
	require.NoError(t, err)
	assert.True(t, old.IsEqual(mr))

	// nil restores the built-in default
	_, err = SetDefault(nil)
	require.NoError(t, err)
	mr, err = Default()
	require.NoError(t, err)
	assert.True(t, old.IsEqual(mr))
}

func TestCSVLogThroughFacade(t *testing.T) {
	require.NoError(t, Initialize(Options{EnableLogging: true}))
	defer Finalize()

	mr, err := Default()
	require.NoError(t, err)

	ptr, err := mr.Allocate(2048, api.DefaultStream)
	require.NoError(t, err)
	require.NoError(t, mr.Deallocate(ptr, 2048, api.DefaultStream))

	csv, err := CSVLog()
	require.NoError(t, err)
	assert.True(t, strings.Contains(csv, "Event Type,Device ID,Address,Stream,Size (bytes)"))
	assert.Contains(t, csv, "allocate,")
	assert.Contains(t, csv, "free,")
}

func TestCSVLogDisabled(t *testing.T) {
	require.NoError(t, Initialize(Options{}))
	defer Finalize()

	_, err := CSVLog()
	assert.Error(t, err)
}

func TestConfigPublishesPoolPolicy(t *testing.T) {
	require.NoError(t, Initialize(Options{PoolAllocator: true}))
	defer Finalize()

	cs, err := Config()
	require.NoError(t, err)

	snap := cs.GetSnapshot()
	assert.Contains(t, snap, "pool.initial_size")
	assert.Contains(t, snap, "pool.growth_factor")
	assert.Contains(t, snap, "pool.max_size")
	assert.Contains(t, snap, "log_level")
}

func TestConfigReloadAdjustsLogLevel(t *testing.T) {
	require.NoError(t, Initialize(Options{}))
	defer Finalize()

	orig := log.Get().GetLevel()
	defer log.Get().SetLevel(orig)

	cs, err := Config()
	require.NoError(t, err)

	cs.SetConfig(map[string]any{"log_level": "debug"})
	require.Eventually(t, func() bool {
		return log.Get().GetLevel() == logrus.DebugLevel
	}, time.Second, 5*time.Millisecond, "reload listener applies the new level")
}

func TestConfigNotInitialized(t *testing.T) {
	require.NoError(t, Finalize())
	_, err := Config()
	assert.Error(t, err)
}

func TestFactoryNames(t *testing.T) {
	dev := driver.NewSimDevice(64 << 20)
	defer dev.Close()

	for _, name := range BackendNames() {
		mr, err := New(name, dev)
		require.NoError(t, err, name)
		require.NotNil(t, mr, name)

		ptr, err := mr.Allocate(4096, api.DefaultStream)
		require.NoError(t, err, name)
		require.NoError(t, mr.Deallocate(ptr, 4096, api.DefaultStream), name)
	}

	_, err := New("NoSuchBackend", dev)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
