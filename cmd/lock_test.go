package cmd

import (
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_SecondCallFails(t *testing.T) {
	t.Setenv("CHUNKDL_HOME", t.TempDir())

	locked, err := AcquireLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() {
		require.NoError(t, ReleaseLock())
		instanceLock = nil
	}()

	contender := flock.New(lockFilePath)
	locked2, err := contender.TryLock()
	require.NoError(t, err)
	require.False(t, locked2, "a second process-level lock on the same path must fail while the first is held")
}
