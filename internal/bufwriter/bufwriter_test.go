package bufwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite_FlushesWhenBufferFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_0000")
	w, err := New(path, 4)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("abcdefgh")))
	require.Equal(t, int64(8), w.TotalWritten())
	require.Equal(t, int64(2), w.FlushCount())
	require.True(t, w.IsEmpty())

	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcdefgh", string(data))
}

func TestWrite_PartialBufferNotFlushedUntilCloseOrFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_0001")
	w, err := New(path, 16)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("abc")))
	require.False(t, w.IsEmpty())
	require.Equal(t, int64(0), w.TotalWritten())

	used, cap := w.BufferUsage()
	require.Equal(t, 3, used)
	require.Equal(t, 16, cap)

	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestWrite_ExactMultipleOfBufferSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_0002")
	w, err := New(path, 4)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("abcd")))
	require.Equal(t, int64(4), w.TotalWritten())
	require.True(t, w.IsEmpty())
	require.NoError(t, w.Close())
}

func TestNew_OpensTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk_0003")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is long"), 0644))

	w, err := New(path, 8)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("new")))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}
