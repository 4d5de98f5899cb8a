package chunkmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"chunkdl/internal/ids"
)

func strp(s string) *string { return &s }

func TestNew_ComputesChunkCount(t *testing.T) {
	dir := t.TempDir()
	m := New(10*1024*1024, 2*1024*1024, dir, "file.bin", 3)
	require.Equal(t, 5, m.NumChunks())

	last := m.Chunk(4)
	require.Equal(t, int64(10*1024*1024-1), last.End)
}

func TestNew_LastChunkShorterThanChunkSize(t *testing.T) {
	dir := t.TempDir()
	m := New(9*1024*1024, 2*1024*1024, dir, "file.bin", 3)
	require.Equal(t, 5, m.NumChunks())

	last := m.Chunk(4)
	require.Equal(t, int64(1*1024*1024), last.Len())
}

func TestNew_ExactMultiple_OneChunk(t *testing.T) {
	dir := t.TempDir()
	m := New(2*1024*1024, 2*1024*1024, dir, "file.bin", 3)
	require.Equal(t, 1, m.NumChunks())
}

func TestNextAvailable_RespectsMaxConcurrentAndOrder(t *testing.T) {
	dir := t.TempDir()
	m := New(10*1024*1024, 2*1024*1024, dir, "file.bin", 2)

	i0, ok := m.NextAvailable()
	require.True(t, ok)
	require.Equal(t, 0, i0)

	i1, ok := m.NextAvailable()
	require.True(t, ok)
	require.Equal(t, 1, i1)

	_, ok = m.NextAvailable()
	require.False(t, ok, "max concurrent chunks reached")

	m.MarkCompleted(0)
	i2, ok := m.NextAvailable()
	require.True(t, ok)
	require.Equal(t, 2, i2)
}

func TestMarkCompleted_ClearsFailedAndActive(t *testing.T) {
	dir := t.TempDir()
	m := New(4*1024*1024, 2*1024*1024, dir, "file.bin", 2)

	idx, ok := m.NextAvailable()
	require.True(t, ok)
	m.MarkFailed(idx)

	stats := m.Stats()
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 0, stats.Active)

	m.MarkCompleted(idx)
	stats = m.Stats()
	require.Equal(t, 0, stats.Failed)
	require.Equal(t, 1, stats.Completed)
}

func TestRetryFailed_MovesBackToPending(t *testing.T) {
	dir := t.TempDir()
	m := New(4*1024*1024, 2*1024*1024, dir, "file.bin", 2)

	idx, _ := m.NextAvailable()
	m.MarkFailed(idx)

	indices := m.RetryFailed()
	require.Equal(t, []int{idx}, indices)

	stats := m.Stats()
	require.Equal(t, 0, stats.Failed)
}

func TestIsDone(t *testing.T) {
	dir := t.TempDir()
	m := New(2*1024*1024, 2*1024*1024, dir, "file.bin", 2)
	require.False(t, m.IsDone())

	m.MarkCompleted(0)
	require.True(t, m.IsDone())
}

func TestMerge_ConcatenatesInIndexOrder(t *testing.T) {
	dir := t.TempDir()
	m := New(9, 3, dir, "file.bin", 3)
	require.NoError(t, m.EnsureTempDir())

	contents := []string{"AAA", "BBB", "CCC"}
	for i, c := range contents {
		require.NoError(t, os.WriteFile(m.ChunkFilePath(i), []byte(c), 0644))
	}

	out := filepath.Join(dir, "file.bin")
	require.NoError(t, m.Merge(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "AAABBBCCC", string(data))

	_, err = os.Stat(m.ChunkFilePath(0))
	require.True(t, os.IsNotExist(err), "temp dir should be removed after merge")
}

func TestMerge_MissingChunkFailsWithNoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	m := New(9, 3, dir, "file.bin", 3)
	require.NoError(t, m.EnsureTempDir())

	require.NoError(t, os.WriteFile(m.ChunkFilePath(0), []byte("AAA"), 0644))
	// chunk 1 deliberately missing

	out := filepath.Join(dir, "file.bin")
	err := m.Merge(out)
	require.Error(t, err)

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "no final file on merge failure")
	_, statErr = os.Stat(out + ".part")
	require.True(t, os.IsNotExist(statErr), "no leftover .part file on merge failure")
}

func TestSaveAndLoadResume_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	taskID := ids.New()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)

	m.MarkCompleted(0)
	m.MarkCompleted(1)

	v := Validators{ETag: strp("abc")}
	require.NoError(t, m.SaveResume(taskID, "http://example.test/file.bin", v))

	m2 := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	require.NoError(t, m2.LoadAndValidateResume(taskID, v))

	stats := m2.Stats()
	require.Equal(t, 2, stats.Completed)
}

func TestLoadAndValidateResume_ETagMismatchFails(t *testing.T) {
	dir := t.TempDir()
	taskID := ids.New()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	m.MarkCompleted(0)

	require.NoError(t, m.SaveResume(taskID, "http://example.test/file.bin", Validators{ETag: strp("abc")}))

	m2 := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	err := m2.LoadAndValidateResume(taskID, Validators{ETag: strp("def")})
	require.Error(t, err)
	var resumeErr *ErrResumeFailed
	require.ErrorAs(t, err, &resumeErr)
}

func TestLoadAndValidateResume_LastModifiedFallback(t *testing.T) {
	dir := t.TempDir()
	taskID := ids.New()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	m.MarkCompleted(0)

	v := Validators{LastModified: strp("Wed, 21 Oct 2015 07:28:00 GMT")}
	require.NoError(t, m.SaveResume(taskID, "http://example.test/file.bin", v))

	m2 := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	require.NoError(t, m2.LoadAndValidateResume(taskID, v))
}

func TestLoadAndValidateResume_OneSidedValidatorFailsConservatively(t *testing.T) {
	dir := t.TempDir()
	taskID := ids.New()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	m.MarkCompleted(0)

	require.NoError(t, m.SaveResume(taskID, "http://example.test/file.bin", Validators{ETag: strp("abc")}))

	m2 := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	err := m2.LoadAndValidateResume(taskID, Validators{})
	require.Error(t, err)
}

func TestLoadAndValidateResume_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	require.NoError(t, m.LoadAndValidateResume(ids.New(), Validators{ETag: strp("abc")}))
}

func TestRemoveResume(t *testing.T) {
	dir := t.TempDir()
	taskID := ids.New()
	m := New(9*1024*1024, 3*1024*1024, dir, "file.bin", 3)
	require.NoError(t, m.SaveResume(taskID, "http://example.test/file.bin", Validators{ETag: strp("abc")}))

	path := resumePath(dir, taskID)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, m.RemoveResume(taskID))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Removing again is a no-op, not an error.
	require.NoError(t, m.RemoveResume(taskID))
}
