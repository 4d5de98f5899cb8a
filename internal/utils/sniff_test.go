package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSniffFile_RecognizesGzipHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	gzipHeader := []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}
	require.NoError(t, os.WriteFile(path, gzipHeader, 0644))

	kind, ok := SniffFile(path)
	require.True(t, ok)
	require.Equal(t, "gz", kind.Extension)
}

func TestSniffFile_UnknownContentReturnsNotOK(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some plain text, nothing special"), 0644))

	_, ok := SniffFile(path)
	require.False(t, ok)
}

func TestSniffFile_MissingFileReturnsNotOK(t *testing.T) {
	_, ok := SniffFile(filepath.Join(t.TempDir(), "missing.bin"))
	require.False(t, ok)
}
