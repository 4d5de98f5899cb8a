// Package chunkmanager owns the chunk table and the three membership sets
// (active, completed, failed) for one task's chunked download, along with
// the resume record that makes the task continuable after a crash.
// Grounded almost mechanically on the original ChunkedDownloadManager:
// chunk_NNNN file naming, per-file-name temp directory, set membership
// under one mutex, merge in strict index order.
package chunkmanager

import (
	"fmt"
	"strings"
)

// Chunk is a contiguous byte range of the target file.
type Chunk struct {
	Index      int
	Start      int64
	End        int64 // inclusive
	Downloaded int64
	Completed  bool
}

// Len returns the chunk's expected byte length.
func (c Chunk) Len() int64 {
	return c.End - c.Start + 1
}

// sanitizeName escapes path separators so the temp directory name can never
// introduce nested directories or escape the downloads root.
func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	return r.Replace(name)
}

// chunkFileName returns the conventional chunk_NNNN basename for index i.
func chunkFileName(i int) string {
	return fmt.Sprintf("chunk_%04d", i)
}
