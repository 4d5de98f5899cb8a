// Package bufwriter implements the fixed-size in-memory buffer over a
// sequentially-written file used by both single-connection mode (one
// buffer per task) and chunked mode (one buffer per chunk). Chunk workers
// never seek: each chunk owns its own temp file starting at offset 0, so a
// plain append buffer is all that's required.
package bufwriter

import "os"

// Writer buffers writes to a file, flushing whenever the buffer fills.
type Writer struct {
	file         *os.File
	buffer       []byte
	pos          int
	totalWritten int64
	flushCount   int64
}

// New opens path for writing (creating or truncating it) and wraps it in a
// Writer with the given buffer size.
func New(path string, bufferSize int) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{
		file:   f,
		buffer: make([]byte, bufferSize),
	}, nil
}

// Write appends data to the buffer, flushing to disk whenever it fills.
func (w *Writer) Write(data []byte) error {
	written := 0
	for written < len(data) {
		spaceLeft := len(w.buffer) - w.pos
		toCopy := min(spaceLeft, len(data)-written)

		if toCopy > 0 {
			copy(w.buffer[w.pos:w.pos+toCopy], data[written:written+toCopy])
			w.pos += toCopy
			written += toCopy
		}

		if w.pos == len(w.buffer) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush forces any buffered bytes to disk.
func (w *Writer) Flush() error {
	if w.pos == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buffer[:w.pos]); err != nil {
		return err
	}
	w.totalWritten += int64(w.pos)
	w.pos = 0
	w.flushCount++
	return nil
}

// Close flushes any remaining bytes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// TotalWritten returns the number of bytes flushed to disk so far. The
// engine compares this against a chunk's expected range length to confirm
// merge determinism (spec.md §4.4).
func (w *Writer) TotalWritten() int64 {
	return w.totalWritten
}

// FlushCount returns the number of times the buffer has been flushed.
func (w *Writer) FlushCount() int64 {
	return w.flushCount
}

// IsEmpty reports whether the buffer currently holds no unflushed bytes.
func (w *Writer) IsEmpty() bool {
	return w.pos == 0
}

// BufferUsage returns (bytes currently buffered, buffer capacity).
func (w *Writer) BufferUsage() (int, int) {
	return w.pos, len(w.buffer)
}
