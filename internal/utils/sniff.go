package utils

import (
	"os"

	"github.com/h2non/filetype"
)

// SniffedType is a diagnostic MIME/extension guess for a finished download,
// read back from disk after the fact. It never influences the Filename the
// Engine already committed to.
type SniffedType struct {
	Extension string
	MIME      string
}

// SniffFile reads the leading bytes of path and matches them against known
// file signatures. Returns ok=false if the file is too small, unreadable, or
// its header doesn't match anything filetype recognizes — none of which is
// an error worth surfacing beyond a debug log.
func SniffFile(path string) (SniffedType, bool) {
	f, err := os.Open(path)
	if err != nil {
		return SniffedType{}, false
	}
	defer f.Close()

	header := make([]byte, 261) // filetype.Match needs at most this many bytes
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return SniffedType{}, false
	}
	header = header[:n]

	kind, err := filetype.Match(header)
	if err != nil || kind == filetype.Unknown {
		return SniffedType{}, false
	}
	return SniffedType{Extension: kind.Extension, MIME: kind.MIME}, true
}
