// Package xlog is the ambient debug logger shared by every package in this
// module. It writes timestamped lines to a single file so a run can be
// replayed after the fact without cluttering stdout, which the CLI and the
// TUI both need for themselves.
package xlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var (
	logFile *os.File
	once    sync.Once
	mu      sync.Mutex
)

// Debug appends a formatted, timestamped line to debug.log in the current
// working directory. The file is created lazily on first use.
func Debug(format string, args ...any) {
	once.Do(func() {
		logFile, _ = os.OpenFile("debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	})
	if logFile == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(logFile, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
	logFile.Sync()
}
