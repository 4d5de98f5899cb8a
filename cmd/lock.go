package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"chunkdl/internal/config"
)

// instanceLock guards chunkdl.lock under the config directory so two CLI
// invocations against the same downloads directory don't race writing
// tasks.json. Grounded on the sibling repo's cmd/lock.go.
var (
	instanceLock *flock.Flock
	lockFilePath string
)

// AcquireLock attempts to take the single-instance lock. A false, nil return
// means another chunkdl process currently holds it.
func AcquireLock() (bool, error) {
	dir := config.GetSurgeDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}

	lockPath := filepath.Join(dir, "chunkdl.lock")
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	if !locked {
		return false, nil
	}

	instanceLock = fl
	lockFilePath = lockPath
	return true, nil
}

// ReleaseLock releases the lock if this process holds it.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	return instanceLock.Unlock()
}
