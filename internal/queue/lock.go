package queue

import (
	"fmt"
	"os"
)

// fileLock provides cross-process mutual exclusion over the manifest.
// Separate fileLock values conflict even inside one process, because the
// lock is held on an open file rather than a path.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// Lock acquires an exclusive lock, blocking until available.
// The lock file is created if it does not exist.
func (fl *fileLock) Lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("lock %s: %w", fl.path, err)
	}
	fl.file = f
	return nil
}

// Unlock releases the lock and closes the lock file.
func (fl *fileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	err := unlockFile(fl.file)
	if closeErr := fl.file.Close(); err == nil {
		err = closeErr
	}
	fl.file = nil
	if err != nil {
		return fmt.Errorf("unlock %s: %w", fl.path, err)
	}
	return nil
}
