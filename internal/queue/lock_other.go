//go:build !unix && !windows

package queue

import "os"

// Platforms without advisory locks rely on the in-process mutexes only.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
