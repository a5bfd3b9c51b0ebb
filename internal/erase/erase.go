package erase

import (
	"crypto/rand"
	"io"
	"io/fs"
	"os"

	"github.com/Iron-Ham/glimpse/internal/errors"
)

// chunkSize bounds the overwrite buffer so large files do not need an
// allocation of their full size.
const chunkSize = 64 * 1024

// Eraser overwrites and deletes files. The zero value is not usable; use New
// or the package-level Erase.
type Eraser struct {
	random io.Reader
	// remove is os.Remove; tests replace it to simulate unlink failures.
	remove func(string) error
}

// Option configures an Eraser.
type Option func(*Eraser)

// WithRandom replaces the random source used for the overwrite pass.
func WithRandom(r io.Reader) Option {
	return func(e *Eraser) {
		e.random = r
	}
}

// New creates an Eraser reading overwrite bytes from crypto/rand.
func New(opts ...Option) *Eraser {
	e := &Eraser{
		random: rand.Reader,
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEraser = New()

// Erase securely erases path using crypto/rand. See Eraser.Erase.
func Erase(path string) error {
	return defaultEraser.Erase(path)
}

// Erase overwrites path with random bytes of the same length and deletes it.
//
// A missing file is success. Overwrite failures are swallowed and followed
// by a plain delete; the returned error is always an *errors.EraseError for
// StageDelete.
func (e *Eraser) Erase(path string) error {
	// Overwrite errors are intentionally dropped: the delete below is the
	// only outcome the caller sees.
	_ = e.overwrite(path)

	if err := e.remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.NewEraseError(path, errors.StageDelete, err)
	}
	return nil
}

// overwrite fills the existing file with random bytes without changing
// its length.
func (e *Eraser) overwrite(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return errors.NewEraseError(path, errors.StageStat, err)
	}
	if !info.Mode().IsRegular() {
		// Never write through symlinks or into devices.
		return errors.NewEraseError(path, errors.StageStat, errors.ErrInvalidInput)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.NewEraseError(path, errors.StageOverwrite, err)
	}

	remaining := info.Size()
	buf := make([]byte, min(remaining, chunkSize))
	for remaining > 0 {
		n := min(remaining, int64(len(buf)))
		if _, err := io.ReadFull(e.random, buf[:n]); err != nil {
			_ = f.Close()
			return errors.NewEraseError(path, errors.StageOverwrite, err)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			_ = f.Close()
			return errors.NewEraseError(path, errors.StageOverwrite, err)
		}
		remaining -= n
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.NewEraseError(path, errors.StageOverwrite, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewEraseError(path, errors.StageOverwrite, err)
	}
	return nil
}
