package queue

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/obfuscate"
)

const (
	manifestFileName = ".idx"
	manifestVersion  = 1
)

// manifest is the persisted form of both sequences. Entry names are stored
// relative to the sequence directory.
type manifest struct {
	Version   int                         `json:"v"`
	View      View                        `json:"view,omitempty"`
	Next      uint64                      `json:"next"`
	Sequences map[View]*persistedSequence `json:"seqs"`
}

type persistedSequence struct {
	Dir     string           `json:"dir"`
	Entries []persistedEntry `json:"entries"`
}

type persistedEntry struct {
	Seq  uint64 `json:"seq"`
	Name string `json:"name"`
}

func newManifest() *manifest {
	return &manifest{
		Version:   manifestVersion,
		Sequences: make(map[View]*persistedSequence),
	}
}

// manifestStore reads and writes the manifest under a file lock.
type manifestStore struct {
	root     string
	fileMode os.FileMode
}

func (m *manifestStore) path() string {
	return filepath.Join(m.root, manifestFileName)
}

// locked runs fn while holding the manifest lock. fn receives the current
// manifest and returns whether it modified it; modified manifests are
// written back before the lock is released.
func (m *manifestStore) locked(dirMode os.FileMode, fn func(*manifest) (bool, error)) error {
	if err := os.MkdirAll(m.root, dirMode); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	fl := newFileLock(m.path() + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	man, err := m.load()
	if err != nil {
		return err
	}

	changed, fnErr := fn(man)
	if changed {
		if err := m.save(man); err != nil {
			if fnErr != nil {
				return fmt.Errorf("%w (also failed to save manifest: %v)", fnErr, err)
			}
			return err
		}
	}
	return fnErr
}

// load reads the manifest. A missing or unreadable manifest yields an empty
// one so a corrupt file never wedges the queue.
func (m *manifestStore) load() (*manifest, error) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		if gerrors.Is(err, fs.ErrNotExist) {
			return newManifest(), nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	man := newManifest()
	if err := json.Unmarshal(obfuscate.Unwrap(data), man); err != nil || man.Version != manifestVersion {
		return newManifest(), nil
	}
	if man.Sequences == nil {
		man.Sequences = make(map[View]*persistedSequence)
	}
	return man, nil
}

// save writes the manifest atomically via a temporary file and rename.
func (m *manifestStore) save(man *manifest) error {
	data, err := json.Marshal(man)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	target := m.path()
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, obfuscate.Wrap(data), m.fileMode); err != nil {
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp manifest: %w", err)
	}
	return nil
}
