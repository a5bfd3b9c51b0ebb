package queue

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

// Orphan is a file under the storage root that no sequence tracks. Orphans
// are left behind by interrupted captures, by a lost manifest, or by earlier
// processes that ran without persistence and so owned their own directories.
type Orphan struct {
	View    View
	Path    string
	Size    int64
	ModTime time.Time
	// Stale is set when the file sits in a sequence directory other than
	// the active one.
	Stale bool
	// Err is the erase failure, set only by Prune.
	Err error
}

// Orphans lists untracked files last modified before cutoff. Files newer
// than cutoff are skipped so captures in flight in another process are
// left alone.
func (q *Queue) Orphans(cutoff time.Time) ([]Orphan, error) {
	return q.scanOrphans(cutoff, false)
}

// Prune erases the files Orphans would report and removes stale sequence
// directories that end up empty. Erase failures are recorded on the
// returned orphans, not returned as an error.
func (q *Queue) Prune(cutoff time.Time) ([]Orphan, error) {
	return q.scanOrphans(cutoff, true)
}

func (q *Queue) scanOrphans(cutoff time.Time, erase bool) ([]Orphan, error) {
	var out []Orphan
	for _, v := range Views() {
		err := q.withSequence(v, func(s *sequence) (bool, error) {
			found, err := q.orphansIn(s, cutoff, erase)
			out = append(out, found...)
			return false, err
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// orphansIn scans every directory under the root belonging to s's view.
// The caller holds s.mu.
func (q *Queue) orphansIn(s *sequence, cutoff time.Time, erase bool) ([]Orphan, error) {
	dirs, err := os.ReadDir(q.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, gerrors.NewIOError("read storage root", q.root, err)
	}

	var out []Orphan
	prefix := s.view.dirPrefix() + "_"
	for _, d := range dirs {
		if !d.IsDir() || !strings.HasPrefix(d.Name(), prefix) {
			continue
		}
		dir := filepath.Join(q.root, d.Name())
		stale := d.Name() != s.dirName

		files, err := os.ReadDir(dir)
		if err != nil {
			q.logger.WithView(string(s.view)).Warn("cannot scan sequence directory", "path", dir, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			path := filepath.Join(dir, f.Name())
			if !stale && s.ring.contains(path) {
				continue
			}
			info, err := f.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			o := Orphan{View: s.view, Path: path, Size: info.Size(), ModTime: info.ModTime(), Stale: stale}
			if erase {
				if o.Err = q.eraser.Erase(path); o.Err != nil {
					q.logger.WithView(string(s.view)).Warn("erase of orphan failed", "path", path, "error", o.Err)
				} else {
					q.logger.WithView(string(s.view)).Info("pruned orphan", "path", path)
				}
			}
			out = append(out, o)
		}

		if erase && stale {
			// Only succeeds once the directory is empty.
			if err := os.Remove(dir); err == nil {
				q.logger.WithView(string(s.view)).Debug("removed stale directory", "path", dir)
			}
		}
	}
	return out, nil
}
