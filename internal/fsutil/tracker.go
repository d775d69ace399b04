package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// Tracker records the files of a directory tree and their modification times
// so that files created or modified afterwards can be listed.
type Tracker struct {
	root   string
	before map[string]stamp
}

type stamp struct {
	mtime time.Time
	size  int64
}

// NewTracker takes the initial snapshot of root. A missing root is treated as
// an empty directory.
func NewTracker(root string) (*Tracker, error) {
	before, err := snapshot(root)
	if err != nil {
		return nil, err
	}
	return &Tracker{root: root, before: before}, nil
}

// Changed returns the files that appeared or whose modification time moved
// since the snapshot, sorted by path.
func (t *Tracker) Changed() ([]string, error) {
	after, err := snapshot(t.root)
	if err != nil {
		return nil, err
	}
	changed := []string{}
	for path, st := range after {
		prev, ok := t.before[path]
		if !ok || !st.mtime.Equal(prev.mtime) || st.size != prev.size {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// Track runs fn bracketed by a tracker on root and returns the files fn
// created or modified. The list is returned even when fn fails.
func Track(root string, fn func() error) ([]string, error) {
	tr, err := NewTracker(root)
	if err != nil {
		return nil, err
	}
	runErr := fn()
	changed, err := tr.Changed()
	if runErr != nil {
		return changed, runErr
	}
	return changed, err
}

func snapshot(root string) (map[string]stamp, error) {
	files := make(map[string]stamp)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		files[path] = stamp{mtime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
