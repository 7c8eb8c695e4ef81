package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dsbench/internal/fileutil"
	"dsbench/internal/logging"
)

// DirName is the backup folder created under a store's root.
const DirName = "backup"

// ErrNothingToUndo is returned by Restore when a file has no backups left.
var ErrNothingToUndo = errors.New("there is no change to undo")

// Store keeps per-file, single-use version history under {root}/backup.
// Backups of "src/train.py" live at {root}/backup/src/train.py_{suffix}.
type Store struct {
	root string
	dir  string
	now  func() time.Time
}

// NewStore creates a store for files under root.
func NewStore(root string) *Store {
	return &Store{
		root: root,
		dir:  filepath.Join(root, DirName),
		now:  time.Now,
	}
}

// Dir returns the backup directory.
func (s *Store) Dir() string {
	return s.dir
}

// Snapshot copies the current content of name into the backup folder.
// name is relative to the store root and must already exist.
func (s *Store) Snapshot(name string) (Entry, error) {
	src := filepath.Join(s.root, name)
	info, err := os.Stat(src)
	if err != nil {
		return Entry{}, err
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("cannot back up directory %s", name)
	}

	now := s.now()
	dst := filepath.Join(s.dir, name) + "_" + newSuffix(now)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Entry{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return Entry{}, fmt.Errorf("failed to back up %s: %w", name, err)
	}

	logging.Debug("backup created", "file", name, "backup", dst)
	return Entry{Name: name, Path: dst, Created: now}, nil
}

// List returns the backups of name, oldest first.
func (s *Store) List(name string) ([]Entry, error) {
	dir := filepath.Dir(filepath.Join(s.dir, name))
	base := filepath.Base(name)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		suffix, ok := splitBackupName(de.Name(), base)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			Path:    filepath.Join(dir, de.Name()),
			Created: parseSuffix(suffix),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// Restore overwrites name with its most recent backup and consumes that backup.
// It returns the restored content.
func (s *Store) Restore(name string) ([]byte, error) {
	entries, err := s.List(name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingToUndo
	}
	latest := entries[len(entries)-1]

	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(latest.Path); err == nil {
		perm = info.Mode().Perm()
	}

	target := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, err
	}
	if err := fileutil.AtomicWrite(target, data, perm); err != nil {
		return nil, fmt.Errorf("failed to restore %s: %w", name, err)
	}
	if err := os.Remove(latest.Path); err != nil {
		return nil, fmt.Errorf("failed to remove consumed backup: %w", err)
	}

	logging.Debug("backup restored", "file", name, "backup", latest.Path)
	return data, nil
}
