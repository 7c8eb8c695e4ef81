package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst atomically, keeping the source permissions.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}
	return WriteAtomic(dst, info.Mode().Perm(), copyFrom(src))
}

// CopyTree mirrors the regular files and directories under src into dst.
// skip is consulted with each source path; returning true prunes it.
// Symlinks and other special files are not followed.
func CopyTree(src, dst string, skip func(path string, d fs.DirEntry) bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skip != nil && skip(path, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular():
			return CopyFile(path, target)
		default:
			return nil
		}
	})
}
