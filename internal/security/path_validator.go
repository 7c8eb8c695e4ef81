package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the workspace root.
var ErrOutsideRoot = errors.New("path is outside the workspace root")

// PathValidator confines paths to a single workspace root.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator for root. The root must exist; it is
// resolved to an absolute, symlink-free path once at construction.
func NewPathValidator(root string) (*PathValidator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return &PathValidator{root: resolved}, nil
}

// Root returns the resolved workspace root.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve maps name onto an absolute path under the root.
//
// The lexical check runs first and touches nothing on disk, so `..` escapes and
// foreign absolute paths are rejected before any filesystem access. Symlinks
// are then resolved on the deepest existing ancestor so a link inside the
// workspace cannot point the operation elsewhere.
func (v *PathValidator) Resolve(name string) (string, error) {
	if strings.Contains(name, "\x00") {
		return "", fmt.Errorf("null byte in path")
	}

	var joined string
	if filepath.IsAbs(name) {
		joined = filepath.Clean(name)
	} else {
		joined = filepath.Join(v.root, name)
	}
	if !isPathWithin(joined, v.root) {
		return "", ErrOutsideRoot
	}

	resolved, err := resolveExisting(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	if !isPathWithin(resolved, v.root) {
		return "", ErrOutsideRoot
	}

	return joined, nil
}

// Real returns path with symlinks on its existing prefix resolved, or path
// itself when resolution fails.
func (v *PathValidator) Real(path string) string {
	resolved, err := resolveExisting(path)
	if err != nil {
		return path
	}
	return resolved
}

// Rel returns the slash-separated name of abs relative to the root.
func (v *PathValidator) Rel(abs string) string {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the missing tail.
func resolveExisting(path string) (string, error) {
	var tail []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}

// isPathWithin checks if target is base or a descendant of it.
func isPathWithin(target, base string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
