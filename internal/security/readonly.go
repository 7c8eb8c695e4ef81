package security

import (
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ReadOnlySet holds workspace-relative names that reject writes. Entries may be
// exact names or doublestar patterns ("data/**").
type ReadOnlySet struct {
	exact    map[string]struct{}
	patterns []string
}

// NewReadOnlySet builds an immutable set from names.
func NewReadOnlySet(names []string) (*ReadOnlySet, error) {
	s := &ReadOnlySet{exact: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = normalize(n)
		if n == "" {
			continue
		}
		if isPattern(n) {
			if !doublestar.ValidatePattern(n) {
				return nil, doublestar.ErrBadPattern
			}
			s.patterns = append(s.patterns, n)
			continue
		}
		s.exact[n] = struct{}{}
	}
	return s, nil
}

// Contains reports whether name (relative to the workspace root) is read-only.
func (s *ReadOnlySet) Contains(name string) bool {
	if s == nil {
		return false
	}
	name = normalize(name)
	if _, ok := s.exact[name]; ok {
		return true
	}
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Names returns the exact names and patterns in no particular order.
func (s *ReadOnlySet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.exact)+len(s.patterns))
	for n := range s.exact {
		out = append(out, n)
	}
	return append(out, s.patterns...)
}

func normalize(name string) string {
	cleaned := path.Clean(filepath.ToSlash(name))
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func isPattern(name string) bool {
	for _, c := range name {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
