package watcher

import "time"

// Operation represents the type of file system operation.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns the string representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is the net change observed for one file while the watcher ran.
type Event struct {
	Path      string // Slash-separated, relative to the watched root
	Operation Operation
	Time      time.Time
}

// Config holds file watcher configuration.
type Config struct {
	MaxWatches int

	// Stop waits until no event arrived for Quiet, but never longer than
	// MaxSettle, so that events still in flight are not lost.
	Quiet     time.Duration
	MaxSettle time.Duration

	// SkipDirs are directory base names that are never watched.
	SkipDirs []string
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxWatches: 1000,
		Quiet:      50 * time.Millisecond,
		MaxSettle:  time.Second,
		SkipDirs:   []string{".git", "__pycache__", ".ipynb_checkpoints", "backup"},
	}
}

// FileChangeHandler is a callback for file change events.
type FileChangeHandler func(path string, op Operation)
