package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dsbench/internal/logging"
)

// Watcher records the files created, modified or removed under a directory
// between Start and Stop.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	root         string
	cfg          Config
	skip         map[string]struct{}
	onFileChange FileChangeHandler
	changes      map[string]Event
	lastEvent    time.Time
	mu           sync.Mutex
	done         chan struct{}
	wg           sync.WaitGroup
	running      bool
	stopOnce     sync.Once
}

// New creates a watcher for root.
func New(root string, cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	def := DefaultConfig()
	if cfg.MaxWatches <= 0 {
		cfg.MaxWatches = def.MaxWatches
	}
	if cfg.Quiet <= 0 {
		cfg.Quiet = def.Quiet
	}
	if cfg.MaxSettle <= 0 {
		cfg.MaxSettle = def.MaxSettle
	}

	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skip[d] = struct{}{}
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		root:      root,
		cfg:       cfg,
		skip:      skip,
		changes:   make(map[string]Event),
		done:      make(chan struct{}),
	}, nil
}

// SetOnFileChange sets the callback for file change events.
func (w *Watcher) SetOnFileChange(handler FileChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFileChange = handler
}

// Start begins watching for file changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(w.root, false); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop waits for the event stream to settle, then stops watching. Changes
// stays readable afterwards.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.settle()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}

// settle blocks until no event arrived for cfg.Quiet or cfg.MaxSettle elapsed.
func (w *Watcher) settle() {
	deadline := time.Now().Add(w.cfg.MaxSettle)

	w.mu.Lock()
	w.lastEvent = time.Now()
	w.mu.Unlock()

	for {
		w.mu.Lock()
		wait := time.Until(w.lastEvent.Add(w.cfg.Quiet))
		w.mu.Unlock()

		remaining := time.Until(deadline)
		if wait <= 0 || remaining <= 0 {
			return
		}
		time.Sleep(min(wait, remaining))
	}
}

// Changes returns the net change per file, sorted by path.
func (w *Watcher) Changes() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Event, 0, len(w.changes))
	for _, e := range w.changes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// WatchedPaths returns the number of watched directories.
func (w *Watcher) WatchedPaths() int {
	return len(w.fsWatcher.WatchList())
}

// addDirectories watches dir and its subdirectories up to cfg.MaxWatches.
// With recordFiles set, files already present are recorded as created; this
// covers a directory that filled up before its watch was added.
func (w *Watcher) addDirectories(dir string, recordFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if !d.IsDir() {
			if recordFiles && !isTempName(d.Name()) {
				w.record(path, fsnotify.Create)
			}
			return nil
		}
		if path != w.root && w.skipped(d.Name()) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		full := len(w.fsWatcher.WatchList()) >= w.cfg.MaxWatches
		w.mu.Unlock()
		if full {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			logging.Debug("watch failed", "dir", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) skipped(name string) bool {
	_, ok := w.skip[name]
	return ok
}

// processEvents processes raw fsnotify events.
func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Debug("watcher error", "root", w.root, "error", err)
		}
	}
}

// handleEvent handles a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if isTempName(filepath.Base(path)) {
		return
	}

	w.mu.Lock()
	w.lastEvent = time.Now()
	w.mu.Unlock()

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipped(info.Name()) {
				_ = w.addDirectories(path, true)
			}
			return
		}
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.record(path, event.Op)
	}
}

// record folds op into the net change for path.
func (w *Watcher) record(path string, op fsnotify.Op) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	prev, seen := w.changes[rel]
	next := Event{Path: rel, Time: time.Now()}
	switch {
	case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
		if seen && prev.Operation == OpCreate {
			// Created and removed while watching: no net change.
			delete(w.changes, rel)
			w.mu.Unlock()
			return
		}
		next.Operation = OpDelete
		if op.Has(fsnotify.Rename) {
			next.Operation = OpRename
		}
	case op.Has(fsnotify.Create):
		next.Operation = OpCreate
	default:
		next.Operation = OpModify
		if seen && prev.Operation == OpCreate {
			next.Operation = OpCreate
		}
	}
	w.changes[rel] = next
	handler := w.onFileChange
	w.mu.Unlock()

	if handler != nil {
		handler(rel, next.Operation)
	}
}

// isTempName reports editor and atomic-write temporaries.
func isTempName(base string) bool {
	return len(base) > 0 && (base[0] == '.' || base[0] == '#' || base[len(base)-1] == '~')
}
