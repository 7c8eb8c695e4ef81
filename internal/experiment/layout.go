package experiment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"dsbench/internal/backup"
	"dsbench/internal/fileutil"
	"dsbench/internal/logging"
	"dsbench/internal/workspace"
)

// OutputDir is the workspace folder that holds every experiment run.
const OutputDir = "output"

// Subdirs are created in every experiment directory up front.
var Subdirs = []string{"src", "data", "models", "results", "logs", backup.DirName}

// Layout is the directory of one experiment run.
type Layout struct {
	Rel     string // Workspace name, e.g. "output/experiment_20250101_120000"
	Abs     string
	backups *backup.Store
}

// NewLayout creates a fresh experiment directory under ws. A run started in
// the same second as an existing one gets a "-N" suffix.
func NewLayout(ws *workspace.FS, now time.Time) (*Layout, error) {
	parent, err := ws.Resolve(OutputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := "experiment_" + now.Format("20060102_150405")
	name := base
	for n := 2; ; n++ {
		err := os.Mkdir(filepath.Join(parent, name), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create experiment directory: %w", err)
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}

	l := &Layout{
		Rel: path.Join(OutputDir, name),
		Abs: filepath.Join(parent, name),
	}
	for _, d := range Subdirs {
		if err := os.MkdirAll(filepath.Join(l.Abs, d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	l.backups = backup.NewStore(l.Abs)

	logging.Info("experiment directory created", "dir", l.Rel)
	return l, nil
}

// Name maps a path relative to the experiment directory to its workspace name.
func (l *Layout) Name(rel string) string {
	return path.Join(l.Rel, rel)
}

// Backup snapshots rel into the run's backup folder when it exists. Failures
// are logged and otherwise ignored.
func (l *Layout) Backup(rel string) {
	info, err := os.Stat(filepath.Join(l.Abs, filepath.FromSlash(rel)))
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if _, err := l.backups.Snapshot(filepath.FromSlash(rel)); err != nil {
		logging.Warn("experiment backup failed", "file", l.Name(rel), "error", err)
	}
}

// Backups lists the run's backups of rel, oldest first.
func (l *Layout) Backups(rel string) ([]backup.Entry, error) {
	return l.backups.List(filepath.FromSlash(rel))
}

// Stage copies workspace files into the run's data folder.
func (l *Layout) Stage(ws *workspace.FS, names []string) error {
	for _, name := range names {
		src, err := ws.Resolve(name)
		if err != nil {
			return err
		}
		dst := filepath.Join(l.Abs, "data", filepath.Base(src))
		if err := fileutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}
		logging.Debug("input staged", "file", name, "dest", l.Name("data/"+filepath.Base(src)))
	}
	return nil
}

// local reports whether rel stays inside the experiment directory.
func local(rel string) bool {
	return rel != "" && filepath.IsLocal(filepath.FromSlash(rel))
}
