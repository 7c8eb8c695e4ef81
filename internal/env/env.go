// Package env binds a workspace, its read-only set, the action registry and a
// fresh trace into one scoped Environment.
package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dsbench/internal/actions"
	"dsbench/internal/config"
	"dsbench/internal/experiment"
	"dsbench/internal/fileutil"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
	"dsbench/internal/trace"
	"dsbench/internal/workspace"
)

// TraceFileName is the trace file inside every snapshot.
const TraceFileName = "trace.json"

// FinalLabel names the snapshot written when an Environment closes.
const FinalLabel = "final"

// ErrClosed is returned by operations on a closed Environment.
var ErrClosed = errors.New("environment is closed")

// Options configure a new Environment.
type Options struct {
	Root      string
	ReadOnly  []string
	Workspace workspace.Options
	Loop      experiment.Config
	Generator llm.Generator
	Cases     experiment.CaseRetriever

	// HelpIn answers Request Help; nil leaves it unanswerable.
	HelpIn  io.Reader
	HelpOut io.Writer

	// SnapshotDir receives one folder per Save. Defaults to logs/snapshots.
	SnapshotDir string
}

// Environment is the lifetime scope of one workspace session. Root and the
// read-only set are fixed at creation; the trace only grows.
type Environment struct {
	id          string
	ws          *workspace.FS
	trace       *trace.Trace
	registry    *actions.Registry
	runner      *experiment.Runner
	snapshotDir string

	mu     sync.Mutex
	closed bool
}

// New creates an Environment and its registry.
func New(opts Options) (*Environment, error) {
	if opts.Root == "" {
		return nil, errors.New("workspace root is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("a generator is required")
	}

	ws, err := workspace.New(opts.Root, opts.ReadOnly, opts.Workspace)
	if err != nil {
		return nil, err
	}

	snapshotDir := opts.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = config.DefaultConfig().SnapshotDir()
	}
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if snapshotDir, err = filepath.Abs(snapshotDir); err != nil {
		return nil, err
	}
	if snapshotDir, err = filepath.EvalSymlinks(snapshotDir); err != nil {
		return nil, err
	}

	runner := experiment.NewRunner(ws, opts.Generator, opts.Loop)
	if opts.Cases != nil {
		runner.SetCaseRetriever(opts.Cases)
	}

	var help *actions.HelpDesk
	if opts.HelpIn != nil {
		help = &actions.HelpDesk{In: opts.HelpIn, Out: opts.HelpOut}
	}

	tr := trace.New()
	bindings := append(actions.Primitives(ws, help), runner.Bindings()...)

	e := &Environment{
		id:          uuid.NewString(),
		ws:          ws,
		trace:       tr,
		registry:    actions.Build(ws, tr, bindings...),
		runner:      runner,
		snapshotDir: snapshotDir,
	}
	logging.Info("environment created", "id", e.id, "root", ws.Root(), "read_only", ws.ReadOnly().Names())
	return e, nil
}

// ID returns the unique id of this Environment.
func (e *Environment) ID() string { return e.id }

// Registry returns the action registry.
func (e *Environment) Registry() *actions.Registry { return e.registry }

// Trace returns the trace of every primitive action run so far.
func (e *Environment) Trace() *trace.Trace { return e.trace }

// Workspace returns the guarded file system.
func (e *Environment) Workspace() *workspace.FS { return e.ws }

// Runner returns the experiment runner behind the composite actions.
func (e *Environment) Runner() *experiment.Runner { return e.runner }

// SnapshotDir returns the folder snapshots are written to.
func (e *Environment) SnapshotDir() string { return e.snapshotDir }

// Execute runs the named action.
func (e *Environment) Execute(ctx context.Context, name string, args actions.Args) (actions.Result, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return actions.Result{}, ErrClosed
	}
	return e.registry.Invoke(ctx, name, args)
}

// Observe runs the named action and renders any failure as its message, the
// way a driving agent sees it.
func (e *Environment) Observe(ctx context.Context, name string, args actions.Args) string {
	res, err := e.Execute(ctx, name, args)
	if err != nil {
		return err.Error()
	}
	return res.Observation
}

// Save writes the trace and a copy of the workspace to
// {SnapshotDir}/{id}/{label} and returns that folder.
func (e *Environment) Save(label string) (string, error) {
	dir := filepath.Join(e.snapshotDir, e.id, label)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := e.trace.Save(filepath.Join(dir, TraceFileName)); err != nil {
		return "", fmt.Errorf("failed to save trace: %w", err)
	}

	root := e.ws.Root()
	skip := func(path string, d fs.DirEntry) bool {
		// The snapshot folder may live inside the workspace.
		return d.IsDir() && (path == e.snapshotDir || strings.HasPrefix(path, e.snapshotDir+string(filepath.Separator)))
	}
	if err := fileutil.CopyTree(root, filepath.Join(dir, "workspace"), skip); err != nil {
		return "", fmt.Errorf("failed to snapshot workspace: %w", err)
	}

	logging.Info("environment saved", "id", e.id, "label", label, "dir", dir, "steps", e.trace.Len())
	return dir, nil
}

// Close writes the final snapshot. Later calls do nothing.
func (e *Environment) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	_, err := e.Save(FinalLabel)
	return err
}

// Run creates an Environment, calls fn and closes the Environment on every
// exit path, panics included. Errors from fn and Close are joined.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context, e *Environment) error) (err error) {
	e, err := New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logging.Error("final snapshot failed", "id", e.id, "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()
	return fn(ctx, e)
}
