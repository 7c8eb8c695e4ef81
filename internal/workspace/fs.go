package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dsbench/internal/backup"
	"dsbench/internal/fileutil"
	"dsbench/internal/logging"
	"dsbench/internal/security"
)

// Options configures script execution.
type Options struct {
	Interpreter     string
	InterpreterArgs []string
	ExecTimeout     time.Duration // 0 means no deadline

	// PassEnv names host variables scripts inherit beyond security.DefaultPassEnv.
	PassEnv []string
}

// FS performs sandbox-checked file and process operations under one root.
// The root and the read-only set never change after New.
type FS struct {
	validator *security.PathValidator
	readOnly  *security.ReadOnlySet
	backups   *backup.Store
	opts      Options
}

// New creates an FS rooted at root, which is created if missing.
func New(root string, readOnly []string, opts Options) (*FS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	validator, err := security.NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	ro, err := security.NewReadOnlySet(readOnly)
	if err != nil {
		return nil, fmt.Errorf("invalid read-only pattern: %w", err)
	}
	if opts.Interpreter == "" {
		opts.Interpreter = "python"
	}
	return &FS{
		validator: validator,
		readOnly:  ro,
		backups:   backup.NewStore(validator.Root()),
		opts:      opts,
	}, nil
}

// Root returns the absolute workspace root.
func (f *FS) Root() string {
	return f.validator.Root()
}

// ReadOnly returns the read-only set.
func (f *FS) ReadOnly() *security.ReadOnlySet {
	return f.readOnly
}

// Backups returns the workspace backup store.
func (f *FS) Backups() *backup.Store {
	return f.backups
}

// Resolve maps a workspace-relative name to an absolute path, failing with
// ErrContainment when it escapes the root. It never touches file contents.
func (f *FS) Resolve(name string) (string, error) {
	p, err := f.validator.Resolve(name)
	if err != nil {
		return "", NewError(ErrContainment,
			fmt.Sprintf("cannot access file %s because it is not in the work directory.", name), err)
	}
	return p, nil
}

// Rel returns the slash-separated workspace name of an absolute path.
func (f *FS) Rel(abs string) string {
	return f.validator.Rel(abs)
}

// CheckWritable fails with ErrReadOnly when name, or the file a symlink at
// name points to, is in the read-only set.
func (f *FS) CheckWritable(name string) error {
	abs, err := f.Resolve(name)
	if err != nil {
		return err
	}
	if f.readOnly.Contains(f.Rel(abs)) || f.readOnly.Contains(f.Rel(f.validator.Real(abs))) {
		return NewError(ErrReadOnly,
			fmt.Sprintf("cannot write file %s because it is a read-only file.", name), nil)
	}
	return nil
}

// List returns an `ls -F` style listing of dir.
func (f *FS) List(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := f.Resolve(dir)
	if err != nil {
		return "", err
	}
	fail := func(cause error) error {
		return NewError(ErrNotFound, fmt.Sprintf("Cannot list file in the %s directory", dir), cause)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fail(err)
	}
	if !info.IsDir() {
		return dir + classify(info.Mode()) + "\n", nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fail(err)
	}
	var sb strings.Builder
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		mode := e.Type()
		if mode.IsRegular() {
			if fi, err := e.Info(); err == nil {
				mode = fi.Mode()
			}
		}
		sb.WriteString(e.Name())
		sb.WriteString(classify(mode))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func classify(mode fs.FileMode) string {
	switch {
	case mode&fs.ModeDir != 0:
		return "/"
	case mode&fs.ModeSymlink != 0:
		return "@"
	case mode&fs.ModeNamedPipe != 0:
		return "|"
	case mode&fs.ModeSocket != 0:
		return "="
	case mode.IsRegular() && mode.Perm()&0111 != 0:
		return "*"
	default:
		return ""
	}
}

// Read returns the content of name.
func (f *FS) Read(name string) (string, error) {
	abs, err := f.Resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", NewError(ErrNotFound, fmt.Sprintf("cannot read file %s", name), err)
	}
	return string(data), nil
}

// Write replaces name with content, creating parent directories. A
// pre-existing file is backed up first.
func (f *FS) Write(name, content string) (string, error) {
	abs, err := f.writable(name)
	if err != nil {
		return "", err
	}
	fail := func(cause error) error {
		return NewError(ErrIO, fmt.Sprintf("cannot write file %s", name), cause)
	}

	if err := f.backupExisting(abs); err != nil {
		return "", fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fail(err)
	}
	if err := fileutil.AtomicWriteString(abs, content, filePerm(abs)); err != nil {
		return "", fail(err)
	}
	return fmt.Sprintf("File %s written successfully.", name), nil
}

// Append adds content to the end of name, creating the file if needed.
// Appends are not backed up, so Undo skips over them to the last Write.
func (f *FS) Append(name, content string) (string, error) {
	abs, err := f.writable(name)
	if err != nil {
		return "", err
	}
	fail := func(cause error) error {
		return NewError(ErrIO, fmt.Sprintf("cannot append file %s", name), cause)
	}

	file, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fail(err)
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return "", fail(err)
	}
	if err := file.Close(); err != nil {
		return "", fail(err)
	}
	return fmt.Sprintf("File %s appended successfully.", name), nil
}

// Copy copies source to destination, backing up an existing destination.
func (f *FS) Copy(source, destination string) (string, error) {
	src, err := f.Resolve(source)
	if err != nil {
		return "", err
	}
	dst, err := f.writable(destination)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("File %s copy to %s failed. Check whether the source and destinations are valid.", source, destination)
	fail := func(cause error) error {
		return NewError(ErrIO, msg, cause)
	}

	if _, err := os.Stat(src); err != nil {
		return "", NewError(ErrNotFound, msg, err)
	}
	if err := f.backupExisting(dst); err != nil {
		return "", fail(err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return "", fail(err)
	}
	return fmt.Sprintf("File %s copied to %s", source, destination), nil
}

// Undo restores name from its most recent backup and consumes that backup.
func (f *FS) Undo(name string) (string, error) {
	abs, err := f.Resolve(name)
	if err != nil {
		return "", err
	}
	data, err := f.backups.Restore(f.Rel(abs))
	if err != nil {
		if errors.Is(err, backup.ErrNothingToUndo) {
			return "", NewError(ErrNotFound, "There is no change to undo.", err)
		}
		return "", NewError(ErrIO,
			fmt.Sprintf("Cannot undo the edit of file name %s. Check the file name again.", name), err)
	}
	return fmt.Sprintf("Content of %s after undo the most recent edit:\n", name) + string(data), nil
}

func (f *FS) writable(name string) (string, error) {
	if err := f.CheckWritable(name); err != nil {
		return "", err
	}
	return f.Resolve(name)
}

// backupExisting snapshots abs when it is an existing regular file.
func (f *FS) backupExisting(abs string) error {
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", f.Rel(abs))
	}
	_, err = f.backups.Snapshot(f.Rel(abs))
	if err != nil {
		logging.Warn("backup failed", "file", f.Rel(abs), "error", err)
	}
	return err
}

func filePerm(abs string) os.FileMode {
	if info, err := os.Stat(abs); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}
