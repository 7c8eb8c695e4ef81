package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func hasChange(w *Watcher, path string, op Operation) bool {
	for _, e := range w.Changes() {
		if e.Path == path && e.Operation == op {
			return true
		}
	}
	return false
}

func TestWatcher_RecordsChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "results"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backup"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "results", "old.csv"), []byte("a"), 0644))

	w, err := New(root, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "results", "metrics.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "results", "old.csv"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "backup", "x.py_1"), []byte("x"), 0644))

	assert.Eventually(t, func() bool {
		return hasChange(w, "results/metrics.json", OpCreate) && hasChange(w, "results/old.csv", OpModify)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())
	for _, e := range w.Changes() {
		assert.NotEqual(t, "backup/x.py_1", e.Path)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.MkdirAll(filepath.Join(root, "models", "ckpt"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "ckpt", "model.bin"), []byte("w"), 0644))

	assert.Eventually(t, func() bool {
		return hasChange(w, "models/ckpt/model.bin", OpCreate)
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, w.Stop())
}

func TestWatcher_CreateThenRemoveIsNoChange(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, DefaultConfig())
	require.NoError(t, err)

	var seen []string
	w.SetOnFileChange(func(path string, op Operation) {
		seen = append(seen, path+":"+op.String())
	})
	require.NoError(t, w.Start())

	tmp := filepath.Join(root, "scratch.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0644))
	assert.Eventually(t, func() bool { return hasChange(w, "scratch.txt", OpCreate) }, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, os.Remove(tmp))

	require.NoError(t, w.Stop())
	assert.Empty(t, w.Changes())
	assert.Contains(t, seen, "scratch.txt:create")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), Config{Quiet: time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.Positive(t, w.WatchedPaths())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "delete", OpDelete.String())
	assert.Equal(t, "unknown", Operation(42).String())
}
