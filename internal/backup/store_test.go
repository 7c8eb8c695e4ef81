package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)
	return string(data)
}

func TestStore_SnapshotRestore(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	writeFile(t, root, "train.py", "v1")
	_, err := s.Snapshot("train.py")
	require.NoError(t, err)

	writeFile(t, root, "train.py", "v2")
	_, err = s.Snapshot("train.py")
	require.NoError(t, err)

	writeFile(t, root, "train.py", "v3")

	data, err := s.Restore("train.py")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, "v2", readFile(t, root, "train.py"))

	data, err = s.Restore("train.py")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	_, err = s.Restore("train.py")
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestStore_SameInstantNamesDoNotCollide(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	for i := 0; i < 5; i++ {
		writeFile(t, root, "a.txt", string(rune('a'+i)))
		_, err := s.Snapshot("a.txt")
		require.NoError(t, err)
	}

	entries, err := s.List("a.txt")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.True(t, e.Created.Equal(fixed))
	}

	data, err := s.Restore("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "e", string(data))
}

func TestStore_NestedAndUnrelatedNames(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	writeFile(t, root, "src/model.py", "m")
	writeFile(t, root, "src/model.py_notes", "n")
	_, err := s.Snapshot("src/model.py")
	require.NoError(t, err)

	// A file whose name merely shares the prefix is not a backup.
	writeFile(t, root, "backup/src/model.py_old", "junk")

	entries, err := s.List("src/model.py")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(root, "backup", "src"), filepath.Dir(entries[0].Path))

	none, err := s.List("other.py")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SnapshotErrors(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	_, err := s.Snapshot("missing.txt")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0755))
	_, err = s.Snapshot("dir")
	assert.Error(t, err)
}
