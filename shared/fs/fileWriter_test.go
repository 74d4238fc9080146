package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	require.NoError(t, NewFileWriter(false, false).Write(p, []byte("hi")))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestWriteRefusesOverwriteWithoutForce(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(p, []byte("old"), 0o644))

	err := NewFileWriter(false, false).Write(p, []byte("new"))
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, NewFileWriter(true, false).Write(p, []byte("new")))
	data, _ := os.ReadFile(p)
	assert.Equal(t, "new", string(data))
}

func TestWriteDryRun(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, NewFileWriter(false, true).Write(p, []byte("x")))
	assert.NoFileExists(t, p)
}
