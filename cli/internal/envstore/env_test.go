package envstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func read(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestSetAppendsToMissingFile(t *testing.T) {
	t.Setenv(ProjectKeyVar, "")
	s := New(t.TempDir())

	require.NoError(t, s.Set(ProjectKeyVar, "abc123"))
	assert.Equal(t, "NUXT_HUB_PROJECT_KEY=abc123\n", read(t, s.Path()))
	assert.Equal(t, "abc123", os.Getenv(ProjectKeyVar))
}

func TestSetReplacesExistingAndCommented(t *testing.T) {
	t.Setenv(ProjectKeyVar, "")
	dir := t.TempDir()
	s := New(dir)

	write(t, s.Path(), "# app\nAPI_URL=http://x\n# NUXT_HUB_PROJECT_KEY=old\nOTHER=1")
	require.NoError(t, s.Set(ProjectKeyVar, "new"))
	assert.Equal(t, "# app\nAPI_URL=http://x\nNUXT_HUB_PROJECT_KEY=new\nOTHER=1", read(t, s.Path()))

	require.NoError(t, s.Set(ProjectKeyVar, "newer"))
	v, ok, err := s.Get(ProjectKeyVar)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "newer", v)
}

func TestSetQuotesSpecialValues(t *testing.T) {
	s := New(t.TempDir())
	t.Setenv("GREETING", "")
	require.NoError(t, s.Set("GREETING", "hello world"))

	env, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "hello world", env["GREETING"])
}

func TestUnset(t *testing.T) {
	t.Setenv(ProjectKeyVar, "abc")
	s := New(t.TempDir())
	write(t, s.Path(), "A=1\nNUXT_HUB_PROJECT_KEY=abc\nB=2\n")

	found, err := s.Unset(ProjectKeyVar)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "A=1\nB=2\n", read(t, s.Path()))
	assert.Empty(t, os.Getenv(ProjectKeyVar))

	found, err = s.Unset(ProjectKeyVar)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ".env.staging"), "NUXTHUB_TEST_A=file\nNUXTHUB_TEST_B=file\n")
	t.Setenv("NUXTHUB_TEST_A", "process")
	t.Setenv("NUXTHUB_TEST_B", "")
	os.Unsetenv("NUXTHUB_TEST_B")

	s := New(dir, WithFile(".env.staging"))
	require.NoError(t, s.Load())
	assert.Equal(t, "process", os.Getenv("NUXTHUB_TEST_A"))
	assert.Equal(t, "file", os.Getenv("NUXTHUB_TEST_B"))

	require.NoError(t, New(t.TempDir()).Load())
}
