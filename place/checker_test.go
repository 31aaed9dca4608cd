package place

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sourceDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload"), nil, 0o644))
	return dir
}

func TestFileCheckerClaimsBareName(t *testing.T) {
	dir := t.TempDir()
	source := sourceFile(t, "content")

	name, err := FileChecker{Dir: dir, Name: "notes.txt"}.Claim(source)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", name)

	moved, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(moved))
	assert.NoFileExists(t, source)
}

func TestFileCheckerCountsUp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt.1"), nil, 0o644))

	name, err := FileChecker{Dir: dir, Name: "notes.txt"}.Claim(sourceFile(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt.2", name)
}

func TestFileCheckerFallsBackToGeneratedName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes"), nil, 0o644))
	for i := 1; i <= 9; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes."+string(rune('0'+i))), nil, 0o644))
	}

	name, err := FileChecker{Dir: dir, Name: "notes"}.Claim(sourceFile(t, "x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "notes."))
	assert.NotContains(t, []string{
		"notes.1", "notes.2", "notes.3", "notes.4", "notes.5",
		"notes.6", "notes.7", "notes.8", "notes.9",
	}, name)
}

func TestDirCheckerClaimsBareName(t *testing.T) {
	dir := t.TempDir()
	source := sourceDir(t)

	name, err := DirChecker{Dir: dir, Name: "project"}.Claim(source)
	require.NoError(t, err)
	assert.Equal(t, "project", name)
	assert.FileExists(t, filepath.Join(dir, "project", "payload"))
	assert.NoDirExists(t, source)
}

func TestDirCheckerSkipsExistingEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "project"), 0o755))

	name, err := DirChecker{Dir: dir, Name: "project"}.Claim(sourceDir(t))
	require.NoError(t, err)
	assert.Equal(t, "project.1", name)
	assert.FileExists(t, filepath.Join(dir, "project.1", "payload"))

	// The colliding directory keeps its contents.
	entries, err := os.ReadDir(filepath.Join(dir, "project"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirCheckerSkipsPopulatedDirectory(t *testing.T) {
	dir := t.TempDir()
	held := filepath.Join(dir, "project")
	require.NoError(t, os.Mkdir(held, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(held, "keep"), nil, 0o644))

	name, err := DirChecker{Dir: dir, Name: "project"}.Claim(sourceDir(t))
	require.NoError(t, err)
	assert.Equal(t, "project.1", name)
	assert.FileExists(t, filepath.Join(held, "keep"))
}

func TestDirCheckerDoesNotCollideWithFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project"), []byte("held"), 0o644))

	name, err := DirChecker{Dir: dir, Name: "project"}.Claim(sourceDir(t))
	require.NoError(t, err)
	assert.Equal(t, "project.1", name)

	held, err := os.ReadFile(filepath.Join(dir, "project"))
	require.NoError(t, err)
	assert.Equal(t, "held", string(held))
}

func TestDirCheckerFallsBackToGeneratedName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "project"), 0o755))
	for i := 1; i <= 9; i++ {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "project."+string(rune('0'+i))), 0o755))
	}

	name, err := DirChecker{Dir: dir, Name: "project"}.Claim(sourceDir(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "project."))
	assert.FileExists(t, filepath.Join(dir, name, "payload"))
}

func TestCheckerForStripsTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	name, err := checkerFor(dir, "stuff/", true).Claim(sourceDir(t))
	require.NoError(t, err)
	assert.Equal(t, "stuff", name)
}
