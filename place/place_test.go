package place

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/unfurl/extract"
	"github.com/teranos/unfurl/format"
)

// fakeExtraction builds an extractor whose temporary target is populated
// by hand, sidestepping any real tool run.
func fakeExtraction(t *testing.T, archiveName string, populate func(target string)) *extract.Extractor {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, archiveName)
	require.NoError(t, os.WriteFile(archive, []byte("stand-in"), 0o644))

	e, err := extract.NewExtractor(archive,
		format.Descriptor{Kind: format.KindTar},
		extract.VariantsFor(format.KindTar, false)[0],
		extract.Options{})
	require.NoError(t, err)

	target, err := os.MkdirTemp(dir, ".unfurl-")
	require.NoError(t, err)
	populate(target)

	e.Target = target
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	for _, entry := range entries {
		e.Contents = append(e.Contents, entry.Name())
	}
	return e
}

func TestPlaceBombReservesDerivedName(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		require.NoError(t, os.WriteFile(filepath.Join(target, "a"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(target, "b"), nil, 0o644))
	})
	e.ContentType = extract.ContentBomb

	name, err := Place(e, Decision{})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "project-1.0", "a"))
	assert.Empty(t, e.Target)
}

func TestPlaceBombAvoidsExistingTarget(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		require.NoError(t, os.WriteFile(filepath.Join(target, "a"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(target, "b"), nil, 0o644))
	})
	e.ContentType = extract.ContentBomb
	require.NoError(t, os.Mkdir(filepath.Join(e.WorkDir, "project-1.0"), 0o755))

	name, err := Place(e, Decision{})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0.1", name)
}

func TestPlaceMatchPromotesMatchingDirectory(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		sub := filepath.Join(target, "project-1.0")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "readme"), nil, 0o644))
	})
	e.ContentType = extract.ContentMatchingDirectory
	e.ContentName = "project-1.0/"

	name, err := Place(e, Decision{})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "project-1.0", "readme"))
	assert.Equal(t, ".", e.IncludedRoot)
}

func TestPlaceMatchAvoidsExistingDirectory(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		sub := filepath.Join(target, "project-1.0")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "readme"), nil, 0o644))
	})
	e.ContentType = extract.ContentMatchingDirectory
	e.ContentName = "project-1.0/"
	require.NoError(t, os.Mkdir(filepath.Join(e.WorkDir, "project-1.0"), 0o755))

	name, err := Place(e, Decision{})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0.1", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "project-1.0.1", "readme"))

	// The directory that held the name is untouched.
	entries, err := os.ReadDir(filepath.Join(e.WorkDir, "project-1.0"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlaceMatchRenamesSoleEntry(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		require.NoError(t, os.WriteFile(filepath.Join(target, "odd-name.txt"), nil, 0o644))
	})
	e.ContentType = extract.ContentOneFile
	e.ContentName = "odd-name.txt"

	name, err := Place(e, Decision{OneEntryMatch: true})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "project-1.0"))
	assert.NoFileExists(t, filepath.Join(e.WorkDir, "odd-name.txt"))
}

func TestPlaceMatchExtractHereKeepsEntryName(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		sub := filepath.Join(target, "stuff")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "readme"), nil, 0o644))
	})
	e.ContentType = extract.ContentOneDirectory
	e.ContentName = "stuff/"

	name, err := Place(e, Decision{OneEntryMatch: true, ExtractHere: true})
	require.NoError(t, err)
	assert.Equal(t, "stuff", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "stuff", "readme"))
}

func TestPlaceFlatMergesIntoWorkingDirectory(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		sub := filepath.Join(target, "docs")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "readme"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(target, "main.c"), nil, 0o644))
	})
	e.ContentType = extract.ContentBomb

	name, err := Place(e, Decision{Flat: true})
	require.NoError(t, err)
	assert.Equal(t, ".", name)
	assert.FileExists(t, filepath.Join(e.WorkDir, "main.c"))
	assert.FileExists(t, filepath.Join(e.WorkDir, "docs", "readme"))
}

func TestPlaceOverwriteReplacesExistingDirectory(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		require.NoError(t, os.WriteFile(filepath.Join(target, "new"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(target, "other"), nil, 0o644))
	})
	e.ContentType = extract.ContentBomb
	old := filepath.Join(e.WorkDir, "project-1.0")
	require.NoError(t, os.Mkdir(old, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(old, "stale"), nil, 0o644))

	name, err := Place(e, Decision{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "project-1.0", name)
	assert.FileExists(t, filepath.Join(old, "new"))
	assert.NoFileExists(t, filepath.Join(old, "stale"))
}

func TestPlaceEmptyRemovesTarget(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(string) {})
	e.ContentType = extract.ContentEmpty
	target := e.Target

	name, err := Place(e, Decision{})
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.NoDirExists(t, target)
}

func TestPlaceNormalizesPermissions(t *testing.T) {
	e := fakeExtraction(t, "project-1.0.tar.gz", func(target string) {
		sub := filepath.Join(target, "locked")
		require.NoError(t, os.Mkdir(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "hidden"), nil, 0o644))
		require.NoError(t, os.Chmod(filepath.Join(sub, "hidden"), 0o000))
		require.NoError(t, os.Chmod(sub, 0o500))
	})
	e.ContentType = extract.ContentBomb

	name, err := Place(e, Decision{})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(e.WorkDir, name, "locked"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm()&0o700)

	info, err = os.Stat(filepath.Join(e.WorkDir, name, "locked", "hidden"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm()&0o700)
}
