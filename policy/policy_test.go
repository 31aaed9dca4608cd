package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/unfurl/extract"
	"github.com/teranos/unfurl/format"
)

func testExtractor(t *testing.T, name string) *extract.Extractor {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(archive, []byte("stand-in"), 0o644))
	e, err := extract.NewExtractor(archive,
		format.Descriptor{Kind: format.KindTar},
		extract.VariantsFor(format.KindTar, false)[0],
		extract.Options{})
	require.NoError(t, err)
	return e
}

func TestParseOneEntryDefault(t *testing.T) {
	for input, want := range map[string]OneEntryAnswer{
		"h": AnswerHere, "here": AnswerHere, "HE": AnswerHere,
		"r": AnswerRename, "rename": AnswerRename,
		"i": AnswerWrap, "inside": AnswerWrap,
	} {
		got, err := parseOneEntryDefault(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseOneEntryDefault("sideways")
	assert.Error(t, err)
}

func TestOneEntryBatchDefaultsToWrap(t *testing.T) {
	p, err := NewOneEntryPolicy("", false, true, &Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})
	require.NoError(t, err)

	p.Prep("x.tar.gz", testExtractor(t, "x.tar.gz"))
	assert.False(t, p.OKForMatch())
	assert.False(t, p.ExtractHere())
}

func TestOneEntryFlatExtractsHere(t *testing.T) {
	p, err := NewOneEntryPolicy("", true, false, &Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})
	require.NoError(t, err)

	p.Prep("x.tar.gz", testExtractor(t, "x.tar.gz"))
	assert.True(t, p.OKForMatch())
	assert.True(t, p.ExtractHere())
}

func TestOneEntryPromptRename(t *testing.T) {
	out := &strings.Builder{}
	p, err := NewOneEntryPolicy("", false, false, &Terminal{In: strings.NewReader("r\n"), Out: out})
	require.NoError(t, err)

	e := testExtractor(t, "project-1.0.tar.gz")
	e.ContentType = extract.ContentOneDirectory
	e.ContentName = "odd/"
	p.Prep("project-1.0.tar.gz", e)

	assert.True(t, p.OKForMatch())
	assert.False(t, p.ExtractHere())
	assert.Contains(t, out.String(), "Expected: project-1.0")
	assert.Contains(t, out.String(), "Actual: odd")
}

func TestOneEntryPromptRetriesOnUnknownAnswer(t *testing.T) {
	p, err := NewOneEntryPolicy("", false, false,
		&Terminal{In: strings.NewReader("x\nh\n"), Out: &strings.Builder{}})
	require.NoError(t, err)

	e := testExtractor(t, "x.tar.gz")
	e.ContentType = extract.ContentOneFile
	e.ContentName = "odd.txt"
	p.Prep("x.tar.gz", e)
	assert.True(t, p.ExtractHere())
}

func TestOneEntryPromptEOFWraps(t *testing.T) {
	p, err := NewOneEntryPolicy("", false, false,
		&Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})
	require.NoError(t, err)

	e := testExtractor(t, "x.tar.gz")
	e.ContentType = extract.ContentOneFile
	e.ContentName = "odd.txt"
	p.Prep("x.tar.gz", e)
	assert.False(t, p.OKForMatch())
}

func TestStickToWrapSuppressesPrompts(t *testing.T) {
	p, err := NewOneEntryPolicy("", false, false,
		&Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})
	require.NoError(t, err)
	p.StickToWrap()

	e := testExtractor(t, "x.tar.gz")
	e.ContentType = extract.ContentOneFile
	p.Prep("x.tar.gz", e)
	assert.False(t, p.OKForMatch())
}

func TestRecursionFewArchivesSkipsPrompt(t *testing.T) {
	p := NewRecursionPolicy(false, false, false, 10,
		&Terminal{In: strings.NewReader("a\n"), Out: &strings.Builder{}})

	e := testExtractor(t, "big.tar.gz")
	e.FileCount = 51
	e.IncludedArchives = []string{"inner.tar.gz"}

	// 1 in 51 is below the one-in-ten threshold: no question asked.
	p.Prep("big.tar.gz", "big", e)
	assert.False(t, p.OKToRecurse())
}

func TestRecursionPromptAlwaysSticks(t *testing.T) {
	out := &strings.Builder{}
	p := NewRecursionPolicy(false, false, false, 10, &Terminal{In: strings.NewReader("a\n"), Out: out})

	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 4
	e.IncludedArchives = []string{"a.tar.gz", "b.zip"}

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.True(t, p.OKToRecurse())
	assert.Contains(t, out.String(), "contains 2 other archive file(s), out of 4 file(s) total")

	// The second archive must not prompt again; the reader is exhausted.
	p.Prep("bundle2.tar.gz", "bundle2", e)
	assert.True(t, p.OKToRecurse())
}

func TestRecursionListThenDecide(t *testing.T) {
	out := &strings.Builder{}
	p := NewRecursionPolicy(false, false, false, 10, &Terminal{In: strings.NewReader("l\no\n"), Out: out})

	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 2
	e.IncludedArchives = []string{"inner.tar.gz"}
	e.IncludedRoot = "wrapper"

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.True(t, p.OKToRecurse())
	assert.Contains(t, out.String(), filepath.Join("bundle", "wrapper", "inner.tar.gz"))
}

func TestRecursionListOnlyNeverRecurses(t *testing.T) {
	p := NewRecursionPolicy(false, true, false, 10, &Terminal{In: strings.NewReader("a\n"), Out: &strings.Builder{}})

	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 1
	e.IncludedArchives = []string{"inner.tar.gz"}

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.False(t, p.OKToRecurse())
}

func TestRecursionRecursiveFlagAlwaysRecurses(t *testing.T) {
	p := NewRecursionPolicy(true, false, false, 10, &Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})

	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 1
	e.IncludedArchives = []string{"inner.tar.gz"}

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.True(t, p.OKToRecurse())
}

func TestRecursionBatchNeverPrompts(t *testing.T) {
	out := &strings.Builder{}
	p := NewRecursionPolicy(false, false, true, 10, &Terminal{In: strings.NewReader("a\n"), Out: out})

	// Every extracted file is an archive, well past the prompt threshold.
	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 2
	e.IncludedArchives = []string{"a.tar.gz", "b.zip"}

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.False(t, p.OKToRecurse())
	assert.Empty(t, out.String())
}

func TestRecursionRecursiveFlagOverridesBatch(t *testing.T) {
	p := NewRecursionPolicy(true, false, true, 10, &Terminal{In: strings.NewReader(""), Out: &strings.Builder{}})

	e := testExtractor(t, "bundle.tar.gz")
	e.FileCount = 1
	e.IncludedArchives = []string{"inner.tar.gz"}

	p.Prep("bundle.tar.gz", "bundle", e)
	assert.True(t, p.OKToRecurse())
}
