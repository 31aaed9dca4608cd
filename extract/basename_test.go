package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripBasename(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"project-1.0.tar.gz", "project-1.0"},
		{"project-1.0.tgz", "project-1.0"},
		{"project-1.0.tar.bz2", "project-1.0"},
		{"project-1.0.zip", "project-1.0"},
		{"project-1.0.tar", "project-1.0"},
		// Unknown but short residual extensions still come off.
		{"snapshot.wtf", "snapshot"},
		// Long unknown extensions stay.
		{"snapshot.notanext", "snapshot.notanext"},
		// Directory components never matter.
		{"/tmp/downloads/project-1.0.tar.xz", "project-1.0"},
		// No dot at all.
		{"archive", "archive"},
		// A dotted version with no real extension loses only one piece.
		{"project-1.0.5", "project-1.0"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripBasename(tc.filename), tc.filename)
	}
}

func TestCompressionBasenameStripsOnlyEncoding(t *testing.T) {
	assert.Equal(t, "readme.txt", compressionBasename("readme.txt.gz"))
	assert.Equal(t, "readme.txt", compressionBasename("/srv/readme.txt.bz2"))
	// The format suffix under the encoding is kept.
	assert.Equal(t, "project.tar", compressionBasename("project.tar.xz"))
	// Nothing recognizable, nothing removed.
	assert.Equal(t, "readme.txt", compressionBasename("readme.txt"))
}

func TestRPMBasename(t *testing.T) {
	assert.Equal(t, "fuse-2.9.9-15.fc33", rpmBasename("fuse-2.9.9-15.fc33.x86_64.rpm"))
	assert.Equal(t, "tree-1.8.0-10", rpmBasename("tree-1.8.0-10.noarch.rpm"))
	// Architecture pieces of 8+ characters are ambiguous and kept.
	assert.Equal(t, "pkg-1.0.someverylongpiece", rpmBasename("pkg-1.0.someverylongpiece.rpm"))
	// Not actually named like an rpm: generic rule.
	assert.Equal(t, "fuse-2.9.9", rpmBasename("fuse-2.9.9.tar.gz"))
}

func TestDebBasename(t *testing.T) {
	assert.Equal(t, "tree_1.8.0-1", debBasename("tree_1.8.0-1_amd64.deb"))
	assert.Equal(t, "hello_2.10-2", debBasename("hello_2.10-2_i386.deb"))
	// Tail too long to be an arch piece: generic rule.
	assert.Equal(t, "weird_name_withaverylongtail", debBasename("weird_name_withaverylongtail.deb"))
	// No underscore at all.
	assert.Equal(t, "plain.deb", debBasename("plain.deb"))
}

func TestShieldBasenameDropsHdr(t *testing.T) {
	assert.Equal(t, "data1", shieldBasename("data1.hdr"))
	assert.Equal(t, "data1", shieldBasename("data1.cab"))
}

func TestGemMetadataBasename(t *testing.T) {
	assert.Equal(t, "rake-13.0.6.gem-metadata.txt", gemMetadataBasename("/gems/rake-13.0.6.gem"))
}

func TestExpandOutputToken(t *testing.T) {
	assert.Equal(t, "notes", expandOutputToken("{OUTPUT_FILE}", "/tmp/notes.br"))
	assert.Equal(t, "--output=notes", expandOutputToken("--output={OUTPUT_FILE}", "notes.br"))
	assert.Equal(t, "-x", expandOutputToken("-x", "notes.br"))
}
