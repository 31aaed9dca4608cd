package extract

import (
	"path/filepath"
	"strings"

	"github.com/teranos/unfurl/format"
)

// stripBasename derives the default extraction directory name from an
// archive filename. It is conservative about what it removes, but still
// does the right thing for stacked suffixes like .tar.gz and for
// off-the-wall extensions:
//
//  1. remove any compression suffix
//  2. remove any commonly known format suffix that remains
//  3. if neither did anything, remove anything that looks almost
//     certainly like an extension (under 5 characters)
func stripBasename(filename string) string {
	pieces := strings.Split(filepath.Base(filename), ".")
	origLen := len(pieces)

	if len(pieces) > 1 {
		if _, ok := format.EncodingForExtension(pieces[len(pieces)-1]); ok {
			pieces = pieces[:len(pieces)-1]
		}
	}
	if len(pieces) > 1 && format.IsFormatExtension(pieces[len(pieces)-1]) {
		pieces = pieces[:len(pieces)-1]
	}
	if len(pieces) == origLen && origLen > 1 && len(pieces[len(pieces)-1]) < 5 {
		pieces = pieces[:len(pieces)-1]
	}
	return strings.Join(pieces, ".")
}

// compressionBasename strips only the compression suffix: readme.txt.gz
// decodes to a file named readme.txt.
func compressionBasename(filename string) string {
	pieces := strings.Split(filepath.Base(filename), ".")
	if len(pieces) > 1 {
		if _, ok := format.EncodingForExtension(pieces[len(pieces)-1]); ok {
			pieces = pieces[:len(pieces)-1]
		}
	}
	return strings.Join(pieces, ".")
}

// rpmBasename additionally strips the architecture piece left after
// .rpm: foo-1.2-3.x86_64.rpm becomes foo-1.2-3.
func rpmBasename(filename string) string {
	pieces := strings.Split(filepath.Base(filename), ".")
	if len(pieces) == 1 {
		return pieces[0]
	}
	if pieces[len(pieces)-1] != "rpm" {
		return stripBasename(filename)
	}
	pieces = pieces[:len(pieces)-1]
	if len(pieces) == 1 {
		return pieces[0]
	}
	if len(pieces[len(pieces)-1]) < 8 {
		pieces = pieces[:len(pieces)-1]
	}
	return strings.Join(pieces, ".")
}

// debBasename strips the version-and-architecture tail after the first
// underscore: name_1.2-3_amd64.deb becomes name_1.2-3.
func debBasename(filename string) string {
	pieces := strings.Split(filepath.Base(filename), "_")
	if len(pieces) == 1 {
		return pieces[0]
	}
	last := pieces[len(pieces)-1]
	if len(last) > 10 || !strings.HasSuffix(last, ".deb") {
		return stripBasename(filename)
	}
	return strings.Join(pieces[:len(pieces)-1], "_")
}

// shieldBasename drops the residual .hdr that InstallShield header files
// carry after the generic rule has run.
func shieldBasename(filename string) string {
	result := stripBasename(filename)
	return strings.TrimSuffix(result, ".hdr")
}

// gemMetadataBasename names the extracted gemspec after the full archive
// filename so it never collides with the payload extraction.
func gemMetadataBasename(filename string) string {
	return filepath.Base(filename) + "-metadata.txt"
}
