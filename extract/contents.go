package extract

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/unfurl/format"
)

// classifyContents computes the content type from the top-level entries.
// It runs exactly once per extraction, after the pipeline completes and
// before any placement decision.
func (e *Extractor) classifyContents() {
	if e.variant.BombAlways {
		// Package containers carry multiple top-level entries by design;
		// single-entry matching would only produce misleading layouts.
		e.ContentType = ContentBomb
		e.checkIncludedArchives()
		return
	}

	switch len(e.Contents) {
	case 0:
		e.ContentType = ContentEmpty
	case 1:
		sole := e.Contents[0]
		info, err := os.Stat(filepath.Join(e.Target, sole))
		isDir := err == nil && info.IsDir()
		switch {
		case e.Basename() == sole:
			e.ContentType = ContentMatchingDirectory
		case isDir:
			e.ContentType = ContentOneDirectory
		default:
			e.ContentType = ContentOneFile
		}
		e.ContentName = sole
		if isDir {
			e.ContentName += "/"
		}
	default:
		e.ContentType = ContentBomb
	}
	e.checkIncludedArchives()
}

// checkIncludedArchives walks the extracted tree counting regular files
// and collecting paths that look like archives by the cheap classifier
// tiers. The paths are relative to IncludedRoot.
func (e *Extractor) checkIncludedArchives() {
	e.IncludedRoot = "."
	if strings.HasSuffix(e.ContentName, "/") {
		e.IncludedRoot = strings.TrimSuffix(e.ContentName, "/")
	}

	root := filepath.Join(e.Target, e.IncludedRoot)
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		e.FileCount++
		if format.LooksLikeArchive(d.Name()) {
			if rel, err := filepath.Rel(root, path); err == nil {
				e.IncludedArchives = append(e.IncludedArchives, rel)
			}
		}
		return nil
	})
}
