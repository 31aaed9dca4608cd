// Package place decides where extracted content ends up and moves it
// there with collision-safe renames.
//
// Strategy selection is a fixed priority table keyed on the content
// classification and the run's options:
//
//	         Flat           Overwrite          default
//	File     into cwd       basename           claimed name
//	Match    into cwd       basename           claimed name
//	Bomb     into cwd       basename           claimed directory
package place

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/extract"
	"github.com/teranos/unfurl/logger"
)

// Decision carries the placement-relevant run options plus the one-entry
// policy answer already obtained for this archive.
type Decision struct {
	// Flat extracts everything directly into the working directory.
	Flat bool
	// Overwrite replaces existing targets instead of claiming new names.
	Overwrite bool
	// OneEntryMatch is true when the one-entry policy chose to promote a
	// sole mismatched entry rather than wrap it.
	OneEntryMatch bool
	// ExtractHere keeps the sole entry's own name instead of renaming it
	// to the derived basename.
	ExtractHere bool
}

// strategy is one row of the placement table. Rows are evaluated in
// order and the last row accepts everything.
type strategy struct {
	name      string
	canHandle func(ct extract.ContentType, d Decision) bool
	place     func(e *extract.Extractor, d Decision) (string, error)
}

var strategies = []strategy{
	{
		name: "flat",
		canHandle: func(ct extract.ContentType, d Decision) bool {
			return (d.Flat && ct != extract.ContentOneKnown) ||
				(d.Overwrite && ct == extract.ContentMatchingDirectory)
		},
		place: placeFlat,
	},
	{
		name: "overwrite",
		canHandle: func(ct extract.ContentType, d Decision) bool {
			return (d.Flat && ct == extract.ContentOneKnown) ||
				(d.Overwrite && ct != extract.ContentMatchingDirectory)
		},
		place: placeOverwrite,
	},
	{
		name: "match",
		canHandle: func(ct extract.ContentType, d Decision) bool {
			if ct == extract.ContentMatchingDirectory {
				return true
			}
			oneUnknown := ct == extract.ContentOneFile || ct == extract.ContentOneDirectory
			return oneUnknown && d.OneEntryMatch
		},
		place: placeMatch,
	},
	{
		name: "empty",
		canHandle: func(ct extract.ContentType, d Decision) bool {
			return ct == extract.ContentEmpty
		},
		place: placeEmpty,
	},
	{
		name:      "bomb",
		canHandle: func(extract.ContentType, Decision) bool { return true },
		place:     placeBomb,
	},
}

// Place moves the extractor's temporary target to its final name inside
// the extractor's working directory and returns that name, relative to
// the working directory. "." means contents were merged into the working
// directory itself; "" means there was nothing to place.
func Place(e *extract.Extractor, d Decision) (string, error) {
	var chosen *strategy
	for i := range strategies {
		if strategies[i].canHandle(e.ContentType, d) {
			chosen = &strategies[i]
			break
		}
	}
	logger.Debugw("placing extraction", "strategy", chosen.name, "content", e.ContentType)

	if e.ContentType != extract.ContentEmpty {
		if err := normalizePermissions(e.Target); err != nil {
			return "", err
		}
	}
	return chosen.place(e, d)
}

// placeFlat merges the extracted tree directly into the working
// directory, creating intermediate directories as needed.
func placeFlat(e *extract.Extractor, _ Decision) (string, error) {
	source := e.ReleaseTarget()
	err := filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(e.WorkDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.Rename(path, dest)
	})
	if err != nil {
		return "", errors.Wrap(err, "could not move extracted files here")
	}
	// Only empty directories remain under the temporary target.
	if err := os.RemoveAll(source); err != nil {
		return "", errors.Wrap(err, "could not remove temporary directory")
	}
	return ".", nil
}

// placeOverwrite renames the target onto the derived basename, removing
// whatever held that name before.
func placeOverwrite(e *extract.Extractor, _ Decision) (string, error) {
	name := e.Basename()
	dest := filepath.Join(e.WorkDir, name)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		if err := os.RemoveAll(dest); err != nil {
			return "", errors.Wrapf(err, "could not replace %s", name)
		}
	}
	if err := os.Rename(e.Target, dest); err != nil {
		return "", errors.Wrapf(err, "could not create %s", name)
	}
	e.ReleaseTarget()
	return name, nil
}

// placeMatch promotes the sole entry out of the temporary directory,
// either under its own name or under the derived basename.
func placeMatch(e *extract.Extractor, d Decision) (string, error) {
	source := filepath.Join(e.Target, e.Contents[0])
	info, err := os.Stat(source)
	if err != nil {
		return "", errors.Wrap(err, "could not inspect extracted entry")
	}

	wanted := e.Basename()
	if d.ExtractHere {
		wanted = strings.TrimSuffix(e.ContentName, "/")
	}
	name, err := checkerFor(e.WorkDir, wanted, info.IsDir()).Claim(source)
	if err != nil {
		return "", err
	}
	warnRenamed(e.Filename, wanted, name)

	if err := os.Remove(e.Target); err != nil {
		return "", errors.Wrap(err, "could not remove temporary directory")
	}
	e.ReleaseTarget()
	// Nested archives are now relative to the promoted entry.
	e.IncludedRoot = "."
	return name, nil
}

// placeEmpty removes the empty temporary directory; there is nothing to
// name. Tools that exit cleanly on an empty archive count as success.
func placeEmpty(e *extract.Extractor, _ Decision) (string, error) {
	if err := os.Remove(e.Target); err != nil {
		return "", errors.Wrap(err, "could not remove empty extraction")
	}
	e.ReleaseTarget()
	return "", nil
}

// placeBomb moves the whole temporary target to a claimed name derived
// from the archive.
func placeBomb(e *extract.Extractor, _ Decision) (string, error) {
	wanted := e.Basename()
	name, err := checkerFor(e.WorkDir, wanted, e.WantsDirectoryTarget()).Claim(e.Target)
	if err != nil {
		return "", err
	}
	warnRenamed(e.Filename, wanted, name)
	e.ReleaseTarget()
	return name, nil
}

func warnRenamed(archive, wanted, got string) {
	if wanted != got {
		logger.Warnf("extracting %s to %s", archive, got)
	}
}

// normalizePermissions grants the owner read/write everywhere and
// traversal on directories, so extracted trees with withdrawn
// permissions stay usable and removable.
func normalizePermissions(target string) error {
	return filepath.WalkDir(target, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, "could not fix permissions on extracted files")
		}
		info, err := entry.Info()
		if err != nil {
			return errors.Wrap(err, "could not fix permissions on extracted files")
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		mode := info.Mode().Perm() | 0o600
		// u+X: execute for directories and anything already executable.
		if entry.IsDir() || info.Mode().Perm()&0o111 != 0 {
			mode |= 0o100
		}
		if mode != info.Mode().Perm() {
			if err := os.Chmod(path, mode); err != nil {
				return errors.Wrap(err, "could not fix permissions on extracted files")
			}
		}
		return nil
	})
}
