package place

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/teranos/unfurl/errors"
)

// A Checker moves a finished extraction to a free final name. Probing
// and claiming are one atomic step so concurrent runs in the same
// directory can never take the same name. A file name is claimed with
// O_CREAT|O_EXCL and the source renamed over the placeholder; a
// directory name is claimed by the rename itself, since os.Rename only
// succeeds when no directory holds the destination.
type Checker interface {
	// Claim moves source to a free name, relative to the directory,
	// derived from the wanted name: the name itself, then name.1 through
	// name.9, then a generated name. It returns the claimed name.
	Claim(source string) (string, error)
}

// FileChecker claims file names.
type FileChecker struct {
	Dir  string
	Name string
}

func (c FileChecker) Claim(source string) (string, error) {
	for _, name := range candidateNames(c.Name) {
		fd, err := os.OpenFile(filepath.Join(c.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", errors.Wrapf(err, "could not reserve %s", name)
		}
		fd.Close()
		return c.moveOver(source, name)
	}
	f, err := os.CreateTemp(c.Dir, c.Name+".")
	if err != nil {
		return "", errors.Wrapf(err, "could not reserve a name for %s", c.Name)
	}
	f.Close()
	return c.moveOver(source, filepath.Base(f.Name()))
}

// moveOver replaces the reserved placeholder. The placeholder must not
// outlive a failed rename.
func (c FileChecker) moveOver(source, name string) (string, error) {
	dest := filepath.Join(c.Dir, name)
	if err := os.Rename(source, dest); err != nil {
		os.Remove(dest)
		return "", errors.Wrapf(err, "could not create %s", name)
	}
	return name, nil
}

// DirChecker claims directory names.
type DirChecker struct {
	Dir  string
	Name string
}

func (c DirChecker) Claim(source string) (string, error) {
	for _, name := range candidateNames(c.Name) {
		switch err := os.Rename(source, filepath.Join(c.Dir, name)); {
		case err == nil:
			return name, nil
		case !nameTaken(err):
			return "", errors.Wrapf(err, "could not create %s", name)
		}
	}
	for attempt := 0; attempt < 10; attempt++ {
		name := c.Name + "." + uuid.NewString()[:8]
		switch err := os.Rename(source, filepath.Join(c.Dir, name)); {
		case err == nil:
			return name, nil
		case !nameTaken(err):
			return "", errors.Wrapf(err, "could not create %s", name)
		}
	}
	return "", errors.Newf("could not claim a name for %s", c.Name)
}

// nameTaken reports whether a rename failed because something already
// holds the destination. os.Rename refuses any existing directory
// destination, even an empty one, so a collision surfaces as EEXIST,
// ENOTEMPTY or ENOTDIR depending on what sits there.
func nameTaken(err error) bool {
	return os.IsExist(err) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.ENOTDIR)
}

func candidateNames(name string) []string {
	names := make([]string, 0, 10)
	names = append(names, name)
	for i := 1; i <= 9; i++ {
		names = append(names, name+"."+strconv.Itoa(i))
	}
	return names
}

// checkerFor picks file or directory claim semantics based on what is
// being placed.
func checkerFor(dir, name string, isDir bool) Checker {
	name = strings.TrimSuffix(name, "/")
	if isDir {
		return DirChecker{Dir: dir, Name: name}
	}
	return FileChecker{Dir: dir, Name: name}
}
