package format

import (
	"os/exec"
	"strings"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/logger"
)

// Prober identifies a file's content type from its bytes. The production
// implementation shells out to file(1); tests substitute a fake.
type Prober interface {
	Identify(filename string) (string, error)
}

// FileProber runs the file(1) command with -z (look inside compressed
// data) and -L (follow symlinks).
type FileProber struct{}

// Identify returns the first line of file(1) output for filename.
func (FileProber) Identify(filename string) (string, error) {
	output, err := exec.Command("file", "-zL", filename).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			logger.Warnf("'file' command not found, skipping magic test")
		}
		return "", errors.Wrapf(err, "could not probe %s", filename)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return line, nil
}
