package extract

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/format"
)

// lineParser turns one raw line of a tool's listing output into a member
// name. emit reports whether name is a member; stop ends the listing
// (trailer reached). Parsers are stateful closures, one fresh per run.
type lineParser func(line string) (name string, emit, stop bool)

// Listing iterates member names from a running listing pipeline. It is
// single-pass: once exhausted it has also reaped the subprocesses and
// recorded their exit codes on the extractor.
type Listing struct {
	scanner *bufio.Scanner
	parse   lineParser
	finish  func() error

	queue   []string
	err     error
	done    bool
	stopped bool
}

// Next returns the next member name. It returns false when the listing
// is exhausted; check Err afterwards.
func (l *Listing) Next() (string, bool) {
	if len(l.queue) > 0 {
		name := l.queue[0]
		l.queue = l.queue[1:]
		return name, true
	}
	if l.done || l.scanner == nil {
		return "", false
	}
	for l.scanner.Scan() {
		// After a trailer the remaining output is drained so the tool
		// never blocks on a full pipe.
		if l.stopped {
			continue
		}
		name, emit, stop := l.parse(l.scanner.Text())
		if stop {
			l.stopped = true
			continue
		}
		if emit {
			return name, true
		}
	}
	l.done = true
	l.err = l.scanner.Err()
	if finishErr := l.finish(); finishErr != nil && l.err == nil {
		l.err = finishErr
	}
	return "", false
}

// Err reports any read, wait, or exit-status failure once Next has
// returned false.
func (l *Listing) Err() error {
	return l.err
}

// Close drains the remaining output and reaps the pipeline. Safe after
// full or partial consumption.
func (l *Listing) Close() error {
	for {
		if _, ok := l.Next(); !ok {
			break
		}
	}
	return l.err
}

func staticListing(names ...string) *Listing {
	return &Listing{queue: names, done: true, finish: func() error { return nil }}
}

// List starts the variant's listing pipeline and returns an iterator
// over member names.
func (e *Extractor) List() (*Listing, error) {
	if e.variant.NoListing {
		return nil, errors.Wrapf(errors.ErrExtractionFailed,
			"cannot list contents of a %s", e.FileType())
	}
	if e.variant.Compression {
		return e.listCompressed()
	}

	argv := append([]string{}, e.variant.ListArgv...)
	if e.variant.NoPipe {
		argv = append(argv, e.Filename)
	}
	stages := append(append([]Stage{}, e.stages...), Stage{Argv: argv, Purpose: "listing"})

	parse := identityParser()
	if e.variant.NewListParser != nil {
		parse = e.variant.NewListParser()
	}
	return e.runListing(stages, parse)
}

// listCompressed corroborates the compressed framing with the magic
// probe, then reports the single derived member name. There is no tool
// that lists "the contents" of a bare compressed stream.
func (e *Extractor) listCompressed() (*Listing, error) {
	var prober format.Prober = format.FileProber{}
	if e.opts.Probe != nil {
		prober = e.opts.Probe
	}
	compressed := false
	for _, cand := range format.ByMagic(e.Filename, prober) {
		if cand.Kind == format.KindCompress {
			compressed = true
			break
		}
	}
	if !compressed {
		return nil, errors.Wrapf(errors.ErrExtractionFailed,
			"%s does not look like a compressed file", e.Filename)
	}
	return staticListing(e.Basename()), nil
}

// runListing starts a stage chain whose final stdout feeds the returned
// iterator. The processes are reaped when the iterator is exhausted.
func (e *Extractor) runListing(stages []Stage, parse lineParser) (*Listing, error) {
	e.ranStages = stages
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not create pipe")
	}
	running, err := e.startPipeline(stages, e.WorkDir, w)
	w.Close()
	if err != nil {
		r.Close()
		return nil, err
	}

	finish := func() error {
		r.Close()
		e.ExitCodes = make([]int, 0, len(running))
		var firstErr error
		for _, rs := range running {
			code, waitErr := e.waitForExit(rs, running)
			if waitErr != nil && firstErr == nil {
				firstErr = waitErr
			}
			e.ExitCodes = append(e.ExitCodes, code)
		}
		for _, rs := range running {
			e.Stderr += rs.watch.String()
		}
		if firstErr != nil {
			return firstErr
		}
		return e.checkSuccess(false)
	}
	return &Listing{scanner: bufio.NewScanner(r), parse: parse, finish: finish}, nil
}

func identityParser() lineParser {
	return func(line string) (string, bool, bool) {
		return line, true, false
	}
}

// lzhBorderIndex reports the column where filenames start, derived from
// a border line made of dashes and spaces. Returns -1 for non-border
// lines.
func lzhBorderIndex(line string) int {
	lastSpace := -1
	for i, ch := range line {
		switch ch {
		case ' ':
			lastSpace = i
		case '-':
		default:
			return -1
		}
	}
	if lastSpace < 0 {
		return -1
	}
	return lastSpace + 1
}

// lzhParser reads lha's columnar table: names start at the column after
// the last space in the opening border and the closing border ends the
// table.
func lzhParser() lineParser {
	fnIndex := -1
	return func(line string) (string, bool, bool) {
		idx := lzhBorderIndex(line)
		if fnIndex < 0 {
			if idx >= 0 {
				fnIndex = idx
			}
			return "", false, false
		}
		if idx >= 0 {
			return "", false, true
		}
		if len(line) > fnIndex {
			return line[fnIndex:], true, false
		}
		return "", false, false
	}
}

// sevenParser takes the last space-separated field of each bare-format
// (-ba) line.
func sevenParser() lineParser {
	return func(line string) (string, bool, bool) {
		if idx := strings.LastIndexByte(line, ' '); idx >= 0 {
			return line[idx+1:], true, false
		}
		return "", false, false
	}
}

var zstdBorderRe = regexp.MustCompile(`^[- ]+$`)

// zstdParser reads zstd -l output: the opening border fixes the name
// column, the closing border ends the table.
func zstdParser() lineParser {
	fnIndex := -1
	return func(line string) (string, bool, bool) {
		if line != "" && zstdBorderRe.MatchString(line) {
			if fnIndex >= 0 {
				return "", false, true
			}
			fnIndex = strings.LastIndexByte(line, ' ') + 1
			return "", false, false
		}
		if fnIndex >= 0 && len(line) > fnIndex {
			return line[fnIndex:], true, false
		}
		return "", false, false
	}
}

var cabBorderRe = regexp.MustCompile(`^[-+]+$`)

// cabParser reads cabextract -l output: rows after the border are pipe
// separated with the name in the third column.
func cabParser() lineParser {
	inside := false
	return func(line string) (string, bool, bool) {
		if !inside {
			if cabBorderRe.MatchString(line) {
				inside = true
			}
			return "", false, false
		}
		parts := strings.SplitN(line, " | ", 3)
		if len(parts) < 3 {
			return "", false, true
		}
		return parts[2], true, false
	}
}

var (
	shieldPrefixRe = regexp.MustCompile(`^\s+\d+\s+`)
	shieldEndRe    = regexp.MustCompile(`^\s+-+\s+-+\s*$`)
)

// shieldParser reads unshield l output: indexed rows carry names, the
// dashed summary row ends the table.
func shieldParser() lineParser {
	return func(line string) (string, bool, bool) {
		if shieldEndRe.MatchString(line) {
			return "", false, true
		}
		if m := shieldPrefixRe.FindString(line); m != "" {
			return line[len(m):], true, false
		}
		return "", false, false
	}
}

var rarBorderRe = regexp.MustCompile(`^-+$`)

// rarParser reads unrar v output between the two borders, where entries
// alternate between a name line and an attribute line.
func rarParser() lineParser {
	inside := false
	isFile := true
	return func(line string) (string, bool, bool) {
		if rarBorderRe.MatchString(line) {
			if inside {
				return "", false, true
			}
			inside = true
			return "", false, false
		}
		if !inside {
			return "", false, false
		}
		emit := isFile
		isFile = !isFile
		if emit {
			return strings.TrimSpace(line), true, false
		}
		return "", false, false
	}
}

// unarParser reads lsar output: the first line names the archive itself,
// later lines may carry a parenthesized size suffix.
func unarParser() lineParser {
	first := true
	return func(line string) (string, bool, bool) {
		if first {
			first = false
			return "", false, false
		}
		if line == "" {
			return "", false, false
		}
		name := line
		if idx := strings.LastIndexByte(line, '('); idx >= 0 {
			name = line[:idx]
		}
		return strings.TrimSpace(name), true, false
	}
}

var arjPrefixRe = regexp.MustCompile(`^\d+\)\s+`)

// arjParser reads arj v output: member rows are numbered "N) name".
func arjParser() lineParser {
	return func(line string) (string, bool, bool) {
		if m := arjPrefixRe.FindString(line); m != "" {
			return line[len(m):], true, false
		}
		return "", false, false
	}
}
