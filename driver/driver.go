// Package driver runs the whole extraction session: it walks the queue
// of requested archives, tries classification candidates in order until
// one extracts, places the results, and feeds nested archives back into
// the queue.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"

	"github.com/teranos/unfurl/config"
	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/extract"
	"github.com/teranos/unfurl/format"
	"github.com/teranos/unfurl/logger"
	"github.com/teranos/unfurl/policy"
)

// Options are the per-session settings, straight from the command line.
type Options struct {
	// ListOnly lists archive members instead of extracting.
	ListOnly bool
	// Metadata extracts package metadata from .deb/.gem archives.
	Metadata bool
	// Recursive extracts nested archives without asking.
	Recursive bool
	// OneEntryDefault presets the one-entry policy: inside/rename/here.
	OneEntryDefault string
	// Batch suppresses all interactive prompts.
	Batch bool
	// Password is handed to password-capable tools.
	Password string
	// Overwrite replaces existing extraction targets.
	Overwrite bool
	// Flat extracts everything into the working directory.
	Flat bool
	// ShowExtracted prints the resulting paths after each extraction.
	ShowExtracted bool
}

// batch is one directory's worth of queued archive names.
type batch struct {
	dir   string
	names []string
}

// App is one extraction session.
type App struct {
	opts Options
	cfg  *config.Config

	oneEntry  *policy.OneEntryPolicy
	recursion *policy.RecursionPolicy
	probe     format.Prober
	out       io.Writer

	queue     []batch
	successes []string
	failures  []string

	// printedAny spaces out per-archive output blocks, and headers only
	// appear when more than one archive was requested.
	multiple   bool
	printedAny bool
}

// New builds a session. term and out may be nil for the process's own
// streams.
func New(opts Options, cfg *config.Config, term *policy.Terminal, out io.Writer) (*App, error) {
	oneEntry, err := policy.NewOneEntryPolicy(opts.OneEntryDefault, opts.Flat, opts.Batch, term)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	return &App{
		opts:      opts,
		cfg:       cfg,
		oneEntry:  oneEntry,
		recursion: policy.NewRecursionPolicy(opts.Recursive, opts.ListOnly, opts.Batch, cfg.Recursion.PromptRatio, term),
		probe:     format.FileProber{},
		out:       out,
	}, nil
}

// Run processes every requested archive plus whatever recursion adds,
// and returns the process exit code.
func (a *App) Run(ctx context.Context, filenames []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		logger.Errorf("could not determine working directory: %v", err)
		return 1
	}
	a.multiple = len(filenames) > 1
	a.queue = []batch{{dir: cwd, names: filenames}}

	for len(a.queue) > 0 {
		if ctx.Err() != nil {
			logger.Errorf("interrupted")
			return 1
		}
		current := a.queue[len(a.queue)-1]
		a.queue = a.queue[:len(a.queue)-1]

		for _, name := range current.names {
			if ctx.Err() != nil {
				logger.Errorf("interrupted")
				return 1
			}
			if err := a.process(ctx, current.dir, name); err != nil {
				a.failures = append(a.failures, name)
			} else {
				a.successes = append(a.successes, name)
			}
		}
		// Nested archives never prompt about single entries; they wrap.
		a.oneEntry.StickToWrap()
	}

	if len(a.failures) > 0 {
		return 1
	}
	return 0
}

// errTried marks "all candidates failed, details already reported".
var errTried = errors.New("no candidate could handle the archive")

// process downloads, validates, and extracts-or-lists one archive.
func (a *App) process(ctx context.Context, dir, name string) error {
	local, err := a.download(ctx, dir, name)
	if err != nil {
		logger.Errorf("%s: %v", name, err)
		return err
	}
	path := local
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, local)
	}
	if err := checkFile(path); err != nil {
		logger.Errorf("%s: %v", local, err)
		return err
	}
	return a.tryCandidates(ctx, dir, local, path)
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "cannot read")
	}
	if info.IsDir() {
		return errors.New("cannot work with a directory")
	}
	return nil
}

// attemptError records one failed candidate for the final report.
type attemptError struct {
	fileType string
	encoding format.Encoding
	err      error
	stderr   string
}

// tryCandidates walks the classification cascade, trying every variant
// of every candidate until one succeeds.
func (a *App) tryCandidates(ctx context.Context, dir, name, path string) error {
	scanner := format.NewScanner(path, a.probe)
	var attempts []attemptError

	for {
		candidate, ok := scanner.Next()
		if !ok {
			break
		}
		for _, variant := range extract.VariantsFor(candidate.Kind, a.opts.Metadata) {
			logger.Debugw("trying candidate",
				"kind", candidate.Kind,
				"encoding", candidate.Encoding,
				"source", candidate.Source,
			)
			e, err := extract.NewExtractor(path, candidate.Descriptor, variant, extract.Options{
				Context:      ctx,
				WorkDir:      dir,
				Password:     a.opts.Password,
				Batch:        a.opts.Batch,
				Metadata:     a.opts.Metadata,
				PollInterval: a.cfg.Pipeline.PollInterval(),
				TempPrefix:   a.cfg.Pipeline.TempPrefix,
				Probe:        a.probe,
				PromptOut:    a.out,
			})
			if err != nil {
				attempts = append(attempts, attemptError{
					fileType: variant.Kind.String(),
					encoding: candidate.Encoding,
					err:      err,
				})
				continue
			}

			err = a.runAction(dir, name, e)
			if err != nil {
				attempts = append(attempts, attemptError{
					fileType: e.FileType(),
					encoding: candidate.Encoding,
					err:      err,
					stderr:   e.Stderr,
				})
				e.Cleanup()
				continue
			}

			// Password prompts fill stderr with noise, not diagnostics.
			if e.Stderr != "" {
				if e.PasswordPrompted {
					logger.Debugf("error output from this process:\n%s", e.Stderr)
				} else {
					logger.Warnf("error output from this process:\n%s", e.Stderr)
				}
			}
			return nil
		}
	}

	logger.Errorf("could not handle %s", name)
	if len(attempts) == 0 {
		logger.Errorf("%v", errors.ErrUnknownFormat)
		return errors.ErrUnknownFormat
	}
	for _, attempt := range attempts {
		label := attempt.fileType
		if attempt.encoding != format.EncodingNone {
			label = fmt.Sprintf("%s-encoded %s", attempt.encoding, attempt.fileType)
		}
		logger.Errorf("treating as %s failed: %v", label, attempt.err)
		if attempt.stderr != "" {
			logger.Errorf("error output from this process:\n%s", attempt.stderr)
		}
	}
	return errTried
}

// Summary prints the session outcome for interactive runs.
func (a *App) Summary() {
	if len(a.failures) == 0 {
		return
	}
	pterm.Error.Printf("failed to handle %d of %d archive(s)\n",
		len(a.failures), len(a.failures)+len(a.successes))
}
