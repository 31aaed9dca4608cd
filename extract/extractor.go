// Package extract runs external decode/extract tool chains and classifies
// what they produce.
//
// No byte-level decoding happens in-process: every format is handled by
// chaining subprocesses (zcat | tar -x, rpm2cpio | cpio -i, ...) the way a
// shell pipe would, observing their exit codes and stderr. Per-format
// behavior lives in a capability table of variants, not a type hierarchy.
package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/format"
	"github.com/teranos/unfurl/logger"
)

// ContentType classifies what an extraction produced, computed exactly
// once after extraction completes and before any placement decision.
type ContentType int

const (
	ContentUnclassified ContentType = iota
	ContentEmpty
	ContentMatchingDirectory
	ContentOneFile
	ContentOneDirectory
	ContentOneKnown // single decompressed stream with a derived name
	ContentBomb
)

func (c ContentType) String() string {
	switch c {
	case ContentEmpty:
		return "empty"
	case ContentMatchingDirectory:
		return "matching directory"
	case ContentOneFile:
		return "file"
	case ContentOneDirectory:
		return "directory"
	case ContentOneKnown:
		return "file"
	case ContentBomb:
		return "multiple entries"
	default:
		return "unclassified"
	}
}

// Options carries the per-run settings an extractor needs.
type Options struct {
	// Context cancels in-flight tool chains, typically on SIGINT.
	Context context.Context
	// Password is supplied to tools that support one (unzip -P, 7z -p).
	Password string
	// Batch suppresses interactive prompts; a password prompt from a tool
	// then fails the extraction instead of blocking it.
	Batch bool
	// Metadata extracts package metadata (deb control, gem spec) instead
	// of the payload.
	Metadata bool
	// WorkDir is where extraction output lands. Defaults to the
	// directory containing the archive.
	WorkDir string
	// PollInterval is the re-armed per-wait timeout on pipeline stages.
	PollInterval time.Duration
	// TempPrefix names the temporary extraction targets.
	TempPrefix string
	// Probe corroborates compressed framing for compression-only listings.
	Probe format.Prober
	// PromptOut is where intercepted password prompts are echoed.
	PromptOut io.Writer
}

func (o *Options) context() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}

func (o *Options) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return time.Second
	}
	return o.PollInterval
}

func (o *Options) tempPrefix() string {
	if o.TempPrefix == "" {
		return ".unfurl-"
	}
	return o.TempPrefix
}

func (o *Options) promptOut() io.Writer {
	if o.PromptOut == nil {
		return os.Stdout
	}
	return o.PromptOut
}

// Extractor owns one attempt to extract one archive as one candidate
// format. It exclusively owns its temporary target until a placement
// handler takes over; on any failure path Cleanup removes the target.
type Extractor struct {
	// Filename is the absolute path of the archive.
	Filename string
	// Descriptor is the candidate (kind, encoding) this attempt uses.
	Descriptor format.Descriptor
	// WorkDir is the directory the temporary target is created in.
	WorkDir string

	// Target is the temporary extraction directory or file, absolute.
	// Ownership transfers to a placement handler on success.
	Target string
	// Contents lists the top-level entries of Target.
	Contents []string
	// ContentType is the classification of Contents.
	ContentType ContentType
	// ContentName is the sole entry's name when there is exactly one,
	// with a trailing slash for directories.
	ContentName string
	// IncludedRoot is the directory, relative to Target, under which
	// nested archives were discovered.
	IncludedRoot string
	// FileCount is the recursive count of regular files extracted.
	FileCount int
	// IncludedArchives holds relative paths of nested archive-looking files.
	IncludedArchives []string
	// ExitCodes records each stage's exit status, in stage order.
	ExitCodes []int
	// Stderr accumulates every stage's error output.
	Stderr string
	// PasswordPrompted is set when a stage was caught asking for a password.
	PasswordPrompted bool

	variant   *Variant
	opts      Options
	stages    []Stage
	ranStages []Stage
	runID     string
}

// NewExtractor builds an extractor for one candidate format. The archive
// must be openable; unreadable files fail here, before any tool runs.
func NewExtractor(filename string, desc format.Descriptor, variant *Variant, opts Options) (*Extractor, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve %s", filename)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", filename)
	}
	f.Close()

	if desc.Encoding != format.EncodingNone {
		if _, ok := decoders[desc.Encoding]; !ok {
			return nil, errors.Newf("unrecognized encoding %s", desc.Encoding)
		}
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(abs)
	}
	e := &Extractor{
		Filename:   abs,
		Descriptor: desc,
		WorkDir:    workDir,
		variant:    variant,
		opts:       opts,
		runID:      uuid.NewString()[:8],
	}

	if desc.Encoding != format.EncodingNone && !variant.NoPipe {
		e.stages = append(e.stages, Stage{Argv: decoders[desc.Encoding], Purpose: "decoding"})
	}
	if variant.Prepare != nil {
		prepared, err := variant.Prepare(e)
		if err != nil {
			return nil, err
		}
		e.stages = append(e.stages, prepared...)
	}
	return e, nil
}

// Basename derives the default extraction target name from the archive
// filename, per the variant's rule.
func (e *Extractor) Basename() string {
	return e.variant.Basename(e.Filename)
}

// FileType is the user-facing label for error reports.
func (e *Extractor) FileType() string {
	return e.variant.Kind.String()
}

// WantsDirectoryTarget reports whether collision probing for this
// extractor's final target should use directory semantics.
func (e *Extractor) WantsDirectoryTarget() bool {
	return !e.variant.Compression
}

// Extract runs the pipeline into a fresh temporary target and classifies
// the result. On failure the target is removed and ownership does not
// transfer.
func (e *Extractor) Extract() error {
	if e.variant.Compression {
		return e.extractStream()
	}

	target, err := os.MkdirTemp(e.WorkDir, e.opts.tempPrefix())
	if err != nil {
		return errors.Wrap(err, "cannot extract here")
	}
	e.Target = target

	logger.Debugw("extracting",
		"archive", e.Filename,
		"kind", e.Descriptor.Kind,
		"encoding", e.Descriptor.Encoding,
		"run", e.runID,
	)

	stages := append(append([]Stage{}, e.stages...), e.extractStage())
	if err := e.runPipes(stages, target, nil); err != nil {
		e.Cleanup()
		return err
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		e.Cleanup()
		return errors.Wrap(err, "could not list extraction output")
	}
	e.Contents = make([]string, 0, len(entries))
	for _, entry := range entries {
		e.Contents = append(e.Contents, entry.Name())
	}

	e.classifyContents()
	if err := e.checkSuccess(e.ContentType != ContentEmpty); err != nil {
		e.Cleanup()
		return err
	}
	return nil
}

// extractStream handles the compression-only variant: a single decoded
// stream written to a temporary file that will become the target.
func (e *Extractor) extractStream() error {
	out, err := os.CreateTemp(e.WorkDir, e.opts.tempPrefix())
	if err != nil {
		return errors.Wrap(err, "cannot extract here")
	}
	e.Target = out.Name()

	e.ContentType = ContentOneKnown
	e.ContentName = e.Basename()
	e.FileCount = 1
	e.IncludedRoot = "."

	stages := append([]Stage{}, e.stages...)
	if e.variant.ExtractArgv != nil {
		stages = append(stages, e.extractStage())
	}
	runErr := e.runPipes(stages, e.WorkDir, out)
	out.Close()
	if runErr != nil {
		os.Remove(e.Target)
		return runErr
	}

	info, err := os.Stat(e.Target)
	gotBytes := err == nil && info.Size() > 0
	if err := e.checkSuccess(gotBytes); err != nil {
		os.Remove(e.Target)
		return err
	}
	return nil
}

// extractStage builds the final stage of the extraction pipeline from the
// variant's command template.
func (e *Extractor) extractStage() Stage {
	argv := e.variant.ExtractArgv(e.opts.Password)
	if e.variant.NoPipe {
		expanded := make([]string, 0, len(argv)+1)
		for _, arg := range argv {
			expanded = append(expanded, expandOutputToken(arg, e.Filename))
		}
		argv = append(expanded, e.Filename)
	}
	return Stage{Argv: argv, Purpose: "extraction"}
}

// Cleanup removes the temporary target. Safe to call repeatedly and on
// the success path after ownership transfer (Target is then empty).
func (e *Extractor) Cleanup() {
	if e.Target == "" {
		return
	}
	os.RemoveAll(e.Target)
	e.Target = ""
}

// ReleaseTarget transfers ownership of the temporary target to the
// caller, which becomes responsible for removing or renaming it.
func (e *Extractor) ReleaseTarget() string {
	target := e.Target
	e.Target = ""
	return target
}

// expandOutputToken substitutes the {OUTPUT_FILE} token with the archive
// basename minus its last suffix, for tools that demand an explicit
// output name.
func expandOutputToken(arg, filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return strings.ReplaceAll(arg, "{OUTPUT_FILE}", base)
}
