package extract

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/format"
	"github.com/teranos/unfurl/logger"
)

// Stage is one command in an extraction pipeline. Stage i's stdout feeds
// stage i+1's stdin, except under the no-pipe discipline where the tool
// receives the filename positionally and standard input stays empty.
type Stage struct {
	Argv    []string
	Purpose string
}

func (s Stage) String() string {
	return shellquote.Join(s.Argv...)
}

// decoders maps a compression encoding to the command that decodes it on
// a stdin/stdout stream.
var decoders = map[format.Encoding][]string{
	format.EncodingBzip2:    {"bzcat"},
	format.EncodingGzip:     {"zcat"},
	format.EncodingCompress: {"zcat"},
	format.EncodingLzma:     {"lzcat"},
	format.EncodingXz:       {"xzcat"},
	format.EncodingLzip:     {"lzip", "-cd"},
	format.EncodingLrzip:    {"lrzcat", "-q"},
	format.EncodingZstd:     {"zstd", "-d"},
	format.EncodingBrotli:   {"brotli", "--decompress"},
}

// promptWatch accumulates a process's diagnostic output and lets the
// poll loop inspect it for a password prompt without blocking. Tools
// write prompts in fragments with no trailing newline, so inspection
// looks at the unterminated tail as well.
type promptWatch struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *promptWatch) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *promptWatch) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// tail returns the last (possibly unterminated) line written so far.
func (w *promptWatch) tail() string {
	content := w.String()
	content = strings.TrimRight(content, "\n")
	if idx := strings.LastIndexByte(content, '\n'); idx >= 0 {
		return content[idx+1:]
	}
	return content
}

// runningStage pairs a started process with its watch.
type runningStage struct {
	stage Stage
	cmd   *exec.Cmd
	watch *promptWatch
}

// startPipeline wires the stages into a connected process chain and
// starts them all. First-stage stdin is the archive under the piped
// discipline and empty under no-pipe; the final stage's stdout goes to
// finalOut (discarded when nil, unless the variant's prompts appear on
// stdout, in which case it feeds the watch).
func (e *Extractor) startPipeline(stages []Stage, dir string, finalOut *os.File) ([]*runningStage, error) {
	running := make([]*runningStage, len(stages))

	var archive *os.File
	if !e.variant.NoPipe {
		f, err := os.Open(e.Filename)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open %s", e.Filename)
		}
		archive = f
		defer archive.Close()
	}

	// Parent-side pipe ends must be closed after the children start, or
	// EOF never propagates down the chain.
	var parentEnds []*os.File
	closeParentEnds := func() {
		for _, f := range parentEnds {
			f.Close()
		}
		parentEnds = nil
	}

	var prevRead *os.File
	for i, stage := range stages {
		cmd := exec.Command(stage.Argv[0], stage.Argv[1:]...)
		cmd.Dir = dir

		watch := &promptWatch{}
		cmd.Stderr = watch

		if i == 0 {
			if archive != nil {
				cmd.Stdin = archive
			}
		} else {
			cmd.Stdin = prevRead
		}

		if i == len(stages)-1 {
			switch {
			case finalOut != nil:
				cmd.Stdout = finalOut
			case e.variant.WatchStdout:
				// 7z writes its prompts to stdout.
				cmd.Stdout = watch
			}
			// Otherwise stdout is discarded.
		} else {
			r, w, err := os.Pipe()
			if err != nil {
				closeParentEnds()
				return nil, errors.Wrap(err, "could not create pipe")
			}
			cmd.Stdout = w
			parentEnds = append(parentEnds, r, w)
			prevRead = r
		}

		running[i] = &runningStage{stage: stage, cmd: cmd, watch: watch}
	}

	for i, rs := range running {
		logger.Debugw("running command", "command", rs.stage.String(), "run", e.runID)
		if err := rs.cmd.Start(); err != nil {
			killStages(running[:i])
			closeParentEnds()
			return nil, startError(rs.stage, err)
		}
	}
	closeParentEnds()
	return running, nil
}

func startError(stage Stage, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return errors.Wrapf(errors.ErrToolUnusable, "could not run %s", stage.Argv[0])
	}
	return errors.Wrapf(err, "could not run %s", stage.Argv[0])
}

func killStages(running []*runningStage) {
	for _, rs := range running {
		if rs != nil && rs.cmd.Process != nil {
			rs.cmd.Process.Kill()
		}
	}
}

// runPipes executes the stage chain and waits for every stage with the
// re-armed poll timeout, recording exit codes in stage order.
func (e *Extractor) runPipes(stages []Stage, dir string, finalOut *os.File) error {
	if len(stages) == 0 {
		return nil
	}

	e.ranStages = stages
	running, err := e.startPipeline(stages, dir, finalOut)
	if err != nil {
		return err
	}

	e.ExitCodes = make([]int, 0, len(running))
	var firstErr error
	for _, rs := range running {
		code, err := e.waitForExit(rs, running)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		e.ExitCodes = append(e.ExitCodes, code)
	}
	for _, rs := range running {
		e.Stderr += rs.watch.String()
	}
	if firstErr != nil {
		// A password failure invalidates the accumulated prompt noise.
		if errors.Is(firstErr, errors.ErrPasswordRequired) {
			e.Stderr = ""
		}
		return firstErr
	}
	return nil
}

// waitForExit waits for one stage, re-arming a short timeout so stalled
// or prompting tools are noticed. Each expiry runs the prompt check; in
// non-interactive mode a detected prompt with no supplied password kills
// the whole chain.
func (e *Extractor) waitForExit(rs *runningStage, chain []*runningStage) (int, error) {
	done := make(chan error, 1)
	go func() { done <- rs.cmd.Wait() }()

	ticker := time.NewTicker(e.opts.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return exitCode(err), nil
		case <-e.opts.context().Done():
			killStages(chain)
			<-done
			return -1, errors.Wrap(e.opts.context().Err(), "extraction interrupted")
		case <-ticker.C:
			logger.Debugw("stage wait timeout", "command", rs.stage.Argv[0], "run", e.runID)
			e.timeoutCheck(rs)
			if e.PasswordPrompted && e.opts.Batch && e.opts.Password == "" {
				killStages(chain)
				<-done
				// The killed tool usually leaves terminal echo off.
				exec.Command("stty", "echo").Run()
				return -1, errors.Wrapf(errors.ErrPasswordRequired,
					"cannot extract encrypted archive '%s' in non-interactive mode without a password",
					e.Filename)
			}
		}
	}
}

// timeoutCheck looks for a password-prompt signature in the stage's
// diagnostic output and echoes it through to the user's terminal.
func (e *Extractor) timeoutCheck(rs *runningStage) {
	if !e.variant.PromptsForPassword || e.PasswordPrompted {
		return
	}
	tail := rs.watch.tail()
	if strings.Contains(strings.ToLower(tail), "password") {
		fmt.Fprintf(e.opts.promptOut(), "\n%s", tail)
		e.PasswordPrompted = true
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// checkSuccess evaluates the recorded exit codes in stage order.
// The first failing stage is reported unless its code is known to be
// non-fatal for the tool and output was nonetheless produced.
func (e *Extractor) checkSuccess(gotFiles bool) error {
	errIndex := -1
	errCode := 0
	for i, code := range e.ExitCodes {
		if code != 0 {
			errIndex = i
			errCode = code
			break
		}
	}
	logger.Debugw("pipeline results",
		"got_files", gotFiles,
		"exit_codes", e.ExitCodes,
		"run", e.runID,
	)
	if errIndex < 0 {
		return nil
	}

	fatal := e.variant.FatalExit != nil && e.variant.FatalExit(errCode)
	if fatal || !gotFiles {
		stage := e.ranStages[errIndex]
		return errors.Wrapf(errors.ErrExtractionFailed,
			"%s error: '%s' returned status code %d", stage.Purpose, stage, errCode)
	}
	return nil
}
