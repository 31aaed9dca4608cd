// Package policy implements the interactive decision state machines for
// mismatched single entries and for nested archives.
//
// Both policies distinguish a sticky answer, which holds for the rest of
// the session, from a per-archive answer. Non-interactive runs seed the
// sticky answer up front so no prompt can ever block.
package policy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/extract"
)

// OneEntryAnswer says what to do with an archive whose single entry does
// not carry the archive's own name.
type OneEntryAnswer int

const (
	// AnswerWrap keeps the entry inside a directory named after the
	// archive. The safe default.
	AnswerWrap OneEntryAnswer = iota
	// AnswerRename promotes the entry under the archive-derived name.
	AnswerRename
	// AnswerHere promotes the entry under its own name.
	AnswerHere
)

// RecurseAnswer says what to do about archives found inside an
// extraction.
type RecurseAnswer int

const (
	// RecurseNotNow skips the nested archives this once.
	RecurseNotNow RecurseAnswer = iota
	// RecurseOnce extracts this archive's nested archives.
	RecurseOnce
	// RecurseAlways extracts nested archives for the rest of the session.
	RecurseAlways
	// RecurseNever skips nested archives for the rest of the session.
	RecurseNever
	// RecurseList shows the nested archive paths and asks again.
	RecurseList
)

// Terminal is the prompt channel shared by the policies. The zero value
// talks to the process's own standard streams.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (t *Terminal) out() io.Writer {
	if t.Out == nil {
		return os.Stdout
	}
	return t.Out
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		in := t.In
		if in == nil {
			in = os.Stdin
		}
		t.reader = bufio.NewReader(in)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prints the question and the choices, then reads answers until one
// matches. EOF on the input falls back to the default answer.
func (t *Terminal) ask(question []string, choices []string, prompt string, answers map[string]int) int {
	for {
		for _, line := range question {
			fmt.Fprintln(t.out(), line)
		}
		fmt.Fprintln(t.out(), "You can:")
		for _, choice := range choices {
			fmt.Fprintf(t.out(), " * %s\n", choice)
		}
		fmt.Fprint(t.out(), prompt)

		input, err := t.readLine()
		if err != nil {
			fmt.Fprintln(t.out())
			return answers[""]
		}
		if answer, ok := answers[strings.ToLower(input)]; ok {
			return answer
		}
		fmt.Fprintln(t.out())
	}
}

// OneEntryPolicy decides between wrapping, renaming, and extracting a
// mismatched single entry in place.
type OneEntryPolicy struct {
	term    *Terminal
	sticky  *OneEntryAnswer
	current OneEntryAnswer
}

// NewOneEntryPolicy seeds the sticky answer from the run options.
// defaultAnswer accepts any prefix of "inside", "rename" or "here", or
// empty for no preset. Flat runs always extract here; non-interactive
// runs wrap.
func NewOneEntryPolicy(defaultAnswer string, flat, batch bool, term *Terminal) (*OneEntryPolicy, error) {
	if term == nil {
		term = &Terminal{}
	}
	p := &OneEntryPolicy{term: term}

	switch {
	case flat:
		p.setSticky(AnswerHere)
	case defaultAnswer != "":
		answer, err := parseOneEntryDefault(defaultAnswer)
		if err != nil {
			return nil, err
		}
		p.setSticky(answer)
	case batch:
		p.setSticky(AnswerWrap)
	}
	return p, nil
}

func parseOneEntryDefault(value string) (OneEntryAnswer, error) {
	v := strings.ToLower(value)
	switch {
	case strings.HasPrefix("here", v):
		return AnswerHere, nil
	case strings.HasPrefix("rename", v):
		return AnswerRename, nil
	case strings.HasPrefix("inside", v):
		return AnswerWrap, nil
	}
	return AnswerWrap, errors.Newf("bad value %q for one-entry default", value)
}

func (p *OneEntryPolicy) setSticky(a OneEntryAnswer) {
	p.sticky = &a
}

// StickToWrap makes every later archive wrap without asking. The driver
// applies this before recursing so nested archives never prompt.
func (p *OneEntryPolicy) StickToWrap() {
	p.setSticky(AnswerWrap)
}

var oneEntryAnswers = map[string]int{
	"h": int(AnswerHere),
	"i": int(AnswerWrap),
	"r": int(AnswerRename),
	"":  int(AnswerWrap),
}

// Prep fixes the answer for one archive, prompting when no sticky answer
// exists.
func (p *OneEntryPolicy) Prep(archiveName string, e *extract.Extractor) {
	if p.sticky != nil {
		p.current = *p.sticky
		return
	}

	kind := e.ContentType.String()
	question := []string{
		fmt.Sprintf("%s contains one %s but its name doesn't match.", archiveName, kind),
		" Expected: " + e.Basename(),
		"   Actual: " + strings.TrimSuffix(e.ContentName, "/"),
	}
	choices := []string{
		fmt.Sprintf("extract the %s _I_nside a new directory named %s", kind, e.Basename()),
		fmt.Sprintf("extract the %s and _R_ename it %s", kind, e.Basename()),
		fmt.Sprintf("extract the %s _H_ere", kind),
	}
	p.current = OneEntryAnswer(p.term.ask(question, choices,
		"What do you want to do?  (I/r/h) ", oneEntryAnswers))
}

// OKForMatch reports whether the current answer allows promoting the
// entry out of its wrapper.
func (p *OneEntryPolicy) OKForMatch() bool {
	return p.current == AnswerRename || p.current == AnswerHere
}

// ExtractHere reports whether the current answer keeps the entry's own
// name.
func (p *OneEntryPolicy) ExtractHere() bool {
	return p.current == AnswerHere
}

// RecursionPolicy decides whether nested archives get extracted too.
type RecursionPolicy struct {
	term    *Terminal
	sticky  *RecurseAnswer
	current RecurseAnswer

	// promptRatio suppresses the prompt when nested archives make up
	// less than one part in promptRatio of the extracted files.
	promptRatio int
}

// NewRecursionPolicy seeds the sticky answer from the run options:
// listing runs never recurse, recursive runs always do, and
// non-interactive runs skip nested archives instead of prompting.
func NewRecursionPolicy(recursive, listOnly, batch bool, promptRatio int, term *Terminal) *RecursionPolicy {
	if term == nil {
		term = &Terminal{}
	}
	if promptRatio <= 0 {
		promptRatio = 10
	}
	p := &RecursionPolicy{term: term, promptRatio: promptRatio}
	switch {
	case listOnly:
		answer := RecurseNever
		p.sticky = &answer
	case recursive:
		answer := RecurseAlways
		p.sticky = &answer
	case batch:
		answer := RecurseNotNow
		p.sticky = &answer
	}
	return p
}

var recurseAnswers = map[string]int{
	"o": int(RecurseOnce),
	"a": int(RecurseAlways),
	"n": int(RecurseNotNow),
	"v": int(RecurseNever),
	"l": int(RecurseList),
	"":  int(RecurseNotNow),
}

var recurseChoices = []string{
	"_A_lways extract included archives during this session",
	"extract included archives this _O_nce",
	"choose _N_ot to extract included archives this once",
	"ne_V_er extract included archives during this session",
	"_L_ist included archives",
}

// Prep fixes the answer for one archive. Few nested archives relative to
// the total file count means they are probably data, not payload, and no
// prompt appears.
func (p *RecursionPolicy) Prep(archiveName, target string, e *extract.Extractor) {
	count := len(e.IncludedArchives)
	if p.sticky != nil || count*p.promptRatio <= e.FileCount {
		if p.sticky != nil {
			p.current = *p.sticky
		} else {
			p.current = RecurseNotNow
		}
		return
	}

	question := []string{fmt.Sprintf(
		"%s contains %d other archive file(s), out of %d file(s) total.",
		archiveName, count, e.FileCount)}
	if target == "." {
		target = ""
	}
	root := e.IncludedRoot
	if root == "." {
		root = ""
	}
	for {
		p.current = RecurseAnswer(p.term.ask(question, recurseChoices,
			"What do you want to do?  (a/o/N/v/l) ", recurseAnswers))
		if p.current != RecurseList {
			break
		}
		fmt.Fprintln(p.term.out())
		for _, name := range e.IncludedArchives {
			fmt.Fprintln(p.term.out(), filepath.Join(target, root, name))
		}
		fmt.Fprintln(p.term.out())
	}
	if p.current == RecurseAlways || p.current == RecurseNever {
		answer := p.current
		p.sticky = &answer
	}
}

// OKToRecurse reports whether the nested archives should be extracted.
func (p *RecursionPolicy) OKToRecurse() bool {
	return p.current == RecurseAlways || p.current == RecurseOnce
}
