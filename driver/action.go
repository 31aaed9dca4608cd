package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/teranos/unfurl/extract"
	"github.com/teranos/unfurl/logger"
	"github.com/teranos/unfurl/place"
)

// runAction performs the session's action (list or extract) for one
// already-built extractor. name is the archive's name as requested, used
// for prompts and headers.
func (a *App) runAction(dir, name string, e *extract.Extractor) error {
	if a.opts.ListOnly {
		return a.listArchive(name, e)
	}
	return a.extractArchive(dir, name, e)
}

// showHeader prints the "archive:" line that separates output blocks
// when several archives were requested.
func (a *App) showHeader(name string) {
	if !a.multiple {
		return
	}
	if a.printedAny {
		fmt.Fprintln(a.out)
	}
	a.printedAny = true
	fmt.Fprintf(a.out, "%s:\n", name)
}

// listArchive streams member names to the output. The first name is
// fetched before the header so a wrong-format candidate fails silently
// instead of printing an empty block.
func (a *App) listArchive(name string, e *extract.Extractor) error {
	listing, err := e.List()
	if err != nil {
		return err
	}

	first, ok := listing.Next()
	if !ok {
		if err := listing.Err(); err != nil {
			return err
		}
		a.showHeader(name)
		return nil
	}
	a.showHeader(name)
	fmt.Fprintln(a.out, first)

	for {
		member, ok := listing.Next()
		if !ok {
			break
		}
		fmt.Fprintln(a.out, member)
	}
	if err := listing.Err(); err != nil {
		logger.Errorf("lister failed: ignore above listing for %s", name)
		return err
	}
	return nil
}

// extractArchive extracts, asks the one-entry question if needed, places
// the result, and queues any nested archives.
func (a *App) extractArchive(dir, name string, e *extract.Extractor) error {
	if err := e.Extract(); err != nil {
		return err
	}

	if e.ContentType == extract.ContentOneFile || e.ContentType == extract.ContentOneDirectory {
		a.oneEntry.Prep(name, e)
	}
	target, err := place.Place(e, place.Decision{
		Flat:          a.opts.Flat,
		Overwrite:     a.opts.Overwrite,
		OneEntryMatch: a.oneEntry.OKForMatch(),
		ExtractHere:   a.oneEntry.ExtractHere(),
	})
	if err != nil {
		return err
	}

	if a.opts.ShowExtracted {
		a.showExtraction(dir, name, target, e)
	}
	a.recurse(dir, name, target, e)
	return nil
}

// showExtraction prints what landed where, one path per line, the way a
// verbose copy would.
func (a *App) showExtraction(dir, name, target string, e *extract.Extractor) {
	a.showHeader(name)
	if target == "" {
		return
	}
	if target == "." {
		names := append([]string{}, e.Contents...)
		sort.Strings(names)
		for _, entry := range names {
			a.printTree(dir, entry)
		}
		return
	}
	a.printTree(dir, target)
}

func (a *App) printTree(dir, rel string) {
	full := filepath.Join(dir, rel)
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		fmt.Fprintln(a.out, rel)
		return
	}
	fmt.Fprintf(a.out, "%s/\n", rel)
	entries, err := os.ReadDir(full)
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, entry := range names {
		a.printTree(dir, filepath.Join(rel, entry))
	}
}

// recurse queues nested archives for extraction if the recursion policy
// allows it. Each nested archive is queued under the directory it was
// extracted into, so relative placement behaves as if the user had run
// the tool there.
func (a *App) recurse(dir, name, target string, e *extract.Extractor) {
	if len(e.IncludedArchives) == 0 {
		return
	}
	a.recursion.Prep(name, target, e)
	if !a.recursion.OKToRecurse() {
		return
	}

	for _, included := range e.IncludedArchives {
		tail, base := filepath.Split(included)
		parts := []string{dir}
		if target != "" {
			if info, err := os.Stat(filepath.Join(dir, target)); err == nil && info.IsDir() {
				parts = append(parts, target)
			}
		}
		parts = append(parts, e.IncludedRoot, tail)
		directory := filepath.Join(parts...)
		logger.Debugw("queueing nested archive", "archive", base, "directory", directory)
		a.enqueue(directory, base)
	}
}

func (a *App) enqueue(dir, name string) {
	a.multiple = true
	for i := range a.queue {
		if a.queue[i].dir == dir {
			a.queue[i].names = append(a.queue[i].names, name)
			return
		}
	}
	a.queue = append(a.queue, batch{dir: dir, names: []string{name}})
}
