package extract

import (
	"regexp"
	"strings"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/format"
)

// Variant is the capability bundle for one archive kind: command
// templates, a listing parser, a basename rule, and the flags that steer
// the pipeline engine. Variants are pure data+function bundles selected
// through a dispatch table.
type Variant struct {
	Kind format.Kind

	// NoPipe marks tools that refuse archives on standard input; the
	// filename is appended to the command line instead.
	NoPipe bool
	// WatchStdout marks tools that write their password prompt to stdout
	// rather than stderr.
	WatchStdout bool
	// BombAlways forces flat-bomb classification; package containers
	// routinely hold multiple top-level entries by design.
	BombAlways bool
	// Compression marks the single-stream variant whose target is a file.
	Compression bool
	// PromptsForPassword enables the prompt sniffer during waits.
	PromptsForPassword bool
	// NoListing marks formats whose tool cannot list members.
	NoListing bool

	// ExtractArgv builds the extraction command, injecting the password
	// where the tool supports one. Nil when the prefix stages already
	// produce the output stream (compression, gem metadata).
	ExtractArgv func(password string) []string
	// ListArgv is the member-listing command.
	ListArgv []string
	// NewListParser returns a fresh stateful parser turning raw listing
	// lines into member names. Nil means lines pass through unchanged.
	NewListParser func() lineParser
	// Basename derives the default target name from the archive filename.
	Basename func(filename string) string
	// Prepare contributes leading pipeline stages (container unwrapping).
	Prepare func(e *Extractor) ([]Stage, error)
	// FatalExit reports exit codes that are errors even when output was
	// produced. Nil means any exit code is tolerable once files exist.
	FatalExit func(code int) bool
}

var tarVariant = &Variant{
	Kind:        format.KindTar,
	ExtractArgv: func(string) []string { return []string{"tar", "-x"} },
	ListArgv:    []string{"tar", "-t"},
	Basename:    stripBasename,
}

var cpioVariant = &Variant{
	Kind: format.KindCpio,
	ExtractArgv: func(string) []string {
		return []string{"cpio", "-i", "--make-directories", "--quiet", "--no-absolute-filenames"}
	},
	ListArgv: []string{"cpio", "-t", "--quiet"},
	Basename: stripBasename,
}

var rpmVariant = &Variant{
	Kind:       format.KindRPM,
	BombAlways: true,
	ExtractArgv: func(string) []string {
		return []string{"cpio", "-i", "--make-directories", "--quiet", "--no-absolute-filenames"}
	},
	ListArgv: []string{"cpio", "-t", "--quiet"},
	Basename: rpmBasename,
	Prepare: func(*Extractor) ([]Stage, error) {
		return []Stage{{Argv: []string{"rpm2cpio", "-"}, Purpose: "rpm2cpio"}}, nil
	},
}

var debDataRe = regexp.MustCompile(`^data\.tar\.[a-z0-9]+$`)

var debVariant = &Variant{
	Kind:        format.KindDeb,
	BombAlways:  true,
	ExtractArgv: func(string) []string { return []string{"tar", "-x"} },
	ListArgv:    []string{"tar", "-t"},
	Basename:    debBasename,
	Prepare:     prepareDeb,
}

// prepareDeb locates the payload member inside the ar container, then
// re-pipes from that extraction point through the member's own decoder.
func prepareDeb(e *Extractor) ([]Stage, error) {
	listing, err := e.runListing(
		[]Stage{{Argv: []string{"ar", "t", e.Filename}, Purpose: "finding package data file"}},
		identityParser(),
	)
	if err != nil {
		return nil, err
	}
	dataName := ""
	for {
		name, ok := listing.Next()
		if !ok {
			break
		}
		if dataName == "" && debDataRe.MatchString(name) {
			dataName = name
		}
	}
	if err := listing.Err(); err != nil {
		return nil, err
	}
	if dataName == "" {
		return nil, errors.New(".deb contains no data.tar file")
	}

	pieces := strings.Split(dataName, ".")
	encoding, ok := format.EncodingForExtension(pieces[len(pieces)-1])
	if !ok {
		return nil, errors.New("data.tar file has unrecognized encoding")
	}
	return []Stage{
		{Argv: []string{"ar", "p", e.Filename, dataName}, Purpose: "extracting data.tar from .deb"},
		{Argv: decoders[encoding], Purpose: "decoding data.tar"},
	}, nil
}

var debMetadataVariant = &Variant{
	Kind:        format.KindDeb,
	BombAlways:  true,
	ExtractArgv: func(string) []string { return []string{"tar", "-x"} },
	ListArgv:    []string{"tar", "-t"},
	Basename:    debBasename,
	Prepare: func(e *Extractor) ([]Stage, error) {
		return []Stage{
			{Argv: []string{"ar", "p", e.Filename, "control.tar.gz"}, Purpose: "control.tar.gz extraction"},
			{Argv: []string{"zcat"}, Purpose: "control.tar.gz decompression"},
		}, nil
	},
}

var gemVariant = &Variant{
	Kind:        format.KindGem,
	BombAlways:  true,
	ExtractArgv: func(string) []string { return []string{"tar", "-x"} },
	ListArgv:    []string{"tar", "-t"},
	Basename:    stripBasename,
	Prepare: func(*Extractor) ([]Stage, error) {
		return []Stage{
			{Argv: []string{"tar", "-xO", "data.tar.gz"}, Purpose: "data.tar.gz extraction"},
			{Argv: []string{"zcat"}, Purpose: "data.tar.gz decompression"},
		}, nil
	},
}

var gemMetadataVariant = &Variant{
	Kind:        format.KindGem,
	Compression: true,
	Basename:    gemMetadataBasename,
	Prepare: func(*Extractor) ([]Stage, error) {
		return []Stage{
			{Argv: []string{"tar", "-xO", "metadata.gz"}, Purpose: "metadata.gz extraction"},
			{Argv: []string{"zcat"}, Purpose: "metadata.gz decompression"},
		}, nil
	},
}

var zipVariant = &Variant{
	Kind:               format.KindZip,
	NoPipe:             true,
	PromptsForPassword: true,
	ExtractArgv: func(password string) []string {
		argv := []string{"unzip", "-q"}
		if password != "" {
			argv = append(argv, "-P", password)
		}
		return argv
	},
	ListArgv:  []string{"zipinfo", "-1"},
	Basename:  stripBasename,
	FatalExit: func(code int) bool { return code > 1 }, // 1 = warnings only
}

var lzhVariant = &Variant{
	Kind:          format.KindLZH,
	NoPipe:        true,
	ExtractArgv:   func(string) []string { return []string{"lha", "xq"} },
	ListArgv:      []string{"lha", "l"},
	NewListParser: lzhParser,
	Basename:      stripBasename,
	FatalExit:     func(code int) bool { return code > 1 },
}

var sevenVariant = &Variant{
	Kind:               format.KindSevenZip,
	NoPipe:             true,
	WatchStdout:        true,
	PromptsForPassword: true,
	ExtractArgv: func(password string) []string {
		argv := []string{"7z", "x"}
		if password != "" {
			argv = append(argv, "-p"+password)
		}
		return argv
	},
	ListArgv:      []string{"7z", "l", "-ba"},
	NewListParser: sevenParser,
	Basename:      stripBasename,
}

var zstdVariant = &Variant{
	Kind:          format.KindZstd,
	NoPipe:        true,
	ExtractArgv:   func(string) []string { return []string{"zstd", "-d"} },
	ListArgv:      []string{"zstd", "-l"},
	NewListParser: zstdParser,
	Basename:      stripBasename,
}

var brotliVariant = &Variant{
	Kind:        format.KindBrotli,
	NoPipe:      true,
	NoListing:   true,
	ExtractArgv: func(string) []string { return []string{"brotli", "--decompress", "--output={OUTPUT_FILE}"} },
	Basename:    stripBasename,
}

var cabVariant = &Variant{
	Kind:          format.KindCab,
	NoPipe:        true,
	ExtractArgv:   func(string) []string { return []string{"cabextract", "-q"} },
	ListArgv:      []string{"cabextract", "-l"},
	NewListParser: cabParser,
	Basename:      stripBasename,
}

var shieldVariant = &Variant{
	Kind:          format.KindShield,
	NoPipe:        true,
	ExtractArgv:   func(string) []string { return []string{"unshield", "x"} },
	ListArgv:      []string{"unshield", "l"},
	NewListParser: shieldParser,
	Basename:      shieldBasename,
}

var rarVariant = &Variant{
	Kind:               format.KindRar,
	NoPipe:             true,
	PromptsForPassword: true,
	ExtractArgv: func(password string) []string {
		argv := []string{"unrar", "x"}
		if password != "" {
			argv = append(argv, "-p"+password)
		}
		return argv
	},
	ListArgv:      []string{"unrar", "v"},
	NewListParser: rarParser,
	Basename:      stripBasename,
}

var unarVariant = &Variant{
	Kind:   format.KindRar,
	NoPipe: true,
	ExtractArgv: func(password string) []string {
		argv := []string{"unar", "-D"}
		if password != "" {
			argv = append(argv, "-p", password)
		}
		return argv
	},
	ListArgv:      []string{"lsar"},
	NewListParser: unarParser,
	Basename:      stripBasename,
}

var arjVariant = &Variant{
	Kind:   format.KindArj,
	NoPipe: true,
	ExtractArgv: func(password string) []string {
		argv := []string{"arj", "x", "-y"}
		if password != "" {
			argv = append(argv, "-g"+password)
		}
		return argv
	},
	ListArgv:      []string{"arj", "v"},
	NewListParser: arjParser,
	Basename:      stripBasename,
}

var compressVariant = &Variant{
	Kind:        format.KindCompress,
	Compression: true,
	Basename:    compressionBasename,
}

// VariantsFor returns the extractor variants to try for a detected kind,
// in attempt order. Some kinds have a fallback tool (zip falls back to
// 7z, unrar to unar).
func VariantsFor(kind format.Kind, metadata bool) []*Variant {
	switch kind {
	case format.KindTar:
		return []*Variant{tarVariant}
	case format.KindZip:
		return []*Variant{zipVariant, sevenVariant}
	case format.KindLZH:
		return []*Variant{lzhVariant}
	case format.KindRPM:
		return []*Variant{rpmVariant}
	case format.KindDeb:
		if metadata {
			return []*Variant{debMetadataVariant}
		}
		return []*Variant{debVariant}
	case format.KindCpio:
		return []*Variant{cpioVariant}
	case format.KindGem:
		if metadata {
			return []*Variant{gemMetadataVariant}
		}
		return []*Variant{gemVariant}
	case format.KindSevenZip, format.KindMSI, format.KindDMG:
		return []*Variant{sevenVariant}
	case format.KindCab:
		return []*Variant{cabVariant}
	case format.KindRar:
		return []*Variant{rarVariant, unarVariant}
	case format.KindArj:
		return []*Variant{arjVariant}
	case format.KindShield:
		return []*Variant{shieldVariant}
	case format.KindZstd:
		return []*Variant{zstdVariant}
	case format.KindBrotli:
		return []*Variant{brotliVariant}
	case format.KindCompress:
		return []*Variant{compressVariant}
	default:
		return nil
	}
}
