package format

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// encodingExtensions maps a trailing filename suffix to the compression
// encoding it implies.
var encodingExtensions = map[string]Encoding{
	"gz":   EncodingGzip,
	"Z":    EncodingCompress,
	"bz2":  EncodingBzip2,
	"lzma": EncodingLzma,
	"xz":   EncodingXz,
	"lz":   EncodingLzip,
	"lrz":  EncodingLrzip,
	"zst":  EncodingZstd,
	"zstd": EncodingZstd,
}

// suffixAliases expands shorthand suffixes before the mimetype guess,
// the way mimetypes suffix maps traditionally do.
var suffixAliases = map[string]string{
	"tgz":  "tar.gz",
	"taz":  "tar.gz",
	"tbz2": "tar.bz2",
	"tbz":  "tar.bz2",
	"tlz":  "tar.lzma",
	"txz":  "tar.xz",
}

// mimetypeKinds maps a format suffix (after any encoding suffix has been
// stripped) to its kind, mirroring what a mimetype database would know.
var mimetypeKinds = map[string]Kind{
	"tar":  KindTar,
	"zip":  KindZip,
	"gem":  KindGem,
	"rpm":  KindRPM,
	"deb":  KindDeb,
	"cpio": KindCpio,
	"7z":   KindSevenZip,
	"lzh":  KindLZH,
	"lha":  KindLZH,
}

// formatExtensions records a format suffix recognized during basename
// derivation (the suffix a matching directory name has been stripped of).
var formatExtensions = map[string]bool{
	"tar": true, "zip": true, "jar": true, "epub": true, "xpi": true,
	"crx": true, "lzh": true, "lha": true, "rpm": true, "deb": true,
	"cpio": true, "gem": true, "7z": true, "cab": true, "hdr": true,
	"rar": true, "arj": true, "msi": true, "dmg": true,
}

// extensionTable is the static suffix table for the second cascade tier.
// Built once at init; exposed only through lookup functions.
var extensionTable = map[string][]Descriptor{}

func addExtensions(kind Kind, encoding Encoding, extensions ...string) {
	for _, ext := range extensions {
		extensionTable[ext] = append(extensionTable[ext], Descriptor{Kind: kind, Encoding: encoding})
	}
}

func init() {
	addExtensions(KindTar, EncodingNone, "tar")
	addExtensions(KindZip, EncodingNone, "zip", "jar", "epub", "xpi", "crx")
	addExtensions(KindLZH, EncodingNone, "lzh", "lha")
	addExtensions(KindRPM, EncodingNone, "rpm")
	addExtensions(KindDeb, EncodingNone, "deb")
	addExtensions(KindCpio, EncodingNone, "cpio")
	addExtensions(KindGem, EncodingNone, "gem")
	addExtensions(KindSevenZip, EncodingNone, "7z")
	addExtensions(KindCab, EncodingNone, "cab")
	addExtensions(KindRar, EncodingNone, "rar")
	addExtensions(KindArj, EncodingNone, "arj")
	addExtensions(KindShield, EncodingNone, "cab", "hdr")
	addExtensions(KindMSI, EncodingNone, "msi")
	addExtensions(KindDMG, EncodingNone, "dmg")
	addExtensions(KindZstd, EncodingNone, "zst", "zstd")
	addExtensions(KindBrotli, EncodingNone, "br")

	addExtensions(KindTar, EncodingBzip2, "tar.bz2", "tbz2", "tb2", "tbz")
	addExtensions(KindTar, EncodingGzip, "tar.gz", "tgz")
	addExtensions(KindTar, EncodingLzma, "tar.lzma", "tlz")
	addExtensions(KindTar, EncodingXz, "tar.xz", "txz")
	addExtensions(KindTar, EncodingLzip, "tar.lz")
	addExtensions(KindTar, EncodingCompress, "tar.Z", "taz")
	addExtensions(KindTar, EncodingLrzip, "tar.lrz")
	addExtensions(KindTar, EncodingZstd, "tar.zst")
	addExtensions(KindCompress, EncodingGzip, "Z", "gz")
	addExtensions(KindCompress, EncodingBzip2, "bz2")
	addExtensions(KindCompress, EncodingLzma, "lzma")
	addExtensions(KindCompress, EncodingXz, "xz")
	addExtensions(KindCompress, EncodingLrzip, "lrz")
}

// magicKinds matches file(1) output against archive kinds. Slice order is
// the candidate order when several patterns match one output line.
var magicKinds = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`POSIX tar archive`), KindTar},
	{regexp.MustCompile(`(Zip|ZIP self-extracting) archive`), KindZip},
	{regexp.MustCompile(`LHa [\d\.\?]+ archive`), KindLZH},
	{regexp.MustCompile(`RPM`), KindRPM},
	{regexp.MustCompile(`Debian binary package`), KindDeb},
	{regexp.MustCompile(`cpio archive`), KindCpio},
	{regexp.MustCompile(`7-zip archive`), KindSevenZip},
	{regexp.MustCompile(`Microsoft Cabinet Archive`), KindCab},
	{regexp.MustCompile(`RAR archive`), KindRar},
	{regexp.MustCompile(`ARJ archive`), KindArj},
	{regexp.MustCompile(`InstallShield CAB`), KindShield},
	{regexp.MustCompile(`Application: Windows Installer`), KindMSI},
	{regexp.MustCompile(`ISO 9660 CD-ROM filesystem data`), KindDMG},
	{regexp.MustCompile(`zlib compressed data`), KindDMG},
	{regexp.MustCompile(`Zstandard compressed data`), KindZstd},
}

// magicEncodings matches file(1) output against compression encodings.
var magicEncodings = []struct {
	re       *regexp.Regexp
	encoding Encoding
}{
	{regexp.MustCompile(`bzip2 compressed`), EncodingBzip2},
	{regexp.MustCompile(`gzip compressed`), EncodingGzip},
	{regexp.MustCompile(`LZMA compressed`), EncodingLzma},
	{regexp.MustCompile(`lzip compressed`), EncodingLzip},
	{regexp.MustCompile(`LRZIP compressed`), EncodingLrzip},
	{regexp.MustCompile(`Zstandard compressed`), EncodingZstd},
	{regexp.MustCompile(`xz compressed`), EncodingXz},
}

// EncodingForExtension reports the compression encoding a trailing
// filename suffix implies, if any.
func EncodingForExtension(ext string) (Encoding, bool) {
	enc, ok := encodingExtensions[ext]
	return enc, ok
}

// IsFormatExtension reports whether ext is a recognized archive format
// suffix, used by basename derivation.
func IsFormatExtension(ext string) bool {
	if formatExtensions[ext] {
		return true
	}
	if _, ok := mimetypeKinds[ext]; ok {
		return true
	}
	_, ok := suffixAliases[ext]
	return ok
}

// ByMimetype is the first cascade tier: a mimetype-style guess from the
// filename alone. A recognized encoding with an unknown container yields
// a generic compressed-stream candidate.
func ByMimetype(filename string) []Candidate {
	name := filepath.Base(filename)
	pieces := strings.Split(name, ".")
	if len(pieces) < 2 {
		return nil
	}

	if alias, ok := suffixAliases[pieces[len(pieces)-1]]; ok {
		pieces = append(pieces[:len(pieces)-1], strings.Split(alias, ".")...)
	}

	encoding := EncodingNone
	if enc, ok := encodingExtensions[pieces[len(pieces)-1]]; ok {
		encoding = enc
		pieces = pieces[:len(pieces)-1]
	}

	if len(pieces) >= 2 {
		if kind, ok := mimetypeKinds[pieces[len(pieces)-1]]; ok {
			return []Candidate{{Descriptor{Kind: kind, Encoding: encoding}, SourceMimetype}}
		}
	}
	if encoding != EncodingNone {
		return []Candidate{{Descriptor{Kind: KindCompress, Encoding: encoding}, SourceMimetype}}
	}
	return nil
}

// ByExtension is the second cascade tier: the static suffix table,
// longest suffix first. It covers the ad hoc suffixes (.tgz, .tbz2)
// that are not standard mimetype encodings.
func ByExtension(filename string) []Candidate {
	parts := strings.Split(filepath.Base(filename), ".")
	if len(parts) < 2 {
		return nil
	}
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	parts = parts[1:]

	var results []Candidate
	for len(parts) > 0 {
		for _, desc := range extensionTable[strings.Join(parts, ".")] {
			results = append(results, Candidate{desc, SourceExtension})
		}
		parts = parts[1:]
	}
	return results
}

// ByMagic is the third cascade tier: content identification through the
// external classifier. A compression match without an archive-kind match
// defaults the kind to the generic compressed stream; the converse
// default encoding is none.
func ByMagic(filename string, probe Prober) []Candidate {
	output, err := probe.Identify(filename)
	if err != nil {
		return nil
	}
	if idx := strings.Index(output, filename+": "); idx == 0 {
		output = output[len(filename)+2:]
	}

	var kinds []Kind
	for _, entry := range magicKinds {
		if entry.re.MatchString(output) {
			kinds = append(kinds, entry.kind)
		}
	}
	var encodings []Encoding
	for _, entry := range magicEncodings {
		if entry.re.MatchString(output) {
			encodings = append(encodings, entry.encoding)
		}
	}

	if len(kinds) > 0 && len(encodings) == 0 {
		encodings = []Encoding{EncodingNone}
	} else if len(encodings) > 0 && len(kinds) == 0 {
		kinds = []Kind{KindCompress}
	}

	var results []Candidate
	for _, kind := range kinds {
		for _, encoding := range encodings {
			results = append(results, Candidate{Descriptor{Kind: kind, Encoding: encoding}, SourceMagic})
		}
	}
	return results
}

// LooksLikeArchive reports whether a filename would classify as an
// archive by the two cheap tiers. Used for nested-archive discovery,
// where running the magic probe over every extracted file would be
// prohibitive.
func LooksLikeArchive(filename string) bool {
	return len(ByMimetype(filename)) > 0 || len(ByExtension(filename)) > 0
}

// SupportedExtensions returns the sorted list of filename suffixes the
// classifier recognizes without resorting to the magic probe.
func SupportedExtensions() []string {
	seen := map[string]bool{}
	for ext := range extensionTable {
		seen[ext] = true
	}
	for ext := range encodingExtensions {
		seen[ext] = true
	}
	for ext := range suffixAliases {
		seen[ext] = true
	}
	for ext := range mimetypeKinds {
		seen[ext] = true
	}
	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
