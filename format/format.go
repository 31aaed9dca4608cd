// Package format identifies archive and compression formats.
//
// Identification is a three-tier cascade: a mimetype guess from the
// filename, a suffix-table lookup covering ad hoc extensions like .tgz,
// and finally a magic-byte probe through the external file(1) command.
// The probe runs last: it is authoritative but has been observed to
// misclassify gem archives as plain tar when consulted first.
package format

// Kind is the archive container format. It is a closed set; extraction
// behavior for each kind lives in a capability table, not a type hierarchy.
type Kind int

const (
	KindUnknown Kind = iota
	KindTar
	KindZip
	KindLZH
	KindRPM
	KindDeb
	KindCpio
	KindGem
	KindSevenZip
	KindCab
	KindRar
	KindArj
	KindShield
	KindMSI
	KindDMG
	KindZstd
	KindBrotli
	KindCompress
)

// String returns the user-facing file type label, as shown in
// "treating as <label> failed" error reports.
func (k Kind) String() string {
	switch k {
	case KindTar:
		return "tar file"
	case KindZip:
		return "Zip file"
	case KindLZH:
		return "LZH file"
	case KindRPM:
		return "RPM"
	case KindDeb:
		return "Debian package"
	case KindCpio:
		return "cpio file"
	case KindGem:
		return "Ruby gem"
	case KindSevenZip:
		return "7z file"
	case KindCab:
		return "CAB archive"
	case KindRar:
		return "RAR archive"
	case KindArj:
		return "ARJ archive"
	case KindShield:
		return "InstallShield archive"
	case KindMSI:
		return "Windows Installer package"
	case KindDMG:
		return "disk image"
	case KindZstd:
		return "zstd file"
	case KindBrotli:
		return "brotli file"
	case KindCompress:
		return "compressed file"
	default:
		return "unknown"
	}
}

// Encoding is the compression layer wrapped around the container, if any.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingGzip
	EncodingBzip2
	EncodingCompress
	EncodingLzma
	EncodingXz
	EncodingLzip
	EncodingLrzip
	EncodingZstd
	EncodingBrotli
)

func (e Encoding) String() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingBzip2:
		return "bzip2"
	case EncodingCompress:
		return "compress"
	case EncodingLzma:
		return "lzma"
	case EncodingXz:
		return "xz"
	case EncodingLzip:
		return "lzip"
	case EncodingLrzip:
		return "lrzip"
	case EncodingZstd:
		return "zstd"
	case EncodingBrotli:
		return "brotli"
	default:
		return "none"
	}
}

// Descriptor identifies which extractor and which decompression prefix
// stage to use. Immutable once chosen by the classifier.
type Descriptor struct {
	Kind     Kind
	Encoding Encoding
}

// Candidate is a Descriptor plus the cascade tier that proposed it,
// kept for debug logging.
type Candidate struct {
	Descriptor
	Source Source
}

// Source names the cascade tier a candidate came from.
type Source int

const (
	SourceMimetype Source = iota
	SourceExtension
	SourceMagic
)

func (s Source) String() string {
	switch s {
	case SourceMimetype:
		return "mimetype"
	case SourceExtension:
		return "extension"
	case SourceMagic:
		return "magic"
	default:
		return "unknown"
	}
}
