// Package errors provides error handling for unfurl.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	// Wrap with context
//	if err := runStage(); err != nil {
//	    return errors.Wrap(err, "decoding stage failed")
//	}
//
//	// Check against the extraction taxonomy
//	if errors.Is(err, errors.ErrToolUnusable) {
//	    // skip this candidate, try the next one
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Extraction failure taxonomy. Every failure attempting one candidate
// format wraps exactly one of these sentinels; callers distinguish them
// with errors.Is().
var (
	// ErrUnknownFormat indicates no classifier candidate produced a
	// successful extraction.
	ErrUnknownFormat = New("not a known archive type")

	// ErrToolUnusable indicates the external tool required by a candidate
	// could not be run (usually not installed). The candidate is skipped,
	// not retried.
	ErrToolUnusable = New("required external tool is unusable")

	// ErrExtractionFailed indicates a pipeline stage exited non-zero with
	// no usable output.
	ErrExtractionFailed = New("extraction failed")

	// ErrPasswordRequired indicates an encrypted archive prompted for a
	// password in non-interactive mode and none was supplied.
	ErrPasswordRequired = New("archive requires a password")
)
