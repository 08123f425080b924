package sas7bdat

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes of the decoder.  Errors
// returned by this package wrap one of these and can be tested with
// errors.Is.  None of them are retryable: the byte source is
// deterministic, so a failed open or iteration will fail again.
var (
	// ErrBadMagic indicates that the file does not begin with the
	// SAS7BDAT signature.
	ErrBadMagic = errors.New("sas7bdat: magic number mismatch (not a SAS file?)")

	// ErrUnsupportedBitness indicates a word size/version
	// combination outside the two known variants of the format.
	ErrUnsupportedBitness = errors.New("sas7bdat: unsupported word size or alignment")

	// ErrTruncatedFile indicates that fewer bytes remain in the
	// file than a declared page, subheader or row requires.
	ErrTruncatedFile = errors.New("sas7bdat: truncated file")

	// ErrSubheaderOutOfBounds indicates a subheader pointer whose
	// range extends past the page that holds it.
	ErrSubheaderOutOfBounds = errors.New("sas7bdat: subheader extends past page boundary")

	// ErrMetadataInconsistent indicates a structural contradiction
	// in the accumulated column metadata.
	ErrMetadataInconsistent = errors.New("sas7bdat: inconsistent metadata")

	// ErrDecompressionLengthMismatch indicates that decompressing a
	// row did not yield exactly the declared row length.
	ErrDecompressionLengthMismatch = errors.New("sas7bdat: decompressed row length mismatch")

	// ErrUnsupportedCompression indicates a compression signature or
	// control byte outside the known SASYZCRL/SASYZCR2 schemes.
	ErrUnsupportedCompression = errors.New("sas7bdat: unsupported compression")
)

// A FormatError describes where in the file a structural failure was
// detected.  It wraps one of the sentinel errors above.
type FormatError struct {
	// The sentinel error identifying the failure kind.
	Err error

	// Index of the page where the failure was detected, or -1 if
	// it occurred in the file header.
	Page int

	// The subheader kind being processed, if any.
	Subheader string

	// Additional detail about the failing byte range.
	Detail string
}

func (e *FormatError) Error() string {
	s := e.Err.Error()
	if e.Page >= 0 {
		s += fmt.Sprintf(" (page %d)", e.Page)
	}
	if e.Subheader != "" {
		s += fmt.Sprintf(" [%s subheader]", e.Subheader)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// formatError builds a FormatError for the given failure kind.  Page
// -1 means the failure is not attributable to a page.
func formatError(kind error, page int, subheader, format string, args ...interface{}) error {
	return &FormatError{
		Err:       kind,
		Page:      page,
		Subheader: subheader,
		Detail:    fmt.Sprintf(format, args...),
	}
}
