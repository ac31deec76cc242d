// Package korelerr defines the tagged error kinds shared across the
// pipeline and query engine.
package korelerr

import "errors"

// Sentinel errors for the kinds the pipeline and query engine can return.
var (
	// ErrMissingDict tags a write to a frequency table that has no
	// dictionary attached. frequency.Table holds no dictionary (Insert
	// takes already-tokenized counts), so no function in this module
	// returns it.
	ErrMissingDict = errors.New("korel: frequency table has no dictionary attached")

	// ErrInvalidWord is returned when a word is not present in the pruned
	// dictionary.
	ErrInvalidWord = errors.New("korel: word not in dictionary")

	// ErrXML is returned for malformed XML encountered while streaming a
	// dump.
	ErrXML = errors.New("korel: malformed dump XML")

	// ErrSerialization is returned when a binary codec fails to encode or
	// decode a value.
	ErrSerialization = errors.New("korel: serialization failure")

	// ErrIO is returned for underlying file or stream failures.
	ErrIO = errors.New("korel: io failure")
)
