package wiki

import (
	"bufio"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// NewDumpReader opens a multi-stream bzip2-compressed Wikipedia XML dump
// and returns a wiki.Reader ready to stream namespace-0 articles.
//
// When offset is non-zero, the caller is selecting a resume point: offset
// must land exactly on the start of a bzip2 stream (spec.md §6), since
// the decoder begins by reading a stream header there. This
// mirrors github.com/dsnet/compress/bzip2's multistream decoder, which
// transparently concatenates streams and does not itself locate block
// boundaries — callers that need to resume mid-dump are responsible for
// having recorded a boundary-aligned offset when the previous run stopped
// (see internal/state for how the CLI persists that offset).
func NewDumpReader(r io.ReaderAt, size int64, offset int64, cfg WikitextConfig) (*Reader, error) {
	section := io.NewSectionReader(r, offset, size-offset)
	bz, err := bzip2.NewReader(bufio.NewReaderSize(section, 1<<20), &bzip2.ReaderConfig{})
	if err != nil {
		return nil, err
	}
	return NewReader(bz, cfg), nil
}
