package frequency

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// Table is the append-only frequency spill file (C3): one msgpack-encoded
// PerArticleCounts record per article, in the order articles are
// streamed off the dump, plus a parallel in-memory byte-offset index.
//
// It keeps two independent file handles on the same data file, following
// the pattern the Rust original uses (database/frequency.rs): an
// unbuffered writer for Insert, and a separate reader used only by
// Invert through ReadAt. Invert's reads therefore never move the
// writer's position; Insert still seeks the writer to end-of-file before
// each record to learn that record's offset.
type Table struct {
	path   string
	writer *os.File
	reader *os.File
	index  []int64 // index[articleOrdinal] = byte offset of its record
}

// New creates a fresh spill file at path, truncating any existing
// contents.
func New(path string) (*Table, error) {
	w, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	r, err := os.Open(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return &Table{path: path, writer: w, reader: r}, nil
}

// Reopen resumes an existing spill file plus its previously persisted
// offset index (the caller's saved copy of Index(); Close does not write
// it), for continuing an interrupted dump read (spec.md §6).
func Reopen(dataPath string, index []int64) (*Table, error) {
	w, err := os.OpenFile(dataPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	r, err := os.Open(dataPath)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	idx := make([]int64, len(index))
	copy(idx, index)
	return &Table{path: dataPath, writer: w, reader: r, index: idx}, nil
}

// Insert appends one article's counts to the spill file and records its
// starting byte offset. The returned ordinal is the article's 0-based
// position in insertion order — the identity used throughout the
// correlation matrix.
func (t *Table) Insert(counts PerArticleCounts) (uint32, error) {
	// The write handle is opened O_APPEND (see Reopen), so every write
	// lands at end-of-file regardless of the handle's seek position:
	// query the true end-of-file offset rather than trust SeekCurrent.
	off, err := t.writer.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	// Offset is recorded before the write completes, matching the Rust
	// original: a crash mid-write still leaves the index pointing at a
	// valid (if truncated) record boundary for the next resume.
	ordinal := uint32(len(t.index))
	t.index = append(t.index, off)

	b, err := EncodeCounts(counts)
	if err != nil {
		return 0, err
	}
	var lenPrefix [4]byte
	putUint32(lenPrefix[:], uint32(len(b)))
	if _, err := t.writer.Write(lenPrefix[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	if _, err := t.writer.Write(b); err != nil {
		return 0, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return ordinal, nil
}

// Len returns N, the number of articles inserted so far.
func (t *Table) Len() int {
	return len(t.index)
}

// Index returns the byte-offset index for persistence (spec.md's
// index.dat). The caller must not mutate the returned slice.
func (t *Table) Index() []int64 {
	return t.index
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// recordAt reads and decodes the record starting at byte offset off.
func (t *Table) recordAt(off int64) (PerArticleCounts, error) {
	var lenPrefix [4]byte
	if _, err := t.reader.ReadAt(lenPrefix[:], off); err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	n := getUint32(lenPrefix[:])
	buf := make([]byte, n)
	if _, err := t.reader.ReadAt(buf, off+4); err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return DecodeCounts(buf)
}

// Invert reads every spilled record and builds the per-word posting
// lists (C4): word id -> articles that contain it, in article-ordinal
// order, each paired with its occurrence count.
func (t *Table) Invert() (map[uint32][]Posting, error) {
	postings := make(map[uint32][]Posting)
	for ordinal, off := range t.index {
		counts, err := t.recordAt(off)
		if err != nil {
			return nil, err
		}
		for wordID, count := range counts {
			postings[wordID] = append(postings[wordID], Posting{
				Article: uint32(ordinal),
				Count:   count,
			})
		}
	}
	return postings, nil
}

// Close releases both file handles. It does not persist the offset
// index; callers own writing Index() to disk (spec.md §6, index.dat) via
// msgpack.Marshal.
func (t *Table) Close() error {
	werr := t.writer.Close()
	rerr := t.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// EncodeIndex and DecodeIndex serialize the byte-offset index using the
// same compact binary codec as everything else (spec.md §6, index.dat).
func EncodeIndex(index []int64) ([]byte, error) {
	b, err := msgpack.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return b, nil
}

func DecodeIndex(b []byte) ([]int64, error) {
	var index []int64
	if err := msgpack.Unmarshal(b, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return index, nil
}
