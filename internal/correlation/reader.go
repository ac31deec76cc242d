package correlation

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// Reader is the read-only handle onto a persisted correlation matrix
// (C6): an os.File opened for random access plus the PrunedDict that
// translates dictionary ids into matrix coordinates.
type Reader struct {
	f    *os.File
	dict PrunedDict
}

// OpenReader opens the matrix file at path for reading.
func OpenReader(path string, dict PrunedDict) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return &Reader{f: f, dict: dict}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// linearIndex is the strictly-lower-triangular matrix's linear cell
// index for matrix ids a > b, matching spec.md's layout exactly.
func linearIndex(a, b uint32) int64 {
	return int64(a)*int64(a-1)/2 + int64(b)
}

func (r *Reader) readCell(idx int64) (float64, error) {
	var buf [8]byte
	if _, err := r.f.ReadAt(buf[:], idx*8); err != nil {
		return 0, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

// Corr returns the correlation between two dictionary words, identified
// by their original (unpruned) dictionary ids. Equal ids return 1.0
// without a lookup. Otherwise returns korelerr.ErrInvalidWord wrapped if
// either word did not survive pruning (never occurs in any article, so it
// has no row in the matrix).
func (r *Reader) Corr(originalA, originalB uint32) (float64, error) {
	if originalA == originalB {
		return 1.0, nil
	}
	a, ok := r.dict.MatrixID(originalA)
	if !ok {
		return 0, fmt.Errorf("%w: word id %d has no correlation row", korelerr.ErrInvalidWord, originalA)
	}
	b, ok := r.dict.MatrixID(originalB)
	if !ok {
		return 0, fmt.Errorf("%w: word id %d has no correlation row", korelerr.ErrInvalidWord, originalB)
	}
	if a == b {
		return 1.0, nil
	}
	if a < b {
		a, b = b, a
	}
	return r.readCell(linearIndex(a, b))
}

// CorrAll returns the correlation of one word against every word in the
// dictionary, indexed by original dictionary id (len == dict.Len() of
// the full, unpruned dictionary the caller passes in via dictSize).
// Returns the same wrapped korelerr.ErrInvalidWord as Corr when
// originalWord did not survive pruning, so corrall agrees with corr at
// every index (spec.md §4.4).
func (r *Reader) CorrAll(originalWord uint32, dictSize int) ([]float64, error) {
	a, ok := r.dict.MatrixID(originalWord)
	if !ok {
		return nil, fmt.Errorf("%w: word id %d has no correlation row", korelerr.ErrInvalidWord, originalWord)
	}

	ret := make([]float64, dictSize)

	matrixVals := make([]float64, r.dict.Len())
	matrixVals[a] = 1.0

	if a > 0 {
		// Row a's own pairs (a,0)..(a,a-1) are stored contiguously.
		buf := make([]byte, int(a)*8)
		if _, err := r.f.ReadAt(buf, linearIndex(a, 0)*8); err != nil {
			return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
		}
		for b := 0; b < int(a); b++ {
			matrixVals[b] = math.Float64frombits(binary.BigEndian.Uint64(buf[b*8:]))
		}
	}
	for b := int(a) + 1; b < r.dict.Len(); b++ {
		v, err := r.readCell(linearIndex(uint32(b), a))
		if err != nil {
			return nil, err
		}
		matrixVals[b] = v
	}

	for matrixID, originalID := range r.dict.OriginalIDs {
		if int(originalID) < dictSize {
			ret[originalID] = matrixVals[matrixID]
		}
	}
	return ret, nil
}

// PrunedDict exposes the reader's pruned dictionary mapping.
func (r *Reader) PrunedDict() PrunedDict {
	return r.dict
}

var _ io.Closer = (*Reader)(nil)
