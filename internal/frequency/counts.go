// Package frequency implements the per-article word-count spill file (C3)
// and its inversion into per-word posting lists (C4).
package frequency

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// PerArticleCounts is the sparse word-id -> occurrence-count map recorded
// for a single article. Only words present in the dictionary are counted;
// a word missing from the map occurred zero times.
type PerArticleCounts map[uint32]uint16

// EncodeCounts serializes a PerArticleCounts value using the compact
// binary codec (msgpack) shared across the spill file, the correlation
// index, and the matrix index.
func EncodeCounts(c PerArticleCounts) ([]byte, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return b, nil
}

// DecodeCounts is the inverse of EncodeCounts.
func DecodeCounts(b []byte) (PerArticleCounts, error) {
	var c PerArticleCounts
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return c, nil
}

// Posting pairs an article ordinal with the occurrence count of the word
// whose posting list it belongs to.
type Posting struct {
	Article uint32
	Count   uint16
}
