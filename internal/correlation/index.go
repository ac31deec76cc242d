package correlation

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// Index is the persisted companion record for the matrix file: which
// words survived pruning, and in what order (spec.md §6, corrindex.dat).
type Index struct {
	OriginalIDs []uint32
}

// EncodeIndex serializes an Index with the compact binary codec.
func EncodeIndex(d PrunedDict) ([]byte, error) {
	b, err := msgpack.Marshal(Index{OriginalIDs: d.OriginalIDs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return b, nil
}

// DecodeIndex is the inverse of EncodeIndex, reconstructing a usable
// PrunedDict.
func DecodeIndex(b []byte) (PrunedDict, error) {
	var idx Index
	if err := msgpack.Unmarshal(b, &idx); err != nil {
		return PrunedDict{}, fmt.Errorf("%w: %v", korelerr.ErrSerialization, err)
	}
	return NewPrunedDict(idx.OriginalIDs), nil
}
