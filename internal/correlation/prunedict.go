// Package correlation implements the correlation matrix builder (C5) and
// its on-disk reader (C6).
package correlation

import "sort"

// PrunedDict maps a dense "matrix id" (the row/column index used inside
// the correlation matrix) to the original dictionary id it corresponds
// to. Only words that actually occur in at least one article survive
// pruning; matrix ids are assigned in ascending original-id order so the
// mapping is reproducible from the dictionary and the posting list alone
// (spec.md §9 Open Question: pruning order).
type PrunedDict struct {
	OriginalIDs []uint32          // matrix id -> original dictionary id
	toMatrix    map[uint32]uint32 // original dictionary id -> matrix id
}

// NewPrunedDict builds a PrunedDict from the set of original dictionary
// ids that have at least one posting.
func NewPrunedDict(presentIDs []uint32) PrunedDict {
	ids := append([]uint32(nil), presentIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	toMatrix := make(map[uint32]uint32, len(ids))
	for matrixID, originalID := range ids {
		toMatrix[originalID] = uint32(matrixID)
	}
	return PrunedDict{OriginalIDs: ids, toMatrix: toMatrix}
}

// MatrixID returns the matrix id for an original dictionary id, if the
// word survived pruning.
func (d PrunedDict) MatrixID(originalID uint32) (uint32, bool) {
	id, ok := d.toMatrix[originalID]
	return id, ok
}

// Len returns D', the pruned dictionary size.
func (d PrunedDict) Len() int {
	return len(d.OriginalIDs)
}
