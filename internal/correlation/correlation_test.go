package correlation

import (
	"bytes"
	"math"
	"testing"

	"github.com/unsignedbyte/wikidle/internal/frequency"
)

// bruteForcePearson computes Pearson's r directly over two dense,
// zero-padded count vectors, independent of the pre-summed algorithm
// under test.
func bruteForcePearson(a, b []int) float64 {
	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += float64(a[i])
		sumB += float64(b[i])
	}
	meanA, meanB := sumA/n, sumB/n

	var num, da2, db2 float64
	for i := range a {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	return num / math.Sqrt(da2*db2)
}

func postingsFor(vec []int) []frequency.Posting {
	var p []frequency.Posting
	for article, count := range vec {
		if count != 0 {
			p = append(p, frequency.Posting{Article: uint32(article), Count: uint16(count)})
		}
	}
	return p
}

func TestPairCorrelationMatchesBruteForce(t *testing.T) {
	n := 5
	vectors := map[uint32][]int{
		0: {2, 0, 4, 0, 1}, // word "A"
		1: {1, 3, 2, 0, 0}, // word "B"
		2: {0, 5, 0, 2, 4}, // word "C"
	}
	postings := make(map[uint32][]frequency.Posting, len(vectors))
	for id, vec := range vectors {
		postings[id] = postingsFor(vec)
	}

	var buf bytes.Buffer
	dict, err := BuildMatrix(postings, n, 4, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if dict.Len() != 3 {
		t.Fatalf("PrunedDict.Len() = %d, want 3", dict.Len())
	}

	// D'=3 -> 3 pairs (1,0) (2,0) (2,1) -> 24 bytes.
	if buf.Len() != 24 {
		t.Fatalf("matrix byte length = %d, want 24", buf.Len())
	}

	readerFromBuf := func(b []byte) *Reader {
		f := newTempFile(t, b)
		r, err := OpenReader(f, dict)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { r.Close() })
		return r
	}
	r := readerFromBuf(buf.Bytes())

	cases := []struct{ x, y uint32 }{{0, 1}, {0, 2}, {1, 2}}
	for _, c := range cases {
		want := bruteForcePearson(vectors[c.x], vectors[c.y])
		got, err := r.Corr(c.x, c.y)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("Corr(%d,%d) = %v, want %v", c.x, c.y, got, want)
		}
	}
}

func TestCorrSelfCorrelationIsOne(t *testing.T) {
	n := 4
	postings := map[uint32][]frequency.Posting{
		0: postingsFor([]int{1, 2, 0, 3}),
		1: postingsFor([]int{0, 1, 1, 1}),
	}
	var buf bytes.Buffer
	dict, err := BuildMatrix(postings, n, 4, &buf)
	if err != nil {
		t.Fatal(err)
	}
	f := newTempFile(t, buf.Bytes())
	r, err := OpenReader(f, dict)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.Corr(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1.0 {
		t.Errorf("Corr(word, word) = %v, want 1.0", got)
	}
}

func TestCorrAllAgreesWithCorr(t *testing.T) {
	n := 6
	vectors := map[uint32][]int{
		0: {1, 0, 2, 3, 0, 1},
		1: {0, 4, 1, 0, 2, 1},
		2: {2, 2, 0, 1, 1, 0},
		3: {0, 0, 3, 0, 0, 2},
	}
	postings := make(map[uint32][]frequency.Posting, len(vectors))
	for id, vec := range vectors {
		postings[id] = postingsFor(vec)
	}
	var buf bytes.Buffer
	dict, err := BuildMatrix(postings, n, 4, &buf)
	if err != nil {
		t.Fatal(err)
	}
	f := newTempFile(t, buf.Bytes())
	r, err := OpenReader(f, dict)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	all, err := r.CorrAll(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	for other := uint32(0); other < 4; other++ {
		want, err := r.Corr(2, other)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(all[other]-want) > 1e-9 {
			t.Errorf("CorrAll(2)[%d] = %v, want %v (matching Corr)", other, all[other], want)
		}
	}
}

func TestCorrAllAgreesWithCorrForPrunedWord(t *testing.T) {
	n := 6
	vectors := map[uint32][]int{
		0: {1, 0, 2, 3, 0, 1},
		1: {0, 4, 1, 0, 2, 1},
		2: {2, 2, 0, 1, 1, 0},
	}
	postings := make(map[uint32][]frequency.Posting, len(vectors))
	for id, vec := range vectors {
		postings[id] = postingsFor(vec)
	}
	var buf bytes.Buffer
	dict, err := BuildMatrix(postings, n, 4, &buf)
	if err != nil {
		t.Fatal(err)
	}
	f := newTempFile(t, buf.Bytes())
	r, err := OpenReader(f, dict)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Word id 9 never appears in postings, so it was pruned out of the
	// matrix entirely: Corr and CorrAll must agree it is an error, not
	// silently report zeroes.
	const prunedWord = 9

	if _, err := r.Corr(prunedWord, 0); err == nil {
		t.Fatal("Corr() with a pruned word id should error")
	}
	if _, err := r.CorrAll(prunedWord, 10); err == nil {
		t.Fatal("CorrAll() with a pruned word id should error, matching Corr()")
	}
}

func TestMatrixByteLayoutFourWords(t *testing.T) {
	n := 10
	postings := map[uint32][]frequency.Posting{
		0: postingsFor([]int{1, 2, 3, 0, 1, 0, 2, 1, 0, 1}),
		1: postingsFor([]int{0, 1, 1, 1, 0, 2, 0, 1, 1, 0}),
		2: postingsFor([]int{3, 0, 2, 1, 0, 1, 1, 0, 2, 1}),
		3: postingsFor([]int{0, 2, 0, 1, 3, 0, 1, 1, 0, 2}),
	}
	var buf bytes.Buffer
	dict, err := BuildMatrix(postings, n, 4, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if dict.Len() != 4 {
		t.Fatalf("PrunedDict.Len() = %d, want 4", dict.Len())
	}
	if buf.Len() != 48 {
		t.Fatalf("matrix byte length = %d, want 48 (D'*(D'-1)/2 * 8 for D'=4)", buf.Len())
	}
}
