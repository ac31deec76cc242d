package frequency

import (
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/unsignedbyte/wikidle/internal/dict"
)

func TestTokenizeDropsWordsOutsideDict(t *testing.T) {
	d := dict.FromWords([]string{"the", "quick", "brown", "fox"})
	got := Tokenize("The quick BROWN fox.", d)

	the, _ := d.Lookup("the")
	quick, _ := d.Lookup("quick")
	brown, _ := d.Lookup("brown")

	want := PerArticleCounts{
		the:   1,
		quick: 1,
		brown: 1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v (literal token \"fox.\" must be dropped, it is not in the dict)", got, want)
	}
}

func TestTokenizeCountsSaturateInsteadOfWrapping(t *testing.T) {
	d := dict.FromWords([]string{"fox"})
	body := strings.Repeat("fox ", math.MaxUint16+10)
	got := Tokenize(body, d)

	fox, _ := d.Lookup("fox")
	if got[fox] != math.MaxUint16 {
		t.Errorf("Tokenize() count = %d, want saturated at %d", got[fox], math.MaxUint16)
	}
}

func TestEncodeDecodeCountsRoundTrip(t *testing.T) {
	want := PerArticleCounts{0: 3, 5: 1, 9: 12}
	b, err := EncodeCounts(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeCounts(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestTableInsertAndInvert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.dat")

	tbl, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	articles := []PerArticleCounts{
		{0: 2, 1: 1},
		{1: 3},
		{0: 1, 2: 5},
	}
	for i, a := range articles {
		ordinal, err := tbl.Insert(a)
		if err != nil {
			t.Fatal(err)
		}
		if int(ordinal) != i {
			t.Fatalf("Insert() ordinal = %d, want %d", ordinal, i)
		}
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	postings, err := tbl.Invert()
	if err != nil {
		t.Fatal(err)
	}

	want := map[uint32][]Posting{
		0: {{Article: 0, Count: 2}, {Article: 2, Count: 1}},
		1: {{Article: 0, Count: 1}, {Article: 1, Count: 3}},
		2: {{Article: 2, Count: 5}},
	}
	if !reflect.DeepEqual(postings, want) {
		t.Errorf("Invert() = %v, want %v", postings, want)
	}
}

func TestTableReopenResumesIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.dat")

	tbl, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Insert(PerArticleCounts{0: 1}); err != nil {
		t.Fatal(err)
	}
	savedIndex := append([]int64(nil), tbl.Index()...)
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}

	resumed, err := Reopen(path, savedIndex)
	if err != nil {
		t.Fatal(err)
	}
	defer resumed.Close()

	if resumed.Len() != 1 {
		t.Fatalf("Len() after Reopen = %d, want 1", resumed.Len())
	}
	if _, err := resumed.Insert(PerArticleCounts{1: 9}); err != nil {
		t.Fatal(err)
	}
	if resumed.Len() != 2 {
		t.Fatalf("Len() after resumed Insert = %d, want 2", resumed.Len())
	}

	postings, err := resumed.Invert()
	if err != nil {
		t.Fatal(err)
	}
	if len(postings[0]) != 1 || postings[0][0].Article != 0 {
		t.Errorf("postings[0] = %v, want the pre-resume record preserved", postings[0])
	}
	if len(postings[1]) != 1 || postings[1][0].Article != 1 {
		t.Errorf("postings[1] = %v, want the post-resume record", postings[1])
	}
}

func TestEncodeDecodeIndexRoundTrip(t *testing.T) {
	want := []int64{0, 42, 108}
	b, err := EncodeIndex(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeIndex(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}
