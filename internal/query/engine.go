// Package query implements the online query engine (C7): LRU-cached
// correlation lookups, rank computation, and the deterministic daily
// answer rotation.
package query

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unsignedbyte/wikidle/internal/config"
	"github.com/unsignedbyte/wikidle/internal/correlation"
	"github.com/unsignedbyte/wikidle/internal/dict"
	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// shuffleSeed is the fixed ChaCha8 seed used to derive the answer
// rotation. It is a arbitrary, deliberately chosen 32-byte string — the
// property that matters is that it is constant across builds, so the
// same dictionary always produces the same daily answer sequence.
const shuffleSeed = "MERLIN 2.0 fan v.s. HMM enjoyer\n"

// RootDate is the day the answer rotation is indexed from (day 0).
var RootDate = time.Date(2022, time.May, 9, 0, 0, 0, 0, time.UTC)

// RankedWord pairs a dictionary word id with its correlation to some
// fixed answer word, used for sorted rank lookups.
type RankedWord struct {
	WordID uint32
	Corr   float64
}

// GuessResult is what Guess reports for one submitted word.
type GuessResult struct {
	Word        string
	Correlation float64
	Rank        int // 1-based: 1 means the guess is the answer itself
	Correct     bool
}

// Engine is the online query engine. It owns two bounded caches (spec.md
// §4.6): corrsCache holds full correlation rows keyed by word id,
// ranksCache holds the smaller set of sorted rank orderings actually
// queried (in practice just the handful of live-rotation answer words).
type Engine struct {
	dict *dict.Dict
	corr *correlation.Reader

	answers []uint32 // shuffled dictionary ids, indexed by day offset from RootDate

	mu         sync.RWMutex
	corrsCache *lru.Cache[uint32, []float64]
	ranksCache *lru.Cache[uint32, []RankedWord]
}

// New builds a query engine. answerWords is the curated daily-answer
// wordlist (spec.md's answers file); every entry must already exist in
// d, or New returns an error wrapping korelerr.ErrInvalidWord.
func New(d *dict.Dict, corr *correlation.Reader, answerWords []string, tuning config.Tuning) (*Engine, error) {
	ids := make([]uint32, 0, len(answerWords))
	for _, w := range answerWords {
		id, ok := d.Lookup(w)
		if !ok {
			return nil, fmt.Errorf("%w: answer word %q not in dictionary", korelerr.ErrInvalidWord, w)
		}
		ids = append(ids, id)
	}
	shuffle(ids)

	corrsCache, err := lru.New[uint32, []float64](tuning.CorrsCacheSize)
	if err != nil {
		return nil, err
	}
	ranksCache, err := lru.New[uint32, []RankedWord](tuning.RanksCacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		dict:       d,
		corr:       corr,
		answers:    ids,
		corrsCache: corrsCache,
		ranksCache: ranksCache,
	}, nil
}

// shuffle applies a Fisher-Yates shuffle driven by a ChaCha8 PRNG seeded
// with the fixed shuffleSeed, so every run of the pipeline produces the
// identical answer rotation for a given answers wordlist.
func shuffle(ids []uint32) {
	var seed [32]byte
	copy(seed[:], shuffleSeed)
	rng := rand.New(rand.NewChaCha8(seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// Answer returns the dictionary id of the word assigned to the given
// date. The rotation is periodic with period len(answers); offsets
// before RootDate wrap around using Euclidean (always non-negative)
// modulo rather than Go's truncating %.
func (e *Engine) Answer(date time.Time) uint32 {
	days := int(date.Truncate(24*time.Hour).Sub(RootDate.Truncate(24*time.Hour)).Hours() / 24)
	n := len(e.answers)
	idx := ((days % n) + n) % n
	return e.answers[idx]
}

// corrs returns the full correlation row for word (correlation against
// every dictionary word, indexed by dictionary id), populating
// corrsCache on miss.
func (e *Engine) corrs(word uint32) ([]float64, error) {
	e.mu.RLock()
	if v, ok := e.corrsCache.Get(word); ok {
		e.mu.RUnlock()
		return v, nil
	}
	e.mu.RUnlock()

	row, err := e.corr.CorrAll(word, e.dict.Len())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.corrsCache.Add(word, row)
	e.mu.Unlock()
	return row, nil
}

// ranks returns word's correlation row sorted descending, populating
// ranksCache on miss. Rank 1 is always the word itself (correlation 1.0).
func (e *Engine) ranks(word uint32) ([]RankedWord, error) {
	e.mu.RLock()
	if v, ok := e.ranksCache.Get(word); ok {
		e.mu.RUnlock()
		return v, nil
	}
	e.mu.RUnlock()

	row, err := e.corrs(word)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedWord, len(row))
	for id, c := range row {
		ranked[id] = RankedWord{WordID: uint32(id), Corr: c}
	}
	sort.Slice(ranked, func(i, j int) bool {
		// NaN (a zero-variance word) sorts last, keeping the order total.
		a, b := ranked[i].Corr, ranked[j].Corr
		if math.IsNaN(a) || math.IsNaN(b) {
			return !math.IsNaN(a) && math.IsNaN(b)
		}
		return a > b
	})

	e.mu.Lock()
	e.ranksCache.Add(word, ranked)
	e.mu.Unlock()
	return ranked, nil
}

// rankOf returns guess's 1-based position in answer's sorted correlation
// ranking.
func (e *Engine) rankOf(answer, guess uint32) (int, error) {
	ranked, err := e.ranks(answer)
	if err != nil {
		return 0, err
	}
	for i, r := range ranked {
		if r.WordID == guess {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: word id %d missing from rank ordering", korelerr.ErrInvalidWord, guess)
}

// resolveInPrunedDict looks up each word in the dictionary and requires
// it to also have survived pruning (i.e. it occurs in at least one
// article, so it has a row in the correlation matrix). It returns a
// wrapped korelerr.ErrInvalidWord for the first word that fails either
// check.
func (e *Engine) resolveInPrunedDict(words []string) ([]uint32, error) {
	pruned := e.corr.PrunedDict()
	ids := make([]uint32, len(words))
	for i, w := range words {
		id, ok := e.dict.Lookup(w)
		if !ok {
			return nil, fmt.Errorf("%w: %q", korelerr.ErrInvalidWord, w)
		}
		if _, ok := pruned.MatrixID(id); !ok {
			return nil, fmt.Errorf("%w: %q has no correlation row", korelerr.ErrInvalidWord, w)
		}
		ids[i] = id
	}
	return ids, nil
}

// CorrMatrix returns the all-pairs correlation matrix between two word
// lists: matrix[i][j] is the correlation between a[i] and b[j]. It fails
// with korelerr.ErrInvalidWord if any word in either list is outside the
// pruned dictionary.
func (e *Engine) CorrMatrix(a, b []string) ([][]float64, error) {
	aIDs, err := e.resolveInPrunedDict(a)
	if err != nil {
		return nil, err
	}
	bIDs, err := e.resolveInPrunedDict(b)
	if err != nil {
		return nil, err
	}

	matrix := make([][]float64, len(aIDs))
	for i, ai := range aIDs {
		row, err := e.corrs(ai)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(bIDs))
		for j, bj := range bIDs {
			out[j] = row[bj]
		}
		matrix[i] = out
	}
	return matrix, nil
}

// RawEntry pairs a dictionary word with its correlation to some other,
// fixed word.
type RawEntry struct {
	Word string
	Corr float64
}

// Raw returns word's correlation against the whole pruned dictionary,
// sorted by descending correlation and paired with each word's text
// (spec.md §6, raw(word) -> [(word, f64)]).
func (e *Engine) Raw(word string) ([]RawEntry, error) {
	id, ok := e.dict.Lookup(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", korelerr.ErrInvalidWord, word)
	}
	ranked, err := e.ranks(id)
	if err != nil {
		return nil, err
	}
	pruned := e.corr.PrunedDict()
	out := make([]RawEntry, 0, pruned.Len())
	for _, r := range ranked {
		if _, ok := pruned.MatrixID(r.WordID); !ok {
			continue
		}
		w, ok := e.dict.Word(r.WordID)
		if !ok {
			continue
		}
		out = append(out, RawEntry{Word: w, Corr: r.Corr})
	}
	return out, nil
}

// Guess scores a single guessed word against the answer assigned to
// date.
func (e *Engine) Guess(date time.Time, guess string) (GuessResult, error) {
	guess = strings.TrimSpace(guess)
	guessID, ok := e.dict.Lookup(guess)
	if !ok {
		return GuessResult{}, fmt.Errorf("%w: %q", korelerr.ErrInvalidWord, guess)
	}

	answer := e.Answer(date)
	corr, err := e.corr.Corr(answer, guessID)
	if err != nil {
		return GuessResult{}, err
	}
	rank, err := e.rankOf(answer, guessID)
	if err != nil {
		return GuessResult{}, err
	}

	return GuessResult{
		Word:        strings.ToLower(guess),
		Correlation: corr,
		Rank:        rank,
		Correct:     guessID == answer,
	}, nil
}

// WarmCache pre-populates the caches for the answers surrounding date
// (spec.md §4.6: yesterday/today/tomorrow), so the scheduler (C8) can
// keep the query engine warm ahead of requests.
func (e *Engine) WarmCache(date time.Time) error {
	for _, offset := range []int{-1, 0, 1} {
		d := date.AddDate(0, 0, offset)
		if _, err := e.ranks(e.Answer(d)); err != nil {
			return err
		}
	}
	return nil
}
