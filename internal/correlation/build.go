package correlation

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/unsignedbyte/wikidle/internal/frequency"
	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// parallelThreshold is the pruned-dictionary size above which row
// computation is fanned out across a worker pool instead of running
// sequentially (spec.md §4.3).
const parallelThreshold = 1000

// rowStat holds the pre-summed statistics the pairwise correlation
// formula needs for one matrix row, computed once up front so the O(D'^2)
// pairwise pass only has to do an intersection and a handful of
// multiplications per pair.
type rowStat struct {
	postings []frequency.Posting // sorted ascending by Article (guaranteed by frequency.Table.Invert)
	mu       float64             // mean count across all N articles, including zeros
	sum      float64             // sum of (count - mu) over nonzero postings only
	sum2     float64             // sum of (count - mu)^2 over all N articles
}

func buildRowStats(postings map[uint32][]frequency.Posting, dict PrunedDict, n int) []rowStat {
	rows := make([]rowStat, dict.Len())
	for originalID, p := range postings {
		matrixID, ok := dict.MatrixID(originalID)
		if !ok {
			continue
		}
		var total float64
		for _, posting := range p {
			total += float64(posting.Count)
		}
		mu := total / float64(n)

		var sum, sum2 float64
		for _, posting := range p {
			d := float64(posting.Count) - mu
			sum += d
			sum2 += d * d
		}
		sum2 += float64(n-len(p)) * mu * mu

		rows[matrixID] = rowStat{postings: p, mu: mu, sum: sum, sum2: sum2}
	}
	return rows
}

// pairCorrelation computes the Pearson correlation coefficient between
// matrix rows i and j (i != j) given their pre-summed statistics and the
// total article count n. It merges the two (already sorted) posting
// lists instead of hashing them, since frequency.Table.Invert yields
// postings in ascending article order.
func pairCorrelation(ri, rj rowStat, n int) float64 {
	num := ri.sum*-rj.mu + rj.sum*-ri.mu

	pi, pj := ri.postings, rj.postings
	a, b := 0, 0
	shared := 0
	for a < len(pi) && b < len(pj) {
		switch {
		case pi[a].Article == pj[b].Article:
			da := float64(pi[a].Count) - ri.mu
			db := float64(pj[b].Count) - rj.mu
			num += da*rj.mu + db*ri.mu + da*db
			shared++
			a++
			b++
		case pi[a].Article < pj[b].Article:
			a++
		default:
			b++
		}
	}

	neither := float64(n - len(pi) - len(pj) + shared)
	num += neither * ri.mu * rj.mu

	return num / math.Sqrt(ri.sum2*rj.sum2)
}

// BuildMatrix computes the strictly-lower-triangular correlation matrix
// (spec.md §4.3) and writes it row-major as big-endian float64 values to
// w. postings is the C4 inversion output; n is N, the total article
// count; workers is the worker-pool degree used when the pruned
// dictionary exceeds parallelThreshold words.
//
// The returned PrunedDict records which original dictionary ids survived
// pruning and their matrix-id assignment; persist it alongside the
// matrix (spec.md §6, corrindex.dat) since corr/rank lookups need it to
// translate dictionary ids into matrix coordinates.
func BuildMatrix(postings map[uint32][]frequency.Posting, n int, workers int, w io.Writer) (PrunedDict, error) {
	presentIDs := make([]uint32, 0, len(postings))
	for id, p := range postings {
		if len(p) > 0 {
			presentIDs = append(presentIDs, id)
		}
	}
	dict := NewPrunedDict(presentIDs)
	rows := buildRowStats(postings, dict, n)

	dPrime := dict.Len()
	if dPrime < 2 {
		return dict, nil
	}

	bw := &binaryRowWriter{w: w}
	if dPrime > parallelThreshold {
		return dict, buildParallel(rows, n, workers, bw)
	}
	return dict, buildSequential(rows, n, bw)
}

func buildSequential(rows []rowStat, n int, w *binaryRowWriter) error {
	for a := 1; a < len(rows); a++ {
		row := make([]float64, a)
		for b := 0; b < a; b++ {
			row[b] = pairCorrelation(rows[a], rows[b], n)
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// buildParallel computes one row at a time, fanning its j-loop (b in
// 0..a) across a worker pool of the given size and joining before moving
// on to the next row. Rows are never computed concurrently with each
// other: the matrix file's row-major layout writes row a before row a+1,
// and spec.md §5 restricts C5's parallelism to within a single row.
func buildParallel(rows []rowStat, n int, workers int, w *binaryRowWriter) error {
	if workers < 1 {
		workers = 1
	}

	for a := 1; a < len(rows); a++ {
		row := make([]float64, a)

		jobs := make(chan int)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for b := range jobs {
					row[b] = pairCorrelation(rows[a], rows[b], n)
				}
			}()
		}
		for b := 0; b < a; b++ {
			jobs <- b
		}
		close(jobs)
		wg.Wait()

		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// binaryRowWriter writes rows of float64 values as big-endian bytes.
type binaryRowWriter struct {
	w   io.Writer
	buf []byte
}

func (bw *binaryRowWriter) writeRow(row []float64) error {
	need := len(row) * 8
	if cap(bw.buf) < need {
		bw.buf = make([]byte, need)
	}
	bw.buf = bw.buf[:need]
	for i, v := range row {
		binary.BigEndian.PutUint64(bw.buf[i*8:], math.Float64bits(v))
	}
	if _, err := bw.w.Write(bw.buf); err != nil {
		return fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return nil
}
