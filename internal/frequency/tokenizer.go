package frequency

import (
	"math"
	"regexp"
	"strings"

	"github.com/unsignedbyte/wikidle/internal/dict"
)

// wordPattern matches maximal runs of non-whitespace (`\S+`). Unlike the
// original `\b[^\s]+\b` regex, it requires no word boundary at either
// end, so leading and trailing punctuation stay on the token: "fox." and
// "fox" are distinct tokens.
var wordPattern = regexp.MustCompile(`\S+`)

// Tokenize splits body into tokens, lowercases them, and counts
// occurrences of those present in d. Tokens absent from the dictionary
// are dropped. Counts saturate at math.MaxUint16 instead of wrapping.
func Tokenize(body string, d *dict.Dict) PerArticleCounts {
	counts := make(PerArticleCounts)
	for _, tok := range wordPattern.FindAllString(body, -1) {
		id, ok := d.Lookup(strings.ToLower(tok))
		if !ok {
			continue
		}
		if counts[id] < math.MaxUint16 {
			counts[id]++
		}
	}
	return counts
}
