package document

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Scored is a chunk with its index in the document and its query score.
type Scored struct {
	Index int
	Text  string
	Score float64
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "when": {}, "which": {}, "with": {},
	"my": {}, "me": {}, "do": {}, "does": {}, "can": {}, "you": {}, "please": {},
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Rank scores chunks against the query with TF-IDF and returns the best k
// in score order. When no query term matches, the first k chunks are
// returned so broad requests such as "summarise" still get context.
func Rank(chunks []string, query string, k int) []Scored {
	if len(chunks) == 0 {
		return nil
	}
	if k <= 0 || k > len(chunks) {
		k = len(chunks)
	}

	terms := tokenize(query)
	tf := make([]map[string]int, len(chunks))
	lengths := make([]int, len(chunks))
	df := make(map[string]int, len(terms))
	for i, c := range chunks {
		tokens := tokenize(c)
		lengths[i] = len(tokens)
		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		tf[i] = counts
		for _, term := range uniq(terms) {
			if counts[term] > 0 {
				df[term]++
			}
		}
	}

	n := float64(len(chunks))
	scored := make([]Scored, len(chunks))
	matched := false
	for i, c := range chunks {
		var score float64
		if lengths[i] > 0 {
			for _, term := range terms {
				count := tf[i][term]
				if count == 0 {
					continue
				}
				idf := math.Log(1 + n/float64(df[term]))
				score += float64(count) / float64(lengths[i]) * idf
			}
		}
		if score > 0 {
			matched = true
		}
		scored[i] = Scored{Index: i, Text: c, Score: score}
	}

	if matched {
		sort.SliceStable(scored, func(a, b int) bool {
			return scored[a].Score > scored[b].Score
		})
	}
	return scored[:k]
}

func uniq(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
