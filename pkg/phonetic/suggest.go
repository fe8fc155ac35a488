package phonetic

import (
	"sort"

	"github.com/antzucaro/matchr"
)

const defaultSuggestThreshold = 0.70

// Suggestion is one candidate headword for a word missing from the
// dictionary, ranked by string similarity.
type Suggestion struct {
	// Word is the dictionary headword.
	Word string

	// Score is the Jaro-Winkler similarity to the queried word in [0, 1].
	Score float64
}

// Suggest returns up to n dictionary headwords that sound like word,
// best first. Candidates are filtered by Double Metaphone code overlap, then
// ranked by Jaro-Winkler similarity; candidates scoring below 0.70 are
// dropped. Known words return themselves as the sole, exact suggestion.
//
// This powers dictionary-miss diagnostics and rhyme suggestions for words
// the classifier would otherwise handle only by spelling heuristics.
func (ix *Index) Suggest(word string, n int) []Suggestion {
	if n <= 0 {
		return nil
	}
	key := Normalize(word)
	if key == "" {
		return nil
	}
	if _, ok := ix.Lookup(key); ok {
		return []Suggestion{{Word: key, Score: 1}}
	}

	ix.buildCodeIndex()

	primary, secondary := matchr.DoubleMetaphone(key)
	candidates := make(map[string]struct{})
	for _, code := range []string{primary, secondary} {
		if code == "" {
			continue
		}
		for _, w := range ix.byCode[code] {
			candidates[w] = struct{}{}
		}
	}

	// Without any phonetic candidate, fall back to ranking the full headword
	// list. This is rare (non-alphabetic noise words) and still bounded by
	// the dictionary size.
	pool := make([]string, 0, len(candidates))
	if len(candidates) > 0 {
		for w := range candidates {
			pool = append(pool, w)
		}
	} else {
		pool = ix.headwords
	}

	scored := make([]Suggestion, 0, len(pool))
	for _, w := range pool {
		score := matchr.JaroWinkler(key, w, false)
		if score < defaultSuggestThreshold {
			continue
		}
		scored = append(scored, Suggestion{Word: w, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Word < scored[j].Word
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// buildCodeIndex lazily builds the Double Metaphone code index over all
// headwords.
func (ix *Index) buildCodeIndex() {
	ix.codeOnce.Do(func() {
		ix.byCode = make(map[string][]string)
		ix.headwords = make([]string, 0, len(ix.entries))
		for word := range ix.entries {
			ix.headwords = append(ix.headwords, word)
			primary, secondary := matchr.DoubleMetaphone(word)
			if primary != "" {
				ix.byCode[primary] = append(ix.byCode[primary], word)
			}
			if secondary != "" && secondary != primary {
				ix.byCode[secondary] = append(ix.byCode[secondary], word)
			}
		}
		sort.Strings(ix.headwords)
	})
}
