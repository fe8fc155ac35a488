// Package rhyme builds perfect and near rhyme equivalence classes over the
// words of a lyrics document, for colour-coded display.
//
// Classification is a pure function of its input word list plus the phonetic
// dictionary: groups are rebuilt wholesale on every pass and group IDs are
// assigned in the order each qualifying key is first encountered, so
// identical input always produces identical groups. A dictionary miss is
// never an error — spelling heuristics take over.
package rhyme

import (
	"strings"
	"sync"

	"github.com/MrWong99/versecraft/pkg/lyrics"
	"github.com/MrWong99/versecraft/pkg/phonetic"
)

// Classifier computes rhyme keys and equivalence classes. Keys are memoized
// per instance; the caches live as long as the Classifier so tests can reset
// them by constructing a fresh one. Safe for concurrent use.
type Classifier struct {
	index *phonetic.Index

	mu       sync.Mutex
	tailKeys map[string]string
	nearKeys map[string]string
}

// New returns a Classifier backed by the given phonetic index.
func New(index *phonetic.Index) *Classifier {
	return &Classifier{
		index:    index,
		tailKeys: make(map[string]string),
		nearKeys: make(map[string]string),
	}
}

// RhymeKey returns the perfect-rhyme key of word: the phoneme sequence from
// the last primary-stressed vowel to the end of the first pronunciation
// variant. For words missing from the dictionary the key is a spelling
// suffix: scanning from the end, characters are collected until a vowel
// letter has been seen and at least three characters are gathered. The empty
// normalized word yields the empty key.
func (c *Classifier) RhymeKey(word string) string {
	key := phonetic.Normalize(word)
	if key == "" {
		return ""
	}

	c.mu.Lock()
	if k, ok := c.tailKeys[key]; ok {
		c.mu.Unlock()
		return k
	}
	c.mu.Unlock()

	k := c.rhymeKey(key)

	c.mu.Lock()
	c.tailKeys[key] = k
	c.mu.Unlock()
	return k
}

func (c *Classifier) rhymeKey(word string) string {
	if prons, ok := c.index.Lookup(word); ok && len(prons) > 0 {
		return strings.Join(prons[0].RhymingTail(), " ")
	}
	return spellingSuffix(word)
}

// NearRhymeKey returns the assonance key of word: the final vowel phoneme of
// the first pronunciation variant with the stress digit stripped, or for
// unknown words the last vowel letter. Words without any vowel yield the
// empty key.
func (c *Classifier) NearRhymeKey(word string) string {
	key := phonetic.Normalize(word)
	if key == "" {
		return ""
	}

	c.mu.Lock()
	if k, ok := c.nearKeys[key]; ok {
		c.mu.Unlock()
		return k
	}
	c.mu.Unlock()

	k := c.nearRhymeKey(key)

	c.mu.Lock()
	c.nearKeys[key] = k
	c.mu.Unlock()
	return k
}

func (c *Classifier) nearRhymeKey(word string) string {
	if prons, ok := c.index.Lookup(word); ok && len(prons) > 0 {
		return prons[0].FinalVowel()
	}
	for i := len(word) - 1; i >= 0; i-- {
		if isVowelLetter(word[i]) {
			return string(word[i])
		}
	}
	return ""
}

// PerfectRhyme reports whether two distinct words appear in each other's
// dictionary rhyme list. The relation is symmetric and case-insensitive.
func (c *Classifier) PerfectRhyme(word1, word2 string) bool {
	w1 := phonetic.Normalize(word1)
	w2 := phonetic.Normalize(word2)
	if w1 == "" || w1 == w2 {
		return false
	}
	for _, r := range c.index.Rhymes(w1) {
		if r == w2 {
			return true
		}
	}
	return false
}

// Classify partitions words into rhyme groups.
//
// The input is first de-duplicated (order-preserving, normalized). Words
// sharing a non-empty [Classifier.RhymeKey] with at least one other word form
// perfect groups; of the remainder, words sharing a non-empty
// [Classifier.NearRhymeKey] form near groups. A word therefore belongs to at
// most one perfect group, and only if it is in no perfect group may it
// belong to one near group. Group IDs count up from 1 in first-encounter
// order of each qualifying key.
func (c *Classifier) Classify(words []string) []lyrics.RhymeGroup {
	uniq := dedupNormalized(words)

	var groups []lyrics.RhymeGroup
	nextID := 1

	perfect, placed := c.groupBy(uniq, c.RhymeKey, nil)
	for _, members := range perfect {
		groups = append(groups, lyrics.RhymeGroup{
			ID:      nextID,
			Kind:    lyrics.GroupPerfect,
			Members: members,
		})
		nextID++
	}

	near, _ := c.groupBy(uniq, c.NearRhymeKey, placed)
	for _, members := range near {
		groups = append(groups, lyrics.RhymeGroup{
			ID:      nextID,
			Kind:    lyrics.GroupNear,
			Members: members,
		})
		nextID++
	}
	return groups
}

// groupBy buckets words by keyFn in a single left-to-right scan, skipping
// empty keys and words already in excluded. It returns the member lists of
// every bucket with two or more words, ordered by the first encounter of the
// bucket's key, plus the set of words so placed.
func (c *Classifier) groupBy(
	words []string,
	keyFn func(string) string,
	excluded map[string]struct{},
) ([][]string, map[string]struct{}) {
	buckets := make(map[string][]string)
	var keyOrder []string

	for _, w := range words {
		if _, skip := excluded[w]; skip {
			continue
		}
		k := keyFn(w)
		if k == "" {
			continue
		}
		if _, seen := buckets[k]; !seen {
			keyOrder = append(keyOrder, k)
		}
		buckets[k] = append(buckets[k], w)
	}

	placed := make(map[string]struct{})
	var out [][]string
	for _, k := range keyOrder {
		members := buckets[k]
		if len(members) < 2 {
			continue
		}
		out = append(out, members)
		for _, w := range members {
			placed[w] = struct{}{}
		}
	}
	return out, placed
}

// Suggestions returns perfect and near rhyme candidates for word, for the
// editor's rhyme panel. Near candidates share only the final vowel sound and
// exclude every perfect rhyme. A word missing from the dictionary is first
// resolved to its nearest-sounding headword.
func (c *Classifier) Suggestions(word string) (perfect, near []string) {
	key := phonetic.Normalize(word)
	if key == "" {
		return nil, nil
	}
	if _, ok := c.index.Lookup(key); !ok {
		best := c.index.Suggest(key, 1)
		if len(best) == 0 {
			return nil, nil
		}
		key = best[0].Word
	}

	perfect = c.index.Rhymes(key)
	perfectSet := make(map[string]struct{}, len(perfect))
	for _, w := range perfect {
		perfectSet[w] = struct{}{}
	}
	for _, w := range c.index.Assonances(key) {
		if _, dup := perfectSet[w]; !dup {
			near = append(near, w)
		}
	}
	return perfect, near
}

// spellingSuffix implements the dictionary-miss rhyme key: collect characters
// from the end of the word until a vowel letter has been seen and at least
// three characters are gathered, then return that suffix in reading order.
func spellingSuffix(word string) string {
	seenVowel := false
	collected := 0
	i := len(word) - 1
	for ; i >= 0; i-- {
		collected++
		if isVowelLetter(word[i]) {
			seenVowel = true
		}
		if seenVowel && collected >= 3 {
			break
		}
	}
	if i < 0 {
		return word
	}
	return word[i:]
}

func dedupNormalized(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		n := phonetic.Normalize(w)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func isVowelLetter(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
