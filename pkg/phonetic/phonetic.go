// Package phonetic provides pronunciation lookup for the annotation engine.
//
// An [Index] wraps a CMU-format pronouncing dictionary: each headword maps to
// one or more pronunciation variants, each a sequence of ARPAbet phonemes
// where vowels carry a stress digit (0 = unstressed, 1 = primary,
// 2 = secondary). The index is immutable once loaded and memoizes lookups per
// normalized word, including negative results. It is the only place
// dictionary access occurs; rhyme classification and syllable counting build
// on it rather than on the dictionary file directly.
//
// For words absent from the dictionary, [Index.Suggest] finds the nearest
// known headwords using Double Metaphone candidate filtering followed by
// Jaro-Winkler ranking.
package phonetic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Pronunciation is one pronunciation variant: an ordered phoneme sequence
// with stress digits on vowels (e.g. ["HH", "AH0", "L", "OW1"]).
type Pronunciation []string

// hasStressDigit reports whether phoneme ends in a stress digit, which in
// ARPAbet marks it as a vowel.
func hasStressDigit(phoneme string) bool {
	if phoneme == "" {
		return false
	}
	c := phoneme[len(phoneme)-1]
	return c >= '0' && c <= '9'
}

// stripStress removes a trailing stress digit from phoneme, if any.
func stripStress(phoneme string) string {
	if hasStressDigit(phoneme) {
		return phoneme[:len(phoneme)-1]
	}
	return phoneme
}

// VowelCount returns the number of vowel phonemes (those carrying a stress
// digit). This is the syllable count of the pronunciation.
func (p Pronunciation) VowelCount() int {
	n := 0
	for _, ph := range p {
		if hasStressDigit(ph) {
			n++
		}
	}
	return n
}

// FinalVowel returns the last vowel phoneme with its stress digit stripped,
// or "" when the pronunciation contains no vowel.
func (p Pronunciation) FinalVowel() string {
	for i := len(p) - 1; i >= 0; i-- {
		if hasStressDigit(p[i]) {
			return stripStress(p[i])
		}
	}
	return ""
}

// RhymingTail returns the phoneme sequence from the last primary-stressed
// vowel to the end. When no vowel carries primary stress the last vowel with
// any stress digit is used; a pronunciation without vowels rhymes on its full
// sequence.
func (p Pronunciation) RhymingTail() Pronunciation {
	last := -1
	for i := len(p) - 1; i >= 0; i-- {
		if strings.HasSuffix(p[i], "1") {
			last = i
			break
		}
	}
	if last < 0 {
		for i := len(p) - 1; i >= 0; i-- {
			if hasStressDigit(p[i]) {
				last = i
				break
			}
		}
	}
	if last < 0 {
		last = 0
	}
	return p[last:]
}

// key returns the tail as a single comparable string.
func (p Pronunciation) key() string {
	return strings.Join(p, " ")
}

// Normalize reduces word to its dictionary form: lowercase with every
// non-alphabetic rune removed. The empty string is a valid result.
func Normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index is a loaded pronouncing dictionary with per-instance memoization.
// The cache lifetime is tied to the Index value, so tests get a clean cache
// from every constructor call. All methods are safe for concurrent use.
type Index struct {
	entries map[string][]Pronunciation

	mu      sync.Mutex
	lookups map[string][]Pronunciation

	tailOnce sync.Once
	byTail   map[string][]string

	vowelOnce sync.Once
	byVowel   map[string][]string

	codeOnce  sync.Once
	byCode    map[string][]string
	headwords []string
}

// NewIndex builds an Index from an already-parsed entry map. The map is
// retained; callers must not mutate it afterwards.
func NewIndex(entries map[string][]Pronunciation) *Index {
	return &Index{
		entries: entries,
		lookups: make(map[string][]Pronunciation),
	}
}

// Load reads a CMU-format dictionary file from path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("phonetic: open %q: %w", path, err)
	}
	defer f.Close()

	ix, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("phonetic: parse %q: %w", path, err)
	}
	return ix, nil
}

// Parse reads a CMU-format dictionary from r. Lines are
//
//	HEADWORD  PH0 PH1 ...
//	HEADWORD(1)  PH0 PH1 ...   (additional variant)
//	;;; comment
//
// Headwords are normalized; variant suffixes are folded into the headword's
// variant list in file order. Blank and comment lines are skipped.
func Parse(r io.Reader) (*Index, error) {
	entries := make(map[string][]Pronunciation)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";;;") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		head := fields[0]
		if i := strings.IndexByte(head, '('); i >= 0 {
			head = head[:i]
		}
		word := Normalize(head)
		if word == "" {
			continue
		}
		entries[word] = append(entries[word], Pronunciation(fields[1:]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phonetic: read dictionary: %w", err)
	}
	return NewIndex(entries), nil
}

// Len returns the number of distinct headwords.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Lookup returns the pronunciation variants for word, or ok=false when the
// dictionary has no entry. The result is memoized per normalized word; the
// empty normalization is itself a valid (not-found) cache key. Lookup never
// fails — absence of data is an ordinary outcome, not an error.
func (ix *Index) Lookup(word string) ([]Pronunciation, bool) {
	key := Normalize(word)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if prons, seen := ix.lookups[key]; seen {
		return prons, prons != nil
	}
	prons := ix.entries[key]
	ix.lookups[key] = prons
	return prons, prons != nil
}

// Rhymes returns every dictionary headword that shares a rhyming tail with
// any pronunciation variant of word, excluding word itself. The relation is
// symmetric by construction. Unknown words yield an empty list.
func (ix *Index) Rhymes(word string) []string {
	prons, ok := ix.Lookup(word)
	if !ok {
		return nil
	}
	ix.buildTailIndex()

	self := Normalize(word)
	seen := make(map[string]struct{})
	var out []string
	for _, p := range prons {
		for _, w := range ix.byTail[p.RhymingTail().key()] {
			if w == self {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// Assonances returns every dictionary headword whose first pronunciation
// variant ends on the same vowel sound as word's, excluding word itself.
// Used for near-rhyme suggestions. Unknown words yield an empty list.
func (ix *Index) Assonances(word string) []string {
	prons, ok := ix.Lookup(word)
	if !ok || len(prons) == 0 {
		return nil
	}
	vowel := prons[0].FinalVowel()
	if vowel == "" {
		return nil
	}
	ix.buildVowelIndex()

	self := Normalize(word)
	var out []string
	for _, w := range ix.byVowel[vowel] {
		if w != self {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// buildVowelIndex lazily builds the final-vowel reverse index over the first
// pronunciation variant of every headword.
func (ix *Index) buildVowelIndex() {
	ix.vowelOnce.Do(func() {
		ix.byVowel = make(map[string][]string)
		for word, prons := range ix.entries {
			if len(prons) == 0 {
				continue
			}
			if v := prons[0].FinalVowel(); v != "" {
				ix.byVowel[v] = append(ix.byVowel[v], word)
			}
		}
	})
}

// buildTailIndex lazily builds the rhyming-tail reverse index over all
// pronunciation variants.
func (ix *Index) buildTailIndex() {
	ix.tailOnce.Do(func() {
		ix.byTail = make(map[string][]string)
		for word, prons := range ix.entries {
			for _, p := range prons {
				tail := p.RhymingTail().key()
				ix.byTail[tail] = append(ix.byTail[tail], word)
			}
		}
	})
}
