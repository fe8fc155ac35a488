// Package syllable estimates syllable counts for lyric words and lines.
//
// Counting is dictionary-first: when the phonetic index knows the word, the
// count is the number of stress-carrying phonemes in the first pronunciation
// variant. Unknown words fall back to counting maximal vowel-letter runs.
// Either way the result is at least 1 — a lookup miss is never an error.
package syllable

import (
	"strings"
	"sync"

	"github.com/MrWong99/versecraft/pkg/phonetic"
)

// chordNames is the stoplist of bare chord-letter names excluded from word
// extraction so that chord symbols typed inline (a stray "Am" or "G") are not
// miscounted as lyrics.
var chordNames = map[string]struct{}{
	"c": {}, "g": {}, "d": {}, "a": {}, "e": {}, "b": {}, "f": {},
	"am": {}, "em": {}, "bm": {}, "dm": {}, "gm": {}, "cm": {}, "fm": {},
}

// Counter estimates per-word syllable counts with per-instance memoization.
// The cache lives as long as the Counter, so tests get a clean cache from
// every [New] call. Safe for concurrent use.
type Counter struct {
	index *phonetic.Index

	mu    sync.Mutex
	cache map[string]int
}

// New returns a Counter backed by the given phonetic index.
func New(index *phonetic.Index) *Counter {
	return &Counter{
		index: index,
		cache: make(map[string]int),
	}
}

// Count returns the estimated syllable count of word, always >= 1.
func (c *Counter) Count(word string) int {
	key := phonetic.Normalize(word)

	c.mu.Lock()
	if n, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return n
	}
	c.mu.Unlock()

	n := c.count(key)

	c.mu.Lock()
	c.cache[key] = n
	c.mu.Unlock()
	return n
}

func (c *Counter) count(word string) int {
	if prons, ok := c.index.Lookup(word); ok && len(prons) > 0 {
		if n := prons[0].VowelCount(); n >= 1 {
			return n
		}
	}
	// Heuristic fallback: count maximal runs of vowel letters.
	runs := 0
	inRun := false
	for _, r := range word {
		if isVowelLetter(r) {
			if !inRun {
				runs++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	if runs < 1 {
		return 1
	}
	return runs
}

// CountLine returns the total syllable count of one line of editor text.
// Bracketed chord annotations (e.g. "home[Am]") are stripped first, then
// alphabetic words are extracted and bare chord names discarded.
func (c *Counter) CountLine(line string) int {
	total := 0
	for _, word := range ExtractWords(line) {
		total += c.Count(word)
	}
	return total
}

// ExtractWords returns the normalized lyric words of a line of editor text,
// in order, with chord annotations and chord-name noise removed.
func ExtractWords(line string) []string {
	var words []string
	for _, field := range strings.Fields(stripChordAnnotations(line)) {
		word := phonetic.Normalize(field)
		if word == "" {
			continue
		}
		if _, isChord := chordNames[word]; isChord {
			continue
		}
		words = append(words, word)
	}
	return words
}

// stripChordAnnotations removes every bracketed substring from line.
// An unmatched opening bracket is left as-is.
func stripChordAnnotations(line string) string {
	for {
		open := strings.IndexByte(line, '[')
		if open < 0 {
			return line
		}
		close := strings.IndexByte(line[open:], ']')
		if close < 0 {
			return line
		}
		line = line[:open] + line[open+close+1:]
	}
}

func isVowelLetter(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
