// Package lyrics defines the core data model for the Versecraft annotation
// engine: timed word tokens, chord segments, and rhyme groups.
//
// Tokens are owned exclusively by the annotation store
// (internal/store); all other packages treat them as values. Rhyme groups and
// syllable counts are derived data — recomputed wholesale on every
// notification cycle and never persisted.
package lyrics

import (
	"strings"

	"github.com/google/uuid"
)

// Token is one timed word together with its annotations. Tokens are ordered
// by Start (non-decreasing) within a document.
type Token struct {
	// ID uniquely identifies the token for edit operations. Assigned once at
	// creation and stable across recompute passes.
	ID string

	// Text is the word as displayed and edited.
	Text string

	// Start and End bound the word in seconds, Start <= End.
	Start float64
	End   float64

	// Confidence is the recognition confidence in [0, 1]. A manual edit
	// forces it to 1.0.
	Confidence float64

	// Chord is the chord symbol assigned to this word, or "" when none.
	Chord string

	// AltText and AltChord carry the alternative-lyrics service's suggestion
	// aligned to this token, or "" when none.
	AltText  string
	AltChord string

	// AltStart and AltEnd are the alternative word's own timing, when known.
	AltStart *float64
	AltEnd   *float64

	// LineBreakAfter marks the end of a display line. Set by punctuation
	// heuristics on import, by manual line edits, and by the re-flow engine.
	LineBreakAfter bool
}

// NewToken creates a token with a fresh ID.
func NewToken(text string, start, end, confidence float64) Token {
	return Token{
		ID:         uuid.NewString(),
		Text:       text,
		Start:      start,
		End:        end,
		Confidence: confidence,
	}
}

// Mid returns the token's time midpoint.
func (t Token) Mid() float64 {
	return 0.5 * (t.Start + t.End)
}

// Display returns the token text as rendered in the editor, with the chord
// annotation appended in brackets when present (e.g. "home[Am]").
func (t Token) Display() string {
	if t.Chord == "" {
		return t.Text
	}
	return t.Text + "[" + t.Chord + "]"
}

// endOfSentence matches the punctuation that seeds an initial line break.
const endOfSentence = ".!?:;"

// EndsSentence reports whether the token text ends with sentence-final
// punctuation and should therefore carry an initial line break.
func (t Token) EndsSentence() bool {
	txt := strings.TrimSpace(t.Text)
	if txt == "" {
		return false
	}
	return strings.ContainsRune(endOfSentence, rune(txt[len(txt)-1]))
}

// SeedLineBreaks sets LineBreakAfter on every token whose text ends a
// sentence, plus the final token. Existing break flags are replaced. Used
// once on import; later layout is owned by the re-flow engine and manual
// line edits.
func SeedLineBreaks(tokens []Token) {
	for i := range tokens {
		tokens[i].LineBreakAfter = tokens[i].EndsSentence()
	}
	if n := len(tokens); n > 0 {
		tokens[n-1].LineBreakAfter = true
	}
}

// Lines splits tokens into display lines on the LineBreakAfter flags. The
// returned sub-slices share backing storage with tokens. A trailing run
// without a break flag forms the final line.
func Lines(tokens []Token) [][]Token {
	var lines [][]Token
	start := 0
	for i := range tokens {
		if tokens[i].LineBreakAfter {
			lines = append(lines, tokens[start:i+1])
			start = i + 1
		}
	}
	if start < len(tokens) {
		lines = append(lines, tokens[start:])
	}
	return lines
}

// LineText renders one line of tokens as editor text, words separated by a
// single space and chords bracketed.
func LineText(line []Token) string {
	parts := make([]string, len(line))
	for i, t := range line {
		parts[i] = t.Display()
	}
	return strings.Join(parts, " ")
}

// Chord is one detected chord segment. Segments are time-ordered and never
// overlap.
type Chord struct {
	// Symbol is the full chord name (e.g. "Am", "F#m7", "C/G").
	Symbol string

	// Root is the root note letter with accidental (e.g. "A", "F#").
	Root string

	// Quality is the chord quality (e.g. "maj", "min", "7").
	Quality string

	// Bass is the bass note for slash chords, or "" when the root is the bass.
	Bass string

	// Start and End bound the segment in seconds.
	Start float64
	End   float64

	// Confidence is the detector's confidence in [0, 1].
	Confidence float64
}

// Mid returns the chord segment's time midpoint.
func (c Chord) Mid() float64 {
	return 0.5 * (c.Start + c.End)
}

// GroupKind distinguishes perfect from near rhyme groups.
type GroupKind string

const (
	// GroupPerfect groups words sharing a full rhyming tail.
	GroupPerfect GroupKind = "perfect"

	// GroupNear groups words sharing only their final vowel sound. A word in
	// a perfect group never also appears in a near group.
	GroupNear GroupKind = "near"
)

// RhymeGroup is one colour-coding equivalence class over the document's
// words. Groups are ephemeral: rebuilt from scratch on every classification
// pass, with IDs assigned in first-encounter order so identical input always
// yields identical groups.
type RhymeGroup struct {
	ID      int
	Kind    GroupKind
	Members []string
}
