// Package songio implements the boundary data formats of the annotation
// engine: JSON import of speech-to-text word lists and chord detector
// segments, and JSON export of the fully annotated document.
//
// Import is lenient about unknown fields (upstream tools attach extras) but
// strict about the fields it needs: every violation is reported with the
// offending element index. Export is deterministic for a given document.
package songio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrWong99/versecraft/pkg/lyrics"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// transcriptWord is one word as emitted by the speech-to-text stage.
type transcriptWord struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

func (w transcriptWord) Validate() error {
	if err := validation.ValidateStruct(&w,
		validation.Field(&w.Text, validation.Required),
		validation.Field(&w.Confidence, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if w.Start < 0 {
		return fmt.Errorf("start %v must not be negative", w.Start)
	}
	if w.End < w.Start {
		return fmt.Errorf("end %v precedes start %v", w.End, w.Start)
	}
	return nil
}

// ImportTranscript reads a JSON array of timed words and converts it into
// fresh tokens, in input order. Words must appear in non-decreasing start
// order. No line breaks are seeded; callers do that on ingest.
func ImportTranscript(r io.Reader) ([]lyrics.Token, error) {
	var words []transcriptWord
	if err := json.NewDecoder(r).Decode(&words); err != nil {
		return nil, fmt.Errorf("songio: decode transcript: %w", err)
	}

	tokens := make([]lyrics.Token, 0, len(words))
	for i, w := range words {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("songio: transcript word %d (%q): %w", i, w.Text, err)
		}
		if i > 0 && w.Start < words[i-1].Start {
			return nil, fmt.Errorf("songio: transcript word %d (%q): start %v precedes previous start %v",
				i, w.Text, w.Start, words[i-1].Start)
		}
		tokens = append(tokens, lyrics.NewToken(w.Text, w.Start, w.End, w.Confidence))
	}
	return tokens, nil
}

// chordSegment is one segment as emitted by the chord detection stage.
type chordSegment struct {
	Symbol     string  `json:"symbol"`
	Root       string  `json:"root"`
	Quality    string  `json:"quality"`
	Bass       string  `json:"bass,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

func (c chordSegment) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Symbol, validation.Required),
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Confidence, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if c.Start < 0 {
		return fmt.Errorf("start %v must not be negative", c.Start)
	}
	if c.End < c.Start {
		return fmt.Errorf("end %v precedes start %v", c.End, c.Start)
	}
	return nil
}

// ImportChords reads a JSON array of chord segments. Segments must be
// time-ordered and must not overlap.
func ImportChords(r io.Reader) ([]lyrics.Chord, error) {
	var segs []chordSegment
	if err := json.NewDecoder(r).Decode(&segs); err != nil {
		return nil, fmt.Errorf("songio: decode chords: %w", err)
	}

	chords := make([]lyrics.Chord, 0, len(segs))
	for i, s := range segs {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("songio: chord segment %d (%q): %w", i, s.Symbol, err)
		}
		if i > 0 && s.Start < segs[i-1].End {
			return nil, fmt.Errorf("songio: chord segment %d (%q): start %v overlaps previous segment ending at %v",
				i, s.Symbol, s.Start, segs[i-1].End)
		}
		chords = append(chords, lyrics.Chord{
			Symbol:     s.Symbol,
			Root:       s.Root,
			Quality:    s.Quality,
			Bass:       s.Bass,
			Start:      s.Start,
			End:        s.End,
			Confidence: s.Confidence,
		})
	}
	return chords, nil
}
