package songio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrWong99/versecraft/pkg/lyrics"
)

// Document is the annotated state written by [ExportDocument]. Callers build
// it from a store snapshot; songio itself has no notion of the store.
type Document struct {
	Tokens        []lyrics.Token
	Lines         []string
	LineSyllables []int
	RhymeGroups   []lyrics.RhymeGroup
}

type exportWord struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Confidence     float64  `json:"confidence"`
	Chord          string   `json:"chord,omitempty"`
	AltText        string   `json:"alt_text,omitempty"`
	AltChord       string   `json:"alt_chord,omitempty"`
	AltStart       *float64 `json:"alt_start,omitempty"`
	AltEnd         *float64 `json:"alt_end,omitempty"`
	LineBreakAfter bool     `json:"line_break_after,omitempty"`
}

type exportLine struct {
	Text      string `json:"text"`
	Syllables int    `json:"syllables"`
}

type exportGroup struct {
	ID      int      `json:"id"`
	Kind    string   `json:"kind"`
	Members []string `json:"members"`
}

type exportDocument struct {
	Words       []exportWord  `json:"words"`
	Lines       []exportLine  `json:"lines"`
	RhymeGroups []exportGroup `json:"rhyme_groups"`
}

// ExportDocument writes doc as indented JSON. Output is deterministic: field
// order is fixed and element order follows the document.
func ExportDocument(w io.Writer, doc Document) error {
	if len(doc.LineSyllables) != len(doc.Lines) {
		return fmt.Errorf("songio: %d syllable counts for %d lines", len(doc.LineSyllables), len(doc.Lines))
	}

	out := exportDocument{
		Words:       make([]exportWord, len(doc.Tokens)),
		Lines:       make([]exportLine, len(doc.Lines)),
		RhymeGroups: make([]exportGroup, len(doc.RhymeGroups)),
	}
	for i, t := range doc.Tokens {
		out.Words[i] = exportWord{
			ID:             t.ID,
			Text:           t.Text,
			Start:          t.Start,
			End:            t.End,
			Confidence:     t.Confidence,
			Chord:          t.Chord,
			AltText:        t.AltText,
			AltChord:       t.AltChord,
			AltStart:       t.AltStart,
			AltEnd:         t.AltEnd,
			LineBreakAfter: t.LineBreakAfter,
		}
	}
	for i, text := range doc.Lines {
		out.Lines[i] = exportLine{Text: text, Syllables: doc.LineSyllables[i]}
	}
	for i, g := range doc.RhymeGroups {
		out.RhymeGroups[i] = exportGroup{ID: g.ID, Kind: string(g.Kind), Members: g.Members}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("songio: encode document: %w", err)
	}
	return nil
}
