package songio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrWong99/versecraft/pkg/lyrics"
	"github.com/MrWong99/versecraft/pkg/songio"
)

const transcriptJSON = `[
  {"text": "somewhere", "start": 0.0, "end": 0.6, "confidence": 0.94},
  {"text": "over", "start": 0.6, "end": 0.9, "confidence": 0.88},
  {"text": "the", "start": 0.9, "end": 1.0, "confidence": 0.99},
  {"text": "rainbow.", "start": 1.0, "end": 1.8, "confidence": 0.91}
]`

func TestImportTranscript(t *testing.T) {
	t.Parallel()

	tokens, err := songio.ImportTranscript(strings.NewReader(transcriptJSON))
	if err != nil {
		t.Fatalf("ImportTranscript: %v", err)
	}
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4", len(tokens))
	}
	if tokens[0].Text != "somewhere" || tokens[0].End != 0.6 || tokens[0].Confidence != 0.94 {
		t.Errorf("token 0 = %+v", tokens[0])
	}
	if tokens[0].ID == "" || tokens[0].ID == tokens[1].ID {
		t.Error("tokens must get distinct fresh IDs")
	}
	for i, tok := range tokens {
		if tok.LineBreakAfter {
			t.Errorf("token %d: import must not seed line breaks", i)
		}
	}
}

func TestImportTranscript_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		json string
		want string
	}{
		{"not json", `{`, "decode transcript"},
		{"empty text", `[{"text": "", "start": 0, "end": 1, "confidence": 1}]`, "word 0"},
		{"confidence above one", `[{"text": "a", "start": 0, "end": 1, "confidence": 1.2}]`, "word 0"},
		{"end before start", `[{"text": "a", "start": 2, "end": 1, "confidence": 1}]`, "precedes start"},
		{"negative start", `[{"text": "a", "start": -1, "end": 1, "confidence": 1}]`, "negative"},
		{"out of order", `[
			{"text": "a", "start": 2, "end": 3, "confidence": 1},
			{"text": "b", "start": 1, "end": 2, "confidence": 1}
		]`, "precedes previous start"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := songio.ImportTranscript(strings.NewReader(tc.json))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

const chordsJSON = `[
  {"symbol": "Am", "root": "A", "quality": "min", "start": 0.0, "end": 1.5, "confidence": 0.8},
  {"symbol": "C/G", "root": "C", "quality": "maj", "bass": "G", "start": 1.5, "end": 3.0, "confidence": 0.7}
]`

func TestImportChords(t *testing.T) {
	t.Parallel()

	chords, err := songio.ImportChords(strings.NewReader(chordsJSON))
	if err != nil {
		t.Fatalf("ImportChords: %v", err)
	}
	if len(chords) != 2 {
		t.Fatalf("got %d chords, want 2", len(chords))
	}
	if chords[1].Symbol != "C/G" || chords[1].Bass != "G" {
		t.Errorf("chord 1 = %+v", chords[1])
	}
}

func TestImportChords_RejectsOverlap(t *testing.T) {
	t.Parallel()

	overlapping := `[
		{"symbol": "Am", "root": "A", "quality": "min", "start": 0, "end": 2, "confidence": 1},
		{"symbol": "F", "root": "F", "quality": "maj", "start": 1.5, "end": 3, "confidence": 1}
	]`
	_, err := songio.ImportChords(strings.NewReader(overlapping))
	if err == nil || !strings.Contains(err.Error(), "overlaps") {
		t.Errorf("want overlap error, got %v", err)
	}

	missingRoot := `[{"symbol": "Am", "root": "", "quality": "min", "start": 0, "end": 1, "confidence": 1}]`
	if _, err := songio.ImportChords(strings.NewReader(missingRoot)); err == nil {
		t.Error("missing root must be rejected")
	}
}

func TestExportDocument(t *testing.T) {
	t.Parallel()

	altStart, altEnd := 0.1, 0.5
	doc := songio.Document{
		Tokens: []lyrics.Token{
			{ID: "t1", Text: "light", Start: 0, End: 0.5, Confidence: 0.9, Chord: "Am",
				AltText: "bright", AltStart: &altStart, AltEnd: &altEnd, LineBreakAfter: true},
			{ID: "t2", Text: "night", Start: 0.5, End: 1, Confidence: 1, LineBreakAfter: true},
		},
		Lines:         []string{"light[Am]", "night"},
		LineSyllables: []int{1, 1},
		RhymeGroups: []lyrics.RhymeGroup{
			{ID: 1, Kind: lyrics.GroupPerfect, Members: []string{"light", "night"}},
		},
	}

	var buf bytes.Buffer
	if err := songio.ExportDocument(&buf, doc); err != nil {
		t.Fatalf("ExportDocument: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"id": "t1"`,
		`"chord": "Am"`,
		`"alt_text": "bright"`,
		`"alt_start": 0.1`,
		`"text": "light[Am]"`,
		`"syllables": 1`,
		`"kind": "perfect"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %s\n%s", want, out)
		}
	}
	// Empty annotations are omitted, not emitted as empty strings.
	if strings.Contains(out, `"alt_chord"`) {
		t.Errorf("empty alt_chord must be omitted:\n%s", out)
	}

	// Deterministic: a second export of the same document is byte-identical.
	var again bytes.Buffer
	if err := songio.ExportDocument(&again, doc); err != nil {
		t.Fatalf("ExportDocument (second): %v", err)
	}
	if !bytes.Equal(buf.Bytes(), again.Bytes()) {
		t.Error("export is not deterministic")
	}
}

func TestExportDocument_MismatchedLineData(t *testing.T) {
	t.Parallel()

	doc := songio.Document{Lines: []string{"one"}, LineSyllables: []int{1, 2}}
	if err := songio.ExportDocument(&bytes.Buffer{}, doc); err == nil {
		t.Error("mismatched line/syllable lengths must be rejected")
	}
}
