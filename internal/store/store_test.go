package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/versecraft/internal/reflow"
	"github.com/MrWong99/versecraft/internal/rhyme"
	"github.com/MrWong99/versecraft/internal/store"
	"github.com/MrWong99/versecraft/internal/syllable"
	"github.com/MrWong99/versecraft/pkg/lyrics"
	"github.com/MrWong99/versecraft/pkg/phonetic"
)

const testDebounce = 30 * time.Millisecond

func charWidth(text string) float64 {
	return float64(len(text))
}

// newTestStore builds a store over the built-in dictionary with a short
// debounce and a generous width so re-flow keeps seeded lines intact.
func newTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	ix := phonetic.Builtin()
	all := append([]store.Option{
		store.WithDebounce(testDebounce),
		store.WithWidth(1000),
	}, opts...)
	s := store.New(rhyme.New(ix), syllable.New(ix), reflow.New(charWidth), all...)
	t.Cleanup(s.Close)
	return s
}

func makeTokens(words ...string) []lyrics.Token {
	tokens := make([]lyrics.Token, len(words))
	for i, w := range words {
		start := float64(i)
		tokens[i] = lyrics.NewToken(w, start, start+0.5, 0.8)
	}
	return tokens
}

// subscribe registers a channel-backed subscriber.
func subscribe(s *store.Store) <-chan store.Snapshot {
	ch := make(chan store.Snapshot, 16)
	s.Subscribe(func(snap store.Snapshot) { ch <- snap })
	return ch
}

func waitSnapshot(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return store.Snapshot{}
	}
}

func assertQuiet(t *testing.T, ch <-chan store.Snapshot) {
	t.Helper()
	select {
	case snap := <-ch:
		t.Fatalf("unexpected extra notification (revision %d)", snap.Revision)
	case <-time.After(5 * testDebounce):
	}
}

func TestReplaceAll_SeedsLineBreaks(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("Hello", "world.", "Goodnight", "again"))

	tokens := s.Tokens()
	wantBreaks := []bool{false, true, false, true} // punctuation plus final token
	for i, tok := range tokens {
		if tok.LineBreakAfter != wantBreaks[i] {
			t.Errorf("token %d (%q) break = %v, want %v", i, tok.Text, tok.LineBreakAfter, wantBreaks[i])
		}
	}
}

func TestEditTokenText_ForcesConfidence(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("hallo", "world"))
	id := s.Tokens()[0].ID

	if err := s.EditTokenText(id, "hello"); err != nil {
		t.Fatalf("EditTokenText: %v", err)
	}
	tok := s.Tokens()[0]
	if tok.Text != "hello" {
		t.Errorf("text = %q, want %q", tok.Text, "hello")
	}
	if tok.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 after manual edit", tok.Confidence)
	}

	if err := s.EditTokenText("no-such-id", "x"); !errors.Is(err, store.ErrTokenNotFound) {
		t.Errorf("unknown ID error = %v, want ErrTokenNotFound", err)
	}
}

func TestDebounce_BurstCoalescesToOneNotification(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("one", "two", "three"))
	id := s.Tokens()[0].ID

	ch := subscribe(s)

	// A burst of mutations inside the debounce window.
	for i := 0; i < 10; i++ {
		if err := s.SetChord(id, "Am"); err != nil {
			t.Fatalf("SetChord: %v", err)
		}
	}

	snap := waitSnapshot(t, ch)
	if snap.Tokens[0].Chord != "Am" {
		t.Errorf("snapshot chord = %q, want %q", snap.Tokens[0].Chord, "Am")
	}
	assertQuiet(t, ch)
}

func TestNotification_ReflowOutputDoesNotRetrigger(t *testing.T) {
	t.Parallel()

	// Narrow width forces the recompute pass to rewrite break flags; the
	// updating guard must keep that rewrite from scheduling another pass.
	s := newTestStore(t, store.WithWidth(8))
	ch := subscribe(s)

	s.ReplaceAll(makeTokens("somewhere", "over", "the", "rainbow"))

	snap := waitSnapshot(t, ch)
	if len(snap.Lines) < 2 {
		t.Fatalf("expected re-flow to wrap, got lines %q", snap.Lines)
	}
	assertQuiet(t, ch)
}

func TestSnapshot_DerivedData(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ch := subscribe(s)

	s.ReplaceAll(makeTokens("light", "night.", "hello", "world."))
	snap := waitSnapshot(t, ch)

	if snap.Revision != 1 {
		t.Errorf("revision = %d, want 1", snap.Revision)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("lines = %q, want 2 lines", snap.Lines)
	}
	if len(snap.LineSyllables) != 2 {
		t.Fatalf("line syllables = %v, want 2 entries", snap.LineSyllables)
	}
	// light night = 2 syllables, hello world = 3.
	if snap.LineSyllables[0] != 2 || snap.LineSyllables[1] != 3 {
		t.Errorf("line syllables = %v, want [2 3]", snap.LineSyllables)
	}

	foundPerfect := false
	for _, g := range snap.RhymeGroups {
		if g.Kind == lyrics.GroupPerfect && len(g.Members) == 2 {
			foundPerfect = true
		}
	}
	if !foundPerfect {
		t.Errorf("rhyme groups %+v missing the light/night perfect group", snap.RhymeGroups)
	}
}

func TestMergeAndSplitLines(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("one.", "two.", "three."))

	if err := s.MergeLines(0, 1); err != nil {
		t.Fatalf("MergeLines: %v", err)
	}
	if got := len(lyrics.Lines(s.Tokens())); got != 2 {
		t.Fatalf("after merge: %d lines, want 2", got)
	}

	if err := s.SplitLine(0, 1); err != nil {
		t.Fatalf("SplitLine: %v", err)
	}
	if got := len(lyrics.Lines(s.Tokens())); got != 3 {
		t.Fatalf("after split: %d lines, want 3", got)
	}

	if err := s.MergeLines(1, 1); !errors.Is(err, store.ErrLineOutOfRange) {
		t.Errorf("MergeLines(1, 1) error = %v, want ErrLineOutOfRange", err)
	}
	if err := s.MergeLines(0, 9); !errors.Is(err, store.ErrLineOutOfRange) {
		t.Errorf("MergeLines(0, 9) error = %v, want ErrLineOutOfRange", err)
	}
	if err := s.SplitLine(7, 1); !errors.Is(err, store.ErrLineOutOfRange) {
		t.Errorf("SplitLine(7, 1) error = %v, want ErrLineOutOfRange", err)
	}
	if err := s.SplitLine(0, 0); !errors.Is(err, store.ErrWordOutOfRange) {
		t.Errorf("SplitLine(0, 0) error = %v, want ErrWordOutOfRange", err)
	}
}

func TestAssignChords_MidpointOverlap(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("one", "two", "three"))

	// Token midpoints: 0.25, 1.25, 2.25.
	chords := []lyrics.Chord{
		{Symbol: "C", Start: 0, End: 0.5},
		{Symbol: "G", Start: 2, End: 2.5},
	}
	s.AssignChords(chords)

	tokens := s.Tokens()
	want := []string{"C", "", "G"}
	for i, tok := range tokens {
		if tok.Chord != want[i] {
			t.Errorf("token %d chord = %q, want %q", i, tok.Chord, want[i])
		}
	}
}

func TestAttachAlternatives_NearestMidpointAndClearing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.ReplaceAll(makeTokens("one", "two"))

	s.AttachAlternatives([]store.Alternative{
		{Text: "won", Chord: "Em", Start: 0.1, End: 0.4},
	})
	tokens := s.Tokens()
	if tokens[0].AltText != "won" || tokens[0].AltChord != "Em" {
		t.Errorf("token 0 alt = %q/%q, want won/Em", tokens[0].AltText, tokens[0].AltChord)
	}
	if tokens[0].AltStart == nil || *tokens[0].AltStart != 0.1 {
		t.Errorf("token 0 AltStart = %v, want 0.1", tokens[0].AltStart)
	}
	// The single alternative is nearest to both tokens.
	if tokens[1].AltText != "won" {
		t.Errorf("token 1 alt = %q, want won", tokens[1].AltText)
	}

	// A fresh attachment replaces everything; empty input clears.
	s.AttachAlternatives(nil)
	for i, tok := range s.Tokens() {
		if tok.AltText != "" || tok.AltChord != "" || tok.AltStart != nil || tok.AltEnd != nil {
			t.Errorf("token %d alt fields not cleared: %+v", i, tok)
		}
	}
}

func TestSetWidth_TriggersRecompute(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ch := subscribe(s)

	s.ReplaceAll(makeTokens("somewhere", "over", "the", "rainbow."))
	first := waitSnapshot(t, ch)
	if len(first.Lines) != 1 {
		t.Fatalf("initial layout = %q, want a single line", first.Lines)
	}

	s.SetWidth(8)
	second := waitSnapshot(t, ch)
	if second.Revision != first.Revision+1 {
		t.Errorf("revision = %d, want %d", second.Revision, first.Revision+1)
	}
	if len(second.Lines) < 2 {
		t.Errorf("after narrowing, layout = %q, want wrapped lines", second.Lines)
	}
}
