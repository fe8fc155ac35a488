// Package store implements the annotation store: the single owner of the
// document's token sequence.
//
// All mutation funnels through the Store's method surface; each call is
// atomic and synchronous. After any mutation the store schedules one
// debounced change notification — mutations arriving within the debounce
// window collapse into exactly one notification, which runs exactly one
// recompute pass (rhyme groups, per-line syllable counts, re-flow) and pushes
// the derived snapshot to subscribers. Programmatic writes performed inside
// the recompute pass (the re-flow engine rewriting break flags) run under an
// updating guard so they never schedule a further notification.
//
// External workers (alternative-lyrics calls, import pipelines) own no shared
// state; they deliver results exclusively through these mutation methods.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/versecraft/internal/align"
	"github.com/MrWong99/versecraft/internal/observe"
	"github.com/MrWong99/versecraft/internal/reflow"
	"github.com/MrWong99/versecraft/internal/rhyme"
	"github.com/MrWong99/versecraft/internal/syllable"
	"github.com/MrWong99/versecraft/pkg/lyrics"
)

// DefaultDebounce is the quiet period after the last mutation before the
// coalesced notification fires.
const DefaultDebounce = 250 * time.Millisecond

var (
	// ErrTokenNotFound is returned when a mutation names a token ID absent
	// from the document.
	ErrTokenNotFound = errors.New("store: token not found")

	// ErrLineOutOfRange is returned when a line index does not denote a
	// current display line.
	ErrLineOutOfRange = errors.New("store: line index out of range")

	// ErrWordOutOfRange is returned when a split position does not fall
	// strictly inside its line.
	ErrWordOutOfRange = errors.New("store: word index out of range")
)

// guard is the two-state re-entrancy guard around programmatic writes.
type guard int

const (
	stateIdle guard = iota
	stateUpdating
)

// Alternative is one suggestion from the alternative-lyrics service, carrying
// its own timing so it can be aligned onto the document's tokens.
type Alternative struct {
	Text  string
	Chord string
	Start float64
	End   float64
}

// Snapshot is the derived view of the document pushed to subscribers after a
// recompute pass. All slices are copies; subscribers may retain them.
type Snapshot struct {
	// Revision increments by one per delivered notification.
	Revision uint64

	// Tokens is the annotated token sequence with the current line layout.
	Tokens []lyrics.Token

	// Lines is the rendered text of each display line.
	Lines []string

	// LineSyllables holds the syllable count of each display line, parallel
	// to Lines.
	LineSyllables []int

	// RhymeGroups are the current rhyme equivalence classes over the
	// document's words.
	RhymeGroups []lyrics.RhymeGroup
}

// Subscriber receives derived snapshots. Called sequentially, outside the
// store lock, on the debounce timer's goroutine.
type Subscriber func(Snapshot)

// Option configures a [Store].
type Option func(*Store)

// WithDebounce overrides the notification debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

// WithWidth sets the initial container width for re-flow. Zero (the default)
// keeps re-flow inactive until [Store.SetWidth].
func WithWidth(w float64) Option {
	return func(s *Store) {
		s.width = w
	}
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger overrides the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store owns the canonical token sequence and serialises every mutation.
type Store struct {
	classifier *rhyme.Classifier
	counter    *syllable.Counter
	engine     *reflow.Engine
	metrics    *observe.Metrics
	logger     *slog.Logger
	debounce   time.Duration

	mu       sync.Mutex
	tokens   []lyrics.Token
	width    float64
	state    guard
	timer    *time.Timer
	revision uint64
	subs     []Subscriber
}

// New creates an empty store wired to the given recompute components.
func New(classifier *rhyme.Classifier, counter *syllable.Counter, engine *reflow.Engine, opts ...Option) *Store {
	s := &Store{
		classifier: classifier,
		counter:    counter,
		engine:     engine,
		metrics:    observe.DefaultMetrics(),
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		state:      stateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to receive every future snapshot.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Tokens returns a copy of the current token sequence.
func (s *Store) Tokens() []lyrics.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lyrics.Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Close cancels any pending notification. The store remains usable; the next
// mutation schedules anew.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
}

// ReplaceAll discards the document and installs tokens wholesale, seeding
// line breaks from sentence-final punctuation. The input slice is copied.
func (s *Store) ReplaceAll(tokens []lyrics.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make([]lyrics.Token, len(tokens))
	copy(s.tokens, tokens)
	lyrics.SeedLineBreaks(s.tokens)

	s.mutatedLocked("replace_all")
}

// EditTokenText sets the text of the token with the given ID and forces its
// confidence to 1.0, marking the manual override.
func (s *Store) EditTokenText(id, newText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.findLocked(id)
	if tok == nil {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	tok.Text = newText
	tok.Confidence = 1.0

	s.mutatedLocked("edit_token_text")
	return nil
}

// MergeLines joins display lines i through j (inclusive, 0-based, i < j) into
// one by clearing the intervening break flags.
func (s *Store) MergeLines(i, j int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := lyrics.Lines(s.tokens)
	if i < 0 || j >= len(lines) || i >= j {
		return fmt.Errorf("%w: merge %d..%d of %d lines", ErrLineOutOfRange, i, j, len(lines))
	}
	for k := i; k < j; k++ {
		line := lines[k]
		line[len(line)-1].LineBreakAfter = false
	}

	s.mutatedLocked("merge_lines")
	return nil
}

// SplitLine breaks display line i before its wordIndex-th token (0-based;
// 0 < wordIndex < line length).
func (s *Store) SplitLine(i, wordIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := lyrics.Lines(s.tokens)
	if i < 0 || i >= len(lines) {
		return fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, i, len(lines))
	}
	line := lines[i]
	if wordIndex <= 0 || wordIndex >= len(line) {
		return fmt.Errorf("%w: split at %d in a line of %d words", ErrWordOutOfRange, wordIndex, len(line))
	}
	line[wordIndex-1].LineBreakAfter = true

	s.mutatedLocked("split_line")
	return nil
}

// SetChord assigns a chord symbol to the token with the given ID.
func (s *Store) SetChord(id, chord string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.findLocked(id)
	if tok == nil {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	tok.Chord = chord

	s.mutatedLocked("set_chord")
	return nil
}

// ClearChord removes the chord annotation from the token with the given ID.
func (s *Store) ClearChord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.findLocked(id)
	if tok == nil {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	tok.Chord = ""

	s.mutatedLocked("clear_chord")
	return nil
}

// AssignChords derives the chord annotation of every token from the given
// time-ordered, non-overlapping segments by midpoint overlap. Tokens whose
// midpoint falls inside no segment lose any previous chord.
func (s *Store) AssignChords(chords []lyrics.Chord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words := make([]align.Interval, len(s.tokens))
	for i, t := range s.tokens {
		words[i] = align.Interval{Start: t.Start, End: t.End}
	}
	segments := make([]align.Interval, len(chords))
	for i, c := range chords {
		segments[i] = align.Interval{Start: c.Start, End: c.End}
	}

	for i, idx := range align.OverlapAssign(words, segments) {
		if idx < 0 {
			s.tokens[i].Chord = ""
		} else {
			s.tokens[i].Chord = chords[idx].Symbol
		}
	}

	s.mutatedLocked("assign_chords")
}

// AttachAlternatives aligns the alternative-lyrics suggestions onto the
// document by nearest time midpoint, replacing all previous alternative
// annotations. An empty input clears them.
func (s *Store) AttachAlternatives(alts []Alternative) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tokens {
		s.tokens[i].AltText = ""
		s.tokens[i].AltChord = ""
		s.tokens[i].AltStart = nil
		s.tokens[i].AltEnd = nil
	}

	source := make([]align.Interval, len(alts))
	for i, a := range alts {
		source[i] = align.Interval{Start: a.Start, End: a.End}
	}
	target := make([]align.Interval, len(s.tokens))
	for i, t := range s.tokens {
		target[i] = align.Interval{Start: t.Start, End: t.End}
	}

	for i, m := range align.NearestAlign(source, target) {
		if m == nil {
			continue
		}
		a := alts[m.Source]
		start, end := a.Start, a.End
		s.tokens[i].AltText = a.Text
		s.tokens[i].AltChord = a.Chord
		s.tokens[i].AltStart = &start
		s.tokens[i].AltEnd = &end
	}

	s.mutatedLocked("attach_alternatives")
}

// SetWidth updates the container width used by re-flow and triggers a
// recompute at the new width.
func (s *Store) SetWidth(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width = w
	s.mutatedLocked("set_width")
}

// findLocked returns a pointer into the token slice, or nil.
func (s *Store) findLocked(id string) *lyrics.Token {
	for i := range s.tokens {
		if s.tokens[i].ID == id {
			return &s.tokens[i]
		}
	}
	return nil
}

// mutatedLocked records the mutation and (re)schedules the debounced
// notification. Each mutation supersedes any pending notification with a
// fresh timer; a callback from a superseded timer recognises itself as stale
// and does nothing, so superseding is equivalent to cancellation. A mutation
// applied while the recompute pass is running never schedules — that is the
// updating guard.
func (s *Store) mutatedLocked(op string) {
	s.metrics.RecordMutation(context.Background(), op)
	if s.state == stateUpdating {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	} else {
		s.metrics.PendingNotifications.Add(context.Background(), 1)
	}
	var t *time.Timer
	t = time.AfterFunc(s.debounce, func() { s.notify(t) })
	s.timer = t
}

func (s *Store) cancelTimerLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.metrics.PendingNotifications.Add(context.Background(), -1)
}

// notify is the debounce timer callback: one recompute pass, one snapshot,
// delivered to every subscriber in registration order. t identifies the timer
// this callback belongs to; a superseded timer's callback returns immediately.
func (s *Store) notify(t *time.Timer) {
	s.mu.Lock()
	if s.timer != t {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.metrics.PendingNotifications.Add(context.Background(), -1)

	start := time.Now()
	s.recomputeLocked()
	s.metrics.RecomputeDuration.Record(context.Background(), time.Since(start).Seconds())

	s.revision++
	snap := s.snapshotLocked()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.metrics.Notifications.Add(context.Background(), 1)
	s.logger.Debug("document recomputed",
		"revision", snap.Revision,
		"tokens", len(snap.Tokens),
		"lines", len(snap.Lines),
		"rhyme_groups", len(snap.RhymeGroups),
		"duration", time.Since(start))

	for _, fn := range subs {
		fn(snap)
	}
}

// recomputeLocked applies re-flow at the current width under the updating
// guard. Rhyme and syllable results are derived afresh in snapshotLocked;
// only the break flags persist in the document.
func (s *Store) recomputeLocked() {
	s.state = stateUpdating
	defer func() { s.state = stateIdle }()

	if s.engine == nil {
		return
	}
	flags := s.engine.Reflow(s.tokens, s.width)
	if flags == nil {
		return
	}
	for i := range s.tokens {
		s.tokens[i].LineBreakAfter = flags[i]
	}
}

func (s *Store) snapshotLocked() Snapshot {
	tokens := make([]lyrics.Token, len(s.tokens))
	copy(tokens, s.tokens)

	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}

	var lines []string
	var sylls []int
	for _, line := range lyrics.Lines(tokens) {
		text := lyrics.LineText(line)
		lines = append(lines, text)
		sylls = append(sylls, s.counter.CountLine(text))
	}

	return Snapshot{
		Revision:      s.revision,
		Tokens:        tokens,
		Lines:         lines,
		LineSyllables: sylls,
		RhymeGroups:   s.classifier.Classify(words),
	}
}
