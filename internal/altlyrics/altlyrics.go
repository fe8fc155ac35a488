// Package altlyrics requests alternative lyric and chord suggestions from an
// external rewrite service and attaches them to the document.
//
// The service delivers its result in time-ordered chunks, each an
// independently parseable JSON payload. A malformed chunk is skipped (counted
// and logged) while the rest of the stream is still processed. On a transient
// unavailability signal the whole request is retried on a fixed backoff
// schedule of 60 s then 300 s; when both retries are exhausted an explicit
// descriptive error is returned and the document is left untouched — the
// alternatives are applied in a single mutation only after the full stream
// has been parsed, so no partial state can leak in.
//
// This work runs exclusively on background goroutines; it touches the
// document only through the annotation store's mutation surface.
package altlyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MrWong99/versecraft/internal/observe"
	"github.com/MrWong99/versecraft/internal/store"
	"github.com/MrWong99/versecraft/pkg/lyrics"
)

var (
	// ErrUnavailable signals a transient service failure worth retrying.
	// Providers wrap it around rate-limit and overload responses.
	ErrUnavailable = errors.New("altlyrics: service unavailable")

	// ErrRetriesExhausted is returned after the full backoff schedule has
	// been spent against an unavailable service.
	ErrRetriesExhausted = errors.New("altlyrics: retries exhausted")
)

// defaultBackoff is the retry schedule for transient unavailability.
var defaultBackoff = []time.Duration{60 * time.Second, 300 * time.Second}

// Request describes the document passage to rewrite.
type Request struct {
	// Tokens is the current timed word sequence. Providers use both the
	// text and the timing so suggestions come back aligned.
	Tokens []lyrics.Token

	// Style is an optional free-form instruction (e.g. "more melancholic").
	Style string
}

// RawChunk is one chunk payload as delivered by the provider. Each chunk
// must parse on its own.
type RawChunk []byte

// Provider produces the alternative-lyrics chunk stream for a request.
// Implementations map their transport's transient failures to
// [ErrUnavailable].
type Provider interface {
	Rewrite(ctx context.Context, req Request) ([]RawChunk, error)
}

// Document is the mutation surface the service drives. Satisfied by
// [store.Store].
type Document interface {
	AttachAlternatives(alts []store.Alternative)
}

// chunkPayload is the expected JSON structure of one chunk.
type chunkPayload struct {
	Words []struct {
		Text  string  `json:"text"`
		Chord string  `json:"chord"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Option configures a [Service].
type Option func(*Service)

// WithBackoff overrides the retry schedule. The slice length is the number
// of retries after the initial attempt.
func WithBackoff(schedule []time.Duration) Option {
	return func(s *Service) {
		s.backoff = schedule
	}
}

// WithLogger overrides the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProviderName sets the provider label used on error metrics. Defaults
// to "custom".
func WithProviderName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.name = name
		}
	}
}

// Service runs rewrite requests against a [Provider] and applies the parsed
// result to the document. Safe for concurrent use; each Run call is
// independent.
type Service struct {
	provider Provider
	doc      Document
	name     string
	logger   *slog.Logger
	metrics  *observe.Metrics
	backoff  []time.Duration
}

// NewService returns a Service applying provider results to doc.
func NewService(provider Provider, doc Document, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		doc:      doc,
		name:     "custom",
		logger:   slog.Default(),
		metrics:  observe.DefaultMetrics(),
		backoff:  defaultBackoff,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run requests alternatives for req and attaches them to the document in one
// mutation. Transient unavailability is retried per the backoff schedule;
// any other provider error aborts immediately. The document is never touched
// on failure.
func (s *Service) Run(ctx context.Context, req Request) error {
	s.metrics.ActiveAltRequests.Add(ctx, 1)
	defer s.metrics.ActiveAltRequests.Add(ctx, -1)

	start := time.Now()
	chunks, err := s.fetch(ctx, req)
	s.metrics.AltRequestDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return err
	}

	alts := s.parse(ctx, chunks)
	s.doc.AttachAlternatives(alts)

	s.logger.Info("alternative lyrics attached",
		"chunks", len(chunks),
		"words", len(alts),
		"duration", time.Since(start))
	return nil
}

// fetch runs the provider call with the bounded retry policy.
func (s *Service) fetch(ctx context.Context, req Request) ([]RawChunk, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		chunks, err := s.provider.Rewrite(ctx, req)
		if err == nil {
			return chunks, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			s.metrics.RecordAltError(ctx, s.name, "permanent")
			return nil, fmt.Errorf("altlyrics: rewrite: %w", err)
		}
		s.metrics.RecordAltError(ctx, s.name, "unavailable")
		lastErr = err

		if attempt >= len(s.backoff) {
			s.metrics.RecordAltError(ctx, s.name, "retries_exhausted")
			return nil, fmt.Errorf("%w after %d attempts: %w",
				ErrRetriesExhausted, attempt+1, lastErr)
		}
		delay := s.backoff[attempt]
		s.logger.Warn("alternative-lyrics service unavailable, backing off",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("altlyrics: rewrite: %w", ctx.Err())
		}
	}
}

// parse decodes every chunk independently, skipping malformed payloads, and
// returns the surviving words in time order.
func (s *Service) parse(ctx context.Context, chunks []RawChunk) []store.Alternative {
	var alts []store.Alternative
	for i, raw := range chunks {
		var payload chunkPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			s.metrics.RecordAltChunk(ctx, "malformed")
			s.logger.Warn("skipping malformed alternative-lyrics chunk",
				"chunk", i,
				"error", err)
			continue
		}
		s.metrics.RecordAltChunk(ctx, "ok")
		for _, w := range payload.Words {
			if w.Text == "" {
				continue
			}
			alts = append(alts, store.Alternative{
				Text:  w.Text,
				Chord: w.Chord,
				Start: w.Start,
				End:   w.End,
			})
		}
	}
	sort.SliceStable(alts, func(a, b int) bool {
		return alts[a].Start < alts[b].Start
	})
	return alts
}
