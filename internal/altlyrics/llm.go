package altlyrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecraft/pkg/lyrics"
)

const (
	defaultTemperature = 0.2
	defaultBatchSize   = 24
	defaultConcurrency = 3
)

// systemPrompt instructs the model to return one strict JSON chunk. The
// model must keep the input timings so the result aligns back onto the
// document without guessing.
const systemPrompt = `You are a lyric rewriting assistant for a song editor.

Your task: propose an alternative phrasing for the given timed lyric words, and suggest a chord for each word where one fits.

Rules:
- Keep the number of words close to the input and reuse the input timings: each output word must carry the start and end of the input word it replaces.
- Keep the meaning and singability; do not censor or translate.
- Use plain chord symbols (e.g. "Am", "F#m7", "C/G") or "" when no chord applies.
- Be conservative — when in doubt, keep the original word.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "words": [
    {"text": "<word>", "chord": "<chord or empty>", "start": <seconds>, "end": <seconds>}
  ]
}`

// LLMOption is a functional option for configuring an [LLM].
type LLMOption func(*LLM)

// WithTemperature sets the sampling temperature. Default: 0.2.
func WithTemperature(t float64) LLMOption {
	return func(l *LLM) {
		l.temperature = t
	}
}

// WithBatchSize sets how many words go into one chunk request. Default: 24.
func WithBatchSize(n int) LLMOption {
	return func(l *LLM) {
		l.batchSize = n
	}
}

// WithConcurrency bounds the number of in-flight chunk requests. Default: 3.
func WithConcurrency(n int) LLMOption {
	return func(l *LLM) {
		l.concurrency = n
	}
}

// LLM implements [Provider] on top of github.com/mozilla-ai/any-llm-go. The
// document is split into fixed-size word batches; each batch becomes one
// completion call and yields one chunk, so chunk order follows document time
// order regardless of call completion order.
type LLM struct {
	backend     anyllmlib.Provider
	provider    string
	model       string
	temperature float64
	batchSize   int
	concurrency int
}

var _ Provider = (*LLM)(nil)

// NewLLM creates an LLM-backed provider.
//
// providerName is one of: "gemini", "openai", "ollama". model is the backend
// model name (e.g. "gemini-2.0-flash", "gpt-4o-mini"). opts are applied after
// backendOpts configure the transport (e.g. anyllmlib.WithAPIKey); without an
// API key option the backend falls back to its environment variable.
func NewLLM(providerName, model string, backendOpts []anyllmlib.Option, opts ...LLMOption) (*LLM, error) {
	if providerName == "" {
		return nil, fmt.Errorf("altlyrics: provider name must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("altlyrics: model must not be empty")
	}

	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("altlyrics: create %q backend: %w", providerName, err)
	}

	l := &LLM{
		backend:     backend,
		provider:    providerName,
		model:       model,
		temperature: defaultTemperature,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "gemini":
		return gemini.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, openai, ollama", providerName)
	}
}

// Rewrite implements [Provider]. Batches run concurrently under an errgroup;
// the first error cancels the remaining calls.
func (l *LLM) Rewrite(ctx context.Context, req Request) ([]RawChunk, error) {
	batches := batchTokens(req.Tokens, l.batchSize)
	if len(batches) == 0 {
		return nil, nil
	}

	chunks := make([]RawChunk, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			content, err := l.complete(ctx, batch, req.Style)
			if err != nil {
				return err
			}
			chunks[i] = RawChunk(stripMarkdown(content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// complete runs one chunk's completion call, classifying transient backend
// failures as [ErrUnavailable].
func (l *LLM) complete(ctx context.Context, batch []lyrics.Token, style string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: l.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: "user", Content: buildUserMessage(batch, style)},
		},
	}
	t := l.temperature
	params.Temperature = &t

	resp, err := l.backend.Completion(ctx, params)
	if err != nil {
		if isTransient(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, l.provider, err)
		}
		return "", fmt.Errorf("altlyrics: %s completion: %w", l.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("altlyrics: %s returned no choices", l.provider)
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// buildUserMessage renders one batch as "start end word[chord]" lines.
func buildUserMessage(batch []lyrics.Token, style string) string {
	var sb strings.Builder
	if style != "" {
		sb.WriteString("Style: ")
		sb.WriteString(style)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Timed words:\n")
	for _, tok := range batch {
		fmt.Fprintf(&sb, "%.3f %.3f %s\n", tok.Start, tok.End, tok.Display())
	}
	return sb.String()
}

// batchTokens splits tokens into consecutive groups of at most size.
func batchTokens(tokens []lyrics.Token, size int) [][]lyrics.Token {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]lyrics.Token
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		out = append(out, tokens[start:end])
	}
	return out
}

// isTransient reports whether err looks like a retryable service condition
// rather than a permanent request failure.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "503", "rate limit", "overloaded", "unavailable", "try again",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
