// Package mock provides a scripted altlyrics.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/versecraft/internal/altlyrics"
)

// Response is one scripted Rewrite outcome.
type Response struct {
	Chunks []altlyrics.RawChunk
	Err    error
}

// Provider replays scripted responses in order; the last response repeats
// once the script is exhausted. Safe for concurrent use.
type Provider struct {
	mu        sync.Mutex
	responses []Response
	calls     int
	requests  []altlyrics.Request
}

var _ altlyrics.Provider = (*Provider)(nil)

// NewProvider returns a Provider scripted with responses.
func NewProvider(responses ...Response) *Provider {
	return &Provider{responses: responses}
}

// Rewrite implements altlyrics.Provider.
func (p *Provider) Rewrite(_ context.Context, req altlyrics.Request) ([]altlyrics.RawChunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return nil, nil
	}
	r := p.responses[idx]
	return r.Chunks, r.Err
}

// Calls returns how many times Rewrite was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Requests returns the recorded requests.
func (p *Provider) Requests() []altlyrics.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]altlyrics.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
