// Package reflow recomputes line-break positions for a token sequence under
// a given rendering width.
//
// Re-flow only moves breaks: token order, text, and every chord or
// alternative annotation are untouched. The computation is idempotent for a
// fixed width, and degenerate input (no tokens, width below the usable
// minimum) is a no-op that retains the previous layout rather than an error.
package reflow

import "github.com/MrWong99/versecraft/pkg/lyrics"

// MeasureFunc measures the rendered width of a piece of text. It is supplied
// by the presentation layer (font metrics); the engine never assumes any
// particular unit beyond consistency with the container width.
type MeasureFunc func(text string) float64

const defaultMinWidth = 1.0

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithSeparatorWidth sets the width charged for the gap between adjacent
// tokens on a line. Defaults to the measured width of a single space.
func WithSeparatorWidth(w float64) Option {
	return func(e *Engine) {
		e.sepWidth = w
	}
}

// WithMinWidth sets the minimum usable container width. Re-flow requests
// below it are ignored. Default: 1.
func WithMinWidth(w float64) Option {
	return func(e *Engine) {
		e.minWidth = w
	}
}

// Engine packs tokens into lines of bounded rendered width. It holds no
// document state; the annotation store owns the tokens and applies the
// returned break flags.
type Engine struct {
	measure  MeasureFunc
	sepWidth float64
	minWidth float64
}

// New returns an Engine using measure for glyph metrics.
func New(measure MeasureFunc, opts ...Option) *Engine {
	e := &Engine{
		measure:  measure,
		sepWidth: measure(" "),
		minWidth: defaultMinWidth,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reflow computes a fresh set of LineBreakAfter flags for tokens at the
// given container width. The result has one flag per token; tokens are not
// modified. A nil result means "keep the previous layout" and is returned
// for empty input or a width below the usable minimum.
//
// Each maximal run bounded by existing break flags (a logical line) is
// packed greedily left to right: a new physical line starts whenever
// appending the next token plus a separator would exceed width — unless the
// line is still empty, so a single over-width token occupies its own line.
// Logical-line boundaries are preserved, which makes the operation
// idempotent: reflowing its own output at the same width changes nothing.
func (e *Engine) Reflow(tokens []lyrics.Token, width float64) []bool {
	if len(tokens) == 0 || width < e.minWidth {
		return nil
	}

	breaks := make([]bool, len(tokens))
	start := 0
	for i := range tokens {
		if tokens[i].LineBreakAfter {
			e.packRun(tokens[start:i+1], breaks[start:i+1], width)
			breaks[i] = true
			start = i + 1
		}
	}
	if start < len(tokens) {
		e.packRun(tokens[start:], breaks[start:], width)
	}
	return breaks
}

// packRun greedily wraps one logical line, writing wrap breaks into the
// corresponding flags slice. The run's own terminating flag is handled by
// the caller.
func (e *Engine) packRun(run []lyrics.Token, flags []bool, width float64) {
	lineWidth := 0.0
	empty := true
	for i, tok := range run {
		w := e.measure(tok.Display())
		switch {
		case empty:
			lineWidth = w
			empty = false
		case lineWidth+e.sepWidth+w > width:
			flags[i-1] = true
			lineWidth = w
		default:
			lineWidth += e.sepWidth + w
		}
	}
}
