// Package align implements temporal alignment between heterogeneous
// timestamped sequences: speech-to-text words, chord-detection segments, and
// alternative-lyrics results that were produced independently and carry
// imprecise, mutually inconsistent timestamps.
//
// Both operations are pure functions over time-ordered inputs. They never
// block, never fail, and yield empty/absent results for empty operands.
package align

// Interval is a half-agnostic time span in seconds. Sequences passed to the
// alignment functions must be ordered by midpoint (non-decreasing).
type Interval struct {
	Start float64
	End   float64
}

// Mid returns the interval's time midpoint.
func (iv Interval) Mid() float64 {
	return 0.5 * (iv.Start + iv.End)
}

// Match pairs a target element with its nearest source element.
type Match struct {
	// Source is the index into the source sequence.
	Source int

	// Distance is the absolute midpoint distance in seconds.
	Distance float64
}

// NearestAlign finds, for each target element, the source element whose time
// midpoint is closest in absolute distance. The result has one entry per
// target element; every entry is nil when source is empty.
//
// Because both sequences are midpoint-ordered the nearest source index is
// non-decreasing across targets, so a single forward-only pointer suffices:
// it jumps to the element after the current run of equal midpoints whenever
// that element is strictly closer to the current target midpoint. Comparing
// against the element past the whole run, rather than the immediate
// neighbour, keeps the pointer from stalling on a midpoint plateau. Total
// work is O(len(source)+len(target)) and the result is identical to a
// brute-force nearest-neighbour scan. Ties keep the earlier (smaller-index)
// source element; within a run of equal midpoints that is always the run's
// first element.
func NearestAlign(source, target []Interval) []*Match {
	if len(target) == 0 {
		return nil
	}
	out := make([]*Match, len(target))
	if len(source) == 0 {
		return out
	}

	j := 0
	end := plateauEnd(source, 0)
	for i, tgt := range target {
		mid := tgt.Mid()
		for end+1 < len(source) && abs(source[end+1].Mid()-mid) < abs(source[j].Mid()-mid) {
			j = end + 1
			end = plateauEnd(source, j)
		}
		out[i] = &Match{Source: j, Distance: abs(source[j].Mid() - mid)}
	}
	return out
}

// plateauEnd returns the index of the last element in the run of equal
// midpoints starting at j.
func plateauEnd(source []Interval, j int) int {
	for j+1 < len(source) && source[j+1].Mid() == source[j].Mid() {
		j++
	}
	return j
}

// nearestBrute is the O(n*m) reference implementation of [NearestAlign],
// kept in-package so tests can assert equivalence.
func nearestBrute(source, target []Interval) []*Match {
	if len(target) == 0 {
		return nil
	}
	out := make([]*Match, len(target))
	if len(source) == 0 {
		return out
	}
	for i, tgt := range target {
		mid := tgt.Mid()
		best := 0
		bestDist := abs(source[0].Mid() - mid)
		for j := 1; j < len(source); j++ {
			if d := abs(source[j].Mid() - mid); d < bestDist {
				best, bestDist = j, d
			}
		}
		out[i] = &Match{Source: best, Distance: bestDist}
	}
	return out
}

// Epsilon is the tolerance, in seconds, applied on both sides of a chord
// interval when deciding whether a word midpoint falls inside it.
const Epsilon = 0.01

// OverlapAssign associates each word with the chord segment its time midpoint
// falls into, within [Epsilon] tolerance on both ends. The result holds one
// chord index per word, -1 when no segment covers the midpoint.
//
// chords must be time-ordered and non-overlapping; words must be
// midpoint-ordered. A single pointer advances through chords while the
// current segment ends before the word midpoint, so total work is
// O(len(words)+len(chords)).
func OverlapAssign(words, chords []Interval) []int {
	if len(words) == 0 {
		return nil
	}
	out := make([]int, len(words))
	for i := range out {
		out[i] = -1
	}
	if len(chords) == 0 {
		return out
	}

	j := 0
	for i, w := range words {
		mid := w.Mid()
		for j+1 < len(chords) && chords[j].End < mid {
			j++
		}
		if chords[j].Start-Epsilon <= mid && mid <= chords[j].End+Epsilon {
			out[i] = j
		}
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
