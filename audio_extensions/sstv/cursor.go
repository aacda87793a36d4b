package sstv

import "math"

// freqTolerance is the ±Hz window used by AdvanceUntilNear/AdvanceWhileNear,
// tuned for Martin M1's tone set (1100/1200/1300/1500/1900/2300 Hz) per
// spec.md §4.3.
const freqTolerance = 250

// cursor is a read-head over a frequency timeline. Position is monotonically
// non-decreasing; on a failed advance the position is left in an unspecified
// state and callers that want to retry must save and restore it themselves
// (the codec does this via cursorPos/nextRow, see martinm1.go).
type cursor struct {
	timeline []float64
	pos      int
}

// newCursor wraps a frequency timeline for cursor operations, starting at
// position 0.
func newCursor(timeline []float64) *cursor {
	return &cursor{timeline: timeline}
}

// seekTo repositions the cursor to an absolute index, as used when resuming
// a saved cursorPos against a freshly recomputed timeline.
func (c *cursor) seekTo(pos int) {
	c.pos = pos
}

func (c *cursor) position() int {
	return c.pos
}

func near(f, target float64) bool {
	d := f - target
	if d < 0 {
		d = -d
	}
	return d < freqTolerance
}

// advanceUntilNear advances while the current frequency is not within
// ±250Hz of target, stopping at the first index that is. Fails (returns
// false) if the timeline is exhausted first.
func (c *cursor) advanceUntilNear(target float64) bool {
	for {
		if c.pos >= len(c.timeline) {
			return false
		}
		if near(c.timeline[c.pos], target) {
			return true
		}
		c.pos++
	}
}

// advanceWhileNear advances while the current frequency is within ±250Hz of
// target, stopping at the first index that is not. Fails on exhaustion.
func (c *cursor) advanceWhileNear(target float64) bool {
	for {
		if c.pos >= len(c.timeline) {
			return false
		}
		if !near(c.timeline[c.pos], target) {
			return true
		}
		c.pos++
	}
}

// consumeUs consumes ceil((durationUs * SampleRate) / 1e6) samples and
// returns their arithmetic mean. It never inspects frequency values —
// partial-pixel mis-sync smears colour rather than failing. Fails if fewer
// samples remain than required.
func (c *cursor) consumeUs(durationUs float64) (float64, bool) {
	n := int(math.Ceil(durationUs * SampleRate / 1_000_000))

	if c.pos+n > len(c.timeline) {
		return 0, false
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += c.timeline[c.pos+i]
	}
	c.pos += n

	if n == 0 {
		return 0, true
	}
	return sum / float64(n), true
}
