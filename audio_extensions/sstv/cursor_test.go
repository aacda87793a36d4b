package sstv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constTimeline(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = freq
	}
	return out
}

func TestCursorAdvanceUntilNearFindsTarget(t *testing.T) {
	timeline := append(constTimeline(500, 10), constTimeline(1900, 10)...)
	c := newCursor(timeline)

	ok := c.advanceUntilNear(1900)
	require.True(t, ok)
	assert.Equal(t, 10, c.position())
}

func TestCursorAdvanceUntilNearFailsOnExhaustion(t *testing.T) {
	c := newCursor(constTimeline(500, 20))
	assert.False(t, c.advanceUntilNear(1900))
}

func TestCursorAdvanceWhileNearStopsAtChange(t *testing.T) {
	timeline := append(constTimeline(1900, 10), constTimeline(500, 10)...)
	c := newCursor(timeline)

	require.True(t, c.advanceWhileNear(1900))
	assert.Equal(t, 10, c.position())
}

func TestCursorConsumeUsComputesMeanAndAdvances(t *testing.T) {
	timeline := make([]float64, 100)
	for i := range timeline {
		timeline[i] = 1500
	}
	c := newCursor(timeline)

	mean, ok := c.consumeUs(1000)
	require.True(t, ok)
	assert.Equal(t, 1500.0, mean)
	assert.Equal(t, int(math.Ceil(1000.0*SampleRate/1_000_000)), c.position())
}

func TestCursorConsumeUsFailsWhenShort(t *testing.T) {
	c := newCursor(make([]float64, 2))
	_, ok := c.consumeUs(10_000)
	assert.False(t, ok)
}

func TestCursorSeekToRepositions(t *testing.T) {
	c := newCursor(constTimeline(1900, 100))
	c.seekTo(42)
	assert.Equal(t, 42, c.position())
}

func TestCursorConsumeUsMeanOfMixedValues(t *testing.T) {
	timeline := []float64{100, 200, 300, 400}
	c := newCursor(timeline)

	// ceil(4*44100/1e6) = 1 sample per consumeUs(4us) in this tiny example;
	// instead consume enough microseconds to span the whole timeline.
	durationUs := float64(len(timeline)) * 1_000_000 / SampleRate
	mean, ok := c.consumeUs(durationUs)
	require.True(t, ok)
	assert.InDelta(t, 250.0, mean, 1.0)
}
