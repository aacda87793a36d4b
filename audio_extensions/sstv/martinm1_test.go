package sstv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func solidColorImage(w, h int, r, g, b uint8) *SourceImage {
	pix := make([]uint8, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return &SourceImage{Width: w, Height: h, Pix: pix}
}

func toFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32767
	}
	return out
}

// TestEncodeSmallestEncodeDuration checks scenario 1 of spec.md §8: a
// pure-black 320x256 image's rendered duration.
func TestEncodeSmallestEncodeDuration(t *testing.T) {
	black := solidColorImage(ImageWidth, ImageHeight, 0, 0, 0)
	codec := NewMartinM1()

	sig := codec.Encode(black)
	samples := sig.RenderSamples()

	// Each segment is truncated to whole samples on its own, so the expected
	// count sums per-segment sample counts: leader, break, leader, start bit,
	// 7 VIS bits and stop bit; 256 rows of sync, separator and three
	// 320-pixel channels each followed by a separator; then the trailer.
	samplesFor := func(us float64) int { return int((us / 1_000_000) * SampleRate) }
	header := 2*samplesFor(300_000) + samplesFor(10_000) + 9*samplesFor(30_000)
	row := samplesFor(4862) + samplesFor(572) + 3*(320*samplesFor(457.6)+samplesFor(572))
	wantSamples := header + 256*row + samplesFor(100_000)

	assert.InDelta(t, wantSamples, len(samples), float64(SampleRate)/10, "rendered sample count")
}

// TestEncodeEmitsLeaderBreakLeaderVIS verifies the very start of the
// rendered signal carries the fixed calibration tones and the VIS code,
// independent of the decoder's row loop. VIS bits last exactly 1323
// samples, so consumeUs reads them without rounding drift.
func TestEncodeEmitsLeaderBreakLeaderVIS(t *testing.T) {
	img := solidColorImage(ImageWidth, ImageHeight, 128, 128, 128)
	codec := NewMartinM1()
	samples := toFloat32(codec.Encode(img).RenderSamples())

	timeline := demodulate(samples)
	cur := newCursor(timeline)

	require.True(t, cur.advanceUntilNear(freqLeader), "first leader")
	require.True(t, cur.advanceWhileNear(freqLeader), "leader ends")
	require.True(t, cur.advanceUntilNear(freqBreak), "break tone")
	require.True(t, cur.advanceUntilNear(freqLeader), "second leader")
	require.True(t, cur.advanceWhileNear(freqLeader), "second leader ends")

	// Start bit, then visBits in time order: 1100Hz for 1, 1300Hz for 0.
	_, ok := cur.consumeUs(durVISBitUs)
	require.True(t, ok, "VIS start bit")
	for k, want := range visBits {
		v, ok := cur.consumeUs(durVISBitUs)
		require.True(t, ok, "VIS bit %d", k)
		assert.Equal(t, want, v < freqVISFrame, "VIS bit %d (mean %.0f Hz)", k, v)
	}
}

// TestDecodeNoneFoundOnSilence covers scenario 6: ten seconds of zero
// samples never recognise a header.
func TestDecodeNoneFoundOnSilence(t *testing.T) {
	codec := NewMartinM1()
	silence := make([]float32, 10*SampleRate)

	result := codec.Decode(silence)
	assert.Equal(t, NoneFound, result.State)
	assert.Nil(t, result.Image)
}

// TestDecodeHeaderRecognitionSucceedsGivenFullSignal feeds a complete
// Martin M1 transmission and checks header recognition gets past NoneFound:
// given the whole signal, there is always enough trailing content for the
// header's closing advance_while_near(1200) to observe a sample away from
// 1200Hz and terminate (spec.md §4.4.4).
func TestDecodeHeaderRecognitionSucceedsGivenFullSignal(t *testing.T) {
	img := solidColorImage(ImageWidth, ImageHeight, 0, 0, 0)
	codec := NewMartinM1()
	full := toFloat32(codec.Encode(img).RenderSamples())

	decoder := NewMartinM1()
	result := decoder.Decode(full)

	assert.NotEqual(t, NoneFound, result.State)
	require.NotNil(t, result.Image)
}

// TestDecodeNeverReturnsNoneFoundOnceHeaderHasMatched checks an invariant
// that holds regardless of row-timing drift: in_header only ever transitions
// true -> false, so once a call returns something other than NoneFound, no
// later call on the same codec can return NoneFound again (spec.md §7).
func TestDecodeNeverReturnsNoneFoundOnceHeaderHasMatched(t *testing.T) {
	img := solidColorImage(ImageWidth, ImageHeight, 0, 0, 0)
	codec := NewMartinM1()
	full := toFloat32(codec.Encode(img).RenderSamples())

	mid := len(full) / 2
	decoder := NewMartinM1()

	first := decoder.Decode(full[:mid])
	require.NotEqual(t, NoneFound, first.State)

	second := decoder.Decode(full[mid:])
	assert.NotEqual(t, NoneFound, second.State)

	third := decoder.Decode(nil)
	assert.NotEqual(t, NoneFound, third.State)
}

// TestDecodeNeverPanics fuzzes Decode with arbitrary chunk contents and
// sizes to ensure the three-valued outcome is the only failure mode
// (spec.md §7: "no exceptions, no panics").
func TestDecodeNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6000).Draw(t, "n")
		chunk := make([]float32, n)
		for i := range chunk {
			chunk[i] = float32(rapid.Float64Range(-1, 1).Draw(t, "sample"))
		}

		codec := NewMartinM1()
		result := codec.Decode(chunk)
		assert.Contains(t, []DecodeState{NoneFound, Partial, Finished}, result.State)
	})
}

// TestAdvanceUntilNearToleranceBoundary covers property 7 directly.
func TestAdvanceUntilNearToleranceBoundary(t *testing.T) {
	timeline := []float64{1900 - 251, 1900 - 249, 1900}
	c := newCursor(timeline)
	require.True(t, c.advanceUntilNear(1900))
	assert.Equal(t, 1, c.position())
}

func TestVisCodeFromBitsPacksMSBFirst(t *testing.T) {
	bits := [6]bool{true, false, true, true, false, false}
	got := visCodeFromBits(bits)
	want := uint8(1<<6) + uint8(1<<4) + uint8(1<<3)
	assert.Equal(t, want, got)
}

func TestSourceImageAt(t *testing.T) {
	img := solidColorImage(4, 4, 10, 20, 30)
	r, g, b := img.At(2, 2)
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(20), g)
	assert.Equal(t, uint8(30), b)
}

func TestEncodeNearestNeighbourHandlesNonStandardSize(t *testing.T) {
	img := solidColorImage(640, 512, 255, 0, 0)
	codec := NewMartinM1()

	require.NotPanics(t, func() {
		sig := codec.Encode(img)
		assert.NotEmpty(t, sig.RenderSamples())
	})
}

func TestPixelFrequencyMapping(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		freq := pixelFreqFloor + uint(float64(v)/255*pixelFreqRange)
		assert.True(t, freq >= pixelFreqFloor && freq <= pixelFreqFloor+pixelFreqRange)
	}
	zero := pixelFreqFloor + uint(float64(0)/255*pixelFreqRange)
	full := pixelFreqFloor + uint(float64(255)/255*pixelFreqRange)
	assert.Equal(t, uint(1500), zero)
	assert.Equal(t, uint(2300), full)
}

func TestImageReturnsIndependentSnapshot(t *testing.T) {
	codec := NewMartinM1()
	first := codec.Image()
	first.Pix[0] = 200

	second := codec.Image()
	assert.NotEqual(t, uint8(200), second.Pix[0])
}

func TestMathSanityOnDurations(t *testing.T) {
	// consume_us durations used for VIS bits land on an exact sample count at
	// 44100Hz, unlike the pixel duration (20.18 samples, rounded up to 21 by
	// consumeUs); this keeps header recognition free of the row-loop's
	// rounding drift.
	assert.Equal(t, 1323.0, durVISBitUs*SampleRate/1_000_000)
	assert.NotEqual(t, math.Trunc(durPixelUs*SampleRate/1_000_000), math.Ceil(durPixelUs*SampleRate/1_000_000))
}
