package sstv

import "math"

// SampleRate is the fixed PCM sample rate used throughout the codec, in Hz.
// Resampling to or from this rate is the caller's responsibility.
const SampleRate = 44100

// MaxAmplitude is the peak i16 amplitude the encoder renders, chosen to
// leave headroom below full scale (~-10.3 dBFS).
const MaxAmplitude = 10000

// segment is one constant-frequency run in a Signal.
type segment struct {
	freqHz  uint
	lenUs   float64
}

// Signal is an ordered, append-only sequence of frequency segments.
// RenderSamples synthesises it into continuous-phase PCM.
type Signal struct {
	segments []segment
}

// NewSignal returns an empty signal ready for Push calls.
func NewSignal() *Signal {
	return &Signal{}
}

// Push appends a segment of the given frequency (Hz) and duration in
// microseconds. Segments render back to back with no phase reset between
// them. A frequency of 0 stops the phase advancing, so that segment renders
// as a constant level of sin(phase): zero only when the phase is a multiple
// of π, as at the very start of a signal.
func (s *Signal) Push(freqHz uint, lenUs float64) {
	s.segments = append(s.segments, segment{freqHz: freqHz, lenUs: lenUs})
}

// RenderSamples synthesises the signal into signed 16-bit mono PCM at
// SampleRate. Phase is accumulated continuously across segment boundaries
// so the waveform never clicks at a join.
func (s *Signal) RenderSamples() []int16 {
	var out []int16
	var phase float64

	for _, seg := range s.segments {
		n := int((seg.lenUs / 1_000_000) * SampleRate)
		step := 2 * math.Pi * float64(seg.freqHz) / SampleRate

		for i := 0; i < n; i++ {
			out = append(out, clipToInt16(math.Sin(phase)*MaxAmplitude))
			phase += step
		}
	}

	return out
}

func clipToInt16(v float64) int16 {
	r := math.Round(v)
	switch {
	case r > math.MaxInt16:
		return math.MaxInt16
	case r < math.MinInt16:
		return math.MinInt16
	default:
		return int16(r)
	}
}
