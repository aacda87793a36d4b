package sstv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHilbertPreservesRealPart(t *testing.T) {
	n := 512
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 10 * float64(i) / float64(n))
	}

	analytic := hilbert(samples)
	require.Len(t, analytic, n)

	for i, z := range analytic {
		assert.InDelta(t, samples[i], real(z), 1e-9, "sample %d", i)
	}
}

func TestHilbertOfPureToneHasConstantEnvelope(t *testing.T) {
	n := 1024
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Cos(2 * math.Pi * 20 * float64(i) / float64(n))
	}

	analytic := hilbert(samples)

	// Away from the edges, the analytic signal of a pure tone has near
	// constant magnitude.
	for i := n / 4; i < 3*n/4; i++ {
		mag := math.Hypot(real(analytic[i]), imag(analytic[i]))
		assert.InDelta(t, 1.0, mag, 0.05, "sample %d", i)
	}
}

func TestQuadratureDemodRecoversToneFrequency(t *testing.T) {
	const freq = 1900.0
	n := 4410
	analytic := make([]complex128, n)
	for i := range analytic {
		phase := 2 * math.Pi * freq * float64(i) / SampleRate
		analytic[i] = complex(math.Cos(phase), math.Sin(phase))
	}

	out := quadratureDemod(analytic)

	for i := 10; i < n-10; i++ {
		assert.InDelta(t, freq, out[i], 5.0, "sample %d", i)
	}
}

func TestDemodulateReturnsSameLengthAsInput(t *testing.T) {
	pcm := make([]float32, 2000)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * 1500 * float64(i) / SampleRate))
	}

	out := demodulate(pcm)
	assert.Len(t, out, len(pcm))
}
