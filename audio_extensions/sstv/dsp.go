package sstv

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hilbert returns the analytic signal of a real-valued sequence: a complex
// sequence whose real part is the input and whose imaginary part is its
// Hilbert transform. It is computed via the standard FFT method — zero the
// negative-frequency bins of the discrete Fourier transform, double the
// strictly-positive ones, and transform back — using gonum's FFT the same
// way the teacher's sstv package uses it for spectral analysis (fft.go).
func hilbert(samples []float64) []complex128 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	seq := make([]complex128, n)
	for i, v := range samples {
		seq[i] = complex(v, 0)
	}

	fft := fourier.NewCmplxFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	half := (n + 1) / 2
	for k := 1; k < half; k++ {
		coeffs[k] *= 2
	}
	for k := half; k < n; k++ {
		if n%2 == 0 && k == n/2 {
			continue // Nyquist bin stays unscaled for even-length input
		}
		coeffs[k] = 0
	}

	// gonum's inverse transform is unnormalised (Coefficients then Sequence
	// multiplies by n), so scale back to the input's amplitude.
	seq = fft.Sequence(seq, coeffs)
	scale := complex(1/float64(n), 0)
	for i := range seq {
		seq[i] *= scale
	}
	return seq
}

// quadratureDemod recovers the instantaneous frequency (Hz) between each
// pair of consecutive analytic samples, treating the sample before index 0
// as zero per spec.md §4.2.
func quadratureDemod(analytic []complex128) []float64 {
	out := make([]float64, len(analytic))
	prev := complex(0, 0)

	for i, z := range analytic {
		out[i] = cmplx.Phase(cmplx.Conj(prev)*z) * SampleRate / (2 * math.Pi)
		prev = z
	}

	return out
}

// demodulate runs the full DSP front-end described in spec.md §4.2: a
// band-pass filter chain followed by a Hilbert-based quadrature FM
// discriminator. The output is a frequency timeline the same length as
// the input, reconstructed from zero filter state every call.
func demodulate(pcm []float32) []float64 {
	filtered := bandpassFilter(pcm)
	analytic := hilbert(filtered)
	return quadratureDemod(analytic)
}
