// Package dsp implements the spectral analysis pipeline: windowing,
// zero-padded real FFT, magnitude whitening, iterative harmonic-subtraction
// peak picking, and the level/transient gate. It generalizes the teacher's
// gonum-backed visualization FFT (internal/audio's former analyzer) to a
// configurable, mutation-in-place pipeline suited to realtime pitch
// tracking rather than fixed-band visualization.
package dsp

import "math"

// Blackman-Harris window coefficients.
const (
	bhA0 = 0.35875
	bhA1 = 0.48829
	bhA2 = 0.14128
	bhA3 = 0.01168
)

// BlackmanHarris precomputes a Blackman-Harris window table of the given
// size. It is intended to be computed once at startup and reused on every
// analysis iteration.
func BlackmanHarris(size int) []float32 {
	w := make([]float32, size)
	if size <= 1 {
		for i := range w {
			w[i] = 1
		}
		return w
	}

	denom := float64(size - 1)
	for n := 0; n < size; n++ {
		angle := 2 * math.Pi * float64(n) / denom
		term1 := bhA1 * math.Cos(angle)
		term2 := bhA2 * math.Cos(2*angle)
		term3 := bhA3 * math.Cos(3*angle)
		w[n] = float32(bhA0 - term1 + term2 - term3)
	}
	return w
}
