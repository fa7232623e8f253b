package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum holds the scratch buffers for one analysis iteration's
// windowing → zero-padding → real FFT → magnitude → whitening pipeline.
// The padded input and magnitude buffers are preallocated at construction
// time and reused; the FFT coefficient slice is allocated by each call to
// Analyze.
type Spectrum struct {
	window []float32 // length W
	padded []float64 // length P, reused every call
	fft    *fourier.FFT
	mag    []float32 // length P/2+1, the whitened output; mutated in place

	paddedSize int
}

// NewSpectrum builds the pipeline's scratch state for an analysis window
// of windowSize samples zero-padded to paddedSize (paddedSize must be a
// power of two and >= windowSize).
func NewSpectrum(windowSize, paddedSize int) *Spectrum {
	return &Spectrum{
		window:     BlackmanHarris(windowSize),
		padded:     make([]float64, paddedSize),
		fft:        fourier.NewFFT(paddedSize),
		mag:        make([]float32, paddedSize/2+1),
		paddedSize: paddedSize,
	}
}

// Bins returns the number of magnitude bins produced, P/2+1.
func (s *Spectrum) Bins() int {
	return len(s.mag)
}

// Analyze windows and zero-pads snapshot, computes the one-sided real FFT,
// derives the magnitude spectrum, and whitens it by peak normalization.
// The returned slice aliases internal scratch state: it is overwritten by
// the next call to Analyze, and callers that mutate it (the peak picker
// does, destructively) must not call Analyze again until they are done
// with it.
func (s *Spectrum) Analyze(snapshot []float32) []float32 {
	for i := range s.padded {
		if i < len(snapshot) && i < len(s.window) {
			s.padded[i] = float64(snapshot[i]) * float64(s.window[i])
		} else {
			s.padded[i] = 0
		}
	}

	coeffs := s.fft.Coefficients(nil, s.padded)

	var maxVal float32
	for i, c := range coeffs {
		m := float32(math.Hypot(real(c), imag(c)))
		s.mag[i] = m
		if m > maxVal {
			maxVal = m
		}
	}

	if maxVal > 1e-9 {
		inv := 1 / maxVal
		for i := range s.mag {
			s.mag[i] *= inv
		}
	}

	return s.mag
}
