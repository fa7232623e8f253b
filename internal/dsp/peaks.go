package dsp

import "math"

// PeakPickerConfig holds the tuning constants the iterative
// harmonic-subtraction peak picker needs. Defaults are selected
// empirically for a guitar input (see the Config package for the
// surfaced, user-overridable values).
type PeakPickerConfig struct {
	SampleRate       int
	PaddedSize       int
	MaxNotes         int
	MinPeakThreshold float32
	NumHarmonics     int
	FreqFloorHz      float64
}

// PeakPicker repeatedly finds the strongest bin in a whitened spectrum,
// emits its frequency, and suppresses it and its harmonics before
// searching again, up to MaxNotes times.
type PeakPicker struct {
	cfg      PeakPickerConfig
	deltaF   float64
	startBin int
}

// NewPeakPicker derives the bin spacing and start bin from cfg.
func NewPeakPicker(cfg PeakPickerConfig) *PeakPicker {
	deltaF := float64(cfg.SampleRate) / float64(cfg.PaddedSize)
	startBin := int(cfg.FreqFloorHz/deltaF) + 1
	return &PeakPicker{cfg: cfg, deltaF: deltaF, startBin: startBin}
}

// Peak is one fundamental peeled from the spectrum: its frequency and the
// whitened magnitude it carried immediately before suppression.
type Peak struct {
	FreqHz    float64
	Magnitude float32
}

// Pick mutates spectrum in place (suppressing peeled peaks and their
// harmonics) and returns up to MaxNotes fundamentals, strongest-first.
// Callers that need the spectrum afterward must pass a copy.
func (p *PeakPicker) Pick(spectrum []float32) []Peak {
	bins := len(spectrum)
	peaks := make([]Peak, 0, p.cfg.MaxNotes)

	for iter := 0; iter < p.cfg.MaxNotes; iter++ {
		peakIdx := -1
		var peakMag float32 = -1

		for i := p.startBin; i < bins; i++ {
			if spectrum[i] > peakMag {
				peakMag = spectrum[i]
				peakIdx = i
			}
		}

		if peakIdx < 0 || peakMag < p.cfg.MinPeakThreshold {
			break
		}

		peaks = append(peaks, Peak{FreqHz: float64(peakIdx) * p.deltaF, Magnitude: peakMag})

		suppress(spectrum, peakIdx, 2)

		for h := 1; h <= p.cfg.NumHarmonics; h++ {
			j := int(math.Round(float64(peakIdx) * float64(h)))
			if j < bins {
				suppress(spectrum, j, 3)
			}
		}
	}

	return peaks
}

// Frequencies extracts just the Hz values from a Pick result, in the same
// order.
func Frequencies(peaks []Peak) []float64 {
	freqs := make([]float64, len(peaks))
	for i, p := range peaks {
		freqs[i] = p.FreqHz
	}
	return freqs
}

// suppress zeros spectrum[center-width .. center+width], clipped to bounds.
func suppress(spectrum []float32, center, width int) {
	low := center - width
	if low < 0 {
		low = 0
	}
	high := center + width + 1
	if high > len(spectrum) {
		high = len(spectrum)
	}
	for i := low; i < high; i++ {
		spectrum[i] = 0
	}
}
