package dsp

import "math"

// RMS computes the root-mean-square amplitude of x.
func RMS(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range x {
		sumSquares += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sumSquares / float64(len(x))))
}

// LevelGate tracks the previous iteration's RMS to classify silence and
// attack transients.
type LevelGate struct {
	SilenceRMS     float32
	MinRMS         float32
	TransientRatio float32

	previousRMS float32
}

// NewLevelGate builds a gate with the given thresholds. previousRMS starts
// at zero, matching a fresh process with no prior observation.
func NewLevelGate(silenceRMS, minRMS, transientRatio float32) *LevelGate {
	return &LevelGate{
		SilenceRMS:     silenceRMS,
		MinRMS:         minRMS,
		TransientRatio: transientRatio,
	}
}

// IsSilent reports whether rms falls below the silence gate.
func (g *LevelGate) IsSilent(rms float32) bool {
	return rms < g.SilenceRMS
}

// Observe classifies rms as a transient relative to the previously
// observed RMS, then updates that history for the next call.
func (g *LevelGate) Observe(rms float32) (transient bool) {
	prev := g.previousRMS
	if prev < g.MinRMS {
		transient = rms > 2*g.MinRMS
	} else {
		transient = rms/prev > g.TransientRatio
	}
	g.previousRMS = rms
	return transient
}
