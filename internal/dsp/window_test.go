package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlackmanHarrisEndpointsNearZero(t *testing.T) {
	w := BlackmanHarris(512)
	assert.InDelta(t, 0, w[0], 1e-3)
	assert.InDelta(t, 0, w[len(w)-1], 1e-3)
}

func TestBlackmanHarrisPeaksAtCenter(t *testing.T) {
	w := BlackmanHarris(513)
	center := w[256]
	for i, v := range w {
		assert.LessOrEqualf(t, v, center, "index %d exceeds center value", i)
	}
}

func TestBlackmanHarrisDegenerateSize(t *testing.T) {
	assert.Equal(t, []float32{1}, BlackmanHarris(1))
	assert.Equal(t, []float32{}, BlackmanHarris(0))
}
