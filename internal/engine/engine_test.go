package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchd/internal/config"
	"pitchd/internal/dsp"
	"pitchd/internal/ringbuffer"
)

type fakeSink struct {
	onCalls   []uint8
	offCalls  []uint8
	closed    bool
	panicOnOn bool
}

func (f *fakeSink) NoteOn(channel, note, velocity uint8) error {
	if f.panicOnOn {
		panic("simulated transport panic")
	}
	f.onCalls = append(f.onCalls, note)
	return nil
}

func (f *fakeSink) NoteOff(channel, note uint8) error {
	f.offCalls = append(f.offCalls, note)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestNotesFromPeaksDedupesToHigherVelocity(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	e := New(cfg, sink)

	// Two peaks close enough to round to the same MIDI note (69); the
	// second carries a higher whitened magnitude and must win.
	peaks := []dsp.Peak{
		{FreqHz: 440.0, Magnitude: 0.4},
		{FreqHz: 440.2, Magnitude: 0.9},
	}

	incoming := e.notesFromPeaks(peaks)
	require.Len(t, incoming, 1)

	vel, ok := incoming[69]
	require.True(t, ok)
	assert.Equal(t, dspVelocity(0.9, cfg), vel)
}

func TestNotesFromPeaksDropsPeaksBelowFloor(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	e := New(cfg, sink)

	peaks := []dsp.Peak{
		{FreqHz: 30.0, Magnitude: 1.0}, // below FreqFloorHz (55)
		{FreqHz: 220.0, Magnitude: 0.5},
	}

	incoming := e.notesFromPeaks(peaks)
	assert.Len(t, incoming, 1)
	_, ok := incoming[23] // the note 30 Hz would round to
	assert.False(t, ok)
}

func dspVelocity(magnitude float32, cfg *config.Config) uint8 {
	span := float32(127 - cfg.Tracking.DefaultVelocity)
	v := float32(cfg.Tracking.DefaultVelocity) + magnitude*span
	return uint8(math.Round(float64(v)))
}

func TestTickRecoversFromSinkPanicAndDropsFrame(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{panicOnOn: true}
	e := New(cfg, sink)

	// Seed the ring buffer with a loud 440Hz tone so the pipeline finds a
	// fundamental and attempts a NoteOn, which this sink panics on.
	const sampleRate = 48000
	samples := make([]float32, cfg.Audio.RingBufferSize)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate))
	}
	e.RingBuffer().Write(samples)

	snapshot := make([]float32, cfg.Audio.AnalysisWindow)
	err := e.tick(snapshot)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsp panic")
	assert.Empty(t, e.tracker.ActiveNotes(), "a panicked NoteOn must not leave tracker state behind")
}

func TestTickSkipsPipelineWhenSilent(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	e := New(cfg, sink)

	// Ring buffer stays all-zero: RMS is 0, well under SilenceRMS.
	snapshot := make([]float32, cfg.Audio.AnalysisWindow)
	err := e.tick(snapshot)

	require.NoError(t, err)
	assert.Empty(t, sink.onCalls, "silence must never reach the peak picker or tracker as a NoteOn")
}

func TestTickReturnsSnapshotError(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	e := New(cfg, sink)

	oversized := make([]float32, cfg.Audio.RingBufferSize+1)
	err := e.tick(oversized)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ringbuffer.ErrInvalidRequest))
}

func TestShutdownFlushesActiveNotesAndClosesSink(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	e := New(cfg, sink)

	e.tracker.Update(map[uint8]uint8{60: 100})
	e.Shutdown()

	assert.Contains(t, sink.offCalls, uint8(60))
	assert.True(t, sink.closed)
}
