// Package engine wires the ring buffer, spectrum pipeline, peak picker,
// level gate, and MIDI tracker into the analysis driver described in
// spec.md §4.8, and owns the shutdown of the MIDI sink; the caller opens
// and stops the audio device. Its shape — a top-level object running its
// loop until context cancellation, with resources acquired at
// construction and released by Shutdown — is grounded on
// cmd/musicd/main.go's run(ctx, cfg) and internal/audio.Player's
// session/control-channel lifecycle.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"pitchd/internal/config"
	"pitchd/internal/dsp"
	"pitchd/internal/midi"
	"pitchd/internal/ringbuffer"
)

// Closer is satisfied by a MIDI sink that owns an OS resource (a real
// port). midiout.NoOp does not need one.
type Closer interface {
	Close() error
}

// Engine owns the full realtime pipeline for one audio channel.
type Engine struct {
	cfg *config.Config

	ring     *ringbuffer.Buffer
	spectrum *dsp.Spectrum
	picker   *dsp.PeakPicker
	gate     *dsp.LevelGate
	tracker  *midi.Tracker

	sink       midi.Sink
	sinkCloser Closer // nil when sink does not own a resource

	pollInterval time.Duration
}

// New constructs an Engine around a caller-supplied MIDI sink (a real
// midiout.Port, or midiout.NoOp{} when no port is available). The
// spectrum's padded and magnitude buffers are allocated once here; each
// analysis iteration still allocates its ring-buffer snapshot, FFT
// coefficients, peak list and note map.
func New(cfg *config.Config, sink midi.Sink) *Engine {
	ring := ringbuffer.New(cfg.Audio.RingBufferSize)

	var sinkCloser Closer
	if c, ok := sink.(Closer); ok {
		sinkCloser = c
	}

	return &Engine{
		cfg:      cfg,
		ring:     ring,
		spectrum: dsp.NewSpectrum(cfg.Audio.AnalysisWindow, cfg.Audio.PaddedSize),
		picker: dsp.NewPeakPicker(dsp.PeakPickerConfig{
			SampleRate:       cfg.Audio.SampleRate,
			PaddedSize:       cfg.Audio.PaddedSize,
			MaxNotes:         cfg.Tracking.MaxNotes,
			MinPeakThreshold: float32(cfg.Tracking.MinPeakThreshold),
			NumHarmonics:     cfg.Tracking.NumHarmonics,
			FreqFloorHz:      cfg.Tracking.FreqFloorHz,
		}),
		gate: dsp.NewLevelGate(
			float32(cfg.Tracking.SilenceRMS),
			float32(cfg.Tracking.MinRMS),
			float32(cfg.Tracking.TransientRatio),
		),
		tracker:      midi.NewTracker(sink, 0, cfg.Tracking.FramesToKill, uint8(cfg.Tracking.DefaultVelocity)),
		sink:         sink,
		sinkCloser:   sinkCloser,
		pollInterval: time.Millisecond,
	}
}

// RingBuffer exposes the engine's ring buffer so an audio device's
// callback can feed it.
func (e *Engine) RingBuffer() *ringbuffer.Buffer {
	return e.ring
}

// Run drives the analysis loop until ctx is cancelled. It returns without
// touching the MIDI sink or tracker: the caller must call Shutdown once it
// has stopped the audio device, per spec.md §5's shutdown ordering (audio
// stream stopped first, then outstanding NoteOffs flushed, then the MIDI
// port closed).
func (e *Engine) Run(ctx context.Context) error {
	snapshot := make([]float32, e.cfg.Audio.AnalysisWindow)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := e.tick(snapshot); err != nil {
			log.Printf("[ENGINE] dropped frame: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.pollInterval):
		}
	}
}

// tick runs exactly one analysis iteration. Any unexpected numerical
// failure is recovered, logged, and treated as a missing frame per
// spec.md §7's DSPFrameError policy: the tracker still receives an
// update (the empty set) so debounce absorbs it.
func (e *Engine) tick(snapshot []float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.tracker.Update(map[uint8]uint8{})
			err = fmt.Errorf("dsp panic: %v", r)
		}
	}()

	snap, snapErr := e.ring.SnapshotRecent(len(snapshot))
	if snapErr != nil {
		return fmt.Errorf("snapshot: %w", snapErr)
	}

	rms := dsp.RMS(snap)
	_ = e.gate.Observe(rms) // advisory transient flag; not gated on by the core

	if e.gate.IsSilent(rms) {
		e.tracker.Update(map[uint8]uint8{})
		return nil
	}

	spectrum := e.spectrum.Analyze(snap)
	peaks := e.picker.Pick(spectrum)

	incoming := e.notesFromPeaks(peaks)

	events := e.tracker.Update(incoming)
	for _, ev := range events {
		switch ev.Kind {
		case midi.NoteOnEvent:
			log.Printf("[ENGINE] NoteOn %d vel=%d", ev.Note, ev.Velocity)
		case midi.NoteOffEvent:
			log.Printf("[ENGINE] NoteOff %d", ev.Note)
		}
	}

	return nil
}

// notesFromPeaks converts a set of detected fundamentals into a
// note->velocity map suitable for Tracker.Update. Two peaks that round to
// the same MIDI note number (harmonically related strings an octave
// apart, for instance) collapse to a single entry carrying the
// higher-velocity candidate, rather than producing a conflicting double
// NoteOn for one note in the same frame.
func (e *Engine) notesFromPeaks(peaks []dsp.Peak) map[uint8]uint8 {
	incoming := make(map[uint8]uint8, len(peaks))
	for _, peak := range peaks {
		note, ok := midi.FrequencyToNote(peak.FreqHz, e.cfg.Tracking.FreqFloorHz)
		if !ok {
			continue
		}
		vel := midi.VelocityFromMagnitude(peak.Magnitude, uint8(e.cfg.Tracking.DefaultVelocity))
		if existing, dup := incoming[note]; !dup || vel > existing {
			incoming[note] = vel
		}
	}
	return incoming
}

// Shutdown flushes outstanding NoteOffs and closes the sink if it owns a
// resource. Call it only after the audio device has been stopped, per
// spec.md §5's shutdown ordering: audio stream stopped, then tracker
// flush, then MIDI port close.
func (e *Engine) Shutdown() {
	e.tracker.Shutdown()
	if e.sinkCloser != nil {
		if err := e.sinkCloser.Close(); err != nil {
			log.Printf("[ENGINE] error closing MIDI sink: %v", err)
		}
	}
}
