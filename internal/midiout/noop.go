package midiout

// NoOp is a midi.Sink that discards every message. It is used when no
// MIDI output port is available: the tracker keeps running and maintains
// its internal state so that reopening the real port later can resume
// cleanly.
type NoOp struct{}

func (NoOp) NoteOn(channel, note, velocity uint8) error { return nil }
func (NoOp) NoteOff(channel, note uint8) error          { return nil }
