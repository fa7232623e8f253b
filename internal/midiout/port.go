// Package midiout adapts the midi.Tracker's Sink interface to a real MIDI
// output port via gitlab.com/gomidi/midi/v2, the library used throughout
// the example pack's live-MIDI and MIDI-file tooling.
package midiout

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the platform MIDI driver
)

// Port sends NoteOn/NoteOff messages to a named MIDI output port.
type Port struct {
	out  drivers.Out
	send func(midi.Message) error
}

// Open opens the output port whose name contains preferredName (e.g.
// "loopMIDI Port"). If no port matches, it falls back to the first
// available output port. It returns an error when no output ports exist
// at all or when the chosen port cannot be opened; callers that want a
// disabled sink on that error should fall back to NoOp.
func Open(preferredName string) (*Port, error) {
	outs := midi.OutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("midiout: no MIDI output ports available")
	}

	chosen := outs[0]
	if preferredName != "" {
		for _, o := range outs {
			if strings.Contains(o.String(), preferredName) {
				chosen = o
				break
			}
		}
	}

	send, err := midi.SendTo(chosen)
	if err != nil {
		return nil, fmt.Errorf("midiout: open port %q: %w", chosen.String(), err)
	}

	return &Port{out: chosen, send: send}, nil
}

// Name returns the underlying port's driver-reported name.
func (p *Port) Name() string {
	return p.out.String()
}

// NoteOn sends a Note On message.
func (p *Port) NoteOn(channel, note, velocity uint8) error {
	return p.send(midi.NoteOn(channel, note, velocity))
}

// NoteOff sends a Note Off message (velocity 0).
func (p *Port) NoteOff(channel, note uint8) error {
	return p.send(midi.NoteOff(channel, note))
}

// Close releases the underlying output port.
func (p *Port) Close() error {
	return p.out.Close()
}
