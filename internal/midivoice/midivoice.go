// Package midivoice plays notes on an external MIDI synthesizer.
package midivoice

import (
	"math"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"libdb.so/catpulse/pulse"
)

// ControllerVolume is the channel volume controller number.
const ControllerVolume = 7

// DefaultVelocity is the velocity of every pressed note. Loudness is set
// through the channel volume instead.
const DefaultVelocity = 100

// Sender sends a single MIDI message.
type Sender func(msg midi.Message) error

// Voice is a single MIDI channel used as a voice.
type Voice struct {
	send    Sender
	channel uint8
	held    []uint8
}

var _ pulse.Voice = (*Voice)(nil)

// Open opens the MIDI output port with the given name. A MIDI driver must be
// registered by importing one, e.g. gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
func Open(port string, channel uint8) (*Voice, error) {
	out, err := midi.FindOutPort(port)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find MIDI output %q", port)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open MIDI output %q", port)
	}

	return New(send, channel), nil
}

// New creates a voice that sends messages on the given channel.
func New(send Sender, channel uint8) *Voice {
	return &Voice{
		send:    send,
		channel: channel & 0x0F,
	}
}

// SetLevel sets the channel volume.
func (v *Voice) SetLevel(level float64) error {
	value := uint8(math.Round(min(max(level, 0), 1) * 127))
	return v.send(midi.ControlChange(v.channel, ControllerVolume, value))
}

// ReleaseAll sends a note off for every note pressed since the last release.
func (v *Voice) ReleaseAll() error {
	for len(v.held) > 0 {
		note := v.held[0]
		if err := v.send(midi.NoteOff(v.channel, note)); err != nil {
			return errors.Wrapf(err, "failed to release note %d", note)
		}
		v.held = v.held[1:]
	}
	return nil
}

// Press sends a note on.
func (v *Voice) Press(note uint8) error {
	if note > pulse.MaxNote {
		return errors.Errorf("note %d out of range", note)
	}
	if err := v.send(midi.NoteOn(v.channel, note, DefaultVelocity)); err != nil {
		return err
	}
	v.held = append(v.held, note)
	return nil
}

// Held returns the notes currently sounding.
func (v *Voice) Held() []uint8 {
	return append([]uint8(nil), v.held...)
}

// Close closes the MIDI driver and every port opened through it.
func Close() {
	midi.CloseDriver()
}
