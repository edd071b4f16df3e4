// Command standalone runs the whole control loop on the board: the knob sets
// the tempo, the onboard LED blinks on it and every beat plays a note over
// USB MIDI. No host is needed.
package main

import (
	"context"
	"log/slog"
	"machine"
	"machine/usb/adc/midi"
	"math"
	"time"

	"libdb.so/catpulse/pulse"
	"libdb.so/catpulse/xiao/mainled"
)

const (
	cable   = 0
	channel = 1
)

var params = pulse.Params{
	MinBPM:        60,
	MaxBPM:        180,
	BlinkOn:       50 * time.Millisecond,
	LEDBrightness: 0.5,
	AudioLevel:    1,
	InputMin:      0,
	InputMax:      0xFFFF,
	Smoothing:     10,
	NoteStep:      12,
	Interval:      time.Millisecond,
}

type knob struct {
	adc machine.ADC
}

func (k knob) Sample() (float64, error) {
	return float64(k.adc.Get()), nil
}

type led struct{}

func (led) SetLevel(level float64) error {
	mainled.SetDuty(uint16(math.Round(level * 0xFFFF)))
	return nil
}

// usbVoice plays notes over USB MIDI. The level becomes the note velocity.
type usbVoice struct {
	velocity uint8
	held     []uint8
}

func (v *usbVoice) SetLevel(level float64) error {
	v.velocity = uint8(math.Round(level * 127))
	return nil
}

func (v *usbVoice) ReleaseAll() error {
	port := midi.Port()
	for _, note := range v.held {
		port.NoteOff(cable, channel, midi.Note(note), 0)
	}
	v.held = v.held[:0]
	return nil
}

func (v *usbVoice) Press(note uint8) error {
	midi.Port().NoteOn(cable, channel, midi.Note(note), v.velocity)
	v.held = append(v.held, note)
	return nil
}

func main() {
	machine.InitADC()
	adc := machine.ADC{Pin: machine.A0}
	adc.Configure(machine.ADCConfig{})

	loop, err := pulse.NewLoop(params, pulse.Hardware{
		Input:  knob{adc},
		Output: led{},
		Voice:  &usbVoice{},
	}, nil, slog.Default())
	if err != nil {
		panic(err)
	}

	for {
		// The loop only returns on hardware failure, with all output halted.
		// Blink red and retry.
		if err := loop.Run(context.Background()); err != nil {
			mainled.SetRGB(255, 0, 0)
			time.Sleep(time.Second)
			mainled.Off()
		}
	}
}
