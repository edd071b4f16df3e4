// Package pulse implements the tempo-driven blink and note loop. It is
// hardware-agnostic: the clock, the analog knob, the LED and the voice are all
// injected, so the same loop runs on the host daemon, on a microcontroller and
// in tests.
package pulse

import (
	"fmt"
	"time"
)

// Params is the immutable set of parameters consumed by the control loop. It
// is built once at startup and shared read-only by every component.
type Params struct {
	// MinBPM and MaxBPM bound the tempo that the input is mapped onto.
	MinBPM float64
	MaxBPM float64
	// BlinkOn is how long the LED stays lit at the start of every beat.
	BlinkOn time.Duration
	// LEDBrightness is the LED level while lit, in [0, 1].
	LEDBrightness float64
	// AudioLevel is the upper bound of the per-beat voice level, in [0, 1].
	AudioLevel float64
	// InputMin and InputMax declare the range of raw input samples.
	InputMin float64
	InputMax float64
	// Smoothing is the moving average window size. Zero disables smoothing.
	Smoothing int
	// NoteStep bounds the random walk applied to the note on every beat.
	NoteStep int
	// Interval is how long the loop yields after every iteration. It must be
	// positive, or the loop would spin.
	Interval time.Duration
}

// ConfigError is returned for invalid or missing configuration. It is always
// detected before the control loop starts.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %q: %s", e.Key, e.Reason)
}

// Tempo returns the input to tempo mapping described by p.
func (p Params) Tempo() TempoRange {
	return TempoRange{
		InMin:  p.InputMin,
		InMax:  p.InputMax,
		MinBPM: p.MinBPM,
		MaxBPM: p.MaxBPM,
	}
}

// Validate validates the parameters. The returned error is always a
// *ConfigError.
func (p Params) Validate() error {
	switch {
	case p.MinBPM <= 0:
		return &ConfigError{"min_bpm", "must be positive"}
	case p.MaxBPM < p.MinBPM:
		return &ConfigError{"max_bpm", "must not be less than min_bpm"}
	case p.BlinkOn <= 0:
		return &ConfigError{"blink_on_duration", "must be positive"}
	case p.BlinkOn > Period(p.MaxBPM):
		return &ConfigError{"blink_on_duration", fmt.Sprintf(
			"%v is longer than one beat at max_bpm (%v)", p.BlinkOn, Period(p.MaxBPM))}
	case p.LEDBrightness < 0 || p.LEDBrightness > 1:
		return &ConfigError{"led_brightness", "must be within [0, 1]"}
	case p.AudioLevel < 0 || p.AudioLevel > 1:
		return &ConfigError{"audio_level", "must be within [0, 1]"}
	case p.InputMax <= p.InputMin:
		return &ConfigError{"input_max", "must be greater than the input minimum"}
	case p.Smoothing < 0:
		return &ConfigError{"smoothing", "must not be negative"}
	case p.NoteStep < 0 || p.NoteStep > MaxNote:
		return &ConfigError{"note_step", fmt.Sprintf("must be within [0, %d]", MaxNote)}
	case p.Interval <= 0:
		return &ConfigError{"interval", "must be positive"}
	}
	return nil
}
