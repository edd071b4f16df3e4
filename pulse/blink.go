package pulse

import (
	"fmt"
	"time"
)

// Phase is the state of a Blinker.
type Phase uint8

const (
	// PhaseOff means the LED is dark and the blinker is waiting for the next
	// beat.
	PhaseOff Phase = iota
	// PhaseOn means the LED is lit at the start of a beat.
	PhaseOn
)

func (p Phase) String() string {
	switch p {
	case PhaseOff:
		return "off"
	case PhaseOn:
		return "on"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// Blinker is a polled, non-blocking blink timer. Each beat lights the LED
// for a fixed duration and keeps it dark for the rest of the beat. The dark
// duration follows the tempo, which may change at any time.
//
// Elapsed time is always measured against the absolute time of the last
// transition. A late Tick call therefore delays that one transition but never
// accumulates drift, and it never produces more than one transition: a call
// arriving several periods late yields exactly one transition with no burst
// of catch-up beats.
type Blinker struct {
	tempo      TempoRange
	brightness float64

	on  time.Duration
	off time.Duration
	bpm float64

	phase   Phase
	last    time.Time
	started bool
}

// NewBlinker creates a new blinker. It starts dark at the slowest tempo; the
// first Tick call produces a beat. An error is returned if on is longer than
// one beat at the fastest tempo, since the dark period would be negative.
func NewBlinker(tempo TempoRange, on time.Duration, brightness float64) (*Blinker, error) {
	if on <= 0 {
		return nil, &ConfigError{"blink_on_duration", "must be positive"}
	}
	if tempo.MinBPM <= 0 || tempo.MaxBPM < tempo.MinBPM {
		return nil, &ConfigError{"max_bpm", fmt.Sprintf("invalid tempo range [%v, %v]", tempo.MinBPM, tempo.MaxBPM)}
	}
	if shortest := Period(tempo.MaxBPM); on > shortest {
		return nil, &ConfigError{"blink_on_duration", fmt.Sprintf(
			"%v is longer than one beat at max_bpm (%v)", on, shortest)}
	}

	b := &Blinker{
		tempo:      tempo,
		brightness: brightness,
		on:         on,
	}
	b.SetTempo(tempo.MinBPM)
	return b, nil
}

// SetInput maps the given input value onto the tempo range and sets the
// tempo.
func (b *Blinker) SetInput(v float64) {
	b.SetTempo(b.tempo.BPM(v))
}

// SetTempo sets the tempo in beats per minute. It is clamped to the tempo
// range, so the dark period is never negative.
func (b *Blinker) SetTempo(bpm float64) {
	b.bpm = b.tempo.Clamp(bpm)
	b.off = Period(b.bpm) - b.on
	if b.off < 0 {
		b.off = 0
	}
}

// Tick advances the blinker to now and reports whether a new beat started,
// which is the case when the LED goes from dark to lit.
func (b *Blinker) Tick(now time.Time) bool {
	elapsed := now.Sub(b.last)

	switch b.phase {
	case PhaseOn:
		if elapsed >= b.on {
			b.phase = PhaseOff
			b.last = now
		}
		return false

	default:
		if !b.started || elapsed >= b.off {
			b.phase = PhaseOn
			b.last = now
			b.started = true
			return true
		}
		return false
	}
}

// Phase returns the current phase.
func (b *Blinker) Phase() Phase { return b.phase }

// BPM returns the current tempo.
func (b *Blinker) BPM() float64 { return b.bpm }

// OnPeriod returns how long the LED stays lit per beat.
func (b *Blinker) OnPeriod() time.Duration { return b.on }

// OffPeriod returns how long the LED stays dark per beat at the current tempo.
func (b *Blinker) OffPeriod() time.Duration { return b.off }

// Level returns the LED level for the current phase.
func (b *Blinker) Level() float64 {
	if b.phase == PhaseOn {
		return b.brightness
	}
	return 0
}
