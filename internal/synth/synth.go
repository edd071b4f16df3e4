// Package synth is a small software synthesizer voice. Every pressed note is a
// sine tone shaped by an attack, sustain and release envelope.
package synth

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/pkg/errors"
	"libdb.so/catpulse/pulse"
)

// Envelope describes how a note fades in and out.
type Envelope struct {
	// Attack is the time to go from silence to the sustain level.
	Attack time.Duration
	// Release is the time to fade from the sustain level to silence.
	Release time.Duration
	// Sustain is the level held while the note is pressed, in [0, 1].
	Sustain float64
}

// Voice is a polyphonic voice. It implements beep.Streamer and is safe to
// stream from the speaker while notes are pressed from another goroutine.
type Voice struct {
	mu    sync.Mutex
	sr    beep.SampleRate
	env   Envelope
	level float64
	tones []*tone
}

var (
	_ pulse.Voice   = (*Voice)(nil)
	_ beep.Streamer = (*Voice)(nil)
)

// New creates a new voice rendering at the given sample rate.
func New(sr beep.SampleRate, env Envelope) *Voice {
	return &Voice{
		sr:    sr,
		env:   env,
		level: 1,
	}
}

// Play initializes the speaker and starts playing the voice. The speaker
// buffers a tenth of a second.
func Play(v *Voice) error {
	if err := speaker.Init(v.sr, v.sr.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	speaker.Play(v)
	return nil
}

// Stop stops the speaker.
func Stop() {
	speaker.Clear()
	speaker.Close()
}

// SetLevel sets the output level.
func (v *Voice) SetLevel(level float64) error {
	v.mu.Lock()
	v.level = min(max(level, 0), 1)
	v.mu.Unlock()
	return nil
}

// ReleaseAll starts the release stage of every sounding note.
func (v *Voice) ReleaseAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, t := range v.tones {
		t.release()
	}
	return nil
}

// Press starts a new note.
func (v *Voice) Press(note uint8) error {
	if note > pulse.MaxNote {
		return errors.Errorf("note %d out of range", note)
	}

	v.mu.Lock()
	v.tones = append(v.tones, &tone{
		step: NoteFrequency(note) / float64(v.sr),
	})
	v.mu.Unlock()
	return nil
}

// Sounding returns the number of notes still audible, including releasing
// ones.
func (v *Voice) Sounding() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tones)
}

// Stream implements beep.Streamer. The voice never drains.
func (v *Voice) Stream(samples [][2]float64) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	attack := float64(v.sr.N(v.env.Attack))
	release := float64(v.sr.N(v.env.Release))

	for i := range samples {
		var sum float64
		for _, t := range v.tones {
			sum += t.next(attack, release, v.env.Sustain)
		}
		sum *= v.level
		samples[i] = [2]float64{sum, sum}
	}

	// Drop the notes that have fully faded out.
	tones := v.tones[:0]
	for _, t := range v.tones {
		if !t.done {
			tones = append(tones, t)
		}
	}
	for i := len(tones); i < len(v.tones); i++ {
		v.tones[i] = nil
	}
	v.tones = tones

	return len(samples), true
}

// Err implements beep.Streamer.
func (v *Voice) Err() error {
	return nil
}

// NoteFrequency returns the frequency in Hz of a MIDI note, with A4 (69) at
// 440 Hz.
func NoteFrequency(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

type tone struct {
	phase float64 // in cycles
	step  float64 // cycles per sample

	age       int // samples since press
	releaseAt int // age at release
	relFrom   float64
	gain      float64
	released  bool
	done      bool
}

func (t *tone) release() {
	if !t.released {
		t.released = true
		t.releaseAt = t.age
		t.relFrom = t.gain
	}
}

func (t *tone) next(attack, release, sustain float64) float64 {
	if t.done {
		return 0
	}

	switch {
	case t.released:
		if release <= 0 {
			t.done = true
			return 0
		}
		t.gain = t.relFrom * (1 - float64(t.age-t.releaseAt)/release)
		if t.gain <= 0 {
			t.gain = 0
			t.done = true
			return 0
		}
	case float64(t.age) < attack:
		t.gain = sustain * float64(t.age) / attack
	default:
		t.gain = sustain
	}

	s := math.Sin(2*math.Pi*t.phase) * t.gain
	t.phase += t.step
	t.phase -= math.Floor(t.phase)
	t.age++
	return s
}
