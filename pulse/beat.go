package pulse

import (
	"math/rand"

	"github.com/pkg/errors"
)

// MaxNote is the highest MIDI note number.
const MaxNote = 127

// Voice is a synthesizer voice that plays notes.
type Voice interface {
	// SetLevel sets the output level in [0, 1].
	SetLevel(level float64) error
	// ReleaseAll releases every sounding note.
	ReleaseAll() error
	// Press starts sounding the given note.
	Press(note uint8) error
}

// Reactor plays a new note on every beat. The note takes a bounded random walk
// and always stays within [0, MaxNote].
type Reactor struct {
	voice Voice
	rng   *rand.Rand
	step  int
	level float64
	note  int
}

// NewReactor creates a new reactor. The starting note is picked at random.
// Each beat moves the note by at most step and plays it at a random level no
// louder than level.
func NewReactor(voice Voice, step int, level float64, rng *rand.Rand) *Reactor {
	return &Reactor{
		voice: voice,
		rng:   rng,
		step:  step,
		level: level,
		note:  rng.Intn(MaxNote + 1),
	}
}

// Note returns the last note played, or the starting note if no beat happened
// yet.
func (r *Reactor) Note() int {
	return r.note
}

// OnBeat moves the note and plays it. Any previously sounding note is released
// first. Only voice errors are returned.
func (r *Reactor) OnBeat() error {
	r.note = clampNote(r.note + r.rng.Intn(2*r.step+1) - r.step)

	if err := r.voice.SetLevel(r.rng.Float64() * r.level); err != nil {
		return errors.Wrap(err, "failed to set voice level")
	}
	if err := r.voice.ReleaseAll(); err != nil {
		return errors.Wrap(err, "failed to release notes")
	}
	if err := r.voice.Press(uint8(r.note)); err != nil {
		return errors.Wrapf(err, "failed to press note %d", r.note)
	}
	return nil
}

func clampNote(note int) int {
	return min(max(note, 0), MaxNote)
}
