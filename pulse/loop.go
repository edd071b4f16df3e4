package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Input is an analog input such as a knob.
type Input interface {
	// Sample reads one raw value within the declared input range.
	Sample() (float64, error)
}

// Output is a dimmable output such as an LED.
type Output interface {
	// SetLevel sets the output level in [0, 1]. Zero turns it off.
	SetLevel(level float64) error
}

// SamplingError is returned when the hardware fails while the loop is
// running. The loop halts all output before returning it.
type SamplingError struct {
	Op  string
	Err error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("hardware failure during %s: %v", e.Op, e.Err)
}

func (e *SamplingError) Unwrap() error {
	return e.Err
}

// Hardware is the set of collaborators the loop drives.
type Hardware struct {
	// Clock defaults to SystemClock if nil.
	Clock  Clock
	Input  Input
	Output Output
	Voice  Voice
}

// Loop is the control loop. Each iteration samples the input, smooths it,
// updates the tempo, advances the blinker and plays a note when a new beat
// starts. Everything happens on the calling goroutine.
type Loop struct {
	params Params
	hw     Hardware
	logger *slog.Logger

	smoother *Smoother
	blinker  *Blinker
	reactor  *Reactor
	beats    int
}

// NewLoop creates a new control loop. If rng is nil, a time-seeded source is
// used. The parameters are validated; a *ConfigError is returned if they are
// invalid.
func NewLoop(p Params, hw Hardware, rng *rand.Rand, logger *slog.Logger) (*Loop, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if hw.Input == nil || hw.Output == nil || hw.Voice == nil {
		return nil, errors.New("loop requires an input, an output and a voice")
	}
	if hw.Clock == nil {
		hw.Clock = SystemClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	blinker, err := NewBlinker(p.Tempo(), p.BlinkOn, p.LEDBrightness)
	if err != nil {
		return nil, err
	}

	return &Loop{
		params:   p,
		hw:       hw,
		logger:   logger,
		smoother: NewSmoother(p.Smoothing),
		blinker:  blinker,
		reactor:  NewReactor(hw.Voice, p.NoteStep, p.AudioLevel, rng),
	}, nil
}

// Blinker returns the loop's blinker.
func (l *Loop) Blinker() *Blinker { return l.blinker }

// Reactor returns the loop's note reactor.
func (l *Loop) Reactor() *Reactor { return l.reactor }

// Beats returns the number of beats played so far.
func (l *Loop) Beats() int { return l.beats }

// Run runs the loop until ctx is canceled or the hardware fails. Output is
// halted before returning.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, 0)
}

// RunN runs at most n iterations. It returns nil once all n iterations are
// done, leaving the output as it is.
func (l *Loop) RunN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return l.run(ctx, n)
}

func (l *Loop) run(ctx context.Context, n int) error {
	if err := l.hw.Voice.SetLevel(l.params.AudioLevel); err != nil {
		return l.fail(&SamplingError{"voice setup", err})
	}

	for i := 0; n == 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			l.halt()
			return err
		}

		if err := l.Step(); err != nil {
			return l.fail(err)
		}

		if err := l.hw.Clock.Sleep(ctx, l.params.Interval); err != nil {
			l.halt()
			return err
		}
	}

	return nil
}

// Step runs a single iteration without yielding.
func (l *Loop) Step() error {
	raw, err := l.hw.Input.Sample()
	if err != nil {
		return &SamplingError{"input sampling", err}
	}

	l.blinker.SetInput(l.smoother.Read(raw))

	phase := l.blinker.Phase()
	beat := l.blinker.Tick(l.hw.Clock.Now())

	if l.blinker.Phase() != phase {
		if err := l.hw.Output.SetLevel(l.blinker.Level()); err != nil {
			return &SamplingError{"output update", err}
		}
	}

	if beat {
		l.beats++
		if err := l.reactor.OnBeat(); err != nil {
			return &SamplingError{"note trigger", err}
		}

		l.logger.Debug(
			"beat",
			"note", l.reactor.Note(),
			"bpm", l.blinker.BPM())
	}

	return nil
}

func (l *Loop) fail(err error) error {
	l.logger.Error(
		"hardware failure, halting output",
		"err", err)
	l.halt()
	return err
}

// halt turns the LED off and silences the voice. Failures are only logged,
// since the hardware may already be gone.
func (l *Loop) halt() {
	if err := l.hw.Output.SetLevel(0); err != nil {
		l.logger.Warn(
			"failed to turn off output",
			"err", err)
	}
	if err := l.hw.Voice.ReleaseAll(); err != nil {
		l.logger.Warn(
			"failed to release voice",
			"err", err)
	}
}
