package catpulse

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/catpulse/internal/board"
	"libdb.so/catpulse/pulse"
)

// Daemon is the main catpulse daemon. It reads the knob from the control
// board, blinks the board's LED on the tempo and plays a note on every beat.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
}

// NewDaemon creates a new catpulse daemon. An invalid configuration is
// rejected here, before any hardware is touched.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled or the
// hardware fails.
func (d *Daemon) Run(ctx context.Context) error {
	b, err := board.Open(d.cfg.Device, d.cfg.Baud, d.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	voice, closeVoice, err := openVoice(d.cfg, d.logger)
	if err != nil {
		return err
	}
	defer closeVoice()

	return d.run(ctx, b, voice, pulse.SystemClock{})
}

// RunPort is like Run, but uses an already opened port to the board, the
// given voice and the given clock. A nil clock is the system clock.
func (d *Daemon) RunPort(ctx context.Context, port io.ReadWriteCloser, voice pulse.Voice, clock pulse.Clock) error {
	if clock == nil {
		clock = pulse.SystemClock{}
	}

	b := board.New(port, d.logger)
	defer b.Close()

	return d.run(ctx, b, voice, clock)
}

func (d *Daemon) run(ctx context.Context, b *board.Board, voice pulse.Voice, clock pulse.Clock) error {
	var rng *rand.Rand
	if d.cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(d.cfg.Seed))
	}

	loop, err := pulse.NewLoop(d.cfg.Params(), pulse.Hardware{
		Clock:  clock,
		Input:  b,
		Output: b,
		Voice:  voice,
	}, rng, d.logger)
	if err != nil {
		return errors.Wrap(err, "failed to create control loop")
	}

	// The loop's error says what went wrong with the hardware. Whatever the
	// read loop returns after the port is closed under it does not.
	var loopErr error

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			return &pulse.SamplingError{Op: "board read", Err: err}
		}
		return nil
	})
	errg.Go(func() error {
		// Closing the board stops the read loop. Only do so once the loop is
		// done, so it can still turn the LED off.
		defer func() {
			d.logger.Debug("closing serial port")
			b.Close()
		}()

		d.logger.Debug(
			"starting board",
			"sample_interval", time.Duration(d.cfg.SampleInterval))
		if err := b.Start(time.Duration(d.cfg.SampleInterval)); err != nil {
			return errors.Wrap(err, "failed to start board")
		}

		loopErr = loop.Run(ctx)
		return loopErr
	})

	err = errg.Wait()

	var samplingErr *pulse.SamplingError
	if errors.As(loopErr, &samplingErr) {
		return loopErr
	}
	return err
}
