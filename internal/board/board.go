// Package board talks to the control board over a serial port. The board
// streams knob samples and drives the LED.
package board

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/catpulse/ledserial"
	"libdb.so/catpulse/pulse"
)

// Board is a control board attached over a serial port. It is both the input
// and the output of the control loop.
type Board struct {
	port   io.ReadWriteCloser
	logger *slog.Logger

	writeMu sync.Mutex

	sample atomic.Uint32
	failed atomic.Pointer[error]
	closed atomic.Bool
}

var (
	_ pulse.Input  = (*Board)(nil)
	_ pulse.Output = (*Board)(nil)
)

// Open opens the serial device at the given baud rate.
func Open(device string, baud int, logger *slog.Logger) (*Board, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to reset read timeout")
	}

	return New(port, logger), nil
}

// New creates a board on top of an already opened port.
func New(port io.ReadWriteCloser, logger *slog.Logger) *Board {
	return &Board{
		port:   port,
		logger: logger,
	}
}

// Close closes the port. Run returns nil shortly after.
func (b *Board) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.port.Close()
}

// Start tells the board to start streaming samples at the given interval.
func (b *Board) Start(interval time.Duration) error {
	ms := min(max(interval.Milliseconds(), 1), math.MaxUint16)
	return b.writePacket(ledserial.InitializePacket{
		SampleIntervalMs: uint16(ms),
	})
}

// Run reads packets from the board until ctx is canceled, the port is closed
// or the board reports an error. Closing the board is not an error.
func (b *Board) Run(ctx context.Context) error {
	err := b.readPackets(ctx)
	if err != nil && ctx.Err() == nil {
		b.failed.Store(&err)
	}
	return err
}

func (b *Board) readPackets(ctx context.Context) error {
	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(b.port)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if b.closed.Load() {
				return nil
			}
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case ledserial.SamplePacket:
			b.sample.Store(uint32(p.Value))

		case ledserial.AckPacket:
			b.logger.Debug(
				"received ack packet from board",
				"acked_for", p.IncomingPacketType)

		case ledserial.LogPacket:
			b.logger.Info(
				"received log packet from board",
				"message", p.Message)

		case ledserial.ErrorPacket:
			b.logger.Warn(
				"received error packet from board",
				"message", p.Message)
			return errors.Errorf("board reported error: %s", p.Message)

		case ledserial.PanicPacket:
			b.logger.Error("board unrecoverably panicked")
			return errors.New("board panicked")

		default:
			return errors.Errorf("received unknown packet from board: %s", p.Type())
		}
	}

	return ctx.Err()
}

// Sample returns the latest knob reading in [0, 65535]. It fails once the
// read loop has failed, since the reading would be stale.
func (b *Board) Sample() (float64, error) {
	if err := b.failed.Load(); err != nil {
		return 0, *err
	}
	return float64(b.sample.Load()), nil
}

// SetLevel sets the LED level in [0, 1].
func (b *Board) SetLevel(level float64) error {
	if level <= 0 {
		return b.writePacket(ledserial.ClearPacket{})
	}
	duty := math.Round(min(level, 1) * ledserial.MaxDuty)
	return b.writePacket(ledserial.SetLevelPacket{Duty: uint16(duty)})
}

func (b *Board) writePacket(p ledserial.IncomingPacket) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := ledserial.WriteIncomingPacket(b.port, p); err != nil {
		return errors.Wrapf(err, "failed to write %s packet", p.Type())
	}
	return nil
}
