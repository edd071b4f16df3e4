package catpulse

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/catpulse/ledserial"
	"libdb.so/catpulse/pulse"
)

// countingVoice counts presses and releases. If onPress is set, it is called
// with the press count on every press and its error is returned.
type countingVoice struct {
	presses  int
	releases int
	onPress  func(n int) error
}

func (v *countingVoice) SetLevel(float64) error { return nil }
func (v *countingVoice) ReleaseAll() error      { v.releases++; return nil }

func (v *countingVoice) Press(uint8) error {
	v.presses++
	if v.onPress != nil {
		return v.onPress(v.presses)
	}
	return nil
}

// fakeBoard is the board side of a serial connection. It streams a constant
// knob value and records the packets sent by the host.
type fakeBoard struct {
	conn net.Conn

	mu      sync.Mutex
	packets []ledserial.IncomingPacket
	done    chan struct{}
}

func startFakeBoard(conn net.Conn, value uint16) *fakeBoard {
	b := &fakeBoard{conn: conn, done: make(chan struct{})}

	go func() {
		defer close(b.done)
		for {
			p, err := ledserial.ReadIncomingPacket(conn)
			if err != nil {
				return
			}
			b.mu.Lock()
			b.packets = append(b.packets, p)
			b.mu.Unlock()
		}
	}()

	go func() {
		for {
			if err := ledserial.WriteOutgoingPacket(conn, ledserial.SamplePacket{Value: value}); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	return b
}

func (b *fakeBoard) received() []ledserial.IncomingPacket {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.packets
}

func newTestDaemon(t *testing.T, config string) *Daemon {
	t.Helper()

	cfg := parseConfig(t, config)
	d, err := NewDaemon(cfg, slog.Default())
	require.NoError(t, err)
	return d
}

func fixedTempoConfig(bpm string) string {
	config := strings.Replace(exampleConfig, "min_bpm = 60", "min_bpm = "+bpm, 1)
	config = strings.Replace(config, "max_bpm = 180", "max_bpm = "+bpm, 1)
	return config + "\nseed = 1\n"
}

func countSetLevel(packets []ledserial.IncomingPacket) int {
	var n int
	for _, p := range packets {
		if _, ok := p.(ledserial.SetLevelPacket); ok {
			n++
		}
	}
	return n
}

func TestDaemon_RunPort(t *testing.T) {
	// A fixed tempo of 240 BPM, one beat every 250ms of simulated time.
	d := newTestDaemon(t, fixedTempoConfig("240"))

	host, dev := net.Pipe()
	defer dev.Close()
	board := startFakeBoard(dev, 30000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop on the third beat, at 500ms.
	voice := &countingVoice{
		onPress: func(n int) error {
			if n == 3 {
				cancel()
			}
			return nil
		},
	}

	clock := pulse.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	err := d.RunPort(ctx, host, voice, clock)
	assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)

	assert.Equal(t, 3, voice.presses)
	assert.Equal(t, 4, voice.releases, "one release per beat and one on shutdown")

	packets := board.received()
	require.NotEmpty(t, packets)
	assert.Equal(t, ledserial.InitializePacket{SampleIntervalMs: 5}, packets[0])
	assert.Equal(t, 3, countSetLevel(packets), "LED comes on once per beat")
	assert.Contains(t, packets, ledserial.IncomingPacket(ledserial.SetLevelPacket{Duty: 32768}))
	assert.Equal(t, ledserial.ClearPacket{}, packets[len(packets)-1], "LED is off after shutdown")
}

func TestDaemon_voiceFailure(t *testing.T) {
	d := newTestDaemon(t, fixedTempoConfig("240"))

	host, dev := net.Pipe()
	defer dev.Close()
	board := startFakeBoard(dev, 30000)

	errNoSynth := errors.New("synthesizer unplugged")
	voice := &countingVoice{
		onPress: func(n int) error {
			if n == 2 {
				return errNoSynth
			}
			return nil
		},
	}

	clock := pulse.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	err := d.RunPort(context.Background(), host, voice, clock)
	require.Error(t, err)

	// Closing the port under the read loop must not mask the real failure.
	var samplingErr *pulse.SamplingError
	require.True(t, errors.As(err, &samplingErr), "expected SamplingError, got %v", err)
	assert.Equal(t, "note trigger", samplingErr.Op)
	assert.True(t, errors.Is(err, errNoSynth))

	packets := board.received()
	require.NotEmpty(t, packets)
	assert.Equal(t, ledserial.ClearPacket{}, packets[len(packets)-1], "LED is off after the failure")
	assert.Equal(t, 3, voice.releases, "voice is silenced after the failure")
}

func TestDaemon_boardError(t *testing.T) {
	d := newTestDaemon(t, exampleConfig)

	host, dev := net.Pipe()
	defer dev.Close()

	go func() {
		// Drain the host's packets so its writes never block.
		for {
			if _, err := ledserial.ReadIncomingPacket(dev); err != nil {
				return
			}
		}
	}()
	go func() {
		ledserial.WriteOutgoingPacket(dev, ledserial.ErrorPacket{Message: "adc fault"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.RunPort(ctx, host, &countingVoice{}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "adc fault")

	var samplingErr *pulse.SamplingError
	assert.True(t, errors.As(err, &samplingErr), "board errors are hardware failures")
}
