package pulse

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTempo = TempoRange{InMin: 0, InMax: 1, MinBPM: 60, MaxBPM: 180}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewBlinker_onTooLong(t *testing.T) {
	// One beat at 180 BPM is 333ms.
	_, err := NewBlinker(testTempo, 400*time.Millisecond, 1)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
	assert.Equal(t, "blink_on_duration", cfgErr.Key)

	_, err = NewBlinker(testTempo, Period(180), 1)
	assert.NoError(t, err, "on period equal to a full beat leaves a zero off period")
}

func TestBlinker_period(t *testing.T) {
	b, err := NewBlinker(testTempo, 50*time.Millisecond, 0.8)
	require.NoError(t, err)

	b.SetTempo(120)
	assert.Equal(t, 120.0, b.BPM())
	assert.Equal(t, 450*time.Millisecond, b.OffPeriod())

	assert.True(t, b.Tick(epoch), "first tick starts a beat")
	assert.Equal(t, PhaseOn, b.Phase())
	assert.Equal(t, 0.8, b.Level())

	assert.False(t, b.Tick(epoch.Add(49*time.Millisecond)))
	assert.Equal(t, PhaseOn, b.Phase())

	assert.False(t, b.Tick(epoch.Add(50*time.Millisecond)), "on to off is not a beat")
	assert.Equal(t, PhaseOff, b.Phase())
	assert.Equal(t, 0.0, b.Level())

	assert.False(t, b.Tick(epoch.Add(499*time.Millisecond)))
	assert.Equal(t, PhaseOff, b.Phase())

	assert.True(t, b.Tick(epoch.Add(500*time.Millisecond)), "off to on is a beat")
	assert.Equal(t, PhaseOn, b.Phase())
}

func TestBlinker_slowPolling(t *testing.T) {
	b, err := NewBlinker(testTempo, 50*time.Millisecond, 1)
	require.NoError(t, err)
	b.SetTempo(120)

	require.True(t, b.Tick(epoch))

	// Ten periods pass between calls. Only one transition happens per call.
	late := epoch.Add(5 * time.Second)
	assert.False(t, b.Tick(late))
	assert.Equal(t, PhaseOff, b.Phase())
	assert.False(t, b.Tick(late), "no catch-up transitions")
	assert.Equal(t, PhaseOff, b.Phase())

	// The next beat is measured from the late transition.
	assert.False(t, b.Tick(late.Add(449*time.Millisecond)))
	assert.True(t, b.Tick(late.Add(450*time.Millisecond)))
}

func TestBlinker_tempoClamped(t *testing.T) {
	b, err := NewBlinker(testTempo, 50*time.Millisecond, 1)
	require.NoError(t, err)

	b.SetTempo(1000)
	assert.Equal(t, 180.0, b.BPM())
	assert.GreaterOrEqual(t, b.OffPeriod(), time.Duration(0))

	b.SetTempo(1)
	assert.Equal(t, 60.0, b.BPM())
	assert.Equal(t, 950*time.Millisecond, b.OffPeriod())

	b.SetInput(0.5)
	assert.Equal(t, 120.0, b.BPM())
}

func TestBlinker_tempoChangeWhileOff(t *testing.T) {
	b, err := NewBlinker(testTempo, 50*time.Millisecond, 1)
	require.NoError(t, err)
	b.SetTempo(60)

	require.True(t, b.Tick(epoch))
	require.False(t, b.Tick(epoch.Add(50*time.Millisecond)))

	// Speeding up shortens the pending off period.
	b.SetTempo(120)
	assert.True(t, b.Tick(epoch.Add(500*time.Millisecond)))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "on", PhaseOn.String())
	assert.Equal(t, "off", PhaseOff.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}
