package pulse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_Sleep(t *testing.T) {
	var clock SystemClock

	assert.NoError(t, clock.Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, clock.Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled context wins over any duration.
	assert.ErrorIs(t, clock.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, clock.Sleep(ctx, 0), context.Canceled)
}

func TestManualClock(t *testing.T) {
	clock := NewManualClock(epoch)
	assert.Equal(t, epoch, clock.Now())

	clock.Advance(5 * time.Millisecond)
	assert.NoError(t, clock.Sleep(context.Background(), 10*time.Millisecond))
	assert.Equal(t, epoch.Add(15*time.Millisecond), clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, epoch.Add(15*time.Millisecond), clock.Now(), "canceled sleep does not advance")
}
