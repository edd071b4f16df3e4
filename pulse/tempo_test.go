package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTempoRange_BPM(t *testing.T) {
	r := TempoRange{InMin: 0, InMax: 65535, MinBPM: 60, MaxBPM: 180}

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"minimum", 0, 60},
		{"maximum", 65535, 180},
		{"middle", 65535.0 / 2, 120},
		{"below range", -100, 60},
		{"above range", 70000, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, r.BPM(tt.in), 1e-9)
		})
	}
}

func TestTempoRange_monotonic(t *testing.T) {
	r := TempoRange{InMin: 0, InMax: 1, MinBPM: 60, MaxBPM: 180}

	prev := r.BPM(-0.1)
	for i := 0; i <= 1200; i++ {
		v := -0.1 + float64(i)/1000
		bpm := r.BPM(v)
		if bpm < prev {
			t.Fatalf("BPM(%v) = %v, less than previous %v", v, bpm, prev)
		}
		prev = bpm
	}
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, Period(120))
	assert.Equal(t, time.Second, Period(60))
	assert.Equal(t, 250*time.Millisecond, Period(240))
}
