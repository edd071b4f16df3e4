package pulse

import "time"

// TempoRange maps raw input values linearly onto a tempo range.
type TempoRange struct {
	InMin, InMax   float64
	MinBPM, MaxBPM float64
}

// BPM maps v onto [MinBPM, MaxBPM]. Inputs outside [InMin, InMax] are clamped.
func (r TempoRange) BPM(v float64) float64 {
	switch {
	case v <= r.InMin:
		return r.MinBPM
	case v >= r.InMax:
		return r.MaxBPM
	}
	return r.MinBPM + (v-r.InMin)*(r.MaxBPM-r.MinBPM)/(r.InMax-r.InMin)
}

// Clamp clamps bpm to the range.
func (r TempoRange) Clamp(bpm float64) float64 {
	return min(max(bpm, r.MinBPM), r.MaxBPM)
}

// Period returns the duration of one full beat at the given tempo.
func Period(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm)
}
