package pulse

// Smoother is a moving average over the last few raw samples. The window
// starts out zero-filled, so the first readings ramp up towards the input.
type Smoother struct {
	window []float64
	next   int
}

// NewSmoother creates a new smoother averaging over capacity samples. A
// capacity of zero or less disables smoothing.
func NewSmoother(capacity int) *Smoother {
	if capacity <= 0 {
		return &Smoother{}
	}
	return &Smoother{window: make([]float64, capacity)}
}

// Cap returns the window capacity.
func (s *Smoother) Cap() int {
	return len(s.window)
}

// Read pushes raw into the window, evicting the oldest sample, and returns the
// mean of the window.
func (s *Smoother) Read(raw float64) float64 {
	if len(s.window) == 0 {
		return raw
	}

	s.window[s.next] = raw
	s.next = (s.next + 1) % len(s.window)

	// Sum from scratch so rounding errors never accumulate.
	var sum float64
	for _, v := range s.window {
		sum += v
	}
	return sum / float64(len(s.window))
}
