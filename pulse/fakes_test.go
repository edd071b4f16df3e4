package pulse

import "fmt"

type constInput float64

func (c constInput) Sample() (float64, error) { return float64(c), nil }

// failingInput returns value until n samples were read, then fails.
type failingInput struct {
	value float64
	n     int
	read  int
}

func (f *failingInput) Sample() (float64, error) {
	if f.read >= f.n {
		return 0, fmt.Errorf("adc unplugged")
	}
	f.read++
	return f.value, nil
}

type recordingOutput struct {
	levels []float64
	err    error
}

func (o *recordingOutput) SetLevel(level float64) error {
	if o.err != nil {
		return o.err
	}
	o.levels = append(o.levels, level)
	return nil
}

func (o *recordingOutput) last() float64 {
	if len(o.levels) == 0 {
		return -1
	}
	return o.levels[len(o.levels)-1]
}

type recordingVoice struct {
	calls  []string
	levels []float64
	notes  []uint8
	err    error
}

func (v *recordingVoice) SetLevel(level float64) error {
	v.calls = append(v.calls, "level")
	v.levels = append(v.levels, level)
	return v.err
}

func (v *recordingVoice) ReleaseAll() error {
	v.calls = append(v.calls, "release")
	return nil
}

func (v *recordingVoice) Press(note uint8) error {
	v.calls = append(v.calls, "press")
	v.notes = append(v.notes, note)
	return v.err
}

func (v *recordingVoice) count(call string) int {
	var n int
	for _, c := range v.calls {
		if c == call {
			n++
		}
	}
	return n
}
