package catpulse

import (
	"log/slog"

	"github.com/gopxl/beep/v2"
	"github.com/pkg/errors"
	"libdb.so/catpulse/internal/midivoice"
	"libdb.so/catpulse/internal/synth"
	"libdb.so/catpulse/pulse"
)

// openVoice opens the voice described by the configuration. The returned
// function closes it.
func openVoice(cfg *Config, logger *slog.Logger) (pulse.Voice, func(), error) {
	switch cfg.Voice.Kind {
	case SynthVoice:
		v := synth.New(beep.SampleRate(cfg.SampleRate), synth.Envelope{
			Attack:  seconds(cfg.AttackTime),
			Release: seconds(cfg.ReleaseTime),
			Sustain: cfg.SustainLevel,
		})
		if err := synth.Play(v); err != nil {
			return nil, nil, err
		}
		return v, synth.Stop, nil

	case MIDIVoice:
		v, err := midivoice.Open(cfg.Voice.Port, uint8(cfg.Voice.Channel))
		if err != nil {
			return nil, nil, err
		}
		return v, midivoice.Close, nil

	case LogVoice:
		return &logVoice{logger: logger}, func() {}, nil

	default:
		return nil, nil, errors.Errorf("unknown voice %q", cfg.Voice.Kind)
	}
}

// logVoice is a voice that only logs. It is useful to run the daemon without
// any audio hardware.
type logVoice struct {
	logger *slog.Logger
	level  float64
	held   []uint8
}

func (v *logVoice) SetLevel(level float64) error {
	v.level = level
	return nil
}

func (v *logVoice) ReleaseAll() error {
	if len(v.held) > 0 {
		v.logger.Debug("releasing notes", "notes", v.held)
		v.held = v.held[:0]
	}
	return nil
}

func (v *logVoice) Press(note uint8) error {
	v.held = append(v.held, note)
	v.logger.Info(
		"note",
		"note", note,
		"level", v.level)
	return nil
}
