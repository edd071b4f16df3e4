package catpulse

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/catpulse/pulse"
)

// Config is the configuration for the catpulse daemon. It is loaded once at
// startup and never modified afterwards.
type Config struct {
	// MinBPM and MaxBPM bound the tempo set by the knob.
	MinBPM float64 `toml:"min_bpm"`
	MaxBPM float64 `toml:"max_bpm"`
	// BlinkOnDuration is how long the LED is lit per beat, in seconds.
	BlinkOnDuration float64 `toml:"blink_on_duration"`
	// LEDBrightness is the brightness of the lit LED, in [0, 1].
	LEDBrightness float64 `toml:"led_brightness"`
	// AudioLevel bounds the random loudness of every note, in [0, 1].
	AudioLevel float64 `toml:"audio_level"`
	// SampleRate is the synthesizer sample rate in Hz.
	SampleRate int `toml:"sample_rate"`
	// AttackTime and ReleaseTime are the synthesizer envelope times in
	// seconds.
	AttackTime  float64 `toml:"attack_time"`
	ReleaseTime float64 `toml:"release_time"`
	// SustainLevel is the synthesizer sustain level, in [0, 1].
	SustainLevel float64 `toml:"sustain_level"`

	// Device is the path to the serial device of the control board.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device" default:"/dev/ttyACM0"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud" default:"115200"`
	// SampleInterval is how often the board samples the knob.
	SampleInterval TOMLDuration `toml:"sample_interval"`
	// InputMax is the largest raw knob value.
	InputMax float64 `toml:"input_max" default:"65535"`
	// Smoothing is the number of knob samples averaged. 0 disables smoothing.
	Smoothing int `toml:"smoothing" default:"10"`
	// NoteStep is the largest change of the note between two beats.
	NoteStep int `toml:"note_step" default:"12"`
	// Interval is how long the control loop sleeps between iterations.
	Interval TOMLDuration `toml:"interval"`
	// Seed seeds the note generator. Zero seeds from the current time.
	Seed int64 `toml:"seed"`
	// Voice configures what plays the notes.
	Voice VoiceConfig `toml:"voice"`
}

// VoiceConfig is the configuration for the voice playing the notes.
type VoiceConfig struct {
	Kind VoiceKind `toml:"kind" default:"synth"`
	// Port is the MIDI output port name. Only used by MIDIVoice.
	Port string `toml:"port"`
	// Channel is the MIDI channel, 0 to 15. Only used by MIDIVoice.
	Channel int `toml:"channel"`
}

// VoiceKind is the kind of voice to use.
type VoiceKind string

const (
	// SynthVoice plays notes on the built-in synthesizer through the speaker.
	SynthVoice VoiceKind = "synth"
	// MIDIVoice sends notes to a MIDI output port.
	MIDIVoice VoiceKind = "midi"
	// LogVoice only logs the notes.
	LogVoice VoiceKind = "log"
)

// RequiredKeys are the keys that must be present in every configuration file.
var RequiredKeys = []string{
	"min_bpm",
	"max_bpm",
	"blink_on_duration",
	"led_brightness",
	"audio_level",
	"sample_rate",
	"attack_time",
	"release_time",
	"sustain_level",
}

// floatKeys are float keys that may be written as TOML integers.
var floatKeys = []string{
	"min_bpm",
	"max_bpm",
	"blink_on_duration",
	"led_brightness",
	"audio_level",
	"attack_time",
	"release_time",
	"sustain_level",
	"input_max",
}

// Defaults of the optional duration keys. The other optional keys carry
// their defaults in struct tags.
const (
	DefaultSampleInterval = 5 * time.Millisecond
	DefaultInterval       = time.Millisecond
)

// Validate validates the configuration. The returned error is always a
// *pulse.ConfigError.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}

	switch {
	case c.SampleRate <= 0:
		return &pulse.ConfigError{Key: "sample_rate", Reason: "must be positive"}
	case c.AttackTime < 0:
		return &pulse.ConfigError{Key: "attack_time", Reason: "must not be negative"}
	case c.ReleaseTime < 0:
		return &pulse.ConfigError{Key: "release_time", Reason: "must not be negative"}
	case c.SustainLevel < 0 || c.SustainLevel > 1:
		return &pulse.ConfigError{Key: "sustain_level", Reason: "must be within [0, 1]"}
	case c.Device == "":
		return &pulse.ConfigError{Key: "device", Reason: "must not be empty"}
	case c.Baud <= 0:
		return &pulse.ConfigError{Key: "baud", Reason: "must be positive"}
	case c.SampleInterval <= 0:
		return &pulse.ConfigError{Key: "sample_interval", Reason: "must be positive"}
	}

	switch c.Voice.Kind {
	case SynthVoice, LogVoice:
	case MIDIVoice:
		if c.Voice.Port == "" {
			return &pulse.ConfigError{Key: "voice.port", Reason: "required for the midi voice"}
		}
		if c.Voice.Channel < 0 || c.Voice.Channel > 15 {
			return &pulse.ConfigError{Key: "voice.channel", Reason: "must be within [0, 15]"}
		}
	default:
		return &pulse.ConfigError{Key: "voice.kind", Reason: fmt.Sprintf("unknown voice %q", c.Voice.Kind)}
	}

	return nil
}

// Params returns the control loop parameters.
func (c *Config) Params() pulse.Params {
	return pulse.Params{
		MinBPM:        c.MinBPM,
		MaxBPM:        c.MaxBPM,
		BlinkOn:       seconds(c.BlinkOnDuration),
		LEDBrightness: c.LEDBrightness,
		AudioLevel:    c.AudioLevel,
		InputMin:      0,
		InputMax:      c.InputMax,
		Smoothing:     c.Smoothing,
		NoteStep:      c.NoteStep,
		Interval:      time.Duration(c.Interval),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Missing required keys are
// reported as a *pulse.ConfigError. The configuration is not validated.
func ParseConfig(r io.Reader) (*Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	for _, key := range RequiredKeys {
		if !tree.Has(key) {
			return nil, &pulse.ConfigError{Key: key, Reason: "missing"}
		}
	}

	// TOML tells 60 and 60.0 apart; accept both for float keys.
	for _, key := range floatKeys {
		if v, ok := tree.Get(key).(int64); ok {
			tree.Set(key, float64(v))
		}
	}

	// Default tags only work for plain kinds, so the durations are prefilled
	// instead. Unmarshal leaves fields of absent keys untouched.
	config := Config{
		SampleInterval: TOMLDuration(DefaultSampleInterval),
		Interval:       TOMLDuration(DefaultInterval),
	}
	if err := tree.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	return &config, nil
}
