package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.bug.st/serial"
	"libdb.so/catpulse"
	"libdb.so/catpulse/pulse"

	// Registers the MIDI driver used by the midi voice.
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Exit statuses. A supervisor should not restart the daemon after
// exitConfig, since it will be refused again.
const (
	exitOK       = 0
	exitFailure  = 1
	exitConfig   = 2
	exitHardware = 3
)

var (
	config    = "catpulse.toml"
	device    = ""
	verbose   = false
	check     = false
	listPorts = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file")
	pflag.StringVarP(&device, "device", "d", device, "serial device of the control board, overrides the config")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
	pflag.BoolVar(&check, "check", check, "validate the configuration and exit")
	pflag.BoolVar(&listPorts, "list-ports", listPorts, "list the serial ports and exit")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	err := run(logger)
	status := exitStatus(err)
	if status != exitOK {
		logger.Error(
			"catpulse stopped",
			"err", err,
			"exit_status", status)
	}

	os.Exit(status)
}

func run(logger *slog.Logger) error {
	if listPorts {
		return printPorts()
	}

	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if device != "" {
		cfg.Device = device
	}

	if check {
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("configuration ok:", config)
		return nil
	}

	d, err := catpulse.NewDaemon(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info(
		"starting catpulse",
		"device", cfg.Device,
		"voice", cfg.Voice.Kind,
		"min_bpm", cfg.MinBPM,
		"max_bpm", cfg.MaxBPM)

	return d.Run(ctx)
}

// exitStatus maps the error that stopped the daemon to an exit status.
func exitStatus(err error) int {
	var cfgErr *pulse.ConfigError
	var samplingErr *pulse.SamplingError

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &samplingErr):
		return exitHardware
	default:
		return exitFailure
	}
}

func readConfig() (*catpulse.Config, error) {
	f, err := os.Open(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	return catpulse.ParseConfig(f)
}

func printPorts() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return errors.Wrap(err, "failed to list serial ports")
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}
