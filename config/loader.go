package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields [Default].
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. Defaults must
// already be applied. It returns a joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if err := cfg.Format().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}

	if cfg.Sequencer.BitsPerFrame%32 != 0 || cfg.Sequencer.BitsPerFrame == 0 {
		errs = append(errs, fmt.Errorf("sequencer.bits_per_frame %d is not a whole number of 32-bit slots: %w",
			cfg.Sequencer.BitsPerFrame, pkg.ErrInvalidConfig))
	}
	if _, err := i2s.ComputeDivider(cfg.Sequencer.SystemClockHz, uint32(max(cfg.Audio.SampleRate, 0)), cfg.Timing().Oversampling()); err != nil {
		errs = append(errs, fmt.Errorf("sequencer: %w", err))
	}

	if err := cfg.PinAssignment().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pins: %w", err))
	}

	if len(errs) == 0 {
		// Layout checks index the pin list, so only run them on a sound base.
		if err := cfg.Microphone().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("layout: %w", err))
		}
	}

	if !cfg.Simulation.Source.IsValid() {
		errs = append(errs, fmt.Errorf("simulation.source %q is invalid; valid values: tone, silence, noise, portaudio", cfg.Simulation.Source))
	}
	if cfg.Simulation.Amplitude < 0 || cfg.Simulation.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("simulation.amplitude %.2f is out of range [0, 1]", cfg.Simulation.Amplitude))
	}
	if cfg.Metrics.Listen == "" {
		pkg.LogDebug(pkg.ComponentConfig, "metrics.listen is empty; Prometheus endpoint disabled")
	}

	return errors.Join(errs...)
}

// Apply configures pipeline logging from cfg.
func (c *Config) Apply() {
	if c.Log.JSON {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}
	if level, err := pkg.ParseLogLevel(string(c.Log.Level)); err == nil {
		pkg.SetLogLevel(level)
	}
	pkg.LogDebug(pkg.ComponentConfig, "configuration applied",
		"format", c.Format().String(),
		"lines", len(c.Pins.Data),
		"source", c.Simulation.Source)
}
