// Package config loads the YAML configuration of a usbmic device.
//
// A configuration file describes the stream format, the sequencer timing,
// pin assignment and channel layout, plus the settings of the simulator
// programs (signal source, bus directory, metrics listener). Every field has
// a default; an empty file yields the six-channel, 16 kHz, 16-bit reference
// device.
//
//	audio:
//	  channels: 2
//	  sample_rate: 48000
//	  bit_depth: 24
//	pins:
//	  data: [2]
package config

import (
	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/frame"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/mic"
)

// LogLevel is a log verbosity name.
type LogLevel string

// Log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// SourceKind selects the simulated microphone signal.
type SourceKind string

// Signal sources.
const (
	SourceTone      SourceKind = "tone"
	SourceSilence   SourceKind = "silence"
	SourceNoise     SourceKind = "noise"
	SourcePortAudio SourceKind = "portaudio"
)

// IsValid reports whether k is a known source.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceTone, SourceSilence, SourceNoise, SourcePortAudio:
		return true
	}
	return false
}

// Config is the top-level configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Audio      AudioConfig      `yaml:"audio"`
	Sequencer  SequencerConfig  `yaml:"sequencer"`
	Pins       PinConfig        `yaml:"pins"`
	Layout     LayoutConfig     `yaml:"layout"`
	Simulation SimulationConfig `yaml:"simulation"`
	Transport  TransportConfig  `yaml:"transport"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
	JSON  bool     `yaml:"json"`
}

// AudioConfig holds the four stream scalars. BytesPerFrame is derived when
// zero and checked against the others when set.
type AudioConfig struct {
	Channels      int `yaml:"channels"`
	SampleRate    int `yaml:"sample_rate"`
	BitDepth      int `yaml:"bit_depth"`
	BytesPerFrame int `yaml:"bytes_per_frame"`
}

// SequencerConfig holds the sequencer clock settings.
type SequencerConfig struct {
	SystemClockHz uint32 `yaml:"system_clock_hz"`
	CyclesPerBit  uint32 `yaml:"cycles_per_bit"`
	BitsPerFrame  uint32 `yaml:"bits_per_frame"`
}

// PinConfig assigns GPIO numbers.
type PinConfig struct {
	Clock     *uint8  `yaml:"clock"`
	FrameSync *uint8  `yaml:"frame_sync"`
	Data      []uint8 `yaml:"data"`
}

// LayoutConfig maps host channels onto data lines. Each entry of Lines
// lists the host channel fed by each word slot of one line; -1 leaves a
// slot unused. An empty Lines uses the default layout.
type LayoutConfig struct {
	Lines [][]int `yaml:"lines"`
}

// SimulationConfig selects the signal fed to simulated lanes.
type SimulationConfig struct {
	Source      SourceKind `yaml:"source"`
	Amplitude   float64    `yaml:"amplitude"`
	Frequencies []float64  `yaml:"frequencies"`
	Seed        uint64     `yaml:"seed"`
	Device      string     `yaml:"device"` // PortAudio input device name, empty for default
}

// TransportConfig locates the named-pipe bus.
type TransportConfig struct {
	BusDir string `yaml:"bus_dir"`
}

// MetricsConfig controls the Prometheus listener. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default values.
const (
	DefaultChannels   = 6
	DefaultSampleRate = 16000
	DefaultBitDepth   = audio.Depth16
	DefaultAmplitude  = 0.5
	DefaultBusDir     = "/tmp/usbmic"
)

// DefaultFrequencies are the tone source defaults, one per channel.
var DefaultFrequencies = []float64{440, 554.37, 659.25, 880, 1108.73, 1318.51}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = LogLevelWarn
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = DefaultChannels
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = DefaultSampleRate
	}
	if c.Audio.BitDepth == 0 {
		c.Audio.BitDepth = DefaultBitDepth
	}
	if c.Audio.BytesPerFrame == 0 {
		c.Audio.BytesPerFrame = audio.NewFormat(c.Audio.Channels, c.Audio.SampleRate, c.Audio.BitDepth).BytesPerFrame
	}
	if c.Sequencer.SystemClockHz == 0 {
		c.Sequencer.SystemClockHz = i2s.DefaultSystemClockHz
	}
	if c.Sequencer.CyclesPerBit == 0 {
		c.Sequencer.CyclesPerBit = i2s.DefaultTiming.CyclesPerBit
	}
	if c.Sequencer.BitsPerFrame == 0 {
		c.Sequencer.BitsPerFrame = i2s.DefaultTiming.BitsPerFrame
	}
	if c.Pins.Clock == nil {
		c.Pins.Clock = ptr(uint8(i2s.DefaultClockPin))
	}
	if c.Pins.FrameSync == nil {
		c.Pins.FrameSync = ptr(uint8(i2s.DefaultFrameSyncPin))
	}
	if len(c.Pins.Data) == 0 {
		// Consecutive data pins from the default, skipping the clock pins.
		pin := uint8(i2s.DefaultDataPin)
		for range frame.LinesFor(c.Audio.Channels) {
			for pin == *c.Pins.Clock || pin == *c.Pins.FrameSync {
				pin++
			}
			c.Pins.Data = append(c.Pins.Data, pin)
			pin++
		}
	}
	if c.Simulation.Source == "" {
		c.Simulation.Source = SourceTone
	}
	if c.Simulation.Amplitude == 0 {
		c.Simulation.Amplitude = DefaultAmplitude
	}
	if len(c.Simulation.Frequencies) == 0 {
		c.Simulation.Frequencies = DefaultFrequencies
	}
	if c.Transport.BusDir == "" {
		c.Transport.BusDir = DefaultBusDir
	}
}

func ptr[T any](v T) *T { return &v }

// Format returns the stream format.
func (c *Config) Format() audio.Format {
	return audio.Format{
		Channels:      c.Audio.Channels,
		SampleRate:    c.Audio.SampleRate,
		BitDepth:      c.Audio.BitDepth,
		BytesPerFrame: c.Audio.BytesPerFrame,
	}
}

// Timing returns the sequencer timing.
func (c *Config) Timing() i2s.Timing {
	return i2s.Timing{
		CyclesPerBit: c.Sequencer.CyclesPerBit,
		BitsPerFrame: c.Sequencer.BitsPerFrame,
	}
}

// Stride returns the capture words per sample period.
func (c *Config) Stride() int {
	return int(c.Sequencer.BitsPerFrame) / audio.CaptureWordBits
}

// PinAssignment returns the pin assignment. Defaults must be applied.
func (c *Config) PinAssignment() i2s.Pins {
	pins := i2s.Pins{
		Clock:     i2s.Pin(*c.Pins.Clock),
		FrameSync: i2s.Pin(*c.Pins.FrameSync),
	}
	for _, p := range c.Pins.Data {
		pins.Data = append(pins.Data, i2s.Pin(p))
	}
	return pins
}

// ChannelLayout returns the channel layout.
func (c *Config) ChannelLayout() frame.Layout {
	if len(c.Layout.Lines) == 0 {
		return frame.DefaultLayout(c.Audio.Channels, c.Stride())
	}
	l := frame.Layout{Stride: c.Stride()}
	for _, slots := range c.Layout.Lines {
		l.Lines = append(l.Lines, frame.Line{Slots: append([]int(nil), slots...)})
	}
	return l
}

// Microphone returns the pipeline configuration.
func (c *Config) Microphone() mic.Config {
	return mic.Config{
		Format:        c.Format(),
		SystemClockHz: c.Sequencer.SystemClockHz,
		Timing:        c.Timing(),
		Pins:          c.PinAssignment(),
		Layout:        c.ChannelLayout(),
	}
}
