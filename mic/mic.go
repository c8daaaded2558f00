// Package mic wires the capture pipeline into one USB microphone: sequencer
// configuration, the transfer engine, the frame assembler and the delivery
// trigger.
//
// # Usage
//
//	m, err := mic.New(mic.DefaultConfig(), platform, transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	// USB stack calls m.PreLoad() once per frame and drives m.Function().
package mic

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/capture"
	"github.com/ardnew/usbmic/frame"
	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/uac"
)

// Config describes one microphone.
type Config struct {
	Format        audio.Format
	SystemClockHz uint32 // Zero uses the platform's clock
	Timing        i2s.Timing
	Pins          i2s.Pins
	Layout        frame.Layout
}

// DefaultConfig returns the six-channel, 16 kHz, 16-bit reference
// configuration on three stereo data lines.
func DefaultConfig() Config {
	return Config{
		Format: audio.NewFormat(6, 16000, 16),
		Timing: i2s.DefaultTiming,
		Pins: i2s.Pins{
			Clock:     i2s.DefaultClockPin,
			FrameSync: i2s.DefaultFrameSyncPin,
			Data:      []i2s.Pin{i2s.DefaultDataPin, 5, 6},
		},
		Layout: frame.DefaultLayout(6, 2),
	}
}

// Validate checks the configuration without touching hardware.
func (c Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if err := c.Layout.Validate(c.Format.Channels); err != nil {
		return err
	}
	if len(c.Layout.Lines) != len(c.Pins.Data) {
		return fmt.Errorf("%w: layout has %d lines, %d data pins assigned",
			pkg.ErrInvalidLayout, len(c.Layout.Lines), len(c.Pins.Data))
	}
	if want := int(c.Timing.BitsPerFrame) / audio.CaptureWordBits; c.Layout.Stride != want {
		return fmt.Errorf("%w: stride %d, bus carries %d words per sample",
			pkg.ErrInvalidLayout, c.Layout.Stride, want)
	}
	return c.Pins.Validate()
}

// Stats is a snapshot of every pipeline counter.
type Stats struct {
	Running   bool
	Streaming bool
	Capture   capture.Stats
	Assembly  frame.Stats
	Delivery  uac.DeliveryStats
}

// Microphone is a running capture pipeline bound to one audio function.
type Microphone struct {
	cfg       Config
	sequencer *i2s.Config
	group     *capture.Group
	assembler *frame.Assembler
	function  *uac.Function
	trigger   *uac.Trigger

	mutex   sync.Mutex
	running atomic.Bool
}

// New validates cfg, computes the sequencer configuration, claims the
// platform resources and builds the pipeline. Every error is a fatal
// startup error; nothing is left claimed on failure.
func New(cfg Config, platform hal.CaptureHAL, transport uac.Transport) (*Microphone, error) {
	if platform == nil || transport == nil {
		return nil, fmt.Errorf("%w: nil platform or transport", pkg.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sysHz := cfg.SystemClockHz
	if sysHz == 0 {
		sysHz = platform.SystemClockHz()
	}
	seq, err := i2s.NewConfig(sysHz, uint32(cfg.Format.SampleRate), cfg.Pins, cfg.Timing)
	if err != nil {
		return nil, err
	}

	group, err := capture.NewGroup(platform, seq, cfg.Layout.HalfWords(cfg.Format))
	if err != nil {
		return nil, err
	}

	buffers := group.Buffers()
	sources := make([]frame.Source, len(buffers))
	for i, b := range buffers {
		sources[i] = b
	}
	asm, err := frame.NewAssembler(cfg.Format, cfg.Layout, sources)
	if err != nil {
		group.Close()
		return nil, err
	}

	fn := uac.NewFunction()
	trig, err := uac.NewTrigger(fn, asm, transport, cfg.Format.BytesPerFrame)
	if err != nil {
		group.Close()
		return nil, err
	}
	trig.SetOnStreamStart(asm.Reset)

	pkg.LogInfo(pkg.ComponentDelivery, "microphone ready",
		"format", cfg.Format.String(),
		"bytesPerFrame", cfg.Format.BytesPerFrame,
		"lines", len(cfg.Pins.Data))

	m := &Microphone{
		cfg:       cfg,
		sequencer: seq,
		group:     group,
		assembler: asm,
		function:  fn,
		trigger:   trig,
	}
	trig.SetCaptureActive(m.running.Load)
	return m, nil
}

// NewFromProvider is New with the stream format taken from a descriptor
// provider. The default layout for the provider's channel count is used
// when cfg.Layout has no lines.
func NewFromProvider(cfg Config, provider uac.FormatProvider, platform hal.CaptureHAL, transport uac.Transport) (*Microphone, error) {
	format, err := provider.AudioFormat()
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if len(cfg.Layout.Lines) == 0 {
		cfg.Layout = frame.DefaultLayout(format.Channels, int(cfg.Timing.BitsPerFrame)/audio.CaptureWordBits)
	}
	return New(cfg, platform, transport)
}

// Format returns the stream format.
func (m *Microphone) Format() audio.Format {
	return m.cfg.Format
}

// Sequencer returns the computed sequencer configuration.
func (m *Microphone) Sequencer() *i2s.Config {
	return m.sequencer
}

// Function returns the audio function the USB stack drives.
func (m *Microphone) Function() *uac.Function {
	return m.function
}

// Group returns the capture channel group.
func (m *Microphone) Group() *capture.Group {
	return m.group
}

// Start begins capture. Delivery follows the function's mount and
// streaming state.
func (m *Microphone) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running.Load() {
		return pkg.ErrAlreadyRunning
	}
	if err := m.group.Start(); err != nil {
		return err
	}
	// Buffer sequences restart from zero.
	m.assembler.Reset()
	m.running.Store(true)
	return nil
}

// Stop halts capture. The audio function keeps its state; streaming
// intervals are idle until the next Start.
func (m *Microphone) Stop() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running.Load() {
		return pkg.ErrNotRunning
	}
	m.running.Store(false)
	return m.group.Stop()
}

// Close stops capture and releases platform resources.
func (m *Microphone) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.running.Store(false)
	return m.group.Close()
}

// PreLoad runs one delivery cycle. It is the per-frame hook the USB stack
// calls before each isochronous IN interval; false declines the interval.
func (m *Microphone) PreLoad() bool {
	return m.trigger.PreLoad()
}

// Deliver runs one delivery cycle and returns its status.
func (m *Microphone) Deliver() pkg.DeliveryStatus {
	return m.trigger.Deliver()
}

// Stats returns a snapshot of every pipeline counter.
func (m *Microphone) Stats() Stats {
	return Stats{
		Running:   m.running.Load(),
		Streaming: m.function.Streaming(),
		Capture:   m.group.Stats(),
		Assembly:  m.assembler.Stats(),
		Delivery:  m.trigger.Stats(),
	}
}
