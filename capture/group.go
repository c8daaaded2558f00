package capture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Group owns the transfer engines of every data line of one audio function
// and the interrupt they share.
type Group struct {
	hal      hal.CaptureHAL
	cfg      *i2s.Config
	channels []*Channel
	lanes    []hal.Lane

	mutex   sync.Mutex
	running bool
	closed  bool

	interrupts atomic.Uint32
	spurious   atomic.Uint32
}

// Stats holds group-level interrupt counters.
type Stats struct {
	Interrupts  uint32   // Interrupt handler invocations
	Spurious    uint32   // Invocations with no channel pending
	Completions []uint32 // Per-line completion counts since start
}

// NewGroup claims one lane and one transfer channel per data line in cfg,
// configures them, and allocates a double buffer of halfWords words per
// half for each line. Claimed resources are released on error.
func NewGroup(h hal.CaptureHAL, cfg *i2s.Config, halfWords int) (*Group, error) {
	if h == nil || cfg == nil {
		return nil, fmt.Errorf("%w: nil platform or configuration", pkg.ErrInvalidParameter)
	}
	if cfg.Lines() < 1 {
		return nil, fmt.Errorf("%w: no data lines", pkg.ErrInvalidPin)
	}

	g := &Group{hal: h, cfg: cfg}
	for line := range cfg.Lines() {
		ch, err := g.claim(line, halfWords)
		if err != nil {
			g.release()
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		g.channels = append(g.channels, ch)
		g.lanes = append(g.lanes, ch.lane)
	}

	pkg.LogInfo(pkg.ComponentCapture, "channel group ready",
		"lines", len(g.channels),
		"halfWords", halfWords)
	return g, nil
}

func (g *Group) claim(line, halfWords int) (*Channel, error) {
	buf, err := NewDoubleBuffer(halfWords)
	if err != nil {
		return nil, err
	}
	lane, err := g.hal.ClaimLane()
	if err != nil {
		return nil, err
	}
	if err := lane.Configure(g.cfg, line); err != nil {
		lane.Release()
		return nil, err
	}
	dma, err := g.hal.ClaimDMA()
	if err != nil {
		lane.Release()
		return nil, err
	}
	if err := dma.Configure(lane); err != nil {
		dma.Release()
		lane.Release()
		return nil, err
	}
	return &Channel{line: line, lane: lane, dma: dma, buffer: buf}, nil
}

// Channels returns the group's channels in line order.
func (g *Group) Channels() []*Channel {
	return g.channels
}

// Buffers returns the double buffers in line order.
func (g *Group) Buffers() []*DoubleBuffer {
	bufs := make([]*DoubleBuffer, len(g.channels))
	for i, ch := range g.channels {
		bufs[i] = ch.buffer
	}
	return bufs
}

// Running reports whether capture is running.
func (g *Group) Running() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.running
}

// Start installs the completion handler, arms every transfer into half A,
// and starts every lane together. Capture runs until [Group.Stop].
func (g *Group) Start() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.closed {
		return fmt.Errorf("%w: group closed", pkg.ErrNotRunning)
	}
	if g.running {
		return pkg.ErrAlreadyRunning
	}

	g.interrupts.Store(0)
	g.spurious.Store(0)

	g.hal.SetInterruptHandler(g.handleInterrupt)
	for _, ch := range g.channels {
		ch.arm()
	}
	g.hal.SetInterruptEnabled(true)
	g.hal.StartLanes(g.lanes)
	g.running = true

	pkg.LogInfo(pkg.ComponentCapture, "capture started", "lines", len(g.channels))
	return nil
}

// Stop disables the completion interrupt, then aborts every transfer and
// stops every lane. Buffers stay allocated and readable.
func (g *Group) Stop() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.running {
		return pkg.ErrNotRunning
	}
	g.halt()
	pkg.LogInfo(pkg.ComponentCapture, "capture stopped",
		"interrupts", g.interrupts.Load(),
		"spurious", g.spurious.Load())
	return nil
}

func (g *Group) halt() {
	g.hal.SetInterruptEnabled(false)
	for _, ch := range g.channels {
		ch.halt()
	}
	g.hal.SetInterruptHandler(nil)
	g.running = false
}

// Close stops capture if running and releases every claimed resource.
func (g *Group) Close() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.closed {
		return nil
	}
	if g.running {
		g.halt()
	}
	g.release()
	g.closed = true
	return nil
}

func (g *Group) release() {
	for _, ch := range g.channels {
		ch.dma.Release()
		ch.lane.Release()
	}
}

// Stats returns a snapshot of the interrupt counters.
func (g *Group) Stats() Stats {
	s := Stats{
		Interrupts:  g.interrupts.Load(),
		Spurious:    g.spurious.Load(),
		Completions: make([]uint32, len(g.channels)),
	}
	for i, ch := range g.channels {
		s.Completions[i] = ch.buffer.Sequence()
	}
	return s
}

// handleInterrupt services the shared completion interrupt.
func (g *Group) handleInterrupt() {
	g.interrupts.Add(1)
	serviced := false
	for _, ch := range g.channels {
		if ch.service() {
			serviced = true
		}
	}
	if !serviced {
		g.spurious.Add(1)
	}
}
