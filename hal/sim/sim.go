package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Resource pool sizes, matching one RP2040.
const (
	DefaultLanes       = 8  // two sequencer blocks of four state machines
	DefaultDMAChannels = 12 // transfer channels
	FIFODepth          = 8  // joined receive FIFO depth in words
)

// Options configures a simulated HAL.
type Options struct {
	SystemClockHz uint32 // defaults to i2s.DefaultSystemClockHz
	Lanes         int    // defaults to DefaultLanes
	DMAChannels   int    // defaults to DefaultDMAChannels
	Source        Source // defaults to Silence()
}

// HAL is a simulated capture platform.
type HAL struct {
	sysHz  uint32
	source Source

	lanes []*Lane
	dmas  []*DMAChannel

	mutex      sync.Mutex // protects claims and handler
	stepMutex  sync.Mutex // serializes Step
	handler    func()
	irqEnabled atomic.Bool

	interrupts atomic.Uint64
	dispatched atomic.Uint64
}

// New creates a simulated HAL.
func New(opts Options) *HAL {
	if opts.SystemClockHz == 0 {
		opts.SystemClockHz = i2s.DefaultSystemClockHz
	}
	if opts.Lanes <= 0 {
		opts.Lanes = DefaultLanes
	}
	if opts.DMAChannels <= 0 {
		opts.DMAChannels = DefaultDMAChannels
	}
	if opts.Source == nil {
		opts.Source = Silence()
	}

	h := &HAL{
		sysHz:  opts.SystemClockHz,
		source: opts.Source,
		lanes:  make([]*Lane, opts.Lanes),
		dmas:   make([]*DMAChannel, opts.DMAChannels),
	}
	for i := range h.lanes {
		h.lanes[i] = &Lane{hal: h, index: i, line: -1}
	}
	for i := range h.dmas {
		h.dmas[i] = &DMAChannel{hal: h, index: i}
	}
	return h
}

// SystemClockHz implements [hal.CaptureHAL].
func (h *HAL) SystemClockHz() uint32 {
	return h.sysHz
}

// ClaimLane implements [hal.CaptureHAL].
func (h *HAL) ClaimLane() (hal.Lane, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, l := range h.lanes {
		if !l.claimed {
			l.claimed = true
			pkg.LogDebug(pkg.ComponentHAL, "lane claimed", "lane", l.index)
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: all %d lanes claimed", pkg.ErrNoResources, len(h.lanes))
}

// ClaimDMA implements [hal.CaptureHAL].
func (h *HAL) ClaimDMA() (hal.DMAChannel, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, d := range h.dmas {
		if !d.claimed {
			d.claimed = true
			pkg.LogDebug(pkg.ComponentHAL, "dma claimed", "channel", d.index)
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: all %d transfer channels claimed", pkg.ErrNoResources, len(h.dmas))
}

// SetInterruptHandler implements [hal.CaptureHAL].
func (h *HAL) SetInterruptHandler(handler func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.handler = handler
}

// SetInterruptEnabled implements [hal.CaptureHAL].
func (h *HAL) SetInterruptEnabled(enabled bool) {
	h.irqEnabled.Store(enabled)
}

// InterruptEnabled reports whether the shared interrupt line is enabled.
func (h *HAL) InterruptEnabled() bool {
	return h.irqEnabled.Load()
}

// StartLanes implements [hal.CaptureHAL]. Receive FIFOs are cleared first.
func (h *HAL) StartLanes(lanes []hal.Lane) {
	h.stepMutex.Lock()
	defer h.stepMutex.Unlock()
	for _, l := range lanes {
		if sl, ok := l.(*Lane); ok {
			sl.head, sl.count = 0, 0
			sl.enabled.Store(true)
		}
	}
}

// Interrupts returns the number of completion interrupts raised and the
// number actually dispatched to a handler.
func (h *HAL) Interrupts() (raised, dispatched uint64) {
	return h.interrupts.Load(), h.dispatched.Load()
}

// Lane returns simulated lane i for inspection.
func (h *HAL) Lane(i int) *Lane {
	return h.lanes[i]
}

// DMA returns simulated transfer channel i for inspection.
func (h *HAL) DMA(i int) *DMAChannel {
	return h.dmas[i]
}

// Step clocks every enabled lane by words capture words. Transfers that
// complete raise the shared interrupt, and the handler runs before Step
// clocks the next word.
func (h *HAL) Step(words int) {
	h.stepMutex.Lock()
	defer h.stepMutex.Unlock()

	for range words {
		raise := false
		for _, l := range h.lanes {
			if !l.enabled.Load() {
				continue
			}
			l.clock(h.source)
		}
		for _, d := range h.dmas {
			if d.transfer() {
				raise = true
			}
		}
		if raise {
			h.raise()
		}
	}
}

func (h *HAL) raise() {
	h.interrupts.Add(1)
	if !h.irqEnabled.Load() {
		return
	}
	h.mutex.Lock()
	handler := h.handler
	h.mutex.Unlock()
	if handler == nil {
		return
	}
	h.dispatched.Add(1)
	handler()
}

// Run advances the model in real time, wordsPerMillisecond words per lane
// every millisecond, until ctx is cancelled.
func (h *HAL) Run(ctx context.Context, wordsPerMillisecond int) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	var debt time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			// Catch up on ticks the runtime dropped.
			debt += now.Sub(last)
			last = now
			for debt >= time.Millisecond {
				h.Step(wordsPerMillisecond)
				debt -= time.Millisecond
			}
		}
	}
}

// Compile-time interface checks.
var (
	_ hal.CaptureHAL = (*HAL)(nil)
	_ hal.Lane       = (*Lane)(nil)
	_ hal.DMAChannel = (*DMAChannel)(nil)
)
