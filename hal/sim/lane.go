package sim

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Lane is a simulated sequencer state machine with a joined receive FIFO.
type Lane struct {
	hal   *HAL
	index int

	claimed bool
	enabled atomic.Bool

	line           int
	wordsPerSample int
	divider        i2s.Divider

	fifo     [FIFODepth]uint32
	head     int
	count    int
	produced uint64
	stalls   atomic.Uint64
}

// Configure implements [hal.Lane].
func (l *Lane) Configure(cfg *i2s.Config, line int) error {
	if cfg == nil || line < 0 || line >= cfg.Lines() {
		return fmt.Errorf("%w: line %d", pkg.ErrInvalidParameter, line)
	}
	if cfg.WordsPerSample() < 1 {
		return fmt.Errorf("%w: no words per sample", pkg.ErrInvalidConfig)
	}
	l.hal.stepMutex.Lock()
	defer l.hal.stepMutex.Unlock()

	l.line = line
	l.wordsPerSample = cfg.WordsPerSample()
	l.divider = cfg.Divider
	l.head, l.count, l.produced = 0, 0, 0

	pkg.LogDebug(pkg.ComponentHAL, "lane configured",
		"lane", l.index,
		"line", line,
		"data", cfg.Pins.Data[line],
		"divider", cfg.Divider.String())
	return nil
}

// SetEnabled implements [hal.Lane].
func (l *Lane) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

// Enabled reports whether the lane is running.
func (l *Lane) Enabled() bool {
	return l.enabled.Load()
}

// Release implements [hal.Lane].
func (l *Lane) Release() {
	l.hal.mutex.Lock()
	defer l.hal.mutex.Unlock()
	l.enabled.Store(false)
	l.claimed = false
	l.line = -1
}

// Stalls returns the number of words dropped because the FIFO was full.
func (l *Lane) Stalls() uint64 {
	return l.stalls.Load()
}

// Produced returns the number of words the lane has shifted in.
func (l *Lane) Produced() uint64 {
	return l.produced
}

// clock shifts in one word. A full FIFO drops it, as the hardware does when
// autopush stalls and the bit clock keeps running.
func (l *Lane) clock(src Source) {
	if l.wordsPerSample == 0 {
		return
	}
	slot := int(l.produced % uint64(l.wordsPerSample))
	index := l.produced / uint64(l.wordsPerSample)
	w := src.Word(l.line, slot, index)
	l.produced++

	if l.count == FIFODepth {
		l.stalls.Add(1)
		return
	}
	l.fifo[(l.head+l.count)%FIFODepth] = w
	l.count++
}

func (l *Lane) pop() (uint32, bool) {
	if l.count == 0 {
		return 0, false
	}
	w := l.fifo[l.head]
	l.head = (l.head + 1) % FIFODepth
	l.count--
	return w, true
}
