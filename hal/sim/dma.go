package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// DMAChannel is a simulated transfer channel.
type DMAChannel struct {
	hal   *HAL
	index int

	claimed bool

	mutex      sync.Mutex // protects everything below
	src        *Lane
	dst        []uint32
	pos        int
	busy       bool
	pending    bool
	irqEnabled bool
	arms       uint64
}

// Configure implements [hal.DMAChannel].
func (d *DMAChannel) Configure(src hal.Lane) error {
	l, ok := src.(*Lane)
	if !ok || l.hal != d.hal {
		return fmt.Errorf("%w: lane from another platform", pkg.ErrInvalidParameter)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.src = l
	d.busy = false
	d.pending = false
	return nil
}

// Arm implements [hal.DMAChannel].
func (d *DMAChannel) Arm(dst []uint32) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.dst = dst
	d.pos = 0
	d.busy = len(dst) > 0
	d.arms++
}

// Acknowledge implements [hal.DMAChannel].
func (d *DMAChannel) Acknowledge() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	p := d.pending
	d.pending = false
	return p
}

// SetInterruptEnabled implements [hal.DMAChannel].
func (d *DMAChannel) SetInterruptEnabled(enabled bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.irqEnabled = enabled
}

// Abort implements [hal.DMAChannel].
func (d *DMAChannel) Abort() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.busy = false
	d.dst = nil
	d.pos = 0
}

// Release implements [hal.DMAChannel].
func (d *DMAChannel) Release() {
	d.Abort()
	d.hal.mutex.Lock()
	defer d.hal.mutex.Unlock()
	d.claimed = false
	d.mutex.Lock()
	d.src = nil
	d.irqEnabled = false
	d.pending = false
	d.mutex.Unlock()
}

// Busy reports whether a transfer is in progress.
func (d *DMAChannel) Busy() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.busy
}

// Arms returns the number of times the channel has been armed.
func (d *DMAChannel) Arms() uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.arms
}

// transfer drains the source FIFO into the armed buffer and reports whether
// the channel raised its completion interrupt.
func (d *DMAChannel) transfer() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.busy || d.src == nil {
		return false
	}
	for d.pos < len(d.dst) {
		w, ok := d.src.pop()
		if !ok {
			return false
		}
		d.dst[d.pos] = w
		d.pos++
	}
	d.busy = false
	d.pending = true
	return d.irqEnabled
}
