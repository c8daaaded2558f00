//go:build tinygo && rp2040

package rp2

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	pio "github.com/tinygo-org/pio/rp2-pio"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// numDMAChannels is the number of DMA channels on the RP2040.
const numDMAChannels = 12

// handler is the installed completion handler, called from dispatch.
var handler func()

func dispatch(interrupt.Interrupt) {
	if h := handler; h != nil {
		h()
	}
}

// HAL is the RP2040 capture HAL.
type HAL struct {
	block *pio.PIO
	irq   interrupt.Interrupt

	dmaClaimed uint16

	// Capture program load offset, shared by every lane.
	program       *i2s.Program
	programOffset uint8
}

// Verify HAL implements hal.CaptureHAL.
var _ hal.CaptureHAL = (*HAL)(nil)

// New returns a HAL that claims state machines from block (pio.PIO0 or
// pio.PIO1).
func New(block *pio.PIO) *HAL {
	h := &HAL{block: block}
	h.irq = interrupt.New(rp.IRQ_DMA_IRQ_0, dispatch)
	return h
}

// SystemClockHz implements [hal.CaptureHAL].
func (h *HAL) SystemClockHz() uint32 {
	return machine.CPUFrequency()
}

// ClaimLane implements [hal.CaptureHAL].
func (h *HAL) ClaimLane() (hal.Lane, error) {
	sm, err := h.block.ClaimStateMachine()
	if err != nil {
		return nil, pkg.ErrNoResources
	}
	return &Lane{hal: h, sm: sm}, nil
}

// ClaimDMA implements [hal.CaptureHAL].
func (h *HAL) ClaimDMA() (hal.DMAChannel, error) {
	for i := range numDMAChannels {
		if h.dmaClaimed&(1<<i) == 0 {
			h.dmaClaimed |= 1 << i
			return &DMAChannel{hal: h, index: uint8(i)}, nil
		}
	}
	return nil, pkg.ErrNoResources
}

// ReserveDMA marks channel as used by other firmware.
func (h *HAL) ReserveDMA(channel uint8) {
	if channel < numDMAChannels {
		h.dmaClaimed |= 1 << channel
	}
}

// SetInterruptHandler implements [hal.CaptureHAL].
func (h *HAL) SetInterruptHandler(fn func()) {
	h.irq.Disable()
	handler = fn
}

// SetInterruptEnabled implements [hal.CaptureHAL].
func (h *HAL) SetInterruptEnabled(enabled bool) {
	if enabled {
		h.irq.SetPriority(0x00)
		h.irq.Enable()
		return
	}
	h.irq.Disable()
}

// StartLanes implements [hal.CaptureHAL]. All lanes are enabled with one
// write to the PIO CTRL register after their clock dividers are restarted
// together.
func (h *HAL) StartLanes(lanes []hal.Lane) {
	var mask uint32
	for _, l := range lanes {
		if lane, ok := l.(*Lane); ok {
			mask |= 1 << lane.sm.StateMachineIndex()
		}
	}
	hw := h.block.HW()
	hw.CTRL.SetBits(mask << rp.PIO0_CTRL_CLKDIV_RESTART_Pos)
	hw.CTRL.SetBits(mask << rp.PIO0_CTRL_SM_ENABLE_Pos)

	pkg.LogDebug(pkg.ComponentHAL, "lanes started", "mask", mask)
}

// loadProgram adds prog to the PIO block once and returns its offset.
func (h *HAL) loadProgram(prog *i2s.Program) (uint8, error) {
	if h.program != nil {
		return h.programOffset, nil
	}
	offset, err := h.block.AddProgram(prog.Instructions, prog.Origin)
	if err != nil {
		return 0, err
	}
	h.program = prog
	h.programOffset = offset
	return offset, nil
}
