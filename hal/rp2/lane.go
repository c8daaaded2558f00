//go:build tinygo && rp2040

package rp2

import (
	"fmt"
	"machine"
	"unsafe"

	pio "github.com/tinygo-org/pio/rp2-pio"

	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

// Lane is one PIO state machine running the capture program.
type Lane struct {
	hal *HAL
	sm  pio.StateMachine
}

// Configure implements [hal.Lane].
func (l *Lane) Configure(cfg *i2s.Config, line int) error {
	if cfg == nil || line < 0 || line >= cfg.Lines() {
		return fmt.Errorf("%w: line %d", pkg.ErrInvalidParameter, line)
	}
	offset, err := l.hal.loadProgram(&cfg.Program)
	if err != nil {
		return fmt.Errorf("%w: load program: %v", pkg.ErrNoResources, err)
	}

	data := machine.Pin(cfg.Pins.Data[line])
	clock := machine.Pin(cfg.Pins.Clock)
	frameSync := machine.Pin(cfg.Pins.FrameSync)

	mode := machine.PinConfig{Mode: l.sm.PIO().PinMode()}
	data.Configure(mode)
	frameSync.Configure(mode)
	clock.Configure(mode)

	sc := pio.DefaultStateMachineConfig()
	sc.SetWrap(offset+cfg.Program.WrapTarget, offset+cfg.Program.Wrap)
	sc.SetSidesetParams(cfg.Program.SideSetBits, false, false)
	sc.SetSidesetPins(clock)
	sc.SetInPins(data)
	sc.SetInShift(cfg.Shift.ShiftRight, cfg.Shift.AutoPush, uint16(cfg.Shift.PushThreshold))
	if cfg.Shift.JoinRX {
		sc.SetFIFOJoin(pio.FifoJoinRx)
	}
	sc.SetClkDivIntFrac(cfg.Divider.Int, cfg.Divider.Frac)

	l.sm.SetEnabled(false)
	l.sm.Init(offset, sc)

	// Line 0 drives the bit clock; the other lanes side-set the same value
	// in lockstep but leave the pin an input.
	l.sm.SetPindirsConsecutive(data, 1, false)
	l.sm.SetPindirsConsecutive(frameSync, 1, false)
	if line == 0 {
		l.sm.SetPindirsConsecutive(clock, 1, true)
	}

	pkg.LogDebug(pkg.ComponentHAL, "lane configured",
		"sm", l.sm.StateMachineIndex(),
		"line", line,
		"data", cfg.Pins.Data[line],
		"offset", offset,
		"divider", cfg.Divider.String())
	return nil
}

// SetEnabled implements [hal.Lane].
func (l *Lane) SetEnabled(enabled bool) {
	l.sm.SetEnabled(enabled)
}

// Release implements [hal.Lane].
func (l *Lane) Release() {
	l.sm.SetEnabled(false)
	l.sm.Unclaim()
}

// dreq returns the DMA request number of this lane's RX FIFO.
func (l *Lane) dreq() uint32 {
	return uint32(l.sm.PIO().BlockIndex())*8 + 4 + uint32(l.sm.StateMachineIndex())
}

// rxAddr returns the address of this lane's RX FIFO register.
func (l *Lane) rxAddr() uint32 {
	return uint32(uintptr(unsafe.Pointer(l.sm.RxReg())))
}
