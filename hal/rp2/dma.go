//go:build tinygo && rp2040

package rp2

import (
	"fmt"
	"runtime/volatile"
	"unsafe"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/pkg"
)

// DMA peripheral base address
const dmaBase uintptr = 0x50000000

// Per-channel register offsets (channel stride 0x40)
const (
	dmaReadAddr         = 0x00 // Read address
	dmaWriteAddr        = 0x04 // Write address
	dmaTransCount       = 0x08 // Transfer count
	dmaCtrlTrig         = 0x0C // Control, triggers
	dmaAl1Ctrl          = 0x10 // Control alias, no trigger
	dmaAl2TransCount    = 0x24 // Transfer count alias
	dmaAl2WriteAddrTrig = 0x2C // Write address alias, triggers

	dmaChannelStride = 0x40
)

// Global register offsets
const (
	dmaINTE0     = 0x404 // IRQ 0 enable
	dmaINTS0     = 0x40C // IRQ 0 status (write 1 to clear)
	dmaCHANABORT = 0x444 // Abort
)

// CTRL bits
const (
	ctrlEN           = 1 << 0
	ctrlHighPriority = 1 << 1
	ctrlDataSizeWord = 2 << 2
	ctrlIncrWrite    = 1 << 5
	ctrlChainToPos   = 11
	ctrlTreqSelPos   = 15
	ctrlBusy         = 1 << 24
)

func dmaReg32(offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(dmaBase + offset))
}

// DMAChannel is one RP2040 DMA channel.
type DMAChannel struct {
	hal   *HAL
	index uint8
}

func (c *DMAChannel) reg(offset uintptr) *volatile.Register32 {
	return dmaReg32(uintptr(c.index)*dmaChannelStride + offset)
}

func (c *DMAChannel) mask() uint32 {
	return 1 << c.index
}

// Configure implements [hal.DMAChannel]. The channel reads the lane's RX
// FIFO at a fixed address and chains to itself, which disables chaining.
func (c *DMAChannel) Configure(src hal.Lane) error {
	lane, ok := src.(*Lane)
	if !ok {
		return fmt.Errorf("%w: lane %T is not an rp2 lane", pkg.ErrInvalidParameter, src)
	}
	c.Abort()
	c.reg(dmaReadAddr).Set(lane.rxAddr())
	c.reg(dmaAl1Ctrl).Set(ctrlEN |
		ctrlHighPriority |
		ctrlDataSizeWord |
		ctrlIncrWrite |
		uint32(c.index)<<ctrlChainToPos |
		lane.dreq()<<ctrlTreqSelPos)

	pkg.LogDebug(pkg.ComponentHAL, "dma configured",
		"channel", c.index,
		"dreq", lane.dreq())
	return nil
}

// Arm implements [hal.DMAChannel]. Writing the write-address trigger alias
// starts the transfer.
func (c *DMAChannel) Arm(dst []uint32) {
	if len(dst) == 0 {
		return
	}
	c.reg(dmaAl2TransCount).Set(uint32(len(dst)))
	c.reg(dmaAl2WriteAddrTrig).Set(uint32(uintptr(unsafe.Pointer(&dst[0]))))
}

// Acknowledge implements [hal.DMAChannel].
func (c *DMAChannel) Acknowledge() bool {
	ints := dmaReg32(dmaINTS0)
	if !ints.HasBits(c.mask()) {
		return false
	}
	ints.Set(c.mask())
	return true
}

// SetInterruptEnabled implements [hal.DMAChannel].
func (c *DMAChannel) SetInterruptEnabled(enabled bool) {
	if enabled {
		dmaReg32(dmaINTE0).SetBits(c.mask())
		return
	}
	dmaReg32(dmaINTE0).ClearBits(c.mask())
}

// Abort implements [hal.DMAChannel].
func (c *DMAChannel) Abort() {
	dmaReg32(dmaCHANABORT).Set(c.mask())
	for dmaReg32(dmaCHANABORT).HasBits(c.mask()) {
	}
	for c.reg(dmaCtrlTrig).HasBits(ctrlBusy) {
	}
}

// Release implements [hal.DMAChannel].
func (c *DMAChannel) Release() {
	c.SetInterruptEnabled(false)
	c.Abort()
	c.reg(dmaAl1Ctrl).Set(0)
	c.hal.dmaClaimed &^= c.mask()
}
