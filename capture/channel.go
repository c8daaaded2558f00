package capture

import (
	"github.com/ardnew/usbmic/hal"
)

// Channel is the transfer engine of one data line: a sequencer lane, the
// transfer channel it paces, and the double buffer they fill.
type Channel struct {
	line   int
	lane   hal.Lane
	dma    hal.DMAChannel
	buffer *DoubleBuffer
}

// Line returns the data line index.
func (c *Channel) Line() int {
	return c.line
}

// Buffer returns the channel's double buffer.
func (c *Channel) Buffer() *DoubleBuffer {
	return c.buffer
}

// arm points the transfer at half A and starts it.
func (c *Channel) arm() {
	dst := c.buffer.start()
	c.dma.SetInterruptEnabled(true)
	c.dma.Arm(dst)
}

// service handles this channel's share of the completion interrupt.
func (c *Channel) service() bool {
	if !c.dma.Acknowledge() {
		return false
	}
	c.dma.Arm(c.buffer.Complete())
	return true
}

// halt stops the transfer. The shared interrupt must already be disabled.
func (c *Channel) halt() {
	c.dma.SetInterruptEnabled(false)
	c.dma.Abort()
	c.lane.SetEnabled(false)
	c.dma.Acknowledge()
	c.buffer.stop()
}
