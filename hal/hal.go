package hal

import (
	"github.com/ardnew/usbmic/i2s"
)

// Lane is one sequencer state machine capturing one serial data line.
type Lane interface {
	// Configure loads the capture program and applies the clock divider,
	// pin directions and shift configuration for the given data line index.
	Configure(cfg *i2s.Config, line int) error

	// SetEnabled starts or stops the state machine.
	SetEnabled(enabled bool)

	// Release returns the state machine to the platform.
	Release()
}

// DMAChannel moves capture words from a lane's receive FIFO into memory.
type DMAChannel interface {
	// Configure binds the channel to src: 32-bit transfers, fixed read
	// address (the receive FIFO), incrementing write address, paced by the
	// lane's receive data request.
	Configure(src Lane) error

	// Arm sets the write target to dst, the transfer count to len(dst), and
	// starts the transfer. Arm is called from interrupt context.
	Arm(dst []uint32)

	// Acknowledge clears this channel's pending completion interrupt and
	// reports whether one was pending. Called from interrupt context.
	Acknowledge() bool

	// SetInterruptEnabled routes completion of this channel to the shared
	// interrupt line.
	SetInterruptEnabled(enabled bool)

	// Abort stops any transfer in progress and waits until the channel is idle.
	Abort()

	// Release returns the channel to the platform.
	Release()
}

// CaptureHAL is the hardware boundary of one channel group.
//
// Configuration methods are called from the cooperative context during
// startup and teardown only.
type CaptureHAL interface {
	// SystemClockHz returns the clock that feeds the sequencer divider.
	SystemClockHz() uint32

	// ClaimLane reserves a free sequencer state machine.
	// Returns pkg.ErrNoResources when none is left.
	ClaimLane() (Lane, error)

	// ClaimDMA reserves a free transfer channel.
	// Returns pkg.ErrNoResources when none is left.
	ClaimDMA() (DMAChannel, error)

	// SetInterruptHandler installs the handler for the shared transfer
	// completion interrupt. Pass nil to remove it.
	SetInterruptHandler(handler func())

	// SetInterruptEnabled enables or disables the shared interrupt line.
	SetInterruptEnabled(enabled bool)

	// StartLanes enables every lane in one operation so that all data lines
	// begin on the same bit-clock edge.
	StartLanes(lanes []Lane)
}
