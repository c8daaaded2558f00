// Package hal defines the Hardware Abstraction Layer for the capture pipeline.
//
// The HAL is the boundary between the platform-agnostic pipeline (sequencer
// configuration, double buffering, frame assembly) and the hardware that
// clocks the serial bus and moves words into memory. Platform vendors
// implement [CaptureHAL] to run the pipeline on their hardware.
//
// # Resources
//
// A channel group needs, per physical data line:
//
//   - One [Lane]: a sequencer state machine running the capture program
//   - One [DMAChannel]: a transfer channel paced by that lane's receive FIFO
//
// plus one interrupt line shared by every transfer channel in the group.
//
// # Interrupt Context
//
// The handler installed with [CaptureHAL.SetInterruptHandler] runs in
// interrupt context. It may only call [DMAChannel.Acknowledge] and
// [DMAChannel.Arm]; neither may block, allocate or log.
//
// # Implementations
//
//   - [github.com/ardnew/usbmic/hal/sim]: deterministic software model for tests
//     and host-side simulation
//   - [github.com/ardnew/usbmic/hal/rp2]: RP2040 PIO and DMA (TinyGo)
//
// # Example
//
//	type MyHAL struct {
//	    // Platform-specific fields
//	}
//
//	func (h *MyHAL) ClaimLane() (hal.Lane, error) {
//	    // Reserve a sequencer state machine
//	}
//
//	// ... implement remaining CaptureHAL methods
package hal
