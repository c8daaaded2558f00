//go:build tinygo && rp2040

// Package rp2 implements [hal.CaptureHAL] on the RP2040 for TinyGo.
//
// Each capture lane is one PIO state machine from a single PIO block, so
// every lane shares the block's enable register and can be started on the
// same system clock edge. Each transfer channel is one DMA channel paced by
// its lane's RX data request and raising DMA_IRQ_0 on completion.
//
// # Resources
//
// State machines are claimed through github.com/tinygo-org/pio. DMA
// channels have no allocator in TinyGo, so this package keeps its own claim
// mask. Channels used elsewhere in the firmware must be reserved with
// [HAL.ReserveDMA] before the group is created.
//
// # Interrupts
//
// Only one [HAL] may exist: DMA_IRQ_0 is bound at compile time to a single
// dispatch function.
package rp2
