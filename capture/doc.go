// Package capture runs the double-buffered transfer engine that moves raw
// capture words from the sequencer lanes into memory.
//
// Each data line owns a [DoubleBuffer]: two equal halves, one being written
// by its transfer channel while the other holds the most recently completed
// capture. A single atomic sequence number selects the write target; the
// completion interrupt flips it and re-arms the channel into the other half
// before returning, so no gap is left in the capture stream.
//
// A [Group] owns every channel of one audio function. It claims the
// hardware, starts every lane on the same bit-clock edge, and services the
// shared completion interrupt.
//
// # Interrupt Handler
//
// The handler does exactly three things per pending channel: acknowledge,
// flip, re-arm. It never logs, allocates or blocks. Everything else
// (assembly, delivery, diagnostics) happens in the cooperative poll context.
package capture
