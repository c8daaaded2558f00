// Package sim provides a deterministic software model of the capture
// hardware that implements [hal.CaptureHAL].
//
// The model has a fixed pool of sequencer lanes and transfer channels. Each
// enabled lane produces capture words from a [Source]; each configured
// transfer channel moves words from its lane's receive FIFO into the armed
// buffer and raises the shared completion interrupt when the count expires.
//
// Time only moves when the caller advances it. [HAL.Step] clocks every lane
// by a number of words and invokes the interrupt handler inline, in the
// caller's goroutine, exactly where the hardware would raise it. Tests use
// Step for reproducible interleavings; [HAL.Run] paces Step against the wall
// clock for host-side simulation.
//
// # Concurrency
//
// On the target the interrupt handler never interleaves with poll-context
// code. Here the handler runs in whichever goroutine calls Step, without any
// lock held, so two things differ when Run drives the model alongside
// delivery:
//
//   - A Group.Stop that overlaps an in-flight handler can see the handler
//     re-arm a transfer channel after halt aborted it. Stop the driving
//     goroutine before stopping the group when exact shutdown matters.
//   - Frame assembly reads a completed half while the model may already be
//     writing into it on the next pass. The single sequence word orders the
//     halves but does not guard their contents, so the race detector reports
//     the buffer access. A torn frame is counted by the assembler.
//
// # Usage
//
//	h := sim.New(sim.Options{Source: sim.Tone(16000, 24, 0.5, 440)})
//	group, err := capture.NewGroup(h, cfg, halfWords)
//	...
//	h.Step(wordsPerFrame) // one millisecond of capture
package sim
