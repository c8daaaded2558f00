// Package uac implements the device side of a USB Audio Class 2.0
// microphone function: mount and streaming state, the per-frame delivery
// trigger, and the configuration descriptor that declares the stream
// format to the host.
//
// Enumeration, control transfers and the isochronous endpoint itself belong
// to the USB device stack. This package only needs a [Transport] that
// accepts one frame per write, and event calls ([Function.Mount],
// [Function.SetAlternate] and friends) from the stack's event context.
//
// # Delivery
//
// The stack asks for data once per 1 ms frame by calling
// [Trigger.PreLoad]. The trigger never blocks:
//
//	not mounted          -> decline (false)
//	mounted, alt 0       -> proceed, no payload
//	mounted, streaming   -> assemble one frame, write it, proceed
//
// # Descriptors
//
// [Descriptor] builds the full configuration descriptor: interface
// association, audio control interface with clock source, input terminal,
// feature unit and output terminal, and an audio streaming interface with a
// zero-bandwidth alternate 0 and a streaming alternate 1. [ParseFormat]
// recovers the stream format from such a descriptor.
package uac
