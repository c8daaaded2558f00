package uac

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/usbmic/pkg"
)

// Transport accepts one isochronous frame per write.
type Transport interface {
	Write(p []byte) (int, error)
}

// Assembler produces the next frame payload.
type Assembler interface {
	Assemble() []byte
}

// DeliveryStats counts delivery outcomes by status.
type DeliveryStats [pkg.NumDeliveryStatus]uint64

// Delivered returns the number of frames written.
func (s DeliveryStats) Delivered() uint64 { return s[pkg.DeliveryDelivered] }

// Idle returns the number of zero-bandwidth intervals.
func (s DeliveryStats) Idle() uint64 { return s[pkg.DeliveryIdle] }

// NotMounted returns the number of declined intervals.
func (s DeliveryStats) NotMounted() uint64 { return s[pkg.DeliveryNotMounted] }

// Failed returns the number of rejected writes.
func (s DeliveryStats) Failed() uint64 { return s[pkg.DeliveryFailed] }

// Trigger runs one delivery cycle per USB frame interval.
type Trigger struct {
	fn        *Function
	asm       Assembler
	transport Transport
	frameSize int

	counts  [pkg.NumDeliveryStatus]atomic.Uint64
	last    atomic.Int32
	onStart func()
	active  func() bool
}

// NewTrigger returns a trigger that writes frameSize-byte frames from asm to
// transport while fn is streaming.
func NewTrigger(fn *Function, asm Assembler, transport Transport, frameSize int) (*Trigger, error) {
	if fn == nil || asm == nil || transport == nil || frameSize < 1 {
		return nil, fmt.Errorf("%w: incomplete delivery trigger", pkg.ErrInvalidParameter)
	}
	t := &Trigger{
		fn:        fn,
		asm:       asm,
		transport: transport,
		frameSize: frameSize,
	}
	t.last.Store(-1)
	return t, nil
}

// SetOnStreamStart sets a callback run before the first frame of each
// streaming run, in poll context.
func (t *Trigger) SetOnStreamStart(cb func()) {
	t.onStart = cb
}

// SetCaptureActive sets the check for a running capture source. While it
// reports false a streaming interval is idle rather than a replay of the
// last buffers; the next active interval counts as a stream start.
func (t *Trigger) SetCaptureActive(active func() bool) {
	t.active = active
}

// Deliver runs one delivery cycle and reports its outcome.
// It must not be called concurrently with itself.
func (t *Trigger) Deliver() pkg.DeliveryStatus {
	status := t.deliver()
	t.counts[status].Add(1)

	if prev := pkg.DeliveryStatus(t.last.Swap(int32(status))); prev != status {
		pkg.LogDebug(pkg.ComponentDelivery, "delivery status changed",
			"from", prev, "to", status)
	}
	return status
}

func (t *Trigger) deliver() pkg.DeliveryStatus {
	if !t.fn.Mounted() {
		return pkg.DeliveryNotMounted
	}
	if !t.fn.Streaming() {
		return pkg.DeliveryIdle
	}
	if t.active != nil && !t.active() {
		return pkg.DeliveryIdle
	}

	if t.onStart != nil {
		switch pkg.DeliveryStatus(t.last.Load()) {
		case pkg.DeliveryDelivered, pkg.DeliveryFailed:
		default:
			t.onStart()
		}
	}

	frame := t.asm.Assemble()
	n, err := t.transport.Write(frame)
	if err != nil || n != t.frameSize || len(frame) != t.frameSize {
		pkg.LogDebug(pkg.ComponentDelivery, "frame rejected",
			"written", n, "frameSize", t.frameSize, "error", err)
		return pkg.DeliveryFailed
	}
	return pkg.DeliveryDelivered
}

// PreLoad is the transport's per-interval hook. It returns false only when
// the function is not mounted.
func (t *Trigger) PreLoad() bool {
	return t.Deliver().Proceed()
}

// Stats returns a snapshot of the delivery counters.
func (t *Trigger) Stats() DeliveryStats {
	var s DeliveryStats
	for i := range t.counts {
		s[i] = t.counts[i].Load()
	}
	return s
}
