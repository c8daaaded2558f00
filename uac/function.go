package uac

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmic/pkg"
)

// Function tracks the host-visible state of the audio function.
//
// State is written from the USB stack's event context and read by the
// delivery trigger; every field is atomic so neither side blocks.
type Function struct {
	mounted   atomic.Bool
	suspended atomic.Bool
	alt       atomic.Uint32

	mutex       sync.RWMutex
	onStreaming func(streaming bool)
}

// NewFunction returns an unmounted function.
func NewFunction() *Function {
	return &Function{}
}

// SetOnStreaming sets the callback invoked when streaming starts or stops.
// It runs in the caller's context of the event that caused the change.
func (f *Function) SetOnStreaming(cb func(streaming bool)) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.onStreaming = cb
}

// Mounted reports whether the host has configured the device.
func (f *Function) Mounted() bool {
	return f.mounted.Load()
}

// Alternate returns the active streaming alternate setting.
func (f *Function) Alternate() uint8 {
	return uint8(f.alt.Load())
}

// Suspended reports whether the bus is suspended.
func (f *Function) Suspended() bool {
	return f.suspended.Load()
}

// Streaming reports whether frames should be delivered: mounted, not
// suspended, and the streaming alternate selected.
func (f *Function) Streaming() bool {
	return f.mounted.Load() && !f.suspended.Load() && f.alt.Load() != AltZeroBandwidth
}

// Mount records that the host configured the device.
func (f *Function) Mount() {
	f.update(func() {
		f.mounted.Store(true)
		f.suspended.Store(false)
	})
	pkg.LogInfo(pkg.ComponentDelivery, "mounted")
}

// Unmount records that the device was deconfigured or detached.
// The alternate setting returns to zero bandwidth.
func (f *Function) Unmount() {
	f.update(func() {
		f.mounted.Store(false)
		f.alt.Store(AltZeroBandwidth)
	})
	pkg.LogInfo(pkg.ComponentDelivery, "unmounted")
}

// SetAlternate selects the streaming interface alternate setting.
func (f *Function) SetAlternate(alt uint8) error {
	if alt != AltZeroBandwidth && alt != AltStreaming {
		return fmt.Errorf("%w: alternate setting %d", pkg.ErrInvalidParameter, alt)
	}
	f.update(func() {
		f.alt.Store(uint32(alt))
	})
	pkg.LogDebug(pkg.ComponentDelivery, "alternate setting", "alt", alt)
	return nil
}

// Suspend records a bus suspend.
func (f *Function) Suspend() {
	f.update(func() { f.suspended.Store(true) })
	pkg.LogDebug(pkg.ComponentDelivery, "suspended")
}

// Resume records a bus resume.
func (f *Function) Resume() {
	f.update(func() { f.suspended.Store(false) })
	pkg.LogDebug(pkg.ComponentDelivery, "resumed")
}

func (f *Function) update(change func()) {
	before := f.Streaming()
	change()
	after := f.Streaming()
	if before == after {
		return
	}

	f.mutex.RLock()
	cb := f.onStreaming
	f.mutex.RUnlock()

	pkg.LogInfo(pkg.ComponentDelivery, "streaming changed", "streaming", after)
	if cb != nil {
		cb(after)
	}
}
