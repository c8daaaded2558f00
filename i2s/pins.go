package i2s

import (
	"fmt"

	"github.com/ardnew/usbmic/pkg"
)

// Pin is a GPIO number.
type Pin uint8

// NumPins is the number of user GPIOs on the RP2040.
const NumPins = 30

// MaxLines is the number of data lines one sequencer block can capture.
const MaxLines = 4

// Default pin assignment (single data line).
const (
	DefaultDataPin      Pin = 2
	DefaultClockPin     Pin = 3
	DefaultFrameSyncPin Pin = 4
)

// Direction is a pin direction.
type Direction uint8

// Pin directions.
const (
	Input Direction = iota
	Output
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == Output {
		return "out"
	}
	return "in"
}

// Role names the function of a pin within the bus.
type Role uint8

// Pin roles.
const (
	RoleClock Role = iota
	RoleFrameSync
	RoleData
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClock:
		return "clock"
	case RoleFrameSync:
		return "frame-sync"
	case RoleData:
		return "data"
	default:
		return "unknown"
	}
}

// PinConfig is one pin's role and direction.
type PinConfig struct {
	Pin       Pin
	Role      Role
	Direction Direction
}

// Pins assigns GPIOs to the bus signals of one channel group.
type Pins struct {
	Clock     Pin   // Bit clock, driven by the sequencer
	FrameSync Pin   // Word select, input
	Data      []Pin // One serial data input per capture lane
}

// DefaultPins returns the single-line default assignment.
func DefaultPins() Pins {
	return Pins{
		Clock:     DefaultClockPin,
		FrameSync: DefaultFrameSyncPin,
		Data:      []Pin{DefaultDataPin},
	}
}

// Validate checks that every pin is in range and used once.
func (p Pins) Validate() error {
	if len(p.Data) == 0 || len(p.Data) > MaxLines {
		return fmt.Errorf("%w: %d data lines (want 1-%d)", pkg.ErrInvalidPin, len(p.Data), MaxLines)
	}
	var used [NumPins]bool
	for _, pc := range p.Directions() {
		if pc.Pin >= NumPins {
			return fmt.Errorf("%w: %s pin GPIO%d out of range", pkg.ErrInvalidPin, pc.Role, pc.Pin)
		}
		if used[pc.Pin] {
			return fmt.Errorf("%w: GPIO%d assigned twice", pkg.ErrInvalidPin, pc.Pin)
		}
		used[pc.Pin] = true
	}
	return nil
}

// Directions lists every pin with its role and direction: the clock is an
// output, frame sync and data lines are inputs.
func (p Pins) Directions() []PinConfig {
	out := make([]PinConfig, 0, 2+len(p.Data))
	out = append(out,
		PinConfig{Pin: p.Clock, Role: RoleClock, Direction: Output},
		PinConfig{Pin: p.FrameSync, Role: RoleFrameSync, Direction: Input},
	)
	for _, d := range p.Data {
		out = append(out, PinConfig{Pin: d, Role: RoleData, Direction: Input})
	}
	return out
}
