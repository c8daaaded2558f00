package pkg

import "errors"

// Configuration errors. All of these are fatal and detected at startup.
var (
	// ErrInvalidConfig indicates an inconsistent channel, rate or depth combination.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDivider indicates a sequencer clock divider outside hardware range.
	ErrInvalidDivider = errors.New("clock divider out of range")

	// ErrFrameSize indicates the bytes-per-frame value does not match the format.
	ErrFrameSize = errors.New("frame size mismatch")

	// ErrInvalidPin indicates a missing or duplicated pin assignment.
	ErrInvalidPin = errors.New("invalid pin assignment")

	// ErrInvalidLayout indicates a channel-to-line mapping that does not cover
	// every channel exactly once.
	ErrInvalidLayout = errors.New("invalid channel layout")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoResources indicates no free sequencer lane or transfer channel.
	ErrNoResources = errors.New("no resources available")
)

// Descriptor errors.
var (
	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrDescriptorMissing indicates a required descriptor was not found.
	ErrDescriptorMissing = errors.New("descriptor missing")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Runtime errors.
var (
	// ErrNotMounted indicates the audio function is not mounted by the host.
	ErrNotMounted = errors.New("audio function not mounted")

	// ErrShortWrite indicates the transport accepted fewer bytes than a frame.
	ErrShortWrite = errors.New("short write")

	// ErrAlreadyRunning indicates capture is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates capture is not running.
	ErrNotRunning = errors.New("not running")

	// ErrCancelled indicates a cancelled operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrProtocol indicates a malformed transport message.
	ErrProtocol = errors.New("protocol error")

	// ErrOverrun indicates a capture half was overwritten before it was read.
	ErrOverrun = errors.New("capture overrun")

	// ErrUnderrun indicates a capture half was read twice.
	ErrUnderrun = errors.New("capture underrun")
)

// DeliveryStatus represents the outcome of one delivery cycle.
type DeliveryStatus int

// Delivery status values.
const (
	DeliveryDelivered  DeliveryStatus = iota // Frame assembled and written
	DeliveryIdle                             // Streaming inactive, zero-bandwidth no-op
	DeliveryNotMounted                       // Audio function not mounted
	DeliveryFailed                           // Transport rejected the frame
)

// NumDeliveryStatus is the number of distinct delivery statuses.
const NumDeliveryStatus = 4

// String returns a string representation of the delivery status.
func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryDelivered:
		return "delivered"
	case DeliveryIdle:
		return "idle"
	case DeliveryNotMounted:
		return "not-mounted"
	case DeliveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Proceed reports whether the transport should go ahead with this interval.
// An idle interval proceeds with no payload.
func (s DeliveryStatus) Proceed() bool {
	return s == DeliveryDelivered || s == DeliveryIdle
}

// Error returns the corresponding error for the delivery status.
func (s DeliveryStatus) Error() error {
	switch s {
	case DeliveryDelivered, DeliveryIdle:
		return nil
	case DeliveryNotMounted:
		return ErrNotMounted
	case DeliveryFailed:
		return ErrShortWrite
	default:
		return ErrProtocol
	}
}
