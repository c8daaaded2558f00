package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/usbmic/pkg"
)

// Half selects one half of a [DoubleBuffer].
type Half uint32

// Buffer halves.
const (
	HalfA Half = 0
	HalfB Half = 1
)

// Other returns the opposite half.
func (h Half) Other() Half {
	return h ^ 1
}

// String returns "A" or "B".
func (h Half) String() string {
	if h == HalfA {
		return "A"
	}
	return "B"
}

// State is the observable state of a double buffer.
type State uint8

// Buffer states.
const (
	StateStopped  State = iota // No transfer armed
	StateWritingA              // Transfer writing half A, B readable
	StateWritingB              // Transfer writing half B, A readable
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateWritingA:
		return "writing-A"
	case StateWritingB:
		return "writing-B"
	default:
		return "unknown"
	}
}

// DoubleBuffer is a ping-pong pair of capture halves for one data line.
//
// seq counts completed transfers since the last start. Its low bit is the
// half the transfer engine is writing; the other half is readable. seq is
// written only by the completion interrupt and read by the poll context, so
// a single atomic add is the whole flip.
type DoubleBuffer struct {
	words   []uint32
	half    int
	seq     atomic.Uint32
	running atomic.Bool
}

// NewDoubleBuffer allocates a double buffer of two halves of halfWords words.
func NewDoubleBuffer(halfWords int) (*DoubleBuffer, error) {
	if halfWords < 1 {
		return nil, fmt.Errorf("%w: half size %d", pkg.ErrInvalidParameter, halfWords)
	}
	return &DoubleBuffer{
		words: make([]uint32, 2*halfWords),
		half:  halfWords,
	}, nil
}

// HalfWords returns the number of words in one half.
func (b *DoubleBuffer) HalfWords() int {
	return b.half
}

// Half returns the storage of half h.
func (b *DoubleBuffer) Half(h Half) []uint32 {
	off := int(h) * b.half
	return b.words[off : off+b.half : off+b.half]
}

// WriteTarget returns the half the transfer engine is filling.
func (b *DoubleBuffer) WriteTarget() Half {
	return Half(b.seq.Load() & 1)
}

// ReadTarget returns the half holding the latest completed capture.
func (b *DoubleBuffer) ReadTarget() Half {
	return b.WriteTarget().Other()
}

// Readable returns the latest completed half and the completion count it
// belongs to. Before the first completion the readable half is B, which
// holds zeros.
func (b *DoubleBuffer) Readable() ([]uint32, uint32) {
	seq := b.seq.Load()
	return b.Half(Half(seq&1) ^ 1), seq
}

// Sequence returns the number of completions since the last start.
func (b *DoubleBuffer) Sequence() uint32 {
	return b.seq.Load()
}

// Complete flips the write target and returns the half the transfer engine
// must be re-armed into. Called from interrupt context.
func (b *DoubleBuffer) Complete() []uint32 {
	return b.Half(Half(b.seq.Add(1) & 1))
}

// State returns the buffer state.
func (b *DoubleBuffer) State() State {
	if !b.running.Load() {
		return StateStopped
	}
	if b.WriteTarget() == HalfA {
		return StateWritingA
	}
	return StateWritingB
}

// start resets the buffer to a zeroed, writing-A state and returns half A.
func (b *DoubleBuffer) start() []uint32 {
	clear(b.words)
	b.seq.Store(0)
	b.running.Store(true)
	return b.Half(HalfA)
}

func (b *DoubleBuffer) stop() {
	b.running.Store(false)
}
