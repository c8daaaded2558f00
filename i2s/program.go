package i2s

// Instruction is one encoded 16-bit sequencer instruction.
type Instruction uint16

// Opcodes (bits 15:13).
const (
	opJmp  = 0b000 << 13
	opWait = 0b001 << 13
	opIn   = 0b010 << 13
	opPush = 0b100 << 13
	opMov  = 0b101 << 13
	opSet  = 0b111 << 13
)

// JmpCondition selects the jump condition.
type JmpCondition uint8

// Jump conditions.
const (
	JmpAlways JmpCondition = iota
	JmpXZero
	JmpXDec
	JmpYZero
	JmpYDec
	JmpXNotY
	JmpPin
	JmpOSRNotEmpty
)

// InSource selects the source of an IN instruction.
type InSource uint8

// IN sources.
const (
	InPins InSource = 0b000
	InX    InSource = 0b001
	InY    InSource = 0b010
	InNull InSource = 0b011
	InISR  InSource = 0b110
	InOSR  InSource = 0b111
)

// SetDest selects the destination of a SET instruction.
type SetDest uint8

// SET destinations.
const (
	SetPins    SetDest = 0b000
	SetX       SetDest = 0b001
	SetY       SetDest = 0b010
	SetPindirs SetDest = 0b100
)

// Jmp encodes "jmp cond addr".
func Jmp(cond JmpCondition, addr uint8) Instruction {
	return Instruction(opJmp | uint16(cond&0x7)<<5 | uint16(addr&0x1F))
}

// WaitGPIO encodes "wait polarity gpio n".
func WaitGPIO(polarity uint8, gpio Pin) Instruction {
	return Instruction(opWait | uint16(polarity&1)<<7 | uint16(gpio&0x1F))
}

// WaitPin encodes "wait polarity pin n" (relative to the IN base).
func WaitPin(polarity uint8, index uint8) Instruction {
	return Instruction(opWait | uint16(polarity&1)<<7 | 0b01<<5 | uint16(index&0x1F))
}

// In encodes "in src, bits". A count of 32 is encoded as 0.
func In(src InSource, bits uint8) Instruction {
	return Instruction(opIn | uint16(src&0x7)<<5 | uint16(bits&0x1F))
}

// Push encodes "push [iffull] [block|noblock]".
func Push(ifFull, block bool) Instruction {
	i := uint16(opPush)
	if ifFull {
		i |= 1 << 6
	}
	if block {
		i |= 1 << 5
	}
	return Instruction(i)
}

// Set encodes "set dest, data".
func Set(dest SetDest, data uint8) Instruction {
	return Instruction(opSet | uint16(dest&0x7)<<5 | uint16(data&0x1F))
}

// Nop encodes "mov y, y".
func Nop() Instruction {
	return Instruction(opMov | 0b010<<5 | 0b010)
}

// Side sets the side-set value, given the program's side-set bit count.
// Side-set occupies the most significant bits of the delay field.
func (i Instruction) Side(value, sideSetBits uint8) Instruction {
	if sideSetBits == 0 {
		return i
	}
	shift := 8 + 5 - sideSetBits
	mask := uint16(1)<<sideSetBits - 1
	return Instruction(uint16(i)&^(mask<<shift) | uint16(value)&mask<<shift)
}

// Delay sets the delay cycles, given the program's side-set bit count.
func (i Instruction) Delay(cycles, sideSetBits uint8) Instruction {
	mask := uint16(1)<<(5-sideSetBits) - 1
	return Instruction(uint16(i)&^(mask<<8) | uint16(cycles)&mask<<8)
}

// Program is an assembled sequencer program.
type Program struct {
	Instructions []uint16
	Origin       int8  // Load address, or -1 for relocatable
	WrapTarget   uint8 // First instruction of the steady-state loop
	Wrap         uint8 // Last instruction of the steady-state loop
	SideSetBits  uint8 // Side-set pins (bit clock)
}

// Relocate returns the instructions with jump targets offset for loading at
// offset. The capture program contains no jumps; Relocate exists for
// programs built by callers.
func (p Program) Relocate(offset uint8) []uint16 {
	out := make([]uint16, len(p.Instructions))
	for i, instr := range p.Instructions {
		if instr&0xE000 == opJmp {
			addr := (instr&0x1F + uint16(offset)) & 0x1F
			instr = instr&^0x1F | addr
		}
		out[i] = instr
	}
	return out
}

// captureSideSet is the side-set width of the capture program (bit clock only).
const captureSideSet = 1

// CaptureProgram assembles the I2S receive program for the given frame-sync
// GPIO:
//
//	.side_set 1
//	    wait 1 gpio fs  side 0   ; right slot in progress
//	    wait 0 gpio fs  side 0   ; left slot starts
//	    nop             side 0   ; clock out the one-bit I2S delay
//	    nop             side 1
//	.wrap_target
//	    nop             side 0
//	    in pins, 1      side 1   ; sample on the rising edge
//	.wrap
//
// Autopush at 32 bits produces alternating left and right slot words.
func CaptureProgram(frameSync Pin) Program {
	const s = captureSideSet
	return Program{
		Instructions: []uint16{
			uint16(WaitGPIO(1, frameSync).Side(0, s)),
			uint16(WaitGPIO(0, frameSync).Side(0, s)),
			uint16(Nop().Side(0, s)),
			uint16(Nop().Side(1, s)),
			uint16(Nop().Side(0, s)),
			uint16(In(InPins, 1).Side(1, s)),
		},
		Origin:      -1,
		WrapTarget:  4,
		Wrap:        5,
		SideSetBits: s,
	}
}

// CyclesPerBit returns the number of sequencer cycles in the steady-state
// loop, which samples one bit per pass.
func (p Program) CyclesPerBit() uint32 {
	if p.Wrap < p.WrapTarget {
		return 0
	}
	return uint32(p.Wrap-p.WrapTarget) + 1
}

// ShiftConfig describes the input shift register.
type ShiftConfig struct {
	ShiftRight    bool  // false: MSB first
	AutoPush      bool  // Push automatically at PushThreshold
	PushThreshold uint8 // Fixed word width in bits
	JoinRX        bool  // Join TX FIFO into RX for 8-deep capture buffering
}

// DefaultShift shifts MSB first and pushes one 32-bit word per slot.
var DefaultShift = ShiftConfig{
	ShiftRight:    false,
	AutoPush:      true,
	PushThreshold: 32,
	JoinRX:        true,
}
