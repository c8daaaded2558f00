package frame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/pkg"
)

// fakeSource is a double buffer whose halves the test writes directly.
type fakeSource struct {
	words []uint32
	seq   uint32
	// bump, when set, advances seq the first time Sequence is called after
	// Readable, simulating a completion during assembly.
	bump bool
}

func (f *fakeSource) Readable() ([]uint32, uint32) { return f.words, f.seq }

func (f *fakeSource) Sequence() uint32 {
	if f.bump {
		f.bump = false
		f.seq++
	}
	return f.seq
}

func encode(sample int32, depth int) uint32 {
	return uint32(sample) << (32 - depth)
}

func newSources(lines, halfWords int) ([]Source, []*fakeSource) {
	srcs := make([]Source, lines)
	fakes := make([]*fakeSource, lines)
	for i := range lines {
		fakes[i] = &fakeSource{words: make([]uint32, halfWords)}
		srcs[i] = fakes[i]
	}
	return srcs, fakes
}

func TestExtractSample(t *testing.T) {
	tests := []struct {
		word  uint32
		depth int
		want  int32
	}{
		{0x12345678, 16, 0x1234},
		{0x12345678, 24, 0x123456},
		{0xFFFF0000, 16, -1},
		{0x80000000, 16, -32768},
		{0x7FFFFFFF, 16, 32767},
		{0xFFFFFFFF, 24, -1},
		{0x0000FFFF, 16, 0}, // low bits truncated, not rounded
	}
	for _, tt := range tests {
		if got := ExtractSample(tt.word, tt.depth); got != tt.want {
			t.Errorf("ExtractSample(%#08x, %d) = %d, want %d", tt.word, tt.depth, got, tt.want)
		}
	}
}

func TestNewAssembler_Errors(t *testing.T) {
	format := audio.NewFormat(6, 16000, 16)

	srcs, _ := newSources(2, 32)
	if _, err := NewAssembler(format, DefaultLayout(6, 2), srcs); !errors.Is(err, pkg.ErrInvalidLayout) {
		t.Errorf("too few sources: %v, want ErrInvalidLayout", err)
	}

	srcs, _ = newSources(3, 16)
	if _, err := NewAssembler(format, DefaultLayout(6, 2), srcs); !errors.Is(err, pkg.ErrBufferTooSmall) {
		t.Errorf("short halves: %v, want ErrBufferTooSmall", err)
	}

	bad := format
	bad.BytesPerFrame = 100
	srcs, _ = newSources(3, 32)
	if _, err := NewAssembler(bad, DefaultLayout(6, 2), srcs); !errors.Is(err, pkg.ErrFrameSize) {
		t.Errorf("bad frame size: %v, want ErrFrameSize", err)
	}
}

// Six channels, 16 kHz, 16-bit: 16 samples × 6 channels × 2 bytes = 192.
func TestAssemble_SixChannelInterleave(t *testing.T) {
	format := audio.NewFormat(6, 16000, 16)
	layout := DefaultLayout(6, 2)
	srcs, fakes := newSources(3, layout.HalfWords(format))

	// Channel c, sample s carries value 100*c + s.
	for line, f := range fakes {
		for s := range 16 {
			f.words[2*s] = encode(int32(100*(2*line)+s), 16)
			f.words[2*s+1] = encode(int32(100*(2*line+1)+s), 16)
		}
	}

	asm, err := NewAssembler(format, layout, srcs)
	if err != nil {
		t.Fatalf("NewAssembler() = %v", err)
	}
	out := asm.Assemble()
	if len(out) != 192 {
		t.Fatalf("len = %d, want 192", len(out))
	}
	for s := range 16 {
		for c := range 6 {
			off := (s*6 + c) * 2
			got := int16(binary.LittleEndian.Uint16(out[off:]))
			if want := int16(100*c + s); got != want {
				t.Errorf("sample %d channel %d = %d, want %d", s, c, got, want)
			}
		}
	}
}

func TestAssemble_MonoIgnoresRightSlot(t *testing.T) {
	format := audio.NewFormat(1, 16000, 16)
	layout := DefaultLayout(1, 2)
	srcs, fakes := newSources(1, layout.HalfWords(format))
	for s := range 16 {
		fakes[0].words[2*s] = encode(int32(-s), 16)
		fakes[0].words[2*s+1] = 0xDEADBEEF
	}

	asm, _ := NewAssembler(format, layout, srcs)
	out := asm.Assemble()
	if len(out) != 32 {
		t.Fatalf("len = %d, want 32", len(out))
	}
	for s := range 16 {
		if got := int16(binary.LittleEndian.Uint16(out[2*s:])); got != int16(-s) {
			t.Errorf("sample %d = %d, want %d", s, got, -s)
		}
	}
}

func TestAssemble_24Bit(t *testing.T) {
	format := audio.NewFormat(2, 48000, 24)
	layout := DefaultLayout(2, 2)
	srcs, fakes := newSources(1, layout.HalfWords(format))
	fakes[0].words[0] = 0x123456AB
	fakes[0].words[1] = encode(-2, 24)

	asm, err := NewAssembler(format, layout, srcs)
	if err != nil {
		t.Fatal(err)
	}
	out := asm.Assemble()
	if len(out) != 288 {
		t.Fatalf("len = %d, want 288", len(out))
	}
	want := []byte{0x56, 0x34, 0x12, 0xFE, 0xFF, 0xFF}
	for i, b := range want {
		if out[i] != b {
			t.Errorf("byte %d = %#02x, want %#02x", i, out[i], b)
		}
	}
}

func TestAssemble_ZeroBuffersGiveSilence(t *testing.T) {
	format := audio.NewFormat(6, 16000, 16)
	srcs, _ := newSources(3, 32)
	asm, _ := NewAssembler(format, DefaultLayout(6, 2), srcs)
	for i, b := range asm.Assemble() {
		if b != 0 {
			t.Fatalf("byte %d = %#02x, want 0", i, b)
		}
	}
}

func TestAssemble_CustomLayout(t *testing.T) {
	// Two lines, swapped: line 1 carries channels 0 and 1.
	format := audio.NewFormat(3, 16000, 16)
	layout := Layout{Stride: 2, Lines: []Line{
		{Slots: []int{2, Unused}},
		{Slots: []int{1, 0}},
	}}
	srcs, fakes := newSources(2, 32)
	fakes[0].words[0] = encode(22, 16)
	fakes[1].words[0] = encode(11, 16)
	fakes[1].words[1] = encode(10, 16)

	asm, err := NewAssembler(format, layout, srcs)
	if err != nil {
		t.Fatal(err)
	}
	out := asm.Assemble()
	for c, want := range []int16{10, 11, 22} {
		if got := int16(binary.LittleEndian.Uint16(out[2*c:])); got != want {
			t.Errorf("channel %d = %d, want %d", c, got, want)
		}
	}
}

func TestAssemble_Diagnostics(t *testing.T) {
	format := audio.NewFormat(2, 16000, 16)
	srcs, fakes := newSources(1, 32)
	asm, _ := NewAssembler(format, DefaultLayout(2, 2), srcs)
	f := fakes[0]

	f.seq = 1
	asm.Assemble() // primes
	f.seq = 2
	asm.Assemble() // in step
	asm.Assemble() // same half again
	f.seq = 5
	asm.Assemble() // skipped 3 and 4
	f.seq = 6
	f.bump = true
	asm.Assemble() // completion lands mid-assembly

	st := asm.Stats()
	if st.Frames != 5 || st.Underruns != 1 || st.Overruns != 2 || st.Tears != 1 {
		t.Errorf("Stats() = %+v, want 5 frames, 1 underrun, 2 overruns, 1 tear", st)
	}

	asm.Reset()
	f.seq = 20
	asm.Assemble()
	if got := asm.Stats().Overruns; got != 2 {
		t.Errorf("overruns after Reset = %d, want 2", got)
	}
}

func TestAssemble_SequenceRestart(t *testing.T) {
	format := audio.NewFormat(2, 16000, 16)
	srcs, fakes := newSources(1, 32)
	asm, _ := NewAssembler(format, DefaultLayout(2, 2), srcs)
	f := fakes[0]

	f.seq = 40
	asm.Assemble()
	f.seq = 41
	asm.Assemble()

	// Buffers restarted from zero without a Reset.
	f.seq = 1
	asm.Assemble()
	if st := asm.Stats(); st.Overruns != 0 || st.Underruns != 0 {
		t.Fatalf("Stats() after restart = %+v, want no faults", st)
	}

	f.seq = 3
	asm.Assemble()
	if got := asm.Stats().Overruns; got != 1 {
		t.Errorf("overruns after new baseline = %d, want 1", got)
	}
}

func TestAssemble_NoAllocs(t *testing.T) {
	format := audio.NewFormat(6, 48000, 24)
	srcs, _ := newSources(3, 96)
	asm, _ := NewAssembler(format, DefaultLayout(6, 2), srcs)
	allocs := testing.AllocsPerRun(100, func() { asm.Assemble() })
	if allocs != 0 {
		t.Errorf("Assemble allocates %.0f times per call", allocs)
	}
}
