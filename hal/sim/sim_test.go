package sim

import (
	"errors"
	"testing"

	"github.com/ardnew/usbmic/hal"
	"github.com/ardnew/usbmic/i2s"
	"github.com/ardnew/usbmic/pkg"
)

func testConfig(t *testing.T) *i2s.Config {
	t.Helper()
	cfg, err := i2s.NewConfig(i2s.DefaultSystemClockHz, 16000, i2s.DefaultPins(), i2s.DefaultTiming)
	if err != nil {
		t.Fatalf("NewConfig() = %v", err)
	}
	return cfg
}

func TestHAL_ClaimExhaustion(t *testing.T) {
	h := New(Options{Lanes: 2, DMAChannels: 1})

	for i := range 2 {
		if _, err := h.ClaimLane(); err != nil {
			t.Fatalf("ClaimLane(%d) = %v", i, err)
		}
	}
	if _, err := h.ClaimLane(); !errors.Is(err, pkg.ErrNoResources) {
		t.Errorf("ClaimLane() = %v, want ErrNoResources", err)
	}

	d, err := h.ClaimDMA()
	if err != nil {
		t.Fatalf("ClaimDMA() = %v", err)
	}
	if _, err := h.ClaimDMA(); !errors.Is(err, pkg.ErrNoResources) {
		t.Errorf("ClaimDMA() = %v, want ErrNoResources", err)
	}
	d.Release()
	if _, err := h.ClaimDMA(); err != nil {
		t.Errorf("ClaimDMA() after release = %v", err)
	}
}

func TestHAL_TransferAndInterrupt(t *testing.T) {
	h := New(Options{Source: Counter()})
	cfg := testConfig(t)

	lane, _ := h.ClaimLane()
	if err := lane.Configure(cfg, 0); err != nil {
		t.Fatalf("Configure() = %v", err)
	}
	dma, _ := h.ClaimDMA()
	if err := dma.Configure(lane); err != nil {
		t.Fatalf("Configure() = %v", err)
	}

	var calls int
	h.SetInterruptHandler(func() {
		if dma.Acknowledge() {
			calls++
		}
	})
	h.SetInterruptEnabled(true)
	dma.SetInterruptEnabled(true)

	dst := make([]uint32, 4)
	dma.Arm(dst)
	h.StartLanes([]hal.Lane{lane})

	h.Step(3)
	if calls != 0 {
		t.Fatalf("handler ran after 3 of 4 words")
	}
	h.Step(1)
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	// Two words per sample: slots alternate 0,1 and the index advances every two words.
	want := []uint32{0x00000000, 0x01000000, 0x00000001, 0x01000001}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %#08x, want %#08x", i, dst[i], want[i])
		}
	}
}

func TestHAL_FIFOStallWhenNotRearmed(t *testing.T) {
	h := New(Options{Source: Constant(1)})
	cfg := testConfig(t)

	lane, _ := h.ClaimLane()
	_ = lane.Configure(cfg, 0)
	dma, _ := h.ClaimDMA()
	_ = dma.Configure(lane)
	dma.Arm(make([]uint32, 2))
	h.StartLanes([]hal.Lane{lane})

	// 2 words fill the buffer, 8 fill the FIFO, the rest are dropped.
	h.Step(2 + FIFODepth + 5)

	sl := h.Lane(0)
	if got := sl.Stalls(); got != 5 {
		t.Errorf("Stalls() = %d, want 5", got)
	}
	if dma.(*DMAChannel).Busy() {
		t.Error("channel still busy after count expired")
	}
	if !dma.Acknowledge() {
		t.Error("completion not pending")
	}
}

func TestHAL_InterruptDisabled(t *testing.T) {
	h := New(Options{})
	cfg := testConfig(t)

	lane, _ := h.ClaimLane()
	_ = lane.Configure(cfg, 0)
	dma, _ := h.ClaimDMA()
	_ = dma.Configure(lane)
	dma.SetInterruptEnabled(true)

	var calls int
	h.SetInterruptHandler(func() { calls++ })
	dma.Arm(make([]uint32, 1))
	h.StartLanes([]hal.Lane{lane})
	h.Step(1)

	raised, dispatched := h.Interrupts()
	if raised != 1 || dispatched != 0 || calls != 0 {
		t.Errorf("raised=%d dispatched=%d calls=%d, want 1/0/0", raised, dispatched, calls)
	}
}

func TestLane_ConfigureRejectsBadLine(t *testing.T) {
	h := New(Options{})
	lane, _ := h.ClaimLane()
	if err := lane.Configure(testConfig(t), 3); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Configure(line 3) = %v, want ErrInvalidParameter", err)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		sample int32
		depth  int
		want   uint32
	}{
		{1, 16, 0x00010000},
		{-1, 16, 0xFFFF0000},
		{0x123456, 24, 0x12345600},
		{-2, 24, 0xFFFFFE00},
	}
	for _, tt := range tests {
		if got := Encode(tt.sample, tt.depth); got != tt.want {
			t.Errorf("Encode(%d, %d) = %#08x, want %#08x", tt.sample, tt.depth, got, tt.want)
		}
	}
}

func TestTone_Bounded(t *testing.T) {
	src := Tone(16000, 16, 1.0, 1000)
	for i := range uint64(64) {
		v := int32(src.Word(0, 0, i)) >> 16
		if v > 32767 || v < -32767 {
			t.Fatalf("sample %d = %d out of range", i, v)
		}
	}
	if got := src.Word(0, 0, 0); got != 0 {
		t.Errorf("sin(0) word = %#08x, want 0", got)
	}
}
