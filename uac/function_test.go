package uac

import (
	"errors"
	"testing"

	"github.com/ardnew/usbmic/pkg"
)

func TestFunction_Streaming(t *testing.T) {
	f := NewFunction()
	var events []bool
	f.SetOnStreaming(func(s bool) { events = append(events, s) })

	if f.Streaming() {
		t.Fatal("new function is streaming")
	}
	if err := f.SetAlternate(AltStreaming); err != nil {
		t.Fatal(err)
	}
	if f.Streaming() {
		t.Error("streaming while unmounted")
	}

	f.Mount()
	if !f.Streaming() {
		t.Error("not streaming after mount with alt 1")
	}
	f.Suspend()
	if f.Streaming() {
		t.Error("streaming while suspended")
	}
	f.Resume()
	_ = f.SetAlternate(AltZeroBandwidth)
	_ = f.SetAlternate(AltStreaming)
	f.Unmount()
	if f.Alternate() != AltZeroBandwidth {
		t.Errorf("Alternate() after unmount = %d", f.Alternate())
	}

	want := []bool{true, false, true, false, true, false}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestFunction_SetAlternateInvalid(t *testing.T) {
	f := NewFunction()
	if err := f.SetAlternate(2); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("SetAlternate(2) = %v, want ErrInvalidParameter", err)
	}
}
