package audio

import (
	"errors"
	"testing"

	"github.com/ardnew/usbmic/pkg"
)

func TestFormat_FrameBytes(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		rate     int
		depth    int
		want     int
	}{
		{"6ch 16k 16bit", 6, 16000, 16, 192},
		{"2ch 48k 16bit", 2, 48000, 16, 192},
		{"1ch 16k 16bit", 1, 16000, 16, 32},
		{"2ch 48k 24bit", 2, 48000, 24, 288},
		{"6ch 48k 24bit", 6, 48000, 24, 864},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormat(tt.channels, tt.rate, tt.depth)
			if err := f.Validate(); err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if got := f.FrameBytes(); got != tt.want {
				t.Errorf("FrameBytes() = %d, want %d", got, tt.want)
			}
			if got := f.Channels * f.BytesPerSample() * (f.SampleRate / 1000); got != f.BytesPerFrame {
				t.Errorf("BytesPerFrame = %d, formula gives %d", f.BytesPerFrame, got)
			}
		})
	}
}

func TestFormat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr error
	}{
		{"zero channels", NewFormat(0, 16000, 16), pkg.ErrInvalidConfig},
		{"seven channels", NewFormat(7, 16000, 16), pkg.ErrInvalidConfig},
		{"20-bit", NewFormat(2, 48000, 20), pkg.ErrInvalidConfig},
		{"fractional rate", NewFormat(2, 44100, 16), pkg.ErrInvalidConfig},
		{"negative rate", NewFormat(2, -1000, 16), pkg.ErrInvalidConfig},
		{"frame mismatch", Format{Channels: 6, SampleRate: 16000, BitDepth: 16, BytesPerFrame: 96}, pkg.ErrFrameSize},
		{"valid", NewFormat(6, 16000, 16), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormat_Shift(t *testing.T) {
	if got := NewFormat(2, 48000, 16).Shift(); got != 16 {
		t.Errorf("16-bit shift = %d, want 16", got)
	}
	if got := NewFormat(2, 48000, 24).Shift(); got != 8 {
		t.Errorf("24-bit shift = %d, want 8", got)
	}
}

func TestFormat_String(t *testing.T) {
	if got := NewFormat(6, 16000, 16).String(); got != "6ch/16000Hz/16bit" {
		t.Errorf("String() = %q", got)
	}
}
