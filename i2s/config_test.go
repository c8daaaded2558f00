package i2s

import (
	"errors"
	"testing"

	"github.com/ardnew/usbmic/pkg"
)

func TestPins_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pins    Pins
		wantErr bool
	}{
		{"default", DefaultPins(), false},
		{"three lines", Pins{Clock: 3, FrameSync: 4, Data: []Pin{2, 5, 6}}, false},
		{"no data", Pins{Clock: 3, FrameSync: 4}, true},
		{"five lines", Pins{Clock: 3, FrameSync: 4, Data: []Pin{5, 6, 7, 8, 9}}, true},
		{"clock is data", Pins{Clock: 2, FrameSync: 4, Data: []Pin{2}}, true},
		{"duplicate data", Pins{Clock: 3, FrameSync: 4, Data: []Pin{5, 5}}, true},
		{"out of range", Pins{Clock: 30, FrameSync: 4, Data: []Pin{2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pins.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, pkg.ErrInvalidPin) {
				t.Errorf("Validate() = %v, want ErrInvalidPin", err)
			}
		})
	}
}

func TestPins_Directions(t *testing.T) {
	pins := Pins{Clock: 3, FrameSync: 4, Data: []Pin{2, 5}}
	dirs := pins.Directions()
	if len(dirs) != 4 {
		t.Fatalf("len(Directions()) = %d, want 4", len(dirs))
	}
	for _, pc := range dirs {
		want := Input
		if pc.Role == RoleClock {
			want = Output
		}
		if pc.Direction != want {
			t.Errorf("GPIO%d (%s) direction = %s, want %s", pc.Pin, pc.Role, pc.Direction, want)
		}
	}
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(DefaultSystemClockHz, 16000, DefaultPins(), DefaultTiming)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Divider.Int != 61 || cfg.Divider.Frac != 9 {
		t.Errorf("divider = %s, want 61+9/256", cfg.Divider)
	}
	if cfg.Lines() != 1 {
		t.Errorf("Lines() = %d, want 1", cfg.Lines())
	}
	if got := cfg.WordsPerSample(); got != 2 {
		t.Errorf("WordsPerSample() = %d, want 2", got)
	}
	if !cfg.Shift.AutoPush || cfg.Shift.PushThreshold != 32 || cfg.Shift.ShiftRight {
		t.Errorf("unexpected shift config %+v", cfg.Shift)
	}
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rate    uint32
		pins    Pins
		timing  Timing
		wantErr error
	}{
		{"bad pins", 16000, Pins{Clock: 3, FrameSync: 3, Data: []Pin{2}}, DefaultTiming, pkg.ErrInvalidPin},
		{"timing mismatch", 16000, DefaultPins(), Timing{CyclesPerBit: 4, BitsPerFrame: 64}, pkg.ErrInvalidConfig},
		{"divider", 2_000_000, DefaultPins(), DefaultTiming, pkg.ErrInvalidDivider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(DefaultSystemClockHz, tt.rate, tt.pins, tt.timing)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
