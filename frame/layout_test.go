package frame

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/pkg"
)

func TestDefaultLayout(t *testing.T) {
	tests := []struct {
		channels int
		want     [][]int
	}{
		{1, [][]int{{0, Unused}}},
		{2, [][]int{{0, 1}}},
		{3, [][]int{{0, 1}, {2, Unused}}},
		{6, [][]int{{0, 1}, {2, 3}, {4, 5}}},
	}
	for _, tt := range tests {
		l := DefaultLayout(tt.channels, 2)
		var got [][]int
		for _, line := range l.Lines {
			got = append(got, line.Slots)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DefaultLayout(%d) = %v, want %v", tt.channels, got, tt.want)
		}
		if err := l.Validate(tt.channels); err != nil {
			t.Errorf("DefaultLayout(%d).Validate() = %v", tt.channels, err)
		}
		if len(l.Lines) != LinesFor(tt.channels) {
			t.Errorf("LinesFor(%d) = %d, layout has %d", tt.channels, LinesFor(tt.channels), len(l.Lines))
		}
	}
}

func TestLayout_Validate(t *testing.T) {
	tests := []struct {
		name     string
		layout   Layout
		channels int
	}{
		{"zero stride", Layout{Stride: 0, Lines: []Line{{Slots: nil}}}, 1},
		{"no lines", Layout{Stride: 2}, 1},
		{"five lines", DefaultLayout(10, 2), 6},
		{"short line", Layout{Stride: 2, Lines: []Line{{Slots: []int{0}}}}, 1},
		{"duplicate", Layout{Stride: 2, Lines: []Line{{Slots: []int{0, 0}}}}, 1},
		{"missing", Layout{Stride: 2, Lines: []Line{{Slots: []int{0, Unused}}}}, 2},
		{"out of range", Layout{Stride: 2, Lines: []Line{{Slots: []int{0, 2}}}}, 2},
		{"negative", Layout{Stride: 2, Lines: []Line{{Slots: []int{0, -3}}}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.layout.Validate(tt.channels); !errors.Is(err, pkg.ErrInvalidLayout) {
				t.Errorf("Validate() = %v, want ErrInvalidLayout", err)
			}
		})
	}
}

func TestLayout_HalfWords(t *testing.T) {
	l := DefaultLayout(6, 2)
	if got := l.HalfWords(audio.NewFormat(6, 16000, 16)); got != 32 {
		t.Errorf("HalfWords() = %d, want 32", got)
	}
	if got := l.HalfWords(audio.NewFormat(6, 48000, 16)); got != 96 {
		t.Errorf("HalfWords() = %d, want 96", got)
	}
}
