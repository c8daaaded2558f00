package sim

import (
	"math"
	"math/rand/v2"
)

// Source produces the serial bus contents seen by the capture lanes.
//
// Word returns the 32-bit MSB-aligned capture word for data line line,
// word slot slot within the sample period (0 is the left slot), and sample
// index index.
type Source interface {
	Word(line, slot int, index uint64) uint32
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(line, slot int, index uint64) uint32

// Word calls f.
func (f SourceFunc) Word(line, slot int, index uint64) uint32 {
	return f(line, slot, index)
}

// Encode places a depth-bit signed sample in the top bits of a capture word,
// as a microphone shifting it out MSB first would.
func Encode(sample int32, depth int) uint32 {
	return uint32(sample) << (32 - depth)
}

// Silence produces all-zero capture words.
func Silence() Source {
	return SourceFunc(func(int, int, uint64) uint32 { return 0 })
}

// Counter produces words that identify their own position: line in bits
// 31..28, slot in bits 27..24 and the low 24 bits of the sample index below.
func Counter() Source {
	return SourceFunc(func(line, slot int, index uint64) uint32 {
		return uint32(line&0xF)<<28 | uint32(slot&0xF)<<24 | uint32(index&0xFFFFFF)
	})
}

// Constant produces the same word for every slot.
func Constant(word uint32) Source {
	return SourceFunc(func(int, int, uint64) uint32 { return word })
}

// Tone produces a sine wave per word slot. Frequencies are assigned to
// (line, slot) pairs in order: line 0 left, line 0 right, line 1 left, and
// so on. Slots past the end of freqs repeat the last frequency.
// Amplitude is a fraction of full scale.
func Tone(sampleRate, depth int, amplitude float64, freqs ...float64) Source {
	if len(freqs) == 0 {
		freqs = []float64{440}
	}
	full := float64(int64(1)<<(depth-1) - 1)
	return SourceFunc(func(line, slot int, index uint64) uint32 {
		i := line*2 + slot
		if i >= len(freqs) {
			i = len(freqs) - 1
		}
		t := float64(index) / float64(sampleRate)
		v := amplitude * full * math.Sin(2*math.Pi*freqs[i]*t)
		return Encode(int32(v), depth)
	})
}

// Noise produces uniformly distributed words from a seeded generator.
func Noise(seed uint64) Source {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	return SourceFunc(func(int, int, uint64) uint32 { return r.Uint32() })
}
