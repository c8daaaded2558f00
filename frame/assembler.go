package frame

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/pkg"
)

// Source is the readable side of one line's double buffer.
type Source interface {
	// Readable returns the latest completed half and its completion count.
	Readable() ([]uint32, uint32)

	// Sequence returns the current completion count.
	Sequence() uint32
}

// ExtractSample returns the top depth bits of an MSB-aligned capture word,
// sign-extended. Lower bits are truncated.
func ExtractSample(word uint32, depth int) int32 {
	return int32(word) >> (audio.CaptureWordBits - depth)
}

// route locates one host channel in the capture buffers.
type route struct {
	line   int
	offset int
}

// Stats holds assembler diagnostics.
type Stats struct {
	Frames    uint64 // Frames assembled
	Overruns  uint64 // Completed halves never read
	Underruns uint64 // Halves read more than once
	Tears     uint64 // Assemblies overlapped by a completion
}

// Assembler builds interleaved PCM frames from capture buffers.
//
// Assemble is not safe for concurrent use; Stats is.
type Assembler struct {
	format  audio.Format
	stride  int
	shift   uint
	bytes   int
	routes  []route
	sources []Source

	halves [][]uint32
	seqs   []uint32
	primed atomic.Bool
	out    []byte

	frames    atomic.Uint64
	overruns  atomic.Uint64
	underruns atomic.Uint64
	tears     atomic.Uint64
}

// NewAssembler validates format and layout against each other and the
// sources, and allocates the output buffer.
func NewAssembler(format audio.Format, layout Layout, sources []Source) (*Assembler, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if err := layout.Validate(format.Channels); err != nil {
		return nil, err
	}
	if len(sources) != len(layout.Lines) {
		return nil, fmt.Errorf("%w: %d sources for %d lines",
			pkg.ErrInvalidLayout, len(sources), len(layout.Lines))
	}

	a := &Assembler{
		format:  format,
		stride:  layout.Stride,
		shift:   format.Shift(),
		bytes:   format.BytesPerSample(),
		routes:  make([]route, format.Channels),
		sources: sources,
		halves:  make([][]uint32, len(sources)),
		seqs:    make([]uint32, len(sources)),
		out:     make([]byte, format.BytesPerFrame),
	}
	for i, line := range layout.Lines {
		for s, ch := range line.Slots {
			if ch != Unused {
				a.routes[ch] = route{line: i, offset: s}
			}
		}
	}

	need := layout.HalfWords(format)
	for i, src := range sources {
		if words, _ := src.Readable(); len(words) < need {
			return nil, fmt.Errorf("%w: line %d half holds %d words, frame needs %d",
				pkg.ErrBufferTooSmall, i, len(words), need)
		}
	}
	return a, nil
}

// Format returns the output format.
func (a *Assembler) Format() audio.Format {
	return a.format
}

// Assemble builds one frame from the latest completed half of every line.
// The returned slice is reused by the next call.
func (a *Assembler) Assemble() []byte {
	primed := a.primed.Swap(true)
	for i, src := range a.sources {
		words, seq := src.Readable()
		if primed {
			a.account(i, seq-a.seqs[i])
		}
		a.halves[i] = words
		a.seqs[i] = seq
	}

	out := a.out
	pos := 0
	n := a.format.SamplesPerFrame()
	for s := range n {
		base := s * a.stride
		for _, r := range a.routes {
			v := int32(a.halves[r.line][base+r.offset]) >> a.shift
			out[pos] = byte(v)
			out[pos+1] = byte(v >> 8)
			if a.bytes == 3 {
				out[pos+2] = byte(v >> 16)
			}
			pos += a.bytes
		}
	}

	for i, src := range a.sources {
		if src.Sequence() != a.seqs[i] {
			a.tears.Add(1)
			break
		}
	}
	a.frames.Add(1)
	return out
}

// account records the completions line i made since the previous frame.
// A negative delta means the buffers restarted and is only a new baseline.
func (a *Assembler) account(line int, d uint32) {
	switch {
	case d == 0:
		a.underruns.Add(1)
		if pkg.LogEnabled(slog.LevelDebug) {
			pkg.LogDebug(pkg.ComponentAssembler, "half read twice",
				"line", line, "error", pkg.ErrUnderrun)
		}
	case int32(d) < 0:
		pkg.LogInfo(pkg.ComponentAssembler, "capture sequence restarted", "line", line)
	case d > 1:
		a.overruns.Add(uint64(d - 1))
		if pkg.LogEnabled(slog.LevelDebug) {
			pkg.LogDebug(pkg.ComponentAssembler, "halves overwritten unread",
				"line", line, "missed", d-1, "error", pkg.ErrOverrun)
		}
	}
}

// Reset forgets the last observed completion counts, so the next Assemble
// does not count the gap since the previous one. Call after a pause in
// streaming or a capture restart. Safe to call concurrently with Assemble.
func (a *Assembler) Reset() {
	a.primed.Store(false)
}

// Stats returns a snapshot of the diagnostic counters.
func (a *Assembler) Stats() Stats {
	return Stats{
		Frames:    a.frames.Load(),
		Overruns:  a.overruns.Load(),
		Underruns: a.underruns.Load(),
		Tears:     a.tears.Load(),
	}
}
