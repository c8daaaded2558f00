// Package frame converts raw capture words into one USB frame of
// interleaved PCM.
//
// A [Layout] describes where each host channel lives in the capture
// buffers: which data line carries it and at which word offset within each
// sample period. With a standard I2S bus every line carries a left and a
// right slot, so the stride is two words per sample and each line feeds at
// most two channels.
//
// The [Assembler] reads the latest completed half of every line's double
// buffer, extracts the top bit-depth bits of each selected word with sign
// extension, and writes them little-endian in sample-major, channel-minor
// order. Its output buffer is allocated once; [Assembler.Assemble] never
// allocates.
//
// # Example
//
//	layout := frame.DefaultLayout(6, 2)
//	asm, err := frame.NewAssembler(format, layout, sources)
//	...
//	payload := asm.Assemble() // format.BytesPerFrame bytes
package frame
