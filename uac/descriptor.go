package uac

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbmic/audio"
	"github.com/ardnew/usbmic/pkg"
)

// USB descriptor types used by the function.
const (
	DescriptorTypeConfiguration        = 0x02
	DescriptorTypeInterface            = 0x04
	DescriptorTypeEndpoint             = 0x05
	DescriptorTypeInterfaceAssociation = 0x0B
	DescriptorTypeCSInterface          = 0x24 // Class-specific interface
	DescriptorTypeCSEndpoint           = 0x25 // Class-specific endpoint
)

// Audio class codes (UAC2 Appendix A).
const (
	ClassAudio = 0x01

	SubclassUndefined      = 0x00
	SubclassAudioControl   = 0x01
	SubclassAudioStreaming = 0x02

	ProtocolVersion2 = 0x20 // IP_VERSION_02_00 / AF_VERSION_02_00

	CategoryMicrophone = 0x03
)

// Audio control interface descriptor subtypes.
const (
	ACHeader         = 0x01
	ACInputTerminal  = 0x02
	ACOutputTerminal = 0x03
	ACFeatureUnit    = 0x06
	ACClockSource    = 0x0A
)

// Audio streaming interface descriptor subtypes.
const (
	ASGeneral    = 0x01
	ASFormatType = 0x02
)

// Terminal types.
const (
	TerminalUSBStreaming = 0x0101
	TerminalMicrophone   = 0x0201
)

// Entity IDs inside the audio control interface.
const (
	EntityInputTerminal  = 0x01
	EntityFeatureUnit    = 0x02
	EntityOutputTerminal = 0x03
	EntityClockSource    = 0x04
)

// Streaming alternate settings.
const (
	AltZeroBandwidth = 0
	AltStreaming     = 1
)

// Endpoint attributes and defaults.
const (
	EndpointDirIn        = 0x80
	EndpointIsochronous  = 0x01
	EndpointAsynchronous = 0x04
	DefaultEndpoint      = 0x81
	FormatTypeI          = 0x01
	FormatPCM            = 0x00000001
	ConfigAttrBusPowered = 0x80
	DefaultMaxPower      = 50 // 100 mA in 2 mA units
)

// Fixed descriptor sizes.
const (
	ConfigurationDescriptorSize = 9
	IADSize                     = 8
	InterfaceDescriptorSize     = 9
	ACHeaderSize                = 9
	ClockSourceSize             = 8
	InputTerminalSize           = 17
	OutputTerminalSize          = 12
	ASGeneralSize               = 16
	FormatTypeISize             = 6
	EndpointDescriptorSize      = 7
	CSEndpointSize              = 8
)

// FeatureUnitSize returns the size of a feature unit descriptor controlling
// the master channel plus channels logical channels.
func FeatureUnitSize(channels int) int {
	return 6 + (channels+1)*4
}

// FormatProvider declares the stream format. It is queried once at startup.
type FormatProvider interface {
	AudioFormat() (audio.Format, error)
}

// Descriptor builds the configuration descriptor of a single microphone
// function.
type Descriptor struct {
	Format             audio.Format
	FirstInterface     uint8  // Audio control interface number; streaming is +1
	EndpointAddress    uint8  // Isochronous IN endpoint address
	ConfigurationValue uint8  // bConfigurationValue
	MaxPower           uint8  // In 2 mA units
	ChannelConfig      uint32 // bmChannelConfig spatial locations (0 = none)
}

// NewDescriptor returns a descriptor for format with default numbering.
func NewDescriptor(format audio.Format) *Descriptor {
	return &Descriptor{
		Format:             format,
		EndpointAddress:    DefaultEndpoint,
		ConfigurationValue: 1,
		MaxPower:           DefaultMaxPower,
	}
}

// AudioFormat implements [FormatProvider].
func (d *Descriptor) AudioFormat() (audio.Format, error) {
	return d.Format, d.Format.Validate()
}

// ControlLength returns wTotalLength of the class-specific audio control
// interface: header, clock source, input terminal, feature unit and output
// terminal.
func (d *Descriptor) ControlLength() int {
	return ACHeaderSize + ClockSourceSize + InputTerminalSize +
		FeatureUnitSize(d.Format.Channels) + OutputTerminalSize
}

// Size returns the total configuration descriptor length.
func (d *Descriptor) Size() int {
	return ConfigurationDescriptorSize + IADSize +
		InterfaceDescriptorSize + d.ControlLength() +
		2*InterfaceDescriptorSize + ASGeneralSize + FormatTypeISize +
		EndpointDescriptorSize + CSEndpointSize
}

// Bytes returns the serialized configuration descriptor.
func (d *Descriptor) Bytes() []byte {
	buf := make([]byte, d.Size())
	d.MarshalTo(buf)
	return buf
}

// MarshalTo serializes the configuration descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (d *Descriptor) MarshalTo(buf []byte) int {
	size := d.Size()
	if len(buf) < size {
		return 0
	}
	f := d.Format
	ch := uint8(f.Channels)
	subslot := uint8(f.BytesPerSample())
	ac := d.FirstInterface
	as := d.FirstInterface + 1
	b := buf[:0]

	// Configuration
	b = append(b, ConfigurationDescriptorSize, DescriptorTypeConfiguration)
	b = binary.LittleEndian.AppendUint16(b, uint16(size))
	b = append(b, 2, d.ConfigurationValue, 0, ConfigAttrBusPowered, d.MaxPower)

	// Interface association
	b = append(b, IADSize, DescriptorTypeInterfaceAssociation,
		ac, 2, ClassAudio, SubclassUndefined, ProtocolVersion2, 0)

	// Audio control interface
	b = append(b, InterfaceDescriptorSize, DescriptorTypeInterface,
		ac, 0, 0, ClassAudio, SubclassAudioControl, ProtocolVersion2, 0)

	b = append(b, ACHeaderSize, DescriptorTypeCSInterface, ACHeader)
	b = binary.LittleEndian.AppendUint16(b, 0x0200)
	b = append(b, CategoryMicrophone)
	b = binary.LittleEndian.AppendUint16(b, uint16(d.ControlLength()))
	b = append(b, 0)

	// Internal fixed clock, frequency read-only.
	b = append(b, ClockSourceSize, DescriptorTypeCSInterface, ACClockSource,
		EntityClockSource, 0x01, 0x01, 0, 0)

	b = append(b, InputTerminalSize, DescriptorTypeCSInterface, ACInputTerminal, EntityInputTerminal)
	b = binary.LittleEndian.AppendUint16(b, TerminalMicrophone)
	b = append(b, 0, EntityClockSource, ch)
	b = binary.LittleEndian.AppendUint32(b, d.ChannelConfig)
	b = append(b, 0)
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = append(b, 0)

	// Master mute and volume, read/write; no per-channel controls.
	b = append(b, uint8(FeatureUnitSize(f.Channels)), DescriptorTypeCSInterface,
		ACFeatureUnit, EntityFeatureUnit, EntityInputTerminal)
	b = binary.LittleEndian.AppendUint32(b, 0x0000000F)
	for range f.Channels {
		b = binary.LittleEndian.AppendUint32(b, 0)
	}
	b = append(b, 0)

	b = append(b, OutputTerminalSize, DescriptorTypeCSInterface, ACOutputTerminal, EntityOutputTerminal)
	b = binary.LittleEndian.AppendUint16(b, TerminalUSBStreaming)
	b = append(b, 0, EntityFeatureUnit, EntityClockSource)
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = append(b, 0)

	// Audio streaming interface, alternate 0: no endpoint.
	b = append(b, InterfaceDescriptorSize, DescriptorTypeInterface,
		as, AltZeroBandwidth, 0, ClassAudio, SubclassAudioStreaming, ProtocolVersion2, 0)

	// Alternate 1: one isochronous IN endpoint.
	b = append(b, InterfaceDescriptorSize, DescriptorTypeInterface,
		as, AltStreaming, 1, ClassAudio, SubclassAudioStreaming, ProtocolVersion2, 0)

	b = append(b, ASGeneralSize, DescriptorTypeCSInterface, ASGeneral, EntityOutputTerminal, 0, FormatTypeI)
	b = binary.LittleEndian.AppendUint32(b, FormatPCM)
	b = append(b, ch)
	b = binary.LittleEndian.AppendUint32(b, d.ChannelConfig)
	b = append(b, 0)

	b = append(b, FormatTypeISize, DescriptorTypeCSInterface, ASFormatType,
		FormatTypeI, subslot, uint8(f.BitDepth))

	b = append(b, EndpointDescriptorSize, DescriptorTypeEndpoint,
		d.EndpointAddress, EndpointIsochronous|EndpointAsynchronous)
	b = binary.LittleEndian.AppendUint16(b, uint16(f.BytesPerFrame))
	b = append(b, 1)

	b = append(b, CSEndpointSize, DescriptorTypeCSEndpoint, 0x01, 0, 0, 0)
	b = binary.LittleEndian.AppendUint16(b, 0)

	return len(b)
}

// StreamInfo is what [ParseFormat] finds in a configuration descriptor.
type StreamInfo struct {
	Format          audio.Format
	Interface       uint8 // Audio streaming interface number
	EndpointAddress uint8
	Interval        uint8
}

// ParseFormat walks a configuration descriptor and recovers the stream
// format of its first audio streaming interface. The sample rate is derived
// from the endpoint's max packet size, which carries one frame.
func ParseFormat(data []byte) (StreamInfo, error) {
	var (
		info                StreamInfo
		subclass, alt       uint8
		channels            int
		subslot, resolution int
		maxPacket           int
		foundGeneral        bool
		foundFormat         bool
		foundEndpoint       bool
	)

	if len(data) < ConfigurationDescriptorSize {
		return info, pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeConfiguration {
		return info, pkg.ErrDescriptorTypeMismatch
	}

	for off := 0; off < len(data); {
		n := int(data[off])
		if n < 2 || off+n > len(data) {
			return info, fmt.Errorf("%w: descriptor at offset %d", pkg.ErrDescriptorTooShort, off)
		}
		d := data[off : off+n]
		off += n

		switch d[1] {
		case DescriptorTypeInterface:
			if n < InterfaceDescriptorSize {
				return info, pkg.ErrDescriptorTooShort
			}
			subclass, alt = 0, d[3]
			if d[5] == ClassAudio {
				subclass = d[6]
			}
			if subclass == SubclassAudioStreaming && !foundEndpoint {
				info.Interface = d[2]
			}

		case DescriptorTypeCSInterface:
			if subclass != SubclassAudioStreaming || foundEndpoint || n < 3 {
				continue
			}
			switch d[2] {
			case ASGeneral:
				if n < ASGeneralSize {
					return info, pkg.ErrDescriptorTooShort
				}
				channels = int(d[10])
				foundGeneral = true
			case ASFormatType:
				if n < FormatTypeISize {
					return info, pkg.ErrDescriptorTooShort
				}
				if d[3] != FormatTypeI {
					return info, fmt.Errorf("%w: format type %d", pkg.ErrInvalidConfig, d[3])
				}
				subslot, resolution = int(d[4]), int(d[5])
				foundFormat = true
			}

		case DescriptorTypeEndpoint:
			if subclass != SubclassAudioStreaming || alt == AltZeroBandwidth || foundEndpoint {
				continue
			}
			if n < EndpointDescriptorSize {
				return info, pkg.ErrDescriptorTooShort
			}
			if d[2]&EndpointDirIn == 0 || d[3]&0x03 != EndpointIsochronous {
				continue
			}
			info.EndpointAddress = d[2]
			maxPacket = int(binary.LittleEndian.Uint16(d[4:6]) & 0x07FF)
			info.Interval = d[6]
			foundEndpoint = true
		}
	}

	if !foundGeneral || !foundFormat || !foundEndpoint {
		return info, pkg.ErrDescriptorMissing
	}
	if (resolution != audio.Depth16 && resolution != audio.Depth24) || subslot*8 != resolution {
		return info, fmt.Errorf("%w: %d-bit samples in %d-byte subslots",
			pkg.ErrInvalidConfig, resolution, subslot)
	}
	if channels < 1 || maxPacket%(channels*subslot) != 0 {
		return info, fmt.Errorf("%w: %d-byte packets for %d channels of %d bytes",
			pkg.ErrFrameSize, maxPacket, channels, subslot)
	}

	info.Format = audio.Format{
		Channels:      channels,
		SampleRate:    maxPacket / (channels * subslot) * audio.FramesPerSecond,
		BitDepth:      resolution,
		BytesPerFrame: maxPacket,
	}
	return info, info.Format.Validate()
}

// RawDescriptor is a configuration descriptor received as bytes.
type RawDescriptor []byte

// AudioFormat implements [FormatProvider].
func (r RawDescriptor) AudioFormat() (audio.Format, error) {
	info, err := ParseFormat(r)
	return info.Format, err
}

var (
	_ FormatProvider = (*Descriptor)(nil)
	_ FormatProvider = RawDescriptor(nil)
)
