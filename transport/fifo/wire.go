package fifo

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardnew/usbmic/pkg"
)

// MaxPacketSize is the largest full-speed isochronous payload.
const MaxPacketSize = 1023

// Message types.
const (
	msgData          = 0x02 // DATA packet
	msgAck           = 0x03 // ACK response
	msgNak           = 0x04 // NAK response (interval declined)
	msgStall         = 0x05 // STALL response (request rejected)
	msgGetDescriptor = 0x06 // Configuration descriptor request
	msgReset         = 0x12 // Port reset
	msgMount         = 0x14 // Configuration selected
	msgUnmount       = 0x15 // Configuration cleared
	msgSetAlt        = 0x16 // Streaming alternate setting, payload [alt]
	msgSuspend       = 0x17 // Bus suspend
	msgResume        = 0x18 // Bus resume
	msgSOF           = 0x19 // Start of frame, payload [frame_lo, frame_hi]
)

// Header size for messages.
const headerSize = 3 // type (1) + length (2)

// Connection signal bytes (one-way signaling to host).
const (
	sigConnect    = 0x01 // Device connected
	sigDisconnect = 0x00 // Device disconnected
)

// FIFO file names.
const (
	fifoHostToDevice = "host_to_device"
	fifoDeviceToHost = "device_to_host"
	fifoEndpointIn   = "ep1_in"
	fifoConnection   = "connection"
)

// Device directory prefix inside the bus directory.
const devicePrefix = "device-"

// readTimeout bounds each blocking read so cancellation is observed.
const readTimeout = 100 * time.Millisecond

// pipe is one end of the message protocol with its own scratch buffers.
type pipe struct {
	readBuf  [headerSize + MaxPacketSize]byte
	writeBuf [headerSize + MaxPacketSize]byte
}

// generateUUID generates a random UUID using crypto/rand.
func generateUUID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	// Set version 4 (random) bits
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return hex.EncodeToString(uuid[:]), nil
}

// createFIFO creates a named pipe at dir/name, replacing any existing file.
func createFIFO(dir, name string) error {
	path := filepath.Join(dir, name)
	os.Remove(path)
	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

// openFIFO opens dir/name read-write and non-blocking, so the open never
// waits for the other side.
func openFIFO(dir, name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// readFull reads exactly len(buf) bytes, retrying on read deadlines until
// ctx is cancelled or done is closed.
func readFull(ctx context.Context, done <-chan struct{}, f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-done:
			return total, pkg.ErrCancelled
		default:
		}

		f.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := f.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return total, err
		}
	}
	return total, nil
}

// send writes one message. Messages up to PIPE_BUF bytes are written
// atomically by the kernel.
func (p *pipe) send(f *os.File, msgType byte, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d-byte payload", pkg.ErrBufferTooSmall, len(data))
	}
	buf := p.writeBuf[:headerSize+len(data)]
	buf[0] = msgType
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(data)))
	copy(buf[headerSize:], data)

	for written := 0; written < len(buf); {
		n, err := f.Write(buf[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

// receive reads one message and returns its type and payload. The payload
// aliases the pipe's read buffer until the next receive.
func (p *pipe) receive(ctx context.Context, done <-chan struct{}, f *os.File) (byte, []byte, error) {
	header := p.readBuf[:headerSize]
	n, err := readFull(ctx, done, f, header)
	if err != nil {
		return 0, nil, err
	}
	if n < headerSize {
		return 0, nil, io.ErrUnexpectedEOF
	}

	msgType := header[0]
	length := int(binary.LittleEndian.Uint16(header[1:3]))
	if length > MaxPacketSize {
		return msgType, nil, fmt.Errorf("%w: %d-byte message", pkg.ErrProtocol, length)
	}
	payload := p.readBuf[headerSize : headerSize+length]
	if length > 0 {
		if _, err := readFull(ctx, done, f, payload); err != nil {
			return msgType, nil, err
		}
	}
	return msgType, payload, nil
}
