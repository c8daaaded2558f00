package fifo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/uac"
)

// Device is the device end of the bus. It implements [uac.Transport].
type Device struct {
	busDir     string
	deviceDir  string
	uuid       string
	descriptor []byte

	hostToDevice *os.File // Device reads events and requests
	deviceToHost *os.File // Device writes request responses
	endpointIn   *os.File // Device writes frames
	connection   *os.File // Device signals connection status

	connected atomic.Bool
	frame     atomic.Uint32 // Last start-of-frame number

	mutex     sync.RWMutex
	initDone  bool
	closeCh   chan struct{}
	closeOnce sync.Once

	control pipe
	data    pipe
	wrote   bool // Write called during the current interval
}

// NewDevice creates a device that answers descriptor requests with
// descriptor. The device will create its own subdirectory (device-{uuid}/)
// inside busDir.
func NewDevice(busDir string, descriptor []byte) *Device {
	return &Device{
		busDir:     busDir,
		descriptor: descriptor,
		closeCh:    make(chan struct{}),
	}
}

// Init creates the device subdirectory and its FIFOs.
func (d *Device) Init(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.initDone {
		return pkg.ErrAlreadyRunning
	}
	if len(d.descriptor) > MaxPacketSize {
		return fmt.Errorf("%w: %d-byte descriptor", pkg.ErrBufferTooSmall, len(d.descriptor))
	}

	uuid, err := generateUUID()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}
	d.uuid = uuid
	d.deviceDir = filepath.Join(d.busDir, devicePrefix+uuid)

	if err := os.MkdirAll(d.deviceDir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	for _, name := range []string{fifoHostToDevice, fifoDeviceToHost, fifoEndpointIn, fifoConnection} {
		if err := createFIFO(d.deviceDir, name); err != nil {
			d.cleanup()
			return err
		}
	}

	files := []struct {
		name string
		f    **os.File
	}{
		{fifoConnection, &d.connection},
		{fifoDeviceToHost, &d.deviceToHost},
		{fifoEndpointIn, &d.endpointIn},
		{fifoHostToDevice, &d.hostToDevice},
	}
	for _, e := range files {
		if *e.f, err = openFIFO(d.deviceDir, e.name); err != nil {
			d.cleanup()
			return err
		}
	}

	d.initDone = true
	pkg.LogInfo(pkg.ComponentTransport, "fifo device initialized",
		"busDir", d.busDir,
		"deviceDir", d.deviceDir,
		"uuid", d.uuid)
	return nil
}

// Start signals connection to the host.
func (d *Device) Start() error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if !d.initDone {
		return pkg.ErrNotRunning
	}
	if _, err := d.connection.Write([]byte{sigConnect}); err != nil {
		return fmt.Errorf("signal connection: %w", err)
	}
	d.connected.Store(true)
	pkg.LogInfo(pkg.ComponentTransport, "fifo device connected")
	return nil
}

// Stop signals disconnection, closes every FIFO and removes the device
// directory.
func (d *Device) Stop() error {
	d.closeOnce.Do(func() { close(d.closeCh) })

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.connection != nil && d.connected.Load() {
		d.connection.Write([]byte{sigDisconnect})
	}
	d.connected.Store(false)
	d.cleanup()
	d.initDone = false
	pkg.LogInfo(pkg.ComponentTransport, "fifo device stopped")
	return nil
}

func (d *Device) cleanup() {
	for _, f := range []**os.File{&d.hostToDevice, &d.deviceToHost, &d.endpointIn, &d.connection} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	if d.deviceDir != "" {
		os.RemoveAll(d.deviceDir)
	}
}

// DeviceDir returns the device subdirectory path.
func (d *Device) DeviceDir() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.deviceDir
}

// UUID returns the device's unique identifier.
func (d *Device) UUID() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.uuid
}

// Frame returns the number of the last start-of-frame received.
func (d *Device) Frame() uint16 {
	return uint16(d.frame.Load())
}

// Write sends one isochronous frame. It implements [uac.Transport] and is
// only valid while [Device.Serve] is dispatching a start-of-frame.
func (d *Device) Write(p []byte) (int, error) {
	d.mutex.RLock()
	f := d.endpointIn
	d.mutex.RUnlock()

	if f == nil {
		return 0, pkg.ErrNotRunning
	}
	if err := d.data.send(f, msgData, p); err != nil {
		return 0, err
	}
	d.wrote = true
	return len(p), nil
}

// Serve dispatches host messages to fn until ctx is cancelled or the device
// is stopped. On each start-of-frame it calls preload; a declined interval
// is answered with NAK, an idle one with a zero-length frame.
func (d *Device) Serve(ctx context.Context, fn *uac.Function, preload func() bool) error {
	d.mutex.RLock()
	in, out, ep := d.hostToDevice, d.deviceToHost, d.endpointIn
	d.mutex.RUnlock()

	if in == nil {
		return pkg.ErrNotRunning
	}

	for {
		msgType, payload, err := d.control.receive(ctx, d.closeCh, in)
		if err != nil {
			if d.closed() || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		switch msgType {
		case msgSOF:
			if len(payload) >= 2 {
				d.frame.Store(uint32(binary.LittleEndian.Uint16(payload)))
			}
			d.wrote = false
			switch {
			case !preload():
				err = d.data.send(ep, msgNak, nil)
			case !d.wrote:
				err = d.data.send(ep, msgData, nil)
			}

		case msgGetDescriptor:
			err = d.control.send(out, msgData, d.descriptor)

		case msgMount:
			fn.Mount()
			err = d.control.send(out, msgAck, nil)

		case msgUnmount, msgReset:
			fn.Unmount()
			err = d.control.send(out, msgAck, nil)

		case msgSetAlt:
			if len(payload) < 1 || fn.SetAlternate(payload[0]) != nil {
				err = d.control.send(out, msgStall, nil)
			} else {
				err = d.control.send(out, msgAck, nil)
			}

		case msgSuspend:
			fn.Suspend()
			err = d.control.send(out, msgAck, nil)

		case msgResume:
			fn.Resume()
			err = d.control.send(out, msgAck, nil)

		default:
			pkg.LogWarn(pkg.ComponentTransport, "unknown message type", "type", msgType)
			err = d.control.send(out, msgStall, nil)
		}
		if err != nil && !d.closed() {
			return err
		}
	}
}

func (d *Device) closed() bool {
	select {
	case <-d.closeCh:
		return true
	default:
		return false
	}
}

var _ uac.Transport = (*Device)(nil)
