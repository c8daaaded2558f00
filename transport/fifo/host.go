package fifo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ardnew/usbmic/pkg"
)

// pollInterval is the bus directory scan period.
const pollInterval = 50 * time.Millisecond

// Host errors.
var (
	ErrNoDevice = errors.New("no device available")
	ErrStall    = errors.New("request stalled")
)

// Host is the host end of the bus. It talks to one device at a time.
type Host struct {
	busDir string

	mutex        sync.Mutex
	dir          string
	hostToDevice *os.File // Host writes events and requests
	deviceToHost *os.File // Host reads request responses
	endpointIn   *os.File // Host reads frames
	connection   *os.File // Host reads connection status

	closeCh   chan struct{}
	closeOnce sync.Once

	control pipe
	data    pipe
	frame   uint16
}

// NewHost creates a host that discovers devices under busDir.
func NewHost(busDir string) *Host {
	return &Host{
		busDir:  busDir,
		closeCh: make(chan struct{}),
	}
}

// WaitDevice polls the bus directory until a device signals connection,
// then opens its FIFOs. It returns the device directory.
func (h *Host) WaitDevice(ctx context.Context) (string, error) {
	if err := os.MkdirAll(h.busDir, 0o755); err != nil {
		return "", fmt.Errorf("create bus dir: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		entries, err := os.ReadDir(h.busDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() || !strings.HasPrefix(entry.Name(), devicePrefix) {
					continue
				}
				dir := filepath.Join(h.busDir, entry.Name())
				if h.tryConnect(ctx, dir) {
					pkg.LogInfo(pkg.ComponentHost, "device connected", "dir", dir)
					return dir, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrNoDevice, ctx.Err())
		case <-h.closeCh:
			return "", pkg.ErrCancelled
		case <-ticker.C:
		}
	}
}

// tryConnect reads the connection FIFO of dir and opens the device FIFOs
// if it holds a connect signal.
func (h *Host) tryConnect(ctx context.Context, dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, fifoConnection)); err != nil {
		return false
	}
	conn, err := openFIFO(dir, fifoConnection)
	if err != nil {
		return false
	}

	var sig [1]byte
	probe, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	if _, err := readFull(probe, h.closeCh, conn, sig[:]); err != nil || sig[0] != sigConnect {
		conn.Close()
		return false
	}

	files := []struct {
		name string
		f    **os.File
	}{
		{fifoHostToDevice, &h.hostToDevice},
		{fifoDeviceToHost, &h.deviceToHost},
		{fifoEndpointIn, &h.endpointIn},
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, e := range files {
		if *e.f, err = openFIFO(dir, e.name); err != nil {
			pkg.LogWarn(pkg.ComponentHost, "failed to open device FIFOs", "dir", dir, "error", err)
			conn.Close()
			h.closeFiles()
			return false
		}
	}
	h.connection = conn
	h.dir = dir
	return true
}

// Close releases the device FIFOs.
func (h *Host) Close() error {
	h.closeOnce.Do(func() { close(h.closeCh) })
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.closeFiles()
	return nil
}

func (h *Host) closeFiles() {
	for _, f := range []**os.File{&h.hostToDevice, &h.deviceToHost, &h.endpointIn, &h.connection} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	h.dir = ""
}

// request sends a control message and waits for its response.
func (h *Host) request(ctx context.Context, msgType byte, payload []byte) ([]byte, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.hostToDevice == nil {
		return nil, ErrNoDevice
	}
	if err := h.control.send(h.hostToDevice, msgType, payload); err != nil {
		return nil, err
	}
	reply, data, err := h.control.receive(ctx, h.closeCh, h.deviceToHost)
	if err != nil {
		return nil, err
	}
	switch reply {
	case msgAck, msgData:
		return data, nil
	case msgStall:
		return nil, ErrStall
	default:
		return nil, fmt.Errorf("%w: reply type %#02x", pkg.ErrProtocol, reply)
	}
}

// GetDescriptor returns a copy of the device's configuration descriptor.
func (h *Host) GetDescriptor(ctx context.Context) ([]byte, error) {
	data, err := h.request(ctx, msgGetDescriptor, nil)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Mount selects the device configuration.
func (h *Host) Mount(ctx context.Context) error {
	_, err := h.request(ctx, msgMount, nil)
	return err
}

// Unmount clears the device configuration.
func (h *Host) Unmount(ctx context.Context) error {
	_, err := h.request(ctx, msgUnmount, nil)
	return err
}

// Reset resets the port, which also clears the configuration.
func (h *Host) Reset(ctx context.Context) error {
	_, err := h.request(ctx, msgReset, nil)
	return err
}

// SetAlternate selects the streaming interface alternate setting.
func (h *Host) SetAlternate(ctx context.Context, alt uint8) error {
	_, err := h.request(ctx, msgSetAlt, []byte{alt})
	return err
}

// Suspend suspends the bus.
func (h *Host) Suspend(ctx context.Context) error {
	_, err := h.request(ctx, msgSuspend, nil)
	return err
}

// Resume resumes the bus.
func (h *Host) Resume(ctx context.Context) error {
	_, err := h.request(ctx, msgResume, nil)
	return err
}

// Poll issues one start-of-frame and reads the device's reply into buf.
// It returns the payload length, zero for an idle interval, or
// pkg.ErrNotMounted when the device declined the interval.
func (h *Host) Poll(ctx context.Context, buf []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.hostToDevice == nil {
		return 0, ErrNoDevice
	}

	var sof [2]byte
	binary.LittleEndian.PutUint16(sof[:], h.frame)
	h.frame = (h.frame + 1) & 0x07FF
	if err := h.control.send(h.hostToDevice, msgSOF, sof[:]); err != nil {
		return 0, err
	}

	reply, data, err := h.data.receive(ctx, h.closeCh, h.endpointIn)
	if err != nil {
		return 0, err
	}
	switch reply {
	case msgData:
		if len(data) > len(buf) {
			return 0, pkg.ErrBufferTooSmall
		}
		return copy(buf, data), nil
	case msgNak:
		return 0, pkg.ErrNotMounted
	default:
		return 0, fmt.Errorf("%w: endpoint reply type %#02x", pkg.ErrProtocol, reply)
	}
}

// Connected reports whether the device is still connected. A pending
// disconnect signal is consumed.
func (h *Host) Connected() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.connection == nil {
		return false
	}
	var sig [1]byte
	h.connection.SetReadDeadline(time.Now().Add(time.Millisecond))
	if n, err := h.connection.Read(sig[:]); n == 1 && err == nil && sig[0] == sigDisconnect {
		return false
	}
	if _, err := os.Stat(h.dir); err != nil {
		return false
	}
	return true
}
