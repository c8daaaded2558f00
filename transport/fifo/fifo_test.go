package fifo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ardnew/usbmic/pkg"
	"github.com/ardnew/usbmic/uac"
)

type fixedFrame struct {
	dev   *Device
	frame []byte
}

// preload mimics the delivery trigger: decline unmounted, idle at alt 0.
func (f *fixedFrame) preload(fn *uac.Function) func() bool {
	return func() bool {
		if !fn.Mounted() {
			return false
		}
		if fn.Streaming() {
			f.dev.Write(f.frame)
		}
		return true
	}
}

func startPair(t *testing.T, descriptor []byte) (*Device, *Host, *uac.Function, *fixedFrame) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	bus := t.TempDir()
	dev := NewDevice(bus, descriptor)
	if err := dev.Init(ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	fn := uac.NewFunction()
	src := &fixedFrame{dev: dev, frame: bytes.Repeat([]byte{0xA5}, 192)}
	served := make(chan error, 1)
	go func() { served <- dev.Serve(ctx, fn, src.preload(fn)) }()

	host := NewHost(bus)
	if _, err := host.WaitDevice(ctx); err != nil {
		t.Fatalf("WaitDevice() = %v", err)
	}

	t.Cleanup(func() {
		host.Close()
		dev.Stop()
		if err := <-served; err != nil {
			t.Errorf("Serve() = %v", err)
		}
	})
	return dev, host, fn, src
}

func TestDeviceHost_Descriptor(t *testing.T) {
	desc := []byte{9, 2, 9, 0, 0, 1, 0, 0x80, 50}
	_, host, _, _ := startPair(t, desc)

	got, err := host.GetDescriptor(context.Background())
	if err != nil {
		t.Fatalf("GetDescriptor() = %v", err)
	}
	if !bytes.Equal(got, desc) {
		t.Errorf("descriptor = % x, want % x", got, desc)
	}
}

func TestDeviceHost_Delivery(t *testing.T) {
	dev, host, fn, src := startPair(t, nil)
	ctx := context.Background()
	buf := make([]byte, MaxPacketSize)

	if _, err := host.Poll(ctx, buf); !errors.Is(err, pkg.ErrNotMounted) {
		t.Fatalf("Poll() unmounted = %v, want ErrNotMounted", err)
	}

	if err := host.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	if !fn.Mounted() {
		t.Fatal("function not mounted after Mount")
	}
	if n, err := host.Poll(ctx, buf); err != nil || n != 0 {
		t.Fatalf("Poll() at alt 0 = %d, %v; want idle", n, err)
	}

	if err := host.SetAlternate(ctx, uac.AltStreaming); err != nil {
		t.Fatal(err)
	}
	n, err := host.Poll(ctx, buf)
	if err != nil || n != 192 || !bytes.Equal(buf[:n], src.frame) {
		t.Fatalf("Poll() streaming = %d, %v", n, err)
	}
	if dev.Frame() != 2 {
		t.Errorf("Frame() = %d, want 2", dev.Frame())
	}

	if err := host.Suspend(ctx); err != nil || !fn.Suspended() {
		t.Errorf("Suspend() = %v, suspended=%v", err, fn.Suspended())
	}
	if n, _ := host.Poll(ctx, buf); n != 0 {
		t.Errorf("Poll() suspended = %d bytes, want idle", n)
	}
	_ = host.Resume(ctx)

	if err := host.SetAlternate(ctx, 7); !errors.Is(err, ErrStall) {
		t.Errorf("SetAlternate(7) = %v, want ErrStall", err)
	}

	if err := host.Reset(ctx); err != nil || fn.Mounted() {
		t.Errorf("Reset() = %v, mounted=%v", err, fn.Mounted())
	}
}

func TestDevice_StopRemovesDirectory(t *testing.T) {
	dev := NewDevice(t.TempDir(), nil)
	if err := dev.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	dir := dev.DeviceDir()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("device dir missing: %v", err)
	}
	if err := dev.Init(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Init() = %v", err)
	}
	_ = dev.Stop()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("device dir still present after Stop")
	}
	if _, err := dev.Write([]byte{1}); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("Write() after Stop = %v", err)
	}
}

func TestHost_WaitDeviceTimeout(t *testing.T) {
	host := NewHost(t.TempDir())
	defer host.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := host.WaitDevice(ctx); !errors.Is(err, ErrNoDevice) {
		t.Errorf("WaitDevice() = %v, want ErrNoDevice", err)
	}
}
