// Package fifo carries the audio function over named pipes, standing in for
// a USB bus when host and device both run on a workstation.
//
// The device side ([Device]) implements [uac.Transport] and replays the
// host's bus events (mount, alternate setting, suspend, start of frame) into
// a [uac.Function]. The host side ([Host]) discovers devices, reads the
// configuration descriptor, selects the streaming alternate and polls one
// frame per interval.
//
// # Architecture
//
// Each device instance creates a unique subdirectory under a shared bus
// directory:
//
//	/tmp/usbmic/                     # Bus directory (shared with host)
//	└── device-{uuid}/               # Device subdirectory (unique per device)
//	    ├── connection               # Connection signaling (device → host)
//	    ├── host_to_device           # Bus events and requests from host
//	    ├── device_to_host           # Request responses to host
//	    └── ep1_in                   # Isochronous IN frames
//
// Every message is [type, len_lo, len_hi, payload...]. One start-of-frame
// message yields exactly one reply on ep1_in: a DATA frame (zero length
// when idle) or a NAK when the function is not mounted.
//
// # Usage
//
//	dev := fifo.NewDevice("/tmp/usbmic", uac.NewDescriptor(format).Bytes())
//	dev.Init(ctx)
//	m, _ := mic.New(cfg, platform, dev)
//	dev.Start()
//	dev.Serve(ctx, m.Function(), m.PreLoad)
package fifo
