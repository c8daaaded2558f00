// Package prof exposes runtime profiles of the simulator programs.
//
// It is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/fifo-hal/usb-mic/device
//
// Without the tag every function is a no-op, so call sites stay in place
// at no cost.
//
// # HTTP
//
// [Register] mounts the net/http/pprof handlers under /debug/pprof/ on the
// mux that serves /metrics, so one listener carries both:
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", metrics.Handler())
//	prof.Register(mux)
//
// # Files
//
// CPU profiles stream to a file between [StartCPU] and [StopCPU]. Other
// profiles are snapshots written by [Write]. Block and mutex profiles are
// empty unless enabled with [SetContentionRate], which is the useful one
// when looking at the interrupt handler against the poll loop.
package prof
