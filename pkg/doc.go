// Package pkg provides shared utilities for the usbmic capture pipeline.
//
// This package contains common functionality used by every stage of the
// pipeline, from sequencer configuration down to USB delivery:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for configuration and delivery failures
//   - Component identifiers for log filtering
//   - [DeliveryStatus], the per-frame outcome reported to the transport
//
// The package has no external dependencies so that it builds unchanged
// under TinyGo.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with pipeline-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSequencer, "divider computed", "int", 61, "frac", 9)
//
// Interrupt handlers never log. Logging is reserved for startup, teardown
// and the cooperative poll context.
//
// # Errors
//
// Configuration errors are fatal and surface once, at startup:
//
//	if errors.Is(err, pkg.ErrInvalidDivider) {
//	    // sample rate not reachable from the system clock
//	}
package pkg
