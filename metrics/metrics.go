package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ardnew/usbmic/mic"
	"github.com/ardnew/usbmic/pkg"
)

const meterName = "github.com/ardnew/usbmic"

// StatsSource provides pipeline counters. Satisfied by [*mic.Microphone].
type StatsSource interface {
	Stats() mic.Stats
}

// Metrics holds the registered instruments.
type Metrics struct {
	// Completions counts capture transfer completions. Attribute: line.
	Completions metric.Int64ObservableCounter

	// Interrupts counts completion interrupt invocations. Attribute:
	// spurious (true for invocations with no channel pending).
	Interrupts metric.Int64ObservableCounter

	// Frames counts assembled frames.
	Frames metric.Int64ObservableCounter

	// Faults counts capture hand-off faults. Attribute: kind
	// (overrun, underrun, tear).
	Faults metric.Int64ObservableCounter

	// Deliveries counts delivery cycles. Attribute: status.
	Deliveries metric.Int64ObservableCounter

	// Streaming is 1 while the host is streaming, else 0.
	Streaming metric.Int64ObservableGauge

	registration metric.Registration
}

// Attribute sets reused on every collection.
var (
	attrSpurious    = metric.WithAttributes(attribute.Bool("spurious", true))
	attrNotSpurious = metric.WithAttributes(attribute.Bool("spurious", false))
	attrOverrun     = metric.WithAttributes(attribute.String("kind", "overrun"))
	attrUnderrun    = metric.WithAttributes(attribute.String("kind", "underrun"))
	attrTear        = metric.WithAttributes(attribute.String("kind", "tear"))
)

// New creates the instruments on mp and registers a callback that reads
// src on every collection.
func New(mp metric.MeterProvider, src StatsSource) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Completions, err = m.Int64ObservableCounter("usbmic.capture.completions",
		metric.WithDescription("Capture transfer completions by data line."),
		metric.WithUnit("{transfer}"),
	); err != nil {
		return nil, err
	}
	if met.Interrupts, err = m.Int64ObservableCounter("usbmic.capture.interrupts",
		metric.WithDescription("Completion interrupt invocations."),
		metric.WithUnit("{interrupt}"),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64ObservableCounter("usbmic.assembler.frames",
		metric.WithDescription("Frames assembled from capture buffers."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}
	if met.Faults, err = m.Int64ObservableCounter("usbmic.assembler.faults",
		metric.WithDescription("Capture hand-off faults by kind: overrun, underrun, tear."),
	); err != nil {
		return nil, err
	}
	if met.Deliveries, err = m.Int64ObservableCounter("usbmic.delivery.cycles",
		metric.WithDescription("Delivery cycles by status."),
	); err != nil {
		return nil, err
	}
	if met.Streaming, err = m.Int64ObservableGauge("usbmic.delivery.streaming",
		metric.WithDescription("1 while the host has the streaming alternate selected."),
	); err != nil {
		return nil, err
	}

	lineAttrs := make([]metric.ObserveOption, 0, 4)
	statusAttrs := make([]metric.ObserveOption, pkg.NumDeliveryStatus)
	for i := range statusAttrs {
		statusAttrs[i] = metric.WithAttributes(attribute.String("status", pkg.DeliveryStatus(i).String()))
	}

	met.registration, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()

		for i, c := range s.Capture.Completions {
			for len(lineAttrs) <= i {
				lineAttrs = append(lineAttrs, metric.WithAttributes(attribute.Int("line", len(lineAttrs))))
			}
			o.ObserveInt64(met.Completions, int64(c), lineAttrs[i])
		}
		o.ObserveInt64(met.Interrupts, int64(s.Capture.Spurious), attrSpurious)
		o.ObserveInt64(met.Interrupts, int64(s.Capture.Interrupts-s.Capture.Spurious), attrNotSpurious)

		o.ObserveInt64(met.Frames, int64(s.Assembly.Frames))
		o.ObserveInt64(met.Faults, int64(s.Assembly.Overruns), attrOverrun)
		o.ObserveInt64(met.Faults, int64(s.Assembly.Underruns), attrUnderrun)
		o.ObserveInt64(met.Faults, int64(s.Assembly.Tears), attrTear)

		for i, n := range s.Delivery {
			o.ObserveInt64(met.Deliveries, int64(n), statusAttrs[i])
		}

		var streaming int64
		if s.Streaming {
			streaming = 1
		}
		o.ObserveInt64(met.Streaming, streaming)
		return nil
	}, met.Completions, met.Interrupts, met.Frames, met.Faults, met.Deliveries, met.Streaming)
	if err != nil {
		return nil, err
	}
	return met, nil
}

// Close unregisters the collection callback.
func (m *Metrics) Close() error {
	return m.registration.Unregister()
}
