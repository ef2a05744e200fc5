// Package observe holds the OpenTelemetry instruments for the caption
// pipeline and the Prometheus bridge that exposes them.
//
// Every Record method is safe to call on a nil *Metrics, so components take
// metrics as an optional dependency.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/leonardotrapani/hyprcaption"

type Metrics struct {
	FramesRead        metric.Int64Counter
	SegmentEvents     metric.Int64Counter
	InferenceDuration metric.Float64Histogram
	InferenceErrors   metric.Int64Counter
	CaptionUpdates    metric.Int64Counter
	Commits           metric.Int64Counter
	Restarts          metric.Int64Counter
	ActivePipelines   metric.Int64UpDownCounter
}

// latencyBuckets in seconds; batch re-decoding of an utterance can take a
// while on CPU.
var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesRead, err = m.Int64Counter("hyprcaption.audio.frames",
		metric.WithDescription("Audio frames read from the input device."),
	); err != nil {
		return nil, err
	}
	if met.SegmentEvents, err = m.Int64Counter("hyprcaption.vad.events",
		metric.WithDescription("Speech segment events by kind."),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("hyprcaption.inference.duration",
		metric.WithDescription("Latency of one transcriber inference call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceErrors, err = m.Int64Counter("hyprcaption.inference.errors",
		metric.WithDescription("Failed inference calls; the rest of the segment is skipped."),
	); err != nil {
		return nil, err
	}
	if met.CaptionUpdates, err = m.Int64Counter("hyprcaption.caption.updates",
		metric.WithDescription("Caption updates by consolidation outcome."),
	); err != nil {
		return nil, err
	}
	if met.Commits, err = m.Int64Counter("hyprcaption.output.commits",
		metric.WithDescription("Flushed caption runs by status."),
	); err != nil {
		return nil, err
	}
	if met.Restarts, err = m.Int64Counter("hyprcaption.session.restarts",
		metric.WithDescription("Session restarts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActivePipelines, err = m.Int64UpDownCounter("hyprcaption.active_pipelines",
		metric.WithDescription("Number of running capture pipelines."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) RecordFrame(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramesRead.Add(ctx, 1)
}

func (m *Metrics) RecordSegmentEvent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.SegmentEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordInference(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.InferenceDuration.Record(ctx, d.Seconds())
	if err != nil {
		m.InferenceErrors.Add(ctx, 1)
	}
}

// RecordCaptionUpdate counts an update as "continuation" or "break".
func (m *Metrics) RecordCaptionUpdate(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.CaptionUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordCommit(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.Commits.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status(err))))
}

func (m *Metrics) RecordRestart(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Restarts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) PipelineStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActivePipelines.Add(ctx, 1)
}

func (m *Metrics) PipelineStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActivePipelines.Add(ctx, -1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
