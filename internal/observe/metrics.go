// Package observe provides application-wide observability primitives for
// Talkgate: OpenTelemetry metrics, tracing helpers, structured logging, and
// HTTP middleware for the ops endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Talkgate metrics.
const meterName = "github.com/MrWong99/talkgate"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// ChunksProcessed counts capture chunks handled by the activation
	// policy. Use with attribute:
	//   attribute.String("action", ...) — forward, drop, or buffer
	ChunksProcessed metric.Int64Counter

	// FramesEmitted counts full 10 ms frames written to the voice sink.
	FramesEmitted metric.Int64Counter

	// BytesTransmitted counts PCM bytes written to the voice sink.
	BytesTransmitted metric.Int64Counter

	// --- Error counters ---

	// SinkWriteErrors counts failed sink writes. Use with attribute:
	//   attribute.String("transport", ...)
	SinkWriteErrors metric.Int64Counter

	// --- Latency histograms ---

	// SinkWriteDuration tracks per-frame sink write latency.
	SinkWriteDuration metric.Float64Histogram

	// EpisodeDuration tracks the length of talking episodes, from
	// started-talking to stopped-talking.
	EpisodeDuration metric.Float64Histogram

	// --- Gauges ---

	// OpenEpisodes tracks the number of currently open talking episodes.
	// Given the single-pipeline design this is 0 or 1; exported as a gauge
	// so dashboards can alert on a stuck episode.
	OpenEpisodes metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks ops endpoint request processing time. Use
	// with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for real-time audio: sink writes must stay well under the 10 ms frame
// cadence, and episodes run from sub-second bursts to minutes.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.ChunksProcessed, err = m.Int64Counter("talkgate.chunks.processed",
		metric.WithDescription("Total capture chunks handled, by policy action."),
	); err != nil {
		return nil, err
	}
	if met.FramesEmitted, err = m.Int64Counter("talkgate.frames.emitted",
		metric.WithDescription("Total 10 ms frames written to the voice sink."),
	); err != nil {
		return nil, err
	}
	if met.BytesTransmitted, err = m.Int64Counter("talkgate.bytes.transmitted",
		metric.WithDescription("Total PCM bytes written to the voice sink."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.SinkWriteErrors, err = m.Int64Counter("talkgate.sink.write.errors",
		metric.WithDescription("Total failed sink writes by transport."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.SinkWriteDuration, err = m.Float64Histogram("talkgate.sink.write.duration",
		metric.WithDescription("Per-frame sink write latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EpisodeDuration, err = m.Float64Histogram("talkgate.episode.duration",
		metric.WithDescription("Length of talking episodes from start to stop."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.OpenEpisodes, err = m.Int64UpDownCounter("talkgate.open_episodes",
		metric.WithDescription("Number of currently open talking episodes."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("talkgate.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordChunk records a processed chunk with the policy's chosen action.
func (m *Metrics) RecordChunk(ctx context.Context, action string) {
	m.ChunksProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action", action)),
	)
}

// RecordSinkWrite records a completed sink write: one frame emitted, its byte
// count, and the observed latency.
func (m *Metrics) RecordSinkWrite(ctx context.Context, bytes int, seconds float64) {
	m.FramesEmitted.Add(ctx, 1)
	m.BytesTransmitted.Add(ctx, int64(bytes))
	m.SinkWriteDuration.Record(ctx, seconds)
}

// RecordSinkWriteError records a failed sink write for the named transport.
func (m *Metrics) RecordSinkWriteError(ctx context.Context, transport string) {
	m.SinkWriteErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transport", transport)),
	)
}
