package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordChunk_CountsByAction(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordChunk(ctx, "forward")
	m.RecordChunk(ctx, "forward")
	m.RecordChunk(ctx, "drop")
	m.RecordChunk(ctx, "buffer")

	rm := collect(t, reader)
	met := findMetric(rm, "talkgate.chunks.processed")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric is %T, want int64 sum", met.Data)
	}

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		action, _ := dp.Attributes.Value(attribute.Key("action"))
		counts[action.AsString()] = dp.Value
	}
	if counts["forward"] != 2 || counts["drop"] != 1 || counts["buffer"] != 1 {
		t.Errorf("counts = %v, want forward=2 drop=1 buffer=1", counts)
	}
}

func TestRecordSinkWrite_UpdatesAllInstruments(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSinkWrite(ctx, 1920, 0.002)
	m.RecordSinkWrite(ctx, 1920, 0.003)

	rm := collect(t, reader)

	frames := findMetric(rm, "talkgate.frames.emitted")
	if frames == nil {
		t.Fatal("frames metric not found")
	}
	if sum := frames.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 2 {
		t.Errorf("frames = %d, want 2", sum.DataPoints[0].Value)
	}

	bytes := findMetric(rm, "talkgate.bytes.transmitted")
	if bytes == nil {
		t.Fatal("bytes metric not found")
	}
	if sum := bytes.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 3840 {
		t.Errorf("bytes = %d, want 3840", sum.DataPoints[0].Value)
	}

	dur := findMetric(rm, "talkgate.sink.write.duration")
	if dur == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration metric is %T, want float64 histogram", dur.Data)
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("duration sample count = %d, want 2", got)
	}
}

func TestRecordSinkWriteError_AttributesTransport(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSinkWriteError(ctx, "discord")
	m.RecordSinkWriteError(ctx, "discord")
	m.RecordSinkWriteError(ctx, "websocket")

	rm := collect(t, reader)
	met := findMetric(rm, "talkgate.sink.write.errors")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		name, _ := dp.Attributes.Value(attribute.Key("transport"))
		counts[name.AsString()] = dp.Value
	}
	if counts["discord"] != 2 || counts["websocket"] != 1 {
		t.Errorf("counts = %v, want discord=2 websocket=1", counts)
	}
}

func TestOpenEpisodes_UpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.OpenEpisodes.Add(ctx, 1)
	m.OpenEpisodes.Add(ctx, 1)
	m.OpenEpisodes.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "talkgate.open_episodes")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("open episodes = %d, want 1", got)
	}
}

func TestEpisodeDuration_Histogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.EpisodeDuration.Record(ctx, 1.5)
	m.EpisodeDuration.Record(ctx, 4.2)

	rm := collect(t, reader)
	met := findMetric(rm, "talkgate.episode.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric is %T, want float64 histogram", met.Data)
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 {
		t.Errorf("sample count = %d, want 2", dp.Count)
	}
	if dp.Sum != 5.7 {
		t.Errorf("sum = %g, want 5.7", dp.Sum)
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
