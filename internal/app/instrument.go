package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrWong99/talkgate/internal/observe"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// Compile-time interface checks.
var (
	_ transport.Client = (*instrumentedClient)(nil)
	_ transport.Sink   = (*instrumentedSink)(nil)
)

// SinkStats accumulates frames and bytes written through an instrumented
// client across the process lifetime. The app snapshots it at episode
// boundaries to attribute throughput to individual episodes.
type SinkStats struct {
	frames atomic.Int64
	bytes  atomic.Int64
}

// Frames returns the cumulative number of full frames written.
func (s *SinkStats) Frames() int64 { return s.frames.Load() }

// Bytes returns the cumulative PCM bytes written.
func (s *SinkStats) Bytes() int64 { return s.bytes.Load() }

// InstrumentClient wraps client so that every sink it creates records frame
// counts, byte counts, and write latency to m and stats. The transport name
// is attached to error counters so dashboards can tell transports apart.
func InstrumentClient(client transport.Client, name string, m *observe.Metrics, stats *SinkStats) transport.Client {
	return &instrumentedClient{client: client, name: name, metrics: m, stats: stats}
}

type instrumentedClient struct {
	client  transport.Client
	name    string
	metrics *observe.Metrics
	stats   *SinkStats
}

func (c *instrumentedClient) CreateVoiceSink(ctx context.Context) (transport.Sink, error) {
	sink, err := c.client.CreateVoiceSink(ctx)
	if err != nil {
		return nil, err
	}
	return &instrumentedSink{sink: sink, client: c}, nil
}

type instrumentedSink struct {
	sink   transport.Sink
	client *instrumentedClient
}

func (s *instrumentedSink) WriteFrame(ctx context.Context, frame []float32) error {
	start := time.Now()
	err := s.sink.WriteFrame(ctx, frame)
	if err != nil {
		s.client.metrics.RecordSinkWriteError(ctx, s.client.name)
		return err
	}

	bytes := len(frame) * 4
	s.client.stats.frames.Add(1)
	s.client.stats.bytes.Add(int64(bytes))
	s.client.metrics.RecordSinkWrite(ctx, bytes, time.Since(start).Seconds())
	return nil
}

func (s *instrumentedSink) Close() error {
	return s.sink.Close()
}
