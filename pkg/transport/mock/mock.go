// Package mock provides test doubles for the transport package interfaces.
//
// Use Client to verify how many sinks were created, and Sink to inspect the
// frames written to each episode or to inject write failures:
//
//	sink := &mock.Sink{}
//	client := &mock.Client{Sink: sink}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/talkgate/pkg/transport"
)

// Client is a mock implementation of [transport.Client].
type Client struct {
	mu sync.Mutex

	// Sink is returned by CreateVoiceSink. If nil, a fresh default Sink is
	// returned per call.
	Sink transport.Sink

	// CreateErr, if non-nil, is returned as the error from CreateVoiceSink.
	CreateErr error

	// CreateCalls counts invocations of CreateVoiceSink.
	CreateCalls int

	// Created records every sink handed out, in order.
	Created []transport.Sink
}

// CreateVoiceSink records the call and returns Sink, CreateErr.
func (c *Client) CreateVoiceSink(context.Context) (transport.Sink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreateCalls++
	if c.CreateErr != nil {
		return nil, c.CreateErr
	}
	s := c.Sink
	if s == nil {
		s = &Sink{}
	}
	c.Created = append(c.Created, s)
	return s, nil
}

// Ensure Client implements transport.Client at compile time.
var _ transport.Client = (*Client)(nil)

// Sink is a mock implementation of [transport.Sink] that records every frame.
type Sink struct {
	mu sync.Mutex

	// WriteErr, if non-nil, is returned by every WriteFrame call.
	WriteErr error

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	// Frames records a copy of every frame written, in order.
	Frames [][]float32

	// CloseCalls counts invocations of Close.
	CloseCalls int
}

// WriteFrame records a copy of frame and returns WriteErr.
func (s *Sink) WriteFrame(_ context.Context, frame []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	cp := make([]float32, len(frame))
	copy(cp, frame)
	s.Frames = append(s.Frames, cp)
	return nil
}

// Close records the call and returns CloseErr on the first invocation only.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if s.CloseCalls == 1 {
		return s.CloseErr
	}
	return nil
}

// FrameCount returns how many frames have been written. Thread-safe.
func (s *Sink) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Frames)
}

// TotalSamples returns the total number of samples across all written frames.
func (s *Sink) TotalSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.Frames {
		n += len(f)
	}
	return n
}

// Ensure Sink implements transport.Sink at compile time.
var _ transport.Sink = (*Sink)(nil)
