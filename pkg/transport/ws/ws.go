// Package ws provides a [transport.Client] that streams frames to a WebSocket
// endpoint via the coder/websocket library. Each frame is sent as one binary
// message of little-endian float32 samples; the receiving side is expected to
// know the fixed format (48 kHz mono float32, 480 samples per frame except
// possibly the last of an episode).
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// Compile-time interface assertion.
var _ transport.Client = (*Client)(nil)

// Client implements [transport.Client] by dialing a WebSocket URL once per
// talking episode. It is safe for concurrent use.
type Client struct {
	url    string
	header http.Header
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHeader sets additional HTTP headers sent on the dial request
// (e.g., an Authorization bearer token).
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// New creates a Client that dials url for every new sink.
func New(url string, opts ...Option) *Client {
	c := &Client{url: url}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateVoiceSink dials the endpoint and returns a sink bound to the
// resulting connection.
func (c *Client) CreateVoiceSink(ctx context.Context) (transport.Sink, error) {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: c.header,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: dial %q: %w", c.url, err)
	}
	return &sink{conn: conn}, nil
}

// sink writes each frame as one binary WebSocket message. One talking episode
// owns one sink; it is not safe for concurrent use.
type sink struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// WriteFrame implements [transport.Sink]. The write blocks until the message
// is flushed or ctx is cancelled; there is no retry on failure.
func (s *sink) WriteFrame(ctx context.Context, frame []float32) error {
	if err := s.conn.Write(ctx, websocket.MessageBinary, audio.Float32ToBytes(frame)); err != nil {
		return fmt.Errorf("ws: write frame: %w", err)
	}
	return nil
}

// Close implements [transport.Sink] with a normal-closure handshake.
func (s *sink) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.Close(websocket.StatusNormalClosure, "episode ended")
	})
	return nil
}
