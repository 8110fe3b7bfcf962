// Package transport defines the outbound voice-transport abstraction for
// Talkgate.
//
// The two interfaces are deliberately narrow:
//
//   - [Client] — the "create outbound voice sink" capability. One sink is
//     created per talking episode and released when the episode ends.
//   - [Sink] — a write target for fixed-size 48 kHz float32 frames. Writes may
//     block; that is how downstream backpressure reaches the activation layer.
//
// Implementations wrap provider-specific SDKs (Discord, WebSocket, …). This
// package lives under pkg/ because external code is expected to implement
// both interfaces.
package transport

import "context"

// Client creates outbound voice sinks. Implementations must be safe for
// concurrent use; a single [Sink] need not be.
type Client interface {
	// CreateVoiceSink opens a fresh write target for one talking episode.
	// The supplied ctx governs sink setup only; the sink itself lives until
	// [Sink.Close] is called.
	CreateVoiceSink(ctx context.Context) (Sink, error)
}

// Sink accepts resampled audio frames for one talking episode.
type Sink interface {
	// WriteFrame ships one frame of 48 kHz mono float32 samples. Frames are
	// normally exactly 480 samples; the final frame of an episode may be
	// shorter. WriteFrame may suspend the caller until downstream accepts
	// the data, and must respect ctx cancellation while suspended.
	//
	// A write error means the frame is lost; audio frames are not meaningful
	// to resend, so callers must not retry.
	WriteFrame(ctx context.Context, frame []float32) error

	// Close releases the sink. It is safe to call more than once; subsequent
	// calls are no-ops and return nil.
	Close() error
}

// Discard returns a [Sink] that accepts and drops every frame. It is the
// write target used when no transport client is configured, which keeps the
// activation state machines exercisable in local-only setups.
func Discard() Sink { return discardSink{} }

type discardSink struct{}

func (discardSink) WriteFrame(context.Context, []float32) error { return nil }
func (discardSink) Close() error                                { return nil }
