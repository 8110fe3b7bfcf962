package audio

import "context"

// Source is the capture abstraction: something that produces an unbounded
// stream of mono PCM chunks at the capture device's native sample rate.
//
// Start begins capture and returns two channels. The chunk channel delivers
// chunks in capture order and is closed when the stream ends (ctx cancelled
// or the underlying device stops). The error channel reports at most one
// terminal error — capture-acquisition failures are not retried here; the
// supervisor decides what to do.
//
// Implementations must not require Start to be called more than once.
type Source interface {
	Start(ctx context.Context) (<-chan Chunk, <-chan error)
}

// Drain reads from ch until the channel is closed, discarding all values.
// Use this to prevent goroutine leaks when a test or shutdown path no longer
// cares about a streaming channel's contents.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
