// Package episodes provides the talking-episode journal.
//
// An episode is one contiguous stretch of transmitted audio: it opens on a
// started-talking notification and closes on the matching stopped-talking
// notification. The journal records when each episode ran, which activation
// mode produced it, and how much audio it carried. Two implementations are
// provided: an in-memory ring ([NewMemStore]) for local runs and a
// PostgreSQL-backed store ([NewPostgresStore]) for durable history.
package episodes

import (
	"context"
	"time"
)

// Episode is one closed talking episode.
type Episode struct {
	// Mode is the activation mode that produced this episode
	// ("continuous", "push_to_talk", "voice_activity").
	Mode string

	// StartedAt and EndedAt bound the episode in wall-clock time.
	StartedAt time.Time
	EndedAt   time.Time

	// Frames is the number of full frames written to the sink.
	Frames int64

	// Bytes is the total PCM payload written to the sink.
	Bytes int64
}

// Duration returns the episode's wall-clock length.
func (e Episode) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Store persists closed episodes and serves recent history.
type Store interface {
	// Record appends a closed episode to the journal.
	Record(ctx context.Context, e Episode) error

	// Recent returns up to limit episodes, newest first.
	Recent(ctx context.Context, limit int) ([]Episode, error)

	// Close releases any resources held by the store.
	Close() error
}
