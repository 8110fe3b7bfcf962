package activation

import "github.com/MrWong99/talkgate/pkg/audio"

// DefaultBacklogMinBytes is the default pre-roll floor for the voice-activity
// policy: 1024 × 6 samples of float32 audio, roughly 150 ms worth — sized to
// cover a classifier's detection latency so utterance onsets are not clipped.
const DefaultBacklogMinBytes = 1024 * 6 * 4

// backlog is the bounded sliding pre-roll window for the voice-activity
// policy: an ordered queue of chunks plus a running byte total. The oldest
// chunk is evicted only while the total minus that chunk still exceeds the
// configured minimum, so the retained audio never drops below the floor —
// though it may exceed it by up to one chunk.
//
// Mutated only by the owning policy's serialized event handlers; no locking.
type backlog struct {
	min    int
	chunks []audio.Chunk
	bytes  int
}

// push appends chunk and slides the window.
func (b *backlog) push(chunk audio.Chunk) {
	b.chunks = append(b.chunks, chunk)
	b.bytes += len(chunk.Data)

	evicted := 0
	for evicted < len(b.chunks) {
		oldest := len(b.chunks[evicted].Data)
		if b.bytes-oldest <= b.min {
			break
		}
		b.bytes -= oldest
		evicted++
	}
	if evicted > 0 {
		// Copy survivors to a fresh backing array so evicted chunks do not
		// stay pinned for the lifetime of the policy.
		fresh := make([]audio.Chunk, len(b.chunks)-evicted)
		copy(fresh, b.chunks[evicted:])
		b.chunks = fresh
	}
}

// drain returns the buffered chunks in arrival order and empties the backlog.
func (b *backlog) drain() []audio.Chunk {
	chunks := b.chunks
	b.chunks = nil
	b.bytes = 0
	return chunks
}

// empty reports whether the backlog holds no chunks.
func (b *backlog) empty() bool { return len(b.chunks) == 0 }

// size returns the running byte total. Intended for tests.
func (b *backlog) size() int { return b.bytes }
