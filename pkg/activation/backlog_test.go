package activation

import (
	"testing"

	"github.com/MrWong99/talkgate/pkg/audio"
)

func chunkBytes(n int) audio.Chunk {
	return audio.Chunk{Data: make([]byte, n), SampleRate: 48000, Channels: 1}
}

func TestBacklog_NoEvictionBelowFloor(t *testing.T) {
	b := backlog{min: 1000}
	for i := 0; i < 10; i++ {
		b.push(chunkBytes(100))
	}
	if b.size() != 1000 {
		t.Errorf("size = %d, want 1000", b.size())
	}
	if len(b.chunks) != 10 {
		t.Errorf("chunks = %d, want 10", len(b.chunks))
	}
}

func TestBacklog_EvictsOldestAboveFloor(t *testing.T) {
	b := backlog{min: 1000}
	for i := 0; i < 20; i++ {
		b.push(chunkBytes(100))
	}

	// Evicting another 100-byte chunk from 1100 would land exactly on the
	// floor, which the window must not go below; it stays at 1100.
	if b.size() != 1100 {
		t.Errorf("size = %d, want 1100", b.size())
	}
	if len(b.chunks) != 11 {
		t.Errorf("chunks = %d, want 11", len(b.chunks))
	}
}

func TestBacklog_NeverDropsBelowMin(t *testing.T) {
	// Mixed chunk sizes; after every push the retained total must be at
	// least min once min bytes have been seen at all.
	b := backlog{min: 500}
	sizes := []int{50, 300, 700, 10, 10, 10, 900, 40, 600}
	seen := 0
	for _, n := range sizes {
		b.push(chunkBytes(n))
		seen += n
		if seen >= b.min && b.size() < b.min {
			t.Fatalf("after %d total bytes: retained %d < min %d", seen, b.size(), b.min)
		}
	}
}

func TestBacklog_DrainPreservesOrderAndEmpties(t *testing.T) {
	b := backlog{min: 1 << 20}
	for i := 1; i <= 4; i++ {
		b.push(chunkBytes(i * 10))
	}

	chunks := b.drain()
	if len(chunks) != 4 {
		t.Fatalf("drained %d chunks, want 4", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Data) != (i+1)*10 {
			t.Errorf("chunk %d: %d bytes, want %d (arrival order violated)", i, len(c.Data), (i+1)*10)
		}
	}

	if !b.empty() || b.size() != 0 {
		t.Errorf("backlog not empty after drain: %d chunks, %d bytes", len(b.chunks), b.size())
	}
}

func TestBacklog_SingleOversizedChunkStays(t *testing.T) {
	b := backlog{min: 100}
	b.push(chunkBytes(5000))
	// Evicting the only chunk would leave zero bytes, below the floor.
	if b.empty() {
		t.Error("oversized sole chunk must be retained")
	}

	// A second chunk makes the first evictable: the total minus the oldest
	// is the new chunk alone, which already exceeds the floor.
	b.push(chunkBytes(200))
	if len(b.chunks) != 1 || len(b.chunks[0].Data) != 200 {
		t.Errorf("expected only the 200-byte chunk retained, got %d chunks / %d bytes",
			len(b.chunks), b.size())
	}
}
