package episodes_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/talkgate/internal/episodes"
)

// episodeAt builds an episode whose Frames field doubles as an identity tag.
func episodeAt(tag int64) episodes.Episode {
	start := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC).Add(time.Duration(tag) * time.Minute)
	return episodes.Episode{
		Mode:      "push_to_talk",
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Second),
		Frames:    tag,
		Bytes:     tag * 1920,
	}
}

func TestMemStore_RecentNewestFirst(t *testing.T) {
	s := episodes.NewMemStore(10)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := s.Record(ctx, episodeAt(i)); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, e := range got {
		if want := int64(5 - i); e.Frames != want {
			t.Errorf("episode %d frames = %d, want %d (newest first)", i, e.Frames, want)
		}
	}
}

func TestMemStore_LimitApplied(t *testing.T) {
	s := episodes.NewMemStore(10)
	ctx := context.Background()

	for i := int64(1); i <= 8; i++ {
		if err := s.Record(ctx, episodeAt(i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Frames != 8 || got[2].Frames != 6 {
		t.Errorf("episodes = %v..%v, want 8..6", got[0].Frames, got[2].Frames)
	}
}

func TestMemStore_RingOverwritesOldest(t *testing.T) {
	s := episodes.NewMemStore(4)
	ctx := context.Background()

	for i := int64(1); i <= 7; i++ {
		if err := s.Record(ctx, episodeAt(i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 (ring capacity)", len(got))
	}
	for i, e := range got {
		if want := int64(7 - i); e.Frames != want {
			t.Errorf("episode %d frames = %d, want %d", i, e.Frames, want)
		}
	}
}

func TestMemStore_EmptyAndDefaults(t *testing.T) {
	// Zero capacity selects the built-in default rather than panicking.
	s := episodes.NewMemStore(0)
	ctx := context.Background()

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0 for empty store", len(got))
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestEpisode_Duration(t *testing.T) {
	e := episodeAt(1)
	if got := e.Duration(); got != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", got)
	}
}
