package activation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/talkgate/pkg/activation"
	"github.com/MrWong99/talkgate/pkg/audio"
	transportmock "github.com/MrWong99/talkgate/pkg/transport/mock"
)

func TestContinuous_ForwardsEverything(t *testing.T) {
	sink := &transportmock.Sink{}
	client := &transportmock.Client{Sink: sink}
	p := activation.NewContinuous(audio.TargetSampleRate, client)

	for i := 0; i < 10; i++ {
		action, err := p.Accept(context.Background(), frameChunk(audio.FrameSamples))
		if err != nil {
			t.Fatalf("Accept %d: %v", i, err)
		}
		if action != activation.ActionForward {
			t.Fatalf("Accept %d: action = %v, want forward", i, action)
		}
	}
	if sink.FrameCount() != 10 {
		t.Errorf("frames = %d, want 10", sink.FrameCount())
	}
}

func TestContinuous_PreservesOrder(t *testing.T) {
	sink := &transportmock.Sink{}
	client := &transportmock.Client{Sink: sink}
	p := activation.NewContinuous(audio.TargetSampleRate, client)

	// Tag each chunk's first sample so sink order is checkable.
	for i := 0; i < 5; i++ {
		samples := make([]float32, audio.FrameSamples)
		samples[0] = float32(i + 1)
		chunk := audio.Chunk{
			Data:       audio.Float32ToBytes(samples),
			SampleRate: audio.TargetSampleRate,
			Channels:   1,
		}
		if _, err := p.Accept(context.Background(), chunk); err != nil {
			t.Fatalf("Accept %d: %v", i, err)
		}
	}

	for i, f := range sink.Frames {
		if f[0] != float32(i+1) {
			t.Errorf("frame %d starts with %g, want %d (order violated)", i, f[0], i+1)
		}
	}
}

func TestContinuous_SingleEpisode(t *testing.T) {
	client := &transportmock.Client{}
	p := activation.NewContinuous(audio.TargetSampleRate, client)

	var started, stopped int
	p.OnEvent(func(e activation.Event) {
		switch e.Type {
		case activation.EventStartedTalking:
			started++
		case activation.EventStoppedTalking:
			stopped++
		}
	})

	for i := 0; i < 3; i++ {
		if _, err := p.Accept(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}
	if started != 1 || stopped != 0 {
		t.Fatalf("before finalize: started=%d stopped=%d, want 1/0", started, stopped)
	}

	if err := p.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if started != 1 || stopped != 1 {
		t.Errorf("after finalize: started=%d stopped=%d, want 1/1", started, stopped)
	}
}

func TestContinuous_NoTriggerSource(t *testing.T) {
	p := activation.NewContinuous(audio.TargetSampleRate, nil)
	if p.Triggers() != nil {
		t.Error("continuous policy should have a nil trigger channel")
	}
}

func TestContinuous_FinalizedRejectsChunks(t *testing.T) {
	p := activation.NewContinuous(audio.TargetSampleRate, nil)
	if err := p.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	_, err := p.Accept(context.Background(), frameChunk(audio.FrameSamples))
	if !errors.Is(err, activation.ErrFinalized) {
		t.Errorf("Accept after Finalize = %v, want ErrFinalized", err)
	}

	// Finalize is idempotent.
	if err := p.Finalize(context.Background()); err != nil {
		t.Errorf("second Finalize: %v", err)
	}
}
