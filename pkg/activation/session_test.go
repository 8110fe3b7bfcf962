package activation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/talkgate/pkg/activation"
	"github.com/MrWong99/talkgate/pkg/audio"
	transportmock "github.com/MrWong99/talkgate/pkg/transport/mock"
)

// frameChunk builds a chunk holding n samples at the target rate, so encoding
// needs no resampling and frame counts are easy to predict.
func frameChunk(n int) audio.Chunk {
	return audio.Chunk{
		Data:       audio.Float32ToBytes(make([]float32, n)),
		SampleRate: audio.TargetSampleRate,
		Channels:   1,
	}
}

func TestSession_LazySinkCreation(t *testing.T) {
	client := &transportmock.Client{}
	s := activation.NewSession(audio.TargetSampleRate, client, nil)

	if client.CreateCalls != 0 {
		t.Fatalf("sink created before first write: %d calls", client.CreateCalls)
	}
	if s.Open() {
		t.Fatal("fresh session reports open")
	}

	if err := s.Write(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if client.CreateCalls != 1 {
		t.Errorf("CreateVoiceSink calls = %d, want 1", client.CreateCalls)
	}
	if !s.Open() {
		t.Error("session should be open after first write")
	}
}

func TestSession_StartedBeforeFirstFrame(t *testing.T) {
	sink := &transportmock.Sink{}
	client := &transportmock.Client{Sink: sink}

	var order []string
	s := activation.NewSession(audio.TargetSampleRate, client, func(e activation.Event) {
		if e.Type == activation.EventStartedTalking {
			order = append(order, "started")
			if sink.FrameCount() != 0 {
				t.Error("frames written before started_talking fired")
			}
		}
	})

	if err := s.Write(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("started_talking fired %d times, want 1", len(order))
	}
	if sink.FrameCount() != 1 {
		t.Errorf("frames written = %d, want 1", sink.FrameCount())
	}
}

func TestSession_CloseFlushesTailAndReleasesOnce(t *testing.T) {
	sink := &transportmock.Sink{}
	client := &transportmock.Client{Sink: sink}

	var stopped int
	s := activation.NewSession(audio.TargetSampleRate, client, func(e activation.Event) {
		if e.Type == activation.EventStoppedTalking {
			stopped++
		}
	})

	// 500 samples = 1 full frame + 20 samples buffered.
	if err := s.Write(context.Background(), frameChunk(500)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if sink.FrameCount() != 1 {
		t.Fatalf("frames before close = %d, want 1", sink.FrameCount())
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sink.FrameCount() != 2 {
		t.Fatalf("frames after close = %d, want 2 (tail flushed)", sink.FrameCount())
	}
	if n := len(sink.Frames[1]); n != 20 {
		t.Errorf("tail frame has %d samples, want 20", n)
	}
	if sink.CloseCalls != 1 {
		t.Errorf("sink Close calls = %d, want 1", sink.CloseCalls)
	}
	if stopped != 1 {
		t.Errorf("stopped_talking fired %d times, want 1", stopped)
	}

	// Closing again is a no-op.
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if sink.CloseCalls != 1 || stopped != 1 {
		t.Errorf("second Close had side effects: closes=%d stopped=%d", sink.CloseCalls, stopped)
	}
}

func TestSession_CloseWithoutOpenIsNoop(t *testing.T) {
	client := &transportmock.Client{}
	var events int
	s := activation.NewSession(audio.TargetSampleRate, client, func(activation.Event) { events++ })

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if events != 0 {
		t.Errorf("events fired = %d, want 0", events)
	}
}

func TestSession_ReopensAfterClose(t *testing.T) {
	client := &transportmock.Client{}
	s := activation.NewSession(audio.TargetSampleRate, client, nil)

	if err := s.Write(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Write(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
		t.Fatalf("Write after Close: %v", err)
	}
	if client.CreateCalls != 2 {
		t.Errorf("CreateVoiceSink calls = %d, want 2 (one per episode)", client.CreateCalls)
	}
}

func TestSession_SinkCreationFailure(t *testing.T) {
	wantErr := errors.New("voice server unreachable")
	client := &transportmock.Client{CreateErr: wantErr}

	var events int
	s := activation.NewSession(audio.TargetSampleRate, client, func(activation.Event) { events++ })

	err := s.Write(context.Background(), frameChunk(audio.FrameSamples))
	if !errors.Is(err, wantErr) {
		t.Fatalf("Write error = %v, want wrapped %v", err, wantErr)
	}
	if s.Open() {
		t.Error("session open after failed sink creation")
	}
	if events != 0 {
		t.Errorf("events fired = %d, want 0 (no episode opened)", events)
	}
}

func TestSession_WriteErrorSurfacesWithoutRetry(t *testing.T) {
	wantErr := errors.New("connection reset")
	sink := &transportmock.Sink{WriteErr: wantErr}
	client := &transportmock.Client{Sink: sink}
	s := activation.NewSession(audio.TargetSampleRate, client, nil)

	err := s.Write(context.Background(), frameChunk(audio.FrameSamples))
	if !errors.Is(err, wantErr) {
		t.Fatalf("Write error = %v, want wrapped %v", err, wantErr)
	}
	if sink.FrameCount() != 0 {
		t.Errorf("frames recorded despite write error: %d", sink.FrameCount())
	}
}

func TestSession_DiscardsWithoutClient(t *testing.T) {
	s := activation.NewSession(audio.TargetSampleRate, nil, nil)

	if err := s.Write(context.Background(), frameChunk(audio.FrameSamples)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
