package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// Session owns the lifetime of one talking episode. The encode pipeline and
// transport sink are built lazily on the first write (or an explicit
// [Session.GetOrCreate]) and torn down exactly once by [Session.Close]; the
// open→closed transitions emit the started/stopped notifications.
//
// A Session is driven from the single policy goroutine and is not safe for
// concurrent use. At most one episode is open at a time: Close must complete
// before the next GetOrCreate, which is guaranteed by construction on the
// serialized loop and enforced with [ErrClosing] as a defensive check.
type Session struct {
	captureRate int
	client      transport.Client // nil means frames are discarded
	notify      func(Event)

	enc  *audio.FrameEncoder
	sink transport.Sink

	open      bool
	closing   bool
	finalized bool
}

// NewSession creates a closed session. notify receives the started/stopped
// events; pass nil for no notifications.
func NewSession(captureRate int, client transport.Client, notify func(Event)) *Session {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Session{
		captureRate: captureRate,
		client:      client,
		notify:      notify,
	}
}

// SetNotify replaces the notification callback. Used by policies to fan
// session events into their own OnEvent registration.
func (s *Session) SetNotify(notify func(Event)) {
	if notify == nil {
		notify = func(Event) {}
	}
	s.notify = notify
}

// Open reports whether an episode is currently open.
func (s *Session) Open() bool { return s.open }

// GetOrCreate opens the episode if none is open: it constructs a fresh
// [audio.FrameEncoder] and transport sink (or a discarding sink when no
// client is configured) and emits started_talking. Calling it on an already
// open session is a no-op — calling twice has the same observable effect as
// calling once.
func (s *Session) GetOrCreate(ctx context.Context) error {
	if s.finalized {
		return ErrFinalized
	}
	if s.closing {
		return ErrClosing
	}
	if s.open {
		return nil
	}

	enc, err := audio.NewFrameEncoder(s.captureRate)
	if err != nil {
		return fmt.Errorf("activation: open session: %w", err)
	}

	sink := transport.Discard()
	if s.client != nil {
		sink, err = s.client.CreateVoiceSink(ctx)
		if err != nil {
			return fmt.Errorf("activation: create voice sink: %w", err)
		}
	}

	s.enc = enc
	s.sink = sink
	s.open = true
	s.notify(Event{Type: EventStartedTalking})
	return nil
}

// Write forwards one chunk into the episode's encode pipeline, opening the
// episode first if needed. Completed frames are written to the sink in order;
// a sink error is returned to the caller and the frame is not retried.
func (s *Session) Write(ctx context.Context, chunk audio.Chunk) error {
	if err := s.GetOrCreate(ctx); err != nil {
		return err
	}

	frames, err := s.enc.Encode(chunk)
	if err != nil {
		return fmt.Errorf("activation: encode chunk: %w", err)
	}
	for _, frame := range frames {
		if err := s.sink.WriteFrame(ctx, frame); err != nil {
			return fmt.Errorf("activation: write frame: %w", err)
		}
	}
	return nil
}

// Close ends the episode: the trailing partial frame (if any) is flushed to
// the sink, the sink is released exactly once, and stopped_talking is
// emitted. Closing a closed session is a no-op — calling twice has the same
// observable effect as calling once.
func (s *Session) Close(ctx context.Context) error {
	if !s.open {
		return nil
	}

	s.closing = true
	defer func() { s.closing = false }()

	var writeErr error
	if tail, ok := s.enc.Flush(); ok {
		if err := s.sink.WriteFrame(ctx, tail); err != nil {
			writeErr = fmt.Errorf("activation: flush trailing frame: %w", err)
		}
	}

	closeErr := s.sink.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("activation: close sink: %w", closeErr)
	}

	s.enc = nil
	s.sink = nil
	s.open = false
	s.notify(Event{Type: EventStoppedTalking})

	return errors.Join(writeErr, closeErr)
}

// finalize closes the session and marks it unusable. Called by the owning
// policy's Finalize.
func (s *Session) finalize(ctx context.Context) error {
	err := s.Close(ctx)
	s.finalized = true
	return err
}
