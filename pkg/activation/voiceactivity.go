package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// Compile-time interface assertions.
var (
	_ Policy        = (*VoiceActivity)(nil)
	_ ChunkObserver = (*VoiceActivity)(nil)
)

// VoiceActivity transmits while a black-box classifier reports speech.
//
// While inactive, chunks are not dropped: they are retained in a bounded
// pre-roll backlog whose total length never falls below the configured
// minimum. The moment the classifier signals voice start, the backlog is
// flushed into the session in original arrival order — replaying the audio
// the classifier was still deciding about — and live chunks follow. Voice
// stop closes the session and returns the policy to buffering.
type VoiceActivity struct {
	session    *Session
	classifier vad.Classifier
	backlog    backlog

	triggers chan Trigger

	// active is mutated only by HandleTrigger and read only by Accept,
	// both on the serialized policy loop.
	active bool

	cb        func(Event)
	finalized bool
}

// NewVoiceActivity creates a VoiceActivity policy with a classifier built
// from engine. minBacklogBytes is the pre-roll floor; zero or negative
// selects [DefaultBacklogMinBytes]. client may be nil for local-only
// operation.
func NewVoiceActivity(captureRate int, client transport.Client, engine vad.Engine, opts vad.Options, minBacklogBytes int) (*VoiceActivity, error) {
	if minBacklogBytes <= 0 {
		minBacklogBytes = DefaultBacklogMinBytes
	}

	v := &VoiceActivity{
		backlog:  backlog{min: minBacklogBytes},
		triggers: make(chan Trigger, triggerBuffer),
	}
	v.session = NewSession(captureRate, client, func(e Event) { v.emit(e) })

	classifier, err := engine.NewClassifier(captureRate, opts, vad.Events{
		OnVoiceStart: func() { v.push(Trigger{Type: TriggerVoiceStart}) },
		OnVoiceStop:  func() { v.push(Trigger{Type: TriggerVoiceStop}) },
		OnUpdate:     func(level float64) { v.push(Trigger{Type: TriggerLevel, Level: level}) },
	})
	if err != nil {
		return nil, fmt.Errorf("activation: create classifier: %w", err)
	}
	v.classifier = classifier
	return v, nil
}

// push enqueues a trigger without blocking the classifier's caller. Level
// triggers are sacrificial under load; start/stop triggers fit comfortably in
// the buffer because the loop drains between chunks.
func (v *VoiceActivity) push(t Trigger) {
	select {
	case v.triggers <- t:
	default:
		if t.Type != TriggerLevel {
			slog.Warn("voice-activity: trigger queue full, dropping event", "trigger", t.Type)
		}
	}
}

// Observe implements [ChunkObserver]: it feeds the classifier the same chunk
// the policy is about to process. Classifier failures degrade detection but
// must not stall the audio path, so they are logged and swallowed here.
func (v *VoiceActivity) Observe(chunk audio.Chunk) {
	if v.finalized {
		return
	}
	if err := v.classifier.Process(chunk); err != nil {
		slog.Warn("voice-activity: classifier error", "err", err)
	}
}

// Accept implements [Policy]. While active, any backlog is flushed in arrival
// order before the current chunk; while inactive, the chunk is buffered and
// the call completes immediately without downstream I/O.
func (v *VoiceActivity) Accept(ctx context.Context, chunk audio.Chunk) (Action, error) {
	if v.finalized {
		return ActionDrop, ErrFinalized
	}

	if !v.active {
		v.backlog.push(chunk)
		return ActionBuffer, nil
	}

	if err := v.flushBacklog(ctx); err != nil {
		return ActionForward, err
	}
	if err := v.session.Write(ctx, chunk); err != nil {
		return ActionForward, err
	}
	return ActionForward, nil
}

// Triggers implements [Policy].
func (v *VoiceActivity) Triggers() <-chan Trigger { return v.triggers }

// HandleTrigger implements [Policy]. Voice start flushes the backlog into the
// session immediately; voice stop closes the session synchronously; level
// readings are re-emitted as notifications without touching state.
func (v *VoiceActivity) HandleTrigger(ctx context.Context, trig Trigger) error {
	if v.finalized {
		return ErrFinalized
	}
	switch trig.Type {
	case TriggerVoiceStart:
		v.active = true
		return v.flushBacklog(ctx)
	case TriggerVoiceStop:
		v.active = false
		return v.session.Close(ctx)
	case TriggerLevel:
		v.emit(Event{Type: EventLevel, Level: trig.Level})
	}
	return nil
}

// flushBacklog replays every backlogged chunk into the session in original
// arrival order, then clears the backlog.
func (v *VoiceActivity) flushBacklog(ctx context.Context) error {
	if v.backlog.empty() {
		return nil
	}
	for _, chunk := range v.backlog.drain() {
		if err := v.session.Write(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// OnEvent implements [Policy].
func (v *VoiceActivity) OnEvent(cb func(Event)) { v.cb = cb }

// Finalize implements [Policy]. The session is closed before the classifier
// is destroyed, so a late classifier event cannot fire into a torn-down
// policy.
func (v *VoiceActivity) Finalize(ctx context.Context) error {
	if v.finalized {
		return nil
	}
	closeErr := v.session.finalize(ctx)
	destroyErr := v.classifier.Destroy()
	v.finalized = true
	if closeErr != nil {
		return closeErr
	}
	if destroyErr != nil {
		return fmt.Errorf("activation: destroy classifier: %w", destroyErr)
	}
	return nil
}

func (v *VoiceActivity) emit(e Event) {
	if v.cb != nil {
		v.cb(e)
	}
}
