package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/keybind"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// triggerBuffer sizes a policy's trigger channel. Triggers are drained by the
// supervisor loop between chunks (every ~20 ms), so this covers any realistic
// key or classifier event rate.
const triggerBuffer = 16

// Compile-time interface assertion.
var _ Policy = (*PushToTalk)(nil)

// PushToTalk transmits while a bound key is held. A key-down alone does not
// open a session — the episode starts with the first chunk observed while
// pressed; a key-up closes any open session the moment the trigger is
// handled, without waiting for another chunk.
type PushToTalk struct {
	session *Session
	binding keybind.Binding
	key     string

	triggers chan Trigger

	// pressed is mutated only by HandleTrigger and read only by Accept,
	// both on the serialized policy loop.
	pressed bool

	cb        func(Event)
	finalized bool
}

// NewPushToTalk creates a PushToTalk policy and registers it with binder for
// key. client may be nil for local-only operation.
func NewPushToTalk(captureRate int, client transport.Client, binder keybind.Binder, key string) (*PushToTalk, error) {
	p := &PushToTalk{
		key:      key,
		triggers: make(chan Trigger, triggerBuffer),
	}
	p.session = NewSession(captureRate, client, func(e Event) { p.emit(e) })

	binding, err := binder.Bind(key, keybind.Handler{
		OnDown: func() { p.push(Trigger{Type: TriggerKeyDown}) },
		OnUp:   func() { p.push(Trigger{Type: TriggerKeyUp}) },
	})
	if err != nil {
		return nil, fmt.Errorf("activation: bind key %q: %w", key, err)
	}
	p.binding = binding
	return p, nil
}

// push enqueues a trigger without blocking the binder's goroutine. The
// channel capacity makes an overflow pathological; if it happens anyway the
// trigger is dropped and logged rather than deadlocking the key source.
func (p *PushToTalk) push(t Trigger) {
	select {
	case p.triggers <- t:
	default:
		slog.Warn("push-to-talk: trigger queue full, dropping key event", "key", p.key, "trigger", t.Type)
	}
}

// Accept implements [Policy]: forward while pressed, drop otherwise. Dropped
// chunks complete immediately without downstream I/O.
func (p *PushToTalk) Accept(ctx context.Context, chunk audio.Chunk) (Action, error) {
	if p.finalized {
		return ActionDrop, ErrFinalized
	}
	if !p.pressed {
		return ActionDrop, nil
	}
	if err := p.session.Write(ctx, chunk); err != nil {
		return ActionForward, err
	}
	return ActionForward, nil
}

// Triggers implements [Policy].
func (p *PushToTalk) Triggers() <-chan Trigger { return p.triggers }

// HandleTrigger implements [Policy]. Key-up closes the open session
// synchronously — the episode ends even if no further chunk ever arrives.
func (p *PushToTalk) HandleTrigger(ctx context.Context, trig Trigger) error {
	if p.finalized {
		return ErrFinalized
	}
	switch trig.Type {
	case TriggerKeyDown:
		p.pressed = true
	case TriggerKeyUp:
		p.pressed = false
		return p.session.Close(ctx)
	}
	return nil
}

// OnEvent implements [Policy].
func (p *PushToTalk) OnEvent(cb func(Event)) { p.cb = cb }

// Finalize implements [Policy]. The session is closed before the key binding
// is released: stop producing into the transport first, then detach the
// trigger source, so a late key event cannot reach a torn-down policy.
func (p *PushToTalk) Finalize(ctx context.Context) error {
	if p.finalized {
		return nil
	}
	closeErr := p.session.finalize(ctx)
	unbindErr := p.binding.Unbind()
	p.finalized = true
	if closeErr != nil {
		return closeErr
	}
	if unbindErr != nil {
		return fmt.Errorf("activation: unbind key %q: %w", p.key, unbindErr)
	}
	return nil
}

func (p *PushToTalk) emit(e Event) {
	if p.cb != nil {
		p.cb(e)
	}
}
