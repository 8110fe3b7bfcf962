package activation

import (
	"context"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// Compile-time interface assertion.
var _ Policy = (*Continuous)(nil)

// Continuous is the always-transmitting policy: every chunk is forwarded, in
// order, with no drops. It has no external trigger source.
type Continuous struct {
	session   *Session
	cb        func(Event)
	finalized bool
}

// NewContinuous creates a Continuous policy. client may be nil for
// local-only operation (frames are discarded).
func NewContinuous(captureRate int, client transport.Client) *Continuous {
	p := &Continuous{}
	p.session = NewSession(captureRate, client, func(e Event) { p.emit(e) })
	return p
}

// Accept implements [Policy]: forward unconditionally.
func (p *Continuous) Accept(ctx context.Context, chunk audio.Chunk) (Action, error) {
	if p.finalized {
		return ActionDrop, ErrFinalized
	}
	if err := p.session.Write(ctx, chunk); err != nil {
		return ActionForward, err
	}
	return ActionForward, nil
}

// Triggers implements [Policy]. Continuous has no trigger source.
func (p *Continuous) Triggers() <-chan Trigger { return nil }

// HandleTrigger implements [Policy]. No triggers are ever delivered.
func (p *Continuous) HandleTrigger(context.Context, Trigger) error {
	if p.finalized {
		return ErrFinalized
	}
	return nil
}

// OnEvent implements [Policy].
func (p *Continuous) OnEvent(cb func(Event)) { p.cb = cb }

// Finalize implements [Policy].
func (p *Continuous) Finalize(ctx context.Context) error {
	if p.finalized {
		return nil
	}
	err := p.session.finalize(ctx)
	p.finalized = true
	return err
}

func (p *Continuous) emit(e Event) {
	if p.cb != nil {
		p.cb(e)
	}
}
