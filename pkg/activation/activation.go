// Package activation implements the talk-gating state machines that decide,
// per capture chunk, whether microphone audio is forwarded to the voice
// transport, buffered, or dropped.
//
// Three policies share one [Session] helper:
//
//   - [Continuous] — always transmitting.
//   - [PushToTalk] — transmitting while a bound key is held.
//   - [VoiceActivity] — transmitting while a classifier reports speech, with
//     a pre-roll backlog so classifier latency does not clip utterance onsets.
//
// Concurrency model: a policy is single-threaded by construction. External
// trigger sources (keyboard, classifier) do not call into the policy —
// their callbacks enqueue typed [Trigger] values onto the channel returned by
// [Policy.Triggers], and one supervisor loop interleaves those triggers with
// chunk arrivals, calling [Policy.Accept] and [Policy.HandleTrigger] from a
// single goroutine. That serialization is what guarantees ordering: chunks
// reach the transport in strict arrival order, a backlog flush precedes the
// live chunk that follows activation, and started/stopped notifications are
// strictly paired with at most one open episode at a time.
package activation

import (
	"context"
	"errors"

	"github.com/MrWong99/talkgate/pkg/audio"
)

// Misuse errors. These indicate a bug in the caller, not a runtime condition
// to recover from; the policy fails fast rather than corrupt its state.
var (
	// ErrFinalized is returned when a chunk or trigger reaches a policy
	// after Finalize.
	ErrFinalized = errors.New("activation: policy already finalized")

	// ErrClosing is returned when a new episode would be opened while a
	// close is still in flight. Callers must let Close finish first so
	// episodes never interleave.
	ErrClosing = errors.New("activation: session close in flight")
)

// Action classifies what a policy did with one chunk.
type Action int

const (
	// ActionForward means the chunk was written to the open session.
	ActionForward Action = iota

	// ActionDrop means the chunk was discarded by policy (not an error).
	ActionDrop

	// ActionBuffer means the chunk was retained in the pre-roll backlog.
	ActionBuffer
)

// String returns the lower-case name of the action, for logs and metric
// attributes.
func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionDrop:
		return "drop"
	case ActionBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// EventType classifies the notifications a policy emits.
type EventType int

const (
	// EventStartedTalking fires when a session opens (episode start).
	EventStartedTalking EventType = iota

	// EventStoppedTalking fires when a session closes (episode end).
	EventStoppedTalking

	// EventLevel carries a classifier level reading for UI metering.
	// Emitted by the voice-activity policy only.
	EventLevel
)

// Event is one observable notification from a policy. Started/stopped events
// are strictly paired and never overlap.
type Event struct {
	Type EventType

	// Level is the classifier level reading; meaningful for EventLevel only.
	Level float64
}

// TriggerType classifies external trigger events.
type TriggerType int

const (
	// TriggerKeyDown — the push-to-talk key was pressed.
	TriggerKeyDown TriggerType = iota

	// TriggerKeyUp — the push-to-talk key was released.
	TriggerKeyUp

	// TriggerVoiceStart — the classifier detected speech onset.
	TriggerVoiceStart

	// TriggerVoiceStop — the classifier detected the end of speech.
	TriggerVoiceStop

	// TriggerLevel — a classifier level reading to re-emit for metering.
	TriggerLevel
)

// Trigger is one typed external event, pushed by a trigger source's callback
// and consumed by the supervisor loop.
type Trigger struct {
	Type TriggerType

	// Level carries the reading for TriggerLevel triggers.
	Level float64
}

// Policy is an activation state machine. Implementations hold only their own
// state and are driven from a single goroutine; see the package comment for
// the serialization contract.
type Policy interface {
	// Accept processes one capture chunk and reports what was done with it.
	// A Forward result may suspend on transport backpressure; Drop and
	// Buffer results complete immediately without downstream I/O.
	Accept(ctx context.Context, chunk audio.Chunk) (Action, error)

	// Triggers returns the channel the supervisor must drain alongside the
	// chunk stream. Policies without an external trigger source return nil
	// (a nil channel never fires in a select).
	Triggers() <-chan Trigger

	// HandleTrigger applies one trigger to the state machine.
	HandleTrigger(ctx context.Context, trig Trigger) error

	// OnEvent registers cb for this policy's notifications. Only one
	// callback may be registered; subsequent calls replace it. The callback
	// is invoked synchronously from the policy loop and must not block.
	OnEvent(cb func(Event))

	// Finalize closes any open session (flushing buffered audio) and only
	// then releases the external trigger source, so a trigger can never
	// fire into a torn-down policy. Finalize is idempotent; after it
	// returns, Accept and HandleTrigger fail with ErrFinalized.
	Finalize(ctx context.Context) error
}

// ChunkObserver is implemented by policies that need to see every capture
// chunk regardless of state — the voice-activity policy feeds its classifier
// this way. The supervisor calls Observe before Accept for each chunk.
type ChunkObserver interface {
	Observe(chunk audio.Chunk)
}
