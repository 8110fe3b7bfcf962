// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that classifiers are created with the expected
// configuration. Use Classifier to inspect the chunks submitted for
// processing and to fire voice events manually:
//
//	cls := &mock.Classifier{}
//	eng := &mock.Engine{Classifier: cls}
//	// … build the policy …
//	cls.FireVoiceStart()
package mock

import (
	"sync"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
)

// NewClassifierCall records a single invocation of Engine.NewClassifier.
type NewClassifierCall struct {
	// SampleRate is the capture rate passed to NewClassifier.
	SampleRate int

	// Opts is the Options value passed to NewClassifier.
	Opts vad.Options
}

// Engine is a mock implementation of [vad.Engine].
type Engine struct {
	mu sync.Mutex

	// Classifier is returned by NewClassifier. If nil, a fresh default
	// Classifier is returned.
	Classifier *Classifier

	// NewClassifierErr, if non-nil, is returned as the error from
	// NewClassifier.
	NewClassifierErr error

	// NewClassifierCalls records every call to NewClassifier in order.
	NewClassifierCalls []NewClassifierCall
}

// NewClassifier records the call, wires the events into the returned
// Classifier so tests can fire them, and returns Classifier, NewClassifierErr.
func (e *Engine) NewClassifier(sampleRate int, opts vad.Options, events vad.Events) (vad.Classifier, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewClassifierCalls = append(e.NewClassifierCalls, NewClassifierCall{SampleRate: sampleRate, Opts: opts})
	if e.NewClassifierErr != nil {
		return nil, e.NewClassifierErr
	}
	c := e.Classifier
	if c == nil {
		c = &Classifier{}
		e.Classifier = c
	}
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
	return c, nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// Classifier is a mock implementation of [vad.Classifier]. It records calls
// and exposes Fire* helpers that invoke the event callbacks registered at
// creation time.
type Classifier struct {
	mu sync.Mutex

	events vad.Events

	// ProcessErr, if non-nil, is returned by every Process call.
	ProcessErr error

	// ProcessCalls records a copy of every chunk passed to Process.
	ProcessCalls []audio.Chunk

	// DestroyCalls counts invocations of Destroy.
	DestroyCalls int
}

// Process records the call and returns ProcessErr.
func (c *Classifier) Process(chunk audio.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProcessCalls = append(c.ProcessCalls, chunk)
	return c.ProcessErr
}

// Destroy records the call and returns nil.
func (c *Classifier) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DestroyCalls++
	return nil
}

// FireVoiceStart invokes the registered OnVoiceStart callback, if any.
func (c *Classifier) FireVoiceStart() {
	if cb := c.callbacks().OnVoiceStart; cb != nil {
		cb()
	}
}

// FireVoiceStop invokes the registered OnVoiceStop callback, if any.
func (c *Classifier) FireVoiceStop() {
	if cb := c.callbacks().OnVoiceStop; cb != nil {
		cb()
	}
}

// FireUpdate invokes the registered OnUpdate callback, if any.
func (c *Classifier) FireUpdate(level float64) {
	if cb := c.callbacks().OnUpdate; cb != nil {
		cb(level)
	}
}

func (c *Classifier) callbacks() vad.Events {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Ensure Classifier implements vad.Classifier at compile time.
var _ vad.Classifier = (*Classifier)(nil)
