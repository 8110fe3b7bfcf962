// Package vad defines the black-box voice-activity classifier interface
// consumed by the voice-activity activation policy.
//
// A classifier is fed the same capture chunks the policy sees and answers
// with edge events: voice started, voice stopped, plus a continuous level
// reading for UI metering. The detection algorithm behind those events is
// opaque to the rest of Talkgate — the policy only reacts to the events and
// compensates for detection latency with its pre-roll backlog.
//
// Implementations must be safe for concurrent use across different
// classifiers. A single [Classifier] is driven from one serialized pipeline
// loop and need not be thread safe unless documented otherwise.
package vad

import (
	"time"

	"github.com/MrWong99/talkgate/pkg/audio"
)

// Options holds the tuning parameters for a classifier. All levels are
// normalized RMS amplitudes in [0, 1].
type Options struct {
	// MinNoiseLevel is the lower clamp for the adaptive speech threshold.
	// Setting MinNoiseLevel == MaxNoiseLevel collapses the adaptive range to
	// a fixed threshold; that is a supported calibration choice, not an error.
	MinNoiseLevel float64

	// MaxNoiseLevel is the upper clamp for the adaptive speech threshold.
	// Must be ≥ MinNoiseLevel.
	MaxNoiseLevel float64

	// NoiseCaptureDuration is how much leading audio the classifier may spend
	// measuring the ambient noise floor before it starts classifying.
	NoiseCaptureDuration time.Duration
}

// Events are the callbacks a classifier invokes as it classifies the stream.
// Any nil callback is simply skipped. Callbacks are invoked synchronously
// from [Classifier.Process]; they must not block.
type Events struct {
	// OnVoiceStart fires once when speech is first detected.
	OnVoiceStart func()

	// OnVoiceStop fires once when an active speech segment ends.
	OnVoiceStop func()

	// OnUpdate fires per processed chunk with the current level reading,
	// regardless of speech state. Intended for UI metering only.
	OnUpdate func(level float64)
}

// Classifier is an active voice-activity detector for a single audio stream.
type Classifier interface {
	// Process analyses one capture chunk and fires the registered event
	// callbacks as appropriate. It must not block; it is called inline from
	// the pipeline loop between chunks.
	Process(chunk audio.Chunk) error

	// Destroy releases the classifier's resources. After Destroy, Process
	// must return an error. Calling Destroy more than once is safe and
	// returns nil.
	Destroy() error
}

// Engine is the factory for classifiers. It is the top-level interface
// implemented by each VAD backend.
//
// Implementations must be safe for concurrent use.
type Engine interface {
	// NewClassifier creates a classifier for a stream captured at sampleRate.
	// Returns an error if the options are invalid or resources cannot be
	// allocated.
	NewClassifier(sampleRate int, opts Options, events Events) (Classifier, error)
}
