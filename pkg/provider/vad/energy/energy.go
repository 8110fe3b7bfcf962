// Package energy implements a pure-Go RMS-energy voice-activity classifier
// behind the [vad.Engine] interface.
//
// The classifier spends the configured noise-capture window measuring the
// ambient noise floor, derives a speech threshold from it (clamped to the
// configured min/max noise levels), and then applies hysteresis: speech
// starts on the first chunk above the threshold and ends only after a
// hangover's worth of consecutive quiet chunks, so natural gaps between words
// do not flicker the state.
//
// It is a deliberately simple reference backend — good enough to exercise the
// activation pipeline end to end, not a research-grade detector.
package energy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
)

// speechRatio scales the measured noise floor into a speech threshold before
// clamping. 1.6 ≈ +4 dB over ambient.
const speechRatio = 1.6

// defaultHangover is how much consecutive sub-threshold audio ends a speech
// segment.
const defaultHangover = 300 * time.Millisecond

// Compile-time interface assertions.
var (
	_ vad.Engine     = (*Engine)(nil)
	_ vad.Classifier = (*Classifier)(nil)
)

// Engine is the factory for energy classifiers.
type Engine struct {
	// Hangover overrides the silence duration that ends a speech segment.
	// Zero means the default of 300 ms.
	Hangover time.Duration
}

// NewClassifier implements [vad.Engine].
func (e *Engine) NewClassifier(sampleRate int, opts vad.Options, events vad.Events) (vad.Classifier, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("energy: invalid sample rate %d", sampleRate)
	}
	if opts.MinNoiseLevel < 0 || opts.MaxNoiseLevel > 1 || opts.MinNoiseLevel > opts.MaxNoiseLevel {
		return nil, fmt.Errorf("energy: noise levels [%g, %g] out of order or outside [0, 1]",
			opts.MinNoiseLevel, opts.MaxNoiseLevel)
	}

	hangover := e.Hangover
	if hangover <= 0 {
		hangover = defaultHangover
	}

	return &Classifier{
		sampleRate:      sampleRate,
		opts:            opts,
		events:          events,
		calibrationLeft: int(opts.NoiseCaptureDuration.Seconds() * float64(sampleRate)),
		hangoverSamples: int(hangover.Seconds() * float64(sampleRate)),
		threshold:       opts.MaxNoiseLevel, // conservative until calibrated
	}, nil
}

// Classifier is a single-stream RMS classifier. It is driven from one
// serialized pipeline loop and is not safe for concurrent use.
type Classifier struct {
	sampleRate int
	opts       vad.Options
	events     vad.Events

	// Calibration state: noise energy accumulated over the capture window.
	calibrationLeft int // samples still to observe before classifying
	noiseSum        float64
	noiseChunks     int

	threshold       float64
	hangoverSamples int

	speaking      bool
	silentSamples int

	destroyed bool
}

// Process implements [vad.Classifier].
func (c *Classifier) Process(chunk audio.Chunk) error {
	if c.destroyed {
		return errors.New("energy: classifier destroyed")
	}

	samples := chunk.Float32()
	level := rms(samples)
	if c.events.OnUpdate != nil {
		c.events.OnUpdate(level)
	}

	// Calibration window: learn the noise floor, classify nothing.
	if c.calibrationLeft > 0 {
		c.calibrationLeft -= len(samples)
		c.noiseSum += level
		c.noiseChunks++
		if c.calibrationLeft <= 0 {
			c.threshold = clamp(c.noiseSum/float64(c.noiseChunks)*speechRatio,
				c.opts.MinNoiseLevel, c.opts.MaxNoiseLevel)
		}
		return nil
	}

	if c.speaking {
		if level < c.threshold {
			c.silentSamples += len(samples)
			if c.silentSamples >= c.hangoverSamples {
				c.speaking = false
				c.silentSamples = 0
				if c.events.OnVoiceStop != nil {
					c.events.OnVoiceStop()
				}
			}
		} else {
			c.silentSamples = 0
		}
		return nil
	}

	if level >= c.threshold {
		c.speaking = true
		c.silentSamples = 0
		if c.events.OnVoiceStart != nil {
			c.events.OnVoiceStart()
		}
	}
	return nil
}

// Destroy implements [vad.Classifier]. A speech segment left open is not
// closed with a synthetic stop event; the owning policy closes its session
// during finalize anyway.
func (c *Classifier) Destroy() error {
	c.destroyed = true
	return nil
}

// Threshold reports the current speech threshold. Intended for tests.
func (c *Classifier) Threshold() float64 { return c.threshold }

// rms computes the root-mean-square amplitude of samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
