// Package audio defines the capture-side audio types and the encode pipeline
// for Talkgate.
//
// Audio enters the system as a [Chunk] — one capture callback's worth of mono
// float32 PCM at the device's native sample rate — and leaves it as fixed-size
// 480-sample frames at 48 kHz, produced by a [FrameEncoder]. A [Source]
// abstracts where chunks come from (a WAV file, a test double, a platform
// adapter).
//
// This package lives under pkg/ because external code (alternative capture
// adapters) is expected to implement [Source].
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Pipeline-wide constants. The transport side of Talkgate speaks exactly one
// format: 48 kHz mono float32 in 10 ms frames.
const (
	// TargetSampleRate is the sample rate of every frame handed to a
	// transport sink.
	TargetSampleRate = 48000

	// FrameSamples is the number of float32 samples per outbound frame
	// (10 ms at 48 kHz).
	FrameSamples = 480

	// FrameBytes is the byte length of one outbound frame
	// (480 samples × 4 bytes).
	FrameBytes = FrameSamples * 4
)

// Chunk is one capture buffer's worth of PCM audio. Data holds little-endian
// float32 mono samples at SampleRate.
//
// Chunks are produced once by a [Source] and passed by reference through the
// pipeline; they must never be mutated after creation.
type Chunk struct {
	// Data is the raw little-endian float32 PCM payload.
	Data []byte

	// SampleRate in Hz of the capture device (e.g., 44100, 16000).
	SampleRate int

	// Channels is the channel count. Talkgate capture is mono; the field
	// exists so adapters can reject anything else early.
	Channels int

	// Timestamp marks when this chunk was captured, relative to stream start.
	Timestamp time.Duration
}

// Samples returns the number of float32 samples in the chunk.
func (c Chunk) Samples() int { return len(c.Data) / 4 }

// Float32 decodes the chunk payload into a fresh []float32.
func (c Chunk) Float32() []float32 { return BytesToFloat32(c.Data) }

// BytesToFloat32 reinterprets little-endian float32 bytes as samples.
// Trailing bytes that do not form a complete sample are ignored.
func BytesToFloat32(b []byte) []float32 {
	samples := make([]float32, len(b)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return samples
}

// Float32ToBytes encodes samples as little-endian float32 bytes.
func Float32ToBytes(samples []float32) []byte {
	b := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(s))
	}
	return b
}
