package audio

import "fmt"

// FrameEncoder turns an unbounded sequence of capture [Chunk] values into an
// unbounded sequence of fixed-size frames: resample to [TargetSampleRate],
// re-segment the resampled byte stream into [FrameBytes]-sized pieces
// regardless of input chunk boundaries, and reinterpret each piece as
// []float32 for the transport sink.
//
// A partial trailing frame is buffered until enough bytes arrive or the
// pipeline ends, at which point [FrameEncoder.Flush] emits it once, possibly
// short. For any total resampled byte count N the encoder emits exactly
// floor(N / FrameBytes) full frames plus at most one short frame on flush.
//
// Create one per talking episode; not designed for shared use across
// goroutines.
type FrameEncoder struct {
	res     *Resampler
	pending []byte
}

// NewFrameEncoder creates an encoder for chunks captured at captureRate.
func NewFrameEncoder(captureRate int) (*FrameEncoder, error) {
	res, err := NewResampler(captureRate)
	if err != nil {
		return nil, fmt.Errorf("audio: frame encoder: %w", err)
	}
	return &FrameEncoder{res: res}, nil
}

// Encode consumes one chunk and returns every frame completed by it, in
// order. The returned frames are exactly [FrameSamples] samples each; a
// trailing remainder stays buffered for the next call.
//
// The chunk's sample rate must match the rate the encoder was created for —
// the resampler ratio is fixed for the life of the stream.
func (e *FrameEncoder) Encode(c Chunk) ([][]float32, error) {
	if c.SampleRate != e.res.SourceRate() {
		return nil, fmt.Errorf("audio: frame encoder: chunk rate %d does not match stream rate %d",
			c.SampleRate, e.res.SourceRate())
	}

	resampled := e.res.Resample(c.Float32())
	e.pending = append(e.pending, Float32ToBytes(resampled)...)

	n := len(e.pending) / FrameBytes
	if n == 0 {
		return nil, nil
	}

	frames := make([][]float32, 0, n)
	for i := range n {
		frames = append(frames, BytesToFloat32(e.pending[i*FrameBytes:(i+1)*FrameBytes]))
	}

	// Copy the remainder to a fresh slice so consumed bytes can be collected.
	rest := make([]byte, len(e.pending)-n*FrameBytes)
	copy(rest, e.pending[n*FrameBytes:])
	e.pending = rest

	return frames, nil
}

// Flush returns the buffered partial frame, if any, and resets the buffer.
// Call it exactly once, when the stream ends; the returned frame may be
// shorter than [FrameSamples].
func (e *FrameEncoder) Flush() ([]float32, bool) {
	if len(e.pending) == 0 {
		return nil, false
	}
	tail := BytesToFloat32(e.pending)
	e.pending = nil
	return tail, true
}

// PendingBytes reports how many resampled bytes are currently buffered.
// Intended for tests and metrics.
func (e *FrameEncoder) PendingBytes() int { return len(e.pending) }
