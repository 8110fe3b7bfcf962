// Package wavsource provides an [audio.Source] that plays back a 16-bit PCM
// WAV file as if it were a live microphone, pacing chunk delivery in real
// time. It exists so activation policies can be exercised end to end on a
// machine without a capture device.
package wavsource

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/MrWong99/talkgate/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Source = (*Source)(nil)

const defaultChunkMs = 20

// Source reads one WAV file and emits it as mono float32 chunks at the file's
// native sample rate.
type Source struct {
	path    string
	chunkMs int
}

// Option configures a [Source].
type Option func(*Source)

// WithChunkDuration sets how much audio each emitted chunk covers.
// The default is 20 ms.
func WithChunkDuration(d time.Duration) Option {
	return func(s *Source) {
		if ms := int(d.Milliseconds()); ms > 0 {
			s.chunkMs = ms
		}
	}
}

// New creates a Source for the WAV file at path. The file is not opened until
// [Source.Start] is called.
func New(path string, opts ...Option) *Source {
	s := &Source{path: path, chunkMs: defaultChunkMs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start implements [audio.Source]. The file is decoded up front; playback is
// then paced so that chunks arrive at roughly the cadence a real capture
// device would deliver them.
func (s *Source) Start(ctx context.Context) (<-chan audio.Chunk, <-chan error) {
	chunks := make(chan audio.Chunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		samples, rate, err := decodeFile(s.path)
		if err != nil {
			errs <- err
			return
		}

		chunkSamples := rate * s.chunkMs / 1000
		if chunkSamples == 0 {
			chunkSamples = 1
		}
		interval := time.Duration(s.chunkMs) * time.Millisecond

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var elapsed time.Duration
		for offset := 0; offset < len(samples); offset += chunkSamples {
			end := min(offset+chunkSamples, len(samples))
			chunk := audio.Chunk{
				Data:       audio.Float32ToBytes(samples[offset:end]),
				SampleRate: rate,
				Channels:   1,
				Timestamp:  elapsed,
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			elapsed += interval

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, errs
}

// decodeFile reads a 16-bit PCM WAV file and returns mono float32 samples in
// the range [-1, 1] plus the file's sample rate. Stereo files are downmixed
// by averaging the channel pair.
func decodeFile(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavsource: read %q: %w", path, err)
	}
	return Decode(data)
}

// Decode parses 16-bit PCM WAV bytes. Exposed separately so tests can build
// files in memory.
func Decode(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("wavsource: not a RIFF/WAVE file")
	}

	var (
		channels   int
		sampleRate int
		bits       int
		pcm        []byte
	)

	// Walk the chunk list; only "fmt " and "data" matter.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("wavsource: truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("wavsource: fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("wavsource: unsupported audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunk bodies are word-aligned.
		off = body + size + size%2
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, fmt.Errorf("wavsource: missing fmt or data chunk")
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("wavsource: unsupported bit depth %d (want 16)", bits)
	}
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("wavsource: unsupported channel count %d", channels)
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]float32, frames)
	for i := range frames {
		if channels == 1 {
			s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			samples[i] = float32(s) / math.MaxInt16
		} else {
			l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
			r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
			samples[i] = float32(int32(l)+int32(r)) / 2 / math.MaxInt16
		}
	}
	return samples, sampleRate, nil
}
