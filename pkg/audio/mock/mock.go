// Package mock provides test doubles for the audio package interfaces.
//
// Source plays back a fixed script of chunks and an optional terminal error,
// which is all most pipeline tests need:
//
//	src := &mock.Source{Script: []audio.Chunk{c1, c2}}
//	chunks, errs := src.Start(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/talkgate/pkg/audio"
)

// Source is a mock implementation of [audio.Source]. It emits every chunk in
// Script in order, then Err (if non-nil), then closes both channels.
type Source struct {
	mu sync.Mutex

	// Script is the sequence of chunks to emit.
	Script []audio.Chunk

	// Err, if non-nil, is reported on the error channel after the script
	// has been fully emitted.
	Err error

	// StartCalls counts invocations of Start.
	StartCalls int
}

// Start implements [audio.Source].
func (s *Source) Start(ctx context.Context) (<-chan audio.Chunk, <-chan error) {
	s.mu.Lock()
	s.StartCalls++
	script := make([]audio.Chunk, len(s.Script))
	copy(script, s.Script)
	err := s.Err
	s.mu.Unlock()

	chunks := make(chan audio.Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, c := range script {
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

// Ensure Source implements audio.Source at compile time.
var _ audio.Source = (*Source)(nil)
