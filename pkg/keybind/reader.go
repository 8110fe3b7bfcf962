package keybind

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Compile-time interface assertion.
var _ Binder = (*ReaderBinder)(nil)

// ReaderBinder is a line-oriented [Binder] for environments without a real
// hotkey subsystem (a terminal, an ssh session, a test). It reads the
// following one-token-per-line protocol from r:
//
//	+<key>   key down
//	-<key>   key up
//	<key>    key down immediately followed by key up (a tap)
//
// Dispatch starts on the first Bind call and stops when r reaches EOF.
type ReaderBinder struct {
	r io.Reader

	mu       sync.Mutex
	handlers map[string]Handler
	started  bool
}

// NewReaderBinder creates a ReaderBinder over r (typically os.Stdin).
func NewReaderBinder(r io.Reader) *ReaderBinder {
	return &ReaderBinder{
		r:        r,
		handlers: make(map[string]Handler),
	}
}

// Bind implements [Binder].
func (b *ReaderBinder) Bind(key string, h Handler) (Binding, error) {
	b.mu.Lock()
	b.handlers[key] = h
	if !b.started {
		b.started = true
		go b.dispatch()
	}
	b.mu.Unlock()
	return &readerBinding{binder: b, key: key}, nil
}

// dispatch runs on its own goroutine, translating input lines into handler
// callbacks until the reader is exhausted.
func (b *ReaderBinder) dispatch() {
	scanner := bufio.NewScanner(b.r)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}

		down, up := true, true
		switch token[0] {
		case '+':
			token, up = token[1:], false
		case '-':
			token, down = token[1:], false
		}

		b.mu.Lock()
		h, ok := b.handlers[token]
		b.mu.Unlock()
		if !ok {
			continue
		}

		if down && h.OnDown != nil {
			h.OnDown()
		}
		if up && h.OnUp != nil {
			h.OnUp()
		}
	}
}

// readerBinding implements [Binding] for one key on a ReaderBinder.
type readerBinding struct {
	binder *ReaderBinder
	key    string
	once   sync.Once
}

// Unbind implements [Binding].
func (rb *readerBinding) Unbind() error {
	rb.once.Do(func() {
		rb.binder.mu.Lock()
		delete(rb.binder.handlers, rb.key)
		rb.binder.mu.Unlock()
	})
	return nil
}
