// Package mock provides test doubles for the keybind package interfaces.
//
// Binder records registrations and exposes Press/Release helpers so tests can
// drive the bound handlers directly:
//
//	binder := &mock.Binder{}
//	// … construct the policy, which calls binder.Bind …
//	binder.Press("t")
package mock

import (
	"sync"

	"github.com/MrWong99/talkgate/pkg/keybind"
)

// Binder is a mock implementation of [keybind.Binder].
type Binder struct {
	mu sync.Mutex

	// BindErr, if non-nil, is returned as the error from Bind.
	BindErr error

	// BindCalls records the keys passed to Bind, in order.
	BindCalls []string

	// UnbindCalls records the keys whose bindings were unbound, in order.
	UnbindCalls []string

	handlers map[string]keybind.Handler
}

// Bind records the call and stores h for later Press/Release dispatch.
func (b *Binder) Bind(key string, h keybind.Handler) (keybind.Binding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.BindCalls = append(b.BindCalls, key)
	if b.BindErr != nil {
		return nil, b.BindErr
	}
	if b.handlers == nil {
		b.handlers = make(map[string]keybind.Handler)
	}
	b.handlers[key] = h
	return &binding{binder: b, key: key}, nil
}

// Press fires the OnDown callback bound to key, if any.
func (b *Binder) Press(key string) {
	if h, ok := b.handler(key); ok && h.OnDown != nil {
		h.OnDown()
	}
}

// Release fires the OnUp callback bound to key, if any.
func (b *Binder) Release(key string) {
	if h, ok := b.handler(key); ok && h.OnUp != nil {
		h.OnUp()
	}
}

// Bound reports whether key currently has a live binding.
func (b *Binder) Bound(key string) bool {
	_, ok := b.handler(key)
	return ok
}

func (b *Binder) handler(key string) (keybind.Handler, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handlers[key]
	return h, ok
}

// Ensure Binder implements keybind.Binder at compile time.
var _ keybind.Binder = (*Binder)(nil)

// binding implements [keybind.Binding] for one mock registration.
type binding struct {
	binder *Binder
	key    string
	once   sync.Once
}

// Unbind records the call and removes the handler.
func (bd *binding) Unbind() error {
	bd.once.Do(func() {
		bd.binder.mu.Lock()
		delete(bd.binder.handlers, bd.key)
		bd.binder.UnbindCalls = append(bd.binder.UnbindCalls, bd.key)
		bd.binder.mu.Unlock()
	})
	return nil
}
