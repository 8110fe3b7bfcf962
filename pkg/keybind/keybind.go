// Package keybind defines the key-binding abstraction consumed by the
// push-to-talk activation policy.
//
// The policy only needs two things: to be told when its key goes down and
// when it comes back up, and to be able to detach cleanly during teardown.
// Where the events come from (a terminal, a global hotkey daemon, a test) is
// an implementation detail behind [Binder].
package keybind

// Handler holds the callbacks for one bound key. Callbacks are invoked on the
// binder's internal goroutine and must not block; hand off to a channel if
// the work is more than a flag flip.
type Handler struct {
	// OnDown fires when the bound key is pressed.
	OnDown func()

	// OnUp fires when the bound key is released.
	OnUp func()
}

// Binding represents one active key registration.
type Binding interface {
	// Unbind detaches the handler. After Unbind returns, neither callback
	// fires again. Calling Unbind more than once is safe and returns nil.
	Unbind() error
}

// Binder registers key handlers. Implementations must be safe for concurrent
// use.
type Binder interface {
	// Bind registers h for key and returns the active binding. Binding the
	// same key twice replaces the previous handler.
	Bind(key string, h Handler) (Binding, error)
}
