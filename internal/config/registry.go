package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
	"github.com/MrWong99/talkgate/pkg/transport"
)

// ErrNotRegistered is returned by Create* methods when no factory has been
// registered under the requested name.
var ErrNotRegistered = errors.New("config: implementation not registered")

// Registry maps implementation names to their constructor functions for each
// pluggable slot: transport clients, capture sources, and VAD engines.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	transport map[string]func(TransportConfig) (transport.Client, error)
	capture   map[string]func(CaptureConfig) (audio.Source, error)
	vad       map[string]func(VoiceActivityConfig) (vad.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		transport: make(map[string]func(TransportConfig) (transport.Client, error)),
		capture:   make(map[string]func(CaptureConfig) (audio.Source, error)),
		vad:       make(map[string]func(VoiceActivityConfig) (vad.Engine, error)),
	}
}

// RegisterTransport registers a transport client factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTransport(name string, factory func(TransportConfig) (transport.Client, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport[name] = factory
}

// RegisterCapture registers a capture source factory under name.
func (r *Registry) RegisterCapture(name string, factory func(CaptureConfig) (audio.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterVAD registers a VAD engine factory under name.
func (r *Registry) RegisterVAD(name string, factory func(VoiceActivityConfig) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// CreateTransport instantiates the transport client named by cfg.Name.
// Returns (nil, nil) for "none"/empty — no transport is a supported setup.
func (r *Registry) CreateTransport(cfg TransportConfig) (transport.Client, error) {
	if cfg.Name == "" || cfg.Name == "none" {
		return nil, nil
	}
	r.mu.RLock()
	factory, ok := r.transport[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transport/%q", ErrNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateCapture instantiates the capture source named by cfg.Source.
func (r *Registry) CreateCapture(cfg CaptureConfig) (audio.Source, error) {
	r.mu.RLock()
	factory, ok := r.capture[cfg.Source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrNotRegistered, cfg.Source)
	}
	return factory(cfg)
}

// CreateVAD instantiates the VAD engine named by cfg.Engine. An empty name
// selects "energy", the built-in default.
func (r *Registry) CreateVAD(cfg VoiceActivityConfig) (vad.Engine, error) {
	name := cfg.Engine
	if name == "" {
		name = "energy"
	}
	r.mu.RLock()
	factory, ok := r.vad[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrNotRegistered, name)
	}
	return factory(cfg)
}
