package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// knownTransports and knownCaptureSources list the implementations that ship
// with Talkgate. Used by [Validate] to warn about unrecognised names — a typo
// should surface at startup, not as a silent discard sink.
var (
	knownTransports     = []string{"", "none", "discord", "websocket"}
	knownCaptureSources = []string{"wav"}
	knownVADEngines     = []string{"", "energy"}
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if cfg.Capture.Source == "" {
		errs = append(errs, errors.New("capture.source is required"))
	} else if !contains(knownCaptureSources, cfg.Capture.Source) {
		slog.Warn("capture.source is not a built-in source", "source", cfg.Capture.Source)
	}
	if cfg.Capture.Source == "wav" && cfg.Capture.Path == "" {
		errs = append(errs, errors.New("capture.path is required for the wav source"))
	}
	if cfg.Capture.ChunkMs < 0 {
		errs = append(errs, fmt.Errorf("capture.chunk_ms %d must not be negative", cfg.Capture.ChunkMs))
	}

	// Activation
	if !cfg.Activation.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("activation.mode %q is invalid; valid values: continuous, push_to_talk, voice_activity", cfg.Activation.Mode))
	}
	if cfg.Activation.Mode == ModePushToTalk && cfg.Activation.PushToTalk.Key == "" {
		errs = append(errs, errors.New("activation.push_to_talk.key is required in push_to_talk mode"))
	}
	if cfg.Activation.Mode == ModeVoiceActivity {
		va := cfg.Activation.VoiceActivity
		if !contains(knownVADEngines, va.Engine) {
			slog.Warn("activation.voice_activity.engine is not a built-in engine", "engine", va.Engine)
		}
		if va.MinNoiseLevel < 0 || va.MaxNoiseLevel > 1 {
			errs = append(errs, fmt.Errorf("activation.voice_activity noise levels [%g, %g] must lie in [0, 1]", va.MinNoiseLevel, va.MaxNoiseLevel))
		}
		if va.MinNoiseLevel > va.MaxNoiseLevel {
			errs = append(errs, fmt.Errorf("activation.voice_activity.min_noise_level %g exceeds max_noise_level %g", va.MinNoiseLevel, va.MaxNoiseLevel))
		}
		if va.NoiseCaptureDuration < 0 {
			errs = append(errs, errors.New("activation.voice_activity.noise_capture_duration must not be negative"))
		}
		if va.MinBacklogBytes < 0 {
			errs = append(errs, errors.New("activation.voice_activity.min_backlog_bytes must not be negative"))
		}
	}

	// Transport
	if !contains(knownTransports, cfg.Transport.Name) {
		slog.Warn("transport.name is not a built-in transport", "name", cfg.Transport.Name)
	}
	switch cfg.Transport.Name {
	case "discord":
		if cfg.Transport.Discord.Token == "" {
			errs = append(errs, errors.New("transport.discord.token is required for the discord transport"))
		}
		if cfg.Transport.Discord.GuildID == "" || cfg.Transport.Discord.ChannelID == "" {
			errs = append(errs, errors.New("transport.discord.guild_id and channel_id are required for the discord transport"))
		}
	case "websocket":
		if cfg.Transport.Websocket.URL == "" {
			errs = append(errs, errors.New("transport.websocket.url is required for the websocket transport"))
		}
	case "", "none":
		slog.Warn("no transport configured; audio will be encoded and discarded")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
